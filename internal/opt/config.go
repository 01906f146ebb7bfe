package opt

import (
	"fmt"
	"math"

	"cvrpga/internal/model"
)

// MutationScope selects which gene positions are candidates for a swap.
type MutationScope string

const (
	MutateAll       MutationScope = "all"
	MutateFirstHalf MutationScope = "half"
)

// Config holds the genetic algorithm parameters. Zero values of PopulationSize
// and SurvivorCount are derived from the instance size by Resolve.
type Config struct {
	PopulationSize   int           `yaml:"populationSize" json:"populationSize"`
	PopulationFactor float64       `yaml:"populationFactor" json:"populationFactor"`
	SurvivorCount    int           `yaml:"survivorCount" json:"survivorCount"`
	EliteCount       int           `yaml:"eliteCount" json:"eliteCount"`
	CrossoverRate    float64       `yaml:"crossoverRate" json:"crossoverRate"`
	MutationRate     float64       `yaml:"mutationRate" json:"mutationRate"`
	MutationScope    MutationScope `yaml:"mutationScope" json:"mutationScope"`
	// MaxSwath bounds the PMX swath length; 0 lets the swath span the whole chromosome.
	MaxSwath       int   `yaml:"maxSwath" json:"maxSwath"`
	Parallelism    int   `yaml:"parallelism" json:"parallelism"`
	DedupSurvivors bool  `yaml:"dedupSurvivors" json:"dedupSurvivors"`
	Seed           int64 `yaml:"seed" json:"seed"`
	TwoOpt         bool  `yaml:"twoOpt" json:"twoOpt"`
}

const minPopulation = 4

func DefaultConfig() Config {
	return Config{
		PopulationFactor: 0.7,
		EliteCount:       1,
		CrossoverRate:    0.7,
		MutationRate:     0.01,
		MutationScope:    MutateAll,
		MaxSwath:         5,
		DedupSurvivors:   true,
	}
}

// Resolve fills the derived sizes for a problem with nodeCount nodes (depot included).
// Population defaults to (k*n)^2, survivors to sqrt(population).
func (c Config) Resolve(nodeCount int) Config {
	if c.MutationScope == "" {
		c.MutationScope = MutateAll
	}
	if c.PopulationSize == 0 {
		k := c.PopulationFactor * float64(nodeCount)
		c.PopulationSize = max(int(k*k), minPopulation)
	}
	if c.SurvivorCount == 0 {
		c.SurvivorCount = max(int(math.Sqrt(float64(c.PopulationSize))), 2)
	}
	return c
}

// Validate checks ranges; relations between sizes are only checked once they are set.
// PopulationFactor may only be 0 when PopulationSize is given.
func (c Config) Validate() error {
	if c.PopulationSize < 0 {
		return fmt.Errorf("populationSize=%d must be >= 0: %w", c.PopulationSize, ErrInvalidConfig)
	}
	if c.PopulationFactor < 0 || c.PopulationFactor > 1 || (c.PopulationSize == 0 && c.PopulationFactor == 0) {
		return fmt.Errorf("populationFactor=%g must be in (0,1]: %w", c.PopulationFactor, ErrInvalidConfig)
	}
	if c.SurvivorCount < 0 || c.SurvivorCount == 1 {
		return fmt.Errorf("survivorCount=%d must be 0 (derived) or >= 2: %w", c.SurvivorCount, ErrInvalidConfig)
	}
	if c.EliteCount < 0 {
		return fmt.Errorf("eliteCount=%d must be >= 0: %w", c.EliteCount, ErrInvalidConfig)
	}
	if c.CrossoverRate < 0 || c.CrossoverRate > 1 {
		return fmt.Errorf("crossoverRate=%g must be in [0,1]: %w", c.CrossoverRate, ErrInvalidConfig)
	}
	if c.MutationRate < 0 || c.MutationRate > 1 {
		return fmt.Errorf("mutationRate=%g must be in [0,1]: %w", c.MutationRate, ErrInvalidConfig)
	}
	switch c.MutationScope {
	case "", MutateAll, MutateFirstHalf:
	default:
		return fmt.Errorf("mutationScope=%q must be %q or %q: %w", c.MutationScope, MutateAll, MutateFirstHalf, ErrInvalidConfig)
	}
	if c.MaxSwath < 0 {
		return fmt.Errorf("maxSwath=%d must be >= 0: %w", c.MaxSwath, ErrInvalidConfig)
	}
	if c.Parallelism < 0 {
		return fmt.Errorf("parallelism=%d must be >= 0: %w", c.Parallelism, ErrInvalidConfig)
	}
	if c.PopulationSize > 0 {
		if c.EliteCount >= c.PopulationSize {
			return fmt.Errorf("eliteCount=%d must be < populationSize=%d: %w", c.EliteCount, c.PopulationSize, ErrInvalidConfig)
		}
		if c.SurvivorCount > c.PopulationSize {
			return fmt.Errorf("survivorCount=%d must be <= populationSize=%d: %w", c.SurvivorCount, c.PopulationSize, ErrInvalidConfig)
		}
		if c.EliteCount+c.SurvivorCount > c.PopulationSize {
			return fmt.Errorf("eliteCount+survivorCount=%d exceeds populationSize=%d: %w", c.EliteCount+c.SurvivorCount, c.PopulationSize, ErrInvalidConfig)
		}
	}
	return nil
}

// WithOverrides returns c with every non-nil field of o applied.
func (c Config) WithOverrides(o model.SolverOverrides) Config {
	if o.PopulationSize != nil {
		c.PopulationSize = *o.PopulationSize
	}
	if o.SurvivorCount != nil {
		c.SurvivorCount = *o.SurvivorCount
	}
	if o.EliteCount != nil {
		c.EliteCount = *o.EliteCount
	}
	if o.CrossoverRate != nil {
		c.CrossoverRate = *o.CrossoverRate
	}
	if o.MutationRate != nil {
		c.MutationRate = *o.MutationRate
	}
	if o.MutationScope != nil {
		c.MutationScope = MutationScope(*o.MutationScope)
	}
	if o.MaxSwath != nil {
		c.MaxSwath = *o.MaxSwath
	}
	if o.Seed != nil {
		c.Seed = *o.Seed
	}
	if o.TwoOpt != nil {
		c.TwoOpt = *o.TwoOpt
	}
	return c
}
