package opt

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"

	"cvrpga/internal/model"
)

// Progress is reported once per generation, after the best-so-far is updated.
type Progress struct {
	Generation     int
	BestCost       int
	BestGeneration int
	Improved       bool
	MeanCost       float64
	StdDevCost     float64
}

type ProgressFunc func(Progress)

// Result is the outcome of a run. History only holds generational improvements:
// with TwoOpt, Cost is the polished cost and may be lower than the last History
// entry, which stays equal to Metrics.BestCost.
type Result struct {
	Best           Chromosome
	Cost           int
	Plan           RoutePlan
	BestGeneration int
	History        []model.Improvement
	Generations    int
	Seed           int64
	Config         Config
	Metrics        Metrics
}

// Output packages the result with the description it was solved for.
func (r Result) Output(desc model.Description) model.Output {
	path := [][]string(r.Plan)
	if path == nil {
		path = [][]string{}
	}
	history := r.History
	if history == nil {
		history = []model.Improvement{}
	}
	return model.Output{
		Description:             desc,
		BestPath:                path,
		BestSolutionPerformance: history,
		BestCost:                r.Cost,
		Generations:             r.Generations,
		Seed:                    r.Seed,
	}
}

// Engine owns the random source and worker pool of one run. It is not safe for
// concurrent use.
type Engine struct {
	inst *Instance
	cfg  Config
	rng  *rand.Rand
	seed int64
	eval *Evaluator
	m    Metrics
}

// NewEngine validates cfg, resolves derived sizes for inst and validates the result.
func NewEngine(inst *Instance, cfg Config) (*Engine, error) {
	// before Resolve, while derived sizes are still unset
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	cfg = cfg.Resolve(inst.N())
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("new engine: %w", err)
	}
	rng, seed := NewRand(cfg.Seed)
	cfg.Seed = seed
	return &Engine{
		inst: inst,
		cfg:  cfg,
		rng:  rng,
		seed: seed,
		eval: NewEvaluator(inst, cfg.Parallelism),
	}, nil
}

// Config returns the resolved configuration, seed included.
func (e *Engine) Config() Config { return e.cfg }

// Solve runs the genetic algorithm for the given number of generations.
func Solve(inst *Instance, cfg Config, generations int, progress ProgressFunc) (Result, error) {
	e, err := NewEngine(inst, cfg)
	if err != nil {
		return Result{}, err
	}
	return e.Run(generations, progress)
}

// Run evaluates, records the best, selects and reproduces once per generation.
// Reproduction is skipped after the last evaluation.
func (e *Engine) Run(generations int, progress ProgressFunc) (Result, error) {
	if generations < 1 {
		return Result{}, fmt.Errorf("run: generations=%d: %w", generations, ErrGenerations)
	}
	start := time.Now()
	e.m = Metrics{PopulationSize: e.cfg.PopulationSize, SurvivorCount: e.cfg.SurvivorCount}

	pop := InitialPopulation(e.inst, e.cfg.PopulationSize, e.rng)
	costs := make([]int, len(pop))
	fcosts := make([]float64, len(pop))

	var best Chromosome
	bestCost, bestGen := math.MaxInt, -1
	var history []model.Improvement

	for g := 0; g < generations; g++ {
		e.eval.EvaluateInto(pop, costs)
		e.m.Evaluations += len(pop)

		minIdx := 0
		for i, c := range costs {
			fcosts[i] = float64(c)
			if c < costs[minIdx] {
				minIdx = i
			}
		}
		if g == 0 {
			e.m.InitialBest = costs[minIdx]
		}
		improved := costs[minIdx] < bestCost
		if improved {
			best = slices.Clone(pop[minIdx])
			bestCost, bestGen = costs[minIdx], g
			history = append(history, model.Improvement{Generation: g, Cost: bestCost})
			e.m.Improvements++
		}
		if progress != nil {
			mean, std := stat.MeanStdDev(fcosts, nil)
			progress(Progress{
				Generation:     g,
				BestCost:       bestCost,
				BestGeneration: bestGen,
				Improved:       improved,
				MeanCost:       mean,
				StdDevCost:     std,
			})
		}
		e.m.Generations = g + 1
		if g == generations-1 {
			e.m.FinalMeanCost = stat.Mean(fcosts, nil)
			break
		}

		elites := SelectElites(costs, e.cfg.EliteCount)
		survivors := TournamentSelect(pop, costs, e.cfg.SurvivorCount, e.cfg.DedupSurvivors, e.rng)
		next, err := e.reproduce(pop, elites, survivors)
		if err != nil {
			return Result{}, fmt.Errorf("run: generation %d: %w", g, err)
		}
		pop = next
	}

	e.m.BestCost = bestCost
	if e.cfg.TwoOpt {
		polished := ImproveRoutes2Opt(e.inst, best, len(best))
		if c := e.inst.Cost(polished); c < bestCost {
			best, bestCost = polished, c
		}
	}
	e.m.PolishedCost = bestCost

	plan, err := e.inst.Decode(best)
	if err != nil {
		return Result{}, fmt.Errorf("run: %w", err)
	}
	e.m.Duration = time.Since(start)
	return Result{
		Best:           best,
		Cost:           bestCost,
		Plan:           plan,
		BestGeneration: bestGen,
		History:        history,
		Generations:    generations,
		Seed:           e.seed,
		Config:         e.cfg,
		Metrics:        e.m,
	}, nil
}

// reproduce builds the next population: elite copies first, then one offspring per
// ordered survivor pair (i, j), i != j, in i-major order. The schedule is cut off
// once the population is full and restarted from the first pair if it runs out.
func (e *Engine) reproduce(pop []Chromosome, elites, survivors []int) ([]Chromosome, error) {
	size := e.cfg.PopulationSize
	if len(survivors) < 2 && len(elites) < size {
		return nil, fmt.Errorf("reproduce: %d survivors cannot form pairs: %w", len(survivors), ErrInvalidConfig)
	}
	next := make([]Chromosome, 0, size)
	for _, i := range elites {
		next = append(next, slices.Clone(pop[i]))
	}
	for len(next) < size {
		for i := range survivors {
			for j := range survivors {
				if i == j {
					continue
				}
				if len(next) == size {
					return next, nil
				}
				child, err := e.offspring(pop[survivors[i]], pop[survivors[j]])
				if err != nil {
					return nil, err
				}
				next = append(next, child)
			}
		}
	}
	return next, nil
}

func (e *Engine) offspring(a, b Chromosome) (Chromosome, error) {
	var child Chromosome
	if e.rng.Float64() < e.cfg.CrossoverRate {
		c, err := Crossover(a, b, e.cfg.MaxSwath, e.rng)
		if err != nil {
			return nil, err
		}
		child = c
		e.m.Crossovers++
	} else {
		child = slices.Clone(a)
		e.m.Copies++
	}
	Mutate(child, e.cfg.MutationRate, e.cfg.MutationScope, e.rng)
	return child, nil
}
