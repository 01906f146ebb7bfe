package opt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"cvrpga/internal/model"
)

func TestDefaultConfigValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.Resolve(2).Validate())
	require.NoError(t, cfg.Resolve(200).Validate())
}

func TestConfigResolve(t *testing.T) {
	cfg := DefaultConfig().Resolve(10)
	require.Equal(t, 49, cfg.PopulationSize)
	require.Equal(t, 7, cfg.SurvivorCount)

	small := DefaultConfig().Resolve(2)
	require.Equal(t, 4, small.PopulationSize)
	require.Equal(t, 2, small.SurvivorCount)

	fixed := DefaultConfig()
	fixed.PopulationSize = 30
	fixed.SurvivorCount = 6
	fixed = fixed.Resolve(100)
	require.Equal(t, 30, fixed.PopulationSize)
	require.Equal(t, 6, fixed.SurvivorCount)

	explicit := Config{PopulationSize: 12}
	require.NoError(t, explicit.Validate())
	require.Equal(t, 12, explicit.Resolve(50).PopulationSize)

	noScope := Config{PopulationFactor: 1}
	require.Equal(t, MutateAll, noScope.Resolve(3).MutationScope)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative population", func(c *Config) { c.PopulationSize = -1 }},
		{"population factor", func(c *Config) { c.PopulationFactor = 0 }},
		{"negative factor with size", func(c *Config) {
			c.PopulationSize = 10
			c.PopulationFactor = -1
		}},
		{"factor above one with size", func(c *Config) {
			c.PopulationSize = 10
			c.PopulationFactor = 3
		}},
		{"one survivor", func(c *Config) { c.SurvivorCount = 1 }},
		{"negative elites", func(c *Config) { c.EliteCount = -1 }},
		{"crossover rate", func(c *Config) { c.CrossoverRate = 1.1 }},
		{"mutation rate", func(c *Config) { c.MutationRate = -0.1 }},
		{"mutation scope", func(c *Config) { c.MutationScope = "tail" }},
		{"swath", func(c *Config) { c.MaxSwath = -2 }},
		{"parallelism", func(c *Config) { c.Parallelism = -1 }},
		{"elites fill population", func(c *Config) {
			c.PopulationSize = 4
			c.EliteCount = 4
		}},
		{"too many survivors", func(c *Config) {
			c.PopulationSize = 4
			c.SurvivorCount = 5
		}},
		{"elites and survivors", func(c *Config) {
			c.PopulationSize = 4
			c.SurvivorCount = 3
			c.EliteCount = 2
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}

func TestConfigWithOverrides(t *testing.T) {
	pop, rate, scope, seed, on := 40, 0.3, "half", int64(9), true
	cfg := DefaultConfig().WithOverrides(model.SolverOverrides{
		PopulationSize: &pop,
		MutationRate:   &rate,
		MutationScope:  &scope,
		Seed:           &seed,
		TwoOpt:         &on,
	})
	require.Equal(t, 40, cfg.PopulationSize)
	require.Equal(t, 0.3, cfg.MutationRate)
	require.Equal(t, MutateFirstHalf, cfg.MutationScope)
	require.Equal(t, int64(9), cfg.Seed)
	require.True(t, cfg.TwoOpt)
	require.Equal(t, 0.7, cfg.CrossoverRate)

	require.Equal(t, DefaultConfig(), DefaultConfig().WithOverrides(model.SolverOverrides{}))
}
