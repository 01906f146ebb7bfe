package main

import (
	"encoding/json"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"cvrpga/internal/model"
	"cvrpga/internal/opt"
)

type failWriter struct{}

func (failWriter) Write([]byte) (int, error) { return 0, errors.New("no space left on device") }

func TestWriteOutputFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	want := model.Output{
		BestPath:                [][]string{{"D", "A", "D"}},
		BestSolutionPerformance: []model.Improvement{{Generation: 0, Cost: 2}},
		BestCost:                2,
		Generations:             1,
		Seed:                    4,
	}
	require.NoError(t, writeOutput(path, want))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got model.Output
	require.NoError(t, json.Unmarshal(data, &got))
	require.Equal(t, want.BestPath, got.BestPath)
	require.Equal(t, want.BestSolutionPerformance, got.BestSolutionPerformance)
	require.Equal(t, 2, got.BestCost)
}

func TestWriteOutputErrors(t *testing.T) {
	err := writeOutput(filepath.Join(t.TempDir(), "missing", "out.json"), model.Output{})
	require.ErrorContains(t, err, "write output")

	require.ErrorContains(t, encodeOutput(failWriter{}, model.Output{}), "no space left")

	if _, err := os.Stat("/dev/full"); err != nil {
		t.Skip("no /dev/full")
	}
	require.Error(t, writeOutput("/dev/full", model.Output{}))
}

func TestApplyFlagsOnlyVisited(t *testing.T) {
	var o options
	fs := flag.NewFlagSet("cvrp", flag.ContinueOnError)
	fs.Int64Var(&o.seed, "seed", 0, "")
	fs.IntVar(&o.population, "population", 0, "")
	fs.Float64Var(&o.mutation, "mutation", 0, "")
	fs.BoolVar(&o.twoOpt, "two-opt", false, "")
	require.NoError(t, fs.Parse([]string{"-seed", "7", "-two-opt", "in.json", "10"}))

	base := opt.DefaultConfig()
	base.PopulationSize = 30
	cfg := applyFlags(fs, o, base)
	require.Equal(t, int64(7), cfg.Seed)
	require.True(t, cfg.TwoOpt)
	require.Equal(t, 30, cfg.PopulationSize)
	require.Equal(t, base.MutationRate, cfg.MutationRate)
	require.Equal(t, []string{"in.json", "10"}, fs.Args())
}
