// Command cvrp solves a capacitated vehicle routing problem with a genetic algorithm
// and writes the best plan found as JSON.
//
//	cvrp [flags] <input> <iteration_count>
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"cvrpga/internal/buildinfo"
	"cvrpga/internal/config"
	"cvrpga/internal/integrations"
	"cvrpga/internal/opt"
	"cvrpga/internal/report"
)

const heartbeatEvery = 2 * time.Second

type options struct {
	configPath string
	seed       int64
	population int
	elite      int
	crossover  float64
	mutation   float64
	swath      int
	workers    int
	twoOpt     bool
	quiet      bool
	out        string
	plotConv   string
	plotRoutes string
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("cvrp: ")

	var o options
	fs := flag.NewFlagSet("cvrp", flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "usage: cvrp [flags] <input> <iteration_count>\n\ninput is a .json description, a TSPLIB .vrp file or a .csv node list\n\n")
		fs.PrintDefaults()
	}
	fs.StringVar(&o.configPath, "config", "", "YAML config file (solver section); defaults to $CVRP_CONFIG")
	fs.Int64Var(&o.seed, "seed", 0, "random seed, 0 picks one from the clock")
	fs.IntVar(&o.population, "population", 0, "population size, 0 derives it from the node count")
	fs.IntVar(&o.elite, "elite", 0, "elite chromosomes copied into every generation")
	fs.Float64Var(&o.crossover, "crossover", 0, "crossover probability per pair")
	fs.Float64Var(&o.mutation, "mutation", 0, "swap probability per gene")
	fs.IntVar(&o.swath, "swath", 0, "maximum PMX swath length, 0 for the whole chromosome")
	fs.IntVar(&o.workers, "workers", 0, "fitness workers, 0 for GOMAXPROCS")
	fs.BoolVar(&o.twoOpt, "two-opt", false, "polish the best plan with 2-opt")
	fs.BoolVar(&o.quiet, "quiet", false, "no progress output")
	fs.StringVar(&o.out, "out", "", "write the JSON report to this file instead of stdout")
	fs.StringVar(&o.plotConv, "plot-convergence", "", "write a best cost chart (.png or .svg)")
	fs.StringVar(&o.plotRoutes, "plot-routes", "", "write a route map (.png or .svg)")
	version := fs.Bool("version", false, "print version and exit")
	_ = fs.Parse(os.Args[1:])

	if *version {
		fmt.Println(buildinfo.String())
		return
	}
	if fs.NArg() != 2 {
		fs.Usage()
		os.Exit(2)
	}
	generations, err := strconv.Atoi(fs.Arg(1))
	if err != nil || generations < 1 {
		log.Fatalf("iteration_count must be a positive integer, got %q", fs.Arg(1))
	}

	_ = godotenv.Load()
	if err := run(fs, o, fs.Arg(0), generations); err != nil {
		log.Fatal(err)
	}
}

func run(fs *flag.FlagSet, o options, input string, generations int) error {
	desc, err := integrations.LoadFile(input)
	if err != nil {
		return err
	}
	if o.configPath == "" {
		o.configPath = os.Getenv("CVRP_CONFIG")
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return err
	}
	solver := applyFlags(fs, o, cfg.Solver)

	inst, err := opt.NewInstance(desc)
	if err != nil {
		return err
	}
	var progress opt.ProgressFunc
	if !o.quiet {
		progress = progressLogger(generations)
	}
	res, err := opt.Solve(inst, solver, generations, progress)
	if err != nil {
		return err
	}
	if !o.quiet {
		log.Printf("done best=%d gen=%d routes=%d seed=%d evals=%d dur=%s",
			res.Cost, res.BestGeneration, len(res.Plan), res.Seed, res.Metrics.Evaluations, res.Metrics.Duration.Round(time.Millisecond))
	}

	if err := writeOutput(o.out, res.Output(desc)); err != nil {
		return err
	}
	if o.plotConv != "" {
		if err := report.ConvergencePlot(res.History, res.Generations, o.plotConv); err != nil {
			return err
		}
	}
	if o.plotRoutes != "" {
		if err := report.RoutesPlot(desc, res.Plan, o.plotRoutes); err != nil {
			return err
		}
	}
	return nil
}

// applyFlags overrides cfg with the flags given on the command line only.
func applyFlags(fs *flag.FlagSet, o options, cfg opt.Config) opt.Config {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "seed":
			cfg.Seed = o.seed
		case "population":
			cfg.PopulationSize = o.population
		case "elite":
			cfg.EliteCount = o.elite
		case "crossover":
			cfg.CrossoverRate = o.crossover
		case "mutation":
			cfg.MutationRate = o.mutation
		case "swath":
			cfg.MaxSwath = o.swath
		case "workers":
			cfg.Parallelism = o.workers
		case "two-opt":
			cfg.TwoOpt = o.twoOpt
		}
	})
	return cfg
}

// progressLogger logs every improvement and a heartbeat line at most every heartbeatEvery.
func progressLogger(generations int) opt.ProgressFunc {
	last := time.Now()
	return func(p opt.Progress) {
		switch {
		case p.Improved:
			log.Printf("gen=%d/%d best=%d mean=%.1f std=%.1f", p.Generation, generations, p.BestCost, p.MeanCost, p.StdDevCost)
		case time.Since(last) >= heartbeatEvery:
			log.Printf("gen=%d/%d best=%d (gen %d)", p.Generation, generations, p.BestCost, p.BestGeneration)
		default:
			return
		}
		last = time.Now()
	}
}

// writeOutput writes v as indented JSON to path, or to stdout when path is empty.
func writeOutput(path string, v any) error {
	if path == "" {
		return encodeOutput(os.Stdout, v)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if err := encodeOutput(f, v); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}

func encodeOutput(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
