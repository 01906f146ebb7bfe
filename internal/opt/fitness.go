package opt

import (
	"runtime"

	"github.com/sourcegraph/conc/pool"
)

// Evaluator computes chromosome costs on a bounded worker pool. Workers only read
// the instance and the population and write disjoint slots of the result.
type Evaluator struct {
	inst    *Instance
	workers int
}

// NewEvaluator caps concurrency at parallelism goroutines (0 means GOMAXPROCS).
func NewEvaluator(inst *Instance, parallelism int) *Evaluator {
	if parallelism <= 0 {
		parallelism = runtime.GOMAXPROCS(0)
	}
	return &Evaluator{inst: inst, workers: parallelism}
}

// Evaluate returns costs where costs[i] is the cost of pop[i].
func (e *Evaluator) Evaluate(pop []Chromosome) []int {
	costs := make([]int, len(pop))
	e.EvaluateInto(pop, costs)
	return costs
}

// EvaluateInto writes the cost of pop[i] to costs[i]; len(costs) must be >= len(pop).
func (e *Evaluator) EvaluateInto(pop []Chromosome, costs []int) {
	n := len(pop)
	workers := min(e.workers, n)
	if workers <= 1 {
		for i, c := range pop {
			costs[i] = e.inst.Cost(c)
		}
		return
	}

	// contiguous chunks keep goroutine count at the worker limit
	chunk := (n + workers - 1) / workers
	p := pool.New().WithMaxGoroutines(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		p.Go(func() {
			for i := start; i < end; i++ {
				costs[i] = e.inst.Cost(pop[i])
			}
		})
	}
	p.Wait()
}
