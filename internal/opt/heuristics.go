package opt

import "slices"

// ImproveRoutes2Opt applies 2-opt inside each route of perm as the decoder splits
// it. A reversal keeps a route's stops, so the split and every route's load are
// unchanged and the cost never increases. perm is not modified.
func ImproveRoutes2Opt(inst *Instance, perm Chromosome, iterations int) Chromosome {
	if iterations <= 0 {
		iterations = 1
	}
	best := slices.Clone(perm)
	for _, sp := range inst.routeSpans(best) {
		for it := 0; it < iterations; it++ {
			if !twoOptPass(inst, best, sp) {
				break
			}
		}
	}
	return best
}

// twoOptPass tries every reversal of route sp and applies the improving ones.
func twoOptPass(inst *Instance, order Chromosome, sp span) bool {
	improved := false
	for i := sp.start; i < sp.end-1; i++ {
		for k := i + 1; k < sp.end; k++ {
			prev := inst.depot
			if i > sp.start {
				prev = order[i-1]
			}
			next := inst.depot
			if k < sp.end-1 {
				next = order[k+1]
			}
			before := inst.Distance(prev, order[i]) + inst.Distance(order[k], next)
			after := inst.Distance(prev, order[k]) + inst.Distance(order[i], next)
			if after < before {
				twoOptSwap(order, i, k)
				improved = true
			}
		}
	}
	return improved
}

// twoOptSwap reverses ord[i..k] in place.
func twoOptSwap(ord Chromosome, i, k int) {
	for ; i < k; i, k = i+1, k-1 {
		ord[i], ord[k] = ord[k], ord[i]
	}
}
