package opt

import "fmt"

// Chromosome is a permutation of the customer indices. The depot is implicit:
// the decoder inserts a return trip whenever the next customer does not fit.
type Chromosome []int

// RoutePlan lists routes as external ids; every route starts and ends at the depot.
type RoutePlan [][]string

// Cost walks perm with a single vehicle that returns to the depot whenever the
// next demand exceeds the remaining load, and sums the travelled distance.
// It assumes perm is valid for the instance; use ValidatePermutation first when
// that is not guaranteed.
func (in *Instance) Cost(perm Chromosome) int {
	n := in.n
	cost := 0
	prev := in.depot
	load := in.capacity
	for _, c := range perm {
		d := in.demand[c]
		if load < d {
			cost += in.dist[prev*n+in.depot]
			prev = in.depot
			load = in.capacity
		}
		cost += in.dist[prev*n+c]
		load -= d
		prev = c
	}
	return cost + in.dist[prev*n+in.depot]
}

// Decode performs the same traversal as Cost and records the routes.
func (in *Instance) Decode(perm Chromosome) (RoutePlan, error) {
	plan := RoutePlan{}
	if len(perm) == 0 {
		return plan, nil
	}

	depotID := in.ids[in.depot]
	route := []string{depotID}
	load := in.capacity
	for pos, c := range perm {
		if c < 0 || c >= in.n {
			return nil, fmt.Errorf("decode: position %d: index %d out of range: %w", pos, c, ErrPermutation)
		}
		if c == in.depot {
			return nil, fmt.Errorf("decode: position %d: depot inside chromosome: %w", pos, ErrPermutation)
		}
		d := in.demand[c]
		if load < d && len(route) > 1 {
			plan = append(plan, append(route, depotID))
			route = []string{depotID}
			load = in.capacity
		}
		if load < d {
			return nil, fmt.Errorf("decode: node %q demand=%d capacity=%d: %w", in.ids[c], d, in.capacity, ErrDemand)
		}
		route = append(route, in.ids[c])
		load -= d
	}
	return append(plan, append(route, depotID)), nil
}

// ValidatePermutation reports whether perm contains every customer exactly once.
func (in *Instance) ValidatePermutation(perm Chromosome) error {
	if len(perm) != len(in.customers) {
		return fmt.Errorf("validate permutation: length %d, want %d: %w", len(perm), len(in.customers), ErrPermutation)
	}
	seen := make([]bool, in.n)
	for pos, c := range perm {
		switch {
		case c < 0 || c >= in.n:
			return fmt.Errorf("validate permutation: position %d: index %d out of range: %w", pos, c, ErrPermutation)
		case c == in.depot:
			return fmt.Errorf("validate permutation: position %d: depot index: %w", pos, ErrPermutation)
		case seen[c]:
			return fmt.Errorf("validate permutation: position %d: duplicate index %d: %w", pos, c, ErrPermutation)
		}
		seen[c] = true
	}
	return nil
}

type span struct{ start, end int }

// routeSpans splits perm into the half-open ranges the decoder turns into routes.
func (in *Instance) routeSpans(perm Chromosome) []span {
	if len(perm) == 0 {
		return nil
	}
	var spans []span
	start := 0
	load := in.capacity
	for i, c := range perm {
		d := in.demand[c]
		if load < d && i > start {
			spans = append(spans, span{start, i})
			start = i
			load = in.capacity
		}
		load -= d
	}
	return append(spans, span{start, len(perm)})
}
