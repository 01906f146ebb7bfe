package opt

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strconv"

	"cvrpga/internal/model"
)

// Instance is the immutable distance/capacity model of one CVRP problem.
// Node indices are assigned by sorting external ids, so identical input always
// produces identical indices.
type Instance struct {
	n         int
	ids       []string
	index     map[string]int
	dist      []int // row-major n*n
	demand    []int
	capacity  int
	depot     int
	customers []int
}

// NewInstance validates desc and builds the distance matrix.
func NewInstance(desc model.Description) (*Instance, error) {
	if len(desc.Nodes) == 0 {
		return nil, fmt.Errorf("new instance: %w", ErrNoNodes)
	}
	if desc.EdgeWeightType != model.EdgeWeightEuclidean2D {
		return nil, fmt.Errorf("new instance: %q (want %s): %w", desc.EdgeWeightType, model.EdgeWeightEuclidean2D, ErrEdgeWeightType)
	}
	if desc.Capacity <= 0 {
		return nil, fmt.Errorf("new instance: capacity=%d: %w", desc.Capacity, ErrCapacity)
	}

	ids := sortedIDs(desc.Nodes)
	n := len(ids)
	inst := &Instance{
		n:        n,
		ids:      ids,
		index:    make(map[string]int, n),
		dist:     make([]int, n*n),
		demand:   make([]int, n),
		capacity: desc.Capacity,
		depot:    -1,
	}

	depots := 0
	for i, id := range ids {
		node := desc.Nodes[id]
		inst.index[id] = i
		if node.IsDepot {
			depots++
			inst.depot = i
		}
		if node.Demand < 0 || node.Demand > desc.Capacity {
			return nil, fmt.Errorf("new instance: node %q demand=%d capacity=%d: %w", id, node.Demand, desc.Capacity, ErrDemand)
		}
		inst.demand[i] = node.Demand
	}
	if depots != 1 {
		return nil, fmt.Errorf("new instance: found %d depots: %w", depots, ErrDepotCount)
	}

	for i := 0; i < n; i++ {
		a := desc.Nodes[ids[i]]
		for j := i + 1; j < n; j++ {
			b := desc.Nodes[ids[j]]
			d := int(math.Round(math.Hypot(a.X-b.X, a.Y-b.Y)))
			inst.dist[i*n+j] = d
			inst.dist[j*n+i] = d
		}
	}

	inst.customers = make([]int, 0, n-1)
	for i := 0; i < n; i++ {
		if i != inst.depot {
			inst.customers = append(inst.customers, i)
		}
	}
	return inst, nil
}

// sortedIDs orders ids numerically when every id is an integer (TSPLIB style),
// lexicographically otherwise.
func sortedIDs(nodes map[string]model.Node) []string {
	ids := make([]string, 0, len(nodes))
	numeric := true
	for id := range nodes {
		ids = append(ids, id)
		if _, err := strconv.ParseInt(id, 10, 64); err != nil {
			numeric = false
		}
	}
	if !numeric {
		slices.Sort(ids)
		return ids
	}
	slices.SortFunc(ids, func(a, b string) int {
		x, _ := strconv.ParseInt(a, 10, 64)
		y, _ := strconv.ParseInt(b, 10, 64)
		if c := cmp.Compare(x, y); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})
	return ids
}

// N returns the number of nodes including the depot.
func (in *Instance) N() int { return in.n }

func (in *Instance) Depot() int { return in.depot }
func (in *Instance) Capacity() int { return in.capacity }

func (in *Instance) Demand(i int) int { return in.demand[i] }

// Distance returns the rounded Euclidean distance between two node indices.
func (in *Instance) Distance(i, j int) int { return in.dist[i*in.n+j] }

// ID maps an internal index back to the external node id.
func (in *Instance) ID(i int) string { return in.ids[i] }

// Index maps an external node id to its internal index.
func (in *Instance) Index(id string) (int, bool) {
	i, ok := in.index[id]
	return i, ok
}

// Customers returns the non-depot indices in ascending order.
func (in *Instance) Customers() []int { return slices.Clone(in.customers) }
