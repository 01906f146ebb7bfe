package opt

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"cvrpga/internal/model"
)

// lineDesc is the four node example: depot D at the origin and A, B, C on the x axis.
func lineDesc() model.Description {
	return model.Description{
		Name:           "line",
		Capacity:       6,
		EdgeWeightType: model.EdgeWeightEuclidean2D,
		Nodes: map[string]model.Node{
			"D": {X: 0, Y: 0, IsDepot: true},
			"A": {X: 1, Y: 0, Demand: 3},
			"B": {X: 2, Y: 0, Demand: 3},
			"C": {X: 3, Y: 0, Demand: 3},
		},
	}
}

func mustInstance(t *testing.T, desc model.Description) *Instance {
	t.Helper()
	inst, err := NewInstance(desc)
	require.NoError(t, err)
	return inst
}

// randomDesc builds n customers with numeric ids around depot "1".
func randomDesc(rng *rand.Rand, n, capacity int) model.Description {
	nodes := map[string]model.Node{"1": {X: 50, Y: 50, IsDepot: true}}
	for i := 2; i <= n+1; i++ {
		nodes[fmt.Sprint(i)] = model.Node{
			X:      rng.Float64() * 100,
			Y:      rng.Float64() * 100,
			Demand: 1 + rng.Intn(capacity),
		}
	}
	return model.Description{Capacity: capacity, EdgeWeightType: model.EdgeWeightEuclidean2D, Nodes: nodes}
}

func TestNewInstanceLine(t *testing.T) {
	inst := mustInstance(t, lineDesc())

	require.Equal(t, 4, inst.N())
	require.Equal(t, 6, inst.Capacity())
	require.Equal(t, "D", inst.ID(inst.Depot()))
	require.Equal(t, []int{0, 1, 2}, inst.Customers())
	for i, id := range []string{"A", "B", "C", "D"} {
		got, ok := inst.Index(id)
		require.True(t, ok)
		require.Equal(t, i, got)
		require.Equal(t, id, inst.ID(i))
	}

	a, _ := inst.Index("A")
	c, _ := inst.Index("C")
	require.Equal(t, 2, inst.Distance(a, c))
	require.Equal(t, inst.Distance(c, a), inst.Distance(a, c))
	require.Equal(t, 3, inst.Distance(inst.Depot(), c))
	require.Zero(t, inst.Distance(c, c))
	require.Equal(t, 3, inst.Demand(a))
}

func TestNewInstanceNumericIDOrder(t *testing.T) {
	desc := model.Description{
		Capacity:       10,
		EdgeWeightType: model.EdgeWeightEuclidean2D,
		Nodes: map[string]model.Node{
			"10": {X: 1, Y: 1, Demand: 1},
			"2":  {X: 2, Y: 2, Demand: 1},
			"1":  {IsDepot: true},
		},
	}
	inst := mustInstance(t, desc)
	require.Equal(t, "1", inst.ID(0))
	require.Equal(t, "2", inst.ID(1))
	require.Equal(t, "10", inst.ID(2))
}

func TestNewInstanceDeterministic(t *testing.T) {
	desc := randomDesc(rand.New(rand.NewSource(3)), 30, 20)
	a := mustInstance(t, desc)
	for i := 0; i < 5; i++ {
		b := mustInstance(t, desc)
		require.Equal(t, a.ids, b.ids)
		require.Equal(t, a.dist, b.dist)
	}
}

func TestNewInstanceRounding(t *testing.T) {
	desc := model.Description{
		Capacity:       1,
		EdgeWeightType: model.EdgeWeightEuclidean2D,
		Nodes: map[string]model.Node{
			"0": {IsDepot: true},
			"1": {X: 1, Y: 1},   // 1.414 -> 1
			"2": {X: 1.5, Y: 0}, // 1.5 -> 2
		},
	}
	inst := mustInstance(t, desc)
	require.Equal(t, 1, inst.Distance(0, 1))
	require.Equal(t, 2, inst.Distance(0, 2))
}

func TestNewInstanceErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Description)
		want   error
	}{
		{"no nodes", func(d *model.Description) { d.Nodes = nil }, ErrNoNodes},
		{"edge weight type", func(d *model.Description) { d.EdgeWeightType = "GEO" }, ErrEdgeWeightType},
		{"zero capacity", func(d *model.Description) { d.Capacity = 0 }, ErrCapacity},
		{"no depot", func(d *model.Description) {
			n := d.Nodes["D"]
			n.IsDepot = false
			d.Nodes["D"] = n
		}, ErrDepotCount},
		{"two depots", func(d *model.Description) {
			n := d.Nodes["A"]
			n.IsDepot = true
			d.Nodes["A"] = n
		}, ErrDepotCount},
		{"demand over capacity", func(d *model.Description) {
			n := d.Nodes["B"]
			n.Demand = 7
			d.Nodes["B"] = n
		}, ErrDemand},
		{"negative demand", func(d *model.Description) {
			n := d.Nodes["C"]
			n.Demand = -1
			d.Nodes["C"] = n
		}, ErrDemand},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := lineDesc()
			tt.mutate(&desc)
			_, err := NewInstance(desc)
			require.ErrorIs(t, err, tt.want)
		})
	}
}
