package opt

import (
	"math/rand"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSelectElites(t *testing.T) {
	costs := []int{5, 1, 3, 1, 9}
	require.Equal(t, []int{1, 3}, SelectElites(costs, 2))
	require.Equal(t, []int{1, 3, 2, 0, 4}, SelectElites(costs, 10))
	require.Nil(t, SelectElites(costs, 0))
	require.Nil(t, SelectElites(nil, 3))
}

func TestSelectElitesMatchesSort(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for trial := 0; trial < 50; trial++ {
		costs := make([]int, 1+rng.Intn(60))
		for i := range costs {
			costs[i] = rng.Intn(20)
		}
		all := make([]int, len(costs))
		for i := range all {
			all[i] = i
		}
		slices.SortStableFunc(all, func(a, b int) int { return costs[a] - costs[b] })

		k := 1 + rng.Intn(len(costs))
		require.Equal(t, all[:k], SelectElites(costs, k))
	}
}

func TestTournamentSelectExactlyOnce(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	pop := make([]Chromosome, 12)
	costs := make([]int, 12)
	for i := range pop {
		pop[i] = Chromosome{i, i + 100}
		costs[i] = rng.Intn(50)
	}

	for _, dedup := range []bool{false, true} {
		got := TournamentSelect(pop, costs, 7, dedup, rng)
		require.Len(t, got, 7)
		seen := map[int]bool{}
		for _, i := range got {
			require.False(t, seen[i], "index %d selected twice", i)
			seen[i] = true
		}
	}

	all := TournamentSelect(pop, costs, len(pop), false, rng)
	slices.Sort(all)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, all)
}

func TestTournamentSelectDedup(t *testing.T) {
	pop := []Chromosome{
		{1, 2, 3}, {1, 2, 3}, {1, 2, 3},
		{3, 2, 1}, {2, 1, 3}, {2, 3, 1},
	}
	costs := []int{1, 1, 1, 5, 6, 7}
	for seed := int64(1); seed <= 20; seed++ {
		got := TournamentSelect(pop, costs, 3, true, rand.New(rand.NewSource(seed)))
		require.Len(t, got, 3)
		hashes := map[uint64]bool{}
		for _, i := range got {
			h := geneHash(pop[i])
			require.False(t, hashes[h], "duplicate genes selected: %v", got)
			hashes[h] = true
		}
	}
}

func TestTournamentSelectAcceptsDuplicatesWhenShort(t *testing.T) {
	pop := []Chromosome{{1, 2}, {1, 2}, {1, 2}, {2, 1}}
	costs := []int{3, 3, 3, 4}
	got := TournamentSelect(pop, costs, 4, true, rand.New(rand.NewSource(1)))
	slices.Sort(got)
	require.Equal(t, []int{0, 1, 2, 3}, got)
}

func TestTournamentSelectFavoursLowCost(t *testing.T) {
	rng := rand.New(rand.NewSource(10))
	pop := make([]Chromosome, 100)
	costs := make([]int, 100)
	for i := range pop {
		pop[i] = Chromosome{i}
		costs[i] = i
	}
	sum := 0
	const rounds = 200
	for r := 0; r < rounds; r++ {
		for _, i := range TournamentSelect(pop, costs, 10, false, rng) {
			sum += costs[i]
		}
	}
	mean := float64(sum) / (rounds * 10)
	require.Less(t, mean, 45.0)
}

func TestEvaluatorMatchesSequential(t *testing.T) {
	rng := rand.New(rand.NewSource(12))
	inst := mustInstance(t, randomDesc(rng, 35, 25))
	for _, size := range []int{1, 7, 64, 101} {
		pop := InitialPopulation(inst, size, rng)
		want := make([]int, size)
		for i, c := range pop {
			want[i] = inst.Cost(c)
		}
		for _, workers := range []int{0, 1, 3, 16} {
			require.Equal(t, want, NewEvaluator(inst, workers).Evaluate(pop), "size=%d workers=%d", size, workers)
		}
	}
}

func TestInitialPopulation(t *testing.T) {
	rng := rand.New(rand.NewSource(15))
	inst := mustInstance(t, randomDesc(rng, 12, 5))
	pop := InitialPopulation(inst, 25, rng)
	require.Len(t, pop, 25)
	distinct := map[uint64]bool{}
	for _, c := range pop {
		require.NoError(t, inst.ValidatePermutation(c))
		distinct[geneHash(c)] = true
	}
	require.Greater(t, len(distinct), 20)
}
