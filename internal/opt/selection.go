package opt

import (
	"container/heap"
	"encoding/binary"
	"math/rand"
	"slices"

	"github.com/cespare/xxhash/v2"
)

// eliteHeap is a max-heap of population indices keyed by (cost, index), so the
// worst of the current top-k sits at the root.
type eliteHeap struct {
	idx   []int
	costs []int
}

func (h eliteHeap) Len() int { return len(h.idx) }
func (h eliteHeap) Less(i, j int) bool {
	a, b := h.idx[i], h.idx[j]
	if h.costs[a] != h.costs[b] {
		return h.costs[a] > h.costs[b]
	}
	return a > b
}
func (h eliteHeap) Swap(i, j int) { h.idx[i], h.idx[j] = h.idx[j], h.idx[i] }
func (h *eliteHeap) Push(x any)   { h.idx = append(h.idx, x.(int)) }
func (h *eliteHeap) Pop() any {
	old := h.idx
	x := old[len(old)-1]
	h.idx = old[:len(old)-1]
	return x
}

// SelectElites returns the indices of the k lowest costs, best first. Ties go to
// the lower index. Runs in O(n log k) without sorting the population.
func SelectElites(costs []int, k int) []int {
	k = min(k, len(costs))
	if k <= 0 {
		return nil
	}
	h := &eliteHeap{idx: make([]int, 0, k), costs: costs}
	for i := range costs {
		if h.Len() < k {
			heap.Push(h, i)
			continue
		}
		// indices ascend, so an equal cost never displaces the root
		if costs[i] < costs[h.idx[0]] {
			h.idx[0] = i
			heap.Fix(h, 0)
		}
	}
	out := h.idx
	slices.SortFunc(out, func(a, b int) int {
		if costs[a] != costs[b] {
			return costs[a] - costs[b]
		}
		return a - b
	})
	return out
}

// TournamentSelect runs binary tournaments until count survivors are chosen and
// returns their population indices. Every chromosome can win at most once per
// call. With dedup set, a winner whose genes equal an already chosen survivor is
// dropped and the round repeats, unless too few candidates would remain.
func TournamentSelect(pop []Chromosome, costs []int, count int, dedup bool, rng *rand.Rand) []int {
	count = min(count, len(pop))
	eligible := make([]int, len(pop))
	for i := range eligible {
		eligible[i] = i
	}

	var seen map[uint64][]int
	if dedup {
		seen = make(map[uint64][]int, count)
	}

	chosen := make([]int, 0, count)
	for len(chosen) < count {
		x := rng.Intn(len(eligible))
		y := rng.Intn(len(eligible))
		w := x
		if costs[eligible[y]] < costs[eligible[x]] {
			w = y
		}
		winner := eligible[w]
		eligible[w] = eligible[len(eligible)-1]
		eligible = eligible[:len(eligible)-1]

		if dedup {
			h := geneHash(pop[winner])
			if containsGenes(pop, seen[h], pop[winner]) && len(eligible) >= count-len(chosen) {
				continue
			}
			seen[h] = append(seen[h], winner)
		}
		chosen = append(chosen, winner)
	}
	return chosen
}

func geneHash(c Chromosome) uint64 {
	d := xxhash.New()
	var buf [8]byte
	for _, g := range c {
		binary.LittleEndian.PutUint64(buf[:], uint64(g))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}

func containsGenes(pop []Chromosome, candidates []int, genes Chromosome) bool {
	for _, i := range candidates {
		if slices.Equal(pop[i], genes) {
			return true
		}
	}
	return false
}
