package opt

import (
	"math/rand"
	"slices"
	"time"
)

// NewRand returns the generator for one run and the seed it was built from.
// A zero seed draws one from the clock, so runs differ unless a seed is given.
func NewRand(seed int64) (*rand.Rand, int64) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)), seed
}

// InitialPopulation returns size independent uniformly shuffled customer permutations.
func InitialPopulation(inst *Instance, size int, rng *rand.Rand) []Chromosome {
	base := inst.Customers()
	pop := make([]Chromosome, size)
	for i := range pop {
		c := slices.Clone(Chromosome(base))
		rng.Shuffle(len(c), func(a, b int) { c[a], c[b] = c[b], c[a] })
		pop[i] = c
	}
	return pop
}
