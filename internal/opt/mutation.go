package opt

import "math/rand"

// Mutate swaps each in-scope gene, with probability rate, with a uniformly chosen
// position of the same chromosome. The permutation is modified in place.
func Mutate(c Chromosome, rate float64, scope MutationScope, rng *rand.Rand) {
	n := len(c)
	if n < 2 || rate <= 0 {
		return
	}
	limit := n
	if scope == MutateFirstHalf {
		limit = n / 2
	}
	for i := 0; i < limit; i++ {
		if rng.Float64() < rate {
			j := rng.Intn(n)
			c[i], c[j] = c[j], c[i]
		}
	}
}
