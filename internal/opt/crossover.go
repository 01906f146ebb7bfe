package opt

import (
	"fmt"
	"math/rand"
	"slices"
)

// PMX performs partially-mapped crossover. The offspring starts as a copy of b,
// takes a's genes on [left, right], and every gene of b's swath that a's swath
// displaced is moved to the slot found by chasing the a->b position mapping out
// of the swath.
func PMX(a, b Chromosome, left, right int) (Chromosome, error) {
	n := len(a)
	if len(b) != n {
		return nil, fmt.Errorf("pmx: parent lengths %d and %d: %w", n, len(b), ErrParentMismatch)
	}
	if left < 0 || right < left || right >= n {
		return nil, fmt.Errorf("pmx: swath [%d,%d] for length %d: %w", left, right, n, ErrSwath)
	}

	posB := make(map[int]int, n)
	for i, v := range b {
		if _, dup := posB[v]; dup {
			return nil, fmt.Errorf("pmx: gene %d repeated in second parent: %w", v, ErrParentMismatch)
		}
		posB[v] = i
	}
	inSwathA := make(map[int]bool, right-left+1)
	for i, v := range a {
		if _, ok := posB[v]; !ok {
			return nil, fmt.Errorf("pmx: gene %d missing from second parent: %w", v, ErrParentMismatch)
		}
		if i >= left && i <= right {
			inSwathA[v] = true
		}
	}
	// equal length and every a gene found in a duplicate-free b makes the sets equal,
	// unless a itself repeats a gene
	if len(inSwathA) != right-left+1 || hasDuplicate(a) {
		return nil, fmt.Errorf("pmx: first parent repeats a gene: %w", ErrParentMismatch)
	}

	child := slices.Clone(b)
	copy(child[left:right+1], a[left:right+1])
	for p := left; p <= right; p++ {
		v := b[p]
		if inSwathA[v] {
			continue
		}
		pos := p
		for steps := 0; pos >= left && pos <= right; steps++ {
			if steps > n {
				return nil, fmt.Errorf("pmx: mapping chain for gene %d does not leave the swath: %w", v, ErrParentMismatch)
			}
			pos = posB[a[pos]]
		}
		child[pos] = v
	}
	return child, nil
}

func hasDuplicate(c Chromosome) bool {
	seen := make(map[int]struct{}, len(c))
	for _, v := range c {
		if _, ok := seen[v]; ok {
			return true
		}
		seen[v] = struct{}{}
	}
	return false
}

// Crossover draws a swath and applies PMX. With maxSwath > 0 the swath holds at
// most maxSwath genes; 0 lets it run to the end of the chromosome.
func Crossover(a, b Chromosome, maxSwath int, rng *rand.Rand) (Chromosome, error) {
	n := len(a)
	if n == 0 {
		if len(b) != 0 {
			return nil, fmt.Errorf("crossover: parent lengths 0 and %d: %w", len(b), ErrParentMismatch)
		}
		return Chromosome{}, nil
	}
	left := rng.Intn(n)
	limit := n
	if maxSwath > 0 {
		limit = min(n, left+maxSwath)
	}
	right := left + rng.Intn(limit-left)
	return PMX(a, b, left, right)
}
