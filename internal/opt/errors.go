package opt

import "errors"

// Input contract violations. They are fatal for a run and are never retried.
var (
	ErrNoNodes        = errors.New("opt: problem has no nodes")
	ErrEdgeWeightType = errors.New("opt: unsupported edge weight type")
	ErrCapacity       = errors.New("opt: vehicle capacity must be positive")
	ErrDepotCount     = errors.New("opt: exactly one depot node is required")
	ErrDemand         = errors.New("opt: node demand out of range")
	ErrPermutation    = errors.New("opt: chromosome is not a permutation of the customers")
	ErrParentMismatch = errors.New("opt: crossover parents are not permutations of the same set")
	ErrSwath          = errors.New("opt: crossover swath out of bounds")
	ErrGenerations    = errors.New("opt: generation budget must be at least 1")
	ErrInvalidConfig  = errors.New("opt: invalid solver configuration")
)
