package opt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecordMetricsEvictsOldest(t *testing.T) {
	prev := maxStoredMetrics
	maxStoredMetrics = 3
	t.Cleanup(func() { maxStoredMetrics = prev })

	for i := 0; i < 5; i++ {
		RecordMetrics(fmt.Sprintf("evict-%d", i), Metrics{Generations: i})
	}
	// updating a kept key does not reorder or grow the store
	RecordMetrics("evict-3", Metrics{Generations: 30})

	for i := 0; i < 2; i++ {
		_, ok := GetMetrics(fmt.Sprintf("evict-%d", i))
		require.False(t, ok, "evict-%d should be gone", i)
	}
	m, ok := GetMetrics("evict-3")
	require.True(t, ok)
	require.Equal(t, 30, m.Generations)
	_, ok = GetMetrics("evict-4")
	require.True(t, ok)

	mu.Lock()
	require.LessOrEqual(t, len(store), 3)
	require.Len(t, order, len(store))
	mu.Unlock()
}
