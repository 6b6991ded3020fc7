package lb

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsistentHashDeterministic(t *testing.T) {
	pool := New(healthySpecs(3))
	ch := NewConsistentHash(DefaultReplicas)

	first, ok := ch.Pick("user:42", pool)
	require.True(t, ok)

	for i := 0; i < 20; i++ {
		again, ok := ch.Pick("user:42", pool)
		require.True(t, ok)
		assert.Equal(t, first, again)
	}
}

func TestConsistentHashEmptyPool(t *testing.T) {
	pool := New(nil)
	ch := NewConsistentHash(DefaultReplicas)
	_, ok := ch.Pick("any", pool)
	assert.False(t, ok)
}

func TestConsistentHashStabilityUnderRemoval(t *testing.T) {
	specsABC := []BackendSpec{
		{ID: "A", Address: "10.0.0.1:9000", Weight: 1, FailureThreshold: 3, SuccessThreshold: 1},
		{ID: "B", Address: "10.0.0.2:9000", Weight: 1, FailureThreshold: 3, SuccessThreshold: 1},
		{ID: "C", Address: "10.0.0.3:9000", Weight: 1, FailureThreshold: 3, SuccessThreshold: 1},
	}
	before := New(specsABC)
	ch := NewConsistentHash(DefaultReplicas)

	const totalKeys = 1000
	beforePicks := make([]int, totalKeys)
	for i := 0; i < totalKeys; i++ {
		idx, ok := ch.Pick(fmt.Sprintf("user:%d", i), before)
		require.True(t, ok)
		beforePicks[i] = idx
	}

	// Remove B (index 1) by marking it unhealthy permanently.
	after := New(specsABC)
	after.MarkFailure(1)
	after.MarkFailure(1)
	after.MarkFailure(1)

	retained := 0
	for i := 0; i < totalKeys; i++ {
		idx, ok := ch.Pick(fmt.Sprintf("user:%d", i), after)
		require.True(t, ok)
		beforeAddr, _ := before.Address(beforePicks[i])
		afterAddr, _ := after.Address(idx)
		if beforeAddr == afterAddr {
			retained++
		}
	}

	// spec.md §8 scenario 5: at least 2/3 of keys retain their assignment.
	assert.GreaterOrEqual(t, retained, totalKeys*2/3)
}

func TestConsistentHashRespectsWeight(t *testing.T) {
	heavy := []BackendSpec{
		{ID: "light", Address: "10.0.0.1:9000", Weight: 1, FailureThreshold: 3, SuccessThreshold: 1},
		{ID: "heavy", Address: "10.0.0.2:9000", Weight: 10, FailureThreshold: 3, SuccessThreshold: 1},
	}
	pool := New(heavy)
	ch := NewConsistentHash(DefaultReplicas)

	counts := map[int]int{}
	for i := 0; i < 2000; i++ {
		idx, ok := ch.Pick(fmt.Sprintf("k:%d", i), pool)
		require.True(t, ok)
		counts[idx]++
	}
	// the heavy backend (10x weight) should receive meaningfully more keys
	assert.Greater(t, counts[1], counts[0])
}
