package idempotency

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryGuard(t *testing.T) {
	ctx := context.Background()
	g := NewMemoryGuard()

	seen, err := g.HasProcessed(ctx, 12)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, g.MarkProcessed(ctx, 12, 1001))

	seen, err = g.HasProcessed(ctx, 12)
	require.NoError(t, err)
	assert.True(t, seen)

	seen, err = g.HasProcessed(ctx, 13)
	require.NoError(t, err)
	assert.False(t, seen)
}

func TestMemoryGuard_CheckAndMarkIsAtomic(t *testing.T) {
	g := NewMemoryGuard()

	var firsts int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !g.CheckAndMark(7) {
				atomic.AddInt32(&firsts, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), firsts)
	assert.True(t, g.CheckAndMark(7))
}

func TestMemoryGuard_Forget(t *testing.T) {
	g := NewMemoryGuard()

	assert.False(t, g.CheckAndMark(3))
	g.Forget(3)
	assert.False(t, g.CheckAndMark(3), "forgotten ids can be claimed again")
	assert.True(t, g.CheckAndMark(3))
}
