package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solvix/solvix-devis/internal/cache"
	"github.com/solvix/solvix-devis/internal/config"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func (c *clock) advance(mr *miniredis.Miniredis, d time.Duration) {
	c.t = c.t.Add(d)
	mr.FastForward(d)
}

func newTestLockout(t *testing.T) (*Lockout, *clock, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	store, err := cache.InitServer(context.Background(), config.RedisConnection{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c := &clock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	l := NewLockout(store.Db, 5, 24*time.Hour)
	l.now = c.now
	return l, c, mr
}

func TestLockout_BlocksAfterMaxFailures(t *testing.T) {
	l, c, mr := newTestLockout(t)
	ctx := context.Background()

	for i := 1; i <= 4; i++ {
		left, until, err := l.RecordFailure(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 5-i, left)
		assert.Nil(t, until)
		c.advance(mr, time.Hour)
	}

	until, err := l.Check(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, until, "four failures do not block")

	left, blockedUntil, err := l.RecordFailure(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	require.NotNil(t, blockedUntil)
	assert.Equal(t, c.t.Add(24*time.Hour), *blockedUntil)

	until, err = l.Check(ctx, "u1")
	require.NoError(t, err)
	require.NotNil(t, until)

	c.advance(mr, 23*time.Hour)
	until, err = l.Check(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, until, "still blocked before 24h elapsed")

	c.advance(mr, time.Hour)
	until, err = l.Check(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, until, "block clears after 24h")
}

func TestLockout_WindowRestartsAfter24h(t *testing.T) {
	l, c, mr := newTestLockout(t)
	ctx := context.Background()

	for range 4 {
		_, _, err := l.RecordFailure(ctx, "u1")
		require.NoError(t, err)
	}
	c.advance(mr, 25*time.Hour)

	left, until, err := l.RecordFailure(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 4, left)
	assert.Nil(t, until)
}

func TestLockout_ResetClearsState(t *testing.T) {
	l, _, _ := newTestLockout(t)
	ctx := context.Background()

	for range 5 {
		_, _, err := l.RecordFailure(ctx, "u1")
		require.NoError(t, err)
	}
	require.NoError(t, l.Reset(ctx, "u1"))

	until, err := l.Check(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, until)
}

func TestLockout_PerUser(t *testing.T) {
	l, _, mr := newTestLockout(t)
	ctx := context.Background()

	for range 5 {
		_, _, err := l.RecordFailure(ctx, "u1")
		require.NoError(t, err)
	}
	assert.True(t, mr.Exists(BlockKeyPrefix+"u1"))

	until, err := l.Check(ctx, "u2")
	require.NoError(t, err)
	assert.Nil(t, until)
}

func TestLockout_ConcurrentFailuresAreAllCounted(t *testing.T) {
	l, _, _ := newTestLockout(t)
	ctx := context.Background()

	const workers = 20
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		left    []int
		blocked int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, until, err := l.RecordFailure(ctx, "u1")
			assert.NoError(t, err)
			mu.Lock()
			defer mu.Unlock()
			if until != nil {
				blocked++
				return
			}
			left = append(left, n)
		}()
	}
	wg.Wait()

	assert.Equal(t, workers-4, blocked)
	assert.ElementsMatch(t, []int{4, 3, 2, 1}, left)

	until, err := l.Check(ctx, "u1")
	require.NoError(t, err)
	assert.NotNil(t, until)
}

func TestLockout_RecordFailureWhileBlockedKeepsBlockEnd(t *testing.T) {
	l, c, mr := newTestLockout(t)
	ctx := context.Background()

	var first *time.Time
	for range 5 {
		_, until, err := l.RecordFailure(ctx, "u1")
		require.NoError(t, err)
		first = until
	}
	require.NotNil(t, first)

	c.advance(mr, time.Hour)
	left, until, err := l.RecordFailure(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, left)
	require.NotNil(t, until)
	assert.Equal(t, *first, *until)
}
