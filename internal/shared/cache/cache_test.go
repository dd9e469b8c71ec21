package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type manualClock struct{ now time.Time }

func (c *manualClock) Now() time.Time { return c.now }

func TestLocalLockManager(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLocalLockManager()
	l.clock = clock.Now
	ctx := context.Background()

	unlock, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "sweep", time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)

	other, err := l.Acquire(ctx, "another", time.Minute)
	require.NoError(t, err)
	other()

	unlock()
	unlock()

	again, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)

	// expired locks can be taken over, the stale unlock must not release the new owner
	clock.now = clock.now.Add(2 * time.Minute)
	takeover, err := l.Acquire(ctx, "sweep", time.Minute)
	require.NoError(t, err)
	again()
	_, err = l.Acquire(ctx, "sweep", time.Minute)
	require.ErrorIs(t, err, ErrLockHeld)
	takeover()
}

func TestLocalRateLimiter(t *testing.T) {
	clock := &manualClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
	r := NewLocalRateLimiter()
	r.clock = clock.Now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := r.Allow(ctx, "bid:u1", 3, time.Minute)
		require.NoError(t, err)
		require.True(t, ok)
	}
	ok, err := r.Allow(ctx, "bid:u1", 3, time.Minute)
	require.NoError(t, err)
	require.False(t, ok)

	ok, _ = r.Allow(ctx, "bid:u2", 3, time.Minute)
	require.True(t, ok, "keys are counted separately")

	clock.now = clock.now.Add(time.Minute)
	ok, _ = r.Allow(ctx, "bid:u1", 3, time.Minute)
	require.True(t, ok, "new window")

	ok, _ = r.Allow(ctx, "bid:u1", 0, time.Minute)
	require.True(t, ok, "zero limit disables the limiter")
}
