// Package cache defines the coordination primitives shared by the service
// instances: a distributed lock for the sweeper and a rate limiter for bids.
// The redis sub package implements them over go-redis; the local versions in
// this package serve single instance deployments and tests.
package cache

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLockHeld is returned by Acquire when someone else holds the lock
var ErrLockHeld = errors.New("lock is held by another owner")

// LockManager hands out short lived named locks. The returned unlock func is
// safe to call more than once.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// RateLimiter counts hits per key in a time window
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LocalLockManager is an in-process LockManager
type LocalLockManager struct {
	mu    sync.Mutex
	held  map[string]time.Time // key -> expiry
	clock func() time.Time
}

func NewLocalLockManager() *LocalLockManager {
	return &LocalLockManager{held: make(map[string]time.Time), clock: time.Now}
}

func (l *LocalLockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.clock()
	if exp, ok := l.held[key]; ok && now.Before(exp) {
		return nil, ErrLockHeld
	}
	expiry := now.Add(ttl)
	l.held[key] = expiry

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			// a lock that expired and was taken again belongs to the new owner
			if l.held[key].Equal(expiry) {
				delete(l.held, key)
			}
		})
	}, nil
}

type window struct {
	start time.Time
	count int
}

// LocalRateLimiter is a fixed window in-process RateLimiter
type LocalRateLimiter struct {
	mu      sync.Mutex
	windows map[string]*window
	clock   func() time.Time
}

func NewLocalRateLimiter() *LocalRateLimiter {
	return &LocalRateLimiter{windows: make(map[string]*window), clock: time.Now}
}

func (r *LocalRateLimiter) Allow(_ context.Context, key string, limit int, win time.Duration) (bool, error) {
	if limit <= 0 {
		return true, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	w, ok := r.windows[key]
	if !ok || now.Sub(w.start) >= win {
		w = &window{start: now}
		r.windows[key] = w
	}
	if w.count >= limit {
		return false, nil
	}
	w.count++
	return true, nil
}

var (
	_ LockManager = (*LocalLockManager)(nil)
	_ RateLimiter = (*LocalRateLimiter)(nil)
)
