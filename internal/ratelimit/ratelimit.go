package ratelimit

import (
	"context"
	"time"
)

// Entry is the current usage for one identifier within a fixed window.
type Entry struct {
	Count   int
	ResetAt time.Time
}

// Store holds one Entry per identifier. Implementations must be safe for
// concurrent use. The store is injected so the in-process map can be swapped
// for Redis when limits must hold across instances.
type Store interface {
	// Get returns the entry for id and whether one exists.
	Get(ctx context.Context, id string) (Entry, bool, error)
	// Set replaces the entry for id. The entry expires at e.ResetAt.
	Set(ctx context.Context, id string, e Entry) error
	// Incr increments the counter for id and returns the new count.
	Incr(ctx context.Context, id string) (int, error)
}

// Result of a single rate-limit check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Limiter is a fixed-window request counter keyed by identifier
// (typically "<resource>:<action>:<userId>").
type Limiter struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Limiter {
	return &Limiter{store: store, now: time.Now}
}

// NewWithClock is used by tests to control window expiry.
func NewWithClock(store Store, now func() time.Time) *Limiter {
	return &Limiter{store: store, now: now}
}

// Check counts one request against the window for id. On the first call, or
// once the stored reset time has passed, the window restarts with count 1.
// Within an active window the counter increments until maxRequests, after
// which calls are denied with remaining 0 and an unchanged reset time.
// Check never fails: store errors fail open so a broken backend cannot take
// the API down with it.
func (l *Limiter) Check(ctx context.Context, id string, maxRequests int, window time.Duration) Result {
	now := l.now()

	e, ok, err := l.store.Get(ctx, id)
	if err != nil {
		return Result{Allowed: true, Remaining: maxRequests - 1, ResetAt: now.Add(window)}
	}

	if !ok || !now.Before(e.ResetAt) {
		fresh := Entry{Count: 1, ResetAt: now.Add(window)}
		if err := l.store.Set(ctx, id, fresh); err != nil {
			return Result{Allowed: true, Remaining: maxRequests - 1, ResetAt: fresh.ResetAt}
		}
		return Result{Allowed: true, Remaining: maxRequests - 1, ResetAt: fresh.ResetAt}
	}

	if e.Count >= maxRequests {
		return Result{Allowed: false, Remaining: 0, ResetAt: e.ResetAt}
	}

	count, err := l.store.Incr(ctx, id)
	if err != nil {
		return Result{Allowed: true, Remaining: maxRequests - e.Count - 1, ResetAt: e.ResetAt}
	}
	remaining := maxRequests - count
	if remaining < 0 {
		remaining = 0
	}
	return Result{Allowed: true, Remaining: remaining, ResetAt: e.ResetAt}
}
