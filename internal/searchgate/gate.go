// Package searchgate rate limits search triggers against remote manager
// instances. Each item gets a cooldown after it is searched, and each
// instance enforces a minimum interval between any two searches. State is
// kept in memory only; restarts deliberately forget past searches.
package searchgate

import (
	"context"
	"sync"
	"time"
)

// Decision reasons reported when a search is held back.
const (
	ReasonItemCooldown     = "item cooldown"
	ReasonInstanceInterval = "instance interval"
)

// Decision is the outcome of a CanSearch check.
type Decision struct {
	Allowed bool
	Wait    time.Duration
	Reason  string
}

// Gate tracks when items and instances were last searched. Keys are
// instance identifiers such as "radarr:main".
type Gate struct {
	mu       sync.Mutex
	now      func() time.Time
	itemLast map[string]map[int64]time.Time
	gateLast map[string]time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) {
		if now != nil {
			g.now = now
		}
	}
}

// New creates an empty gate.
func New(opts ...Option) *Gate {
	g := &Gate{
		now:      time.Now,
		itemLast: make(map[string]map[int64]time.Time),
		gateLast: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CanSearch reports whether a search for the item may fire now. It checks
// the per-item cooldown first, then the per-instance interval, and never
// mutates state; call RecordSearch once the search actually succeeds.
// Non-positive durations disable the corresponding check.
func (g *Gate) CanSearch(key string, itemID int64, cooldown, minInterval time.Duration) Decision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if cooldown > 0 {
		if last, ok := g.itemLast[key][itemID]; ok {
			if elapsed := now.Sub(last); elapsed < cooldown {
				return Decision{Wait: cooldown - elapsed, Reason: ReasonItemCooldown}
			}
		}
	}
	if minInterval > 0 {
		if last, ok := g.gateLast[key]; ok {
			if elapsed := now.Sub(last); elapsed < minInterval {
				return Decision{Wait: minInterval - elapsed, Reason: ReasonInstanceInterval}
			}
		}
	}
	return Decision{Allowed: true}
}

// RecordSearch marks the item and its instance as searched now.
func (g *Gate) RecordSearch(key string, itemID int64) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	items, ok := g.itemLast[key]
	if !ok {
		items = make(map[int64]time.Time)
		g.itemLast[key] = items
	}
	items[itemID] = now
	g.gateLast[key] = now
}

// ItemOnCooldown reports whether the item was searched within the cooldown.
func (g *Gate) ItemOnCooldown(key string, itemID int64, cooldown time.Duration) bool {
	if cooldown <= 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	last, ok := g.itemLast[key][itemID]
	return ok && g.now().Sub(last) < cooldown
}

// WaitGlobal blocks until the instance's minimum search interval has passed
// or the context is done. It re-checks after sleeping because another
// search may have been recorded in the meantime.
func (g *Gate) WaitGlobal(ctx context.Context, key string, minInterval time.Duration) error {
	if minInterval <= 0 {
		return nil
	}
	for {
		g.mu.Lock()
		last, ok := g.gateLast[key]
		now := g.now()
		g.mu.Unlock()

		if !ok {
			return nil
		}
		remaining := minInterval - now.Sub(last)
		if remaining <= 0 {
			return nil
		}

		timer := time.NewTimer(remaining)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// ClearInstance forgets all search history for one instance key.
func (g *Gate) ClearInstance(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.itemLast, key)
	delete(g.gateLast, key)
}

// ClearAll forgets all search history.
func (g *Gate) ClearAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.itemLast = make(map[string]map[int64]time.Time)
	g.gateLast = make(map[string]time.Time)
}
