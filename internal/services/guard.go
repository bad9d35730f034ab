package services

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultGuardCapacity bounds the recent-submission window by count.
	DefaultGuardCapacity = 5
	// DefaultGuardWindow is the age below which an equal amount counts as
	// a duplicate button tap.
	DefaultGuardWindow = 60 * time.Second
)

type guardEntry struct {
	amount decimal.Decimal
	at     time.Time
}

// Guard suppresses accidental re-submission of the same income amount. It
// keeps the last N (amount, timestamp) pairs; entries age out by count, the
// elapsed-time check happens at query time. Heuristic safety net, scoped
// per process, not a correctness guarantee.
type Guard struct {
	mu       sync.Mutex
	capacity int
	window   time.Duration
	entries  []guardEntry
}

func NewGuard(capacity int, window time.Duration) *Guard {
	if capacity <= 0 {
		capacity = DefaultGuardCapacity
	}
	if window <= 0 {
		window = DefaultGuardWindow
	}
	return &Guard{capacity: capacity, window: window}
}

// ShouldSuppress reports whether an equal amount was submitted within the
// window. When it was not, the submission is recorded, evicting the oldest
// entry at capacity.
func (g *Guard) ShouldSuppress(amount decimal.Decimal, now time.Time) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, e := range g.entries {
		if e.amount.Equal(amount) && now.Sub(e.at) < g.window {
			return true
		}
	}
	if len(g.entries) >= g.capacity {
		g.entries = g.entries[1:]
	}
	g.entries = append(g.entries, guardEntry{amount: amount, at: now})
	return false
}
