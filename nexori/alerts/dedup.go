package alerts

import (
	"sync"
	"time"
)

// DefaultDedupWindow is how long a creation id suppresses repeats.
const DefaultDedupWindow = 10 * time.Second

// Guard remembers recently seen creation ids for a fixed window.
// Expired entries are swept lazily on every call.
type Guard struct {
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	seen map[string]time.Time // id -> expiry
}

// NewGuard creates a Guard. A non-positive window uses DefaultDedupWindow.
func NewGuard(window time.Duration) *Guard {
	if window <= 0 {
		window = DefaultDedupWindow
	}
	return &Guard{
		window: window,
		now:    time.Now,
		seen:   make(map[string]time.Time),
	}
}

// SetClock replaces the time source. Intended for tests.
func (g *Guard) SetClock(now func() time.Time) {
	g.mu.Lock()
	g.now = now
	g.mu.Unlock()
}

// ShouldProcess reports true the first time id is seen within the window
// and records it; repeats inside the window report false.
func (g *Guard) ShouldProcess(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweepLocked(now)
	if _, ok := g.seen[id]; ok {
		return false
	}
	g.seen[id] = now.Add(g.window)
	return true
}

// Cleanup drops expired entries.
func (g *Guard) Cleanup() {
	g.mu.Lock()
	g.sweepLocked(g.now())
	g.mu.Unlock()
}

// Reset forgets every id.
func (g *Guard) Reset() {
	g.mu.Lock()
	g.seen = make(map[string]time.Time)
	g.mu.Unlock()
}

// Len returns the number of tracked ids, expired or not.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.seen)
}

func (g *Guard) sweepLocked(now time.Time) {
	for id, expiry := range g.seen {
		if !now.Before(expiry) {
			delete(g.seen, id)
		}
	}
}
