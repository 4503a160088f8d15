package session

import (
	"sync"
	"time"
)

// Guard suppresses repeat check-in signals for the same employee within one
// capture session. It is deliberately memory-only: the store's uniqueness
// constraint handles duplicates across sessions, this just keeps a person
// standing in frame from generating a check-in attempt every tick.
type Guard struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{seen: make(map[string]struct{})}
}

// Admit reports true the first time an (employee, calendar day) pair is
// seen in this session and false on every later call with the same pair.
func (g *Guard) Admit(employeeID string, at time.Time) bool {
	key := employeeID + "|" + at.UTC().Format("2006-01-02")
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, dup := g.seen[key]; dup {
		return false
	}
	g.seen[key] = struct{}{}
	return true
}

// Reset clears the session scope. Called when a new capture session starts.
func (g *Guard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = make(map[string]struct{})
}
