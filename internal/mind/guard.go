package mind

import "sync"

// Guard allows at most one in-flight response per (user, channel) key.
// There is no global cap. Safe for concurrent use.
type Guard struct {
	mu     sync.Mutex
	active map[SessionKey]struct{}
}

// NewGuard creates an empty guard.
func NewGuard() *Guard {
	return &Guard{active: make(map[SessionKey]struct{})}
}

// TryAcquire marks key active and returns true, or returns false if it already is.
func (g *Guard) TryAcquire(key SessionKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.active[key]; busy {
		return false
	}
	g.active[key] = struct{}{}
	return true
}

// Release clears the mark for key. Releasing an idle key is a no-op.
func (g *Guard) Release(key SessionKey) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.active, key)
}

// Active reports whether key is currently held.
func (g *Guard) Active(key SessionKey) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.active[key]
	return busy
}

// Len returns the number of in-flight responses.
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.active)
}
