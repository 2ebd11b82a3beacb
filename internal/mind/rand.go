package mind

import (
	"math/rand"
	"sync"
	"time"
)

// Rand is the randomness source behind every probabilistic branch.
// Tests substitute scripted sequences.
type Rand interface {
	Float64() float64 // [0,1)
	Intn(n int) int   // [0,n)
}

// lockedRand makes a *rand.Rand safe for concurrent response flows.
type lockedRand struct {
	mu  sync.Mutex
	src *rand.Rand
}

// NewRand returns a concurrency-safe Rand seeded with seed.
func NewRand(seed int64) Rand {
	return &lockedRand{src: rand.New(rand.NewSource(seed))}
}

// DefaultRand returns a concurrency-safe Rand seeded from the clock.
func DefaultRand() Rand {
	return NewRand(time.Now().UnixNano())
}

func (r *lockedRand) Float64() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Float64()
}

func (r *lockedRand) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.src.Intn(n)
}

// uniform draws from [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + (hi-lo)*r.Float64()
}

// intBetween draws an int from [lo, hi] inclusive.
func intBetween(r Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.Intn(hi-lo+1)
}
