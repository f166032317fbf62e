package matching

import (
	"math"
	"math/rand/v2"
	"sync"
)

// Rand is the randomness a mutation may draw on.
type Rand interface {
	Float64() float64
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// lockedRand serialises access to a *rand.Rand, which is not safe for
// concurrent use.
type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// uniform returns a value in [lo, hi).
func uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

// fabricated returns a random score in [lo, hi) truncated to one decimal so
// display rounding cannot push it onto hi.
func fabricated(r Rand, lo, hi float64) float64 {
	return math.Floor(uniform(r, lo, hi)*10) / 10
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
