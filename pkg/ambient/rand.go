package ambient

import (
	"math/rand/v2"
	"sync"
)

// Rand is the randomness a session draws on: jitter, voicing choices and the
// onset shuffle. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
	Shuffle(n int, swap func(i, j int))
}

// NewRand returns a PCG source seeded with seed, or with a random seed if
// seed is zero. The result is safe for concurrent use.
func NewRand(seed uint64) Rand {
	if seed == 0 {
		seed = rand.Uint64()
	}
	return &lockedRand{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

type lockedRand struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *lockedRand) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *lockedRand) Shuffle(n int, swap func(i, j int)) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.r.Shuffle(n, swap)
}

// uniformSym returns a value in [-width, width).
func uniformSym(r Rand, width float64) float64 {
	return r.Float64()*2*width - width
}
