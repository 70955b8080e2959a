package simulation

import (
	"math/rand"
	"sync"
)

// NoiseSource supplies the random component of synthetic readings.
// Scoring and generation take it as a capability so tests can swap in a
// zero source and get exact values.
type NoiseSource interface {
	// Uniform returns a value in [-1, 1).
	Uniform() float64
}

type randNoise struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewNoise returns a NoiseSource backed by math/rand, safe for
// concurrent use.
func NewNoise(seed int64) NoiseSource {
	return &randNoise{rng: rand.New(rand.NewSource(seed))}
}

func (n *randNoise) Uniform() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.rng.Float64()*2 - 1
}

// ZeroNoise returns 0 from every draw. Used by tests and anywhere a
// deterministic evaluation is required.
type ZeroNoise struct{}

func (ZeroNoise) Uniform() float64 { return 0 }
