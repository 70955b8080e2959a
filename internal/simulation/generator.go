package simulation

import (
	"math"
	"time"

	"fleetmon/internal/models"
)

// Health bounds for the simulated degradation walk.
const (
	minHealth = 5.0
	maxHealth = 98.0
)

// Generator produces synthetic sensor readings from a machine's static
// degradation profile and the elapsed simulation time.
type Generator struct {
	clock Clock
	noise NoiseSource
}

// NewGenerator creates a generator with the given clock and noise source.
func NewGenerator(clock Clock, noise NoiseSource) *Generator {
	return &Generator{clock: clock, noise: noise}
}

// Generate produces one reading for the profile at the given instant.
// Pure computation, no I/O.
func (g *Generator) Generate(p models.MachineProfile, now time.Time) models.SensorReading {
	health := g.healthAt(p, now)
	factor := (100 - health) / 100

	return models.SensorReading{
		Timestamp:   now,
		Temperature: round1(40 + factor*45 + g.noise.Uniform()*4),
		Vibration:   round2(0.3 + factor*6 + g.noise.Uniform()*0.4),
		Current:     round1(10 + factor*12 + g.noise.Uniform()*1),
	}
}

// HealthAt exposes the instantaneous simulated health, used by the
// historical series and by tests.
func (g *Generator) HealthAt(p models.MachineProfile, now time.Time) float64 {
	return g.healthAt(p, now)
}

func (g *Generator) healthAt(p models.MachineProfile, now time.Time) float64 {
	elapsed := now.Sub(g.clock.Start()).Minutes()
	if elapsed < 0 {
		elapsed = 0
	}

	// Health lost per 10-minute tick of elapsed time.
	degradation := p.DegradationRate * (elapsed / 10)

	// Bounded oscillation seeded by wall-clock time so concurrent callers
	// observe a consistent instantaneous value.
	t := float64(now.Unix())
	cyclic := (math.Sin(t/30) + math.Cos(t/45)) * p.Volatility

	random := g.noise.Uniform() * p.Volatility * 2

	return clamp(p.BaseHealth-degradation+cyclic+random, minHealth, maxHealth)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
func round2(v float64) float64 { return math.Round(v*100) / 100 }
