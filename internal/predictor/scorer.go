package predictor

import (
	"math"

	"fleetmon/internal/models"
	"fleetmon/internal/simulation"
)

// MaxRUL is the remaining-useful-life ceiling in cycles. Health percentage
// is always predictedRUL/MaxRUL*100.
const MaxRUL = 125.0

// Degradation weights. These must sum to 1.0; ScoreWeightsSum exists so
// tests can assert the invariant.
const (
	weightTemperature = 0.35
	weightVibration   = 0.40
	weightCurrent     = 0.25
)

// ScoreWeightsSum is the sum of the degradation weights.
const ScoreWeightsSum = weightTemperature + weightVibration + weightCurrent

// Status band boundaries on the integer health percentage.
const (
	healthyAbove  = 70 // health > 70  -> HEALTHY
	criticalBelow = 40 // health < 40  -> CRITICAL
)

// Scorer maps a sensor reading to a degradation score, RUL estimate and
// status. The heuristic is fixed; only the noise source is injectable.
type Scorer struct {
	noise simulation.NoiseSource
}

// NewScorer creates a scorer. Pass simulation.ZeroNoise{} for exact,
// repeatable output.
func NewScorer(noise simulation.NoiseSource) *Scorer {
	return &Scorer{noise: noise}
}

// DegradationScore computes the weighted composite of the normalized
// sensor values, in [0,1]. Higher is worse.
func (s *Scorer) DegradationScore(r models.SensorReading) float64 {
	tempNorm := clamp01((r.Temperature - 20) / 80)
	vibNorm := clamp01(r.Vibration / 10)
	curNorm := clamp01((r.Current - 5) / 25)

	return weightTemperature*tempNorm + weightVibration*vibNorm + weightCurrent*curNorm
}

// Score evaluates one reading. RootCause is left empty; see Classify.
func (s *Scorer) Score(r models.SensorReading) models.Prediction {
	degradation := s.DegradationScore(r)

	rul := MaxRUL*(1-degradation) + s.noise.Uniform()*5
	if rul < 0 {
		rul = 0
	}
	if rul > MaxRUL {
		rul = MaxRUL
	}

	health := int(math.Round(rul / MaxRUL * 100))
	status, risk := statusFor(health)

	return models.Prediction{
		HealthPercentage: health,
		RUL:              math.Round(rul*100) / 100,
		Status:           status,
		RiskLevel:        risk,
		Confidence:       clamp01(0.85 + s.noise.Uniform()*0.05),
	}
}

// statusFor maps an integer health percentage to its status band. The
// boundaries are exact: 71 is HEALTHY, 70 and 40 are WARNING, 39 is
// CRITICAL.
func statusFor(health int) (models.Status, models.RiskLevel) {
	switch {
	case health > healthyAbove:
		return models.StatusHealthy, models.RiskLow
	case health < criticalBelow:
		return models.StatusCritical, models.RiskHigh
	default:
		return models.StatusWarning, models.RiskMedium
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
