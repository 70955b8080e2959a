package predictor

import "fleetmon/internal/models"

// Probable cause messages, in evaluation priority order.
const (
	CauseBearingDegradation  = "Bearing degradation - abnormal vibration pattern"
	CauseThermalOverload     = "Thermal overload - cooling system check required"
	CauseElectricalImbalance = "Electrical imbalance - current exceeding nominal range"
	CauseMisalignment        = "Mechanical misalignment - monitor vibration levels"
	CauseMultipleFactors     = "Multiple stress factors - comprehensive inspection recommended"
)

// Classify returns the probable cause for a degraded machine, or "" when
// the status is healthy. Checks run in a fixed priority order; the first
// match wins, so reordering would change outcomes for readings that cross
// several thresholds.
func Classify(status models.Status, r models.SensorReading) string {
	if status == models.StatusHealthy {
		return ""
	}

	switch {
	case r.Vibration > 4:
		return CauseBearingDegradation
	case r.Temperature > 75:
		return CauseThermalOverload
	case r.Current > 20:
		return CauseElectricalImbalance
	case r.Vibration > 3:
		return CauseMisalignment
	default:
		return CauseMultipleFactors
	}
}
