package predictor

import "fleetmon/internal/models"

// Recommend returns the maintenance actions for an alert, ordered most
// urgent first. The list always has at least one entry for a non-healthy
// status; it feeds the email templates and the machine detail view.
func Recommend(status models.Status, r models.SensorReading) []string {
	if status == models.StatusHealthy {
		return []string{"Continue normal operation with routine monitoring"}
	}

	var actions []string

	if status == models.StatusCritical {
		actions = append(actions, "Schedule emergency maintenance within 24-48 hours")
	} else {
		actions = append(actions, "Schedule preventive maintenance within 3-5 days")
	}

	if r.Vibration > 4 {
		actions = append(actions, "Lubricate bearings and check shaft alignment")
	}
	if r.Temperature > 75 {
		actions = append(actions, "Inspect cooling system and clean air filters")
	}
	if r.Current > 20 {
		actions = append(actions, "Reduce operational load and check for mechanical binding")
	}
	if r.Temperature > 75 && r.Current > 20 {
		actions = append(actions, "Investigate combined thermal-electrical stress")
	}

	if len(actions) == 1 {
		actions = append(actions, "Monitor sensor trends until the next maintenance window")
	}

	return actions
}
