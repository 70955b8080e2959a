package simulation

import (
	"time"

	"fleetmon/internal/models"
)

// HistoryPoint is one hourly sample in a machine's backfilled series.
type HistoryPoint struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"`
	Vibration   float64   `json:"vibration"`
	Current     float64   `json:"current"`
	HealthScore int       `json:"healthScore"`
}

// History backfills an hourly sensor series ending at now. The series is
// synthetic like the live readings; it exists so the machine detail view
// has a trend to draw without a persistence layer.
func (g *Generator) History(p models.MachineProfile, now time.Time, hours int) []HistoryPoint {
	points := make([]HistoryPoint, 0, hours+1)

	for i := hours; i >= 0; i-- {
		ts := now.Add(-time.Duration(i) * time.Hour)
		health := g.healthAt(p, ts)
		factor := (100 - health) / 100

		points = append(points, HistoryPoint{
			Timestamp:   ts,
			Temperature: round1(40 + factor*45 + g.noise.Uniform()*2.5),
			Vibration:   round2(0.3 + factor*6 + g.noise.Uniform()*0.25),
			Current:     round1(10 + factor*12 + g.noise.Uniform()*0.75),
			HealthScore: int(health + 0.5),
		})
	}

	return points
}
