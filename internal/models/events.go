package models

import "time"

// EventType identifies a broadcast event.
type EventType string

const (
	// EventMachineUpdate is the periodic health refresh for a machine.
	EventMachineUpdate EventType = "machine_update"

	// EventNewAlert fires when a machine's status is WARNING or CRITICAL.
	EventNewAlert EventType = "new_alert"

	// EventAlertAcknowledged fires when an operator acknowledges an alert.
	EventAlertAcknowledged EventType = "alert_acknowledged"

	// EventSensorUpdate is the raw reading tick, delivered only to
	// connections subscribed to that specific machine.
	EventSensorUpdate EventType = "sensor_update"
)

// Event is one broadcast message fanned out to subscribers and mirrored
// to the analytics topic when the export is enabled.
type Event struct {
	Type      EventType   `json:"type"`
	MachineID string      `json:"machine_id,omitempty"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewEvent builds an event stamped with the current time.
func NewEvent(t EventType, machineID string, payload interface{}) Event {
	return Event{
		Type:      t,
		MachineID: machineID,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}
