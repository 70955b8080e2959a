package models

import "time"

// DispatchStatus is the per-recipient outcome of one dispatch attempt.
type DispatchStatus string

const (
	DispatchSent    DispatchStatus = "sent"
	DispatchSkipped DispatchStatus = "skipped"
	DispatchFailed  DispatchStatus = "failed"
)

// Skip reasons
const (
	ReasonStatusNormal   = "status normal"
	ReasonCooldownActive = "cooldown active"
	ReasonUnknownStatus  = "unknown status"
)

// DispatchResult records the outcome of sending one alert to one recipient.
type DispatchResult struct {
	Recipient string         `json:"recipient"`
	Status    DispatchStatus `json:"status"`
	Reason    string         `json:"reason,omitempty"`
	Error     string         `json:"error,omitempty"`
	MessageID string         `json:"message_id,omitempty"`
}

// Alert is an active alert raised for a machine.
type Alert struct {
	ID           string    `json:"id"`
	MachineID    string    `json:"machineId"`
	MachineName  string    `json:"machineName"`
	Severity     Status    `json:"severity"` // WARNING or CRITICAL
	Message      string    `json:"message"`
	RootCause    string    `json:"rootCause,omitempty"`
	Health       int       `json:"healthPercentage"`
	Timestamp    time.Time `json:"timestamp"`
	Acknowledged bool      `json:"acknowledged"`
}
