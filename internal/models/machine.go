package models

import (
	"errors"
	"time"
)

// Status is the health state of a machine.
type Status string

const (
	StatusHealthy  Status = "HEALTHY"
	StatusWarning  Status = "WARNING"
	StatusCritical Status = "CRITICAL"
)

// IsValid checks if the status is one of the known bands.
func (s Status) IsValid() bool {
	switch s {
	case StatusHealthy, StatusWarning, StatusCritical:
		return true
	default:
		return false
	}
}

// RiskLevel accompanies a Status in API responses and alerts.
type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

// MachineProfile is the static degradation profile of one machine.
// Profiles are loaded at startup and never mutated.
type MachineProfile struct {
	MachineID       string    `json:"machineId"`
	Name            string    `json:"name"`
	Type            string    `json:"type"`
	Location        string    `json:"location"`
	BaseHealth      float64   `json:"baseHealth"`
	DegradationRate float64   `json:"degradationRate"`
	Volatility      float64   `json:"volatility"`
	LastMaintenance time.Time `json:"lastMaintenance"`
	NextScheduled   time.Time `json:"nextScheduled"`
}

// Profile validation errors
var (
	ErrEmptyMachineID      = errors.New("machine ID cannot be empty")
	ErrEmptyMachineName    = errors.New("machine name cannot be empty")
	ErrBaseHealthRange     = errors.New("base health must be in [0,100]")
	ErrNegativeDegradation = errors.New("degradation rate cannot be negative")
	ErrNegativeVolatility  = errors.New("volatility cannot be negative")
)

// Validate checks the profile invariants.
func (p *MachineProfile) Validate() error {
	if p.MachineID == "" {
		return ErrEmptyMachineID
	}
	if p.Name == "" {
		return ErrEmptyMachineName
	}
	if p.BaseHealth < 0 || p.BaseHealth > 100 {
		return ErrBaseHealthRange
	}
	if p.DegradationRate < 0 {
		return ErrNegativeDegradation
	}
	if p.Volatility < 0 {
		return ErrNegativeVolatility
	}
	return nil
}

// SensorReading is one synthetic reading for a machine at a point in time.
type SensorReading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"` // °C
	Vibration   float64   `json:"vibration"`   // mm/s
	Current     float64   `json:"current"`     // A
}

// Prediction is the scored outcome for one reading. It carries no identity;
// the machine it belongs to is supplied alongside it where needed.
type Prediction struct {
	HealthPercentage int       `json:"healthPercentage"`
	RUL              float64   `json:"rul"`
	Status           Status    `json:"status"`
	RiskLevel        RiskLevel `json:"riskLevel"`
	RootCause        string    `json:"rootCause,omitempty"`
	Confidence       float64   `json:"confidence"`
}

// MachineState is the full evaluated view of a machine: profile plus
// the latest reading and its prediction.
type MachineState struct {
	Profile    MachineProfile `json:"profile"`
	Reading    SensorReading  `json:"reading"`
	Prediction Prediction     `json:"prediction"`
}
