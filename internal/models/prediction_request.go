package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// PredictionRequest is the manual-prediction input. Sensor fields are
// pointers so that missing and zero values can be told apart; malformed
// input is rejected, never coerced.
type PredictionRequest struct {
	MachineID   string   `json:"machine_id,omitempty"`
	Temperature *float64 `json:"temperature"`
	Vibration   *float64 `json:"vibration"`
	Current     *float64 `json:"current"`

	// Optional: when set and the prediction is non-healthy, an alert is
	// dispatched to this address with no cooldown check.
	AlertEmail string `json:"alert_email,omitempty"`
}

// FieldError describes a validation failure on a single input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Sensor input bounds, matching the documented operating ranges.
const (
	MinTemperature = -50.0
	MaxTemperature = 200.0
	MaxVibration   = 20.0
	MaxCurrent     = 50.0
)

// Validate returns all field-level problems with the request.
func (r *PredictionRequest) Validate() []FieldError {
	var errs []FieldError

	check := func(name string, v *float64, min, max float64) {
		if v == nil {
			errs = append(errs, FieldError{Field: name, Message: "is required"})
			return
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) {
			errs = append(errs, FieldError{Field: name, Message: "must be a finite number"})
			return
		}
		if *v < min || *v > max {
			errs = append(errs, FieldError{
				Field:   name,
				Message: fmt.Sprintf("must be between %g and %g", min, max),
			})
		}
	}

	check("temperature", r.Temperature, MinTemperature, MaxTemperature)
	check("vibration", r.Vibration, 0, MaxVibration)
	check("current", r.Current, 0, MaxCurrent)

	return errs
}

// Reading converts a validated request into a SensorReading.
func (r *PredictionRequest) Reading() SensorReading {
	return SensorReading{
		Temperature: *r.Temperature,
		Vibration:   *r.Vibration,
		Current:     *r.Current,
	}
}

// UnmarshalJSON rejects non-numeric sensor fields with a field-level error
// instead of the generic json error.
func (r *PredictionRequest) UnmarshalJSON(data []byte) error {
	type raw struct {
		MachineID   string          `json:"machine_id"`
		Temperature json.RawMessage `json:"temperature"`
		Vibration   json.RawMessage `json:"vibration"`
		Current     json.RawMessage `json:"current"`
		AlertEmail  string          `json:"alert_email"`
	}

	var in raw
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	r.MachineID = in.MachineID
	r.AlertEmail = in.AlertEmail

	parse := func(name string, msg json.RawMessage) (*float64, error) {
		if len(msg) == 0 || string(msg) == "null" {
			return nil, nil
		}
		var v float64
		if err := json.Unmarshal(msg, &v); err != nil {
			return nil, FieldError{Field: name, Message: "must be a number"}
		}
		return &v, nil
	}

	var err error
	if r.Temperature, err = parse("temperature", in.Temperature); err != nil {
		return err
	}
	if r.Vibration, err = parse("vibration", in.Vibration); err != nil {
		return err
	}
	if r.Current, err = parse("current", in.Current); err != nil {
		return err
	}
	return nil
}
