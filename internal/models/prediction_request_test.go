package models

import (
	"encoding/json"
	"errors"
	"testing"
)

func f(v float64) *float64 { return &v }

func TestPredictionRequestValidate(t *testing.T) {
	tests := []struct {
		name       string
		req        PredictionRequest
		wantFields []string
	}{
		{
			name: "valid",
			req:  PredictionRequest{Temperature: f(75), Vibration: f(3.2), Current: f(15)},
		},
		{
			name:       "all missing",
			req:        PredictionRequest{},
			wantFields: []string{"temperature", "vibration", "current"},
		},
		{
			name:       "temperature too high",
			req:        PredictionRequest{Temperature: f(250), Vibration: f(1), Current: f(10)},
			wantFields: []string{"temperature"},
		},
		{
			name:       "negative vibration",
			req:        PredictionRequest{Temperature: f(50), Vibration: f(-1), Current: f(10)},
			wantFields: []string{"vibration"},
		},
		{
			name:       "current above ceiling",
			req:        PredictionRequest{Temperature: f(50), Vibration: f(1), Current: f(51)},
			wantFields: []string{"current"},
		},
		{
			name: "bounds are inclusive",
			req:  PredictionRequest{Temperature: f(200), Vibration: f(0), Current: f(50)},
		},
		{
			name:       "mixed missing and invalid",
			req:        PredictionRequest{Temperature: f(-100), Current: f(10)},
			wantFields: []string{"temperature", "vibration"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.req.Validate()
			if len(errs) != len(tt.wantFields) {
				t.Fatalf("got %d errors (%v), want %d", len(errs), errs, len(tt.wantFields))
			}
			for i, want := range tt.wantFields {
				if errs[i].Field != want {
					t.Errorf("error %d on field %q, want %q", i, errs[i].Field, want)
				}
			}
		})
	}
}

func TestPredictionRequestUnmarshal(t *testing.T) {
	var req PredictionRequest
	body := `{"machine_id":"MCH-001","temperature":75.5,"vibration":3,"current":15,"alert_email":"a@b.com"}`
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if req.MachineID != "MCH-001" || req.AlertEmail != "a@b.com" {
		t.Errorf("unexpected request: %+v", req)
	}
	if req.Temperature == nil || *req.Temperature != 75.5 {
		t.Errorf("Temperature = %v, want 75.5", req.Temperature)
	}
}

func TestPredictionRequestUnmarshalNonNumeric(t *testing.T) {
	var req PredictionRequest
	err := json.Unmarshal([]byte(`{"temperature":"hot","vibration":3,"current":15}`), &req)
	if err == nil {
		t.Fatal("expected an error for a string temperature")
	}

	var fe FieldError
	if !errors.As(err, &fe) {
		t.Fatalf("error type = %T, want FieldError", err)
	}
	if fe.Field != "temperature" || fe.Message != "must be a number" {
		t.Errorf("unexpected field error: %+v", fe)
	}
}

func TestPredictionRequestUnmarshalNull(t *testing.T) {
	var req PredictionRequest
	if err := json.Unmarshal([]byte(`{"temperature":null,"vibration":3,"current":15}`), &req); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}
	if req.Temperature != nil {
		t.Error("null temperature must stay unset")
	}

	errs := req.Validate()
	if len(errs) != 1 || errs[0].Field != "temperature" {
		t.Errorf("Validate() = %v, want a single temperature error", errs)
	}
}
