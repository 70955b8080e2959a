package handlers

import (
	"encoding/json"
	"io"
	"net/http"

	"fleetmon/internal/models"
	"fleetmon/internal/predictor"
)

const maxBodyBytes = 1 << 20

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	return dec.Decode(v)
}

// simulateResponse compares a hypothetical reading against the
// machine's current state, when one is known.
type simulateResponse struct {
	Simulated       models.Prediction  `json:"simulated"`
	Current         *models.Prediction `json:"current,omitempty"`
	HealthDelta     *int               `json:"healthDelta,omitempty"`
	Recommendations []string           `json:"recommendations"`
}

// Simulate runs a what-if prediction. It never dispatches alerts or
// touches the cooldown state.
func (h *Handlers) Simulate(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePredictionRequest(w, r)
	if !ok {
		return
	}

	reading := req.Reading()
	reading.Timestamp = h.now()

	pred := h.scorer.Score(reading)
	pred.RootCause = predictor.Classify(pred.Status, reading)

	resp := simulateResponse{
		Simulated:       pred,
		Recommendations: predictor.Recommend(pred.Status, reading),
	}

	if req.MachineID != "" {
		if state, ok := h.monitor.State(req.MachineID); ok {
			current := state.Prediction
			delta := pred.HealthPercentage - current.HealthPercentage
			resp.Current = &current
			resp.HealthDelta = &delta
		}
	}

	respondJSON(w, http.StatusOK, resp)
}
