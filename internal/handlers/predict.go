package handlers

import (
	"errors"
	"net/http"

	"fleetmon/internal/dispatch"
	"fleetmon/internal/models"
	"fleetmon/internal/predictor"
)

// predictResponse is the manual-prediction payload. Dispatch is only
// present when an alert email was requested.
type predictResponse struct {
	Prediction      models.Prediction       `json:"prediction"`
	Recommendations []string                `json:"recommendations"`
	Dispatch        []models.DispatchResult `json:"dispatch,omitempty"`
}

// Predict scores a caller-supplied sensor reading. When alert_email is
// set and the outcome is non-healthy, an alert email is sent
// immediately, with no cooldown check.
func (h *Handlers) Predict(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodePredictionRequest(w, r)
	if !ok {
		return
	}

	reading := req.Reading()
	reading.Timestamp = h.now()

	pred := h.scorer.Score(reading)
	pred.RootCause = predictor.Classify(pred.Status, reading)

	resp := predictResponse{
		Prediction:      pred,
		Recommendations: predictor.Recommend(pred.Status, reading),
	}

	if req.AlertEmail != "" && pred.Status != models.StatusHealthy {
		profile := h.profileFor(req.MachineID)
		state := models.MachineState{Profile: profile, Reading: reading, Prediction: pred}
		results, _ := h.dispatcher.Dispatch(state, []string{req.AlertEmail}, dispatch.Options{BypassCooldown: true})
		resp.Dispatch = results
	}

	respondJSON(w, http.StatusOK, resp)
}

func (h *Handlers) decodePredictionRequest(w http.ResponseWriter, r *http.Request) (models.PredictionRequest, bool) {
	var req models.PredictionRequest
	if err := decodeBody(w, r, &req); err != nil {
		var fe models.FieldError
		if errors.As(err, &fe) {
			respondFieldErrors(w, []models.FieldError{fe})
		} else {
			respondError(w, http.StatusBadRequest, "invalid JSON body")
		}
		return req, false
	}
	if errs := req.Validate(); len(errs) > 0 {
		respondFieldErrors(w, errs)
		return req, false
	}
	return req, true
}

// profileFor resolves a registered machine, or synthesizes an ad-hoc
// profile so manual predictions work for machines the registry does not
// know about.
func (h *Handlers) profileFor(machineID string) models.MachineProfile {
	if machineID != "" {
		if p, err := h.registry.Get(machineID); err == nil {
			return p
		}
	}
	id := machineID
	if id == "" {
		id = "manual"
	}
	return models.MachineProfile{MachineID: id, Name: "Manual reading"}
}
