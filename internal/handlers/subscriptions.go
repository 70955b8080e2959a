package handlers

import (
	"net/http"
	"net/mail"

	"fleetmon/internal/recipients"
)

// subscriptionRequest targets a single machine, or the whole fleet when
// machine_id is "all" or empty.
type subscriptionRequest struct {
	Email     string `json:"email"`
	MachineID string `json:"machine_id"`
}

func (h *Handlers) parseSubscription(w http.ResponseWriter, r *http.Request) (subscriptionRequest, bool) {
	var req subscriptionRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return req, false
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(w, http.StatusBadRequest, "invalid email address")
		return req, false
	}
	if req.MachineID == "" {
		req.MachineID = recipients.Fleet
	}
	if req.MachineID != recipients.Fleet {
		if _, err := h.registry.Get(req.MachineID); err != nil {
			respondError(w, http.StatusNotFound, "machine not found")
			return req, false
		}
	}
	return req, true
}

// Subscribe registers an email for alerts on a machine or the fleet.
func (h *Handlers) Subscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSubscription(w, r)
	if !ok {
		return
	}
	if err := h.store.Subscribe(r.Context(), req.Email, req.MachineID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to store subscription")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{
		"email":      req.Email,
		"machine_id": req.MachineID,
	})
}

// Unsubscribe removes an email's subscription.
func (h *Handlers) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseSubscription(w, r)
	if !ok {
		return
	}
	if err := h.store.Unsubscribe(r.Context(), req.Email, req.MachineID); err != nil {
		respondError(w, http.StatusInternalServerError, "failed to remove subscription")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"email":      req.Email,
		"machine_id": req.MachineID,
	})
}
