// Package handlers implements the HTTP API.
package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"fleetmon/internal/broadcast"
	"fleetmon/internal/dispatch"
	"fleetmon/internal/logger"
	"fleetmon/internal/models"
	"fleetmon/internal/monitor"
	"fleetmon/internal/predictor"
	"fleetmon/internal/recipients"
	"fleetmon/internal/registry"
	"fleetmon/internal/simulation"
)

// Handlers bundles the API's dependencies.
type Handlers struct {
	registry   *registry.Registry
	monitor    *monitor.Monitor
	generator  *simulation.Generator
	scorer     *predictor.Scorer
	dispatcher *dispatch.Service
	store      recipients.Store
	hub        *broadcast.Hub

	now func() time.Time
}

func New(
	reg *registry.Registry,
	mon *monitor.Monitor,
	gen *simulation.Generator,
	scorer *predictor.Scorer,
	dispatcher *dispatch.Service,
	store recipients.Store,
	hub *broadcast.Hub,
) *Handlers {
	return &Handlers{
		registry:   reg,
		monitor:    mon,
		generator:  gen,
		scorer:     scorer,
		dispatcher: dispatcher,
		store:      store,
		hub:        hub,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Routes registers all API routes on the router.
func (h *Handlers) Routes(r *mux.Router) {
	r.HandleFunc("/api/predict", h.Predict).Methods(http.MethodPost)
	r.HandleFunc("/api/simulate", h.Simulate).Methods(http.MethodPost)

	r.HandleFunc("/api/machines", h.ListMachines).Methods(http.MethodGet)
	r.HandleFunc("/api/machines", h.AddMachine).Methods(http.MethodPost)
	r.HandleFunc("/api/machines/{id}", h.GetMachine).Methods(http.MethodGet)
	r.HandleFunc("/api/machines/{id}/live", h.LiveReading).Methods(http.MethodGet)

	r.HandleFunc("/api/fleet/summary", h.FleetSummary).Methods(http.MethodGet)

	r.HandleFunc("/api/alerts", h.ListAlerts).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts/{id}/acknowledge", h.AcknowledgeAlert).Methods(http.MethodPost)

	r.HandleFunc("/api/subscriptions", h.Subscribe).Methods(http.MethodPost)
	r.HandleFunc("/api/subscriptions", h.Unsubscribe).Methods(http.MethodDelete)

	r.HandleFunc("/ws", h.WebSocket)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("handlers").Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondFieldErrors(w http.ResponseWriter, errs []models.FieldError) {
	respondJSON(w, http.StatusBadRequest, map[string]interface{}{
		"error":   "validation failed",
		"details": errs,
	})
}
