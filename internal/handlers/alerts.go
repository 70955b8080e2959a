package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"fleetmon/internal/models"
)

// ListAlerts returns the current alert for each machine, newest first.
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := h.monitor.Alerts().List()
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// AcknowledgeAlert marks an alert as seen and notifies connected
// clients.
func (h *Handlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	alert, ok := h.monitor.Alerts().Acknowledge(id)
	if !ok {
		respondError(w, http.StatusNotFound, "alert not found")
		return
	}

	h.hub.Publish(models.NewEvent(models.EventAlertAcknowledged, alert.MachineID, alert))
	respondJSON(w, http.StatusOK, alert)
}
