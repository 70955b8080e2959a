package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"fleetmon/internal/models"
	"fleetmon/internal/registry"
	"fleetmon/internal/simulation"
)

const defaultHistoryHours = 24

// ListMachines returns the latest evaluated state of every machine.
// Machines that have not been evaluated yet appear with profile only.
func (h *Handlers) ListMachines(w http.ResponseWriter, r *http.Request) {
	states := h.monitor.States()
	profiles := h.registry.List()

	out := make([]models.MachineState, 0, len(profiles))
	for _, p := range profiles {
		if s, ok := states[p.MachineID]; ok {
			out = append(out, s)
		} else {
			out = append(out, models.MachineState{Profile: p})
		}
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"machines": out,
		"count":    len(out),
	})
}

// machineDetail is the single-machine view with a backfilled trend.
type machineDetail struct {
	models.MachineState
	History []simulation.HistoryPoint `json:"history"`
}

// GetMachine returns one machine's state plus an hourly sensor history.
// The window is controlled by the ?hours query parameter.
func (h *Handlers) GetMachine(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	p, err := h.registry.Get(id)
	if err != nil {
		respondError(w, http.StatusNotFound, "machine not found")
		return
	}

	hours := defaultHistoryHours
	if v := r.URL.Query().Get("hours"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 168 {
			respondError(w, http.StatusBadRequest, "hours must be an integer between 1 and 168")
			return
		}
		hours = n
	}

	state, ok := h.monitor.State(id)
	if !ok {
		state = models.MachineState{Profile: p}
	}

	respondJSON(w, http.StatusOK, machineDetail{
		MachineState: state,
		History:      h.generator.History(p, h.now(), hours),
	})
}

// LiveReading evaluates the machine right now, outside the tick cadence.
func (h *Handlers) LiveReading(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	state, err := h.monitor.Evaluate(r.Context(), id)
	if err != nil {
		respondError(w, http.StatusNotFound, "machine not found")
		return
	}
	respondJSON(w, http.StatusOK, state)
}

// addMachineRequest registers a machine at runtime.
type addMachineRequest struct {
	MachineID       string  `json:"machine_id"`
	Name            string  `json:"name"`
	Type            string  `json:"type"`
	Location        string  `json:"location"`
	BaseHealth      float64 `json:"base_health"`
	DegradationRate float64 `json:"degradation_rate"`
	Volatility      float64 `json:"volatility"`
}

// AddMachine registers a new machine. It joins the evaluation loop on
// the next tick.
func (h *Handlers) AddMachine(w http.ResponseWriter, r *http.Request) {
	var req addMachineRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if req.BaseHealth == 0 {
		req.BaseHealth = 90
	}

	p := models.MachineProfile{
		MachineID:       req.MachineID,
		Name:            req.Name,
		Type:            req.Type,
		Location:        req.Location,
		BaseHealth:      req.BaseHealth,
		DegradationRate: req.DegradationRate,
		Volatility:      req.Volatility,
		LastMaintenance: h.now(),
	}
	if err := p.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.registry.Add(p); err != nil {
		if errors.Is(err, registry.ErrDuplicateID) {
			respondError(w, http.StatusConflict, "machine ID already registered")
			return
		}
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusCreated, p)
}

// fleetSummary aggregates the latest fleet-wide picture.
type fleetSummary struct {
	Total         int     `json:"total"`
	Healthy       int     `json:"healthy"`
	Warning       int     `json:"warning"`
	Critical      int     `json:"critical"`
	AverageHealth float64 `json:"averageHealth"`
	ActiveAlerts  int     `json:"activeAlerts"`
}

// FleetSummary returns status counts and average health across the
// fleet.
func (h *Handlers) FleetSummary(w http.ResponseWriter, r *http.Request) {
	states := h.monitor.States()

	var sum fleetSummary
	sum.Total = h.registry.Len()

	var healthTotal int
	for _, s := range states {
		switch s.Prediction.Status {
		case models.StatusHealthy:
			sum.Healthy++
		case models.StatusWarning:
			sum.Warning++
		case models.StatusCritical:
			sum.Critical++
		}
		healthTotal += s.Prediction.HealthPercentage
	}
	if len(states) > 0 {
		sum.AverageHealth = round1(float64(healthTotal) / float64(len(states)))
	}
	for _, a := range h.monitor.Alerts().List() {
		if !a.Acknowledged {
			sum.ActiveAlerts++
		}
	}

	respondJSON(w, http.StatusOK, sum)
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
