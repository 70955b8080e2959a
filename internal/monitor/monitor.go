// Package monitor runs the periodic evaluation loop: generate sensor
// readings for every registered machine, score them, and hand anything
// non-healthy to the dispatch service.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"fleetmon/internal/broadcast"
	"fleetmon/internal/dispatch"
	"fleetmon/internal/export"
	"fleetmon/internal/logger"
	"fleetmon/internal/metrics"
	"fleetmon/internal/models"
	"fleetmon/internal/predictor"
	"fleetmon/internal/recipients"
	"fleetmon/internal/registry"
	"fleetmon/internal/simulation"
)

// Monitor evaluates the fleet on a fixed interval. A tick that is still
// running when the next fires causes the new tick to be skipped rather
// than queued.
type Monitor struct {
	registry   *registry.Registry
	generator  *simulation.Generator
	scorer     *predictor.Scorer
	dispatcher *dispatch.Service
	store      recipients.Store
	hub        *broadcast.Hub
	exporter   *export.Worker // nil when Kafka is not configured
	alerts     *AlertBook

	interval time.Duration
	now      func() time.Time

	running atomic.Bool

	mu     sync.RWMutex
	states map[string]models.MachineState
}

func New(
	reg *registry.Registry,
	gen *simulation.Generator,
	scorer *predictor.Scorer,
	dispatcher *dispatch.Service,
	store recipients.Store,
	hub *broadcast.Hub,
	exporter *export.Worker,
	alerts *AlertBook,
	interval time.Duration,
) *Monitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Monitor{
		registry:   reg,
		generator:  gen,
		scorer:     scorer,
		dispatcher: dispatcher,
		store:      store,
		hub:        hub,
		exporter:   exporter,
		alerts:     alerts,
		interval:   interval,
		now:        func() time.Time { return time.Now().UTC() },
		states:     make(map[string]models.MachineState),
	}
}

// WithClock overrides the time source, for tests.
func (m *Monitor) WithClock(now func() time.Time) *Monitor {
	m.now = now
	return m
}

// Run blocks until ctx is cancelled, ticking at the configured
// interval. The first tick fires immediately so the state cache is
// populated before the HTTP layer serves its first request.
func (m *Monitor) Run(ctx context.Context) {
	log := logger.WithComponent("monitor")
	log.Info().Dur("interval", m.interval).Msg("monitor loop started")

	m.Tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("monitor loop stopped")
			return
		case <-ticker.C:
			m.Tick(ctx)
		}
	}
}

// Tick evaluates every machine once. Machines are evaluated
// concurrently; a panic in one evaluation is contained to that machine.
// Returns false if a previous tick was still in flight and this one was
// skipped.
func (m *Monitor) Tick(ctx context.Context) bool {
	if !m.running.CompareAndSwap(false, true) {
		metrics.TicksSkipped.Inc()
		logger.WithComponent("monitor").Warn().Msg("previous tick still running, skipping")
		return false
	}
	defer m.running.Store(false)

	start := time.Now()
	metrics.TicksTotal.Inc()

	profiles := m.registry.List()

	var wg sync.WaitGroup
	for _, p := range profiles {
		wg.Add(1)
		go func(p models.MachineProfile) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					metrics.PanicsRecovered.WithLabelValues("monitor").Inc()
					logger.WithMachine(p.MachineID).Error().
						Interface("panic", r).
						Msg("recovered from panic during evaluation")
				}
			}()
			m.evaluate(ctx, p)
		}(p)
	}
	wg.Wait()

	metrics.TickDuration.Observe(time.Since(start).Seconds())
	return true
}

// Evaluate runs a single on-demand evaluation for one machine, outside
// the tick cadence. Used by the live-reading endpoint.
func (m *Monitor) Evaluate(ctx context.Context, machineID string) (models.MachineState, error) {
	p, err := m.registry.Get(machineID)
	if err != nil {
		return models.MachineState{}, err
	}
	return m.evaluate(ctx, p), nil
}

func (m *Monitor) evaluate(ctx context.Context, p models.MachineProfile) models.MachineState {
	now := m.now()

	reading := m.generator.Generate(p, now)
	pred := m.scorer.Score(reading)
	pred.RootCause = predictor.Classify(pred.Status, reading)

	state := models.MachineState{Profile: p, Reading: reading, Prediction: pred}

	m.mu.Lock()
	m.states[p.MachineID] = state
	m.mu.Unlock()

	metrics.EvaluationsTotal.WithLabelValues(string(pred.Status)).Inc()
	metrics.MachineHealth.WithLabelValues(p.MachineID).Set(float64(pred.HealthPercentage))

	update := models.NewEvent(models.EventMachineUpdate, p.MachineID, state)
	m.hub.Publish(update)
	m.hub.Publish(models.NewEvent(models.EventSensorUpdate, p.MachineID, reading))
	if m.exporter != nil {
		m.exporter.Enqueue(update)
	}

	if pred.Status != models.StatusHealthy {
		recip, err := m.store.ListRecipients(ctx, p.MachineID)
		if err != nil {
			logger.WithMachine(p.MachineID).Error().Err(err).
				Msg("failed to load alert recipients")
			recip = nil
		}
		_, alert := m.dispatcher.Dispatch(state, recip, dispatch.Options{})
		if alert != nil {
			m.alerts.Record(alert)
			if m.exporter != nil {
				// Copy: the export worker marshals asynchronously.
				m.exporter.Enqueue(models.NewEvent(models.EventNewAlert, p.MachineID, *alert))
			}
		}
	}

	return state
}

// State returns the most recent evaluation for one machine.
func (m *Monitor) State(machineID string) (models.MachineState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.states[machineID]
	return s, ok
}

// States returns the most recent evaluation for every machine, keyed by
// machine ID.
func (m *Monitor) States() map[string]models.MachineState {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string]models.MachineState, len(m.states))
	for k, v := range m.states {
		out[k] = v
	}
	return out
}

// Alerts exposes the alert book for the HTTP layer.
func (m *Monitor) Alerts() *AlertBook { return m.alerts }
