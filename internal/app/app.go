// Package app wires the monitor service together and owns its
// lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"fleetmon/internal/broadcast"
	"fleetmon/internal/config"
	"fleetmon/internal/dedup"
	"fleetmon/internal/dispatch"
	"fleetmon/internal/export"
	"fleetmon/internal/handlers"
	"fleetmon/internal/logger"
	"fleetmon/internal/mailer"
	"fleetmon/internal/middleware"
	"fleetmon/internal/monitor"
	"fleetmon/internal/predictor"
	"fleetmon/internal/recipients"
	"fleetmon/internal/registry"
	"fleetmon/internal/simulation"
)

// App is the high-level coordinator for the monitor service.
type App struct {
	cfg *config.Config

	registry   *registry.Registry
	hub        *broadcast.Hub
	dedup      *dedup.Deduplicator
	store      recipients.Store
	producer   *export.Producer // nil when Kafka is disabled
	exporter   *export.Worker   // nil when Kafka is disabled
	monitor    *monitor.Monitor
	httpServer *http.Server

	wg sync.WaitGroup
}

// New constructs an App with the given config.
func New(cfg *config.Config) *App {
	return &App{cfg: cfg}
}

// Run starts background goroutines and blocks until the context is
// cancelled.
func (a *App) Run(ctx context.Context) error {
	log := logger.WithComponent("app")
	log.Info().Msg("monitor service starting")

	reg, err := registry.New(a.cfg.FleetFile)
	if err != nil {
		return fmt.Errorf("load fleet: %w", err)
	}
	a.registry = reg
	log.Info().Int("machines", reg.Len()).Msg("fleet loaded")

	a.hub = broadcast.NewHub()
	a.dedup = dedup.New(a.cfg.Monitor.AlertCooldown)
	a.dedup.StartSweeper(ctx)

	if err := a.initStore(ctx); err != nil {
		return err
	}
	defer a.store.Close()

	if err := a.initExport(); err != nil {
		return err
	}
	if a.exporter != nil {
		a.exporter.Start()
	}

	var sender mailer.Sender
	if a.cfg.SMTP.Enabled() {
		s, err := mailer.NewSMTPSender(a.cfg.SMTP)
		if err != nil {
			return fmt.Errorf("init mailer: %w", err)
		}
		sender = s
		log.Info().Str("host", a.cfg.SMTP.Host).Msg("email delivery enabled")
	} else {
		log.Warn().Msg("SMTP not configured, alerts are broadcast-only")
	}

	dispatcher := dispatch.New(a.dedup, sender, a.hub, a.cfg.Monitor.SendWorkers)

	clock := simulation.NewClock()
	gen := simulation.NewGenerator(clock, simulation.NewNoise(time.Now().UnixNano()))
	scorer := predictor.NewScorer(simulation.NewNoise(time.Now().UnixNano() + 1))

	a.monitor = monitor.New(
		reg, gen, scorer, dispatcher, a.store, a.hub, a.exporter,
		monitor.NewAlertBook(), a.cfg.Monitor.TickInterval,
	)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.monitor.Run(ctx)
	}()

	a.initHTTPServer(gen, scorer, dispatcher)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		log.Info().Str("addr", a.cfg.ListenAddr).Msg("starting HTTP server")
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("HTTP server error")
		}
	}()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.reportStats(ctx)
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	return a.shutdown()
}

// initStore picks the Redis-backed recipient store when configured, and
// the in-memory one otherwise.
func (a *App) initStore(ctx context.Context) error {
	log := logger.WithComponent("app")
	if a.cfg.Redis.Addr == "" {
		a.store = recipients.NewMemoryStore()
		log.Info().Msg("using in-memory subscription store")
		return nil
	}

	store, err := recipients.NewRedisStore(a.cfg.Redis)
	if err != nil {
		log.Error().Err(err).Str("addr", a.cfg.Redis.Addr).
			Msg("redis unavailable, falling back to in-memory subscription store")
		a.store = recipients.NewMemoryStore()
		return nil
	}
	a.store = store
	log.Info().Str("addr", a.cfg.Redis.Addr).Msg("using redis subscription store")
	return nil
}

// initExport sets up the Kafka analytics export when brokers are
// configured.
func (a *App) initExport() error {
	if !a.cfg.Kafka.Enabled() {
		logger.WithComponent("app").Info().Msg("kafka export disabled")
		return nil
	}

	producer, err := export.NewProducer(a.cfg.Kafka)
	if err != nil {
		return fmt.Errorf("init kafka producer: %w", err)
	}
	a.producer = producer
	a.exporter = export.NewWorker(export.WorkerConfig{
		Publisher:    producer,
		BatchSize:    a.cfg.Kafka.BatchSize,
		BatchTimeout: a.cfg.Kafka.BatchTimeout,
	})

	logger.WithComponent("app").Info().
		Strs("brokers", a.cfg.Kafka.Brokers).
		Str("topic", a.cfg.Kafka.Topic).
		Msg("kafka export initialized")
	return nil
}

func (a *App) initHTTPServer(gen *simulation.Generator, scorer *predictor.Scorer, dispatcher *dispatch.Service) {
	h := handlers.New(a.registry, a.monitor, gen, scorer, dispatcher, a.store, a.hub)

	r := mux.NewRouter()
	h.Routes(r)
	r.HandleFunc("/health", a.healthHandler)
	r.HandleFunc("/stats", a.statsHandler)
	r.Handle("/metrics", promhttp.Handler())

	a.httpServer = &http.Server{
		Addr:         a.cfg.ListenAddr,
		Handler:      middleware.Chain(r, middleware.Recovery, middleware.Logging),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// shutdown stops components in dependency order.
func (a *App) shutdown() error {
	log := logger.WithComponent("app")
	log.Info().Msg("initiating graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info().Msg("stopping HTTP server")
	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	if a.exporter != nil {
		done := make(chan struct{})
		go func() {
			a.exporter.Stop()
			close(done)
		}()
		select {
		case <-done:
			log.Info().Msg("export worker stopped gracefully")
		case <-time.After(15 * time.Second):
			log.Warn().Msg("export worker shutdown timeout")
		}
	}

	if a.producer != nil {
		log.Info().Msg("closing kafka producer")
		if err := a.producer.Close(); err != nil {
			log.Error().Err(err).Msg("producer close error")
		}
	}

	a.wg.Wait()

	log.Info().Msg("monitor service stopped gracefully")
	return nil
}

// reportStats periodically logs operational counters.
func (a *App) reportStats(ctx context.Context) {
	log := logger.WithComponent("app")
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ev := log.Info().
				Int("machines", a.registry.Len()).
				Int("ws_clients", a.hub.ClientCount()).
				Int("cooldown_records", a.dedup.Len())
			if a.exporter != nil {
				stats := a.exporter.Stats()
				ev = ev.
					Uint64("export_published", stats.Published).
					Uint64("export_dropped", stats.Dropped)
			}
			ev.Msg("stats")
		}
	}
}

func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339))
}

func (a *App) statsHandler(w http.ResponseWriter, r *http.Request) {
	var published, dropped uint64
	if a.exporter != nil {
		stats := a.exporter.Stats()
		published, dropped = stats.Published, stats.Dropped
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{
		"machines": %d,
		"ws_clients": %d,
		"cooldown_records": %d,
		"export": {
			"published": %d,
			"dropped": %d
		}
	}`,
		a.registry.Len(),
		a.hub.ClientCount(),
		a.dedup.Len(),
		published,
		dropped,
	)
}
