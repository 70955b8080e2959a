package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmon_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fleetmon_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Monitor loop metrics
	TicksTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetmon_monitor_ticks_total",
			Help: "Total number of completed monitor ticks",
		},
	)

	TicksSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetmon_monitor_ticks_skipped_total",
			Help: "Ticks skipped because the previous tick was still running",
		},
	)

	TickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetmon_monitor_tick_duration_seconds",
			Help:    "Time taken to evaluate the whole fleet in one tick",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		},
	)

	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmon_evaluations_total",
			Help: "Total number of machine evaluations",
		},
		[]string{"status"}, // healthy, warning, critical
	)

	MachineHealth = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "fleetmon_machine_health_percentage",
			Help: "Last evaluated health percentage per machine",
		},
		[]string{"machine_id"},
	)

	// Dispatch metrics
	DispatchResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmon_dispatch_results_total",
			Help: "Per-recipient dispatch outcomes",
		},
		[]string{"result"}, // sent, skipped, failed
	)

	EmailSendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetmon_email_send_duration_seconds",
			Help:    "Time taken to deliver one alert email",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	CooldownSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetmon_alerts_cooldown_suppressed_total",
			Help: "Alerts suppressed by the dedup cooldown window",
		},
	)

	DedupRecords = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetmon_dedup_records",
			Help: "Number of (machine, recipient) cooldown records held",
		},
	)

	// Broadcast metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetmon_ws_connected_clients",
			Help: "Number of connected websocket clients",
		},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmon_events_published_total",
			Help: "Broadcast events published, by event type",
		},
		[]string{"event"},
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetmon_events_dropped_total",
			Help: "Events dropped because a client send buffer was full",
		},
	)

	// Export metrics
	ExportPublishTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmon_export_publish_total",
			Help: "Events published to the analytics topic",
		},
		[]string{"status"}, // success, failed
	)

	ExportPublishDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fleetmon_export_publish_duration_seconds",
			Help:    "Time taken to publish an export batch",
			Buckets: []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
	)

	ExportPublishRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fleetmon_export_publish_retries_total",
			Help: "Total number of export publish retries",
		},
	)

	ExportQueueSize = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "fleetmon_export_queue_size",
			Help: "Current size of the export queue",
		},
	)

	// Panic recovery
	PanicsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fleetmon_panics_recovered_total",
			Help: "Total number of panics recovered",
		},
		[]string{"component"},
	)
)
