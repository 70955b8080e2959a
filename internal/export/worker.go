package export

import (
	"context"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"fleetmon/internal/logger"
	"fleetmon/internal/metrics"
	"fleetmon/internal/models"
)

// Worker drains the event queue and publishes batches to the analytics
// topic. Enqueueing is non-blocking: when the queue is full the event is
// dropped so the monitor tick never stalls on the export path.
type Worker struct {
	publisher    Publisher
	queue        chan models.Event
	batchSize    int
	batchTimeout time.Duration

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc

	published atomic.Uint64
	dropped   atomic.Uint64
}

// WorkerConfig holds export worker settings.
type WorkerConfig struct {
	Publisher    Publisher
	QueueSize    int
	BatchSize    int
	BatchTimeout time.Duration
}

// NewWorker creates an export worker.
func NewWorker(cfg WorkerConfig) *Worker {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.BatchTimeout <= 0 {
		cfg.BatchTimeout = 100 * time.Millisecond
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		publisher:    cfg.Publisher,
		queue:        make(chan models.Event, cfg.QueueSize),
		batchSize:    cfg.BatchSize,
		batchTimeout: cfg.BatchTimeout,
		ctx:          ctx,
		cancel:       cancel,
	}
}

// Enqueue offers an event to the export queue without blocking.
func (w *Worker) Enqueue(event models.Event) {
	select {
	case w.queue <- event:
		metrics.ExportQueueSize.Set(float64(len(w.queue)))
	default:
		w.dropped.Add(1)
	}
}

// Start begins the publish loop.
func (w *Worker) Start() {
	log := logger.WithComponent("export_worker")
	log.Info().
		Int("batch_size", w.batchSize).
		Dur("batch_timeout", w.batchTimeout).
		Msg("starting export worker")

	w.wg.Add(1)
	go w.run()
}

// Stop flushes the pending batch and stops the loop.
func (w *Worker) Stop() {
	w.cancel()
	w.wg.Wait()
	logger.WithComponent("export_worker").Info().
		Uint64("published", w.published.Load()).
		Uint64("dropped", w.dropped.Load()).
		Msg("export worker stopped")
}

func (w *Worker) run() {
	defer w.wg.Done()

	log := logger.WithComponent("export_worker")

	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("export worker panic recovered")
			metrics.PanicsRecovered.WithLabelValues("export_worker").Inc()
		}
	}()

	batch := make([]models.Event, 0, w.batchSize)
	timer := time.NewTimer(w.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.flush(batch)
			return

		case event := <-w.queue:
			batch = append(batch, event)
			if len(batch) >= w.batchSize {
				w.flush(batch)
				batch = batch[:0]
				timer.Reset(w.batchTimeout)
			}

		case <-timer.C:
			if len(batch) > 0 {
				w.flush(batch)
				batch = batch[:0]
			}
			timer.Reset(w.batchTimeout)
		}
	}
}

func (w *Worker) flush(batch []models.Event) {
	if len(batch) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := w.publisher.PublishBatch(ctx, batch); err != nil {
		logger.WithComponent("export_worker").Error().
			Err(err).
			Int("batch_size", len(batch)).
			Msg("failed to publish export batch")
		return
	}

	w.published.Add(uint64(len(batch)))
	metrics.ExportQueueSize.Set(float64(len(w.queue)))
}

// Stats returns the worker counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		Published: w.published.Load(),
		Dropped:   w.dropped.Load(),
	}
}

// WorkerStats holds worker counters.
type WorkerStats struct {
	Published uint64
	Dropped   uint64
}
