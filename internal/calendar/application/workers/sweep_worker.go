// Package workers hosts the background jobs of the calendar context.
package workers

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/lektora/lektora/internal/calendar/application"
	"github.com/lektora/lektora/pkg/observability"
)

// DefaultSweepInterval is the default pause between reconciliation sweeps.
const DefaultSweepInterval = 10 * time.Minute

// SweepWorkerConfig configures the reconciliation sweep.
type SweepWorkerConfig struct {
	Interval time.Duration
}

// DefaultSweepWorkerConfig returns the default configuration.
func DefaultSweepWorkerConfig() SweepWorkerConfig {
	return SweepWorkerConfig{Interval: DefaultSweepInterval}
}

// SweepWorker periodically reconciles every instructor's bookings against the
// external calendar, catching silent drift before anyone looks at a lesson.
type SweepWorker struct {
	reconciler *application.Reconciler
	config     SweepWorkerConfig
	logger     *slog.Logger
	metrics    observability.Metrics
	running    atomic.Bool
	stopCh     chan struct{}
}

// NewSweepWorker creates a sweep worker.
func NewSweepWorker(reconciler *application.Reconciler, config SweepWorkerConfig, logger *slog.Logger) *SweepWorker {
	if logger == nil {
		logger = slog.Default()
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSweepInterval
	}
	return &SweepWorker{
		reconciler: reconciler,
		config:     config,
		logger:     logger,
		metrics:    observability.NoopMetrics{},
		stopCh:     make(chan struct{}),
	}
}

// WithMetrics replaces the no-op metrics collector.
func (w *SweepWorker) WithMetrics(metrics observability.Metrics) *SweepWorker {
	if metrics != nil {
		w.metrics = metrics
	}
	return w
}

// Run starts the worker and blocks until the context is cancelled or Stop()
// is called. The first sweep runs immediately.
func (w *SweepWorker) Run(ctx context.Context) error {
	w.running.Store(true)
	w.logger.Info("reconciliation sweep worker started",
		"interval", w.config.Interval,
	)

	w.runSweep(ctx)

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.running.Store(false)
			w.logger.Info("reconciliation sweep worker stopped (context cancelled)")
			return ctx.Err()
		case <-w.stopCh:
			w.running.Store(false)
			w.logger.Info("reconciliation sweep worker stopped (stop signal)")
			return nil
		case <-ticker.C:
			w.runSweep(ctx)
		}
	}
}

// Stop signals the worker to stop gracefully.
func (w *SweepWorker) Stop() {
	if w.running.Load() {
		close(w.stopCh)
	}
}

// IsRunning reports whether the worker loop is active.
func (w *SweepWorker) IsRunning() bool {
	return w.running.Load()
}

func (w *SweepWorker) runSweep(ctx context.Context) {
	w.logger.Debug("starting reconciliation sweep")
	w.metrics.Counter(observability.MetricReconcileSweeps, 1)

	timer := observability.StartTimer("reconcile_sweep").WithMetrics(w.metrics)
	err := w.reconciler.ReconcileAll(ctx)
	duration := timer.StopWithError(err)

	if err != nil {
		w.logger.Error("reconciliation sweep failed", "error", err)
		return
	}
	w.logger.Debug("reconciliation sweep completed",
		"duration_ms", duration.Milliseconds(),
	)
}
