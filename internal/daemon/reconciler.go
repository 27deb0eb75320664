package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/1broseidon/deskmate/internal/windowing"
)

// ReconcilerConfig holds configuration for the reconciler.
type ReconcilerConfig struct {
	Interval time.Duration
	Logger   *slog.Logger
}

// Reconciler periodically checks the window registry for drift and corrects
// it. A native window can vanish without a destroy event reaching the daemon
// (display server restart, external kill); pruning keeps the registry's
// absent-after-close contract honest.
type Reconciler struct {
	interval time.Duration
	registry *windowing.Registry
	logger   *slog.Logger
}

// NewReconciler creates a new reconciler over the given registry.
func NewReconciler(cfg ReconcilerConfig, registry *windowing.Registry) *Reconciler {
	interval := cfg.Interval
	if interval <= 0 {
		interval = 10 * time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Reconciler{
		interval: interval,
		registry: registry,
		logger:   logger,
	}
}

// Run starts the reconciliation loop. Blocks until context is cancelled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.reconcile()
		}
	}
}

// reconcile performs a single reconciliation pass.
func (r *Reconciler) reconcile() {
	// Recover from panics to prevent crashing the daemon
	defer func() {
		if err := recover(); err != nil {
			r.logger.Error("reconciler panic recovered", "error", err)
		}
	}()

	dropped := r.registry.Prune()
	for _, name := range dropped {
		r.logger.Info("reconciler: dropped vanished window", "window", name)
	}
}

// ReconcileNow triggers an immediate reconciliation pass.
func (r *Reconciler) ReconcileNow() {
	r.reconcile()
}
