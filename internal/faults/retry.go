package faults

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy is attached per operation class, not per call.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Exponential bool
}

// DefaultPolicy retries three times with exponential backoff from one second,
// capped at ten.
var DefaultPolicy = RetryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Second,
	MaxDelay:    10 * time.Second,
	Exponential: true,
}

// Delay returns the back-off before retrying after the given 1-based failed
// attempt: min(base * 2^(attempt-1), max) when exponential, base otherwise.
func (p RetryPolicy) Delay(attempt int) time.Duration {
	if !p.Exponential {
		return p.BaseDelay
	}
	if attempt < 1 {
		attempt = 1
	}
	d := p.BaseDelay * time.Duration(1<<(attempt-1))
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Handler records failures in a Log and drives retries. It is constructed
// explicitly and injected wherever failures are handled; there is no global
// instance.
type Handler struct {
	log    *Log
	logger *slog.Logger

	// sleep is swapped by tests to capture the back-off schedule.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewHandler creates a handler recording into log.
func NewHandler(log *Log, logger *slog.Logger) *Handler {
	if log == nil {
		log = NewLog(DefaultLogCapacity)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		log:    log,
		logger: logger,
		sleep:  sleepCtx,
	}
}

// Log exposes the underlying fault log for queries.
func (h *Handler) Log() *Log { return h.log }

// Report classifies and records a failure, returning the entry.
func (h *Handler) Report(err error, origin Origin, details map[string]any) *Entry {
	entry := NewEntry(err, origin, details)
	h.log.Record(entry)
	h.logger.Error("fault recorded",
		"id", entry.ID,
		"category", entry.Category,
		"severity", entry.Severity,
		"component", origin.Component,
		"operation", origin.Operation,
		"error", err)
	return entry
}

// Do invokes op, retrying per policy while the failure is retryable and
// attempts remain. Every failure is recorded. On exhaustion or a
// non-retryable failure the original error from op is returned, never a
// wrapped one.
func (h *Handler) Do(ctx context.Context, origin Origin, policy RetryPolicy, op func() error) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err

		entry := NewEntry(err, origin, nil)
		entry.RetryCount = attempt - 1
		entry.MaxRetries = policy.MaxAttempts - 1
		h.log.Record(entry)

		if !entry.Retryable || attempt == policy.MaxAttempts {
			h.logger.Error("operation failed",
				"component", origin.Component,
				"operation", origin.Operation,
				"attempt", attempt,
				"retryable", entry.Retryable,
				"error", err)
			return lastErr
		}

		delay := policy.Delay(attempt)
		h.logger.Warn("operation failed, retrying",
			"component", origin.Component,
			"operation", origin.Operation,
			"attempt", attempt,
			"delay", delay,
			"error", err)
		if !h.sleep(ctx, delay) {
			// Back-off abandoned; the caller still gets the op's error.
			return lastErr
		}
	}
	return lastErr
}

// sleepCtx waits for d unless ctx ends first. Returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
