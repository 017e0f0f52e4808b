package usecase

import (
	"context"
	"log/slog"
	"time"

	"ProductScanner/internal/ports"
)

// Refresher wires the ticker driver with periodic re-extraction of sessions.
type Refresher struct {
	driver   ports.Scheduler
	sessions *Sessions
	logger   *slog.Logger
}

// NewRefresher returns a helper to start/stop the recurring refresh job.
func NewRefresher(driver ports.Scheduler, sessions *Sessions, logger *slog.Logger) *Refresher {
	return &Refresher{driver: driver, sessions: sessions, logger: logger}
}

// Start registers RefreshAll with the provided scheduler.
func (r *Refresher) Start(ctx context.Context) error {
	if r.driver == nil || r.sessions == nil {
		return nil
	}

	job := func(trigger time.Time) {
		refreshed, failed := r.RefreshAll(ctx)
		if r.logger != nil {
			r.logger.Info("refresh finished", "trigger", trigger, "refreshed", refreshed, "failed", failed)
		}
	}

	return r.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (r *Refresher) Stop(ctx context.Context) error {
	if r.driver == nil {
		return nil
	}

	return r.driver.Stop(ctx)
}

// RefreshAll re-extracts every session that has a source URL.
func (r *Refresher) RefreshAll(ctx context.Context) (refreshed, failed int) {
	sessions, err := r.sessions.List(ctx)
	if err != nil {
		if r.logger != nil {
			r.logger.Warn("refresh: list sessions", "error", err)
		}
		return 0, 0
	}

	for _, session := range sessions {
		if ctx.Err() != nil {
			return refreshed, failed
		}
		if session.SourceURL == "" {
			continue
		}
		if _, err := r.sessions.Refresh(ctx, session.ID); err != nil {
			failed++
			if r.logger != nil {
				r.logger.Warn("refresh session", "id", session.ID, "error", err)
			}
			continue
		}
		refreshed++
	}

	return refreshed, failed
}
