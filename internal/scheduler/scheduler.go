// Package scheduler runs periodic maintenance jobs.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron"
)

// LastCleanupKey is the metadata key holding the time of the last session
// cleanup.
const LastCleanupKey = "last_session_cleanup"

// SessionStore is the storage the maintenance jobs work on.
type SessionStore interface {
	CleanupExpiredSessions(ctx context.Context) (int64, error)
	SetMetadata(ctx context.Context, key, value string) error
}

// Scheduler manages scheduled tasks for the application.
type Scheduler struct {
	scheduler *gocron.Scheduler
	store     SessionStore
	interval  time.Duration
	now       func() time.Time
}

// New creates a scheduler that removes expired login sessions every
// interval.
func New(store SessionStore, interval time.Duration) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		store:     store,
		interval:  interval,
		now:       time.Now,
	}
}

// Start schedules the jobs and runs them in the background. The cleanup job
// also runs once immediately.
func (s *Scheduler) Start() error {
	if s.interval <= 0 {
		return fmt.Errorf("cleanup interval must be positive, got %s", s.interval)
	}
	if _, err := s.scheduler.Every(s.interval).Do(s.cleanup); err != nil {
		return fmt.Errorf("schedule session cleanup: %w", err)
	}
	s.scheduler.StartAsync()
	slog.Info("scheduler started", "cleanup_interval", s.interval)
	return nil
}

// Stop terminates all scheduled tasks.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}

func (s *Scheduler) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := s.RunCleanup(ctx); err != nil {
		slog.Error("session cleanup failed", "error", err)
	}
}

// RunCleanup removes expired sessions now and records when it ran.
func (s *Scheduler) RunCleanup(ctx context.Context) (int64, error) {
	n, err := s.store.CleanupExpiredSessions(ctx)
	if err != nil {
		return 0, fmt.Errorf("cleanup expired sessions: %w", err)
	}
	if err := s.store.SetMetadata(ctx, LastCleanupKey, s.now().UTC().Format(time.RFC3339)); err != nil {
		return n, fmt.Errorf("record cleanup time: %w", err)
	}
	if n > 0 {
		slog.Info("removed expired sessions", "count", n)
	}
	return n, nil
}
