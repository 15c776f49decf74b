package secret

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Scheduler reconciles the cache on a cron schedule. It is the fallback for
// platforms where filesystem change notification is unreliable (overlay
// filesystems, some network mounts): even with no watcher and no traffic,
// the cached triple converges within one schedule interval.
type Scheduler struct {
	cache    *Cache
	schedule string
	cron     *cron.Cron
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a reconciliation scheduler. An empty schedule
// expression disables it.
func NewScheduler(cache *Cache, schedule string, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		cache:    cache,
		schedule: schedule,
		cron:     cron.New(),
		logger:   logger.With("component", "secret.scheduler"),
	}
}

// Start begins scheduled reconciliation based on the cron expression.
//
// Common expressions:
//   - "*/5 * * * *" - every 5 minutes
//   - "0 * * * *"   - hourly
//
// If the schedule is empty, Start does nothing. The scheduler stops when the
// context is cancelled.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule == "" {
		s.logger.Info("reconcile schedule not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(s.schedule); err != nil {
		return fmt.Errorf("invalid reconcile schedule %q: %w", s.schedule, err)
	}

	if _, err := s.cron.AddFunc(s.schedule, s.runReconcile); err != nil {
		return fmt.Errorf("failed to schedule reconciliation: %w", err)
	}

	s.cron.Start()
	s.running = true

	s.logger.Info("reconciliation scheduler started", "schedule", s.schedule)

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// runReconcile executes one scheduled reconciliation cycle.
func (s *Scheduler) runReconcile() {
	result := s.cache.Reload(TriggerSchedule)
	if result.Changed {
		s.logger.Info("scheduled reconciliation observed a rotation")
	} else {
		s.logger.Debug("scheduled reconciliation completed, no change")
	}
}

// Stop stops the scheduler and waits for any running job to complete.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil && s.running {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.running = false
		s.logger.Info("reconciliation scheduler stopped")
	}
}

// IsRunning returns true if the scheduler is running.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// NextRun returns the next scheduled reconciliation time, or nil when the
// scheduler is not running.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Entries survive Stop; a stopped scheduler has no next run.
	if !s.running {
		return nil
	}

	entries := s.cron.Entries()
	if len(entries) == 0 {
		return nil
	}

	next := entries[0].Next
	return &next
}
