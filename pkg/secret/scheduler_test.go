package secret

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSchedulerEmptyScheduleIsNoop(t *testing.T) {
	cache := NewCache(Options{Path: filepath.Join(t.TempDir(), "my-secret")})
	s := NewScheduler(cache, "", nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() with empty schedule returned error: %v", err)
	}
	if s.IsRunning() {
		t.Error("scheduler running with empty schedule")
	}
	if s.NextRun() != nil {
		t.Error("NextRun() non-nil with empty schedule")
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	cache := NewCache(Options{Path: filepath.Join(t.TempDir(), "my-secret")})
	s := NewScheduler(cache, "not a cron expression", nil)

	if err := s.Start(context.Background()); err == nil {
		t.Fatal("Start() accepted an invalid cron expression")
	}
	if s.IsRunning() {
		t.Error("scheduler running after failed Start()")
	}
}

func TestSchedulerStartAndStop(t *testing.T) {
	cache := NewCache(Options{Path: filepath.Join(t.TempDir(), "my-secret")})
	s := NewScheduler(cache, "*/5 * * * *", nil)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	if !s.IsRunning() {
		t.Fatal("scheduler not running after Start()")
	}

	next := s.NextRun()
	if next == nil {
		t.Fatal("NextRun() = nil while running")
	}
	if !next.After(time.Now()) {
		t.Errorf("NextRun() = %v, want a future time", next)
	}

	s.Stop()
	if s.IsRunning() {
		t.Error("scheduler still running after Stop()")
	}
	if s.NextRun() != nil {
		t.Error("NextRun() non-nil after Stop()")
	}
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	cache := NewCache(Options{Path: filepath.Join(t.TempDir(), "my-secret")})
	s := NewScheduler(cache, "*/5 * * * *", nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !s.IsRunning() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("scheduler did not stop after context cancellation")
}
