package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(&Config{
		Path:         filepath.Join(t.TempDir(), "rotations.db"),
		MaxOpenConns: 2,
		BusyTimeout:  time.Second,
	})
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestRecordAssignsIDAndTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	got, err := store.Record(ctx, Event{
		Trigger:        "manual",
		OldFingerprint: "aaaaaaaaaaaa",
		NewFingerprint: "bbbbbbbbbbbb",
	})
	if err != nil {
		t.Fatalf("Record() returned error: %v", err)
	}
	if got.ID == "" {
		t.Error("Record() did not assign an ID")
	}
	if got.ObservedAt.IsZero() {
		t.Error("Record() did not assign a timestamp")
	}
}

func TestRecentReturnsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	triggers := []string{"watcher", "manual", "schedule"}
	for i, trigger := range triggers {
		_, err := store.Record(ctx, Event{
			Trigger:        trigger,
			OldFingerprint: "old",
			NewFingerprint: "new",
			ObservedAt:     base.Add(time.Duration(i) * time.Minute),
		})
		if err != nil {
			t.Fatalf("Record() returned error: %v", err)
		}
	}

	events, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent() returned error: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Recent() returned %d events, want 3", len(events))
	}
	if events[0].Trigger != "schedule" || events[2].Trigger != "watcher" {
		t.Errorf("events not ordered newest first: %q, %q, %q",
			events[0].Trigger, events[1].Trigger, events[2].Trigger)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := store.Record(ctx, Event{
			Trigger:        "watcher",
			OldFingerprint: "old",
			NewFingerprint: "new",
			ObservedAt:     time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("Record() returned error: %v", err)
		}
	}

	events, err := store.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent() returned error: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("Recent(2) returned %d events, want 2", len(events))
	}

	// Zero falls back to the default limit and returns everything here.
	all, err := store.Recent(ctx, 0)
	if err != nil {
		t.Fatalf("Recent(0) returned error: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("Recent(0) returned %d events, want 5", len(all))
	}
}

func TestCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	count, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() returned error: %v", err)
	}
	if count != 0 {
		t.Errorf("Count() on empty store = %d, want 0", count)
	}

	if _, err := store.Record(ctx, Event{Trigger: "manual"}); err != nil {
		t.Fatalf("Record() returned error: %v", err)
	}

	count, err = store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() = %d, want 1", count)
	}
}

func TestNewStoreCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeper", "rotations.db")
	store, err := NewStore(&Config{Path: path, MaxOpenConns: 1, BusyTimeout: time.Second})
	if err != nil {
		t.Fatalf("NewStore() with nested path returned error: %v", err)
	}
	defer store.Close()

	if err := store.Ping(context.Background()); err != nil {
		t.Errorf("Ping() returned error: %v", err)
	}
}

func TestStoreReopenPreservesEvents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rotations.db")
	cfg := &Config{Path: path, MaxOpenConns: 1, BusyTimeout: time.Second}

	store, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore() returned error: %v", err)
	}
	if _, err := store.Record(context.Background(), Event{Trigger: "manual"}); err != nil {
		t.Fatalf("Record() returned error: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}

	reopened, err := NewStore(cfg)
	if err != nil {
		t.Fatalf("NewStore() on existing database returned error: %v", err)
	}
	defer reopened.Close()

	count, err := reopened.Count(context.Background())
	if err != nil {
		t.Fatalf("Count() returned error: %v", err)
	}
	if count != 1 {
		t.Errorf("Count() after reopen = %d, want 1", count)
	}
}
