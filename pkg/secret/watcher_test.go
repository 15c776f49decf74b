package secret

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// waitForRotation blocks until a rotation listener fires or the timeout
// elapses.
func waitForRotation(t *testing.T, ch <-chan ReloadResult, timeout time.Duration) ReloadResult {
	t.Helper()
	select {
	case result := <-ch:
		return result
	case <-time.After(timeout):
		t.Fatal("timed out waiting for rotation")
		return ReloadResult{}
	}
}

func TestWatcherTestModeDoesNotInstall(t *testing.T) {
	cache := NewCache(Options{Path: "/mnt/secrets-store/my-secret", TestMode: true})
	w := NewWatcher(cache, nil, nil)

	if err := w.Start(); err != nil {
		t.Fatalf("Start() in test mode returned error: %v", err)
	}
	if cache.WatcherActive() {
		t.Error("watcher active in test mode")
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() of never-started watcher returned error: %v", err)
	}
}

func TestWatcherMissingDirectoryDegrades(t *testing.T) {
	path := filepath.Join(t.TempDir(), "no-such-dir", "my-secret")
	cache := NewCache(Options{Path: path})
	w := NewWatcher(cache, nil, nil)

	if err := w.Start(); err != nil {
		t.Fatalf("Start() with missing directory returned error: %v", err)
	}
	if cache.WatcherActive() {
		t.Error("watcher active despite missing directory")
	}

	// The cache still answers through the fallback path.
	if got := cache.Get(); got != TestPlaceholder {
		t.Errorf("Get() = %q, want %q", got, TestPlaceholder)
	}
}

func TestWatcherStartIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my-secret")
	writeSecret(t, path, "v1")

	cache := NewCache(Options{Path: path})
	w := NewWatcher(cache, nil, nil)
	defer w.Close()

	if err := w.Start(); err != nil {
		t.Fatalf("first Start() returned error: %v", err)
	}
	if !cache.WatcherActive() {
		t.Fatal("watcher not active after Start()")
	}

	if err := w.Start(); err != nil {
		t.Fatalf("second Start() returned error: %v", err)
	}
	if !cache.WatcherActive() {
		t.Error("watcher deactivated by duplicate Start()")
	}
}

func TestWatcherReloadsOnSecretWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my-secret")
	writeSecret(t, path, "v1")

	cache := NewCache(Options{Path: path})
	cache.Get()

	rotations := make(chan ReloadResult, 4)
	cache.OnRotation(func(result ReloadResult) {
		rotations <- result
	})

	w := NewWatcher(cache, &WatcherConfig{DebounceInterval: 20 * time.Millisecond}, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	defer w.Close()

	writeSecret(t, path, "v2")

	result := waitForRotation(t, rotations, 3*time.Second)
	if result.Trigger != TriggerWatcher {
		t.Errorf("rotation trigger = %q, want %q", result.Trigger, TriggerWatcher)
	}
	if result.NewValue != "v2" {
		t.Errorf("rotation new value = %q, want v2", result.NewValue)
	}
}

func TestWatcherDebounceObservesFinalWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my-secret")
	writeSecret(t, path, "v1")

	cache := NewCache(Options{Path: path})
	cache.Get()

	rotations := make(chan ReloadResult, 16)
	cache.OnRotation(func(result ReloadResult) {
		rotations <- result
	})

	w := NewWatcher(cache, &WatcherConfig{DebounceInterval: 100 * time.Millisecond}, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	defer w.Close()

	// Two writes in quick succession, both inside one debounce window. Every
	// fired reload runs after the second write, so only the final value is
	// ever observed.
	writeSecret(t, path, "intermediate")
	writeSecret(t, path, "final")

	result := waitForRotation(t, rotations, 3*time.Second)
	if result.NewValue != "final" {
		t.Errorf("first observed rotation value = %q, want final", result.NewValue)
	}
}

func TestWatcherIgnoresUnrelatedEntries(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my-secret")
	writeSecret(t, path, "v1")

	metrics := newRecordingMetrics()
	cache := NewCache(Options{Path: path, Metrics: metrics})
	w := NewWatcher(cache, &WatcherConfig{DebounceInterval: 10 * time.Millisecond}, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	defer w.Close()

	writeSecret(t, filepath.Join(dir, "unrelated.txt"), "noise")

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if metrics.watchEventCount("ignored") > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("unrelated file event was never classified as ignored")
}

func TestWatcherReloadsOnDataDirSwap(t *testing.T) {
	dir := t.TempDir()

	v1Dir := filepath.Join(dir, "..v1")
	v2Dir := filepath.Join(dir, "..v2")
	for versionDir, value := range map[string]string{v1Dir: "one", v2Dir: "two"} {
		if err := os.Mkdir(versionDir, 0o755); err != nil {
			t.Fatalf("failed to create version dir: %v", err)
		}
		writeSecret(t, filepath.Join(versionDir, "my-secret"), value)
	}

	dataLink := filepath.Join(dir, DataDirEntry)
	if err := os.Symlink(v1Dir, dataLink); err != nil {
		t.Fatalf("failed to create data symlink: %v", err)
	}
	secretPath := filepath.Join(dir, "my-secret")
	if err := os.Symlink(filepath.Join(dataLink, "my-secret"), secretPath); err != nil {
		t.Fatalf("failed to create secret symlink: %v", err)
	}

	cache := NewCache(Options{Path: secretPath})
	cache.Get()

	rotations := make(chan ReloadResult, 4)
	cache.OnRotation(func(result ReloadResult) {
		rotations <- result
	})

	w := NewWatcher(cache, &WatcherConfig{DebounceInterval: 20 * time.Millisecond}, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}
	defer w.Close()

	tmpLink := filepath.Join(dir, "..data_tmp")
	if err := os.Symlink(v2Dir, tmpLink); err != nil {
		t.Fatalf("failed to create replacement symlink: %v", err)
	}
	if err := os.Rename(tmpLink, dataLink); err != nil {
		t.Fatalf("failed to swap data symlink: %v", err)
	}

	result := waitForRotation(t, rotations, 3*time.Second)
	if result.NewValue != "two" {
		t.Errorf("rotation new value = %q, want two", result.NewValue)
	}
	if result.Trigger != TriggerWatcher {
		t.Errorf("rotation trigger = %q, want %q", result.Trigger, TriggerWatcher)
	}
}

func TestWatcherCloseIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "my-secret")
	writeSecret(t, path, "v1")

	cache := NewCache(Options{Path: path})
	w := NewWatcher(cache, nil, nil)
	if err := w.Start(); err != nil {
		t.Fatalf("Start() returned error: %v", err)
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Close() returned error: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close() returned error: %v", err)
	}
}
