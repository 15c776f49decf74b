package secret

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the rotation watcher.
type WatcherConfig struct {
	// DebounceInterval is how long to wait after a qualifying event before
	// reloading, letting the multi-step atomic swap settle (default: 100ms).
	DebounceInterval time.Duration
}

// DefaultWatcherConfig returns the default watcher configuration.
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{
		DebounceInterval: 100 * time.Millisecond,
	}
}

// Watcher observes the secret's parent directory for filesystem events and
// triggers cache reloads when an event plausibly corresponds to a rotation.
//
// Qualifying events are those whose changed entry is the secret's base
// filename or the "..data" indirection entry; everything else in the
// directory is ignored. Each qualifying event independently schedules its
// own debounced reload; events inside one debounce window are not
// coalesced, which is acceptable because reloads are idempotent and cheap.
//
// The watcher is strictly a latency optimization: every failure to install
// or keep the watch degrades to request-time-only reads and is never fatal.
type Watcher struct {
	cache    *Cache
	debounce time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	done    chan struct{}
	started bool
}

// NewWatcher creates a rotation watcher for the given cache.
func NewWatcher(cache *Cache, cfg *WatcherConfig, logger *slog.Logger) *Watcher {
	if cfg == nil {
		cfg = DefaultWatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		cache:    cache,
		debounce: cfg.DebounceInterval,
		logger:   logger.With("component", "secret.watcher"),
	}
}

// Start installs a non-recursive watch on the secret's parent directory and
// begins the event loop.
//
// Start is a no-op (nil error) when a watch is already active, when the
// cache runs in test mode, or when the directory does not exist. A failure
// to install the watch is logged as a warning and also returns nil: the
// cache stays correct through request-time reads, so watch setup failures
// must never take the process down.
func (w *Watcher) Start() error {
	if w.cache.TestMode() {
		w.logger.Info("test mode, filesystem watcher disabled")
		return nil
	}

	if w.cache.WatcherActive() {
		w.logger.Debug("watcher already active, ignoring duplicate setup")
		return nil
	}

	dir := filepath.Dir(w.cache.Path())
	if _, err := os.Stat(dir); err != nil {
		w.logger.Info("secret directory not present, watcher not installed",
			"directory", dir,
		)
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.logger.Warn("failed to create filesystem watcher, falling back to request-time reads",
			"error", err,
		)
		return nil
	}

	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		w.logger.Warn("failed to watch secret directory, falling back to request-time reads",
			"directory", dir,
			"error", err,
		)
		return nil
	}

	w.mu.Lock()
	w.fsw = fsw
	w.done = make(chan struct{})
	w.started = true
	w.mu.Unlock()

	w.cache.SetWatcherActive(true)

	go w.loop()

	w.logger.Info("filesystem watcher started",
		"directory", dir,
		"secret", filepath.Base(w.cache.Path()),
		"debounce_ms", w.debounce.Milliseconds(),
	)

	return nil
}

// loop consumes filesystem events until Close is called.
func (w *Watcher) loop() {
	base := filepath.Base(w.cache.Path())

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			w.handleEvent(event, base)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Keep watching; a transient error does not invalidate the
			// read-through guarantee.
			w.logger.Error("filesystem watcher error", "error", err)
		}
	}
}

// handleEvent filters a single event and schedules a debounced reload for
// qualifying ones.
func (w *Watcher) handleEvent(event fsnotify.Event, base string) {
	// Permission churn alone never signals a rotation.
	if event.Op == fsnotify.Chmod {
		return
	}

	entry := filepath.Base(event.Name)

	var kind string
	switch entry {
	case base:
		kind = "secret"
	case DataDirEntry:
		kind = "data_dir"
	default:
		w.cache.metrics.RecordWatchEvent("ignored")
		return
	}

	w.cache.metrics.RecordWatchEvent(kind)

	w.logger.Debug("rotation signal detected",
		"entry", entry,
		"op", event.Op.String(),
	)

	// One independent delayed reload per event. Abandoned timers at
	// shutdown are harmless: the reload they fire is idempotent.
	time.AfterFunc(w.debounce, func() {
		w.cache.Reload(TriggerWatcher)
	})
}

// Close releases the watch handle. The watcher cannot be restarted; the
// process restarts to change this topology.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.started {
		return nil
	}
	w.started = false
	close(w.done)

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("failed to close filesystem watcher: %w", err)
	}
	return nil
}
