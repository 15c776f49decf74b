package secret

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const (
	// TestPlaceholder is returned when the secret backend is absent or the
	// cache runs in test mode. It is a fixed value so local and CI
	// environments behave deterministically without a mounted secret.
	TestPlaceholder = "TEST_SECRET_VALUE"

	// Unavailable is returned when the backend is present but the read
	// failed. The last-known-good triple remains queryable via Info.
	Unavailable = "unavailable"

	// DataDirEntry is the hidden indirection entry the secret-delivery
	// mechanism atomically repoints on rotation.
	DataDirEntry = "..data"
)

// Reload trigger names, recorded in logs, metrics, and the rotation history.
const (
	TriggerManual   = "manual"
	TriggerWatcher  = "watcher"
	TriggerSchedule = "schedule"
)

// readOutcome tags the result of a single source read.
type readOutcome int

const (
	readOK readOutcome = iota
	// readAbsent means the secret root directory does not exist (no secret
	// backend configured) or the cache runs in test mode.
	readAbsent
	// readFailed means the backend is present but the read or stat failed.
	readFailed
)

func (o readOutcome) String() string {
	switch o {
	case readOK:
		return "ok"
	case readAbsent:
		return "absent"
	default:
		return "failed"
	}
}

// Metrics receives cache and watcher instrumentation. A nil Metrics in
// Options disables instrumentation without branching at every call site.
type Metrics interface {
	RecordRead(outcome string, duration time.Duration)
	RecordReload(trigger string, changed bool)
	RecordRotation()
	RecordWatchEvent(entry string)
	SetWatcherActive(active bool)
}

// nopMetrics is used when no collector is injected.
type nopMetrics struct{}

func (nopMetrics) RecordRead(string, time.Duration) {}
func (nopMetrics) RecordReload(string, bool)        {}
func (nopMetrics) RecordRotation()                  {}
func (nopMetrics) RecordWatchEvent(string)          {}
func (nopMetrics) SetWatcherActive(bool)            {}

// RotationListener is notified after a reload that observed a new value.
// Listeners run outside the cache lock and must not call back into Reload.
type RotationListener func(ReloadResult)

// ReloadResult describes the outcome of a single reconciliation.
type ReloadResult struct {
	// Changed reports whether the observed value differs from the value
	// observed by the previous read (plain string comparison, sentinel and
	// placeholder included).
	Changed bool `json:"changed"`

	// OldValue is the value observed before this reload.
	OldValue string `json:"old_value"`

	// NewValue is the value observed by this reload.
	NewValue string `json:"new_value"`

	// Trigger names what initiated the reload: manual, watcher, schedule.
	Trigger string `json:"trigger"`

	// Timestamp is when the reload completed.
	Timestamp time.Time `json:"timestamp"`
}

// Info is the diagnostic snapshot returned for secret-info queries.
type Info struct {
	Value         string     `json:"value"`
	Path          string     `json:"path"`
	RealPath      string     `json:"real_path,omitempty"`
	IsSymlink     bool       `json:"is_symlink"`
	Exists        bool       `json:"exists"`
	FileModTime   *time.Time `json:"file_mod_time,omitempty"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
	WatcherActive bool       `json:"watcher_active"`
}

// ServiceStatus aggregates the flags exposed on the liveness/info surface.
type ServiceStatus struct {
	SecretPath    string     `json:"secret_path"`
	Exists        bool       `json:"exists"`
	TestMode      bool       `json:"test_mode"`
	WatcherActive bool       `json:"watcher_active"`
	LastUpdated   *time.Time `json:"last_updated,omitempty"`
	FileModTime   *time.Time `json:"file_mod_time,omitempty"`
}

// Options configures a Cache.
type Options struct {
	// Path is the mounted secret file.
	Path string

	// TestMode disables the live watcher and resolves read failures to
	// TestPlaceholder instead of Unavailable.
	TestMode bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Metrics defaults to a no-op recorder.
	Metrics Metrics
}

// Cache holds the last successfully read secret value and its metadata.
//
// The cache is the only shared mutable state in the system. Every mutation
// path (the watcher's debounced callback, manual reloads, and the fresh read
// performed by every Get and Info) serializes through the same write lock,
// so the (value, lastUpdated, fileModTime) triple is always replaced as a
// unit and readers never observe a mixed generation.
type Cache struct {
	path     string
	testMode bool
	logger   *slog.Logger
	metrics  Metrics

	mu sync.RWMutex
	// Last-known-good triple; replaced atomically on successful reads only.
	value       string
	hasValue    bool
	lastUpdated time.Time
	fileModTime time.Time
	// observed is the value returned by the most recent read, sentinel and
	// placeholder included. Rotation detection compares consecutive
	// observations, not the triple.
	observed      string
	watcherActive bool

	listenerMu sync.Mutex
	listeners  []RotationListener
}

// NewCache creates a secret cache for the file at opts.Path. No read is
// performed at construction: the first Get, Info, or Reload populates the
// triple.
func NewCache(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	metrics := opts.Metrics
	if metrics == nil {
		metrics = nopMetrics{}
	}

	return &Cache{
		path:     opts.Path,
		testMode: opts.TestMode,
		logger:   logger.With("component", "secret.cache"),
		metrics:  metrics,
		observed: Unavailable,
	}
}

// Path returns the configured secret file path.
func (c *Cache) Path() string {
	return c.path
}

// TestMode reports whether the cache runs in test mode.
func (c *Cache) TestMode() bool {
	return c.testMode
}

// Get returns the current secret value, performing a fresh read of the
// source file. Staleness is bounded only by how promptly rotations are
// reconciled, never by a cache expiry timer.
func (c *Cache) Get() string {
	return c.ReadFromSource()
}

// ReadFromSource reads the secret file and its modification time. On success
// the cached triple is replaced atomically and the trimmed content returned.
// On failure the triple is left untouched and a sentinel is returned:
// TestPlaceholder when no backend is configured (or in test mode),
// Unavailable otherwise.
func (c *Cache) ReadFromSource() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	value, _ := c.readLocked()
	return value
}

// readLocked performs one source read. Callers must hold the write lock.
func (c *Cache) readLocked() (string, readOutcome) {
	start := time.Now()
	value, outcome := c.readOnce()
	c.metrics.RecordRead(outcome.String(), time.Since(start))
	c.observed = value
	return value, outcome
}

// readOnce resolves the read against the error taxonomy: ok, absent, failed.
// Content and mod time come from one open descriptor so an atomic swap
// between the read and the stat cannot mix two generations inside the
// triple.
func (c *Cache) readOnce() (string, readOutcome) {
	f, err := os.Open(c.path)
	if err == nil {
		data, readErr := io.ReadAll(f)
		var info os.FileInfo
		var statErr error
		if readErr == nil {
			info, statErr = f.Stat()
		}
		_ = f.Close()

		if readErr == nil && statErr == nil {
			value := strings.TrimSpace(string(data))
			c.value = value
			c.hasValue = true
			c.lastUpdated = time.Now()
			c.fileModTime = info.ModTime()
			return value, readOK
		}

		err = readErr
		if err == nil {
			err = statErr
		}
	}

	if c.testMode {
		c.logger.Debug("secret read resolved to test placeholder", "path", c.path)
		return TestPlaceholder, readAbsent
	}

	if _, dirErr := os.Stat(filepath.Dir(c.path)); os.IsNotExist(dirErr) {
		// No secret backend mounted at all. Expected in local and dev
		// contexts, so not an error.
		c.logger.Debug("secret root directory absent, using placeholder",
			"path", c.path,
		)
		return TestPlaceholder, readAbsent
	}

	c.logger.Error("failed to read secret file",
		"path", c.path,
		"error", err,
	)
	return Unavailable, readFailed
}

// Reload performs a fresh read and reports whether the observed value
// changed. It is safe to call from any goroutine; reloads are idempotent and
// cheap, so overlapping triggers are acceptable.
func (c *Cache) Reload(trigger string) ReloadResult {
	c.mu.Lock()
	old := c.observed
	value, _ := c.readLocked()
	c.mu.Unlock()

	result := ReloadResult{
		Changed:   value != old,
		OldValue:  old,
		NewValue:  value,
		Trigger:   trigger,
		Timestamp: time.Now(),
	}

	c.metrics.RecordReload(trigger, result.Changed)

	if result.Changed {
		c.metrics.RecordRotation()
		c.logger.Info("secret rotation observed",
			"trigger", trigger,
			"old_fingerprint", Fingerprint(old),
			"new_fingerprint", Fingerprint(value),
		)
		c.notify(result)
	}

	return result
}

// TriggerReload forces a synchronous reconciliation. It exists so operators
// and health tooling can reconcile without waiting for filesystem events.
func (c *Cache) TriggerReload() ReloadResult {
	return c.Reload(TriggerManual)
}

// OnRotation registers a listener invoked whenever a reload observes a new
// value. Register listeners before the watcher or scheduler starts.
func (c *Cache) OnRotation(l RotationListener) {
	c.listenerMu.Lock()
	defer c.listenerMu.Unlock()
	c.listeners = append(c.listeners, l)
}

func (c *Cache) notify(result ReloadResult) {
	c.listenerMu.Lock()
	listeners := make([]RotationListener, len(c.listeners))
	copy(listeners, c.listeners)
	c.listenerMu.Unlock()

	for _, l := range listeners {
		l(result)
	}
}

// Info returns a diagnostic snapshot: the current value (fresh read), the
// symlink-resolved real path, and the cached triple. The read and the triple
// snapshot happen inside one critical section, so the returned value is
// always paired with the metadata of its own generation. It never fails;
// when the secret path does not exist it returns a reduced record with
// Exists=false and the read's sentinel value.
func (c *Cache) Info() Info {
	c.mu.Lock()
	value, _ := c.readLocked()

	info := Info{
		Value: value,
		Path:  c.path,
	}
	if c.hasValue {
		updated := c.lastUpdated
		modified := c.fileModTime
		info.LastUpdated = &updated
		info.FileModTime = &modified
	}
	info.WatcherActive = c.watcherActive
	c.mu.Unlock()

	if st, err := os.Lstat(c.path); err == nil {
		info.Exists = true
		info.IsSymlink = st.Mode()&os.ModeSymlink != 0
		if real, err := filepath.EvalSymlinks(c.path); err == nil {
			info.RealPath = real
		}
	}

	return info
}

// Status returns the aggregate flags for the liveness/info surface.
func (c *Cache) Status() ServiceStatus {
	_, err := os.Stat(c.path)

	c.mu.RLock()
	defer c.mu.RUnlock()

	status := ServiceStatus{
		SecretPath:    c.path,
		Exists:        err == nil,
		TestMode:      c.testMode,
		WatcherActive: c.watcherActive,
	}
	if c.hasValue {
		updated := c.lastUpdated
		modified := c.fileModTime
		status.LastUpdated = &updated
		status.FileModTime = &modified
	}
	return status
}

// SetWatcherActive records the watcher lifecycle state. It is idempotent:
// setting the current state again is a no-op.
func (c *Cache) SetWatcherActive(active bool) {
	c.mu.Lock()
	if c.watcherActive == active {
		c.mu.Unlock()
		return
	}
	c.watcherActive = active
	c.mu.Unlock()

	c.metrics.SetWatcherActive(active)
}

// WatcherActive reports whether a live filesystem watch is installed.
func (c *Cache) WatcherActive() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.watcherActive
}

// Fingerprint returns a short, log-safe identifier for a secret value.
// Raw secret values must never appear in logs or the rotation history.
func Fingerprint(value string) string {
	if value == "" {
		return "empty"
	}
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])[:12]
}
