package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // SQLite driver
)

// Config contains configuration for the rotation history store.
type Config struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections.
	// Default: 4
	MaxOpenConns int

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultConfig returns the default history store configuration.
func DefaultConfig() *Config {
	return &Config{
		Path:         "data/rotations.db",
		MaxOpenConns: 4,
		BusyTimeout:  5 * time.Second,
	}
}

// Event is one observed rotation.
type Event struct {
	// ID is a UUID assigned when the event is recorded.
	ID string `json:"id"`

	// Trigger names what initiated the reload: manual, watcher, schedule.
	Trigger string `json:"trigger"`

	// OldFingerprint and NewFingerprint identify the values without
	// exposing them.
	OldFingerprint string `json:"old_fingerprint"`
	NewFingerprint string `json:"new_fingerprint"`

	// ObservedAt is when the rotation was observed.
	ObservedAt time.Time `json:"observed_at"`
}

// Store persists rotation events in SQLite.
type Store struct {
	db     *sql.DB
	config *Config
	logger *slog.Logger
}

// NewStore opens (creating if necessary) the rotation history database,
// enables WAL mode, and initializes the schema.
func NewStore(config *Config) (*Store, error) {
	if config == nil {
		config = DefaultConfig()
	}

	logger := slog.Default().With("component", "history.store")

	if dir := filepath.Dir(config.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", config.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &Store{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("rotation history store initialized",
		"path", config.Path,
		"max_open_conns", config.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the schema and pragmas.
func (s *Store) initialize() error {
	if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return fmt.Errorf("failed to record schema version: %w", err)
	}

	var version int
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}
	if version != SchemaVersion {
		return fmt.Errorf("schema version mismatch: expected %d, got %d", SchemaVersion, version)
	}

	return nil
}

// Record persists one rotation event. The event's ID and ObservedAt are
// assigned here when unset.
func (s *Store) Record(ctx context.Context, event Event) (Event, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.ObservedAt.IsZero() {
		event.ObservedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO rotations (id, reload_trigger, old_fingerprint, new_fingerprint, observed_at)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID, event.Trigger, event.OldFingerprint, event.NewFingerprint, event.ObservedAt,
	)
	if err != nil {
		return Event{}, fmt.Errorf("failed to record rotation: %w", err)
	}

	return event, nil
}

// Recent returns the most recent rotation events, newest first. A limit of
// zero or less defaults to 50.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}

	const query = `
		SELECT id, reload_trigger, old_fingerprint, new_fingerprint, observed_at
		FROM rotations
		ORDER BY observed_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query rotations: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Trigger, &ev.OldFingerprint, &ev.NewFingerprint, &ev.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan rotation: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate rotations: %w", err)
	}

	return events, nil
}

// Count returns the total number of recorded rotations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM rotations").Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rotations: %w", err)
	}
	return count, nil
}

// Ping verifies the database is reachable. Used by the readiness check.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the database connection.
func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close history database: %w", err)
	}
	s.logger.Info("rotation history store closed")
	return nil
}
