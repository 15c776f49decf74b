package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema contains the SQL statements to create the rotation history schema.
const Schema = `
-- Observed secret rotations
CREATE TABLE IF NOT EXISTS rotations (
    id TEXT PRIMARY KEY,

    -- What initiated the reload that observed this rotation
    -- (named reload_trigger because TRIGGER is a reserved word)
    reload_trigger TEXT NOT NULL,

    -- SHA-256 fingerprints, never raw values
    old_fingerprint TEXT NOT NULL,
    new_fingerprint TEXT NOT NULL,

    observed_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_rotations_observed_at ON rotations(observed_at);

-- Schema version tracking
CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY
);
`

// InsertSchemaVersion records the schema version if not already present.
const InsertSchemaVersion = `INSERT OR IGNORE INTO schema_version (version) VALUES (?);`

// GetSchemaVersion reads the highest recorded schema version.
const GetSchemaVersion = `SELECT MAX(version) FROM schema_version;`
