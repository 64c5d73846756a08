package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection
type DB struct {
	*sql.DB
}

// New creates a new SQLite database connection
func New(dataSourceName string) (*DB, error) {
	db, err := sql.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &DB{db}, nil
}

// RunMigrations runs the migrations directly (for testing)
// In production, migrations should be run via the migrate CLI or embed package
func (db *DB) RunMigrations() error {
	// Read and execute the up migration
	migration := `
-- Validated tool proposals (append-only audit trail). The record column
-- holds the full proposal document as JSON; the indexed columns exist for
-- listing without unmarshaling every row.
CREATE TABLE proposals (
    proposal_id TEXT PRIMARY KEY,
    tool_name TEXT NOT NULL,
    layer TEXT NOT NULL,
    timestamp TEXT NOT NULL,
    location TEXT NOT NULL,
    record TEXT NOT NULL
);
CREATE INDEX idx_proposal_tool ON proposals(tool_name);

-- Registered tool manifests
CREATE TABLE tool_manifests (
    tool_name TEXT PRIMARY KEY,
    layer TEXT NOT NULL,
    description TEXT,
    proposal_id TEXT NOT NULL,
    validation_token TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL
);
CREATE INDEX idx_manifest_layer ON tool_manifests(layer);

-- API keys for authentication
CREATE TABLE api_keys (
    key_hash TEXT PRIMARY KEY,
    principal TEXT NOT NULL,
    created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
    last_used TIMESTAMP,
    description TEXT
);
CREATE INDEX idx_principal_keys ON api_keys(principal);
`

	_, err := db.Exec(migration)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}
