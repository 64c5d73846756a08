package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"toolgate/internal/domain/registry"
	"toolgate/internal/repository"
)

// ManifestStore implements repository.ManifestStore for SQLite
type ManifestStore struct {
	db *DB
}

// NewManifestStore creates a new ManifestStore
func NewManifestStore(db *DB) *ManifestStore {
	return &ManifestStore{db: db}
}

// Put inserts a manifest, failing with ErrConflict if the tool name is taken
func (s *ManifestStore) Put(ctx context.Context, manifest *registry.Manifest) error {
	if manifest == nil || manifest.ToolName == "" {
		return fmt.Errorf("%w: missing tool name", repository.ErrInvalidInput)
	}

	query := `
		INSERT INTO tool_manifests (tool_name, layer, description, proposal_id, validation_token, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		manifest.ToolName,
		manifest.Layer,
		manifest.Description,
		manifest.ProposalID,
		manifest.TokenPrefix,
		manifest.CreatedAt,
	)

	if isUniqueViolation(err) {
		return repository.ErrConflict
	}
	if err != nil {
		return fmt.Errorf("failed to insert manifest: %w", err)
	}

	return nil
}

// Get retrieves a manifest by tool name
func (s *ManifestStore) Get(ctx context.Context, toolName string) (*registry.Manifest, error) {
	query := `
		SELECT tool_name, layer, description, proposal_id, validation_token, created_at
		FROM tool_manifests
		WHERE tool_name = ?
	`

	var manifest registry.Manifest
	err := s.db.QueryRowContext(ctx, query, toolName).Scan(
		&manifest.ToolName,
		&manifest.Layer,
		&manifest.Description,
		&manifest.ProposalID,
		&manifest.TokenPrefix,
		&manifest.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manifest: %w", err)
	}

	return &manifest, nil
}

// List returns all manifests ordered by tool name
func (s *ManifestStore) List(ctx context.Context) ([]registry.Manifest, error) {
	query := `
		SELECT tool_name, layer, description, proposal_id, validation_token, created_at
		FROM tool_manifests
		ORDER BY tool_name
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}
	defer rows.Close()

	manifests := []registry.Manifest{}
	for rows.Next() {
		var manifest registry.Manifest
		err := rows.Scan(
			&manifest.ToolName,
			&manifest.Layer,
			&manifest.Description,
			&manifest.ProposalID,
			&manifest.TokenPrefix,
			&manifest.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan manifest: %w", err)
		}
		manifests = append(manifests, manifest)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating manifest rows: %w", err)
	}

	return manifests, nil
}
