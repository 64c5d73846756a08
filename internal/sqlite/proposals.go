package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"toolgate/internal/domain/proposal"
	"toolgate/internal/repository"
)

// ProposalStore implements repository.ProposalStore for SQLite
type ProposalStore struct {
	db *DB
}

// NewProposalStore creates a new ProposalStore
func NewProposalStore(db *DB) *ProposalStore {
	return &ProposalStore{db: db}
}

// Put inserts a proposal record. The record's validation result is updated
// with its storage location before marshaling, matching the file backend.
func (s *ProposalStore) Put(ctx context.Context, rec *proposal.Record) (string, error) {
	if rec == nil || rec.ValidationResults.ProposalID == "" {
		return "", fmt.Errorf("%w: missing proposal id", repository.ErrInvalidInput)
	}

	id := rec.ValidationResults.ProposalID
	location := "sqlite:proposals/" + id
	rec.ValidationResults.ProposalPath = location

	data, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("failed to marshal proposal: %w", err)
	}

	query := `
		INSERT INTO proposals (proposal_id, tool_name, layer, timestamp, location, record)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err = s.db.ExecContext(ctx, query,
		id,
		rec.ToolName,
		rec.Layer,
		rec.ValidationResults.Timestamp,
		location,
		string(data),
	)

	if isUniqueViolation(err) {
		return "", repository.ErrConflict
	}
	if err != nil {
		return "", fmt.Errorf("failed to insert proposal: %w", err)
	}

	return location, nil
}

// Get retrieves a proposal record by ID
func (s *ProposalStore) Get(ctx context.Context, proposalID string) (*proposal.Record, error) {
	query := `
		SELECT record
		FROM proposals
		WHERE proposal_id = ?
	`

	var data string
	err := s.db.QueryRowContext(ctx, query, proposalID).Scan(&data)

	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get proposal: %w", err)
	}

	var rec proposal.Record
	if err := json.Unmarshal([]byte(data), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse proposal %s: %w", proposalID, err)
	}

	return &rec, nil
}

// List returns summary info for all proposals, ordered by ID
func (s *ProposalStore) List(ctx context.Context) ([]proposal.Info, error) {
	query := `
		SELECT proposal_id, tool_name, layer, timestamp, location
		FROM proposals
		ORDER BY proposal_id
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	defer rows.Close()

	infos := []proposal.Info{}
	for rows.Next() {
		var info proposal.Info
		err := rows.Scan(
			&info.ProposalID,
			&info.ToolName,
			&info.Layer,
			&info.Timestamp,
			&info.Location,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan proposal info: %w", err)
		}
		infos = append(infos, info)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating proposal rows: %w", err)
	}

	return infos, nil
}
