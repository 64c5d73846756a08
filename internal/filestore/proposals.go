// Package filestore persists proposal records as flat JSON files, one file
// per proposal named <proposal_id>_<tool_name>.json. It is the default
// storage backend; the sqlite package is the alternative.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"toolgate/internal/domain/proposal"
	"toolgate/internal/repository"
)

// ProposalStore implements repository.ProposalStore on a directory of JSON
// files.
type ProposalStore struct {
	dir string
}

// NewProposalStore creates a file-backed proposal store rooted at dir.
func NewProposalStore(dir string) *ProposalStore {
	return &ProposalStore{dir: dir}
}

// Put writes the record to disk. The record's validation result is updated
// with the storage location before marshaling so the persisted JSON carries
// its own path.
func (s *ProposalStore) Put(ctx context.Context, rec *proposal.Record) (string, error) {
	if rec == nil || rec.ValidationResults.ProposalID == "" {
		return "", fmt.Errorf("%w: missing proposal id", repository.ErrInvalidInput)
	}
	if !safeName(rec.ValidationResults.ProposalID) || !safeName(rec.ToolName) {
		return "", fmt.Errorf("%w: unsafe proposal filename", repository.ErrInvalidInput)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create proposals directory: %w", err)
	}

	path := filepath.Join(s.dir, rec.ValidationResults.ProposalID+"_"+rec.ToolName+".json")
	rec.ValidationResults.ProposalPath = path

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal proposal: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write proposal: %w", err)
	}

	return path, nil
}

// Get loads a record by proposal ID, matching any tool name suffix.
func (s *ProposalStore) Get(ctx context.Context, proposalID string) (*proposal.Record, error) {
	if !safeName(proposalID) {
		return nil, fmt.Errorf("%w: unsafe proposal id", repository.ErrInvalidInput)
	}

	matches, err := filepath.Glob(filepath.Join(s.dir, proposalID+"_*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to search proposals: %w", err)
	}
	if len(matches) == 0 {
		return nil, repository.ErrNotFound
	}

	return readRecord(matches[0])
}

// List returns summary info for every stored proposal, ordered by filename.
func (s *ProposalStore) List(ctx context.Context) ([]proposal.Info, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}

	infos := make([]proposal.Info, 0, len(matches))
	for _, path := range matches {
		rec, err := readRecord(path)
		if err != nil {
			return nil, err
		}
		infos = append(infos, proposal.Info{
			ProposalID: rec.ValidationResults.ProposalID,
			ToolName:   rec.ToolName,
			Layer:      rec.Layer,
			Timestamp:  rec.ValidationResults.Timestamp,
			Location:   path,
		})
	}

	return infos, nil
}

func readRecord(path string) (*proposal.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read proposal: %w", err)
	}

	var rec proposal.Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse proposal %s: %w", filepath.Base(path), err)
	}
	return &rec, nil
}

// safeName rejects values that could escape the store directory or confuse
// the glob lookup.
func safeName(name string) bool {
	if name == "" || strings.Contains(name, "..") {
		return false
	}
	return !strings.ContainsAny(name, `/\*?[`)
}
