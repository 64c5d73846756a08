package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"toolgate/internal/domain/registry"
	"toolgate/internal/repository"
)

// ManifestStore implements repository.ManifestStore on a directory of JSON
// files keyed by tool name.
type ManifestStore struct {
	dir string
}

// NewManifestStore creates a file-backed manifest store rooted at dir.
func NewManifestStore(dir string) *ManifestStore {
	return &ManifestStore{dir: dir}
}

// Put writes a manifest, failing with ErrConflict if the tool name is taken.
func (s *ManifestStore) Put(ctx context.Context, manifest *registry.Manifest) error {
	if manifest == nil || !safeName(manifest.ToolName) {
		return fmt.Errorf("%w: unsafe tool name", repository.ErrInvalidInput)
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create manifests directory: %w", err)
	}

	path := filepath.Join(s.dir, manifest.ToolName+".json")
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create manifest: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(manifest); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

// Get loads a manifest by tool name.
func (s *ManifestStore) Get(ctx context.Context, toolName string) (*registry.Manifest, error) {
	if !safeName(toolName) {
		return nil, fmt.Errorf("%w: unsafe tool name", repository.ErrInvalidInput)
	}

	data, err := os.ReadFile(filepath.Join(s.dir, toolName+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest registry.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", toolName, err)
	}
	return &manifest, nil
}

// List returns all registered manifests, ordered by filename.
func (s *ManifestStore) List(ctx context.Context) ([]registry.Manifest, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list manifests: %w", err)
	}

	manifests := make([]registry.Manifest, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		var manifest registry.Manifest
		if err := json.Unmarshal(data, &manifest); err != nil {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", filepath.Base(path), err)
		}
		manifests = append(manifests, manifest)
	}

	return manifests, nil
}
