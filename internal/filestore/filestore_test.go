package filestore_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"toolgate/internal/domain/checklist"
	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"
	"toolgate/internal/filestore"
	"toolgate/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord(id, tool string) *proposal.Record {
	return &proposal.Record{
		ToolName:               tool,
		Purpose:                "check gate health",
		Layer:                  "personal",
		Dependencies:           []string{"none"},
		ImplementationApproach: "read configuration from a yaml document",
		ValidationResults: proposal.ValidationResult{
			Valid:      true,
			ProposalID: id,
			ToolName:   tool,
			Issues:     []string{},
			Warnings:   []string{},
			ChecklistResults: map[string]checklist.CheckResult{
				checklist.CheckConfiguration: {Pass: true, Issues: []string{}, Category: "Configuration"},
			},
			Timestamp: "2025-06-01T12:00:00Z",
			Token:     "valid-" + id + "-0123456789abcdef",
		},
	}
}

func TestProposalStore_PutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewProposalStore(t.TempDir())

	rec := sampleRecord("2cad9565", "gate_check")
	location, err := store.Put(ctx, rec)
	require.NoError(t, err)
	assert.Equal(t, "2cad9565_gate_check.json", filepath.Base(location))
	assert.Equal(t, location, rec.ValidationResults.ProposalPath)

	got, err := store.Get(ctx, "2cad9565")
	require.NoError(t, err)
	assert.Equal(t, rec.ToolName, got.ToolName)
	assert.Equal(t, rec.ValidationResults.Token, got.ValidationResults.Token)
	assert.Equal(t, location, got.ValidationResults.ProposalPath)
}

func TestProposalStore_PersistedShape(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewProposalStore(t.TempDir())

	location, err := store.Put(ctx, sampleRecord("aaaa1111", "shape_probe"))
	require.NoError(t, err)

	raw, err := os.ReadFile(location)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Contains(t, doc, "tool_name")
	assert.Contains(t, doc, "purpose")
	assert.Contains(t, doc, "dependencies")

	results, ok := doc["validation_results"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "aaaa1111", results["proposal_id"])
	assert.Contains(t, results, "token")
	assert.Equal(t, location, results["proposal_path"])
	assert.Contains(t, results, "checklist_results")
}

func TestProposalStore_GetUnknown(t *testing.T) {
	store := filestore.NewProposalStore(t.TempDir())
	_, err := store.Get(context.Background(), "deadbeef")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProposalStore_List(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewProposalStore(t.TempDir())

	_, err := store.Put(ctx, sampleRecord("bbbb2222", "later_tool"))
	require.NoError(t, err)
	_, err = store.Put(ctx, sampleRecord("aaaa1111", "earlier_tool"))
	require.NoError(t, err)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	// Filename order is deterministic regardless of write order.
	assert.Equal(t, "aaaa1111", infos[0].ProposalID)
	assert.Equal(t, "earlier_tool", infos[0].ToolName)
	assert.Equal(t, "personal", infos[0].Layer)
	assert.Equal(t, "2025-06-01T12:00:00Z", infos[0].Timestamp)
	assert.NotEmpty(t, infos[0].Location)
	assert.Equal(t, "bbbb2222", infos[1].ProposalID)
}

func TestProposalStore_ListMissingDir(t *testing.T) {
	store := filestore.NewProposalStore(filepath.Join(t.TempDir(), "never-created"))
	infos, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, infos)
}

func TestProposalStore_RejectsUnsafeNames(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewProposalStore(t.TempDir())

	rec := sampleRecord("okid1234", "../breakout")
	_, err := store.Put(ctx, rec)
	require.ErrorIs(t, err, repository.ErrInvalidInput)

	_, err = store.Get(ctx, "../../etc")
	require.ErrorIs(t, err, repository.ErrInvalidInput)
}

func TestManifestStore_PutGet(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewManifestStore(t.TempDir())

	manifest := &registry.Manifest{
		ToolName:    "gate_check",
		Layer:       "personal",
		Description: "checks the gate",
		ProposalID:  "2cad9565",
		TokenPrefix: "valid-2cad9565-0123...",
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, store.Put(ctx, manifest))

	got, err := store.Get(ctx, "gate_check")
	require.NoError(t, err)
	assert.Equal(t, manifest.ToolName, got.ToolName)
	assert.Equal(t, manifest.ProposalID, got.ProposalID)
	assert.True(t, manifest.CreatedAt.Equal(got.CreatedAt))
}

func TestManifestStore_DuplicateConflict(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewManifestStore(t.TempDir())

	manifest := &registry.Manifest{ToolName: "gate_check", Layer: "personal"}
	require.NoError(t, store.Put(ctx, manifest))

	err := store.Put(ctx, &registry.Manifest{ToolName: "gate_check", Layer: "team"})
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestManifestStore_GetUnknown(t *testing.T) {
	store := filestore.NewManifestStore(t.TempDir())
	_, err := store.Get(context.Background(), "ghost_tool")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestManifestStore_List(t *testing.T) {
	ctx := context.Background()
	store := filestore.NewManifestStore(t.TempDir())

	require.NoError(t, store.Put(ctx, &registry.Manifest{ToolName: "beta_tool", Layer: "team"}))
	require.NoError(t, store.Put(ctx, &registry.Manifest{ToolName: "alpha_tool", Layer: "personal"}))

	manifests, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, manifests, 2)
	assert.Equal(t, "alpha_tool", manifests[0].ToolName)
	assert.Equal(t, "beta_tool", manifests[1].ToolName)
}
