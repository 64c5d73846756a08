package sqlite

import (
	"context"
	"testing"

	"toolgate/internal/domain/checklist"
	"toolgate/internal/domain/proposal"
	"toolgate/internal/repository"

	"github.com/stretchr/testify/require"
)

func testRecord(id, tool string) *proposal.Record {
	return &proposal.Record{
		ToolName:               tool,
		Purpose:                "probe the store",
		Layer:                  "personal",
		Dependencies:           []string{"none"},
		ImplementationApproach: "config driven",
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

func TestProposalStore_PutGet(t *testing.T) {
	db := NewTestDB(t)
	store := NewProposalStore(db)
	ctx := context.Background()

	rec := testRecord("2cad9565", "gate_check")
	location, err := store.Put(ctx, rec)
	require.NoError(t, err)
	require.Equal(t, "sqlite:proposals/2cad9565", location)
	require.Equal(t, location, rec.ValidationResults.ProposalPath)

	retrieved, err := store.Get(ctx, "2cad9565")
	require.NoError(t, err)
	require.Equal(t, "gate_check", retrieved.ToolName)
	require.Equal(t, rec.ValidationResults.Token, retrieved.ValidationResults.Token)
	require.Equal(t, location, retrieved.ValidationResults.ProposalPath)
	require.True(t, retrieved.ValidationResults.ChecklistResults[checklist.CheckConfiguration].Pass)

	// Non-existent proposal
	_, err = store.Get(ctx, "nonexistent")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProposalStore_DuplicateID(t *testing.T) {
	db := NewTestDB(t)
	store := NewProposalStore(db)
	ctx := context.Background()

	_, err := store.Put(ctx, testRecord("aaaa1111", "first"))
	require.NoError(t, err)

	_, err = store.Put(ctx, testRecord("aaaa1111", "second"))
	require.ErrorIs(t, err, repository.ErrConflict)
}

func TestProposalStore_List(t *testing.T) {
	db := NewTestDB(t)
	store := NewProposalStore(db)
	ctx := context.Background()

	_, err := store.Put(ctx, testRecord("bbbb2222", "later_tool"))
	require.NoError(t, err)
	_, err = store.Put(ctx, testRecord("aaaa1111", "earlier_tool"))
	require.NoError(t, err)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)
	require.Equal(t, "aaaa1111", infos[0].ProposalID)
	require.Equal(t, "earlier_tool", infos[0].ToolName)
	require.Equal(t, "personal", infos[0].Layer)
	require.Equal(t, "2025-06-01T12:00:00Z", infos[0].Timestamp)
	require.Equal(t, "sqlite:proposals/aaaa1111", infos[0].Location)
	require.Equal(t, "bbbb2222", infos[1].ProposalID)
}

func TestProposalStore_ListEmpty(t *testing.T) {
	db := NewTestDB(t)
	store := NewProposalStore(db)

	infos, err := store.List(context.Background())
	require.NoError(t, err)
	require.Empty(t, infos)
}
