package repository

import (
	"context"

	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"
)

// ProposalStore manages proposal record persistence. Put fills the record's
// validation result with its storage location before writing and returns
// that location.
type ProposalStore interface {
	Put(ctx context.Context, rec *proposal.Record) (string, error)
	Get(ctx context.Context, proposalID string) (*proposal.Record, error)
	List(ctx context.Context) ([]proposal.Info, error)
}

// ManifestStore manages registered tool manifests, keyed by tool name.
// Put returns ErrConflict when the name is already taken.
type ManifestStore interface {
	Put(ctx context.Context, manifest *registry.Manifest) error
	Get(ctx context.Context, toolName string) (*registry.Manifest, error)
	List(ctx context.Context) ([]registry.Manifest, error)
}
