package registry

import (
	"context"

	"toolgate/internal/domain/proposal"
)

// Store persists tool manifests keyed by tool name.
type Store interface {
	Put(ctx context.Context, m *Manifest) error
	Get(ctx context.Context, toolName string) (*Manifest, error)
	List(ctx context.Context) ([]Manifest, error)
}

// TokenVerifier checks a validation token against the proposal audit trail.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*proposal.Verification, error)
}

// NoteRecorder appends an entry to the current session journal.
type NoteRecorder interface {
	Record(ctx context.Context, section, content string) error
}
