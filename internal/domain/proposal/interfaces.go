package proposal

import "context"

// Store persists validated proposal records, keyed by proposal id. Put fills
// the record's validation_results.proposal_path with the storage location
// before writing and returns that location.
type Store interface {
	Put(ctx context.Context, rec *Record) (string, error)
	Get(ctx context.Context, proposalID string) (*Record, error)
	List(ctx context.Context) ([]Info, error)
}
