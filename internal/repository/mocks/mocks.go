package mocks

import (
	"context"

	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"

	"github.com/stretchr/testify/mock"
)

// ProposalStore is a mock for repository.ProposalStore.
type ProposalStore struct {
	mock.Mock
}

func (m *ProposalStore) Put(ctx context.Context, rec *proposal.Record) (string, error) {
	args := m.Called(ctx, rec)
	return args.String(0), args.Error(1)
}

func (m *ProposalStore) Get(ctx context.Context, proposalID string) (*proposal.Record, error) {
	args := m.Called(ctx, proposalID)
	if rec, ok := args.Get(0).(*proposal.Record); ok {
		return rec, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ProposalStore) List(ctx context.Context) ([]proposal.Info, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]proposal.Info); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}

// ManifestStore is a mock for repository.ManifestStore.
type ManifestStore struct {
	mock.Mock
}

func (m *ManifestStore) Put(ctx context.Context, manifest *registry.Manifest) error {
	args := m.Called(ctx, manifest)
	return args.Error(0)
}

func (m *ManifestStore) Get(ctx context.Context, toolName string) (*registry.Manifest, error) {
	args := m.Called(ctx, toolName)
	if manifest, ok := args.Get(0).(*registry.Manifest); ok {
		return manifest, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ManifestStore) List(ctx context.Context) ([]registry.Manifest, error) {
	args := m.Called(ctx)
	if list, ok := args.Get(0).([]registry.Manifest); ok {
		return list, args.Error(1)
	}
	return nil, args.Error(1)
}
