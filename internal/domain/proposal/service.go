// Package proposal validates tool designs against the checklist engine,
// issues tamper-evident tokens for passing designs, and verifies presented
// tokens against the stored audit trail.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"toolgate/internal/domain/checklist"
	"toolgate/internal/repository"

	"github.com/google/uuid"
)

// Service orchestrates checklist evaluation, token issuance, and token
// verification over an injected store.
type Service struct {
	engine *checklist.Engine
	store  Store
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

// Option adjusts service construction.
type Option func(*Service)

// WithClock substitutes the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator substitutes the proposal id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService creates a proposal service.
func NewService(engine *checklist.Engine, store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		engine: engine,
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  func() string { return uuid.NewString()[:8] },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate runs every checklist check against the proposal. A proposal with
// no blocking issues gets a token and is persisted; warnings never block.
func (s *Service) Validate(ctx context.Context, in Input) (*ValidationResult, error) {
	if strings.TrimSpace(in.ToolName) == "" {
		return nil, fmt.Errorf("%w: tool_name is required", ErrInvalidInput)
	}

	report := s.engine.Evaluate(checklist.Proposal{
		ToolName:                  in.ToolName,
		Purpose:                   in.Purpose,
		Layer:                     in.Layer,
		Dependencies:              in.Dependencies,
		RequiresSystemStateChange: in.RequiresSystemStateChange,
		ImplementationApproach:    in.ImplementationApproach,
	})

	res := &ValidationResult{
		Valid:            false,
		ProposalID:       s.newID(),
		ToolName:         in.ToolName,
		Issues:           report.Issues,
		Warnings:         report.Warnings,
		ChecklistResults: report.Results,
		Timestamp:        s.now().UTC().Format(time.RFC3339),
	}

	if len(report.Issues) > 0 {
		s.logger.Info("proposal rejected",
			"tool", in.ToolName, "proposal_id", res.ProposalID, "issues", len(report.Issues))
		return res, nil
	}

	res.Valid = true
	res.Token = FormatToken(res.ProposalID, ComputeDigest(res.ProposalID, in.ToolName, res.Timestamp))

	rec := &Record{
		ToolName:                  in.ToolName,
		Purpose:                   in.Purpose,
		Layer:                     strings.ToLower(in.Layer),
		Dependencies:              in.Dependencies,
		RequiresSystemStateChange: in.RequiresSystemStateChange,
		ImplementationApproach:    in.ImplementationApproach,
		ValidationResults:         *res,
	}

	location, err := s.store.Put(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("storing proposal: %w", err)
	}
	res.ProposalPath = location

	s.logger.Info("proposal validated",
		"tool", in.ToolName, "proposal_id", res.ProposalID, "warnings", len(report.Warnings))
	return res, nil
}

// Verify answers whether a token corresponds to a stored, passing proposal.
// Malformed shape, a missing record, and a digest mismatch each produce a
// distinct Valid=false result; only store failures are errors.
func (s *Service) Verify(ctx context.Context, token string) (*Verification, error) {
	proposalID, ok := ParseToken(token)
	if !ok {
		return &Verification{Valid: false, Message: "invalid token format"}, nil
	}

	rec, err := s.store.Get(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return &Verification{
				Valid:      false,
				ProposalID: proposalID,
				Message:    fmt.Sprintf("no proposal found for id %s", proposalID),
			}, nil
		}
		return nil, fmt.Errorf("loading proposal: %w", err)
	}

	expected := FormatToken(proposalID,
		ComputeDigest(proposalID, rec.ToolName, rec.ValidationResults.Timestamp))
	if token != expected {
		return &Verification{
			Valid:      false,
			ProposalID: proposalID,
			Message:    "token verification failed (tampered or stale)",
		}, nil
	}

	return &Verification{
		Valid:      true,
		ProposalID: proposalID,
		Record:     rec,
		Message:    "token is valid",
	}, nil
}

// Get returns a stored proposal record by id.
func (s *Service) Get(ctx context.Context, proposalID string) (*Record, error) {
	rec, err := s.store.Get(ctx, proposalID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProposalNotFound
		}
		return nil, fmt.Errorf("getting proposal: %w", err)
	}
	return rec, nil
}

// List returns every stored proposal, oldest key first.
func (s *Service) List(ctx context.Context) ([]Info, error) {
	infos, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing proposals: %w", err)
	}
	return infos, nil
}
