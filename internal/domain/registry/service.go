// Package registry gates tool registration behind the design-validation
// token. Register is the enforcement boundary: nothing enters the manifest
// store without a verified token bound to a matching proposal.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"toolgate/internal/repository"
)

// Service handles manifest registration and listing.
type Service struct {
	store    Store
	verifier TokenVerifier
	notes    NoteRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// Option adjusts service construction.
type Option func(*Service)

// WithClock substitutes the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithNoteRecorder attaches a session journal for registration entries.
func WithNoteRecorder(notes NoteRecorder) Option {
	return func(s *Service) { s.notes = notes }
}

// NewService creates a registry service.
func NewService(store Store, verifier TokenVerifier, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		verifier: verifier,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register verifies the token, checks that it is bound to the tool being
// registered, and persists the manifest. Every rejection path is a normal
// result; only store and verifier failures are errors.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if strings.TrimSpace(req.ToolName) == "" {
		return nil, fmt.Errorf("%w: tool_name is required", ErrInvalidInput)
	}

	verification, err := s.verifier.Verify(ctx, req.Token)
	if err != nil {
		return nil, fmt.Errorf("verifying token: %w", err)
	}

	if !verification.Valid {
		return &RegisterResult{
			Success:            false,
			ToolName:           req.ToolName,
			ValidationVerified: false,
			Message:            "invalid validation token; propose the tool design first",
			NextSteps: []string{
				"Call propose_tool_design with the tool design",
				"Fix any blocking issues it reports",
				"Retry registration with the returned token",
			},
		}, nil
	}

	bound := verification.Record.ToolName
	if bound != req.ToolName {
		return &RegisterResult{
			Success:            false,
			ToolName:           req.ToolName,
			ValidationVerified: false,
			Message: fmt.Sprintf(
				"tool name mismatch: token is for %q but registering %q", bound, req.ToolName),
		}, nil
	}

	manifest := &Manifest{
		ToolName:    req.ToolName,
		Layer:       verification.Record.Layer,
		Description: req.Description,
		ProposalID:  verification.ProposalID,
		TokenPrefix: truncateToken(req.Token),
		CreatedAt:   s.now().UTC(),
	}

	if err := s.store.Put(ctx, manifest); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return &RegisterResult{
				Success:            false,
				ToolName:           req.ToolName,
				ValidationVerified: true,
				Message:            fmt.Sprintf("tool %q is already registered", req.ToolName),
			}, nil
		}
		return nil, fmt.Errorf("storing manifest: %w", err)
	}

	if s.notes != nil {
		_ = s.notes.Record(ctx, "Progress", fmt.Sprintf(
			"Registered tool %q with enforced validation (proposal %s)",
			req.ToolName, verification.ProposalID))
	}

	s.logger.Info("tool registered",
		"tool", req.ToolName, "layer", manifest.Layer, "proposal_id", manifest.ProposalID)

	return &RegisterResult{
		Success:            true,
		ToolName:           req.ToolName,
		ValidationVerified: true,
		Manifest:           manifest,
		NextSteps: []string{
			fmt.Sprintf("Implement the %q handler and wire it into the server", req.ToolName),
			"Include the validation token in the implementation commit message",
		},
		Message: fmt.Sprintf("tool %q registered with enforced validation", req.ToolName),
	}, nil
}

// Get returns the manifest for a registered tool.
func (s *Service) Get(ctx context.Context, toolName string) (*Manifest, error) {
	m, err := s.store.Get(ctx, toolName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrManifestNotFound
		}
		return nil, fmt.Errorf("getting manifest: %w", err)
	}
	return m, nil
}

// List returns all registered manifests.
func (s *Service) List(ctx context.Context) ([]Manifest, error) {
	manifests, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing manifests: %w", err)
	}
	return manifests, nil
}

func truncateToken(token string) string {
	const keep = 20
	if len(token) <= keep {
		return token
	}
	return token[:keep] + "..."
}
