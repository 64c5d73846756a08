package mcp

import (
	"errors"
	"fmt"

	"toolgate/internal/domain/proposal"
	"toolgate/internal/domain/registry"
	"toolgate/internal/domain/session"
	"toolgate/internal/repository"
)

// APIError represents an MCP error response.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	Details      any    `json:"details,omitempty"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// ErrorPayload exposes the full error for the JSON-RPC error data field.
func (e *APIError) ErrorPayload() any {
	return e
}

// MapError maps domain errors to MCP error codes.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, proposal.ErrProposalNotFound):
		return &APIError{Code: "PROPOSAL_NOT_FOUND", Message: "proposal not found", RecoveryHint: "Run propose_tool_design first"}
	case errors.Is(err, proposal.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid proposal input", RecoveryHint: "Check tool_name and purpose"}
	case errors.Is(err, registry.ErrManifestNotFound):
		return &APIError{Code: "MANIFEST_NOT_FOUND", Message: "tool manifest not found", RecoveryHint: "Register the tool first"}
	case errors.Is(err, registry.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid registration input", RecoveryHint: "Check tool_name and validation_token"}
	case errors.Is(err, session.ErrInvalidInput):
		return &APIError{Code: "INVALID_INPUT", Message: "invalid session note input", RecoveryHint: "Content is required"}
	case errors.Is(err, repository.ErrConflict):
		return &APIError{Code: "ALREADY_EXISTS", Message: "entity already exists", RecoveryHint: "Use a different name"}
	case errors.Is(err, repository.ErrNotFound):
		return &APIError{Code: "NOT_FOUND", Message: "entity not found", RecoveryHint: "Check ID spelling"}
	default:
		return nil
	}
}
