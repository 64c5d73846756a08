package registry

import "errors"

var (
	// ErrManifestNotFound indicates no manifest exists for the tool.
	ErrManifestNotFound = errors.New("tool manifest not found")
	// ErrInvalidInput indicates invalid registration input.
	ErrInvalidInput = errors.New("invalid registration input")
)
