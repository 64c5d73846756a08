package session

import "errors"

var (
	// ErrInvalidInput indicates empty content or an unusable session name.
	ErrInvalidInput = errors.New("invalid session note input")
)
