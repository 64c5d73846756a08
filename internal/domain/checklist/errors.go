package checklist

import "errors"

var (
	// ErrChecklistNotFound indicates the checklist document doesn't exist.
	ErrChecklistNotFound = errors.New("checklist not found")
	// ErrChecklistParse indicates the checklist document is not valid YAML.
	ErrChecklistParse = errors.New("checklist parse failed")
	// ErrBadPattern indicates a rule pattern failed to compile.
	ErrBadPattern = errors.New("invalid checklist pattern")
)
