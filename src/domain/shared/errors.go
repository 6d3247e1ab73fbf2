package shared

import "errors"

var (
	ErrNotFound     = errors.New("entity not found")
	ErrConflict     = errors.New("entity conflict")
	ErrInvalidState = errors.New("invalid state transition")
	ErrTimeout      = errors.New("operation timed out")
	ErrInvariant    = errors.New("invariant violated")
)
