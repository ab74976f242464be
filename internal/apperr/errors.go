// Package apperr holds the sentinel errors shared across layers.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalid       = errors.New("invalid input")
	// ErrUnconfigured is returned by writes when no metadata store is configured.
	ErrUnconfigured = errors.New("storage not configured")
)
