// Package apperr defines the error taxonomy shared across sync layers.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the remote store rejected the configured
	// credentials. Surfaced to the user as "check your settings", distinct
	// from transient network failures.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSyncInProgress is returned when a sync trigger arrives while a
	// cycle is already running. Triggers are rejected, never queued.
	ErrSyncInProgress = errors.New("sync already in progress")

	ErrNotFound = errors.New("not found")
)

// ParseError reports malformed front matter in a specific vault file.
type ParseError struct {
	Path string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse front matter in %s: %v", e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsAuth reports whether err is (or wraps) a credential rejection.
func IsAuth(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}
