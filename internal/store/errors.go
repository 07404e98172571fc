package store

import (
	"errors"
	"fmt"

	"github.com/roach88/scenesync/internal/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrSessionClosed is returned when writing to a session that has closed.
var ErrSessionClosed = errors.New("session closed")

// CommitError explains why a batch was rejected. Nothing from the batch is
// stored when ApplyCommit returns one.
type CommitError struct {
	Code    CommitErrorCode
	Entity  model.Identifier
	Message string
	Err     error
}

// CommitErrorCode categorizes rejected batches.
type CommitErrorCode string

const (
	// ErrCodeInvalidRecord indicates a record failed to decode or validate.
	ErrCodeInvalidRecord CommitErrorCode = "INVALID_RECORD"

	// ErrCodeKindConflict indicates an identifier was reused for another kind.
	ErrCodeKindConflict CommitErrorCode = "KIND_CONFLICT"

	// ErrCodeUnresolvedReference indicates a referenced entity is missing
	// or has the wrong kind at commit time.
	ErrCodeUnresolvedReference CommitErrorCode = "UNRESOLVED_REFERENCE"

	// ErrCodeUnknownSession indicates the session does not exist or is closed.
	ErrCodeUnknownSession CommitErrorCode = "UNKNOWN_SESSION"
)

// Error implements the error interface.
func (e *CommitError) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s (entity=%s)", e.Code, e.Message, e.Entity)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *CommitError) Unwrap() error {
	return e.Err
}

// CommitErrorCodeOf returns the code of a wrapped *CommitError, or "".
func CommitErrorCodeOf(err error) CommitErrorCode {
	var ce *CommitError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}
