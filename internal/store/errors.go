package store

import (
	"errors"
	"fmt"

	"creatorpulse/aggregator/internal/models"
)

// ErrNotFound is returned when an update, get or delete targets a row
// that does not exist. It is surfaced to the caller, never retried.
var ErrNotFound = errors.New("content not found")

// ValidationError marks an item that fails schema constraints before it
// reaches the database. Batch callers record it per item and continue.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("content validation failed: %s", e.Reason)
}

// DuplicateContentError is returned by Store when the identity triple
// already exists. Callers needing upsert semantics must branch to
// UpdateByIdentity; seeing this error surface is a logic bug upstream,
// not a user-facing condition.
type DuplicateContentError struct {
	CreatorID         int64
	Platform          models.Platform
	PlatformContentID string
}

func (e *DuplicateContentError) Error() string {
	return fmt.Sprintf("content already exists for creator %d on %s with id %q",
		e.CreatorID, e.Platform, e.PlatformContentID)
}

// StorageError wraps an infrastructure-level persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}
