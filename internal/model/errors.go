package model

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// ErrorType classifies a per-record failure in an ImportResult.
type ErrorType string

const (
	ErrorValidation    ErrorType = "validation"
	ErrorDuplicate     ErrorType = "duplicate"
	ErrorSlugExhausted ErrorType = "slug_exhausted"
	ErrorStoreWrite    ErrorType = "store_write"
	ErrorNotFound      ErrorType = "not_found"
	ErrorInternal      ErrorType = "internal"
)

// ErrSlugExhausted is returned when every slug candidate up to the attempt
// cap is already taken.
var ErrSlugExhausted = eris.New("slug: collision attempts exhausted")

// ErrNotFound is returned when a record id does not exist in the store.
var ErrNotFound = eris.New("record not found")

// ValidationError reports a missing required field. The record is rejected.
type ValidationError struct {
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: missing required field %q", e.Field)
}

// DuplicateError reports a record that matches an existing listing and is
// not a branch of it. The record is skipped, never written.
type DuplicateError struct {
	MatchedID string
	Reason    string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("duplicate of %s (%s)", e.MatchedID, e.Reason)
}

// StoreWriteError wraps the cause of a write that failed after its retry.
type StoreWriteError struct {
	Key string
	Err error
}

func (e *StoreWriteError) Error() string {
	return fmt.Sprintf("store write %s: %v", e.Key, e.Err)
}

func (e *StoreWriteError) Unwrap() error { return e.Err }

// ClassifyError maps a pipeline error onto the ImportResult error taxonomy.
func ClassifyError(err error) ErrorType {
	var ve *ValidationError
	var de *DuplicateError
	var we *StoreWriteError
	switch {
	case errors.As(err, &ve):
		return ErrorValidation
	case errors.As(err, &de):
		return ErrorDuplicate
	case errors.As(err, &we):
		return ErrorStoreWrite
	case eris.Is(err, ErrSlugExhausted):
		return ErrorSlugExhausted
	case eris.Is(err, ErrNotFound):
		return ErrorNotFound
	default:
		return ErrorInternal
	}
}
