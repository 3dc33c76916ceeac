package types

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across components
var (
	ErrEmptyContent   = errors.New("content cannot be empty")
	ErrEmptyQuery     = errors.New("query cannot be empty")
	ErrRepoNotIndexed = errors.New("repository not indexed")
)

// TransientError wraps a remote failure that is worth retrying: rate
// limiting, timeouts, 5xx responses. Retry happens at the client boundary;
// once retries are exhausted the error becomes terminal for that unit of work.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// Transient wraps err as a TransientError for operation op
func Transient(op string, err error) error {
	return &TransientError{Op: op, Err: err}
}

// IsTransient reports whether err is (or wraps) a TransientError
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// MalformedResponseError wraps a structured-output parse failure from an
// LLM. Callers recover with a deterministic fallback; this never propagates
// past the component that detected it.
type MalformedResponseError struct {
	Op  string
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed response in %s: %v", e.Op, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Malformed wraps err as a MalformedResponseError, keeping the raw text
// so the fallback path can still use it
func Malformed(op, raw string, err error) error {
	return &MalformedResponseError{Op: op, Raw: raw, Err: err}
}

// IsMalformed reports whether err is (or wraps) a MalformedResponseError
func IsMalformed(err error) bool {
	var me *MalformedResponseError
	return errors.As(err, &me)
}

// ValidationError marks bad input for a single file or item: missing path,
// empty content, oversized file. The item is skipped and recorded in run
// statistics; processing continues.
type ValidationError struct {
	Item   string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid input %s: %s", e.Item, e.Reason)
}

// Invalid creates a ValidationError for an item
func Invalid(item, reason string) error {
	return &ValidationError{Item: item, Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// StoreError wraps a vector index failure: unreachable backend, rejected
// write. It propagates to the caller of the indexing run or query turn,
// aborting that unit of work but never sibling files.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("vector store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// Store wraps err as a StoreError for operation op
func Store(op string, err error) error {
	return &StoreError{Op: op, Err: err}
}

// IsStore reports whether err is (or wraps) a StoreError
func IsStore(err error) bool {
	var se *StoreError
	return errors.As(err, &se)
}
