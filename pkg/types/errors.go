package types

import "fmt"

// Code identifies the kind of error returned by a core operation. Names
// mirror spec section 7; the code values themselves are not normative,
// only their distinctness and the Retryable flag attached to each.
type Code string

const (
	CodeSerializationConflict Code = "serialization_conflict"
	CodeSequenceExhausted     Code = "sequence_exhausted"
	CodeNotFound              Code = "not_found"
	CodePrimaryKeyViolation   Code = "primary_key_violation"
	CodeUniqueIndexViolation  Code = "unique_index_violation"
	CodeStorageFailure        Code = "storage_failure"
	CodeCatalogInconsistency  Code = "catalog_inconsistency"
	CodeFlowBackfillTimeout   Code = "flow_backfill_timeout"
	CodeFlowAlreadyRegistered Code = "flow_already_registered"
	CodeFlowDispatcherDown    Code = "flow_dispatcher_unavailable"
	CodeCancelled             Code = "cancelled"
)

// retryable reports whether a fresh attempt of the same operation might
// succeed, per spec section 7's propagation policy.
var retryable = map[Code]bool{
	CodeSerializationConflict: true,
}

// Error is the single structured error type returned by every fallible
// operation in the core. It wraps an optional underlying cause the way
// the teacher's storage layer wraps bbolt errors with fmt.Errorf, but
// keeps the code and retryability machine-readable instead of folding
// them into the message string.
type Error struct {
	Code    Code
	Message string
	Entity  string // e.g. "table", "namespace" — set by NotFound errors
	Key     []byte // the offending key, when applicable
	Cause   error
}

func (e *Error) Error() string {
	if e.Entity != "" {
		return fmt.Sprintf("%s: %s %s", e.Code, e.Entity, e.Message)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Retryable reports whether the caller may retry the operation that
// produced this error. Non-*Error errors are treated as non-retryable.
func (e *Error) Retryable() bool { return retryable[e.Code] }

// NewError constructs an Error with the given code and formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error with the given code wrapping a lower-level cause,
// mirroring pkg/storage/boltdb.go's fmt.Errorf("...: %w", err) idiom but
// keeping the wrapped error machine-inspectable via errors.As.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// NotFound builds a CodeNotFound error for the named entity and key.
func NotFound(entity string, key []byte) *Error {
	return &Error{Code: CodeNotFound, Message: "not found", Entity: entity, Key: key}
}

// IsRetryable reports whether err is a retryable *Error.
func IsRetryable(err error) bool {
	var e *Error
	if ae, ok := err.(*Error); ok {
		e = ae
	} else {
		return false
	}
	return e.Retryable()
}
