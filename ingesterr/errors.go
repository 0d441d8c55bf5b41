// Package ingesterr defines the error taxonomy from the error-handling
// design: schema errors, transient store errors, plan-breaking errors, and
// user errors each get a distinct type so callers can branch on `errors.As`
// instead of string-matching. Idempotence-safe failures (partial multi-store
// writes) are deliberately NOT a distinct type here — they are plain
// activity errors, recovered by the task runtime's retry policy and,
// failing that, by re-running the parent workflow; giving them a type would
// invite callers to special-case them instead of letting the workflow retry
// converge them via idempotent upsert.
package ingesterr

import "fmt"

// SchemaError indicates a duplicate name, invalid identifier, missing
// docstring, or key-ordering violation detected while assembling the schema
// registry. Fatal at startup — callers should not retry.
type SchemaError struct {
	Cause error
}

func (e *SchemaError) Error() string { return fmt.Sprintf("schema error: %v", e.Cause) }
func (e *SchemaError) Unwrap() error { return e.Cause }

// NewSchemaError wraps cause as a SchemaError.
func NewSchemaError(cause error) error { return &SchemaError{Cause: cause} }

// TransientStoreError indicates a store-level timeout or connection reset.
// Retried with bounded backoff at the lowest layer; surfaced as an activity
// failure only once retries are exhausted.
type TransientStoreError struct {
	Store string
	Cause error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient %s store error: %v", e.Store, e.Cause)
}
func (e *TransientStoreError) Unwrap() error { return e.Cause }

// NewTransientStoreError wraps cause as a TransientStoreError for store.
func NewTransientStoreError(store string, cause error) error {
	return &TransientStoreError{Store: store, Cause: cause}
}

// PlanBreakingError indicates a size mismatch between a streamed blob and
// its recorded size, a missing schema entry, or an unknown edge direction.
// Fatal for the current work unit; the caller is expected to count it into
// the parent aggregate's errors tally (e.g. scan_total.errors) rather than
// fail the whole workflow.
type PlanBreakingError struct {
	Reason string
	Cause  error
}

func (e *PlanBreakingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("plan-breaking error (%s): %v", e.Reason, e.Cause)
	}
	return fmt.Sprintf("plan-breaking error: %s", e.Reason)
}
func (e *PlanBreakingError) Unwrap() error { return e.Cause }

// NewPlanBreakingError constructs a PlanBreakingError with reason and an
// optional underlying cause.
func NewPlanBreakingError(reason string, cause error) error {
	return &PlanBreakingError{Reason: reason, Cause: cause}
}

// SizeMismatchError is the specific PlanBreakingError raised when a streamed
// blob's actual size does not match its recorded size (spec.md boundary
// behavior: "A blob whose streamed size does not match its recorded size
// fails the activity with `size mismatch`").
func SizeMismatchError(recorded, actual int64) error {
	return NewPlanBreakingError(
		fmt.Sprintf("size mismatch: recorded=%d actual=%d", recorded, actual),
		nil,
	)
}

// UserError indicates a malformed query or a reference to a missing
// collection; returned as a typed error directly to the caller, never
// retried.
type UserError struct {
	Message string
}

func (e *UserError) Error() string { return e.Message }

// NewUserError constructs a UserError with message.
func NewUserError(message string) error { return &UserError{Message: message} }
