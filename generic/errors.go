/*
errors.go - Centralized error taxonomy

PURPOSE:
  All error types in one place for consistency and discoverability.
  The profit package and the stores wrap these errors with context;
  the HTTP layer maps them to status codes.

ERROR CATEGORIES:
  1. Validation       - malformed or out-of-range input
  2. NotFound         - referenced investor/year/distribution absent
  3. InvalidState     - operation not legal for the lifecycle state
  4. ExternalService  - FX lookup, notification dispatch (never fatal)
  5. Persistence      - storage failure, surfaced to the caller
  6. Duplicate        - unique constraint violated (a validation failure)

USAGE:
  if errors.Is(err, generic.ErrInvalidState) {
      // tell the admin which transition was refused
  }

SEE ALSO:
  - profit/lifecycle.go: raises InvalidState
  - store/sqlite/sqlite.go: raises Persistence and Duplicate
  - api/handlers.go: status code mapping
*/
package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrInvalidState    = errors.New("invalid state")
	ErrExternalService = errors.New("external service failure")
	ErrPersistence     = errors.New("persistence failure")

	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")

	// ErrInvalidPeriod is returned when a period's end is not after its start.
	ErrInvalidPeriod = &ValidationError{Field: "endDate", Message: "must be after startDate"}
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// ValidationError names the offending field.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed: %s %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// NotFoundError identifies what was looked up.
type NotFoundError struct {
	Kind string // "investor", "financial_year", ...
	ID   string
}

func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// InvalidStateError explains why a transition was refused.
type InvalidStateError struct {
	Op     string
	Status string
	Reason string
}

func NewInvalidState(op, status, reason string) *InvalidStateError {
	return &InvalidStateError{Op: op, Status: status, Reason: reason}
}

func (e *InvalidStateError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Reason)
	}
	return fmt.Sprintf("%s: %s (status %s)", e.Op, e.Reason, e.Status)
}

func (e *InvalidStateError) Unwrap() error { return ErrInvalidState }

// DuplicateError reports which unique key collided.
type DuplicateError struct {
	Kind string
	Key  string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("%s with key %q already exists", e.Kind, e.Key)
}

// Unwrap lets a duplicate match both ErrDuplicate and ErrValidation.
func (e *DuplicateError) Unwrap() []error { return []error{ErrDuplicate, ErrValidation} }

// ExternalServiceError wraps a collaborator failure.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() []error { return []error{ErrExternalService, e.Err} }

// PersistenceError wraps a storage failure with the failing operation.
func PersistenceError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrPersistence, err)
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrValidation) || errors.Is(err, ErrDuplicate)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalidState returns true if a lifecycle guard refused the operation.
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }
