// Package apperr defines the error taxonomy shared by the collection and
// reconciliation services. Handlers map these onto response codes; nothing
// below the handler layer inspects HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input. The write it guards never
// happened, so the caller may retry with corrected input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidation builds a ValidationError for a single field.
func NewValidation(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// NotFoundError covers both "does not exist" and "belongs to another
// driver". The two cases are deliberately indistinguishable to callers.
type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found", e.Entity)
}

func NewNotFound(entity string) error {
	return &NotFoundError{Entity: entity}
}

// InvalidStateTransition reports a lifecycle transition attempted from a
// state that does not allow it. Current and Target are kept for
// diagnostics; no partial mutation occurred.
type InvalidStateTransition struct {
	Current string
	Target  string
}

func (e *InvalidStateTransition) Error() string {
	return fmt.Sprintf("invalid state transition from %s to %s", e.Current, e.Target)
}

func NewInvalidTransition(current, target string) error {
	return &InvalidStateTransition{Current: current, Target: target}
}

// ReconciliationDataError reports inconsistent or unresolvable input to
// reconciliation building, e.g. a business id that no resolver could
// supply. The reconciliation is not persisted.
type ReconciliationDataError struct {
	Reason string
}

func (e *ReconciliationDataError) Error() string {
	return fmt.Sprintf("reconciliation data error: %s", e.Reason)
}

func NewReconciliationData(reason string) error {
	return &ReconciliationDataError{Reason: reason}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is (or wraps) a NotFoundError.
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsInvalidTransition reports whether err is (or wraps) an InvalidStateTransition.
func IsInvalidTransition(err error) bool {
	var target *InvalidStateTransition
	return errors.As(err, &target)
}

// IsReconciliationData reports whether err is (or wraps) a ReconciliationDataError.
func IsReconciliationData(err error) bool {
	var target *ReconciliationDataError
	return errors.As(err, &target)
}
