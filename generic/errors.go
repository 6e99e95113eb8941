/*
errors.go - Centralized error types for the compliance engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  The compliance package and the stores wrap these errors with context.

ERROR CATEGORIES:
  1. Policy errors - Audit frequency names outside the fixed enumeration
  2. Calculation errors - Per-equipment failures during date arithmetic
  3. Validation errors - Malformed input rejected at the boundary
  4. Store errors - Missing records

USAGE:
  Callers test with errors.Is / errors.As:

    if errors.Is(err, generic.ErrUnknownPolicy) {
        // skip this policy, keep the others
    }

SEE ALSO:
  - compliance/frequency.go: Returns UnknownPolicyError
  - compliance/worklist.go: Contains CalculationError per equipment
  - api/handlers.go: Maps these errors to HTTP status codes
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
	// ErrUnknownPolicy is returned for an audit frequency name that is not
	// one of the five known policies.
	ErrUnknownPolicy = errors.New("unknown audit frequency policy")

	// ErrUnknownTestType is returned for a test type outside the enumeration.
	ErrUnknownTestType = errors.New("unknown test type")

	// ErrCalculationFailure marks an unexpected failure while computing a
	// due date for one piece of equipment.
	ErrCalculationFailure = errors.New("due date calculation failed")

	// ErrInvalidDate is returned when a date is missing or malformed.
	ErrInvalidDate = errors.New("invalid date")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrInvalidInput is returned for any other rejected field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEquipmentNotFound is returned when a referenced equipment doesn't exist.
	ErrEquipmentNotFound = errors.New("equipment not found")

	// ErrTestNotFound is returned when a referenced compliance test doesn't exist.
	ErrTestNotFound = errors.New("compliance test not found")

	// ErrScheduleNotFound is returned when a referenced scheduled test doesn't exist.
	ErrScheduleNotFound = errors.New("scheduled test not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// UnknownPolicyError names the offending audit frequency.
type UnknownPolicyError struct {
	Name string
}

func (e *UnknownPolicyError) Error() string {
	return fmt.Sprintf("unknown audit frequency policy %q", e.Name)
}

func (e *UnknownPolicyError) Unwrap() error {
	return ErrUnknownPolicy
}

// CalculationError records which equipment failed and why.
type CalculationError struct {
	EquipmentID EquipmentID
	Err         error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("equipment %d: due date calculation failed: %v", e.EquipmentID, e.Err)
}

// Unwrap exposes both the sentinel and the underlying cause.
func (e *CalculationError) Unwrap() []error {
	return []error{ErrCalculationFailure, e.Err}
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field   string
	Message string
	Err     error // sentinel; defaults to ErrInvalidInput
}

func (e *ValidationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Unwrap())
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	if e.Err == nil {
		return ErrInvalidInput
	}
	return e.Err
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrUnknownPolicy) ||
		errors.Is(err, ErrUnknownTestType) ||
		errors.Is(err, ErrInvalidDate) ||
		errors.Is(err, ErrInvalidPeriod) ||
		errors.Is(err, ErrInvalidInput)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrEquipmentNotFound) ||
		errors.Is(err, ErrTestNotFound) ||
		errors.Is(err, ErrScheduleNotFound)
}
