/*
Package generic provides the domain-agnostic primitives the compliance engine
is built on.

PURPOSE:
  Calendar dates with clamped month arithmetic, inclusive date windows,
  typed identifiers, the error taxonomy, and the audit log contract. Nothing
  here knows about audit frequencies or test types.

KEY CONCEPTS IN THIS FILE (types.go):
  - Typed identifiers: EquipmentID, TestID, ScheduleID

DESIGN PRINCIPLES:
  1. Determinism: no function reads the clock except Today(), used by edges
  2. Calendar semantics: month arithmetic clamps, never overflows
  3. Type Safety: distinct ID types prevent mixing equipment/test/schedule IDs

SEE ALSO:
  - time.go: Date arithmetic
  - period.go: Inclusive windows
  - errors.go: Sentinel and structured errors
  - store.go: Audit log interface
*/
package generic

import "strconv"

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EquipmentID int64
type TestID int64
type ScheduleID int64

func (id EquipmentID) String() string { return strconv.FormatInt(int64(id), 10) }
func (id TestID) String() string      { return strconv.FormatInt(int64(id), 10) }
func (id ScheduleID) String() string  { return strconv.FormatInt(int64(id), 10) }

// ParseEquipmentID parses a decimal equipment id from a URL or CLI argument.
func ParseEquipmentID(s string) (EquipmentID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: "equipment_id", Message: "must be a positive integer"}
	}
	return EquipmentID(n), nil
}

// ParseID parses a positive decimal id for tests and schedules.
func ParseID(field, s string) (int64, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, &ValidationError{Field: field, Message: "must be a positive integer"}
	}
	return n, nil
}
