/*
store.go - Audit log contract

PURPOSE:
  Records who changed compliance data and when. The compliance engine never
  writes here; the API layer appends an entry for every mutation it performs
  through a store. The audit log is append-only.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go: audit_log table
  - store/memory/memory.go: In-memory for testing

SEE ALSO:
  - compliance/repository.go: Repository interfaces for equipment, tests, schedules
*/
package generic

import (
	"context"
	"time"
)

// =============================================================================
// AUDIT LOG - Separate from compliance records, tracks who did what when
// =============================================================================

// AuditEntry records who did what when.
type AuditEntry struct {
	ID          int64
	Timestamp   time.Time
	Actor       string // initials or name of the person who acted
	Action      AuditAction
	EquipmentID EquipmentID
	RecordID    int64          // test or schedule id, zero for equipment-level actions
	Payload     map[string]any // action-specific data
}

type AuditAction string

const (
	AuditEquipmentSaved   AuditAction = "equipment_saved"
	AuditEquipmentDeleted AuditAction = "equipment_deleted"
	AuditTestRecorded     AuditAction = "test_recorded"
	AuditTestUpdated      AuditAction = "test_updated"
	AuditTestDeleted      AuditAction = "test_deleted"
	AuditScheduleCreated  AuditAction = "schedule_created"
	AuditScheduleUpdated  AuditAction = "schedule_updated"
	AuditScheduleDeleted  AuditAction = "schedule_deleted"
)

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	AppendAudit(ctx context.Context, entry AuditEntry) error
	QueryAudit(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}

type AuditFilter struct {
	EquipmentID *EquipmentID
	Actor       *string
	Actions     []AuditAction
	From        *time.Time
	To          *time.Time
}
