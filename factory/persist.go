package factory

import (
	"context"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// SaveRecord stores equipment and its nested rows through repo, appending an
// audit entry for each. Ids are assigned back into rec. Callers wrap it in
// Repository.WithTx.
func SaveRecord(ctx context.Context, repo compliance.Repository, rec *Record, actor string) error {
	if err := repo.SaveEquipment(ctx, &rec.Equipment); err != nil {
		return err
	}
	eqID := rec.Equipment.ID
	err := repo.AppendAudit(ctx, generic.AuditEntry{
		Actor:       actor,
		Action:      generic.AuditEquipmentSaved,
		EquipmentID: eqID,
		Payload:     map[string]any{"audit_frequencies": compliance.JoinFrequencies(rec.Equipment.AuditFrequencies)},
	})
	if err != nil {
		return err
	}

	for i := range rec.Tests {
		t := &rec.Tests[i]
		t.EquipmentID = eqID
		if t.CreatedBy == "" {
			t.CreatedBy = actor
		}
		t.ModifiedBy = actor
		if err := repo.SaveTest(ctx, t); err != nil {
			return err
		}
		err := repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditTestRecorded,
			EquipmentID: eqID,
			RecordID:    int64(t.ID),
			Payload:     map[string]any{"test_type": t.TestType, "test_date": t.TestDate.String()},
		})
		if err != nil {
			return err
		}
	}

	for i := range rec.Schedules {
		s := &rec.Schedules[i]
		s.EquipmentID = eqID
		if s.CreatedBy == "" {
			s.CreatedBy = actor
		}
		s.ModifiedBy = actor
		if err := repo.SaveSchedule(ctx, s); err != nil {
			return err
		}
		err := repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditScheduleCreated,
			EquipmentID: eqID,
			RecordID:    int64(s.ID),
			Payload:     map[string]any{"scheduled_date": s.ScheduledDate.String()},
		})
		if err != nil {
			return err
		}
	}
	return nil
}
