// Package storetest holds the behaviour every compliance.Repository must
// share. Each store package runs it from its own tests.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// Factory returns an empty repository. It is called once per subtest.
type Factory func(t *testing.T) compliance.Repository

// Run executes the shared repository tests.
func Run(t *testing.T, newRepo Factory) {
	t.Run("EquipmentRoundTrip", func(t *testing.T) { testEquipmentRoundTrip(t, newRepo(t)) })
	t.Run("ActiveEquipment", func(t *testing.T) { testActiveEquipment(t, newRepo(t)) })
	t.Run("NotFound", func(t *testing.T) { testNotFound(t, newRepo(t)) })
	t.Run("TestsAndSchedules", func(t *testing.T) { testTestsAndSchedules(t, newRepo(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newRepo(t)) })
	t.Run("AuditLog", func(t *testing.T) { testAuditLog(t, newRepo(t)) })
	t.Run("WithTxCommits", func(t *testing.T) { testWithTxCommits(t, newRepo(t)) })
	t.Run("WithTxRollsBack", func(t *testing.T) { testWithTxRollsBack(t, newRepo(t)) })
	t.Run("Reset", func(t *testing.T) { testReset(t, newRepo(t)) })
}

func date(s string) generic.Date {
	d, err := generic.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

func saveEquipment(t *testing.T, repo compliance.Repository, class string, freqs ...string) compliance.Equipment {
	t.Helper()
	eq := compliance.Equipment{Class: class, AuditFrequencies: freqs, PhysicsCoverage: true}
	require.NoError(t, repo.SaveEquipment(context.Background(), &eq))
	require.NotZero(t, eq.ID)
	return eq
}

func testEquipmentRoundTrip(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()

	// GIVEN: Equipment with every field set
	eq := compliance.Equipment{
		AuditFrequencies: []string{"Quarterly, Annual - TJC"},
		PhysicsCoverage:  true,
		RetirementDate:   date("2030-06-30").Ptr(),
		Class:            "CT",
		Subclass:         "Diagnostic",
		Manufacturer:     "Siemens",
		Model:            "Somatom",
		Department:       "Radiology",
		Facility:         "Main",
		Room:             "CT-2",
		AssetID:          "A-1",
		SerialNumber:     "SN-1",
	}

	// WHEN: Saved and read back
	require.NoError(t, repo.SaveEquipment(ctx, &eq))
	got, err := repo.GetEquipment(ctx, eq.ID)
	require.NoError(t, err)

	// THEN: Frequencies come back flattened, everything else unchanged
	assert.Equal(t, []string{"Quarterly", "Annual - TJC"}, got.AuditFrequencies)
	assert.Equal(t, "2030-06-30", got.RetirementDate.String())
	assert.Equal(t, "Somatom", got.Model)
	assert.Equal(t, "SN-1", got.SerialNumber)
	assert.True(t, got.PhysicsCoverage)

	// WHEN: Updated in place
	got.Retired = true
	got.AuditFrequencies = nil
	require.NoError(t, repo.SaveEquipment(ctx, got))
	again, err := repo.GetEquipment(ctx, eq.ID)
	require.NoError(t, err)
	assert.True(t, again.Retired)
	assert.Empty(t, again.AuditFrequencies)

	all, err := repo.ListEquipment(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testActiveEquipment(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()
	today := date("2024-04-05")

	active := saveEquipment(t, repo, "CT", "Quarterly")

	retired := compliance.Equipment{Class: "MRI", PhysicsCoverage: true, Retired: true}
	require.NoError(t, repo.SaveEquipment(ctx, &retired))

	retiredToday := compliance.Equipment{Class: "NM", PhysicsCoverage: true, RetirementDate: today.Ptr()}
	require.NoError(t, repo.SaveEquipment(ctx, &retiredToday))

	uncovered := compliance.Equipment{Class: "Dental", PhysicsCoverage: false}
	require.NoError(t, repo.SaveEquipment(ctx, &uncovered))

	retiresLater := compliance.Equipment{Class: "RF", PhysicsCoverage: true, RetirementDate: today.AddDays(1).Ptr()}
	require.NoError(t, repo.SaveEquipment(ctx, &retiresLater))

	got, err := repo.ActiveEquipment(ctx, today)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, active.ID, got[0].ID)
	assert.Equal(t, retiresLater.ID, got[1].ID)
}

func testNotFound(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()

	_, err := repo.GetEquipment(ctx, 99)
	assert.ErrorIs(t, err, generic.ErrEquipmentNotFound)
	assert.ErrorIs(t, repo.DeleteEquipment(ctx, 99), generic.ErrEquipmentNotFound)

	_, err = repo.GetTest(ctx, 99)
	assert.ErrorIs(t, err, generic.ErrTestNotFound)
	assert.ErrorIs(t, repo.DeleteTest(ctx, 99), generic.ErrTestNotFound)

	_, err = repo.GetSchedule(ctx, 99)
	assert.ErrorIs(t, err, generic.ErrScheduleNotFound)
	assert.ErrorIs(t, repo.DeleteSchedule(ctx, 99), generic.ErrScheduleNotFound)

	orphan := compliance.ComplianceTest{EquipmentID: 99, TestType: "Annual", TestDate: date("2024-01-01")}
	assert.ErrorIs(t, repo.SaveTest(ctx, &orphan), generic.ErrEquipmentNotFound)

	orphanSchedule := compliance.ScheduledTest{EquipmentID: 99, ScheduledDate: date("2024-06-01")}
	assert.ErrorIs(t, repo.SaveSchedule(ctx, &orphanSchedule), generic.ErrEquipmentNotFound)
}

func testTestsAndSchedules(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()
	eq := saveEquipment(t, repo, "CT", "Annual - TJC")
	other := saveEquipment(t, repo, "MRI", "Annual - ACR")

	// GIVEN: Tests saved out of date order
	later := compliance.ComplianceTest{EquipmentID: eq.ID, TestType: "Annual", TestDate: date("2024-01-15"),
		ReportDate: date("2024-01-20").Ptr(), PerformedBy: "NB", CreatedBy: "NB"}
	earlier := compliance.ComplianceTest{EquipmentID: eq.ID, TestType: "Acceptance", TestDate: date("2023-01-10")}
	elsewhere := compliance.ComplianceTest{EquipmentID: other.ID, TestType: "Annual", TestDate: date("2023-06-01")}
	require.NoError(t, repo.SaveTest(ctx, &later))
	require.NoError(t, repo.SaveTest(ctx, &earlier))
	require.NoError(t, repo.SaveTest(ctx, &elsewhere))
	assert.NotZero(t, later.ID)

	// THEN: Per-equipment history is ordered by date
	tests, err := repo.TestsForEquipment(ctx, eq.ID)
	require.NoError(t, err)
	require.Len(t, tests, 2)
	assert.Equal(t, earlier.ID, tests[0].ID)
	assert.Equal(t, "2024-01-20", tests[1].ReportDate.String())
	assert.Nil(t, tests[1].SubmissionDate)
	assert.Equal(t, "NB", tests[1].CreatedBy)

	inRange, err := repo.TestsInRange(ctx, date("2023-01-10"), date("2023-06-01"))
	require.NoError(t, err)
	assert.Len(t, inRange, 2, "range is inclusive at both ends")

	_, err = repo.TestsInRange(ctx, date("2023-06-01"), date("2023-01-10"))
	assert.ErrorIs(t, err, generic.ErrInvalidPeriod)

	// Updating keeps the id
	later.Notes = "re-read"
	require.NoError(t, repo.SaveTest(ctx, &later))
	got, err := repo.GetTest(ctx, later.ID)
	require.NoError(t, err)
	assert.Equal(t, "re-read", got.Notes)

	// GIVEN: Two schedules
	s1 := compliance.ScheduledTest{EquipmentID: eq.ID, ScheduledDate: date("2024-09-01"), SchedulingDate: date("2024-04-01"), Notes: "vendor"}
	s2 := compliance.ScheduledTest{EquipmentID: eq.ID, ScheduledDate: date("2024-03-01"), SchedulingDate: date("2024-02-01")}
	require.NoError(t, repo.SaveSchedule(ctx, &s1))
	require.NoError(t, repo.SaveSchedule(ctx, &s2))

	schedules, err := repo.SchedulesForEquipment(ctx, eq.ID)
	require.NoError(t, err)
	require.Len(t, schedules, 2)
	assert.Equal(t, s2.ID, schedules[0].ID)
	assert.Equal(t, "2024-04-01", schedules[1].SchedulingDate.String())

	from, err := repo.SchedulesFrom(ctx, date("2024-04-05"))
	require.NoError(t, err)
	require.Len(t, from, 1)
	assert.Equal(t, s1.ID, from[0].ID)

	s1.ScheduledDate = date("2024-10-01")
	require.NoError(t, repo.SaveSchedule(ctx, &s1))
	gotSchedule, err := repo.GetSchedule(ctx, s1.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-10-01", gotSchedule.ScheduledDate.String())

	require.NoError(t, repo.DeleteSchedule(ctx, s2.ID))
	require.NoError(t, repo.DeleteTest(ctx, earlier.ID))
	tests, err = repo.TestsForEquipment(ctx, eq.ID)
	require.NoError(t, err)
	assert.Len(t, tests, 1)
}

func testDeleteCascades(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()
	eq := saveEquipment(t, repo, "CT", "Quarterly")

	tst := compliance.ComplianceTest{EquipmentID: eq.ID, TestType: "Annual", TestDate: date("2024-01-01")}
	require.NoError(t, repo.SaveTest(ctx, &tst))
	sch := compliance.ScheduledTest{EquipmentID: eq.ID, ScheduledDate: date("2024-06-01")}
	require.NoError(t, repo.SaveSchedule(ctx, &sch))

	require.NoError(t, repo.DeleteEquipment(ctx, eq.ID))

	_, err := repo.GetTest(ctx, tst.ID)
	assert.ErrorIs(t, err, generic.ErrTestNotFound)
	_, err = repo.GetSchedule(ctx, sch.ID)
	assert.ErrorIs(t, err, generic.ErrScheduleNotFound)
}

func testAuditLog(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()
	base := time.Date(2024, time.April, 5, 9, 0, 0, 0, time.UTC)

	entries := []generic.AuditEntry{
		{Timestamp: base, Actor: "NB", Action: generic.AuditEquipmentSaved, EquipmentID: 1},
		{Timestamp: base.Add(time.Hour), Actor: "JS", Action: generic.AuditTestRecorded, EquipmentID: 1, RecordID: 7,
			Payload: map[string]any{"test_type": "Annual"}},
		{Timestamp: base.Add(2 * time.Hour), Actor: "NB", Action: generic.AuditScheduleCreated, EquipmentID: 2, RecordID: 3},
	}
	for _, e := range entries {
		require.NoError(t, repo.AppendAudit(ctx, e))
	}

	all, err := repo.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, generic.AuditEquipmentSaved, all[0].Action)
	assert.Equal(t, "Annual", all[1].Payload["test_type"])
	assert.Equal(t, int64(7), all[1].RecordID)
	assert.True(t, all[1].Timestamp.Equal(base.Add(time.Hour)))

	eqID := generic.EquipmentID(1)
	byEquipment, err := repo.QueryAudit(ctx, generic.AuditFilter{EquipmentID: &eqID})
	require.NoError(t, err)
	assert.Len(t, byEquipment, 2)

	actor := "NB"
	byActor, err := repo.QueryAudit(ctx, generic.AuditFilter{Actor: &actor, Actions: []generic.AuditAction{generic.AuditScheduleCreated}})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, generic.EquipmentID(2), byActor[0].EquipmentID)

	from := base.Add(30 * time.Minute)
	since, err := repo.QueryAudit(ctx, generic.AuditFilter{From: &from})
	require.NoError(t, err)
	assert.Len(t, since, 2)
}

func testWithTxCommits(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()

	var saved compliance.Equipment
	err := repo.WithTx(ctx, func(tx compliance.Repository) error {
		saved = compliance.Equipment{Class: "CT", PhysicsCoverage: true}
		if err := tx.SaveEquipment(ctx, &saved); err != nil {
			return err
		}
		tst := compliance.ComplianceTest{EquipmentID: saved.ID, TestType: "Annual", TestDate: date("2024-01-01")}
		if err := tx.SaveTest(ctx, &tst); err != nil {
			return err
		}
		return tx.AppendAudit(ctx, generic.AuditEntry{Actor: "NB", Action: generic.AuditTestRecorded, EquipmentID: saved.ID})
	})
	require.NoError(t, err)

	tests, err := repo.TestsForEquipment(ctx, saved.ID)
	require.NoError(t, err)
	assert.Len(t, tests, 1)
	audit, err := repo.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Len(t, audit, 1)
}

func testWithTxRollsBack(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()
	existing := saveEquipment(t, repo, "CT", "Quarterly")
	boom := errors.New("boom")

	// WHEN: The callback fails after writing
	err := repo.WithTx(ctx, func(tx compliance.Repository) error {
		eq := compliance.Equipment{Class: "MRI", PhysicsCoverage: true}
		if err := tx.SaveEquipment(ctx, &eq); err != nil {
			return err
		}
		if err := tx.DeleteEquipment(ctx, existing.ID); err != nil {
			return err
		}
		if err := tx.AppendAudit(ctx, generic.AuditEntry{Actor: "NB", Action: generic.AuditEquipmentDeleted, EquipmentID: existing.ID}); err != nil {
			return err
		}
		return boom
	})

	// THEN: The error is returned and nothing changed
	assert.ErrorIs(t, err, boom)
	all, err := repo.ListEquipment(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, existing.ID, all[0].ID)
	audit, err := repo.QueryAudit(ctx, generic.AuditFilter{})
	require.NoError(t, err)
	assert.Empty(t, audit)
}

func testReset(t *testing.T, repo compliance.Repository) {
	ctx := context.Background()
	eq := saveEquipment(t, repo, "CT", "Quarterly")
	tst := compliance.ComplianceTest{EquipmentID: eq.ID, TestType: "Annual", TestDate: date("2024-01-01")}
	require.NoError(t, repo.SaveTest(ctx, &tst))

	require.NoError(t, repo.Reset(ctx))

	all, err := repo.ListEquipment(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	tests, err := repo.TestsInRange(ctx, date("2000-01-01"), date("2100-01-01"))
	require.NoError(t, err)
	assert.Empty(t, tests)
}
