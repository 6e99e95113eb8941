package compliance_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// fleet returns a snapshot with one equipment per bucket, evaluated on 2024-04-05.
func fleet() compliance.Snapshot {
	retired := equipment(5, "Quarterly")
	retired.Retired = true
	uncovered := equipment(6, "Quarterly")
	uncovered.PhysicsCoverage = false

	return compliance.Snapshot{
		Equipment: []compliance.Equipment{
			equipment(1, "Annual - TJC"),              // overdue
			equipment(2, "Quarterly", "Annual - TJC"), // upcoming
			equipment(3, "Annual - ME"),               // compliant
			equipment(4, "Annual - ACR"),              // never tested
			retired,
			uncovered,
		},
		Tests: map[generic.EquipmentID][]compliance.ComplianceTest{
			1: {testRow(1, 1, "Annual", "2023-01-15")},
			2: {testRow(2, 2, "Annual", "2024-01-10")},
			3: {testRow(3, 3, "Acceptance", "2024-03-01")},
			5: {testRow(5, 5, "Annual", "2020-01-01")},
			6: {testRow(6, 6, "Annual", "2020-01-01")},
		},
		Schedules: map[generic.EquipmentID][]compliance.ScheduledTest{
			2: {schedule(20, 2, "2024-04-20")},
			3: {schedule(30, 3, "2024-03-20")}, // superseded by the 2024-03-01 test
			4: {schedule(40, 4, "2024-05-01"), schedule(41, 4, "2024-03-01")},
			5: {schedule(50, 5, "2024-06-01")},
		},
	}
}

func TestBuild_Buckets(t *testing.T) {
	// GIVEN: A fleet with one equipment per status plus inactive units
	today := mustDate("2024-04-05")

	// WHEN: The worklist is built
	wl := newBuilder().Build(today, fleet(), 90)

	// THEN: Each active equipment lands in exactly one bucket
	require.Len(t, wl.Overdue, 1)
	assert.Equal(t, generic.EquipmentID(1), wl.Overdue[0].Equipment.ID)
	assert.Equal(t, "2024-02-14", dateStr(wl.Overdue[0].DueDate))
	assert.Equal(t, -51, wl.Overdue[0].DaysUntilDue)

	require.Len(t, wl.Upcoming, 1)
	assert.Equal(t, generic.EquipmentID(2), wl.Upcoming[0].Equipment.ID)
	assert.Equal(t, "2024-04-30", dateStr(wl.Upcoming[0].DueDate))
	assert.Equal(t, "2024-01-10", dateStr(wl.Upcoming[0].LastTested))

	require.Len(t, wl.Compliant, 1)
	assert.Equal(t, generic.EquipmentID(3), wl.Compliant[0].Equipment.ID)

	require.Len(t, wl.NoFrequency, 1)
	assert.Equal(t, generic.EquipmentID(4), wl.NoFrequency[0].Equipment.ID)
	assert.Nil(t, wl.NoFrequency[0].DueDate)

	assert.Equal(t, today, wl.AsOf)
	assert.Equal(t, 90, wl.WindowDays)
}

func TestBuild_ScheduledList(t *testing.T) {
	today := mustDate("2024-04-05")
	wl := newBuilder().Build(today, fleet(), 90)

	// THEN: Active schedules dated today or later, earliest first.
	// Retired equipment and superseded entries are excluded.
	require.Len(t, wl.Scheduled, 2)
	assert.Equal(t, generic.ScheduleID(20), wl.Scheduled[0].Schedule.ID)
	assert.Equal(t, generic.ScheduleID(40), wl.Scheduled[1].Schedule.ID)
	assert.Equal(t, generic.EquipmentID(4), wl.Scheduled[1].Equipment.ID)

	// Equipment 2 is both upcoming and scheduled.
	assert.Equal(t, generic.EquipmentID(2), wl.Upcoming[0].Equipment.ID)

	// NextScheduled keeps the earliest live entry even when it is in the past.
	assert.Equal(t, generic.ScheduleID(41), wl.NextScheduled[4].ID)
	_, ok := wl.NextScheduled[3]
	assert.False(t, ok)
}

func TestBuild_ScheduleSupersededWithinBuffer(t *testing.T) {
	// GIVEN: Last tested 2024-05-01, schedules 31 and 19 days later
	snap := compliance.Snapshot{
		Equipment: []compliance.Equipment{equipment(1, "Annual - TJC")},
		Tests:     map[generic.EquipmentID][]compliance.ComplianceTest{1: {testRow(1, 1, "Annual", "2024-05-01")}},
		Schedules: map[generic.EquipmentID][]compliance.ScheduledTest{
			1: {schedule(1, 1, "2024-06-01"), schedule(2, 1, "2024-05-20")},
		},
	}

	wl := newBuilder().Build(mustDate("2024-05-10"), snap, 90)

	require.Len(t, wl.Scheduled, 1)
	assert.Equal(t, generic.ScheduleID(1), wl.Scheduled[0].Schedule.ID)
}

func TestBuild_RetirementDateExcludes(t *testing.T) {
	eq := equipment(1, "Quarterly")
	eq.RetirementDate = mustDate("2024-04-05").Ptr()
	snap := compliance.Snapshot{Equipment: []compliance.Equipment{eq}}

	before := newBuilder().Build(mustDate("2024-04-04"), snap, 90)
	assert.Len(t, before.NoFrequency, 1)

	on := newBuilder().Build(mustDate("2024-04-05"), snap, 90)
	assert.Empty(t, on.NoFrequency)
}

func TestBuild_SortsByDueThenID(t *testing.T) {
	snap := compliance.Snapshot{
		Equipment: []compliance.Equipment{
			equipment(9, "Annual - TJC"),
			equipment(3, "Annual - TJC"),
			equipment(5, "Annual - TJC"),
		},
		Tests: map[generic.EquipmentID][]compliance.ComplianceTest{
			9: {testRow(1, 9, "Annual", "2023-01-15")},
			3: {testRow(2, 3, "Annual", "2023-01-15")},
			5: {testRow(3, 5, "Annual", "2022-12-01")},
		},
	}

	wl := newBuilder().Build(mustDate("2024-04-05"), snap, 90)

	require.Len(t, wl.Overdue, 3)
	ids := []generic.EquipmentID{wl.Overdue[0].Equipment.ID, wl.Overdue[1].Equipment.ID, wl.Overdue[2].Equipment.ID}
	assert.Equal(t, []generic.EquipmentID{5, 3, 9}, ids)
}

func TestBuild_CalculationFailureIsIsolated(t *testing.T) {
	// GIVEN: One equipment whose anchor test has no date
	snap := compliance.Snapshot{
		Equipment: []compliance.Equipment{equipment(1, "Quarterly"), equipment(2, "Annual - TJC")},
		Tests: map[generic.EquipmentID][]compliance.ComplianceTest{
			1: {{ID: 1, EquipmentID: 1, TestType: "Annual"}},
			2: {testRow(2, 2, "Annual", "2023-01-15")},
		},
	}

	// WHEN: The worklist is built
	wl := newBuilder().Build(mustDate("2024-04-05"), snap, 90)

	// THEN: The broken one is NoFrequency, the other is still classified
	require.Len(t, wl.NoFrequency, 1)
	assert.Equal(t, generic.EquipmentID(1), wl.NoFrequency[0].Equipment.ID)
	require.Len(t, wl.Overdue, 1)
	assert.Equal(t, generic.EquipmentID(2), wl.Overdue[0].Equipment.ID)
}

// panicHandler blows up on any log record, standing in for a calculator bug.
type panicHandler struct{}

func (panicHandler) Enabled(context.Context, slog.Level) bool  { return true }
func (panicHandler) Handle(context.Context, slog.Record) error { panic("calculator exploded") }
func (h panicHandler) WithAttrs([]slog.Attr) slog.Handler      { return h }
func (h panicHandler) WithGroup(string) slog.Handler           { return h }

func TestBuild_CalculatorPanicIsIsolated(t *testing.T) {
	// GIVEN: A calculator that panics while skipping an unknown policy
	b := newBuilder()
	b.Calculator = compliance.NewCalculator(slog.New(panicHandler{}))
	snap := compliance.Snapshot{
		Equipment: []compliance.Equipment{
			equipment(1, "Biennial", "Quarterly"),
			equipment(2, "Annual - TJC"),
			equipment(3, "Quarterly"),
		},
		Tests: map[generic.EquipmentID][]compliance.ComplianceTest{
			1: {testRow(1, 1, "Annual", "2024-01-10")},
			2: {testRow(2, 2, "Annual", "2023-01-15")},
			3: {testRow(3, 3, "Annual", "2024-01-10")},
		},
	}
	today := mustDate("2024-04-05")

	// WHEN: The worklist is built
	var wl compliance.Worklist
	require.NotPanics(t, func() { wl = b.Build(today, snap, 90) })

	// THEN: Only the panicking row degrades
	require.Len(t, wl.NoFrequency, 1)
	assert.Equal(t, generic.EquipmentID(1), wl.NoFrequency[0].Equipment.ID)
	assert.Nil(t, wl.NoFrequency[0].DueDate)
	require.Len(t, wl.Overdue, 1)
	assert.Equal(t, generic.EquipmentID(2), wl.Overdue[0].Equipment.ID)
	require.Len(t, wl.Upcoming, 1)
	assert.Equal(t, generic.EquipmentID(3), wl.Upcoming[0].Equipment.ID)

	// AND: Ranking treats it as a calculation failure
	rows := b.Rank(today, snap.Equipment, snap.Tests, 90, false)
	require.Len(t, rows, 3)
	assert.Equal(t, generic.EquipmentID(1), rows[2].Equipment.ID)
	assert.Equal(t, compliance.DaysCalculationFailed, rows[2].DaysUntilDue)
}

func TestBuild_EmptySnapshot(t *testing.T) {
	wl := newBuilder().Build(mustDate("2024-04-05"), compliance.Snapshot{}, 0)
	assert.Empty(t, wl.Overdue)
	assert.Empty(t, wl.Scheduled)
	assert.Equal(t, compliance.DefaultUpcomingWindowDays, wl.WindowDays)
}

func TestEvaluate_WindowChangesBucket(t *testing.T) {
	b := newBuilder()
	eq := equipment(1, "Quarterly")
	tests := []compliance.ComplianceTest{testRow(1, 1, "Annual", "2024-01-10")}
	today := mustDate("2024-04-05")

	assert.Equal(t, compliance.StatusCompliant, b.Evaluate(today, eq, tests, compliance.NewClassifier(10)).Status)
	assert.Equal(t, compliance.StatusUpcoming, b.Evaluate(today, eq, tests, compliance.NewClassifier(25)).Status)
}
