package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

func TestReconciler_BufferBoundary(t *testing.T) {
	// GIVEN: Last tested 2024-05-01 and the default 30-day buffer
	r := compliance.Reconciler{}
	last := mustDate("2024-05-01").Ptr()

	// THEN: 31 days later is active, exactly 30 days later is not
	assert.True(t, r.IsActive(schedule(1, 1, "2024-06-01"), last))
	assert.False(t, r.IsActive(schedule(2, 1, "2024-05-31"), last))
	assert.False(t, r.IsActive(schedule(3, 1, "2024-05-20"), last))
	assert.False(t, r.IsActive(schedule(4, 1, "2024-04-01"), last))
}

func TestReconciler_NeverTestedAlwaysActive(t *testing.T) {
	r := compliance.Reconciler{}
	assert.True(t, r.IsActive(schedule(1, 1, "2020-01-01"), nil))
}

func TestReconciler_CustomBuffer(t *testing.T) {
	r := compliance.Reconciler{BufferDays: 7}
	last := mustDate("2024-05-01").Ptr()
	assert.True(t, r.IsActive(schedule(1, 1, "2024-05-09"), last))
	assert.False(t, r.IsActive(schedule(2, 1, "2024-05-08"), last))
}

func TestActiveSchedules_FiltersAndSorts(t *testing.T) {
	// GIVEN: Mixed schedules for two pieces of equipment
	r := compliance.Reconciler{}
	eq := equipment(1, "Annual - TJC")
	all := []compliance.ScheduledTest{
		schedule(10, 1, "2024-09-01"),
		schedule(11, 1, "2024-05-20"), // superseded
		schedule(12, 2, "2024-07-01"), // other equipment
		schedule(13, 1, "2024-06-01"),
		schedule(9, 1, "2024-06-01"),
	}

	// WHEN: Reconciled against the 2024-05-01 test
	active := r.ActiveSchedules(eq, all, mustDate("2024-05-01").Ptr())

	// THEN: Only live entries for equipment 1, by date then id
	require.Len(t, active, 3)
	assert.Equal(t, generic.ScheduleID(9), active[0].ID)
	assert.Equal(t, generic.ScheduleID(13), active[1].ID)
	assert.Equal(t, generic.ScheduleID(10), active[2].ID)

	earliest := r.EarliestActiveSchedule(eq, all, mustDate("2024-05-01").Ptr())
	require.NotNil(t, earliest)
	assert.Equal(t, generic.ScheduleID(9), earliest.ID)
}

func TestEarliestActiveSchedule_None(t *testing.T) {
	r := compliance.Reconciler{}
	got := r.EarliestActiveSchedule(equipment(1), []compliance.ScheduledTest{schedule(1, 1, "2024-05-10")}, mustDate("2024-05-01").Ptr())
	assert.Nil(t, got)
}
