package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

func TestDetail_ActiveEquipment(t *testing.T) {
	// GIVEN: Equipment with two policies, mixed history and schedules
	eq := equipment(1, "Quarterly", "Annual - TJC")
	tests := []compliance.ComplianceTest{
		testRow(1, 1, "Acceptance", "2023-01-05"),
		testRow(3, 1, "QC Review", "2024-01-10"),
		testRow(2, 1, "Annual", "2024-01-10"),
		testRow(4, 1, "Other", "2024-02-01"),
	}
	schedules := []compliance.ScheduledTest{
		schedule(1, 1, "2024-01-20"), // superseded
		schedule(2, 1, "2024-04-25"),
	}

	// WHEN: The detail view is built on 2024-04-05
	d := newBuilder().Detail(mustDate("2024-04-05"), eq, tests, schedules, 90)

	// THEN: Status and due date follow the earliest policy
	assert.False(t, d.Retired)
	assert.Equal(t, compliance.StatusUpcoming, d.Status)
	assert.Equal(t, "2024-04-30", dateStr(d.NextDue))
	assert.Equal(t, "2024-01-10", dateStr(d.LastTested))

	require.Len(t, d.Policies, 2)
	assert.Equal(t, "2024-04-30", d.Policies[0].DueDate.String())
	assert.Equal(t, "2025-02-09", d.Policies[1].DueDate.String())

	// History is newest first, ties by id descending
	ids := make([]generic.TestID, len(d.History))
	for i, h := range d.History {
		ids[i] = h.ID
	}
	assert.Equal(t, []generic.TestID{4, 3, 2, 1}, ids)

	require.Len(t, d.ActiveSchedules, 1)
	assert.Equal(t, generic.ScheduleID(2), d.ActiveSchedules[0].ID)
}

func TestDetail_RetiredEquipment(t *testing.T) {
	eq := equipment(1, "Quarterly")
	eq.Retired = true
	tests := []compliance.ComplianceTest{testRow(1, 1, "Annual", "2023-01-10")}

	d := newBuilder().Detail(mustDate("2024-04-05"), eq, tests, nil, 90)

	assert.True(t, d.Retired)
	assert.Equal(t, compliance.StatusRetired, d.Status)
	assert.Nil(t, d.NextDue)
	assert.Equal(t, "2023-01-10", dateStr(d.LastTested))
	require.Len(t, d.Policies, 1)
	assert.Len(t, d.History, 1)
}

func TestDetail_NeverTested(t *testing.T) {
	eq := equipment(1, "Annual - ACR")
	d := newBuilder().Detail(mustDate("2024-04-05"), eq, nil, []compliance.ScheduledTest{schedule(1, 1, "2024-05-01")}, 90)

	assert.Equal(t, compliance.StatusNoFrequency, d.Status)
	assert.Nil(t, d.NextDue)
	assert.Empty(t, d.Policies)
	assert.Len(t, d.ActiveSchedules, 1)
}
