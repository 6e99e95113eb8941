package compliance_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

func rankedIDs(rows []compliance.RankedEquipment) []generic.EquipmentID {
	ids := make([]generic.EquipmentID, len(rows))
	for i, r := range rows {
		ids[i] = r.Equipment.ID
	}
	return ids
}

func TestDaysUntilDue_Sentinels(t *testing.T) {
	b := newBuilder()
	today := mustDate("2024-04-05")

	retired := equipment(1, "Quarterly")
	retired.Retired = true
	assert.Equal(t, compliance.DaysRetired, b.DaysUntilDue(today, retired, nil))

	assert.Equal(t, compliance.DaysNoDueDate, b.DaysUntilDue(today, equipment(2, "Quarterly"), nil))

	broken := []compliance.ComplianceTest{{ID: 1, EquipmentID: 3, TestType: "Annual"}}
	assert.Equal(t, compliance.DaysCalculationFailed, b.DaysUntilDue(today, equipment(3, "Quarterly"), broken))

	ok := []compliance.ComplianceTest{testRow(1, 4, "Annual", "2024-01-10")}
	assert.Equal(t, 25, b.DaysUntilDue(today, equipment(4, "Quarterly"), ok))
}

func TestRank_AscendingWithSentinelsLast(t *testing.T) {
	// GIVEN: The standard fleet, retired and uncovered units included
	snap := fleet()
	today := mustDate("2024-04-05")

	// WHEN: Ranked ascending
	rows := newBuilder().Rank(today, snap.Equipment, snap.Tests, 90, false)

	// THEN: Overdue first, then upcoming, compliant, no due date, retired
	assert.Equal(t, []generic.EquipmentID{6, 1, 2, 3, 4, 5}, rankedIDs(rows))

	byID := map[generic.EquipmentID]compliance.RankedEquipment{}
	for _, r := range rows {
		byID[r.Equipment.ID] = r
	}
	assert.Equal(t, compliance.StatusRetired, byID[5].Status)
	assert.Equal(t, compliance.DaysRetired, byID[5].DaysUntilDue)
	assert.Nil(t, byID[5].DueDate)
	assert.Equal(t, "2020-01-01", dateStr(byID[5].LastTested))
	assert.Equal(t, compliance.DaysNoDueDate, byID[4].DaysUntilDue)
	assert.Equal(t, compliance.StatusNoFrequency, byID[4].Status)
	assert.Equal(t, -51, byID[1].DaysUntilDue)
}

func TestRank_LogsEachFailureOnce(t *testing.T) {
	// GIVEN: A builder logging to a buffer and one broken anchor
	var buf bytes.Buffer
	b := compliance.NewWorklistBuilder(slog.New(slog.NewTextHandler(&buf, nil)), 0)
	tests := map[generic.EquipmentID][]compliance.ComplianceTest{
		1: {{ID: 1, EquipmentID: 1, TestType: "Annual"}},
	}

	// WHEN: Ranked
	rows := b.Rank(mustDate("2024-04-05"), []compliance.Equipment{equipment(1, "Quarterly")}, tests, 90, false)

	// THEN: The sentinel is set and the warning appears once
	require.Len(t, rows, 1)
	assert.Equal(t, compliance.DaysCalculationFailed, rows[0].DaysUntilDue)
	assert.Equal(t, compliance.StatusNoFrequency, rows[0].Status)
	assert.Equal(t, 1, strings.Count(buf.String(), "due date calculation failed"))
}

func TestRank_DescendingKeepsIDTieBreak(t *testing.T) {
	today := mustDate("2024-04-05")
	equipmentList := []compliance.Equipment{equipment(3), equipment(1), equipment(2)}

	rows := newBuilder().Rank(today, equipmentList, nil, 90, true)

	require.Len(t, rows, 3)
	assert.Equal(t, []generic.EquipmentID{1, 2, 3}, rankedIDs(rows))
}

// =============================================================================
// PAGINATION
// =============================================================================

func TestPaginate(t *testing.T) {
	tests := []struct {
		name                   string
		total, page, perPage   int
		wantStart, wantEnd     int
		wantPages, wantPerPage int
	}{
		{"first page", 60, 1, 25, 0, 25, 3, 25},
		{"last partial page", 60, 3, 25, 50, 60, 3, 25},
		{"past the end", 60, 9, 25, 60, 60, 3, 25},
		{"defaults", 10, 0, 0, 0, 10, 1, compliance.DefaultPerPage},
		{"capped", 5000, 2, 5000, 1000, 2000, 5, compliance.MaxPerPage},
		{"empty", 0, 1, 25, 0, 0, 0, 25},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := compliance.Paginate(tt.total, tt.page, tt.perPage)
			assert.Equal(t, tt.wantStart, p.Start)
			assert.Equal(t, tt.wantEnd, p.End)
			assert.Equal(t, tt.wantPages, p.Pages)
			assert.Equal(t, tt.wantPerPage, p.PerPage)
		})
	}
}

func TestPage_Navigation(t *testing.T) {
	p := compliance.Paginate(60, 2, 25)
	assert.True(t, p.HasPrev())
	assert.True(t, p.HasNext())

	last := compliance.Paginate(60, 3, 25)
	assert.False(t, last.HasNext())
	assert.False(t, compliance.Paginate(60, 1, 25).HasPrev())
}
