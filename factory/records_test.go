package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

var today = generic.NewDate(2024, time.April, 5)

func TestParseEquipment_FullRecord(t *testing.T) {
	// GIVEN: Equipment JSON with nested history and a schedule
	jsonStr := `{
		"eq_class": " CT ",
		"eq_mfg": "Siemens",
		"eq_fac": "Main Campus",
		"eq_auditfreq": ["Annual - ACR", "Quarterly"],
		"eq_retdate": "2030-06-30",
		"tests": [
			{"test_type": "annual", "test_date": "2024-01-15", "performed_by": " NB ", "report_date": "2024-01-20"}
		],
		"schedules": [
			{"scheduled_date": "2025-01-10", "notes": "booked"}
		]
	}`

	// WHEN: Parsed with a strict factory
	rec, err := NewRecordFactory(true).ParseEquipment(jsonStr, today)

	// THEN: Fields are trimmed, defaults applied, dates parsed
	require.NoError(t, err)
	eq := rec.Equipment
	assert.Equal(t, "CT", eq.Class)
	assert.Equal(t, []string{"Annual - ACR", "Quarterly"}, eq.AuditFrequencies)
	assert.True(t, eq.PhysicsCoverage, "coverage defaults to true")
	require.NotNil(t, eq.RetirementDate)
	assert.Equal(t, "2030-06-30", eq.RetirementDate.String())

	require.Len(t, rec.Tests, 1)
	assert.Equal(t, string(compliance.TestAnnual), rec.Tests[0].TestType)
	assert.Equal(t, "NB", rec.Tests[0].PerformedBy)
	assert.Equal(t, "2024-01-20", rec.Tests[0].ReportDate.String())
	assert.Nil(t, rec.Tests[0].SubmissionDate)

	require.Len(t, rec.Schedules, 1)
	assert.Equal(t, "2025-01-10", rec.Schedules[0].ScheduledDate.String())
	assert.Equal(t, today, rec.Schedules[0].SchedulingDate)
}

func TestParseEquipment_FrequencyStringForm(t *testing.T) {
	rec, err := NewRecordFactory(true).ParseEquipment(`{"eq_class":"MRI","eq_auditfreq":"Annual - ACR, Semiannual","eq_physcov":false}`, today)
	require.NoError(t, err)
	assert.Equal(t, []string{"Annual - ACR", "Semiannual"}, rec.Equipment.AuditFrequencies)
	assert.False(t, rec.Equipment.PhysicsCoverage)
}

func TestParseEquipment_StrictRejectsUnknownPolicy(t *testing.T) {
	jsonStr := `{"eq_class":"CT","eq_auditfreq":["Quarterly","Biennial"]}`

	_, err := NewRecordFactory(true).ParseEquipment(jsonStr, today)
	var policyErr *generic.UnknownPolicyError
	require.ErrorAs(t, err, &policyErr)
	assert.Equal(t, "Biennial", policyErr.Name)

	rec, err := NewRecordFactory(false).ParseEquipment(jsonStr, today)
	require.NoError(t, err, "lenient mode keeps unknown names")
	assert.Equal(t, []string{"Quarterly", "Biennial"}, rec.Equipment.AuditFrequencies)
}

func TestParseEquipment_ValidationErrors(t *testing.T) {
	f := NewRecordFactory(true)
	tests := []struct {
		name   string
		json   string
		target error
	}{
		{"missing class", `{"eq_mfg":"GE"}`, generic.ErrInvalidInput},
		{"bad retirement date", `{"eq_class":"CT","eq_retdate":"30/06/2030"}`, generic.ErrInvalidDate},
		{"bad test type", `{"eq_class":"CT","tests":[{"test_type":"Calibration","test_date":"2024-01-01"}]}`, generic.ErrUnknownTestType},
		{"missing test date", `{"eq_class":"CT","tests":[{"test_type":"Annual"}]}`, generic.ErrInvalidDate},
		{"missing scheduled date", `{"eq_class":"CT","schedules":[{"notes":"x"}]}`, generic.ErrInvalidDate},
		{"negative id", `{"id":-1,"eq_class":"CT"}`, generic.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.ParseEquipment(tt.json, today)
			assert.ErrorIs(t, err, tt.target)
			assert.True(t, generic.IsClientError(err))
		})
	}
}

func TestParseEquipment_UnknownFieldRejected(t *testing.T) {
	_, err := NewRecordFactory(true).ParseEquipment(`{"eq_class":"CT","eq_colour":"beige"}`, today)
	assert.Error(t, err)
}

func TestFromTestJSON_EquipmentIDOverride(t *testing.T) {
	f := NewRecordFactory(true)

	tst, err := f.FromTestJSON(TestJSON{EquipmentID: 3, TestType: "Acceptance", TestDate: "2024-02-01"}, 7)
	require.NoError(t, err)
	assert.Equal(t, generic.EquipmentID(7), tst.EquipmentID)

	tst, err = f.FromTestJSON(TestJSON{EquipmentID: 3, TestType: "Acceptance", TestDate: "2024-02-01"}, 0)
	require.NoError(t, err)
	assert.Equal(t, generic.EquipmentID(3), tst.EquipmentID)
}

func TestFromScheduleJSON_ExplicitSchedulingDate(t *testing.T) {
	s, err := NewRecordFactory(true).FromScheduleJSON(ScheduleJSON{ScheduledDate: "2024-06-01", SchedulingDate: "2024-03-01"}, 2, today)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", s.SchedulingDate.String())
	assert.Equal(t, generic.EquipmentID(2), s.EquipmentID)

	_, err = NewRecordFactory(true).FromScheduleJSON(ScheduleJSON{ScheduledDate: "2024-06-01", SchedulingDate: "March"}, 2, today)
	assert.ErrorIs(t, err, generic.ErrInvalidDate)
}

func TestParseDataset(t *testing.T) {
	records, err := NewRecordFactory(false).ParseDataset(`[
		{"eq_class":"CT","eq_auditfreq":"Annual - TJC"},
		{"eq_class":"MRI","eq_retired":true}
	]`, today)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.True(t, records[1].Equipment.Retired)

	_, err = NewRecordFactory(false).ParseDataset(`[{"eq_class":"CT"},{"eq_mfg":"GE"}]`, today)
	assert.ErrorContains(t, err, "equipment[1]")
}

func TestToEquipmentJSON(t *testing.T) {
	eq := compliance.Equipment{
		ID:               4,
		Class:            "Fluoroscopy",
		AuditFrequencies: []string{"Semiannual, Annual - TJC"},
		RetirementDate:   generic.NewDate(2026, time.January, 1).Ptr(),
	}

	ej := ToEquipmentJSON(eq)

	assert.Equal(t, int64(4), ej.ID)
	assert.Equal(t, FrequencyList{"Semiannual", "Annual - TJC"}, ej.AuditFrequency)
	require.NotNil(t, ej.PhysicsCoverage)
	assert.False(t, *ej.PhysicsCoverage)
	assert.Equal(t, "2026-01-01", ej.RetirementDate)

	// Round trip through the factory keeps the record
	rec, err := NewRecordFactory(true).FromEquipmentJSON(ej, today)
	require.NoError(t, err)
	assert.Equal(t, eq.ID, rec.Equipment.ID)
	assert.Equal(t, []string{"Semiannual", "Annual - TJC"}, rec.Equipment.AuditFrequencies)
}
