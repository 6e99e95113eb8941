package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// EQUIPMENT STATE
// =============================================================================

func TestEquipment_IsActive(t *testing.T) {
	today := mustDate("2024-04-05")

	eq := equipment(1, "Quarterly")
	assert.True(t, eq.IsActive(today))

	eq.PhysicsCoverage = false
	assert.False(t, eq.IsActive(today), "no physics coverage")

	eq = equipment(1, "Quarterly")
	eq.Retired = true
	assert.False(t, eq.IsActive(today), "retired flag")

	eq = equipment(1, "Quarterly")
	eq.RetirementDate = mustDate("2024-04-06").Ptr()
	assert.True(t, eq.IsActive(today), "retires tomorrow")
	assert.True(t, eq.IsRetired(mustDate("2024-04-06")))
}

// =============================================================================
// TEST TYPES
// =============================================================================

func TestParseTestType(t *testing.T) {
	tests := map[string]compliance.TestType{
		"Annual":           compliance.TestAnnual,
		"acceptance":       compliance.TestAcceptance,
		"qc_review":        compliance.TestQCReview,
		"Shielding Design": compliance.TestShieldingDesign,
		" SUBMISSION ":     compliance.TestSubmission,
	}
	for raw, want := range tests {
		got, err := compliance.ParseTestType(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	_, err := compliance.ParseTestType("Calibration")
	assert.ErrorIs(t, err, generic.ErrUnknownTestType)
	assert.True(t, generic.IsClientError(err))
}

func TestDisplayTestType(t *testing.T) {
	assert.Equal(t, "QC Review", compliance.DisplayTestType("qc_review"))
	assert.Equal(t, "Legacy Thing", compliance.DisplayTestType("Legacy Thing"))
}

func TestIsQualifying(t *testing.T) {
	assert.True(t, compliance.IsQualifying("Annual"))
	assert.True(t, compliance.IsQualifying("acceptance"))
	assert.True(t, compliance.IsQualifying("ANNUAL"))
	assert.False(t, compliance.IsQualifying("Audit"))
	assert.False(t, compliance.IsQualifying("QC Review"))
	assert.False(t, compliance.IsQualifying(""))
}

func TestRecordStatus(t *testing.T) {
	today := mustDate("2024-04-05")
	assert.Equal(t, compliance.RecordScheduled, testRow(1, 1, "Annual", "2024-04-06").RecordStatus(today))
	assert.Equal(t, compliance.RecordCompleted, testRow(1, 1, "Annual", "2024-04-05").RecordStatus(today))
}

// =============================================================================
// FILTER
// =============================================================================

func TestFilter(t *testing.T) {
	ct := compliance.Equipment{ID: 1, Class: "CT", Subclass: "Diagnostic", Facility: "Main Hospital", Model: "Revolution", Room: "B12"}
	mri := compliance.Equipment{ID: 2, Class: "MRI", Facility: "Outpatient Center", SerialNumber: "SN-778"}
	all := []compliance.Equipment{ct, mri}

	assert.True(t, compliance.Filter{}.IsEmpty())
	assert.Len(t, compliance.Filter{}.Apply(all), 2)

	assert.Equal(t, []compliance.Equipment{ct}, compliance.Filter{Class: "ct"}.Apply(all))
	assert.Equal(t, []compliance.Equipment{mri}, compliance.Filter{Facility: "outpatient"}.Apply(all))
	assert.Equal(t, []compliance.Equipment{mri}, compliance.Filter{Search: "sn-77"}.Apply(all))
	assert.Equal(t, []compliance.Equipment{ct}, compliance.Filter{Search: "b12"}.Apply(all))
	assert.Empty(t, compliance.Filter{Class: "CT", Facility: "Outpatient"}.Apply(all))
	assert.False(t, compliance.Filter{Subclass: "Interventional"}.Match(ct))
}

// =============================================================================
// AUDIT INITIALS
// =============================================================================

func TestInitials(t *testing.T) {
	tests := map[string]string{
		"Bevins, Nick":       "NB",
		"Nick Bevins":        "NB",
		"nick.bevins":        "NB",
		"mary_ann_o_neil":    "MAO",
		"Smith, John Robert": "JRS",
		"":                   "",
		"   ":                "",
	}
	for name, want := range tests {
		assert.Equal(t, want, compliance.Initials(name), "name %q", name)
	}
}
