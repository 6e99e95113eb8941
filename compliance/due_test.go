package compliance_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// ANCHOR SELECTION
// =============================================================================

func TestLatestQualifyingTest_IgnoresNonQualifyingTypes(t *testing.T) {
	// GIVEN: An annual test followed by later non-qualifying tests
	history := []compliance.ComplianceTest{
		testRow(1, 1, "Annual", "2023-06-01"),
		testRow(2, 1, "QC Review", "2024-01-01"),
		testRow(3, 1, "Shielding Design", "2024-02-01"),
		testRow(4, 1, "Other", "2024-03-01"),
	}

	// WHEN: The anchor is selected
	latest := compliance.LatestQualifyingTest(1, history)

	// THEN: The annual test anchors, regardless of later paperwork
	require.NotNil(t, latest)
	assert.Equal(t, generic.TestID(1), latest.ID)
}

func TestLatestQualifyingTest_CaseInsensitiveTypes(t *testing.T) {
	history := []compliance.ComplianceTest{
		testRow(1, 1, "acceptance", "2022-01-01"),
		testRow(2, 1, "ANNUAL", "2023-01-01"),
	}
	latest := compliance.LatestQualifyingTest(1, history)
	require.NotNil(t, latest)
	assert.Equal(t, "2023-01-01", latest.TestDate.String())
}

func TestLatestQualifyingTest_MaxDateNotInsertionOrder(t *testing.T) {
	history := []compliance.ComplianceTest{
		testRow(5, 1, "Annual", "2024-03-01"),
		testRow(6, 1, "Annual", "2023-03-01"),
		testRow(7, 2, "Annual", "2025-01-01"), // other equipment
	}
	latest := compliance.LatestQualifyingTest(1, history)
	require.NotNil(t, latest)
	assert.Equal(t, generic.TestID(5), latest.ID)
}

func TestLatestQualifyingTest_None(t *testing.T) {
	assert.Nil(t, compliance.LatestQualifyingTest(1, nil))
	assert.Nil(t, compliance.LatestQualifyingTest(1, []compliance.ComplianceTest{
		testRow(1, 1, "Audit", "2024-01-01"),
	}))
}

// =============================================================================
// NEXT DUE
// =============================================================================

func TestNextDue_EarliestPolicyWins(t *testing.T) {
	// GIVEN: Quarterly and TJC, last annual test 2024-01-10
	calc := compliance.NewCalculator(quietLogger())
	eq := equipment(1, "Quarterly", "Annual - TJC")
	history := []compliance.ComplianceTest{testRow(1, 1, "Annual", "2024-01-10")}

	// WHEN: Next due is computed
	due, err := calc.NextDue(eq, history)

	// THEN: Quarterly (2024-04-30) beats TJC (2025-02-09)
	require.NoError(t, err)
	assert.Equal(t, "2024-04-30", dateStr(due))

	breakdown := calc.Breakdown(eq, mustDate("2024-01-10"))
	require.Len(t, breakdown, 2)
	assert.Equal(t, compliance.FrequencyQuarterly, breakdown[0].Frequency)
	assert.Equal(t, "2025-02-09", breakdown[1].DueDate.String())
}

func TestNextDue_CommaSeparatedStoredForm(t *testing.T) {
	calc := compliance.NewCalculator(quietLogger())
	eq := equipment(1, "Annual - ME, Semiannual")
	due, err := calc.NextDue(eq, []compliance.ComplianceTest{testRow(1, 1, "Acceptance", "2024-02-15")})
	require.NoError(t, err)
	assert.Equal(t, "2024-08-31", dateStr(due))
}

func TestNextDue_UnknownPoliciesSkipped(t *testing.T) {
	calc := compliance.NewCalculator(quietLogger())
	history := []compliance.ComplianceTest{testRow(1, 1, "Annual", "2024-01-10")}

	// GIVEN: One unknown and one known policy
	due, err := calc.NextDue(equipment(1, "Biennial", "Annual - ACR"), history)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", dateStr(due))

	// GIVEN: Only unknown policies
	due, err = calc.NextDue(equipment(1, "Monthly"), history)
	require.NoError(t, err)
	assert.Nil(t, due)
}

func TestNextDue_NilWithoutAnchorOrPolicies(t *testing.T) {
	calc := compliance.NewCalculator(quietLogger())

	due, err := calc.NextDue(equipment(1, "Annual - TJC"), nil)
	require.NoError(t, err)
	assert.Nil(t, due, "no anchor test")

	due, err = calc.NextDue(equipment(1), []compliance.ComplianceTest{testRow(1, 1, "Annual", "2024-01-10")})
	require.NoError(t, err)
	assert.Nil(t, due, "no configured policy")
}

func TestNextDue_ZeroAnchorDateIsCalculationError(t *testing.T) {
	calc := compliance.NewCalculator(quietLogger())
	history := []compliance.ComplianceTest{{ID: 1, EquipmentID: 3, TestType: "Annual"}}

	_, err := calc.NextDue(equipment(3, "Quarterly"), history)

	var calcErr *generic.CalculationError
	require.ErrorAs(t, err, &calcErr)
	assert.Equal(t, generic.EquipmentID(3), calcErr.EquipmentID)
	assert.ErrorIs(t, err, generic.ErrCalculationFailure)
}

func TestLastTested(t *testing.T) {
	var calc *compliance.Calculator // zero value is usable
	eq := equipment(1, "Quarterly")
	assert.Nil(t, calc.LastTested(eq, nil))

	last := calc.LastTested(eq, []compliance.ComplianceTest{testRow(1, 1, "Annual", "2024-01-10")})
	assert.Equal(t, "2024-01-10", dateStr(last))
}
