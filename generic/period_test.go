package generic_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/physics-compliance/generic"
)

func TestWindowFrom_InclusiveBounds(t *testing.T) {
	// GIVEN: A 90-day window starting 2024-04-01
	today := date(2024, time.April, 1)
	w := generic.WindowFrom(today, 90)

	// THEN: Both ends are inside, the days around them are not
	assert.True(t, w.Contains(today))
	assert.True(t, w.Contains(today.AddDays(90)))
	assert.False(t, w.Contains(today.AddDays(91)))
	assert.False(t, w.Contains(today.AddDays(-1)))
	assert.Equal(t, 91, w.Days())
}

func TestPeriodValidate(t *testing.T) {
	ok := generic.Period{Start: date(2024, time.January, 1), End: date(2024, time.December, 31)}
	assert.NoError(t, ok.Validate())

	bad := generic.Period{Start: date(2024, time.December, 31), End: date(2024, time.January, 1)}
	assert.ErrorIs(t, bad.Validate(), generic.ErrInvalidPeriod)
}

func TestPeriodString(t *testing.T) {
	p := generic.WindowFrom(date(2024, time.January, 1), 30)
	assert.Equal(t, "[2024-01-01, 2024-01-31]", p.String())
}

func TestErrorHelpers(t *testing.T) {
	calc := &generic.CalculationError{EquipmentID: 7, Err: generic.ErrInvalidDate}
	assert.ErrorIs(t, calc, generic.ErrCalculationFailure)
	assert.ErrorIs(t, calc, generic.ErrInvalidDate)
	assert.Contains(t, calc.Error(), "equipment 7")

	policy := &generic.UnknownPolicyError{Name: "Biennial"}
	assert.ErrorIs(t, policy, generic.ErrUnknownPolicy)
	assert.True(t, generic.IsClientError(policy))

	v := &generic.ValidationError{Field: "eq_class"}
	assert.ErrorIs(t, v, generic.ErrInvalidInput)
	assert.Equal(t, "eq_class: invalid input", v.Error())

	assert.True(t, generic.IsNotFound(generic.ErrScheduleNotFound))
	assert.False(t, generic.IsNotFound(generic.ErrInvalidInput))
}

func TestParseIDs(t *testing.T) {
	id, err := generic.ParseEquipmentID("42")
	assert.NoError(t, err)
	assert.Equal(t, generic.EquipmentID(42), id)

	for _, bad := range []string{"", "0", "-3", "abc"} {
		_, err := generic.ParseEquipmentID(bad)
		assert.ErrorIs(t, err, generic.ErrInvalidInput, "input %q", bad)
	}

	n, err := generic.ParseID("test_id", "9")
	assert.NoError(t, err)
	assert.Equal(t, int64(9), n)
}
