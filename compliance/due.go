/*
due.go - Next-due-date calculation

PURPOSE:
  Turns an equipment's configured policies and its test history into a
  single next due date.

ALGORITHM:
  1. Anchor = latest test (max TestDate) whose type is acceptance/annual.
     No anchor -> nil.
  2. No configured policies -> nil, even with an anchor.
  3. Apply every configured policy to the anchor. Unknown names are skipped.
  4. Earliest due date wins: the equipment is due as soon as any one of its
     regulatory regimes requires a test.
  5. All names unknown -> nil.

A nil due date is not a failure. New equipment has no anchor yet and shows
up as NoFrequency.

SEE ALSO:
  - frequency.go: Single-policy math
  - classify.go: Turns the due date into a status
*/
package compliance

import (
	"log/slog"

	"github.com/warp/physics-compliance/generic"
)

// Calculator computes due dates. The zero value is usable and logs to slog.Default().
type Calculator struct {
	Logger *slog.Logger
}

// NewCalculator creates a calculator logging to logger (nil = slog.Default()).
func NewCalculator(logger *slog.Logger) *Calculator {
	return &Calculator{Logger: logger}
}

func (c *Calculator) logger() *slog.Logger {
	if c == nil || c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

// LatestQualifyingTest returns the acceptance/annual test with the greatest
// TestDate for the equipment, or nil. History rows belonging to other
// equipment are ignored. On equal dates the first row seen wins.
func LatestQualifyingTest(id generic.EquipmentID, history []ComplianceTest) *ComplianceTest {
	var latest *ComplianceTest
	for i := range history {
		t := &history[i]
		if t.EquipmentID != id || !IsQualifying(t.TestType) {
			continue
		}
		if latest == nil || t.TestDate.After(latest.TestDate) {
			latest = t
		}
	}
	if latest == nil {
		return nil
	}
	found := *latest
	return &found
}

// LastTested returns the anchor test's date, or nil when there is none.
func (c *Calculator) LastTested(eq Equipment, history []ComplianceTest) *generic.Date {
	latest := LatestQualifyingTest(eq.ID, history)
	if latest == nil {
		return nil
	}
	return latest.TestDate.Ptr()
}

// PolicyDue is one policy's contribution to the next due date.
type PolicyDue struct {
	Frequency Frequency
	DueDate   generic.Date
}

// Breakdown applies every configured, known policy to the anchor. Unknown
// policy names are skipped and logged at debug level.
func (c *Calculator) Breakdown(eq Equipment, anchor generic.Date) []PolicyDue {
	var dues []PolicyDue
	for _, name := range FlattenFrequencies(eq.AuditFrequencies) {
		due, err := PolicyDueDate(name, anchor)
		if err != nil {
			c.logger().Debug("skipping audit frequency",
				"equipment_id", eq.ID, "policy", name, "error", err)
			continue
		}
		dues = append(dues, PolicyDue{Frequency: Frequency(name), DueDate: due})
	}
	return dues
}

// NextDue returns the earliest due date across the equipment's policies.
// It returns (nil, nil) when there is no anchor test or no usable policy.
// A *generic.CalculationError is returned only for malformed data, such as
// an anchor test without a date.
func (c *Calculator) NextDue(eq Equipment, history []ComplianceTest) (*generic.Date, error) {
	latest := LatestQualifyingTest(eq.ID, history)
	if latest == nil {
		return nil, nil
	}
	if len(FlattenFrequencies(eq.AuditFrequencies)) == 0 {
		return nil, nil
	}
	if latest.TestDate.IsZero() {
		return nil, &generic.CalculationError{EquipmentID: eq.ID, Err: generic.ErrInvalidDate}
	}

	dues := c.Breakdown(eq, latest.TestDate)
	dates := make([]generic.Date, len(dues))
	for i, d := range dues {
		dates[i] = d.DueDate
	}
	return generic.MinDate(dates...), nil
}
