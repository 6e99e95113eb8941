package generic

// =============================================================================
// PERIOD - Inclusive date window
// =============================================================================

// Period is the closed interval [Start, End] of calendar days.
//
// Examples:
//   - Upcoming window: today .. today+90
//   - Report range:    Jan 1 .. Dec 31
type Period struct {
	Start Date
	End   Date
}

// WindowFrom returns the period [start, start+days].
func WindowFrom(start Date, days int) Period {
	return Period{Start: start, End: start.AddDays(days)}
}

// Contains returns true if the date is within the period [Start, End]
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Validate rejects periods whose end is before their start.
func (p Period) Validate() error {
	if p.End.Before(p.Start) {
		return ErrInvalidPeriod
	}
	return nil
}

// Days returns the number of days spanned, counting both ends.
func (p Period) Days() int {
	return DaysBetween(p.Start, p.End) + 1
}

// String returns a string representation of the period.
func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}
