package compliance

import (
	"github.com/shopspring/decimal"

	"github.com/warp/physics-compliance/generic"
)

// Summary is the dashboard view of a worklist: counts per bucket plus the
// share of classified equipment that is not overdue.
type Summary struct {
	AsOf        generic.Date
	WindowDays  int
	Overdue     int
	Upcoming    int
	Compliant   int
	NoFrequency int
	Scheduled   int

	// ComplianceRate is (Upcoming+Compliant) / (Overdue+Upcoming+Compliant)
	// as a percentage with one decimal place. Equipment without a due date
	// is left out of both sides. Zero when nothing is classified.
	ComplianceRate decimal.Decimal
}

var hundred = decimal.NewFromInt(100)

// Summarize counts a worklist.
func Summarize(wl Worklist) Summary {
	s := Summary{
		AsOf:        wl.AsOf,
		WindowDays:  wl.WindowDays,
		Overdue:     len(wl.Overdue),
		Upcoming:    len(wl.Upcoming),
		Compliant:   len(wl.Compliant),
		NoFrequency: len(wl.NoFrequency),
		Scheduled:   len(wl.Scheduled),
	}

	classified := s.Overdue + s.Upcoming + s.Compliant
	if classified == 0 {
		s.ComplianceRate = decimal.Zero
		return s
	}
	ok := decimal.NewFromInt(int64(s.Upcoming + s.Compliant))
	s.ComplianceRate = ok.Mul(hundred).Div(decimal.NewFromInt(int64(classified))).Round(1)
	return s
}

// Total is the number of active equipment counted.
func (s Summary) Total() int {
	return s.Overdue + s.Upcoming + s.Compliant + s.NoFrequency
}
