package compliance

import (
	"sort"

	"github.com/warp/physics-compliance/generic"
)

// Sentinel day counts that push rows without a usable due date to the end
// of an ascending days-until-due ordering.
const (
	DaysRetired           = 9999
	DaysNoDueDate         = 9998
	DaysCalculationFailed = 9997
)

// RankedEquipment is one row of the equipment list.
type RankedEquipment struct {
	Equipment    Equipment
	Status       Status
	DueDate      *generic.Date
	LastTested   *generic.Date
	DaysUntilDue int // signed; a sentinel when DueDate is nil
}

// DaysUntilDue returns the signed number of days from today to the next due
// date, or one of the sentinels.
func (b *WorklistBuilder) DaysUntilDue(today generic.Date, eq Equipment, tests []ComplianceTest) int {
	if eq.IsRetired(today) {
		return DaysRetired
	}
	due, _, err := b.compute(eq, tests)
	return rankDays(today, due, err)
}

func rankDays(today generic.Date, due *generic.Date, err error) int {
	switch {
	case err != nil:
		return DaysCalculationFailed
	case due == nil:
		return DaysNoDueDate
	default:
		return generic.DaysBetween(today, *due)
	}
}

// Rank evaluates every equipment, retired ones included, and orders them by
// days until due. Ties keep equipment id order in both directions.
func (b *WorklistBuilder) Rank(today generic.Date, equipment []Equipment, tests map[generic.EquipmentID][]ComplianceTest, windowDays int, descending bool) []RankedEquipment {
	classifier := NewClassifier(windowDays)
	rows := make([]RankedEquipment, 0, len(equipment))
	for _, eq := range equipment {
		row := RankedEquipment{Equipment: eq}
		switch {
		case eq.IsRetired(today):
			row.Status = StatusRetired
			row.DaysUntilDue = DaysRetired
			row.LastTested = b.Calculator.LastTested(eq, tests[eq.ID])
		default:
			entry, err := b.evaluate(today, eq, tests[eq.ID], classifier)
			row.Status = entry.Status
			row.DueDate = entry.DueDate
			row.LastTested = entry.LastTested
			row.DaysUntilDue = rankDays(today, entry.DueDate, err)
		}
		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, c := rows[i], rows[j]
		if a.DaysUntilDue != c.DaysUntilDue {
			if descending {
				return a.DaysUntilDue > c.DaysUntilDue
			}
			return a.DaysUntilDue < c.DaysUntilDue
		}
		return a.Equipment.ID < c.Equipment.ID
	})
	return rows
}

// Pagination defaults for ranked lists.
const (
	DefaultPerPage = 25
	MaxPerPage     = 1000
)

// Page describes one slice of a ranked list.
type Page struct {
	Page    int
	PerPage int
	Pages   int
	Total   int
	Start   int // inclusive index into the full list
	End     int // exclusive
}

// HasPrev and HasNext support pager links.
func (p Page) HasPrev() bool { return p.Page > 1 }
func (p Page) HasNext() bool { return p.Page < p.Pages }

// Paginate computes bounds for page (1-based) of perPage rows out of total.
// perPage < 1 uses DefaultPerPage and is capped at MaxPerPage; page < 1 is 1.
// A page past the end yields an empty range.
func Paginate(total, page, perPage int) Page {
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}
	p := Page{Page: page, PerPage: perPage, Total: total}
	p.Pages = (total + perPage - 1) / perPage
	p.Start = (page - 1) * perPage
	if p.Start > total {
		p.Start = total
	}
	p.End = p.Start + perPage
	if p.End > total {
		p.End = total
	}
	return p
}
