package compliance

import (
	"sort"

	"github.com/warp/physics-compliance/generic"
)

// EquipmentDetail is the single-equipment view: due date, per-policy
// breakdown, history and live schedules.
type EquipmentDetail struct {
	Equipment  Equipment
	Retired    bool
	Status     Status
	NextDue    *generic.Date // nil for retired equipment
	LastTested *generic.Date
	Policies   []PolicyDue

	History         []ComplianceTest // newest first
	ActiveSchedules []ScheduledTest
}

// Detail assembles the detail view. Calculation failures degrade the same
// way they do in Build.
func (b *WorklistBuilder) Detail(today generic.Date, eq Equipment, tests []ComplianceTest, schedules []ScheduledTest, windowDays int) EquipmentDetail {
	d := EquipmentDetail{
		Equipment: eq,
		Retired:   eq.IsRetired(today),
	}

	for _, t := range tests {
		if t.EquipmentID == eq.ID {
			d.History = append(d.History, t)
		}
	}
	sort.SliceStable(d.History, func(i, j int) bool {
		a, c := d.History[i], d.History[j]
		if cmp := a.TestDate.Compare(c.TestDate); cmp != 0 {
			return cmp > 0
		}
		return a.ID > c.ID
	})

	if d.Retired {
		d.Status = StatusRetired
		d.LastTested = b.Calculator.LastTested(eq, tests)
	} else {
		entry := b.Evaluate(today, eq, tests, NewClassifier(windowDays))
		d.Status = entry.Status
		d.NextDue = entry.DueDate
		d.LastTested = entry.LastTested
	}
	if d.LastTested != nil {
		d.Policies = b.Calculator.Breakdown(eq, *d.LastTested)
	}
	d.ActiveSchedules = b.Reconciler.ActiveSchedules(eq, schedules, d.LastTested)
	return d
}
