/*
worklist.go - Compliance worklists

PURPOSE:
  Runs the calculator, classifier and reconciler over every active piece of
  equipment in a snapshot and returns presentation-ready lists.

OUTPUT:
  Overdue:      due <  today, earliest first
  Upcoming:     today <= due <= today+window, earliest first
  Compliant:    due >  today+window, earliest first
  NoFrequency:  no due date (or calculation failed), by equipment id
  Scheduled:    active schedules dated today or later, by scheduled date

  An equipment can be Upcoming and have a Scheduled entry at the same time;
  the two are computed independently. Ties on dates are broken by
  equipment id so output is deterministic.

FAILURE ISOLATION:
  A calculation error, or a panic, for one equipment puts that equipment in
  NoFrequency and is logged. Build never returns an error.

CONCURRENCY:
  Build reads its inputs and mutates nothing, so concurrent builds over
  independent snapshots need no locking.

SEE ALSO:
  - due.go, classify.go, schedule.go: The per-equipment steps
  - repository.go: LoadSnapshot
  - summary.go: Dashboard counts from a worklist
*/
package compliance

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/warp/physics-compliance/generic"
)

// Snapshot is everything a build needs, already fetched.
type Snapshot struct {
	Equipment []Equipment
	Tests     map[generic.EquipmentID][]ComplianceTest
	Schedules map[generic.EquipmentID][]ScheduledTest
}

// DueEntry is one equipment row in a due-date bucket.
type DueEntry struct {
	Equipment    Equipment
	Status       Status
	DueDate      *generic.Date
	LastTested   *generic.Date
	DaysUntilDue int // zero when DueDate is nil
}

// ScheduleEntry is one row of the scheduled list.
type ScheduleEntry struct {
	Schedule  ScheduledTest
	Equipment Equipment
}

// Worklist is the result of Build.
type Worklist struct {
	AsOf       generic.Date
	WindowDays int

	Overdue     []DueEntry
	Upcoming    []DueEntry
	Compliant   []DueEntry
	NoFrequency []DueEntry
	Scheduled   []ScheduleEntry

	// NextScheduled holds each equipment's earliest active schedule,
	// whatever its date, for display next to the due-date rows.
	NextScheduled map[generic.EquipmentID]ScheduledTest
}

// WorklistBuilder ties the engine together.
type WorklistBuilder struct {
	Calculator *Calculator
	Reconciler Reconciler
	Logger     *slog.Logger
}

// NewWorklistBuilder creates a builder. bufferDays <= 0 uses the default.
func NewWorklistBuilder(logger *slog.Logger, bufferDays int) *WorklistBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorklistBuilder{
		Calculator: NewCalculator(logger),
		Reconciler: Reconciler{BufferDays: bufferDays},
		Logger:     logger,
	}
}

func (b *WorklistBuilder) logger() *slog.Logger {
	if b.Logger == nil {
		return slog.Default()
	}
	return b.Logger
}

// Build produces the five lists for today. Inactive equipment in the
// snapshot is skipped.
func (b *WorklistBuilder) Build(today generic.Date, snap Snapshot, windowDays int) Worklist {
	windowDays = NormalizeWindow(windowDays)
	classifier := NewClassifier(windowDays)

	wl := Worklist{
		AsOf:          today,
		WindowDays:    windowDays,
		NextScheduled: make(map[generic.EquipmentID]ScheduledTest),
	}

	for _, eq := range snap.Equipment {
		if !eq.IsActive(today) {
			continue
		}

		entry := b.Evaluate(today, eq, snap.Tests[eq.ID], classifier)
		switch entry.Status {
		case StatusOverdue:
			wl.Overdue = append(wl.Overdue, entry)
		case StatusUpcoming:
			wl.Upcoming = append(wl.Upcoming, entry)
		case StatusCompliant:
			wl.Compliant = append(wl.Compliant, entry)
		default:
			wl.NoFrequency = append(wl.NoFrequency, entry)
		}

		active := b.Reconciler.ActiveSchedules(eq, snap.Schedules[eq.ID], entry.LastTested)
		if len(active) > 0 {
			wl.NextScheduled[eq.ID] = active[0]
		}
		for _, s := range active {
			if s.ScheduledDate.AfterOrEqual(today) {
				wl.Scheduled = append(wl.Scheduled, ScheduleEntry{Schedule: s, Equipment: eq})
			}
		}
	}

	sortDueEntries(wl.Overdue)
	sortDueEntries(wl.Upcoming)
	sortDueEntries(wl.Compliant)
	sortDueEntries(wl.NoFrequency)
	sort.SliceStable(wl.Scheduled, func(i, j int) bool {
		a, b := wl.Scheduled[i].Schedule, wl.Scheduled[j].Schedule
		if c := a.ScheduledDate.Compare(b.ScheduledDate); c != 0 {
			return c < 0
		}
		if a.EquipmentID != b.EquipmentID {
			return a.EquipmentID < b.EquipmentID
		}
		return a.ID < b.ID
	})

	return wl
}

// Evaluate computes one equipment's row. Any failure degrades to NoFrequency.
func (b *WorklistBuilder) Evaluate(today generic.Date, eq Equipment, tests []ComplianceTest, classifier Classifier) DueEntry {
	entry, _ := b.evaluate(today, eq, tests, classifier)
	return entry
}

// evaluate is Evaluate that also hands back the calculation error, logged
// once here, for callers that report it differently.
func (b *WorklistBuilder) evaluate(today generic.Date, eq Equipment, tests []ComplianceTest, classifier Classifier) (DueEntry, error) {
	due, last, err := b.compute(eq, tests)
	if err != nil {
		b.logger().Warn("due date calculation failed, treating as no frequency",
			"equipment_id", eq.ID, "error", err)
		return DueEntry{Equipment: eq, Status: StatusNoFrequency, LastTested: last}, err
	}

	entry := DueEntry{
		Equipment:  eq,
		Status:     classifier.Classify(today, due),
		DueDate:    due,
		LastTested: last,
	}
	if due != nil {
		entry.DaysUntilDue = generic.DaysBetween(today, *due)
	}
	return entry, nil
}

// compute wraps the calculator so a panic for one record becomes an error.
func (b *WorklistBuilder) compute(eq Equipment, tests []ComplianceTest) (due, last *generic.Date, err error) {
	defer func() {
		if r := recover(); r != nil {
			due = nil
			err = &generic.CalculationError{EquipmentID: eq.ID, Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	calc := b.Calculator
	last = calc.LastTested(eq, tests)
	due, err = calc.NextDue(eq, tests)
	return due, last, err
}

// sortDueEntries orders by due date (nil last), then equipment id.
func sortDueEntries(entries []DueEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		switch {
		case a.DueDate != nil && b.DueDate != nil:
			if c := a.DueDate.Compare(*b.DueDate); c != 0 {
				return c < 0
			}
		case a.DueDate != nil:
			return true
		case b.DueDate != nil:
			return false
		}
		return a.Equipment.ID < b.Equipment.ID
	})
}
