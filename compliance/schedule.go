package compliance

import (
	"sort"

	"github.com/warp/physics-compliance/generic"
)

// DefaultScheduleBufferDays is the grace period after the last test during
// which a scheduled entry is treated as already satisfied.
const DefaultScheduleBufferDays = 30

// Reconciler decides which scheduled tests are still live.
//
// A schedule is active when the equipment has never been tested, or when it
// is dated strictly more than BufferDays after the last test. Entries created
// before a test that has since been performed drop out; entries booked a few
// days ahead of the anchor test do not count as superseded until the buffer
// has passed. Nothing is deleted: this only filters.
type Reconciler struct {
	BufferDays int // <= 0 means DefaultScheduleBufferDays
}

func (r Reconciler) buffer() int {
	if r.BufferDays <= 0 {
		return DefaultScheduleBufferDays
	}
	return r.BufferDays
}

// IsActive applies the rule to a single entry.
func (r Reconciler) IsActive(s ScheduledTest, lastTested *generic.Date) bool {
	if lastTested == nil {
		return true
	}
	return s.ScheduledDate.After(lastTested.AddDays(r.buffer()))
}

// ActiveSchedules returns the equipment's active entries ordered by
// ScheduledDate, then ID. Entries for other equipment are ignored.
func (r Reconciler) ActiveSchedules(eq Equipment, all []ScheduledTest, lastTested *generic.Date) []ScheduledTest {
	var active []ScheduledTest
	for _, s := range all {
		if s.EquipmentID == eq.ID && r.IsActive(s, lastTested) {
			active = append(active, s)
		}
	}
	SortSchedules(active)
	return active
}

// EarliestActiveSchedule returns the first active entry, or nil.
func (r Reconciler) EarliestActiveSchedule(eq Equipment, all []ScheduledTest, lastTested *generic.Date) *ScheduledTest {
	active := r.ActiveSchedules(eq, all, lastTested)
	if len(active) == 0 {
		return nil
	}
	return &active[0]
}

// SortSchedules orders by ScheduledDate, then equipment, then schedule ID.
func SortSchedules(schedules []ScheduledTest) {
	sort.SliceStable(schedules, func(i, j int) bool {
		a, b := schedules[i], schedules[j]
		if c := a.ScheduledDate.Compare(b.ScheduledDate); c != 0 {
			return c < 0
		}
		if a.EquipmentID != b.EquipmentID {
			return a.EquipmentID < b.EquipmentID
		}
		return a.ID < b.ID
	})
}
