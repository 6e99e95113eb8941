package compliance

import "github.com/warp/physics-compliance/generic"

// Status is the compliance bucket of one piece of equipment.
type Status string

const (
	StatusNoFrequency Status = "no_frequency" // no anchor test or no usable policy
	StatusOverdue     Status = "overdue"
	StatusUpcoming    Status = "upcoming"
	StatusCompliant   Status = "compliant"

	// StatusRetired is never returned by Classify. Rankings and detail views
	// use it for retired equipment, which has no due date by definition.
	StatusRetired Status = "retired"
)

// DefaultUpcomingWindowDays is how far ahead a due date counts as upcoming.
const DefaultUpcomingWindowDays = 90

// NormalizeWindow replaces windows shorter than one day with the default.
func NormalizeWindow(days int) int {
	if days < 1 {
		return DefaultUpcomingWindowDays
	}
	return days
}

// Classifier assigns statuses relative to today.
type Classifier struct {
	UpcomingWindowDays int
}

// NewClassifier returns a classifier with a normalized window.
func NewClassifier(windowDays int) Classifier {
	return Classifier{UpcomingWindowDays: NormalizeWindow(windowDays)}
}

// Classify applies, in order:
//
//	due == nil                         -> NoFrequency
//	due <  today                       -> Overdue
//	today <= due <= today+window       -> Upcoming (both ends inclusive)
//	otherwise                          -> Compliant
func (c Classifier) Classify(today generic.Date, due *generic.Date) Status {
	switch {
	case due == nil:
		return StatusNoFrequency
	case due.Before(today):
		return StatusOverdue
	case generic.WindowFrom(today, NormalizeWindow(c.UpcomingWindowDays)).Contains(*due):
		return StatusUpcoming
	default:
		return StatusCompliant
	}
}
