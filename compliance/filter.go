package compliance

import "strings"

// Filter narrows the equipment set before a worklist is built. Matching is
// case-insensitive substring; empty fields match everything.
type Filter struct {
	Class    string
	Subclass string
	Facility string

	// Search looks at model, room, asset id, serial number, class,
	// manufacturer, department and facility.
	Search string
}

// IsEmpty reports whether the filter matches everything.
func (f Filter) IsEmpty() bool {
	return strings.TrimSpace(f.Class) == "" && strings.TrimSpace(f.Subclass) == "" &&
		strings.TrimSpace(f.Facility) == "" && strings.TrimSpace(f.Search) == ""
}

// Match reports whether eq passes every non-empty field.
func (f Filter) Match(eq Equipment) bool {
	if !containsFold(eq.Class, f.Class) || !containsFold(eq.Subclass, f.Subclass) ||
		!containsFold(eq.Facility, f.Facility) {
		return false
	}
	if strings.TrimSpace(f.Search) == "" {
		return true
	}
	for _, field := range []string{
		eq.Model, eq.Room, eq.AssetID, eq.SerialNumber,
		eq.Class, eq.Manufacturer, eq.Department, eq.Facility,
	} {
		if field != "" && containsFold(field, f.Search) {
			return true
		}
	}
	return false
}

// Apply returns the equipment that matches, keeping order.
func (f Filter) Apply(equipment []Equipment) []Equipment {
	if f.IsEmpty() {
		return equipment
	}
	var out []Equipment
	for _, eq := range equipment {
		if f.Match(eq) {
			out = append(out, eq)
		}
	}
	return out
}

func containsFold(s, substr string) bool {
	substr = strings.TrimSpace(substr)
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
