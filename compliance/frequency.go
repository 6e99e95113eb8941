/*
frequency.go - Audit frequency policies

PURPOSE:
  Each policy is a pure date transform: anchor test date in, due date out.
  Equipment may carry several policies at once; the calculator applies each
  one and keeps the earliest result.

POLICIES:
  Quarterly:    last day of (anchor month + 3 months)
  Semiannual:   last day of (anchor month + 6 months)
  Annual - ACR: anchor + 14 months, same day of month (clamped)
  Annual - TJC: anchor + 12 months (clamped), then + 30 days
  Annual - ME:  December 31 of the year after the anchor

  ACR keeps the anchor's day of month while Quarterly/Semiannual snap to the
  end of the month. That asymmetry is the regulatory rule, not an accident.

EXAMPLE:
  due, err := compliance.FrequencyAnnualTJC.DueDate(generic.NewDate(2023, time.January, 15))
  // due == 2024-02-14

SEE ALSO:
  - due.go: Combines policies, earliest wins
  - generic/time.go: Clamped month arithmetic
*/
package compliance

import (
	"strings"

	"github.com/warp/physics-compliance/generic"
)

// Frequency is a named regulatory testing cadence.
type Frequency string

const (
	FrequencyQuarterly  Frequency = "Quarterly"
	FrequencySemiannual Frequency = "Semiannual"
	FrequencyAnnualACR  Frequency = "Annual - ACR"
	FrequencyAnnualTJC  Frequency = "Annual - TJC"
	FrequencyAnnualME   Frequency = "Annual - ME"
)

// Frequencies lists the known policies in the order the UI offers them.
var Frequencies = []Frequency{
	FrequencyQuarterly,
	FrequencySemiannual,
	FrequencyAnnualACR,
	FrequencyAnnualTJC,
	FrequencyAnnualME,
}

// ParseFrequency matches a policy name exactly. It does not trim or fold
// case; configuration is validated upstream.
func ParseFrequency(name string) (Frequency, error) {
	for _, f := range Frequencies {
		if string(f) == name {
			return f, nil
		}
	}
	return "", &generic.UnknownPolicyError{Name: name}
}

// DueDate applies the policy to an anchor date.
func (f Frequency) DueDate(anchor generic.Date) (generic.Date, error) {
	switch f {
	case FrequencyQuarterly:
		return endOfMonthAfter(anchor, 3), nil
	case FrequencySemiannual:
		return endOfMonthAfter(anchor, 6), nil
	case FrequencyAnnualACR:
		return anchor.AddMonths(14), nil
	case FrequencyAnnualTJC:
		return anchor.AddYears(1).AddDays(30), nil
	case FrequencyAnnualME:
		return generic.EndOfYear(anchor.Year() + 1), nil
	default:
		return generic.Date{}, &generic.UnknownPolicyError{Name: string(f)}
	}
}

// PolicyDueDate looks up a policy by name and applies it.
func PolicyDueDate(name string, anchor generic.Date) (generic.Date, error) {
	f, err := ParseFrequency(name)
	if err != nil {
		return generic.Date{}, err
	}
	return f.DueDate(anchor)
}

func endOfMonthAfter(anchor generic.Date, months int) generic.Date {
	target := anchor.AddMonths(months)
	return generic.EndOfMonth(target.Year(), target.Month())
}

// =============================================================================
// CONFIGURATION STRINGS
// =============================================================================

// SplitFrequencies turns the stored comma-separated form into trimmed,
// non-empty policy names, keeping their order.
func SplitFrequencies(raw string) []string {
	var names []string
	for _, part := range strings.Split(raw, ",") {
		if name := strings.TrimSpace(part); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// FlattenFrequencies splits every entry of a configured list, so both
// []string{"Quarterly", "Annual - TJC"} and []string{"Quarterly, Annual - TJC"}
// yield the same names.
func FlattenFrequencies(configured []string) []string {
	var names []string
	for _, entry := range configured {
		names = append(names, SplitFrequencies(entry)...)
	}
	return names
}

// JoinFrequencies renders names in the stored comma-separated form.
func JoinFrequencies(names []string) string {
	return strings.Join(FlattenFrequencies(names), ", ")
}
