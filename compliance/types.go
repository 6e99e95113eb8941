// Package compliance implements the due-date engine for medical physics
// equipment: audit frequency policies, next-due computation, status
// classification, schedule reconciliation and worklists.
//
// Every function here is pure over data already loaded into memory. "Today"
// is always an argument; nothing in this package reads the clock or performs
// I/O apart from LoadSnapshot, which only talks to the repository interfaces.
package compliance

import (
	"strings"
	"time"

	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// EQUIPMENT
// =============================================================================

// Equipment is read-only to the engine.
type Equipment struct {
	ID generic.EquipmentID

	// AuditFrequencies holds policy names in configured order. An entry may
	// itself be a comma-separated list (the stored format); the calculator
	// splits it.
	AuditFrequencies []string

	Retired         bool
	RetirementDate  *generic.Date
	PhysicsCoverage bool

	// Descriptive fields, used only for filtering and display.
	Class        string
	Subclass     string
	Manufacturer string
	Model        string
	Department   string
	Facility     string
	Room         string
	AssetID      string
	SerialNumber string
}

// IsRetired is true when the retired flag is set or the retirement date is
// on or before today.
func (e Equipment) IsRetired(today generic.Date) bool {
	if e.Retired {
		return true
	}
	return e.RetirementDate != nil && e.RetirementDate.BeforeOrEqual(today)
}

// IsActive is true for physics-covered equipment that is not retired.
// Only active equipment is considered by worklists.
func (e Equipment) IsActive(today generic.Date) bool {
	return e.PhysicsCoverage && !e.IsRetired(today)
}

// =============================================================================
// TEST TYPES
// =============================================================================

// TestType is the display form of a compliance test type.
type TestType string

const (
	TestAcceptance      TestType = "Acceptance"
	TestAnnual          TestType = "Annual"
	TestAudit           TestType = "Audit"
	TestOther           TestType = "Other"
	TestQCReview        TestType = "QC Review"
	TestRetire          TestType = "Retire"
	TestShieldingDesign TestType = "Shielding Design"
	TestSubmission      TestType = "Submission"
)

// TestTypes lists every known test type in display order.
var TestTypes = []TestType{
	TestAcceptance, TestAnnual, TestAudit, TestOther,
	TestQCReview, TestRetire, TestShieldingDesign, TestSubmission,
}

// ParseTestType accepts display names and the legacy lowercase spellings
// ("qc_review", "shielding_design", ...), case-insensitively.
func ParseTestType(raw string) (TestType, error) {
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(raw), "_", " "))
	for _, t := range TestTypes {
		if strings.ToLower(string(t)) == key {
			return t, nil
		}
	}
	return "", &generic.ValidationError{Field: "test_type", Message: "unknown test type " + raw, Err: generic.ErrUnknownTestType}
}

// DisplayTestType returns the display name for a stored test type, or the
// raw value when it is not recognised.
func DisplayTestType(raw string) string {
	if t, err := ParseTestType(raw); err == nil {
		return string(t)
	}
	return raw
}

// IsQualifying reports whether a test of this type anchors due-date math.
// Only acceptance and annual tests do, in any letter case.
func IsQualifying(testType string) bool {
	t := strings.TrimSpace(testType)
	return strings.EqualFold(t, string(TestAcceptance)) || strings.EqualFold(t, string(TestAnnual))
}

// =============================================================================
// COMPLIANCE TEST - Completed test history
// =============================================================================

// ComplianceTest is a historical record of a performed test.
type ComplianceTest struct {
	ID             generic.TestID
	EquipmentID    generic.EquipmentID
	TestType       string
	TestDate       generic.Date
	ReportDate     *generic.Date
	SubmissionDate *generic.Date
	PerformedBy    string
	ReviewedBy     string
	Notes          string

	// Audit fields
	CreatedBy  string // personnel initials
	ModifiedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// RecordStatus is how a history row presents itself.
type RecordStatus string

const (
	RecordScheduled RecordStatus = "Scheduled"
	RecordCompleted RecordStatus = "Completed"
)

// RecordStatus is Scheduled for a test dated after today, else Completed.
func (t ComplianceTest) RecordStatus(today generic.Date) RecordStatus {
	if t.TestDate.After(today) {
		return RecordScheduled
	}
	return RecordCompleted
}

// =============================================================================
// SCHEDULED TEST - Planned, not yet performed
// =============================================================================

// ScheduledTest is a planned future test. The engine never deletes these;
// reconciliation only decides which ones are still worth showing.
type ScheduledTest struct {
	ID             generic.ScheduleID
	EquipmentID    generic.EquipmentID
	ScheduledDate  generic.Date
	SchedulingDate generic.Date // when the entry was created; informational
	Notes          string

	CreatedBy  string
	ModifiedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
