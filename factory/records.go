/*
Package factory provides JSON to Go record conversion.

PURPOSE:
  Converts JSON equipment, test and schedule definitions into compliance
  records, validating every field on the way in. The API decodes request
  bodies with it and the demo scenarios are written in the same format, so
  there is exactly one place where external input becomes domain data.

JSON SCHEMA:
  {
    "id": 12,
    "eq_class": "CT",
    "eq_subclass": "Diagnostic",
    "eq_mfg": "Siemens",
    "eq_mod": "Somatom Force",
    "eq_dept": "Radiology",
    "eq_fac": "Main Campus",
    "eq_rm": "CT-2",
    "eq_assetid": "A-1002",
    "eq_sn": "SN-88121",
    "eq_auditfreq": ["Annual - ACR", "Quarterly"],
    "eq_physcov": true,
    "eq_retired": false,
    "eq_retdate": "2030-06-30",
    "tests": [
      {"test_type": "Annual", "test_date": "2024-01-15", "performed_by": "NB"}
    ],
    "schedules": [
      {"scheduled_date": "2025-01-10", "notes": "booked with vendor"}
    ]
  }

  eq_auditfreq also accepts the stored comma-separated string form.

STRICT MODE:
  In strict mode unknown audit frequency names are rejected with
  generic.UnknownPolicyError. Lenient mode keeps them; the calculator skips
  them later. Stored data may predate the current policy list, so reads are
  lenient and API writes are strict.

SEE ALSO:
  - compliance/types.go: Record types
  - api/scenarios.go: Demo data sets in this format
*/
package factory

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// EquipmentJSON is the JSON representation of one piece of equipment, with
// optional nested history and schedules.
type EquipmentJSON struct {
	ID              int64          `json:"id,omitempty"`
	Class           string         `json:"eq_class"`
	Subclass        string         `json:"eq_subclass,omitempty"`
	Manufacturer    string         `json:"eq_mfg,omitempty"`
	Model           string         `json:"eq_mod,omitempty"`
	Department      string         `json:"eq_dept,omitempty"`
	Facility        string         `json:"eq_fac,omitempty"`
	Room            string         `json:"eq_rm,omitempty"`
	AssetID         string         `json:"eq_assetid,omitempty"`
	SerialNumber    string         `json:"eq_sn,omitempty"`
	AuditFrequency  FrequencyList  `json:"eq_auditfreq,omitempty"`
	PhysicsCoverage *bool          `json:"eq_physcov,omitempty"` // default true
	Retired         bool           `json:"eq_retired,omitempty"`
	RetirementDate  string         `json:"eq_retdate,omitempty"`
	Tests           []TestJSON     `json:"tests,omitempty"`
	Schedules       []ScheduleJSON `json:"schedules,omitempty"`
}

// TestJSON is the JSON representation of a performed test.
type TestJSON struct {
	ID             int64  `json:"id,omitempty"`
	EquipmentID    int64  `json:"eq_id,omitempty"` // taken from the URL when nested
	TestType       string `json:"test_type"`
	TestDate       string `json:"test_date"`
	ReportDate     string `json:"report_date,omitempty"`
	SubmissionDate string `json:"submission_date,omitempty"`
	PerformedBy    string `json:"performed_by,omitempty"`
	ReviewedBy     string `json:"reviewed_by,omitempty"`
	Notes          string `json:"notes,omitempty"`
}

// ScheduleJSON is the JSON representation of a planned test.
type ScheduleJSON struct {
	ID             int64  `json:"id,omitempty"`
	EquipmentID    int64  `json:"eq_id,omitempty"`
	ScheduledDate  string `json:"scheduled_date"`
	SchedulingDate string `json:"scheduling_date,omitempty"` // default: today
	Notes          string `json:"notes,omitempty"`
}

// FrequencyList accepts either a JSON array of names or a comma-separated
// string.
type FrequencyList []string

func (l *FrequencyList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*l = compliance.SplitFrequencies(raw)
		return nil
	}
	var names []string
	if err := json.Unmarshal(data, &names); err != nil {
		return fmt.Errorf("eq_auditfreq: expected string or array of strings: %w", err)
	}
	*l = compliance.FlattenFrequencies(names)
	return nil
}

// =============================================================================
// RECORD FACTORY
// =============================================================================

// RecordFactory converts JSON records to compliance types.
type RecordFactory struct {
	Strict bool
}

// NewRecordFactory creates a factory. See STRICT MODE above.
func NewRecordFactory(strict bool) *RecordFactory {
	return &RecordFactory{Strict: strict}
}

// Record is a parsed equipment with its nested rows. Tests and Schedules
// carry zero equipment ids until the equipment has been saved.
type Record struct {
	Equipment compliance.Equipment
	Tests     []compliance.ComplianceTest
	Schedules []compliance.ScheduledTest
}

// ParseEquipment parses a JSON string into a Record.
func (f *RecordFactory) ParseEquipment(jsonStr string, today generic.Date) (*Record, error) {
	var ej EquipmentJSON
	if err := decodeStrict(jsonStr, &ej); err != nil {
		return nil, fmt.Errorf("failed to parse equipment JSON: %w", err)
	}
	return f.FromEquipmentJSON(ej, today)
}

// FromEquipmentJSON validates ej and converts it.
func (f *RecordFactory) FromEquipmentJSON(ej EquipmentJSON, today generic.Date) (*Record, error) {
	if ej.ID < 0 {
		return nil, &generic.ValidationError{Field: "id", Message: "must not be negative"}
	}
	if strings.TrimSpace(ej.Class) == "" {
		return nil, &generic.ValidationError{Field: "eq_class", Message: "is required"}
	}

	frequencies := compliance.FlattenFrequencies(ej.AuditFrequency)
	if f.Strict {
		for _, name := range frequencies {
			if _, err := compliance.ParseFrequency(name); err != nil {
				return nil, err
			}
		}
	}

	retirementDate, err := optionalDate("eq_retdate", ej.RetirementDate)
	if err != nil {
		return nil, err
	}

	coverage := true
	if ej.PhysicsCoverage != nil {
		coverage = *ej.PhysicsCoverage
	}

	rec := &Record{
		Equipment: compliance.Equipment{
			ID:               generic.EquipmentID(ej.ID),
			AuditFrequencies: frequencies,
			Retired:          ej.Retired,
			RetirementDate:   retirementDate,
			PhysicsCoverage:  coverage,
			Class:            strings.TrimSpace(ej.Class),
			Subclass:         strings.TrimSpace(ej.Subclass),
			Manufacturer:     strings.TrimSpace(ej.Manufacturer),
			Model:            strings.TrimSpace(ej.Model),
			Department:       strings.TrimSpace(ej.Department),
			Facility:         strings.TrimSpace(ej.Facility),
			Room:             strings.TrimSpace(ej.Room),
			AssetID:          strings.TrimSpace(ej.AssetID),
			SerialNumber:     strings.TrimSpace(ej.SerialNumber),
		},
	}

	for i, tj := range ej.Tests {
		t, err := f.FromTestJSON(tj, rec.Equipment.ID)
		if err != nil {
			return nil, fmt.Errorf("tests[%d]: %w", i, err)
		}
		rec.Tests = append(rec.Tests, *t)
	}
	for i, sj := range ej.Schedules {
		s, err := f.FromScheduleJSON(sj, rec.Equipment.ID, today)
		if err != nil {
			return nil, fmt.Errorf("schedules[%d]: %w", i, err)
		}
		rec.Schedules = append(rec.Schedules, *s)
	}
	return rec, nil
}

// FromTestJSON validates tj. equipmentID overrides tj.EquipmentID when
// non-zero.
func (f *RecordFactory) FromTestJSON(tj TestJSON, equipmentID generic.EquipmentID) (*compliance.ComplianceTest, error) {
	testType, err := compliance.ParseTestType(tj.TestType)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(tj.TestDate) == "" {
		return nil, &generic.ValidationError{Field: "test_date", Message: "is required", Err: generic.ErrInvalidDate}
	}
	testDate, err := parseField("test_date", tj.TestDate)
	if err != nil {
		return nil, err
	}
	reportDate, err := optionalDate("report_date", tj.ReportDate)
	if err != nil {
		return nil, err
	}
	submissionDate, err := optionalDate("submission_date", tj.SubmissionDate)
	if err != nil {
		return nil, err
	}

	if equipmentID == 0 {
		equipmentID = generic.EquipmentID(tj.EquipmentID)
	}
	return &compliance.ComplianceTest{
		ID:             generic.TestID(tj.ID),
		EquipmentID:    equipmentID,
		TestType:       string(testType),
		TestDate:       testDate,
		ReportDate:     reportDate,
		SubmissionDate: submissionDate,
		PerformedBy:    strings.TrimSpace(tj.PerformedBy),
		ReviewedBy:     strings.TrimSpace(tj.ReviewedBy),
		Notes:          tj.Notes,
	}, nil
}

// FromScheduleJSON validates sj. A missing scheduling date defaults to today.
func (f *RecordFactory) FromScheduleJSON(sj ScheduleJSON, equipmentID generic.EquipmentID, today generic.Date) (*compliance.ScheduledTest, error) {
	if strings.TrimSpace(sj.ScheduledDate) == "" {
		return nil, &generic.ValidationError{Field: "scheduled_date", Message: "is required", Err: generic.ErrInvalidDate}
	}
	scheduled, err := parseField("scheduled_date", sj.ScheduledDate)
	if err != nil {
		return nil, err
	}
	scheduling := today
	if strings.TrimSpace(sj.SchedulingDate) != "" {
		if scheduling, err = parseField("scheduling_date", sj.SchedulingDate); err != nil {
			return nil, err
		}
	}

	if equipmentID == 0 {
		equipmentID = generic.EquipmentID(sj.EquipmentID)
	}
	return &compliance.ScheduledTest{
		ID:             generic.ScheduleID(sj.ID),
		EquipmentID:    equipmentID,
		ScheduledDate:  scheduled,
		SchedulingDate: scheduling,
		Notes:          sj.Notes,
	}, nil
}

// ParseDataset parses a JSON array of equipment records.
func (f *RecordFactory) ParseDataset(jsonStr string, today generic.Date) ([]Record, error) {
	var items []EquipmentJSON
	if err := decodeStrict(jsonStr, &items); err != nil {
		return nil, fmt.Errorf("failed to parse dataset JSON: %w", err)
	}
	records := make([]Record, 0, len(items))
	for i, ej := range items {
		rec, err := f.FromEquipmentJSON(ej, today)
		if err != nil {
			return nil, fmt.Errorf("equipment[%d]: %w", i, err)
		}
		records = append(records, *rec)
	}
	return records, nil
}

// =============================================================================
// REVERSE CONVERSION
// =============================================================================

// ToEquipmentJSON renders equipment without nested rows.
func ToEquipmentJSON(eq compliance.Equipment) EquipmentJSON {
	coverage := eq.PhysicsCoverage
	ej := EquipmentJSON{
		ID:              int64(eq.ID),
		Class:           eq.Class,
		Subclass:        eq.Subclass,
		Manufacturer:    eq.Manufacturer,
		Model:           eq.Model,
		Department:      eq.Department,
		Facility:        eq.Facility,
		Room:            eq.Room,
		AssetID:         eq.AssetID,
		SerialNumber:    eq.SerialNumber,
		AuditFrequency:  FrequencyList(compliance.FlattenFrequencies(eq.AuditFrequencies)),
		PhysicsCoverage: &coverage,
		Retired:         eq.Retired,
	}
	if eq.RetirementDate != nil {
		ej.RetirementDate = eq.RetirementDate.String()
	}
	return ej
}

// =============================================================================
// HELPERS
// =============================================================================

func decodeStrict(jsonStr string, v any) error {
	dec := json.NewDecoder(strings.NewReader(jsonStr))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func parseField(field, value string) (generic.Date, error) {
	d, err := generic.ParseDate(strings.TrimSpace(value))
	if err != nil {
		return generic.Date{}, &generic.ValidationError{Field: field, Message: "use YYYY-MM-DD", Err: generic.ErrInvalidDate}
	}
	return d, nil
}

func optionalDate(field, value string) (*generic.Date, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	d, err := parseField(field, value)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
