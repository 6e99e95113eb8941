/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Request bodies reuse the
  factory JSON types so validation lives in one place; responses are flat
  views of the compliance results.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

DATES:
  Calendar dates are YYYY-MM-DD strings; absent dates are null. Timestamps
  are RFC3339.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/records.go: EquipmentJSON, TestJSON, ScheduleJSON
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/factory"
	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// EQUIPMENT
// =============================================================================

// EquipmentDTO is equipment as returned to clients.
type EquipmentDTO struct {
	factory.EquipmentJSON
	Active bool `json:"active"`
}

// TestDTO represents a compliance test in API responses.
type TestDTO struct {
	ID             generic.TestID      `json:"id"`
	EquipmentID    generic.EquipmentID `json:"eq_id"`
	TestType       string              `json:"test_type"`
	TestDate       string              `json:"test_date"`
	ReportDate     *string             `json:"report_date"`
	SubmissionDate *string             `json:"submission_date"`
	PerformedBy    string              `json:"performed_by,omitempty"`
	ReviewedBy     string              `json:"reviewed_by,omitempty"`
	Notes          string              `json:"notes,omitempty"`
	Status         string              `json:"status"` // Scheduled or Completed
	CreatedBy      string              `json:"created_by,omitempty"`
	ModifiedBy     string              `json:"modified_by,omitempty"`
	CreatedAt      string              `json:"created_at,omitempty"`
	UpdatedAt      string              `json:"updated_at,omitempty"`
}

// ScheduleDTO represents a scheduled test in API responses.
type ScheduleDTO struct {
	ID             generic.ScheduleID  `json:"id"`
	EquipmentID    generic.EquipmentID `json:"eq_id"`
	ScheduledDate  string              `json:"scheduled_date"`
	SchedulingDate string              `json:"scheduling_date"`
	Notes          string              `json:"notes,omitempty"`
	CreatedBy      string              `json:"created_by,omitempty"`
	ModifiedBy     string              `json:"modified_by,omitempty"`
}

// PolicyDueDTO is one policy's due date in the detail view.
type PolicyDueDTO struct {
	Frequency string `json:"frequency"`
	DueDate   string `json:"due_date"`
}

// EquipmentDetailDTO is the single-equipment view.
type EquipmentDetailDTO struct {
	Equipment       EquipmentDTO   `json:"equipment"`
	Status          string         `json:"status"`
	NextDue         *string        `json:"next_due"`
	LastTested      *string        `json:"last_tested"`
	DaysUntilDue    *int           `json:"days_until_due"`
	Policies        []PolicyDueDTO `json:"policies"`
	History         []TestDTO      `json:"history"`
	ActiveSchedules []ScheduleDTO  `json:"active_schedules"`
}

// RankedEquipmentDTO is one row of the equipment list.
type RankedEquipmentDTO struct {
	Equipment    EquipmentDTO `json:"equipment"`
	Status       string       `json:"status"`
	DueDate      *string      `json:"due_date"`
	LastTested   *string      `json:"last_tested"`
	DaysUntilDue int          `json:"days_until_due"`
}

// EquipmentPageResponse wraps a page of ranked equipment.
type EquipmentPageResponse struct {
	Items   []RankedEquipmentDTO `json:"items"`
	Page    int                  `json:"page"`
	PerPage int                  `json:"per_page"`
	Pages   int                  `json:"pages"`
	Total   int                  `json:"total"`
	HasPrev bool                 `json:"has_prev"`
	HasNext bool                 `json:"has_next"`
}

// =============================================================================
// WORKLIST & SUMMARY
// =============================================================================

// DueEntryDTO is one row of a due-date bucket.
type DueEntryDTO struct {
	Equipment    EquipmentDTO `json:"equipment"`
	Status       string       `json:"status"`
	DueDate      *string      `json:"due_date"`
	LastTested   *string      `json:"last_tested"`
	DaysUntilDue *int         `json:"days_until_due"`
	NextSchedule *ScheduleDTO `json:"next_scheduled,omitempty"`
}

// ScheduleEntryDTO is one row of the scheduled list.
type ScheduleEntryDTO struct {
	Schedule  ScheduleDTO  `json:"schedule"`
	Equipment EquipmentDTO `json:"equipment"`
}

// WorklistResponse is the full worklist.
type WorklistResponse struct {
	AsOf        string             `json:"as_of"`
	WindowDays  int                `json:"window_days"`
	Overdue     []DueEntryDTO      `json:"overdue"`
	Upcoming    []DueEntryDTO      `json:"upcoming"`
	Compliant   []DueEntryDTO      `json:"compliant"`
	NoFrequency []DueEntryDTO      `json:"no_frequency"`
	Scheduled   []ScheduleEntryDTO `json:"scheduled"`
}

// SummaryDTO is the dashboard summary.
type SummaryDTO struct {
	AsOf           string          `json:"as_of"`
	WindowDays     int             `json:"window_days"`
	Total          int             `json:"total"`
	Overdue        int             `json:"overdue"`
	Upcoming       int             `json:"upcoming"`
	Compliant      int             `json:"compliant"`
	NoFrequency    int             `json:"no_frequency"`
	Scheduled      int             `json:"scheduled"`
	ComplianceRate decimal.Decimal `json:"compliance_rate"`
	Cached         bool            `json:"cached"`
}

// =============================================================================
// AUDIT & SCENARIOS
// =============================================================================

// AuditEntryDTO represents an audit log row.
type AuditEntryDTO struct {
	ID          int64               `json:"id"`
	Timestamp   string              `json:"timestamp"`
	Actor       string              `json:"actor"`
	Action      generic.AuditAction `json:"action"`
	EquipmentID generic.EquipmentID `json:"eq_id"`
	RecordID    int64               `json:"record_id,omitempty"`
	Payload     map[string]any      `json:"payload,omitempty"`
}

// ScenarioDTO represents a demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario to load.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func datePtr(d *generic.Date) *string {
	if d == nil {
		return nil
	}
	s := d.String()
	return &s
}

func toEquipmentDTO(eq compliance.Equipment, today generic.Date) EquipmentDTO {
	return EquipmentDTO{EquipmentJSON: factory.ToEquipmentJSON(eq), Active: eq.IsActive(today)}
}

func toTestDTO(t compliance.ComplianceTest, today generic.Date) TestDTO {
	dto := TestDTO{
		ID:             t.ID,
		EquipmentID:    t.EquipmentID,
		TestType:       compliance.DisplayTestType(t.TestType),
		TestDate:       t.TestDate.String(),
		ReportDate:     datePtr(t.ReportDate),
		SubmissionDate: datePtr(t.SubmissionDate),
		PerformedBy:    t.PerformedBy,
		ReviewedBy:     t.ReviewedBy,
		Notes:          t.Notes,
		Status:         string(t.RecordStatus(today)),
		CreatedBy:      t.CreatedBy,
		ModifiedBy:     t.ModifiedBy,
	}
	if !t.CreatedAt.IsZero() {
		dto.CreatedAt = t.CreatedAt.Format(time.RFC3339)
	}
	if !t.UpdatedAt.IsZero() {
		dto.UpdatedAt = t.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toScheduleDTO(s compliance.ScheduledTest) ScheduleDTO {
	return ScheduleDTO{
		ID:             s.ID,
		EquipmentID:    s.EquipmentID,
		ScheduledDate:  s.ScheduledDate.String(),
		SchedulingDate: s.SchedulingDate.String(),
		Notes:          s.Notes,
		CreatedBy:      s.CreatedBy,
		ModifiedBy:     s.ModifiedBy,
	}
}

func toDueEntryDTO(e compliance.DueEntry, today generic.Date, next map[generic.EquipmentID]compliance.ScheduledTest) DueEntryDTO {
	dto := DueEntryDTO{
		Equipment:  toEquipmentDTO(e.Equipment, today),
		Status:     string(e.Status),
		DueDate:    datePtr(e.DueDate),
		LastTested: datePtr(e.LastTested),
	}
	if e.DueDate != nil {
		days := e.DaysUntilDue
		dto.DaysUntilDue = &days
	}
	if s, ok := next[e.Equipment.ID]; ok {
		sd := toScheduleDTO(s)
		dto.NextSchedule = &sd
	}
	return dto
}

func toDueEntryDTOs(entries []compliance.DueEntry, today generic.Date, next map[generic.EquipmentID]compliance.ScheduledTest) []DueEntryDTO {
	dtos := make([]DueEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toDueEntryDTO(e, today, next)
	}
	return dtos
}

func toWorklistResponse(wl compliance.Worklist) WorklistResponse {
	today := wl.AsOf
	resp := WorklistResponse{
		AsOf:        today.String(),
		WindowDays:  wl.WindowDays,
		Overdue:     toDueEntryDTOs(wl.Overdue, today, wl.NextScheduled),
		Upcoming:    toDueEntryDTOs(wl.Upcoming, today, wl.NextScheduled),
		Compliant:   toDueEntryDTOs(wl.Compliant, today, wl.NextScheduled),
		NoFrequency: toDueEntryDTOs(wl.NoFrequency, today, wl.NextScheduled),
		Scheduled:   make([]ScheduleEntryDTO, len(wl.Scheduled)),
	}
	for i, s := range wl.Scheduled {
		resp.Scheduled[i] = ScheduleEntryDTO{
			Schedule:  toScheduleDTO(s.Schedule),
			Equipment: toEquipmentDTO(s.Equipment, today),
		}
	}
	return resp
}

func toSummaryDTO(s compliance.Summary, cached bool) SummaryDTO {
	return SummaryDTO{
		AsOf:           s.AsOf.String(),
		WindowDays:     s.WindowDays,
		Total:          s.Total(),
		Overdue:        s.Overdue,
		Upcoming:       s.Upcoming,
		Compliant:      s.Compliant,
		NoFrequency:    s.NoFrequency,
		Scheduled:      s.Scheduled,
		ComplianceRate: s.ComplianceRate,
		Cached:         cached,
	}
}

func toDetailDTO(d compliance.EquipmentDetail, today generic.Date) EquipmentDetailDTO {
	dto := EquipmentDetailDTO{
		Equipment:       toEquipmentDTO(d.Equipment, today),
		Status:          string(d.Status),
		NextDue:         datePtr(d.NextDue),
		LastTested:      datePtr(d.LastTested),
		Policies:        make([]PolicyDueDTO, len(d.Policies)),
		History:         make([]TestDTO, len(d.History)),
		ActiveSchedules: make([]ScheduleDTO, len(d.ActiveSchedules)),
	}
	if d.NextDue != nil {
		days := generic.DaysBetween(today, *d.NextDue)
		dto.DaysUntilDue = &days
	}
	for i, p := range d.Policies {
		dto.Policies[i] = PolicyDueDTO{Frequency: string(p.Frequency), DueDate: p.DueDate.String()}
	}
	for i, t := range d.History {
		dto.History[i] = toTestDTO(t, today)
	}
	for i, s := range d.ActiveSchedules {
		dto.ActiveSchedules[i] = toScheduleDTO(s)
	}
	return dto
}

func toRankedDTO(r compliance.RankedEquipment, today generic.Date) RankedEquipmentDTO {
	return RankedEquipmentDTO{
		Equipment:    toEquipmentDTO(r.Equipment, today),
		Status:       string(r.Status),
		DueDate:      datePtr(r.DueDate),
		LastTested:   datePtr(r.LastTested),
		DaysUntilDue: r.DaysUntilDue,
	}
}

func toAuditDTO(e generic.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:          e.ID,
		Timestamp:   e.Timestamp.Format(time.RFC3339),
		Actor:       e.Actor,
		Action:      e.Action,
		EquipmentID: e.EquipmentID,
		RecordID:    e.RecordID,
		Payload:     e.Payload,
	}
}
