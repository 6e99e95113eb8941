/*
handlers.go - HTTP API handlers for physics compliance tracking

PURPOSE:
  Exposes the compliance engine via REST API. Handles HTTP request/response,
  JSON serialization, and delegates to the compliance package.

ENDPOINTS:
  Compliance:
    GET    /api/compliance/worklist        Five-list worklist
    GET    /api/compliance/summary         Dashboard counts

  Equipment:
    GET    /api/equipment                  Ranked by days until due, paginated
    POST   /api/equipment                  Create or update equipment
    GET    /api/equipment/{id}             Detail view
    DELETE /api/equipment/{id}             Delete with history and schedules

  Tests & Schedules:
    POST   /api/equipment/{id}/tests       Record a test
    DELETE /api/tests/{id}                 Delete a test
    POST   /api/equipment/{id}/schedules   Schedule a test
    PUT    /api/schedules/{id}             Reschedule
    DELETE /api/schedules/{id}             Cancel

  Audit:
    GET    /api/audit                      Audit log (eq_id, actor, action filters)

  Scenarios:
    GET    /api/scenarios                  List demo data sets
    POST   /api/scenarios/load             Reset and load one

COMMON QUERY PARAMETERS:
  as_of:   YYYY-MM-DD, pins "today"; defaults to the server clock, read once
           per request
  days:    upcoming window; values below 1 mean 90
  eq_class, eq_subclass, eq_fac, search: equipment filters

ACTOR:
  Mutations record the initials of the X-User-Name header (e.g. "Bevins,
  Nick" -> "NB") in created_by/modified_by and the audit log.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, unknown policy or test type, bad dates
  - 404: Equipment, test or schedule not found
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo data sets
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/factory"
	"github.com/warp/physics-compliance/generic"
)

// ActorHeader carries the name of the person making a change.
const ActorHeader = "X-User-Name"

// SystemActor is recorded when no actor header is present.
const SystemActor = "SYS"

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Repo       compliance.Repository
	Builder    *compliance.WorklistBuilder
	Factory    *factory.RecordFactory
	Refresher  *SummaryRefresher // optional
	WindowDays int
	Logger     *slog.Logger
	Clock      func() generic.Date

	scenarioMu      sync.Mutex
	currentScenario string
}

// NewHandler creates a handler with default window and clock.
func NewHandler(repo compliance.Repository, builder *compliance.WorklistBuilder, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		Repo:       repo,
		Builder:    builder,
		Factory:    factory.NewRecordFactory(true),
		WindowDays: compliance.DefaultUpcomingWindowDays,
		Logger:     logger.With("component", "api"),
		Clock:      generic.Today,
	}
}

// =============================================================================
// COMPLIANCE HANDLERS
// =============================================================================

// GetWorklist returns the five lists for the requested date and window.
func (h *Handler) GetWorklist(w http.ResponseWriter, r *http.Request) {
	today, windowDays, ok := h.dateAndWindow(w, r)
	if !ok {
		return
	}

	snap, err := compliance.LoadSnapshot(r.Context(), h.Repo, today, filterFromQuery(r))
	if err != nil {
		h.writeDomainError(w, "Failed to load equipment", err)
		return
	}

	wl := h.Builder.Build(today, snap, windowDays)
	writeJSON(w, http.StatusOK, toWorklistResponse(wl))
}

// GetSummary returns dashboard counts, from the refresher cache when fresh.
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	today, windowDays, ok := h.dateAndWindow(w, r)
	if !ok {
		return
	}

	if h.Refresher != nil {
		if s, found := h.Refresher.Get(today, windowDays); found {
			writeJSON(w, http.StatusOK, toSummaryDTO(s, true))
			return
		}
		s, err := h.Refresher.Compute(r.Context(), today, windowDays)
		if err != nil {
			h.writeDomainError(w, "Failed to compute summary", err)
			return
		}
		writeJSON(w, http.StatusOK, toSummaryDTO(s, false))
		return
	}

	snap, err := compliance.LoadSnapshot(r.Context(), h.Repo, today, compliance.Filter{})
	if err != nil {
		h.writeDomainError(w, "Failed to load equipment", err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(compliance.Summarize(h.Builder.Build(today, snap, windowDays)), false))
}

// =============================================================================
// EQUIPMENT HANDLERS
// =============================================================================

// ListEquipment returns equipment ranked by days until due.
func (h *Handler) ListEquipment(w http.ResponseWriter, r *http.Request) {
	today, windowDays, ok := h.dateAndWindow(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	sortBy := q.Get("sort")
	if sortBy == "" {
		sortBy = "days_until_due"
	}
	if sortBy != "days_until_due" && sortBy != "id" {
		writeError(w, http.StatusBadRequest, "Invalid sort (use days_until_due or id)", nil)
		return
	}
	descending := strings.EqualFold(q.Get("order"), "desc")

	page, err := intParam(q.Get("page"), 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid page", err)
		return
	}
	perPage, err := intParam(q.Get("per_page"), compliance.DefaultPerPage)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid per_page", err)
		return
	}
	includeRetired := q.Get("include_retired") == "true" || q.Get("include_retired") == "1"

	all, err := h.Repo.ListEquipment(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list equipment", err)
		return
	}
	var equipment []compliance.Equipment
	for _, eq := range filterFromQuery(r).Apply(all) {
		if includeRetired || !eq.IsRetired(today) {
			equipment = append(equipment, eq)
		}
	}

	snap, err := compliance.FillSnapshot(r.Context(), h.Repo, equipment)
	if err != nil {
		h.writeDomainError(w, "Failed to load test history", err)
		return
	}

	ranked := h.Builder.Rank(today, equipment, snap.Tests, windowDays, descending)
	if sortBy == "id" {
		sortRankedByID(ranked, descending)
	}

	p := compliance.Paginate(len(ranked), page, perPage)
	resp := EquipmentPageResponse{
		Items:   make([]RankedEquipmentDTO, 0, p.End-p.Start),
		Page:    p.Page,
		PerPage: p.PerPage,
		Pages:   p.Pages,
		Total:   p.Total,
		HasPrev: p.HasPrev(),
		HasNext: p.HasNext(),
	}
	for _, row := range ranked[p.Start:p.End] {
		resp.Items = append(resp.Items, toRankedDTO(row, today))
	}
	writeJSON(w, http.StatusOK, resp)
}

// CreateEquipment creates equipment, or updates it when the body carries an
// existing id. Nested tests and schedules are created in the same
// transaction.
func (h *Handler) CreateEquipment(w http.ResponseWriter, r *http.Request) {
	today, ok := h.asOf(w, r)
	if !ok {
		return
	}

	var req factory.EquipmentJSON
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.Factory.FromEquipmentJSON(req, today)
	if err != nil {
		h.writeDomainError(w, "Invalid equipment", err)
		return
	}

	actor := actorFrom(r)
	status := http.StatusCreated
	ctx := r.Context()
	err = h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		if rec.Equipment.ID != 0 {
			if _, err := repo.GetEquipment(ctx, rec.Equipment.ID); err == nil {
				status = http.StatusOK
			} else if !errors.Is(err, generic.ErrEquipmentNotFound) {
				return err
			}
		}
		return factory.SaveRecord(ctx, repo, rec, actor)
	})
	if err != nil {
		h.writeDomainError(w, "Failed to save equipment", err)
		return
	}
	h.invalidate()

	h.Logger.Info("equipment saved", "equipment_id", rec.Equipment.ID, "actor", actor,
		"tests", len(rec.Tests), "schedules", len(rec.Schedules))
	writeJSON(w, status, toEquipmentDTO(rec.Equipment, today))
}

// GetEquipment returns the detail view.
func (h *Handler) GetEquipment(w http.ResponseWriter, r *http.Request) {
	today, windowDays, ok := h.dateAndWindow(w, r)
	if !ok {
		return
	}
	id, ok := equipmentIDParam(w, r)
	if !ok {
		return
	}

	ctx := r.Context()
	eq, err := h.Repo.GetEquipment(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to get equipment", err)
		return
	}
	tests, err := h.Repo.TestsForEquipment(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to load test history", err)
		return
	}
	schedules, err := h.Repo.SchedulesForEquipment(ctx, id)
	if err != nil {
		h.writeDomainError(w, "Failed to load schedules", err)
		return
	}

	detail := h.Builder.Detail(today, *eq, tests, schedules, windowDays)
	writeJSON(w, http.StatusOK, toDetailDTO(detail, today))
}

// DeleteEquipment removes equipment with its tests and schedules.
func (h *Handler) DeleteEquipment(w http.ResponseWriter, r *http.Request) {
	id, ok := equipmentIDParam(w, r)
	if !ok {
		return
	}

	actor := actorFrom(r)
	ctx := r.Context()
	err := h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		if err := repo.DeleteEquipment(ctx, id); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditEquipmentDeleted,
			EquipmentID: id,
		})
	})
	if err != nil {
		h.writeDomainError(w, "Failed to delete equipment", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// TEST HANDLERS
// =============================================================================

// RecordTest adds a performed (or future-dated) test to an equipment.
func (h *Handler) RecordTest(w http.ResponseWriter, r *http.Request) {
	today, ok := h.asOf(w, r)
	if !ok {
		return
	}
	id, ok := equipmentIDParam(w, r)
	if !ok {
		return
	}

	var req factory.TestJSON
	if !decodeBody(w, r, &req) {
		return
	}
	test, err := h.Factory.FromTestJSON(req, id)
	if err != nil {
		h.writeDomainError(w, "Invalid compliance test", err)
		return
	}
	test.ID = 0

	actor := actorFrom(r)
	test.CreatedBy = actor
	test.ModifiedBy = actor

	ctx := r.Context()
	err = h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		if err := repo.SaveTest(ctx, test); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditTestRecorded,
			EquipmentID: id,
			RecordID:    int64(test.ID),
			Payload:     map[string]any{"test_type": test.TestType, "test_date": test.TestDate.String()},
		})
	})
	if err != nil {
		h.writeDomainError(w, "Failed to record test", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusCreated, toTestDTO(*test, today))
}

// UpdateTest amends a recorded test. A new date or type moves the anchor the
// next due date is computed from.
func (h *Handler) UpdateTest(w http.ResponseWriter, r *http.Request) {
	today, ok := h.asOf(w, r)
	if !ok {
		return
	}
	raw, err := generic.ParseID("test_id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid test id", err)
		return
	}
	id := generic.TestID(raw)

	var req factory.TestJSON
	if !decodeBody(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	ctx := r.Context()
	var updated *compliance.ComplianceTest
	err = h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		existing, err := repo.GetTest(ctx, id)
		if err != nil {
			return err
		}
		test, err := h.Factory.FromTestJSON(req, existing.EquipmentID)
		if err != nil {
			return err
		}
		test.ID = existing.ID
		test.CreatedBy = existing.CreatedBy
		test.CreatedAt = existing.CreatedAt
		test.ModifiedBy = actor
		if err := repo.SaveTest(ctx, test); err != nil {
			return err
		}
		updated = test
		return repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditTestUpdated,
			EquipmentID: existing.EquipmentID,
			RecordID:    int64(id),
			Payload: map[string]any{
				"from": map[string]any{"test_type": existing.TestType, "test_date": existing.TestDate.String()},
				"to":   map[string]any{"test_type": test.TestType, "test_date": test.TestDate.String()},
			},
		})
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update test", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, toTestDTO(*updated, today))
}

// DeleteTest removes a test record.
func (h *Handler) DeleteTest(w http.ResponseWriter, r *http.Request) {
	raw, err := generic.ParseID("test_id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid test id", err)
		return
	}
	id := generic.TestID(raw)

	actor := actorFrom(r)
	ctx := r.Context()
	err = h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		test, err := repo.GetTest(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteTest(ctx, id); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditTestDeleted,
			EquipmentID: test.EquipmentID,
			RecordID:    int64(id),
			Payload:     map[string]any{"test_type": test.TestType, "test_date": test.TestDate.String()},
		})
	})
	if err != nil {
		h.writeDomainError(w, "Failed to delete test", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// SCHEDULE HANDLERS
// =============================================================================

// CreateSchedule books a future test.
func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	today, ok := h.asOf(w, r)
	if !ok {
		return
	}
	id, ok := equipmentIDParam(w, r)
	if !ok {
		return
	}

	var req factory.ScheduleJSON
	if !decodeBody(w, r, &req) {
		return
	}
	sch, err := h.Factory.FromScheduleJSON(req, id, today)
	if err != nil {
		h.writeDomainError(w, "Invalid schedule", err)
		return
	}
	sch.ID = 0

	actor := actorFrom(r)
	sch.CreatedBy = actor
	sch.ModifiedBy = actor

	ctx := r.Context()
	err = h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		if err := repo.SaveSchedule(ctx, sch); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditScheduleCreated,
			EquipmentID: id,
			RecordID:    int64(sch.ID),
			Payload:     map[string]any{"scheduled_date": sch.ScheduledDate.String()},
		})
	})
	if err != nil {
		h.writeDomainError(w, "Failed to create schedule", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusCreated, toScheduleDTO(*sch))
}

// UpdateSchedule changes the date or notes of a scheduled test.
func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	today, ok := h.asOf(w, r)
	if !ok {
		return
	}
	raw, err := generic.ParseID("schedule_id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule id", err)
		return
	}
	id := generic.ScheduleID(raw)

	var req factory.ScheduleJSON
	if !decodeBody(w, r, &req) {
		return
	}

	actor := actorFrom(r)
	ctx := r.Context()
	var updated *compliance.ScheduledTest
	err = h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		existing, err := repo.GetSchedule(ctx, id)
		if err != nil {
			return err
		}
		if req.SchedulingDate == "" {
			req.SchedulingDate = existing.SchedulingDate.String()
		}
		sch, err := h.Factory.FromScheduleJSON(req, existing.EquipmentID, today)
		if err != nil {
			return err
		}
		sch.ID = existing.ID
		sch.CreatedBy = existing.CreatedBy
		sch.CreatedAt = existing.CreatedAt
		sch.ModifiedBy = actor
		if err := repo.SaveSchedule(ctx, sch); err != nil {
			return err
		}
		updated = sch
		return repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditScheduleUpdated,
			EquipmentID: existing.EquipmentID,
			RecordID:    int64(id),
			Payload: map[string]any{
				"from": existing.ScheduledDate.String(),
				"to":   sch.ScheduledDate.String(),
			},
		})
	})
	if err != nil {
		h.writeDomainError(w, "Failed to update schedule", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, toScheduleDTO(*updated))
}

// DeleteSchedule cancels a scheduled test.
func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	raw, err := generic.ParseID("schedule_id", chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule id", err)
		return
	}
	id := generic.ScheduleID(raw)

	actor := actorFrom(r)
	ctx := r.Context()
	err = h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		existing, err := repo.GetSchedule(ctx, id)
		if err != nil {
			return err
		}
		if err := repo.DeleteSchedule(ctx, id); err != nil {
			return err
		}
		return repo.AppendAudit(ctx, generic.AuditEntry{
			Actor:       actor,
			Action:      generic.AuditScheduleDeleted,
			EquipmentID: existing.EquipmentID,
			RecordID:    int64(id),
			Payload:     map[string]any{"scheduled_date": existing.ScheduledDate.String()},
		})
	})
	if err != nil {
		h.writeDomainError(w, "Failed to delete schedule", err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// =============================================================================
// AUDIT HANDLERS
// =============================================================================

// ListAudit returns audit entries, oldest first.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter generic.AuditFilter

	if raw := q.Get("eq_id"); raw != "" {
		id, err := generic.ParseEquipmentID(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid eq_id", err)
			return
		}
		filter.EquipmentID = &id
	}
	if actor := q.Get("actor"); actor != "" {
		filter.Actor = &actor
	}
	for _, a := range q["action"] {
		filter.Actions = append(filter.Actions, generic.AuditAction(a))
	}

	entries, err := h.Repo.QueryAudit(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to query audit log", err)
		return
	}
	dtos := make([]AuditEntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = toAuditDTO(e)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// HELPERS
// =============================================================================

func (h *Handler) today() generic.Date {
	if h.Clock == nil {
		return generic.Today()
	}
	return h.Clock()
}

func (h *Handler) invalidate() {
	if h.Refresher != nil {
		h.Refresher.Invalidate()
	}
}

// asOf reads the as_of parameter, falling back to the clock.
func (h *Handler) asOf(w http.ResponseWriter, r *http.Request) (generic.Date, bool) {
	raw := r.URL.Query().Get("as_of")
	if raw == "" {
		return h.today(), true
	}
	d, err := generic.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid as_of (use YYYY-MM-DD)", err)
		return generic.Date{}, false
	}
	return d, true
}

// dateAndWindow reads as_of and days. A days value that is not a positive
// integer falls back to the configured window.
func (h *Handler) dateAndWindow(w http.ResponseWriter, r *http.Request) (generic.Date, int, bool) {
	today, ok := h.asOf(w, r)
	if !ok {
		return generic.Date{}, 0, false
	}
	days, err := intParam(r.URL.Query().Get("days"), h.WindowDays)
	if err != nil {
		days = h.WindowDays
	}
	return today, compliance.NormalizeWindow(days), true
}

func filterFromQuery(r *http.Request) compliance.Filter {
	q := r.URL.Query()
	return compliance.Filter{
		Class:    q.Get("eq_class"),
		Subclass: q.Get("eq_subclass"),
		Facility: q.Get("eq_fac"),
		Search:   q.Get("search"),
	}
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &generic.ValidationError{Field: "query", Message: "expected an integer, got " + strconv.Quote(raw)}
	}
	return n, nil
}

func equipmentIDParam(w http.ResponseWriter, r *http.Request) (generic.EquipmentID, bool) {
	id, err := generic.ParseEquipmentID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid equipment id", err)
		return 0, false
	}
	return id, true
}

func actorFrom(r *http.Request) string {
	if initials := compliance.Initials(r.Header.Get(ActorHeader)); initials != "" {
		return initials
	}
	return SystemActor
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

func sortRankedByID(rows []compliance.RankedEquipment, descending bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return rows[i].Equipment.ID > rows[j].Equipment.ID
		}
		return rows[i].Equipment.ID < rows[j].Equipment.ID
	})
}

// writeDomainError maps the error taxonomy onto HTTP status codes.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case generic.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Logger.Error(message, "error", err)
		writeError(w, http.StatusInternalServerError, message, err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
