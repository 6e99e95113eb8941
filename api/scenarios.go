/*
scenarios.go - Demo data sets for testing and demonstrations

PURPOSE:

	Populates the store with realistic equipment, test history and
	schedules. Every date is relative to the request's "today" so a data set
	shows the same picture whenever it is loaded.

AVAILABLE SCENARIOS:

	mixed-fleet:       One device in every worklist bucket, plus retired and
	                   non-physics equipment that the worklist ignores
	multi-policy:      Devices under several regimes at once (earliest wins)
	schedule-followup: Schedules superseded by a recent test vs. still live
	empty:             No data

HOW SCENARIOS WORK:
 1. Reset the store (equipment, tests, schedules)
 2. Convert the records with a lenient factory, so legacy policy names
    such as "Monthly" survive and are skipped by the calculator
 3. Save equipment, then its tests and schedules, appending audit entries
 4. All of it in one transaction

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "mixed-fleet"}

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Handler
  - factory/records.go: Record JSON definitions
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/factory"
	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "mixed-fleet",
		Name:        "Mixed Fleet",
		Description: "Overdue, upcoming, compliant and untested equipment, plus retired and non-physics devices",
	},
	{
		ID:          "multi-policy",
		Name:        "Multi-Policy",
		Description: "Equipment under ACR, TJC and state regimes at once; the earliest due date wins",
	},
	{
		ID:          "schedule-followup",
		Name:        "Schedule Follow-up",
		Description: "Scheduled tests superseded by a recent annual vs. schedules still outstanding",
	},
	{
		ID:          "empty",
		Name:        "Empty",
		Description: "No equipment",
	},
}

// scenarioLoaders build each data set for a given today.
var scenarioLoaders = map[string]func(today generic.Date) []factory.EquipmentJSON{
	"mixed-fleet":       mixedFleet,
	"multi-policy":      multiPolicy,
	"schedule-followup": scheduleFollowup,
	"empty":             func(generic.Date) []factory.EquipmentJSON { return nil },
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the last scenario loaded by this process, or
// null when none has been.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	id := h.CurrentScenario()
	if id == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == id {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: id, Name: id})
}

// CurrentScenario is safe for concurrent use with LoadScenario.
func (h *Handler) CurrentScenario() string {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()
	return h.currentScenario
}

func (h *Handler) setCurrentScenario(id string) {
	h.scenarioMu.Lock()
	defer h.scenarioMu.Unlock()
	h.currentScenario = id
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	today, ok := h.asOf(w, r)
	if !ok {
		return
	}

	var req LoadScenarioRequest
	if !decodeBody(w, r, &req) {
		return
	}

	n, err := h.loadScenario(r.Context(), req.ScenarioID, today, actorFrom(r))
	if err != nil {
		h.writeDomainError(w, fmt.Sprintf("Failed to load scenario %q", req.ScenarioID), err)
		return
	}
	h.invalidate()

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "loaded",
		"scenario":  req.ScenarioID,
		"equipment": n,
	})
}

func (h *Handler) loadScenario(ctx context.Context, id string, today generic.Date, actor string) (int, error) {
	loader, ok := scenarioLoaders[id]
	if !ok {
		return 0, &generic.ValidationError{Field: "scenario_id", Message: "unknown scenario " + id}
	}

	lenient := factory.NewRecordFactory(false)
	var records []factory.Record
	for i, ej := range loader(today) {
		rec, err := lenient.FromEquipmentJSON(ej, today)
		if err != nil {
			return 0, fmt.Errorf("equipment[%d]: %w", i, err)
		}
		records = append(records, *rec)
	}

	err := h.Repo.WithTx(ctx, func(repo compliance.Repository) error {
		if err := repo.Reset(ctx); err != nil {
			return err
		}
		for i := range records {
			if err := factory.SaveRecord(ctx, repo, &records[i], actor); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	h.setCurrentScenario(id)
	h.Logger.Info("scenario loaded", "scenario", id, "equipment", len(records), "as_of", today.String())
	return len(records), nil
}

// =============================================================================
// SCENARIO DATA
// =============================================================================

func boolPtr(b bool) *bool { return &b }

func daysFrom(today generic.Date, n int) string { return today.AddDays(n).String() }

func monthsFrom(today generic.Date, n int) string { return today.AddMonths(n).String() }

func mixedFleet(today generic.Date) []factory.EquipmentJSON {
	return []factory.EquipmentJSON{
		{
			Class: "CT", Subclass: "Diagnostic", Manufacturer: "Siemens", Model: "Somatom Force",
			Department: "Radiology", Facility: "Main Campus", Room: "CT-1", AssetID: "A-1001",
			AuditFrequency: factory.FrequencyList{"Annual - TJC"},
			Tests: []factory.TestJSON{
				{TestType: "Acceptance", TestDate: monthsFrom(today, -26), PerformedBy: "NB"},
				{TestType: "Annual", TestDate: monthsFrom(today, -14), PerformedBy: "NB"},
			},
		},
		{
			Class: "Mammography", Manufacturer: "Hologic", Model: "3Dimensions",
			Department: "Breast Imaging", Facility: "Main Campus", Room: "M-2", AssetID: "A-1002",
			AuditFrequency: factory.FrequencyList{"Annual - ACR"},
			Tests: []factory.TestJSON{
				{TestType: "Annual", TestDate: monthsFrom(today, -13), PerformedBy: "JS"},
				{TestType: "QC Review", TestDate: daysFrom(today, -20)},
			},
			Schedules: []factory.ScheduleJSON{
				{ScheduledDate: daysFrom(today, 21), Notes: "vendor confirmed"},
			},
		},
		{
			Class: "Fluoroscopy", Manufacturer: "Philips", Model: "Azurion",
			Department: "Interventional", Facility: "North Clinic", Room: "IR-3", AssetID: "A-1003",
			AuditFrequency: factory.FrequencyList{"Semiannual"},
			Tests: []factory.TestJSON{
				{TestType: "Annual", TestDate: daysFrom(today, -10), PerformedBy: "NB"},
			},
		},
		{
			Class: "MRI", Manufacturer: "GE", Model: "Signa Premier",
			Department: "Radiology", Facility: "North Clinic", Room: "MR-1", AssetID: "A-1004",
			AuditFrequency: factory.FrequencyList{"Annual - TJC"},
			Schedules: []factory.ScheduleJSON{
				{ScheduledDate: daysFrom(today, 14), Notes: "acceptance testing"},
			},
		},
		{
			Class: "Nuclear Medicine", Manufacturer: "Siemens", Model: "Symbia",
			Department: "Nuclear Medicine", Facility: "Main Campus", Room: "NM-1", AssetID: "A-1005",
			// Monthly is a retired policy name; it is kept in storage and skipped.
			AuditFrequency: factory.FrequencyList{"Annual - TJC", "Monthly"},
			Tests: []factory.TestJSON{
				{TestType: "annual", TestDate: daysFrom(today, -300), PerformedBy: "AK"},
			},
		},
		{
			Class: "Radiography", Manufacturer: "Carestream", Model: "DRX-1",
			Department: "Radiology", Facility: "Main Campus", Room: "XR-9", AssetID: "A-1006",
			AuditFrequency: factory.FrequencyList{"Annual - TJC"},
			Retired:        true,
			RetirementDate: monthsFrom(today, -2),
			Tests: []factory.TestJSON{
				{TestType: "Annual", TestDate: monthsFrom(today, -20)},
				{TestType: "Retire", TestDate: monthsFrom(today, -2)},
			},
		},
		{
			Class: "Dental", Manufacturer: "Planmeca", Model: "ProMax",
			Department: "Dental", Facility: "South Clinic", Room: "D-1", AssetID: "A-1007",
			AuditFrequency:  factory.FrequencyList{"Annual - TJC"},
			PhysicsCoverage: boolPtr(false),
		},
	}
}

func multiPolicy(today generic.Date) []factory.EquipmentJSON {
	anchor := monthsFrom(today, -11)
	return []factory.EquipmentJSON{
		{
			Class: "Mammography", Manufacturer: "GE", Model: "Pristina",
			Facility: "Main Campus", Room: "M-1", AssetID: "B-2001",
			AuditFrequency: factory.FrequencyList{"Annual - ACR", "Semiannual"},
			Tests:          []factory.TestJSON{{TestType: "Annual", TestDate: anchor}},
		},
		{
			Class: "CT", Manufacturer: "Canon", Model: "Aquilion",
			Facility: "Main Campus", Room: "CT-4", AssetID: "B-2002",
			AuditFrequency: factory.FrequencyList{"Annual - ACR", "Annual - TJC"},
			Tests:          []factory.TestJSON{{TestType: "Annual", TestDate: anchor}},
		},
		{
			Class: "Radiography", Manufacturer: "Fujifilm", Model: "FDR Visionary",
			Facility: "East Clinic", Room: "XR-2", AssetID: "B-2003",
			AuditFrequency: factory.FrequencyList{"Annual - ME", "Quarterly"},
			Tests:          []factory.TestJSON{{TestType: "Acceptance", TestDate: anchor}},
		},
	}
}

func scheduleFollowup(today generic.Date) []factory.EquipmentJSON {
	return []factory.EquipmentJSON{
		{
			// Booked before the annual that has since been done: superseded.
			Class: "CT", Manufacturer: "Siemens", Model: "Somatom go.Up",
			Facility: "Main Campus", Room: "CT-2", AssetID: "C-3001",
			AuditFrequency: factory.FrequencyList{"Annual - TJC"},
			Tests:          []factory.TestJSON{{TestType: "Annual", TestDate: daysFrom(today, -15)}},
			Schedules: []factory.ScheduleJSON{
				{ScheduledDate: daysFrom(today, -18), SchedulingDate: daysFrom(today, -60)},
				{ScheduledDate: daysFrom(today, 10), SchedulingDate: daysFrom(today, -60)},
			},
		},
		{
			// Next year's annual already on the calendar: live.
			Class: "CT", Manufacturer: "GE", Model: "Revolution",
			Facility: "Main Campus", Room: "CT-3", AssetID: "C-3002",
			AuditFrequency: factory.FrequencyList{"Annual - TJC"},
			Tests:          []factory.TestJSON{{TestType: "Annual", TestDate: monthsFrom(today, -11)}},
			Schedules: []factory.ScheduleJSON{
				{ScheduledDate: daysFrom(today, 20), SchedulingDate: daysFrom(today, -5)},
			},
		},
	}
}
