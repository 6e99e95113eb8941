/*
repository.go - Persistence contracts

PURPOSE:
  The engine is pure; these interfaces describe what the API layer and the
  refresher need from storage. LoadSnapshot is the one bridge between the
  two: it fetches everything a worklist build reads, up front.

NOT-FOUND SEMANTICS:
  Get/Delete of a missing record returns the matching generic.Err*NotFound
  sentinel. Saving a test or schedule for unknown equipment returns
  generic.ErrEquipmentNotFound.

IMPLEMENTATIONS:
  - store/sqlite: Production
  - store/memory: Tests and demos
*/
package compliance

import (
	"context"

	"github.com/warp/physics-compliance/generic"
)

// EquipmentStore persists equipment records.
type EquipmentStore interface {
	// ActiveEquipment returns physics-covered, non-retired equipment by id.
	ActiveEquipment(ctx context.Context, today generic.Date) ([]Equipment, error)
	ListEquipment(ctx context.Context) ([]Equipment, error)
	GetEquipment(ctx context.Context, id generic.EquipmentID) (*Equipment, error)
	// SaveEquipment inserts when eq.ID is zero (assigning the id) and
	// replaces otherwise.
	SaveEquipment(ctx context.Context, eq *Equipment) error
	// DeleteEquipment also removes the equipment's tests and schedules.
	DeleteEquipment(ctx context.Context, id generic.EquipmentID) error
}

// TestStore persists compliance test history.
type TestStore interface {
	TestsForEquipment(ctx context.Context, id generic.EquipmentID) ([]ComplianceTest, error)
	// TestsInRange returns tests with from <= TestDate <= to. An inverted
	// range fails with generic.ErrInvalidPeriod.
	TestsInRange(ctx context.Context, from, to generic.Date) ([]ComplianceTest, error)
	GetTest(ctx context.Context, id generic.TestID) (*ComplianceTest, error)
	SaveTest(ctx context.Context, t *ComplianceTest) error
	DeleteTest(ctx context.Context, id generic.TestID) error
}

// ScheduleStore persists scheduled tests.
type ScheduleStore interface {
	SchedulesForEquipment(ctx context.Context, id generic.EquipmentID) ([]ScheduledTest, error)
	// SchedulesFrom returns schedules dated on or after from.
	SchedulesFrom(ctx context.Context, from generic.Date) ([]ScheduledTest, error)
	GetSchedule(ctx context.Context, id generic.ScheduleID) (*ScheduledTest, error)
	SaveSchedule(ctx context.Context, s *ScheduledTest) error
	DeleteSchedule(ctx context.Context, id generic.ScheduleID) error
}

// Repository is the full storage surface.
type Repository interface {
	EquipmentStore
	TestStore
	ScheduleStore
	generic.AuditLog

	// WithTx runs fn atomically. The Repository passed to fn must be used
	// for every call inside it.
	WithTx(ctx context.Context, fn func(Repository) error) error

	// Reset removes all data. Used by demo scenario loading.
	Reset(ctx context.Context) error
}

// SnapshotSource is the read side LoadSnapshot needs.
type SnapshotSource interface {
	ActiveEquipment(ctx context.Context, today generic.Date) ([]Equipment, error)
	TestsForEquipment(ctx context.Context, id generic.EquipmentID) ([]ComplianceTest, error)
	SchedulesForEquipment(ctx context.Context, id generic.EquipmentID) ([]ScheduledTest, error)
}

// LoadSnapshot fetches active equipment matching filter, with history and
// schedules.
func LoadSnapshot(ctx context.Context, src SnapshotSource, today generic.Date, filter Filter) (Snapshot, error) {
	equipment, err := src.ActiveEquipment(ctx, today)
	if err != nil {
		return Snapshot{}, err
	}
	return FillSnapshot(ctx, src, filter.Apply(equipment))
}

// FillSnapshot loads history and schedules for the given equipment.
func FillSnapshot(ctx context.Context, src SnapshotSource, equipment []Equipment) (Snapshot, error) {
	snap := Snapshot{
		Equipment: equipment,
		Tests:     make(map[generic.EquipmentID][]ComplianceTest, len(equipment)),
		Schedules: make(map[generic.EquipmentID][]ScheduledTest, len(equipment)),
	}
	for _, eq := range equipment {
		if err := ctx.Err(); err != nil {
			return Snapshot{}, err
		}
		tests, err := src.TestsForEquipment(ctx, eq.ID)
		if err != nil {
			return Snapshot{}, err
		}
		schedules, err := src.SchedulesForEquipment(ctx, eq.ID)
		if err != nil {
			return Snapshot{}, err
		}
		snap.Tests[eq.ID] = tests
		snap.Schedules[eq.ID] = schedules
	}
	return snap, nil
}
