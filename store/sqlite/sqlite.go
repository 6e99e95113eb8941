/*
Package sqlite provides a SQLite-backed compliance.Repository.

PURPOSE:
  Persists equipment, test history, scheduled tests and the audit log.
  The compliance engine never sees SQL; the API and the refresher reach it
  through the compliance.Repository interface.

KEY TABLES:
  equipment:        One row per device; audit frequencies as a
                    comma-separated string ("Annual, Annual - TJC")
  compliance_tests: Performed tests, cascade-deleted with their equipment
  scheduled_tests:  Planned tests, cascade-deleted with their equipment
  audit_log:        Append-only record of mutations

DATES:
  Calendar dates are stored as YYYY-MM-DD text so range filters and ORDER BY
  compare lexically. Timestamps are RFC3339 UTC.

INDEXES:
  - idx_tests_equipment_date: Anchor lookup per equipment (hot path)
  - idx_schedules_equipment_date: Reconciliation per equipment
  - idx_equipment_active: Worklist equipment selection

CONCURRENCY:
  A sync.RWMutex serializes writers; the pool is limited to one connection,
  which SQLite needs anyway for ":memory:" databases.

USAGE:
  store, err := sqlite.New("./data/compliance.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

MIGRATION:
  Schema is auto-migrated on New().

SEE ALSO:
  - compliance/repository.go: Interface definitions
  - store/memory/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements compliance.Repository using SQLite.
type Store struct {
	db *sql.DB
	q  querier
	tx *sql.Tx // set on the view handed to WithTx callbacks
	mu *sync.RWMutex
}

var _ compliance.Repository = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	store := &Store{db: db, q: db, mu: &sync.RWMutex{}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS equipment (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		audit_frequencies TEXT NOT NULL DEFAULT '',
		retired INTEGER NOT NULL DEFAULT 0,
		retirement_date TEXT,
		physics_coverage INTEGER NOT NULL DEFAULT 1,
		eq_class TEXT NOT NULL DEFAULT '',
		eq_subclass TEXT NOT NULL DEFAULT '',
		manufacturer TEXT NOT NULL DEFAULT '',
		model TEXT NOT NULL DEFAULT '',
		department TEXT NOT NULL DEFAULT '',
		facility TEXT NOT NULL DEFAULT '',
		room TEXT NOT NULL DEFAULT '',
		asset_id TEXT NOT NULL DEFAULT '',
		serial_number TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_equipment_active
		ON equipment(physics_coverage, retired, retirement_date);

	CREATE TABLE IF NOT EXISTS compliance_tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipment_id INTEGER NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
		test_type TEXT NOT NULL,
		test_date TEXT NOT NULL,
		report_date TEXT,
		submission_date TEXT,
		performed_by TEXT,
		reviewed_by TEXT,
		notes TEXT,
		created_by TEXT,
		modified_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_tests_equipment_date
		ON compliance_tests(equipment_id, test_date DESC);
	CREATE INDEX IF NOT EXISTS idx_tests_date
		ON compliance_tests(test_date);

	CREATE TABLE IF NOT EXISTS scheduled_tests (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		equipment_id INTEGER NOT NULL REFERENCES equipment(id) ON DELETE CASCADE,
		scheduled_date TEXT NOT NULL,
		scheduling_date TEXT NOT NULL,
		notes TEXT,
		created_by TEXT,
		modified_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_schedules_equipment_date
		ON scheduled_tests(equipment_id, scheduled_date);
	CREATE INDEX IF NOT EXISTS idx_schedules_date
		ON scheduled_tests(scheduled_date);

	-- Audit log (append-only, survives equipment deletion)
	CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		timestamp TEXT NOT NULL,
		actor TEXT NOT NULL,
		action TEXT NOT NULL,
		equipment_id INTEGER NOT NULL,
		record_id INTEGER NOT NULL DEFAULT 0,
		payload_json TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_audit_equipment
		ON audit_log(equipment_id, timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// lock and rlock are no-ops inside WithTx, where the outer store already
// holds the write lock.
func (s *Store) lock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() func() {
	if s.tx != nil {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(compliance.Repository) error) error {
	if s.tx != nil {
		return fn(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	view := &Store{db: s.db, q: sqlTx, tx: sqlTx, mu: s.mu}
	if err := fn(view); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// =============================================================================
// EQUIPMENT
// =============================================================================

const equipmentColumns = `id, audit_frequencies, retired, retirement_date, physics_coverage,
	eq_class, eq_subclass, manufacturer, model, department, facility, room, asset_id, serial_number`

// ActiveEquipment returns physics-covered equipment that is not retired on today.
func (s *Store) ActiveEquipment(ctx context.Context, today generic.Date) ([]compliance.Equipment, error) {
	defer s.rlock()()

	query := `SELECT ` + equipmentColumns + ` FROM equipment
		WHERE physics_coverage = 1 AND retired = 0
		  AND (retirement_date IS NULL OR retirement_date > ?)
		ORDER BY id`
	return s.queryEquipment(ctx, query, today.String())
}

func (s *Store) ListEquipment(ctx context.Context) ([]compliance.Equipment, error) {
	defer s.rlock()()

	return s.queryEquipment(ctx, `SELECT `+equipmentColumns+` FROM equipment ORDER BY id`)
}

func (s *Store) GetEquipment(ctx context.Context, id generic.EquipmentID) (*compliance.Equipment, error) {
	defer s.rlock()()

	eqs, err := s.queryEquipment(ctx, `SELECT `+equipmentColumns+` FROM equipment WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(eqs) == 0 {
		return nil, generic.ErrEquipmentNotFound
	}
	return &eqs[0], nil
}

// SaveEquipment inserts (ID zero) or upserts equipment.
func (s *Store) SaveEquipment(ctx context.Context, eq *compliance.Equipment) error {
	defer s.lock()()

	args := []any{
		compliance.JoinFrequencies(compliance.FlattenFrequencies(eq.AuditFrequencies)),
		eq.Retired, nullDate(eq.RetirementDate), eq.PhysicsCoverage,
		eq.Class, eq.Subclass, eq.Manufacturer, eq.Model,
		eq.Department, eq.Facility, eq.Room, eq.AssetID, eq.SerialNumber,
	}

	if eq.ID == 0 {
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO equipment (audit_frequencies, retired, retirement_date, physics_coverage,
				eq_class, eq_subclass, manufacturer, model, department, facility, room, asset_id, serial_number)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return fmt.Errorf("failed to insert equipment: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read equipment id: %w", err)
		}
		eq.ID = generic.EquipmentID(id)
		return nil
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO equipment (id, audit_frequencies, retired, retirement_date, physics_coverage,
			eq_class, eq_subclass, manufacturer, model, department, facility, room, asset_id, serial_number)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			audit_frequencies = excluded.audit_frequencies,
			retired = excluded.retired,
			retirement_date = excluded.retirement_date,
			physics_coverage = excluded.physics_coverage,
			eq_class = excluded.eq_class,
			eq_subclass = excluded.eq_subclass,
			manufacturer = excluded.manufacturer,
			model = excluded.model,
			department = excluded.department,
			facility = excluded.facility,
			room = excluded.room,
			asset_id = excluded.asset_id,
			serial_number = excluded.serial_number`,
		append([]any{eq.ID}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to save equipment: %w", err)
	}
	return nil
}

// DeleteEquipment removes equipment; tests and schedules cascade.
func (s *Store) DeleteEquipment(ctx context.Context, id generic.EquipmentID) error {
	defer s.lock()()

	return s.deleteByID(ctx, "equipment", int64(id), generic.ErrEquipmentNotFound)
}

func (s *Store) queryEquipment(ctx context.Context, query string, args ...any) ([]compliance.Equipment, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query equipment: %w", err)
	}
	defer rows.Close()

	var result []compliance.Equipment
	for rows.Next() {
		var (
			eq             compliance.Equipment
			frequencies    string
			retirementDate sql.NullString
		)
		err := rows.Scan(&eq.ID, &frequencies, &eq.Retired, &retirementDate, &eq.PhysicsCoverage,
			&eq.Class, &eq.Subclass, &eq.Manufacturer, &eq.Model,
			&eq.Department, &eq.Facility, &eq.Room, &eq.AssetID, &eq.SerialNumber)
		if err != nil {
			return nil, fmt.Errorf("failed to scan equipment: %w", err)
		}
		eq.AuditFrequencies = compliance.SplitFrequencies(frequencies)
		if eq.RetirementDate, err = parseNullDate(retirementDate); err != nil {
			return nil, fmt.Errorf("equipment %d: %w", eq.ID, err)
		}
		result = append(result, eq)
	}
	return result, rows.Err()
}

// =============================================================================
// COMPLIANCE TESTS
// =============================================================================

const testColumns = `id, equipment_id, test_type, test_date, report_date, submission_date,
	performed_by, reviewed_by, notes, created_by, modified_by, created_at, updated_at`

func (s *Store) TestsForEquipment(ctx context.Context, id generic.EquipmentID) ([]compliance.ComplianceTest, error) {
	defer s.rlock()()

	return s.queryTests(ctx, `SELECT `+testColumns+` FROM compliance_tests
		WHERE equipment_id = ? ORDER BY test_date ASC, id ASC`, id)
}

// TestsInRange returns tests with from <= test_date <= to.
func (s *Store) TestsInRange(ctx context.Context, from, to generic.Date) ([]compliance.ComplianceTest, error) {
	if err := (generic.Period{Start: from, End: to}).Validate(); err != nil {
		return nil, err
	}
	defer s.rlock()()

	return s.queryTests(ctx, `SELECT `+testColumns+` FROM compliance_tests
		WHERE test_date >= ? AND test_date <= ? ORDER BY test_date ASC, id ASC`,
		from.String(), to.String())
}

func (s *Store) GetTest(ctx context.Context, id generic.TestID) (*compliance.ComplianceTest, error) {
	defer s.rlock()()

	tests, err := s.queryTests(ctx, `SELECT `+testColumns+` FROM compliance_tests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(tests) == 0 {
		return nil, generic.ErrTestNotFound
	}
	return &tests[0], nil
}

// SaveTest inserts (ID zero) or replaces a test record.
func (s *Store) SaveTest(ctx context.Context, t *compliance.ComplianceTest) error {
	defer s.lock()()

	if err := s.requireEquipment(ctx, t.EquipmentID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now

	args := []any{
		t.EquipmentID, t.TestType, t.TestDate.String(),
		nullDate(t.ReportDate), nullDate(t.SubmissionDate),
		nullString(t.PerformedBy), nullString(t.ReviewedBy), nullString(t.Notes),
		nullString(t.CreatedBy), nullString(t.ModifiedBy),
		t.CreatedAt.Format(time.RFC3339), t.UpdatedAt.Format(time.RFC3339),
	}

	if t.ID == 0 {
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO compliance_tests (equipment_id, test_type, test_date, report_date, submission_date,
				performed_by, reviewed_by, notes, created_by, modified_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return fmt.Errorf("failed to insert compliance test: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read compliance test id: %w", err)
		}
		t.ID = generic.TestID(id)
		return nil
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO compliance_tests (id, equipment_id, test_type, test_date, report_date, submission_date,
			performed_by, reviewed_by, notes, created_by, modified_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			equipment_id = excluded.equipment_id,
			test_type = excluded.test_type,
			test_date = excluded.test_date,
			report_date = excluded.report_date,
			submission_date = excluded.submission_date,
			performed_by = excluded.performed_by,
			reviewed_by = excluded.reviewed_by,
			notes = excluded.notes,
			modified_by = excluded.modified_by,
			updated_at = excluded.updated_at`,
		append([]any{t.ID}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to save compliance test: %w", err)
	}
	return nil
}

func (s *Store) DeleteTest(ctx context.Context, id generic.TestID) error {
	defer s.lock()()

	return s.deleteByID(ctx, "compliance_tests", int64(id), generic.ErrTestNotFound)
}

func (s *Store) queryTests(ctx context.Context, query string, args ...any) ([]compliance.ComplianceTest, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query compliance tests: %w", err)
	}
	defer rows.Close()

	var result []compliance.ComplianceTest
	for rows.Next() {
		t, err := scanTest(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, t)
	}
	return result, rows.Err()
}

func scanTest(rows *sql.Rows) (compliance.ComplianceTest, error) {
	var (
		t                          compliance.ComplianceTest
		testDate                   string
		reportDate, submissionDate sql.NullString
		performedBy, reviewedBy    sql.NullString
		notes                      sql.NullString
		createdBy, modifiedBy      sql.NullString
		createdAt, updatedAt       string
	)

	err := rows.Scan(&t.ID, &t.EquipmentID, &t.TestType, &testDate, &reportDate, &submissionDate,
		&performedBy, &reviewedBy, &notes, &createdBy, &modifiedBy, &createdAt, &updatedAt)
	if err != nil {
		return t, fmt.Errorf("failed to scan compliance test: %w", err)
	}

	if t.TestDate, err = generic.ParseDate(testDate); err != nil {
		return t, fmt.Errorf("compliance test %d: %w", t.ID, err)
	}
	if t.ReportDate, err = parseNullDate(reportDate); err != nil {
		return t, fmt.Errorf("compliance test %d: %w", t.ID, err)
	}
	if t.SubmissionDate, err = parseNullDate(submissionDate); err != nil {
		return t, fmt.Errorf("compliance test %d: %w", t.ID, err)
	}
	t.PerformedBy = performedBy.String
	t.ReviewedBy = reviewedBy.String
	t.Notes = notes.String
	t.CreatedBy = createdBy.String
	t.ModifiedBy = modifiedBy.String
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	t.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return t, nil
}

// =============================================================================
// SCHEDULED TESTS
// =============================================================================

const scheduleColumns = `id, equipment_id, scheduled_date, scheduling_date, notes,
	created_by, modified_by, created_at, updated_at`

func (s *Store) SchedulesForEquipment(ctx context.Context, id generic.EquipmentID) ([]compliance.ScheduledTest, error) {
	defer s.rlock()()

	return s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM scheduled_tests
		WHERE equipment_id = ? ORDER BY scheduled_date ASC, id ASC`, id)
}

// SchedulesFrom returns schedules dated on or after from.
func (s *Store) SchedulesFrom(ctx context.Context, from generic.Date) ([]compliance.ScheduledTest, error) {
	defer s.rlock()()

	return s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM scheduled_tests
		WHERE scheduled_date >= ? ORDER BY scheduled_date ASC, equipment_id ASC, id ASC`, from.String())
}

func (s *Store) GetSchedule(ctx context.Context, id generic.ScheduleID) (*compliance.ScheduledTest, error) {
	defer s.rlock()()

	schedules, err := s.querySchedules(ctx, `SELECT `+scheduleColumns+` FROM scheduled_tests WHERE id = ?`, id)
	if err != nil {
		return nil, err
	}
	if len(schedules) == 0 {
		return nil, generic.ErrScheduleNotFound
	}
	return &schedules[0], nil
}

// SaveSchedule inserts (ID zero) or replaces a scheduled test.
func (s *Store) SaveSchedule(ctx context.Context, sch *compliance.ScheduledTest) error {
	defer s.lock()()

	if err := s.requireEquipment(ctx, sch.EquipmentID); err != nil {
		return err
	}

	now := time.Now().UTC()
	if sch.CreatedAt.IsZero() {
		sch.CreatedAt = now
	}
	sch.UpdatedAt = now

	args := []any{
		sch.EquipmentID, sch.ScheduledDate.String(), sch.SchedulingDate.String(),
		nullString(sch.Notes), nullString(sch.CreatedBy), nullString(sch.ModifiedBy),
		sch.CreatedAt.Format(time.RFC3339), sch.UpdatedAt.Format(time.RFC3339),
	}

	if sch.ID == 0 {
		res, err := s.q.ExecContext(ctx, `
			INSERT INTO scheduled_tests (equipment_id, scheduled_date, scheduling_date, notes,
				created_by, modified_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, args...)
		if err != nil {
			return fmt.Errorf("failed to insert scheduled test: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to read scheduled test id: %w", err)
		}
		sch.ID = generic.ScheduleID(id)
		return nil
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO scheduled_tests (id, equipment_id, scheduled_date, scheduling_date, notes,
			created_by, modified_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			equipment_id = excluded.equipment_id,
			scheduled_date = excluded.scheduled_date,
			scheduling_date = excluded.scheduling_date,
			notes = excluded.notes,
			modified_by = excluded.modified_by,
			updated_at = excluded.updated_at`,
		append([]any{sch.ID}, args...)...)
	if err != nil {
		return fmt.Errorf("failed to save scheduled test: %w", err)
	}
	return nil
}

func (s *Store) DeleteSchedule(ctx context.Context, id generic.ScheduleID) error {
	defer s.lock()()

	return s.deleteByID(ctx, "scheduled_tests", int64(id), generic.ErrScheduleNotFound)
}

func (s *Store) querySchedules(ctx context.Context, query string, args ...any) ([]compliance.ScheduledTest, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query scheduled tests: %w", err)
	}
	defer rows.Close()

	var result []compliance.ScheduledTest
	for rows.Next() {
		var (
			sch                           compliance.ScheduledTest
			scheduledDate, schedulingDate string
			notes, createdBy, modifiedBy  sql.NullString
			createdAt, updatedAt          string
		)
		err := rows.Scan(&sch.ID, &sch.EquipmentID, &scheduledDate, &schedulingDate, &notes,
			&createdBy, &modifiedBy, &createdAt, &updatedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scheduled test: %w", err)
		}
		if sch.ScheduledDate, err = generic.ParseDate(scheduledDate); err != nil {
			return nil, fmt.Errorf("scheduled test %d: %w", sch.ID, err)
		}
		// Older rows may lack a scheduling date; it is informational only.
		sch.SchedulingDate, _ = generic.ParseDate(schedulingDate)
		sch.Notes = notes.String
		sch.CreatedBy = createdBy.String
		sch.ModifiedBy = modifiedBy.String
		sch.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		sch.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		result = append(result, sch)
	}
	return result, rows.Err()
}

// =============================================================================
// AUDIT LOG (generic.AuditLog interface)
// =============================================================================

// AppendAudit records an entry. There is no update or delete.
func (s *Store) AppendAudit(ctx context.Context, entry generic.AuditEntry) error {
	defer s.lock()()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	payloadJSON, err := json.Marshal(entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to encode audit payload: %w", err)
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO audit_log (timestamp, actor, action, equipment_id, record_id, payload_json)
		VALUES (?, ?, ?, ?, ?, ?)`,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.Actor, entry.Action, entry.EquipmentID, entry.RecordID, string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("failed to append audit entry: %w", err)
	}
	return nil
}

// QueryAudit returns matching entries, oldest first.
func (s *Store) QueryAudit(ctx context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	defer s.rlock()()

	var (
		where []string
		args  []any
	)
	if filter.EquipmentID != nil {
		where = append(where, "equipment_id = ?")
		args = append(args, *filter.EquipmentID)
	}
	if filter.Actor != nil {
		where = append(where, "actor = ?")
		args = append(args, *filter.Actor)
	}
	if len(filter.Actions) > 0 {
		placeholders := make([]string, len(filter.Actions))
		for i, a := range filter.Actions {
			placeholders[i] = "?"
			args = append(args, a)
		}
		where = append(where, "action IN ("+strings.Join(placeholders, ", ")+")")
	}
	if filter.From != nil {
		where = append(where, "timestamp >= ?")
		args = append(args, filter.From.UTC().Format(time.RFC3339Nano))
	}
	if filter.To != nil {
		where = append(where, "timestamp <= ?")
		args = append(args, filter.To.UTC().Format(time.RFC3339Nano))
	}

	query := `SELECT id, timestamp, actor, action, equipment_id, record_id, payload_json FROM audit_log`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY id ASC"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []generic.AuditEntry
	for rows.Next() {
		var (
			e           generic.AuditEntry
			timestamp   string
			payloadJSON sql.NullString
		)
		if err := rows.Scan(&e.ID, &timestamp, &e.Actor, &e.Action, &e.EquipmentID, &e.RecordID, &payloadJSON); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		e.Timestamp, _ = time.Parse(time.RFC3339Nano, timestamp)
		if payloadJSON.Valid && payloadJSON.String != "" && payloadJSON.String != "null" {
			if err := json.Unmarshal([]byte(payloadJSON.String), &e.Payload); err != nil {
				return nil, fmt.Errorf("audit entry %d: %w", e.ID, err)
			}
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo). The audit log is kept.
func (s *Store) Reset(ctx context.Context) error {
	defer s.lock()()

	tables := []string{"scheduled_tests", "compliance_tests", "equipment"}
	for _, table := range tables {
		if _, err := s.q.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) requireEquipment(ctx context.Context, id generic.EquipmentID) error {
	var exists int
	err := s.q.QueryRowContext(ctx, "SELECT 1 FROM equipment WHERE id = ?", id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return generic.ErrEquipmentNotFound
	}
	return err
}

func (s *Store) deleteByID(ctx context.Context, table string, id int64, notFound error) error {
	res, err := s.q.ExecContext(ctx, "DELETE FROM "+table+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullDate(d *generic.Date) sql.NullString {
	if d == nil || d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func parseNullDate(ns sql.NullString) (*generic.Date, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	d, err := generic.ParseDate(ns.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}
