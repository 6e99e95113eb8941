// Package memory provides an in-memory compliance.Repository for tests and
// demos.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/physics-compliance/compliance"
	"github.com/warp/physics-compliance/generic"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory is safe for concurrent use. Records are copied on the way in and on
// the way out, so callers never share state with the store.
type Memory struct {
	mu   sync.RWMutex
	txMu sync.Mutex // serializes WithTx

	equipment map[generic.EquipmentID]compliance.Equipment
	tests     map[generic.TestID]compliance.ComplianceTest
	schedules map[generic.ScheduleID]compliance.ScheduledTest
	audit     []generic.AuditEntry
	seq       sequences

	now func() time.Time
}

type sequences struct {
	equipment generic.EquipmentID
	test      generic.TestID
	schedule  generic.ScheduleID
	audit     int64
}

var _ compliance.Repository = (*Memory)(nil)

func New() *Memory {
	m := &Memory{now: func() time.Time { return time.Now().UTC() }}
	m.resetLocked()
	return m
}

func (m *Memory) resetLocked() {
	m.equipment = make(map[generic.EquipmentID]compliance.Equipment)
	m.tests = make(map[generic.TestID]compliance.ComplianceTest)
	m.schedules = make(map[generic.ScheduleID]compliance.ScheduledTest)
	m.audit = nil
	m.seq = sequences{}
}

// Reset removes all data and restarts id sequences.
func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resetLocked()
	return nil
}

// =============================================================================
// EQUIPMENT
// =============================================================================

func (m *Memory) ActiveEquipment(_ context.Context, today generic.Date) ([]compliance.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []compliance.Equipment
	for _, eq := range m.equipment {
		if eq.IsActive(today) {
			result = append(result, cloneEquipment(eq))
		}
	}
	sortEquipment(result)
	return result, nil
}

func (m *Memory) ListEquipment(_ context.Context) ([]compliance.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]compliance.Equipment, 0, len(m.equipment))
	for _, eq := range m.equipment {
		result = append(result, cloneEquipment(eq))
	}
	sortEquipment(result)
	return result, nil
}

func (m *Memory) GetEquipment(_ context.Context, id generic.EquipmentID) (*compliance.Equipment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	eq, ok := m.equipment[id]
	if !ok {
		return nil, generic.ErrEquipmentNotFound
	}
	c := cloneEquipment(eq)
	return &c, nil
}

func (m *Memory) SaveEquipment(_ context.Context, eq *compliance.Equipment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eq.ID == 0 {
		m.seq.equipment++
		eq.ID = m.seq.equipment
	} else if eq.ID > m.seq.equipment {
		m.seq.equipment = eq.ID
	}
	m.equipment[eq.ID] = cloneEquipment(*eq)
	return nil
}

func (m *Memory) DeleteEquipment(_ context.Context, id generic.EquipmentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.equipment[id]; !ok {
		return generic.ErrEquipmentNotFound
	}
	delete(m.equipment, id)
	for tid, t := range m.tests {
		if t.EquipmentID == id {
			delete(m.tests, tid)
		}
	}
	for sid, s := range m.schedules {
		if s.EquipmentID == id {
			delete(m.schedules, sid)
		}
	}
	return nil
}

// =============================================================================
// COMPLIANCE TESTS
// =============================================================================

func (m *Memory) TestsForEquipment(_ context.Context, id generic.EquipmentID) ([]compliance.ComplianceTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.filterTests(func(t compliance.ComplianceTest) bool { return t.EquipmentID == id }), nil
}

func (m *Memory) TestsInRange(_ context.Context, from, to generic.Date) ([]compliance.ComplianceTest, error) {
	if err := (generic.Period{Start: from, End: to}).Validate(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.filterTests(func(t compliance.ComplianceTest) bool {
		return from.BeforeOrEqual(t.TestDate) && t.TestDate.BeforeOrEqual(to)
	}), nil
}

func (m *Memory) filterTests(keep func(compliance.ComplianceTest) bool) []compliance.ComplianceTest {
	var result []compliance.ComplianceTest
	for _, t := range m.tests {
		if keep(t) {
			result = append(result, cloneTest(t))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if c := result[i].TestDate.Compare(result[j].TestDate); c != 0 {
			return c < 0
		}
		return result[i].ID < result[j].ID
	})
	return result
}

func (m *Memory) GetTest(_ context.Context, id generic.TestID) (*compliance.ComplianceTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tests[id]
	if !ok {
		return nil, generic.ErrTestNotFound
	}
	c := cloneTest(t)
	return &c, nil
}

func (m *Memory) SaveTest(_ context.Context, t *compliance.ComplianceTest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.equipment[t.EquipmentID]; !ok {
		return generic.ErrEquipmentNotFound
	}
	now := m.now()
	if t.ID == 0 {
		m.seq.test++
		t.ID = m.seq.test
		t.CreatedAt = now
	} else if prev, ok := m.tests[t.ID]; ok {
		t.CreatedAt = prev.CreatedAt
	}
	if t.ID > m.seq.test {
		m.seq.test = t.ID
	}
	t.UpdatedAt = now
	m.tests[t.ID] = cloneTest(*t)
	return nil
}

func (m *Memory) DeleteTest(_ context.Context, id generic.TestID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tests[id]; !ok {
		return generic.ErrTestNotFound
	}
	delete(m.tests, id)
	return nil
}

// =============================================================================
// SCHEDULED TESTS
// =============================================================================

func (m *Memory) SchedulesForEquipment(_ context.Context, id generic.EquipmentID) ([]compliance.ScheduledTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.filterSchedules(func(s compliance.ScheduledTest) bool { return s.EquipmentID == id }), nil
}

func (m *Memory) SchedulesFrom(_ context.Context, from generic.Date) ([]compliance.ScheduledTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.filterSchedules(func(s compliance.ScheduledTest) bool { return s.ScheduledDate.AfterOrEqual(from) }), nil
}

func (m *Memory) filterSchedules(keep func(compliance.ScheduledTest) bool) []compliance.ScheduledTest {
	var result []compliance.ScheduledTest
	for _, s := range m.schedules {
		if keep(s) {
			result = append(result, s)
		}
	}
	compliance.SortSchedules(result)
	return result
}

func (m *Memory) GetSchedule(_ context.Context, id generic.ScheduleID) (*compliance.ScheduledTest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.schedules[id]
	if !ok {
		return nil, generic.ErrScheduleNotFound
	}
	return &s, nil
}

func (m *Memory) SaveSchedule(_ context.Context, s *compliance.ScheduledTest) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.equipment[s.EquipmentID]; !ok {
		return generic.ErrEquipmentNotFound
	}
	now := m.now()
	if s.ID == 0 {
		m.seq.schedule++
		s.ID = m.seq.schedule
		s.CreatedAt = now
	} else if prev, ok := m.schedules[s.ID]; ok {
		s.CreatedAt = prev.CreatedAt
	}
	if s.ID > m.seq.schedule {
		m.seq.schedule = s.ID
	}
	s.UpdatedAt = now
	m.schedules[s.ID] = *s
	return nil
}

func (m *Memory) DeleteSchedule(_ context.Context, id generic.ScheduleID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.schedules[id]; !ok {
		return generic.ErrScheduleNotFound
	}
	delete(m.schedules, id)
	return nil
}

// =============================================================================
// AUDIT LOG
// =============================================================================

// AppendAudit adds an entry. Append-only.
func (m *Memory) AppendAudit(_ context.Context, entry generic.AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq.audit++
	entry.ID = m.seq.audit
	if entry.Timestamp.IsZero() {
		entry.Timestamp = m.now()
	}
	m.audit = append(m.audit, entry)
	return nil
}

// QueryAudit returns matching entries, oldest first.
func (m *Memory) QueryAudit(_ context.Context, filter generic.AuditFilter) ([]generic.AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var result []generic.AuditEntry
	for _, e := range m.audit {
		if matchAudit(e, filter) {
			result = append(result, e)
		}
	}
	return result, nil
}

func matchAudit(e generic.AuditEntry, f generic.AuditFilter) bool {
	if f.EquipmentID != nil && e.EquipmentID != *f.EquipmentID {
		return false
	}
	if f.Actor != nil && e.Actor != *f.Actor {
		return false
	}
	if f.From != nil && e.Timestamp.Before(*f.From) {
		return false
	}
	if f.To != nil && e.Timestamp.After(*f.To) {
		return false
	}
	if len(f.Actions) == 0 {
		return true
	}
	for _, a := range f.Actions {
		if e.Action == a {
			return true
		}
	}
	return false
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx runs fn against the store and rolls every change back if fn
// returns an error. Transactions are serialized with each other but are not
// isolated from writers outside WithTx.
func (m *Memory) WithTx(_ context.Context, fn func(compliance.Repository) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.RLock()
	snap := m.snapshot()
	m.mu.RUnlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restore(snap)
		m.mu.Unlock()
		return err
	}
	return nil
}

type memorySnapshot struct {
	equipment map[generic.EquipmentID]compliance.Equipment
	tests     map[generic.TestID]compliance.ComplianceTest
	schedules map[generic.ScheduleID]compliance.ScheduledTest
	audit     []generic.AuditEntry
	seq       sequences
}

func (m *Memory) snapshot() memorySnapshot {
	s := memorySnapshot{
		equipment: make(map[generic.EquipmentID]compliance.Equipment, len(m.equipment)),
		tests:     make(map[generic.TestID]compliance.ComplianceTest, len(m.tests)),
		schedules: make(map[generic.ScheduleID]compliance.ScheduledTest, len(m.schedules)),
		audit:     append([]generic.AuditEntry(nil), m.audit...),
		seq:       m.seq,
	}
	for k, v := range m.equipment {
		s.equipment[k] = v
	}
	for k, v := range m.tests {
		s.tests[k] = v
	}
	for k, v := range m.schedules {
		s.schedules[k] = v
	}
	return s
}

func (m *Memory) restore(s memorySnapshot) {
	m.equipment = s.equipment
	m.tests = s.tests
	m.schedules = s.schedules
	m.audit = s.audit
	m.seq = s.seq
}

// =============================================================================
// HELPERS
// =============================================================================

func sortEquipment(eqs []compliance.Equipment) {
	sort.Slice(eqs, func(i, j int) bool { return eqs[i].ID < eqs[j].ID })
}

// cloneEquipment also normalizes frequencies to one name per entry, the
// same shape the sqlite store returns.
func cloneEquipment(eq compliance.Equipment) compliance.Equipment {
	eq.AuditFrequencies = compliance.FlattenFrequencies(eq.AuditFrequencies)
	if eq.RetirementDate != nil {
		eq.RetirementDate = eq.RetirementDate.Ptr()
	}
	return eq
}

func cloneTest(t compliance.ComplianceTest) compliance.ComplianceTest {
	if t.ReportDate != nil {
		t.ReportDate = t.ReportDate.Ptr()
	}
	if t.SubmissionDate != nil {
		t.SubmissionDate = t.SubmissionDate.Ptr()
	}
	return t
}
