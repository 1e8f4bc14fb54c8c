// Package testutil holds in-memory stores for service and handler tests.
package testutil

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/terminalrota/rota-backend/internal/database"
	"github.com/terminalrota/rota-backend/internal/models"
)

type weeklyKey struct {
	staffID int64
	week    string
}

// MemStore is an in-memory staff, weekly_schedules and ledger store with
// the same column semantics as the SQL repositories.
type MemStore struct {
	mu     sync.Mutex
	nextID int64
	staff  map[int64]*models.Staff
	weekly map[weeklyKey]models.WeeklySchedule
	Ledger map[string]models.MigrationRecord

	FailStaffList   error
	FailWeeklyList  error
	FailUpdate      map[int64]error
	FailUpsert      map[int64]error
	FailLedgerWrite error

	Upserts int
	Updates int
}

// NewMemStore returns an empty store with no failures injected.
func NewMemStore() *MemStore {
	return &MemStore{
		staff:      make(map[int64]*models.Staff),
		weekly:     make(map[weeklyKey]models.WeeklySchedule),
		Ledger:     make(map[string]models.MigrationRecord),
		FailUpdate: make(map[int64]error),
		FailUpsert: make(map[int64]error),
	}
}

func (m *MemStore) sortedStaff(filter func(*models.Staff) bool) []models.Staff {
	var out []models.Staff
	for _, s := range m.staff {
		if filter(s) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (m *MemStore) ListByTerminal(_ context.Context, terminal int) ([]models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStaffList != nil {
		return nil, m.FailStaffList
	}
	return m.sortedStaff(func(s *models.Staff) bool { return s.Terminal == terminal }), nil
}

func (m *MemStore) ListAll(_ context.Context) ([]models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailStaffList != nil {
		return nil, m.FailStaffList
	}
	return m.sortedStaff(func(*models.Staff) bool { return true }), nil
}

func (m *MemStore) GetByID(_ context.Context, id int64) (*models.Staff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.staff[id]
	if !ok {
		return nil, nil
	}
	c := *s
	return &c, nil
}

func (m *MemStore) Create(_ context.Context, staff *models.Staff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	staff.ID = m.nextID
	staff.CreatedAt = time.Now()
	c := *staff
	m.staff[staff.ID] = &c
	return nil
}

func (m *MemStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.staff[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.staff, id)
	return nil
}

func (m *MemStore) UpdateDrafts(_ context.Context, id int64, drafts models.Week) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpdate[id]; err != nil {
		return err
	}
	s, ok := m.staff[id]
	if !ok {
		return database.ErrNotFound
	}
	s.SetDrafts(drafts)
	m.Updates++
	return nil
}

func (m *MemStore) UpdateShifts(_ context.Context, id int64, cols models.ShiftColumns) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpdate[id]; err != nil {
		return err
	}
	s, ok := m.staff[id]
	if !ok {
		return database.ErrNotFound
	}
	s.SetPublished(cols.Published())
	s.SetDrafts(cols.Drafts())
	m.Updates++
	return nil
}

func (m *MemStore) ClearTerminal(_ context.Context, terminal int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, s := range m.staff {
		if s.Terminal == terminal {
			s.ShiftColumns = models.ShiftColumns{}
			n++
		}
	}
	return n, nil
}

func (m *MemStore) UpdateDisplayOrder(_ context.Context, id int64, order int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpdate[id]; err != nil {
		return err
	}
	s, ok := m.staff[id]
	if !ok {
		return database.ErrNotFound
	}
	s.DisplayOrder = &order
	return nil
}

func (m *MemStore) Count(_ context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.staff), nil
}

func (m *MemStore) ListByWeek(_ context.Context, w models.Date, staffIDs []int64) ([]models.WeeklySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWeeklyList != nil {
		return nil, m.FailWeeklyList
	}
	var out []models.WeeklySchedule
	for _, id := range staffIDs {
		if row, ok := m.weekly[weeklyKey{id, w.String()}]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (m *MemStore) ListAllByWeek(_ context.Context, w models.Date) ([]models.WeeklySchedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWeeklyList != nil {
		return nil, m.FailWeeklyList
	}
	var out []models.WeeklySchedule
	for key, row := range m.weekly {
		if key.week == w.String() {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StaffID < out[j].StaffID })
	return out, nil
}

func (m *MemStore) UpsertDrafts(_ context.Context, staffID int64, w models.Date, drafts models.Week) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpsert[staffID]; err != nil {
		return err
	}
	key := weeklyKey{staffID, w.String()}
	row, ok := m.weekly[key]
	if !ok {
		row = models.WeeklySchedule{StaffID: staffID, WeekStartingDate: w}
	}
	row.SetDrafts(drafts)
	m.weekly[key] = row
	m.Upserts++
	return nil
}

func (m *MemStore) Upsert(_ context.Context, staffID int64, w models.Date, cols models.ShiftColumns) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.FailUpsert[staffID]; err != nil {
		return err
	}
	row := models.WeeklySchedule{StaffID: staffID, WeekStartingDate: w}
	row.SetPublished(cols.Published())
	row.SetDrafts(cols.Drafts())
	m.weekly[weeklyKey{staffID, w.String()}] = row
	m.Upserts++
	return nil
}

func (m *MemStore) DeleteByWeek(_ context.Context, w models.Date, staffIDs []int64) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range staffIDs {
		key := weeklyKey{id, w.String()}
		if _, ok := m.weekly[key]; ok {
			delete(m.weekly, key)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) DeleteAllByWeek(_ context.Context, w models.Date) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key := range m.weekly {
		if key.week == w.String() {
			delete(m.weekly, key)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) DraftWeeks(_ context.Context, staffIDs []int64) ([]models.Date, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make(map[int64]bool, len(staffIDs))
	for _, id := range staffIDs {
		ids[id] = true
	}
	seen := make(map[string]bool)
	var out []models.Date
	for key, row := range m.weekly {
		if ids[key.staffID] && row.HasUnpublishedDraft() && !seen[key.week] {
			seen[key.week] = true
			out = append(out, row.WeekStartingDate)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j].Time) })
	return out, nil
}

func (m *MemStore) CountByWeek(_ context.Context, w models.Date) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for key := range m.weekly {
		if key.week == w.String() {
			n++
		}
	}
	return n, nil
}

func (m *MemStore) WeekCounts(_ context.Context) ([]models.WeekCount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := make(map[string]*models.WeekCount)
	for _, row := range m.weekly {
		key := row.WeekStartingDate.String()
		if counts[key] == nil {
			counts[key] = &models.WeekCount{WeekStartingDate: row.WeekStartingDate}
		}
		counts[key].Records++
	}
	out := make([]models.WeekCount, 0, len(counts))
	for _, c := range counts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStartingDate.After(out[j].WeekStartingDate.Time) })
	return out, nil
}

func (m *MemStore) PurgeOrphans(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for key := range m.weekly {
		if _, ok := m.staff[key.staffID]; !ok {
			delete(m.weekly, key)
			n++
		}
	}
	return n, nil
}

func (m *MemStore) GetByPromotedWeek(_ context.Context, w models.Date) (*models.MigrationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.Ledger[w.String()]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *MemStore) Latest(_ context.Context) (*models.MigrationRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.MigrationRecord
	for _, record := range m.Ledger {
		r := record
		if latest == nil || r.PromotedWeek.After(latest.PromotedWeek.Time) {
			latest = &r
		}
	}
	return latest, nil
}

func (m *MemStore) Record(_ context.Context, record *models.MigrationRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailLedgerWrite != nil {
		return m.FailLedgerWrite
	}
	if _, ok := m.Ledger[record.PromotedWeek.String()]; !ok {
		m.Ledger[record.PromotedWeek.String()] = *record
	}
	return nil
}

// StaffRow returns a copy of a stored staff row.
func (m *MemStore) StaffRow(id int64) models.Staff {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.staff[id]
}

// WeeklyRow returns a stored weekly row and whether it exists.
func (m *MemStore) WeeklyRow(id int64, w time.Time) (models.WeeklySchedule, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.weekly[weeklyKey{id, models.DateOf(w).String()}]
	return row, ok
}

// MemProfiles is an in-memory ProfileStore.
type MemProfiles struct {
	ByID map[uuid.UUID]*models.Profile
	Err  error
}

func NewMemProfiles() *MemProfiles {
	return &MemProfiles{ByID: make(map[uuid.UUID]*models.Profile)}
}

func (p *MemProfiles) GetByID(_ context.Context, id uuid.UUID) (*models.Profile, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return p.ByID[id], nil
}

func (p *MemProfiles) GetByEmail(_ context.Context, email string) (*models.Profile, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	for _, profile := range p.ByID {
		if strings.EqualFold(profile.Email, strings.TrimSpace(email)) {
			return profile, nil
		}
	}
	return nil, nil
}

func (p *MemProfiles) GetRole(_ context.Context, id uuid.UUID) (models.Role, error) {
	profile, ok := p.ByID[id]
	if !ok {
		return "", database.ErrNotFound
	}
	return profile.Role, nil
}

func (p *MemProfiles) Create(_ context.Context, profile *models.Profile) error {
	if p.Err != nil {
		return p.Err
	}
	for _, existing := range p.ByID {
		if strings.EqualFold(existing.Email, profile.Email) {
			return errors.New("duplicate key value violates unique constraint")
		}
	}
	if profile.ID == uuid.Nil {
		profile.ID = uuid.New()
	}
	profile.CreatedAt = time.Now()
	p.ByID[profile.ID] = profile
	return nil
}
