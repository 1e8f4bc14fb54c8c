package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/pkg/shift"
	"github.com/terminalrota/rota-backend/pkg/week"
)

// Direction moves an edit session between weeks.
type Direction string

const (
	DirectionPrevious Direction = "previous"
	DirectionNext     Direction = "next"
	DirectionCurrent  Direction = "current"
)

// EditSession buffers a manager's edits across several weeks before they
// are saved or published. Only memory holds it; a restart loses it.
type EditSession struct {
	ID       uuid.UUID
	UserID   uuid.UUID
	Terminal int

	mu        sync.Mutex
	schedule  *ScheduleService
	logger    *logrus.Logger
	weekStart time.Time
	rows      []models.StaffWeek
	pending   map[time.Time][]models.StaffWeek
	lastUsed  time.Time
	now       func() time.Time
}

// SessionState is what a client renders for an edit session.
type SessionState struct {
	ID                uuid.UUID          `json:"id"`
	Terminal          int                `json:"terminal"`
	WeekStart         models.Date        `json:"week_start"`
	WeekNumber        int                `json:"week_number"`
	IsCurrent         bool               `json:"is_current"`
	TodayIndex        int                `json:"today_index"`
	DayLabels         [7]string          `json:"day_labels"`
	HasUnsavedChanges bool               `json:"has_unsaved_changes"`
	PendingWeeks      []models.Date      `json:"pending_weeks"`
	Staff             []models.StaffWeek `json:"staff"`
}

// PublishSummary reports what PublishAll wrote.
type PublishSummary struct {
	Weeks []models.Date `json:"weeks"`
	Rows  int           `json:"rows"`
}

// State returns a copy of the session for rendering.
func (e *EditSession) State() SessionState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stateLocked()
}

func (e *EditSession) stateLocked() SessionState {
	resolver := e.schedule.Resolver()
	return SessionState{
		ID:                e.ID,
		Terminal:          e.Terminal,
		WeekStart:         models.DateOf(e.weekStart),
		WeekNumber:        resolver.Number(e.weekStart),
		IsCurrent:         resolver.IsCurrent(e.weekStart),
		TodayIndex:        resolver.TodayIndex(e.weekStart),
		DayLabels:         week.DayLabels(e.weekStart),
		HasUnsavedChanges: dirty(e.rows),
		PendingWeeks:      sortedWeeks(e.pending),
		Staff:             copyRows(e.rows),
	}
}

// HasUnsavedChanges reports whether any displayed shift differs from its
// published value.
func (e *EditSession) HasUnsavedChanges() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return dirty(e.rows)
}

// LastUsed is when the session was last touched.
func (e *EditSession) LastUsed() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastUsed
}

// SetShift edits one cell of the displayed week.
func (e *EditSession) SetShift(staffID int64, day int, value string) error {
	if day < 0 || day >= len(shift.Days) {
		return ErrInvalidDay
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	row := e.findRow(staffID)
	if row == nil {
		return ErrStaffNotFound
	}
	row.Shifts[day] = value
	row.Hours = shift.Total(row.Shifts)
	e.dropRevertedLocked()
	return nil
}

// SetRow replaces a staff member's whole displayed week.
func (e *EditSession) SetRow(staffID int64, shifts models.Week) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	row := e.findRow(staffID)
	if row == nil {
		return ErrStaffNotFound
	}
	row.Shifts = shifts
	row.Hours = shift.Total(row.Shifts)
	e.dropRevertedLocked()
	return nil
}

// dropRevertedLocked forgets the parked snapshot of the displayed week
// once its edits have all been undone.
func (e *EditSession) dropRevertedLocked() {
	if !dirty(e.rows) {
		delete(e.pending, e.weekStart)
	}
}

func (e *EditSession) findRow(staffID int64) *models.StaffWeek {
	for i := range e.rows {
		if e.rows[i].StaffID == staffID {
			return &e.rows[i]
		}
	}
	return nil
}

// Navigate leaves the displayed week. Unsaved edits are parked in the
// pending set first, and a parked snapshot of the target week is shown
// instead of a fresh load.
func (e *EditSession) Navigate(ctx context.Context, direction Direction) error {
	var target time.Time
	switch direction {
	case DirectionPrevious:
		target = e.displayedWeek().AddDate(0, 0, -7)
	case DirectionNext:
		target = e.displayedWeek().AddDate(0, 0, 7)
	case DirectionCurrent:
		target = e.schedule.Resolver().Current()
	default:
		return ErrInvalidDirection
	}
	return e.Open(ctx, target)
}

// Open displays the week containing weekStart.
func (e *EditSession) Open(ctx context.Context, weekStart time.Time) error {
	target := week.StartOf(weekStart)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	if !e.weekStart.IsZero() {
		e.parkLocked()
	}

	if snapshot, ok := e.pending[target]; ok {
		e.weekStart = target
		e.rows = copyRows(snapshot)
		return nil
	}

	rows, err := e.schedule.LoadWeek(ctx, e.Terminal, target, models.RoleManager)
	if err != nil {
		return err
	}
	e.weekStart = target
	e.rows = rows
	return nil
}

func (e *EditSession) displayedWeek() time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.weekStart
}

// parkLocked snapshots a dirty buffer into pending, or drops a snapshot
// the user has since reverted.
func (e *EditSession) parkLocked() {
	if dirty(e.rows) {
		e.pending[e.weekStart] = copyRows(e.rows)
	} else {
		delete(e.pending, e.weekStart)
	}
}

// Refresh reloads the displayed week unless it holds unsaved edits. It
// reports whether a reload happened.
func (e *EditSession) Refresh(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	if dirty(e.rows) {
		return false, nil
	}

	rows, err := e.schedule.LoadWeek(ctx, e.Terminal, e.weekStart, models.RoleManager)
	if err != nil {
		return false, err
	}
	delete(e.pending, e.weekStart)
	e.rows = rows
	return true, nil
}

// SaveAll writes every parked week, plus the displayed week when dirty,
// into draft columns. Parked weeks stay parked so they can be published.
func (e *EditSession) SaveAll(ctx context.Context) ([]models.Date, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	weeks := e.workingSetLocked()
	starts := sortedKeys(weeks)

	var failed RowErrors
	saved := make([]models.Date, 0, len(starts))
	for _, start := range starts {
		err := e.schedule.SaveDrafts(ctx, e.Terminal, start, toInputs(weeks[start]))
		if rowErrs, ok := AsRowErrors(err); ok {
			failed = append(failed, rowErrs...)
		} else if err != nil {
			return saved, err
		}
		saved = append(saved, models.DateOf(start))
	}

	e.logger.WithFields(logrus.Fields{
		"session_id": e.ID,
		"terminal":   e.Terminal,
		"weeks":      len(saved),
		"failures":   len(failed),
	}).Info("Saved edit session drafts")

	return saved, failed.OrNil()
}

// PublishAll publishes every parked week, the displayed week when dirty,
// and any stored week whose drafts differ from what is published. Weeks
// that published cleanly leave the pending set; the displayed week is
// reloaded so it shows no unsaved changes.
func (e *EditSession) PublishAll(ctx context.Context) (*PublishSummary, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.touch()

	weeks := e.workingSetLocked()

	stored, err := e.schedule.DraftWeeks(ctx, e.Terminal)
	if err != nil {
		return nil, err
	}
	for _, start := range stored {
		if _, ok := weeks[start]; ok {
			continue
		}
		rows, err := e.schedule.LoadWeek(ctx, e.Terminal, start, models.RoleManager)
		if err != nil {
			return nil, err
		}
		weeks[start] = rows
	}

	summary := &PublishSummary{Weeks: make([]models.Date, 0, len(weeks))}
	var failed RowErrors
	failedWeeks := make(map[time.Time]bool)

	for _, start := range sortedKeys(weeks) {
		rows := weeks[start]
		err := e.schedule.PublishRows(ctx, e.Terminal, start, toInputs(rows))
		if rowErrs, ok := AsRowErrors(err); ok {
			failed = append(failed, rowErrs...)
			failedWeeks[start] = true
		} else if err != nil {
			return summary, err
		}
		summary.Weeks = append(summary.Weeks, models.DateOf(start))
		summary.Rows += len(rows)
	}

	for start := range weeks {
		if !failedWeeks[start] {
			delete(e.pending, start)
		}
	}

	if !failedWeeks[e.weekStart] {
		rows, err := e.schedule.LoadWeek(ctx, e.Terminal, e.weekStart, models.RoleManager)
		if err != nil {
			return summary, err
		}
		e.rows = rows
	}

	e.logger.WithFields(logrus.Fields{
		"session_id": e.ID,
		"terminal":   e.Terminal,
		"weeks":      len(summary.Weeks),
		"rows":       summary.Rows,
		"failures":   len(failed),
	}).Info("Published edit session")

	return summary, failed.OrNil()
}

// workingSetLocked is pending plus the displayed week when dirty. The
// displayed buffer always replaces a parked snapshot of the same week.
func (e *EditSession) workingSetLocked() map[time.Time][]models.StaffWeek {
	weeks := make(map[time.Time][]models.StaffWeek, len(e.pending)+1)
	for start, rows := range e.pending {
		weeks[start] = rows
	}
	delete(weeks, e.weekStart)
	if dirty(e.rows) {
		weeks[e.weekStart] = copyRows(e.rows)
	}
	return weeks
}

func (e *EditSession) touch() {
	e.lastUsed = e.now()
}

func dirty(rows []models.StaffWeek) bool {
	for _, row := range rows {
		if row.Dirty() {
			return true
		}
	}
	return false
}

func copyRows(rows []models.StaffWeek) []models.StaffWeek {
	out := make([]models.StaffWeek, len(rows))
	copy(out, rows)
	return out
}

func toInputs(rows []models.StaffWeek) []models.ShiftRowInput {
	inputs := make([]models.ShiftRowInput, len(rows))
	for i, row := range rows {
		inputs[i] = models.ShiftRowInput{StaffID: row.StaffID, Shifts: row.Shifts}
	}
	return inputs
}

func sortedKeys(weeks map[time.Time][]models.StaffWeek) []time.Time {
	keys := make([]time.Time, 0, len(weeks))
	for start := range weeks {
		keys = append(keys, start)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Before(keys[j]) })
	return keys
}

func sortedWeeks(weeks map[time.Time][]models.StaffWeek) []models.Date {
	keys := sortedKeys(weeks)
	dates := make([]models.Date, len(keys))
	for i, k := range keys {
		dates[i] = models.DateOf(k)
	}
	return dates
}
