package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/database"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/pkg/shift"
	"github.com/terminalrota/rota-backend/pkg/validator"
	"github.com/terminalrota/rota-backend/pkg/week"
)

// ScheduleService is the draft/published store. The current week lives on
// the staff rows; every other week lives in weekly_schedules. Callers pass
// any date inside a week and never need to know which table serves it.
type ScheduleService struct {
	staff     StaffStore
	weekly    WeeklyStore
	resolver  *week.Resolver
	validator *validator.StaffValidator
	logger    *logrus.Logger
}

// NewScheduleService creates a new ScheduleService
func NewScheduleService(
	staff StaffStore,
	weekly WeeklyStore,
	resolver *week.Resolver,
	staffValidator *validator.StaffValidator,
	logger *logrus.Logger,
) *ScheduleService {
	return &ScheduleService{
		staff:     staff,
		weekly:    weekly,
		resolver:  resolver,
		validator: staffValidator,
		logger:    logger,
	}
}

// Resolver exposes the week resolver the service reads the clock through.
func (s *ScheduleService) Resolver() *week.Resolver {
	return s.resolver
}

// ValidTerminal reports whether terminal is configured.
func (s *ScheduleService) ValidTerminal(terminal int) bool {
	return s.validator.IsValidTerminal(terminal)
}

func (s *ScheduleService) checkTerminal(terminal int) error {
	if err := s.validator.ValidateTerminal(terminal); err != nil {
		return fmt.Errorf("%w: %d", err, terminal)
	}
	return nil
}

// ListStaff returns a terminal's staff in display order.
func (s *ScheduleService) ListStaff(ctx context.Context, terminal int) ([]models.Staff, error) {
	if err := s.checkTerminal(terminal); err != nil {
		return nil, err
	}
	staff, err := s.staff.ListByTerminal(ctx, terminal)
	if err != nil {
		return nil, err
	}
	SortStaff(staff)
	return staff, nil
}

// SortStaff orders by display_order when both rows have one and by id
// otherwise. The sort is stable.
func SortStaff(staff []models.Staff) {
	sort.SliceStable(staff, func(i, j int) bool {
		a, b := staff[i], staff[j]
		if a.DisplayOrder != nil && b.DisplayOrder != nil {
			return *a.DisplayOrder < *b.DisplayOrder
		}
		return a.ID < b.ID
	})
}

// LoadWeek returns one row per staff member of the terminal. Managers see
// drafts over published values; everyone else sees published values only.
// A staff member with nothing stored for the week gets an empty row.
func (s *ScheduleService) LoadWeek(ctx context.Context, terminal int, weekStart time.Time, viewer models.Role) ([]models.StaffWeek, error) {
	staff, err := s.ListStaff(ctx, terminal)
	if err != nil {
		return nil, err
	}

	columns, err := s.columnsFor(ctx, staff, weekStart)
	if err != nil {
		return nil, err
	}

	rows := make([]models.StaffWeek, 0, len(staff))
	for _, member := range staff {
		cols := columns[member.ID]
		row := models.StaffWeek{
			StaffID:      member.ID,
			Name:         member.Name,
			Role:         member.Role,
			DisplayOrder: member.DisplayOrder,
			Published:    cols.Published(),
		}
		if viewer == models.RoleManager {
			row.Shifts = cols.Resolved()
		} else {
			row.Shifts = row.Published
		}
		row.Hours = shift.Total(row.Shifts)
		rows = append(rows, row)
	}

	return rows, nil
}

// columnsFor maps staff id to the stored day columns of weekStart.
func (s *ScheduleService) columnsFor(ctx context.Context, staff []models.Staff, weekStart time.Time) (map[int64]models.ShiftColumns, error) {
	columns := make(map[int64]models.ShiftColumns, len(staff))

	if s.resolver.IsCurrent(weekStart) {
		for _, member := range staff {
			columns[member.ID] = member.ShiftColumns
		}
		return columns, nil
	}

	records, err := s.weekly.ListByWeek(ctx, weekKey(weekStart), staffIDs(staff))
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		columns[record.StaffID] = record.ShiftColumns
	}
	return columns, nil
}

// View wraps LoadWeek with the headings a week table needs.
func (s *ScheduleService) View(ctx context.Context, terminal int, weekStart time.Time, viewer models.Role) (*models.WeekView, error) {
	rows, err := s.LoadWeek(ctx, terminal, weekStart, viewer)
	if err != nil {
		return nil, err
	}

	view := &models.WeekView{
		Terminal:   terminal,
		WeekStart:  weekKey(weekStart),
		WeekNumber: s.resolver.Number(weekStart),
		IsCurrent:  s.resolver.IsCurrent(weekStart),
		TodayIndex: s.resolver.TodayIndex(weekStart),
		DayLabels:  week.DayLabels(weekStart),
		Staff:      rows,
	}
	for _, row := range rows {
		view.TotalHours += row.Hours
	}
	return view, nil
}

// SaveDraft writes shifts into the draft columns of one staff member's
// week. Published columns are never touched.
func (s *ScheduleService) SaveDraft(ctx context.Context, staffID int64, weekStart time.Time, shifts models.Week) error {
	if s.resolver.IsCurrent(weekStart) {
		return notFoundAsStaff(s.staff.UpdateDrafts(ctx, staffID, shifts))
	}
	return s.weekly.UpsertDrafts(ctx, staffID, weekKey(weekStart), shifts)
}

// Publish writes shifts into both the draft and the published columns.
func (s *ScheduleService) Publish(ctx context.Context, staffID int64, weekStart time.Time, shifts models.Week) error {
	var cols models.ShiftColumns
	cols.SetPublished(shifts)
	cols.SetDrafts(shifts)

	if s.resolver.IsCurrent(weekStart) {
		return notFoundAsStaff(s.staff.UpdateShifts(ctx, staffID, cols))
	}
	return s.weekly.Upsert(ctx, staffID, weekKey(weekStart), cols)
}

// SaveDrafts saves a batch of rows for one terminal and week. Rows for
// staff outside the terminal are rejected individually.
func (s *ScheduleService) SaveDrafts(ctx context.Context, terminal int, weekStart time.Time, rows []models.ShiftRowInput) error {
	return s.writeRows(ctx, terminal, weekStart, rows, "save", s.SaveDraft)
}

// PublishRows publishes a batch of rows for one terminal and week.
func (s *ScheduleService) PublishRows(ctx context.Context, terminal int, weekStart time.Time, rows []models.ShiftRowInput) error {
	return s.writeRows(ctx, terminal, weekStart, rows, "publish", s.Publish)
}

type rowWriter func(ctx context.Context, staffID int64, weekStart time.Time, shifts models.Week) error

func (s *ScheduleService) writeRows(ctx context.Context, terminal int, weekStart time.Time, rows []models.ShiftRowInput, action string, write rowWriter) error {
	staff, err := s.ListStaff(ctx, terminal)
	if err != nil {
		return err
	}
	members := make(map[int64]bool, len(staff))
	for _, member := range staff {
		members[member.ID] = true
	}

	key := weekKey(weekStart).String()
	var failed RowErrors
	for _, row := range rows {
		if !members[row.StaffID] {
			failed.add(row.StaffID, key, ErrStaffNotFound)
			continue
		}
		if err := write(ctx, row.StaffID, weekStart, row.Shifts); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"action":   action,
				"staff_id": row.StaffID,
				"week":     key,
				"terminal": terminal,
			}).Error("Failed to write shift row")
			failed.add(row.StaffID, key, err)
		}
	}

	return failed.OrNil()
}

// ClearWeek empties a terminal's week. The current week is nulled in place
// on the staff rows; any other week has its rows deleted.
func (s *ScheduleService) ClearWeek(ctx context.Context, terminal int, weekStart time.Time) (int64, error) {
	if err := s.checkTerminal(terminal); err != nil {
		return 0, err
	}

	if s.resolver.IsCurrent(weekStart) {
		return s.staff.ClearTerminal(ctx, terminal)
	}

	staff, err := s.staff.ListByTerminal(ctx, terminal)
	if err != nil {
		return 0, err
	}
	return s.weekly.DeleteByWeek(ctx, weekKey(weekStart), staffIDs(staff))
}

// AddStaff inserts a staff member with a normalised, upper-cased name.
func (s *ScheduleService) AddStaff(ctx context.Context, terminal int, name, role string) (*models.Staff, error) {
	if err := s.checkTerminal(terminal); err != nil {
		return nil, err
	}
	normalised, err := s.validator.ValidateName(name)
	if err != nil {
		return nil, err
	}
	role, err = s.validator.ValidateRole(role)
	if err != nil {
		return nil, err
	}

	member := &models.Staff{Name: normalised, Role: role, Terminal: terminal}
	if err := s.staff.Create(ctx, member); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"staff_id": member.ID,
		"terminal": terminal,
	}).Info("Staff member added")
	return member, nil
}

// RemoveStaff hard-deletes a staff member. Their weekly rows stay until
// the orphan purge runs.
func (s *ScheduleService) RemoveStaff(ctx context.Context, id int64) error {
	if err := notFoundAsStaff(s.staff.Delete(ctx, id)); err != nil {
		return err
	}
	s.logger.WithField("staff_id", id).Info("Staff member removed")
	return nil
}

// Reorder writes each id's index as its display_order. Writes are not
// batched: a failure leaves the list partly reordered and is reported.
func (s *ScheduleService) Reorder(ctx context.Context, terminal int, orderedIDs []int64) error {
	staff, err := s.ListStaff(ctx, terminal)
	if err != nil {
		return err
	}
	members := make(map[int64]bool, len(staff))
	for _, member := range staff {
		members[member.ID] = true
	}

	var failed RowErrors
	for index, id := range orderedIDs {
		if !members[id] {
			failed.add(id, "", ErrStaffNotFound)
			continue
		}
		if err := s.staff.UpdateDisplayOrder(ctx, id, index); err != nil {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"staff_id": id,
				"index":    index,
			}).Error("Failed to update display order")
			failed.add(id, "", notFoundAsStaff(err))
		}
	}

	return failed.OrNil()
}

// DraftWeeks lists the week starts of a terminal that hold drafts not yet
// published, oldest first. The current week comes from the staff rows.
func (s *ScheduleService) DraftWeeks(ctx context.Context, terminal int) ([]time.Time, error) {
	if err := s.checkTerminal(terminal); err != nil {
		return nil, err
	}
	staff, err := s.staff.ListByTerminal(ctx, terminal)
	if err != nil {
		return nil, err
	}

	current := s.resolver.Current()
	seen := make(map[time.Time]bool)
	var weeks []time.Time

	for _, member := range staff {
		if member.HasUnpublishedDraft() {
			seen[current] = true
			weeks = append(weeks, current)
			break
		}
	}

	stored, err := s.weekly.DraftWeeks(ctx, staffIDs(staff))
	if err != nil {
		return nil, err
	}
	for _, d := range stored {
		start := week.StartOf(d.Time)
		if !seen[start] {
			seen[start] = true
			weeks = append(weeks, start)
		}
	}

	sort.Slice(weeks, func(i, j int) bool { return weeks[i].Before(weeks[j]) })
	return weeks, nil
}

// PurgeOrphans removes weekly rows left behind by deleted staff.
func (s *ScheduleService) PurgeOrphans(ctx context.Context) (int64, error) {
	return s.weekly.PurgeOrphans(ctx)
}

func weekKey(t time.Time) models.Date {
	return models.DateOf(week.StartOf(t))
}

func staffIDs(staff []models.Staff) []int64 {
	ids := make([]int64, len(staff))
	for i, member := range staff {
		ids[i] = member.ID
	}
	return ids
}

func notFoundAsStaff(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return ErrStaffNotFound
	}
	return err
}
