package database

import (
	"context"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/terminalrota/rota-backend/internal/models"
)

var (
	weeklySelect = "SELECT staff_id, week_starting_date, " + shiftColumnList + " FROM weekly_schedules"

	weeklyUpsertDrafts = "INSERT INTO weekly_schedules (staff_id, week_starting_date, " + strings.Join(draftColumns, ", ") + ")" +
		" VALUES (" + placeholders(1, 2+len(draftColumns)) + ")" +
		" ON CONFLICT (staff_id, week_starting_date) DO UPDATE SET " + excluded(draftColumns)

	weeklyUpsert = "INSERT INTO weekly_schedules (staff_id, week_starting_date, " + shiftColumnList + ")" +
		" VALUES (" + placeholders(1, 2+len(shiftColumns)) + ")" +
		" ON CONFLICT (staff_id, week_starting_date) DO UPDATE SET " + excluded(shiftColumns)

	// A week has pending work when some non-empty draft differs from its
	// published value.
	weeklyDraftWeeks = "SELECT DISTINCT week_starting_date FROM weekly_schedules WHERE staff_id = ANY($1) AND (" +
		unpublishedDraftCondition() + ") ORDER BY week_starting_date"
)

func unpublishedDraftCondition() string {
	parts := make([]string, len(publishedColumns))
	for i, col := range publishedColumns {
		draft := draftColumns[i]
		parts[i] = fmt.Sprintf("(%s IS NOT NULL AND %s <> '' AND %s IS DISTINCT FROM %s)", draft, draft, draft, col)
	}
	return strings.Join(parts, " OR ")
}

// WeeklyScheduleRepository handles weekly_schedules operations. Rows are
// keyed by (staff_id, week_starting_date) and hold any week other than
// the current one.
type WeeklyScheduleRepository struct {
	db DB
}

// NewWeeklyScheduleRepository creates a new weekly schedule repository
func NewWeeklyScheduleRepository(db DB) *WeeklyScheduleRepository {
	return &WeeklyScheduleRepository{db: db}
}

// ListByWeek returns the rows of one week restricted to the given staff.
// Rows of deleted staff are never returned.
func (r *WeeklyScheduleRepository) ListByWeek(ctx context.Context, week models.Date, staffIDs []int64) ([]models.WeeklySchedule, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}

	var rows []models.WeeklySchedule
	query := weeklySelect + " WHERE week_starting_date = $1 AND staff_id = ANY($2) ORDER BY staff_id"
	if err := r.db.SelectContext(ctx, &rows, query, week, pq.Array(staffIDs)); err != nil {
		return nil, fmt.Errorf("failed to list weekly schedules for %s: %w", week, err)
	}
	return rows, nil
}

// ListAllByWeek returns every row of one week, orphans included.
func (r *WeeklyScheduleRepository) ListAllByWeek(ctx context.Context, week models.Date) ([]models.WeeklySchedule, error) {
	var rows []models.WeeklySchedule
	if err := r.db.SelectContext(ctx, &rows, weeklySelect+" WHERE week_starting_date = $1 ORDER BY staff_id", week); err != nil {
		return nil, fmt.Errorf("failed to list weekly schedules for %s: %w", week, err)
	}
	return rows, nil
}

// UpsertDrafts writes the seven draft columns, creating the row when it
// does not exist. Published columns of an existing row are untouched.
func (r *WeeklyScheduleRepository) UpsertDrafts(ctx context.Context, staffID int64, week models.Date, drafts models.Week) error {
	args := append([]interface{}{staffID, week}, weekArgs(drafts)...)
	if _, err := r.db.ExecContext(ctx, weeklyUpsertDrafts, args...); err != nil {
		return fmt.Errorf("failed to save drafts for staff %d week %s: %w", staffID, week, err)
	}
	return nil
}

// Upsert writes all 14 day columns.
func (r *WeeklyScheduleRepository) Upsert(ctx context.Context, staffID int64, week models.Date, cols models.ShiftColumns) error {
	args := append([]interface{}{staffID, week}, cols.Args()...)
	if _, err := r.db.ExecContext(ctx, weeklyUpsert, args...); err != nil {
		return fmt.Errorf("failed to upsert staff %d week %s: %w", staffID, week, err)
	}
	return nil
}

// DeleteByWeek removes one week's rows for the given staff.
func (r *WeeklyScheduleRepository) DeleteByWeek(ctx context.Context, week models.Date, staffIDs []int64) (int64, error) {
	if len(staffIDs) == 0 {
		return 0, nil
	}
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM weekly_schedules WHERE week_starting_date = $1 AND staff_id = ANY($2)",
		week, pq.Array(staffIDs))
	if err != nil {
		return 0, fmt.Errorf("failed to delete weekly schedules for %s: %w", week, err)
	}
	return rowsAffected(result, "weekly delete")
}

// DeleteAllByWeek removes every row of one week.
func (r *WeeklyScheduleRepository) DeleteAllByWeek(ctx context.Context, week models.Date) (int64, error) {
	result, err := r.db.ExecContext(ctx, "DELETE FROM weekly_schedules WHERE week_starting_date = $1", week)
	if err != nil {
		return 0, fmt.Errorf("failed to delete weekly schedules for %s: %w", week, err)
	}
	return rowsAffected(result, "weekly delete")
}

// DraftWeeks lists the weeks in which any of the given staff has an
// unpublished draft.
func (r *WeeklyScheduleRepository) DraftWeeks(ctx context.Context, staffIDs []int64) ([]models.Date, error) {
	if len(staffIDs) == 0 {
		return nil, nil
	}
	var weeks []models.Date
	if err := r.db.SelectContext(ctx, &weeks, weeklyDraftWeeks, pq.Array(staffIDs)); err != nil {
		return nil, fmt.Errorf("failed to list draft weeks: %w", err)
	}
	return weeks, nil
}

// CountByWeek returns how many rows one week has.
func (r *WeeklyScheduleRepository) CountByWeek(ctx context.Context, week models.Date) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM weekly_schedules WHERE week_starting_date = $1", week); err != nil {
		return 0, fmt.Errorf("failed to count weekly schedules for %s: %w", week, err)
	}
	return count, nil
}

// WeekCounts groups stored rows by week, newest first.
func (r *WeeklyScheduleRepository) WeekCounts(ctx context.Context) ([]models.WeekCount, error) {
	query := `
		SELECT week_starting_date, COUNT(*) AS records
		FROM weekly_schedules
		GROUP BY week_starting_date
		ORDER BY week_starting_date DESC
	`
	var counts []models.WeekCount
	if err := r.db.SelectContext(ctx, &counts, query); err != nil {
		return nil, fmt.Errorf("failed to count weeks: %w", err)
	}
	return counts, nil
}

// PurgeOrphans deletes rows whose staff member no longer exists.
func (r *WeeklyScheduleRepository) PurgeOrphans(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM weekly_schedules ws
		WHERE NOT EXISTS (SELECT 1 FROM staff s WHERE s.id = ws.staff_id)
	`
	result, err := r.db.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to purge orphaned weekly schedules: %w", err)
	}
	return rowsAffected(result, "orphan purge")
}
