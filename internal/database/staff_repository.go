package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/terminalrota/rota-backend/internal/models"
)

var (
	staffSelect = "SELECT id, name, role, terminal, display_order, created_at, " + shiftColumnList + " FROM staff"

	staffUpdateDrafts = "UPDATE staff SET " + assignments(draftColumns, 2) + " WHERE id = $1"
	staffUpdateShifts = "UPDATE staff SET " + assignments(shiftColumns, 2) + " WHERE id = $1"
	staffClearShifts  = "UPDATE staff SET " + nullColumns(shiftColumns) + " WHERE terminal = $1"
)

// StaffRepository handles staff table operations. The day columns on a
// staff row always hold the current week.
type StaffRepository struct {
	db DB
}

// NewStaffRepository creates a new staff repository
func NewStaffRepository(db DB) *StaffRepository {
	return &StaffRepository{db: db}
}

// ListByTerminal returns a terminal's staff ordered by id.
func (r *StaffRepository) ListByTerminal(ctx context.Context, terminal int) ([]models.Staff, error) {
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, staffSelect+" WHERE terminal = $1 ORDER BY id", terminal); err != nil {
		return nil, fmt.Errorf("failed to list staff for terminal %d: %w", terminal, err)
	}
	return staff, nil
}

// ListAll returns every staff row across terminals ordered by id.
func (r *StaffRepository) ListAll(ctx context.Context) ([]models.Staff, error) {
	var staff []models.Staff
	if err := r.db.SelectContext(ctx, &staff, staffSelect+" ORDER BY id"); err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}

// GetByID returns nil without error when the staff member does not exist.
func (r *StaffRepository) GetByID(ctx context.Context, id int64) (*models.Staff, error) {
	var staff models.Staff
	err := r.db.GetContext(ctx, &staff, staffSelect+" WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get staff %d: %w", id, err)
	}
	return &staff, nil
}

// Create inserts a staff member with no shifts and fills in ID and CreatedAt.
func (r *StaffRepository) Create(ctx context.Context, staff *models.Staff) error {
	query := `
		INSERT INTO staff (name, role, terminal, display_order)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	if err := r.db.GetContext(ctx, staff, query, staff.Name, staff.Role, staff.Terminal, staff.DisplayOrder); err != nil {
		return fmt.Errorf("failed to create staff: %w", err)
	}
	return nil
}

// Delete hard-deletes a staff member. Weekly rows are left behind and
// filtered out on read.
func (r *StaffRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM staff WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete staff %d: %w", id, err)
	}
	return requireOne(result, "staff delete")
}

// UpdateDrafts overwrites the seven draft columns.
func (r *StaffRepository) UpdateDrafts(ctx context.Context, id int64, drafts models.Week) error {
	args := append([]interface{}{id}, weekArgs(drafts)...)
	result, err := r.db.ExecContext(ctx, staffUpdateDrafts, args...)
	if err != nil {
		return fmt.Errorf("failed to update drafts for staff %d: %w", id, err)
	}
	return requireOne(result, "staff drafts")
}

// UpdateShifts overwrites all 14 day columns.
func (r *StaffRepository) UpdateShifts(ctx context.Context, id int64, cols models.ShiftColumns) error {
	args := append([]interface{}{id}, cols.Args()...)
	result, err := r.db.ExecContext(ctx, staffUpdateShifts, args...)
	if err != nil {
		return fmt.Errorf("failed to update shifts for staff %d: %w", id, err)
	}
	return requireOne(result, "staff shifts")
}

// ClearTerminal nulls every day column of a terminal's staff. The rows
// themselves stay.
func (r *StaffRepository) ClearTerminal(ctx context.Context, terminal int) (int64, error) {
	result, err := r.db.ExecContext(ctx, staffClearShifts, terminal)
	if err != nil {
		return 0, fmt.Errorf("failed to clear shifts for terminal %d: %w", terminal, err)
	}
	return rowsAffected(result, "terminal clear")
}

// UpdateDisplayOrder sets one row's position.
func (r *StaffRepository) UpdateDisplayOrder(ctx context.Context, id int64, order int) error {
	result, err := r.db.ExecContext(ctx, "UPDATE staff SET display_order = $2 WHERE id = $1", id, order)
	if err != nil {
		return fmt.Errorf("failed to update display order for staff %d: %w", id, err)
	}
	return requireOne(result, "staff display order")
}

// Count returns the number of staff across all terminals.
func (r *StaffRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM staff"); err != nil {
		return 0, fmt.Errorf("failed to count staff: %w", err)
	}
	return count, nil
}

func requireOne(result sql.Result, what string) error {
	n, err := rowsAffected(result, what)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
