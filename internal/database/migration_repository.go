package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/terminalrota/rota-backend/internal/models"
)

const migrationColumns = "promoted_week, archived_week, staff_count, next_week_data_count, ran_at"

// MigrationRepository reads and writes the weekly_migrations ledger, one
// row per week boundary crossed.
type MigrationRepository struct {
	db DB
}

func NewMigrationRepository(db DB) *MigrationRepository {
	return &MigrationRepository{db: db}
}

// GetByPromotedWeek returns nil when the boundary has not been crossed.
func (r *MigrationRepository) GetByPromotedWeek(ctx context.Context, week models.Date) (*models.MigrationRecord, error) {
	var record models.MigrationRecord
	query := "SELECT " + migrationColumns + " FROM weekly_migrations WHERE promoted_week = $1"
	if err := r.db.GetContext(ctx, &record, query, week); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get migration for %s: %w", week, err)
	}
	return &record, nil
}

// Latest returns the most recent run, or nil before the first one.
func (r *MigrationRepository) Latest(ctx context.Context) (*models.MigrationRecord, error) {
	var record models.MigrationRecord
	query := "SELECT " + migrationColumns + " FROM weekly_migrations ORDER BY promoted_week DESC LIMIT 1"
	if err := r.db.GetContext(ctx, &record, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest migration: %w", err)
	}
	return &record, nil
}

// Record stores a completed run. A second record for the same boundary
// is ignored.
func (r *MigrationRepository) Record(ctx context.Context, record *models.MigrationRecord) error {
	query := `
		INSERT INTO weekly_migrations (promoted_week, archived_week, staff_count, next_week_data_count, ran_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (promoted_week) DO NOTHING
	`
	_, err := r.db.ExecContext(ctx, query,
		record.PromotedWeek, record.ArchivedWeek, record.StaffCount, record.NextWeekDataCount, record.RanAt)
	if err != nil {
		return fmt.Errorf("failed to record migration for %s: %w", record.PromotedWeek, err)
	}
	return nil
}
