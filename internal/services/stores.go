package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/terminalrota/rota-backend/internal/models"
)

// StaffStore is implemented by database.StaffRepository.
type StaffStore interface {
	ListByTerminal(ctx context.Context, terminal int) ([]models.Staff, error)
	ListAll(ctx context.Context) ([]models.Staff, error)
	GetByID(ctx context.Context, id int64) (*models.Staff, error)
	Create(ctx context.Context, staff *models.Staff) error
	Delete(ctx context.Context, id int64) error
	UpdateDrafts(ctx context.Context, id int64, drafts models.Week) error
	UpdateShifts(ctx context.Context, id int64, cols models.ShiftColumns) error
	ClearTerminal(ctx context.Context, terminal int) (int64, error)
	UpdateDisplayOrder(ctx context.Context, id int64, order int) error
	Count(ctx context.Context) (int, error)
}

// WeeklyStore is implemented by database.WeeklyScheduleRepository.
type WeeklyStore interface {
	ListByWeek(ctx context.Context, week models.Date, staffIDs []int64) ([]models.WeeklySchedule, error)
	ListAllByWeek(ctx context.Context, week models.Date) ([]models.WeeklySchedule, error)
	UpsertDrafts(ctx context.Context, staffID int64, week models.Date, drafts models.Week) error
	Upsert(ctx context.Context, staffID int64, week models.Date, cols models.ShiftColumns) error
	DeleteByWeek(ctx context.Context, week models.Date, staffIDs []int64) (int64, error)
	DeleteAllByWeek(ctx context.Context, week models.Date) (int64, error)
	DraftWeeks(ctx context.Context, staffIDs []int64) ([]models.Date, error)
	CountByWeek(ctx context.Context, week models.Date) (int, error)
	WeekCounts(ctx context.Context) ([]models.WeekCount, error)
	PurgeOrphans(ctx context.Context) (int64, error)
}

// MigrationLedger is implemented by database.MigrationRepository.
type MigrationLedger interface {
	GetByPromotedWeek(ctx context.Context, week models.Date) (*models.MigrationRecord, error)
	Latest(ctx context.Context) (*models.MigrationRecord, error)
	Record(ctx context.Context, record *models.MigrationRecord) error
}

// ProfileStore is implemented by database.ProfileRepository.
type ProfileStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)
	GetRole(ctx context.Context, id uuid.UUID) (models.Role, error)
	Create(ctx context.Context, profile *models.Profile) error
}
