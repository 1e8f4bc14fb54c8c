package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/pkg/week"
)

// MigrationService runs the weekly rollover: the outgoing week is archived
// into weekly_schedules and the staged next week becomes the live one.
type MigrationService struct {
	staff    StaffStore
	weekly   WeeklyStore
	ledger   MigrationLedger
	resolver *week.Resolver
	logger   *logrus.Logger
	mu       sync.Mutex
}

// NewMigrationService creates a new MigrationService
func NewMigrationService(
	staff StaffStore,
	weekly WeeklyStore,
	ledger MigrationLedger,
	resolver *week.Resolver,
	logger *logrus.Logger,
) *MigrationService {
	return &MigrationService{
		staff:    staff,
		weekly:   weekly,
		ledger:   ledger,
		resolver: resolver,
		logger:   logger,
	}
}

// Run performs one rollover. Per-row failures are logged and counted but
// do not fail the run. A boundary already crossed is reported with
// AlreadyApplied and nothing is written.
func (s *MigrationService) Run(ctx context.Context) (*models.MigrationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := models.DateOf(s.resolver.Current())
	next := models.DateOf(current.AddDate(0, 0, 7))
	log := s.logger.WithFields(logrus.Fields{
		"current_week": current.String(),
		"next_week":    next.String(),
	})

	previous, err := s.ledger.GetByPromotedWeek(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration ledger: %w", err)
	}
	if previous != nil {
		log.WithField("ran_at", previous.RanAt).Info("Week already rolled over, skipping")
		return &models.MigrationResult{
			CurrentWeekStart:  previous.ArchivedWeek,
			NextWeekStart:     previous.PromotedWeek,
			StaffCount:        previous.StaffCount,
			NextWeekDataCount: previous.NextWeekDataCount,
			AlreadyApplied:    true,
		}, nil
	}

	staff, err := s.staff.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch staff: %w", err)
	}

	result := &models.MigrationResult{
		CurrentWeekStart: current,
		NextWeekStart:    next,
		StaffCount:       len(staff),
	}

	for _, member := range staff {
		if err := s.weekly.Upsert(ctx, member.ID, current, member.ShiftColumns); err != nil {
			log.WithError(err).WithField("staff_id", member.ID).Error("Failed to archive staff week")
			result.ArchiveFailures++
		}
	}

	staged, err := s.weekly.ListAllByWeek(ctx, next)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch next week schedules: %w", err)
	}
	result.NextWeekDataCount = len(staged)

	byStaff := make(map[int64]models.ShiftColumns, len(staged))
	for _, record := range staged {
		byStaff[record.StaffID] = record.ShiftColumns
	}

	for _, member := range staff {
		// No staged row means a blank week.
		if err := s.staff.UpdateShifts(ctx, member.ID, byStaff[member.ID]); err != nil {
			log.WithError(err).WithField("staff_id", member.ID).Error("Failed to promote staff week")
			result.PromoteFailures++
		}
	}

	if _, err := s.weekly.DeleteAllByWeek(ctx, next); err != nil {
		log.WithError(err).Error("Failed to delete promoted week")
	}

	err = s.ledger.Record(ctx, &models.MigrationRecord{
		PromotedWeek:      next,
		ArchivedWeek:      current,
		StaffCount:        result.StaffCount,
		NextWeekDataCount: result.NextWeekDataCount,
		RanAt:             time.Now().UTC(),
	})
	if err != nil {
		log.WithError(err).Error("Failed to record migration")
	}

	log.WithFields(logrus.Fields{
		"staff_count":          result.StaffCount,
		"next_week_data_count": result.NextWeekDataCount,
		"archive_failures":     result.ArchiveFailures,
		"promote_failures":     result.PromoteFailures,
	}).Info("Weekly migration completed")

	return result, nil
}

// Status gathers the counts shown on the admin page.
func (s *MigrationService) Status(ctx context.Context) (*models.MigrationStatus, error) {
	current := models.DateOf(s.resolver.Current())
	next := models.DateOf(current.AddDate(0, 0, 7))

	staffCount, err := s.staff.Count(ctx)
	if err != nil {
		return nil, err
	}
	nextCount, err := s.weekly.CountByWeek(ctx, next)
	if err != nil {
		return nil, err
	}
	weeks, err := s.weekly.WeekCounts(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.ledger.Latest(ctx)
	if err != nil {
		return nil, err
	}

	return &models.MigrationStatus{
		CurrentWeekStart:  current,
		NextWeekStart:     next,
		StaffCount:        staffCount,
		NextWeekDataCount: nextCount,
		StoredWeeks:       weeks,
		LastRun:           last,
	}, nil
}
