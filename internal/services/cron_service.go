package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/config"
	"github.com/terminalrota/rota-backend/internal/models"
)

const (
	jobWeeklyMigration = "weekly_migration"
	jobOrphanCleanup   = "orphan_cleanup"
	jobSessionSweep    = "session_sweep"

	jobTimeout = 10 * time.Minute
)

// CronService manages scheduled background jobs
type CronService struct {
	cron      *cron.Cron
	cfg       config.RotaConfig
	migration *MigrationService
	schedule  *ScheduleService
	sessions  *SessionManager
	limiter   *RateLimitService
	logger    *logrus.Logger

	mu   sync.Mutex
	jobs map[cron.EntryID]string
}

// NewCronService creates a scheduler reading cron specs in loc.
func NewCronService(
	cfg config.RotaConfig,
	loc *time.Location,
	migration *MigrationService,
	schedule *ScheduleService,
	sessions *SessionManager,
	logger *logrus.Logger,
) *CronService {
	cronLog := cronLogger{logger: logger}
	c := cron.New(
		cron.WithSeconds(),
		cron.WithLocation(loc),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	return &CronService{
		cron:      c,
		cfg:       cfg,
		migration: migration,
		schedule:  schedule,
		sessions:  sessions,
		logger:    logger,
		jobs:      make(map[cron.EntryID]string),
	}
}

// WithRateLimiter makes the session sweep also forget stale login failures.
func (s *CronService) WithRateLimiter(limiter *RateLimitService) *CronService {
	s.limiter = limiter
	return s
}

// Start schedules all jobs and starts the scheduler.
func (s *CronService) Start() error {
	s.logger.Info("Starting cron service...")

	if s.cfg.MigrationCronEnabled {
		if err := s.add(jobWeeklyMigration, s.cfg.MigrationSchedule, s.weeklyMigrationJob); err != nil {
			return err
		}
	} else {
		s.logger.Warn("Weekly migration cron disabled, trigger it over HTTP or rotactl")
	}

	if err := s.add(jobOrphanCleanup, s.cfg.OrphanCleanupSchedule, s.orphanCleanupJob); err != nil {
		return err
	}
	if err := s.add(jobSessionSweep, s.cfg.SessionSweepSchedule, s.sessionSweepJob); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("✓ Cron service started successfully")
	return nil
}

func (s *CronService) add(name, spec string, job func()) error {
	id, err := s.cron.AddFunc(spec, job)
	if err != nil {
		return fmt.Errorf("failed to schedule %s job: %w", name, err)
	}

	s.mu.Lock()
	s.jobs[id] = name
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"job":      name,
		"schedule": spec,
	}).Info("✓ Scheduled job")
	return nil
}

// Stop waits for running jobs to finish.
func (s *CronService) Stop() {
	s.logger.Info("Stopping cron service...")
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("✓ Cron service stopped")
}

func (s *CronService) weeklyMigrationJob() {
	if _, err := s.RunMigrationNow(); err != nil {
		s.logger.WithError(err).Error("[CRON] Weekly migration failed")
	}
}

func (s *CronService) orphanCleanupJob() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	purged, err := s.schedule.PurgeOrphans(ctx)
	if err != nil {
		s.logger.WithError(err).Error("[CRON] Orphan cleanup failed")
		return
	}
	s.logger.WithFields(logrus.Fields{
		"purged":   purged,
		"duration": time.Since(start).String(),
	}).Info("[CRON] ✓ Orphaned weekly schedules purged")
}

func (s *CronService) sessionSweepJob() {
	s.sessions.Sweep()
	if s.limiter != nil {
		if forgotten := s.limiter.CleanupExpired(); forgotten > 0 {
			s.logger.WithField("forgotten", forgotten).Debug("[CRON] Expired login failures cleared")
		}
	}
}

// RunMigrationNow runs the weekly migration immediately.
func (s *CronService) RunMigrationNow() (*models.MigrationResult, error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.migration.Run(ctx)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"already_applied": result.AlreadyApplied,
		"duration":        time.Since(start).String(),
	}).Info("[CRON] ✓ Weekly migration finished")
	return result, nil
}

// GetJobStatus returns the status of scheduled jobs
func (s *CronService) GetJobStatus() map[string]interface{} {
	entries := s.cron.Entries()

	s.mu.Lock()
	defer s.mu.Unlock()

	jobs := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		jobs = append(jobs, map[string]interface{}{
			"id":       entry.ID,
			"name":     s.jobs[entry.ID],
			"next_run": entry.Next,
			"prev_run": entry.Prev,
		})
	}

	return map[string]interface{}{
		"running":       len(entries) > 0,
		"job_count":     len(entries),
		"jobs":          jobs,
		"open_sessions": s.sessions.Count(),
	}
}

// cronLogger routes robfig/cron's own logging through logrus.
type cronLogger struct {
	logger *logrus.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.WithFields(fields(keysAndValues)).Debug("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.WithError(err).WithFields(fields(keysAndValues)).Error("cron: " + msg)
}

func fields(keysAndValues []interface{}) logrus.Fields {
	f := make(logrus.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		f[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return f
}
