package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/services"
)

// MigrationHandler exposes the weekly rollover to administrators
type MigrationHandler struct {
	cron      *services.CronService
	migration *services.MigrationService
	logger    *logrus.Logger
}

// NewMigrationHandler creates a new migration handler
func NewMigrationHandler(cron *services.CronService, migration *services.MigrationService, logger *logrus.Logger) *MigrationHandler {
	return &MigrationHandler{cron: cron, migration: migration, logger: logger}
}

// Run handles POST /api/v1/admin/migration/run
func (h *MigrationHandler) Run(c *gin.Context) {
	result, err := h.cron.RunMigrationNow()
	if err != nil {
		h.logger.WithError(err).Error("Manual weekly migration failed")
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	message := "Weekly migration completed successfully"
	if result.AlreadyApplied {
		message = "Weekly migration already applied for this week"
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"message":           message,
		"currentWeekStart":  result.CurrentWeekStart,
		"nextWeekStart":     result.NextWeekStart,
		"staffCount":        result.StaffCount,
		"nextWeekDataCount": result.NextWeekDataCount,
		"archiveFailures":   result.ArchiveFailures,
		"promoteFailures":   result.PromoteFailures,
		"alreadyApplied":    result.AlreadyApplied,
	})
}

// Status handles GET /api/v1/admin/migration/status
func (h *MigrationHandler) Status(c *gin.Context) {
	status, err := h.migration.Status(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// CronStatus handles GET /api/v1/admin/cron/status
func (h *MigrationHandler) CronStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.cron.GetJobStatus())
}
