package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/middleware"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/internal/services"
)

// WeekHandler serves week tables and direct batch writes.
type WeekHandler struct {
	schedule *services.ScheduleService
	logger   *logrus.Logger
}

// NewWeekHandler creates a new week handler
func NewWeekHandler(schedule *services.ScheduleService, logger *logrus.Logger) *WeekHandler {
	return &WeekHandler{schedule: schedule, logger: logger}
}

// GetWeek handles GET /api/v1/terminals/:terminal/weeks/:week
// Managers see drafts; staff see published shifts only.
func (h *WeekHandler) GetWeek(c *gin.Context) {
	terminal, ok := parseTerminal(c)
	if !ok {
		return
	}
	weekStart, ok := parseWeek(c, h.schedule.Resolver())
	if !ok {
		return
	}
	userCtx := middleware.MustGetUserContext(c)

	view, err := h.schedule.View(c.Request.Context(), terminal, weekStart, userCtx.Role)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SaveDrafts handles PUT /api/v1/terminals/:terminal/weeks/:week/drafts
func (h *WeekHandler) SaveDrafts(c *gin.Context) {
	h.writeRows(c, "Drafts saved", h.schedule.SaveDrafts)
}

// Publish handles POST /api/v1/terminals/:terminal/weeks/:week/publish
func (h *WeekHandler) Publish(c *gin.Context) {
	h.writeRows(c, "Shifts published", h.schedule.PublishRows)
}

type batchWriter func(ctx context.Context, terminal int, weekStart time.Time, rows []models.ShiftRowInput) error

func (h *WeekHandler) writeRows(c *gin.Context, message string, write batchWriter) {
	terminal, ok := parseTerminal(c)
	if !ok {
		return
	}
	weekStart, ok := parseWeek(c, h.schedule.Resolver())
	if !ok {
		return
	}

	var req models.SaveShiftsInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	ctx, cancel := writeContext(c)
	defer cancel()

	err := write(ctx, terminal, weekStart, req.Rows)
	respondBatch(c, h.logger, err, message, gin.H{"week_start": models.DateOf(weekStart)})
}

// ClearWeek handles DELETE /api/v1/terminals/:terminal/weeks/:week
func (h *WeekHandler) ClearWeek(c *gin.Context) {
	terminal, ok := parseTerminal(c)
	if !ok {
		return
	}
	weekStart, ok := parseWeek(c, h.schedule.Resolver())
	if !ok {
		return
	}

	ctx, cancel := writeContext(c)
	defer cancel()

	cleared, err := h.schedule.ClearWeek(ctx, terminal, weekStart)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"terminal": terminal,
		"week":     models.DateOf(weekStart).String(),
		"cleared":  cleared,
	}).Info("Week cleared")
	c.JSON(http.StatusOK, gin.H{
		"message":    "Week cleared",
		"week_start": models.DateOf(weekStart),
		"cleared":    cleared,
	})
}
