package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/internal/services"
)

// StaffHandler manages the staff list of a terminal
type StaffHandler struct {
	schedule *services.ScheduleService
	logger   *logrus.Logger
}

// NewStaffHandler creates a new staff handler
func NewStaffHandler(schedule *services.ScheduleService, logger *logrus.Logger) *StaffHandler {
	return &StaffHandler{schedule: schedule, logger: logger}
}

// List handles GET /api/v1/terminals/:terminal/staff
func (h *StaffHandler) List(c *gin.Context) {
	terminal, ok := parseTerminal(c)
	if !ok {
		return
	}

	staff, err := h.schedule.ListStaff(c.Request.Context(), terminal)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"staff": staff, "count": len(staff)})
}

// Create handles POST /api/v1/terminals/:terminal/staff
func (h *StaffHandler) Create(c *gin.Context) {
	terminal, ok := parseTerminal(c)
	if !ok {
		return
	}

	var req models.CreateStaffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Name is required")
		return
	}

	ctx, cancel := writeContext(c)
	defer cancel()

	member, err := h.schedule.AddStaff(ctx, terminal, req.Name, req.Role)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, member)
}

// Reorder handles PUT /api/v1/terminals/:terminal/staff/order
func (h *StaffHandler) Reorder(c *gin.Context) {
	terminal, ok := parseTerminal(c)
	if !ok {
		return
	}

	var req models.ReorderStaffInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "staff_ids is required")
		return
	}

	ctx, cancel := writeContext(c)
	defer cancel()

	err := h.schedule.Reorder(ctx, terminal, req.StaffIDs)
	respondBatch(c, h.logger, err, "Staff reordered", nil)
}

// Delete handles DELETE /api/v1/staff/:id
func (h *StaffHandler) Delete(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_id", "Staff id must be a positive number")
		return
	}

	ctx, cancel := writeContext(c)
	defer cancel()

	if err := h.schedule.RemoveStaff(ctx, id); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Staff member removed"})
}
