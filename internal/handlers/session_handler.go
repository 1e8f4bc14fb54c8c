package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/middleware"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/internal/services"
	"github.com/terminalrota/rota-backend/pkg/week"
)

// SessionHandler exposes manager edit sessions: a buffer of unsaved shift
// edits that can span several weeks before save or publish.
type SessionHandler struct {
	sessions *services.SessionManager
	resolver *week.Resolver
	logger   *logrus.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessions *services.SessionManager, resolver *week.Resolver, logger *logrus.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, resolver: resolver, logger: logger}
}

// CreateSessionRequest is the optional body of POST /terminals/:terminal/sessions
type CreateSessionRequest struct {
	Week string `json:"week"`
}

// SetShiftRequest edits one cell of the displayed week
type SetShiftRequest struct {
	StaffID int64  `json:"staff_id" binding:"required"`
	Day     *int   `json:"day" binding:"required,min=0,max=6"`
	Value   string `json:"value"`
}

// NavigateRequest moves the session to another week
type NavigateRequest struct {
	Direction services.Direction `json:"direction" binding:"required,oneof=previous next current"`
}

// Create handles POST /api/v1/terminals/:terminal/sessions
func (h *SessionHandler) Create(c *gin.Context) {
	terminal, ok := parseTerminal(c)
	if !ok {
		return
	}

	var req CreateSessionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body")
			return
		}
	}

	weekStart := h.resolver.Current()
	if req.Week != "" && req.Week != "current" {
		start, err := week.ParseKey(req.Week)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid_week", "Week must be 'current' or a YYYY-MM-DD date")
			return
		}
		weekStart = start
	}

	userCtx := middleware.MustGetUserContext(c)
	session, err := h.sessions.Create(c.Request.Context(), userCtx.UserID, terminal, weekStart)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, session.State())
}

func (h *SessionHandler) session(c *gin.Context) (*services.EditSession, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return nil, false
	}

	userCtx := middleware.MustGetUserContext(c)
	session, err := h.sessions.Get(id, userCtx.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return nil, false
	}
	return session, true
}

// Get handles GET /api/v1/sessions/:id
func (h *SessionHandler) Get(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// SetShift handles PATCH /api/v1/sessions/:id/shifts
func (h *SessionHandler) SetShift(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req SetShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "staff_id and day (0-6) are required")
		return
	}

	if err := session.SetShift(req.StaffID, *req.Day, req.Value); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// SetRow handles PUT /api/v1/sessions/:id/rows
func (h *SessionHandler) SetRow(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req models.ShiftRowInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "staff_id is required")
		return
	}

	if err := session.SetRow(req.StaffID, req.Shifts); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Navigate handles POST /api/v1/sessions/:id/navigate
func (h *SessionHandler) Navigate(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	var req NavigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "direction must be previous, next or current")
		return
	}

	if err := session.Navigate(c.Request.Context(), req.Direction); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, session.State())
}

// Refresh handles POST /api/v1/sessions/:id/refresh. Clients poll it on the
// current week; it never overwrites unsaved edits.
func (h *SessionHandler) Refresh(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	reloaded, err := session.Refresh(c.Request.Context())
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reloaded": reloaded, "session": session.State()})
}

// Save handles POST /api/v1/sessions/:id/save
func (h *SessionHandler) Save(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx, cancel := writeContext(c)
	defer cancel()

	saved, err := session.SaveAll(ctx)
	respondBatch(c, h.logger, err, "Drafts saved", gin.H{
		"saved_weeks": saved,
		"session":     session.State(),
	})
}

// Publish handles POST /api/v1/sessions/:id/publish
func (h *SessionHandler) Publish(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	ctx, cancel := writeContext(c)
	defer cancel()

	summary, err := session.PublishAll(ctx)
	respondBatch(c, h.logger, err, "Shifts published", gin.H{
		"summary": summary,
		"session": session.State(),
	})
}

// Delete handles DELETE /api/v1/sessions/:id and drops unsaved edits.
func (h *SessionHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_id", "Session id must be a UUID")
		return
	}

	userCtx := middleware.MustGetUserContext(c)
	if err := h.sessions.Delete(id, userCtx.UserID); err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session discarded"})
}
