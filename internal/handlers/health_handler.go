package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/terminalrota/rota-backend/internal/database"
)

// HealthHandler reports liveness and database reachability
type HealthHandler struct {
	db      database.DB
	version string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db database.DB, version string) *HealthHandler {
	return &HealthHandler{db: db, version: version}
}

// Check handles GET /health
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status, code, dbStatus := "healthy", http.StatusOK, "connected"
	if err := h.db.PingContext(ctx); err != nil {
		status, code, dbStatus = "unhealthy", http.StatusServiceUnavailable, "disconnected"
	}

	c.JSON(code, gin.H{
		"status":   status,
		"database": dbStatus,
		"version":  h.version,
		"time":     time.Now().UTC().Format(time.RFC3339),
	})
}
