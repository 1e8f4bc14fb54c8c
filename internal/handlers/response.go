package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/services"
	"github.com/terminalrota/rota-backend/pkg/validator"
	"github.com/terminalrota/rota-backend/pkg/week"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

func respondError(c *gin.Context, status int, errCode, message string) {
	c.JSON(status, ErrorResponse{Error: errCode, Message: message})
}

// respondServiceError maps service sentinels onto HTTP statuses. Anything
// unrecognised is logged and reported as a 500.
func respondServiceError(c *gin.Context, logger *logrus.Logger, err error) {
	switch {
	case errors.Is(err, services.ErrUnknownTerminal):
		respondError(c, http.StatusNotFound, "unknown_terminal", err.Error())
	case errors.Is(err, services.ErrStaffNotFound):
		respondError(c, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, services.ErrSessionNotFound):
		respondError(c, http.StatusNotFound, "session_not_found", err.Error())
	case errors.Is(err, services.ErrProfileNotFound):
		respondError(c, http.StatusNotFound, "profile_not_found", err.Error())
	case errors.Is(err, services.ErrInvalidDay),
		errors.Is(err, services.ErrInvalidDirection),
		errors.Is(err, validator.ErrEmptyName),
		errors.Is(err, validator.ErrNameTooLong),
		errors.Is(err, validator.ErrInvalidNameFormat),
		errors.Is(err, validator.ErrRoleTooLong):
		respondError(c, http.StatusBadRequest, "validation_error", err.Error())
	default:
		logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("Request failed")
		respondError(c, http.StatusInternalServerError, "internal_error", "An internal error occurred")
	}
}

// respondBatch answers a batch write. Per-row failures are a 200 with the
// failed rows listed so the client can alert without losing the rest.
func respondBatch(c *gin.Context, logger *logrus.Logger, err error, message string, extra gin.H) {
	failed := services.RowErrors{}
	if rowErrs, ok := services.AsRowErrors(err); ok {
		failed = rowErrs
	} else if err != nil {
		respondServiceError(c, logger, err)
		return
	}

	body := gin.H{"message": message, "failed": failed}
	if len(failed) > 0 {
		body["message"] = message + " with errors"
	}
	for k, v := range extra {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

func parseTerminal(c *gin.Context) (int, bool) {
	terminal, err := strconv.Atoi(c.Param("terminal"))
	if err != nil || terminal <= 0 {
		respondError(c, http.StatusBadRequest, "invalid_terminal", "Terminal must be a positive number")
		return 0, false
	}
	return terminal, true
}

// parseWeek reads :week, which is "current" or any YYYY-MM-DD inside the
// wanted week.
func parseWeek(c *gin.Context, resolver *week.Resolver) (time.Time, bool) {
	raw := c.Param("week")
	if raw == "" || raw == "current" {
		return resolver.Current(), true
	}
	start, err := week.ParseKey(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid_week", "Week must be 'current' or a YYYY-MM-DD date")
		return time.Time{}, false
	}
	return start, true
}

// writeContext outlives the request so a client disconnect does not abort
// a save halfway through its rows.
func writeContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(c.Request.Context()), 30*time.Second)
}
