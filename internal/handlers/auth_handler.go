package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/middleware"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/internal/services"
	"github.com/terminalrota/rota-backend/internal/utils"
)

// AuthHandler handles authentication-related HTTP requests
type AuthHandler struct {
	auth     *services.AuthService
	sessions *services.SessionManager
	limiter  *services.RateLimitService
	logger   *logrus.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(
	auth *services.AuthService,
	sessions *services.SessionManager,
	limiter *services.RateLimitService,
	logger *logrus.Logger,
) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, limiter: limiter, logger: logger}
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	ip := utils.GetRealIP(c)
	if err := h.limiter.CheckLogin(req.Email, ip); err != nil {
		var rateErr *services.RateLimitError
		if errors.As(err, &rateErr) {
			c.Header("Retry-After", strconv.Itoa(int(time.Until(rateErr.RetryAfter).Seconds())+1))
			h.logger.WithFields(logrus.Fields{
				"ip":    ip,
				"limit": rateErr.Type,
			}).Warn("Login throttled")
		}
		c.JSON(http.StatusTooManyRequests, ErrorResponse{
			Error:   "rate_limit_exceeded",
			Message: err.Error(),
			Code:    "TOO_MANY_ATTEMPTS",
		})
		return
	}

	resp, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if errors.Is(err, services.ErrInvalidCredentials) {
		h.limiter.RecordFailure(req.Email, ip)
		device := utils.ParseUserAgent(utils.GetUserAgent(c))
		h.logger.WithFields(logrus.Fields{
			"ip":     ip,
			"device": device.DeviceType,
		}).Warn("Login rejected")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_credentials",
			Message: "Invalid email or password",
			Code:    "INVALID_CREDENTIALS",
		})
		return
	}
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}

	h.limiter.Reset(req.Email)
	h.logger.WithFields(logrus.Fields{
		"user_id": resp.Profile.ID,
		"role":    resp.Profile.Role,
		"ip":      ip,
	}).Info("User logged in")
	c.JSON(http.StatusOK, resp)
}

// Refresh handles POST /api/v1/auth/refresh
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "validation_error", "Invalid request body")
		return
	}

	resp, err := h.auth.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		h.logger.WithError(err).Info("Token refresh rejected")
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Error:   "invalid_token",
			Message: "Refresh token is invalid or expired. Please log in again.",
			Code:    "INVALID_REFRESH_TOKEN",
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	profile, err := h.auth.Me(c.Request.Context(), userCtx.UserID)
	if err != nil {
		respondServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Logout handles POST /api/v1/auth/logout. Tokens are stateless, so this
// only drops the caller's edit sessions and any edits they still hold.
func (h *AuthHandler) Logout(c *gin.Context) {
	userCtx := middleware.MustGetUserContext(c)

	discarded := h.sessions.DiscardUser(userCtx.UserID)
	h.logger.WithFields(logrus.Fields{
		"user_id":            userCtx.UserID,
		"discarded_sessions": discarded,
	}).Info("User logged out")

	c.JSON(http.StatusOK, gin.H{
		"message":            "Logged out",
		"discarded_sessions": discarded,
	})
}
