package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/pkg/jwt"
)

const testEmail = "manager@terminal2.example"

func setupTestJWTService() *jwt.Service {
	return jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		time.Hour,
		24*time.Hour,
	)
}

func setupTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	return gin.New()
}

func get(router *gin.Engine, path, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddleware_Success(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()
	userID := uuid.New()

	token, err := jwtService.GenerateAccessToken(userID, testEmail, "manager")
	require.NoError(t, err)

	router.GET("/protected", AuthMiddleware(jwtService, setupTestLogger()), func(c *gin.Context) {
		userCtx, exists := GetUserContext(c)
		require.True(t, exists)
		assert.True(t, userCtx.IsManager())
		c.JSON(http.StatusOK, gin.H{
			"message": "success",
			"user_id": userCtx.UserID,
			"email":   userCtx.Email,
		})
	})

	w := get(router, "/protected", "Bearer "+token)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "success")
	assert.Contains(t, w.Body.String(), testEmail)
	assert.Contains(t, w.Body.String(), userID.String())
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()
	router.GET("/protected", AuthMiddleware(jwtService, setupTestLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	otherService := jwt.NewService("wrong-secret-key-000000", "wrong-refresh-secret-000", time.Hour, time.Hour)
	foreign, err := otherService.GenerateAccessToken(uuid.New(), testEmail, "manager")
	require.NoError(t, err)
	refresh, err := jwtService.GenerateRefreshToken(uuid.New(), testEmail)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		code   string
	}{
		{"Missing header", "", "MISSING_AUTH_HEADER"},
		{"Missing Bearer", "some-token", "INVALID_AUTH_FORMAT"},
		{"Wrong prefix", "Basic some-token", "INVALID_AUTH_FORMAT"},
		{"Empty Bearer", "Bearer   ", "INVALID_AUTH_FORMAT"},
		{"No token", "Bearer", "INVALID_AUTH_FORMAT"},
		{"Wrong secret", "Bearer " + foreign, "INVALID_TOKEN"},
		{"Refresh token", "Bearer " + refresh, "INVALID_TOKEN"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := get(router, "/protected", tt.header)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Body.String(), tt.code)
		})
	}
}

func TestAuthMiddleware_MalformedToken(t *testing.T) {
	jwtService := setupTestJWTService()
	router := setupTestRouter()
	router.GET("/protected", AuthMiddleware(jwtService, setupTestLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	w := get(router, "/protected", "Bearer invalid.token.here")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	// Undecodable tokens count as expired.
	body := w.Body.String()
	assert.True(t, strings.Contains(body, "INVALID_TOKEN") || strings.Contains(body, "TOKEN_EXPIRED"), body)
}

func TestAuthMiddleware_ExpiredToken(t *testing.T) {
	jwtService := jwt.NewService(
		"test-access-secret-key-123456789",
		"test-refresh-secret-key-123456789",
		time.Millisecond,
		24*time.Hour,
	)
	token, err := jwtService.GenerateAccessToken(uuid.New(), testEmail, "staff")
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	router := setupTestRouter()
	router.GET("/protected", AuthMiddleware(jwtService, setupTestLogger()), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	w := get(router, "/protected", "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "TOKEN_EXPIRED")
}

func TestGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Context exists", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		expected := UserContext{UserID: uuid.New(), Email: testEmail, Role: models.RoleStaff}
		c.Set(UserContextKey, expected)

		userCtx, exists := GetUserContext(c)
		assert.True(t, exists)
		assert.Equal(t, expected, userCtx)
		assert.False(t, userCtx.IsManager())
	})

	t.Run("Context not found", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		userCtx, exists := GetUserContext(c)
		assert.False(t, exists)
		assert.Equal(t, UserContext{}, userCtx)
	})

	t.Run("Context wrong type", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set(UserContextKey, "wrong type")
		_, exists := GetUserContext(c)
		assert.False(t, exists)
	})
}

func TestMustGetUserContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Panics(t, func() { MustGetUserContext(c) })

	c.Set(UserContextKey, UserContext{UserID: uuid.New()})
	assert.NotPanics(t, func() { MustGetUserContext(c) })
}

func TestRequireRole(t *testing.T) {
	jwtService := setupTestJWTService()
	logger := setupTestLogger()
	router := setupTestRouter()
	router.GET("/manager-only", AuthMiddleware(jwtService, logger), RequireRole(models.RoleManager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	router.GET("/anyone", AuthMiddleware(jwtService, logger), RequireRole(models.RoleManager, models.RoleStaff), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "success"})
	})
	router.GET("/no-auth", RequireRole(models.RoleManager), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "should not reach here"})
	})

	manager, err := jwtService.GenerateAccessToken(uuid.New(), testEmail, "manager")
	require.NoError(t, err)
	staff, err := jwtService.GenerateAccessToken(uuid.New(), "staff@terminal2.example", "staff")
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, get(router, "/manager-only", "Bearer "+manager).Code)

	w := get(router, "/manager-only", "Bearer "+staff)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "INSUFFICIENT_PERMISSIONS")

	assert.Equal(t, http.StatusOK, get(router, "/anyone", "Bearer "+staff).Code)

	w = get(router, "/no-auth", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "MISSING_USER_CONTEXT")
}

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})

	router := setupTestRouter()
	router.Use(RequestLogger(logger))
	router.GET("/ok", func(c *gin.Context) {
		c.Set(UserContextKey, UserContext{UserID: uuid.New(), Role: models.RoleManager})
		c.Status(http.StatusNoContent)
	})
	router.GET("/broken", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	req := httptest.NewRequest(http.MethodGet, "/ok?week=current", nil)
	req.Header.Set("User-Agent", "Mozilla/5.0 (iPad; CPU OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1")
	router.ServeHTTP(httptest.NewRecorder(), req)

	line := buf.String()
	assert.Contains(t, line, `"path":"/ok?week=current"`)
	assert.Contains(t, line, `"status":204`)
	assert.Contains(t, line, `"device":"tablet"`)
	assert.Contains(t, line, `"role":"manager"`)
	assert.Contains(t, line, `"level":"info"`)

	buf.Reset()
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/broken", nil))
	assert.Contains(t, buf.String(), `"level":"error"`)
}
