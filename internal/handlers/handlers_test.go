package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/terminalrota/rota-backend/internal/config"
	"github.com/terminalrota/rota-backend/internal/database"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/internal/services"
	"github.com/terminalrota/rota-backend/internal/testutil"
	"github.com/terminalrota/rota-backend/pkg/jwt"
	"github.com/terminalrota/rota-backend/pkg/validator"
	"github.com/terminalrota/rota-backend/pkg/week"
	"golang.org/x/crypto/bcrypt"
)

var (
	testNow         = time.Date(2025, time.June, 26, 12, 0, 0, 0, time.UTC)
	testCurrentWeek = time.Date(2025, time.June, 22, 0, 0, 0, 0, time.UTC)
	testNextWeek    = testCurrentWeek.AddDate(0, 0, 7)
)

type testEnv struct {
	router   *gin.Engine
	store    *testutil.MemStore
	profiles *testutil.MemProfiles
	schedule *services.ScheduleService
	sessions *services.SessionManager
	mock     sqlmock.Sqlmock
	manager  string
	staff    string
	now      time.Time
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	env := &testEnv{
		store:    testutil.NewMemStore(),
		profiles: testutil.NewMemProfiles(),
		now:      testNow,
	}

	resolver := week.NewResolver(time.UTC, testNow, 43).WithClock(func() time.Time { return env.now })
	env.schedule = services.NewScheduleService(env.store, env.store, resolver, validator.NewStaffValidator([]int{2, 3, 4, 5}), logger)
	env.sessions = services.NewSessionManager(env.schedule, time.Hour, logger)
	migration := services.NewMigrationService(env.store, env.store, env.store, resolver, logger)
	cron := services.NewCronService(config.RotaConfig{}, time.UTC, migration, env.schedule, env.sessions, logger)

	tokens := jwt.NewService("handler-access-secret", "handler-refresh-secret", time.Hour, 24*time.Hour)
	auth := services.NewAuthService(env.profiles, tokens, bcrypt.MinCost, logger)
	limiter := services.NewRateLimitService(services.RateLimitConfig{
		MaxEmailFailures: 2,
		EmailWindow:      time.Minute,
		MaxIPFailures:    10,
		IPWindow:         time.Minute,
	})

	raw, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	env.mock = mock
	db := &database.PostgresDB{DB: sqlx.NewDb(raw, "sqlmock")}

	ctx := context.Background()
	manager, err := auth.Register(ctx, "manager@terminal2.example", "password123", models.RoleManager)
	require.NoError(t, err)
	staff, err := auth.Register(ctx, "staff@terminal2.example", "password123", models.RoleStaff)
	require.NoError(t, err)
	env.manager, err = tokens.GenerateAccessToken(manager.ID, manager.Email, string(manager.Role))
	require.NoError(t, err)
	env.staff, err = tokens.GenerateAccessToken(staff.ID, staff.Email, string(staff.Role))
	require.NoError(t, err)

	set := &Set{
		Auth:      NewAuthHandler(auth, env.sessions, limiter, logger),
		Week:      NewWeekHandler(env.schedule, logger),
		Staff:     NewStaffHandler(env.schedule, logger),
		Session:   NewSessionHandler(env.sessions, resolver, logger),
		Migration: NewMigrationHandler(cron, migration, logger),
		Health:    NewHealthHandler(db, "test"),
	}
	env.router = gin.New()
	set.Register(env.router, tokens, logger)
	return env
}

func (env *testEnv) do(t *testing.T, method, path, token string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func (env *testEnv) addStaff(t *testing.T, name string, terminal int) int64 {
	t.Helper()
	member := &models.Staff{Name: name, Terminal: terminal}
	require.NoError(t, env.store.Create(context.Background(), member))
	return member.ID
}

func staffRows(t *testing.T, body map[string]interface{}) []map[string]interface{} {
	t.Helper()
	raw, ok := body["staff"].([]interface{})
	require.True(t, ok, "no staff in %v", body)
	rows := make([]map[string]interface{}, len(raw))
	for i, r := range raw {
		rows[i] = r.(map[string]interface{})
	}
	return rows
}

func shiftAt(row map[string]interface{}, day int) string {
	return row["shifts"].([]interface{})[day].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	env.mock.ExpectPing()
	w, body := env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", body["status"])

	env.mock.ExpectPing().WillReturnError(errors.New("connection refused"))
	w, body = env.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "disconnected", body["database"])
}

func TestAuthEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "Manager@Terminal2.example", "password": "password123"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["access_token"])
	refresh := body["refresh_token"].(string)

	w, body = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "manager@terminal2.example", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "INVALID_CREDENTIALS", body["code"])

	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": refresh})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, body["access_token"])

	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/refresh", "", gin.H{"refresh_token": env.manager})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/auth/me", env.staff, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "staff", body["role"])
	assert.NotContains(t, body, "password_hash")

	w, _ = env.do(t, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestLoginThrottled(t *testing.T) {
	env := newTestEnv(t)

	for i := 0; i < 2; i++ {
		w, _ := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "staff@terminal2.example", "password": "wrong"})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	}

	w, body := env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "staff@terminal2.example", "password": "password123"})
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "TOO_MANY_ATTEMPTS", body["code"])
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	w, _ = env.do(t, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "manager@terminal2.example", "password": "password123"})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestLogoutDiscardsSessions(t *testing.T) {
	env := newTestEnv(t)
	env.addStaff(t, "ALICE", 2)

	w, _ := env.do(t, http.MethodPost, "/api/v1/terminals/2/sessions", env.manager, nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, env.sessions.Count())

	w, body := env.do(t, http.MethodPost, "/api/v1/auth/logout", env.manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["discarded_sessions"])
	assert.Zero(t, env.sessions.Count())
}

func TestGetWeek(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.addStaff(t, "ALICE", 2)
	require.NoError(t, env.schedule.Publish(ctx, alice, testCurrentWeek, models.Week{"", "09:00-17:00"}))
	require.NoError(t, env.schedule.SaveDraft(ctx, alice, testCurrentWeek, models.Week{"", "10:00-18:00"}))

	w, body := env.do(t, http.MethodGet, "/api/v1/terminals/2/weeks/current", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-22", body["week_start"])
	assert.Equal(t, float64(43), body["week_number"])
	assert.Equal(t, true, body["is_current"])
	assert.Equal(t, "10:00-18:00", shiftAt(staffRows(t, body)[0], 1))

	w, body = env.do(t, http.MethodGet, "/api/v1/terminals/2/weeks/2025-06-25", env.staff, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "09:00-17:00", shiftAt(staffRows(t, body)[0], 1))
	assert.Equal(t, float64(7), body["total_hours"])

	w, _ = env.do(t, http.MethodGet, "/api/v1/terminals/9/weeks/current", env.staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = env.do(t, http.MethodGet, "/api/v1/terminals/2/weeks/next-tuesday", env.staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid_week", body["error"])

	w, _ = env.do(t, http.MethodGet, "/api/v1/terminals/two/weeks/current", env.staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestWeekWrites(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addStaff(t, "ALICE", 2)
	outsider := env.addStaff(t, "ZED", 4)
	rows := gin.H{"rows": []gin.H{
		{"staff_id": alice, "shifts": []string{"09:00-17:00", "", "", "", "", "", ""}},
		{"staff_id": outsider, "shifts": []string{"09:00-17:00", "", "", "", "", "", ""}},
	}}

	w, _ := env.do(t, http.MethodPut, "/api/v1/terminals/2/weeks/2025-06-29/drafts", env.staff, rows)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := env.do(t, http.MethodPut, "/api/v1/terminals/2/weeks/2025-06-29/drafts", env.manager, rows)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Drafts saved with errors", body["message"])
	failed := body["failed"].([]interface{})
	require.Len(t, failed, 1)
	assert.Equal(t, float64(outsider), failed[0].(map[string]interface{})["staff_id"])

	row, ok := env.store.WeeklyRow(alice, testNextWeek)
	require.True(t, ok)
	assert.Equal(t, "09:00-17:00", row.Drafts()[0])
	assert.Empty(t, row.Published()[0])

	w, body = env.do(t, http.MethodPost, "/api/v1/terminals/2/weeks/2025-06-29/publish", env.manager, gin.H{"rows": rows["rows"].([]gin.H)[:1]})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["failed"])
	row, _ = env.store.WeeklyRow(alice, testNextWeek)
	assert.Equal(t, "09:00-17:00", row.Published()[0])

	w, _ = env.do(t, http.MethodPut, "/api/v1/terminals/2/weeks/current/drafts", env.manager, gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodDelete, "/api/v1/terminals/2/weeks/2025-06-29", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["cleared"])
	_, ok = env.store.WeeklyRow(alice, testNextWeek)
	assert.False(t, ok)
}

func TestStaffEndpoints(t *testing.T) {
	env := newTestEnv(t)
	first := env.addStaff(t, "FIRST", 3)

	w, body := env.do(t, http.MethodPost, "/api/v1/terminals/3/staff", env.manager, gin.H{"name": " jane  doe ", "role": "Supervisor"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "JANE DOE", body["name"])
	jane := int64(body["id"].(float64))

	w, body = env.do(t, http.MethodPost, "/api/v1/terminals/3/staff", env.manager, gin.H{"name": "R2-D2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", body["error"])

	w, _ = env.do(t, http.MethodPost, "/api/v1/terminals/3/staff", env.manager, gin.H{"role": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodPut, "/api/v1/terminals/3/staff/order", env.manager, gin.H{"staff_ids": []int64{jane, first}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["failed"])

	w, body = env.do(t, http.MethodGet, "/api/v1/terminals/3/staff", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), body["count"])
	assert.Equal(t, "JANE DOE", staffRows(t, body)[0]["name"])

	w, _ = env.do(t, http.MethodDelete, "/api/v1/staff/"+strconv.FormatInt(jane, 10), env.manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, body = env.do(t, http.MethodDelete, "/api/v1/staff/"+strconv.FormatInt(jane, 10), env.manager, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "staff_not_found", body["error"])
	w, _ = env.do(t, http.MethodDelete, "/api/v1/staff/abc", env.manager, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSessionFlow(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addStaff(t, "ALICE", 2)

	w, body := env.do(t, http.MethodPost, "/api/v1/terminals/2/sessions", env.manager, gin.H{"week": "2025-06-24"})
	require.Equal(t, http.StatusCreated, w.Code)
	id := body["id"].(string)
	base := "/api/v1/sessions/" + id

	w, body = env.do(t, http.MethodPatch, base+"/shifts", env.manager, gin.H{"staff_id": alice, "day": 0, "value": "09:00-17:00"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["has_unsaved_changes"])

	w, body = env.do(t, http.MethodPatch, base+"/shifts", env.manager, gin.H{"staff_id": alice, "day": 9, "value": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodPost, base+"/navigate", env.manager, gin.H{"direction": "next"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-06-29", body["week_start"])
	assert.Equal(t, []interface{}{"2025-06-22"}, body["pending_weeks"])

	w, _ = env.do(t, http.MethodPost, base+"/navigate", env.manager, gin.H{"direction": "sideways"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, body = env.do(t, http.MethodPut, base+"/rows", env.manager, gin.H{"staff_id": alice, "shifts": []string{"", "12:00-20:00", "", "", "", "", ""}})
	require.Equal(t, http.StatusOK, w.Code)

	w, body = env.do(t, http.MethodPost, base+"/refresh", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, body["reloaded"])

	w, body = env.do(t, http.MethodPost, base+"/publish", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, body["failed"])
	assert.Equal(t, "09:00-17:00", env.store.StaffRow(alice).Published()[0])
	row, ok := env.store.WeeklyRow(alice, testNextWeek)
	require.True(t, ok)
	assert.Equal(t, "12:00-20:00", row.Published()[1])

	// Another manager cannot see it.
	other, err := jwt.NewService("handler-access-secret", "handler-refresh-secret", time.Hour, time.Hour).
		GenerateAccessToken(uuid.New(), "other@terminal2.example", "manager")
	require.NoError(t, err)
	w, _ = env.do(t, http.MethodGet, base, other, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = env.do(t, http.MethodGet, "/api/v1/sessions/not-a-uuid", env.manager, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = env.do(t, http.MethodDelete, base, env.manager, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w, _ = env.do(t, http.MethodGet, base, env.manager, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSessionSave(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addStaff(t, "ALICE", 2)

	_, body := env.do(t, http.MethodPost, "/api/v1/terminals/2/sessions", env.manager, nil)
	base := "/api/v1/sessions/" + body["id"].(string)
	env.do(t, http.MethodPatch, base+"/shifts", env.manager, gin.H{"staff_id": alice, "day": 3, "value": "22:00-06:00"})

	w, body := env.do(t, http.MethodPost, base+"/save", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{"2025-06-22"}, body["saved_weeks"])
	assert.Equal(t, "22:00-06:00", env.store.StaffRow(alice).Drafts()[3])
	assert.Empty(t, env.store.StaffRow(alice).Published()[3])
}

func TestMigrationEndpoints(t *testing.T) {
	env := newTestEnv(t)
	alice := env.addStaff(t, "ALICE", 2)
	require.NoError(t, env.schedule.Publish(context.Background(), alice, testNextWeek, models.Week{"09:00-17:00"}))

	w, _ := env.do(t, http.MethodPost, "/api/v1/admin/migration/run", env.staff, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, body := env.do(t, http.MethodGet, "/api/v1/admin/migration/status", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["next_week_data_count"])
	assert.Equal(t, float64(1), body["staff_count"])

	w, body = env.do(t, http.MethodPost, "/api/v1/admin/migration/run", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "2025-06-22", body["currentWeekStart"])
	assert.Equal(t, "2025-06-29", body["nextWeekStart"])
	assert.Equal(t, float64(1), body["staffCount"])
	assert.Equal(t, float64(1), body["nextWeekDataCount"])
	assert.Equal(t, "09:00-17:00", env.store.StaffRow(alice).Published()[0])

	w, body = env.do(t, http.MethodPost, "/api/v1/admin/migration/run", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["alreadyApplied"])

	env.store.FailStaffList = errors.New("connection refused")
	env.now = env.now.AddDate(0, 0, 7)
	w, body = env.do(t, http.MethodPost, "/api/v1/admin/migration/run", env.manager, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "connection refused")

	w, body = env.do(t, http.MethodGet, "/api/v1/admin/cron/status", env.manager, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(0), body["job_count"])
}
