package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/middleware"
	"github.com/terminalrota/rota-backend/internal/models"
	"github.com/terminalrota/rota-backend/pkg/jwt"
)

// Set bundles every handler the server mounts.
type Set struct {
	Auth      *AuthHandler
	Week      *WeekHandler
	Staff     *StaffHandler
	Session   *SessionHandler
	Migration *MigrationHandler
	Health    *HealthHandler
}

// Register mounts the health check and the /api/v1 routes on router.
func (s *Set) Register(router *gin.Engine, jwtService *jwt.Service, logger *logrus.Logger) {
	router.GET("/health", s.Health.Check)

	v1 := router.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/login", s.Auth.Login)
		auth.POST("/refresh", s.Auth.Refresh)
	}

	protected := v1.Group("")
	protected.Use(middleware.AuthMiddleware(jwtService, logger))
	{
		protected.GET("/auth/me", s.Auth.Me)
		protected.POST("/auth/logout", s.Auth.Logout)
		protected.GET("/terminals/:terminal/weeks/:week", s.Week.GetWeek)
	}

	manager := protected.Group("")
	manager.Use(middleware.RequireRole(models.RoleManager))
	{
		manager.PUT("/terminals/:terminal/weeks/:week/drafts", s.Week.SaveDrafts)
		manager.POST("/terminals/:terminal/weeks/:week/publish", s.Week.Publish)
		manager.DELETE("/terminals/:terminal/weeks/:week", s.Week.ClearWeek)

		manager.GET("/terminals/:terminal/staff", s.Staff.List)
		manager.POST("/terminals/:terminal/staff", s.Staff.Create)
		manager.PUT("/terminals/:terminal/staff/order", s.Staff.Reorder)
		manager.DELETE("/staff/:id", s.Staff.Delete)

		manager.POST("/terminals/:terminal/sessions", s.Session.Create)
		manager.GET("/sessions/:id", s.Session.Get)
		manager.PATCH("/sessions/:id/shifts", s.Session.SetShift)
		manager.PUT("/sessions/:id/rows", s.Session.SetRow)
		manager.POST("/sessions/:id/navigate", s.Session.Navigate)
		manager.POST("/sessions/:id/refresh", s.Session.Refresh)
		manager.POST("/sessions/:id/save", s.Session.Save)
		manager.POST("/sessions/:id/publish", s.Session.Publish)
		manager.DELETE("/sessions/:id", s.Session.Delete)
	}

	admin := manager.Group("/admin")
	{
		admin.POST("/migration/run", s.Migration.Run)
		admin.GET("/migration/status", s.Migration.Status)
		admin.GET("/cron/status", s.Migration.CronStatus)
	}
}
