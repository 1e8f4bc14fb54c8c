package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/terminalrota/rota-backend/internal/config"
	"github.com/terminalrota/rota-backend/internal/database"
	"github.com/terminalrota/rota-backend/internal/handlers"
	"github.com/terminalrota/rota-backend/internal/middleware"
	"github.com/terminalrota/rota-backend/internal/services"
	"github.com/terminalrota/rota-backend/pkg/jwt"
	"github.com/terminalrota/rota-backend/pkg/validator"
	"github.com/terminalrota/rota-backend/pkg/week"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting Terminal Rota backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	loc, err := cfg.Rota.Location()
	if err != nil {
		logger.Fatalf("Invalid rota configuration: %v", err)
	}
	anchor, err := cfg.Rota.Anchor()
	if err != nil {
		logger.Fatalf("Invalid rota configuration: %v", err)
	}
	resolver := week.NewResolver(loc, anchor, cfg.Rota.AnchorWeek)
	logger.WithFields(logrus.Fields{
		"timezone":     loc.String(),
		"current_week": week.Key(resolver.Current()),
		"week_number":  resolver.Number(resolver.Current()),
		"terminals":    cfg.Rota.Terminals,
	}).Info("Rota calendar loaded")

	// Repositories
	staffRepository := database.NewStaffRepository(db)
	weeklyRepository := database.NewWeeklyScheduleRepository(db)
	migrationRepository := database.NewMigrationRepository(db)
	profileRepository := database.NewProfileRepository(db)

	// Services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(
		cfg.JWT.Secret,
		cfg.JWT.RefreshSecret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	staffValidator := validator.NewStaffValidator(cfg.Rota.Terminals)
	scheduleService := services.NewScheduleService(staffRepository, weeklyRepository, resolver, staffValidator, logger)
	sessionManager := services.NewSessionManager(scheduleService, cfg.Rota.SessionTTL, logger)
	migrationService := services.NewMigrationService(staffRepository, weeklyRepository, migrationRepository, resolver, logger)
	authService := services.NewAuthService(profileRepository, jwtService, cfg.Security.BcryptCost, logger)

	rateLimitService := services.NewRateLimitService(services.DefaultRateLimitConfig())

	cronService := services.NewCronService(cfg.Rota, loc, migrationService, scheduleService, sessionManager, logger).
		WithRateLimiter(rateLimitService)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	handlerSet := &handlers.Set{
		Auth:      handlers.NewAuthHandler(authService, sessionManager, rateLimitService, logger),
		Week:      handlers.NewWeekHandler(scheduleService, logger),
		Staff:     handlers.NewStaffHandler(scheduleService, logger),
		Session:   handlers.NewSessionHandler(sessionManager, resolver, logger),
		Migration: handlers.NewMigrationHandler(cronService, migrationService, logger),
		Health:    handlers.NewHealthHandler(db, version),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Security.EnableRequestLog {
		router.Use(middleware.RequestLogger(logger))
	}

	allowAll := len(cfg.CORS.AllowedOrigins) == 1 && cfg.CORS.AllowedOrigins[0] == "*"
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !allowAll,
		MaxAge:           12 * time.Hour,
	}))

	handlerSet.Register(router, jwtService, logger)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 45 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	// Let a running rollover finish before the pool closes.
	cronService.Stop()

	if open := sessionManager.Count(); open > 0 {
		logger.WithField("open_sessions", open).Warn("Discarding unsaved edit sessions")
	}

	logger.Info("Server exited successfully")
}
