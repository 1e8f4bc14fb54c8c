package main

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/terminalrota/rota-backend/internal/config"
	"github.com/terminalrota/rota-backend/internal/database"
	"github.com/terminalrota/rota-backend/internal/services"
	"github.com/terminalrota/rota-backend/pkg/jwt"
	"github.com/terminalrota/rota-backend/pkg/validator"
	"github.com/terminalrota/rota-backend/pkg/week"
)

// App holds what the database-backed commands share.
type App struct {
	cfg       *config.Config
	db        *database.PostgresDB
	logger    *logrus.Logger
	resolver  *week.Resolver
	schedule  *services.ScheduleService
	migration *services.MigrationService
	auth      *services.AuthService
	ctx       context.Context
}

var (
	verbose bool
	app     *App
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "rotactl",
		Short:         "Terminal Rota operator tool",
		Long:          `Operator commands for the Terminal Rota backend: schema setup, week rollover, accounts and secrets.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if app != nil && app.db != nil {
				app.db.Close()
			}
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log at debug level")

	rootCmd.AddCommand(dbCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(purgeOrphansCmd())
	rootCmd.AddCommand(showWeekCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(secretsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stderr)
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// connect loads configuration, opens the pool and builds the services.
// Commands that do not touch the database never call it.
func connect() error {
	if app != nil {
		return nil
	}
	logger := newLogger()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	loc, err := cfg.Rota.Location()
	if err != nil {
		return err
	}
	anchor, err := cfg.Rota.Anchor()
	if err != nil {
		return err
	}

	logger.Debug("Connecting to database")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	resolver := week.NewResolver(loc, anchor, cfg.Rota.AnchorWeek)
	staffRepository := database.NewStaffRepository(db)
	weeklyRepository := database.NewWeeklyScheduleRepository(db)
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.RefreshSecret, cfg.JWT.AccessTokenExpiry, cfg.JWT.RefreshTokenExpiry)

	app = &App{
		cfg:      cfg,
		db:       db,
		logger:   logger,
		resolver: resolver,
		schedule: services.NewScheduleService(
			staffRepository, weeklyRepository, resolver,
			validator.NewStaffValidator(cfg.Rota.Terminals), logger,
		),
		migration: services.NewMigrationService(
			staffRepository, weeklyRepository, database.NewMigrationRepository(db), resolver, logger,
		),
		auth: services.NewAuthService(database.NewProfileRepository(db), jwtService, cfg.Security.BcryptCost, logger),
		ctx:  context.Background(),
	}
	return nil
}
