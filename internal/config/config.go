package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Security SecurityConfig
	Rota     RotaConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string `validate:"required,numeric"`
	Environment string `validate:"oneof=development staging production"`
	LogLevel    string `validate:"oneof=trace debug info warn warning error"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string `validate:"required"`
	MaxConnections     int    `validate:"gte=1"`
	MaxIdleConnections int    `validate:"gte=0"`
	ConnMaxLifetime    time.Duration
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret             string        `validate:"required,min=16"`
	RefreshSecret      string        `validate:"required,min=16,nefield=Secret"`
	AccessTokenExpiry  time.Duration `validate:"gt=0"`
	RefreshTokenExpiry time.Duration `validate:"gtfield=AccessTokenExpiry"`
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	BcryptCost       int `validate:"gte=4,lte=31"`
	EnableRequestLog bool
}

// RotaConfig controls week arithmetic and the scheduled jobs.
type RotaConfig struct {
	// IANA zone whose wall clock decides "today" and the current week.
	Timezone string `validate:"required"`
	// A date known to fall in AnchorWeek. Week numbers count from here.
	AnchorDate string `validate:"required,datetime=2006-01-02"`
	AnchorWeek int    `validate:"gte=1,lte=53"`
	Terminals  []int  `validate:"required,min=1,dive,gt=0"`

	// Cron specs with a seconds field.
	MigrationSchedule     string        `validate:"required"`
	OrphanCleanupSchedule string        `validate:"required"`
	SessionSweepSchedule  string        `validate:"required"`
	SessionTTL            time.Duration `validate:"gte=1m"`
	MigrationCronEnabled  bool
}

// Location loads the configured timezone.
func (r RotaConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid ROTA_TIMEZONE %q: %w", r.Timezone, err)
	}
	return loc, nil
}

// Anchor parses AnchorDate.
func (r RotaConfig) Anchor() (time.Time, error) {
	anchor, err := time.Parse("2006-01-02", r.AnchorDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid ROTA_ANCHOR_DATE %q: %w", r.AnchorDate, err)
	}
	return anchor, nil
}

// IsProduction reports whether the server runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := FromEnv()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// FromEnv reads the environment without touching .env files or validating.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:             getEnv("JWT_SECRET", ""),
			RefreshSecret:      getEnv("JWT_REFRESH_SECRET", ""),
			AccessTokenExpiry:  time.Duration(getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRY", 3600)) * time.Second,
			RefreshTokenExpiry: time.Duration(getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRY", 604800)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "Authorization"}),
		},
		Security: SecurityConfig{
			BcryptCost:       getEnvAsInt("BCRYPT_COST", 12),
			EnableRequestLog: getEnvAsBool("ENABLE_REQUEST_LOGGING", true),
		},
		Rota: RotaConfig{
			Timezone:              getEnv("ROTA_TIMEZONE", "Europe/London"),
			AnchorDate:            getEnv("ROTA_ANCHOR_DATE", "2025-06-26"),
			AnchorWeek:            getEnvAsInt("ROTA_ANCHOR_WEEK", 43),
			Terminals:             getEnvAsIntSlice("ROTA_TERMINALS", []int{2, 3, 4, 5}),
			MigrationSchedule:     getEnv("ROTA_MIGRATION_SCHEDULE", "0 59 23 * * 6"),
			OrphanCleanupSchedule: getEnv("ROTA_ORPHAN_CLEANUP_SCHEDULE", "0 30 3 * * *"),
			SessionSweepSchedule:  getEnv("ROTA_SESSION_SWEEP_SCHEDULE", "0 */5 * * * *"),
			SessionTTL:            time.Duration(getEnvAsInt("ROTA_SESSION_TTL", 7200)) * time.Second,
			MigrationCronEnabled:  getEnvAsBool("ROTA_MIGRATION_CRON_ENABLED", true),
		},
	}
}

// Validate checks struct tags, then the values tags cannot express.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if _, err := c.Rota.Location(); err != nil {
		return err
	}

	return nil
}

// Helper functions to get environment variables

func getEnv(key string, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s, using default: %d", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid boolean value for %s, using default: %t", key, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var result []string
	for _, v := range strings.Split(valueStr, ",") {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}

func getEnvAsIntSlice(key string, defaultValue []int) []int {
	values := getEnvAsSlice(key, nil)
	if values == nil {
		return defaultValue
	}
	result := make([]int, 0, len(values))
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("Invalid integer list for %s, using default: %v", key, defaultValue)
			return defaultValue
		}
		result = append(result, n)
	}
	return result
}
