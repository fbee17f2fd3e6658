package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Env          string
	LogMode      string
	SettingsFile string
	Database     DatabaseConfig
	Redis        RedisConfig
	Odoo         OdooConfig
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	Quiet    bool // silence gorm SQL logging
}

// Embedded reports whether the zero-config embedded postgres should be used
func (c DatabaseConfig) Embedded() bool {
	return c.Host == "localhost" && c.Password == ""
}

// RedisConfig holds Redis connection settings. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// OdooConfig holds Odoo connection settings for the catalog and order import
type OdooConfig struct {
	URL       string
	Database  string
	Username  string
	Password  string
	BatchSize int
}

// Enabled reports whether an Odoo instance is configured
func (c OdooConfig) Enabled() bool { return c.URL != "" }

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}
	batch, err := strconv.Atoi(getEnv("ODOO_BATCH_SIZE", "500"))
	if err != nil || batch <= 0 {
		return nil, fmt.Errorf("ODOO_BATCH_SIZE must be a positive integer")
	}

	env := getEnv("APP_ENV", "development")
	return &Config{
		Env:          env,
		LogMode:      getEnv("LOG_MODE", env),
		SettingsFile: os.Getenv("RECS_SETTINGS_FILE"),
		Database: DatabaseConfig{
			Host:     getEnv("PG_HOST", "localhost"),
			Port:     getEnv("PG_PORT", "5432"),
			Username: getEnv("PG_USERNAME", "postgres"),
			Password: os.Getenv("PG_PASSWORD"),
			Database: getEnv("PG_DATABASE", "shoprecs"),
			Quiet:    getEnv("DB_QUIET", "true") == "true",
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Odoo: OdooConfig{
			URL:       os.Getenv("ODOO_URL"),
			Database:  os.Getenv("ODOO_DB"),
			Username:  os.Getenv("ODOO_USERNAME"),
			Password:  os.Getenv("ODOO_PASSWORD"),
			BatchSize: batch,
		},
	}, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
