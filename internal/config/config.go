// Package config provides centralized configuration loaded from environment
// variables. Shared by the run and watch commands.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	// DefaultTimezone is the single civil timezone all subscribers share.
	DefaultTimezone = "Europe/Rome"

	// AuditTable and BackupAuditTable are the audit log destinations; the
	// backup deployment writes to its own table so the two instances can
	// share one database.
	AuditTable       = "logs_notifier"
	BackupAuditTable = "logs_backup_notifier"
)

// --------------------------------------------------------------------------
// Config struct — populated from environment variables
// --------------------------------------------------------------------------

type Config struct {
	// Database
	DatabaseURL    string
	DBPoolMinConns int
	DBPoolMaxConns int
	DBPoolMaxLife  time.Duration

	// Event source: a published spreadsheet CSV export, or an ICS feed.
	// Exactly one must be set; ICS wins when both are.
	EventsCSVURL string
	EventsICSURL string
	FetchTimeout time.Duration

	// Push delivery backend
	BackendURL         string
	NotificationAPIKey string
	NotifyTimeout      time.Duration

	// Dispatch
	Timezone      string
	WatchInterval time.Duration

	// Status server (watch mode)
	ListenAddr string

	// Deployment
	Environment string // production, backup, development
	LogLevel    string
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	dbURL := envOr("DATABASE_URL", envOr("DB_URL", ""))
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL must be set")
	}

	csvURL := envOr("EVENTS_CSV_URL", "")
	icsURL := envOr("EVENTS_ICS_URL", "")
	if csvURL == "" && icsURL == "" {
		return nil, fmt.Errorf("EVENTS_CSV_URL or EVENTS_ICS_URL must be set")
	}

	backendURL := strings.TrimRight(envOr("BACKEND_URL", ""), "/")
	if backendURL == "" {
		return nil, fmt.Errorf("BACKEND_URL must be set")
	}

	return &Config{
		DatabaseURL:    dbURL,
		DBPoolMinConns: envInt("DB_POOL_MIN_CONNS", 1),
		DBPoolMaxConns: envInt("DB_POOL_MAX_CONNS", 4),
		DBPoolMaxLife:  time.Duration(envInt("DB_POOL_MAX_LIFE_MINUTES", 30)) * time.Minute,

		EventsCSVURL: csvURL,
		EventsICSURL: icsURL,
		FetchTimeout: envDuration("FETCH_TIMEOUT", 15*time.Second),

		BackendURL:         backendURL,
		NotificationAPIKey: envOr("NOTIFICATION_API_KEY", ""),
		NotifyTimeout:      envDuration("NOTIFY_TIMEOUT", 10*time.Second),

		Timezone:      envOr("NOTIFIER_TIMEZONE", DefaultTimezone),
		WatchInterval: envDuration("WATCH_INTERVAL", 5*time.Minute),

		ListenAddr: envOr("LISTEN_ADDR", ":8080"),

		Environment: envOr("ENVIRONMENT", "development"),
		LogLevel:    envOr("LOG_LEVEL", "info"),
	}, nil
}

// AuditTableName returns the audit log table for this deployment.
func (c *Config) AuditTableName() string {
	if c.Environment == "backup" {
		return BackupAuditTable
	}
	return AuditTable
}

// IsProduction returns true if running in production environment.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// --------------------------------------------------------------------------
// Env helpers
// --------------------------------------------------------------------------

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
