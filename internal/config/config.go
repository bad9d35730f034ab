package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// DefaultSuppliers seeds the supplier shortcut list when PROVEEDORES is
// not set.
var DefaultSuppliers = []string{"Distri", "Santa Rosa", "Tandil", "Pago Alquiler", "Servicios", "Limpieza"}

type Config struct {
	// Backend selection
	DataBackend string

	// SQLite
	SQLiteDBPath string

	// Google Sheets
	GoogleSpreadsheetID   string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Cache
	CacheTTL time.Duration

	// Duplicate guard
	GuardCapacity int
	GuardWindow   time.Duration

	// Write queue
	QueueCapacity int
	QueueDelay    time.Duration

	// AMQP (notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Notifier schedules, cron syntax
	DailySummaryCron string
	PendingAlertCron string
	ProjectionCron   string

	// Business timezone
	Timezone string

	Suppliers []string
}

func Load() *Config {
	cfg := &Config{
		DataBackend: getEnv("DATA_BACKEND", "memory"),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/caja.db"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		GuardCapacity: getEnvInt("GUARD_CAPACITY", 5),
		GuardWindow:   getEnvDuration("GUARD_WINDOW", time.Minute),

		QueueCapacity: getEnvInt("QUEUE_CAPACITY", 64),
		QueueDelay:    getEnvDuration("QUEUE_DELAY", 1100*time.Millisecond),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "caja"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "notifications"),

		DailySummaryCron: getEnv("DAILY_SUMMARY_CRON", "0 21 * * *"),
		PendingAlertCron: getEnv("PENDING_ALERT_CRON", "0 10 * * *"),
		ProjectionCron:   getEnv("PROJECTION_CRON", "0 9 25-31 * *"),

		Timezone: getEnv("TIMEZONE", "America/Argentina/Buenos_Aires"),
	}

	if raw := os.Getenv("PROVEEDORES"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				cfg.Suppliers = append(cfg.Suppliers, s)
			}
		}
	} else {
		cfg.Suppliers = append(cfg.Suppliers, DefaultSuppliers...)
	}

	return cfg
}

// Validate checks the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	validBackends := []string{"memory", "sheets", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "sheets" {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.GuardCapacity < 1 {
		errors = append(errors, fmt.Sprintf("invalid guard capacity %d: must be at least 1", c.GuardCapacity))
	}
	if c.GuardWindow < time.Second {
		errors = append(errors, fmt.Sprintf("invalid guard window %v: must be at least 1 second", c.GuardWindow))
	}
	if c.QueueCapacity < 1 {
		errors = append(errors, fmt.Sprintf("invalid queue capacity %d: must be at least 1", c.QueueCapacity))
	}
	if c.QueueDelay < 0 {
		errors = append(errors, fmt.Sprintf("invalid queue delay %v: must not be negative", c.QueueDelay))
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errors = append(errors, fmt.Sprintf("invalid timezone '%s': %v", c.Timezone, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Location resolves the configured business timezone. Call Validate first;
// an unknown zone falls back to UTC here.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
