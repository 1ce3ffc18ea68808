package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"finanzas/internal/core"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	LogLevel           string

	// Identity
	IdentityTokenSecret string

	// Database
	SQLiteDBPath string
	SeedFile     string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets mirror
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Legacy API import
	LegacyAPIURL      string
	LegacyAPIEmail    string
	LegacyAPIPassword string
	LegacyUserID      string
	LegacyAPITimeout  time.Duration

	// Planned payments
	PaymentsCron string
	RunScheduler bool
}

// Legacy holds the settings an import run needs.
type Legacy struct {
	URL      string
	Email    string
	Password string
	UserID   int64
	Timeout  time.Duration
}

func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		LogLevel:           getEnv("LOG_LEVEL", "info"),

		IdentityTokenSecret: getEnv("IDENTITY_TOKEN_SECRET", ""),

		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finanzas.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finanzas"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "movement_events"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          getEnv("GOOGLE_SHEET_NAME", "Movements"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		LegacyAPIURL:      getEnv("LEGACY_API_URL", ""),
		LegacyAPIEmail:    getEnv("LEGACY_API_EMAIL", ""),
		LegacyAPIPassword: getEnv("LEGACY_API_PASSWORD", ""),
		LegacyUserID:      getEnv("LEGACY_USER_ID", ""),
		LegacyAPITimeout:  getEnvDuration("LEGACY_API_TIMEOUT", 30*time.Second),

		PaymentsCron: getEnv("PAYMENTS_CRON", "0 0 * * *"),
		RunScheduler: getEnvBool("RUN_SCHEDULER", false),
	}
}

// Validate validates the configuration and returns an error if invalid.
// Legacy import settings are checked separately by LegacyImport.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
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

	if c.SeedFile != "" {
		if _, err := os.Stat(c.SeedFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("seed file does not exist: %s", c.SeedFile))
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

	if c.GoogleSpreadsheetID != "" {
		if c.GoogleSheetName == "" {
			errors = append(errors, "Google Sheet name is required when a spreadsheet is configured")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided for the sheets mirror")
		}
		if c.GoogleServiceAccountFile != "" {
			if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
			}
		}
	}

	if c.LegacyAPIURL != "" {
		if parsedURL, err := url.Parse(c.LegacyAPIURL); err != nil || parsedURL.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid legacy API URL '%s'", c.LegacyAPIURL))
		}
	}

	if _, err := cron.ParseStandard(c.PaymentsCron); err != nil {
		errors = append(errors, fmt.Sprintf("invalid payments cron '%s': %v", c.PaymentsCron, err))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// LegacyImport returns the legacy API settings, or a ConfigError naming every
// missing or unusable key.
func (c *Config) LegacyImport() (Legacy, error) {
	var missing []string
	if strings.TrimSpace(c.LegacyAPIURL) == "" {
		missing = append(missing, "LEGACY_API_URL")
	}
	if strings.TrimSpace(c.LegacyAPIEmail) == "" {
		missing = append(missing, "LEGACY_API_EMAIL")
	}
	if c.LegacyAPIPassword == "" {
		missing = append(missing, "LEGACY_API_PASSWORD")
	}
	userID, err := strconv.ParseInt(strings.TrimSpace(c.LegacyUserID), 10, 64)
	if err != nil || userID <= 0 {
		missing = append(missing, "LEGACY_USER_ID")
	}
	if len(missing) > 0 {
		return Legacy{}, &core.ConfigError{Missing: missing}
	}

	timeout := c.LegacyAPITimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return Legacy{
		URL:      strings.TrimRight(strings.TrimSpace(c.LegacyAPIURL), "/"),
		Email:    strings.TrimSpace(c.LegacyAPIEmail),
		Password: c.LegacyAPIPassword,
		UserID:   userID,
		Timeout:  timeout,
	}, nil
}

// SheetsEnabled reports whether movements are mirrored to a spreadsheet.
func (c *Config) SheetsEnabled() bool {
	return c.GoogleSpreadsheetID != ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
