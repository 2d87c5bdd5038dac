package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port               string
	RateLimitPerMinute int
	RateLimitBurst     int

	// Storage
	DataBackend  string
	SQLiteDBPath string

	// Logging
	LogLevel string

	// Valuation
	ValuationFanout int

	// AMQP (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets report mirror
	GoogleSpreadsheetID   string
	GoogleReportSheetName string
	ReportDedupeTTL       time.Duration

	// Backups: a directory or an S3 bucket
	BackupDir          string
	BackupInterval     time.Duration
	BackupKeep         int
	S3Bucket           string
	S3Region           string
	S3Endpoint         string
	S3Prefix           string
	AWSAccessKeyID     string
	AWSSecretAccessKey string
}

// Backends lists the DATA_BACKEND values
var Backends = []string{"memory", "sqlite"}

func Load() *Config {
	cfg := &Config{
		Port:               getEnv("PORT", "8081"),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 20),

		DataBackend:  getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/assetinsight.db"),

		LogLevel: getEnv("LOG_LEVEL", "info"),

		ValuationFanout: getEnvInt("VALUATION_FANOUT", 8),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "assetinsight"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "report_rebuild"),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleReportSheetName: getEnv("GOOGLE_REPORT_SHEET_NAME", "Asset Report"),
		ReportDedupeTTL:       getEnvDuration("REPORT_DEDUPE_TTL", 10*time.Minute),

		BackupDir:          getEnv("BACKUP_DIR", ""),
		BackupInterval:     getEnvDuration("BACKUP_INTERVAL", 24*time.Hour),
		BackupKeep:         getEnvInt("BACKUP_KEEP", 7),
		S3Bucket:           getEnv("S3_BUCKET", ""),
		S3Region:           getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:         getEnv("S3_ENDPOINT", ""),
		S3Prefix:           getEnv("S3_PREFIX", "backups"),
		AWSAccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
	}

	return cfg
}

// AMQPEnabled reports whether change events should be published
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// BackupConfigured reports whether a backup destination is set
func (c *Config) BackupConfigured() bool {
	return c.BackupDir != "" || c.S3Bucket != ""
}

// Validate validates the configuration and returns every problem found
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(Backends, c.DataBackend) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, Backends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if err := ensureDir(c.SQLiteDBPath); err != nil {
			errors = append(errors, err.Error())
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be debug, info, warn or error", c.LogLevel))
	}

	if c.ValuationFanout < 1 || c.ValuationFanout > 64 {
		errors = append(errors, fmt.Sprintf("invalid valuation fanout %d: must be between 1 and 64", c.ValuationFanout))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.RateLimitBurst < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit burst %d: must be at least 1", c.RateLimitBurst))
	}

	// AMQP is optional
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

	if c.ReportDedupeTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid report dedupe TTL %v: must be at least 1 second", c.ReportDedupeTTL))
	}

	if c.BackupDir != "" && c.S3Bucket != "" {
		errors = append(errors, "BACKUP_DIR and S3_BUCKET are mutually exclusive")
	}
	if c.S3Bucket != "" && c.S3Region == "" {
		errors = append(errors, "S3 region is required when S3_BUCKET is provided")
	}
	if (c.AWSAccessKeyID == "") != (c.AWSSecretAccessKey == "") {
		errors = append(errors, "AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY must be set together")
	}
	if c.S3Endpoint != "" {
		if u, err := url.Parse(c.S3Endpoint); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid S3 endpoint '%s': must be an absolute URL", c.S3Endpoint))
		}
	}
	if c.BackupConfigured() {
		if c.BackupInterval < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid backup interval %v: must be at least 1 minute", c.BackupInterval))
		}
		if c.BackupKeep < 1 {
			errors = append(errors, fmt.Sprintf("invalid backup keep %d: must be at least 1", c.BackupKeep))
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(dbPath string) error {
	dir := filepath.Dir(dbPath)
	if dir == "." || dir == "" {
		return nil
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("cannot create SQLite database directory '%s': %v", dir, err)
		}
	}
	return nil
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
