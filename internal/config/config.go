package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	NodeEnv string
	Log     LogConfig
	Store   StoreConfig
	Capture CaptureConfig
	Backup  BackupConfig
	Export  ExportConfig
	Server  ServerConfig
	Odoo    OdooConfig
	Kiosk   KioskConfig
}

// LogConfig selects level and encoder of the zap logger
type LogConfig struct {
	Level  string
	Format string
}

// StoreConfig holds the embedded store settings
type StoreConfig struct {
	Path        string
	BusyTimeout time.Duration
	MirrorPath  string
	Location    string
	DeviceID    string
}

// CaptureConfig holds badge capture loop settings
type CaptureConfig struct {
	MarkerPath   string
	PollInterval time.Duration
	Cooldown     time.Duration
	// MaxRuntime stops a loop nobody stopped. Zero disables the guard.
	MaxRuntime time.Duration
	Stdin      bool
}

// BackupConfig holds snapshot and retention settings
type BackupConfig struct {
	Dir           string
	Interval      time.Duration
	RetentionDays int
	S3Bucket      string
	S3Prefix      string
}

// ExportConfig holds export settings
type ExportConfig struct {
	Dir string
}

// ServerConfig holds the operator API settings
type ServerConfig struct {
	Port              string
	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
}

// Enabled reports whether the operator API should be served
func (s ServerConfig) Enabled() bool {
	return s.JWTSecret != ""
}

// OdooConfig holds Odoo HR connection settings
type OdooConfig struct {
	URL          string
	Database     string
	Username     string
	Password     string
	SyncInterval int // in minutes
}

// KioskConfig holds scan handling policy
type KioskConfig struct {
	RejectUnknown bool
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	busyTimeout, err := getDuration("STORE_BUSY_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	pollInterval, err := getDuration("CAPTURE_POLL_INTERVAL", 400*time.Millisecond)
	if err != nil {
		return nil, err
	}
	cooldown, err := getDuration("CAPTURE_COOLDOWN", 2*time.Second)
	if err != nil {
		return nil, err
	}
	maxRuntime, err := getDuration("CAPTURE_MAX_RUNTIME", 15*time.Minute)
	if err != nil {
		return nil, err
	}
	backupInterval, err := getDuration("BACKUP_INTERVAL", time.Hour)
	if err != nil {
		return nil, err
	}
	retention, err := getInt("BACKUP_RETENTION_DAYS", 30)
	if err != nil {
		return nil, err
	}
	odooInterval, err := getInt("ODOO_SYNC_INTERVAL", 15)
	if err != nil {
		return nil, err
	}

	if pollInterval <= 0 {
		return nil, fmt.Errorf("CAPTURE_POLL_INTERVAL must be positive")
	}
	if retention < 1 {
		return nil, fmt.Errorf("BACKUP_RETENTION_DAYS must be at least 1")
	}

	return &Config{
		NodeEnv: getEnv("NODE_ENV", "development"),
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Store: StoreConfig{
			Path:        getEnv("STORE_PATH", "./data/punches.db"),
			BusyTimeout: busyTimeout,
			MirrorPath:  getEnv("MIRROR_PATH", "./data/punches.json"),
			Location:    getEnv("KIOSK_LOCATION", "main"),
			DeviceID:    getEnv("KIOSK_DEVICE_ID", defaultDeviceID()),
		},
		Capture: CaptureConfig{
			MarkerPath:   getEnv("CAPTURE_MARKER_PATH", "./data/badge.txt"),
			PollInterval: pollInterval,
			Cooldown:     cooldown,
			MaxRuntime:   maxRuntime,
			Stdin:        getBool("CAPTURE_STDIN", true),
		},
		Backup: BackupConfig{
			Dir:           getEnv("BACKUP_DIR", "./backups"),
			Interval:      backupInterval,
			RetentionDays: retention,
			S3Bucket:      os.Getenv("BACKUP_S3_BUCKET"),
			S3Prefix:      getEnv("BACKUP_S3_PREFIX", "punch-backups"),
		},
		Export: ExportConfig{
			Dir: getEnv("EXPORT_DIR", "./exports"),
		},
		Server: ServerConfig{
			Port:              getEnv("PORT", "3210"),
			JWTSecret:         os.Getenv("JWT_SECRET"),
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Odoo: OdooConfig{
			URL:          os.Getenv("ODOO_URL"),
			Database:     os.Getenv("ODOO_DB"),
			Username:     os.Getenv("ODOO_USER"),
			Password:     os.Getenv("ODOO_PASSWORD"),
			SyncInterval: odooInterval,
		},
		Kiosk: KioskConfig{
			RejectUnknown: getBool("KIOSK_REJECT_UNKNOWN", false),
		},
	}, nil
}

func defaultDeviceID() string {
	return "kiosk-" + strings.SplitN(uuid.NewString(), "-", 2)[0]
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
