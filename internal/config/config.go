// Package config loads settings from ML_* environment variables, reading a
// .env file first when one exists.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/insightdelivered/moneylens/internal/parser"
)

// Config holds all application configuration.
type Config struct {
	Server  ServerConfig
	OCR     OCRConfig
	Storage StorageConfig

	MinTextRows int
	LogLevel    string
}

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MaxUploadMB    int
}

type OCRConfig struct {
	Enabled  bool
	DPI      int
	Language string
}

type StorageConfig struct {
	UploadDir       string
	RetentionDays   int
	CleanupSchedule string
}

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the environment alone.
func FromEnv() (*Config, error) {
	var errs []error
	env := envReader{errs: &errs}

	cfg := &Config{
		Server: ServerConfig{
			Host:           env.str("ML_HOST", "0.0.0.0"),
			Port:           env.int("ML_PORT", 8000),
			AllowedOrigins: env.list("ML_ALLOWED_ORIGINS", []string{"http://localhost:8080", "http://127.0.0.1:8080"}),
			MaxUploadMB:    env.int("ML_MAX_UPLOAD_MB", 20),
		},
		OCR: OCRConfig{
			Enabled:  env.bool("ML_OCR_ENABLED", true),
			DPI:      env.int("ML_OCR_DPI", 300),
			Language: env.str("ML_OCR_LANGUAGE", "eng"),
		},
		Storage: StorageConfig{
			UploadDir:       env.str("ML_UPLOAD_DIR", "uploads"),
			RetentionDays:   env.int("ML_RETENTION_DAYS", 7),
			CleanupSchedule: env.str("ML_CLEANUP_SCHEDULE", "@daily"),
		},
		MinTextRows: env.int("ML_MIN_TEXT_ROWS", parser.DefaultMinTextRows),
		LogLevel:    env.str("ML_LOG_LEVEL", "info"),
	}

	errs = append(errs, cfg.validate()...)
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return cfg, nil
}

func (c *Config) validate() []error {
	var errs []error
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("ML_PORT must be between 1 and 65535, got %d", c.Server.Port))
	}
	if c.Server.MaxUploadMB < 1 {
		errs = append(errs, fmt.Errorf("ML_MAX_UPLOAD_MB must be positive, got %d", c.Server.MaxUploadMB))
	}
	if c.OCR.DPI < 50 || c.OCR.DPI > 1200 {
		errs = append(errs, fmt.Errorf("ML_OCR_DPI must be between 50 and 1200, got %d", c.OCR.DPI))
	}
	if c.MinTextRows < 1 {
		errs = append(errs, fmt.Errorf("ML_MIN_TEXT_ROWS must be at least 1, got %d", c.MinTextRows))
	}
	if c.Storage.RetentionDays < 0 {
		errs = append(errs, fmt.Errorf("ML_RETENTION_DAYS must not be negative, got %d", c.Storage.RetentionDays))
	}
	if _, err := cron.ParseStandard(c.Storage.CleanupSchedule); err != nil {
		errs = append(errs, fmt.Errorf("ML_CLEANUP_SCHEDULE: %w", err))
	}
	return errs
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// BodyLimit returns the upload limit in bytes.
func (s ServerConfig) BodyLimit() int {
	return s.MaxUploadMB * 1024 * 1024
}

// Retention returns how long uploaded files are kept.
func (s StorageConfig) Retention() time.Duration {
	return time.Duration(s.RetentionDays) * 24 * time.Hour
}

// Parser returns the settings a single parse runs with.
func (c *Config) Parser() parser.Config {
	return parser.Config{
		OCREnabled:  c.OCR.Enabled,
		OCRDPI:      c.OCR.DPI,
		OCRLanguage: c.OCR.Language,
		MinTextRows: c.MinTextRows,
	}
}

// envReader reads typed values, recording malformed ones instead of
// silently falling back to the default.
type envReader struct {
	errs *[]error
}

func (e envReader) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (e envReader) int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid integer %q", key, v))
		return def
	}
	return n
}

func (e envReader) bool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		*e.errs = append(*e.errs, fmt.Errorf("%s: invalid boolean %q", key, v))
		return def
	}
	return b
}

func (e envReader) list(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
