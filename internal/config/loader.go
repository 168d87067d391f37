package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config holds runtime parameters for the server.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr         string `json:"addr" yaml:"addr" toml:"addr"`
	ArtifactPath string `json:"artifact_path" yaml:"artifact_path" toml:"artifact_path"`
	// WatchArtifact reloads eagerly on file events in addition to per-request checks.
	WatchArtifact bool `json:"watch_artifact" yaml:"watch_artifact" toml:"watch_artifact"`
	// LabelsCSV, when set, fits the label decoder from a training CSV column.
	LabelsCSV    string `json:"labels_csv" yaml:"labels_csv" toml:"labels_csv"`
	LabelsColumn string `json:"labels_column" yaml:"labels_column" toml:"labels_column"`
	CacheSize    int    `json:"cache_size" yaml:"cache_size" toml:"cache_size"`

	LogLevel  string `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string `json:"log_format" yaml:"log_format" toml:"log_format"`
	// HTTPLogLevel is the per-request log level (off|error|info|debug) used
	// when a request names none. Empty follows LogLevel.
	HTTPLogLevel string `json:"http_log_level" yaml:"http_log_level" toml:"http_log_level"`

	AuditLog        string `json:"audit_log" yaml:"audit_log" toml:"audit_log"`
	AuditMaxSizeMB  int    `json:"audit_max_size_mb" yaml:"audit_max_size_mb" toml:"audit_max_size_mb"`
	AuditMaxBackups int    `json:"audit_max_backups" yaml:"audit_max_backups" toml:"audit_max_backups"`
	AuditMaxAgeDays int    `json:"audit_max_age_days" yaml:"audit_max_age_days" toml:"audit_max_age_days"`
	AuditCompress   bool   `json:"audit_compress" yaml:"audit_compress" toml:"audit_compress"`

	MaxBodyBytes           int64 `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	ReadTimeoutSeconds     int   `json:"read_timeout_seconds" yaml:"read_timeout_seconds" toml:"read_timeout_seconds"`
	WriteTimeoutSeconds    int   `json:"write_timeout_seconds" yaml:"write_timeout_seconds" toml:"write_timeout_seconds"`
	ShutdownTimeoutSeconds int   `json:"shutdown_timeout_seconds" yaml:"shutdown_timeout_seconds" toml:"shutdown_timeout_seconds"`

	CORS CORS `json:"cors" yaml:"cors" toml:"cors"`
}

// CORS configures cross-origin access. A nil Enabled means enabled.
type CORS struct {
	Enabled        *bool    `json:"enabled" yaml:"enabled" toml:"enabled"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" toml:"allowed_origins"`
	AllowedMethods []string `json:"allowed_methods" yaml:"allowed_methods" toml:"allowed_methods"`
	AllowedHeaders []string `json:"allowed_headers" yaml:"allowed_headers" toml:"allowed_headers"`
}

// Defaults applied by WithDefaults.
const (
	DefaultAddr            = ":8000"
	DefaultArtifactPath    = "ckd_model.json"
	DefaultLabelsColumn    = "class"
	DefaultLogLevel        = "info"
	DefaultLogFormat       = "json"
	DefaultMaxBodyBytes    = 1 << 20
	DefaultReadTimeout     = 15
	DefaultWriteTimeout    = 30
	DefaultShutdownTimeout = 5
	DefaultAuditMaxSizeMB  = 100
)

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// WithDefaults fills unspecified fields.
func WithDefaults(cfg Config) Config {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.ArtifactPath == "" {
		cfg.ArtifactPath = DefaultArtifactPath
	}
	if cfg.LabelsColumn == "" {
		cfg.LabelsColumn = DefaultLabelsColumn
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = DefaultLogFormat
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if cfg.ReadTimeoutSeconds <= 0 {
		cfg.ReadTimeoutSeconds = DefaultReadTimeout
	}
	if cfg.WriteTimeoutSeconds <= 0 {
		cfg.WriteTimeoutSeconds = DefaultWriteTimeout
	}
	if cfg.ShutdownTimeoutSeconds <= 0 {
		cfg.ShutdownTimeoutSeconds = DefaultShutdownTimeout
	}
	if cfg.AuditMaxSizeMB <= 0 {
		cfg.AuditMaxSizeMB = DefaultAuditMaxSizeMB
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.CORS.AllowedMethods) == 0 {
		cfg.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.CORS.AllowedHeaders) == 0 {
		cfg.CORS.AllowedHeaders = []string{"*"}
	}
	return cfg
}

// RequestLogLevel returns HTTPLogLevel, or LogLevel when it is unset.
func (c Config) RequestLogLevel() string {
	if c.HTTPLogLevel != "" {
		return c.HTTPLogLevel
	}
	return c.LogLevel
}

// CORSEnabled reports the effective CORS switch.
func (c Config) CORSEnabled() bool { return c.CORS.Enabled == nil || *c.CORS.Enabled }

// ApplyEnv overrides fields from CKDSERVE_* variables. getenv is usually os.Getenv.
func ApplyEnv(cfg Config, getenv func(string) string) (Config, error) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	str("CKDSERVE_ADDR", &cfg.Addr)
	str("CKDSERVE_ARTIFACT", &cfg.ArtifactPath)
	str("CKDSERVE_LABELS_CSV", &cfg.LabelsCSV)
	str("CKDSERVE_LOG_LEVEL", &cfg.LogLevel)
	str("CKDSERVE_LOG_FORMAT", &cfg.LogFormat)
	str("CKDSERVE_HTTP_LOG", &cfg.HTTPLogLevel)
	str("CKDSERVE_AUDIT_LOG", &cfg.AuditLog)
	if v := getenv("CKDSERVE_WATCH"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("CKDSERVE_WATCH: %w", err)
		}
		cfg.WatchArtifact = b
	}
	if v := getenv("CKDSERVE_CACHE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("CKDSERVE_CACHE_SIZE: %w", err)
		}
		cfg.CacheSize = n
	}
	if v := getenv("CKDSERVE_CORS_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	return cfg, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
