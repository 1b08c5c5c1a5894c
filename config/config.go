// Package config provides configuration management for the application.
//
// Values are resolved in order: built-in defaults, then an optional YAML file
// (config.yaml, or the path in CONFIG_FILE) with ${VAR} and ${VAR:-default}
// placeholders expanded from the environment, then environment variables. A .env file
// in the working directory is loaded into the environment first and never overrides
// variables that are already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultBodySizeLimit is the default request body limit in bytes (12MB, enough for a
// phone photo plus multipart framing).
const DefaultBodySizeLimit int64 = 12 * 1024 * 1024

// Body size limit bounds.
const (
	MinBodySizeLimit int64 = 1024
	MaxBodySizeLimit int64 = 100 * 1024 * 1024
)

// Config holds the application configuration
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Gemini  GeminiConfig  `yaml:"gemini"`
	Weather WeatherConfig `yaml:"weather"`
	Cache   CacheConfig   `yaml:"cache"`
	Uploads UploadsConfig `yaml:"uploads"`
	Logging LogConfig     `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port string `yaml:"port" validate:"required,numeric"`
	// BodySizeLimit accepts a byte count or a K/M suffixed size, e.g. "12M".
	BodySizeLimit string   `yaml:"body_size_limit"`
	StaticDir     string   `yaml:"static_dir"`
	AllowOrigins  []string `yaml:"allow_origins"`
}

// GeminiConfig holds the model provider settings
type GeminiConfig struct {
	APIKey      string `yaml:"api_key"`
	Model       string `yaml:"model" validate:"required"`
	BaseURL     string `yaml:"base_url" validate:"required,url"`
	MaxAttempts int    `yaml:"max_attempts" validate:"gte=1,lte=10"`
}

// WeatherConfig holds the Open-Meteo client settings
type WeatherConfig struct {
	BaseURL          string        `yaml:"base_url" validate:"required,url"`
	FailureThreshold uint32        `yaml:"failure_threshold" validate:"gte=1"`
	OpenTimeout      time.Duration `yaml:"open_timeout" validate:"gt=0"`
}

// CacheConfig holds the per-feature cache lifetimes
type CacheConfig struct {
	WeatherTTL     time.Duration `yaml:"weather_ttl" validate:"gt=0"`
	SchemesTTL     time.Duration `yaml:"schemes_ttl" validate:"gt=0"`
	TranslationTTL time.Duration `yaml:"translation_ttl" validate:"gt=0"`
	// MaxEntries bounds each cache with LRU eviction. 0 means unbounded.
	MaxEntries int `yaml:"max_entries" validate:"gte=0"`
}

// UploadsConfig holds the temporary image storage settings
type UploadsConfig struct {
	Dir           string        `yaml:"dir"`
	MaxBytes      int64         `yaml:"max_bytes" validate:"gte=0"`
	SweepInterval time.Duration `yaml:"sweep_interval" validate:"gt=0"`
	MaxAge        time.Duration `yaml:"max_age" validate:"gt=0"`
}

// LogConfig holds the process log settings
type LogConfig struct {
	Format string `yaml:"format" validate:"oneof=auto json text"`
	Level  string `yaml:"level" validate:"oneof=debug info warn warning error"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// buildDefaultConfig returns the configuration used when nothing is set.
func buildDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:          "3000",
			BodySizeLimit: "12M",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-pro",
			BaseURL:     "https://generativelanguage.googleapis.com/v1beta",
			MaxAttempts: 4,
		},
		Weather: WeatherConfig{
			BaseURL:          "https://api.open-meteo.com/v1/forecast",
			FailureThreshold: 5,
			OpenTimeout:      time.Minute,
		},
		Cache: CacheConfig{
			WeatherTTL:     10 * time.Minute,
			SchemesTTL:     60 * time.Minute,
			TranslationTTL: 24 * time.Hour,
		},
		Uploads: UploadsConfig{
			SweepInterval: 10 * time.Minute,
			MaxAge:        time.Hour,
		},
		Logging: LogConfig{
			Format: "auto",
			Level:  "info",
		},
		Metrics: MetricsConfig{
			Endpoint: "/metrics",
		},
	}
}

// Load reads configuration from .env, the optional YAML file and the environment.
func Load() (*Config, error) {
	// Optional; existing environment variables win.
	_ = godotenv.Load()

	cfg := buildDefaultConfig()

	path := os.Getenv("CONFIG_FILE")
	explicit := path != ""
	if !explicit {
		path = "config.yaml"
	}
	if err := loadFile(cfg, path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal([]byte(expandString(string(data))), cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks field constraints and the body size limit format.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := ValidateBodySizeLimit(c.Server.BodySizeLimit); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// BodySizeLimitBytes returns the parsed body size limit, or the default when unset.
func (c *Config) BodySizeLimitBytes() int64 {
	n, err := ParseBodySizeLimit(c.Server.BodySizeLimit)
	if err != nil || n == 0 {
		return DefaultBodySizeLimit
	}
	return n
}

var placeholderPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)(:-([^}]*))?\}`)

// expandString replaces ${VAR} and ${VAR:-default} placeholders. A variable that is unset
// or empty takes the default when one is given; without a default the placeholder is
// left as is.
func expandString(s string) string {
	if s == "" {
		return s
	}
	return placeholderPattern.ReplaceAllStringFunc(s, func(m string) string {
		groups := placeholderPattern.FindStringSubmatch(m)
		name, hasDefault, def := groups[1], groups[2] != "", groups[3]
		if v := os.Getenv(name); v != "" {
			return v
		}
		if hasDefault {
			return def
		}
		return m
	})
}

// applyEnvOverrides copies set environment variables over the current values.
func applyEnvOverrides(cfg *Config) error {
	setString := func(key string, dst *string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	var errs []error
	setInt := func(key string, dst *int) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setInt64 := func(key string, dst *int64) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = n
		}
	}
	setUint32 := func(key string, dst *uint32) {
		if v := os.Getenv(key); v != "" {
			n, err := strconv.ParseUint(strings.TrimSpace(v), 10, 32)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = uint32(n)
		}
	}
	setBool := func(key string, dst *bool) {
		if v := os.Getenv(key); v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = b
		}
	}
	setDuration := func(key string, dst *time.Duration) {
		if v := os.Getenv(key); v != "" {
			d, err := parseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
				return
			}
			*dst = d
		}
	}

	setString("PORT", &cfg.Server.Port)
	setString("BODY_SIZE_LIMIT", &cfg.Server.BodySizeLimit)
	setString("STATIC_DIR", &cfg.Server.StaticDir)
	if v := os.Getenv("CORS_ALLOW_ORIGINS"); v != "" {
		cfg.Server.AllowOrigins = splitList(v)
	}

	setString("GEMINI_API_KEY", &cfg.Gemini.APIKey)
	setString("GEMINI_MODEL", &cfg.Gemini.Model)
	setString("GEMINI_BASE_URL", &cfg.Gemini.BaseURL)
	setInt("GEMINI_MAX_ATTEMPTS", &cfg.Gemini.MaxAttempts)

	setString("WEATHER_BASE_URL", &cfg.Weather.BaseURL)
	setUint32("WEATHER_FAILURE_THRESHOLD", &cfg.Weather.FailureThreshold)
	setDuration("WEATHER_OPEN_TIMEOUT", &cfg.Weather.OpenTimeout)

	setDuration("CACHE_WEATHER_TTL", &cfg.Cache.WeatherTTL)
	setDuration("CACHE_SCHEMES_TTL", &cfg.Cache.SchemesTTL)
	setDuration("CACHE_TRANSLATION_TTL", &cfg.Cache.TranslationTTL)
	setInt("CACHE_MAX_ENTRIES", &cfg.Cache.MaxEntries)

	setString("UPLOAD_DIR", &cfg.Uploads.Dir)
	setInt64("UPLOAD_MAX_BYTES", &cfg.Uploads.MaxBytes)
	setDuration("UPLOAD_SWEEP_INTERVAL", &cfg.Uploads.SweepInterval)
	setDuration("UPLOAD_MAX_AGE", &cfg.Uploads.MaxAge)

	setString("LOG_FORMAT", &cfg.Logging.Format)
	setString("LOG_LEVEL", &cfg.Logging.Level)

	setBool("METRICS_ENABLED", &cfg.Metrics.Enabled)
	setString("METRICS_ENDPOINT", &cfg.Metrics.Endpoint)

	return errors.Join(errs...)
}

// parseDuration accepts Go duration strings ("10m") or a plain number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

var bodySizePattern = regexp.MustCompile(`^(\d+)(?:([KMG])B?)?$`)

// ParseBodySizeLimit parses "1048576", "100K", "100KB", "10M" or "10MB" into bytes.
// An empty string yields 0.
func ParseBodySizeLimit(s string) (int64, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return 0, nil
	}
	m := bodySizePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid body size limit %q: expected a number with an optional K or M suffix", s)
	}
	n, err := strconv.ParseInt(m[1], 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid body size limit %q: %w", s, err)
	}
	switch m[2] {
	case "K":
		n *= 1024
	case "M":
		n *= 1024 * 1024
	case "G":
		n *= 1024 * 1024 * 1024
	}
	return n, nil
}

// ValidateBodySizeLimit checks the format and that the limit lies between 1KB and 100MB.
// An empty string is valid and means the default.
func ValidateBodySizeLimit(s string) error {
	n, err := ParseBodySizeLimit(s)
	if err != nil {
		return err
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if n < MinBodySizeLimit || n > MaxBodySizeLimit {
		return fmt.Errorf("body size limit %q out of range: must be between 1K and 100M", s)
	}
	return nil
}
