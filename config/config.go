// Package config centralises configuration for the fitanalysis binaries.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ttu-dot/fitanalysis/hrmerge"
)

// Version is reported by the API and the CLI.
const Version = "1.8.0"

// Config captures runtime configuration values.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	HRMerge HRMergeConfig `yaml:"hr_merge"`
	Version string        `yaml:"-"`
}

// ServerConfig holds HTTP settings.
type ServerConfig struct {
	Addr            string `yaml:"addr"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// StorageConfig locates the activity database.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LogConfig selects the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json|console
}

// HRMergeConfig holds the default heart-rate merge thresholds.
type HRMergeConfig struct {
	MaxShiftSec          float64 `yaml:"auto_align_max_shift_sec"`
	MatchToleranceSec    float64 `yaml:"auto_align_match_tolerance_sec"`
	MinMatchRatio        float64 `yaml:"auto_align_min_match_ratio"`
	InterpolateMaxGapSec float64 `yaml:"interpolate_max_gap_sec"`
	AllowExtrapolation   bool    `yaml:"allow_extrapolation"`
}

// Criteria converts the section to merge criteria.
func (h HRMergeConfig) Criteria() hrmerge.Criteria {
	return hrmerge.Criteria{
		MaxShiftSec:          h.MaxShiftSec,
		MatchToleranceSec:    h.MatchToleranceSec,
		MinMatchRatio:        h.MinMatchRatio,
		InterpolateMaxGapSec: h.InterpolateMaxGapSec,
		AllowExtrapolation:   h.AllowExtrapolation,
	}
}

// Default returns the built-in configuration.
func Default() Config {
	c := hrmerge.DefaultCriteria()
	return Config{
		Server: ServerConfig{
			Addr:            ":8000",
			MaxUploadBytes:  64 << 20,
			DefaultPageSize: 20,
			MaxPageSize:     100,
		},
		Storage: StorageConfig{DataDir: "data"},
		Log:     LogConfig{Level: "info", Format: "json"},
		HRMerge: HRMergeConfig{
			MaxShiftSec:          c.MaxShiftSec,
			MatchToleranceSec:    c.MatchToleranceSec,
			MinMatchRatio:        c.MinMatchRatio,
			InterpolateMaxGapSec: c.InterpolateMaxGapSec,
			AllowExtrapolation:   c.AllowExtrapolation,
		},
		Version: Version,
	}
}

// Load reads the optional YAML file at path over the defaults, applies
// FITANALYSIS_* environment overrides and validates the result. An empty
// path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	cfg.applyEnv()
	cfg.Version = Version
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Addr = getEnv("FITANALYSIS_ADDR", c.Server.Addr)
	c.Server.MaxUploadBytes = int64(getIntEnv("FITANALYSIS_MAX_UPLOAD_BYTES", int(c.Server.MaxUploadBytes)))
	c.Storage.DataDir = getEnv("FITANALYSIS_DATA_DIR", c.Storage.DataDir)
	c.Log.Level = getEnv("FITANALYSIS_LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("FITANALYSIS_LOG_FORMAT", c.Log.Format)

	h := &c.HRMerge
	h.MaxShiftSec = getFloatEnv("FITANALYSIS_HR_MAX_SHIFT_SEC", h.MaxShiftSec)
	h.MatchToleranceSec = getFloatEnv("FITANALYSIS_HR_MATCH_TOLERANCE_SEC", h.MatchToleranceSec)
	h.MinMatchRatio = getFloatEnv("FITANALYSIS_HR_MIN_MATCH_RATIO", h.MinMatchRatio)
	h.InterpolateMaxGapSec = getFloatEnv("FITANALYSIS_HR_INTERPOLATE_MAX_GAP_SEC", h.InterpolateMaxGapSec)
	h.AllowExtrapolation = getBoolEnv("FITANALYSIS_HR_ALLOW_EXTRAPOLATION", h.AllowExtrapolation)
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Server.Addr) == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}
	if c.Server.MaxUploadBytes <= 0 {
		errs = append(errs, errors.New("server.max_upload_bytes must be positive"))
	}
	if c.Server.MaxPageSize <= 0 || c.Server.DefaultPageSize <= 0 || c.Server.DefaultPageSize > c.Server.MaxPageSize {
		errs = append(errs, errors.New("server page sizes must satisfy 0 < default_page_size <= max_page_size"))
	}
	if strings.TrimSpace(c.Storage.DataDir) == "" {
		errs = append(errs, errors.New("storage.data_dir is required"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("log.format %q must be json or console", c.Log.Format))
	}
	h := c.HRMerge
	if h.MaxShiftSec < 0 {
		errs = append(errs, errors.New("hr_merge.auto_align_max_shift_sec must not be negative"))
	}
	if h.MatchToleranceSec <= 0 {
		errs = append(errs, errors.New("hr_merge.auto_align_match_tolerance_sec must be positive"))
	}
	if h.MinMatchRatio < 0 || h.MinMatchRatio > 1 {
		errs = append(errs, errors.New("hr_merge.auto_align_min_match_ratio must be within [0, 1]"))
	}
	if h.InterpolateMaxGapSec < 0 {
		errs = append(errs, errors.New("hr_merge.interpolate_max_gap_sec must not be negative"))
	}
	return errors.Join(errs...)
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getFloatEnv(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
