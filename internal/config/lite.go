// Package config provides configuration management for the risk engine.
// This file contains the environment-only configuration of the standalone
// MCP binary.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/posbindu-risk-engine/internal/domain"
)

// LiteConfig configures standalone operation: no Postgres or Redis, the
// assessments live in a SQLite file under DataDir.
type LiteConfig struct {
	DataDir string

	CacheMaxItems int
	CacheTTL      time.Duration

	StockWarningDays int

	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()

	return &LiteConfig{
		DataDir:          filepath.Join(homeDir, ".posbindu-risk-engine"),
		CacheMaxItems:    1000,
		CacheTTL:         time.Hour,
		StockWarningDays: 30,
		LogLevel:         "info",
		LogFormat:        "json",
	}
}

// LoadLiteConfig reads POSBINDU_* environment variables over the defaults.
// Unparseable numeric values are ignored.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("POSBINDU_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}

	if v := os.Getenv("POSBINDU_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("POSBINDU_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CacheTTL = d
		}
	}
	if v := os.Getenv("POSBINDU_STOCK_WARNING_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.StockWarningDays = n
		}
	}

	if v := os.Getenv("POSBINDU_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("POSBINDU_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// AssessmentDBPath returns the path of the SQLite assessment database.
func (c *LiteConfig) AssessmentDBPath() string {
	return filepath.Join(c.DataDir, "assessments.db")
}

// ExportDir returns the directory for JSON exports.
func (c *LiteConfig) ExportDir() string {
	return filepath.Join(c.DataDir, "exports")
}

// EnsureDataDir creates the data and export directories.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ExportDir(), 0755)
}

// CacheConfig maps the lite settings onto the memory-only cache section.
func (c *LiteConfig) CacheConfig() domain.CacheConfig {
	return domain.CacheConfig{
		MaxItems:   c.CacheMaxItems,
		DefaultTTL: c.CacheTTL,
	}
}

// LoggingConfig maps the lite settings onto the logging section. The MCP
// stdio transport owns stdout, so logs go to stderr.
func (c *LiteConfig) LoggingConfig() domain.LoggingConfig {
	return domain.LoggingConfig{
		Level:  c.LogLevel,
		Format: c.LogFormat,
		Output: "stderr",
	}
}

// EngineConfig maps the lite settings onto the engine section.
func (c *LiteConfig) EngineConfig() domain.EngineConfig {
	return domain.EngineConfig{
		StockWarningDays:   c.StockWarningDays,
		PersistAssessments: true,
	}
}
