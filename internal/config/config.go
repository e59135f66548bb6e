// Package config loads recdex configuration.
//
// Configuration is layered, in order of increasing precedence:
//  1. Hardcoded defaults (NewConfig)
//  2. User config ($XDG_CONFIG_HOME/recdex/config.yaml)
//  3. Project config (.recdex.yaml in the working directory) or --config
//  4. Environment variables (RECDEX_*)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
)

// ProjectConfigName is the per-directory config file.
const ProjectConfigName = ".recdex.yaml"

// Config represents the complete recdex configuration.
type Config struct {
	Version int           `yaml:"version" json:"version"`
	Store   StoreConfig   `yaml:"store" json:"store"`
	Indexer IndexerConfig `yaml:"indexer" json:"indexer"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Server  ServerConfig  `yaml:"server" json:"server"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StoreConfig configures where indexes live.
type StoreConfig struct {
	// DataDir holds one bleve index per record shape. Empty keeps every
	// index in memory.
	DataDir string `yaml:"data_dir" json:"data_dir"`
}

// IndexerConfig configures record ingestion.
type IndexerConfig struct {
	// MaxOpenWriters bounds the writer cache (one writer per shape).
	MaxOpenWriters int `yaml:"max_open_writers" json:"max_open_writers"`
}

// SearchConfig configures the multi-index searcher.
type SearchConfig struct {
	// DefaultLimit is used when a caller passes no limit.
	DefaultLimit int `yaml:"default_limit" json:"default_limit"`
	// MaxConcurrency bounds how many indexes are queried at once.
	MaxConcurrency int `yaml:"max_concurrency" json:"max_concurrency"`
}

// ServerConfig configures the MCP server.
type ServerConfig struct {
	Transport string `yaml:"transport" json:"transport"`
	// MetricsAddr serves prometheus /metrics when set (e.g. ":9464").
	MetricsAddr string `yaml:"metrics_addr" json:"metrics_addr"`
	LogLevel    string `yaml:"log_level" json:"log_level"`
}

// LoggingConfig configures diagnostic file logging.
type LoggingConfig struct {
	Level     string `yaml:"level" json:"level"`
	File      string `yaml:"file" json:"file"`
	MaxSizeMB int    `yaml:"max_size_mb" json:"max_size_mb"`
	MaxFiles  int    `yaml:"max_files" json:"max_files"`
}

// NewConfig creates a new Config with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Store: StoreConfig{
			DataDir: DefaultDataDir(),
		},
		Indexer: IndexerConfig{
			MaxOpenWriters: 64,
		},
		Search: SearchConfig{
			DefaultLimit:   10,
			MaxConcurrency: 8,
		},
		Server: ServerConfig{
			Transport: "stdio",
			LogLevel:  "info",
		},
		Logging: LoggingConfig{
			Level:     "info",
			MaxSizeMB: 10,
			MaxFiles:  5,
		},
	}
}

// DefaultDataDir returns ~/.recdex/data.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".recdex", "data")
	}
	return filepath.Join(home, ".recdex", "data")
}

// GetUserConfigPath returns the path to the user configuration file.
// It follows the XDG Base Directory specification:
//   - $XDG_CONFIG_HOME/recdex/config.yaml (if XDG_CONFIG_HOME is set)
//   - ~/.config/recdex/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "recdex", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "recdex", "config.yaml")
	}
	return filepath.Join(home, ".config", "recdex", "config.yaml")
}

// UserConfigExists returns true if the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

// Load loads configuration for dir, reading dir/.recdex.yaml if present.
func Load(dir string) (*Config, error) {
	return load(func(c *Config) error {
		path := filepath.Join(dir, ProjectConfigName)
		if !fileExists(path) {
			return nil
		}
		return c.loadYAML(path)
	})
}

// LoadFile loads configuration with path in place of the project file.
// Unlike the project file, path must exist.
func LoadFile(path string) (*Config, error) {
	return load(func(c *Config) error {
		return c.loadYAML(path)
	})
}

func load(project func(*Config) error) (*Config, error) {
	cfg := NewConfig()

	if fileExists(GetUserConfigPath()) {
		if err := cfg.loadYAML(GetUserConfigPath()); err != nil {
			return nil, err
		}
	}
	if err := project(cfg); err != nil {
		return nil, err
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadYAML merges the non-zero values of a YAML file into c.
func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return rxerrors.ConfigError(fmt.Sprintf("failed to read config file %s", path), err).
			WithDetail("path", path)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return rxerrors.ConfigError(fmt.Sprintf("failed to parse config file %s", path), err).
			WithDetail("path", path).
			WithSuggestion("check the YAML syntax and field types")
	}
	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero values from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}
	if other.Store.DataDir != "" {
		c.Store.DataDir = expandHome(other.Store.DataDir)
	}
	if other.Indexer.MaxOpenWriters != 0 {
		c.Indexer.MaxOpenWriters = other.Indexer.MaxOpenWriters
	}
	if other.Search.DefaultLimit != 0 {
		c.Search.DefaultLimit = other.Search.DefaultLimit
	}
	if other.Search.MaxConcurrency != 0 {
		c.Search.MaxConcurrency = other.Search.MaxConcurrency
	}
	if other.Server.Transport != "" {
		c.Server.Transport = other.Server.Transport
	}
	if other.Server.MetricsAddr != "" {
		c.Server.MetricsAddr = other.Server.MetricsAddr
	}
	if other.Server.LogLevel != "" {
		c.Server.LogLevel = other.Server.LogLevel
	}
	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.File != "" {
		c.Logging.File = expandHome(other.Logging.File)
	}
	if other.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = other.Logging.MaxSizeMB
	}
	if other.Logging.MaxFiles != 0 {
		c.Logging.MaxFiles = other.Logging.MaxFiles
	}
}

// applyEnvOverrides applies RECDEX_* environment variable overrides.
// Empty variables are ignored; malformed numbers are rejected.
func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("RECDEX_DATA_DIR"); ok {
		// set-but-empty selects in-memory indexes
		c.Store.DataDir = expandHome(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"RECDEX_MAX_OPEN_WRITERS", &c.Indexer.MaxOpenWriters},
		{"RECDEX_SEARCH_LIMIT", &c.Search.DefaultLimit},
		{"RECDEX_MAX_CONCURRENCY", &c.Search.MaxConcurrency},
	}
	for _, e := range ints {
		v := os.Getenv(e.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return rxerrors.ConfigError(fmt.Sprintf("%s must be an integer, got %q", e.name, v), err)
		}
		*e.dst = n
	}

	if v := os.Getenv("RECDEX_TRANSPORT"); v != "" {
		c.Server.Transport = v
	}
	if v := os.Getenv("RECDEX_METRICS_ADDR"); v != "" {
		c.Server.MetricsAddr = v
	}
	if v := os.Getenv("RECDEX_LOG_LEVEL"); v != "" {
		c.Server.LogLevel = v
		c.Logging.Level = v
	}
	if v := os.Getenv("RECDEX_LOG_FILE"); v != "" {
		c.Logging.File = expandHome(v)
	}
	return nil
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	if c.Indexer.MaxOpenWriters < 1 {
		return invalid("indexer.max_open_writers must be at least 1, got %d", c.Indexer.MaxOpenWriters)
	}
	if c.Search.DefaultLimit < 1 {
		return invalid("search.default_limit must be at least 1, got %d", c.Search.DefaultLimit)
	}
	if c.Search.MaxConcurrency < 1 {
		return invalid("search.max_concurrency must be at least 1, got %d", c.Search.MaxConcurrency)
	}
	if strings.ToLower(c.Server.Transport) != "stdio" {
		return invalid("server.transport must be 'stdio', got %s", c.Server.Transport)
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Server.LogLevel)] {
		return invalid("server.log_level must be 'debug', 'info', 'warn', or 'error', got %s", c.Server.LogLevel)
	}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return invalid("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}
	if c.Logging.MaxSizeMB < 1 {
		return invalid("logging.max_size_mb must be at least 1, got %d", c.Logging.MaxSizeMB)
	}
	if c.Logging.MaxFiles < 0 {
		return invalid("logging.max_files must be non-negative, got %d", c.Logging.MaxFiles)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return rxerrors.ConfigError(fmt.Sprintf(format, args...), nil).
		WithSuggestion("fix the value in " + ProjectConfigName + " or the RECDEX_* environment")
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
