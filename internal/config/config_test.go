package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rxerrors "github.com/Aman-CERP/recdex/internal/errors"
)

// isolate points the user config at an empty directory and clears RECDEX_*.
func isolate(t *testing.T) string {
	t.Helper()
	configDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configDir)
	for _, name := range []string{
		"RECDEX_DATA_DIR", "RECDEX_MAX_OPEN_WRITERS", "RECDEX_SEARCH_LIMIT",
		"RECDEX_MAX_CONCURRENCY", "RECDEX_TRANSPORT", "RECDEX_METRICS_ADDR",
		"RECDEX_LOG_LEVEL", "RECDEX_LOG_FILE",
	} {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
	return configDir
}

func writeUserConfig(t *testing.T, configDir, content string) {
	t.Helper()
	dir := filepath.Join(configDir, "recdex")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))
}

func TestNewConfig_ReturnsDefaults(t *testing.T) {
	// Given: no configuration file exists
	cfg := NewConfig()

	// Then: all defaults should be applied
	require.NotNil(t, cfg)
	assert.Equal(t, 1, cfg.Version)
	assert.Equal(t, DefaultDataDir(), cfg.Store.DataDir)
	assert.Equal(t, 64, cfg.Indexer.MaxOpenWriters)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, 8, cfg.Search.MaxConcurrency)
	assert.Equal(t, "stdio", cfg.Server.Transport)
	assert.Empty(t, cfg.Server.MetricsAddr)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	assert.Equal(t, 5, cfg.Logging.MaxFiles)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_NoConfigFile_ReturnsDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, NewConfig(), cfg)
}

func TestLoad_ProjectFile_OverridesDefaults(t *testing.T) {
	// Given: a directory with .recdex.yaml
	isolate(t)
	dir := t.TempDir()
	content := `
version: 1
store:
  data_dir: /var/lib/recdex
indexer:
  max_open_writers: 4
search:
  default_limit: 25
server:
  metrics_addr: ":9464"
logging:
  level: debug
  max_files: 2
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(content), 0o644))

	// When: loading configuration
	cfg, err := Load(dir)

	// Then: overrides are applied and the rest stays default
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/recdex", cfg.Store.DataDir)
	assert.Equal(t, 4, cfg.Indexer.MaxOpenWriters)
	assert.Equal(t, 25, cfg.Search.DefaultLimit)
	assert.Equal(t, 8, cfg.Search.MaxConcurrency)
	assert.Equal(t, ":9464", cfg.Server.MetricsAddr)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, 2, cfg.Logging.MaxFiles)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
}

func TestLoad_InvalidYaml_ReturnsConfigError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte("search: [broken"), 0o644))

	cfg, err := Load(dir)

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Equal(t, rxerrors.ErrCodeConfigInvalid, rxerrors.GetCode(err))
}

func TestLoad_InvalidFieldType_ReturnsError(t *testing.T) {
	isolate(t)
	dir := t.TempDir()
	content := `
search:
  default_limit: "many"
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName), []byte(content), 0o644))

	_, err := Load(dir)
	assert.Error(t, err)
}

func TestLoadFile_ExplicitPath(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("search:\n  max_concurrency: 2\n"), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Search.MaxConcurrency)

	// a missing explicit file is an error, unlike a missing project file
	_, err = LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, rxerrors.ErrCodeConfigInvalid, rxerrors.GetCode(err))
}

func TestLoad_ExpandsHomeInPaths(t *testing.T) {
	isolate(t)
	home, err := os.UserHomeDir()
	require.NoError(t, err)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProjectConfigName),
		[]byte("store:\n  data_dir: ~/indexes\n"), 0o644))

	cfg, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "indexes"), cfg.Store.DataDir)
}

func TestLoad_Precedence_UserProjectEnv(t *testing.T) {
	// Given: all three config sources exist
	configDir := isolate(t)
	projectDir := t.TempDir()
	writeUserConfig(t, configDir, `
search:
  default_limit: 20
  max_concurrency: 3
indexer:
  max_open_writers: 16
`)
	require.NoError(t, os.WriteFile(filepath.Join(projectDir, ProjectConfigName), []byte(`
search:
  default_limit: 30
indexer:
  max_open_writers: 32
`), 0o644))
	t.Setenv("RECDEX_MAX_OPEN_WRITERS", "48")

	// When: loading configuration
	cfg, err := Load(projectDir)

	// Then: env beats project beats user beats defaults
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Indexer.MaxOpenWriters)
	assert.Equal(t, 30, cfg.Search.DefaultLimit)
	assert.Equal(t, 3, cfg.Search.MaxConcurrency)
}

func TestLoad_InvalidUserConfig_ReturnsError(t *testing.T) {
	configDir := isolate(t)
	writeUserConfig(t, configDir, "logging:\n  level: [invalid yaml\n")

	cfg, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config.yaml")
}

func TestLoad_EnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("RECDEX_SEARCH_LIMIT", "7")
	t.Setenv("RECDEX_MAX_CONCURRENCY", "2")
	t.Setenv("RECDEX_METRICS_ADDR", "127.0.0.1:9000")
	t.Setenv("RECDEX_LOG_LEVEL", "warn")
	t.Setenv("RECDEX_LOG_FILE", "/tmp/recdex-test.log")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Search.DefaultLimit)
	assert.Equal(t, 2, cfg.Search.MaxConcurrency)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.MetricsAddr)
	assert.Equal(t, "warn", cfg.Server.LogLevel)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "/tmp/recdex-test.log", cfg.Logging.File)
}

func TestLoad_EnvDataDirEmptySelectsMemory(t *testing.T) {
	isolate(t)
	t.Setenv("RECDEX_DATA_DIR", "")

	cfg, err := Load(t.TempDir())

	require.NoError(t, err)
	assert.Empty(t, cfg.Store.DataDir)
}

func TestLoad_EnvMalformedNumber_ReturnsError(t *testing.T) {
	isolate(t)
	t.Setenv("RECDEX_SEARCH_LIMIT", "ten")

	_, err := Load(t.TempDir())

	require.Error(t, err)
	assert.Equal(t, rxerrors.ErrCodeConfigInvalid, rxerrors.GetCode(err))
}

func TestValidate_RejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero writers", func(c *Config) { c.Indexer.MaxOpenWriters = 0 }},
		{"zero limit", func(c *Config) { c.Search.DefaultLimit = 0 }},
		{"negative concurrency", func(c *Config) { c.Search.MaxConcurrency = -1 }},
		{"unknown transport", func(c *Config) { c.Server.Transport = "carrier-pigeon" }},
		{"unknown server level", func(c *Config) { c.Server.LogLevel = "loud" }},
		{"unknown logging level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"zero log size", func(c *Config) { c.Logging.MaxSizeMB = 0 }},
		{"negative max files", func(c *Config) { c.Logging.MaxFiles = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.ErrorIs(t, err, &rxerrors.RecdexError{Code: rxerrors.ErrCodeConfigInvalid})
		})
	}
}

func TestGetUserConfigPath_RespectsXDGConfigHome(t *testing.T) {
	configDir := isolate(t)
	assert.Equal(t, filepath.Join(configDir, "recdex", "config.yaml"), GetUserConfigPath())
	assert.False(t, UserConfigExists())

	writeUserConfig(t, configDir, "version: 1\n")
	assert.True(t, UserConfigExists())
}

func TestWriteYAML_RoundTripsThroughLoadFile(t *testing.T) {
	isolate(t)
	cfg := NewConfig()
	cfg.Search.DefaultLimit = 42
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, cfg.WriteYAML(path))

	back, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 42, back.Search.DefaultLimit)
}
