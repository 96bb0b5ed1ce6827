package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/grovetools/claudelogs/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(""), FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxLines, cfg.Scan.MaxLines)
	assert.Equal(t, DefaultConcurrency, cfg.Scan.Concurrency)
	assert.Equal(t, DefaultMaxLineSize, cfg.Scan.MaxLineSize)
	assert.Equal(t, 30*time.Second, cfg.ScanTimeout())
	assert.Equal(t, 30*time.Second, cfg.StatCacheTTL())
	assert.Equal(t, 300*time.Millisecond, cfg.StabilityThreshold())
	assert.Equal(t, 100*time.Millisecond, cfg.PollInterval())
}

// TestExtensions verifies that sections claudelogs does not own are kept
func TestExtensions(t *testing.T) {
	yamlContent := []byte(`
claude_dir: /tmp/claude
scan:
  max_lines: 500
  timeout: 5s
exclude:
  - "agent-*.jsonl"

logging:
  level: debug
  file:
    enabled: true
`)

	cfg, err := LoadFromBytes(yamlContent, FormatYAML)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/claude", cfg.ClaudeDir)
	assert.Equal(t, 500, cfg.Scan.MaxLines)
	assert.Equal(t, 5*time.Second, cfg.ScanTimeout())
	assert.Equal(t, []string{"agent-*.jsonl"}, cfg.Exclude)

	require.Contains(t, cfg.Extensions, "logging")
	assert.NotContains(t, cfg.Extensions, "scan")

	type fileSink struct {
		Enabled bool `yaml:"enabled"`
	}
	type loggingConfig struct {
		Level string   `yaml:"level"`
		File  fileSink `yaml:"file"`
	}

	var logCfg loggingConfig
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "debug", logCfg.Level)
	assert.True(t, logCfg.File.Enabled)

	// Missing sections leave the target alone
	var missing loggingConfig
	require.NoError(t, cfg.UnmarshalExtension("nope", &missing))
	assert.Empty(t, missing.Level)
}

func TestLoadTOML(t *testing.T) {
	tomlContent := []byte(`
claude_dir = "/srv/claude"
exclude = ["agent-*.jsonl"]

[scan]
concurrency = 4
stat_cache_ttl = "1m"

[watch]
stability_threshold = "1s"

[logging]
level = "warn"
`)

	cfg, err := LoadFromBytes(tomlContent, FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, "/srv/claude", cfg.ClaudeDir)
	assert.Equal(t, 4, cfg.Scan.Concurrency)
	assert.Equal(t, time.Minute, cfg.StatCacheTTL())
	assert.Equal(t, time.Second, cfg.StabilityThreshold())
	assert.Equal(t, DefaultMaxLines, cfg.Scan.MaxLines)

	var logCfg struct {
		Level string `yaml:"level"`
	}
	require.NoError(t, cfg.UnmarshalExtension("logging", &logCfg))
	assert.Equal(t, "warn", logCfg.Level)
	assert.NotContains(t, cfg.Extensions, "scan")
}

func TestEnvExpansion(t *testing.T) {
	t.Setenv("CLAUDELOGS_TEST_DIR", "/from/env")

	cfg, err := LoadFromBytes([]byte(`claude_dir: ${CLAUDELOGS_TEST_DIR}`), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.ClaudeDir)

	cfg, err = LoadFromBytes([]byte(`claude_dir: ${CLAUDELOGS_UNSET_VAR:-/fallback}`), FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "/fallback", cfg.ClaudeDir)
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"bad duration", "scan:\n  timeout: soon\n"},
		{"negative duration", "watch:\n  poll_interval: -1s\n"},
		{"negative concurrency", "scan:\n  concurrency: -2\n"},
		{"bad exclude pattern", "exclude:\n  - \"[\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml), FormatYAML)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrCodeConfigInvalid), "got %v", err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.yml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeConfigNotFound))

	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("claude_dir = \"/x\"\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/x", cfg.ClaudeDir)

	require.NoError(t, os.WriteFile(path, []byte("claude_dir = [\n"), 0644))
	_, err = Load(path)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeConfigInvalid, errors.GetCode(err))
}

func TestLoadDefault(t *testing.T) {
	home := t.TempDir()
	t.Setenv("CLAUDELOGS_HOME", home)

	// No file: defaults
	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, DefaultConcurrency, cfg.Scan.Concurrency)

	configDir := filepath.Join(home, "config")
	require.NoError(t, os.MkdirAll(configDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yml"), []byte("scan:\n  concurrency: 2\n"), 0644))

	cfg, err = LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, 2, cfg.Scan.Concurrency)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatTOML, FormatFromPath("/a/config.TOML"))
	assert.Equal(t, FormatYAML, FormatFromPath("/a/config.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("/a/config"))
}

func TestGenerateSchema(t *testing.T) {
	data, err := GenerateSchema()
	require.NoError(t, err)

	var schema map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &schema))

	assert.Equal(t, "claudelogs Configuration", schema["title"])
	props, ok := schema["properties"].(map[string]interface{})
	require.True(t, ok, "schema should have properties")
	for _, key := range []string{"claude_dir", "scan", "watch", "exclude"} {
		assert.Contains(t, props, key)
	}
	assert.NotContains(t, props, "Extensions")
}
