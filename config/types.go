package config

import (
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// Default values applied by SetDefaults.
const (
	DefaultMaxLines           = 100000
	DefaultScanTimeout        = "30s"
	DefaultMaxLineSize        = 32 * 1024 * 1024
	DefaultConcurrency        = 16
	DefaultStatCacheTTL       = "30s"
	DefaultStabilityThreshold = "300ms"
	DefaultPollInterval       = "100ms"
)

// ScanConfig bounds the per-file line scan used to build session metadata.
type ScanConfig struct {
	MaxLines     int    `yaml:"max_lines,omitempty" toml:"max_lines,omitempty" jsonschema:"description=Maximum number of lines scanned per session file (default: 100000)"`
	Timeout      string `yaml:"timeout,omitempty" toml:"timeout,omitempty" jsonschema:"description=Wall-clock limit for one file scan as a Go duration (default: 30s)"`
	MaxLineSize  int    `yaml:"max_line_size,omitempty" toml:"max_line_size,omitempty" jsonschema:"description=Largest supported JSONL line in bytes (default: 33554432)"`
	Concurrency  int    `yaml:"concurrency,omitempty" toml:"concurrency,omitempty" jsonschema:"description=Number of session files scanned in parallel (default: 16)"`
	StatCacheTTL string `yaml:"stat_cache_ttl,omitempty" toml:"stat_cache_ttl,omitempty" jsonschema:"description=How long file stats are reused (default: 30s)"`
}

// WatchConfig tunes the write-stability wait of the directory watcher.
type WatchConfig struct {
	StabilityThreshold string `yaml:"stability_threshold,omitempty" toml:"stability_threshold,omitempty" jsonschema:"description=How long a file must stay unchanged before it is re-read (default: 300ms)"`
	PollInterval       string `yaml:"poll_interval,omitempty" toml:"poll_interval,omitempty" jsonschema:"description=How often a changed file is polled while waiting (default: 100ms)"`
}

// Config is the claudelogs configuration file.
type Config struct {
	ClaudeDir string      `yaml:"claude_dir,omitempty" toml:"claude_dir,omitempty" jsonschema:"description=Claude Code configuration directory (default: platform specific)"`
	Scan      ScanConfig  `yaml:"scan,omitempty" toml:"scan,omitempty" jsonschema:"description=Session file scan limits"`
	Watch     WatchConfig `yaml:"watch,omitempty" toml:"watch,omitempty" jsonschema:"description=Watcher timings"`
	Exclude   []string    `yaml:"exclude,omitempty" toml:"exclude,omitempty" jsonschema:"description=Glob patterns of session file names to ignore (e.g. agent-*.jsonl)"`

	// Extensions holds every top-level section claudelogs itself does not
	// own, such as "logging". Decode them with UnmarshalExtension.
	Extensions map[string]interface{} `yaml:",inline" toml:"-" jsonschema:"-"`
}

// knownKeys are the top-level keys that never land in Extensions.
var knownKeys = map[string]bool{
	"claude_dir": true,
	"scan":       true,
	"watch":      true,
	"exclude":    true,
}

// SetDefaults fills every unset field.
func (c *Config) SetDefaults() {
	if c.Scan.MaxLines == 0 {
		c.Scan.MaxLines = DefaultMaxLines
	}
	if c.Scan.Timeout == "" {
		c.Scan.Timeout = DefaultScanTimeout
	}
	if c.Scan.MaxLineSize == 0 {
		c.Scan.MaxLineSize = DefaultMaxLineSize
	}
	if c.Scan.Concurrency == 0 {
		c.Scan.Concurrency = DefaultConcurrency
	}
	if c.Scan.StatCacheTTL == "" {
		c.Scan.StatCacheTTL = DefaultStatCacheTTL
	}
	if c.Watch.StabilityThreshold == "" {
		c.Watch.StabilityThreshold = DefaultStabilityThreshold
	}
	if c.Watch.PollInterval == "" {
		c.Watch.PollInterval = DefaultPollInterval
	}
}

// ScanTimeout returns the parsed scan timeout. Call Validate first.
func (c *Config) ScanTimeout() time.Duration {
	return mustDuration(c.Scan.Timeout, DefaultScanTimeout)
}

// StatCacheTTL returns the parsed stat cache TTL.
func (c *Config) StatCacheTTL() time.Duration {
	return mustDuration(c.Scan.StatCacheTTL, DefaultStatCacheTTL)
}

// StabilityThreshold returns the parsed watcher stability threshold.
func (c *Config) StabilityThreshold() time.Duration {
	return mustDuration(c.Watch.StabilityThreshold, DefaultStabilityThreshold)
}

// PollInterval returns the parsed watcher poll interval.
func (c *Config) PollInterval() time.Duration {
	return mustDuration(c.Watch.PollInterval, DefaultPollInterval)
}

func mustDuration(value, fallback string) time.Duration {
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	d, _ := time.ParseDuration(fallback)
	return d
}

// UnmarshalExtension decodes the extension section under key into target.
// A missing section leaves target untouched.
func (c *Config) UnmarshalExtension(key string, target interface{}) error {
	extensionConfig, ok := c.Extensions[key]
	if !ok {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          "yaml",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("failed to create mapstructure decoder: %w", err)
	}

	if err := decoder.Decode(extensionConfig); err != nil {
		return fmt.Errorf("failed to decode extension config for '%s': %w", key, err)
	}

	return nil
}
