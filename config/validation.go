package config

import (
	"fmt"
	"time"

	"github.com/grovetools/claudelogs/errors"
	"github.com/moby/patternmatcher"
)

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Scan.MaxLines < 0 {
		return errors.ConfigInvalid("scan.max_lines must not be negative").
			WithDetail("value", c.Scan.MaxLines)
	}
	if c.Scan.MaxLineSize < 0 {
		return errors.ConfigInvalid("scan.max_line_size must not be negative").
			WithDetail("value", c.Scan.MaxLineSize)
	}
	if c.Scan.Concurrency < 0 {
		return errors.ConfigInvalid("scan.concurrency must not be negative").
			WithDetail("value", c.Scan.Concurrency)
	}

	durations := []struct {
		field string
		value string
	}{
		{"scan.timeout", c.Scan.Timeout},
		{"scan.stat_cache_ttl", c.Scan.StatCacheTTL},
		{"watch.stability_threshold", c.Watch.StabilityThreshold},
		{"watch.poll_interval", c.Watch.PollInterval},
	}
	for _, d := range durations {
		if err := validateDuration(d.field, d.value); err != nil {
			return err
		}
	}

	if len(c.Exclude) > 0 {
		if _, err := patternmatcher.New(c.Exclude); err != nil {
			return errors.Wrap(err, errors.ErrCodeConfigInvalid, "invalid exclude pattern").
				WithDetail("exclude", c.Exclude)
		}
	}

	return nil
}

func validateDuration(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeConfigInvalid, fmt.Sprintf("%s is not a duration", field)).
			WithDetail("value", value)
	}
	if d < 0 {
		return errors.ConfigInvalid(fmt.Sprintf("%s must not be negative", field)).
			WithDetail("value", value)
	}
	return nil
}
