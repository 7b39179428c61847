package config

import (
	"fmt"
	"strings"
	"time"
)

func ParseDurationField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid duration %q: %w", path, raw, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s: duration must be >= 0", path)
	}
	return d, nil
}

// ParseDurationOrDefault returns def when raw is empty or zero.
func ParseDurationOrDefault(path, raw string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(path, raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return def, nil
	}
	return d, nil
}

const (
	DefaultUpdateInterval = "1m"
	DefaultHTTPTimeout    = 15 * time.Second
)

// Schedule returns the configured poll schedule or the default interval.
func (c *Config) Schedule() string {
	if s := strings.TrimSpace(c.UpdateInterval); s != "" {
		return s
	}
	return DefaultUpdateInterval
}

func (c *Config) RequestTimeout() (time.Duration, error) {
	return ParseDurationOrDefault("http_timeout", c.HTTPTimeout, DefaultHTTPTimeout)
}

// StorageBusyTimeout is only meaningful for the sqlite driver.
func (c *Config) StorageBusyTimeout() (time.Duration, error) {
	if c.Storage == nil {
		return 0, nil
	}
	return ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout)
}
