package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrMissingSlackToken is the startup-fatal "no credential" error.
	ErrMissingSlackToken = errors.New("missing Slack token (slack.token)")
	ErrMissingMapsKey    = errors.New("missing Maps API key (maps.api_key) required for location lookups")
)

// Validate reports every problem found in cfg, joined into one error.
// Platform-dependent checks (maps key, schedule syntax) live with the
// components that need them.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error

	if strings.TrimSpace(cfg.Slack.Token) == "" {
		errs = append(errs, ErrMissingSlackToken)
	}
	if _, err := cfg.RequestTimeout(); err != nil {
		errs = append(errs, err)
	}

	switch strings.TrimSpace(cfg.DarwinSource) {
	case "", DarwinSourceLocation, DarwinSourceWiFi:
	default:
		errs = append(errs, fmt.Errorf("darwin_source: unknown value %q (want %q or %q)",
			cfg.DarwinSource, DarwinSourceLocation, DarwinSourceWiFi))
	}
	switch strings.TrimSpace(cfg.UnmappedPolicy) {
	case "", UnmappedPassthrough, UnmappedHidden:
	default:
		errs = append(errs, fmt.Errorf("unmapped_policy: unknown value %q (want %q or %q)",
			cfg.UnmappedPolicy, UnmappedPassthrough, UnmappedHidden))
	}

	for name := range cfg.StatusByWiFi {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("status_by_wifi: empty network name"))
		}
	}
	for name := range cfg.StatusByLocation {
		if strings.TrimSpace(name) == "" {
			errs = append(errs, errors.New("status_by_location: empty place name"))
		}
	}

	if cfg.Telegram != nil {
		if strings.TrimSpace(cfg.Telegram.Token) == "" {
			errs = append(errs, errors.New("telegram.token is required when telegram is configured"))
		}
		if cfg.Telegram.ChatID == 0 {
			errs = append(errs, errors.New("telegram.chat_id is required when telegram is configured"))
		}
	}
	if cfg.Logging.Telegram.Enabled && cfg.Telegram == nil {
		errs = append(errs, errors.New("logging.telegram.enabled requires a telegram section"))
	}
	if cfg.Logging.Telegram.RatePerSec < 0 {
		errs = append(errs, errors.New("logging.telegram.rate_per_sec must be >= 0"))
	}
	if n := cfg.Notifier; n != nil {
		if n.Enabled && cfg.Telegram == nil {
			errs = append(errs, errors.New("notifier.enabled requires a telegram section"))
		}
		if n.QueueSize < 0 {
			errs = append(errs, errors.New("notifier.queue_size must be >= 0"))
		}
		if n.RatePerSec < 0 {
			errs = append(errs, errors.New("notifier.rate_per_sec must be >= 0"))
		}
	}
	if s := cfg.Storage; s != nil {
		switch strings.ToLower(strings.TrimSpace(s.Driver)) {
		case "", "none":
		case "file", "sqlite", "sqlite3":
			if strings.TrimSpace(s.Path) == "" {
				errs = append(errs, fmt.Errorf("storage.path is required for driver %q", s.Driver))
			}
		default:
			errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", s.Driver))
		}
		if _, err := cfg.StorageBusyTimeout(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// UsesHiddenForUnmapped reports whether unmapped signals publish the hidden status.
func (c *Config) UsesHiddenForUnmapped() bool {
	return strings.TrimSpace(c.UnmappedPolicy) == UnmappedHidden
}

// DarwinUsesLocation reports whether macOS resolves status from location.
func (c *Config) DarwinUsesLocation() bool {
	s := strings.TrimSpace(c.DarwinSource)
	return s == "" || s == DarwinSourceLocation
}
