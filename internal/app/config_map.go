package app

import (
	"strings"
	"time"

	"wifistatus/internal/config"
	"wifistatus/internal/notifier"
	"wifistatus/internal/storage"
	kit "wifistatus/internal/transport"
	"wifistatus/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	l := cfg.Logging
	return logx.Config{
		Level:   l.Level,
		Console: l.Console,
		File: logx.FileConfig{
			Enabled: l.File.Enabled,
			Path:    l.File.Path,
		},
		Telegram: logx.TelegramConfig{
			Enabled:    l.Telegram.Enabled && cfg.Telegram != nil,
			MinLevel:   l.Telegram.MinLevel,
			RatePerSec: l.Telegram.RatePerSec,
		},
	}
}

func telegramTarget(cfg *config.Config) kit.ChatTarget {
	if cfg.Telegram == nil {
		return kit.ChatTarget{}
	}
	return kit.ChatTarget{ChatID: cfg.Telegram.ChatID, ThreadID: cfg.Telegram.ThreadID}
}

// mapNotifierConfig: a telegram section without a notifier section still
// announces status changes.
func mapNotifierConfig(cfg *config.Config) notifier.Config {
	if cfg.Telegram == nil {
		return notifier.Config{}
	}
	n := cfg.Notifier
	if n == nil {
		return notifier.Config{Enabled: true}
	}
	return notifier.Config{
		Enabled:      n.Enabled,
		QueueSize:    n.QueueSize,
		RatePerSec:   n.RatePerSec,
		NotifyErrors: n.NotifyErrors,
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
	if err != nil {
		return storage.Config{}, false, err
	}
	return storage.Config{
		Driver:      driver,
		Path:        strings.TrimSpace(sc.Path),
		BusyTimeout: busy,
		MaxRows:     sc.MaxRows,
	}, true, nil
}
