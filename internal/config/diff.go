package config

import (
	"reflect"
	"sort"
	"strings"

	logx "wifistatus/pkg/logx"
)

// Change summarizes the difference between two configs.
type Change struct {
	// Sections lists changed top-level sections, sorted.
	Sections []string
	// RestartRequired lists the changed sections that are only read at startup.
	RestartRequired []string
	// Attrs are safe log fields describing the new logging section. Secrets
	// (tokens, api keys) are never included.
	Attrs []logx.Field
}

// LiveSections can be applied without a restart.
var LiveSections = map[string]bool{"logging": true}

func SummarizeChange(oldCfg, newCfg *Config) Change {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	pairs := map[string][2]any{
		"slack":              {oldCfg.Slack, newCfg.Slack},
		"maps":               {oldCfg.Maps, newCfg.Maps},
		"update_interval":    {strings.TrimSpace(oldCfg.UpdateInterval), strings.TrimSpace(newCfg.UpdateInterval)},
		"http_timeout":       {strings.TrimSpace(oldCfg.HTTPTimeout), strings.TrimSpace(newCfg.HTTPTimeout)},
		"darwin_source":      {oldCfg.DarwinSource, newCfg.DarwinSource},
		"unmapped_policy":    {oldCfg.UnmappedPolicy, newCfg.UnmappedPolicy},
		"status_by_wifi":     {oldCfg.StatusByWiFi, newCfg.StatusByWiFi},
		"status_by_location": {oldCfg.StatusByLocation, newCfg.StatusByLocation},
		"status_hidden":      {oldCfg.StatusHidden, newCfg.StatusHidden},
		"probe":              {oldCfg.Probe, newCfg.Probe},
		"locator":            {oldCfg.Locator, newCfg.Locator},
		"logging":            {oldCfg.Logging, newCfg.Logging},
		"telegram":           {oldCfg.Telegram, newCfg.Telegram},
		"notifier":           {oldCfg.Notifier, newCfg.Notifier},
		"storage":            {oldCfg.Storage, newCfg.Storage},
	}

	var ch Change
	for name, p := range pairs {
		if reflect.DeepEqual(p[0], p[1]) {
			continue
		}
		ch.Sections = append(ch.Sections, name)
		if !LiveSections[name] {
			ch.RestartRequired = append(ch.RestartRequired, name)
		}
	}
	sort.Strings(ch.Sections)
	sort.Strings(ch.RestartRequired)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		ch.Attrs = append(ch.Attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
			logx.Bool("logging.telegram_enabled", newCfg.Logging.Telegram.Enabled),
		)
	}
	return ch
}
