package config

// Config is the on-disk configuration (JSON or YAML).
//
// Everything except the logging section is read once at startup. Edits to
// other sections while the daemon runs are detected but only logged.
type Config struct {
	Slack SlackConfig `json:"slack"`
	Maps  MapsConfig  `json:"maps,omitempty"`

	// UpdateInterval is either a Go duration ("1m"), HH:MM ("00:05") or a
	// cron expression ("*/2 * * * *"). Default: "1m".
	UpdateInterval string `json:"update_interval,omitempty"`

	// HTTPTimeout bounds each outbound call (Slack, geocoding). Default: "15s".
	HTTPTimeout string `json:"http_timeout,omitempty"`

	// DarwinSource picks the macOS signal: "location" (default) or "wifi".
	DarwinSource string `json:"darwin_source,omitempty"`

	// UnmappedPolicy decides what a signal without a configured status
	// publishes: "passthrough" (default, an absent profile) or "hidden".
	UnmappedPolicy string `json:"unmapped_policy,omitempty"`

	StatusByWiFi     map[string]map[string]any `json:"status_by_wifi"`
	StatusByLocation map[string]map[string]any `json:"status_by_location,omitempty"`
	StatusHidden     map[string]any            `json:"status_hidden"`

	Probe   CommandConfig `json:"probe,omitempty"`
	Locator CommandConfig `json:"locator,omitempty"`

	Logging  LoggingConfig   `json:"logging"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Notifier *NotifierConfig `json:"notifier,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
}

type SlackConfig struct {
	Token string `json:"token"`
	// APIURL defaults to https://slack.com/api.
	APIURL string `json:"api_url,omitempty"`
}

type MapsConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url,omitempty"`
}

// CommandConfig overrides the external command used by the probe or locator.
// Empty means the built-in command for the platform.
type CommandConfig struct {
	Command []string `json:"command,omitempty"`
}

type LoggingConfig struct {
	Level    string          `json:"level"`
	Console  bool            `json:"console"`
	File     LoggingFile     `json:"file"`
	Telegram LoggingTelegram `json:"telegram"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

type LoggingTelegram struct {
	Enabled    bool   `json:"enabled"`
	MinLevel   string `json:"min_level"`
	RatePerSec int    `json:"rate_per_sec"`
}

// TelegramConfig is the chat used for status-change notifications and the
// optional log sink.
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	ThreadID int    `json:"thread_id,omitempty"`
	APIURL   string `json:"api_url,omitempty"`
}

// NotifierConfig controls status-change notifications.
//
// Without this section a configured telegram chat still gets status-change
// messages. Defaults: queue_size=32, rate_per_sec=1, notify_errors=false.
type NotifierConfig struct {
	Enabled      bool `json:"enabled"`
	QueueSize    int  `json:"queue_size,omitempty"`
	RatePerSec   int  `json:"rate_per_sec,omitempty"`
	NotifyErrors bool `json:"notify_errors,omitempty"`
}

// StorageConfig enables the publish history.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./wifistatus.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
	// MaxRows caps the sqlite history table; 0 means 10000, -1 keeps everything.
	MaxRows int `json:"max_rows,omitempty"`
}

const (
	DarwinSourceLocation = "location"
	DarwinSourceWiFi     = "wifi"

	UnmappedPassthrough = "passthrough"
	UnmappedHidden      = "hidden"
)
