// Package notifier posts a chat message when the published status changes
// (and, optionally, when a cycle fails).
package notifier

import "errors"

var (
	ErrQueueFull = errors.New("notifier queue full")
	ErrStopped   = errors.New("notifier stopped")
)

type Config struct {
	Enabled      bool
	QueueSize    int
	RatePerSec   int
	NotifyErrors bool
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 32
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 1
	}
	return c
}
