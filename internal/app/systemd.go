package app

import (
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"wifistatus/pkg/logx"
)

// sdNotify reports state to systemd. Outside a Type=notify unit
// NOTIFY_SOCKET is unset and this does nothing.
func sdNotify(log logx.Logger) func(state string) {
	return func(state string) {
		sent, err := daemon.SdNotify(false, state)
		if err != nil {
			log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
			return
		}
		if sent && state != daemon.SdNotifyWatchdog {
			log.Debug("sd_notify sent", logx.String("state", state))
		}
	}
}

// watchdogInterval is WATCHDOG_USEC for this process, 0 when disabled.
func watchdogInterval() time.Duration {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil {
		return 0
	}
	return d
}
