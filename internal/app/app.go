// Package app wires the daemon together and owns its lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"wifistatus/internal/config"
	"wifistatus/internal/cycle"
	"wifistatus/internal/eventbus"
	"wifistatus/internal/location"
	"wifistatus/internal/notifier"
	"wifistatus/internal/platform"
	"wifistatus/internal/probe"
	"wifistatus/internal/publisher"
	rtsup "wifistatus/internal/runtime/supervisor"
	"wifistatus/internal/scheduler"
	"wifistatus/internal/slack"
	"wifistatus/internal/status"
	"wifistatus/internal/storage"
	kit "wifistatus/internal/transport"
	"wifistatus/internal/transport/telegram"
	"wifistatus/pkg/logx"
)

// Options overrides host-dependent pieces, mostly for tests.
type Options struct {
	// GOOS replaces runtime.GOOS for platform resolution when set.
	GOOS string
	// Runner executes probe and locator commands. Default probe.ExecRunner.
	Runner probe.Runner
	// SdNotify replaces the systemd notifier.
	SdNotify func(state string)
}

// pollLoop is the armed schedule; *scheduler.Service in production.
type pollLoop interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

type App struct {
	cfgm *config.Manager
	sup  *rtsup.Supervisor

	log   logx.Logger
	logs  *logx.Service
	bus   eventbus.Bus
	store storage.Store

	kind   platform.Kind
	mode   cycle.Mode
	runner *cycle.Runner
	pub    *publisher.Publisher
	sched  pollLoop
	notif  *notifier.Service

	sdNotify func(state string)
}

// New loads and validates the config and builds every component. Any
// returned error is startup-fatal; nothing has been armed or sent yet.
func New(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", cfgPath, err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var kind platform.Kind
	if opts.GOOS != "" {
		kind, err = platform.Resolve(opts.GOOS)
	} else {
		kind, err = platform.Current()
	}
	if err != nil {
		return nil, err
	}
	spec, err := scheduler.ParseSchedule(cfg.Schedule())
	if err != nil {
		return nil, fmt.Errorf("update_interval: %w", err)
	}
	mode := cycle.ModeFor(kind, cfg.DarwinUsesLocation())
	if mode == cycle.ModeLocation && strings.TrimSpace(cfg.Maps.APIKey) == "" {
		return nil, config.ErrMissingMapsKey
	}
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}

	var sender kit.Sender
	if tc := cfg.Telegram; tc != nil {
		s, err := telegram.New(telegram.Config{Token: tc.Token, APIURL: tc.APIURL, Timeout: timeout})
		if err != nil {
			return nil, fmt.Errorf("telegram: %w", err)
		}
		sender = s
	}

	// Bootstrap with the chat sink off, set the target, then apply the final
	// config so enabling the sink never races an empty target.
	logCfg := mapLogConfig(cfg)
	bootCfg := logCfg
	bootCfg.Telegram.Enabled = false
	logSvc, root := logx.New(bootCfg, sender)
	logSvc.SetTelegramTarget(telegramTarget(cfg))
	logSvc.Apply(logCfg)
	log := root.With(logx.String("comp", "app"))

	a := &App{
		cfgm: cfgm,
		log:  log,
		logs: logSvc,
		bus:  eventbus.New(),
		kind: kind,
		mode: mode,
	}
	a.sdNotify = opts.SdNotify
	if a.sdNotify == nil {
		a.sdNotify = sdNotify(root.With(logx.String("comp", "systemd")))
	}

	if sc, enabled, err := mapStorageConfig(cfg); err != nil {
		return nil, a.abort(err)
	} else if enabled {
		st, err := storage.Open(sc, root.With(logx.String("comp", "storage")))
		if err != nil {
			return nil, a.abort(fmt.Errorf("storage: %w", err))
		}
		a.store = st
		log.Info("history enabled", logx.String("driver", sc.Driver))
	}

	sc, err := slack.New(slack.Config{Token: cfg.Slack.Token, APIURL: cfg.Slack.APIURL, Timeout: timeout})
	if err != nil {
		return nil, a.abort(err)
	}
	a.pub = publisher.New(sc, root.With(logx.String("comp", "publisher")), a.bus)

	runner := opts.Runner
	if runner == nil {
		runner = probe.ExecRunner{}
	}
	deps := cycle.Deps{
		Mode: mode,
		Mapper: status.NewMapper(status.Tables{
			ByWiFi:       cfg.StatusByWiFi,
			ByLocation:   cfg.StatusByLocation,
			Hidden:       cfg.StatusHidden,
			HideUnmapped: cfg.UsesHiddenForUnmapped(),
		}),
		Publisher:   a.pub,
		Store:       a.store,
		Bus:         a.bus,
		Log:         root.With(logx.String("comp", "cycle")),
		Watchdog:    func() { a.sdNotify(daemon.SdNotifyWatchdog) },
		StepTimeout: timeout,
	}
	switch mode {
	case cycle.ModeWiFi:
		p, err := probe.New(kind, runner, cfg.Probe.Command)
		if err != nil {
			return nil, a.abort(err)
		}
		deps.Probe = p
	case cycle.ModeLocation:
		geo, err := location.NewMapsGeocoder(location.MapsConfig{
			APIKey:  cfg.Maps.APIKey,
			BaseURL: cfg.Maps.BaseURL,
			Timeout: timeout,
		})
		if err != nil {
			return nil, a.abort(err)
		}
		deps.Resolver = &location.Resolver{
			Locator:  location.CommandLocator{Runner: runner, Command: cfg.Locator.Command},
			Geocoder: geo,
		}
	}
	if a.runner, err = cycle.New(deps); err != nil {
		return nil, a.abort(err)
	}

	sched, err := scheduler.New(spec, func(ctx context.Context) { _ = a.runner.Run(ctx) },
		root.With(logx.String("comp", "scheduler")))
	if err != nil {
		return nil, a.abort(err)
	}
	a.sched = sched
	a.notif = notifier.New(mapNotifierConfig(cfg), sender, telegramTarget(cfg), a.bus,
		root.With(logx.String("comp", "notifier")))

	log.Info("configured",
		logx.String("platform", kind.String()),
		logx.String("mode", mode.String()),
		logx.String("schedule", spec.String()),
		logx.Int("wifi_statuses", len(cfg.StatusByWiFi)),
		logx.Int("location_statuses", len(cfg.StatusByLocation)),
		logx.Bool("hide_unmapped", cfg.UsesHiddenForUnmapped()),
	)
	return a, nil
}

// abort releases what New opened so far.
func (a *App) abort(err error) error {
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logs.Close()
	return err
}

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

// Publisher exposes the last-published state.
func (a *App) Publisher() *publisher.Publisher { return a.pub }

// Start arms the poll loop (which runs one cycle right away), the config
// watcher and the notifier, then reports readiness to systemd.
func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx, rtsup.WithLogger(a.log), rtsup.WithCancelOnError(true))

	a.cfgm.SetLogger(a.log.With(logx.String("comp", "config")))
	a.cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})

	a.notif.Start(a.sup.Context())
	if err := a.sched.Start(a.sup.Context()); err != nil {
		a.sup.Cancel()
		sctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = a.notif.Stop(sctx)
		_ = a.sup.Wait(sctx)
		return fmt.Errorf("poll loop: %w", err)
	}

	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})
	a.sup.GoRestart("config.watch", a.cfgm.Watch)

	if every := watchdogInterval(); every > 0 {
		a.sup.Go0("systemd.watchdog", func(c context.Context) {
			t := time.NewTicker(every / 2)
			defer t.Stop()
			for {
				select {
				case <-c.Done():
					return
				case <-t.C:
					a.sdNotify(daemon.SdNotifyWatchdog)
				}
			}
		})
	}

	a.sdNotify(daemon.SdNotifyReady)
	a.log.Info("app started", logx.String("config", a.cfgm.Path()))
	return nil
}

// reloadLoop applies live sections. Only logging is live; other edits are
// reported and wait for a restart.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}

			ch := config.SummarizeChange(lastApplied, newCfg)
			if len(ch.Sections) == 0 {
				a.log.Debug("config reload received, but no effective changes detected")
				continue
			}
			for _, s := range ch.Sections {
				if s == "logging" {
					a.logs.Apply(mapLogConfig(newCfg))
				}
			}
			if len(ch.RestartRequired) > 0 {
				a.log.Warn("config changed; restart required for changes to take effect",
					logx.String("sections", strings.Join(ch.RestartRequired, ",")))
			}
			fields := append([]logx.Field{logx.String("changed", strings.Join(ch.Sections, ","))}, ch.Attrs...)
			a.log.Info("config reloaded", fields...)
			lastApplied = newCfg
		}
	}
}

// RunOnce runs a single cycle without arming the schedule. The error is the
// cycle's outcome.
func (a *App) RunOnce(ctx context.Context) error {
	return a.runner.Run(ctx)
}

// Stop shuts components down in dependency order, each step bounded so one
// stuck component cannot stall the rest. Safe to call after RunOnce without
// Start.
func (a *App) Stop(ctx context.Context, reason StopReason) error {
	a.log.Info("stopping", logx.String("reason", string(reason)))
	if a.sup != nil {
		a.sdNotify(daemon.SdNotifyStopping)
		a.sup.Cancel()
	}

	var errs []error
	step := func(name string, max time.Duration, fn func(context.Context) error) {
		start := time.Now()
		sctx, cancel := context.WithTimeout(ctx, max)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			defer func() {
				if r := recover(); r != nil {
					done <- fmt.Errorf("panic in stop step %s: %v", name, r)
				}
			}()
			done <- fn(sctx)
		}()

		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				a.log.Warn("stop step error", logx.String("name", name), logx.Err(err))
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
			a.log.Debug("stop step end", logx.String("name", name), logx.Duration("took", time.Since(start)))
		case <-sctx.Done():
			a.log.Warn("stop step deadline reached (continuing)",
				logx.String("name", name), logx.Duration("elapsed", time.Since(start)))
		}
	}

	if a.sup != nil {
		step("scheduler", 3*time.Second, a.sched.Stop)
		step("notifier", time.Second, a.notif.Stop)
	}
	step("storage", time.Second, func(context.Context) error {
		if a.store == nil {
			return nil
		}
		return a.store.Close()
	})
	if a.sup != nil {
		step("supervisor", 2*time.Second, a.sup.Wait)
	}

	a.log.Info("stopped")
	_ = a.logs.Close()
	return errors.Join(errs...)
}
