// Package cycle runs one probe -> map -> publish pass.
package cycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"wifistatus/internal/eventbus"
	"wifistatus/internal/location"
	"wifistatus/internal/platform"
	"wifistatus/internal/publisher"
	"wifistatus/internal/status"
	"wifistatus/internal/storage"
	"wifistatus/pkg/logx"
)

// Mode is the signal a platform is polled for.
type Mode int

const (
	// ModeHidden: the platform has no usable signal; always publish hidden.
	ModeHidden Mode = iota
	ModeWiFi
	ModeLocation
)

func (m Mode) String() string {
	switch m {
	case ModeWiFi:
		return "wifi"
	case ModeLocation:
		return "location"
	default:
		return "hidden"
	}
}

// ModeFor picks the signal for a platform. useLocation only matters on
// platforms that support location lookups.
func ModeFor(k platform.Kind, useLocation bool) Mode {
	switch k {
	case platform.Linux, platform.Windows:
		return ModeWiFi
	case platform.MacOS:
		if useLocation && k.SupportsLocation() {
			return ModeLocation
		}
		return ModeWiFi
	default:
		return ModeHidden
	}
}

const (
	StageProbe   = "probe"
	StageLocate  = "locate"
	StageGeocode = "geocode"
	StagePublish = "publish"
)

type NetworkProbe interface {
	Name(ctx context.Context) (string, error)
}

type PlaceResolver interface {
	Resolve(ctx context.Context) (string, error)
}

type Publisher interface {
	Publish(ctx context.Context, m status.Match) (publisher.Result, error)
}

type Deps struct {
	Mode      Mode
	Probe     NetworkProbe  // ModeWiFi
	Resolver  PlaceResolver // ModeLocation
	Mapper    *status.Mapper
	Publisher Publisher

	Store storage.Store // optional
	Bus   eventbus.Bus  // optional
	Log   logx.Logger
	// Watchdog is called after every cycle, whatever its outcome.
	Watchdog func()
	// StepTimeout bounds each external step (command, geocode, publish).
	StepTimeout time.Duration
}

type Runner struct {
	d Deps
}

func New(d Deps) (*Runner, error) {
	if d.Mapper == nil || d.Publisher == nil {
		return nil, errors.New("cycle: mapper and publisher are required")
	}
	switch d.Mode {
	case ModeWiFi:
		if d.Probe == nil {
			return nil, errors.New("cycle: wifi mode needs a probe")
		}
	case ModeLocation:
		if d.Resolver == nil {
			return nil, errors.New("cycle: location mode needs a resolver")
		}
	}
	if d.Log.IsZero() {
		d.Log = logx.Nop()
	}
	if d.StepTimeout <= 0 {
		d.StepTimeout = 15 * time.Second
	}
	return &Runner{d: d}, nil
}

func (r *Runner) Mode() Mode { return r.d.Mode }

// Run executes one cycle. Every failure is logged here; the returned error
// only tells one-shot callers how the cycle ended.
func (r *Runner) Run(ctx context.Context) error {
	if r.d.Watchdog != nil {
		defer r.d.Watchdog()
	}

	m, err := r.signal(ctx)
	if err != nil {
		stage := stageOf(err)
		switch stage {
		case StageGeocode:
			r.d.Log.Warn("reverse geocoding failed, cycle skipped", logx.Err(err))
		default:
			r.d.Log.Error("cycle aborted", logx.String("stage", stage), logx.Err(err))
		}
		r.emitFailure(stage, err)
		return err
	}

	pctx, cancel := context.WithTimeout(ctx, r.d.StepTimeout)
	start := time.Now()
	res, err := r.d.Publisher.Publish(pctx, m)
	cancel()
	took := time.Since(start)

	if err != nil {
		r.d.Log.Error("status publish failed",
			logx.String("source", string(m.Source)),
			logx.String("key", m.Key),
			logx.Err(err),
		)
		r.record(ctx, m, storage.OutcomeFailed, err, took)
		r.emitFailure(StagePublish, err)
		return fmt.Errorf("publish: %w", err)
	}
	if res == publisher.Published {
		r.record(ctx, m, storage.OutcomePublished, nil, took)
	}
	return nil
}

func (r *Runner) signal(ctx context.Context) (status.Match, error) {
	sctx, cancel := context.WithTimeout(ctx, r.d.StepTimeout)
	defer cancel()

	switch r.d.Mode {
	case ModeWiFi:
		name, err := r.d.Probe.Name(sctx)
		if err != nil {
			return status.Match{}, err
		}
		m := r.d.Mapper.ByWiFi(name)
		r.d.Log.Debug("network probed", logx.String("ssid", name), logx.Bool("mapped", m.Mapped))
		return m, nil
	case ModeLocation:
		place, err := r.d.Resolver.Resolve(sctx)
		if err != nil {
			return status.Match{}, err
		}
		m := r.d.Mapper.ByLocation(place)
		r.d.Log.Debug("location resolved", logx.String("place", place), logx.Bool("mapped", m.Mapped))
		return m, nil
	default:
		return r.d.Mapper.Hidden(), nil
	}
}

func stageOf(err error) string {
	switch {
	case errors.Is(err, location.ErrGeocode):
		return StageGeocode
	case errors.Is(err, location.ErrLocate):
		return StageLocate
	default:
		return StageProbe
	}
}

func (r *Runner) record(ctx context.Context, m status.Match, outcome string, err error, took time.Duration) {
	if r.d.Store == nil {
		return
	}
	e := storage.HistoryEntry{
		At:      time.Now(),
		Source:  string(m.Source),
		Key:     m.Key,
		Mapped:  m.Mapped,
		Profile: m.Payload.String(),
		Outcome: outcome,
		TookMS:  took.Milliseconds(),
	}
	if err != nil {
		e.Error = err.Error()
	}
	// History is best effort and must not outlive shutdown by much.
	hctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if herr := r.d.Store.AppendHistory(hctx, e); herr != nil {
		r.d.Log.Warn("history append failed", logx.Err(herr))
	}
}

func (r *Runner) emitFailure(stage string, err error) {
	if r.d.Bus == nil {
		return
	}
	r.d.Bus.Publish(eventbus.Event{
		Type: eventbus.TypeCycleFailed,
		Data: eventbus.CycleFailure{Stage: stage, Err: err.Error()},
	})
}
