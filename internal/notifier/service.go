package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"wifistatus/internal/eventbus"
	rtsup "wifistatus/internal/runtime/supervisor"
	kit "wifistatus/internal/transport"
	"wifistatus/pkg/logx"
	"wifistatus/pkg/tgui"
)

// Service turns bus events into chat messages:
// bus subscription -> bounded queue -> one rate-limited sender.
type Service struct {
	cfg     Config
	sender  kit.Sender
	target  kit.ChatTarget
	bus     eventbus.Bus
	log     logx.Logger
	limiter *rate.Limiter

	mu    sync.Mutex
	queue chan string
	unsub func()
	sup   *rtsup.Supervisor
}

func New(cfg Config, sender kit.Sender, target kit.ChatTarget, bus eventbus.Bus, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	cfg = cfg.withDefaults()
	return &Service{
		cfg:     cfg,
		sender:  sender,
		target:  target,
		bus:     bus,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
	}
}

// Start subscribes to the bus. It is a no-op when disabled or already running.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.cfg.Enabled || s.queue != nil || s.bus == nil || s.sender == nil {
		return
	}
	events, unsub := s.bus.Subscribe(s.cfg.QueueSize)
	s.queue = make(chan string, s.cfg.QueueSize)
	s.unsub = unsub
	s.sup = rtsup.New(ctx, rtsup.WithLogger(s.log))

	q := s.queue
	s.sup.Go0("notifier.events", func(ctx context.Context) {
		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				if text := s.format(e); text != "" {
					if err := s.enqueue(q, text); err != nil {
						s.log.Warn("notification dropped", logx.String("event", e.Type), logx.Err(err))
					}
				}
			}
		}
	})
	s.sup.Go0("notifier.send", func(ctx context.Context) { s.sendLoop(ctx, q) })
	s.log.Debug("notifier started", logx.Int64("chat_id", s.target.ChatID))
}

// Stop unsubscribes and waits for the workers until ctx ends. Queued
// messages that have not been sent by then are dropped.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	sup, unsub := s.sup, s.unsub
	s.sup, s.unsub, s.queue = nil, nil, nil
	s.mu.Unlock()
	if sup == nil {
		return nil
	}
	unsub()
	return sup.Stop(ctx)
}

func (s *Service) enqueue(q chan string, text string) error {
	if q == nil {
		return ErrStopped
	}
	select {
	case q <- text:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) sendLoop(ctx context.Context, q <-chan string) {
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-q:
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			sctx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := s.sender.SendText(sctx, s.target, text, &kit.SendOptions{ParseMode: tgui.ParseModeHTML, DisablePreview: true})
			cancel()
			if err != nil {
				s.log.Warn("notification send failed", logx.Err(err))
			}
		}
	}
}

// profileRunes bounds each rendered profile so a message stays under the
// Telegram limit.
const profileRunes = tgui.MaxMessageRunes / 4

func (s *Service) format(e eventbus.Event) string {
	switch d := e.Data.(type) {
	case eventbus.StatusChange:
		source := d.Source
		if d.Key != "" {
			source = fmt.Sprintf("%s %q", d.Source, d.Key)
		}
		var prev tgui.H
		if d.Previous != "" {
			prev = tgui.KV("previous", tgui.TruncRunes(d.Previous, profileRunes))
		}
		return tgui.Lines(
			tgui.B("Slack status updated"),
			tgui.KV("source", source),
			tgui.KV("profile", tgui.TruncRunes(d.Profile, profileRunes)),
			prev,
		).String()
	case eventbus.CycleFailure:
		if !s.cfg.NotifyErrors {
			return ""
		}
		return tgui.Lines(
			tgui.B("Status cycle failed"),
			tgui.KV("stage", d.Stage),
			tgui.KV("err", tgui.TruncRunes(d.Err, profileRunes)),
		).String()
	default:
		return ""
	}
}
