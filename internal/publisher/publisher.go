// Package publisher deduplicates status payloads and pushes changes to Slack.
package publisher

import (
	"context"
	"sync"
	"time"

	"wifistatus/internal/eventbus"
	"wifistatus/internal/status"
	"wifistatus/pkg/logx"
)

// ProfileSetter is the remote status endpoint (slack.Client).
type ProfileSetter interface {
	SetProfile(ctx context.Context, p status.Payload) error
}

type Result int

const (
	// Skipped: the candidate equals the last published payload.
	Skipped Result = iota
	Published
)

func (r Result) String() string {
	if r == Published {
		return "published"
	}
	return "skipped"
}

// Publisher owns the last-published cell. The cell starts empty, which is
// different from "the absent payload was published".
type Publisher struct {
	remote ProfileSetter
	log    logx.Logger
	bus    eventbus.Bus

	mu      sync.Mutex
	last    status.Payload
	hasLast bool
	at      time.Time
}

func New(remote ProfileSetter, log logx.Logger, bus eventbus.Bus) *Publisher {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Publisher{remote: remote, log: log, bus: bus}
}

// Publish sends m.Payload unless it equals the last published payload.
// The cell is written only after the remote call succeeds, so a failed
// publish is retried by the next cycle that sees the same payload.
// Calls are serialized.
func (p *Publisher) Publish(ctx context.Context, m status.Match) (Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.hasLast && status.Equal(m.Payload, p.last) {
		p.log.Debug("status unchanged", logx.String("source", string(m.Source)), logx.String("key", m.Key))
		return Skipped, nil
	}

	if err := p.remote.SetProfile(ctx, m.Payload); err != nil {
		return Skipped, err
	}

	prev := ""
	if p.hasLast {
		prev = p.last.String()
	}
	p.last, p.hasLast, p.at = m.Payload, true, time.Now()

	p.log.Info("status published",
		logx.String("source", string(m.Source)),
		logx.String("key", m.Key),
		logx.Bool("mapped", m.Mapped),
		logx.String("profile", m.Payload.String()),
	)
	if p.bus != nil {
		p.bus.Publish(eventbus.Event{
			Type: eventbus.TypeStatusPublished,
			Time: p.at,
			Data: eventbus.StatusChange{
				Source:   string(m.Source),
				Key:      m.Key,
				Profile:  m.Payload.String(),
				Previous: prev,
			},
		})
	}
	return Published, nil
}

// Last returns the last confirmed payload and whether anything was published.
func (p *Publisher) Last() (status.Payload, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last, p.hasLast
}
