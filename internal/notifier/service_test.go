package notifier

import (
	"context"
	"html"
	"strings"
	"sync"
	"testing"
	"time"

	"wifistatus/internal/eventbus"
	kit "wifistatus/internal/transport"
	"wifistatus/pkg/logx"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
	to   []kit.ChatTarget
	opts []kit.SendOptions
	got  chan struct{}
}

func newRecordingSender() *recordingSender {
	return &recordingSender{got: make(chan struct{}, 16)}
}

func (r *recordingSender) SendText(ctx context.Context, to kit.ChatTarget, text string, opt *kit.SendOptions) error {
	r.mu.Lock()
	r.sent = append(r.sent, text)
	r.to = append(r.to, to)
	r.opts = append(r.opts, *opt)
	r.mu.Unlock()
	r.got <- struct{}{}
	return nil
}

func (r *recordingSender) messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.sent...)
}

func waitSent(t *testing.T, r *recordingSender) {
	t.Helper()
	select {
	case <-r.got:
	case <-time.After(2 * time.Second):
		t.Fatal("no message sent")
	}
}

func TestNotifiesStatusChange(t *testing.T) {
	bus := eventbus.New()
	rec := newRecordingSender()
	target := kit.ChatTarget{ChatID: -100123, ThreadID: 7}
	s := New(Config{Enabled: true, RatePerSec: 100}, rec, target, bus, logx.Nop())
	s.Start(context.Background())
	defer s.Stop(context.Background())

	bus.Publish(eventbus.Event{Type: eventbus.TypeStatusPublished, Data: eventbus.StatusChange{
		Source: "wifi", Key: "HomeWiFi", Profile: `{"status":"home"}`, Previous: `{"status":"office"}`,
	}})
	waitSent(t, rec)

	msgs := rec.messages()
	if len(msgs) != 1 {
		t.Fatalf("messages = %v", msgs)
	}
	if strings.Contains(msgs[0], `"`) {
		t.Fatalf("message not HTML-escaped: %q", msgs[0])
	}
	text := html.UnescapeString(msgs[0])
	for _, want := range []string{`<code>wifi "HomeWiFi"</code>`, `profile: <code>{"status":"home"}</code>`, `previous: <code>{"status":"office"}</code>`} {
		if !strings.Contains(text, want) {
			t.Fatalf("message %q missing %q", text, want)
		}
	}
	if rec.to[0] != target || rec.opts[0].ParseMode != "HTML" {
		t.Fatalf("target = %+v", rec.to[0])
	}
}

func TestCycleFailuresOnlyWhenEnabled(t *testing.T) {
	failure := eventbus.Event{Type: eventbus.TypeCycleFailed, Data: eventbus.CycleFailure{Stage: "publish", Err: "invalid_auth"}}

	off := New(Config{Enabled: true}, nil, kit.ChatTarget{}, nil, logx.Nop())
	if got := off.format(failure); got != "" {
		t.Fatalf("format with errors off = %q", got)
	}

	bus := eventbus.New()
	rec := newRecordingSender()
	on := New(Config{Enabled: true, NotifyErrors: true, RatePerSec: 100}, rec, kit.ChatTarget{ChatID: 1}, bus, logx.Nop())
	on.Start(context.Background())
	defer on.Stop(context.Background())

	bus.Publish(failure)
	waitSent(t, rec)
	if msg := rec.messages()[0]; !strings.Contains(msg, "publish") || !strings.Contains(msg, "invalid_auth") {
		t.Fatalf("message = %q", msg)
	}
}

func TestDisabledDoesNotSubscribe(t *testing.T) {
	bus := eventbus.New()
	rec := newRecordingSender()
	s := New(Config{Enabled: false}, rec, kit.ChatTarget{ChatID: 1}, bus, logx.Nop())
	s.Start(context.Background())
	bus.Publish(eventbus.Event{Type: eventbus.TypeStatusPublished, Data: eventbus.StatusChange{Source: "hidden"}})

	select {
	case <-rec.got:
		t.Fatal("disabled notifier sent a message")
	case <-time.After(50 * time.Millisecond):
	}
	if err := s.Stop(context.Background()); err != nil {
		t.Fatalf("Stop = %v", err)
	}
}

func TestEnqueueFull(t *testing.T) {
	s := New(Config{Enabled: true, QueueSize: 1}, nil, kit.ChatTarget{}, nil, logx.Nop())
	q := make(chan string, 1)
	if err := s.enqueue(q, "a"); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	if err := s.enqueue(q, "b"); err != ErrQueueFull {
		t.Fatalf("second enqueue = %v", err)
	}
	if err := s.enqueue(nil, "c"); err != ErrStopped {
		t.Fatalf("nil queue = %v", err)
	}
}
