package publisher

import (
	"context"
	"errors"
	"testing"

	"wifistatus/internal/eventbus"
	"wifistatus/internal/status"
	"wifistatus/pkg/logx"
)

type fakeRemote struct {
	calls []status.Payload
	err   error
}

func (f *fakeRemote) SetProfile(ctx context.Context, p status.Payload) error {
	f.calls = append(f.calls, p)
	return f.err
}

var home = status.Match{Source: status.SourceWiFi, Key: "HomeWiFi", Mapped: true, Payload: status.Payload{"status": "home"}}

func TestPublishOnceThenSkip(t *testing.T) {
	remote := &fakeRemote{}
	p := New(remote, logx.Nop(), nil)

	res, err := p.Publish(context.Background(), home)
	if err != nil || res != Published {
		t.Fatalf("first Publish = %v, %v", res, err)
	}

	again := status.Match{Source: status.SourceWiFi, Key: "HomeWiFi", Mapped: true, Payload: status.Payload{"status": "home"}}
	res, err = p.Publish(context.Background(), again)
	if err != nil || res != Skipped {
		t.Fatalf("second Publish = %v, %v", res, err)
	}
	if len(remote.calls) != 1 {
		t.Fatalf("remote calls = %d, want 1", len(remote.calls))
	}
	if !status.Equal(remote.calls[0], status.Payload{"status": "home"}) {
		t.Fatalf("sent %v", remote.calls[0])
	}
}

func TestPublishAbsentPayloadFirstTime(t *testing.T) {
	remote := &fakeRemote{}
	p := New(remote, logx.Nop(), nil)
	unmapped := status.Match{Source: status.SourceWiFi, Key: "CoffeeShop"}

	if res, err := p.Publish(context.Background(), unmapped); err != nil || res != Published {
		t.Fatalf("Publish = %v, %v", res, err)
	}
	if len(remote.calls) != 1 || remote.calls[0] != nil {
		t.Fatalf("calls = %#v", remote.calls)
	}
	if res, _ := p.Publish(context.Background(), unmapped); res != Skipped {
		t.Fatalf("repeat absent payload should skip, got %v", res)
	}
	last, ok := p.Last()
	if !ok || last != nil {
		t.Fatalf("Last = %v, %v", last, ok)
	}
}

func TestPublishFailureKeepsLast(t *testing.T) {
	remote := &fakeRemote{}
	p := New(remote, logx.Nop(), nil)
	if _, err := p.Publish(context.Background(), home); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("invalid_auth")
	remote.err = boom
	office := status.Match{Source: status.SourceWiFi, Key: "Office", Mapped: true, Payload: status.Payload{"status": "office"}}
	if _, err := p.Publish(context.Background(), office); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	last, _ := p.Last()
	if !status.Equal(last, home.Payload) {
		t.Fatalf("last changed after failure: %v", last)
	}

	// The failed payload is attempted again on the next cycle.
	remote.err = nil
	if res, err := p.Publish(context.Background(), office); err != nil || res != Published {
		t.Fatalf("retry Publish = %v, %v", res, err)
	}
	if len(remote.calls) != 3 {
		t.Fatalf("remote calls = %d, want 3", len(remote.calls))
	}
}

func TestPublishFailureBeforeFirstSuccess(t *testing.T) {
	remote := &fakeRemote{err: errors.New("down")}
	p := New(remote, logx.Nop(), nil)
	if _, err := p.Publish(context.Background(), home); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := p.Last(); ok {
		t.Fatal("nothing should count as published")
	}
}

func TestPublishEmitsEvent(t *testing.T) {
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(4)
	defer unsub()

	p := New(&fakeRemote{}, logx.Nop(), bus)
	if _, err := p.Publish(context.Background(), home); err != nil {
		t.Fatal(err)
	}
	e := <-ch
	sc, ok := e.Data.(eventbus.StatusChange)
	if e.Type != eventbus.TypeStatusPublished || !ok {
		t.Fatalf("event = %+v", e)
	}
	if sc.Key != "HomeWiFi" || sc.Profile != `{"status":"home"}` || sc.Previous != "" {
		t.Fatalf("change = %+v", sc)
	}
}
