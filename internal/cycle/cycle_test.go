package cycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"wifistatus/internal/eventbus"
	"wifistatus/internal/location"
	"wifistatus/internal/platform"
	"wifistatus/internal/probe"
	"wifistatus/internal/publisher"
	"wifistatus/internal/status"
	"wifistatus/internal/storage"
	"wifistatus/pkg/logx"
)

type fakeProbe struct {
	names []string
	err   error
	i     int
}

func (f *fakeProbe) Name(ctx context.Context) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	n := f.names[min(f.i, len(f.names)-1)]
	f.i++
	return n, nil
}

type fakeResolver struct {
	results []error
	place   string
	i       int
}

func (f *fakeResolver) Resolve(ctx context.Context) (string, error) {
	var err error
	if f.i < len(f.results) {
		err = f.results[f.i]
	}
	f.i++
	if err != nil {
		return "", err
	}
	return f.place, nil
}

type fakeRemote struct {
	mu    sync.Mutex
	calls []status.Payload
	err   error
}

func (f *fakeRemote) SetProfile(ctx context.Context, p status.Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, p)
	return f.err
}

type memStore struct {
	entries []storage.HistoryEntry
}

func (m *memStore) AppendHistory(ctx context.Context, e storage.HistoryEntry) error {
	m.entries = append(m.entries, e)
	return nil
}
func (m *memStore) Close() error { return nil }

func newMapper() *status.Mapper {
	return status.NewMapper(status.Tables{
		ByWiFi:     map[string]map[string]any{"HomeWiFi": {"status": "home"}},
		ByLocation: map[string]map[string]any{"Berlin": {"status": "berlin"}},
		Hidden:     map[string]any{"status_text": ""},
	})
}

type harness struct {
	runner    *Runner
	remote    *fakeRemote
	pub       *publisher.Publisher
	store     *memStore
	events    <-chan eventbus.Event
	watchdogs int
}

func newHarness(t *testing.T, d Deps) *harness {
	t.Helper()
	h := &harness{remote: &fakeRemote{}, store: &memStore{}}
	bus := eventbus.New()
	ch, unsub := bus.Subscribe(16)
	t.Cleanup(unsub)
	h.events = ch
	h.pub = publisher.New(h.remote, logx.Nop(), nil)

	d.Mapper = newMapper()
	d.Publisher = h.pub
	d.Store = h.store
	d.Bus = bus
	d.Log = logx.Nop()
	d.Watchdog = func() { h.watchdogs++ }
	r, err := New(d)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.runner = r
	return h
}

func (h *harness) failures() []eventbus.CycleFailure {
	var out []eventbus.CycleFailure
	for {
		select {
		case e := <-h.events:
			if f, ok := e.Data.(eventbus.CycleFailure); ok {
				out = append(out, f)
			}
		default:
			return out
		}
	}
}

func TestSameNetworkPublishesOnce(t *testing.T) {
	h := newHarness(t, Deps{Mode: ModeWiFi, Probe: &fakeProbe{names: []string{"HomeWiFi"}}})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := h.runner.Run(ctx); err != nil {
			t.Fatalf("Run #%d: %v", i, err)
		}
	}
	if len(h.remote.calls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(h.remote.calls))
	}
	if !status.Equal(h.remote.calls[0], status.Payload{"status": "home"}) {
		t.Fatalf("published %v", h.remote.calls[0])
	}
	if len(h.store.entries) != 1 || h.store.entries[0].Outcome != storage.OutcomePublished {
		t.Fatalf("history = %+v", h.store.entries)
	}
	if h.watchdogs != 2 {
		t.Fatalf("watchdog pings = %d", h.watchdogs)
	}
}

func TestEveryNewNetworkPublishedExactlyOnce(t *testing.T) {
	names := []string{"HomeWiFi", "HomeWiFi", "CoffeeShop", "CoffeeShop", "HomeWiFi"}
	h := newHarness(t, Deps{Mode: ModeWiFi, Probe: &fakeProbe{names: names}})
	for range names {
		if err := h.runner.Run(context.Background()); err != nil {
			t.Fatal(err)
		}
	}
	// home, absent, home
	if len(h.remote.calls) != 3 {
		t.Fatalf("publish calls = %d, want 3", len(h.remote.calls))
	}
	if h.remote.calls[1] != nil {
		t.Fatalf("unmapped network should publish the absent payload, got %v", h.remote.calls[1])
	}
}

func TestUnmappedNetworkPublishesAbsentPayload(t *testing.T) {
	h := newHarness(t, Deps{Mode: ModeWiFi, Probe: &fakeProbe{names: []string{"CoffeeShop"}}})
	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.remote.calls) != 1 || h.remote.calls[0] != nil {
		t.Fatalf("calls = %#v", h.remote.calls)
	}
	if e := h.store.entries[0]; e.Mapped || e.Profile != "null" || e.Key != "CoffeeShop" {
		t.Fatalf("history = %+v", e)
	}
}

func TestProbeFailureAbortsCycle(t *testing.T) {
	cause := errors.New("exit status 255")
	p := &fakeProbe{err: fmt.Errorf("%w: iwgetid -r: %w", probe.ErrProbe, cause)}
	h := newHarness(t, Deps{Mode: ModeWiFi, Probe: p})

	err := h.runner.Run(context.Background())
	if !errors.Is(err, probe.ErrProbe) {
		t.Fatalf("Run = %v", err)
	}
	if len(h.remote.calls) != 0 {
		t.Fatal("probe failure must not publish")
	}
	if f := h.failures(); len(f) != 1 || f[0].Stage != StageProbe {
		t.Fatalf("failures = %+v", f)
	}
	if h.watchdogs != 1 {
		t.Fatalf("watchdog pings = %d", h.watchdogs)
	}

	// Next tick proceeds normally.
	p.err, p.names = nil, []string{"HomeWiFi"}
	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatalf("Run after failure: %v", err)
	}
	if len(h.remote.calls) != 1 {
		t.Fatalf("publish calls = %d", len(h.remote.calls))
	}
}

func TestGeocodeFailureSkipsCycle(t *testing.T) {
	geoErr := fmt.Errorf("%w at 0,0: %w", location.ErrGeocode, errors.New("OVER_QUERY_LIMIT"))
	res := &fakeResolver{place: "Berlin", results: []error{nil, geoErr, nil}}
	h := newHarness(t, Deps{Mode: ModeLocation, Resolver: res})
	ctx := context.Background()

	if err := h.runner.Run(ctx); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	if err := h.runner.Run(ctx); !errors.Is(err, location.ErrGeocode) {
		t.Fatalf("second Run = %v", err)
	}
	if len(h.remote.calls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(h.remote.calls))
	}
	last, ok := h.pub.Last()
	if !ok || !status.Equal(last, status.Payload{"status": "berlin"}) {
		t.Fatalf("last = %v", last)
	}
	if f := h.failures(); len(f) != 1 || f[0].Stage != StageGeocode {
		t.Fatalf("failures = %+v", f)
	}

	// Same place again after the failure: unchanged, nothing sent.
	if err := h.runner.Run(ctx); err != nil {
		t.Fatalf("third Run: %v", err)
	}
	if len(h.remote.calls) != 1 {
		t.Fatalf("publish calls = %d, want 1", len(h.remote.calls))
	}
}

func TestPublishFailureRecordedAndRetried(t *testing.T) {
	h := newHarness(t, Deps{Mode: ModeWiFi, Probe: &fakeProbe{names: []string{"HomeWiFi"}}})
	h.remote.err = errors.New("invalid_auth")

	if err := h.runner.Run(context.Background()); err == nil {
		t.Fatal("expected publish error")
	}
	if _, ok := h.pub.Last(); ok {
		t.Fatal("failed publish must not set last status")
	}
	if e := h.store.entries[0]; e.Outcome != storage.OutcomeFailed || e.Error != "invalid_auth" {
		t.Fatalf("history = %+v", e)
	}
	if f := h.failures(); len(f) != 1 || f[0].Stage != StagePublish {
		t.Fatalf("failures = %+v", f)
	}

	h.remote.err = nil
	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.remote.calls) != 2 {
		t.Fatalf("publish calls = %d, want 2", len(h.remote.calls))
	}
}

func TestHiddenMode(t *testing.T) {
	h := newHarness(t, Deps{Mode: ModeHidden})
	if err := h.runner.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(h.remote.calls) != 1 || !status.Equal(h.remote.calls[0], status.Payload{"status_text": ""}) {
		t.Fatalf("calls = %v", h.remote.calls)
	}
}

func TestModeFor(t *testing.T) {
	tests := []struct {
		kind        platform.Kind
		useLocation bool
		want        Mode
	}{
		{platform.Linux, true, ModeWiFi},
		{platform.Windows, false, ModeWiFi},
		{platform.MacOS, true, ModeLocation},
		{platform.MacOS, false, ModeWiFi},
		{platform.Kind(0), true, ModeHidden},
	}
	for _, tt := range tests {
		if got := ModeFor(tt.kind, tt.useLocation); got != tt.want {
			t.Errorf("ModeFor(%v, %v) = %v, want %v", tt.kind, tt.useLocation, got, tt.want)
		}
	}
}

func TestNewValidatesDeps(t *testing.T) {
	pub := publisher.New(&fakeRemote{}, logx.Nop(), nil)
	if _, err := New(Deps{Mode: ModeWiFi, Mapper: newMapper(), Publisher: pub}); err == nil {
		t.Fatal("wifi mode without probe should fail")
	}
	if _, err := New(Deps{Mode: ModeLocation, Mapper: newMapper(), Publisher: pub}); err == nil {
		t.Fatal("location mode without resolver should fail")
	}
}
