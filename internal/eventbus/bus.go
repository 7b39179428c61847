// Package eventbus fans cycle outcomes out to optional observers
// (notifier, history) without coupling them to the publisher.
package eventbus

import (
	"sync"
	"time"
)

const (
	// TypeStatusPublished: Data is StatusChange.
	TypeStatusPublished = "status.published"
	// TypeCycleFailed: Data is CycleFailure.
	TypeCycleFailed = "cycle.failed"
)

// Event is a small in-memory signal.
//
// Publish never blocks. A subscriber whose buffer is full misses the event.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// StatusChange describes a payload that Slack accepted.
type StatusChange struct {
	Source   string // wifi, location, hidden
	Key      string // network or place name
	Profile  string // canonical JSON; "null" for the absent payload
	Previous string // "" when nothing had been published yet
}

// CycleFailure describes a cycle that ended without a confirmed publish.
type CycleFailure struct {
	Stage string // probe, locate, geocode, publish
	Err   string
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Sends happen under the read lock so unsubscribe (write lock) cannot
	// close a channel mid-send.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)

	b.mu.Lock()
	b.seq++
	id := b.seq
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
}
