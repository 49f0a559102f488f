package events

import (
	"sync"

	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
)

// Stats summarizes what a Bus has seen
type Stats struct {
	Published map[Kind]uint64    `json:"published"`
	Dropped   uint64             `json:"dropped"`
	Current   vdesktop.DesktopID `json:"current"`
	Listeners int                `json:"listeners"`
}

// Bus fans events out to subscriber channels without blocking publishers
type Bus struct {
	mu        sync.RWMutex
	listeners []chan Event
	published map[Kind]uint64
	dropped   uint64
	current   vdesktop.DesktopID
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{
		listeners: make([]chan Event, 0),
		published: make(map[Kind]uint64),
	}
}

// Subscribe adds a listener with the given buffer size
func (b *Bus) Subscribe(buffer int) chan Event {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	b.mu.Lock()
	b.listeners = append(b.listeners, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes a listener and closes its channel
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, listener := range b.listeners {
		if listener == ch {
			b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
			close(ch)
			break
		}
	}
}

// Close unsubscribes every listener
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, listener := range b.listeners {
		close(listener)
	}
	b.listeners = nil
}

// Publish delivers e to every listener. Full listeners miss the event.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.published[e.Kind]++
	if e.Kind == KindDesktopSwitched {
		b.current = e.Desktop
	}

	for _, listener := range b.listeners {
		select {
		case listener <- e:
		default:
			// Skip if channel is full
			b.dropped++
		}
	}
}

// SetCurrent seeds the current desktop, e.g. from the backend at startup
func (b *Bus) SetCurrent(id vdesktop.DesktopID) {
	b.mu.Lock()
	b.current = id
	b.mu.Unlock()
}

// Current returns the desktop of the most recent switch
func (b *Bus) Current() vdesktop.DesktopID {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.current
}

// Stats returns a copy of the bus counters
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	published := make(map[Kind]uint64, len(Kinds))
	for _, k := range Kinds {
		published[k] = b.published[k]
	}
	return Stats{
		Published: published,
		Dropped:   b.dropped,
		Current:   b.current,
		Listeners: len(b.listeners),
	}
}
