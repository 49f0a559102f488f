package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBusPublishSubscribe(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(4)
	b := bus.Subscribe(4)

	id := uuid.New()
	bus.Publish(Event{Kind: KindDesktopSwitched, Desktop: id})

	for _, ch := range []chan Event{a, b} {
		select {
		case e := <-ch:
			assert.Equal(t, id, e.Desktop)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
	assert.Equal(t, id, bus.Current())
}

func TestBusDropsForFullListener(t *testing.T) {
	bus := NewBus()
	slow := bus.Subscribe(1)

	bus.Publish(Event{Kind: KindDesktopCreated})
	bus.Publish(Event{Kind: KindDesktopCreated})
	bus.Publish(Event{Kind: KindWindowMoved})

	stats := bus.Stats()
	assert.Equal(t, uint64(2), stats.Dropped)
	assert.Equal(t, uint64(2), stats.Published[KindDesktopCreated])
	assert.Equal(t, uint64(1), stats.Published[KindWindowMoved])
	assert.Equal(t, uint64(0), stats.Published[KindDesktopDestroyed])
	assert.Equal(t, 1, stats.Listeners)
	assert.Len(t, slow, 1)
}

func TestBusUnsubscribeClosesChannel(t *testing.T) {
	bus := NewBus()
	ch := bus.Subscribe(0)
	bus.Unsubscribe(ch)
	bus.Unsubscribe(ch)

	_, open := <-ch
	assert.False(t, open)
	assert.Zero(t, bus.Stats().Listeners)

	bus.Publish(Event{Kind: KindDesktopCreated})
}

func TestBusClose(t *testing.T) {
	bus := NewBus()
	a := bus.Subscribe(1)
	bus.Close()

	_, open := <-a
	require.False(t, open)
	bus.Unsubscribe(a)
	bus.Publish(Event{Kind: KindDesktopCreated})
}

func TestBusSetCurrent(t *testing.T) {
	bus := NewBus()
	id := uuid.New()
	bus.SetCurrent(id)
	assert.Equal(t, id, bus.Current())
	assert.Equal(t, id, bus.Stats().Current)
}

func TestEventString(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	prev := uuid.MustParse("8fbb1e94-0a50-4b0c-8d5c-9b2a6a3c2f11")
	cur := uuid.MustParse("1d4e5c39-8d49-4f5e-a3d6-0b1c2d3e4f50")

	assert.Equal(t,
		"2024-05-01T12:00:00Z desktop_switched  8fbb1e94-0a50-4b0c-8d5c-9b2a6a3c2f11 -> 1d4e5c39-8d49-4f5e-a3d6-0b1c2d3e4f50",
		Event{Kind: KindDesktopSwitched, Previous: &prev, Desktop: cur, Time: ts}.String())
	assert.Equal(t,
		"2024-05-01T12:00:00Z window_moved      window 0x4a00007",
		Event{Kind: KindWindowMoved, Window: 0x4a00007, Time: ts}.String())
	assert.Equal(t,
		"2024-05-01T12:00:00Z desktop_created   1d4e5c39-8d49-4f5e-a3d6-0b1c2d3e4f50",
		Event{Kind: KindDesktopCreated, Desktop: cur, Time: ts}.String())
}
