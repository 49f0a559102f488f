package events

import (
	"testing"
	"time"

	"github.com/bryanchriswhite/deskwatch/internal/desktop"
	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticDesktop vdesktop.DesktopID

func (d staticDesktop) ID() (vdesktop.DesktopID, error) {
	return vdesktop.DesktopID(d), nil
}

type staticView vdesktop.WindowHandle

func (v staticView) ThumbnailWindow() (vdesktop.WindowHandle, error) {
	return vdesktop.WindowHandle(v), nil
}

func TestAttachPublishesEveryKind(t *testing.T) {
	hub := desktop.NewHub()
	l, err := vdesktop.Register(hub)
	require.NoError(t, err)
	defer l.Close()

	bus := NewBus()
	ch := bus.Subscribe(8)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	attach(l, bus, func() time.Time { return ts })

	a, b := uuid.New(), uuid.New()
	hub.DesktopCreated(staticDesktop(a))
	hub.DesktopDestroyBegin(staticDesktop(a), staticDesktop(b))
	hub.DesktopDestroyFailed(staticDesktop(a), staticDesktop(b))
	hub.DesktopDestroyed(staticDesktop(a), staticDesktop(b))
	hub.CurrentChanged(staticDesktop(a), staticDesktop(b))
	hub.ViewChanged(staticView(42))

	require.Len(t, ch, 4)
	assert.Equal(t, Event{Kind: KindDesktopCreated, Desktop: a, Time: ts}, <-ch)
	assert.Equal(t, Event{Kind: KindDesktopDestroyed, Desktop: a, Time: ts}, <-ch)
	assert.Equal(t, Event{Kind: KindDesktopSwitched, Desktop: b, Previous: &a, Time: ts}, <-ch)
	assert.Equal(t, Event{Kind: KindWindowMoved, Window: 42, Time: ts}, <-ch)
	assert.Equal(t, b, bus.Current())
}

func TestAttachStopsAfterClose(t *testing.T) {
	hub := desktop.NewHub()
	l, err := vdesktop.Register(hub)
	require.NoError(t, err)

	bus := NewBus()
	Attach(l, bus)
	require.NoError(t, l.Close())

	hub.DesktopCreated(staticDesktop(uuid.New()))
	assert.Zero(t, bus.Stats().Published[KindDesktopCreated])
}
