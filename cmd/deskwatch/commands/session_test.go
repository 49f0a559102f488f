package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/deskwatch/internal/config"
	"github.com/bryanchriswhite/deskwatch/internal/desktop"
	"github.com/bryanchriswhite/deskwatch/internal/events"
	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBackend struct {
	*desktop.Hub
	startErr   error
	current    vdesktop.DesktopID
	started    bool
	closed     bool
	sinksAtEnd int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{Hub: desktop.NewHub(), current: uuid.New()}
}

func (b *fakeBackend) Start() error {
	b.started = b.startErr == nil
	return b.startErr
}

func (b *fakeBackend) Close() error {
	b.closed = true
	b.sinksAtEnd = b.Len()
	return nil
}

func (b *fakeBackend) CurrentDesktop() (vdesktop.DesktopID, error) {
	return b.current, nil
}

func (b *fakeBackend) Name() string {
	return "fake"
}

type idDesktop vdesktop.DesktopID

func (d idDesktop) ID() (vdesktop.DesktopID, error) {
	return vdesktop.DesktopID(d), nil
}

func TestSessionLifecycle(t *testing.T) {
	backend := newFakeBackend()
	s, err := newSession(backend)
	require.NoError(t, err)
	assert.True(t, backend.started)
	assert.Equal(t, 1, backend.Len())
	assert.Equal(t, backend.current, s.bus.Current())

	ch := s.bus.Subscribe(4)
	next := uuid.New()
	backend.CurrentChanged(idDesktop(backend.current), idDesktop(next))

	select {
	case e := <-ch:
		assert.Equal(t, events.KindDesktopSwitched, e.Kind)
		assert.Equal(t, next, e.Desktop)
	case <-time.After(time.Second):
		t.Fatal("no event")
	}

	s.Close()
	assert.True(t, backend.closed)
	assert.Zero(t, backend.sinksAtEnd, "listener unregistered before backend closed")
}

func TestSessionStartFailureUnregisters(t *testing.T) {
	backend := newFakeBackend()
	backend.startErr = errors.New("no window manager")

	_, err := newSession(backend)
	assert.ErrorContains(t, err, "failed to start fake backend")
	assert.Zero(t, backend.Len())
}

func TestStreamEventsText(t *testing.T) {
	ch := make(chan events.Event, 2)
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	ch <- events.Event{Kind: events.KindWindowMoved, Window: 0x10, Time: ts}
	close(ch)

	var buf bytes.Buffer
	require.NoError(t, streamEvents(context.Background(), ch, &buf, config.FormatText))
	assert.Equal(t, "2024-05-01T12:00:00Z window_moved      window 0x10\n", buf.String())
}

func TestStreamEventsJSON(t *testing.T) {
	ch := make(chan events.Event, 2)
	id := uuid.New()
	ch <- events.Event{Kind: events.KindDesktopCreated, Desktop: id}
	ch <- events.Event{Kind: events.KindDesktopDestroyed, Desktop: id}
	close(ch)

	var buf bytes.Buffer
	require.NoError(t, streamEvents(context.Background(), ch, &buf, config.FormatJSON))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	var got events.Event
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &got))
	assert.Equal(t, events.KindDesktopDestroyed, got.Kind)
	assert.Equal(t, id, got.Desktop)
}

func TestStreamEventsStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var buf bytes.Buffer
	assert.NoError(t, streamEvents(ctx, make(chan events.Event), &buf, config.FormatText))
	assert.Empty(t, buf.String())
}

func TestWriteConfig(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeConfig(&buf, config.Defaults(), "yaml"))
	assert.Contains(t, buf.String(), "backend: auto")

	buf.Reset()
	require.NoError(t, writeConfig(&buf, config.Defaults(), "json"))
	assert.Contains(t, buf.String(), `"server_port": 8080`)

	assert.Error(t, writeConfig(&buf, config.Defaults(), "toml"))
}
