package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bryanchriswhite/deskwatch/internal/events"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth(t *testing.T) {
	srv := httptest.NewServer(NewServer(events.NewBus(), "x11", 4).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestState(t *testing.T) {
	bus := events.NewBus()
	id := uuid.New()
	bus.Publish(events.Event{Kind: events.KindDesktopSwitched, Desktop: id})

	srv := httptest.NewServer(NewServer(bus, "kwin", 4).Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/api/state")
	require.NoError(t, err)
	defer resp.Body.Close()

	var state StateResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&state))
	assert.Equal(t, "kwin", state.Backend)
	assert.Equal(t, id, state.Stats.Current)
	assert.Equal(t, uint64(1), state.Stats.Published[events.KindDesktopSwitched])
}

func TestOptionsPreflight(t *testing.T) {
	srv := httptest.NewServer(NewServer(events.NewBus(), "x11", 4).Handler())
	defer srv.Close()

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/api/state", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestEventStream(t *testing.T) {
	bus := events.NewBus()
	srv := httptest.NewServer(NewServer(bus, "x11", 4).Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/events/stream"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return bus.Stats().Listeners == 1 }, time.Second, 5*time.Millisecond)

	id := uuid.New()
	bus.Publish(events.Event{Kind: events.KindDesktopCreated, Desktop: id})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got events.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, events.KindDesktopCreated, got.Kind)
	assert.Equal(t, id, got.Desktop)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return bus.Stats().Listeners == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestShutdownWithoutStart(t *testing.T) {
	assert.NoError(t, NewServer(events.NewBus(), "x11", 4).Shutdown(context.Background()))
}
