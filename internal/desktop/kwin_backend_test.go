package desktop

import (
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	desktopA = "8fbb1e94-0a50-4b0c-8d5c-9b2a6a3c2f11"
	desktopB = "1d4e5c39-8d49-4f5e-a3d6-0b1c2d3e4f50"
	desktopC = "6a7b8c9d-0e1f-4a2b-8c3d-4e5f6a7b8c9d"
)

func newTestKWin(t *testing.T, current string) (*KWinBackend, *recorder) {
	t.Helper()
	b := &KWinBackend{Hub: NewHub(), current: current}
	r := &recorder{}
	_, err := b.Register(r)
	require.NoError(t, err)
	return b, r
}

func kwinSignal(member string, body ...interface{}) *dbus.Signal {
	return &dbus.Signal{
		Path: virtualDesktopManagerPath,
		Name: virtualDesktopManagerInterface + "." + member,
		Body: body,
	}
}

func TestKWinCurrentChanged(t *testing.T) {
	b, r := newTestKWin(t, desktopA)

	b.handleSignal(kwinSignal("currentChanged", desktopB))
	b.handleSignal(kwinSignal("currentChanged", desktopB))

	assert.Equal(t, []string{"current " + desktopA + " " + desktopB}, r.got())
	assert.Equal(t, desktopB, b.current)
}

func TestKWinCreatedAndRemoved(t *testing.T) {
	b, r := newTestKWin(t, desktopA)

	b.handleSignal(kwinSignal("desktopCreated", desktopC, []interface{}{uint32(2), desktopC, "Desktop 3"}))
	b.handleSignal(kwinSignal("desktopRemoved", desktopC))

	assert.Equal(t, []string{
		"created " + desktopC,
		"destroy_begin " + desktopC + " " + desktopA,
		"destroyed " + desktopC + " " + desktopA,
	}, r.got())
}

func TestKWinIgnoresUnrelatedSignals(t *testing.T) {
	b, r := newTestKWin(t, desktopA)

	b.handleSignal(nil)
	b.handleSignal(kwinSignal("countChanged", uint32(4)))
	b.handleSignal(kwinSignal("currentChanged"))
	b.handleSignal(&dbus.Signal{
		Path: "/KWin",
		Name: virtualDesktopManagerInterface + ".currentChanged",
		Body: []interface{}{desktopB},
	})

	assert.Empty(t, r.got())
	assert.Equal(t, desktopA, b.current)
}

func TestKWinWatchLoopStops(t *testing.T) {
	b, r := newTestKWin(t, desktopA)
	signals := make(chan *dbus.Signal, 1)
	stop := make(chan struct{})
	done := make(chan struct{})

	go func() {
		b.watchSignals(signals, stop)
		close(done)
	}()

	signals <- kwinSignal("currentChanged", desktopB)
	assert.Eventually(t, func() bool { return len(r.got()) == 1 }, time.Second, 5*time.Millisecond)

	close(stop)
	<-done
}
