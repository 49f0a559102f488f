package desktop

import (
	"fmt"
	"sync"

	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
	"github.com/godbus/dbus/v5"
	"github.com/google/uuid"
)

// KWin D-Bus constants
const (
	kwinService                    = "org.kde.KWin"
	virtualDesktopManagerPath      = "/VirtualDesktopManager"
	virtualDesktopManagerInterface = "org.kde.KWin.VirtualDesktopManager"
)

// KWinBackend implements Backend using KWin's VirtualDesktopManager D-Bus
// interface. KWin does not report per-window desktop moves, so views are
// never notified by this backend.
type KWinBackend struct {
	*Hub

	conn     *dbus.Conn
	mu       sync.Mutex
	current  string
	stopChan chan struct{}
	signals  chan *dbus.Signal
	watching bool
}

// NewKWinBackend connects to the session bus and checks that KWin is present
func NewKWinBackend() (*KWinBackend, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session bus: %w", err)
	}

	var names []string
	if err := conn.BusObject().Call("org.freedesktop.DBus.ListNames", 0).Store(&names); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to list D-Bus names: %w", err)
	}

	kwinFound := false
	for _, name := range names {
		if name == kwinService {
			kwinFound = true
			break
		}
	}
	if !kwinFound {
		conn.Close()
		return nil, fmt.Errorf("KWin service not found on D-Bus")
	}

	logger.WithComponent("kwin-backend").Info().Msg("Connected to KWin D-Bus service")

	return &KWinBackend{
		Hub:  NewHub(),
		conn: conn,
	}, nil
}

// Name returns the backend name
func (b *KWinBackend) Name() string {
	return "kwin"
}

func (b *KWinBackend) matchOptions() []dbus.MatchOption {
	return []dbus.MatchOption{
		dbus.WithMatchObjectPath(virtualDesktopManagerPath),
		dbus.WithMatchInterface(virtualDesktopManagerInterface),
	}
}

// Start subscribes to VirtualDesktopManager signals
func (b *KWinBackend) Start() error {
	log := logger.WithComponent("kwin-backend")

	b.mu.Lock()
	if b.watching {
		b.mu.Unlock()
		return fmt.Errorf("already watching")
	}
	current, err := b.readCurrent()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to read current desktop")
	}
	b.current = current
	b.watching = true
	b.stopChan = make(chan struct{})
	b.signals = make(chan *dbus.Signal, 16)
	b.mu.Unlock()

	if err := b.conn.AddMatchSignal(b.matchOptions()...); err != nil {
		b.StopWatching()
		return fmt.Errorf("failed to add match for VirtualDesktopManager signals: %w", err)
	}
	b.conn.Signal(b.signals)

	go b.watchSignals(b.signals, b.stopChan)
	log.Debug().Str("current", current).Msg("Subscribed to VirtualDesktopManager signals")
	return nil
}

// watchSignals translates D-Bus signals until stop is closed
func (b *KWinBackend) watchSignals(signals chan *dbus.Signal, stop chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case sig, ok := <-signals:
			if !ok {
				return
			}
			b.handleSignal(sig)
		}
	}
}

// handleSignal maps one VirtualDesktopManager signal to hub notifications
func (b *KWinBackend) handleSignal(sig *dbus.Signal) {
	if sig == nil || sig.Path != virtualDesktopManagerPath {
		return
	}
	log := logger.WithComponent("kwin-backend")

	id, ok := firstString(sig.Body)
	if !ok {
		log.Debug().Str("signal", sig.Name).Msg("Ignoring signal without desktop id")
		return
	}

	switch sig.Name {
	case virtualDesktopManagerInterface + ".desktopCreated":
		log.Debug().Str("desktop", id).Msg("Desktop created")
		b.DesktopCreated(guidDesktop(id))

	case virtualDesktopManagerInterface + ".desktopRemoved":
		b.mu.Lock()
		fallback := b.current
		b.mu.Unlock()
		log.Debug().Str("desktop", id).Str("fallback", fallback).Msg("Desktop removed")
		b.DesktopDestroyBegin(guidDesktop(id), guidDesktop(fallback))
		b.DesktopDestroyed(guidDesktop(id), guidDesktop(fallback))

	case virtualDesktopManagerInterface + ".currentChanged":
		b.mu.Lock()
		old := b.current
		b.current = id
		b.mu.Unlock()
		if old == id {
			return
		}
		log.Debug().Str("old", old).Str("new", id).Msg("Desktop switched")
		b.CurrentChanged(guidDesktop(old), guidDesktop(id))
	}
}

func firstString(body []interface{}) (string, bool) {
	if len(body) == 0 {
		return "", false
	}
	s, ok := body[0].(string)
	return s, ok
}

// readCurrent reads the current desktop id property
func (b *KWinBackend) readCurrent() (string, error) {
	obj := b.conn.Object(kwinService, virtualDesktopManagerPath)
	prop, err := obj.GetProperty(virtualDesktopManagerInterface + ".current")
	if err != nil {
		return "", fmt.Errorf("failed to get current desktop: %w", err)
	}
	current, ok := prop.Value().(string)
	if !ok {
		return "", fmt.Errorf("unexpected current desktop type %T", prop.Value())
	}
	return current, nil
}

// CurrentDesktop returns the active desktop ID as reported by KWin
func (b *KWinBackend) CurrentDesktop() (vdesktop.DesktopID, error) {
	current, err := b.readCurrent()
	if err != nil {
		return vdesktop.DesktopID{}, err
	}
	return uuid.Parse(current)
}

// StopWatching stops the signal loop
func (b *KWinBackend) StopWatching() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.watching {
		return
	}
	close(b.stopChan)
	if b.conn != nil {
		b.conn.RemoveSignal(b.signals)
		if err := b.conn.RemoveMatchSignal(b.matchOptions()...); err != nil {
			logger.WithComponent("kwin-backend").Debug().Err(err).Msg("Failed to remove signal match")
		}
	}
	b.watching = false
}

// Close stops watching and closes the D-Bus connection
func (b *KWinBackend) Close() error {
	b.StopWatching()
	return b.conn.Close()
}
