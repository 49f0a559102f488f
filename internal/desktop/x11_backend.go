package desktop

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
)

// X11Backend implements Backend for EWMH-compliant X11 window managers.
// Desktop changes are read from root window properties; window moves from
// each client's _NET_WM_DESKTOP.
type X11Backend struct {
	*Hub

	conn *xgb.Conn
	root xproto.Window

	currentDesktopAtom xproto.Atom
	desktopCountAtom   xproto.Atom
	clientListAtom     xproto.Atom
	wmDesktopAtom      xproto.Atom

	mu       sync.Mutex
	tracker  ewmhTracker
	clients  map[xproto.Window]int
	watching bool
	done     chan struct{}
}

// NewX11Backend creates a new X11 backend
func NewX11Backend() (*X11Backend, error) {
	conn, err := xgb.NewConn()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to X server: %w", err)
	}

	setup := xproto.Setup(conn)
	b := &X11Backend{
		Hub:     NewHub(),
		conn:    conn,
		root:    setup.DefaultScreen(conn).Root,
		clients: make(map[xproto.Window]int),
	}

	atoms := map[string]*xproto.Atom{
		"_NET_CURRENT_DESKTOP":    &b.currentDesktopAtom,
		"_NET_NUMBER_OF_DESKTOPS": &b.desktopCountAtom,
		"_NET_CLIENT_LIST":        &b.clientListAtom,
		"_NET_WM_DESKTOP":         &b.wmDesktopAtom,
	}
	for name, dst := range atoms {
		atom, err := b.getAtom(name)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to intern %s: %w", name, err)
		}
		*dst = atom
	}

	return b, nil
}

// Name returns the backend name
func (b *X11Backend) Name() string {
	return "x11"
}

// Start subscribes to property changes and starts the event loop
func (b *X11Backend) Start() error {
	log := logger.WithComponent("x11-backend")

	b.mu.Lock()
	watching := b.watching
	b.mu.Unlock()
	if watching {
		return fmt.Errorf("already watching")
	}

	if err := xproto.ChangeWindowAttributesChecked(
		b.conn,
		b.root,
		xproto.CwEventMask,
		[]uint32{xproto.EventMaskPropertyChange},
	).Check(); err != nil {
		return fmt.Errorf("failed to set event mask: %w", err)
	}

	snap, err := b.readSnapshot()
	if err != nil {
		return fmt.Errorf("window manager is not EWMH compliant: %w", err)
	}
	b.mu.Lock()
	b.tracker.update(snap)
	b.watching = true
	b.done = make(chan struct{})
	b.mu.Unlock()
	b.refreshClients()

	log.Debug().
		Int("current", snap.Current).
		Int("count", snap.Count).
		Msg("Started watching for desktop change events")

	go b.watchEvents()
	return nil
}

// watchEvents handles X11 events until the connection is closed
func (b *X11Backend) watchEvents() {
	log := logger.WithComponent("x11-backend")
	defer close(b.done)

	for {
		ev, xerr := b.conn.WaitForEvent()
		if ev == nil && xerr == nil {
			log.Debug().Msg("X11 connection closed")
			return
		}
		if xerr != nil {
			log.Debug().Str("error", xerr.Error()).Msg("X11 error event")
			continue
		}
		if notify, ok := ev.(xproto.PropertyNotifyEvent); ok {
			b.handleProperty(notify)
		}
	}
}

func (b *X11Backend) handleProperty(ev xproto.PropertyNotifyEvent) {
	log := logger.WithComponent("x11-backend")

	if ev.Window == b.root {
		switch ev.Atom {
		case b.currentDesktopAtom, b.desktopCountAtom:
			snap, err := b.readSnapshot()
			if err != nil {
				log.Debug().Err(err).Msg("Failed to read desktop state")
				return
			}
			b.mu.Lock()
			transitions := b.tracker.update(snap)
			b.mu.Unlock()
			for _, tr := range transitions {
				log.Debug().Str("kind", tr.Kind.String()).Int("desktop", tr.Desktop).Int("other", tr.Other).Msg("Desktop transition")
			}
			dispatch(b.Hub, transitions)
		case b.clientListAtom:
			b.refreshClients()
		}
		return
	}

	if ev.Atom != b.wmDesktopAtom {
		return
	}
	desktop := b.windowDesktop(ev.Window)
	b.mu.Lock()
	prev, known := b.clients[ev.Window]
	b.clients[ev.Window] = desktop
	b.mu.Unlock()
	if known && prev == desktop {
		return
	}
	log.Debug().Uint32("window", uint32(ev.Window)).Int("desktop", desktop).Msg("Window moved")
	b.ViewChanged(windowView(ev.Window))
}

// refreshClients starts watching new client windows and forgets closed ones
func (b *X11Backend) refreshClients() {
	windows, err := b.clientList()
	if err != nil {
		logger.WithComponent("x11-backend").Debug().Err(err).Msg("Failed to read client list")
		return
	}

	seen := make(map[xproto.Window]bool, len(windows))
	for _, win := range windows {
		seen[win] = true
		b.mu.Lock()
		_, known := b.clients[win]
		b.mu.Unlock()
		if known {
			continue
		}
		xproto.ChangeWindowAttributes(b.conn, win, xproto.CwEventMask, []uint32{xproto.EventMaskPropertyChange})
		desktop := b.windowDesktop(win)
		b.mu.Lock()
		b.clients[win] = desktop
		b.mu.Unlock()
	}

	b.mu.Lock()
	for win := range b.clients {
		if !seen[win] {
			delete(b.clients, win)
		}
	}
	b.mu.Unlock()
}

func (b *X11Backend) readSnapshot() (ewmhSnapshot, error) {
	current, err := b.getCardinal(b.root, b.currentDesktopAtom)
	if err != nil {
		return ewmhSnapshot{}, fmt.Errorf("_NET_CURRENT_DESKTOP: %w", err)
	}
	count, err := b.getCardinal(b.root, b.desktopCountAtom)
	if err != nil {
		return ewmhSnapshot{}, fmt.Errorf("_NET_NUMBER_OF_DESKTOPS: %w", err)
	}
	return ewmhSnapshot{Current: int(current), Count: int(count)}, nil
}

// windowDesktop returns the desktop of a window (-1 means sticky/unknown)
func (b *X11Backend) windowDesktop(win xproto.Window) int {
	desktop, err := b.getCardinal(win, b.wmDesktopAtom)
	if err != nil || desktop == 0xFFFFFFFF {
		return -1
	}
	return int(desktop)
}

func (b *X11Backend) clientList() ([]xproto.Window, error) {
	reply, err := xproto.GetProperty(
		b.conn,
		false,
		b.root,
		b.clientListAtom,
		xproto.GetPropertyTypeAny,
		0,
		(1<<32)-1,
	).Reply()
	if err != nil {
		return nil, err
	}

	windows := make([]xproto.Window, 0, len(reply.Value)/4)
	for i := 0; i+4 <= len(reply.Value); i += 4 {
		windows = append(windows, xproto.Window(xgb.Get32(reply.Value[i:])))
	}
	return windows, nil
}

// CurrentDesktop returns the ID of _NET_CURRENT_DESKTOP
func (b *X11Backend) CurrentDesktop() (vdesktop.DesktopID, error) {
	current, err := b.getCardinal(b.root, b.currentDesktopAtom)
	if err != nil {
		return vdesktop.DesktopID{}, err
	}
	return EWMHDesktopID(int(current)), nil
}

// Close closes the X11 connection, which ends the event loop
func (b *X11Backend) Close() error {
	b.mu.Lock()
	watching, done := b.watching, b.done
	b.watching = false
	b.mu.Unlock()

	b.conn.Close()
	if watching {
		<-done
	}
	return nil
}

// getAtom gets an atom ID by name
func (b *X11Backend) getAtom(name string) (xproto.Atom, error) {
	reply, err := xproto.InternAtom(b.conn, false, uint16(len(name)), name).Reply()
	if err != nil {
		return 0, err
	}
	return reply.Atom, nil
}

// getCardinal reads a single CARDINAL property value
func (b *X11Backend) getCardinal(win xproto.Window, atom xproto.Atom) (uint32, error) {
	reply, err := xproto.GetProperty(
		b.conn,
		false,
		win,
		atom,
		xproto.AtomCardinal,
		0,
		1,
	).Reply()
	if err != nil {
		return 0, err
	}
	if len(reply.Value) < 4 {
		return 0, fmt.Errorf("empty property")
	}
	return xgb.Get32(reply.Value), nil
}
