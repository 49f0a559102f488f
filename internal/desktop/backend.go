package desktop

import (
	"fmt"

	"github.com/bryanchriswhite/deskwatch/internal/config"
	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
	"github.com/google/uuid"
)

// Backend is a virtual desktop notification service backed by a desktop
// environment (KWin, EWMH-compliant X11 window managers, ...)
type Backend interface {
	vdesktop.NotificationService

	// Start begins watching the desktop environment for changes
	Start() error

	// Close stops watching and releases the connection
	Close() error

	// CurrentDesktop returns the ID of the active virtual desktop
	CurrentDesktop() (vdesktop.DesktopID, error)

	// Name returns the backend name (e.g., "x11", "kwin")
	Name() string
}

// New creates the named backend. "auto" prefers KWin and falls back to X11.
func New(name string) (Backend, error) {
	log := logger.WithComponent("desktop")

	switch name {
	case config.BackendKWin:
		b, err := NewKWinBackend()
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendX11:
		b, err := NewX11Backend()
		if err != nil {
			return nil, err
		}
		return b, nil
	case config.BackendAuto, "":
		kwin, err := NewKWinBackend()
		if err == nil {
			log.Info().Msg("Using KWin backend")
			return kwin, nil
		}
		log.Debug().Err(err).Msg("KWin unavailable, trying X11")

		b, err := NewX11Backend()
		if err != nil {
			return nil, fmt.Errorf("no desktop backend available: %w", err)
		}
		log.Info().Msg("Using X11 backend")
		return b, nil
	}
	return nil, fmt.Errorf("unknown backend %q", name)
}

// guidDesktop is a desktop reference identified by a GUID string
type guidDesktop string

func (d guidDesktop) ID() (vdesktop.DesktopID, error) {
	return uuid.Parse(string(d))
}

// ewmhNamespace derives stable IDs for index-addressed EWMH desktops
var ewmhNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://specifications.freedesktop.org/wm-spec/"))

// EWMHDesktopID returns the stable ID used for EWMH desktop index n
func EWMHDesktopID(n int) vdesktop.DesktopID {
	return uuid.NewSHA1(ewmhNamespace, []byte(fmt.Sprintf("desktop-%d", n)))
}

// indexDesktop is a desktop reference identified by its EWMH index
type indexDesktop int

func (d indexDesktop) ID() (vdesktop.DesktopID, error) {
	if d < 0 {
		return vdesktop.DesktopID{}, fmt.Errorf("invalid desktop index %d", int(d))
	}
	return EWMHDesktopID(int(d)), nil
}

// windowView is a view reference for a native window
type windowView vdesktop.WindowHandle

func (v windowView) ThumbnailWindow() (vdesktop.WindowHandle, error) {
	return vdesktop.WindowHandle(v), nil
}
