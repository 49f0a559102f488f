package vdesktop

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// slot holds at most one callback. Loads and stores never tear.
type slot[F any] struct {
	p atomic.Pointer[F]
}

func (s *slot[F]) set(f *F) {
	s.p.Store(f)
}

func (s *slot[F]) get() (F, bool) {
	if f := s.p.Load(); f != nil {
		return *f, true
	}
	var zero F
	return zero, false
}

// sink implements Notification and forwards decoded events to whichever
// handlers are installed at the moment each call arrives.
type sink struct {
	onDesktopChange    slot[func(old, new DesktopID)]
	onDesktopCreated   slot[func(id DesktopID)]
	onDesktopDestroyed slot[func(id DesktopID)]
	onWindowChange     slot[func(hwnd WindowHandle)]
}

var _ Notification = (*sink)(nil)

func newSink() *sink {
	return &sink{}
}

// QueryInterface returns the sink itself for the interfaces it implements
func (s *sink) QueryInterface(iid uuid.UUID) (any, error) {
	switch iid {
	case IIDUnknown, IIDVirtualDesktopNotification:
		return Notification(s), nil
	}
	return nil, E_NOINTERFACE
}

func (s *sink) VirtualDesktopCreated(desktop Desktop) error {
	if cb, ok := s.onDesktopCreated.get(); ok {
		cb(desktopID(desktop))
	}
	return nil
}

// VirtualDesktopDestroyBegin is not surfaced; only the final outcome is.
func (s *sink) VirtualDesktopDestroyBegin(_, _ Desktop) error {
	return nil
}

func (s *sink) VirtualDesktopDestroyFailed(_, _ Desktop) error {
	return nil
}

func (s *sink) VirtualDesktopDestroyed(destroyed, _ Desktop) error {
	if cb, ok := s.onDesktopDestroyed.get(); ok {
		cb(desktopID(destroyed))
	}
	return nil
}

func (s *sink) ViewVirtualDesktopChanged(view ApplicationView) error {
	if cb, ok := s.onWindowChange.get(); ok {
		cb(viewWindow(view))
	}
	return nil
}

func (s *sink) CurrentVirtualDesktopChanged(old, new Desktop) error {
	if cb, ok := s.onDesktopChange.get(); ok {
		cb(desktopID(old), desktopID(new))
	}
	return nil
}

// desktopID reads a desktop's ID, yielding the zero ID on failure
func desktopID(d Desktop) DesktopID {
	if d == nil {
		return DesktopID{}
	}
	id, err := d.ID()
	if err != nil {
		return DesktopID{}
	}
	return id
}

func viewWindow(v ApplicationView) WindowHandle {
	if v == nil {
		return 0
	}
	hwnd, err := v.ThumbnailWindow()
	if err != nil {
		return 0
	}
	return hwnd
}
