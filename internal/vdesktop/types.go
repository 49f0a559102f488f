package vdesktop

import (
	"fmt"

	"github.com/google/uuid"
)

// DesktopID identifies a virtual desktop. The zero value is returned when a
// desktop's ID cannot be read.
type DesktopID = uuid.UUID

// WindowHandle is an opaque native window handle (HWND, X11 window ID, ...)
type WindowHandle uint64

// Token identifies an active registration with a NotificationService.
// Zero means "not registered".
type Token uint32

// HRESULT is a status code returned across the notification contract
type HRESULT int32

// Status codes used by services and the sink
const (
	S_OK          HRESULT = 0
	E_FAIL        HRESULT = -0x7fffbffb // 0x80004005
	E_NOINTERFACE HRESULT = -0x7fffbffe // 0x80004002
	E_POINTER     HRESULT = -0x7fffbffd // 0x80004003
	E_INVALIDARG  HRESULT = -0x7ff8ffa9 // 0x80070057
)

// Failed reports whether the code has the severity bit set
func (hr HRESULT) Failed() bool {
	return hr < 0
}

func (hr HRESULT) Error() string {
	switch hr {
	case S_OK:
		return "S_OK"
	case E_FAIL:
		return "E_FAIL: unspecified failure"
	case E_NOINTERFACE:
		return "E_NOINTERFACE: no such interface supported"
	case E_POINTER:
		return "E_POINTER: invalid pointer"
	case E_INVALIDARG:
		return "E_INVALIDARG: invalid argument"
	}
	return fmt.Sprintf("HRESULT 0x%08X", uint32(hr))
}

// Interface identifiers answered by the sink's QueryInterface
var (
	IIDUnknown                    = uuid.MustParse("00000000-0000-0000-c000-000000000046")
	IIDVirtualDesktopNotification = uuid.MustParse("c179334c-4295-40d3-bea1-c654d965605a")
)

// Unknown is the base contract every object handed to a service satisfies
type Unknown interface {
	QueryInterface(iid uuid.UUID) (any, error)
}

// Desktop is a virtual desktop reference passed into notifications.
// It is only valid for the duration of the call that supplied it.
type Desktop interface {
	ID() (DesktopID, error)
}

// ApplicationView is a view (top-level window) reference passed into
// notifications.
type ApplicationView interface {
	ThumbnailWindow() (WindowHandle, error)
}

// Notification is the callback contract a NotificationService invokes on
// registered listeners. Method order is fixed.
type Notification interface {
	VirtualDesktopCreated(desktop Desktop) error
	VirtualDesktopDestroyBegin(destroyed, fallback Desktop) error
	VirtualDesktopDestroyFailed(destroyed, fallback Desktop) error
	VirtualDesktopDestroyed(destroyed, fallback Desktop) error
	ViewVirtualDesktopChanged(view ApplicationView) error
	CurrentVirtualDesktopChanged(old, new Desktop) error
}

// NotificationService is the external service listeners register with
type NotificationService interface {
	Register(n Notification) (Token, error)
	Unregister(token Token) error
}
