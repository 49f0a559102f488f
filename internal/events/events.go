package events

import (
	"fmt"
	"time"

	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
)

// Kind is the type of a desktop event
type Kind string

const (
	KindDesktopCreated   Kind = "desktop_created"
	KindDesktopDestroyed Kind = "desktop_destroyed"
	KindDesktopSwitched  Kind = "desktop_switched"
	KindWindowMoved      Kind = "window_moved"
)

// Kinds lists every event kind
var Kinds = []Kind{KindDesktopCreated, KindDesktopDestroyed, KindDesktopSwitched, KindWindowMoved}

// Event is a user-facing desktop event
type Event struct {
	Kind     Kind                  `json:"kind"`
	Desktop  vdesktop.DesktopID    `json:"desktop,omitempty"`
	Previous *vdesktop.DesktopID   `json:"previous,omitempty"`
	Window   vdesktop.WindowHandle `json:"window,omitempty"`
	Time     time.Time             `json:"time"`
}

// String formats the event for text output
func (e Event) String() string {
	ts := e.Time.Format(time.RFC3339)
	switch e.Kind {
	case KindDesktopSwitched:
		prev := "unknown"
		if e.Previous != nil {
			prev = e.Previous.String()
		}
		return fmt.Sprintf("%s %-17s %s -> %s", ts, e.Kind, prev, e.Desktop)
	case KindWindowMoved:
		return fmt.Sprintf("%s %-17s window 0x%x", ts, e.Kind, uint64(e.Window))
	default:
		return fmt.Sprintf("%s %-17s %s", ts, e.Kind, e.Desktop)
	}
}
