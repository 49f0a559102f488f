package events

import (
	"time"

	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
)

// Attach installs handlers on l that publish every event to bus.
// Any handlers previously installed on l are replaced.
func Attach(l *vdesktop.Listener, bus *Bus) {
	attach(l, bus, time.Now)
}

func attach(l *vdesktop.Listener, bus *Bus, now func() time.Time) {
	l.OnDesktopCreated(func(id vdesktop.DesktopID) {
		bus.Publish(Event{Kind: KindDesktopCreated, Desktop: id, Time: now()})
	})
	l.OnDesktopDestroyed(func(id vdesktop.DesktopID) {
		bus.Publish(Event{Kind: KindDesktopDestroyed, Desktop: id, Time: now()})
	})
	l.OnDesktopChange(func(old, new vdesktop.DesktopID) {
		prev := old
		bus.Publish(Event{Kind: KindDesktopSwitched, Desktop: new, Previous: &prev, Time: now()})
	})
	l.OnWindowChange(func(hwnd vdesktop.WindowHandle) {
		bus.Publish(Event{Kind: KindWindowMoved, Window: hwnd, Time: now()})
	})
}
