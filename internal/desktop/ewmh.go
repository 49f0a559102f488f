package desktop

// ewmhSnapshot is the root window desktop state of an EWMH window manager
type ewmhSnapshot struct {
	Current int // _NET_CURRENT_DESKTOP
	Count   int // _NET_NUMBER_OF_DESKTOPS
}

type transitionKind int

const (
	transitionCreated transitionKind = iota
	transitionDestroyed
	transitionSwitched
)

func (k transitionKind) String() string {
	switch k {
	case transitionCreated:
		return "created"
	case transitionDestroyed:
		return "destroyed"
	case transitionSwitched:
		return "switched"
	}
	return "unknown"
}

// transition is one desktop change derived from two snapshots.
// For destroyed, Other is the fallback desktop; for switched, Desktop is the
// old desktop and Other the new one.
type transition struct {
	Kind    transitionKind
	Desktop int
	Other   int
}

// ewmhTracker turns successive snapshots into transitions. EWMH only
// exposes a desktop count, so desktops are added and removed at the end.
type ewmhTracker struct {
	last   ewmhSnapshot
	primed bool
}

// update records s and returns what changed since the previous snapshot.
// The first snapshot only primes the tracker.
func (t *ewmhTracker) update(s ewmhSnapshot) []transition {
	if !t.primed {
		t.last = s
		t.primed = true
		return nil
	}

	var out []transition
	for i := t.last.Count; i < s.Count; i++ {
		out = append(out, transition{Kind: transitionCreated, Desktop: i})
	}
	for i := t.last.Count - 1; i >= s.Count && i >= 0; i-- {
		out = append(out, transition{Kind: transitionDestroyed, Desktop: i, Other: s.Current})
	}
	if s.Current != t.last.Current {
		out = append(out, transition{Kind: transitionSwitched, Desktop: t.last.Current, Other: s.Current})
	}
	t.last = s
	return out
}

// current returns the last seen current desktop
func (t *ewmhTracker) current() (int, bool) {
	return t.last.Current, t.primed
}

// dispatch delivers transitions to the hub
func dispatch(h *Hub, transitions []transition) {
	for _, tr := range transitions {
		switch tr.Kind {
		case transitionCreated:
			h.DesktopCreated(indexDesktop(tr.Desktop))
		case transitionDestroyed:
			h.DesktopDestroyBegin(indexDesktop(tr.Desktop), indexDesktop(tr.Other))
			h.DesktopDestroyed(indexDesktop(tr.Desktop), indexDesktop(tr.Other))
		case transitionSwitched:
			h.CurrentChanged(indexDesktop(tr.Desktop), indexDesktop(tr.Other))
		}
	}
}
