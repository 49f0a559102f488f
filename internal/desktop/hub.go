package desktop

import (
	"sort"
	"sync"

	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
)

// Hub keeps the registered notification sinks of a backend and fans each
// desktop event out to all of them.
type Hub struct {
	mu    sync.RWMutex
	next  vdesktop.Token
	sinks map[vdesktop.Token]vdesktop.Notification
}

var _ vdesktop.NotificationService = (*Hub)(nil)

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{sinks: make(map[vdesktop.Token]vdesktop.Notification)}
}

// Register adds a sink and returns its token. Tokens are never zero.
func (h *Hub) Register(n vdesktop.Notification) (vdesktop.Token, error) {
	if n == nil {
		return 0, vdesktop.E_POINTER
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		h.next++
		if h.next == 0 {
			continue
		}
		if _, taken := h.sinks[h.next]; !taken {
			break
		}
	}
	h.sinks[h.next] = n

	logger.WithComponent("hub").Debug().
		Uint32("token", uint32(h.next)).
		Int("sinks", len(h.sinks)).
		Msg("Sink registered")
	return h.next, nil
}

// Unregister removes the sink registered under token
func (h *Hub) Unregister(token vdesktop.Token) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sinks[token]; !ok {
		return vdesktop.E_INVALIDARG
	}
	delete(h.sinks, token)

	logger.WithComponent("hub").Debug().
		Uint32("token", uint32(token)).
		Int("sinks", len(h.sinks)).
		Msg("Sink unregistered")
	return nil
}

// Len returns the number of registered sinks
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sinks)
}

// snapshot returns the sinks in token order. Sinks are called without the
// lock held so they may register or unregister from inside a callback.
func (h *Hub) snapshot() []vdesktop.Notification {
	h.mu.RLock()
	tokens := make([]vdesktop.Token, 0, len(h.sinks))
	for t := range h.sinks {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool { return tokens[i] < tokens[j] })
	sinks := make([]vdesktop.Notification, len(tokens))
	for i, t := range tokens {
		sinks[i] = h.sinks[t]
	}
	h.mu.RUnlock()
	return sinks
}

func (h *Hub) each(event string, call func(n vdesktop.Notification) error) {
	for _, n := range h.snapshot() {
		if err := call(n); err != nil {
			logger.WithComponent("hub").Debug().Err(err).Str("event", event).Msg("Sink reported failure")
		}
	}
}

// DesktopCreated notifies all sinks that a desktop was created
func (h *Hub) DesktopCreated(d vdesktop.Desktop) {
	h.each("created", func(n vdesktop.Notification) error {
		return n.VirtualDesktopCreated(d)
	})
}

// DesktopDestroyBegin notifies all sinks that removal of d started
func (h *Hub) DesktopDestroyBegin(d, fallback vdesktop.Desktop) {
	h.each("destroy_begin", func(n vdesktop.Notification) error {
		return n.VirtualDesktopDestroyBegin(d, fallback)
	})
}

// DesktopDestroyFailed notifies all sinks that removal of d was rolled back
func (h *Hub) DesktopDestroyFailed(d, fallback vdesktop.Desktop) {
	h.each("destroy_failed", func(n vdesktop.Notification) error {
		return n.VirtualDesktopDestroyFailed(d, fallback)
	})
}

// DesktopDestroyed notifies all sinks that d is gone
func (h *Hub) DesktopDestroyed(d, fallback vdesktop.Desktop) {
	h.each("destroyed", func(n vdesktop.Notification) error {
		return n.VirtualDesktopDestroyed(d, fallback)
	})
}

// ViewChanged notifies all sinks that a view moved to another desktop
func (h *Hub) ViewChanged(v vdesktop.ApplicationView) {
	h.each("view_changed", func(n vdesktop.Notification) error {
		return n.ViewVirtualDesktopChanged(v)
	})
}

// CurrentChanged notifies all sinks of a desktop switch
func (h *Hub) CurrentChanged(old, new vdesktop.Desktop) {
	h.each("current_changed", func(n vdesktop.Notification) error {
		return n.CurrentVirtualDesktopChanged(old, new)
	})
}
