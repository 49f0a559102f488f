package vdesktop

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/bryanchriswhite/deskwatch/internal/logger"
)

var (
	// ErrInterfaceQuery means the sink could not be obtained as a Notification
	ErrInterfaceQuery = errors.New("query notification interface")
	// ErrRegister means the service rejected the registration
	ErrRegister = errors.New("register listener")
)

// registration owns the service reference and token. It is kept apart from
// Listener so the runtime cleanup can run once the Listener is unreachable.
type registration struct {
	mu      sync.Mutex
	service NotificationService
	token   Token
}

// teardown unregisters at most once. Unregister failures are logged and
// otherwise ignored; the registration is retired either way.
func (r *registration) teardown() {
	r.mu.Lock()
	service, token := r.service, r.token
	r.service, r.token = nil, 0
	r.mu.Unlock()

	if service == nil || token == 0 {
		return
	}

	log := logger.WithComponent("vdesktop")
	log.Debug().Uint32("token", uint32(token)).Msg("Unregister a listener")
	if err := service.Unregister(token); err != nil {
		log.Warn().Err(err).Uint32("token", uint32(token)).Msg("Unregister failed, ignoring")
	}
}

func (r *registration) active() (Token, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.token, r.service != nil
}

// Listener is a registered virtual desktop change listener. Close it to
// unregister; an unclosed Listener is unregistered when it is garbage
// collected.
type Listener struct {
	sink    *sink
	reg     *registration
	cleanup runtime.Cleanup
}

// Register creates a listener and registers it with the service
func Register(service NotificationService) (*Listener, error) {
	return register(service, queryNotification)
}

type queryFunc func(Unknown) (Notification, error)

func queryNotification(u Unknown) (Notification, error) {
	v, err := u.QueryInterface(IIDVirtualDesktopNotification)
	if err != nil {
		return nil, err
	}
	n, ok := v.(Notification)
	if !ok || n == nil {
		return nil, E_POINTER
	}
	return n, nil
}

func register(service NotificationService, query queryFunc) (*Listener, error) {
	if service == nil {
		return nil, fmt.Errorf("%w: %w", ErrRegister, E_POINTER)
	}

	s := newSink()
	n, err := query(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInterfaceQuery, err)
	}

	// The register-stage status is reported, not the query-stage one.
	token, err := service.Register(n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRegister, err)
	}

	logger.WithComponent("vdesktop").Debug().Uint32("token", uint32(token)).Msg("Register a listener")

	l := &Listener{
		sink: s,
		reg:  &registration{service: service, token: token},
	}
	l.cleanup = runtime.AddCleanup(l, (*registration).teardown, l.reg)
	return l, nil
}

// OnDesktopChange sets the handler for current desktop switches, replacing
// any previous one. A nil callback clears it.
func (l *Listener) OnDesktopChange(callback func(old, new DesktopID)) {
	if callback == nil {
		l.sink.onDesktopChange.set(nil)
		return
	}
	l.sink.onDesktopChange.set(&callback)
}

// OnDesktopCreated sets the handler for desktop creation
func (l *Listener) OnDesktopCreated(callback func(id DesktopID)) {
	if callback == nil {
		l.sink.onDesktopCreated.set(nil)
		return
	}
	l.sink.onDesktopCreated.set(&callback)
}

// OnDesktopDestroyed sets the handler for completed desktop removal
func (l *Listener) OnDesktopDestroyed(callback func(id DesktopID)) {
	if callback == nil {
		l.sink.onDesktopDestroyed.set(nil)
		return
	}
	l.sink.onDesktopDestroyed.set(&callback)
}

// OnWindowChange sets the handler for windows moving between desktops
func (l *Listener) OnWindowChange(callback func(hwnd WindowHandle)) {
	if callback == nil {
		l.sink.onWindowChange.set(nil)
		return
	}
	l.sink.onWindowChange.set(&callback)
}

// Token returns the registration token, or zero once the listener is closed
func (l *Listener) Token() Token {
	token, _ := l.reg.active()
	return token
}

// Active reports whether the listener is still registered
func (l *Listener) Active() bool {
	_, ok := l.reg.active()
	return ok
}

// Close unregisters the listener. It is safe to call more than once and
// always returns nil. Notifications already in flight may still complete.
func (l *Listener) Close() error {
	l.cleanup.Stop()
	l.reg.teardown()
	return nil
}
