package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/bryanchriswhite/deskwatch/internal/config"
	"github.com/bryanchriswhite/deskwatch/internal/desktop"
	"github.com/bryanchriswhite/deskwatch/internal/events"
	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/bryanchriswhite/deskwatch/internal/vdesktop"
)

// session is a started backend with a registered listener publishing to bus
type session struct {
	backend  desktop.Backend
	listener *vdesktop.Listener
	bus      *events.Bus
}

func openSession(cfg *config.Config) (*session, error) {
	backend, err := desktop.New(cfg.Backend)
	if err != nil {
		return nil, err
	}
	s, err := newSession(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return s, nil
}

// newSession registers a listener with backend and starts it. On error the
// listener is unregistered; closing backend is left to the caller.
func newSession(backend desktop.Backend) (*session, error) {
	listener, err := vdesktop.Register(backend)
	if err != nil {
		return nil, fmt.Errorf("failed to register listener with %s backend: %w", backend.Name(), err)
	}

	bus := events.NewBus()
	events.Attach(listener, bus)

	if err := backend.Start(); err != nil {
		listener.Close()
		return nil, fmt.Errorf("failed to start %s backend: %w", backend.Name(), err)
	}

	if current, err := backend.CurrentDesktop(); err == nil {
		bus.SetCurrent(current)
	} else {
		logger.WithComponent("cli").Debug().Err(err).Msg("Current desktop unknown")
	}

	logger.WithComponent("cli").Info().
		Str("backend", backend.Name()).
		Uint32("token", uint32(listener.Token())).
		Msg("Listening for virtual desktop changes")

	return &session{backend: backend, listener: listener, bus: bus}, nil
}

// Close unregisters the listener before the backend goes away
func (s *session) Close() {
	s.listener.Close()
	if err := s.backend.Close(); err != nil {
		logger.WithComponent("cli").Debug().Err(err).Msg("Failed to close backend")
	}
	s.bus.Close()
}

// streamEvents writes events from ch to w until ctx is done or ch closes
func streamEvents(ctx context.Context, ch <-chan events.Event, w io.Writer, format string) error {
	enc := json.NewEncoder(w)
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-ch:
			if !ok {
				return nil
			}
			var err error
			if format == config.FormatJSON {
				err = enc.Encode(e)
			} else {
				_, err = fmt.Fprintln(w, e.String())
			}
			if err != nil {
				return fmt.Errorf("failed to write event: %w", err)
			}
		}
	}
}
