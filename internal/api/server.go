package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/bryanchriswhite/deskwatch/internal/events"
	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// Server exposes desktop events over HTTP and WebSocket
type Server struct {
	router   *mux.Router
	bus      *events.Bus
	backend  string
	buffer   int
	upgrader websocket.Upgrader
	http     *http.Server
}

// NewServer creates a new API server. backend is reported by /api/state and
// buffer is the per-stream event buffer.
func NewServer(bus *events.Bus, backend string, buffer int) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		bus:     bus,
		backend: backend,
		buffer:  buffer,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Local tool, allow all origins
			},
		},
	}

	s.setupRoutes()
	return s
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods("GET")
	api.HandleFunc("/state", s.handleState).Methods("GET")
	api.HandleFunc("/events/stream", s.handleEventStream)
}

// Handler returns the root handler with CORS applied
func (s *Server) Handler() http.Handler {
	return s.enableCORS(s.router)
}

// Start serves on port until Shutdown is called
func (s *Server) Start(port int) error {
	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	logger.WithComponent("api").Info().Int("port", port).Msg("Starting server")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server started by Start
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// enableCORS adds CORS headers
func (s *Server) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithComponent("api").Debug().Err(err).Msg("Failed to write response")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// StateResponse is the body of GET /api/state
type StateResponse struct {
	Backend string       `json:"backend"`
	Stats   events.Stats `json:"stats"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, StateResponse{Backend: s.backend, Stats: s.bus.Stats()})
}

// handleEventStream sends each event as one JSON message until the client
// goes away or the bus is closed
func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	log := logger.WithComponent("api")

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debug().Err(err).Msg("WebSocket upgrade error")
		return
	}
	defer conn.Close()

	updates := s.bus.Subscribe(s.buffer)
	defer s.bus.Unsubscribe(updates)

	// Reads only detect the client closing; incoming messages are ignored.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.bus.Unsubscribe(updates)
				return
			}
		}
	}()

	for e := range updates {
		if err := conn.WriteJSON(e); err != nil {
			log.Debug().Err(err).Msg("WebSocket write error")
			return
		}
	}
}
