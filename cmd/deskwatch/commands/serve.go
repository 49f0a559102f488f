package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanchriswhite/deskwatch/internal/api"
	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve virtual desktop events over HTTP",
	Long: `Register a listener with the desktop backend and expose its events.

Endpoints:
  GET /api/health          liveness
  GET /api/state           backend, current desktop and event counters
  GET /api/events/stream   WebSocket, one JSON event per message`,
	Example: `  # Start server on default port (8080)
  deskwatch serve

  # Start server on custom port
  deskwatch serve --port 9090`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("cli")

	configMgr, err := loadConfig()
	if err != nil {
		return err
	}
	cfg := configMgr.Get()

	s, err := openSession(cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	server := api.NewServer(s.bus, s.backend.Name(), cfg.BufferSize)
	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Start(cfg.ServerPort)
	}()

	log.Info().
		Str("events", fmt.Sprintf("ws://localhost:%d/api/events/stream", cfg.ServerPort)).
		Msg("deskwatch is running, press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errChan:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Close streams first so open WebSocket handlers return.
	s.bus.Close()
	return server.Shutdown(shutdownCtx)
}
