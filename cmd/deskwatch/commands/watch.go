package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print virtual desktop events",
	Long: `Register a listener with the desktop backend and print every event until
interrupted. The listener is unregistered on exit.`,
	Example: `  # Print events as text
  deskwatch watch

  # Print events as JSON lines
  deskwatch watch --format json

  # Force the X11 backend
  deskwatch watch --backend x11`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringP("format", "f", "", "output format (text or json)")
	viper.BindPFlag("output_format", watchCmd.Flags().Lookup("format"))
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	updates := s.bus.Subscribe(cfg.BufferSize)
	return streamEvents(ctx, updates, os.Stdout, cfg.OutputFormat)
}
