package commands

import (
	"fmt"
	"os"

	"github.com/bryanchriswhite/deskwatch/internal/config"
	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	rootCmd = &cobra.Command{
		Use:   "deskwatch",
		Short: "deskwatch - virtual desktop change notifications",
		Long: `deskwatch registers a listener with the desktop environment's virtual
desktop service and reports desktop changes as typed events.

Events:
  • desktop_created    a virtual desktop was added
  • desktop_destroyed  a virtual desktop was removed
  • desktop_switched   the current desktop changed
  • window_moved       a window moved to another desktop

Backends:
  • kwin  KDE Plasma (D-Bus VirtualDesktopManager)
  • x11   any EWMH-compliant X11 window manager`,
		SilenceUsage: true,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/deskwatch/config.yaml)")
	rootCmd.PersistentFlags().String("backend", "", "desktop backend (auto, kwin, x11)")
	rootCmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Int("port", 0, "server port (default is 8080)")

	// Bind flags to viper
	viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("server_port", rootCmd.PersistentFlags().Lookup("port"))
	viper.SetEnvPrefix("deskwatch")
	viper.AutomaticEnv()
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}
}

// loadConfig reads the config file, applies flag and environment overrides
// and initializes logging
func loadConfig() (*config.Manager, error) {
	configMgr, err := config.NewManager(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	err = configMgr.Override(func(cfg *config.Config) {
		if backend := viper.GetString("backend"); backend != "" {
			cfg.Backend = backend
		}
		if level := viper.GetString("log_level"); level != "" {
			cfg.LogLevel = level
		}
		if port := viper.GetInt("server_port"); port > 0 {
			cfg.ServerPort = port
		}
		if format := viper.GetString("output_format"); format != "" {
			cfg.OutputFormat = format
		}
	})
	if err != nil {
		return nil, err
	}

	cfg := configMgr.Get()
	logger.Init(cfg.LogLevel, cfg.LogPretty)
	logger.WithComponent("cli").Debug().
		Str("path", configMgr.GetConfigPath()).
		Str("backend", cfg.Backend).
		Msg("Configuration loaded")
	return configMgr, nil
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
