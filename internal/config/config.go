package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/bryanchriswhite/deskwatch/internal/logger"
	"gopkg.in/yaml.v3"
)

// Backend names accepted in the config
const (
	BackendAuto = "auto"
	BackendKWin = "kwin"
	BackendX11  = "x11"
)

// Output formats for the watch command
const (
	FormatJSON = "json"
	FormatText = "text"
)

// Config represents the application configuration
type Config struct {
	Backend      string `json:"backend" yaml:"backend"`
	LogLevel     string `json:"log_level" yaml:"log_level"`
	LogPretty    bool   `json:"log_pretty" yaml:"log_pretty"`
	ServerPort   int    `json:"server_port" yaml:"server_port"`
	OutputFormat string `json:"output_format" yaml:"output_format"`
	// BufferSize is the per-subscriber event channel capacity
	BufferSize int `json:"buffer_size" yaml:"buffer_size"`
}

// Defaults returns the default configuration
func Defaults() *Config {
	return &Config{
		Backend:      BackendAuto,
		LogLevel:     "info",
		LogPretty:    true,
		ServerPort:   8080,
		OutputFormat: FormatText,
		BufferSize:   32,
	}
}

// Validate checks field values
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendAuto, BackendKWin, BackendX11:
	default:
		return fmt.Errorf("invalid backend %q (use auto, kwin or x11)", c.Backend)
	}
	switch c.OutputFormat {
	case FormatJSON, FormatText:
	default:
		return fmt.Errorf("invalid output format %q (use json or text)", c.OutputFormat)
	}
	if c.ServerPort < 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port %d", c.ServerPort)
	}
	if c.BufferSize < 1 {
		return fmt.Errorf("buffer size must be positive, got %d", c.BufferSize)
	}
	return nil
}

// Manager handles configuration
type Manager struct {
	configPath string
	config     *Config
	mu         sync.RWMutex
}

// DefaultPath returns $HOME/.config/deskwatch/config.yaml
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "deskwatch", "config.yaml"), nil
}

// NewManager loads the config file, creating it with defaults if missing.
// An empty configFile selects DefaultPath.
func NewManager(configFile string) (*Manager, error) {
	path := configFile
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	m := &Manager{configPath: path}

	if err := m.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		logger.WithComponent("config").Info().
			Str("path", m.configPath).
			Msg("Config file not found, creating new config")
		m.config = Defaults()
		if err := m.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Str("backend", m.config.Backend).
		Msg("Config loaded")

	return m, nil
}

// load reads the configuration from disk. Missing fields keep their defaults.
func (m *Manager) load() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		return err
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}

	m.mu.Lock()
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.config == nil {
		return Defaults()
	}
	cfg := *m.config
	return &cfg
}

// Save saves the current configuration to disk
func (m *Manager) Save() error {
	cfg := m.Get()

	configDir := filepath.Dir(m.configPath)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	logger.WithComponent("config").Debug().
		Str("path", m.configPath).
		Msg("Config saved")
	return nil
}

// Set assigns a single key from its string form and saves
func (m *Manager) Set(key, value string) error {
	m.mu.Lock()
	next := *m.config
	switch key {
	case "backend":
		next.Backend = strings.ToLower(value)
	case "log_level":
		next.LogLevel = strings.ToLower(value)
	case "log_pretty":
		b, err := strconv.ParseBool(value)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("invalid boolean %q: %w", value, err)
		}
		next.LogPretty = b
	case "server_port", "buffer_size":
		n, err := strconv.Atoi(value)
		if err != nil {
			m.mu.Unlock()
			return fmt.Errorf("invalid number %q: %w", value, err)
		}
		if key == "server_port" {
			next.ServerPort = n
		} else {
			next.BufferSize = n
		}
	case "output_format":
		next.OutputFormat = strings.ToLower(value)
	default:
		m.mu.Unlock()
		return fmt.Errorf("unknown config key: %s", key)
	}
	if err := next.Validate(); err != nil {
		m.mu.Unlock()
		return err
	}
	m.config = &next
	m.mu.Unlock()
	return m.Save()
}

// Override applies a non-persisted value (flag overrides)
func (m *Manager) Override(apply func(cfg *Config)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := *m.config
	apply(&next)
	if err := next.Validate(); err != nil {
		return err
	}
	m.config = &next
	return nil
}

// GetConfigPath returns the path to the config file
func (m *Manager) GetConfigPath() string {
	return m.configPath
}
