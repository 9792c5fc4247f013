package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/docker/go-units"
)

// Defaults mirror the backend's own defaults and the original client's
// fixed timings.
const (
	DefaultBackendURL    = "http://localhost:5000"
	DefaultPollInterval  = 30 * time.Second
	DefaultStatusWindow  = 2 * time.Second
	DefaultMaxIngestSize = "512KiB"
)

// Config holds the operator's persistent preferences. Durations are
// stored as Go duration strings; sizes in human-readable go-units
// syntax.
type Config struct {
	BackendURL     string `json:"backend_url,omitempty"`
	RequestTimeout string `json:"request_timeout,omitempty"` // empty or "0" = no timeout
	PollInterval   string `json:"poll_interval,omitempty"`
	StatusWindow   string `json:"status_window,omitempty"`
	UseContext     *bool  `json:"use_context,omitempty"` // default true
	DropFolder     string `json:"drop_folder,omitempty"` // empty disables the watcher
	MaxIngestSize  string `json:"max_ingest_size,omitempty"`
}

// Backend returns the backend base URL.
func (c *Config) Backend() string {
	if c.BackendURL == "" {
		return DefaultBackendURL
	}
	return c.BackendURL
}

// Timeout returns the per-request HTTP timeout. Zero means requests
// never time out, which matches the original client's behavior.
func (c *Config) Timeout() (time.Duration, error) {
	return c.duration(c.RequestTimeout, 0)
}

// Poll returns the health polling cadence.
func (c *Config) Poll() (time.Duration, error) {
	return c.duration(c.PollInterval, DefaultPollInterval)
}

// Window returns how long ingestion terminal statuses stay visible.
func (c *Config) Window() (time.Duration, error) {
	return c.duration(c.StatusWindow, DefaultStatusWindow)
}

// ContextDefault returns the initial retrieval-context setting.
func (c *Config) ContextDefault() bool {
	if c.UseContext == nil {
		return true
	}
	return *c.UseContext
}

// MaxIngestBytes returns the drop-folder file size cap.
func (c *Config) MaxIngestBytes() (int64, error) {
	size := c.MaxIngestSize
	if size == "" {
		size = DefaultMaxIngestSize
	}
	n, err := units.RAMInBytes(size)
	if err != nil {
		return 0, fmt.Errorf("invalid max_ingest_size %q: %w", size, err)
	}
	return n, nil
}

func (c *Config) duration(raw string, fallback time.Duration) (time.Duration, error) {
	if raw == "" || raw == "0" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	return d, nil
}

// applyEnv overlays environment variables on top of file values.
// Environment wins so a shell export (or .env entry) can redirect a
// single run without editing the config file.
func (c *Config) applyEnv() {
	if v := os.Getenv("JARVIS_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("JARVIS_REQUEST_TIMEOUT"); v != "" {
		c.RequestTimeout = v
	}
	if v := os.Getenv("JARVIS_POLL_INTERVAL"); v != "" {
		c.PollInterval = v
	}
	if v := os.Getenv("JARVIS_STATUS_WINDOW"); v != "" {
		c.StatusWindow = v
	}
	if v := os.Getenv("JARVIS_DROP_FOLDER"); v != "" {
		c.DropFolder = v
	}
	if v := os.Getenv("JARVIS_MAX_INGEST_SIZE"); v != "" {
		c.MaxIngestSize = v
	}
	if v := os.Getenv("JARVIS_USE_CONTEXT"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.UseContext = &b
		}
	}
}

// Manager handles loading and saving the configuration.
type Manager struct {
	configDir string
}

// NewManager creates a configuration manager rooted at the user config
// directory.
func NewManager() (*Manager, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user config dir: %w", err)
	}
	return &Manager{
		configDir: filepath.Join(configDir, "jarvisctl"),
	}, nil
}

// Dir returns the directory holding the config file and the journal.
func (m *Manager) Dir() string {
	return m.configDir
}

// GetConfigPath returns the absolute path to the config.json file.
func (m *Manager) GetConfigPath() string {
	return filepath.Join(m.configDir, "config.json")
}

// Load reads the configuration from disk and overlays environment
// variables. A missing file yields defaults, not an error.
func (m *Manager) Load() (*Config, error) {
	var cfg Config

	path := m.GetConfigPath()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config json: %w", err)
		}
	}

	cfg.applyEnv()
	return &cfg, nil
}

// Save writes the configuration to disk with restricted permissions.
func (m *Manager) Save(cfg *Config) error {
	if err := os.MkdirAll(m.configDir, 0755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(m.GetConfigPath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Exists checks if the configuration file has been created.
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.GetConfigPath())
	return !os.IsNotExist(err)
}
