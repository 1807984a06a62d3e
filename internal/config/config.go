package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ft.
type Config struct {
	DeviceID string      `toml:"device_id"`
	BaseDir  string      `toml:"base_dir"`
	LogDir   string      `toml:"log_dir"`
	Store    StoreConfig `toml:"store"`
	Sync     SyncConfig  `toml:"sync"`
}

// StoreConfig represents configuration for the local record store.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type StoreConfig struct {
	Type    string `toml:"type"`               // "sqlite" or "memory"
	DataDir string `toml:"data_dir,omitempty"` // only used for type=sqlite
}

// SyncConfig holds settings for talking to a sync server.
type SyncConfig struct {
	Server         string `toml:"server,omitempty"` // default server URL offered at sign-in
	TimeoutSeconds int    `toml:"timeout_seconds"`  // per-request timeout; defaults to 10
}

// NewConfig creates a new Config with the provided values and default paths.
func NewConfig(deviceID, baseDir string) *Config {
	return &Config{
		DeviceID: deviceID,
		BaseDir:  baseDir,
		LogDir:   filepath.Join(baseDir, "log"),
		Store: StoreConfig{
			Type:    "sqlite",
			DataDir: filepath.Join(baseDir, "store"),
		},
		Sync: SyncConfig{TimeoutSeconds: 10},
	}
}

// RequestTimeout returns the per-request sync timeout.
func (c *Config) RequestTimeout() time.Duration {
	if c.Sync.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Sync.TimeoutSeconds) * time.Second
}

// CredentialsPath returns where sign-in credentials are stored.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.BaseDir, "credentials.json")
}

// HandoffPath returns where a pending migration payload is staged.
func (c *Config) HandoffPath() string {
	return filepath.Join(c.BaseDir, "handoff.json")
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from the provided reader.
func (m *Manager) Read(r io.Reader) (*Config, error) {
	var cfg Config
	if _, err := toml.NewDecoder(r).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from the specified file path.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f)
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// writeToFile writes a Config to the specified file path.
func writeToFile(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init initializes a new config file at the specified path with the provided Config.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
