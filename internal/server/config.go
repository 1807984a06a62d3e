package server

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Config represents the main configuration for ftserver.
type Config struct {
	ListenAddr string       `toml:"listen_addr"`
	DataDir    string       `toml:"data_dir"`
	LogDir     string       `toml:"log_dir"`
	Users      []UserConfig `toml:"users"`
	Backup     BackupConfig `toml:"backup"`
}

// UserConfig is one provisioned account with its bearer token.
type UserConfig struct {
	ID    string `toml:"id"`
	Token string `toml:"token"`
}

// BackupConfig drives the scheduled encrypted snapshot upload.
// Enabled gates everything else.
type BackupConfig struct {
	Enabled      bool   `toml:"enabled"`
	Schedule     string `toml:"schedule"` // cron expression; defaults to nightly at 03:00
	S3Bucket     string `toml:"s3_bucket"`
	S3Prefix     string `toml:"s3_prefix,omitempty"`
	S3Region     string `toml:"s3_region"`
	AccessKeyID  string `toml:"access_key_id,omitempty"` // default credential chain when empty
	SecretKey    string `toml:"secret_access_key,omitempty"`
	AgeRecipient string `toml:"age_recipient"` // X25519 public key snapshots are sealed to
}

// ReadConfigFromFile reads a Config from the specified file path and
// applies defaults.
func ReadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8173"
	}
	if cfg.Backup.Schedule == "" {
		cfg.Backup.Schedule = "0 3 * * *"
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if len(c.Users) == 0 {
		return fmt.Errorf("at least one user must be configured")
	}
	seen := make(map[string]struct{}, len(c.Users))
	for _, u := range c.Users {
		if u.ID == "" || u.Token == "" {
			return fmt.Errorf("every user needs both id and token")
		}
		if _, dup := seen[u.ID]; dup {
			return fmt.Errorf("duplicate user id %q", u.ID)
		}
		seen[u.ID] = struct{}{}
	}
	if c.Backup.Enabled {
		if c.Backup.S3Bucket == "" || c.Backup.S3Region == "" {
			return fmt.Errorf("backup requires s3_bucket and s3_region")
		}
		if c.Backup.AgeRecipient == "" {
			return fmt.Errorf("backup requires an age_recipient to seal snapshots to")
		}
	}
	return nil
}
