package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the filesystem locations the client works from.
type Paths struct {
	ConfigPath string // TOML config file
	BaseDir    string // store, credentials and handoff slot live under here
	LogDir     string
}

// DefaultPaths resolves the client's paths, checking environment
// variables first:
//   - FT_CONFIG_PATH: config file location (default: ~/.config/ft.toml)
//   - FT_HOME: base directory for ft data (default: ~/.local/share/ft)
func DefaultPaths() (Paths, error) {
	var p Paths

	p.ConfigPath = os.Getenv("FT_CONFIG_PATH")
	p.BaseDir = os.Getenv("FT_HOME")
	if p.ConfigPath == "" || p.BaseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Paths{}, fmt.Errorf("cannot determine home directory: %w", err)
		}
		if p.ConfigPath == "" {
			p.ConfigPath = filepath.Join(home, ".config", "ft.toml")
		}
		if p.BaseDir == "" {
			p.BaseDir = filepath.Join(home, ".local", "share", "ft")
		}
	}

	p.LogDir = filepath.Join(p.BaseDir, "log")
	return p, nil
}
