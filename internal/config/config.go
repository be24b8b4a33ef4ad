// Package config loads and saves the ptab TOML configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/BurntSushi/toml"
)

// Config holds all ptab configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Import     ImportConfig     `toml:"import"`
	Server     ServerConfig     `toml:"server"`
	Appearance AppearanceConfig `toml:"appearance"`
}

// GeneralConfig holds the store location and the acting operator.
type GeneralConfig struct {
	DatabasePath string `toml:"database_path,omitempty"`
	ActorID      int64  `toml:"actor_id"`
}

// ImportConfig holds defaults for budget import and deactivation.
type ImportConfig struct {
	DefaultYear    int    `toml:"default_year,omitempty"`
	DefaultProject string `toml:"default_project,omitempty"`
}

// ServerConfig holds HTTP daemon settings.
type ServerConfig struct {
	Addr    string `toml:"addr"`
	Metrics bool   `toml:"metrics"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			ActorID: 1,
		},
		Server: ServerConfig{
			Addr:    "127.0.0.1:8742",
			Metrics: true,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ptab")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "ptab")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// DataDir returns the XDG-compliant data directory.
func DataDir() string {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "ptab")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "ptab")
}

// Load reads the config file, returning defaults if it doesn't exist.
func Load() (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(ConfigPath())
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// Save writes the config to disk.
func Save(cfg Config) error {
	dir := ConfigDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(ConfigPath(), os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}
	defer f.Close()

	enc := toml.NewEncoder(f)
	return enc.Encode(cfg)
}

// DatabasePath returns the store path from PTAB_DB, the config file, or the
// data directory default, in that order.
func DatabasePath(cfg Config) string {
	if p := os.Getenv("PTAB_DB"); p != "" {
		return p
	}
	if cfg.General.DatabasePath != "" {
		return cfg.General.DatabasePath
	}
	return filepath.Join(DataDir(), "ptab.db")
}

// ActorID returns the acting operator from PTAB_ACTOR or the config file.
func ActorID(cfg Config) (int64, error) {
	if v := os.Getenv("PTAB_ACTOR"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return 0, fmt.Errorf("PTAB_ACTOR %q is not a positive integer", v)
		}
		return id, nil
	}
	return cfg.General.ActorID, nil
}

// Exists returns true if a config file exists on disk.
func Exists() bool {
	_, err := os.Stat(ConfigPath())
	return err == nil
}
