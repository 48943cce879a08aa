package config

import (
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	DefaultVolume int    `koanf:"default_volume"` // startup volume, 0-100 (default: 100)
	StartMuted    bool   `koanf:"start_muted"`    // start with playback muted
	LogLevel      string `koanf:"log_level"`      // logrus level name (default: "info")

	// Playlist defaults applied to newly opened player contexts
	Playlist PlaylistConfig `koanf:"playlist"`

	// Settings persistence
	State StateConfig `koanf:"state"`
}

// PlaylistConfig holds default playlist behavior.
type PlaylistConfig struct {
	PlayMode   string `koanf:"play_mode"`   // "continuous" or "shuffle" (default: "continuous")
	RepeatMode string `koanf:"repeat_mode"` // "none", "one" or "all" (default: "none")
}

// StateConfig holds settings persistence configuration.
type StateConfig struct {
	Persist *bool  `koanf:"persist"` // persist volume/mute/playlist modes (default: true)
	Path    string `koanf:"path"`    // override state database location
}

func Load() (*Config, error) {
	return LoadFrom(getConfigPaths()...)
}

// LoadFrom loads configuration from the given files in order, later
// files winning. Missing files are skipped.
func LoadFrom(paths ...string) (*Config, error) {
	k := koanf.New(".")

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, err
			}
		}
	}

	cfg := &Config{
		DefaultVolume: 100,
		LogLevel:      "info",
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	if cfg.DefaultVolume < 0 {
		cfg.DefaultVolume = 0
	}
	if cfg.DefaultVolume > 100 {
		cfg.DefaultVolume = 100
	}

	if cfg.State.Path != "" {
		cfg.State.Path = expandPath(cfg.State.Path)
	}

	return cfg, nil
}

func getConfigPaths() []string {
	paths := []string{}

	// 1. ~/.config/greenroom/config.toml
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "greenroom", "config.toml"))
	}

	// 2. ./config.toml (pwd, highest priority)
	paths = append(paths, "config.toml")

	return paths
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// PersistState returns whether settings persistence is enabled.
func (c *Config) PersistState() bool {
	if c.State.Persist == nil {
		return true
	}
	return *c.State.Persist
}
