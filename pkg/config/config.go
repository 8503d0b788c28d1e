// Package config loads taskmap settings from a TOML file.
//
// The file lives at $XDG_CONFIG_HOME/taskmap/config.toml (falling back to
// ~/.config/taskmap/config.toml). A missing file is not an error: every key
// has a default, and keys present in the file override only themselves.
//
//	batch_title = "Untitled Batch"
//
//	[layout]
//	level_spacing = 340
//	node_spacing = 20
//
//	[history]
//	depth = 5
//
//	[animation]
//	auto_format_ms = 400
//	edge_refresh_ms = 50
//
//	[layered]
//	direction = "LR"
//	node_sep = 40
//	rank_sep = 80
//	cache_ttl = "24h"
//
//	[storage]
//	url = ""
//
//	[log]
//	level = "info"
package config

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	taskerr "github.com/matzehuels/taskmap/pkg/errors"
)

const appName = "taskmap"

// Config is the full set of settings.
type Config struct {
	BatchTitle string          `toml:"batch_title"`
	Layout     LayoutConfig    `toml:"layout"`
	History    HistoryConfig   `toml:"history"`
	Animation  AnimationConfig `toml:"animation"`
	Layered    LayeredConfig   `toml:"layered"`
	Storage    StorageConfig   `toml:"storage"`
	Log        LogConfig       `toml:"log"`
}

type LayoutConfig struct {
	LevelSpacing float64 `toml:"level_spacing"`
	NodeSpacing  float64 `toml:"node_spacing"`
}

type HistoryConfig struct {
	Depth int `toml:"depth"`
}

type AnimationConfig struct {
	AutoFormatMS  int `toml:"auto_format_ms"`
	EdgeRefreshMS int `toml:"edge_refresh_ms"`
}

// AutoFormat returns the auto-formatting window as a duration.
func (a AnimationConfig) AutoFormat() time.Duration {
	return time.Duration(a.AutoFormatMS) * time.Millisecond
}

// EdgeRefresh returns the edge refresh delay as a duration.
func (a AnimationConfig) EdgeRefresh() time.Duration {
	return time.Duration(a.EdgeRefreshMS) * time.Millisecond
}

type LayeredConfig struct {
	Direction string   `toml:"direction"`
	NodeSep   float64  `toml:"node_sep"`
	RankSep   float64  `toml:"rank_sep"`
	CacheTTL  Duration `toml:"cache_ttl"`
}

type StorageConfig struct {
	URL string `toml:"url"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

// Duration decodes TOML strings such as "24h" or "90m".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		BatchTitle: "Untitled Batch",
		Layout:     LayoutConfig{LevelSpacing: 340, NodeSpacing: 20},
		History:    HistoryConfig{Depth: 5},
		Animation:  AnimationConfig{AutoFormatMS: 400, EdgeRefreshMS: 50},
		Layered: LayeredConfig{
			Direction: "LR",
			NodeSep:   40,
			RankSep:   80,
			CacheTTL:  Duration{24 * time.Hour},
		},
		Log: LogConfig{Level: "info"},
	}
}

// Path returns the default config file location.
func Path() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appName, "config.toml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", appName, "config.toml"), nil
}

// Load reads path over the defaults and validates the result. An empty
// path means [Path]; a missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		p, err := Path()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, taskerr.Wrap(taskerr.ErrCodeInvalidConfig, err, "read %s", path)
	}
	if err := Decode(string(data), &cfg); err != nil {
		return Default(), err
	}
	return cfg, nil
}

// Decode parses TOML text over cfg and validates the result.
func Decode(text string, cfg *Config) error {
	md, err := toml.Decode(text, cfg)
	if err != nil {
		return taskerr.Wrap(taskerr.ErrCodeInvalidConfig, err, "parse config")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return taskerr.New(taskerr.ErrCodeInvalidConfig, "unknown config keys: %s", strings.Join(keys, ", "))
	}
	return cfg.Validate()
}

// Encode writes cfg as TOML.
func Encode(w io.Writer, cfg Config) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Validate rejects settings the rest of the program cannot use.
func (c Config) Validate() error {
	switch {
	case c.Layout.LevelSpacing <= 0:
		return invalid("layout.level_spacing must be positive")
	case c.Layout.NodeSpacing <= 0:
		return invalid("layout.node_spacing must be positive")
	case c.History.Depth < 1:
		return invalid("history.depth must be at least 1")
	case c.Animation.AutoFormatMS < 0 || c.Animation.EdgeRefreshMS < 0:
		return invalid("animation timings cannot be negative")
	case c.Layered.NodeSep <= 0 || c.Layered.RankSep <= 0:
		return invalid("layered.node_sep and layered.rank_sep must be positive")
	case c.Layered.CacheTTL.Duration < 0:
		return invalid("layered.cache_ttl cannot be negative")
	}
	switch strings.ToUpper(c.Layered.Direction) {
	case "TB", "LR":
	default:
		return invalid("layered.direction must be TB or LR, got %q", c.Layered.Direction)
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return invalid("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return taskerr.New(taskerr.ErrCodeInvalidConfig, format, args...)
}
