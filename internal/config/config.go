package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/llehouerou/termgfx/internal/graphics"
)

const (
	appName       = "termgfx"
	localFileName = "termgfx.toml"
)

type Config struct {
	// Image store limits
	Graphics GraphicsConfig `koanf:"graphics"`

	// Diagnostics output
	Log LogConfig `koanf:"log"`
}

// GraphicsConfig holds the image store limits. Zero values mean default.
type GraphicsConfig struct {
	InitialCapacity    int    `koanf:"initial_capacity"`     // image slots allocated up front (default: 64)
	MaxImageBytes      int    `koanf:"max_image_bytes"`      // largest decoded image (default: 400 MiB)
	RawMargin          int    `koanf:"raw_margin"`           // extra inline bytes for raw pixels (default: 10)
	EncodedMargin      int    `koanf:"encoded_margin"`       // extra inline bytes for zlib or PNG (default: 1024)
	MaxPNGPayload      int    `koanf:"max_png_payload"`      // inline limit for PNG without geometry (default: 64 MiB)
	ShmDir             string `koanf:"shm_dir"`              // where shared-memory names live (default: /dev/shm)
	AllowFileTransport *bool  `koanf:"allow_file_transport"` // accept t=f, t=t and t=s (default: true)
}

// LogConfig holds diagnostics settings.
type LogConfig struct {
	Level  string `koanf:"level"`  // "debug", "info", "warn", "error" (default: "warn")
	Format string `koanf:"format"` // "console" or "json" (default: "console")
	File   string `koanf:"file"`   // empty means stderr
}

// Load reads the configuration files in order of priority (last wins).
func Load() (*Config, error) {
	k := koanf.New(".")

	for _, path := range getConfigPaths() {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
				return nil, fmt.Errorf("load %s: %w", path, err)
			}
		}
	}

	return unmarshal(k)
}

// LoadFrom reads a single configuration file. Unlike Load, a missing file
// is an error.
func LoadFrom(path string) (*Config, error) {
	path = expandPath(path)
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	// Expand ~ in paths
	cfg.Graphics.ShmDir = expandPath(cfg.Graphics.ShmDir)
	cfg.Log.File = expandPath(cfg.Log.File)

	return cfg, nil
}

func getConfigPaths() []string {
	return []string{
		// 1. $XDG_CONFIG_HOME/termgfx/config.toml
		filepath.Join(xdg.ConfigHome, appName, "config.toml"),
		// 2. ./termgfx.toml (pwd, highest priority)
		localFileName,
	}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// GetGraphicsConfig returns the store limits with defaults applied.
func (c *Config) GetGraphicsConfig() graphics.Limits {
	cfg := c.Graphics
	limits := graphics.DefaultLimits()

	if cfg.InitialCapacity > 0 {
		limits.InitialCapacity = cfg.InitialCapacity
	}
	if cfg.MaxImageBytes > 0 {
		limits.MaxImageBytes = cfg.MaxImageBytes
	}
	if cfg.RawMargin > 0 {
		limits.RawMargin = cfg.RawMargin
	}
	if cfg.EncodedMargin > 0 {
		limits.EncodedMargin = cfg.EncodedMargin
	}
	if cfg.MaxPNGPayload > 0 {
		limits.MaxPNGPayload = cfg.MaxPNGPayload
	}
	if cfg.ShmDir != "" {
		limits.ShmDir = cfg.ShmDir
	}
	if cfg.AllowFileTransport != nil {
		limits.AllowFileTransport = *cfg.AllowFileTransport
	}

	return limits
}

// GetLogConfig returns the diagnostics settings with defaults applied.
func (c *Config) GetLogConfig() LogConfig {
	cfg := c.Log

	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		cfg.Level = "warn"
	}
	if cfg.Format != "json" {
		cfg.Format = "console"
	}

	return cfg
}
