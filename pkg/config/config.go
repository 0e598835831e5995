// Package config loads the idsheet TOML configuration file.
//
// The file lives at $XDG_CONFIG_HOME/idsheet/config.toml (falling back to
// ~/.config/idsheet/config.toml) unless a path is given explicitly. Every
// section is optional; a missing file yields [Default].
//
//	[defaults]
//	photo = "3.5x4.5"
//	page = "4x6"
//	dpi = 300
//	margin = "3mm"
//	formats = ["png"]
//	quality = 90
//	interpolation = "catmullrom"
//
//	[presets.photo]
//	visa = "5x7cm"
//
//	[cache]
//	backend = "redis"
//	redis_addr = "localhost:6379"
//	ttl = "24h"
//
//	[server]
//	addr = ":8080"
//	session_ttl = "30m"
//	max_upload_mb = 20
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/units"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
	BackendNone  = "none"
)

// Config is the parsed configuration file.
type Config struct {
	Defaults Defaults `toml:"defaults"`
	Presets  Presets  `toml:"presets"`
	Cache    Cache    `toml:"cache"`
	Server   Server   `toml:"server"`
}

// Defaults seed the layout options before command-line flags apply.
type Defaults struct {
	Photo         string   `toml:"photo"`
	Page          string   `toml:"page"`
	DPI           int      `toml:"dpi"`
	Margin        string   `toml:"margin"`
	Formats       []string `toml:"formats"`
	Quality       int      `toml:"quality"`
	Interpolation string   `toml:"interpolation"`
}

// Presets are user-defined named sizes, written as "WxH<unit>".
type Presets struct {
	Page  map[string]string `toml:"page"`
	Photo map[string]string `toml:"photo"`
}

// Cache selects and configures the cache backend.
type Cache struct {
	Backend       string   `toml:"backend"`
	Dir           string   `toml:"dir"`
	RedisAddr     string   `toml:"redis_addr"`
	RedisPassword string   `toml:"redis_password"`
	RedisDB       int      `toml:"redis_db"`
	RedisPrefix   string   `toml:"redis_prefix"`
	TTL           Duration `toml:"ttl"`
}

// Server configures the HTTP service.
type Server struct {
	Addr         string   `toml:"addr"`
	SessionTTL   Duration `toml:"session_ttl"`
	MaxUploadMB  int      `toml:"max_upload_mb"`
	SessionStore string   `toml:"session_store"` // "memory" or "file"
	SessionDir   string   `toml:"session_dir"`
}

// Duration is a time.Duration written as a string ("30m") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Defaults: Defaults{
			Photo:         "3.5x4.5",
			Page:          "4x6",
			DPI:           300,
			Margin:        "3mm",
			Formats:       []string{"png"},
			Quality:       90,
			Interpolation: "catmullrom",
		},
		Cache: Cache{
			Backend: BackendFile,
			TTL:     Duration{24 * time.Hour},
		},
		Server: Server{
			Addr:         ":8080",
			SessionTTL:   Duration{30 * time.Minute},
			MaxUploadMB:  20,
			SessionStore: "memory",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Dir returns the idsheet config directory.
func Dir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "idsheet"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".config", "idsheet"), nil
}

// Load reads the config file at path over the defaults. An empty path means
// DefaultPath; a missing default file is not an error, but a missing
// explicit path is.
func Load(path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return cfg, nil
		}
		path = p
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		if os.IsNotExist(err) {
			return cfg, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, cfg)
}

// Parse decodes TOML data over base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return base, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config")
	}
	if keys := md.Undecoded(); len(keys) > 0 {
		return base, errors.New(errors.ErrCodeInvalidInput, "unknown config key %q", keys[0].String())
	}
	if err := cfg.Validate(); err != nil {
		return base, err
	}
	return cfg, nil
}

// Validate checks values the decoder cannot.
func (c Config) Validate() error {
	switch c.Cache.Backend {
	case "", BackendFile, BackendRedis, BackendNone:
	default:
		return errors.New(errors.ErrCodeInvalidInput,
			"cache backend must be %s, %s or %s, got %q", BackendFile, BackendRedis, BackendNone, c.Cache.Backend)
	}
	switch c.Server.SessionStore {
	case "", "memory", "file":
	default:
		return errors.New(errors.ErrCodeInvalidInput, "session_store must be memory or file, got %q", c.Server.SessionStore)
	}
	if c.Defaults.DPI < 0 {
		return errors.New(errors.ErrCodeInvalidMeasurement, "dpi must be positive, got %d", c.Defaults.DPI)
	}
	if c.Defaults.Margin != "" {
		if _, err := units.ParseLength(c.Defaults.Margin); err != nil {
			return fmt.Errorf("defaults.margin: %w", err)
		}
	}
	if c.Server.MaxUploadMB < 0 {
		return errors.New(errors.ErrCodeInvalidInput, "max_upload_mb cannot be negative")
	}
	_, _, err := c.PresetSets()
	return err
}

// PresetSets returns the built-in presets extended with the user-defined
// ones. User presets replace built-ins of the same name.
func (c Config) PresetSets() (page, photo units.Presets, err error) {
	page = units.DefaultPagePresets()
	photo = units.DefaultPhotoPresets()
	if err := addPresets(page, c.Presets.Page, "presets.page"); err != nil {
		return nil, nil, err
	}
	if err := addPresets(photo, c.Presets.Photo, "presets.photo"); err != nil {
		return nil, nil, err
	}
	return page, photo, nil
}

func addPresets(dst units.Presets, src map[string]string, section string) error {
	for name, value := range src {
		size, err := units.ParseSize(value)
		if err != nil {
			return fmt.Errorf("%s.%s: %w", section, name, err)
		}
		if err := dst.Add(name, size); err != nil {
			return fmt.Errorf("%s.%s: %w", section, name, err)
		}
	}
	return nil
}
