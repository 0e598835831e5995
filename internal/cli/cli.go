// Package cli implements the idsheet command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/idsheet/pkg/buildinfo"
	"github.com/matzehuels/idsheet/pkg/cache"
	"github.com/matzehuels/idsheet/pkg/config"
	"github.com/matzehuels/idsheet/pkg/pipeline"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "idsheet"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "idsheet lays out ID photos on a printable sheet",
		Long: `idsheet packs copies of an ID photo onto a print page: it converts the
physical sizes to pixels, picks the page orientation that fits the most
copies, centers the grid and renders the sheet as PNG, JPEG or JSON.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/idsheet/config.toml)")

	// Register all subcommands
	root.AddCommand(c.layoutCommand())
	root.AddCommand(c.renderCommand())
	root.AddCommand(c.presetsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Configuration
// =============================================================================

// loadConfig loads the configuration file once per process.
func (c *CLI) loadConfig() (config.Config, error) {
	if c.cfg != nil {
		return *c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return cfg, fmt.Errorf("load config: %w", err)
	}
	c.cfg = &cfg
	return cfg, nil
}

// baseOptions returns pipeline options seeded from the config defaults and
// the configured presets.
func baseOptions(cfg config.Config) (pipeline.Options, error) {
	page, photo, err := cfg.PresetSets()
	if err != nil {
		return pipeline.Options{}, err
	}
	d := cfg.Defaults
	return pipeline.Options{
		Photo:         d.Photo,
		Page:          d.Page,
		DPI:           d.DPI,
		Margin:        d.Margin,
		Formats:       append([]string(nil), d.Formats...),
		Quality:       d.Quality,
		Interpolation: d.Interpolation,
		PagePresets:   page,
		PhotoPresets:  photo,
	}, nil
}

// measureFlags are the layout flags shared by layout and render.
type measureFlags struct {
	photo  string
	page   string
	dpi    int
	margin string
}

func (f *measureFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.photo, "photo", "p", "", "photo preset or size, e.g. 3.5x4.5 or 2x2in (default from config)")
	cmd.Flags().StringVar(&f.page, "page", "", "page preset or size, e.g. 4x6 or A4 (default from config)")
	cmd.Flags().IntVar(&f.dpi, "dpi", 0, "print resolution in dots per inch (default from config)")
	cmd.Flags().StringVarP(&f.margin, "margin", "m", "", "gap between photos, e.g. 3mm (default from config)")
}

// apply overrides opts with the flags the user set.
func (f *measureFlags) apply(opts *pipeline.Options) {
	if f.photo != "" {
		opts.Photo = f.photo
	}
	if f.page != "" {
		opts.Page = f.page
	}
	if f.dpi != 0 {
		opts.DPI = f.dpi
	}
	if f.margin != "" {
		opts.Margin = f.margin
	}
}

// =============================================================================
// Runner Factory
// =============================================================================

// newRunner creates a pipeline runner for CLI use.
func (c *CLI) newRunner(ctx context.Context, cfg config.Config, noCache bool) (*pipeline.Runner, error) {
	cache, err := newCache(ctx, cfg, noCache)
	if err != nil {
		return nil, err
	}
	runner := pipeline.NewRunner(cache, nil, c.Logger)
	runner.ArtifactTTL = cfg.Cache.TTL.Duration
	return runner, nil
}

// newCache opens the configured cache backend. A file cache that cannot
// locate its directory degrades to no caching.
func newCache(ctx context.Context, cfg config.Config, noCache bool) (cache.Cache, error) {
	if noCache {
		return cache.NewNullCache(), nil
	}
	switch cfg.Cache.Backend {
	case config.BackendNone:
		return cache.NewNullCache(), nil
	case config.BackendRedis:
		return cache.NewRedisCache(ctx, cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
			Prefix:   cfg.Cache.RedisPrefix,
		})
	}
	dir, err := cacheDir(cfg)
	if err != nil {
		return cache.NewNullCache(), nil
	}
	return cache.NewFileCache(dir)
}

// =============================================================================
// Paths
// =============================================================================

// cacheDir returns the file cache directory: the configured one, or the XDG
// default (~/.cache/idsheet/).
func cacheDir(cfg config.Config) (string, error) {
	if cfg.Cache.Dir != "" {
		return cfg.Cache.Dir, nil
	}
	if cacheHome := os.Getenv("XDG_CACHE_HOME"); cacheHome != "" {
		return filepath.Join(cacheHome, appName), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".cache", appName), nil
}

// =============================================================================
// Options Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
// An empty string leaves the configured formats in place (nil).
func parseFormats(s string) []string {
	if s == "" {
		return nil
	}
	var formats []string
	for _, f := range strings.Split(s, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, f)
		}
	}
	return formats
}
