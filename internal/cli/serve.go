package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/idsheet/internal/server"
	"github.com/matzehuels/idsheet/pkg/config"
	"github.com/matzehuels/idsheet/pkg/observability"
	"github.com/matzehuels/idsheet/pkg/session"
)

// serveCommand starts the HTTP API.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the layout and crop API over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runServe(cmd.Context(), addr, noCache)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable caching")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, addr string, noCache bool) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Addr = addr
	}

	defaults, err := baseOptions(cfg)
	if err != nil {
		return err
	}

	runner, err := c.newRunner(ctx, cfg, noCache)
	if err != nil {
		return fmt.Errorf("initialize runner: %w", err)
	}
	defer runner.Close()

	sessions, err := newSessionStore(cfg)
	if err != nil {
		return fmt.Errorf("initialize sessions: %w", err)
	}

	hooks := observability.NewLogHooks(c.Logger)
	observability.SetHTTPHooks(hooks)
	observability.SetCacheHooks(hooks)
	observability.SetLayoutHooks(hooks)
	runner.Hooks = hooks

	srv := server.New(server.Config{
		Addr:           cfg.Server.Addr,
		SessionTTL:     cfg.Server.SessionTTL.Duration,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
		Defaults:       defaults,
	}, runner, sessions, c.Logger)

	printSuccess("Serving idsheet API")
	printDetail("Address: %s", StyleLink.Render("http://"+displayAddr(srv.Addr())))
	return srv.ListenAndServe(ctx)
}

// newSessionStore opens the configured crop session store.
func newSessionStore(cfg config.Config) (session.Store, error) {
	if cfg.Server.SessionStore == "file" {
		dir := cfg.Server.SessionDir
		if dir == "" {
			base, err := cacheDir(cfg)
			if err != nil {
				return nil, err
			}
			dir = filepath.Join(base, "sessions")
		}
		return session.NewFileStore(dir)
	}
	return session.NewMemoryStore(), nil
}

// displayAddr turns ":8080" into "localhost:8080".
func displayAddr(addr string) string {
	if len(addr) > 0 && addr[0] == ':' {
		return "localhost" + addr
	}
	return addr
}
