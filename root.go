// Command aiosync keeps the local data modules of All-In-One-Web (tasks,
// habits, bookmarks, calendar, pomodoro, settings) consistent with JSON
// envelope files in a GitHub or Gitee repository.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/we-worker/All-In-One-Web/internal/appconfig"
	"github.com/we-worker/All-In-One-Web/internal/credstore"
	"github.com/we-worker/All-In-One-Web/internal/remote"
	"github.com/we-worker/All-In-One-Web/internal/reqcache"
	"github.com/we-worker/All-In-One-Web/internal/store"
	"github.com/we-worker/All-In-One-Web/internal/syncer"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// httpClientTimeout prevents hung connections from blocking CLI commands
// indefinitely.
const httpClientTimeout = 30 * time.Second

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: httpClientTimeout}
}

// app bundles the long-lived pieces every command needs: configuration,
// the local store, the credential store, and the logger.
type app struct {
	cfg    *appconfig.Config
	store  *store.Store
	creds  *credstore.Store
	logger *slog.Logger
}

// openApp loads configuration, sets up logging, and opens the local store.
// Callers must Close().
func openApp(ctx context.Context) (*app, error) {
	cfgPath := flagConfigPath
	if cfgPath == "" {
		cfgPath = appconfig.DefaultConfigPath()
	}

	cfg, err := appconfig.LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	logger := newLogger(cfg.LogLevel)

	st, err := store.Open(ctx, store.Path(cfg.DataDir), logger)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:    cfg,
		store:  st,
		creds:  credstore.New(st, logger),
		logger: logger,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("closing store", slog.String("error", err.Error()))
	}
}

// adapter loads saved credentials and builds a provider adapter over them.
func (a *app) adapter(ctx context.Context) (*remote.Adapter, error) {
	cfg, err := a.creds.Load(ctx)
	if err != nil {
		return nil, err
	}

	if cfg == nil {
		return nil, fmt.Errorf("%w (run 'aiosync login' first)", remote.ErrNoConfig)
	}

	return remote.NewAdapter(*cfg, "", defaultHTTPClient(), reqcache.New(reqcache.DefaultTTL), a.logger), nil
}

// engine assembles the sync engine over the adapter and the fixed module
// registry.
func (a *app) engine(ctx context.Context) (*syncer.Engine, error) {
	adapter, err := a.adapter(ctx)
	if err != nil {
		return nil, err
	}

	modules := store.DefaultModules(a.store)

	registered := make([]syncer.Module, len(modules))
	for i, m := range modules {
		registered[i] = m
	}

	registry, err := syncer.NewRegistry(registered...)
	if err != nil {
		return nil, err
	}

	return syncer.New(adapter, registry, a.logger), nil
}

// newLogger builds the process logger. --verbose forces debug, --quiet
// forces error, otherwise the configured level applies.
func newLogger(configured string) *slog.Logger {
	level := slog.LevelInfo

	switch {
	case flagVerbose:
		level = slog.LevelDebug
	case flagQuiet:
		level = slog.LevelError
	default:
		switch configured {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newRootCmd builds the fully-assembled root command. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "aiosync",
		Short:   "Sync All-In-One-Web data with a GitHub or Gitee repository",
		Version: version,
		// Silence cobra's default error/usage printing — main() handles it.
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.AddCommand(newLoginCmd())
	cmd.AddCommand(newLogoutCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newPushCmd())
	cmd.AddCommand(newPullCmd())
	cmd.AddCommand(newCleanupCmd())

	return cmd
}
