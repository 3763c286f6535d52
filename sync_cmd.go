package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/we-worker/All-In-One-Web/internal/syncer"
)

// watchDebounce batches rapid bursts of local writes into one sync run.
const watchDebounce = 2 * time.Second

// newSyncCmd reconciles every out-of-sync module once, or continuously
// with --watch.
func newSyncCmd() *cobra.Command {
	var flagWatch bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile out-of-sync modules (push or pull per module)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}

			if !flagWatch {
				return engine.AutoSync(ctx)
			}

			return watchLoop(ctx, a, engine)
		},
	}

	cmd.Flags().BoolVar(&flagWatch, "watch", false, "keep running and sync on local changes")

	return cmd
}

// watchLoop runs AutoSync whenever the data directory changes, with a
// poll-interval ticker as a fallback for events the watcher misses.
func watchLoop(ctx context.Context, a *app, engine *syncer.Engine) error {
	interval, err := a.cfg.PollDuration()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(a.cfg.DataDir); err != nil {
		return fmt.Errorf("watching %s: %w", a.cfg.DataDir, err)
	}

	if err := engine.AutoSync(ctx); err != nil {
		a.logger.Warn("sync failed", slog.String("error", err.Error()))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var debounce *time.Timer

	runs := make(chan struct{}, 1)

	trigger := func() {
		select {
		case runs <- struct{}{}:
		default:
		}
	}

	statusf("watching %s (poll every %s)\n", a.cfg.DataDir, interval)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return errors.New("watcher closed")
			}

			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// Reset the debounce window on every event so a burst of
			// writes produces one sync run.
			if debounce != nil {
				debounce.Stop()
			}

			debounce = time.AfterFunc(watchDebounce, trigger)
		case err, ok := <-watcher.Errors:
			if !ok {
				return errors.New("watcher closed")
			}

			a.logger.Warn("watcher error", slog.String("error", err.Error()))
		case <-ticker.C:
			trigger()
		case <-runs:
			if err := engine.AutoSync(ctx); err != nil {
				a.logger.Warn("sync failed", slog.String("error", err.Error()))
			}
		}
	}
}

// newPushCmd pushes modules to the remote unconditionally.
func newPushCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "push [module...]",
		Short: "Push modules to the remote (all modules when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDirectional(cmd.Context(), args, pushDirection)
		},
	}
}

// newPullCmd pulls modules from the remote unconditionally.
func newPullCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "pull [module...]",
		Short: "Pull modules from the remote (all modules when none given)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDirectional(cmd.Context(), args, pullDirection)
		},
	}
}

type direction int

const (
	pushDirection direction = iota
	pullDirection
)

func runDirectional(ctx context.Context, names []string, dir direction) error {
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	engine, err := a.engine(ctx)
	if err != nil {
		return err
	}

	if len(names) == 0 {
		if dir == pushDirection {
			return engine.PushAll(ctx)
		}

		return engine.PullAll(ctx)
	}

	var errs []error

	for _, name := range names {
		m, ok := engine.Module(name)
		if !ok {
			errs = append(errs, fmt.Errorf("unknown module %q", name))
			continue
		}

		if dir == pushDirection {
			err = engine.PushModule(ctx, m)
		} else {
			err = engine.PullModule(ctx, m)
		}

		if err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

// newCleanupCmd removes every module's envelope file from the remote.
func newCleanupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete all sync files from the remote repository",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			engine, err := a.engine(ctx)
			if err != nil {
				return err
			}

			if err := engine.Cleanup(ctx); err != nil {
				return err
			}

			statusf("removed remote sync files\n")

			return nil
		},
	}
}
