package main

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/hlop3z/tablegate/internal/alerr"
	"github.com/hlop3z/tablegate/internal/cli"
	"github.com/hlop3z/tablegate/pkg/tablegate"
)

const watchDebounce = 300 * time.Millisecond

// planCmd prints the statements migrate would run.
func planCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the statements migrate would run",
		Long: `Print the DDL migrate would execute, without taking the lock or changing
the database. With --watch the plan is printed again whenever a definition
file changes.`,
		Example: `  # Preview the next migration
  tablegate plan

  # Re-plan on every save
  tablegate plan --watch`,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(cmd)
			if err != nil {
				return err
			}
			eng, closeDB, err := e.engine(cmd.Context())
			if err != nil {
				return err
			}
			defer closeDB()

			if !watch {
				return e.plan(cmd.Context(), eng)
			}
			return e.watch(cmd.Context(), eng)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "Re-plan when definition files change")
	return cmd
}

func (e *env) plan(ctx context.Context, eng *tablegate.Engine) error {
	set, err := e.definitions()
	if err != nil {
		return err
	}
	res, err := eng.Plan(ctx, set.Tables)
	if err != nil {
		return set.Annotate(err)
	}
	fmt.Fprint(e.out, formatResult(res, false))
	return nil
}

// watch plans once, then again after each burst of file events. Plan errors
// are printed and watching continues.
func (e *env) watch(ctx context.Context, eng *tablegate.Engine) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return alerr.Wrap(alerr.EInternalError, err, "failed to start file watcher")
	}
	defer watcher.Close()

	if err := addWatchDirs(watcher, e.cfg.Definitions); err != nil {
		return err
	}
	fmt.Fprintln(e.out, cli.Info(fmt.Sprintf(MsgWatching, e.cfg.Definitions)))

	replan := func() {
		if err := e.plan(ctx, eng); err != nil {
			fmt.Fprint(e.out, cli.FormatError(err))
		}
	}
	replan()

	timer := time.NewTimer(watchDebounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				timer.Reset(watchDebounce)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			e.logger.Warn("file watcher error", "error", err)
		case <-timer.C:
			e.logger.Info(MsgWatchReloaded)
			replan()
		}
	}
}

// addWatchDirs watches path's directory tree. A single file is watched
// through its parent so editors that save by rename are seen.
func addWatchDirs(w *fsnotify.Watcher, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return alerr.Wrap(alerr.ErrConfigRead, err, "failed to read definitions").With("path", path)
	}
	if !info.IsDir() {
		path = filepath.Dir(path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(p); err != nil {
			return alerr.Wrap(alerr.ErrConfigRead, err, "failed to watch directory").With("path", p)
		}
		return nil
	})
}
