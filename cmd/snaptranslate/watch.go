package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/snaptranslate/internal/api"
	"github.com/jackzampolin/snaptranslate/internal/config"
	"github.com/jackzampolin/snaptranslate/internal/inbox"
	"github.com/jackzampolin/snaptranslate/internal/pipeline"
	"github.com/jackzampolin/snaptranslate/internal/session"
)

var (
	watchFlagSet  runFlags
	watchExisting bool
)

var watchCmd = &cobra.Command{
	Use:   "watch [DIR]",
	Short: "Process files as they arrive in an inbox directory",
	Long: `Watch a directory (default: {home}/inbox). Each batch of new files is
ingested into one long-lived session, a batch run recognizes the new pages,
and the exports are rewritten with every page seen so far.

Config file changes are picked up between runs: providers and run options
apply to the next batch; a run in progress keeps its settings.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := slog.Default()

		a, err := newApp(logger, watchFlagSet.apply(cmd))
		if err != nil {
			return err
		}
		if err := a.home.EnsureExists(); err != nil {
			return err
		}

		dir := a.home.InboxDir()
		if len(args) == 1 {
			dir = args[0]
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create inbox: %w", err)
		}

		a.config.OnChange(func(*config.Config) {
			if err := a.providers.Reload(a.current().ToProviderRegistryConfig()); err != nil {
				logger.Error("keeping previous providers", "error", err)
			}
		})
		a.config.WatchConfig()

		sess := a.newSession(a.current(), watchFlagSet)
		logger.Info("watching inbox", "dir", dir, "session_id", sess.ID)

		w := inbox.New(inbox.Config{Dir: dir, IncludeExisting: watchExisting, Logger: logger})
		return w.Run(ctx, func(ctx context.Context, paths []string) error {
			return a.processBatch(ctx, sess, paths)
		})
	},
}

func init() {
	watchFlagSet.register(watchCmd)
	watchCmd.Flags().BoolVar(&watchExisting, "existing", false, "also process files already in the inbox")

	rootCmd.AddCommand(watchCmd)
}

// processBatch ingests paths, runs the batch and rewrites the exports.
// Only cancellation is returned as an error; everything else is logged so
// the watcher keeps going.
func (a *app) processBatch(ctx context.Context, sess *session.Session, paths []string) error {
	res, err := sess.AddPaths(ctx, paths)
	if err != nil {
		return err
	}
	for _, f := range res.Failures {
		a.logger.Warn("file rejected", "file", f.File, "reason", f.Reason)
	}

	summary, err := sess.Run(ctx, a.current().RunOptions())
	switch {
	case errors.Is(err, pipeline.ErrNothingToDo):
		return nil
	case ctx.Err() != nil:
		return nil
	case err != nil:
		a.logger.Error("run failed", "error", err)
		return nil
	}

	report := runReport{Session: sess.ID, Rejected: rejected(res), Summary: summary}
	exp, err := exportAll(ctx, sess, "", "")
	if err != nil {
		a.logger.Error("export failed", "error", err)
	}
	report.Exports = exp
	if err := api.Output(report); err != nil {
		a.logger.Warn("failed to print report", "error", err)
	}
	return nil
}
