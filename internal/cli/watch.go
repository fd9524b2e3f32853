package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mvp-joe/ariadne/internal/config"
	"github.com/mvp-joe/ariadne/internal/indexer"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Index the workspace and reindex on file changes",
	Long: `Watch performs a full index, then monitors the workspace for changes
to supported source files and rebuilds the snapshot after each batch of
changes. Edits arriving in quick succession are debounced into one run.

Example:
  ariadne watch`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and non-error output")
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	rootDir, err := workspaceRoot()
	if err != nil {
		return err
	}
	cfg, err := config.Load(rootDir)
	if err != nil {
		return err
	}

	ix, err := newIndexer(rootDir, cfg)
	if err != nil {
		return err
	}

	snapshot, err := ix.Index(ctx)
	if err != nil {
		return err
	}
	if err := saveSnapshot(ctx, cfg, snapshot); err != nil {
		return err
	}
	if !quietFlag {
		printStats(cmd, snapshot.Stats)
	}

	// A change batch triggers a full rebuild. Deleted and renamed files
	// drop out naturally because discovery runs again.
	onChange := func(ctx context.Context, changed []string) {
		log.Info().Int("files", len(changed)).Msg("changes detected, reindexing")
		snapshot, err := ix.Index(ctx)
		if err != nil {
			log.Error().Err(err).Msg("reindex failed")
			return
		}
		if err := saveSnapshot(ctx, cfg, snapshot); err != nil {
			log.Error().Err(err).Msg("saving snapshot failed")
			return
		}
		if !quietFlag {
			printStats(cmd, snapshot.Stats)
		}
	}

	debounce := time.Duration(cfg.Indexer.DebounceMs) * time.Millisecond
	watcher, err := indexer.NewWatcher(rootDir, ix.Discovery(), debounce, onChange)
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	watcher.Start(ctx)
	defer watcher.Stop()

	if !quietFlag {
		fmt.Fprintln(cmd.OutOrStdout(), "Watching for changes. Press Ctrl+C to stop.")
	}
	<-ctx.Done()
	return nil
}
