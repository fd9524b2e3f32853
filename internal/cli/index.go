package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/ariadne/internal/config"
	"github.com/mvp-joe/ariadne/internal/indexer"
	"github.com/mvp-joe/ariadne/internal/parsers"
	"github.com/mvp-joe/ariadne/internal/storage"
)

var quietFlag bool

// indexCmd represents the index command
var indexCmd = &cobra.Command{
	Use:   "index [files...]",
	Short: "Index the workspace",
	Long: `Index parses every supported source file under the workspace root,
extracts definitions and references, resolves them across files, and
persists the snapshot to .ariadne/index.db.

With file arguments only the listed files are indexed; without
arguments the whole workspace is discovered.

Examples:
  # Index the current directory
  ariadne index

  # Index without progress bars
  ariadne index --quiet

  # Index a specific workspace
  ariadne index -C /path/to/project`,
	RunE: runIndex,
}

func init() {
	rootCmd.AddCommand(indexCmd)
	indexCmd.Flags().BoolVarP(&quietFlag, "quiet", "q", false, "disable progress bars and non-error output")
}

func runIndex(cmd *cobra.Command, args []string) error {
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

	var snapshot *indexer.Snapshot
	if len(args) > 0 {
		snapshot, err = ix.IndexFiles(ctx, args)
	} else {
		snapshot, err = ix.Index(ctx)
	}
	if err != nil {
		return err
	}

	if err := saveSnapshot(ctx, cfg, snapshot); err != nil {
		return err
	}

	if !quietFlag {
		printStats(cmd, snapshot.Stats)
	}
	return nil
}

// newIndexer builds an Indexer from the workspace configuration.
func newIndexer(rootDir string, cfg *config.Config) (*indexer.Indexer, error) {
	progress := indexer.ProgressReporter(indexer.NoopReporter{})
	if !quietFlag {
		progress = indexer.NewBarReporter()
	}
	return indexer.New(indexer.Options{
		Root:         rootDir,
		IncludeGlobs: cfg.Paths.Include,
		IgnoreGlobs:  cfg.Paths.Ignore,
		Workers:      cfg.Indexer.Workers,
		MaxFileSize:  cfg.Indexer.MaxFileSize,
		Progress:     progress,
		Parsers:      parsers.NewRegistry(),
	})
}

// saveSnapshot persists an indexing run under the configured location.
func saveSnapshot(ctx context.Context, cfg *config.Config, snapshot *indexer.Snapshot) error {
	path := cfg.StoragePath(snapshot.Root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating index directory: %w", err)
	}

	store, err := storage.Open(path)
	if err != nil {
		return err
	}
	defer store.Close()

	return store.Save(ctx, snapshot.Root, snapshot.Table.Files())
}

func printStats(cmd *cobra.Command, stats indexer.Stats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Indexed %d/%d files (%d failed) in %s\n",
		stats.FilesIndexed, stats.FilesDiscovered, stats.FilesFailed, stats.Duration)
	fmt.Fprintf(out, "  definitions: %d\n", stats.Definitions)
	fmt.Fprintf(out, "  references:  %d\n", stats.References)
	if stats.Warnings > 0 {
		fmt.Fprintf(out, "  warnings:    %d\n", stats.Warnings)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()
	return ctx, cancel
}
