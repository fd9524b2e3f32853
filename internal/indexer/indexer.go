// Package indexer runs the full indexing pipeline: discover source files,
// parse and extract them in parallel, merge the per-file indexes into one
// symbol table, and resolve every recorded reference against it.
package indexer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mvp-joe/ariadne/internal/parsers"
	"github.com/mvp-joe/ariadne/internal/resolve"
	"github.com/mvp-joe/ariadne/internal/semantic"
	"github.com/mvp-joe/ariadne/internal/symtab"
)

// indexDirName is the workspace-local directory holding index state.
const indexDirName = ".ariadne"

// ParserSource routes files to language parsers. *parsers.Registry is the
// production implementation.
type ParserSource interface {
	ForFile(path string) parsers.Parser
	Extensions() []string
}

// Stats summarizes one indexing run.
type Stats struct {
	FilesDiscovered int
	FilesIndexed    int
	FilesFailed     int
	Definitions     int
	References      int
	Warnings        int
	Duration        time.Duration
}

// Snapshot is the in-memory result of an indexing run: the per-file
// indexes with resolutions filled in, merged under one symbol table.
type Snapshot struct {
	Root  string
	Table *symtab.Table
	Stats Stats
}

// Options configures an Indexer.
type Options struct {
	Root         string
	IncludeGlobs []string // defaults to the registry's extensions
	IgnoreGlobs  []string
	Workers      int // defaults to GOMAXPROCS
	MaxFileSize  int64
	Progress     ProgressReporter
	Parsers      ParserSource
}

// DefaultMaxFileSize is the per-file size cap. Larger files are skipped
// with a warning; they are near-certainly generated.
const DefaultMaxFileSize = 2 << 20

// Indexer drives the pipeline for one workspace root.
type Indexer struct {
	root        string
	discovery   *Discovery
	parsers     ParserSource
	workers     int
	maxFileSize int64
	progress    ProgressReporter
}

// New creates an Indexer for the given options.
func New(opts Options) (*Indexer, error) {
	src := opts.Parsers
	if src == nil {
		src = parsers.NewRegistry()
	}

	includes := opts.IncludeGlobs
	if len(includes) == 0 {
		includes = IncludePatternsFor(src.Extensions())
	}
	discovery, err := NewDiscovery(opts.Root, includes, opts.IgnoreGlobs)
	if err != nil {
		return nil, fmt.Errorf("indexer: compiling patterns: %w", err)
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	maxFileSize := opts.MaxFileSize
	if maxFileSize <= 0 {
		maxFileSize = DefaultMaxFileSize
	}
	progress := opts.Progress
	if progress == nil {
		progress = NoopReporter{}
	}

	return &Indexer{
		root:        opts.Root,
		discovery:   discovery,
		parsers:     src,
		workers:     workers,
		maxFileSize: maxFileSize,
		progress:    progress,
	}, nil
}

// Discovery exposes the compiled file selection rules, used by the
// watcher to filter events.
func (ix *Indexer) Discovery() *Discovery { return ix.discovery }

// Index runs the full pipeline and returns the resulting snapshot.
func (ix *Indexer) Index(ctx context.Context) (*Snapshot, error) {
	start := time.Now()

	files, err := ix.discovery.Discover()
	if err != nil {
		return nil, fmt.Errorf("indexer: discovering files: %w", err)
	}
	ix.progress.DiscoveryDone(len(files))

	indexes, failed := ix.indexFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table := symtab.Merge(indexes)

	ix.resolveFiles(ctx, table)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := Stats{
		FilesDiscovered: len(files),
		FilesIndexed:    len(indexes),
		FilesFailed:     failed,
		Duration:        time.Since(start),
	}
	for _, index := range indexes {
		stats.Definitions += len(index.Definitions)
		stats.References += len(index.References)
		stats.Warnings += len(index.Warnings)
	}
	ix.progress.Done(stats)

	log.Info().
		Int("files", stats.FilesIndexed).
		Int("definitions", stats.Definitions).
		Int("references", stats.References).
		Dur("elapsed", stats.Duration).
		Msg("index complete")

	return &Snapshot{Root: ix.root, Table: table, Stats: stats}, nil
}

// IndexFiles runs extraction for an explicit file list, bypassing
// discovery. Paths are relative to the root.
func (ix *Indexer) IndexFiles(ctx context.Context, files []string) (*Snapshot, error) {
	start := time.Now()

	indexes, failed := ix.indexFiles(ctx, files)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	table := symtab.Merge(indexes)
	ix.resolveFiles(ctx, table)

	stats := Stats{
		FilesDiscovered: len(files),
		FilesIndexed:    len(indexes),
		FilesFailed:     failed,
		Duration:        time.Since(start),
	}
	return &Snapshot{Root: ix.root, Table: table, Stats: stats}, nil
}

// indexFiles parses and extracts files across the worker pool. The result
// slice preserves the input order so file ids stay deterministic.
func (ix *Indexer) indexFiles(ctx context.Context, files []string) ([]*semantic.FileIndex, int) {
	ix.progress.IndexingStart(len(files))

	type job struct {
		slot int
		path string
	}

	jobs := make(chan job)
	slots := make([]*semantic.FileIndex, len(files))

	var wg sync.WaitGroup
	for w := 0; w < ix.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				slots[j.slot] = ix.indexOne(ctx, j.path)
				ix.progress.FileIndexed(j.path)
			}
		}()
	}

feed:
	for i, path := range files {
		select {
		case jobs <- job{slot: i, path: path}:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	indexes := make([]*semantic.FileIndex, 0, len(files))
	failed := 0
	for _, index := range slots {
		if index == nil {
			failed++
			continue
		}
		indexes = append(indexes, index)
	}
	return indexes, failed
}

// indexOne parses and extracts a single file. Failures are logged and
// reported as a nil index; one unreadable file never aborts the run.
func (ix *Indexer) indexOne(ctx context.Context, relPath string) *semantic.FileIndex {
	parser := ix.parsers.ForFile(relPath)
	if parser == nil {
		log.Debug().Str("file", relPath).Msg("no parser for file")
		return nil
	}

	absPath := filepath.Join(ix.root, filepath.FromSlash(relPath))
	info, err := os.Stat(absPath)
	if err != nil {
		log.Warn().Err(err).Str("file", relPath).Msg("stat failed")
		return nil
	}
	if info.Size() > ix.maxFileSize {
		log.Warn().Str("file", relPath).Int64("size", info.Size()).Msg("file exceeds size cap, skipped")
		return nil
	}

	source, err := os.ReadFile(absPath)
	if err != nil {
		log.Warn().Err(err).Str("file", relPath).Msg("read failed")
		return nil
	}

	tree, err := parser.Parse(ctx, relPath, source)
	if err != nil {
		log.Warn().Err(err).Str("file", relPath).Msg("parse failed")
		return nil
	}

	index, err := semantic.IndexFile(relPath, tree)
	if err != nil {
		log.Warn().Err(err).Str("file", relPath).Msg("extraction failed")
		return nil
	}
	return index
}

// resolveFiles resolves references file by file across the worker pool.
// The table is immutable during resolution and each worker writes only
// into its own file's resolution slots.
func (ix *Indexer) resolveFiles(ctx context.Context, table *symtab.Table) {
	files := table.Files()
	ix.progress.ResolvingStart(len(files))

	resolver := resolve.New(table)
	jobs := make(chan *semantic.FileIndex)

	var wg sync.WaitGroup
	for w := 0; w < ix.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for file := range jobs {
				resolver.ResolveFile(file)
				ix.progress.FileResolved(file.Path)
			}
		}()
	}

feed:
	for _, file := range files {
		select {
		case jobs <- file:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()
}
