package indexer

import (
	"fmt"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// ProgressReporter receives pipeline milestones. Implementations render
// progress bars, log, or stay silent.
type ProgressReporter interface {
	DiscoveryDone(files int)
	IndexingStart(total int)
	FileIndexed(path string)
	ResolvingStart(total int)
	FileResolved(path string)
	Done(stats Stats)
}

// NoopReporter discards all progress events.
type NoopReporter struct{}

func (NoopReporter) DiscoveryDone(int)   {}
func (NoopReporter) IndexingStart(int)   {}
func (NoopReporter) FileIndexed(string)  {}
func (NoopReporter) ResolvingStart(int)  {}
func (NoopReporter) FileResolved(string) {}
func (NoopReporter) Done(Stats)          {}

// BarReporter renders terminal progress bars for interactive runs.
type BarReporter struct {
	bar *progressbar.ProgressBar
}

// NewBarReporter creates a terminal progress reporter.
func NewBarReporter() *BarReporter {
	return &BarReporter{}
}

func (r *BarReporter) DiscoveryDone(files int) {
	fmt.Fprintf(os.Stderr, "discovered %d files\n", files)
}

func (r *BarReporter) IndexingStart(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("indexing"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
}

func (r *BarReporter) FileIndexed(string) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *BarReporter) ResolvingStart(total int) {
	r.bar = progressbar.NewOptions(total,
		progressbar.OptionSetDescription("resolving"),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionShowCount(),
	)
}

func (r *BarReporter) FileResolved(string) {
	if r.bar != nil {
		_ = r.bar.Add(1)
	}
}

func (r *BarReporter) Done(stats Stats) {
	if r.bar != nil {
		_ = r.bar.Finish()
	}
	fmt.Fprintf(os.Stderr, "indexed %d files (%d definitions, %d references) in %s\n",
		stats.FilesIndexed, stats.Definitions, stats.References, stats.Duration.Round(time.Millisecond))
}
