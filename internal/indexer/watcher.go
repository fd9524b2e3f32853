package indexer

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// DefaultDebounce batches rapid editor saves into one reindex.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches the workspace for source changes and invokes a
// callback with the batch of changed files after a debounce window.
type Watcher struct {
	root      string
	discovery *Discovery
	onChange  func(ctx context.Context, changed []string)
	debounce  time.Duration

	watcher  *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewWatcher creates a watcher over the root. The callback receives
// root-relative paths of files that changed since the last invocation.
func NewWatcher(root string, discovery *Discovery, debounce time.Duration, onChange func(ctx context.Context, changed []string)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	w := &Watcher{
		root:      root,
		discovery: discovery,
		onChange:  onChange,
		debounce:  debounce,
		watcher:   fsw,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
	if err := w.watchTree(root); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Start begins the event loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.run(ctx)
}

// Stop shuts the watcher down and waits for the event loop to exit.
// Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		<-w.doneCh
		w.watcher.Close()
	})
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	changed := make(map[string]struct{})

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return

		case <-w.stopCh:
			if timer != nil {
				timer.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}

			// New directories join the watch set immediately so files
			// created inside them are not missed.
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.watchTree(event.Name); err != nil {
						log.Warn().Err(err).Str("dir", event.Name).Msg("watching new directory failed")
					}
					continue
				}
			}

			rel, relevant := w.relevantEvent(event)
			if !relevant {
				continue
			}
			changed[rel] = struct{}{}

			if timer != nil && !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
			timer = time.AfterFunc(w.debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})

		case <-fire:
			if len(changed) == 0 {
				continue
			}
			batch := make([]string, 0, len(changed))
			for path := range changed {
				batch = append(batch, path)
			}
			sort.Strings(batch)
			changed = make(map[string]struct{})

			log.Info().Int("files", len(batch)).Msg("changes detected, reindexing")
			w.onChange(ctx, batch)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("watch error")
		}
	}
}

// relevantEvent maps an fsnotify event to a root-relative path when it
// concerns an indexable file.
func (w *Watcher) relevantEvent(event fsnotify.Event) (string, bool) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return "", false
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return "", false
	}
	rel = filepath.ToSlash(rel)
	return rel, w.discovery.Matches(rel)
}

// watchTree registers every directory under path, skipping ignored
// subtrees. Individual registration failures are logged, not fatal.
func (w *Watcher) watchTree(path string) error {
	return filepath.Walk(path, func(dir string, info os.FileInfo, err error) error {
		if err != nil {
			log.Warn().Err(err).Str("path", dir).Msg("walk error")
			return nil
		}
		if !info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(w.root, dir)
		if err != nil {
			return nil
		}
		if rel != "." && w.discovery.ShouldIgnore(filepath.ToSlash(rel)) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(dir); err != nil {
			log.Warn().Err(err).Str("dir", dir).Msg("watch add failed")
		}
		return nil
	})
}
