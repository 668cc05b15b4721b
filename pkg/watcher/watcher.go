// Package watcher detects source file edits under a project root and emits
// debounced batches of changes. It owns debounce timing entirely; consumers
// read the Batches channel and never control the watcher beyond Stop.
package watcher

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/refactord/refactord/internal/types"
	"github.com/refactord/refactord/pkg/clock"
)

// Config configures a Watcher
type Config struct {
	// Root is the project directory watched recursively
	Root string
	// Patterns are doublestar globs a path must match to be reported;
	// empty means every file matches
	Patterns []string
	// Ignored are doublestar globs (or path prefixes) that exclude a path
	Ignored []string
	// Debounce is how long the watcher waits after the last event before
	// flushing the pending batch
	Debounce time.Duration
	// BatchBuffer is the capacity of the Batches channel
	BatchBuffer int
}

// DefaultConfig returns the standard watcher configuration for a root
func DefaultConfig(root string) Config {
	return Config{
		Root:        root,
		Patterns:    []string{"**/*"},
		Ignored:     []string{"**/node_modules/**", "**/.git/**", "**/vendor/**"},
		Debounce:    500 * time.Millisecond,
		BatchBuffer: 16,
	}
}

// Watcher watches a directory tree and emits debounced FileChange batches
type Watcher struct {
	config  Config
	clock   clock.Clock
	log     zerolog.Logger
	fsw     *fsnotify.Watcher
	batches chan []types.FileChange
	errs    chan error
	done    chan struct{}

	mu      sync.Mutex
	pending map[string]types.FileChange
	stopped bool
}

// New creates a watcher over the configured root. Call Start to begin
// watching and Stop to shut down.
func New(config Config, clk clock.Clock, log zerolog.Logger) (*Watcher, error) {
	if config.Root == "" {
		return nil, fmt.Errorf("watcher root is required")
	}
	if clk == nil {
		clk = clock.NewRealClock()
	}
	if config.BatchBuffer <= 0 {
		config.BatchBuffer = 16
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	return &Watcher{
		config:  config,
		clock:   clk,
		log:     log.With().Str("component", "watcher").Logger(),
		fsw:     fsw,
		batches: make(chan []types.FileChange, config.BatchBuffer),
		errs:    make(chan error, 1),
		done:    make(chan struct{}),
		pending: make(map[string]types.FileChange),
	}, nil
}

// Batches is the stream of debounced change batches
func (w *Watcher) Batches() <-chan []types.FileChange {
	return w.batches
}

// Errors reports watcher failures; the watch loop keeps running after them
func (w *Watcher) Errors() <-chan error {
	return w.errs
}

// Start registers the directory tree and launches the watch loop
func (w *Watcher) Start() error {
	count, err := w.addRecursive(w.config.Root)
	if err != nil {
		return err
	}
	w.log.Info().Int("directories", count).Str("root", w.config.Root).Msg("watching project")

	go w.loop()
	return nil
}

// Stop shuts the watcher down. Pending changes that have not been flushed
// are discarded; batches already emitted remain readable.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	w.mu.Unlock()

	close(w.done)
	return w.fsw.Close()
}

// addRecursive registers root and every non-ignored directory below it
func (w *Watcher) addRecursive(root string) (int, error) {
	count := 0
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if w.ignored(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			w.log.Warn().Err(err).Str("path", path).Msg("failed to watch directory")
			return nil
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("failed to register watch tree: %w", err)
	}
	return count, nil
}

// loop drains fsnotify events, accumulates pending changes and flushes a
// batch once the debounce window elapses without further events.
func (w *Watcher) loop() {
	var flush <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if change, relevant := w.classify(event); relevant {
				w.mu.Lock()
				w.pending[change.Path] = change
				w.mu.Unlock()
				flush = w.clock.After(w.config.Debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			select {
			case w.errs <- err:
			default:
				w.log.Warn().Err(err).Msg("dropping watcher error, channel full")
			}

		case <-flush:
			flush = nil
			w.flushPending()
		}
	}
}

// classify maps an fsnotify event onto a FileChange, filtering irrelevant paths
func (w *Watcher) classify(event fsnotify.Event) (types.FileChange, bool) {
	if w.ignored(event.Name) || !w.matches(event.Name) {
		return types.FileChange{}, false
	}

	var kind types.ChangeKind
	switch {
	case event.Op.Has(fsnotify.Create):
		kind = types.ChangeCreated
		// a created directory extends the watch tree
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addRecursive(event.Name); err != nil {
				w.log.Warn().Err(err).Str("path", event.Name).Msg("failed to extend watch tree")
			}
			return types.FileChange{}, false
		}
	case event.Op.Has(fsnotify.Write):
		kind = types.ChangeModified
	case event.Op.Has(fsnotify.Remove), event.Op.Has(fsnotify.Rename):
		kind = types.ChangeDeleted
	default:
		return types.FileChange{}, false
	}

	rel, err := filepath.Rel(w.config.Root, event.Name)
	if err != nil {
		rel = event.Name
	}

	return types.FileChange{
		Path:      filepath.ToSlash(rel),
		Kind:      kind,
		Timestamp: w.clock.Now(),
	}, true
}

// flushPending emits the accumulated changes as one batch
func (w *Watcher) flushPending() {
	w.mu.Lock()
	if len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	batch := make([]types.FileChange, 0, len(w.pending))
	for _, change := range w.pending {
		batch = append(batch, change)
	}
	w.pending = make(map[string]types.FileChange)
	w.mu.Unlock()

	select {
	case w.batches <- batch:
	case <-w.done:
	}
}

// matches reports whether a path matches any include pattern
func (w *Watcher) matches(path string) bool {
	if len(w.config.Patterns) == 0 {
		return true
	}
	rel := w.relSlash(path)
	for _, pattern := range w.config.Patterns {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
	}
	return false
}

// ignored reports whether a path matches any exclusion
func (w *Watcher) ignored(path string) bool {
	rel := w.relSlash(path)
	for _, pattern := range w.config.Ignored {
		if ok, err := doublestar.Match(pattern, rel); err == nil && ok {
			return true
		}
		if strings.HasPrefix(rel, strings.TrimSuffix(pattern, "/**")+"/") {
			return true
		}
	}
	return false
}

func (w *Watcher) relSlash(path string) string {
	rel, err := filepath.Rel(w.config.Root, path)
	if err != nil {
		rel = path
	}
	return filepath.ToSlash(rel)
}
