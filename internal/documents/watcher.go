package documents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for a burst of writes to settle
const DefaultDebounce = 500 * time.Millisecond

// batchBuffer is the number of undelivered batches the watcher holds
const batchBuffer = 16

// Watcher observes an inbox directory and emits debounced batches of new or
// modified document files. Removed files are ignored: discovery never
// forgets a document once analyzed.
type Watcher struct {
	source   *DirSource
	debounce time.Duration
	watcher  *fsnotify.Watcher
	logger   *slog.Logger

	pendingMu sync.Mutex
	pending   map[string]time.Time

	hashMu sync.Mutex
	hashes map[string]string

	batches chan []string
}

// NewWatcher creates a watcher over source's root directory
func NewWatcher(source *DirSource, debounce time.Duration, logger *slog.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		source:   source,
		debounce: debounce,
		watcher:  fsw,
		logger:   logger,
		pending:  make(map[string]time.Time),
		hashes:   make(map[string]string),
		batches:  make(chan []string, batchBuffer),
	}, nil
}

// Batches returns debounced batches of absolute file paths. The channel is
// closed when the watcher stops.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// Seed records the current content of paths so an unchanged rewrite isn't
// reported as a change
func (w *Watcher) Seed(paths ...string) {
	for _, p := range paths {
		if data, err := os.ReadFile(p); err == nil {
			w.changed(p, data)
		}
	}
}

// Start adds watches for the tree under the root and processes events until
// ctx is done or Stop is called
func (w *Watcher) Start(ctx context.Context) error {
	if err := os.MkdirAll(w.source.Root, 0755); err != nil {
		return err
	}
	if err := w.addRecursive(w.source.Root); err != nil {
		return err
	}

	go w.loop(ctx)

	w.logger.Info("watching for documents", "dir", w.source.Root, "debounce", w.debounce)
	return nil
}

// Stop closes the underlying watcher
func (w *Watcher) Stop() error {
	return w.watcher.Close()
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := w.watcher.Add(path); err != nil {
			w.logger.Warn("failed to watch directory", "path", path, "error", err)
		}
		return nil
	})
}

func skipDir(name string) bool {
	return defaultExcludes[name] || strings.HasPrefix(name, ".")
}

func (w *Watcher) loop(ctx context.Context) {
	defer close(w.batches)
	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(ev)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)

		case now := <-ticker.C:
			if batch := w.flush(now); len(batch) > 0 {
				select {
				case w.batches <- batch:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return
	}

	if !w.source.Matches(ev.Name) {
		if ev.Has(fsnotify.Create) {
			if info, err := os.Stat(ev.Name); err == nil && info.IsDir() && !skipDir(filepath.Base(ev.Name)) {
				if err := w.addRecursive(ev.Name); err != nil {
					w.logger.Warn("failed to watch new directory", "path", ev.Name, "error", err)
				}
			}
		}
		return
	}

	w.pendingMu.Lock()
	w.pending[ev.Name] = time.Now()
	w.pendingMu.Unlock()
}

// flush returns the files that have been quiet for the debounce window and
// whose content actually changed
func (w *Watcher) flush(now time.Time) []string {
	w.pendingMu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	var out []string
	for _, path := range ready {
		data, err := os.ReadFile(path)
		if err != nil {
			// Removed before it settled
			continue
		}
		if w.changed(path, data) {
			out = append(out, path)
		}
	}
	sort.Strings(out)
	return out
}

func (w *Watcher) changed(path string, data []byte) bool {
	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	w.hashMu.Lock()
	defer w.hashMu.Unlock()
	if w.hashes[path] == hash {
		return false
	}
	w.hashes[path] = hash
	return true
}
