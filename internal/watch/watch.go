// Package watch registers images dropped into an inbox directory.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"shield-go/internal/model"
	"shield-go/internal/shield"
)

// DefaultDebounce is how long a file must stay unchanged before it is registered.
const DefaultDebounce = 500 * time.Millisecond

// Registrar stores a new protected asset. *shield.Service satisfies it.
type Registrar interface {
	RegisterAsset(path *shield.Path) (*model.ProtectedAsset, error)
}

// Result reports the outcome of one automatic registration.
type Result struct {
	Path  string
	Asset *model.ProtectedAsset
	Err   error
}

// Watcher watches a single directory (not its subdirectories) and registers
// image files once writes to them have settled.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	fsmgr     shield.FilesystemManager
	registrar Registrar
	logger    shield.Logger
	debounce  time.Duration

	// path -> time of the last write seen
	pending   map[string]time.Time
	pendingMu sync.Mutex

	results chan Result
}

// New creates a Watcher for dir. A non-positive debounce uses DefaultDebounce.
func New(dir string, fsmgr shield.FilesystemManager, registrar Registrar, logger shield.Logger, debounce time.Duration) (*Watcher, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving inbox path: %w", err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       absDir,
		fsmgr:     fsmgr,
		registrar: registrar,
		logger:    logger,
		debounce:  debounce,
		pending:   make(map[string]time.Time),
		results:   make(chan Result, 100),
	}, nil
}

// Results returns the channel of registration outcomes, one per attempted
// registration; ignored files produce none. Results are dropped when nobody
// reads them and the buffer is full. The channel is closed when Run returns.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Run watches the inbox until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer close(w.results)
	defer w.fsWatcher.Close()

	root, err := w.fsmgr.Resolve(w.dir)
	if err != nil {
		return fmt.Errorf("resolving inbox: %w", err)
	}
	if !root.IsDir() {
		return fmt.Errorf("inbox is not a directory: %s", w.dir)
	}
	if err := w.fsWatcher.Add(w.dir); err != nil {
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}
	w.logger.Info("watching inbox", "dir", w.dir, "debounce", w.debounce)

	ticker := time.NewTicker(max(w.debounce/2, 10*time.Millisecond))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(event)

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "dir", w.dir, "error", err)

		case now := <-ticker.C:
			w.registerSettled(now)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	if event.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		delete(w.pending, event.Name)
		return
	}
	if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if filepath.Dir(event.Name) != w.dir || !shield.IsImageFile(event.Name) {
		return
	}
	w.pending[event.Name] = time.Now()
}

// registerSettled registers every pending file that has not changed for a full debounce period.
func (w *Watcher) registerSettled(now time.Time) {
	w.pendingMu.Lock()
	var ready []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.debounce {
			ready = append(ready, path)
			delete(w.pending, path)
		}
	}
	w.pendingMu.Unlock()

	for _, path := range ready {
		w.register(path)
	}
}

func (w *Watcher) register(rawPath string) {
	path, err := w.fsmgr.Resolve(rawPath)
	if err != nil {
		w.logger.Warn("inbox file vanished", "path", rawPath, "error", err)
		w.send(Result{Path: rawPath, Err: err})
		return
	}
	if path.IsDir() {
		return
	}
	ignored, err := w.fsmgr.IsIgnored(path, w.dir)
	if err != nil {
		w.logger.Warn("checking ignore rules", "path", rawPath, "error", err)
		w.send(Result{Path: rawPath, Err: err})
		return
	}
	if ignored {
		w.logger.Debug("inbox file ignored", "path", rawPath)
		return
	}

	asset, err := w.registrar.RegisterAsset(path)
	if err != nil {
		w.logger.Error("registering inbox file", "path", rawPath, "error", err)
		w.send(Result{Path: rawPath, Err: err})
		return
	}
	w.logger.Info("inbox file registered", "path", rawPath, "asset", asset.ID)
	w.send(Result{Path: rawPath, Asset: asset})
}

// send reports a result without blocking the event loop.
func (w *Watcher) send(r Result) {
	select {
	case w.results <- r:
	default:
		w.logger.Warn("dropping watch result, nobody is reading", "path", r.Path)
	}
}
