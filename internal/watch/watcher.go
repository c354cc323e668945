// Package watch reports working tree changes as they happen.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/zeebo/xxh3"
	"go.uber.org/zap"

	"pit/internal/workspace"
)

const defaultDebounce = 150 * time.Millisecond

// Watcher watches every non-ignored directory of a workspace. Writes that
// leave a file's content unchanged are dropped by comparing xxh3
// fingerprints.
type Watcher struct {
	ws      *workspace.LocalWorkspace
	watcher *fsnotify.Watcher
	logger  *zap.Logger

	// Debounce collects events arriving within this window into one batch.
	Debounce time.Duration

	mu           sync.Mutex
	fingerprints map[string]xxh3.Uint128
}

func New(ws *workspace.LocalWorkspace, logger *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	w := &Watcher{
		ws:           ws,
		watcher:      fw,
		logger:       logger,
		Debounce:     defaultDebounce,
		fingerprints: make(map[string]xxh3.Uint128),
	}
	if err := w.addTree("."); err != nil {
		fw.Close()
		return nil, err
	}
	for _, f := range ws.Files(".") {
		w.changed(f)
	}
	return w, nil
}

// addTree registers dir and every non-ignored directory below it.
func (w *Watcher) addTree(dir string) error {
	queue := []string{dir}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		abs := filepath.Join(w.ws.Root, filepath.FromSlash(cur))
		if err := w.watcher.Add(abs); err != nil {
			return fmt.Errorf("adding directory to watcher: %w", err)
		}

		entries, err := os.ReadDir(abs)
		if err != nil {
			w.logger.Warn("cannot read directory", zap.String("dir", cur), zap.Error(err))
			continue
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			rel := e.Name()
			if cur != "." {
				rel = cur + "/" + e.Name()
			}
			if !w.ws.Ignored(rel, true) {
				queue = append(queue, rel)
			}
		}
	}
	return nil
}

// changed records the fingerprint of rel and reports whether it differs
// from the last one seen. A missing file counts as a change when it was
// known before.
func (w *Watcher) changed(rel string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	data, err := w.ws.ReadFile(rel)
	if err != nil {
		_, known := w.fingerprints[rel]
		delete(w.fingerprints, rel)
		return known
	}
	sum := xxh3.Hash128(data)
	prev, known := w.fingerprints[rel]
	w.fingerprints[rel] = sum
	return !known || prev != sum
}

// Run delivers batches of changed paths to onChange until ctx is done.
// onChange runs on the caller's goroutine.
func (w *Watcher) Run(ctx context.Context, onChange func(paths []string)) error {
	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if rel, ok := w.handleFSEvent(event); ok {
				pending[rel] = true
				if timer == nil {
					timer = time.NewTimer(w.Debounce)
					fire = timer.C
				}
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", zap.Error(err))

		case <-fire:
			timer, fire = nil, nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			onChange(paths)
		}
	}
}

// handleFSEvent returns the relative path of an event worth reporting.
func (w *Watcher) handleFSEvent(event fsnotify.Event) (string, bool) {
	rel, err := filepath.Rel(w.ws.Root, event.Name)
	if err != nil {
		w.logger.Error("getting relative path", zap.Error(err))
		return "", false
	}
	rel = filepath.ToSlash(rel)

	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if w.ws.Ignored(rel, true) {
				return "", false
			}
			if err := w.addTree(rel); err != nil {
				w.logger.Error("adding new directory to watcher", zap.Error(err))
			}
			return rel, true
		}
	}
	if w.ws.Ignored(rel, false) {
		return "", false
	}
	if filepath.Base(rel) == workspace.IgnoreFile {
		w.ws.Reload()
	}

	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if !w.changed(rel) {
		w.logger.Debug("content unchanged", zap.String("path", rel))
		return "", false
	}
	return rel, true
}

func (w *Watcher) Close() error {
	return w.watcher.Close()
}
