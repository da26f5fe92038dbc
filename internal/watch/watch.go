// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package watch revalidates a pipeline definition whenever it changes on
// disk.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
)

// DefaultDebounce batches the burst of events an editor save produces.
const DefaultDebounce = 300 * time.Millisecond

// Change classifies a filesystem event.
type Change string

const (
	Added   Change = "added"
	Updated Change = "updated"
	Removed Change = "removed"
)

// ValidateFunc loads and checks the pipeline at path, returning the number
// of jobs it expands to.
type ValidateFunc func(ctx context.Context, path string) (int, error)

// Event is reported once per debounced change.
type Event struct {
	File   string
	Change Change
	// Validated is false when nothing was left to validate.
	Validated bool
	Jobs      int
	Err       error
}

// Watcher watches one pipeline file, or every pipeline file of a directory.
type Watcher struct {
	target   string
	dir      string
	isDir    bool
	exts     []string
	validate ValidateFunc
	debounce time.Duration

	mu      sync.Mutex
	known   map[string]bool
	pending map[string]pendingChange
}

type pendingChange struct {
	change Change
	at     time.Time
}

// New creates a watcher for target, which must exist. In directory mode
// only files with one of exts are considered.
func New(target string, exts []string, validate ValidateFunc, debounce time.Duration) (*Watcher, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", target, err)
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	w := &Watcher{
		target:   target,
		isDir:    info.IsDir(),
		exts:     exts,
		validate: validate,
		debounce: debounce,
		known:    map[string]bool{},
		pending:  map[string]pendingChange{},
	}
	if w.isDir {
		w.dir = target
		entries, err := os.ReadDir(target)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			p := filepath.Join(target, e.Name())
			if !e.IsDir() && w.relevant(p) {
				w.known[p] = true
			}
		}
	} else {
		w.dir = filepath.Dir(target)
		w.known[filepath.Clean(target)] = true
	}
	return w, nil
}

func (w *Watcher) relevant(path string) bool {
	if !w.isDir {
		return filepath.Clean(path) == filepath.Clean(w.target)
	}
	return slices.Contains(w.exts, filepath.Ext(path))
}

// Run blocks until ctx is cancelled, calling report for every change.
// The parent directory is watched so that editors that replace the file
// by rename are seen.
func (w *Watcher) Run(ctx context.Context, report func(Event)) error {
	logger := ctxlog.FromContext(ctx).With("watch", w.target)

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	logger.Info("👀 Watching pipeline for changes.")

	ticker := time.NewTicker(w.debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.record(ev)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Error("Watcher error.", "error", err)
		case now := <-ticker.C:
			for _, ev := range w.flush(ctx, now) {
				report(ev)
			}
		}
	}
}

// record maps a raw event onto a pending change. Create of a known file is
// an update; rename is a removal of the old name.
func (w *Watcher) record(ev fsnotify.Event) {
	if !w.relevant(ev.Name) {
		return
	}
	name := filepath.Clean(ev.Name)

	w.mu.Lock()
	defer w.mu.Unlock()

	var change Change
	switch {
	case ev.Has(fsnotify.Create):
		change = Added
		if w.known[name] {
			change = Updated
		}
		w.known[name] = true
	case ev.Has(fsnotify.Write):
		change = Updated
		w.known[name] = true
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		change = Removed
		delete(w.known, name)
	default:
		return
	}

	// A file removed and recreated within one window is an update.
	if prev, ok := w.pending[name]; ok && prev.change == Removed && change == Added {
		change = Updated
	}
	w.pending[name] = pendingChange{change: change, at: time.Now()}
}

// flush validates every change that has been quiet for the debounce window.
func (w *Watcher) flush(ctx context.Context, now time.Time) []Event {
	w.mu.Lock()
	var ready []Event
	for name, p := range w.pending {
		if now.Sub(p.at) < w.debounce {
			continue
		}
		delete(w.pending, name)
		ready = append(ready, Event{File: name, Change: p.change})
	}
	remaining := len(w.known)
	w.mu.Unlock()

	slices.SortFunc(ready, func(a, b Event) int {
		switch {
		case a.File < b.File:
			return -1
		case a.File > b.File:
			return 1
		}
		return 0
	})
	for i := range ready {
		if ready[i].Change == Removed && (!w.isDir || remaining == 0) {
			continue
		}
		ready[i].Jobs, ready[i].Err = w.validate(ctx, w.target)
		ready[i].Validated = true
	}
	return ready
}
