// Package watcher re-runs the batch pipeline when sources or parallel files
// under a directory change.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pragcc/pragcc/internal/discover"
)

const (
	defaultMinInterval = 1 * time.Second
	defaultMaxInterval = 60 * time.Second
)

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

type rootState struct {
	snapshot map[string]fileSnapshot
	interval time.Duration
	nextPoll time.Time
}

// RunFunc is called with a watched root when one of its files changed.
type RunFunc func(ctx context.Context, root string) error

// Options configures polling.
type Options struct {
	MinInterval time.Duration
	MaxInterval time.Duration
	Discover    *discover.Options
	// Extra are files outside the discovered set that also trigger a run,
	// such as a fallback parallel file.
	Extra []string
}

// Watcher polls directories for file changes and triggers the pipeline.
type Watcher struct {
	runFn RunFunc
	opts  Options
	roots map[string]*rootState
	order []string
	ctx   context.Context
}

// New creates a Watcher. runFn is called when file changes are detected.
func New(runFn RunFunc, opts Options) *Watcher {
	if opts.MinInterval <= 0 {
		opts.MinInterval = defaultMinInterval
	}
	if opts.MaxInterval < opts.MinInterval {
		opts.MaxInterval = max(defaultMaxInterval, opts.MinInterval)
	}
	return &Watcher{
		runFn: runFn,
		opts:  opts,
		roots: make(map[string]*rootState),
		ctx:   context.Background(),
	}
}

// Add registers a directory. Adding the same directory twice is a no-op.
func (w *Watcher) Add(root string) {
	if abs, err := filepath.Abs(root); err == nil {
		root = abs
	}
	if _, ok := w.roots[root]; ok {
		return
	}
	w.roots[root] = &rootState{}
	w.order = append(w.order, root)
}

// Run blocks until ctx is cancelled. Ticks at the minimum interval, polling
// each root only when its adaptive interval has elapsed.
func (w *Watcher) Run(ctx context.Context) {
	w.ctx = ctx
	ticker := time.NewTicker(w.opts.MinInterval)
	defer ticker.Stop()

	w.pollAll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.pollAll()
		}
	}
}

func (w *Watcher) pollAll() {
	now := time.Now()
	for _, root := range w.order {
		if w.ctx.Err() != nil {
			return
		}
		state := w.roots[root]
		if state.snapshot != nil && now.Before(state.nextPoll) {
			continue
		}
		w.pollRoot(root, state)
	}
}

// pollRoot captures a snapshot and compares it with the previous one. The
// first poll records a baseline without running the pipeline.
func (w *Watcher) pollRoot(root string, state *rootState) {
	if _, err := os.Stat(root); err != nil {
		log.Warn().Str("root", root).Msg("watcher.root_gone")
		state.nextPoll = time.Now().Add(w.opts.MaxInterval)
		return
	}

	snap, err := captureSnapshot(w.ctx, root, w.opts.Discover, w.opts.Extra)
	if err != nil {
		log.Warn().Str("root", root).Err(err).Msg("watcher.snapshot")
		state.nextPoll = time.Now().Add(state.interval)
		return
	}

	interval := w.pollInterval(len(snap))

	if state.snapshot == nil {
		log.Debug().Str("root", root).Int("files", len(snap)).Msg("watcher.baseline")
		state.snapshot = snap
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	if snapshotsEqual(state.snapshot, snap) {
		state.interval = interval
		state.nextPoll = time.Now().Add(interval)
		return
	}

	log.Info().Str("root", root).Int("files", len(snap)).Msg("watcher.changed")
	if err := w.runFn(w.ctx, root); err != nil {
		log.Warn().Str("root", root).Err(err).Msg("watcher.run")
		// Keep the old snapshot so the next cycle retries.
		state.nextPoll = time.Now().Add(interval)
		return
	}

	// The run writes output files, which discovery skips, so the fresh
	// snapshot still describes the inputs.
	state.snapshot = snap
	state.interval = interval
	state.nextPoll = time.Now().Add(interval)
}

// captureSnapshot records mtime and size of every source, of the parallel
// files a source could pair with, and of the extra paths.
func captureSnapshot(ctx context.Context, root string, opts *discover.Options, extra []string) (map[string]fileSnapshot, error) {
	files, err := discover.Discover(ctx, root, opts)
	if err != nil {
		return nil, err
	}

	snap := make(map[string]fileSnapshot, len(files)*2)
	add := func(path string) {
		info, statErr := os.Stat(path)
		if statErr != nil || !info.Mode().IsRegular() {
			return
		}
		key, relErr := filepath.Rel(root, path)
		if relErr != nil {
			key = path
		}
		snap[filepath.ToSlash(key)] = fileSnapshot{modTime: info.ModTime(), size: info.Size()}
	}

	for _, f := range files {
		add(f.Path)
		dir := filepath.Dir(f.Path)
		stem := strings.TrimSuffix(filepath.Base(f.Path), filepath.Ext(f.Path))
		add(filepath.Join(dir, stem+".yml"))
		add(filepath.Join(dir, "parallel.yml"))
	}
	for _, p := range extra {
		if !filepath.IsAbs(p) {
			p = filepath.Join(root, p)
		}
		add(p)
	}
	return snap, nil
}

// snapshotsEqual returns true if two snapshots have identical files with same mtime+size.
func snapshotsEqual(a, b map[string]fileSnapshot) bool {
	if len(a) != len(b) {
		return false
	}
	for path, aSnap := range a {
		bSnap, ok := b[path]
		if !ok {
			return false
		}
		if !aSnap.modTime.Equal(bSnap.modTime) || aSnap.size != bSnap.size {
			return false
		}
	}
	return true
}

// pollInterval grows with the file count: the minimum interval plus one
// second per 500 files, capped at the maximum.
func (w *Watcher) pollInterval(fileCount int) time.Duration {
	d := w.opts.MinInterval + time.Duration(fileCount/500)*time.Second
	return min(d, w.opts.MaxInterval)
}
