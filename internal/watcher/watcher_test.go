package watcher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pragcc/pragcc/internal/discover"
)

func TestSnapshotsEqual(t *testing.T) {
	now := time.Now()
	a := map[string]fileSnapshot{
		"main.c":       {modTime: now, size: 100},
		"parallel.yml": {modTime: now, size: 200},
	}

	tests := map[string]struct {
		b    map[string]fileSnapshot
		want bool
	}{
		"identical": {map[string]fileSnapshot{
			"main.c": {modTime: now, size: 100}, "parallel.yml": {modTime: now, size: 200},
		}, true},
		"size": {map[string]fileSnapshot{
			"main.c": {modTime: now, size: 101}, "parallel.yml": {modTime: now, size: 200},
		}, false},
		"mtime": {map[string]fileSnapshot{
			"main.c": {modTime: now.Add(time.Second), size: 100}, "parallel.yml": {modTime: now, size: 200},
		}, false},
		"missing": {map[string]fileSnapshot{"main.c": {modTime: now, size: 100}}, false},
		"extra": {map[string]fileSnapshot{
			"main.c": {modTime: now, size: 100}, "parallel.yml": {modTime: now, size: 200}, "new.c": {modTime: now, size: 1},
		}, false},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, snapshotsEqual(a, tt.b))
		})
	}
	assert.True(t, snapshotsEqual(map[string]fileSnapshot{}, map[string]fileSnapshot{}))
}

func TestPollInterval(t *testing.T) {
	w := New(nil, Options{})
	tests := []struct {
		files    int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{499, 1 * time.Second},
		{500, 2 * time.Second},
		{2000, 5 * time.Second},
		{10000, 21 * time.Second},
		{100000, 60 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, w.pollInterval(tt.files), "files=%d", tt.files)
	}

	w = New(nil, Options{MinInterval: 100 * time.Millisecond, MaxInterval: 500 * time.Millisecond})
	assert.Equal(t, 100*time.Millisecond, w.pollInterval(10))
	assert.Equal(t, 500*time.Millisecond, w.pollInterval(5000))
}

func TestCaptureSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte("int main(){}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.yml"), []byte("functs: {}\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600))

	snap, err := captureSnapshot(context.Background(), dir, nil, []string{"missing.yml"})
	require.NoError(t, err)
	require.Len(t, snap, 2)
	s, ok := snap["main.c"]
	require.True(t, ok)
	assert.NotZero(t, s.size)
	assert.False(t, s.modTime.IsZero())
	assert.Contains(t, snap, "main.yml")
}

func resetPolls(w *Watcher) {
	for _, state := range w.roots {
		state.nextPoll = time.Time{}
	}
}

func TestWatcherTriggersOnChange(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	spec := filepath.Join(dir, "parallel.yml")
	require.NoError(t, os.WriteFile(src, []byte("int main(){}\n"), 0o600))
	require.NoError(t, os.WriteFile(spec, []byte("functs: {}\n"), 0o600))

	var runs atomic.Int32
	w := New(func(_ context.Context, root string) error {
		assert.Equal(t, dir, root)
		runs.Add(1)
		return nil
	}, Options{})
	w.Add(dir)
	w.Add(dir)
	require.Len(t, w.order, 1)

	w.pollAll()
	assert.Zero(t, runs.Load(), "baseline poll")

	resetPolls(w)
	w.pollAll()
	assert.Zero(t, runs.Load(), "no change")

	now := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(spec, now, now))
	resetPolls(w)
	w.pollAll()
	assert.EqualValues(t, 1, runs.Load(), "parallel file changed")

	require.NoError(t, os.WriteFile(filepath.Join(dir, "util.c"), []byte("void f(){}\n"), 0o600))
	resetPolls(w)
	w.pollAll()
	assert.EqualValues(t, 2, runs.Load(), "new source")
}

func TestWatcherSkipsOutputPrefix(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "main.c"), []byte("int main(){}\n"), 0o600))

	var runs atomic.Int32
	w := New(func(context.Context, string) error { runs.Add(1); return nil }, Options{
		Discover: &discover.Options{SkipPrefixes: []string{"omp_"}},
	})
	w.Add(dir)
	w.pollAll()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "omp_main.c"), []byte("int main(){}\n"), 0o600))
	resetPolls(w)
	w.pollAll()
	assert.Zero(t, runs.Load())
}

func TestWatcherRetriesFailedRun(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "main.c")
	require.NoError(t, os.WriteFile(src, []byte("int main(){}\n"), 0o600))

	var runs atomic.Int32
	w := New(func(context.Context, string) error {
		runs.Add(1)
		return errors.New("boom")
	}, Options{})
	w.Add(dir)
	w.pollAll()

	now := time.Now().Add(time.Second)
	require.NoError(t, os.Chtimes(src, now, now))
	resetPolls(w)
	w.pollAll()
	resetPolls(w)
	w.pollAll()
	assert.EqualValues(t, 2, runs.Load())
}

func TestWatcherCancellation(t *testing.T) {
	w := New(func(context.Context, string) error { return nil }, Options{})
	w.Add(t.TempDir())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not stop after context cancellation")
	}
}

func TestWatcherSkipsMissingRoot(t *testing.T) {
	var runs atomic.Int32
	w := New(func(context.Context, string) error { runs.Add(1); return nil }, Options{})
	w.Add("/nonexistent/path")
	w.pollAll()
	resetPolls(w)
	w.pollAll()
	assert.Zero(t, runs.Load())
}
