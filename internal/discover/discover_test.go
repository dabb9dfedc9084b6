package discover

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pragcc/pragcc/internal/lang"
)

func write(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func relPaths(files []FileInfo) []string {
	out := make([]string, len(files))
	for i, f := range files {
		out[i] = f.RelPath
	}
	return out
}

func TestDiscoverBasic(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "main.c"), "int main(){}\n")
	write(t, filepath.Join(dir, "kernels", "stencil.c"), "void s(){}\n")
	write(t, filepath.Join(dir, "parallel.yml"), "functs: {}\n")
	write(t, filepath.Join(dir, "util.h"), "int x;\n")

	files, err := Discover(context.Background(), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"kernels/stencil.c", "main.c"}, relPaths(files))
	for _, f := range files {
		assert.True(t, filepath.IsAbs(f.Path))
		assert.Equal(t, lang.C, f.Language)
	}
}

func TestDiscoverSkips(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "main.c"), "")
	write(t, filepath.Join(dir, "omp_main.c"), "")
	write(t, filepath.Join(dir, "acc_main.c"), "")
	write(t, filepath.Join(dir, "build", "gen.c"), "")
	write(t, filepath.Join(dir, "third_party", "lib.c"), "")
	write(t, filepath.Join(dir, "legacy", "old.c"), "")
	write(t, filepath.Join(dir, IgnoreFileName), "# comment\nlegacy\n")

	files, err := Discover(context.Background(), dir, &Options{
		ExcludeDirs:  []string{"third_party"},
		SkipPrefixes: []string{"omp_", "acc_"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"main.c"}, relPaths(files))
}

func TestDiscoverCancellation(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "main.c"), "")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Discover(ctx, dir, nil)
	assert.True(t, errors.Is(err, context.Canceled))
}
