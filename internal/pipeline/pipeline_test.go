package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pragcc/pragcc/internal/store"
)

const vectorAdd = `#include <stdio.h>

#define N 10

void vector_add(int *a, int *b, int *c){
    for(int i=0; i<N; ++i){
        c[i] = a[i] + b[i];
    }
}

int main(){
    return 0;
}
`

const vectorSpec = `
functs:
  all: [vector_add, main]
  parallel:
    vector_add:
      mp:
        parallel_for:
          - nro: 0
            clauses:
              private: [i]
      acc:
        parallel_loop:
          - nro: 0
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func setupTestRepo(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "vector.c"), vectorAdd)
	writeFile(t, filepath.Join(dir, "vector.yml"), vectorSpec)
	writeFile(t, filepath.Join(dir, "kernels", "copy.c"), strings.ReplaceAll(vectorAdd, "vector_add", "copy"))
	writeFile(t, filepath.Join(dir, "kernels", "parallel.yml"), strings.ReplaceAll(vectorSpec, "vector_add", "copy"))
	writeFile(t, filepath.Join(dir, "broken", "bad.c"), "#include <stdio.h>\nint main( {\n")
	writeFile(t, filepath.Join(dir, "broken", "bad.yml"), vectorSpec)
	writeFile(t, filepath.Join(dir, "lonely", "alone.c"), vectorAdd)
	return dir
}

func byFile(r *Report) map[string]FileResult {
	m := map[string]FileResult{}
	for _, f := range r.Files {
		m[f.File] = f
	}
	return m
}

func TestPipelineRun(t *testing.T) {
	dir := setupTestRepo(t)
	s, err := store.OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	report, err := New(context.Background(), s, dir, Options{Target: "mp", Prefix: "omp_", Verify: true}).Run()
	require.NoError(t, err)
	require.Len(t, report.Files, 4)

	files := byFile(report)
	ok := files["vector.c"]
	assert.Equal(t, StatusOK, ok.Status)
	assert.Equal(t, "vector.yml", ok.Spec)
	assert.Equal(t, "omp_vector.c", ok.Output)
	assert.Equal(t, 1, ok.Insertions)
	assert.NotEmpty(t, ok.RunID)

	out, err := os.ReadFile(filepath.Join(dir, "omp_vector.c"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "#pragma omp parallel for private(i) \n    for(int i=0; i<N; ++i){")

	assert.Equal(t, StatusOK, files["kernels/copy.c"].Status)
	assert.Equal(t, "kernels/parallel.yml", files["kernels/copy.c"].Spec)
	assert.FileExists(t, filepath.Join(dir, "kernels", "omp_copy.c"))

	bad := files["broken/bad.c"]
	assert.Equal(t, StatusFailed, bad.Status)
	assert.Equal(t, "syntax", bad.ErrorKind)
	assert.NoFileExists(t, filepath.Join(dir, "broken", "omp_bad.c"))

	assert.Equal(t, StatusSkipped, files["lonely/alone.c"].Status)

	n, err := s.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	run, err := s.GetRun(bad.RunID)
	require.NoError(t, err)
	assert.Equal(t, store.StatusFailed, run.Status)
	assert.Equal(t, "syntax", run.ErrorKind)
}

func TestPipelineFallbackSpec(t *testing.T) {
	dir := setupTestRepo(t)
	writeFile(t, filepath.Join(dir, "specs", "default.yml"), vectorSpec)

	report, err := New(context.Background(), nil, dir, Options{
		Target: "acc", Prefix: "acc_", Spec: "specs/default.yml",
	}).Run()
	require.NoError(t, err)

	alone := byFile(report)["lonely/alone.c"]
	assert.Equal(t, StatusOK, alone.Status)
	assert.Equal(t, "specs/default.yml", alone.Spec)
	out, err := os.ReadFile(filepath.Join(dir, "lonely", "acc_alone.c"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "#pragma acc parallel loop \n")
}

func TestPipelineIncremental(t *testing.T) {
	dir := setupTestRepo(t)
	s, err := store.OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	opts := Options{Target: "mp", Prefix: "omp_", Incremental: true}
	_, err = New(context.Background(), s, dir, opts).Run()
	require.NoError(t, err)

	// Second run: the generated omp_ files are not rediscovered and the
	// successful sources are unchanged.
	report, err := New(context.Background(), s, dir, opts).Run()
	require.NoError(t, err)
	require.Len(t, report.Files, 4)
	files := byFile(report)
	assert.Equal(t, StatusUnchanged, files["vector.c"].Status)
	assert.Equal(t, StatusFailed, files["broken/bad.c"].Status)

	writeFile(t, filepath.Join(dir, "vector.yml"), strings.ReplaceAll(vectorSpec, "private: [i]", "private: [i, j]"))
	report, err = New(context.Background(), s, dir, opts).Run()
	require.NoError(t, err)
	assert.Equal(t, StatusOK, byFile(report)["vector.c"].Status)
}

func TestPipelineRunCancellation(t *testing.T) {
	dir := setupTestRepo(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(ctx, nil, dir, Options{Target: "mp", Prefix: "omp_"}).Run()
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestContentHash(t *testing.T) {
	a := ContentHash([]byte("int main(){}"))
	assert.Regexp(t, "^[0-9a-f]+$", a)
	assert.Equal(t, a, ContentHash([]byte("int main(){}")))
	assert.NotEqual(t, a, ContentHash([]byte("int main(){ }")))
}
