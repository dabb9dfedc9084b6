package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenMemory(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	assert.Equal(t, ":memory:", s.Path())
	require.NoError(t, s.Close())
}

func TestOpenPathReopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := OpenPath(path)
	require.NoError(t, err)
	require.NoError(t, s.SaveRun(&Run{Target: "mp", SourceHash: "a", SpecHash: "b", Status: StatusOK}))
	require.NoError(t, s.Close())

	s, err = OpenPath(path)
	require.NoError(t, err)
	defer s.Close()
	n, err := s.CountRuns()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunCRUD(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	r := &Run{
		Target:     "acc",
		File:       "src/vector.c",
		SourceHash: "00ff",
		SpecHash:   "11ee",
		Status:     StatusOK,
		Insertions: 3,
		Output:     "#include <stdio.h>\n",
	}
	require.NoError(t, s.SaveRun(r))
	require.NotEmpty(t, r.ID)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.GetRun(r.ID)
	require.NoError(t, err)
	assert.Equal(t, r.Target, got.Target)
	assert.Equal(t, r.File, got.File)
	assert.Equal(t, 3, got.Insertions)
	assert.Equal(t, r.Output, got.Output)
	assert.True(t, r.CreatedAt.Equal(got.CreatedAt))

	require.NoError(t, s.DeleteRun(r.ID))
	_, err = s.GetRun(r.ID)
	assert.True(t, errors.Is(err, ErrRunNotFound))
	require.NoError(t, s.DeleteRun(r.ID))
}

func TestListRunsNewestFirst(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for i, kind := range []string{"", "syntax", ""} {
		status := StatusOK
		if kind != "" {
			status = StatusFailed
		}
		require.NoError(t, s.SaveRun(&Run{
			ID: string(rune('a' + i)), Target: "mp", SourceHash: "h", SpecHash: "h",
			Status: status, ErrorKind: kind, CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	runs, err := s.ListRuns(0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{runs[0].ID, runs[1].ID, runs[2].ID})
	assert.Equal(t, "syntax", runs[1].ErrorKind)

	runs, err = s.ListRuns(2)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestLastRun(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	r, err := s.LastRun("a.c", "mp")
	require.NoError(t, err)
	assert.Nil(t, r)

	require.NoError(t, s.SaveRun(&Run{File: "a.c", Target: "mp", SourceHash: "1", SpecHash: "s", Status: StatusOK}))
	require.NoError(t, s.SaveRun(&Run{File: "a.c", Target: "mp", SourceHash: "2", SpecHash: "s", Status: StatusFailed, CreatedAt: time.Now().Add(time.Hour)}))
	require.NoError(t, s.SaveRun(&Run{File: "a.c", Target: "acc", SourceHash: "3", SpecHash: "s", Status: StatusOK}))

	r, err = s.LastRun("a.c", "mp")
	require.NoError(t, err)
	require.NotNil(t, r)
	assert.Equal(t, "1", r.SourceHash)
}

func TestWithTransactionRollback(t *testing.T) {
	s, err := OpenMemory()
	require.NoError(t, err)
	defer s.Close()

	boom := errors.New("boom")
	err = s.WithTransaction(func(tx *Store) error {
		require.NoError(t, tx.SaveRun(&Run{Target: "mp", SourceHash: "a", SpecHash: "b", Status: StatusOK}))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	n, err := s.CountRuns()
	require.NoError(t, err)
	assert.Zero(t, n)
}
