package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Run status values.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrRunNotFound is returned by GetRun for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded annotation request.
type Run struct {
	ID         string    `json:"id"`
	Target     string    `json:"target"`
	File       string    `json:"file,omitempty"`
	SourceHash string    `json:"source_hash"`
	SpecHash   string    `json:"spec_hash"`
	Status     string    `json:"status"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Message    string    `json:"message,omitempty"`
	Insertions int       `json:"insertions"`
	Output     string    `json:"output,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

const runColumns = "id, target, file, source_hash, spec_hash, status, error_kind, message, insertions, output, created_at"

// SaveRun inserts r, assigning an id and timestamp when they are unset.
func (s *Store) SaveRun(r *Run) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.Exec(`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Target, r.File, r.SourceHash, r.SpecHash, r.Status, r.ErrorKind, r.Message,
		r.Insertions, r.Output, r.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save run: %w", err)
	}
	return nil
}

// GetRun returns a run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	r, err := scanRun(s.q.QueryRow("SELECT "+runColumns+" FROM runs WHERE id=?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// ListRuns returns the newest runs first. A limit <= 0 returns every run.
func (s *Store) ListRuns(limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY created_at DESC, rowid DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.q.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

// LastRun returns the newest successful run for a file and target, or nil.
func (s *Store) LastRun(file, target string) (*Run, error) {
	r, err := scanRun(s.q.QueryRow(
		"SELECT "+runColumns+" FROM runs WHERE file=? AND target=? AND status=? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		file, target, StatusOK))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return r, err
}

// DeleteRun removes a run. Deleting an unknown id is not an error.
func (s *Store) DeleteRun(id string) error {
	_, err := s.q.Exec("DELETE FROM runs WHERE id=?", id)
	return err
}

// CountRuns returns the number of stored runs.
func (s *Store) CountRuns() (int, error) {
	var n int
	err := s.q.QueryRow("SELECT COUNT(*) FROM runs").Scan(&n)
	return n, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var r Run
	var created string
	if err := row.Scan(&r.ID, &r.Target, &r.File, &r.SourceHash, &r.SpecHash, &r.Status,
		&r.ErrorKind, &r.Message, &r.Insertions, &r.Output, &created); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("run %s: created_at: %w", r.ID, err)
	}
	r.CreatedAt = t
	return &r, nil
}

func scanRuns(rows *sql.Rows) ([]*Run, error) {
	var result []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}
