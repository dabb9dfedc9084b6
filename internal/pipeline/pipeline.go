// Package pipeline annotates every C source under a directory and records
// each run.
package pipeline

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/zeebo/xxh3"
	"golang.org/x/sync/errgroup"

	"github.com/pragcc/pragcc/internal/annotate"
	"github.com/pragcc/pragcc/internal/config"
	"github.com/pragcc/pragcc/internal/discover"
	"github.com/pragcc/pragcc/internal/store"
)

// File outcomes.
const (
	StatusOK        = store.StatusOK
	StatusFailed    = store.StatusFailed
	StatusSkipped   = "skipped"
	StatusUnchanged = "unchanged"
)

// ErrNoParallelFile marks a source for which no parallel file was found.
var ErrNoParallelFile = errors.New("no parallel file")

// Options configures a batch run.
type Options struct {
	Target string // mp or acc
	Prefix string // output file prefix, e.g. omp_

	// Spec is the parallel file used when a source has neither a sibling
	// <stem>.yml nor parallel.yml. Relative paths resolve against the root.
	Spec string

	Workers     int  // <= 0 means runtime.NumCPU()
	Verify      bool // re-parse output before writing it
	Incremental bool // skip files unchanged since their last successful run

	ExcludeDirs  []string
	SkipPrefixes []string // generated-output prefixes to leave alone
}

// OptionsFromConfig derives batch options from settings. force disables
// incremental skipping.
func OptionsFromConfig(cfg *config.Config, target string, force bool) Options {
	return Options{
		Target:       target,
		Prefix:       cfg.Prefix(target),
		Spec:         cfg.Spec,
		Workers:      cfg.EffectiveWorkers(),
		Verify:       cfg.EffectiveVerify(),
		Incremental:  cfg.EffectiveIncremental() && !force,
		ExcludeDirs:  cfg.ExcludeDirs,
		SkipPrefixes: cfg.Prefixes(),
	}
}

// FileResult is the outcome for one source file.
type FileResult struct {
	File       string `json:"file"`
	Spec       string `json:"spec,omitempty"`
	Output     string `json:"output,omitempty"`
	Status     string `json:"status"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Message    string `json:"message,omitempty"`
	Insertions int    `json:"insertions"`
	RunID      string `json:"run_id,omitempty"`

	run *store.Run
}

// Report lists the per-file outcomes of one batch in discovery order.
type Report struct {
	Root    string        `json:"root"`
	Target  string        `json:"target"`
	Files   []FileResult  `json:"files"`
	Elapsed time.Duration `json:"elapsed"`
}

// Count returns how many files ended with the given status.
func (r *Report) Count(status string) int {
	n := 0
	for _, f := range r.Files {
		if f.Status == status {
			n++
		}
	}
	return n
}

// Pipeline runs one batch over a directory.
type Pipeline struct {
	ctx   context.Context
	Store *store.Store // optional
	Root  string
	opts  Options
}

// New creates a new Pipeline. s may be nil, in which case nothing is
// recorded and incremental mode has no effect.
func New(ctx context.Context, s *store.Store, root string, opts Options) *Pipeline {
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Pipeline{ctx: ctx, Store: s, Root: root, opts: opts}
}

// Run discovers, annotates and writes every source. A failing file does
// not stop the batch; only cancellation or a store error does.
func (p *Pipeline) Run() (*Report, error) {
	t0 := time.Now()
	root, err := filepath.Abs(p.Root)
	if err != nil {
		return nil, err
	}
	log.Info().Str("root", root).Str("target", p.opts.Target).Msg("pipeline.start")

	files, err := discover.Discover(p.ctx, root, &discover.Options{
		ExcludeDirs:  p.opts.ExcludeDirs,
		SkipPrefixes: append([]string{p.opts.Prefix}, p.opts.SkipPrefixes...),
	})
	if err != nil {
		return nil, fmt.Errorf("discover: %w", err)
	}
	log.Info().Int("files", len(files)).Msg("pipeline.discovered")

	results := make([]FileResult, len(files))
	numWorkers := min(p.opts.Workers, max(len(files), 1))

	g, gctx := errgroup.WithContext(p.ctx)
	g.SetLimit(numWorkers)
	for i, f := range files {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			r, err := p.processFile(gctx, root, f)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := p.recordRuns(results); err != nil {
		return nil, err
	}

	report := &Report{Root: root, Target: p.opts.Target, Files: results, Elapsed: time.Since(t0)}
	log.Info().
		Int("ok", report.Count(StatusOK)).
		Int("failed", report.Count(StatusFailed)).
		Int("skipped", report.Count(StatusSkipped)).
		Int("unchanged", report.Count(StatusUnchanged)).
		Dur("elapsed", report.Elapsed).
		Msg("pipeline.done")
	return report, nil
}

// processFile handles one source. Only context errors are returned; every
// other problem becomes part of the FileResult.
func (p *Pipeline) processFile(ctx context.Context, root string, f discover.FileInfo) (FileResult, error) {
	res := FileResult{File: f.RelPath}

	specPath, err := FindSpec(root, f.Path, p.opts.Spec)
	if err != nil {
		res.Status = StatusSkipped
		res.Message = err.Error()
		log.Debug().Str("file", f.RelPath).Msg("pipeline.file.skip")
		return res, nil
	}
	res.Spec = relTo(root, specPath)

	source, err := os.ReadFile(f.Path)
	if err != nil {
		return p.ioFailure(res, err), nil
	}
	spec, err := os.ReadFile(specPath)
	if err != nil {
		return p.ioFailure(res, err), nil
	}

	outPath := filepath.Join(filepath.Dir(f.Path), p.opts.Prefix+filepath.Base(f.Path))
	res.Output = relTo(root, outPath)

	if p.unchanged(f.RelPath, source, spec, outPath) {
		res.Status = StatusUnchanged
		return res, nil
	}

	out, err := annotate.AnnotateWithOptions(ctx, p.opts.Target, string(source), spec, annotate.Options{Verify: p.opts.Verify})
	run := NewRun(p.opts.Target, f.RelPath, source, spec, out, err)
	res.run = run
	if err != nil {
		var failure *annotate.Failure
		if !errors.As(err, &failure) {
			return res, err
		}
		res.Status = StatusFailed
		res.ErrorKind = string(failure.Kind)
		res.Message = failure.Message
		res.Output = ""
		log.Warn().Str("file", f.RelPath).Str("kind", res.ErrorKind).Err(failure.Err).Msg("pipeline.file.err")
		return res, nil
	}

	if err := os.WriteFile(outPath, []byte(out.Source), 0o644); err != nil {
		run.Status, run.ErrorKind, run.Message = store.StatusFailed, "io", err.Error()
		return p.ioFailure(res, err), nil
	}
	res.Status = StatusOK
	res.Insertions = out.Insertions
	log.Debug().Str("file", f.RelPath).Int("insertions", out.Insertions).Msg("pipeline.file.ok")
	return res, nil
}

func (p *Pipeline) ioFailure(res FileResult, err error) FileResult {
	res.Status = StatusFailed
	res.ErrorKind = "io"
	res.Message = err.Error()
	res.Output = ""
	log.Warn().Str("file", res.File).Err(err).Msg("pipeline.file.err")
	return res
}

// FindSpec resolves the parallel file of a source: <stem>.yml next to it,
// then parallel.yml in the same directory, then fallback. A relative
// fallback resolves against root.
func FindSpec(root, path, fallback string) (string, error) {
	dir := filepath.Dir(path)
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	candidates := []string{
		filepath.Join(dir, stem+".yml"),
		filepath.Join(dir, "parallel.yml"),
	}
	if fallback != "" {
		if !filepath.IsAbs(fallback) {
			fallback = filepath.Join(root, fallback)
		}
		candidates = append(candidates, fallback)
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && info.Mode().IsRegular() {
			return c, nil
		}
	}
	return "", ErrNoParallelFile
}

// unchanged reports whether the last successful run of file used the same
// source and parallel file and its output is still on disk.
func (p *Pipeline) unchanged(file string, source, spec []byte, outPath string) bool {
	if !p.opts.Incremental || p.Store == nil {
		return false
	}
	last, err := p.Store.LastRun(file, p.opts.Target)
	if err != nil || last == nil {
		return false
	}
	if last.SourceHash != ContentHash(source) || last.SpecHash != ContentHash(spec) {
		return false
	}
	_, err = os.Stat(outPath)
	return err == nil
}

// recordRuns stores every attempted run in one transaction. Store writes
// happen after the parallel stage so workers never contend on the database.
func (p *Pipeline) recordRuns(results []FileResult) error {
	if p.Store == nil {
		return nil
	}
	return p.Store.WithTransaction(func(tx *store.Store) error {
		for i := range results {
			run := results[i].run
			if run == nil {
				continue
			}
			if err := tx.SaveRun(run); err != nil {
				return fmt.Errorf("record %s: %w", results[i].File, err)
			}
			results[i].RunID = run.ID
		}
		return nil
	})
}

// NewRun builds the run record of one annotate call.
func NewRun(target, file string, source, spec []byte, res *annotate.Result, err error) *store.Run {
	run := &store.Run{
		Target:     target,
		File:       file,
		SourceHash: ContentHash(source),
		SpecHash:   ContentHash(spec),
		Status:     store.StatusOK,
	}
	if err != nil {
		run.Status = store.StatusFailed
		run.ErrorKind = string(annotate.KindOf(err))
		run.Message = err.Error()
		return run
	}
	run.Insertions = res.Insertions
	run.Output = res.Source
	return run
}

// ContentHash returns the xxh3 hex digest of data.
func ContentHash(data []byte) string {
	h := xxh3.New()
	_, _ = h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

func relTo(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
