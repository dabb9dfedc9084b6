// Package annotate is the single entry point that turns C source and a
// parallel file into annotated source for one target.
package annotate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pragcc/pragcc/internal/code"
	"github.com/pragcc/pragcc/internal/metadata"
	"github.com/pragcc/pragcc/internal/parallelizer"
)

// Kind tags a Failure.
type Kind string

const (
	KindSyntax         Kind = "syntax"
	KindSegmentation   Kind = "segmentation"
	KindMetadataFormat Kind = "metadata_format"
	KindTarget         Kind = "target"
)

const (
	msgSyntax       = "the code does not compile correctly or uses unsupported syntax."
	msgSegmentation = "the code must contain at least one include line and one function, and the includes must precede the first function."
	msgMetadata     = "the parallel file is malformed: "
)

// Failure is a rejected annotation request. Message is safe to show to the
// caller; Err keeps the underlying cause.
type Failure struct {
	Kind    Kind
	Message string
	Err     error
}

func (f *Failure) Error() string { return f.Message }
func (f *Failure) Unwrap() error { return f.Err }

// Result is the outcome of a successful call.
type Result struct {
	Source     string                        `json:"source"`
	Functions  []parallelizer.FunctionReport `json:"functions"`
	Insertions int                           `json:"insertions"`
}

// Options tune a call.
type Options struct {
	// Verify re-parses the annotated output and reports a syntax failure
	// when the parser rejects it.
	Verify bool
}

// Annotate parses source, decodes spec and applies the directives of target.
// Nothing is shared between calls.
func Annotate(ctx context.Context, target, source string, spec []byte) (*Result, error) {
	return AnnotateWithOptions(ctx, target, source, spec, Options{})
}

// AnnotateWithOptions is Annotate with explicit options.
func AnnotateWithOptions(ctx context.Context, target, source string, spec []byte, opts Options) (*Result, error) {
	t0 := time.Now()

	t, err := metadata.ParseTarget(target)
	if err != nil {
		return nil, &Failure{Kind: KindTarget, Message: err.Error(), Err: err}
	}
	strategy, err := parallelizer.ForTarget(t)
	if err != nil {
		return nil, &Failure{Kind: KindTarget, Message: err.Error(), Err: err}
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	sf, err := code.FromText(ctx, source)
	if err != nil {
		return nil, classify(err)
	}

	md, err := metadata.Parse(spec)
	if err != nil {
		return nil, classify(err)
	}

	p := parallelizer.New(strategy, sf)
	out, err := p.Parallelize(md)
	if err != nil {
		return nil, fmt.Errorf("parallelize: %w", err)
	}

	res := &Result{Source: out.Raw(), Functions: p.Reports()}
	for _, r := range res.Functions {
		if r.Applied {
			res.Insertions += len(r.Insertions)
		}
	}

	if opts.Verify {
		if _, err := out.Reload(ctx); err != nil {
			return nil, classify(err)
		}
	}

	log.Info().Str("target", string(t)).Int("functions", len(res.Functions)).
		Int("insertions", res.Insertions).Dur("elapsed", time.Since(t0)).Msg("annotate.done")
	return res, nil
}

// classify maps a core error onto a tagged Failure. Context errors and
// anything unrecognized pass through untouched.
func classify(err error) error {
	switch {
	case errors.Is(err, code.ErrSyntax):
		return &Failure{Kind: KindSyntax, Message: msgSyntax, Err: err}
	case errors.Is(err, code.ErrSegmentation):
		return &Failure{Kind: KindSegmentation, Message: msgSegmentation, Err: err}
	case errors.Is(err, metadata.ErrMetadataFormat):
		return &Failure{Kind: KindMetadataFormat, Message: msgMetadata + detail(err), Err: err}
	}
	return err
}

// detail strips the sentinel prefix from a wrapped metadata error.
func detail(err error) string {
	msg, _ := strings.CutPrefix(err.Error(), metadata.ErrMetadataFormat.Error()+": ")
	return msg
}

// Describe returns the caller-facing message for an error from the core
// packages.
func Describe(err error) string {
	var f *Failure
	if errors.As(classify(err), &f) {
		return f.Message
	}
	return err.Error()
}

// KindOf returns the failure kind of err, or "" when err is not a Failure.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return ""
}
