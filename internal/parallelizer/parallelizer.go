// Package parallelizer computes directive insertions for the functions of a
// source file and applies them.
package parallelizer

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/pragcc/pragcc/internal/code"
	"github.com/pragcc/pragcc/internal/metadata"
	"github.com/pragcc/pragcc/internal/pragma"
)

// ErrParallelized is returned by a second call to Parallelize.
var ErrParallelized = errors.New("source already parallelized")

// FunctionReport summarizes what Parallelize did to one function.
type FunctionReport struct {
	Function   string      `json:"function"`
	Insertions []Insertion `json:"insertions"`
	Applied    bool        `json:"applied"`
}

// Parallelizer annotates one source snapshot with one strategy. It is used
// for a single request and is not safe for concurrent use.
type Parallelizer struct {
	strategy Strategy
	code     *code.SourceFile
	reports  []FunctionReport
	done     bool
}

// New returns a Parallelizer over a loaded source file.
func New(s Strategy, sf *code.SourceFile) *Parallelizer {
	return &Parallelizer{strategy: s, code: sf}
}

// Code returns the current snapshot.
func (p *Parallelizer) Code() *code.SourceFile { return p.code }

// Reports returns one entry per function processed by Parallelize.
func (p *Parallelizer) Reports() []FunctionReport { return p.reports }

// Insertions computes the insertions for one function: the region directive
// first, then loop directives in declaration order. Directives that name a
// loop the function does not have contribute nothing.
func (p *Parallelizer) Insertions(d metadata.FunctionDirectives) []Insertion {
	var out []Insertion
	out = append(out, p.regionInsertions(d)...)

	for _, fam := range d.LoopFamilies(p.strategy.LoopFamilies()...) {
		name := DirectiveName(fam.Name)
		for _, l := range fam.Loops {
			line, ok := p.code.LoopLine(d.Function, l.Nro)
			if !ok {
				log.Debug().Str("function", d.Function).Str("family", fam.Name).Int("nro", l.Nro).Msg("parallelize.loop.skip")
				continue
			}
			out = append(out, Insertion{
				Text: pragma.Render(p.strategy.Library(), name, l.Clauses),
				Line: line,
			})
		}
	}
	return out
}

func (p *Parallelizer) regionInsertions(d metadata.FunctionDirectives) []Insertion {
	family := p.strategy.RegionFamily()
	region, ok := d.Region(family)
	if !ok || region.Scope == nil {
		return nil
	}
	begin, end, ok := p.code.LoopScope(d.Function, *region.Scope)
	if !ok {
		log.Debug().Str("function", d.Function).Str("family", family).Int("scope", *region.Scope).Msg("parallelize.scope.skip")
		return nil
	}
	return []Insertion{
		{Text: pragma.Render(p.strategy.Library(), DirectiveName(family), region.Clauses), Line: begin},
		{Text: "{", Line: begin},
		{Text: "}", Line: end + 1},
	}
}

// Parallelize applies every directive of spec for the strategy's target and
// returns the annotated snapshot. Functions are processed in the order the
// spec lists them.
func (p *Parallelizer) Parallelize(spec *metadata.Spec) (*code.SourceFile, error) {
	if p.done {
		return nil, ErrParallelized
	}
	p.done = true

	for _, d := range spec.DirectivesFor(p.strategy.Target()) {
		report := FunctionReport{Function: d.Function}
		insertions := p.Insertions(d)
		report.Insertions = insertions

		if len(insertions) > 0 {
			raw := p.code.FunctionRaw(d.Function)
			annotated := InsertLines(raw, insertions)
			if annotated == "" {
				log.Warn().Str("function", d.Function).Int("insertions", len(insertions)).Msg("parallelize.batch.rejected")
			} else {
				next, err := p.code.ReplaceFunctionBody(d.Function, annotated)
				if err != nil {
					return nil, fmt.Errorf("replace %s: %w", d.Function, err)
				}
				p.code = next
				report.Applied = true
			}
		}

		log.Debug().Str("function", d.Function).Int("insertions", len(insertions)).Bool("applied", report.Applied).Msg("parallelize.function")
		p.reports = append(p.reports, report)
	}
	return p.code, nil
}
