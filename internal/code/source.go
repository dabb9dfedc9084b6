package code

import (
	"context"
	"fmt"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	"github.com/rs/zerolog/log"

	"github.com/pragcc/pragcc/internal/lang"
	"github.com/pragcc/pragcc/internal/parser"
)

// SourceFile is an immutable snapshot of a segmented C source file.
// Replacing a function body yields a new snapshot.
type SourceFile struct {
	includes     string
	declarations string
	functions    []Function
	// gaps[i] is the text between functions[i-1] and functions[i];
	// gaps[0] is always empty since declarations cover it.
	gaps    []string
	trailer string
}

// FromText parses source and splits it into sections.
func FromText(ctx context.Context, source string) (*SourceFile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spec := lang.ForLanguage(lang.C)
	src := []byte(source)
	tree, err := parser.ParseStrict(lang.C, src)
	if err != nil {
		return nil, fmt.Errorf("parse source: %w", err)
	}
	defer tree.Close()

	lastInclude := 0
	var funcs []Function
	parser.Walk(tree.RootNode(), func(n *tree_sitter.Node) bool {
		switch {
		case spec.IsImport(n.Kind()):
			lastInclude = max(lastInclude, parser.StartLine(n))
			return false
		case spec.IsFunction(n.Kind()):
			begin := parser.StartLine(n)
			funcs = append(funcs, Function{
				Name:      functionName(spec, n, src),
				BeginLine: begin,
				EndLine:   parser.EndLine(n),
				Loops:     extractLoops(spec, n, begin),
			})
			return false
		}
		return true
	})

	sf, err := segment(source, lastInclude, funcs)
	if err != nil {
		return nil, err
	}
	log.Debug().Int("functions", len(sf.functions)).Int("includes_end", lastInclude).Msg("code.segmented")
	return sf, nil
}

func segment(source string, lastInclude int, funcs []Function) (*SourceFile, error) {
	if lastInclude == 0 {
		return nil, fmt.Errorf("%w: no include directive", ErrSegmentation)
	}
	if len(funcs) == 0 {
		return nil, fmt.Errorf("%w: no function definition", ErrSegmentation)
	}
	if lastInclude >= funcs[0].BeginLine {
		return nil, fmt.Errorf("%w: include on line %d follows function %q", ErrSegmentation, lastInclude, funcs[0].Name)
	}
	for i := 1; i < len(funcs); i++ {
		if funcs[i].BeginLine <= funcs[i-1].EndLine {
			return nil, fmt.Errorf("%w: functions %q and %q share line %d",
				ErrSegmentation, funcs[i-1].Name, funcs[i].Name, funcs[i].BeginLine)
		}
	}

	lines := splitLines(source)
	sf := &SourceFile{
		includes:     span(lines, 0, lastInclude),
		declarations: span(lines, lastInclude, funcs[0].BeginLine-1),
		functions:    funcs,
		gaps:         make([]string, len(funcs)),
	}
	for i := range sf.functions {
		f := &sf.functions[i]
		f.Raw = strings.TrimSuffix(span(lines, f.BeginLine-1, f.EndLine), "\n")
		if i > 0 {
			sf.gaps[i] = span(lines, funcs[i-1].EndLine, f.BeginLine-1)
		}
	}
	sf.trailer = span(lines, funcs[len(funcs)-1].EndLine, len(lines))
	return sf, nil
}

// splitLines splits text after each newline, keeping the terminators.
func splitLines(text string) []string {
	lines := strings.SplitAfter(text, "\n")
	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func span(lines []string, from, to int) string {
	to = min(to, len(lines))
	if from >= to {
		return ""
	}
	return strings.Join(lines[from:to], "")
}

// Includes returns the include section.
func (s *SourceFile) Includes() string { return s.includes }

// Declarations returns the text between the last include and the first
// function.
func (s *SourceFile) Declarations() string { return s.declarations }

// Functions returns a copy of the functions in source order.
func (s *SourceFile) Functions() []Function {
	out := make([]Function, len(s.functions))
	for i, f := range s.functions {
		out[i] = f.clone()
	}
	return out
}

// Function returns the function with exactly the given name.
func (s *SourceFile) Function(name string) (Function, bool) {
	i := s.indexOf(name)
	if i < 0 {
		return Function{}, false
	}
	return s.functions[i].clone(), true
}

func (s *SourceFile) indexOf(name string) int {
	for i := range s.functions {
		if s.functions[i].Name == name {
			return i
		}
	}
	return -1
}

// Stale reports whether any function body was replaced since parsing.
func (s *SourceFile) Stale() bool {
	for _, f := range s.functions {
		if f.stale {
			return true
		}
	}
	return false
}

// FunctionRaw returns the raw text of the named function, or "" if the file
// defines no such function.
func (s *SourceFile) FunctionRaw(name string) string {
	i := s.indexOf(name)
	if i < 0 {
		return ""
	}
	return s.functions[i].Raw
}

// LoopScope returns the relative begin of loop index and the relative end of
// the last loop at the same depth whose index is not lower, so that sibling
// loops share one enclosing region.
func (s *SourceFile) LoopScope(name string, index int) (begin, end int, ok bool) {
	i := s.indexOf(name)
	if i < 0 {
		return 0, 0, false
	}
	f := s.functions[i]
	first, found := f.Loop(index)
	if !found {
		return 0, 0, false
	}

	end = first.End.Relative
	for _, l := range f.Loops {
		if l.Depth == first.Depth && l.Index >= index {
			end = l.End.Relative
		}
	}
	return first.Begin.Relative, end, true
}

// LoopLine returns the line on which loop index begins, relative to the
// start of the named function.
func (s *SourceFile) LoopLine(name string, index int) (int, bool) {
	i := s.indexOf(name)
	if i < 0 {
		return 0, false
	}
	l, found := s.functions[i].Loop(index)
	if !found {
		return 0, false
	}
	return l.Begin.Relative, true
}

// ReplaceFunctionBody returns a snapshot in which the named function holds
// text. The receiver is left untouched. The replaced function has no loops
// until the snapshot is reloaded.
func (s *SourceFile) ReplaceFunctionBody(name, text string) (*SourceFile, error) {
	i := s.indexOf(name)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFunction, name)
	}

	next := &SourceFile{
		includes:     s.includes,
		declarations: s.declarations,
		functions:    make([]Function, len(s.functions)),
		gaps:         s.gaps,
		trailer:      s.trailer,
	}
	copy(next.functions, s.functions)

	old := s.functions[i]
	next.functions[i] = Function{
		Name:      old.Name,
		BeginLine: old.BeginLine,
		EndLine:   old.BeginLine + strings.Count(text, "\n"),
		Raw:       text,
		stale:     true,
	}
	return next, nil
}

// Raw reassembles the file text.
func (s *SourceFile) Raw() string {
	var b strings.Builder
	b.WriteString(s.includes)
	b.WriteString(s.declarations)
	for i, f := range s.functions {
		b.WriteString(s.gaps[i])
		b.WriteString(f.Raw)
		b.WriteByte('\n')
	}
	b.WriteString(s.trailer)
	return b.String()
}

// Reload re-parses the reassembled text into a fresh snapshot with current
// loop coordinates.
func (s *SourceFile) Reload(ctx context.Context) (*SourceFile, error) {
	return FromText(ctx, s.Raw())
}

// Outline is the serializable view of a snapshot.
type Outline struct {
	Includes     string     `json:"includes"`
	Declarations string     `json:"declarations"`
	Functions    []Function `json:"functions"`
}

// Outline returns the sections and functions of s.
func (s *SourceFile) Outline() Outline {
	return Outline{
		Includes:     s.includes,
		Declarations: s.declarations,
		Functions:    s.Functions(),
	}
}
