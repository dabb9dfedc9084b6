// Package code models a C source file as include, declaration and function
// sections, with the for-loops of every function indexed in textual order.
package code

import (
	"errors"

	"github.com/pragcc/pragcc/internal/parser"
)

var (
	// ErrSyntax is returned when the parser rejects the source.
	ErrSyntax = parser.ErrSyntax
	// ErrSegmentation is returned when the source cannot be split into
	// include, declaration and function sections.
	ErrSegmentation = errors.New("cannot segment source")
	// ErrUnknownFunction is returned when a function name is not defined.
	ErrUnknownFunction = errors.New("unknown function")
)

// Position is a source line, both absolute (1-based, file) and relative to
// the first line of the enclosing function.
type Position struct {
	Absolute int `json:"absolute"`
	Relative int `json:"relative"`
}

// Loop describes one for-loop of a function.
type Loop struct {
	Index int      `json:"nro"`
	Depth int      `json:"depth"`
	Begin Position `json:"begin"`
	End   Position `json:"end"`
}

// Function is a function definition and the loops it contains.
type Function struct {
	Name      string `json:"name"`
	BeginLine int    `json:"begin"`
	EndLine   int    `json:"end"`
	Raw       string `json:"raw"`
	Loops     []Loop `json:"for_loops"`

	stale bool
}

// Stale reports whether the function body was replaced after parsing. Stale
// functions carry no loops until the file is reloaded.
func (f Function) Stale() bool { return f.stale }

// Loop returns the loop with the given index.
func (f Function) Loop(index int) (Loop, bool) {
	for _, l := range f.Loops {
		if l.Index == index {
			return l, true
		}
	}
	return Loop{}, false
}

func (f Function) clone() Function {
	c := f
	if f.Loops != nil {
		c.Loops = append([]Loop(nil), f.Loops...)
	}
	return c
}
