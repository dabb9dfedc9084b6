// Package pragma renders compiler directives from a directive name and its
// clauses.
package pragma

import (
	"strings"

	"github.com/pragcc/pragcc/internal/metadata"
)

// Library is the pragma namespace of a directive set.
type Library string

const (
	OMP Library = "omp"
	ACC Library = "acc"
)

// Render returns "#pragma <library> <directive> <clauses>". Each clause is
// followed by a single space; names and values are passed through verbatim.
// Clause order follows the given slice.
func Render(library Library, directive string, clauses metadata.Clauses) string {
	var b strings.Builder
	b.WriteString("#pragma ")
	b.WriteString(string(library))
	b.WriteByte(' ')
	b.WriteString(directive)
	b.WriteByte(' ')
	for _, c := range clauses {
		b.WriteString(c.Name)
		switch c.Value.Kind {
		case metadata.Scalar:
			b.WriteString("(" + c.Value.Scalar + ")")
		case metadata.List:
			b.WriteString("(" + strings.Join(c.Value.Items, ",") + ")")
		}
		b.WriteByte(' ')
	}
	return b.String()
}

// Tokens splits a pragma into its space-separated words.
func Tokens(p string) map[string]struct{} {
	set := map[string]struct{}{}
	for _, tok := range strings.Fields(p) {
		set[tok] = struct{}{}
	}
	return set
}

// Equivalent reports whether two pragmas carry the same words regardless of
// clause order.
func Equivalent(a, b string) bool {
	ta, tb := Tokens(a), Tokens(b)
	if len(ta) != len(tb) {
		return false
	}
	for tok := range ta {
		if _, ok := tb[tok]; !ok {
			return false
		}
	}
	return true
}
