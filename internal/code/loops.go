package code

import (
	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/pragcc/pragcc/internal/lang"
	"github.com/pragcc/pragcc/internal/parser"
)

// extractLoops walks a function subtree in pre-order and returns its loops.
// Depth counts the loops already open on the current path; indices follow
// visiting order.
func extractLoops(spec *lang.LanguageSpec, fn *tree_sitter.Node, beginLine int) []Loop {
	loops := []Loop{}

	var visit func(n *tree_sitter.Node, depth int)
	visit = func(n *tree_sitter.Node, depth int) {
		childDepth := depth
		if spec.IsLoop(n.Kind()) {
			loops = append(loops, newLoop(spec, n, len(loops), depth, beginLine))
			childDepth++
		}
		for i := uint(0); i < n.ChildCount(); i++ {
			if child := n.Child(i); child != nil {
				visit(child, childDepth)
			}
		}
	}
	visit(fn, 0)

	return loops
}

func newLoop(spec *lang.LanguageSpec, n *tree_sitter.Node, index, depth, beginLine int) Loop {
	begin := parser.StartLine(n)

	// A loop with a single bare statement ends where its header is.
	end := begin
	if body := n.ChildByFieldName("body"); body != nil && spec.IsBlock(body.Kind()) {
		end = parser.EndLine(body)
	}

	return Loop{
		Index: index,
		Depth: depth,
		Begin: Position{Absolute: begin, Relative: begin - beginLine},
		End:   Position{Absolute: end, Relative: end - beginLine},
	}
}

// functionName follows the declarator chain of a function definition down to
// its identifier, through pointer and parenthesized declarators.
func functionName(spec *lang.LanguageSpec, fn *tree_sitter.Node, source []byte) string {
	d := fn.ChildByFieldName(spec.DeclaratorField)
	for d != nil {
		if spec.IsName(d.Kind()) {
			return parser.NodeText(d, source)
		}
		next := d.ChildByFieldName(spec.DeclaratorField)
		if next == nil {
			next = d.NamedChild(0)
		}
		d = next
	}
	return ""
}
