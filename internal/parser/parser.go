package parser

import (
	"errors"
	"fmt"
	"sync"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/pragcc/pragcc/internal/lang"
)

// ErrSyntax is returned by ParseStrict when the tree contains error or
// missing nodes.
var ErrSyntax = errors.New("syntax error")

// SyntaxError locates the first error node of a rejected source.
type SyntaxError struct {
	Line   int // 1-based
	Column int // 1-based
	Near   string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("syntax error at %d:%d", e.Line, e.Column)
	}
	return fmt.Sprintf("syntax error at %d:%d near %q", e.Line, e.Column, e.Near)
}

func (e *SyntaxError) Unwrap() error { return ErrSyntax }

var (
	languagesOnce sync.Once
	languages     map[lang.Language]*tree_sitter.Language
	parserPools   map[lang.Language]*sync.Pool
)

func initLanguages() {
	languagesOnce.Do(func() {
		languages = map[lang.Language]*tree_sitter.Language{
			lang.C: tree_sitter.NewLanguage(tree_sitter_c.Language()),
		}

		parserPools = make(map[lang.Language]*sync.Pool, len(languages))
		for l, tsLang := range languages {
			parserPools[l] = &sync.Pool{
				New: func() any {
					p := tree_sitter.NewParser()
					if err := p.SetLanguage(tsLang); err != nil {
						panic(fmt.Sprintf("set language: %v", err))
					}
					return p
				},
			}
		}
	})
}

// GetLanguage returns the tree-sitter Language for a lang.Language.
func GetLanguage(l lang.Language) (*tree_sitter.Language, error) {
	initLanguages()
	tsLang, ok := languages[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}
	return tsLang, nil
}

// Parse parses source code into a tree-sitter AST Tree. The tree may contain
// error nodes; use ParseStrict to reject those.
// The caller must call tree.Close() when done.
// Parsers are pooled per language; trees are never retained.
func Parse(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	initLanguages()

	pool, ok := parserPools[l]
	if !ok {
		return nil, fmt.Errorf("unsupported language: %s", l)
	}

	p, _ := pool.Get().(*tree_sitter.Parser)
	if p == nil {
		return nil, fmt.Errorf("failed to get parser for language %s", l)
	}
	tree := p.Parse(source, nil)
	pool.Put(p)

	if tree == nil {
		return nil, fmt.Errorf("parse failed for language %s", l)
	}

	return tree, nil
}

// ParseStrict is Parse but fails with a *SyntaxError (wrapping ErrSyntax)
// when the tree contains error or missing nodes.
func ParseStrict(l lang.Language, source []byte) (*tree_sitter.Tree, error) {
	tree, err := Parse(l, source)
	if err != nil {
		return nil, err
	}
	root := tree.RootNode()
	if root == nil || !root.HasError() {
		return tree, nil
	}

	serr := &SyntaxError{Line: 1, Column: 1}
	if bad := firstError(root); bad != nil {
		pos := bad.StartPosition()
		serr.Line = int(pos.Row) + 1
		serr.Column = int(pos.Column) + 1
		near := NodeText(bad, source)
		if len(near) > 40 {
			near = near[:40]
		}
		serr.Near = near
	}
	tree.Close()
	return nil, serr
}

func firstError(root *tree_sitter.Node) *tree_sitter.Node {
	var found *tree_sitter.Node
	Walk(root, func(n *tree_sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

// WalkFunc is called for each node during AST traversal.
// Return false to skip children.
type WalkFunc func(node *tree_sitter.Node) bool

// Walk traverses the AST in depth-first order.
func Walk(node *tree_sitter.Node, fn WalkFunc) {
	if node == nil {
		return
	}
	if !fn(node) {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child != nil {
			Walk(child, fn)
		}
	}
}

// NodeText returns the text content of a node.
func NodeText(node *tree_sitter.Node, source []byte) string {
	return string(source[node.StartByte():node.EndByte()])
}

// StartLine returns the 1-based line on which node begins.
func StartLine(node *tree_sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// EndLine returns the 1-based line holding the last character of node.
func EndLine(node *tree_sitter.Node) int {
	end := node.EndPosition()
	row := int(end.Row) + 1
	// A node ending right after a newline reports column 0 of the next row.
	if end.Column == 0 && end.Row > node.StartPosition().Row {
		row--
	}
	return row
}
