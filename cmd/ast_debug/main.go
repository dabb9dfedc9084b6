// Command ast_debug prints the tree-sitter syntax tree of C files, marking
// the nodes pragcc treats as functions, loops and includes.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	tree_sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/pragcc/pragcc/internal/lang"
	"github.com/pragcc/pragcc/internal/parser"
)

func marker(spec *lang.LanguageSpec, kind string) string {
	switch {
	case spec.IsFunction(kind):
		return " [function]"
	case spec.IsLoop(kind):
		return " [loop]"
	case spec.IsImport(kind):
		return " [include]"
	}
	return ""
}

func printAST(w io.Writer, spec *lang.LanguageSpec, node *tree_sitter.Node, source []byte, indent int) {
	if node == nil {
		return
	}
	text := parser.NodeText(node, source)
	if len(text) > 60 {
		text = text[:60] + "..."
	}
	flags := ""
	if node.IsError() {
		flags = " ERROR"
	} else if node.IsMissing() {
		flags = " MISSING"
	}
	fmt.Fprintf(w, "%s%s%s%s lines %d-%d %q\n",
		strings.Repeat("  ", indent), node.Kind(), marker(spec, node.Kind()), flags,
		parser.StartLine(node), parser.EndLine(node), text)
	for i := uint(0); i < node.ChildCount(); i++ {
		printAST(w, spec, node.Child(i), source, indent+1)
	}
}

func dump(w io.Writer, path string) error {
	source, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	tree, err := parser.Parse(lang.C, source)
	if err != nil {
		return err
	}
	defer tree.Close()

	fmt.Fprintf(w, "=== %s ===\n", path)
	printAST(w, lang.ForLanguage(lang.C), tree.RootNode(), source, 0)
	return nil
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: ast_debug file.c [file.c ...]")
		os.Exit(2)
	}
	status := 0
	for _, path := range os.Args[1:] {
		if err := dump(os.Stdout, path); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
			status = 1
		}
	}
	os.Exit(status)
}
