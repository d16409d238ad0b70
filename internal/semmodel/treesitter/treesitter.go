// Package treesitter is a test/fixture Semantic Model adapter (§6): it
// parses literal CS-dialect source with the tree-sitter C# grammar and
// answers the Model interface from the parse tree plus a few simple
// symbol tables, so package tests can feed the emitter real parsed ASTs
// instead of hand-built node literals. It is not a production semantic
// analyzer: name resolution is single-pass and file-scoped, there is no
// overload resolution, and data-flow analysis only distinguishes
// declared-here from free names. A production caller supplies its own
// Model (§6 treats it as an external collaborator).
package treesitter

import (
	"fmt"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"

	"github.com/oxhq/cs2lua/internal/ast"
)

// Parse parses source with the tree-sitter C# grammar and returns the
// compilation-unit root alongside a Model answering every query the
// emitter needs about it. The returned error reports a syntax error tree
// (an ERROR node) rather than trying to compile through it.
func Parse(source []byte) (*ast.Node, *Model, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(csharp.GetLanguage())

	tree, err := parser.ParseCtx(nil, nil, source)
	if err != nil {
		return nil, nil, fmt.Errorf("treesitter: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, nil, fmt.Errorf("treesitter: syntax error near byte %d", firstErrorOffset(root))
	}

	b := newBuilder(source)
	unit := b.buildCompilationUnit(root)
	return unit, b.model, nil
}

func firstErrorOffset(n *sitter.Node) int {
	if n.Type() == "ERROR" {
		return int(n.StartByte())
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		if off := firstErrorOffset(n.Child(i)); off >= 0 {
			return off
		}
	}
	return -1
}
