// Package semmodel defines the narrow external interface of spec §6: the
// Semantic Model. It is deliberately an interface only — the real
// implementation (symbol resolution, type inference, constant folding,
// data-flow analysis) is an external collaborator the emitter queries
// read-only (§5). Two reference implementations live in subpackages:
// memmodel (hand-built, for unit tests) and treesitter (parses literal
// CS-dialect source with the tree-sitter C# grammar, for golden-file
// fixtures).
package semmodel

import "github.com/oxhq/cs2lua/internal/ast"

// SymbolReason explains why a candidate symbol was not chosen as primary
// when a reference is ambiguous.
type SymbolReason string

// SymbolInfo is the result of resolving a name reference: the primary
// symbol plus any overload-resolution candidates and why each lost.
type SymbolInfo struct {
	Primary    *ast.Symbol
	Candidates []*ast.Symbol
	Reasons    []SymbolReason
}

// TypeInfo is the result of a type query on an expression node: its
// static type and, if a conversion applies at this position, the
// converted-to type (used to detect delegate-binding, widening casts,
// etc).
type TypeInfo struct {
	Type          *ast.TypeSymbol
	ConvertedType *ast.TypeSymbol
}

// ConstantInfo is the result of constant-folding a node.
type ConstantInfo struct {
	HasValue bool
	Value    any
}

// DataFlowResult mirrors the record a Block Scope Frame stores (§3):
// which locals the block declares, which flow in from an enclosing scope,
// and which it reads/writes.
type DataFlowResult struct {
	Succeeded        bool
	VariablesDeclared []*ast.Symbol
	DataFlowsIn       []*ast.Symbol
	ReadInside        []*ast.Symbol
	WrittenInside     []*ast.Symbol
}

// Model is the narrow interface the emitter queries. All methods are
// read-only; any caching Model performs internally must be safe for
// concurrent use by multiple units compiling in parallel (§5).
type Model interface {
	// SymbolInfo resolves a name reference.
	SymbolInfo(node *ast.Node) SymbolInfo
	// TypeInfo resolves an expression's static and converted type.
	TypeInfo(node *ast.Node) TypeInfo
	// ConstantValue attempts to constant-fold node.
	ConstantValue(node *ast.Node) ConstantInfo
	// DeclaredSymbol returns the symbol a declaration node introduces.
	DeclaredSymbol(node *ast.Node) *ast.Symbol
	// AnalyzeDataFlow runs data-flow analysis over a block.
	AnalyzeDataFlow(block *ast.Node) (DataFlowResult, error)
	// LookupNamespacesAndTypes returns the namespaces/types visible at a
	// source position (used to compute a Block Scope Frame's globals).
	LookupNamespacesAndTypes(pos ast.Span) []*ast.Symbol
	// LookupOutputID returns the deduped identifier the emitter will use
	// for sym, consulting (and populating) the interning cache.
	LookupOutputID(sym *ast.Symbol) string

	// Per-symbol attribute queries (§6).
	IsPure(method *ast.MethodSymbol) bool
	ConditionalCompilationSymbols(method *ast.MethodSymbol) []string
	IsExtensionMethod(method *ast.MethodSymbol) bool
	OverrideChain(method *ast.MethodSymbol) []*ast.MethodSymbol
	InterfaceImplementations(method *ast.MethodSymbol) []*ast.MethodSymbol
	DelegateInvokeMethod(delegateType *ast.TypeSymbol) *ast.MethodSymbol
	GenericTypeArguments(node *ast.Node) []*ast.TypeSymbol
	ImplementationForInterfaceMember(ty *ast.TypeSymbol, member *ast.Symbol) *ast.Symbol
}
