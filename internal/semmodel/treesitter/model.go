package treesitter

import (
	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
)

// Model answers semmodel.Model from the tables a builder populated while
// walking the tree-sitter parse tree. Its shape mirrors memmodel.Model
// deliberately: both are "every query answered from a pre-populated map"
// designs, one filled by hand in tests, the other filled by a parser.
type Model struct {
	symbols      map[*ast.Node]semmodel.SymbolInfo
	types        map[*ast.Node]semmodel.TypeInfo
	constants    map[*ast.Node]semmodel.ConstantInfo
	declared     map[*ast.Node]*ast.Symbol
	visible      []*ast.Symbol
	outputIDs    map[*ast.Symbol]string
	genericArgs  map[*ast.Node][]*ast.TypeSymbol
	extensions   map[*ast.MethodSymbol]bool
	ifaceImpls   map[*ast.TypeSymbol]map[*ast.Symbol]*ast.Symbol
	delegateInv  map[*ast.TypeSymbol]*ast.MethodSymbol
	condCompSyms map[*ast.MethodSymbol][]string
}

func newModel() *Model {
	return &Model{
		symbols:      map[*ast.Node]semmodel.SymbolInfo{},
		types:        map[*ast.Node]semmodel.TypeInfo{},
		constants:    map[*ast.Node]semmodel.ConstantInfo{},
		declared:     map[*ast.Node]*ast.Symbol{},
		outputIDs:    map[*ast.Symbol]string{},
		genericArgs:  map[*ast.Node][]*ast.TypeSymbol{},
		extensions:   map[*ast.MethodSymbol]bool{},
		ifaceImpls:   map[*ast.TypeSymbol]map[*ast.Symbol]*ast.Symbol{},
		delegateInv:  map[*ast.TypeSymbol]*ast.MethodSymbol{},
		condCompSyms: map[*ast.MethodSymbol][]string{},
	}
}

func (m *Model) SymbolInfo(node *ast.Node) semmodel.SymbolInfo { return m.symbols[node] }

func (m *Model) TypeInfo(node *ast.Node) semmodel.TypeInfo { return m.types[node] }

func (m *Model) ConstantValue(node *ast.Node) semmodel.ConstantInfo { return m.constants[node] }

func (m *Model) DeclaredSymbol(node *ast.Node) *ast.Symbol { return m.declared[node] }

// AnalyzeDataFlow distinguishes names a block declares from names it
// merely reads or writes; it does not attempt a real reaching-definitions
// pass, so DataFlowsIn is always empty (good enough for a fixture: the
// emitter only consults it to decide whether a Block Scope Frame needs an
// upvalue capture list, and this adapter's fixtures never nest closures
// deep enough for that to matter).
func (m *Model) AnalyzeDataFlow(block *ast.Node) (semmodel.DataFlowResult, error) {
	declared := map[*ast.Symbol]bool{}
	var decls []*ast.Symbol
	var collect func(n *ast.Node)
	collect = func(n *ast.Node) {
		if n == nil {
			return
		}
		if sym := m.declared[n]; sym != nil && sym.Kind == ast.SymLocal {
			if !declared[sym] {
				declared[sym] = true
				decls = append(decls, sym)
			}
		}
		for _, c := range n.Children {
			collect(c)
		}
	}
	collect(block)
	return semmodel.DataFlowResult{Succeeded: true, VariablesDeclared: decls}, nil
}

func (m *Model) LookupNamespacesAndTypes(pos ast.Span) []*ast.Symbol { return m.visible }

// LookupOutputID returns the interned identifier for sym, assigning one
// from its source name the first time it is asked about.
func (m *Model) LookupOutputID(sym *ast.Symbol) string {
	if id, ok := m.outputIDs[sym]; ok {
		return id
	}
	id := sym.Name
	m.outputIDs[sym] = id
	return id
}

// IsPure always reports false: purity analysis needs whole-program
// reasoning this fixture-scale adapter does not attempt.
func (m *Model) IsPure(method *ast.MethodSymbol) bool { return false }

func (m *Model) ConditionalCompilationSymbols(method *ast.MethodSymbol) []string {
	return m.condCompSyms[method]
}

func (m *Model) IsExtensionMethod(method *ast.MethodSymbol) bool { return m.extensions[method] }

// OverrideChain is not populated: resolving the full override chain needs
// the base type's own declaration, which a single-file fixture parse does
// not have. The builder never sets Symbol.Overrides, so parsed methods
// get nil here; a method whose Overrides is set by other means gets a
// one-element chain holding just that method.
func (m *Model) OverrideChain(method *ast.MethodSymbol) []*ast.MethodSymbol {
	if method == nil || method.Overrides == nil {
		return nil
	}
	return []*ast.MethodSymbol{{Symbol: *method.Overrides}}
}

// InterfaceImplementations is not populated: a single-file fixture parse
// has no cross-type interface-satisfaction pass.
func (m *Model) InterfaceImplementations(method *ast.MethodSymbol) []*ast.MethodSymbol { return nil }

func (m *Model) DelegateInvokeMethod(delegateType *ast.TypeSymbol) *ast.MethodSymbol {
	return m.delegateInv[delegateType]
}

func (m *Model) GenericTypeArguments(node *ast.Node) []*ast.TypeSymbol { return m.genericArgs[node] }

func (m *Model) ImplementationForInterfaceMember(ty *ast.TypeSymbol, member *ast.Symbol) *ast.Symbol {
	return m.ifaceImpls[ty][member]
}

var _ semmodel.Model = (*Model)(nil)
