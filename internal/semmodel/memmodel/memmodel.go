// Package memmodel is a minimal, hand-built semmodel.Model implementation
// used by unit tests that construct ASTs directly rather than parsing
// them. It answers every query from maps populated by the test, mirroring
// the teacher's preference for small, explicit fixtures over magic
// (see providers/base/provider_test.go's table-built fixtures).
package memmodel

import (
	"sync"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
)

// Model is a test double for semmodel.Model. All fields are exported so
// tests can populate exactly the answers a scenario needs; anything left
// unset returns the zero value (e.g. an empty SymbolInfo).
type Model struct {
	mu sync.Mutex

	Symbols      map[*ast.Node]semmodel.SymbolInfo
	Types        map[*ast.Node]semmemTypeInfo
	Constants    map[*ast.Node]semmodel.ConstantInfo
	Declared     map[*ast.Node]*ast.Symbol
	DataFlows    map[*ast.Node]semmodel.DataFlowResult
	DataFlowErrs map[*ast.Node]error
	Visible      []*ast.Symbol
	OutputIDs    map[*ast.Symbol]string

	Pure             map[*ast.MethodSymbol]bool
	CondCompSyms     map[*ast.MethodSymbol][]string
	Extensions       map[*ast.MethodSymbol]bool
	Overrides        map[*ast.MethodSymbol][]*ast.MethodSymbol
	IfaceImpls       map[*ast.MethodSymbol][]*ast.MethodSymbol
	DelegateInvokes  map[*ast.TypeSymbol]*ast.MethodSymbol
	GenericTypeArgs  map[*ast.Node][]*ast.TypeSymbol
	IfaceMemberImpls map[*ast.Symbol]*ast.Symbol

	nextID int
}

type semmemTypeInfo = semmodel.TypeInfo

// New returns an empty Model ready for a test to populate.
func New() *Model {
	return &Model{
		Symbols:          map[*ast.Node]semmodel.SymbolInfo{},
		Types:            map[*ast.Node]semmemTypeInfo{},
		Constants:        map[*ast.Node]semmodel.ConstantInfo{},
		Declared:         map[*ast.Node]*ast.Symbol{},
		DataFlows:        map[*ast.Node]semmodel.DataFlowResult{},
		DataFlowErrs:     map[*ast.Node]error{},
		OutputIDs:        map[*ast.Symbol]string{},
		Pure:             map[*ast.MethodSymbol]bool{},
		CondCompSyms:     map[*ast.MethodSymbol][]string{},
		Extensions:       map[*ast.MethodSymbol]bool{},
		Overrides:        map[*ast.MethodSymbol][]*ast.MethodSymbol{},
		IfaceImpls:       map[*ast.MethodSymbol][]*ast.MethodSymbol{},
		DelegateInvokes:  map[*ast.TypeSymbol]*ast.MethodSymbol{},
		GenericTypeArgs:  map[*ast.Node][]*ast.TypeSymbol{},
		IfaceMemberImpls: map[*ast.Symbol]*ast.Symbol{},
	}
}

func (m *Model) SymbolInfo(node *ast.Node) semmodel.SymbolInfo { return m.Symbols[node] }

func (m *Model) TypeInfo(node *ast.Node) semmodel.TypeInfo { return m.Types[node] }

func (m *Model) ConstantValue(node *ast.Node) semmodel.ConstantInfo { return m.Constants[node] }

func (m *Model) DeclaredSymbol(node *ast.Node) *ast.Symbol { return m.Declared[node] }

func (m *Model) AnalyzeDataFlow(block *ast.Node) (semmodel.DataFlowResult, error) {
	if err, ok := m.DataFlowErrs[block]; ok {
		return semmodel.DataFlowResult{}, err
	}
	if res, ok := m.DataFlows[block]; ok {
		return res, nil
	}
	return semmodel.DataFlowResult{Succeeded: true}, nil
}

func (m *Model) LookupNamespacesAndTypes(pos ast.Span) []*ast.Symbol { return m.Visible }

// LookupOutputID returns the pre-registered output id for sym, or
// sym.Name if the test never overrode it (the common case: most test
// symbols need no renaming at all).
func (m *Model) LookupOutputID(sym *ast.Symbol) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.OutputIDs[sym]; ok {
		return id
	}
	return sym.Name
}

func (m *Model) IsPure(method *ast.MethodSymbol) bool { return m.Pure[method] }

func (m *Model) ConditionalCompilationSymbols(method *ast.MethodSymbol) []string {
	return m.CondCompSyms[method]
}

func (m *Model) IsExtensionMethod(method *ast.MethodSymbol) bool { return m.Extensions[method] }

func (m *Model) OverrideChain(method *ast.MethodSymbol) []*ast.MethodSymbol {
	return m.Overrides[method]
}

func (m *Model) InterfaceImplementations(method *ast.MethodSymbol) []*ast.MethodSymbol {
	return m.IfaceImpls[method]
}

func (m *Model) DelegateInvokeMethod(delegateType *ast.TypeSymbol) *ast.MethodSymbol {
	return m.DelegateInvokes[delegateType]
}

func (m *Model) GenericTypeArguments(node *ast.Node) []*ast.TypeSymbol {
	return m.GenericTypeArgs[node]
}

func (m *Model) ImplementationForInterfaceMember(ty *ast.TypeSymbol, member *ast.Symbol) *ast.Symbol {
	return m.IfaceMemberImpls[member]
}

var _ semmodel.Model = (*Model)(nil)
