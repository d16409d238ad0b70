package treesitter

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/cs2lua/internal/ast"
)

// builder walks one tree-sitter parse tree and fills in a Model as it
// goes. A single builder is used for one file: its scope stack, current
// type/method, and caches are all file-scoped, matching the "single-file
// fixture" framing of the package doc.
type builder struct {
	src   []byte
	model *Model

	scopes        []map[string]*ast.Symbol
	types         map[string]*ast.TypeSymbol // declared in this file, by simple name
	members       map[*ast.TypeSymbol]map[string]*ast.Symbol
	symbolTypes   map[*ast.Symbol]*ast.TypeSymbol // declared static type, by symbol identity
	builtinCache  map[string]*ast.TypeSymbol
	externalCache map[string]*ast.TypeSymbol

	currentType   *ast.TypeSymbol
	currentMethod *ast.MethodSymbol
}

func newBuilder(src []byte) *builder {
	return &builder{
		src:           src,
		model:         newModel(),
		types:         map[string]*ast.TypeSymbol{},
		symbolTypes:   map[*ast.Symbol]*ast.TypeSymbol{},
		builtinCache:  map[string]*ast.TypeSymbol{},
		externalCache: map[string]*ast.TypeSymbol{},
	}
}

func (b *builder) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return n.Content(b.src)
}

func (b *builder) span(n *sitter.Node) ast.Span {
	return ast.Span{
		StartLine: int(n.StartPoint().Row) + 1,
		EndLine:   int(n.EndPoint().Row) + 1,
		StartCol:  int(n.StartPoint().Column),
	}
}

func (b *builder) pushScope()      { b.scopes = append(b.scopes, map[string]*ast.Symbol{}) }
func (b *builder) popScope()       { b.scopes = b.scopes[:len(b.scopes)-1] }
func (b *builder) declareLocal(name string, ty *ast.TypeSymbol) *ast.Symbol {
	sym := &ast.Symbol{Name: name, Kind: ast.SymLocal}
	if len(b.scopes) > 0 {
		b.scopes[len(b.scopes)-1][name] = sym
	}
	b.symbolTypes[sym] = ty
	return sym
}

// lookupName resolves a bare identifier against the local scope chain,
// then the current type's instance/static members, then file-level
// declared types (for a reference to a type name itself).
func (b *builder) lookupName(name string) *ast.Symbol {
	for i := len(b.scopes) - 1; i >= 0; i-- {
		if sym, ok := b.scopes[i][name]; ok {
			return sym
		}
	}
	if b.currentType != nil {
		if sym := b.memberLookup(b.currentType, name); sym != nil {
			return sym
		}
	}
	if ty, ok := b.types[name]; ok {
		return &ty.Symbol
	}
	return nil
}

func (b *builder) memberLookup(ty *ast.TypeSymbol, name string) *ast.Symbol {
	if sym, ok := b.members[ty][name]; ok {
		return sym
	}
	return nil
}

// --- Compilation unit -------------------------------------------------

func (b *builder) buildCompilationUnit(root *sitter.Node) *ast.Node {
	b.members = map[*ast.TypeSymbol]map[string]*ast.Symbol{}
	b.predeclareTypes(root)

	unit := &ast.Node{Kind: ast.KindCompilationUnit, Span: b.span(root)}
	b.collectTopLevel(root, unit)
	return unit
}

// predeclareTypes does a first shallow pass over every class/interface
// declaration (descending through namespaces) so forward references
// within the file (a field of type Foo declared before Foo itself)
// resolve. Member tables are filled in during the real build pass.
func (b *builder) predeclareTypes(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "namespace_declaration":
			if body := c.ChildByFieldName("body"); body != nil {
				b.predeclareTypes(body)
			}
		case "class_declaration", "interface_declaration", "struct_declaration":
			name := b.text(c.ChildByFieldName("name"))
			if name == "" {
				continue
			}
			kind := ast.TypeClass
			if c.Type() == "interface_declaration" {
				kind = ast.TypeInterface
			} else if c.Type() == "struct_declaration" {
				kind = ast.TypeStruct
			}
			ty := &ast.TypeSymbol{
				Symbol:      ast.Symbol{Name: name, Kind: ast.SymNamedType},
				TypeKindTag: kind,
			}
			b.types[name] = ty
			b.members[ty] = map[string]*ast.Symbol{}
		}
	}
}

// collectTopLevel appends every declaration found at n (recursing through
// namespace wrappers, which have no emitted representation of their own:
// §6's Kind set already flattens namespaces into the compilation unit)
// as a child of unit.
func (b *builder) collectTopLevel(n *sitter.Node, unit *ast.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "namespace_declaration", "file_scoped_namespace_declaration":
			if body := c.ChildByFieldName("body"); body != nil {
				b.collectTopLevel(body, unit)
			} else {
				b.collectTopLevel(c, unit)
			}
		case "class_declaration", "interface_declaration", "struct_declaration":
			unit.Children = append(unit.Children, b.buildTypeDecl(c))
		case "enum_declaration":
			unit.Children = append(unit.Children, b.buildEnumDecl(c))
		case "delegate_declaration":
			unit.Children = append(unit.Children, b.buildDelegateDecl(c))
		case "using_directive":
			// not represented: the target language has no import statement.
		}
	}
}

func hasModifier(n *sitter.Node, src []byte, word string) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		if c.Type() == "modifier" && strings.TrimSpace(c.Content(src)) == word {
			return true
		}
	}
	return false
}
