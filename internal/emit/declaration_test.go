package emit

import (
	"testing"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitClassDeclWritesClassBindingAndMembers(t *testing.T) {
	c, model, sb := newTestContext()
	classSym := &ast.Symbol{Name: "Widget", Kind: ast.SymNamedType}
	model.OutputIDs[classSym] = "Widget"

	fieldSym := &ast.Symbol{Name: "count", Kind: ast.SymField}
	initExpr := lit(0)
	model.Constants[initExpr] = semmodel.ConstantInfo{HasValue: true, Value: 0}
	field := &ast.Node{Kind: ast.KindFieldDecl, Children: []*ast.Node{initExpr}}
	model.Declared[field] = fieldSym

	node := &ast.Node{Kind: ast.KindClassDecl, Children: []*ast.Node{field}}
	model.Declared[node] = classSym

	require.NoError(t, EmitDeclaration(c, node))
	out := sb.String()
	assert.Contains(t, out, "local Widget = class(nil)")
	assert.Contains(t, out, "self.count = ")
}

func TestEmitEnumDeclAutoIncrementsMembers(t *testing.T) {
	c, model, sb := newTestContext()
	enumSym := &ast.Symbol{Name: "Color", Kind: ast.SymNamedType}
	model.OutputIDs[enumSym] = "Color"

	redSym := &ast.Symbol{Name: "Red", Kind: ast.SymField}
	greenSym := &ast.Symbol{Name: "Green", Kind: ast.SymField}
	red := &ast.Node{Kind: ast.KindEnumMember}
	green := &ast.Node{Kind: ast.KindEnumMember}
	model.Declared[red] = redSym
	model.Declared[green] = greenSym

	node := &ast.Node{Kind: ast.KindEnumDecl, Children: []*ast.Node{red, green}}
	model.Declared[node] = enumSym

	require.NoError(t, EmitDeclaration(c, node))
	out := sb.String()
	assert.Contains(t, out, "Red = 0")
	assert.Contains(t, out, "Green = 1")
}

func TestEmitInterfaceDeclWritesInterfaceBinding(t *testing.T) {
	c, model, sb := newTestContext()
	ifaceSym := &ast.Symbol{Name: "Shape", Kind: ast.SymNamedType}
	model.OutputIDs[ifaceSym] = "Shape"
	node := &ast.Node{Kind: ast.KindInterfaceDecl}
	model.Declared[node] = ifaceSym

	require.NoError(t, EmitDeclaration(c, node))
	assert.Equal(t, "local Shape = interface()", sb.String())
}

func TestEmitDelegateDeclIsANoOp(t *testing.T) {
	c, _, sb := newTestContext()
	node := &ast.Node{Kind: ast.KindDelegateDecl}
	require.NoError(t, EmitDeclaration(c, node))
	assert.Empty(t, sb.String())
}
