package emit

import (
	"testing"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/identresolve"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func param(name string, isParams bool) *ast.Node {
	n := &ast.Node{Kind: ast.KindParameter}
	if isParams {
		n.Annotations = map[ast.Annotation]bool{paramsModifier: true}
	}
	return n
}

func TestEmitMethodDeclWritesSendSyntaxForInstanceMember(t *testing.T) {
	c, model, sb := newTestContext()
	methodSym := &ast.Symbol{Name: "DoThing", Kind: ast.SymMethod}
	node := &ast.Node{
		Kind:     ast.KindMethodDecl,
		Children: []*ast.Node{block()},
	}
	model.Declared[node] = methodSym

	require.NoError(t, EmitMethodDecl(c, node, MethodSpecifier{TypeName: "Widget"}))
	assert.Contains(t, sb.String(), "function Widget:DoThing()")
	assert.Contains(t, sb.String(), "end")
}

func TestEmitMethodDeclMapsUserOperatorToDunder(t *testing.T) {
	c, model, sb := newTestContext()
	methodSym := &ast.Symbol{Name: "op_Addition", Kind: ast.SymMethod, IsStatic: true}
	node := &ast.Node{Kind: ast.KindMethodDecl, Children: []*ast.Node{block()}}
	model.Declared[node] = methodSym

	require.NoError(t, EmitMethodDecl(c, node, MethodSpecifier{TypeName: "Vec", Static: true}))
	assert.Contains(t, sb.String(), "function Vec.__add()")
}

func TestEmitMethodDeclRewritesVariadicParamToDots(t *testing.T) {
	c, model, sb := newTestContext()
	methodSym := &ast.Symbol{Name: "Sum", Kind: ast.SymMethod}
	rest := param("rest", true)
	restSym := &ast.Symbol{Name: "rest", Kind: ast.SymParameter}
	model.Declared[rest] = restSym
	model.OutputIDs[restSym] = "rest"

	ref := &ast.Node{Kind: ast.KindIdentifierExpr, Tokens: []string{"rest"}}
	model.Symbols[ref] = semmodel.SymbolInfo{Primary: restSym}

	body := block(exprStmt(ref))
	node := &ast.Node{Kind: ast.KindMethodDecl, Children: []*ast.Node{rest, body}}
	model.Declared[node] = methodSym

	require.NoError(t, EmitMethodDecl(c, node, MethodSpecifier{TypeName: "Widget"}))
	out := sb.String()
	assert.Contains(t, out, "function Widget:Sum(...)")
	assert.Contains(t, out, "...")
}

func TestEmitAccessorSynthesizesAutoGetterAndSetter(t *testing.T) {
	c, model, sb := newTestContext()
	getter := &ast.Node{Kind: ast.KindAccessorDecl, Annotations: map[ast.Annotation]bool{"accessor_get": true}}
	require.NoError(t, EmitAccessor(c, getter, "Count", identresolve.AccessorGet, false, "Widget"))
	assert.Contains(t, sb.String(), "function Widget:get_Count()")
	assert.Contains(t, sb.String(), "return self.Count")

	c2, model2, sb2 := newTestContext()
	setter := &ast.Node{Kind: ast.KindAccessorDecl}
	require.NoError(t, EmitAccessor(c2, setter, "Count", identresolve.AccessorSet, false, "Widget"))
	assert.Contains(t, sb2.String(), "function Widget:set_Count(value)")
	assert.Contains(t, sb2.String(), "self.Count = value")
	_, _ = model, model2
}

func TestEmitLambdaExpressionBodyPrependsReturn(t *testing.T) {
	c, model, sb := newTestContext()
	litNode := lit(1)
	model.Constants[litNode] = semmodel.ConstantInfo{HasValue: true, Value: 1}
	node := &ast.Node{Kind: ast.KindLambdaExpr, Children: []*ast.Node{litNode}}

	require.NoError(t, EmitLambda(c, node))
	out := sb.String()
	assert.Contains(t, out, "function()")
	assert.Contains(t, out, "return")
	assert.Contains(t, out, "end")
}
