package emit

import (
	"testing"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitWhileLoopEmitsContinueLabelOnlyWhenUsed(t *testing.T) {
	c, model, sb := newTestContext()
	cond := ident("ok")
	model.Symbols[cond] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "ok", Kind: ast.SymLocal}}
	node := &ast.Node{Kind: ast.KindWhileStmt, Children: []*ast.Node{cond, block()}}

	require.NoError(t, EmitLoop(c, node))
	out := sb.String()
	assert.Contains(t, out, "while ok do")
	assert.NotContains(t, out, "::continue::")
}

func TestEmitDoLoopNegatesCondition(t *testing.T) {
	c, model, sb := newTestContext()
	cond := ident("done")
	model.Symbols[cond] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "done", Kind: ast.SymLocal}}
	node := &ast.Node{Kind: ast.KindDoStmt, Children: []*ast.Node{block(), cond}}

	require.NoError(t, EmitLoop(c, node))
	assert.Contains(t, sb.String(), "until not (done)")
}

func TestEmitSimpleForUsesNativeNumericFor(t *testing.T) {
	c, model, sb := newTestContext()
	counter := &ast.Symbol{Name: "i", Kind: ast.SymLocal}
	initExpr := lit(0)
	model.Constants[initExpr] = semmodel.ConstantInfo{HasValue: true, Value: 0}

	initStmt := &ast.Node{Kind: ast.KindLocalDeclStmt, Children: []*ast.Node{initExpr}}
	model.Declared[initStmt] = counter

	condCounterRef := ident("i")
	model.Symbols[condCounterRef] = semmodel.SymbolInfo{Primary: counter}
	bound := lit(10)
	model.Constants[bound] = semmodel.ConstantInfo{HasValue: true, Value: 10}
	cond := &ast.Node{Kind: ast.KindBinaryExpr, Tokens: []string{"<"}, Children: []*ast.Node{condCounterRef, bound}}

	incrTarget := ident("i")
	model.Symbols[incrTarget] = semmodel.SymbolInfo{Primary: counter}
	incr := &ast.Node{Kind: ast.KindUnaryExpr, Tokens: []string{"++"}, Children: []*ast.Node{incrTarget}}

	body := block()
	node := &ast.Node{Kind: ast.KindForStmt, Children: []*ast.Node{initStmt, cond, incr, body}}
	model.DataFlows[body] = semmodel.DataFlowResult{Succeeded: true}

	require.NoError(t, EmitLoop(c, node))
	out := sb.String()
	assert.Contains(t, out, "for i = ")
	assert.Contains(t, out, "0, ")
	assert.Contains(t, out, "9")
}

func TestEmitForEachOverArrayUsesIpairs(t *testing.T) {
	c, model, sb := newTestContext()
	iterSym := &ast.Symbol{Name: "v", Kind: ast.SymLocal}
	source := ident("items")
	model.Symbols[source] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "items", Kind: ast.SymLocal}}
	model.Types[source] = semmodel.TypeInfo{Type: &ast.TypeSymbol{TypeKindTag: ast.TypeArray, ElementType: &ast.TypeSymbol{Special: ast.SpecialInt32}}}

	node := &ast.Node{Kind: ast.KindForEachStmt, Children: []*ast.Node{source, block()}}
	model.Declared[node] = iterSym

	require.NoError(t, EmitLoop(c, node))
	assert.Contains(t, sb.String(), "for _, v in ipairs(items) do")
}

func TestEmitForEachRangePseudoCallUsesNumericFor(t *testing.T) {
	c, model, sb := newTestContext()
	iterSym := &ast.Symbol{Name: "i", Kind: ast.SymLocal}
	callee := &ast.Node{Kind: ast.KindIdentifierExpr, Tokens: []string{"range"}}
	start, stop := lit(0), lit(5)
	model.Constants[start] = semmodel.ConstantInfo{HasValue: true, Value: 0}
	model.Constants[stop] = semmodel.ConstantInfo{HasValue: true, Value: 5}
	call := &ast.Node{Kind: ast.KindInvocationExpr, Children: []*ast.Node{callee, start, stop}}

	node := &ast.Node{Kind: ast.KindForEachStmt, Children: []*ast.Node{call, block()}}
	model.Declared[node] = iterSym

	require.NoError(t, EmitLoop(c, node))
	assert.Contains(t, sb.String(), "for i = 0, 5 do")
}
