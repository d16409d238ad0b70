package emit

import (
	"strings"
	"testing"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/cache"
	"github.com/oxhq/cs2lua/internal/output"
	"github.com/oxhq/cs2lua/internal/scope"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/oxhq/cs2lua/internal/semmodel/memmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContext() (*Context, *memmodel.Model, *strings.Builder) {
	var sb strings.Builder
	model := memmodel.New()
	out := output.New(&sb, nil)
	return NewContext(model, out, nil), model, &sb
}

func lit(value any) *ast.Node { return &ast.Node{Kind: ast.KindLiteralExpr} }

func ident(name string) *ast.Node {
	return &ast.Node{Kind: ast.KindIdentifierExpr, Tokens: []string{name}}
}

func TestEmit32BitAddOverflowNarrows(t *testing.T) {
	c, model, sb := newTestContext()
	left, right := ident("a"), ident("b")
	i32 := &ast.TypeSymbol{Special: ast.SpecialInt32}
	model.Types[left] = semmodel.TypeInfo{Type: i32}
	model.Types[right] = semmodel.TypeInfo{Type: i32}
	model.Symbols[left] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "a", Kind: ast.SymLocal}}
	model.Symbols[right] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "b", Kind: ast.SymLocal}}

	node := &ast.Node{Kind: ast.KindBinaryExpr, Tokens: []string{"+"}, Children: []*ast.Node{left, right}}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "__i32narrow__(a + b)", sb.String())
}

func TestEmitCoalesceOnBooleanRHSUsesTableForm(t *testing.T) {
	c, model, sb := newTestContext()
	a, b := ident("flag"), ident("fallback")
	model.Symbols[a] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "flag", Kind: ast.SymLocal}}
	model.Symbols[b] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "fallback", Kind: ast.SymLocal}}

	node := &ast.Node{Kind: ast.KindCoalesceExpr, Children: []*ast.Node{a, b}}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialBoolean}}

	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "((flag == nil) and {fallback} or {flag})[1]", sb.String())
}

func TestEmitCoalesceOnNonBooleanUsesCompactForm(t *testing.T) {
	c, model, sb := newTestContext()
	a, b := ident("name"), ident("other")
	model.Symbols[a] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "name", Kind: ast.SymLocal}}
	model.Symbols[b] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "other", Kind: ast.SymLocal}}

	node := &ast.Node{Kind: ast.KindCoalesceExpr, Children: []*ast.Node{a, b}}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialString}}

	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "(name) and (name) or (other)", sb.String())
}

func TestEmitElementAccessRebasesAndRefGuards(t *testing.T) {
	c, model, sb := newTestContext()
	arr := ident("items")
	idx := &ast.Node{Kind: ast.KindLiteralExpr}
	model.Constants[idx] = semmodel.ConstantInfo{HasValue: true, Value: 0}
	model.Symbols[arr] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "items", Kind: ast.SymLocal}}
	model.Types[arr] = semmodel.TypeInfo{Type: &ast.TypeSymbol{
		TypeKindTag: ast.TypeArray,
		ElementType: &ast.TypeSymbol{Special: ast.SpecialString},
	}}

	node := &ast.Node{Kind: ast.KindElementAccessExpr, Children: []*ast.Node{arr, idx}}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "(items[1] or nil)", sb.String())
}

func TestEmitElementAccessOnIndexerDispatchesGetItem(t *testing.T) {
	c, model, sb := newTestContext()
	recv, idx := ident("map"), ident("key")
	model.Symbols[recv] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "map", Kind: ast.SymLocal}}
	model.Types[recv] = semmodel.TypeInfo{Type: &ast.TypeSymbol{TypeKindTag: ast.TypeClass, Symbol: ast.Symbol{Name: "Dictionary"}}}
	model.Symbols[idx] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "key", Kind: ast.SymLocal}}

	node := &ast.Node{Kind: ast.KindElementAccessExpr, Children: []*ast.Node{recv, idx}}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "map:get_Item(key)", sb.String())
}

func TestEmitInstanceMethodInvocationUsesColon(t *testing.T) {
	c, model, sb := newTestContext()
	recv := ident("worker")
	model.Symbols[recv] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "worker", Kind: ast.SymLocal}}
	method := &ast.Symbol{Name: "Run", Kind: ast.SymMethod}

	memberAccess := &ast.Node{Kind: ast.KindMemberAccessExpr, Tokens: []string{"Run"}, Children: []*ast.Node{recv}}
	model.Symbols[memberAccess] = semmodel.SymbolInfo{Primary: method}

	call := &ast.Node{Kind: ast.KindInvocationExpr, Children: []*ast.Node{memberAccess}}
	require.NoError(t, EmitExpression(c, call))
	assert.Equal(t, "worker:Run()", sb.String())
}

func TestEmitPropertySetterCompoundAssign(t *testing.T) {
	c, model, sb := newTestContext()
	recv := ident("acct")
	model.Symbols[recv] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "acct", Kind: ast.SymLocal}}
	propSym := &ast.Symbol{Name: "Balance", Kind: ast.SymProperty}

	target := &ast.Node{Kind: ast.KindMemberAccessExpr, Tokens: []string{"Balance"}, Children: []*ast.Node{recv}}
	model.Symbols[target] = semmodel.SymbolInfo{Primary: propSym}

	value := lit(10)
	model.Constants[value] = semmodel.ConstantInfo{HasValue: true, Value: 10}

	node := &ast.Node{Kind: ast.KindAssignmentExpr, Tokens: []string{"+="}, Children: []*ast.Node{target, value}}

	// Push a frame so Scope.SetLHS has somewhere to record the marker.
	_, err := c.Scope.Push(scope.KindFunction, &ast.Node{Kind: ast.KindBlock}, scope.PushCtorArgs{}, nil)
	require.NoError(t, err)

	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "acct:set_Balance(acct:get_Balance() + 10)", sb.String())
}

func TestEmitTryWithReturnLeavesExpressionUntouched(t *testing.T) {
	// The Expression Emitter itself does no try/return rewriting (that is
	// the Statement Emitter's job via scope control-options); confirm a
	// plain literal inside what would be a try body emits unchanged.
	c, model, sb := newTestContext()
	node := lit(42)
	model.Constants[node] = semmodel.ConstantInfo{HasValue: true, Value: 42}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "42", sb.String())
}

func TestEmitTernaryAlwaysTruthyUsesCompactForm(t *testing.T) {
	c, model, sb := newTestContext()
	cond, then, els := ident("ok"), lit(1), lit(2)
	model.Symbols[cond] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "ok", Kind: ast.SymLocal}}
	model.Constants[then] = semmodel.ConstantInfo{HasValue: true, Value: 1}
	model.Constants[els] = semmodel.ConstantInfo{HasValue: true, Value: 2}
	model.Types[then] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialInt32}}

	node := &ast.Node{Kind: ast.KindTernaryExpr, Children: []*ast.Node{cond, then, els}}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "(ok) and (1) or (2)", sb.String())
}

func TestEmitStringConcatWrapsNonStringInTostring(t *testing.T) {
	c, model, sb := newTestContext()
	left, right := lit("x = "), ident("n")
	model.Constants[left] = semmodel.ConstantInfo{HasValue: true, Value: "x = "}
	model.Types[left] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialString}}
	model.Symbols[right] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "n", Kind: ast.SymLocal}}
	model.Types[right] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialInt32}}

	node := &ast.Node{Kind: ast.KindBinaryExpr, Tokens: []string{"+"}, Children: []*ast.Node{left, right}}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, `'x = ' .. tostring(n)`, sb.String())
}

func TestEmitNullableComparisonGuardsSimpleOperand(t *testing.T) {
	c, model, sb := newTestContext()
	left, right := ident("maybe"), lit(0)
	model.Symbols[left] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "maybe", Kind: ast.SymLocal}}
	model.Types[left] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialNullableT}}
	model.Constants[right] = semmodel.ConstantInfo{HasValue: true, Value: 0}

	node := &ast.Node{Kind: ast.KindBinaryExpr, Tokens: []string{">"}, Children: []*ast.Node{left, right}}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "((maybe ~= nil and maybe) > 0)", sb.String())
}

func TestEmitCastToInt32CallsCastInt(t *testing.T) {
	c, model, sb := newTestContext()
	operand := ident("d")
	model.Symbols[operand] = semmodel.SymbolInfo{Primary: &ast.Symbol{Name: "d", Kind: ast.SymLocal}}
	model.Types[operand] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialDouble}}

	node := &ast.Node{Kind: ast.KindCastExpr, Children: []*ast.Node{operand}}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Special: ast.SpecialInt32}}

	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "castint(d)", sb.String())
}

func TestEmitObjectCreatePlainTypeUsesOutputID(t *testing.T) {
	c, model, sb := newTestContext()
	node := &ast.Node{Kind: ast.KindObjectCreateExpr}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Symbol: ast.Symbol{Name: "Widget"}}}

	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "Widget:New()", sb.String())
}

func TestEmitObjectCreateGenericTypeUsesGenericLookupAndCachesIt(t *testing.T) {
	c, model, sb := newTestContext()
	c.Cache = cache.Memory()

	numberArg := &ast.TypeSymbol{Symbol: ast.Symbol{Name: "NumberImpl"}}
	node := &ast.Node{Kind: ast.KindObjectCreateExpr}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{Symbol: ast.Symbol{Name: "Box", GenericArity: 1}}}
	model.GenericTypeArgs[node] = []*ast.TypeSymbol{numberArg}

	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, `genericlookup("Box", "Box_NumberImpl", "T1", NumberImpl):New()`, sb.String())

	cached, ok := c.Cache.Lookup("Box", "Box_NumberImpl")
	require.True(t, ok)
	assert.Equal(t, `genericlookup("Box", "Box_NumberImpl", "T1", NumberImpl)`, cached)
}

func TestEmitDiscardWritesUnderscore(t *testing.T) {
	c, _, sb := newTestContext()
	node := &ast.Node{Kind: ast.KindDiscardExpr}
	require.NoError(t, EmitExpression(c, node))
	assert.Equal(t, "_", sb.String())
}
