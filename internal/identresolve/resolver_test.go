package identresolve

import (
	"testing"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/scope"
	"github.com/oxhq/cs2lua/internal/semmodel/memmodel"
	"github.com/stretchr/testify/assert"
)

func TestResolveBareNameInstanceField(t *testing.T) {
	model := memmodel.New()
	sym := &ast.Symbol{Name: "count", Kind: ast.SymField}
	r := New(model, scope.New(model))

	res := r.ResolveBareName(sym, true)
	assert.Equal(t, FormImplicitThis, res.Form)
	assert.Equal(t, "count", res.Name)
}

func TestResolveBareNameStaticField(t *testing.T) {
	model := memmodel.New()
	sym := &ast.Symbol{Name: "Instance", Kind: ast.SymField, IsStatic: true}
	r := New(model, scope.New(model))

	res := r.ResolveBareName(sym, true)
	assert.Equal(t, FormImplicitStatic, res.Form)
}

func TestResolveBareNamePromotedStaysBare(t *testing.T) {
	model := memmodel.New()
	sym := &ast.Symbol{Name: "helper", Kind: ast.SymMethod, Access: ast.AccessPrivate}
	r := New(model, scope.New(model))

	ty := &ast.TypeSymbol{TypeKindTag: ast.TypeClass}
	frame := pushType(r, ty)
	scope.Promote(frame, &ast.Node{}, sym)

	res := r.ResolveBareName(sym, true)
	assert.Equal(t, FormPromotedBare, res.Form)
	assert.Equal(t, "helper", res.Name)
}

func TestResolveAccessorSetterUnterminated(t *testing.T) {
	model := memmodel.New()
	eng := scope.New(model)
	setter := &ast.MethodSymbol{Symbol: ast.Symbol{Name: "Count"}, MethodKindTag: ast.MethodPropertySet}
	r := New(model, eng)

	// Simulate the LHS tracking an enclosing compound assignment would set.
	_, err := eng.Push(scope.KindFunction, &ast.Node{Kind: ast.KindBlock}, scope.PushCtorArgs{}, nil)
	assert.NoError(t, err)
	eng.SetLHS(setter)

	sym := &ast.Symbol{Name: "Count", Kind: ast.SymProperty}
	res := r.ResolveAccessor(sym, "Count")
	assert.Equal(t, FormSetter, res.Form)
	assert.True(t, res.Unterminated)
	assert.Equal(t, "set_Count", res.Name)
}

func TestResolveGenericSpecialization(t *testing.T) {
	out := ResolveGenericSpecialization("Box", "Box_T1", []string{"T"}, []string{"NumberImpl"})
	assert.Equal(t, `genericlookup("Box", "Box_T1", "T", NumberImpl)`, out)
}

func pushType(r *Resolver, ty *ast.TypeSymbol) *scope.TypeScopeFrame {
	frame := scope.New(r.model).PushType(ty, &ast.Node{})
	r.SetTypeFrame(frame)
	return frame
}
