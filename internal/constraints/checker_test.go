package constraints

import (
	"testing"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/oxhq/cs2lua/internal/semmodel/memmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckRejectsAsync(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindMethodDecl, Annotations: map[ast.Annotation]bool{"async": true}}
	err := New(model).Check(node)
	require.Error(t, err)
}

func TestCheckRejectsRefOutParam(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindParameter, Annotations: map[ast.Annotation]bool{"ref": true}}
	err := New(model).Check(node)
	require.Error(t, err)
}

func TestCheckAcceptsUncheckedAsNoOp(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindBlock, Annotations: map[ast.Annotation]bool{"unchecked": true}}
	err := New(model).Check(node)
	assert.NoError(t, err)
}

func TestCheckRejectsMultiDimArray(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindLocalDeclStmt, Annotations: map[ast.Annotation]bool{"multi_rank": true}}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{TypeKindTag: ast.TypeArray}}
	err := New(model).Check(node)
	require.Error(t, err)
}

func TestCheckRejectsObjectArrayElement(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindLocalDeclStmt}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{
		TypeKindTag: ast.TypeArray,
		ElementType: &ast.TypeSymbol{Special: ast.SpecialObject},
	}}
	err := New(model).Check(node)
	require.Error(t, err)
}

func TestCheckRejectsAssignmentOutsideStatementPosition(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindAssignmentExpr}
	err := New(model).Check(node)
	require.Error(t, err)
}

func TestCheckAllowsAssignmentInForInit(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindAssignmentExpr, Annotations: map[ast.Annotation]bool{"for_init_position": true}}
	err := New(model).Check(node)
	assert.NoError(t, err)
}

func TestCheckAllowsOutOfRangeLiteralUnderExplicitCast(t *testing.T) {
	model := memmodel.New()
	node := &ast.Node{Kind: ast.KindLiteralExpr, Annotations: map[ast.Annotation]bool{"explicit_cast_int32_or_double": true}}
	model.Types[node] = semmodel.TypeInfo{Type: &ast.TypeSymbol{TypeKindTag: ast.TypeError}}
	err := New(model).Check(node)
	assert.NoError(t, err)
}

func TestCheckAllCollectsEveryViolation(t *testing.T) {
	model := memmodel.New()
	root := &ast.Node{Kind: ast.KindBlock, Children: []*ast.Node{
		{Kind: ast.KindMethodDecl, Annotations: map[ast.Annotation]bool{"async": true}},
		{Kind: ast.KindParameter, Annotations: map[ast.Annotation]bool{"ref": true}},
	}}
	errs := New(model).CheckAll(root)
	assert.Len(t, errs, 2)
}
