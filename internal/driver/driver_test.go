package driver

import (
	"testing"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/cache"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/oxhq/cs2lua/internal/semmodel/memmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileUnitEmitsTrailingReturnForFinalClass(t *testing.T) {
	model := memmodel.New()

	classSym := &ast.Symbol{Name: "Widget", Kind: ast.SymNamedType}
	model.OutputIDs[classSym] = "Widget"
	class := &ast.Node{Kind: ast.KindClassDecl}
	model.Declared[class] = classSym

	root := &ast.Node{Kind: ast.KindCompilationUnit, Children: []*ast.Node{class}}

	res, err := CompileUnit(Unit{Root: root, Model: model})
	require.NoError(t, err)
	assert.Contains(t, res.Lua, "local Widget = class(nil)")
	assert.Contains(t, res.Lua, "return Widget")
}

func TestCompileUnitOmitsReturnWhenLastDeclIsNotAClass(t *testing.T) {
	model := memmodel.New()

	ifaceSym := &ast.Symbol{Name: "Shape", Kind: ast.SymNamedType}
	model.OutputIDs[ifaceSym] = "Shape"
	iface := &ast.Node{Kind: ast.KindInterfaceDecl}
	model.Declared[iface] = ifaceSym

	root := &ast.Node{Kind: ast.KindCompilationUnit, Children: []*ast.Node{iface}}

	res, err := CompileUnit(Unit{Root: root, Model: model})
	require.NoError(t, err)
	assert.NotContains(t, res.Lua, "return")
}

func TestCompileUnitCollectAllGathersDiagnosticsWithoutEmitting(t *testing.T) {
	model := memmodel.New()

	bad := &ast.Node{Kind: ast.KindClassDecl, Annotations: map[ast.Annotation]bool{"async": true}}
	root := &ast.Node{Kind: ast.KindCompilationUnit, Children: []*ast.Node{bad}}

	res, err := CompileUnit(Unit{Root: root, Model: model, Diagnostics: CollectAll})
	require.NoError(t, err)
	assert.Empty(t, res.Lua)
	assert.Len(t, res.Diagnostics, 1)
}

func TestCompileUnitFailFastAbortsOnFirstViolation(t *testing.T) {
	model := memmodel.New()

	bad := &ast.Node{Kind: ast.KindClassDecl, Annotations: map[ast.Annotation]bool{"async": true}}
	root := &ast.Node{Kind: ast.KindCompilationUnit, Children: []*ast.Node{bad}}

	_, err := CompileUnit(Unit{Root: root, Model: model})
	require.Error(t, err)
}

func TestCompileUnitThreadsSharedCacheIntoEmitContext(t *testing.T) {
	model := memmodel.New()

	classSym := &ast.Symbol{Name: "Widget", Kind: ast.SymNamedType}
	model.OutputIDs[classSym] = "Widget"
	class := &ast.Node{Kind: ast.KindClassDecl}
	model.Declared[class] = classSym

	root := &ast.Node{Kind: ast.KindCompilationUnit, Children: []*ast.Node{class}}
	shared := cache.Memory()

	res, err := CompileUnit(Unit{Root: root, Model: model, Cache: shared})
	require.NoError(t, err)
	assert.Contains(t, res.Lua, "local Widget = class(nil)")
}

var _ semmodel.Model = (*memmodel.Model)(nil)
