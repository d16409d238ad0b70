package treesitter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/emit"
	"github.com/oxhq/cs2lua/internal/output"
)

// emitUnit drives the real emitter over a parsed compilation unit, the way
// internal/driver.CompileUnit does for one top-level declaration at a time,
// and returns the written Lua text.
func emitUnit(t *testing.T, unit *ast.Node, model *Model) string {
	t.Helper()
	var sb strings.Builder
	out := output.New(&sb, nil)
	c := emit.NewContext(model, out, nil)
	for _, decl := range unit.Children {
		require.NoError(t, emit.EmitDeclaration(c, decl))
		out.Newline()
	}
	return sb.String()
}

func TestParseRejectsSyntaxErrors(t *testing.T) {
	_, _, err := Parse([]byte("class {{{"))
	require.Error(t, err)
}

func TestParseSimpleClassWithFieldAndMethod(t *testing.T) {
	src := `
class Counter {
    private int value;

    public Counter() {
        this.value = 0;
    }

    public int Get() {
        return this.value;
    }

    public void Add(int n) {
        this.value = this.value + n;
    }
}
`
	unit, model, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, unit.Children, 1)

	class := unit.Children[0]
	assert.Equal(t, ast.KindClassDecl, class.Kind)
	classSym := model.DeclaredSymbol(class)
	require.NotNil(t, classSym)
	assert.Equal(t, "Counter", classSym.Name)

	var sawField, sawCtor, sawGet, sawAdd bool
	for _, member := range class.Children {
		sym := model.DeclaredSymbol(member)
		require.NotNil(t, sym)
		switch {
		case member.Kind == ast.KindFieldDecl:
			sawField = true
			assert.Equal(t, "value", sym.Name)
		case member.Kind == ast.KindConstructorDecl:
			sawCtor = true
		case member.Kind == ast.KindMethodDecl && sym.Name == "Get":
			sawGet = true
		case member.Kind == ast.KindMethodDecl && sym.Name == "Add":
			sawAdd = true
		}
	}
	assert.True(t, sawField, "expected a field_decl member")
	assert.True(t, sawCtor, "expected a constructor_decl member")
	assert.True(t, sawGet, "expected a Get method_decl member")
	assert.True(t, sawAdd, "expected an Add method_decl member")

	out := emitUnit(t, unit, model)
	assert.Contains(t, out, "class(nil)")
	assert.Contains(t, out, "function Counter:Get()")
	assert.Contains(t, out, "function Counter:Add(n)")
}

func TestParseInterfaceDecl(t *testing.T) {
	src := `
interface IShape {
    double Area();
}
`
	unit, model, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, unit.Children, 1)
	iface := unit.Children[0]
	assert.Equal(t, ast.KindInterfaceDecl, iface.Kind)
	sym := model.DeclaredSymbol(iface)
	require.NotNil(t, sym)
	assert.Equal(t, "IShape", sym.Name)
}

func TestParseEnumDeclMembers(t *testing.T) {
	src := `
enum Color {
    Red,
    Green,
    Blue
}
`
	unit, model, err := Parse([]byte(src))
	require.NoError(t, err)
	require.Len(t, unit.Children, 1)
	enum := unit.Children[0]
	assert.Equal(t, ast.KindEnumDecl, enum.Kind)
	require.Len(t, enum.Children, 3)
	for i, want := range []string{"Red", "Green", "Blue"} {
		sym := model.DeclaredSymbol(enum.Children[i])
		require.NotNil(t, sym)
		assert.Equal(t, want, sym.Name)
	}
}

func TestParsePropertyDeclSynthesizesAutoAccessors(t *testing.T) {
	src := `
class Point {
    public int X { get; set; }
}
`
	unit, _, err := Parse([]byte(src))
	require.NoError(t, err)
	class := unit.Children[0]
	require.Len(t, class.Children, 1)
	prop := class.Children[0]
	assert.Equal(t, ast.KindPropertyDecl, prop.Kind)
	require.Len(t, prop.Children, 2)
	assert.True(t, prop.Children[0].Has("accessor_get"))
	assert.True(t, prop.Children[1].Has("accessor_set"))
}

func TestParseIndexerDeclInjectsIndexParameterIntoAccessors(t *testing.T) {
	src := `
class Bag {
    private int[] items;

    public int this[int i] {
        get { return items[i]; }
        set { items[i] = value; }
    }
}
`
	unit, model, err := Parse([]byte(src))
	require.NoError(t, err)
	class := unit.Children[0]
	var indexer *ast.Node
	for _, m := range class.Children {
		if m.Kind == ast.KindIndexerDecl {
			indexer = m
		}
	}
	require.NotNil(t, indexer)
	require.Len(t, indexer.Children, 2)

	getter := indexer.Children[0]
	require.True(t, getter.Has("accessor_get"))
	require.NotEmpty(t, getter.Children)
	param := getter.Children[0]
	assert.Equal(t, ast.KindParameter, param.Kind)
	paramSym := model.DeclaredSymbol(param)
	require.NotNil(t, paramSym)
	assert.Equal(t, "i", paramSym.Name)
}

func TestParseSwitchStatementSectionsAndGotoCase(t *testing.T) {
	src := `
class Dispatcher {
    public void Run(int code) {
        switch (code) {
            case 1:
                goto case 2;
            case 2:
                break;
            default:
                break;
        }
    }
}
`
	unit, _, err := Parse([]byte(src))
	require.NoError(t, err)
	class := unit.Children[0]
	method := class.Children[0]
	require.NotEmpty(t, method.Children)
	block := method.Children[len(method.Children)-1]
	require.Equal(t, ast.KindBlock, block.Kind)
	require.Len(t, block.Children, 1)

	sw := block.Children[0]
	assert.Equal(t, ast.KindSwitchStmt, sw.Kind)
	require.Len(t, sw.Children, 4) // discriminant + 3 sections
	for _, sec := range sw.Children[1:] {
		assert.Equal(t, ast.KindSwitchSection, sec.Kind)
	}

	firstSectionBody := sw.Children[1].Children[len(sw.Children[1].Children)-1]
	require.Len(t, firstSectionBody.Children, 1)
	assert.Equal(t, ast.KindGotoCaseStmt, firstSectionBody.Children[0].Kind)
}

func TestParseForEachAndTryCatchFinally(t *testing.T) {
	src := `
class Reader {
    public void ReadAll(int[] items) {
        foreach (int item in items) {
            try {
                Process(item);
            } catch (Exception e) {
                Log(e);
            } finally {
                Cleanup();
            }
        }
    }
}
`
	unit, model, err := Parse([]byte(src))
	require.NoError(t, err)
	class := unit.Children[0]
	method := class.Children[0]
	block := method.Children[len(method.Children)-1]
	require.Len(t, block.Children, 1)

	forEach := block.Children[0]
	assert.Equal(t, ast.KindForEachStmt, forEach.Kind)
	require.Len(t, forEach.Children, 3)
	loopVar := forEach.Children[0]
	sym := model.DeclaredSymbol(loopVar)
	require.NotNil(t, sym)
	assert.Equal(t, "item", sym.Name)

	body := forEach.Children[2]
	require.Len(t, body.Children, 1)
	tryStmt := body.Children[0]
	assert.Equal(t, ast.KindTryStmt, tryStmt.Kind)
	require.Len(t, tryStmt.Children, 3) // body, one catch, finally
	catch := tryStmt.Children[1]
	assert.Equal(t, ast.KindCatchClause, catch.Kind)
	require.Len(t, catch.Tokens, 1)
	assert.Equal(t, "Exception", catch.Tokens[0])
}

func TestParseOperatorMethodNamedConventionally(t *testing.T) {
	src := `
class Vector {
    public int X;

    public static Vector operator +(Vector a, Vector b) {
        return a;
    }
}
`
	unit, model, err := Parse([]byte(src))
	require.NoError(t, err)
	class := unit.Children[0]
	var op *ast.Node
	for _, m := range class.Children {
		if m.Kind == ast.KindMethodDecl {
			op = m
		}
	}
	require.NotNil(t, op)
	sym := model.DeclaredSymbol(op)
	require.NotNil(t, sym)
	assert.Equal(t, "op_Addition", sym.Name)
}
