// Declaration emission, §4.4: classes, interfaces, enums, delegates, and
// the member-level dispatch (fields, properties/indexers, events,
// constructors, methods, local functions) that calls into the Function
// Emitter for anything with a body.
package emit

import (
	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/identresolve"
	"github.com/oxhq/cs2lua/internal/scope"
)

// EmitDeclaration dispatches on node.Kind for the type-level constructs a
// compilation unit or namespace directly contains.
func EmitDeclaration(c *Context, node *ast.Node) error {
	switch node.Kind {
	case ast.KindClassDecl:
		return emitClassDecl(c, node)
	case ast.KindInterfaceDecl:
		return emitInterfaceDecl(c, node)
	case ast.KindEnumDecl:
		return emitEnumDecl(c, node)
	case ast.KindDelegateDecl:
		return nil // delegates carry no runtime representation (§4.4)
	default:
		return compilererrUnsupportedKind(node)
	}
}

// emitClassDecl emits "local TYPE = class(BASE)", where BASE is the base
// type's output id or nil (or class_static(...) for a static class,
// §4.4); neither the type's name nor its interfaces are passed, and the
// members follow as separate statements. It pushes a Type Scope
// Frame for the duration of its member list so promotion and the
// Identifier Resolver's implicit-this/static rules apply, then dispatching
// every member in source order.
func emitClassDecl(c *Context, node *ast.Node) error {
	sym := c.Model.DeclaredSymbol(node)
	ty, ok := asTypeSymbol(c, node, sym)
	if !ok {
		return compilererrUnsupportedKind(node)
	}
	name := c.Model.LookupOutputID(sym)

	frame := c.Scope.PushType(ty, node)
	c.Resolver.SetTypeFrame(frame)
	defer func() {
		c.Scope.PopType()
		c.Resolver.SetTypeFrame(nil)
	}()

	ctor := "class"
	if ty.IsStaticClass {
		ctor = "class_static"
	}
	c.Out.Write("local " + name + " = " + ctor + "(")
	if ty.BaseType != nil {
		c.Out.Write(c.Model.LookupOutputID(&ty.BaseType.Symbol))
	} else {
		c.Out.Write("nil")
	}
	c.Out.Write(")")
	c.Out.Newline()

	for _, member := range node.Children {
		if err := emitMember(c, member, name, ty, node); err != nil {
			return err
		}
	}
	return nil
}

// asTypeSymbol resolves a class declaration's full TypeSymbol shape
// (BaseType, IsStaticClass, Interfaces) via the Semantic Model's TypeInfo
// query on the declaration node itself, which is populated by the same
// pass that records DeclaredSymbol. Falling back to a bare-Symbol wrap
// when TypeInfo has nothing for this node keeps the function usable from
// fixtures (e.g. memmodel-backed tests) that only populate Declared.
func asTypeSymbol(c *Context, node *ast.Node, sym *ast.Symbol) (*ast.TypeSymbol, bool) {
	if sym == nil {
		return nil, false
	}
	if info := c.Model.TypeInfo(node); info.Type != nil {
		return info.Type, true
	}
	return &ast.TypeSymbol{Symbol: *sym}, true
}

// emitInterfaceDecl emits "local TYPE = interface(...)" (§4.4): interfaces
// carry only method signatures, which have no body to emit, so only the
// binding itself is produced.
func emitInterfaceDecl(c *Context, node *ast.Node) error {
	sym := c.Model.DeclaredSymbol(node)
	name := c.Model.LookupOutputID(sym)
	c.Out.Write("local " + name + " = interface()")
	return nil
}

// emitEnumDecl emits a table literal of ascending auto-incremented member
// values, resetting the counter at any member whose initializer is a
// constant integer; any other initializer is emitted as written and the
// counter simply advances past it (§4.4).
func emitEnumDecl(c *Context, node *ast.Node) error {
	sym := c.Model.DeclaredSymbol(node)
	name := c.Model.LookupOutputID(sym)
	c.Out.Write("local " + name + " = {")
	c.Out.PushIndent(0)

	next := 0
	for i, member := range node.Children {
		if member.Kind != ast.KindEnumMember {
			continue
		}
		if i > 0 {
			c.Out.Write(",")
		}
		c.Out.Newline()
		memberSym := c.Model.DeclaredSymbol(member)
		memberName := c.Model.LookupOutputID(memberSym)
		c.Out.Write(memberName + " = ")
		if init := member.Child(0); init != nil {
			if v, ok := constInt(init); ok {
				next = v
			} else if err := EmitExpression(c, init); err != nil {
				return err
			}
		}
		if member.Child(0) == nil || isSimpleConstant(member.Child(0)) {
			c.Out.Write(itoa(next))
		}
		next++
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("}")
	return nil
}

func isSimpleConstant(n *ast.Node) bool {
	_, ok := constInt(n)
	return ok
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	neg := v < 0
	if neg {
		v = -v
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}

// --- Members (§4.4) ---------------------------------------------------------

// emitMember dispatches one class-body declaration: fields and auto
// properties, methods, constructors, accessors, nested local functions.
// Members recorded as promoted (§4.2) in the current Type Scope Frame are
// skipped here; emitClassDecl does not write them anywhere else, and
// nothing in this package records a member as promoted.
func emitMember(c *Context, member *ast.Node, typeName string, ty *ast.TypeSymbol, classNode *ast.Node) error {
	sym := c.Model.DeclaredSymbol(member)
	if scope.IsPromoted(c.Scope.CurrentType(), sym) {
		return nil
	}

	switch member.Kind {
	case ast.KindFieldDecl:
		return emitFieldDecl(c, member, typeName, sym)
	case ast.KindPropertyDecl, ast.KindIndexerDecl:
		return emitPropertyOrIndexer(c, member, typeName, sym)
	case ast.KindEventDecl:
		return emitEventDecl(c, member, typeName, sym)
	case ast.KindConstructorDecl:
		return emitConstructorMember(c, member, typeName, ty, classNode)
	case ast.KindMethodDecl, ast.KindLocalFunction:
		return EmitMethodDecl(c, member, MethodSpecifier{TypeName: typeName, Static: sym.IsStatic})
	default:
		return nil
	}
}

// emitFieldDecl emits "self.name = init" (instance) or "TYPE.name = init"
// (static), omitting the assignment entirely when a reference-typed field
// has no explicit initializer (its table slot is simply absent, and every
// read already goes through nil-safe access, §4.4).
func emitFieldDecl(c *Context, member *ast.Node, typeName string, sym *ast.Symbol) error {
	name := c.Model.LookupOutputID(sym)
	init := member.Child(0)
	if init == nil {
		return nil
	}
	if sym.IsStatic {
		c.Out.Write(typeName + "." + name + " = ")
	} else {
		c.Out.Write("self." + name + " = ")
	}
	if err := EmitExpression(c, init); err != nil {
		return err
	}
	c.Out.Newline()
	return nil
}

// emitPropertyOrIndexer emits each accessor the member declares (get/set,
// or the indexer's get_Item/set_Item, named by
// identresolve.AccessorIdentifier from the accessor kind and the member's
// output id).
func emitPropertyOrIndexer(c *Context, member *ast.Node, typeName string, sym *ast.Symbol) error {
	outputID := c.Model.LookupOutputID(sym)
	for _, acc := range member.Children {
		if acc.Kind != ast.KindAccessorDecl {
			continue
		}
		kind := accessorKindOf(acc, false)
		if err := EmitAccessor(c, acc, outputID, kind, sym.IsStatic, typeName); err != nil {
			return err
		}
		c.Out.Newline()
	}
	return nil
}

func emitEventDecl(c *Context, member *ast.Node, typeName string, sym *ast.Symbol) error {
	outputID := c.Model.LookupOutputID(sym)
	for _, acc := range member.Children {
		if acc.Kind != ast.KindAccessorDecl {
			continue
		}
		kind := accessorKindOf(acc, true)
		if err := EmitAccessor(c, acc, outputID, kind, sym.IsStatic, typeName); err != nil {
			return err
		}
		c.Out.Newline()
	}
	return nil
}

// accessorKindOf reads the accessor's own annotation (stamped by the
// semantic model: "accessor_get"/"accessor_set"/"accessor_add"/
// "accessor_remove"/"accessor_raise") to decide which identity to
// synthesize, defaulting by member category when absent.
func accessorKindOf(acc *ast.Node, isEvent bool) identresolve.AccessorKind {
	switch {
	case acc.Has("accessor_get"):
		return identresolve.AccessorGet
	case acc.Has("accessor_set"):
		return identresolve.AccessorSet
	case acc.Has("accessor_add"):
		return identresolve.AccessorAdd
	case acc.Has("accessor_remove"):
		return identresolve.AccessorRemove
	case acc.Has("accessor_raise"):
		return identresolve.AccessorRaise
	case isEvent:
		return identresolve.AccessorAdd
	default:
		return identresolve.AccessorGet
	}
}

// emitConstructorMember builds a ConstructorPlan from the constructor
// node's own chain-call child (if any) and the type's gathered member
// initializers, then delegates to EmitConstructorDecl.
func emitConstructorMember(c *Context, member *ast.Node, typeName string, ty *ast.TypeSymbol, classNode *ast.Node) error {
	sym := c.Model.DeclaredSymbol(member)
	isStatic := sym != nil && sym.IsStatic
	plan := ConstructorPlan{
		TypeName: typeName,
		IsStatic: isStatic,
		Inline:   gatherFieldInitializers(c, classNode, isStatic),
	}
	if ty.BaseType != nil {
		plan.BaseTypeName = c.Model.LookupOutputID(&ty.BaseType.Symbol)
	}
	if chain := member.Child(0); chain != nil {
		switch {
		case chain.Has("this_chain"):
			plan.ThisChainArgs = chain.Children
		case chain.Has("base_chain"):
			plan.BaseChainArgs = chain.Children
		}
	}
	if plan.ThisChainArgs == nil && plan.BaseChainArgs == nil && ty.BaseType != nil && !ty.BaseType.IsStaticClass {
		plan.BaseNeedsCtor = true
	}
	name := "Constructor"
	if plan.IsStatic {
		name = "cctor"
	}
	return EmitConstructorDecl(c, member, name, plan)
}

// gatherFieldInitializers returns, in declaration order, the field_decl
// nodes of classNode that declare an explicit initializer and match
// wantStatic, for EmitConstructorDecl to run inline (§4.2's member-
// initializer weaving). classNode's own children are the field
// declaration nodes themselves (emitClassDecl already walks them for
// emitMember), so no reverse member-to-node index is needed.
func gatherFieldInitializers(c *Context, classNode *ast.Node, wantStatic bool) []*ast.Node {
	var inits []*ast.Node
	for _, member := range classNode.Children {
		if member.Kind != ast.KindFieldDecl {
			continue
		}
		if member.Child(0) == nil {
			continue
		}
		sym := c.Model.DeclaredSymbol(member)
		if sym == nil || sym.IsStatic != wantStatic {
			continue
		}
		inits = append(inits, member)
	}
	return inits
}
