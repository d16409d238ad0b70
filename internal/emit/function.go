// Function emission, §4.5: methods, constructors (with member-initializer
// weaving and base-chain resolution), accessors, and lambdas. Each kind
// pushes a Function or Lambda scope frame so the Scope Engine's dedup and
// continue-label machinery applies uniformly inside the body (§4.2).
package emit

import (
	"fmt"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/identresolve"
	"github.com/oxhq/cs2lua/internal/scope"
)

// --- Parameter lists (§4.5) ----------------------------------------------

// splitParams separates node's children into leading type-parameter
// nodes, ordinary parameter nodes, and a trailing body block (nil for a
// method with no body, e.g. abstract/extern — the Declaration Emitter
// never calls into here for those).
func splitParams(node *ast.Node) (typeParams, params []*ast.Node, body *ast.Node) {
	for _, ch := range node.Children {
		switch ch.Kind {
		case ast.KindTypeParameter:
			typeParams = append(typeParams, ch)
		case ast.KindParameter:
			params = append(params, ch)
		case ast.KindBlock:
			body = ch
		}
	}
	return typeParams, params, body
}

const paramsModifier ast.Annotation = "is_params"

// paramOutputName resolves a parameter node's deduped emitted name,
// preferring the current block frame's dedup map (populated on Push) over
// the Model's bare LookupOutputID.
func paramOutputName(c *Context, sym *ast.Symbol) string {
	name := c.Model.LookupOutputID(sym)
	if f := c.Scope.Current(); f != nil {
		if id, ok := f.DedupBySymbol[sym]; ok {
			return id
		}
	}
	return name
}

// emitParamList writes "(p1, p2, ..., ...)" for typeParams and params,
// prepending generic type parameters as explicit type-value parameters
// (§4.5) and rewriting a final params-decorated parameter to the target
// variadic token. It returns the symbol of that variadic parameter, if
// any, so the caller can install it via Context.SetVariadicParam for the
// duration of the body visit.
func emitParamList(c *Context, typeParams, params []*ast.Node) (variadic *ast.Symbol) {
	c.Out.Write("(")
	wrote := false
	for _, tp := range typeParams {
		if wrote {
			c.Out.Write(", ")
		}
		sym := c.Model.DeclaredSymbol(tp)
		c.Out.Write(paramOutputName(c, sym))
		wrote = true
	}
	for i, p := range params {
		if wrote {
			c.Out.Write(", ")
		}
		sym := c.Model.DeclaredSymbol(p)
		if i == len(params)-1 && p.Has(paramsModifier) {
			c.Out.Write("...")
			variadic = sym
		} else {
			c.Out.Write(paramOutputName(c, sym))
		}
		wrote = true
	}
	c.Out.Write(")")
	return variadic
}

// --- Methods (§4.5) -------------------------------------------------------

// MethodSpecifier names how the Declaration Emitter wants a method's
// header written: as a promoted file-level local, as a bare instance
// member (colon-send binding), or qualified by its containing type
// (static dot-binding or explicit instance colon-binding).
type MethodSpecifier struct {
	Promoted bool
	TypeName string // "" for an unqualified instance member
	Static   bool
}

func (s MethodSpecifier) header(name string) string {
	switch {
	case s.Promoted:
		return "local function " + name
	case s.TypeName == "":
		return "function " + name
	case s.Static:
		return "function " + s.TypeName + "." + name
	default:
		return "function " + s.TypeName + ":" + name
	}
}

// operatorDunder maps a user-defined operator's method name to the target
// language's dunder-metamethod protocol (§4.5).
var operatorDunder = map[string]string{
	"op_Addition": "__add", "op_Subtraction": "__sub", "op_Multiply": "__mul",
	"op_Division": "__div", "op_Modulus": "__mod", "op_LessThan": "__lt",
	"op_LessThanOrEqual": "__le", "op_UnaryNegation": "__unm",
	"ToString": "__tostring",
}

// EmitMethodDecl emits "function SPECIFIER NAME(params) body end" for an
// ordinary method, user-defined operator, or promoted local function
// (§4.5). The body's own statements begin on their source lines via
// emitStatementsInBlock. The method's conditional-compilation symbols are
// not consulted: a method annotated with an excluded symbol is emitted as
// ordinary code, not commented out.
func EmitMethodDecl(c *Context, node *ast.Node, spec MethodSpecifier) error {
	sym := c.Model.DeclaredSymbol(node)
	name := c.Model.LookupOutputID(sym)
	if dunder, ok := operatorDunder[name]; ok {
		name = dunder
	}

	typeParams, params, body := splitParams(node)
	if body == nil {
		return nil // abstract/extern: no body to emit
	}

	restoreInstance := c.SetInsideInstanceMethod(!spec.Static)
	defer restoreInstance()

	c.Out.Write(spec.header(name))
	variadic := emitParamList(c, typeParams, params)
	restoreVariadic := c.SetVariadicParam(variadic)
	defer restoreVariadic()

	if _, err := c.Scope.Push(scope.KindFunction, node, scope.PushCtorArgs{}, nil); err != nil {
		return err
	}
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	_, err := c.Scope.Pop(scope.KindFunction)
	return err
}

// --- Constructors (§4.5) ---------------------------------------------------

// ConstructorPlan bundles what the Declaration Emitter has already worked
// out about one constructor before calling EmitConstructorDecl: whether it
// chains to this(...)/base(...), the member-initializer statements that
// must run inline, and whether the containing type's base class needs a
// synthesized base-constructor call when no explicit chain exists.
type ConstructorPlan struct {
	TypeName      string
	BaseTypeName  string // the containing type's base type output id, if any
	IsStatic      bool
	ThisChainArgs []*ast.Node // non-nil iff the source explicitly chains this(...)
	BaseChainArgs []*ast.Node // non-nil iff the source explicitly chains base(...)
	Inline        []*ast.Node // member-initializer assignment statements
	BaseNeedsCtor bool        // true if the base type requires a synthesized base() call
	BaseCtorArgs  []*ast.Node // arguments for the synthesized base call, if BaseNeedsCtor
}

// EmitConstructorDecl emits "function TYPE:Constructor(args)" (or
// "function TYPE.cctor()" for a static constructor) following the
// ordering of §4.5: an explicit this(...) chain skips inline
// initializers entirely (the innermost constructor runs them); an
// explicit base(...) chain or a synthesized base call runs inline
// initializers first so virtual calls from the base constructor observe
// initialized fields; otherwise inline initializers run unconditionally.
// Member initializers are wrapped in a fixed-line guard because the
// Declaration Emitter may have physically re-ordered them ahead of their
// textual declaration position.
func EmitConstructorDecl(c *Context, node *ast.Node, name string, plan ConstructorPlan) error {
	_, params, body := splitParams(node)

	restoreInstance := c.SetInsideInstanceMethod(!plan.IsStatic)
	defer restoreInstance()

	if plan.IsStatic {
		c.Out.Write("function " + plan.TypeName + ".cctor()")
	} else {
		c.Out.Write("function " + plan.TypeName + ":" + name)
		emitParamList(c, nil, params)
	}

	ctorArgs := plan.ThisChainArgs
	hasBaseCall := plan.BaseChainArgs != nil || plan.BaseNeedsCtor
	if ctorArgs == nil {
		ctorArgs = plan.BaseChainArgs
	}
	if _, err := c.Scope.Push(scope.KindFunction, node, scope.PushCtorArgs{
		IsConstructor:    true,
		BaseOrThisArgs:   ctorArgs,
		HasBaseCall:      hasBaseCall,
		BodyTopLevelStmt: topLevelExprStmts(body),
	}, nil); err != nil {
		return err
	}
	c.Out.PushIndent(0)

	switch {
	case plan.ThisChainArgs != nil:
		c.Out.Newline()
		if err := emitChainCall(c, plan.TypeName, "Constructor", plan.ThisChainArgs); err != nil {
			return err
		}
	case plan.BaseChainArgs != nil:
		if err := c.Out.FixedLine(func() error { return emitInlineInitializers(c, plan.TypeName, plan.Inline) }); err != nil {
			return err
		}
		c.Out.Newline()
		if err := emitChainCall(c, plan.BaseTypeName, "Constructor", plan.BaseChainArgs); err != nil {
			return err
		}
	case plan.BaseNeedsCtor:
		if err := c.Out.FixedLine(func() error { return emitInlineInitializers(c, plan.TypeName, plan.Inline) }); err != nil {
			return err
		}
		c.Out.Newline()
		if err := emitChainCall(c, plan.BaseTypeName, "Constructor", plan.BaseCtorArgs); err != nil {
			return err
		}
	default:
		if err := c.Out.FixedLine(func() error { return emitInlineInitializers(c, plan.TypeName, plan.Inline) }); err != nil {
			return err
		}
	}

	if body != nil {
		c.Out.Newline()
		if err := emitStatementsInBlock(c, body); err != nil {
			return err
		}
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	_, err := c.Scope.Pop(scope.KindFunction)
	return err
}

func emitChainCall(c *Context, typeName, ctorName string, args []*ast.Node) error {
	c.Out.Write(typeName + ":" + ctorName + "(")
	for i, a := range args {
		if i > 0 {
			c.Out.Write(", ")
		}
		if err := EmitExpression(c, a); err != nil {
			return err
		}
	}
	c.Out.Write(")")
	return nil
}

// emitInlineInitializers emits one "self.name = init" (or "TYPE.name =
// init" for a static constructor) assignment per gathered field_decl node,
// via the same emitFieldDecl the Declaration Emitter uses for a field with
// no constructor at all.
func emitInlineInitializers(c *Context, typeName string, fields []*ast.Node) error {
	for _, field := range fields {
		sym := c.Model.DeclaredSymbol(field)
		if err := emitFieldDecl(c, field, typeName, sym); err != nil {
			return err
		}
	}
	return nil
}

// topLevelExprStmts returns body's immediate-child expression statements,
// used to compute a no-base-call constructor's extra-write set (§4.2 step
// 2: "symbols assigned by immediate-child expression statements of the
// body that are not nested inside other blocks").
func topLevelExprStmts(body *ast.Node) []*ast.Node {
	if body == nil {
		return nil
	}
	var out []*ast.Node
	for _, ch := range body.Children {
		if ch.Kind == ast.KindExpressionStmt {
			out = append(out, ch)
		}
	}
	return out
}

// --- Accessors (§4.5) ------------------------------------------------------

// EmitAccessor emits a property/indexer/event accessor as
// "function TYPE[:.]kind_Member(params) body end", synthesizing an empty
// automatic accessor's body when node carries no explicit one: the getter
// returns self.<id>, the setter assigns from the conventional "value"
// parameter. Accessor parameter lists are always emitted under a fixed-
// line guard (§4.5: "parameters are re-ordered to a canonical shape").
func EmitAccessor(c *Context, node *ast.Node, memberOutputID string, kind identresolve.AccessorKind, isStatic bool, typeName string) error {
	name := identresolve.AccessorIdentifier(kind, memberOutputID)
	_, params, body := splitParams(node)

	restoreInstance := c.SetInsideInstanceMethod(!isStatic)
	defer restoreInstance()

	spec := MethodSpecifier{TypeName: typeName, Static: isStatic}
	c.Out.Write(spec.header(name))
	if err := c.Out.FixedLine(func() error {
		if kind == identresolve.AccessorSet || kind == identresolve.AccessorAdd || kind == identresolve.AccessorRemove {
			emitAutoValueParamList(c, params)
		} else {
			emitParamList(c, nil, params)
		}
		return nil
	}); err != nil {
		return err
	}

	if _, err := c.Scope.Push(scope.KindFunction, node, scope.PushCtorArgs{}, nil); err != nil {
		return err
	}
	c.Out.PushIndent(0)
	if body != nil {
		if err := emitStatementsInBlock(c, body); err != nil {
			return err
		}
	} else {
		c.Out.Newline()
		if err := emitSynthesizedAutoBody(c, kind, memberOutputID); err != nil {
			return err
		}
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	_, err := c.Scope.Pop(scope.KindFunction)
	return err
}

// emitAutoValueParamList writes the conventional setter/adder/remover
// parameter list: the declared params, if any, else the single
// conventional "value" identifier.
func emitAutoValueParamList(c *Context, params []*ast.Node) {
	if len(params) == 0 {
		c.Out.Write("(value)")
		return
	}
	emitParamList(c, nil, params)
}

func emitSynthesizedAutoBody(c *Context, kind identresolve.AccessorKind, memberOutputID string) error {
	switch kind {
	case identresolve.AccessorGet:
		c.Out.Write("return self." + memberOutputID)
	case identresolve.AccessorSet:
		c.Out.Write("self." + memberOutputID + " = value")
	}
	return nil
}

// --- Lambdas (§4.5) ---------------------------------------------------------

// EmitLambda emits "function(params) body end" for a parenthesized or
// simple lambda, prepending "return" for an expression-bodied simple
// lambda. Variadic-ness is inferred from the parameter node carrying the
// params modifier, which the Declaration/Expression Emitter stamps onto
// the lambda's last parameter when the delegate type the lambda converts
// to is itself variadic (§4.5).
func EmitLambda(c *Context, node *ast.Node) error {
	_, params, body := splitParams(node)
	exprBody := node.Child(len(node.Children) - 1)
	if body != nil {
		exprBody = nil
	}

	c.Out.Write("function")
	variadic := emitParamList(c, nil, params)
	restoreVariadic := c.SetVariadicParam(variadic)
	defer restoreVariadic()

	if _, err := c.Scope.Push(scope.KindLambda, node, scope.PushCtorArgs{}, nil); err != nil {
		return err
	}
	c.Out.PushIndent(0)
	if body != nil {
		if err := emitStatementsInBlock(c, body); err != nil {
			return err
		}
	} else if exprBody != nil {
		c.Out.Newline()
		c.Out.Write("return ")
		if err := EmitExpression(c, exprBody); err != nil {
			return err
		}
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	_, err := c.Scope.Pop(scope.KindLambda)
	return err
}

// --- Delegate binding closures (§4.5) ---------------------------------------

// EmitDelegateBindingClosure generates the inline closure a delegate
// binding needs when the target method has optional parameters:
// "function(p1...pn) if p_k == nil then p_k = default_k end ... return
// target(p1...pn) end", deduping parameter names against the surrounding
// scope. target is the fully-qualified call text the Expression Emitter
// has already resolved (e.g. "self:Method" or "Type.Method").
func EmitDelegateBindingClosure(c *Context, node *ast.Node, target string, params []*ast.Node) error {
	c.Out.Write("function")
	emitParamList(c, nil, params)
	c.Out.PushIndent(0)
	c.Out.Newline()
	for _, p := range params {
		sym := c.Model.DeclaredSymbol(p)
		if sym == nil {
			continue
		}
		name := paramOutputName(c, sym)
		info := c.Model.ConstantValue(p)
		if !info.HasValue {
			continue
		}
		c.Out.Write(fmt.Sprintf("if %s == nil then %s = ", name, name))
		c.Out.WriteConstant(info.Value)
		c.Out.Write(" end")
		c.Out.Newline()
	}
	c.Out.Write("return " + target + "(")
	for i, p := range params {
		if i > 0 {
			c.Out.Write(", ")
		}
		sym := c.Model.DeclaredSymbol(p)
		c.Out.Write(paramOutputName(c, sym))
	}
	c.Out.Write(")")
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return nil
}
