// Loop emission, §4.8: while, do-until, simple and complex for, foreach
// over arrays and enumerables, and the range pseudo-function. Every loop
// pushes a Loop scope frame so continue can allocate (and the loop tail
// can emit) its label (§4.2, §3 invariant 3).
package emit

import (
	"fmt"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/scope"
)

// EmitLoop dispatches on node.Kind for the four loop shapes.
func EmitLoop(c *Context, node *ast.Node) error {
	switch node.Kind {
	case ast.KindWhileStmt:
		return emitWhileLoop(c, node)
	case ast.KindDoStmt:
		return emitDoLoop(c, node)
	case ast.KindForStmt:
		return emitForLoop(c, node)
	case ast.KindForEachStmt:
		return emitForEachLoop(c, node)
	default:
		return fmt.Errorf("emit: no loop handler for kind %q", node.Kind)
	}
}

// pushLoopFrame pushes the Loop scope frame shared by every loop shape and
// returns it alongside a pop function; callers must run the returned pop
// before emitting the loop's closing "end".
func pushLoopFrame(c *Context, node *ast.Node) (*scope.BlockScopeFrame, func() error, error) {
	frame, err := c.Scope.Push(scope.KindLoop, node, scope.PushCtorArgs{}, nil)
	if err != nil {
		return nil, nil, err
	}
	return frame, func() error {
		_, err := c.Scope.Pop(scope.KindLoop)
		return err
	}, nil
}

// emitLoopTail writes the loop's allocated continue label, if one was
// allocated while emitting its body (§4.8 "Loop tail", §3 invariant 3).
func emitLoopTail(c *Context, frame *scope.BlockScopeFrame) {
	if frame.ContinueLabel == "" {
		return
	}
	c.Out.Newline()
	c.Out.Write("::" + frame.ContinueLabel + "::")
}

// --- while / do-while (§4.8) -------------------------------------------

func emitWhileLoop(c *Context, node *ast.Node) error {
	cond, body := node.Child(0), node.Child(1)
	frame, pop, err := pushLoopFrame(c, node)
	if err != nil {
		return err
	}

	c.Out.Write("while ")
	if err := EmitExpression(c, cond); err != nil {
		return err
	}
	c.Out.Write(" do")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	emitLoopTail(c, frame)
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return pop()
}

// emitDoLoop lowers do/while's negated condition to Lua's "repeat ...
// until not cond" (§4.8): Lua's repeat already runs the body at least
// once, matching C-family do-while semantics directly.
func emitDoLoop(c *Context, node *ast.Node) error {
	body, cond := node.Child(0), node.Child(1)
	frame, pop, err := pushLoopFrame(c, node)
	if err != nil {
		return err
	}

	c.Out.Write("repeat")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	emitLoopTail(c, frame)
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("until not (")
	if err := EmitExpression(c, cond); err != nil {
		return err
	}
	c.Out.Write(")")
	return pop()
}

// --- for: simple vs complex (§4.8) --------------------------------------

// forParts are the four syntactic slots of a C-family for statement:
// for (Init; Cond; Incr) Body. Init is nil when the loop declares no
// counter; the semantic model still supplies Cond/Incr/Body.
type forParts struct {
	Init *ast.Node
	Cond *ast.Node
	Incr *ast.Node
	Body *ast.Node
}

func splitForParts(node *ast.Node) forParts {
	return forParts{
		Init: node.Child(0),
		Cond: node.Child(1),
		Incr: node.Child(2),
		Body: node.Child(3),
	}
}

// simpleForShape holds the pieces §4.8 needs to emit a native numeric for:
// the counter symbol, its initial-value expression, the loop bound
// expression (already ±1-corrected for a strict inequality), and the step
// expression (nil means the implicit step of 1).
type simpleForShape struct {
	Counter *ast.Symbol
	Init    *ast.Node
	Bound   *ast.Node
	Step    *ast.Node
}

// classifySimpleFor implements §4.8's "simple for" predicate: one declared
// counter, zero extra initializers, exactly one incrementor, and a
// condition of the form counter <=/</>/>= bound. The semantic model marks
// a for_stmt's init as multi-declaration ("for_multi_init") when the
// source declares more than one counter or adds extra initializer
// expressions, which always disqualifies the simple form.
func classifySimpleFor(c *Context, p forParts) (simpleForShape, bool) {
	if p.Init == nil || p.Init.Kind != ast.KindLocalDeclStmt || p.Init.Has("for_multi_init") {
		return simpleForShape{}, false
	}
	if p.Cond == nil || p.Cond.Kind != ast.KindBinaryExpr || !isComparisonOperator(p.Cond.Token(0)) {
		return simpleForShape{}, false
	}
	counter := c.Model.DeclaredSymbol(p.Init)
	if counter == nil {
		return simpleForShape{}, false
	}
	condCounterSym := c.Model.SymbolInfo(p.Cond.Child(0)).Primary
	if condCounterSym != counter {
		return simpleForShape{}, false
	}
	if p.Incr == nil || p.Incr.Has("for_multi_incrementor") {
		return simpleForShape{}, false
	}
	if counterWrittenInBody(c, counter, p.Body) {
		return simpleForShape{}, false
	}

	bound := p.Cond.Child(1)
	op := p.Cond.Token(0)
	if op == "<" || op == ">" {
		bound = correctStrictBound(c, bound, op)
	}
	step := forStep(c, p.Incr, counter, op)
	return simpleForShape{Counter: counter, Init: p.Init.Child(0), Bound: bound, Step: step}, true
}

// counterWrittenInBody reports whether the loop counter is assigned
// anywhere inside body, which disqualifies the simple-for translation
// (§4.8: "the counter must not be written in the body").
func counterWrittenInBody(c *Context, counter *ast.Symbol, body *ast.Node) bool {
	flow, err := c.Model.AnalyzeDataFlow(body)
	if err != nil || !flow.Succeeded {
		return true
	}
	for _, s := range flow.WrittenInside {
		if s == counter {
			return true
		}
	}
	return false
}

// correctStrictBound applies the ±1 correction a strict inequality bound
// needs to become an inclusive Lua numeric-for bound: a constant bound is
// corrected inline; a non-constant bound is wrapped in a runtime
// expression (§4.8).
func correctStrictBound(c *Context, bound *ast.Node, op string) *ast.Node {
	delta := -1
	if op == ">" {
		delta = 1
	}
	if info := c.Model.ConstantValue(bound); info.HasValue {
		if n, ok := info.Value.(int); ok {
			return &ast.Node{
				Kind:        ast.KindLiteralExpr,
				Tokens:      []string{fmt.Sprintf("%d", n+delta)},
				Annotations: map[ast.Annotation]bool{ast.LineMismatchAllowed: true},
			}
		}
	}
	op2 := "+"
	if delta < 0 {
		op2 = "-"
	}
	return &ast.Node{
		Kind:        ast.KindBinaryExpr,
		Tokens:      []string{op2},
		Children:    []*ast.Node{bound, {Kind: ast.KindLiteralExpr, Tokens: []string{"1"}}},
		Annotations: map[ast.Annotation]bool{ast.LineMismatchAllowed: true},
	}
}

// forStep derives the numeric-for step from the incrementor: ±1 for a
// ++/-- unary incrementor, or the literal constant on the RHS of a
// compound assignment / counter±k assignment. A nil return means the
// implicit step of 1 (ascending simple for).
func forStep(c *Context, incr *ast.Node, counter *ast.Symbol, condOp string) *ast.Node {
	inner := incr
	if incr.Kind == ast.KindExpressionStmt {
		inner = incr.Child(0)
	}
	switch inner.Kind {
	case ast.KindUnaryExpr:
		if inner.Token(0) == "--" {
			return &ast.Node{Kind: ast.KindLiteralExpr, Tokens: []string{"-1"}, Annotations: map[ast.Annotation]bool{ast.LineMismatchAllowed: true}}
		}
		return nil
	case ast.KindAssignmentExpr:
		op := inner.Token(0)
		value := inner.Child(1)
		switch op {
		case "+=":
			return value
		case "-=":
			return negate(value)
		}
	}
	return nil
}

func negate(n *ast.Node) *ast.Node {
	if info, ok := constInt(n); ok {
		return &ast.Node{Kind: ast.KindLiteralExpr, Tokens: []string{fmt.Sprintf("%d", -info)}, Annotations: map[ast.Annotation]bool{ast.LineMismatchAllowed: true}}
	}
	return &ast.Node{
		Kind:        ast.KindUnaryExpr,
		Tokens:      []string{"-"},
		Children:    []*ast.Node{n},
		Annotations: map[ast.Annotation]bool{ast.LineMismatchAllowed: true},
	}
}

func constInt(n *ast.Node) (int, bool) {
	if n.Kind != ast.KindLiteralExpr {
		return 0, false
	}
	var v int
	if _, err := fmt.Sscanf(n.Token(0), "%d", &v); err != nil {
		return 0, false
	}
	return v, true
}

// emitForLoop chooses the simple numeric-for translation when the shape
// qualifies, else falls back to the complex desugaring (§4.8).
func emitForLoop(c *Context, node *ast.Node) error {
	parts := splitForParts(node)
	if shape, ok := classifySimpleFor(c, parts); ok {
		return emitSimpleFor(c, node, shape, parts.Body)
	}
	return emitComplexFor(c, node, parts)
}

func emitSimpleFor(c *Context, node *ast.Node, shape simpleForShape, body *ast.Node) error {
	frame, pop, err := pushLoopFrame(c, node)
	if err != nil {
		return err
	}

	name := c.Model.LookupOutputID(shape.Counter)
	if f := c.Scope.Current(); f != nil {
		if id, ok := f.DedupBySymbol[shape.Counter]; ok {
			name = id
		}
	}
	c.Out.Write("for " + name + " = ")
	if err := EmitExpression(c, shape.Init); err != nil {
		return err
	}
	c.Out.Write(", ")
	if err := EmitExpression(c, shape.Bound); err != nil {
		return err
	}
	if shape.Step != nil {
		c.Out.Write(", ")
		if err := EmitExpression(c, shape.Step); err != nil {
			return err
		}
	}
	c.Out.Write(" do")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	emitLoopTail(c, frame)
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return pop()
}

// emitComplexFor lowers everything that doesn't qualify as simple to
// "do local decl; init; while cond do body; incrementors end end" (§4.8),
// emitting the incrementors under a fixed-line guard since they belong to
// the header, not their textual position.
func emitComplexFor(c *Context, node *ast.Node, p forParts) error {
	frame, pop, err := pushLoopFrame(c, node)
	if err != nil {
		return err
	}

	c.Out.Write("do")
	c.Out.PushIndent(0)
	if p.Init != nil {
		c.Out.Newline()
		if err := emitLocalDeclStmt(c, p.Init); err != nil {
			return err
		}
	}
	c.Out.Newline()
	c.Out.Write("while ")
	if p.Cond != nil {
		if err := EmitExpression(c, p.Cond); err != nil {
			return err
		}
	} else {
		c.Out.Write("true")
	}
	c.Out.Write(" do")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, p.Body); err != nil {
		return err
	}
	if p.Incr != nil {
		c.Out.Newline()
		if err := c.Out.FixedLine(func() error {
			return EmitStatement(c, incrementorStatement(p.Incr))
		}); err != nil {
			return err
		}
	}
	emitLoopTail(c, frame)
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return pop()
}

func incrementorStatement(incr *ast.Node) *ast.Node {
	if incr.Kind == ast.KindExpressionStmt {
		return incr
	}
	return &ast.Node{
		Kind:        ast.KindExpressionStmt,
		Children:    []*ast.Node{incr},
		Annotations: map[ast.Annotation]bool{ast.LineMismatchAllowed: true},
	}
}

// --- foreach (§4.8) ------------------------------------------------------

// emitForEachLoop lowers foreach over a host-language array to
// "for _, v in ipairs(expr) do", applying the reference-array read-wrap
// ("v = v or nil;") at the top of the loop body when its element type
// needs it; over
// an interface-typed (IEnumerable) source it instead emits
// "for v in expr do" (the runtime's own stateless iterator protocol). A
// range(start, stop[, step]) pseudo-call compiles as a native numeric for
// instead of either form.
func emitForEachLoop(c *Context, node *ast.Node) error {
	iterable, body := node.Child(0), node.Child(1)
	sym := c.Model.DeclaredSymbol(node)
	name := c.Model.LookupOutputID(sym)

	frame, pop, err := pushLoopFrame(c, node)
	if err != nil {
		return err
	}
	if id, ok := frame.DedupBySymbol[sym]; ok {
		name = id
	}

	if isRangePseudoCall(iterable) {
		return emitRangeFor(c, node, iterable, name, body, frame, pop)
	}

	iterableType := c.Model.TypeInfo(iterable).Type
	refElement := iterableType != nil && iterableType.TypeKindTag == ast.TypeArray && isReferenceElementArray(c, iterable)

	if iterableType != nil && iterableType.TypeKindTag == ast.TypeArray {
		c.Out.Write("for _, " + name + " in ipairs(")
	} else {
		c.Out.Write("for " + name + " in ")
	}
	if err := EmitExpression(c, iterable); err != nil {
		return err
	}
	if iterableType != nil && iterableType.TypeKindTag == ast.TypeArray {
		c.Out.Write(")")
	}
	c.Out.Write(" do")
	c.Out.PushIndent(0)
	if refElement {
		c.Out.Newline()
		c.Out.Write(name + " = " + name + " or nil;")
	}
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	emitLoopTail(c, frame)
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return pop()
}

// isRangePseudoCall reports whether node is a call to the source-level
// range(...) marker (§4.8, §9 Glossary "Range pseudo-function").
func isRangePseudoCall(node *ast.Node) bool {
	if node == nil || node.Kind != ast.KindInvocationExpr {
		return false
	}
	callee := node.Child(0)
	return callee != nil && callee.Kind == ast.KindIdentifierExpr && callee.Token(0) == "range"
}

// emitRangeFor compiles a range(start, stop[, step]) foreach source
// directly to a native Lua numeric for, bypassing ipairs entirely.
func emitRangeFor(c *Context, node, call *ast.Node, name string, body *ast.Node, frame *scope.BlockScopeFrame, pop func() error) error {
	args := call.Children[1:]
	c.Out.Write("for " + name + " = ")
	for i, a := range args {
		if i > 0 {
			c.Out.Write(", ")
		}
		if err := EmitExpression(c, a); err != nil {
			return err
		}
	}
	c.Out.Write(" do")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	emitLoopTail(c, frame)
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return pop()
}
