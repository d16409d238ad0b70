// Statement emission, §4.9: block, if/else, break/continue, return,
// goto/goto-case, switch-as-goto, try/catch/finally, using, labeled,
// throw, local declarations.
package emit

import (
	"fmt"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/scope"
	"github.com/oxhq/cs2lua/internal/vocab"
)

// EmitStatement dispatches on node.Kind.
func EmitStatement(c *Context, node *ast.Node) error {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case ast.KindBlock:
		return emitBlockStmt(c, node)
	case ast.KindExpressionStmt:
		return emitExpressionStmt(c, node)
	case ast.KindLocalDeclStmt:
		return emitLocalDeclStmt(c, node)
	case ast.KindIfStmt:
		return emitIfStmt(c, node)
	case ast.KindWhileStmt, ast.KindDoStmt, ast.KindForStmt, ast.KindForEachStmt:
		return EmitLoop(c, node)
	case ast.KindBreakStmt:
		return emitBreakStmt(c, node)
	case ast.KindContinueStmt:
		return emitContinueStmt(c, node)
	case ast.KindReturnStmt:
		return emitReturnStmt(c, node)
	case ast.KindGotoStmt:
		return emitGotoStmt(c, node)
	case ast.KindGotoCaseStmt:
		return emitGotoCaseStmt(c, node)
	case ast.KindSwitchStmt:
		return emitSwitchStmt(c, node)
	case ast.KindTryStmt:
		return emitTryStmt(c, node)
	case ast.KindUsingStmt:
		return emitUsingStmt(c, node)
	case ast.KindThrowStmt:
		return emitThrowStmt(c, node)
	case ast.KindLabeledStmt:
		return emitLabeledStmt(c, node)
	default:
		return compilererrUnsupportedKind(node)
	}
}

func compilererrUnsupportedKind(node *ast.Node) error {
	return fmt.Errorf("emit: no statement handler for kind %q", node.Kind)
}

// emitStatementsInBlock writes each of block's children, advancing the
// Output Engine to each statement's own source line before emitting it.
// The caller owns indentation and the surrounding do/then/end delimiter.
func emitStatementsInBlock(c *Context, block *ast.Node) error {
	if block == nil {
		return nil
	}
	for _, stmt := range block.Children {
		c.Out.NewlineToTarget(stmt.Span.StartLine)
		if err := EmitStatement(c, stmt); err != nil {
			return err
		}
	}
	return nil
}

func emitBlockStmt(c *Context, node *ast.Node) error {
	return emitStatementsInBlock(c, node)
}

func emitExpressionStmt(c *Context, node *ast.Node) error {
	return EmitExpression(c, node.Child(0))
}

// emitLocalDeclStmt writes "local name = expr", looking up the declared
// symbol's deduped name in the current block scope frame (§4.2).
func emitLocalDeclStmt(c *Context, node *ast.Node) error {
	sym := c.Model.DeclaredSymbol(node)
	name := c.Model.LookupOutputID(sym)
	if frame := c.Scope.Current(); frame != nil {
		if id, ok := frame.DedupBySymbol[sym]; ok {
			name = id
		}
	}
	c.Out.Write("local " + name)
	if init := node.Child(0); init != nil {
		c.Out.Write(" = ")
		if err := EmitExpression(c, init); err != nil {
			return err
		}
	}
	return nil
}

// emitIfStmt lowers "if cond then ... elseif ... else ... end", recursing
// on a chained else-if branch stored as the else child's own if_stmt node.
func emitIfStmt(c *Context, node *ast.Node) error {
	cond, then, els := node.Child(0), node.Child(1), node.Child(2)
	c.Out.Write("if ")
	if err := EmitExpression(c, cond); err != nil {
		return err
	}
	c.Out.Write(" then")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, then); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	if els == nil {
		c.Out.NewlineToTarget(node.Span.EndLine)
		c.Out.Write("end")
		return nil
	}
	c.Out.Newline()
	if els.Kind == ast.KindIfStmt {
		c.Out.Write("else")
		return emitElseIf(c, els)
	}
	c.Out.Write("else")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, els); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return nil
}

// emitElseIf writes a chained else-if branch as "elseif cond then ...",
// never opening a nested "if...end", so the whole chain closes with a
// single terminating "end".
func emitElseIf(c *Context, node *ast.Node) error {
	cond, then, els := node.Child(0), node.Child(1), node.Child(2)
	c.Out.Write("if ")
	if err := EmitExpression(c, cond); err != nil {
		return err
	}
	c.Out.Write(" then")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, then); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	if els == nil {
		c.Out.Newline()
		c.Out.Write("end")
		return nil
	}
	c.Out.Newline()
	if els.Kind == ast.KindIfStmt {
		c.Out.Write("else")
		return emitElseIf(c, els)
	}
	c.Out.Write("else")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, els); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return nil
}

// --- Break / continue / return (§4.9) --------------------------------------

// emitBreakStmt writes "break" normally, or "return <CtrlBreak>" from the
// current try/using body closure when the break must cross it on the way
// out to the loop or switch (§4.9's break/continue code 0).
func emitBreakStmt(c *Context, node *ast.Node) error {
	if c.Scope.CrossesTryOrUsing(scope.KindLoop) {
		c.Scope.AddControlOption(scope.ControlBreak)
		c.Out.Write(fmt.Sprintf("return %d", vocab.CtrlBreak))
		return nil
	}
	c.Out.Write("break")
	return nil
}

// emitContinueStmt writes "goto <continue-label>" for the nearest loop,
// allocating the label on first use (§4.2), or "return <CtrlContinue>"
// when the continue must cross an intervening try/using body.
func emitContinueStmt(c *Context, node *ast.Node) error {
	if c.Scope.CrossesTryOrUsing(scope.KindLoop) {
		c.Scope.AddControlOption(scope.ControlContinue)
		c.Out.Write(fmt.Sprintf("return %d", vocab.CtrlContinue))
		return nil
	}
	label, err := c.Scope.AllocateContinueLabel()
	if err != nil {
		return err
	}
	c.Out.Write("goto " + label)
	return nil
}

// emitReturnStmt writes "return [expr]" normally, or "return CtrlReturn[,
// value]" when the return must cross an intervening try/using body, per
// §4.9: "the emit is return 2[, value]". A non-terminal return (one not
// the last statement of its enclosing block, e.g. inside a switch
// section) is wrapped in "do ... end" because Lua forbids non-terminal
// returns.
func emitReturnStmt(c *Context, node *ast.Node) error {
	value := node.Child(0)
	crossesFn := c.Scope.CrossesTryOrUsing(scope.KindFunction)

	nonTerminal := !isLastStatement(node)
	if nonTerminal {
		c.Out.Write("do ")
	}

	if crossesFn {
		c.Scope.AddControlOption(scope.ControlReturn)
		c.Out.Write(fmt.Sprintf("return %d", vocab.CtrlReturn))
		if value != nil {
			c.Out.Write(", ")
			if err := EmitExpression(c, value); err != nil {
				return err
			}
		}
	} else {
		c.Out.Write("return")
		if value != nil {
			c.Out.Write(" ")
			if err := EmitExpression(c, value); err != nil {
				return err
			}
		}
	}

	if nonTerminal {
		c.Out.Write(" end")
	}
	return nil
}

// isLastStatement reports whether node is syntactically the final
// statement of its parent block or switch section. The Semantic Model
// does not expose parent pointers, so this relies on an annotation the
// AST builder stamps onto every non-terminal return (semmodel/treesitter's
// buildBlock does so) before emission; a node
// without the annotation is treated as terminal (the common case).
func isLastStatement(node *ast.Node) bool {
	return !node.Has(ast.NonTerminalStmt)
}

// --- goto / labeled statements (§4.9) ---------------------------------------

func emitGotoStmt(c *Context, node *ast.Node) error {
	c.Out.Write("goto " + node.Token(0))
	return nil
}

// emitGotoCaseStmt resolves the target case's synthesized label from the
// nearest open switch frame's SwitchLabels map (populated by
// emitSwitchStmt) and writes a goto to it. A "goto default;" has no case
// child and targets the default section's label directly.
func emitGotoCaseStmt(c *Context, node *ast.Node) error {
	sw := c.Scope.NearestSwitch()
	if sw == nil {
		return fmt.Errorf("emit: goto-case outside any switch frame")
	}
	key := "default"
	if target := node.Child(0); target != nil {
		key = fmt.Sprintf("%v", c.Model.ConstantValue(target).Value)
	}
	label, ok := sw.SwitchLabels[key]
	if !ok {
		return fmt.Errorf("emit: goto-case target %q has no matching label", key)
	}
	c.Out.Write("goto " + label)
	return nil
}

func emitLabeledStmt(c *Context, node *ast.Node) error {
	c.Out.Write("::" + node.Token(0) + "::")
	c.Out.Newline()
	return EmitStatement(c, node.Child(0))
}

// --- throw (§4.9) -----------------------------------------------------------

// catchExceptionParam is the conventional bound-exception identifier
// every synthesized catch closure accepts, consulted by a bare rethrow.
const catchExceptionParam = "e"

// emitThrowStmt lowers "throw expr" to Lua's error(...); a bare rethrow
// ("throw;" inside a catch) re-raises the enclosing catch closure's bound
// exception parameter, and "throw null" is rewritten to raising a fresh
// NullReferenceException (§4.9).
func emitThrowStmt(c *Context, node *ast.Node) error {
	value := node.Child(0)
	if value == nil {
		c.Out.Write("error(" + catchExceptionParam + ")")
		return nil
	}
	if ci := c.Model.ConstantValue(value); ci.HasValue && ci.Value == nil {
		c.Out.Write("error(NullReferenceException:New())")
		return nil
	}
	c.Out.Write("error(")
	if err := EmitExpression(c, value); err != nil {
		return err
	}
	c.Out.Write(")")
	return nil
}

// --- switch as goto (§4.9) ---------------------------------------------------

// switchSectionKey returns the dispatch key for section: its constant-
// folded case-value text for an ordinary case, or "default" for the
// default section. A section's children are its case-value expressions
// (zero or more) followed by its body block as the last child; a section
// with no case-value children is the default section. goto-case targets
// are keyed the same way so emitGotoCaseStmt's lookup lines up.
func switchSectionKey(c *Context, section *ast.Node) string {
	if len(section.Children) <= 1 {
		return "default"
	}
	return fmt.Sprintf("%v", c.Model.ConstantValue(section.Children[0]).Value)
}

func switchSectionBody(section *ast.Node) *ast.Node {
	return section.Children[len(section.Children)-1]
}

func isDefaultSwitchSection(section *ast.Node) bool {
	return len(section.Children) <= 1
}

// hoistedLocals collects every local_decl_stmt textually nested inside
// section's body (at any depth reachable without crossing into a nested
// function), since Lua rejects a goto that jumps over a local
// declaration: §4.9 step 2 hoists them all ahead of the dispatch chain.
func hoistedLocals(c *Context, section *ast.Node) []*ast.Symbol {
	var out []*ast.Symbol
	var walk func(n *ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if n.Kind == ast.KindLocalDeclStmt {
			out = append(out, c.Model.DeclaredSymbol(n))
		}
		if n.Kind == ast.KindLambdaExpr || n.Kind == ast.KindLocalFunction {
			return
		}
		for _, ch := range n.Children {
			walk(ch)
		}
	}
	walk(switchSectionBody(section))
	return out
}

// emitSwitchStmt lowers a switch to a "repeat ... until true" block so
// that a break inside a case body breaks out of the switch correctly
// (§4.9): the subject is captured once, every case-local is hoisted and
// pre-declared ahead of the dispatch chain, then a sequential
// if/elseif/.../else dispatch gotos to the matching (or default) case
// label, and each case body follows its label in source order.
func emitSwitchStmt(c *Context, node *ast.Node) error {
	frame, err := c.Scope.Push(scope.KindSwitch, node, scope.PushCtorArgs{}, nil)
	if err != nil {
		return err
	}
	defer c.Scope.Pop(scope.KindSwitch)

	discriminant := node.Child(0)
	sections := node.Children[1:]
	frame.SwitchSections = sections
	frame.SwitchLabels = map[string]string{}

	labels := make([]string, len(sections))
	defaultIdx := -1
	for i, sec := range sections {
		label := fmt.Sprintf("switch_case_%d", i)
		labels[i] = label
		frame.SwitchLabels[switchSectionKey(c, sec)] = label
		if isDefaultSwitchSection(sec) {
			defaultIdx = i
		}
	}

	c.Out.Write("repeat")
	c.Out.PushIndent(0)
	c.Out.Newline()

	c.Out.Write("local __switch_subject = ")
	if err := EmitExpression(c, discriminant); err != nil {
		return err
	}
	c.Out.Newline()

	for _, sec := range sections {
		for _, sym := range hoistedLocals(c, sec) {
			if sym == nil {
				continue
			}
			c.Out.Write("local " + c.Model.LookupOutputID(sym))
			c.Out.Newline()
		}
	}

	var caseIdx []int
	for i, sec := range sections {
		if !isDefaultSwitchSection(sec) {
			caseIdx = append(caseIdx, i)
		}
	}
	fallback := "break"
	if defaultIdx >= 0 {
		fallback = "goto " + labels[defaultIdx]
	}
	if len(caseIdx) == 0 {
		c.Out.Write(fallback)
	} else {
		for n, i := range caseIdx {
			if n == 0 {
				c.Out.Write("if __switch_subject == ")
			} else {
				c.Out.Write("elseif __switch_subject == ")
			}
			if err := EmitExpression(c, sections[i].Children[0]); err != nil {
				return err
			}
			c.Out.Write(" then goto " + labels[i])
		}
		c.Out.Write(" else " + fallback + " end")
	}
	c.Out.Newline()

	for i, sec := range sections {
		c.Out.Write("::" + labels[i] + "::")
		c.Out.Newline()
		if err := emitStatementsInBlock(c, switchSectionBody(sec)); err != nil {
			return err
		}
		c.Out.Newline()
	}

	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Write("until true")
	return nil
}

// --- try / catch / finally / using (§4.9) -----------------------------------

// catchClauseTypeName returns a catch clause's declared exception type
// name, or "" for a typeless/default catch-all. node.Tokens[0] carries
// the spelling when present.
func catchClauseTypeName(node *ast.Node) string {
	if node == nil {
		return ""
	}
	return node.Token(0)
}

// catchClauseWhen returns a catch clause's optional "when" guard
// expression, or nil. A clause with two children carries [when, body];
// one child carries just [body].
func catchClauseWhen(node *ast.Node) *ast.Node {
	if node == nil || len(node.Children) < 2 {
		return nil
	}
	return node.Children[0]
}

func catchClauseBody(node *ast.Node) *ast.Node {
	return node.Children[len(node.Children)-1]
}

// emitCatchFilter writes the synthesized filter predicate for a catch
// clause: "function() return true end" for an untyped/default catch, or
// a function checking is(e, T) (and-ed with the when-clause, if any)
// otherwise (§4.9).
func emitCatchFilter(c *Context, clause *ast.Node) error {
	typeName := catchClauseTypeName(clause)
	when := catchClauseWhen(clause)
	if typeName == "" && when == nil {
		c.Out.Write("function() return true end")
		return nil
	}
	c.Out.Write("function(" + catchExceptionParam + ") return ")
	wrote := false
	if typeName != "" {
		c.Out.Write(fmt.Sprintf("%s(%s, %q)", vocab.RuntimeHelper.Is, catchExceptionParam, typeName))
		wrote = true
	}
	if when != nil {
		if wrote {
			c.Out.Write(" and (")
		}
		if err := EmitExpression(c, when); err != nil {
			return err
		}
		if wrote {
			c.Out.Write(")")
		}
	}
	c.Out.Write(" end")
	return nil
}

func emitCatchBody(c *Context, clause *ast.Node) error {
	c.Out.Write("function(" + catchExceptionParam + ")")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, catchClauseBody(clause)); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")
	return nil
}

// splitTryChildren separates a try_stmt's children (after the body) into
// its ordered catch clauses and an optional trailing finally block.
func splitTryChildren(node *ast.Node) (catches []*ast.Node, finally *ast.Node) {
	for _, ch := range node.Children[1:] {
		if ch == nil {
			continue
		}
		if ch.Kind == ast.KindCatchClause {
			catches = append(catches, ch)
		} else {
			finally = ch
		}
	}
	return catches, finally
}

// emitTryStmt lowers try/catch[/finally] per §4.9: "try(bodyFn, filter1,
// catch1, ..., finallyFn?)"/"tryfinally(...)", binding "res, ret" so the
// epilog can dispatch a crossed break/continue/return back into the
// enclosing loop/switch/function.
func emitTryStmt(c *Context, node *ast.Node) error {
	body := node.Child(0)
	catches, finally := splitTryChildren(node)

	frame, err := c.Scope.Push(scope.KindTryCatchOrUsing, node, scope.PushCtorArgs{}, nil)
	if err != nil {
		return err
	}

	helper := vocab.RuntimeHelper.Try
	if finally != nil {
		helper = vocab.RuntimeHelper.TryFinally
	}
	c.Out.Write(fmt.Sprintf("local %s, %s = %s(function()", resVar, retVar, helper))
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end")

	for _, clause := range catches {
		c.Out.Write(", ")
		if err := emitCatchFilter(c, clause); err != nil {
			return err
		}
		c.Out.Write(", ")
		if err := emitCatchBody(c, clause); err != nil {
			return err
		}
	}

	if finally != nil {
		c.Out.Write(", function()")
		c.Out.PushIndent(0)
		if err := emitStatementsInBlock(c, finally); err != nil {
			return err
		}
		if err := c.Out.PopIndent(); err != nil {
			return err
		}
		c.Out.Newline()
		c.Out.Write("end")
	}
	c.Out.Write(")")

	if _, err := c.Scope.Pop(scope.KindTryCatchOrUsing); err != nil {
		return err
	}
	return emitControlPropagation(c, frame.ControlOptions)
}

// emitUsingStmt lowers "using (resource) { body }" to
// "using(resource, function(resource) body end)" (§4.9); a resource given
// as a declaration is passed in under its declared name, while a plain
// expression resource leaves the function's parameter list empty.
// Dispose() runs whether the body completes, throws, or transfers control
// non-locally.
func emitUsingStmt(c *Context, node *ast.Node) error {
	resource := node.Child(0)
	body := node.Child(1)

	frame, err := c.Scope.Push(scope.KindTryCatchOrUsing, node, scope.PushCtorArgs{}, nil)
	if err != nil {
		return err
	}

	c.Out.Write(fmt.Sprintf("local %s, %s = %s(", resVar, retVar, vocab.RuntimeHelper.Using))
	if err := EmitExpression(c, resource); err != nil {
		return err
	}
	param := ""
	if resource != nil && resource.Kind == ast.KindLocalDeclStmt {
		if sym := c.Model.DeclaredSymbol(resource); sym != nil {
			param = c.Model.LookupOutputID(sym)
		}
	}
	c.Out.Write(", function(" + param + ")")
	c.Out.PushIndent(0)
	if err := emitStatementsInBlock(c, body); err != nil {
		return err
	}
	if err := c.Out.PopIndent(); err != nil {
		return err
	}
	c.Out.Newline()
	c.Out.Write("end)")

	if _, err := c.Scope.Pop(scope.KindTryCatchOrUsing); err != nil {
		return err
	}
	return emitControlPropagation(c, frame.ControlOptions)
}

const (
	resVar = "res"
	retVar = "ret"
)

// emitControlPropagation writes the post-call epilog that dispatches on
// res to re-perform whichever of break/continue/return the try/using
// body actually used, per the ControlOptions bitset recorded while
// emitting it (§3, §4.9).
func emitControlPropagation(c *Context, opts scope.ControlOption) error {
	if opts == 0 {
		return nil
	}
	c.Out.Newline()
	if opts.Has(scope.ControlBreak) {
		c.Out.Write(fmt.Sprintf("if %s == %d then break end", resVar, vocab.CtrlBreak))
		c.Out.Newline()
	}
	if opts.Has(scope.ControlContinue) {
		label, err := c.Scope.AllocateContinueLabel()
		if err != nil {
			return err
		}
		c.Out.Write(fmt.Sprintf("if %s == %d then goto %s end", resVar, vocab.CtrlContinue, label))
		c.Out.Newline()
	}
	if opts.Has(scope.ControlReturn) {
		c.Out.Write(fmt.Sprintf("if %s == %d then return %s end", resVar, vocab.CtrlReturn, retVar))
	}
	return nil
}
