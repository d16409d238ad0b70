package emit

import (
	"fmt"
	"strings"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/identresolve"
	"github.com/oxhq/cs2lua/internal/vocab"
)

// EmitExpression dispatches on node.Kind, the closed tagged-sum match
// §9 calls for instead of subtype polymorphism.
func EmitExpression(c *Context, node *ast.Node) error {
	if node == nil {
		return nil
	}
	switch node.Kind {
	case ast.KindBinaryExpr:
		return emitBinary(c, node)
	case ast.KindUnaryExpr:
		return emitUnary(c, node)
	case ast.KindTernaryExpr:
		return emitTernary(c, node)
	case ast.KindCoalesceExpr:
		return emitCoalesce(c, node)
	case ast.KindCastExpr:
		return emitCast(c, node)
	case ast.KindObjectCreateExpr:
		return emitObjectCreate(c, node)
	case ast.KindInvocationExpr:
		return emitInvocation(c, node)
	case ast.KindMemberAccessExpr:
		return emitMemberAccess(c, node)
	case ast.KindElementAccessExpr:
		return emitElementAccess(c, node)
	case ast.KindInterpolatedStr:
		return emitInterpolatedString(c, node)
	case ast.KindLiteralExpr:
		return emitLiteral(c, node)
	case ast.KindDiscardExpr:
		c.Out.Write(vocab.DiscardIdentifier)
		return nil
	case ast.KindIdentifierExpr:
		return emitIdentifier(c, node)
	case ast.KindAssignmentExpr:
		return emitAssignment(c, node)
	case ast.KindConditionalAccess:
		return emitConditionalAccess(c, node)
	case ast.KindThisExpr:
		c.Out.Write(vocab.SelfIdentifier)
		return nil
	case ast.KindTupleExpr:
		return emitTuple(c, node)
	case ast.KindLambdaExpr:
		return EmitLambda(c, node)
	default:
		return EmitExpression(c, node.Child(0))
	}
}

// --- Arithmetic overflow & truncation (§4.6) ---------------------------

func is32BitArithOperator(op string) bool {
	switch op {
	case "+", "-", "*", "/", "%":
		return true
	}
	return false
}

func emitBinary(c *Context, node *ast.Node) error {
	op := node.Token(0)
	left, right := node.Child(0), node.Child(1)

	if isComparisonOperator(op) {
		if handled, err := emitNullableComparison(c, node, op, left, right); handled {
			return err
		}
	}

	if op == "+" && isStringConcat(c, left, right) {
		return emitStringConcat(c, left, right)
	}

	if isBitwiseOperator(op) {
		return emitBitwise(c, node, op, left, right)
	}

	lt := c.Model.TypeInfo(left).Type
	rt := c.Model.TypeInfo(right).Type
	if is32BitArithOperator(op) && (lt.Is32BitInt() || rt.Is32BitInt()) && !bothConstantFolded(c, left, right) {
		return emit32BitArith(c, op, left, right)
	}

	if err := EmitExpression(c, left); err != nil {
		return err
	}
	c.Out.Write(" ")
	c.Out.WriteToken(op, false, nil)
	c.Out.Write(" ")
	return EmitExpression(c, right)
}

func bothConstantFolded(c *Context, left, right *ast.Node) bool {
	return c.Model.ConstantValue(left).HasValue && c.Model.ConstantValue(right).HasValue
}

// emit32BitArith lowers +,-,*,/,% on 32-bit integer operands per §4.6:
// + and - wrap the whole expression in a narrowing helper; * calls
// i32mul; / calls i32truncate(a/b); % calls i32mod.
func emit32BitArith(c *Context, op string, left, right *ast.Node) error {
	switch op {
	case "+", "-":
		c.Out.Write(vocab.RuntimeHelper.I32Narrow + "(")
		if err := EmitExpression(c, left); err != nil {
			return err
		}
		c.Out.Write(" ")
		c.Out.Write(op)
		c.Out.Write(" ")
		if err := EmitExpression(c, right); err != nil {
			return err
		}
		c.Out.Write(")")
		return nil
	case "*":
		return emitHelperCall(c, vocab.RuntimeHelper.I32Mul, left, right)
	case "/":
		c.Out.Write(vocab.RuntimeHelper.I32Truncate + "(")
		if err := EmitExpression(c, left); err != nil {
			return err
		}
		c.Out.Write(" / ")
		if err := EmitExpression(c, right); err != nil {
			return err
		}
		c.Out.Write(")")
		return nil
	case "%":
		return emitHelperCall(c, vocab.RuntimeHelper.I32Mod, left, right)
	}
	return nil
}

func emitHelperCall(c *Context, helper string, args ...*ast.Node) error {
	c.Out.Write(helper + "(")
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

// --- Nullable comparisons (§4.6) ----------------------------------------

func isComparisonOperator(op string) bool {
	switch op {
	case "<", "<=", ">", ">=":
		return true
	}
	return false
}

// emitNullableComparison handles <,<=,>,>= where an operand is nullable:
// simple operands (no side effects) are guarded with "op ~= nil and ...";
// complex operands are wrapped so NaN propagates and the comparison
// evaluates false on null. Returns handled=false if neither operand is
// nullable, so the caller falls through to the ordinary binary emission.
func emitNullableComparison(c *Context, node *ast.Node, op string, left, right *ast.Node) (bool, error) {
	leftNullable := isNullableOperand(c, left)
	rightNullable := isNullableOperand(c, right)
	if !leftNullable && !rightNullable {
		return false, nil
	}

	c.Out.Write("(")
	if leftNullable {
		if err := emitNullableGuardedOperand(c, left); err != nil {
			return true, err
		}
	} else if err := EmitExpression(c, left); err != nil {
		return true, err
	}
	c.Out.Write(" ")
	c.Out.WriteToken(op, false, nil)
	c.Out.Write(" ")
	if rightNullable {
		if err := emitNullableGuardedOperand(c, right); err != nil {
			return true, err
		}
	} else if err := EmitExpression(c, right); err != nil {
		return true, err
	}
	c.Out.Write(")")
	return true, nil
}

func isNullableOperand(c *Context, n *ast.Node) bool {
	t := c.Model.TypeInfo(n).Type
	return t != nil && t.Special == ast.SpecialNullableT
}

func emitNullableGuardedOperand(c *Context, n *ast.Node) error {
	if isSimpleOperand(n) {
		c.Out.Write("(")
		if err := EmitExpression(c, n); err != nil {
			return err
		}
		c.Out.Write(" ~= nil and ")
		if err := EmitExpression(c, n); err != nil {
			return err
		}
		c.Out.Write(")")
		return nil
	}
	c.Out.Write("((")
	if err := EmitExpression(c, n); err != nil {
		return err
	}
	c.Out.Write(") or (0/0))")
	return nil
}

// isSimpleOperand reports whether n is a variable/field reference with no
// side effects, as opposed to a call/complex expression.
func isSimpleOperand(n *ast.Node) bool {
	switch n.Kind {
	case ast.KindIdentifierExpr, ast.KindMemberAccessExpr, ast.KindThisExpr:
		return true
	}
	return false
}

// --- Coalesce (§4.6) -----------------------------------------------------

// emitCoalesce lowers "a ?? b". When the result type is possibly
// null-and-boolean the ternary-table form is required because Lua's
// "a and a or b" idiom cannot distinguish a==false from a==nil; otherwise
// the direct "(a) and (a) or (b)" form is safe whenever a's non-null value
// is provably never falsy (numerics, strings, object creations, math-op
// results, literals).
func emitCoalesce(c *Context, node *ast.Node) error {
	a, b := node.Child(0), node.Child(1)
	if resultPossiblyNullBoolean(c, node) {
		c.Out.Write("((")
		if err := EmitExpression(c, a); err != nil {
			return err
		}
		c.Out.Write(" == nil) and {")
		if err := EmitExpression(c, b); err != nil {
			return err
		}
		c.Out.Write("} or {")
		if err := EmitExpression(c, a); err != nil {
			return err
		}
		c.Out.Write("})[1]")
		return nil
	}
	c.Out.Write("(")
	if err := EmitExpression(c, a); err != nil {
		return err
	}
	c.Out.Write(") and (")
	if err := EmitExpression(c, a); err != nil {
		return err
	}
	c.Out.Write(") or (")
	if err := EmitExpression(c, b); err != nil {
		return err
	}
	c.Out.Write(")")
	return nil
}

func resultPossiblyNullBoolean(c *Context, node *ast.Node) bool {
	t := c.Model.TypeInfo(node).Type
	return t != nil && t.Special == ast.SpecialBoolean
}

// neverFalsy reports whether evaluating n (when non-null) can ever be Lua
// falsy (false or nil). Numerics, strings, object creations, math-op
// results and literals are never falsy in Lua even when "0" or "" because
// only nil/false are falsy; a boolean-typed expression is the only one
// that can be legitimately false.
func neverFalsy(c *Context, n *ast.Node) bool {
	t := c.Model.TypeInfo(n).Type
	if t == nil {
		return false
	}
	return t.Special != ast.SpecialBoolean
}

// --- Ternary (§4.6) -------------------------------------------------------

// emitTernary lowers "cond ? then : else". When the then-branch is always
// truthy it uses the compact "(cond) and (then) or (else)" form;
// otherwise both branches are wrapped in a single-element table indexed
// at the end, so a falsy-but-non-nil then-value still wins.
func emitTernary(c *Context, node *ast.Node) error {
	cond, then, els := node.Child(0), node.Child(1), node.Child(2)
	if neverFalsy(c, then) {
		c.Out.Write("(")
		if err := EmitExpression(c, cond); err != nil {
			return err
		}
		c.Out.Write(") and (")
		if err := EmitExpression(c, then); err != nil {
			return err
		}
		c.Out.Write(") or (")
		if err := EmitExpression(c, els); err != nil {
			return err
		}
		c.Out.Write(")")
		return nil
	}
	c.Out.Write("((")
	if err := EmitExpression(c, cond); err != nil {
		return err
	}
	c.Out.Write(") and {")
	if err := EmitExpression(c, then); err != nil {
		return err
	}
	c.Out.Write("} or {")
	if err := EmitExpression(c, els); err != nil {
		return err
	}
	c.Out.Write("})[1]")
	return nil
}

// --- String concatenation & interpolation (§4.6) --------------------------

func isStringConcat(c *Context, left, right *ast.Node) bool {
	lt := c.Model.TypeInfo(left).Type
	rt := c.Model.TypeInfo(right).Type
	return (lt != nil && lt.Special == ast.SpecialString) || (rt != nil && rt.Special == ast.SpecialString)
}

func emitStringConcat(c *Context, left, right *ast.Node) error {
	if err := emitConcatOperand(c, left); err != nil {
		return err
	}
	c.Out.Write(" .. ")
	return emitConcatOperand(c, right)
}

// emitConcatOperand wraps an operand in tostring(...) unless it is
// provably a non-null string; numbers are implicitly coerced by Lua's ..
// operator, but a possibly-null string operand must go through tostring
// to avoid a runtime error on nil.
func emitConcatOperand(c *Context, n *ast.Node) error {
	t := c.Model.TypeInfo(n).Type
	if t != nil && t.Special == ast.SpecialString && neverNullString(n) {
		return EmitExpression(c, n)
	}
	c.Out.Write("tostring(")
	if err := EmitExpression(c, n); err != nil {
		return err
	}
	c.Out.Write(")")
	return nil
}

func neverNullString(n *ast.Node) bool {
	return n.Kind == ast.KindLiteralExpr || n.Kind == ast.KindInterpolatedStr
}

// emitInterpolatedString concatenates each fragment with "..": literal
// text fragments pass through quoted; non-string holes are wrapped in
// tostring unless an alignment clause is present, in which case
// string.align(value, width) replaces the redundant tostring. A format
// clause on a hole is rejected by the Constraint Checker before emission
// reaches here.
func emitInterpolatedString(c *Context, node *ast.Node) error {
	c.Out.Write("(")
	for i, frag := range node.Children {
		if i > 0 {
			c.Out.Write(" .. ")
		}
		if frag.Kind == ast.KindLiteralExpr {
			c.Out.WriteConstant(frag.Token(0))
			continue
		}
		if width := frag.Token(0); width != "" && frag.Has("align") {
			c.Out.Write(fmt.Sprintf("%s(", vocab.RuntimeHelper.StringAlign))
			if err := EmitExpression(c, frag.Child(0)); err != nil {
				return err
			}
			c.Out.Write(", " + width + ")")
			continue
		}
		if err := emitConcatOperand(c, frag.Child(0)); err != nil {
			return err
		}
	}
	c.Out.Write(")")
	return nil
}

// --- Bitwise (§4.6) -------------------------------------------------------

func isBitwiseOperator(op string) bool {
	switch op {
	case "&", "|", "^", "<<", ">>":
		return true
	}
	return false
}

func emitBitwise(c *Context, node *ast.Node, op string, left, right *ast.Node) error {
	lt := c.Model.TypeInfo(left).Type
	boolOperands := lt != nil && lt.Special == ast.SpecialBoolean
	helper := bitwiseHelper(op, boolOperands)
	return emitHelperCall(c, helper, left, right)
}

func bitwiseHelper(op string, boolOperands bool) string {
	if boolOperands {
		switch op {
		case "&":
			return vocab.RuntimeHelper.BoolAnd
		case "|":
			return vocab.RuntimeHelper.BoolOr
		case "^":
			return vocab.RuntimeHelper.BoolXor
		}
	}
	switch op {
	case "&":
		return vocab.RuntimeHelper.BitAnd
	case "|":
		return vocab.RuntimeHelper.BitOr
	case "^":
		return vocab.RuntimeHelper.BitXor
	case "<<":
		return vocab.RuntimeHelper.BitLShift
	case ">>":
		return vocab.RuntimeHelper.BitRShift
	}
	return ""
}

// --- Unary ----------------------------------------------------------------

func emitUnary(c *Context, node *ast.Node) error {
	op := node.Token(0)
	operand := node.Child(0)
	if op == "~" {
		return emitHelperCall(c, vocab.RuntimeHelper.BitNot, operand)
	}
	c.Out.WriteToken(op, false, nil)
	if op == "not" || op == "!" {
		c.Out.Write(" ")
	}
	return EmitExpression(c, operand)
}

// --- Cast (§4.6) -----------------------------------------------------------

// emitCast lowers explicit casts: numeric widenings are no-ops; casts to
// an integer type call castint; casts to a delegate type invoke
// delegate-binding; casts to a table/tuple pseudo-type are no-ops; all
// other casts call cast(v, TYPE) ("IfaceName" literal for interfaces).
func emitCast(c *Context, node *ast.Node) error {
	target := c.Model.TypeInfo(node).Type
	operand := node.Child(0)

	if target == nil {
		return EmitExpression(c, operand)
	}
	switch {
	case isWideningNumeric(c, operand, target):
		return EmitExpression(c, operand)
	case isIntegerTarget(target):
		return emitHelperCall(c, vocab.RuntimeHelper.CastInt, operand)
	case target.TypeKindTag == ast.TypeDelegate:
		return emitDelegateBinding(c, operand)
	case target.TypeKindTag == ast.TypeArray && node.Has("tuple_pseudo_type"):
		return EmitExpression(c, operand)
	case target.TypeKindTag == ast.TypeInterface:
		c.Out.Write(vocab.RuntimeHelper.Cast + "(")
		if err := EmitExpression(c, operand); err != nil {
			return err
		}
		c.Out.Write(fmt.Sprintf(", %q)", target.Name))
		return nil
	default:
		c.Out.Write(vocab.RuntimeHelper.Cast + "(")
		if err := EmitExpression(c, operand); err != nil {
			return err
		}
		c.Out.Write(", " + target.Name + ")")
		return nil
	}
}

func isWideningNumeric(c *Context, operand *ast.Node, target *ast.TypeSymbol) bool {
	src := c.Model.TypeInfo(operand).Type
	if src == nil || target == nil {
		return false
	}
	rank := map[ast.SpecialType]int{
		ast.SpecialByte: 1, ast.SpecialSByte: 1, ast.SpecialInt16: 2, ast.SpecialUInt16: 2,
		ast.SpecialInt32: 3, ast.SpecialUInt32: 3, ast.SpecialInt64: 4, ast.SpecialUInt64: 4,
		ast.SpecialSingle: 5, ast.SpecialDouble: 6,
	}
	sr, sok := rank[src.Special]
	tr, tok := rank[target.Special]
	return sok && tok && tr >= sr
}

// emitDelegateBinding lowers a method-group-to-delegate conversion through
// the bind_delegate runtime helper; any other operand (a lambda, or an
// already-delegate-typed value) passes through unchanged.
func emitDelegateBinding(c *Context, operand *ast.Node) error {
	sym := c.Model.SymbolInfo(operand).Primary
	if sym == nil || sym.Kind != ast.SymMethod {
		return EmitExpression(c, operand)
	}
	outputID := c.Model.LookupOutputID(sym)
	if sym.IsStatic {
		container := "nil"
		if sym.ContainingTy != nil {
			container = sym.ContainingTy.Name
		}
		c.Out.Write(fmt.Sprintf("%s(nil, %s.%s)", vocab.RuntimeHelper.BindDelegate, container, outputID))
		return nil
	}
	c.Out.Write(fmt.Sprintf("%s(%s, %s.%s)", vocab.RuntimeHelper.BindDelegate, vocab.SelfIdentifier, vocab.SelfIdentifier, outputID))
	return nil
}

func isIntegerTarget(t *ast.TypeSymbol) bool {
	switch t.Special {
	case ast.SpecialByte, ast.SpecialSByte, ast.SpecialInt16, ast.SpecialInt32,
		ast.SpecialInt64, ast.SpecialUInt16, ast.SpecialUInt32, ast.SpecialUInt64:
		return true
	}
	return false
}

// --- Object creation (§4.6) ------------------------------------------------

func emitObjectCreate(c *Context, node *ast.Node) error {
	ty := c.Model.TypeInfo(node).Type
	ctorID := node.Token(0) // "" for the default constructor
	args, initBlock := splitObjectCreateArgs(node)

	typeExpr := constructedTypeExpr(c, node, ty)

	emitCtorCall := func() error {
		if ctorID == "" {
			c.Out.Write(typeExpr + ":New(")
		} else {
			c.Out.Write(typeExpr + ":ONew(" + fmt.Sprintf("%q", ctorID))
			if len(args) > 0 {
				c.Out.Write(", ")
			}
		}
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

	if initBlock == nil {
		return emitCtorCall()
	}
	return emitObjectInitializer(c, initBlock, emitCtorCall)
}

// splitObjectCreateArgs separates an object_create_expr's constructor-
// argument children from its trailing object_init_block child, if any.
func splitObjectCreateArgs(node *ast.Node) (args []*ast.Node, initBlock *ast.Node) {
	for _, ch := range node.Children {
		if ch.Kind == ast.KindObjectInitBlock {
			initBlock = ch
			continue
		}
		args = append(args, ch)
	}
	return args, initBlock
}

// constructedTypeExpr returns the Lua expression that names the type being
// constructed: the plain output id for an ordinary type, or a
// genericlookup(...) call (§4.7) for a non-open generic whose type
// arguments the Semantic Model reports via GenericTypeArguments. The
// mangled lookup text is memoized in c.Cache (when the context carries
// one) so repeat specializations of the same base/arguments pair, within
// this unit or a later one sharing the process-wide cache, skip
// recomputation.
func constructedTypeExpr(c *Context, node *ast.Node, ty *ast.TypeSymbol) string {
	typeArgs := c.Model.GenericTypeArguments(node)
	if len(typeArgs) == 0 {
		return c.Model.LookupOutputID(&ty.Symbol)
	}

	baseID := c.Model.LookupOutputID(&ty.Symbol)
	argIDs := make([]string, len(typeArgs))
	paramNames := make([]string, len(typeArgs))
	for i, a := range typeArgs {
		argIDs[i] = c.Model.LookupOutputID(&a.Symbol)
		paramNames[i] = fmt.Sprintf("T%d", i+1)
	}
	mangled := baseID + "_" + strings.Join(argIDs, "_")

	if c.Cache != nil {
		if call, ok := c.Cache.Lookup(baseID, mangled); ok {
			return call
		}
	}

	call := identresolve.ResolveGenericSpecialization(baseID, mangled, paramNames, argIDs)
	if c.Cache != nil {
		_ = c.Cache.Store(baseID, mangled, call)
	}
	return call
}

// emitObjectInitializer wraps emitCtorCall's constructed object in
// initarr(obj, v1, v2, ...) when every entry is a positional value, or
// initlist(obj, is-setter, key1, value1, ...) when any entry is a named
// "Member = value" assignment that must invoke a setter (§4.6).
func emitObjectInitializer(c *Context, block *ast.Node, emitCtorCall func() error) error {
	named := false
	for _, entry := range block.Children {
		if entry.Has(ast.NamedInitEntry) {
			named = true
			break
		}
	}

	helper := vocab.RuntimeHelper.InitArr
	if named {
		helper = vocab.RuntimeHelper.InitList
	}
	c.Out.Write(helper + "(")
	if err := emitCtorCall(); err != nil {
		return err
	}
	if named {
		c.Out.Write(", true")
		for _, entry := range block.Children {
			c.Out.Write(", " + fmt.Sprintf("%q", entry.Token(0)) + ", ")
			if err := EmitExpression(c, entry.Child(0)); err != nil {
				return err
			}
		}
	} else {
		for _, entry := range block.Children {
			c.Out.Write(", ")
			if err := EmitExpression(c, entry.Child(0)); err != nil {
				return err
			}
		}
	}
	c.Out.Write(")")
	return nil
}

// --- Arrays (§4.6) ----------------------------------------------------------

// emitElementAccess rebases array indices from 0 to 1 and, for reference-
// element arrays, wraps reads as "(a[i+1] or nil)". An element access on a
// declared indexer member instead dispatches through its get_Item accessor
// (§4.4, §4.7); the index is passed through unrebased since the indexer's
// own parameter, not an array slot, receives it.
func emitElementAccess(c *Context, node *ast.Node) error {
	target, index := node.Child(0), node.Child(1)

	if isIndexerTarget(c, target) {
		if err := EmitExpression(c, target); err != nil {
			return err
		}
		c.Out.Write(":get_Item(")
		if err := EmitExpression(c, index); err != nil {
			return err
		}
		c.Out.Write(")")
		return nil
	}

	refElements := isReferenceElementArray(c, target)
	if refElements {
		c.Out.Write("(")
	}
	if err := EmitExpression(c, target); err != nil {
		return err
	}
	c.Out.Write("[")
	if err := emitRebasedIndex(c, index); err != nil {
		return err
	}
	c.Out.Write("]")
	if refElements {
		c.Out.Write(" or nil)")
	}
	return nil
}

// isIndexerTarget reports whether target's static type is a declared
// class/interface (as opposed to an array), meaning an element access on
// it names an indexer rather than an array slot.
func isIndexerTarget(c *Context, target *ast.Node) bool {
	t := c.Model.TypeInfo(target).Type
	if t == nil {
		return false
	}
	return t.TypeKindTag == ast.TypeClass || t.TypeKindTag == ast.TypeInterface
}

func emitRebasedIndex(c *Context, index *ast.Node) error {
	if info := c.Model.ConstantValue(index); info.HasValue {
		if n, ok := info.Value.(int); ok {
			c.Out.Write(fmt.Sprintf("%d", n+1))
			return nil
		}
	}
	c.Out.Write("(")
	if err := EmitExpression(c, index); err != nil {
		return err
	}
	c.Out.Write("+1)")
	return nil
}

func isReferenceElementArray(c *Context, target *ast.Node) bool {
	t := c.Model.TypeInfo(target).Type
	if t == nil || t.TypeKindTag != ast.TypeArray || t.ElementType == nil {
		return false
	}
	et := t.ElementType
	return et.TypeKindTag == ast.TypeClass || et.TypeKindTag == ast.TypeInterface || et.Special == ast.SpecialString
}

// EmitArrayLength lowers "arr.Length" to the target length operator #.
func EmitArrayLength(c *Context, target *ast.Node) error {
	c.Out.Write("#")
	return EmitExpression(c, target)
}

// --- Member access / invocation dispatch (§4.6, §4.7) ---------------------

// emitMemberAccess writes a non-invoked member access. A property or event
// reference is rewritten through its getter/raiser accessor (§4.7); the
// setter/adder side of that rewrite is driven from emitAccessorAssignment
// instead, since only an assignment target needs the unterminated call
// form.
func emitMemberAccess(c *Context, node *ast.Node) error {
	receiver, name := node.Child(0), node.Token(0)
	sym := c.Model.SymbolInfo(node).Primary

	if receiver != nil && receiver.Kind == ast.KindBaseExpr {
		if sym != nil && (sym.Kind == ast.SymProperty || sym.Kind == ast.SymEvent) {
			outputID := c.Model.LookupOutputID(sym)
			res := c.Resolver.ResolveAccessor(sym, outputID)
			c.Out.Write(vocab.SelfIdentifier + ":" + res.Name + "()")
			return nil
		}
		c.Out.Write(vocab.SelfIdentifier + "." + name)
		return nil
	}

	if sym != nil && (sym.Kind == ast.SymProperty || sym.Kind == ast.SymEvent) {
		outputID := c.Model.LookupOutputID(sym)
		res := c.Resolver.ResolveAccessor(sym, outputID)
		if err := EmitExpression(c, receiver); err != nil {
			return err
		}
		c.Out.Write(":" + res.Name + "()")
		return nil
	}

	if err := EmitExpression(c, receiver); err != nil {
		return err
	}
	c.Out.Write("." + name)
	return nil
}

// isAccessorTarget reports whether target names a property/event member,
// which must be routed through its accessor rather than written as a
// plain field reference.
func isAccessorTarget(c *Context, target *ast.Node) bool {
	if target == nil || target.Kind != ast.KindMemberAccessExpr {
		return false
	}
	sym := c.Model.SymbolInfo(target).Primary
	return sym != nil && (sym.Kind == ast.SymProperty || sym.Kind == ast.SymEvent)
}

// emitAccessorAssignment lowers an assignment (plain, compound, or ??=)
// whose target is a property or event into the corresponding set_X/add_X
// call (§4.7): it marks the Scope Engine's LHS so the Resolver produces the
// unterminated setter form, writes the receiver and accessor call opener,
// then closes the call with the (possibly-expanded) value expression.
func emitAccessorAssignment(c *Context, target *ast.Node, op string, value *ast.Node) error {
	sym := c.Model.SymbolInfo(target).Primary
	outputID := c.Model.LookupOutputID(sym)
	c.Scope.SetLHS(&ast.MethodSymbol{Symbol: ast.Symbol{Name: outputID}})

	receiver := target.Child(0)
	res := c.Resolver.ResolveAccessor(sym, outputID)

	if err := EmitExpression(c, receiver); err != nil {
		return err
	}
	c.Out.Write(":" + res.Name + "(")

	// The LHS marker has done its job (selecting the setter/adder form
	// above); clear it before emitting the value so a read of the same
	// member inside a compound/??= expansion resolves as a getter, not
	// another setter.
	c.Scope.SetLHS(nil)

	switch {
	case op == "??=":
		c.Out.Write("(")
		if err := emitMemberAccess(c, target); err != nil {
			return err
		}
		c.Out.Write(") == nil and (")
		if err := EmitExpression(c, value); err != nil {
			return err
		}
		c.Out.Write(") or (")
		if err := emitMemberAccess(c, target); err != nil {
			return err
		}
		c.Out.Write(")")
	case compoundExpansion[op] != "":
		if err := emitMemberAccess(c, target); err != nil {
			return err
		}
		c.Out.Write(" " + compoundExpansion[op] + " ")
		if err := EmitExpression(c, value); err != nil {
			return err
		}
	default:
		if err := EmitExpression(c, value); err != nil {
			return err
		}
	}
	c.Out.Write(")")
	return nil
}

func emitInvocation(c *Context, node *ast.Node) error {
	callee := node.Child(0)
	args := normalizeArguments(c, node)

	if callee != nil && callee.Kind == ast.KindMemberAccessExpr {
		receiver := callee.Child(0)
		name := callee.Token(0)
		sep := "."
		if receiver != nil && receiver.Kind != ast.KindBaseExpr && isInstanceSendTarget(c, callee) {
			sep = ":"
		}
		if receiver != nil && receiver.Kind == ast.KindBaseExpr {
			if ty := c.Model.TypeInfo(receiver).Type; ty != nil {
				c.Out.Write(ty.Name + "." + name + "(" + vocab.SelfIdentifier)
				if len(args) > 0 {
					c.Out.Write(", ")
				}
				return finishArgs(c, args)
			}
		}
		if err := EmitExpression(c, receiver); err != nil {
			return err
		}
		c.Out.Write(sep + name + "(")
		return finishArgs(c, args)
	}

	if err := EmitExpression(c, callee); err != nil {
		return err
	}
	c.Out.Write("(")
	return finishArgs(c, args)
}

func finishArgs(c *Context, args []*ast.Node) error {
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

func isInstanceSendTarget(c *Context, memberAccess *ast.Node) bool {
	sym := c.Model.SymbolInfo(memberAccess).Primary
	return sym != nil && sym.Kind == ast.SymMethod && !sym.IsStatic
}

// normalizeArguments applies part of §4.6's invocation argument
// normalization: trailing null-valued defaults (arguments annotated
// is_trailing_default) are dropped, and a final argument annotated
// params_flatten_array is flattened via table.unpack. Arguments are kept
// in the order the call node lists them: named arguments are not moved
// into positional slots, and omitted optional parameters are not
// backfilled with their defaults.
func normalizeArguments(c *Context, call *ast.Node) []*ast.Node {
	args := append([]*ast.Node{}, call.Children[1:]...)
	for len(args) > 0 {
		last := args[len(args)-1]
		info := c.Model.ConstantValue(last)
		if last.Has("is_trailing_default") && info.HasValue && info.Value == nil {
			args = args[:len(args)-1]
			continue
		}
		break
	}
	if len(args) > 0 {
		last := args[len(args)-1]
		if last.Has("params_flatten_array") {
			flattened := &ast.Node{
				Kind:   ast.KindInvocationExpr,
				Tokens: []string{"table.unpack"},
				Children: []*ast.Node{
					{Kind: ast.KindIdentifierExpr, Tokens: []string{"table.unpack"}},
					last,
				},
				Annotations: map[ast.Annotation]bool{"line-mismatch-allowed": true},
			}
			args[len(args)-1] = flattened
		}
	}
	return args
}

// --- Assignment (§4.6) -----------------------------------------------------

var compoundExpansion = map[string]string{
	"+=": "+", "-=": "-", "*=": "*", "/=": "/", "%=": "%",
	"&=": "&", "|=": "|", "^=": "^", "<<=": "<<", ">>=": ">>",
}

func emitAssignment(c *Context, node *ast.Node) error {
	op := node.Token(0)
	target, value := node.Child(0), node.Child(1)

	if isAccessorTarget(c, target) {
		return emitAccessorAssignment(c, target, op, value)
	}
	if recv := elementAccessReceiver(target); recv != nil && isIndexerTarget(c, recv) {
		return emitIndexerAssignment(c, target, op, value)
	}

	if op == "??=" {
		return emitCoalesceAssign(c, target, value)
	}
	if base, ok := compoundExpansion[op]; ok {
		return emitCompoundAssign(c, target, base, value)
	}
	if err := emitAssignTarget(c, target); err != nil {
		return err
	}
	c.Out.Write(" = ")
	return emitAssignValue(c, target, value)
}

// elementAccessReceiver returns target's array/indexer receiver, or nil if
// target is not an element access.
func elementAccessReceiver(target *ast.Node) *ast.Node {
	if target == nil || target.Kind != ast.KindElementAccessExpr {
		return nil
	}
	return target.Child(0)
}

// emitIndexerAssignment lowers an assignment to a declared indexer into a
// set_Item(index, value) call (§4.4, §4.7); compound and ??= forms read
// back through get_Item for the current value.
func emitIndexerAssignment(c *Context, target *ast.Node, op string, value *ast.Node) error {
	receiver, index := target.Child(0), target.Child(1)
	if err := EmitExpression(c, receiver); err != nil {
		return err
	}
	c.Out.Write(":set_Item(")
	if err := EmitExpression(c, index); err != nil {
		return err
	}
	c.Out.Write(", ")

	switch {
	case op == "??=":
		c.Out.Write("(")
		if err := EmitExpression(c, target); err != nil {
			return err
		}
		c.Out.Write(") == nil and (")
		if err := EmitExpression(c, value); err != nil {
			return err
		}
		c.Out.Write(") or (")
		if err := EmitExpression(c, target); err != nil {
			return err
		}
		c.Out.Write(")")
	case compoundExpansion[op] != "":
		if err := EmitExpression(c, target); err != nil {
			return err
		}
		c.Out.Write(" " + compoundExpansion[op] + " ")
		if err := EmitExpression(c, value); err != nil {
			return err
		}
	default:
		if err := EmitExpression(c, value); err != nil {
			return err
		}
	}
	c.Out.Write(")")
	return nil
}

func emitCompoundAssign(c *Context, target *ast.Node, baseOp string, value *ast.Node) error {
	if err := emitAssignTarget(c, target); err != nil {
		return err
	}
	c.Out.Write(" = ")
	if err := EmitExpression(c, target); err != nil {
		return err
	}
	c.Out.Write(" " + baseOp + " ")
	return emitAssignValue(c, target, value)
}

func emitCoalesceAssign(c *Context, target, value *ast.Node) error {
	if err := emitAssignTarget(c, target); err != nil {
		return err
	}
	c.Out.Write(" = (")
	if err := EmitExpression(c, target); err != nil {
		return err
	}
	c.Out.Write(") == nil and (")
	if err := EmitExpression(c, value); err != nil {
		return err
	}
	c.Out.Write(") or (")
	if err := EmitExpression(c, target); err != nil {
		return err
	}
	c.Out.Write(")")
	return nil
}

// emitAssignTarget writes the LHS of an assignment. Property/event targets
// never reach it (emitAssignment routes them to emitAccessorAssignment
// first); element assignment on a reference-type array is special-cased by
// emitAssignValue once the target has been written.
func emitAssignTarget(c *Context, target *ast.Node) error {
	return EmitExpression(c, target)
}

func emitAssignValue(c *Context, target, value *ast.Node) error {
	if target.Kind == ast.KindElementAccessExpr && isReferenceElementArray(c, target.Child(0)) {
		c.Out.Write("(")
		if err := EmitExpression(c, value); err != nil {
			return err
		}
		c.Out.Write(" or false)")
		return nil
	}
	return EmitExpression(c, value)
}

// --- Conditional access (§4.6) ---------------------------------------------

// emitConditionalAccess lowers "a?.b": in expression position it becomes
// "(a and a.b)"; a node annotated stmt_position becomes
// "if a then a.b end" instead.
func emitConditionalAccess(c *Context, node *ast.Node) error {
	receiver, member := node.Child(0), node.Child(1)
	if node.Has("stmt_position") {
		c.Out.Write("if ")
		if err := EmitExpression(c, receiver); err != nil {
			return err
		}
		c.Out.Write(" then ")
		if err := emitBoundMember(c, receiver, member); err != nil {
			return err
		}
		c.Out.Write(" end")
		return nil
	}
	c.Out.Write("(")
	if err := EmitExpression(c, receiver); err != nil {
		return err
	}
	c.Out.Write(" and ")
	if err := emitBoundMember(c, receiver, member); err != nil {
		return err
	}
	c.Out.Write(")")
	return nil
}

// emitBoundMember writes member as an ordinary expression. receiver is not
// used: the member expression is emitted with whatever receiver it carries
// itself, and no binding-target stack is kept across nested ?. chains.
func emitBoundMember(c *Context, receiver, member *ast.Node) error {
	return EmitExpression(c, member)
}

// --- Literals & identifiers --------------------------------------------

func emitLiteral(c *Context, node *ast.Node) error {
	info := c.Model.ConstantValue(node)
	if info.HasValue {
		c.Out.WriteConstant(info.Value)
		return nil
	}
	c.Out.WriteConstant(node.Token(0))
	return nil
}

func emitIdentifier(c *Context, node *ast.Node) error {
	info := c.Model.SymbolInfo(node)
	if info.Primary == nil {
		c.Out.Write(node.Token(0))
		return nil
	}
	if vp := c.VariadicParam(); vp != nil && vp == info.Primary {
		c.Out.Write("...")
		return nil
	}
	res := c.Resolver.ResolveBareName(info.Primary, c.InsideInstanceMethod())
	switch res.Form {
	case identresolve.FormImplicitThis, identresolve.FormImplicitTypeParam:
		c.Out.Write(vocab.SelfIdentifier + "." + res.Name)
		return nil
	case identresolve.FormImplicitStatic:
		if ty := info.Primary.ContainingTy; ty != nil {
			c.Out.Write(c.Model.LookupOutputID(&ty.Symbol) + "." + res.Name)
			return nil
		}
	}
	c.Out.Write(res.Name)
	return nil
}

func emitTuple(c *Context, node *ast.Node) error {
	for i, el := range node.Children {
		if i > 0 {
			c.Out.Write(", ")
		}
		if err := EmitExpression(c, el); err != nil {
			return err
		}
	}
	return nil
}
