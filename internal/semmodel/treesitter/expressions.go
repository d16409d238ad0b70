package treesitter

import (
	"strconv"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
)

// buildExpression dispatches one expression node. nil input (an absent
// optional child, e.g. a for-loop with no condition) returns nil, which
// every Expression Emitter entry point already treats as "nothing to
// write".
func (b *builder) buildExpression(n *sitter.Node) *ast.Node {
	if n == nil {
		return nil
	}
	switch n.Type() {
	case "parenthesized_expression":
		return b.buildExpression(n.NamedChild(0))
	case "binary_expression":
		return b.buildBinary(n)
	case "prefix_unary_expression":
		return b.buildUnary(n)
	case "conditional_expression":
		return b.buildTernary(n)
	case "cast_expression":
		return b.buildCast(n)
	case "object_creation_expression":
		return b.buildObjectCreate(n)
	case "invocation_expression":
		return b.buildInvocation(n)
	case "member_access_expression":
		return b.buildMemberAccess(n)
	case "element_access_expression":
		return b.buildElementAccess(n)
	case "interpolated_string_expression":
		return b.buildInterpolatedString(n)
	case "assignment_expression":
		return b.buildAssignment(n)
	case "conditional_access_expression":
		return b.buildConditionalAccess(n)
	case "this_expression":
		return &ast.Node{Kind: ast.KindThisExpr, Span: b.span(n)}
	case "base_expression":
		return &ast.Node{Kind: ast.KindBaseExpr, Span: b.span(n)}
	case "tuple_expression":
		return b.buildTuple(n)
	case "lambda_expression", "anonymous_method_expression":
		return b.buildLambda(n)
	case "identifier":
		return b.buildIdentifier(n)
	case "integer_literal", "real_literal", "string_literal", "character_literal",
		"boolean_literal", "null_literal", "verbatim_string_literal":
		return b.buildLiteral(n)
	case "discard":
		return &ast.Node{Kind: ast.KindDiscardExpr, Span: b.span(n)}
	default:
		if n.NamedChildCount() > 0 {
			return b.buildExpression(n.NamedChild(0))
		}
		return b.buildLiteral(n)
	}
}

// --- Binary / unary / ternary / coalesce --------------------------------

var knownOperators = []string{
	"??", "==", "!=", "<=", ">=", "&&", "||", "<<", ">>",
	"+", "-", "*", "/", "%", "<", ">", "&", "|", "^",
}

func operatorTokenOf(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		text := strings.TrimSpace(n.Child(i).Content(src))
		for _, op := range knownOperators {
			if text == op {
				return op
			}
		}
	}
	return ""
}

func (b *builder) buildBinary(n *sitter.Node) *ast.Node {
	op := operatorTokenOf(n, b.src)
	left := b.buildExpression(n.ChildByFieldName("left"))
	right := b.buildExpression(n.ChildByFieldName("right"))
	if left == nil && n.NamedChildCount() >= 2 {
		left = b.buildExpression(n.NamedChild(0))
		right = b.buildExpression(n.NamedChild(1))
	}
	if op == "??" {
		node := &ast.Node{Kind: ast.KindCoalesceExpr, Span: b.span(n)}
		node.Children = append(node.Children, left, right)
		return node
	}
	luaOp := op
	switch op {
	case "&&":
		luaOp = "and"
	case "||":
		luaOp = "or"
	case "!=":
		luaOp = "~="
	}
	node := &ast.Node{Kind: ast.KindBinaryExpr, Span: b.span(n), Tokens: []string{luaOp}}
	node.Children = append(node.Children, left, right)
	return node
}

func (b *builder) buildUnary(n *sitter.Node) *ast.Node {
	op := strings.TrimSpace(n.Child(0).Content(b.src))
	if op == "!" {
		op = "not"
	}
	node := &ast.Node{Kind: ast.KindUnaryExpr, Span: b.span(n), Tokens: []string{op}}
	node.Children = append(node.Children, b.buildExpression(n.NamedChild(n.NamedChildCount()-1)))
	return node
}

func (b *builder) buildTernary(n *sitter.Node) *ast.Node {
	node := &ast.Node{Kind: ast.KindTernaryExpr, Span: b.span(n)}
	node.Children = append(node.Children,
		b.buildExpression(n.ChildByFieldName("condition")),
		b.buildExpression(n.ChildByFieldName("consequence")),
		b.buildExpression(n.ChildByFieldName("alternative")),
	)
	return node
}

// --- Cast ----------------------------------------------------------------

func (b *builder) buildCast(n *sitter.Node) *ast.Node {
	typeName := b.text(n.ChildByFieldName("type"))
	ty := b.resolveTypeName(typeName)
	node := &ast.Node{Kind: ast.KindCastExpr, Span: b.span(n)}
	b.model.types[node] = semmodel.TypeInfo{Type: ty}
	node.Children = append(node.Children, b.buildExpression(n.ChildByFieldName("value")))
	return node
}

// --- Object creation -------------------------------------------------------

func (b *builder) buildObjectCreate(n *sitter.Node) *ast.Node {
	typeName := b.text(n.ChildByFieldName("type"))
	ty := b.resolveTypeName(stripGenericArgs(typeName))
	node := &ast.Node{Kind: ast.KindObjectCreateExpr, Span: b.span(n)}
	b.model.types[node] = semmodel.TypeInfo{Type: ty}

	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			node.Children = append(node.Children, b.buildExpression(argumentValue(args.NamedChild(i))))
		}
	}
	if init := n.ChildByFieldName("initializer"); init != nil {
		node.Children = append(node.Children, b.buildObjectInitBlock(init))
	}
	return node
}

func (b *builder) buildObjectInitBlock(n *sitter.Node) *ast.Node {
	block := &ast.Node{Kind: ast.KindObjectInitBlock, Span: b.span(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		entry := &ast.Node{Kind: ast.KindInitializerEntry, Span: b.span(c)}
		if c.Type() == "assignment_expression" {
			member := b.text(c.ChildByFieldName("left"))
			entry.Tokens = []string{member}
			entry.Annotations = map[ast.Annotation]bool{ast.NamedInitEntry: true}
			entry.Children = append(entry.Children, b.buildExpression(c.ChildByFieldName("right")))
		} else {
			entry.Children = append(entry.Children, b.buildExpression(c))
		}
		block.Children = append(block.Children, entry)
	}
	return block
}

// --- Invocation / member access / element access --------------------------

func (b *builder) buildInvocation(n *sitter.Node) *ast.Node {
	node := &ast.Node{Kind: ast.KindInvocationExpr, Span: b.span(n)}
	node.Children = append(node.Children, b.buildExpression(n.ChildByFieldName("function")))
	if args := n.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			node.Children = append(node.Children, b.buildExpression(argumentValue(args.NamedChild(i))))
		}
	}
	return node
}

func (b *builder) buildMemberAccess(n *sitter.Node) *ast.Node {
	name := b.text(n.ChildByFieldName("name"))
	node := &ast.Node{Kind: ast.KindMemberAccessExpr, Span: b.span(n), Tokens: []string{name}}
	receiver := n.ChildByFieldName("expression")
	node.Children = append(node.Children, b.buildExpression(receiver))

	if receiver != nil {
		recvTy := b.staticTypeOf(receiver)
		if recvTy != nil {
			if sym := b.memberLookup(recvTy, name); sym != nil {
				b.model.symbols[node] = semmodel.SymbolInfo{Primary: sym}
			}
		}
	}
	return node
}

// staticTypeOf makes a best-effort guess at receiver's declared type: an
// identifier/this resolve through the symbol table directly; anything more
// elaborate (a chained member/invocation) is out of this adapter's scope
// and returns nil, which simply disables the one memberLookup optimization
// above for that receiver (the node's Tokens[0] member name still lets the
// Declaration/Expression Emitter fall back to a plain field reference).
func (b *builder) staticTypeOf(n *sitter.Node) *ast.TypeSymbol {
	switch n.Type() {
	case "this_expression":
		return b.currentType
	case "identifier":
		sym := b.lookupName(b.text(n))
		if sym == nil {
			return nil
		}
		return b.symbolTypes[sym]
	default:
		return nil
	}
}

func (b *builder) buildElementAccess(n *sitter.Node) *ast.Node {
	node := &ast.Node{Kind: ast.KindElementAccessExpr, Span: b.span(n)}
	node.Children = append(node.Children, b.buildExpression(n.ChildByFieldName("expression")))
	if args := n.ChildByFieldName("subscript"); args != nil {
		node.Children = append(node.Children, b.buildExpression(argumentValue(args.NamedChild(0))))
	} else if args := n.ChildByFieldName("arguments"); args != nil && args.NamedChildCount() > 0 {
		node.Children = append(node.Children, b.buildExpression(argumentValue(args.NamedChild(0))))
	}
	return node
}

// --- Interpolated strings --------------------------------------------------

func (b *builder) buildInterpolatedString(n *sitter.Node) *ast.Node {
	node := &ast.Node{Kind: ast.KindInterpolatedStr, Span: b.span(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		c := n.NamedChild(i)
		switch c.Type() {
		case "interpolation":
			expr := c.ChildByFieldName("expression")
			if expr == nil {
				expr = c.NamedChild(0)
			}
			frag := &ast.Node{Kind: "interpolation_hole", Span: b.span(c)}
			frag.Children = append(frag.Children, b.buildExpression(expr))
			node.Children = append(node.Children, frag)
		default:
			lit := &ast.Node{Kind: ast.KindLiteralExpr, Span: b.span(c), Tokens: []string{b.text(c)}}
			b.model.constants[lit] = semmodel.ConstantInfo{HasValue: true, Value: b.text(c)}
			node.Children = append(node.Children, lit)
		}
	}
	return node
}

// --- Assignment ------------------------------------------------------------

func (b *builder) buildAssignment(n *sitter.Node) *ast.Node {
	op := assignmentOperatorOf(n, b.src)
	node := &ast.Node{Kind: ast.KindAssignmentExpr, Span: b.span(n), Tokens: []string{op}}
	node.Children = append(node.Children,
		b.buildExpression(n.ChildByFieldName("left")),
		b.buildExpression(n.ChildByFieldName("right")),
	)
	return node
}

var assignmentOperators = []string{
	"??=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>=", "=",
}

func assignmentOperatorOf(n *sitter.Node, src []byte) string {
	for i := 0; i < int(n.ChildCount()); i++ {
		text := strings.TrimSpace(n.Child(i).Content(src))
		for _, op := range assignmentOperators {
			if text == op {
				return op
			}
		}
	}
	return "="
}

// --- Conditional access -----------------------------------------------------

func (b *builder) buildConditionalAccess(n *sitter.Node) *ast.Node {
	node := &ast.Node{Kind: ast.KindConditionalAccess, Span: b.span(n)}
	receiver := n.ChildByFieldName("condition")
	if receiver == nil {
		receiver = n.NamedChild(0)
	}
	var member *sitter.Node
	if n.NamedChildCount() > 1 {
		member = n.NamedChild(int(n.NamedChildCount()) - 1)
	}
	node.Children = append(node.Children, b.buildExpression(receiver), b.buildExpression(member))
	return node
}

// --- Tuple / lambda ----------------------------------------------------------

func (b *builder) buildTuple(n *sitter.Node) *ast.Node {
	node := &ast.Node{Kind: ast.KindTupleExpr, Span: b.span(n)}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		node.Children = append(node.Children, b.buildExpression(argumentValue(n.NamedChild(i))))
	}
	return node
}

func (b *builder) buildLambda(n *sitter.Node) *ast.Node {
	b.pushScope()
	defer b.popScope()

	node := &ast.Node{Kind: ast.KindLambdaExpr, Span: b.span(n)}
	if params := n.ChildByFieldName("parameters"); params != nil {
		node.Children = append(node.Children, b.buildParameterList(params)...)
	} else if p := n.ChildByFieldName("parameter"); p != nil {
		node.Children = append(node.Children, b.buildParameter(p, true))
	}
	if body := n.ChildByFieldName("body"); body != nil {
		if body.Type() == "block" {
			node.Children = append(node.Children, b.buildBlock(body))
		} else {
			node.Children = append(node.Children, b.buildExpression(body))
		}
	}
	return node
}

// --- Identifiers & literals --------------------------------------------------

func (b *builder) buildIdentifier(n *sitter.Node) *ast.Node {
	name := b.text(n)
	node := &ast.Node{Kind: ast.KindIdentifierExpr, Span: b.span(n), Tokens: []string{name}}
	if sym := b.lookupName(name); sym != nil {
		b.model.symbols[node] = semmodel.SymbolInfo{Primary: sym}
	}
	return node
}

func (b *builder) buildLiteral(n *sitter.Node) *ast.Node {
	node := &ast.Node{Kind: ast.KindLiteralExpr, Span: b.span(n), Tokens: []string{b.text(n)}}
	if v, ok := constantOf(b, n); ok {
		b.model.constants[node] = semmodel.ConstantInfo{HasValue: true, Value: v}
	}
	return node
}

// constantOf constant-folds a literal node to its host value: an int64-
// representable integer literal becomes an int (so the 32-bit-arithmetic
// and element-index-rebasing lowerings in the Expression Emitter can type-
// switch on it, e.g. emitRebasedIndex's `info.Value.(int)`), a real
// literal a float64, a string/char literal its unquoted text, a boolean
// literal a bool, and "null" untyped nil (HasValue still true: an explicit
// null is itself a known constant value).
func constantOf(b *builder, n *sitter.Node) (any, bool) {
	switch n.Type() {
	case "integer_literal":
		text := strings.TrimRight(b.text(n), "uUlL")
		if v, err := strconv.Atoi(text); err == nil {
			return v, true
		}
		return nil, false
	case "real_literal":
		text := strings.TrimRight(b.text(n), "fFdDmM")
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return v, true
		}
		return nil, false
	case "boolean_literal":
		return b.text(n) == "true", true
	case "null_literal":
		return nil, true
	case "string_literal", "verbatim_string_literal":
		return unquoteStringLiteral(b.text(n)), true
	case "character_literal":
		return unquoteStringLiteral(b.text(n)), true
	default:
		return nil, false
	}
}

func unquoteStringLiteral(s string) string {
	s = strings.TrimPrefix(s, "@")
	if len(s) >= 2 {
		return s[1 : len(s)-1]
	}
	return s
}
