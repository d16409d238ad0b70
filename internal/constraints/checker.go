// Package constraints implements the Constraint Checker of spec §4.3: it
// rejects, with a precise diagnostic, any accepted-node-kind whose
// contents fall outside the supported subset, before the emitter ever
// touches it.
package constraints

import (
	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/compilererr"
	"github.com/oxhq/cs2lua/internal/semmodel"
)

// Checker validates one compilation unit's AST against the supported
// subset, consulting the Semantic Model read-only for the checks that
// need symbol/type/purity information (e.g. pure-method verification).
type Checker struct {
	model semmodel.Model
}

// New creates a Checker backed by model.
func New(model semmodel.Model) *Checker {
	return &Checker{model: model}
}

// Check walks node and its descendants, returning the first violation
// found as a compilererr.Diagnostic with Code CodeUnsupportedNode, or nil
// if node is fully within the accepted subset.
func (c *Checker) Check(node *ast.Node) error {
	if node == nil {
		return nil
	}
	if err := c.checkNode(node); err != nil {
		return err
	}
	for _, child := range node.Children {
		if err := c.Check(child); err != nil {
			return err
		}
	}
	return nil
}

// CheckAll walks node and its descendants, collecting every violation
// instead of stopping at the first one — the driver's opt-in
// partial-unit diagnostics collection mode (SPEC_FULL.md) uses this per
// top-level declaration; ordinary emission always uses Check and aborts
// immediately, per spec §7.
func (c *Checker) CheckAll(node *ast.Node) []error {
	var out []error
	var walk func(*ast.Node)
	walk = func(n *ast.Node) {
		if n == nil {
			return
		}
		if err := c.checkNode(n); err != nil {
			out = append(out, err)
		}
		for _, child := range n.Children {
			walk(child)
		}
	}
	walk(node)
	return out
}

func (c *Checker) checkNode(node *ast.Node) error {
	if hasModifier(node, "async") {
		return compilererr.Unsupported(node, "async modifiers are unsupported")
	}
	if hasModifier(node, "ref") || hasModifier(node, "out") {
		return compilererr.Unsupported(node, "ref/out parameters are unsupported")
	}
	if node.Kind == ast.KindCastExpr && hasModifier(node, "dynamic") {
		return compilererr.Unsupported(node, "cast to dynamic type is unsupported")
	}
	if node.Kind == ast.KindLocalDeclStmt && hasModifier(node, "tuple_type") {
		return compilererr.Unsupported(node, "variable declarations of tuple type are unsupported")
	}
	if hasModifier(node, "checked") {
		return compilererr.Unsupported(node, "checked arithmetic blocks are unsupported")
	}
	if err := c.checkArrayShape(node); err != nil {
		return err
	}
	if err := c.checkAssignmentPosition(node); err != nil {
		return err
	}
	if err := c.checkPurity(node); err != nil {
		return err
	}
	if node.Kind == ast.KindPropertyDecl || node.Kind == ast.KindIndexerDecl || node.Kind == ast.KindAccessorDecl {
		if hasModifier(node, "expression_body") {
			return compilererr.Unsupported(node, "property or indexer with expression-body is unsupported")
		}
	}
	if err := c.checkLiteral(node); err != nil {
		return err
	}
	return nil
}

// checkLiteral enforces that literal expressions are of a supported value
// type, unless the literal is an out-of-range integral literal appearing
// directly inside an explicit cast to a 32-bit int or 64-bit float (the
// one place the source is allowed to spell an otherwise-unsupported
// literal shape).
func (c *Checker) checkLiteral(node *ast.Node) error {
	if node.Kind != ast.KindLiteralExpr {
		return nil
	}
	ti := c.model.TypeInfo(node)
	if ti.Type == nil {
		return nil
	}
	if isSupportedLiteralType(ti.Type) {
		return nil
	}
	if node.Has("explicit_cast_int32_or_double") {
		return nil
	}
	return compilererr.Unsupported(node, "literal of unsupported type %q", ti.Type.Name)
}

func isSupportedLiteralType(t *ast.TypeSymbol) bool {
	switch t.Special {
	case ast.SpecialBoolean, ast.SpecialByte, ast.SpecialSByte,
		ast.SpecialInt16, ast.SpecialInt32, ast.SpecialInt64,
		ast.SpecialUInt16, ast.SpecialUInt32, ast.SpecialUInt64,
		ast.SpecialSingle, ast.SpecialDouble, ast.SpecialString:
		return true
	}
	return t.TypeKindTag == ast.TypeEnum
}

// checkArrayShape rejects multi-dimensional/non-unit-rank arrays and
// arrays of object/dynamic.
func (c *Checker) checkArrayShape(node *ast.Node) error {
	ti := c.model.TypeInfo(node)
	if ti.Type == nil || ti.Type.TypeKindTag != ast.TypeArray {
		return nil
	}
	if hasModifier(node, "multi_rank") {
		return compilererr.Unsupported(node, "multi-dimensional and non-unit-rank arrays are unsupported")
	}
	elem := ti.Type.ElementType
	if elem != nil && (elem.Special == ast.SpecialObject || elem.TypeKindTag == ast.TypeDynamic) {
		return compilererr.Unsupported(node, "arrays of object or dynamic are unsupported")
	}
	return nil
}

// checkAssignmentPosition enforces that assignments only appear in
// statement position: expression statements, for-loop initializer/
// incrementor slots, or object-initializer slots.
func (c *Checker) checkAssignmentPosition(node *ast.Node) error {
	if node.Kind != ast.KindAssignmentExpr {
		return nil
	}
	if node.Has("stmt_position") || node.Has("for_init_position") ||
		node.Has("for_incrementor_position") || node.Has("initializer_position") {
		return nil
	}
	return compilererr.Unsupported(node, "assignments outside statement position are unsupported")
}

// checkPurity verifies pure-marked methods/properties/accessors contain
// no side effects.
func (c *Checker) checkPurity(node *ast.Node) error {
	if node.Kind != ast.KindMethodDecl && node.Kind != ast.KindAccessorDecl {
		return nil
	}
	sym := c.model.DeclaredSymbol(node)
	if sym == nil {
		return nil
	}
	method := &ast.MethodSymbol{Symbol: *sym}
	if !c.model.IsPure(method) {
		return nil
	}
	if hasModifier(node, "impure_invocation") {
		return compilererr.Unsupported(node, "pure-marked member invokes an impure member")
	}
	if hasModifier(node, "nonlocal_write") {
		return compilererr.Unsupported(node, "pure-marked member writes to non-local state")
	}
	return nil
}

// hasModifier is a small annotation lookup: constraints are expressed by
// the parser/semantic-model layer tagging nodes with boolean annotations
// (ast.Annotation) that name the property being flagged; this keeps the
// Checker itself free of grammar-specific structure.
func hasModifier(node *ast.Node, name string) bool {
	return node.Has(ast.Annotation(name))
}
