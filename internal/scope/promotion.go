package scope

import "github.com/oxhq/cs2lua/internal/ast"

// PromotionCandidate bundles the facts CanPromote needs about one member
// declaration, gathered by the Declaration Emitter.
type PromotionCandidate struct {
	Member       *ast.Symbol
	OutputID     string
	IsMethod     bool
	IsMainEntry  bool
	IsStaticCtor bool
}

// CanPromote implements §4.2's top-level-local promotion eligibility
// rule. A member qualifies only at the outermost type scope of a unit,
// for a non-partial, non-nested class.
func CanPromote(ty *ast.TypeSymbol, frame *TypeScopeFrame, c PromotionCandidate) bool {
	if ty == nil || ty.IsPartial || ty.IsNested {
		return false
	}
	if ty.TypeKindTag != ast.TypeClass {
		return false
	}
	isPrivateMethod := c.IsMethod && c.Member.Access == ast.AccessPrivate
	isPrivateStaticOrConstField := !c.IsMethod && c.Member.Access == ast.AccessPrivate && c.Member.IsStatic
	if !isPrivateMethod && !isPrivateStaticOrConstField {
		return false
	}
	if frame.Globals[c.OutputID] {
		return false
	}
	if c.IsMethod && (c.IsMainEntry || c.IsStaticCtor) {
		return false
	}
	return true
}

// Promote records member's declaration node as promoted (not yet
// emitted), at the given type scope frame.
func Promote(frame *TypeScopeFrame, decl *ast.Node, sym *ast.Symbol) {
	frame.Promoted[decl] = false
	frame.PromotedSymbols[sym] = true
}

// MarkEmitted flags a promoted declaration as already emitted, so the
// Declaration Emitter's "process-and-write-local-top-level-dependencies"
// routine does not emit it twice when an earlier member's body forced an
// early pre-declaration.
func MarkEmitted(frame *TypeScopeFrame, decl *ast.Node) { frame.Promoted[decl] = true }

// IsEmitted reports whether decl has already been emitted as a file-level
// local.
func IsEmitted(frame *TypeScopeFrame, decl *ast.Node) bool { return frame.Promoted[decl] }

// IsPromoted reports whether sym was promoted to a file-level local in
// frame, used by the Identifier Resolver to decide whether a reference
// writes bare (no self./Type. prefix).
func IsPromoted(frame *TypeScopeFrame, sym *ast.Symbol) bool {
	if frame == nil {
		return false
	}
	return frame.PromotedSymbols[sym]
}
