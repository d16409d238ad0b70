// Package identresolve implements the Identifier Resolver of spec §4.7:
// for every name reference it decides how the reference must be qualified
// in the emitted Lua — bare, self-prefixed, type-prefixed, accessor-
// rewritten, or routed through the generic-specialization runtime helper.
// It makes decisions; the Expression/Function emitters do the writing.
package identresolve

import (
	"fmt"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/scope"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/oxhq/cs2lua/internal/vocab"
)

// Form names the qualification strategy chosen for one reference.
type Form string

const (
	FormExtension    Form = "extension"
	FormSend         Form = "send"
	FormNormal       Form = "normal"
	FormBaseInvoke   Form = "base_invoke"
	FormBaseMember   Form = "base_member"
	FormGetter       Form = "getter"
	FormSetter       Form = "setter"
	FormAdder        Form = "adder"
	FormRemover      Form = "remover"
	FormRaiser       Form = "raiser"
	FormImplicitThis Form = "implicit_this"
	FormImplicitStatic Form = "implicit_static"
	FormImplicitTypeParam Form = "implicit_type_param"
	FormPromotedBare Form = "promoted_bare"
	FormGenericSpecialization Form = "generic_specialization"
	FormBare         Form = "bare"
)

// Resolution is the decided qualification for one reference.
type Resolution struct {
	Form Form
	// Name is the identifier text to write (already through
	// LookupOutputID where relevant).
	Name string
	// Unterminated marks a setter/adder/remover rewrite that opens a call
	// without closing the parenthesis, so the enclosing assignment can
	// insert the RHS value and close it (§4.7).
	Unterminated bool
	// PrependSelfArg marks a base-invoke rewrite that must splice self as
	// the invocation's first argument.
	PrependSelfArg bool
}

// Resolver decides reference qualification, consulting the Semantic
// Model and the Scope Engine's current frame stack (for LHS tracking and
// promoted-member membership).
type Resolver struct {
	model      semmodel.Model
	scopeEng   *scope.Engine
	typeFrame  *scope.TypeScopeFrame
}

// New creates a Resolver. typeFrame may be updated by the caller across
// type-declaration boundaries via SetTypeFrame.
func New(model semmodel.Model, scopeEng *scope.Engine) *Resolver {
	return &Resolver{model: model, scopeEng: scopeEng}
}

// SetTypeFrame updates the type scope frame consulted for promoted-member
// lookups (the Declaration Emitter calls this on Push/PopType).
func (r *Resolver) SetTypeFrame(f *scope.TypeScopeFrame) { r.typeFrame = f }

// ResolveBareName implements the "implicit-this fix-up" and "promoted
// member" rules: a bare name referring to an instance member becomes
// self.name; a bare static/const becomes TYPE.name; a bare type parameter
// inside an instance method becomes self.T; a reference to a promoted
// file-level-local symbol stays bare.
func (r *Resolver) ResolveBareName(sym *ast.Symbol, insideInstanceMethod bool) Resolution {
	outputID := r.model.LookupOutputID(sym)

	if scope.IsPromoted(r.typeFrame, sym) {
		return Resolution{Form: FormPromotedBare, Name: outputID}
	}

	switch sym.Kind {
	case ast.SymField, ast.SymProperty, ast.SymEvent, ast.SymMethod:
		if sym.IsStatic {
			return Resolution{Form: FormImplicitStatic, Name: outputID}
		}
		if insideInstanceMethod {
			return Resolution{Form: FormImplicitThis, Name: outputID}
		}
	case ast.SymTypeParameter:
		if insideInstanceMethod {
			return Resolution{Form: FormImplicitTypeParam, Name: outputID}
		}
	}
	return Resolution{Form: FormBare, Name: outputID}
}

// ResolveMemberAccess decides dot-vs-colon dispatch for an ordinary member
// access/invocation on a non-base receiver: instance-method invocation
// uses Lua's colon-send syntax; everything else uses dot.
func (r *Resolver) ResolveMemberAccess(method *ast.MethodSymbol, isInvocation bool) Resolution {
	outputID := r.model.LookupOutputID(&method.Symbol)
	if r.model.IsExtensionMethod(method) || scope.IsPromoted(r.typeFrame, &method.Symbol) {
		return Resolution{Form: FormExtension, Name: outputID}
	}
	if isInvocation && !method.IsStatic {
		return Resolution{Form: FormSend, Name: outputID}
	}
	return Resolution{Form: FormNormal, Name: outputID}
}

// ResolveBaseAccess implements "base.X": when X is an invocable member it
// becomes TYPE.X(self[, args...]); otherwise the receiver is replaced by
// self while keeping the dotted name.
func (r *Resolver) ResolveBaseAccess(sym *ast.Symbol, baseTypeOutputID string, invocable bool) Resolution {
	outputID := r.model.LookupOutputID(sym)
	if invocable {
		return Resolution{Form: FormBaseInvoke, Name: fmt.Sprintf("%s.%s", baseTypeOutputID, outputID), PrependSelfArg: true}
	}
	return Resolution{Form: FormBaseMember, Name: outputID}
}

// AccessorKind names the four synthesized accessor identities the
// Function Emitter and Resolver must name consistently.
type AccessorKind string

const (
	AccessorGet    AccessorKind = "get"
	AccessorSet    AccessorKind = "set"
	AccessorAdd    AccessorKind = "add"
	AccessorRemove AccessorKind = "remove"
	AccessorRaise  AccessorKind = "raise"
)

// AccessorIdentifier returns the emitted accessor method name for a
// property/event member, e.g. get_Count, set_Count.
func AccessorIdentifier(kind AccessorKind, memberOutputID string) string {
	return string(kind) + "_" + memberOutputID
}

// ResolveAccessor rewrites a property/event reference to its resolved
// accessor identifier. A setter/adder/remover resolution is left
// Unterminated: the caller writes it as a colon call, "receiver:NAME(",
// then the RHS expression, then ")".
func (r *Resolver) ResolveAccessor(sym *ast.Symbol, outputID string) Resolution {
	isSetter := r.scopeEng.LHS() != nil && r.scopeEng.LHS().Name == outputID
	switch sym.Kind {
	case ast.SymEvent:
		if isSetter {
			return Resolution{Form: FormAdder, Name: AccessorIdentifier(AccessorAdd, outputID), Unterminated: true}
		}
		return Resolution{Form: FormRaiser, Name: AccessorIdentifier(AccessorRaise, outputID)}
	default: // property or indexer
		if isSetter {
			return Resolution{Form: FormSetter, Name: AccessorIdentifier(AccessorSet, outputID), Unterminated: true}
		}
		return Resolution{Form: FormGetter, Name: AccessorIdentifier(AccessorGet, outputID)}
	}
}

// ResolveGenericSpecialization builds the genericlookup(...) call text for
// a non-open generic name, per §4.7: the runtime obtains (and caches) the
// specialized type from the base id, a mangled key, and the ordered
// (type-parameter-name, type-argument) pairs.
func ResolveGenericSpecialization(baseID, mangled string, typeParamNames []string, typeArgOutputIDs []string) string {
	args := fmt.Sprintf("%q, %q", baseID, mangled)
	for i := range typeParamNames {
		args += fmt.Sprintf(", %q, %s", typeParamNames[i], typeArgOutputIDs[i])
	}
	return fmt.Sprintf("%s(%s)", vocab.RuntimeHelper.GenericLookup, args)
}
