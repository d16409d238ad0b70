// Package emit implements the AST-directed emitter of spec §4.4–§4.9: one
// set of visit functions per syntactic category (declarations, functions,
// statements, loops, expressions), all sharing one Context — a single
// owned state bundle (§9), never a global.
package emit

import (
	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/cache"
	"github.com/oxhq/cs2lua/internal/constraints"
	"github.com/oxhq/cs2lua/internal/identresolve"
	"github.com/oxhq/cs2lua/internal/output"
	"github.com/oxhq/cs2lua/internal/scope"
	"github.com/oxhq/cs2lua/internal/semmodel"
)

// Context bundles the emitter's entire mutable state for one compilation
// unit: the Semantic Model (read-only), the Scope Engine, the Output
// Engine, the Identifier Resolver, and the Constraint Checker. One
// Context is owned by one traversal; there is no re-entrancy across units
// (§5).
type Context struct {
	Model    semmodel.Model
	Scope    *scope.Engine
	Out      *output.Engine
	Resolver *identresolve.Resolver
	Checker  *constraints.Checker

	// CondCompSymbols are the conditional-compilation symbols active for
	// this unit (from #define directives and driver configuration, §6).
	CondCompSymbols map[string]bool

	// Cache memoizes generic-specialization lookup text across units
	// sharing one process (§5). Nil is valid: generic object creation
	// falls back to recomputing the genericlookup(...) call every time.
	Cache *cache.Cache

	// insideInstanceMethod tracks whether the current function frame is
	// an instance member, used by the Identifier Resolver's implicit-this
	// fix-up.
	insideInstanceMethod bool

	// variadicParam is the symbol of the current function's params-
	// decorated final parameter, if it has one; a bare reference to it is
	// rewritten to the target language's variadic token "..." (§4.5).
	variadicParam *ast.Symbol
}

// SetVariadicParam updates the current function's variadic-parameter
// symbol for nested visits; callers restore the previous value when
// leaving the function.
func (c *Context) SetVariadicParam(sym *ast.Symbol) (restore func()) {
	prev := c.variadicParam
	c.variadicParam = sym
	return func() { c.variadicParam = prev }
}

// VariadicParam returns the current function's variadic-parameter symbol,
// or nil if it has none.
func (c *Context) VariadicParam() *ast.Symbol { return c.variadicParam }

// WithCache attaches a process-wide specialization cache, returning c for
// chaining. Called once by the driver after NewContext, before the unit's
// traversal begins.
func (c *Context) WithCache(ch *cache.Cache) *Context {
	c.Cache = ch
	return c
}

// NewContext creates a Context wired to model, sharing one Scope Engine,
// Output Engine, and Resolver across every visit call in the traversal.
func NewContext(model semmodel.Model, out *output.Engine, condComp map[string]bool) *Context {
	scopeEng := scope.New(model)
	return &Context{
		Model:           model,
		Scope:           scopeEng,
		Out:             out,
		Resolver:        identresolve.New(model, scopeEng),
		Checker:         constraints.New(model),
		CondCompSymbols: condComp,
	}
}

// SetInsideInstanceMethod updates the implicit-this context for nested
// visits; callers restore the previous value when leaving the function.
func (c *Context) SetInsideInstanceMethod(v bool) (restore func()) {
	prev := c.insideInstanceMethod
	c.insideInstanceMethod = v
	return func() { c.insideInstanceMethod = prev }
}

// InsideInstanceMethod reports whether the current visit is inside an
// instance member body.
func (c *Context) InsideInstanceMethod() bool { return c.insideInstanceMethod }
