package scope

import (
	"fmt"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/compilererr"
	"github.com/oxhq/cs2lua/internal/semmodel"
	"github.com/oxhq/cs2lua/internal/vocab"
)

// Engine owns the block-scope and type-scope stacks for one emitter
// traversal. It is not safe for concurrent use; each compilation unit owns
// its own Engine (§5).
type Engine struct {
	model  semmodel.Model
	blocks []*BlockScopeFrame
	types  []*TypeScopeFrame
}

// New creates an Engine backed by model.
func New(model semmodel.Model) *Engine {
	return &Engine{model: model}
}

// Depth returns the current block-scope stack depth, used by callers to
// assert the §8 invariant that push/pop are balanced at unit start/end.
func (e *Engine) Depth() int { return len(e.blocks) }

// TypeDepth returns the current type-scope stack depth.
func (e *Engine) TypeDepth() int { return len(e.types) }

// Current returns the innermost block scope frame, or nil if none is
// pushed.
func (e *Engine) Current() *BlockScopeFrame {
	if len(e.blocks) == 0 {
		return nil
	}
	return e.blocks[len(e.blocks)-1]
}

// CurrentType returns the innermost type scope frame, or nil if none is
// pushed.
func (e *Engine) CurrentType() *TypeScopeFrame {
	if len(e.types) == 0 {
		return nil
	}
	return e.types[len(e.types)-1]
}

// PushCtorArgs carries the constructor-specific inputs Push needs to
// compute extra-read/extra-write (§4.2 step 2).
type PushCtorArgs struct {
	IsConstructor    bool
	BaseOrThisArgs   []*ast.Node // arguments of the base/this initializer
	HasBaseCall      bool
	BodyTopLevelStmt []*ast.Node // immediate-child expression statements of the body
}

// Push enters a construct of kind K at node site, following the five-step
// protocol of §4.2: compute globals, compute extra-read/extra-write for
// constructors, query data-flow, push the frame, and run dedup-top (plus,
// for Function/Lambda/TopLevelChunk frames, dedup descendant labels).
func (e *Engine) Push(kind FrameKind, site *ast.Node, ctor PushCtorArgs, labels []string) (*BlockScopeFrame, error) {
	frame := newBlockScopeFrame(kind, site)

	for _, sym := range e.model.LookupNamespacesAndTypes(site.Span) {
		frame.Globals[sym.Name] = true
	}
	for _, t := range e.types {
		for sym := range t.PromotedSymbols {
			frame.Globals[sym.Name] = true
		}
	}

	if ctor.IsConstructor {
		for _, arg := range ctor.BaseOrThisArgs {
			for name := range readsIn(e.model, arg) {
				frame.ExtraRead[name] = true
			}
		}
		if !ctor.HasBaseCall {
			for _, stmt := range ctor.BodyTopLevelStmt {
				for name := range writesIn(e.model, stmt) {
					frame.ExtraWrite[name] = true
				}
			}
		}
	}

	flow, err := e.model.AnalyzeDataFlow(site)
	if err != nil || !flow.Succeeded {
		return nil, compilererr.Compilation(site, compilererr.ErrDataFlowFailure, "data-flow analysis failed for %s", kind)
	}
	frame.Flow = flow

	e.blocks = append(e.blocks, frame)

	if err := e.dedupTop(frame); err != nil {
		return nil, err
	}

	if kind == KindFunction || kind == KindLambda || kind == KindTopLevelChunk {
		for _, label := range labels {
			e.dedupLabel(frame, label)
		}
	}

	return frame, nil
}

// Pop leaves the innermost block scope. It returns a compilererr.Internal
// diagnostic if the stack is empty or the popped frame's kind does not
// match expected, enforcing §5's "popping an unexpected frame kind or
// depth is a compiler-internal error."
func (e *Engine) Pop(expected FrameKind) (*BlockScopeFrame, error) {
	if len(e.blocks) == 0 {
		return nil, compilererr.Internal(nil, compilererr.ErrWrongFrameKind, "Pop called on empty block-scope stack")
	}
	top := e.blocks[len(e.blocks)-1]
	if top.Kind != expected {
		return nil, compilererr.Internal(top.Site, compilererr.ErrWrongFrameKind,
			"expected to pop %s frame but top is %s", expected, top.Kind)
	}
	e.blocks = e.blocks[:len(e.blocks)-1]
	return top, nil
}

// PushType enters a type declaration, snapshotting the globals visible at
// its site.
func (e *Engine) PushType(ty *ast.TypeSymbol, site *ast.Node) *TypeScopeFrame {
	frame := newTypeScopeFrame(ty, site)
	for _, sym := range e.model.LookupNamespacesAndTypes(site.Span) {
		frame.Globals[sym.Name] = true
	}
	e.types = append(e.types, frame)
	return frame
}

// PopType leaves the current type declaration.
func (e *Engine) PopType() (*TypeScopeFrame, error) {
	if len(e.types) == 0 {
		return nil, compilererr.Internal(nil, compilererr.ErrWrongFrameKind, "PopType called on empty type-scope stack")
	}
	top := e.types[len(e.types)-1]
	e.types = e.types[:len(e.types)-1]
	return top, nil
}

// dedupTop implements §4.2 "Dedup-top": for each declared/flows-in
// symbol, check collision against the current frame's dedup maps, its
// globals, and the target-language reserved words; allocate the smallest
// non-colliding suffixed name if needed.
func (e *Engine) dedupTop(frame *BlockScopeFrame) error {
	candidates := append(append([]*ast.Symbol{}, frame.Flow.VariablesDeclared...), frame.Flow.DataFlowsIn...)
	for _, sym := range candidates {
		name := e.model.LookupOutputID(sym)
		id, err := e.allocate(frame, name)
		if err != nil {
			return compilererr.Internal(frame.Site, err, "dedup failed for %q", name)
		}
		frame.DedupByID[name] = id
		frame.DedupBySymbol[sym] = id
	}
	return nil
}

// allocate returns the smallest non-colliding identifier derived from
// base, picking "base", "base0", "base1", ... (§3 invariant 5). Collision
// is checked against every frame on the stack (not just the top), the
// current frame's globals, and the reserved vocabulary.
func (e *Engine) allocate(frame *BlockScopeFrame, base string) (string, error) {
	if !e.collides(frame, base) {
		return base, nil
	}
	for i := 0; i < 1<<20; i++ {
		candidate := fmt.Sprintf("%s%d", base, i)
		if !e.collides(frame, candidate) {
			return candidate, nil
		}
	}
	return "", compilererr.ErrDedupImpossible
}

func (e *Engine) collides(frame *BlockScopeFrame, name string) bool {
	if vocab.IsReserved(name) {
		return true
	}
	if frame.Globals[name] {
		return true
	}
	for _, b := range e.blocks {
		for _, v := range b.DedupByID {
			if v == name {
				return true
			}
		}
		if b.UtilityGotoLabels[name] {
			return true
		}
	}
	return false
}

// dedupLabel allocates a non-colliding name for a labelled statement's
// label and records it on frame's utility-goto-labels so later allocation
// (e.g. continue-labels) avoids it.
func (e *Engine) dedupLabel(frame *BlockScopeFrame, label string) string {
	id, _ := e.allocate(frame, label)
	frame.UtilityGotoLabels[id] = true
	return id
}

// AllocateContinueLabel implements §4.2's continue-label allocation: on
// first encountering a continue inside a loop frame, walk outward to the
// nearest loop; if it has no continue-label yet, allocate one of the form
// "continue", "continue0", "continue1", ... deduped against labels already
// defined in the containing function frame.
func (e *Engine) AllocateContinueLabel() (string, error) {
	loop := e.nearestLoop()
	if loop == nil {
		return "", compilererr.Internal(nil, compilererr.ErrWrongFrameKind, "continue outside any loop frame")
	}
	if loop.ContinueLabel != "" {
		return loop.ContinueLabel, nil
	}
	fn := e.nearestFunction()
	label, err := e.allocate(fn, "continue")
	if err != nil {
		return "", err
	}
	loop.ContinueLabel = label
	if fn != nil {
		fn.UtilityGotoLabels[label] = true
	}
	return label, nil
}

func (e *Engine) nearestLoop() *BlockScopeFrame {
	for i := len(e.blocks) - 1; i >= 0; i-- {
		if e.blocks[i].Kind == KindLoop {
			return e.blocks[i]
		}
	}
	return nil
}

// NearestSwitch returns the innermost open switch frame, or nil if none is
// open. The Statement Emitter uses this to resolve a goto-case target's
// label (§4.9's "switch as goto" lowering).
func (e *Engine) NearestSwitch() *BlockScopeFrame {
	for i := len(e.blocks) - 1; i >= 0; i-- {
		if e.blocks[i].Kind == KindSwitch {
			return e.blocks[i]
		}
	}
	return nil
}

func (e *Engine) nearestFunction() *BlockScopeFrame {
	for i := len(e.blocks) - 1; i >= 0; i-- {
		k := e.blocks[i].Kind
		if k == KindFunction || k == KindLambda || k == KindTopLevelChunk {
			return e.blocks[i]
		}
	}
	if len(e.blocks) > 0 {
		return e.blocks[0]
	}
	return nil
}

// LHS returns the assignment-target method currently in effect, searching
// outward across frames (it is set by the Expression Emitter's
// emitAccessorAssignment before the accessor is resolved, and cleared
// again before the right-hand side is emitted).
func (e *Engine) LHS() *ast.MethodSymbol {
	for i := len(e.blocks) - 1; i >= 0; i-- {
		if e.blocks[i].LHS != nil {
			return e.blocks[i].LHS
		}
	}
	return nil
}

// SetLHS sets the LHS method on the innermost frame.
func (e *Engine) SetLHS(m *ast.MethodSymbol) {
	if cur := e.Current(); cur != nil {
		cur.LHS = m
	}
}

// AddControlOption records that the current try/using frame's body
// referenced a non-local control transfer, walking outward to the nearest
// TryCatchFinallyOrUsing frame.
func (e *Engine) AddControlOption(opt ControlOption) {
	for i := len(e.blocks) - 1; i >= 0; i-- {
		if e.blocks[i].Kind == KindTryCatchOrUsing {
			e.blocks[i].ControlOptions |= opt
			return
		}
	}
}

// CrossesTryOrUsing reports whether a break/continue/return targeting the
// nearest enclosing loop/switch/function must cross a try/using frame
// first (§4.9's "has not been crossed on the way out").
func (e *Engine) CrossesTryOrUsing(stopAt FrameKind) bool {
	for i := len(e.blocks) - 1; i >= 0; i-- {
		k := e.blocks[i].Kind
		if k == KindTryCatchOrUsing {
			return true
		}
		if k == stopAt {
			return false
		}
	}
	return false
}

func readsIn(model semmodel.Model, node *ast.Node) map[string]bool {
	out := map[string]bool{}
	flow, err := model.AnalyzeDataFlow(node)
	if err == nil {
		for _, s := range flow.ReadInside {
			out[s.Name] = true
		}
	}
	return out
}

func writesIn(model semmodel.Model, node *ast.Node) map[string]bool {
	out := map[string]bool{}
	flow, err := model.AnalyzeDataFlow(node)
	if err == nil {
		for _, s := range flow.WrittenInside {
			out[s.Name] = true
		}
	}
	return out
}
