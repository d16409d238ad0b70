// Package scope implements the Scope Engine of spec §4.2: block- and
// type-scope stacks, data-flow-driven identifier dedup, top-level-local
// promotion, and continue-label allocation.
package scope

import (
	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
)

// FrameKind is the closed set of constructs that open a Block Scope Frame.
type FrameKind string

const (
	KindFunction          FrameKind = "function"
	KindLambda            FrameKind = "lambda"
	KindTopLevelChunk     FrameKind = "top_level_chunk"
	KindType              FrameKind = "type"
	KindLoop              FrameKind = "loop"
	KindSwitch            FrameKind = "switch"
	KindTryCatchOrUsing   FrameKind = "try_catch_finally_or_using"
)

// ControlOption is one bit of the control-options bitset accumulated when
// a try/using body references a non-local control transfer (§3).
type ControlOption uint8

const (
	ControlBreak ControlOption = 1 << iota
	ControlContinue
	ControlReturn
)

// Has reports whether opt is set in the receiver bitset.
func (c ControlOption) Has(opt ControlOption) bool { return c&opt != 0 }

// BlockScopeFrame represents one entered lexical region (§3).
type BlockScopeFrame struct {
	Kind FrameKind
	Site *ast.Node

	Flow    semmodel.DataFlowResult
	Globals map[string]bool

	ExtraRead  map[string]bool
	ExtraWrite map[string]bool

	DedupByID     map[string]string     // source id -> emitted id
	DedupBySymbol map[*ast.Symbol]string

	ContinueLabel string

	ControlOptions ControlOption

	LHS *ast.MethodSymbol

	SwitchLabels      map[string]string // case-key literal -> label
	SwitchSections    []*ast.Node
	UtilityGotoLabels map[string]bool
}

func newBlockScopeFrame(kind FrameKind, site *ast.Node) *BlockScopeFrame {
	return &BlockScopeFrame{
		Kind:              kind,
		Site:              site,
		Globals:           map[string]bool{},
		ExtraRead:         map[string]bool{},
		ExtraWrite:        map[string]bool{},
		DedupByID:         map[string]string{},
		DedupBySymbol:     map[*ast.Symbol]string{},
		UtilityGotoLabels: map[string]bool{},
	}
}

// IsLoop reports whether this frame is a loop frame, the only kind that
// can own a continue-label.
func (f *BlockScopeFrame) IsLoop() bool { return f.Kind == KindLoop }

// TypeScopeFrame represents a type declaration in progress (§3).
type TypeScopeFrame struct {
	ContainingType *ast.TypeSymbol
	Globals        map[string]bool
	Site           *ast.Node

	// Promoted maps a declaration node slated for file-level-local
	// promotion to whether it has already been emitted.
	Promoted map[*ast.Node]bool
	// PromotedSymbols is the set of symbols so promoted, used by the
	// Identifier Resolver to decide whether a reference writes bare.
	PromotedSymbols map[*ast.Symbol]bool
}

func newTypeScopeFrame(ty *ast.TypeSymbol, site *ast.Node) *TypeScopeFrame {
	return &TypeScopeFrame{
		ContainingType:  ty,
		Globals:         map[string]bool{},
		Site:            site,
		Promoted:        map[*ast.Node]bool{},
		PromotedSymbols: map[*ast.Symbol]bool{},
	}
}
