// Package compilererr implements the error taxonomy of spec §7: every
// failure the emitter raises is one of unsupported-node, compilation-error,
// or internal-error, always carrying the offending source span.
package compilererr

import (
	"errors"
	"fmt"

	"github.com/oxhq/cs2lua/internal/ast"
)

// Sentinel errors for programmatic checking with errors.Is, mirrored on
// the teacher's model.Err* set.
var (
	ErrDataFlowFailure  = errors.New("data-flow analysis failed")
	ErrDedupImpossible  = errors.New("could not allocate a non-colliding identifier")
	ErrNoDefaultCtor    = errors.New("no default constructor target for base call")
	ErrLineDrift        = errors.New("output line drifted under a fixed-line guard")
	ErrWrongFrameKind   = errors.New("popped a scope frame of unexpected kind")
	ErrUnbalancedFrames = errors.New("scope stack depth mismatch at unit end")
)

// Code is the machine-readable category for a Diagnostic, mirroring the
// teacher's ErrorCode enum.
type Code string

const (
	CodeUnsupportedNode   Code = "UNSUPPORTED_NODE"
	CodeCompilationError  Code = "COMPILATION_ERROR"
	CodeInternalError     Code = "INTERNAL_ERROR"
)

// Diagnostic is the error type every core package returns. It always
// carries the offending node (to recover line/column) and a precise
// message; drivers render file:line:column-prefixed text from it.
type Diagnostic struct {
	Code    Code
	Node    *ast.Node
	Message string
	Cause   error
}

func (d *Diagnostic) Error() string {
	line := 0
	col := 0
	if d.Node != nil {
		line = d.Node.Span.StartLine
		col = d.Node.Span.StartCol
	}
	if d.Cause != nil {
		return fmt.Sprintf("%d:%d: %s: %s: %v", line, col, d.Code, d.Message, d.Cause)
	}
	return fmt.Sprintf("%d:%d: %s: %s", line, col, d.Code, d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.Cause }

// Unsupported reports an accepted-kind node whose content falls outside
// the supported subset (§4.3).
func Unsupported(node *ast.Node, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: CodeUnsupportedNode, Node: node, Message: fmt.Sprintf(format, args...)}
}

// Compilation reports a structural or semantic error not tied to a single
// node, wrapping one of the sentinel errors above.
func Compilation(node *ast.Node, cause error, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: CodeCompilationError, Node: node, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Internal reports an invariant violation: a compiler bug, not a property
// of the input.
func Internal(node *ast.Node, cause error, format string, args ...any) *Diagnostic {
	return &Diagnostic{Code: CodeInternalError, Node: node, Message: fmt.Sprintf(format, args...), Cause: cause}
}
