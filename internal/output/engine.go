// Package output implements the Output Engine of spec §4.1: byte-level
// emission with line/column tracking, an indentation stack, comment
// interleaving, a fixed-line guard, and an output-lock guard for dry-run
// traversals. Nothing here understands the source language; it only knows
// how to place bytes and keep the invariants of §3 (line number never
// exceeds the node being visited, except under fixed-line).
package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/compilererr"
	"github.com/oxhq/cs2lua/internal/vocab"
)

// indentFrame is one entry of the indentation stack (§4.1 State).
type indentFrame struct {
	Level                int // tab count
	Additional           int // extra spaces beyond the tabs
	InStatement          bool
	WantsIndentStatement bool
	DidIndentStatement   bool
}

// Engine is the Output Engine. One Engine is owned exclusively by one
// emitter traversal (§5): there is no re-entrancy across compilation units.
type Engine struct {
	sink        io.Writer
	line        int
	atLineStart bool
	col         int
	lastChar    byte
	lastChar2   byte

	indentStack []indentFrame
	baseDepth   int // stack depth captured at the previous newline

	comments      []Comment
	commentCursor int

	fixedLineDepth  int
	outputLockDepth int
	constSuppress   int
	commentSuppress int
}

// New creates an Engine writing to sink, starting at line 1 with the given
// trivia comments (already sorted by SortComments, or sorted here).
func New(sink io.Writer, comments []Comment) *Engine {
	cs := append([]Comment(nil), comments...)
	SortComments(cs)
	return &Engine{
		sink:        sink,
		line:        1,
		atLineStart: true,
		indentStack: []indentFrame{{}},
		comments:    cs,
	}
}

// Line returns the current output line number.
func (e *Engine) Line() int { return e.line }

// PushIndent enters a new indentation level, adding one tab and extra
// spaces relative to the current top frame.
func (e *Engine) PushIndent(extraSpaces int) {
	top := e.indentStack[len(e.indentStack)-1]
	e.indentStack = append(e.indentStack, indentFrame{
		Level:      top.Level + 1,
		Additional: top.Additional + extraSpaces,
	})
}

// PopIndent leaves the current indentation level. Popping the root frame
// is an internal error: it indicates an unbalanced Push/Pop pair.
func (e *Engine) PopIndent() error {
	if len(e.indentStack) <= 1 {
		return compilererr.Internal(nil, compilererr.ErrWrongFrameKind, "PopIndent called with no pushed indent frame")
	}
	e.indentStack = e.indentStack[:len(e.indentStack)-1]
	return nil
}

func (e *Engine) top() *indentFrame { return &e.indentStack[len(e.indentStack)-1] }

// BeginStatement marks the current indent frame as being inside a
// statement, used by newline-suppression logic in the Statement Emitter.
func (e *Engine) BeginStatement() { e.top().InStatement = true }

// EndStatement clears the in-statement flag for the current frame.
func (e *Engine) EndStatement() { e.top().InStatement = false }

// InStatement reports whether the current indent frame is mid-statement.
func (e *Engine) InStatement() bool { return e.top().InStatement }

func (e *Engine) flushIndentIfLineStart() {
	if !e.atLineStart {
		return
	}
	top := e.top()
	if top.Level > 0 {
		e.writeRaw(strings.Repeat("\t", top.Level))
	}
	if top.Additional > 0 {
		e.writeRaw(strings.Repeat(" ", top.Additional))
	}
	e.atLineStart = false
}

func (e *Engine) writeRaw(s string) {
	if s == "" {
		return
	}
	io.WriteString(e.sink, s)
	for i := 0; i < len(s); i++ {
		e.lastChar2 = e.lastChar
		e.lastChar = s[i]
	}
	e.col += len(s)
}

// Write emits s verbatim (after flushing pending indentation), unless
// output is locked. Output-lock is used for dry-run traversals whose only
// purpose is to populate control-options (§4.9).
func (e *Engine) Write(s string) {
	if e.outputLockDepth > 0 || s == "" {
		return
	}
	e.flushIndentIfLineStart()
	e.writeRaw(s)
}

// LastChar returns the most recently written byte (0 if none yet).
func (e *Engine) LastChar() byte { return e.lastChar }

// LastChar2 returns the byte written before LastChar.
func (e *Engine) LastChar2() byte { return e.lastChar2 }

// Newline emits the platform newline and advances the line counter, unless
// a fixed-line guard is active (in which case the request is silently
// dropped, per §4.1). It clips the indentation stack back to the depth
// captured at the previous newline, carrying that one frame forward with
// its statement flags reset.
func (e *Engine) Newline() {
	if e.fixedLineDepth > 0 {
		return
	}
	if e.outputLockDepth == 0 {
		io.WriteString(e.sink, "\n")
	}
	e.line++
	e.atLineStart = true
	e.col = 0
	e.lastChar2 = e.lastChar
	e.lastChar = '\n'

	if e.baseDepth < len(e.indentStack) {
		carried := e.indentStack[e.baseDepth]
		carried.InStatement = false
		carried.WantsIndentStatement = false
		carried.DidIndentStatement = false
		e.indentStack = append(e.indentStack[:e.baseDepth], carried)
	}
	e.baseDepth = len(e.indentStack) - 1
}

// pendingCommentsUpTo drains and renders comments whose span starts on
// line, advancing the cursor monotonically.
func (e *Engine) pendingCommentsUpTo(line int) []Comment {
	var out []Comment
	for e.commentCursor < len(e.comments) && e.comments[e.commentCursor].StartLine == line {
		out = append(out, e.comments[e.commentCursor])
		e.commentCursor++
	}
	return out
}

// NewlineToTarget repeatedly emits pending comments whose span starts on
// the current line, then emits newlines until the engine reaches line.
// Comments already behind the current line (interior comments requested
// at an already-advanced line) are silently skipped, per §7's recovery
// rule: "unreachable-seeming branches ... are silently ignored."
func (e *Engine) NewlineToTarget(line int) {
	if e.fixedLineDepth > 0 {
		return
	}
	for e.line < line {
		if e.commentSuppress == 0 {
			for _, c := range e.pendingCommentsUpTo(e.line) {
				e.Write(c.Render())
				e.Newline()
			}
		} else {
			e.commentCursor = advanceCursorPast(e.comments, e.commentCursor, e.line)
		}
		if e.line >= line {
			break
		}
		e.Newline()
	}
	// Drop any comments whose start line has already been passed.
	e.commentCursor = advanceCursorPast(e.comments, e.commentCursor, e.line)
}

func advanceCursorPast(cs []Comment, cursor, line int) int {
	for cursor < len(cs) && cs[cursor].StartLine <= line {
		cursor++
	}
	return cursor
}

// SuppressComments returns a restore function; while suppressed the
// comment cursor still advances (so comments are not re-emitted later)
// but nothing is written for them.
func (e *Engine) SuppressComments() func() {
	e.commentSuppress++
	return func() { e.commentSuppress-- }
}

// SeparateForFirst aligns output to span's start line; if output has
// already reached or passed that line it emits a single space instead, and
// if blockAlreadyDelimited is set (the parent already opened the
// delimiter for this block) it emits nothing.
func (e *Engine) SeparateForFirst(span ast.Span, blockAlreadyDelimited bool) {
	if blockAlreadyDelimited {
		return
	}
	if span.StartLine > e.line {
		e.NewlineToTarget(span.StartLine)
		return
	}
	e.Write(" ")
}

// SeparateForLast is the symmetric operation for a node's end line.
func (e *Engine) SeparateForLast(span ast.Span, blockAlreadyDelimited bool) {
	if blockAlreadyDelimited {
		return
	}
	if span.EndLine > e.line {
		e.NewlineToTarget(span.EndLine)
		return
	}
	e.Write(" ")
}

// WriteToken writes a keyword/operator/identifier token, mapping it
// through the target-language vocabulary. When checkUnused is set and
// isUnused reports true, the identifier is rewritten to the discard
// binding instead of its source spelling.
func (e *Engine) WriteToken(tok string, checkUnused bool, isUnused func() bool) {
	if checkUnused && isUnused != nil && isUnused() {
		e.Write(vocab.DiscardIdentifier)
		return
	}
	if mapped, ok := vocab.Operator[tok]; ok {
		e.Write(mapped)
		return
	}
	if mapped, ok := vocab.KeywordLiteral[tok]; ok {
		e.Write(mapped)
		return
	}
	e.Write(tok)
}

// WriteConstant writes a literal value culture-invariantly: strings become
// quoted literals using the smaller-quote rule, booleans/nil map to their
// Lua spellings, numbers pass through via strconv (never locale-dependent
// formatting).
func (e *Engine) WriteConstant(value any) {
	if e.constSuppress > 0 {
		return
	}
	switch v := value.(type) {
	case nil:
		e.Write("nil")
	case bool:
		if v {
			e.Write("true")
		} else {
			e.Write("false")
		}
	case string:
		e.Write(QuoteString(v))
	case rune:
		e.Write(strconv.FormatInt(int64(v), 10))
	case int:
		e.Write(strconv.FormatInt(int64(v), 10))
	case int32:
		e.Write(strconv.FormatInt(int64(v), 10))
	case int64:
		e.Write(strconv.FormatInt(v, 10))
	case uint32:
		e.Write(strconv.FormatUint(uint64(v), 10))
	case uint64:
		e.Write(strconv.FormatUint(v, 10))
	case float32:
		e.Write(strconv.FormatFloat(float64(v), 'g', -1, 32))
	case float64:
		e.Write(strconv.FormatFloat(v, 'g', -1, 64))
	default:
		e.Write(fmt.Sprintf("%v", v))
	}
}

// QuoteString escapes s using the smaller-quote rule: double-quotes if s
// contains a single quote (and no double quote needing priority), else
// single-quotes, matching the convention of minimizing in-string escapes.
func QuoteString(s string) string {
	hasSingle := strings.ContainsRune(s, '\'')
	hasDouble := strings.ContainsRune(s, '"')
	quote := byte('\'')
	if hasSingle && !hasDouble {
		quote = '"'
	}
	var b strings.Builder
	b.WriteByte(quote)
	for _, r := range s {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case rune(quote):
			b.WriteByte('\\')
			b.WriteByte(quote)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte(quote)
	return b.String()
}

// FixedLine runs fn under a guard that disables line-advancing for its
// body, and asserts on exit that the current line still equals the line
// captured on entry. The release is guaranteed on every exit path,
// including panics propagating out of fn, matching §5's scoped-acquisition
// guarantee.
func (e *Engine) FixedLine(fn func() error) (err error) {
	e.fixedLineDepth++
	captured := e.line
	defer func() {
		e.fixedLineDepth--
		if e.fixedLineDepth == 0 && e.line != captured && err == nil {
			err = compilererr.Internal(nil, compilererr.ErrLineDrift,
				"fixed-line guard captured line %d but line is now %d", captured, e.line)
		}
	}()
	err = fn()
	return err
}

// OutputLock runs fn with all byte emission suppressed; used for dry-run
// traversals that only need to populate control-options (§4.9).
func (e *Engine) OutputLock(fn func() error) error {
	e.outputLockDepth++
	defer func() { e.outputLockDepth-- }()
	return fn()
}

// Locked reports whether output is currently suppressed by an OutputLock.
func (e *Engine) Locked() bool { return e.outputLockDepth > 0 }
