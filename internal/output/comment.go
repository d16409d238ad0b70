package output

import (
	"sort"
	"strings"
)

// CommentKind discriminates how a trivia comment is reformatted.
type CommentKind int

const (
	CommentLine CommentKind = iota
	CommentBlock
	CommentDoc
)

// Comment is one piece of trivia discovered at unit start. The cursor in
// Engine advances through a Comments slice monotonically as emission
// reaches each comment's starting line.
type Comment struct {
	StartLine int
	Kind      CommentKind
	Text      string
}

// SortComments orders trivia by source position, the order newline-to-
// target relies on to interleave them.
func SortComments(cs []Comment) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].StartLine < cs[j].StartLine })
}

// sanitize removes embedded Lua comment terminators from source comment
// text and rewrites embedded ".cs" source extensions to ".lua", per §4.1.
func sanitize(text string) string {
	text = strings.ReplaceAll(text, "]]", "] ]")
	text = strings.ReplaceAll(text, ".cs", ".lua")
	return text
}

// Render reformats one comment into its Lua spelling: multi-line comments
// become bracketed blocks, single-line become "-- ...", doc comments
// become "--- ...".
func (c Comment) Render() string {
	body := sanitize(c.Text)
	switch c.Kind {
	case CommentBlock:
		return "--[[" + body + "]]"
	case CommentDoc:
		return "--- " + body
	default:
		return "-- " + body
	}
}
