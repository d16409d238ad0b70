// Package vocab holds the target-language (Lua) keyword set, reserved
// identifiers, operator mnemonic table, and runtime-helper sentinel names
// the rest of the compiler references. Nothing here touches the AST; it is
// pure lookup data, the way the teacher's core/contracts.go holds pure
// data structures with no methods.
package vocab

// Keywords is the closed Lua keyword vocabulary from spec §6. Any source
// identifier colliding with one of these must be deduped by the Scope
// Engine before it reaches the Output Engine.
var Keywords = map[string]bool{
	"and": true, "break": true, "do": true, "else": true, "elseif": true,
	"end": true, "false": true, "for": true, "function": true, "goto": true,
	"if": true, "in": true, "local": true, "nil": true, "not": true,
	"or": true, "repeat": true, "return": true, "then": true, "true": true,
	"until": true, "while": true,
}

// ReservedGlobals are host-runtime globals the compiler itself relies on;
// source identifiers that collide with them must also be deduped even
// though they are not Lua keywords.
var ReservedGlobals = map[string]bool{
	"self": true, "class": true, "class_static": true, "interface": true,
	"bind_delegate": true, "cast": true, "castint": true, "is": true,
	"initarr": true, "initlist": true, "genericlookup": true,
	"i32mul": true, "i32truncate": true, "i32mod": true, "try": true,
	"tryfinally": true, "using": true, "error": true, "tostring": true,
	"ipairs": true, "pairs": true, "table": true, "string": true,
	"bit": true, "unpack": true,
}

// SelfIdentifier is the synthesized binding used wherever source code
// references the implicit receiver.
const SelfIdentifier = "self"

// DiscardIdentifier is the synthesized binding used for identifiers proven
// unused by surrounding data-flow.
const DiscardIdentifier = "_"

// ValueParamIdentifier is the conventional name of a synthesized automatic
// accessor's setter/adder/remover argument.
const ValueParamIdentifier = "value"

// NullSentinelHelper names the runtime object substituted for a null
// switch-case key so it can participate in table-key hashing.
const NullSentinelHelper = "__null_key__"

// Operator maps source-language operator spellings to their Lua
// equivalents (§4.1 `write(token)`).
var Operator = map[string]string{
	"&&": "and", "||": "or", "!=": "~=", "!": "not", "==": "==",
	"<": "<", "<=": "<=", ">": ">", ">=": ">=",
	"+": "+", "-": "-", "*": "*", "/": "/", "%": "%", "..": "..",
	"&": "&", "|": "|", "^": "^", "<<": "<<", ">>": ">>",
}

// KeywordLiteral maps source-language literal/pseudo keywords to their
// Lua spellings.
var KeywordLiteral = map[string]string{
	"null": "nil",
	"this": SelfIdentifier,
	"true": "true", "false": "false",
	"string": "string", // target string-library name
}

// RuntimeHelper names the library-provided Lua functions the lowerings in
// §4.6 call into. These are not reserved words by themselves (a user
// identifier could in principle be named "i32mul") but are never generated
// to collide because they only ever appear as call-target literals written
// directly by the Expression Emitter, never resolved through dedup.
var RuntimeHelper = struct {
	I32Narrow, I32Mul, I32Truncate, I32Mod   string
	CastInt, Cast, Is, BindDelegate           string
	InitArr, InitList, GenericLookup          string
	Try, TryFinally, Using                    string
	BitAnd, BitOr, BitXor, BitLShift          string
	BitARShift, BitRShift, BitNot             string
	BoolAnd, BoolOr, BoolXor                  string
	StringAlign                               string
}{
	I32Narrow:     "__i32narrow__",
	I32Mul:        "i32mul",
	I32Truncate:   "i32truncate",
	I32Mod:        "i32mod",
	CastInt:       "castint",
	Cast:          "cast",
	Is:            "is",
	BindDelegate:  "bind_delegate",
	InitArr:       "initarr",
	InitList:      "initlist",
	GenericLookup: "genericlookup",
	Try:           "try",
	TryFinally:    "tryfinally",
	Using:         "using",
	BitAnd:        "bit.band",
	BitOr:         "bit.bor",
	BitXor:        "bit.bxor",
	BitLShift:     "bit.lshift",
	BitARShift:    "bit.arshift",
	BitRShift:     "bit.rshift",
	BitNot:        "bit.bnot",
	BoolAnd:       "boolean_and",
	BoolOr:        "boolean_or",
	BoolXor:       "boolean_xor",
	StringAlign:   "string.align",
}

// IsReserved reports whether name collides with a Lua keyword or a
// compiler-reserved global and therefore must be deduped before emission.
func IsReserved(name string) bool {
	return Keywords[name] || ReservedGlobals[name]
}

// Control-transfer codes: the first return value ("res") of a try/using
// call when a break, continue, or return must propagate past the
// try/tryfinally/using runtime helper to the enclosing loop, switch, or
// function (§4.9). The epilog dispatches on res to re-perform the
// corresponding native Lua control statement.
const (
	CtrlBreak    = 0
	CtrlContinue = 1
	CtrlReturn   = 2
)
