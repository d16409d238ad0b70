package ast

// SymbolKind is the closed set of name identities the semantic model can
// resolve a reference to.
type SymbolKind string

const (
	SymNamespace     SymbolKind = "namespace"
	SymNamedType     SymbolKind = "named_type"
	SymMethod        SymbolKind = "method"
	SymField         SymbolKind = "field"
	SymProperty      SymbolKind = "property"
	SymEvent         SymbolKind = "event"
	SymParameter     SymbolKind = "parameter"
	SymLocal         SymbolKind = "local"
	SymLabel         SymbolKind = "label"
	SymTypeParameter SymbolKind = "type_parameter"
	SymDiscard       SymbolKind = "discard"
	SymAlias         SymbolKind = "alias"
)

// Accessibility mirrors the source-language visibility modifiers that
// affect promotion eligibility (§4.2) and dispatch form (§4.7).
type Accessibility string

const (
	AccessPrivate   Accessibility = "private"
	AccessProtected Accessibility = "protected"
	AccessInternal  Accessibility = "internal"
	AccessPublic    Accessibility = "public"
)

// Symbol is the resolved identity of a name reference.
type Symbol struct {
	ID            string // opaque, interned by the semantic model
	Name          string
	Kind          SymbolKind
	ContainingTy  *TypeSymbol
	ContainingNS  string
	IsStatic      bool
	Access        Accessibility
	Attributes    map[string]string
	GenericArity  int
	Overrides     *Symbol
	Implements    []*Symbol
}

// SpecialType tags a TypeSymbol as one of the host language's built-in
// numeric/reference shapes, or None for ordinary declared types.
type SpecialType string

const (
	SpecialNone    SpecialType = ""
	SpecialBoolean SpecialType = "bool"
	SpecialByte    SpecialType = "byte"
	SpecialSByte   SpecialType = "sbyte"
	SpecialInt16   SpecialType = "int16"
	SpecialInt32   SpecialType = "int32"
	SpecialInt64   SpecialType = "int64"
	SpecialUInt16  SpecialType = "uint16"
	SpecialUInt32  SpecialType = "uint32"
	SpecialUInt64  SpecialType = "uint64"
	SpecialSingle  SpecialType = "single"
	SpecialDouble  SpecialType = "double"
	SpecialObject  SpecialType = "object"
	SpecialString  SpecialType = "string"
	SpecialDelegate SpecialType = "delegate"
	SpecialNullableT SpecialType = "nullable_t"
	SpecialArray   SpecialType = "array"
)

// TypeKind classifies the shape of a TypeSymbol.
type TypeKind string

const (
	TypeClass         TypeKind = "class"
	TypeInterface     TypeKind = "interface"
	TypeStruct        TypeKind = "struct"
	TypeEnum          TypeKind = "enum"
	TypeDelegate      TypeKind = "delegate"
	TypeParameterKind TypeKind = "type_parameter"
	TypeArray         TypeKind = "array"
	TypeError         TypeKind = "error"
	TypeDynamic       TypeKind = "dynamic"
)

// TypeSymbol extends Symbol with the shape information the emitter needs
// for lowering decisions (integer narrowing, nullable handling, array
// rebase, cast strategy).
type TypeSymbol struct {
	Symbol
	Special        SpecialType
	TypeKindTag    TypeKind
	ElementType    *TypeSymbol // for TypeArray
	IsPartial      bool
	IsNested       bool
	IsStaticClass  bool
	BaseType       *TypeSymbol
	Interfaces     []*TypeSymbol
	DeclaringRefs  []Span // empty for system built-ins
}

// Is32BitInt reports whether the special type participates in the 32-bit
// overflow-narrowing lowering of §4.6.
func (t *TypeSymbol) Is32BitInt() bool {
	if t == nil {
		return false
	}
	return t.Special == SpecialInt32 || t.Special == SpecialUInt32
}

// MethodKind is the closed set of method shapes the Function Emitter must
// discriminate between.
type MethodKind string

const (
	MethodConstructor          MethodKind = "constructor"
	MethodDestructor            MethodKind = "destructor"
	MethodOrdinary              MethodKind = "ordinary"
	MethodPropertyGet           MethodKind = "property_get"
	MethodPropertySet           MethodKind = "property_set"
	MethodEventAdd              MethodKind = "event_add"
	MethodEventRaise            MethodKind = "event_raise"
	MethodEventRemove           MethodKind = "event_remove"
	MethodUserOperator          MethodKind = "user_operator"
	MethodBuiltinOperator       MethodKind = "builtin_operator"
	MethodDelegateInvoke        MethodKind = "delegate_invoke"
	MethodReducedExtension      MethodKind = "reduced_extension"
	MethodAnonymousFunction     MethodKind = "anonymous_function"
	MethodLocalFunction         MethodKind = "local_function"
	MethodStaticConstructor     MethodKind = "static_constructor"
	MethodExplicitInterfaceImpl MethodKind = "explicit_interface_impl"
)

// Parameter describes one formal parameter of a MethodSymbol.
type Parameter struct {
	Name               string
	Type               *TypeSymbol
	Optional           bool
	HasExplicitDefault bool
	DefaultValue       any
	IsParams           bool
}

// MethodSymbol extends Symbol with method-shape attributes.
type MethodSymbol struct {
	Symbol
	MethodKindTag   MethodKind
	Parameters      []Parameter
	TypeParameters  []*TypeSymbol
	ReturnType      *TypeSymbol
	IsGenericDef    bool
	IsExtension     bool
	IsPure          bool
}

// LastParamIsVariadic reports whether the final parameter is params-
// decorated and should become the target language's variadic marker.
func (m *MethodSymbol) LastParamIsVariadic() bool {
	if m == nil || len(m.Parameters) == 0 {
		return false
	}
	return m.Parameters[len(m.Parameters)-1].IsParams
}
