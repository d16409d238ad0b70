package treesitter

import "github.com/oxhq/cs2lua/internal/ast"

// builtinTypes maps the source language's primitive keyword spellings to
// the SpecialType the emitter needs for narrowing/nullable decisions.
var builtinTypes = map[string]ast.SpecialType{
	"bool":   ast.SpecialBoolean,
	"byte":   ast.SpecialByte,
	"sbyte":  ast.SpecialSByte,
	"short":  ast.SpecialInt16,
	"int":    ast.SpecialInt32,
	"long":   ast.SpecialInt64,
	"ushort": ast.SpecialUInt16,
	"uint":   ast.SpecialUInt32,
	"ulong":  ast.SpecialUInt64,
	"float":  ast.SpecialSingle,
	"double": ast.SpecialDouble,
	"object": ast.SpecialObject,
	"string": ast.SpecialString,
}

// builtinTypeSymbol returns (and caches) a TypeSymbol for a primitive
// keyword name, or nil if name isn't one.
func (b *builder) builtinTypeSymbol(name string) *ast.TypeSymbol {
	special, ok := builtinTypes[name]
	if !ok {
		return nil
	}
	if ty, ok := b.builtinCache[name]; ok {
		return ty
	}
	ty := &ast.TypeSymbol{
		Symbol:      ast.Symbol{Name: name, Kind: ast.SymNamedType},
		Special:     special,
		TypeKindTag: TypeKindForBuiltin(name),
	}
	b.builtinCache[name] = ty
	return ty
}

// TypeKindForBuiltin returns the TypeKind a builtin's keyword implies.
// Every source primitive is a struct in the host type system except the
// two reference builtins string and object.
func TypeKindForBuiltin(name string) ast.TypeKind {
	switch name {
	case "string", "object":
		return ast.TypeClass
	default:
		return ast.TypeStruct
	}
}

// resolveTypeName looks up a (possibly dotted, possibly array/generic)
// type reference string against builtins first, then this file's declared
// types, synthesizing an external placeholder TypeSymbol otherwise (§6:
// types the unit doesn't declare, e.g. List<T> or a BCL type, still need a
// TypeSymbol for the emitter to name).
func (b *builder) resolveTypeName(name string) *ast.TypeSymbol {
	if ty := b.builtinTypeSymbol(name); ty != nil {
		return ty
	}
	if ty, ok := b.types[name]; ok {
		return ty
	}
	if ty, ok := b.externalCache[name]; ok {
		return ty
	}
	ty := &ast.TypeSymbol{
		Symbol:      ast.Symbol{Name: name, Kind: ast.SymNamedType},
		TypeKindTag: ast.TypeClass,
	}
	b.externalCache[name] = ty
	return ty
}
