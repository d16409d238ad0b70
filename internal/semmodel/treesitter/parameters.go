package treesitter

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/oxhq/cs2lua/internal/ast"
	"github.com/oxhq/cs2lua/internal/semmodel"
)

// buildParameterList builds one KindParameter node per formal parameter,
// declaring each as a local-scope symbol (so a reference inside the body
// resolves via lookupName) and stamping the last parameter with the
// paramsModifier annotation when it carries the source language's
// variadic "params" modifier (function.go's splitParams/emitParamList).
func (b *builder) buildParameterList(n *sitter.Node) []*ast.Node {
	var out []*ast.Node
	count := int(n.NamedChildCount())
	idx := 0
	for i := 0; i < count; i++ {
		p := n.NamedChild(i)
		if p.Type() != "parameter" {
			continue
		}
		out = append(out, b.buildParameter(p, idx == count-1))
		idx++
	}
	return out
}

func (b *builder) buildParameter(p *sitter.Node, isLast bool) *ast.Node {
	name := b.text(p.ChildByFieldName("name"))
	typeName := b.text(p.ChildByFieldName("type"))
	paramTy := b.resolveTypeName(typeName)

	sym := b.declareLocal(name, paramTy)
	sym.Kind = ast.SymParameter

	node := &ast.Node{Kind: ast.KindParameter, Span: b.span(p)}
	b.model.declared[node] = sym
	b.model.types[node] = semmodel.TypeInfo{Type: paramTy}

	if isLast && hasParamsModifier(p, b.src) {
		node.Annotations = map[ast.Annotation]bool{"is_params": true}
	}
	if def := p.ChildByFieldName("default_value"); def != nil {
		if v, ok := constantOf(b, def); ok {
			b.model.constants[node] = semmodel.ConstantInfo{HasValue: true, Value: v}
		}
	}
	return node
}

func hasParamsModifier(p *sitter.Node, src []byte) bool {
	for i := 0; i < int(p.ChildCount()); i++ {
		c := p.Child(i)
		if c.Type() == "params" || (c.Type() == "modifier" && c.Content(src) == "params") {
			return true
		}
	}
	return false
}
