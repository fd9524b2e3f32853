package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	rust "github.com/tree-sitter/tree-sitter-rust/bindings/go"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// NewRustParser creates the Rust adapter.
func NewRustParser() Parser {
	return &treeSitterParser{
		lang:       "rust",
		language:   sitter.NewLanguage(rust.Language()),
		nameFields: []string{"name", "pattern", "alias"},
		kinds: map[string]parsetree.NodeKind{
			"mod_item":                parsetree.KindModule,
			"function_item":           parsetree.KindFunction,
			"function_signature_item": parsetree.KindFunction,
			"struct_item":             parsetree.KindStruct,
			"enum_item":               parsetree.KindEnum,
			"trait_item":              parsetree.KindInterface,
			"impl_item":               parsetree.KindImpl,
			"type_item":               parsetree.KindTypeAlias,
			"const_item":              parsetree.KindConst,
			"static_item":             parsetree.KindConst,
			"let_declaration":         parsetree.KindVariable,
			"parameter":               parsetree.KindParameter,
			"field_declaration":       parsetree.KindVariable,
			"call_expression":         parsetree.KindCall,
			"identifier":              parsetree.KindIdent,
			"field_identifier":        parsetree.KindIdent,
			"field_expression":        parsetree.KindFieldAccess,
			"macro_definition":        parsetree.KindMacro,
			"macro_invocation":        parsetree.KindMacroCall,
			"block":                   parsetree.KindBlock,
			"closure_expression":      parsetree.KindClosure,
			"loop_expression":         parsetree.KindLoop,
			"while_expression":        parsetree.KindLoop,
			"for_expression":          parsetree.KindLoop,
			"visibility_modifier":     parsetree.KindVisibility,
			"type_parameters":         parsetree.KindTypeParams,
			"type_identifier":         parsetree.KindTypeRef,
			"scoped_type_identifier":  parsetree.KindTypeRef,
			"generic_type":            parsetree.KindTypeRef,
			"reference_type":          parsetree.KindTypeRef,
			"dynamic_type":            parsetree.KindTypeRef,
		},
		rewrite: rewriteRust,
	}
}

func rewriteRust(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool) {
	switch n.Kind() {
	case "use_declaration":
		return rewriteRustUse(n, src), true

	case "self_parameter":
		return []parsetree.Node{parsetree.New(
			parsetree.KindParameter, spanOf(n), "",
			parsetree.New(parsetree.KindName, spanOf(n), "self"),
		)}, true

	case "scoped_identifier":
		return []parsetree.Node{flattenPath(n, src)}, true

	case "type_parameter", "constrained_type_parameter", "optional_type_parameter":
		return rewriteRustTypeParam(p, n, src), true
	}
	return nil, false
}

// rewriteRustUse flattens a use declaration, brace groups included, into
// one import node per bound name.
func rewriteRustUse(n *sitter.Node, src []byte) []parsetree.Node {
	visibility := nodeText(findChildKind(n, "visibility_modifier"), src)

	raw := nodeText(n, src)
	if visibility != "" {
		raw = strings.TrimPrefix(raw, visibility)
	}
	raw = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ";"))
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "use "))

	return importNodes(n, visibility, parseUseTree(raw))
}

// rewriteRustTypeParam lowers one generic parameter into the parameter
// shape the extractor reads: a name plus its bound type refs.
func rewriteRustTypeParam(p *treeSitterParser, n *sitter.Node, src []byte) []parsetree.Node {
	children := []parsetree.Node{}
	if name := n.ChildByFieldName("left"); name != nil {
		children = append(children, parsetree.New(parsetree.KindName, spanOf(name), nodeText(name, src)))
	} else if first := n.Child(0); first != nil {
		children = append(children, parsetree.New(parsetree.KindName, spanOf(first), nodeText(first, src)))
	}

	var bounds []parsetree.Node
	p.collectTypeArgs(n, src, &bounds)
	children = append(children, bounds...)

	return []parsetree.Node{parsetree.New(parsetree.KindParameter, spanOf(n), "", children...)}
}

// flattenPath renders a scoped identifier as a flat path expression, one
// ident child per segment.
func flattenPath(n *sitter.Node, src []byte) parsetree.Node {
	segs := splitPath(nodeText(n, src))
	idents := make([]parsetree.Node, len(segs))
	for i, seg := range segs {
		idents[i] = parsetree.New(parsetree.KindIdent, spanOf(n), seg)
	}
	return parsetree.New(parsetree.KindPathExpr, spanOf(n), "", idents...)
}
