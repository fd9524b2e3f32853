package parsers

import (
	"path"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	c "github.com/tree-sitter/tree-sitter-c/bindings/go"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// NewCParser creates the C adapter. C has no module or visibility system;
// a header include lowers to a plain import of the header's namespace.
func NewCParser() Parser {
	return &treeSitterParser{
		lang:       "c",
		language:   sitter.NewLanguage(c.Language()),
		nameFields: []string{"name"},
		kinds: map[string]parsetree.NodeKind{
			"struct_specifier":   parsetree.KindStruct,
			"enum_specifier":     parsetree.KindEnum,
			"type_definition":    parsetree.KindTypeAlias,
			"compound_statement": parsetree.KindBlock,
			"for_statement":      parsetree.KindLoop,
			"while_statement":    parsetree.KindLoop,
			"call_expression":    parsetree.KindCall,
			"field_expression":   parsetree.KindFieldAccess,
			"identifier":         parsetree.KindIdent,
			"field_identifier":   parsetree.KindIdent,
			"type_identifier":    parsetree.KindTypeRef,
			"parameter_declaration": parsetree.KindParameter,
		},
		rewrite: rewriteC,
	}
}

func rewriteC(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool) {
	switch n.Kind() {
	case "preproc_include":
		header := strings.Trim(nodeText(n.ChildByFieldName("path"), src), `"<>`)
		base := strings.TrimSuffix(path.Base(header), path.Ext(header))
		if base == "" {
			return nil, true
		}
		return importNodes(n, "", []importSpec{{path: []string{base}, glob: true}}), true

	case "function_definition", "declaration":
		return rewriteCDeclaration(p, n, src), true
	}
	return nil, false
}

// rewriteCDeclaration digs the declared identifier out of the declarator
// nesting. Function definitions become functions; everything else is a
// variable declaration.
func rewriteCDeclaration(p *treeSitterParser, n *sitter.Node, src []byte) []parsetree.Node {
	kind := parsetree.KindVariable
	if n.Kind() == "function_definition" {
		kind = parsetree.KindFunction
	} else if findDescendantKind(n, "function_declarator") != nil {
		// A prototype declares a function too.
		kind = parsetree.KindFunction
	}

	var children []parsetree.Node
	if name := findDescendantKind(n, "identifier"); name != nil {
		children = append(children, parsetree.New(parsetree.KindName, spanOf(name), nodeText(name, src)))
	}
	if params := findDescendantKind(n, "parameter_list"); params != nil {
		children = append(children, p.lowerChildren(params, src)...)
	}
	if body := n.ChildByFieldName("body"); body != nil {
		children = append(children, p.lower(body, src)...)
	}
	return []parsetree.Node{parsetree.New(kind, spanOf(n), "", children...)}
}

// findDescendantKind finds the first descendant with the grammar type,
// depth-first.
func findDescendantKind(n *sitter.Node, kind string) *sitter.Node {
	if n.Kind() == kind {
		return n
	}
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		if found := findDescendantKind(n.Child(i), kind); found != nil {
			return found
		}
	}
	return nil
}
