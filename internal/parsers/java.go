package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	java "github.com/tree-sitter/tree-sitter-java/bindings/go"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// NewJavaParser creates the Java adapter.
func NewJavaParser() Parser {
	return &treeSitterParser{
		lang:       "java",
		language:   sitter.NewLanguage(java.Language()),
		nameFields: []string{"name", "declarator"},
		kinds: map[string]parsetree.NodeKind{
			"class_declaration":       parsetree.KindStruct,
			"record_declaration":      parsetree.KindStruct,
			"interface_declaration":   parsetree.KindInterface,
			"enum_declaration":        parsetree.KindEnum,
			"method_declaration":      parsetree.KindFunction,
			"constructor_declaration": parsetree.KindFunction,
			"formal_parameter":        parsetree.KindParameter,
			"block":                   parsetree.KindBlock,
			"for_statement":           parsetree.KindLoop,
			"enhanced_for_statement":  parsetree.KindLoop,
			"while_statement":         parsetree.KindLoop,
			"lambda_expression":       parsetree.KindClosure,
			"method_invocation":       parsetree.KindCall,
			"field_access":            parsetree.KindFieldAccess,
			"identifier":              parsetree.KindIdent,
			"type_identifier":         parsetree.KindTypeRef,
			"generic_type":            parsetree.KindTypeRef,
			"type_parameters":         parsetree.KindTypeParams,
		},
		rewrite: rewriteJava,
	}
}

func rewriteJava(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool) {
	switch n.Kind() {
	case "import_declaration":
		return importNodes(n, "", parseJavaImport(nodeText(n, src))), true

	case "modifiers":
		text := nodeText(n, src)
		if strings.Contains(text, "public") {
			return []parsetree.Node{parsetree.New(parsetree.KindVisibility, spanOf(n), "public")}, true
		}
		return nil, true

	case "local_variable_declaration", "field_declaration":
		return rewriteJavaVariable(p, n, src), true

	case "type_parameter":
		return rewriteRustTypeParam(p, n, src), true
	}
	return nil, false
}

// rewriteJavaVariable digs the declarator name out of a variable or field
// declaration.
func rewriteJavaVariable(p *treeSitterParser, n *sitter.Node, src []byte) []parsetree.Node {
	var children []parsetree.Node
	if decl := n.ChildByFieldName("declarator"); decl != nil {
		if name := decl.ChildByFieldName("name"); name != nil {
			children = append(children, parsetree.New(parsetree.KindName, spanOf(name), nodeText(name, src)))
		}
		if value := decl.ChildByFieldName("value"); value != nil {
			children = append(children, p.lower(value, src)...)
		}
	}
	if typ := n.ChildByFieldName("type"); typ != nil && typ.Kind() != "void_type" {
		children = append(children, p.lowerTypeRef(typ, src))
	}
	return []parsetree.Node{parsetree.New(parsetree.KindVariable, spanOf(n), "", children...)}
}

// parseJavaImport handles "import a.b.C;" and "import a.b.*;". Static
// imports drop the "static" keyword and keep the member path.
func parseJavaImport(text string) []importSpec {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	text = strings.TrimPrefix(text, "import ")
	text = strings.TrimPrefix(strings.TrimSpace(text), "static ")

	segs := splitPath(text)
	glob := false
	if len(segs) > 0 && segs[len(segs)-1] == "*" {
		glob = true
		segs = segs[:len(segs)-1]
	}
	if len(segs) == 0 {
		return nil
	}
	return []importSpec{{path: segs, glob: glob}}
}
