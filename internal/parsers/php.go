package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	php "github.com/tree-sitter/tree-sitter-php/bindings/go"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// NewPhpParser creates the PHP adapter.
func NewPhpParser() Parser {
	return &treeSitterParser{
		lang:       "php",
		language:   sitter.NewLanguage(php.LanguagePHP()),
		nameFields: []string{"name"},
		kinds: map[string]parsetree.NodeKind{
			"namespace_definition":     parsetree.KindModule,
			"function_definition":      parsetree.KindFunction,
			"method_declaration":       parsetree.KindFunction,
			"class_declaration":        parsetree.KindStruct,
			"interface_declaration":    parsetree.KindInterface,
			"trait_declaration":        parsetree.KindInterface,
			"enum_declaration":         parsetree.KindEnum,
			"const_declaration":        parsetree.KindConst,
			"simple_parameter":         parsetree.KindParameter,
			"compound_statement":       parsetree.KindBlock,
			"anonymous_function":       parsetree.KindClosure,
			"for_statement":            parsetree.KindLoop,
			"foreach_statement":        parsetree.KindLoop,
			"while_statement":          parsetree.KindLoop,
			"function_call_expression": parsetree.KindCall,
			"member_access_expression": parsetree.KindFieldAccess,
			"member_call_expression":   parsetree.KindFieldAccess,
			"variable_name":            parsetree.KindIdent,
			"name":                     parsetree.KindIdent,
			"named_type":               parsetree.KindTypeRef,
			"visibility_modifier":      parsetree.KindVisibility,
			"qualified_name":           parsetree.KindPathExpr,
		},
		rewrite: rewritePhp,
	}
}

func rewritePhp(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool) {
	switch n.Kind() {
	case "namespace_use_declaration":
		return importNodes(n, "", parsePhpUse(nodeText(n, src))), true

	case "qualified_name":
		return []parsetree.Node{flattenPath(n, src)}, true
	}
	return nil, false
}

// parsePhpUse handles "use A\B\C as D, E\F;" declarations.
func parsePhpUse(text string) []importSpec {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))
	text = strings.TrimPrefix(text, "use ")
	text = strings.TrimPrefix(strings.TrimSpace(text), "function ")
	text = strings.TrimPrefix(strings.TrimSpace(text), "const ")

	var out []importSpec
	for _, part := range strings.Split(text, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var alias string
		if j := strings.Index(part, " as "); j >= 0 {
			alias = strings.TrimSpace(part[j+4:])
			part = strings.TrimSpace(part[:j])
		}
		if segs := splitPath(part); len(segs) > 0 {
			out = append(out, importSpec{path: segs, alias: alias})
		}
	}
	return out
}
