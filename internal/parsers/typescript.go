package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// NewTypeScriptParser creates the TypeScript adapter, also used for plain
// JavaScript sources.
func NewTypeScriptParser() Parser {
	return &treeSitterParser{
		lang:       "typescript",
		language:   sitter.NewLanguage(typescript.LanguageTypescript()),
		nameFields: []string{"name", "pattern"},
		kinds: map[string]parsetree.NodeKind{
			"function_declaration":   parsetree.KindFunction,
			"function_signature":     parsetree.KindFunction,
			"method_definition":      parsetree.KindFunction,
			"method_signature":       parsetree.KindFunction,
			"class_declaration":      parsetree.KindStruct,
			"interface_declaration":  parsetree.KindInterface,
			"enum_declaration":       parsetree.KindEnum,
			"type_alias_declaration": parsetree.KindTypeAlias,
			"internal_module":        parsetree.KindModule,
			"variable_declarator":    parsetree.KindVariable,
			"required_parameter":     parsetree.KindParameter,
			"optional_parameter":     parsetree.KindParameter,
			"statement_block":        parsetree.KindBlock,
			"arrow_function":         parsetree.KindClosure,
			"for_statement":          parsetree.KindLoop,
			"for_in_statement":       parsetree.KindLoop,
			"while_statement":        parsetree.KindLoop,
			"call_expression":        parsetree.KindCall,
			"member_expression":      parsetree.KindFieldAccess,
			"identifier":             parsetree.KindIdent,
			"property_identifier":    parsetree.KindIdent,
			"type_identifier":        parsetree.KindTypeRef,
			"generic_type":           parsetree.KindTypeRef,
			"type_parameters":        parsetree.KindTypeParams,
		},
		rewrite: rewriteTypeScript,
	}
}

func rewriteTypeScript(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool) {
	switch n.Kind() {
	case "import_statement":
		return importNodes(n, "", parseJsImport(nodeText(n, src))), true

	case "export_statement":
		// Re-exports carry the visibility on the synthesized import;
		// exported declarations get a synthetic marker.
		text := nodeText(n, src)
		if strings.Contains(text, " from ") {
			return importNodes(n, "export", parseJsImport(text)), true
		}
		return withVisibility(p.lowerChildren(n, src), "export"), true

	case "type_parameter":
		return rewriteRustTypeParam(p, n, src), true
	}
	return nil, false
}

// parseJsImport flattens an ES import/export clause. The module specifier
// maps to path segments: "./x" anchors at the importing module's parent
// directory namespace, "../" climbs one more level per occurrence.
func parseJsImport(text string) []importSpec {
	text = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(text), ";"))

	from := strings.LastIndex(text, " from ")
	if from < 0 {
		// Side-effect import: no bindings.
		return nil
	}
	module := jsModulePath(strings.Trim(strings.TrimSpace(text[from+len(" from "):]), `"'`))
	clause := strings.TrimSpace(text[:from])
	clause = strings.TrimPrefix(clause, "import ")
	clause = strings.TrimPrefix(clause, "export ")

	var out []importSpec
	for _, part := range splitTopLevel(clause, ',') {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
		case part == "*":
			out = append(out, importSpec{path: module, glob: true})
		case strings.HasPrefix(part, "* as "):
			out = append(out, importSpec{path: module, alias: strings.TrimSpace(part[5:])})
		case strings.HasPrefix(part, "{"):
			inner := strings.Trim(part, "{} ")
			for _, namePart := range strings.Split(inner, ",") {
				namePart = strings.TrimSpace(namePart)
				if namePart == "" {
					continue
				}
				var alias string
				if j := strings.Index(namePart, " as "); j >= 0 {
					alias = strings.TrimSpace(namePart[j+4:])
					namePart = strings.TrimSpace(namePart[:j])
				}
				out = append(out, importSpec{
					path:  append(append([]string{}, module...), namePart),
					alias: alias,
				})
			}
		default:
			// Default import binds the module under the local name.
			out = append(out, importSpec{path: module, alias: part})
		}
	}
	return out
}

// jsModulePath converts a module specifier to qualified path segments.
func jsModulePath(spec string) []string {
	var segs []string
	relative := strings.HasPrefix(spec, ".")
	for _, part := range strings.Split(spec, "/") {
		switch part {
		case "", ".":
		case "..":
			segs = append(segs, "super")
		default:
			segs = append(segs, strings.TrimSuffix(part, ".ts"))
		}
	}
	if relative && (len(segs) == 0 || segs[0] != "super") {
		// "./sibling" resolves against the importing module's parent.
		segs = append([]string{"super"}, segs...)
	}
	return segs
}
