package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// NewPythonParser creates the Python adapter. Python has no visibility
// markers; the leading-underscore convention is lowered into one, so a
// name like _helper stays private to its module downstream.
func NewPythonParser() Parser {
	return &treeSitterParser{
		lang:       "python",
		language:   sitter.NewLanguage(python.Language()),
		nameFields: []string{"name", "left"},
		kinds: map[string]parsetree.NodeKind{
			"function_definition": parsetree.KindFunction,
			"class_definition":    parsetree.KindStruct,
			"assignment":          parsetree.KindVariable,
			"block":               parsetree.KindBlock,
			"lambda":              parsetree.KindClosure,
			"for_statement":       parsetree.KindLoop,
			"while_statement":     parsetree.KindLoop,
			"call":                parsetree.KindCall,
			"attribute":           parsetree.KindFieldAccess,
			"identifier":          parsetree.KindIdent,
			"type":                parsetree.KindTypeRef,
		},
		rewrite: rewritePython,
	}
}

func rewritePython(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool) {
	switch n.Kind() {
	case "import_statement", "import_from_statement":
		return importNodes(n, "", parsePythonImport(nodeText(n, src))), true

	case "function_definition", "class_definition":
		kind := parsetree.KindFunction
		if n.Kind() == "class_definition" {
			kind = parsetree.KindStruct
		}
		nodes := p.lowerMapped(n, src, kind)
		name := nodeText(n.ChildByFieldName("name"), src)
		if name != "" && !strings.HasPrefix(name, "_") {
			nodes = withVisibility(nodes, "pub")
		}
		return nodes, true

	case "parameters", "lambda_parameters":
		return rewritePythonParams(p, n, src), true
	}
	return nil, false
}

// rewritePythonParams lowers each parameter form into the common
// parameter shape: bare identifiers, annotated, and defaulted parameters.
func rewritePythonParams(p *treeSitterParser, n *sitter.Node, src []byte) []parsetree.Node {
	var out []parsetree.Node
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Kind() {
		case "identifier":
			out = append(out, parsetree.New(
				parsetree.KindParameter, spanOf(child), "",
				parsetree.New(parsetree.KindName, spanOf(child), nodeText(child, src)),
			))
		case "typed_parameter", "default_parameter", "typed_default_parameter":
			var children []parsetree.Node
			if name := firstIdentifier(child); name != nil {
				children = append(children, parsetree.New(parsetree.KindName, spanOf(name), nodeText(name, src)))
			}
			if typ := child.ChildByFieldName("type"); typ != nil {
				children = append(children, p.lowerTypeRef(typ, src))
			}
			out = append(out, parsetree.New(parsetree.KindParameter, spanOf(child), "", children...))
		}
	}
	return out
}

func firstIdentifier(n *sitter.Node) *sitter.Node {
	if n.Kind() == "identifier" {
		return n
	}
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		if found := firstIdentifier(n.Child(i)); found != nil {
			return found
		}
	}
	return nil
}

// parsePythonImport flattens "import a.b as c" and
// "from a.b import c as d, e" forms. Leading dots in a from-import become
// the relative "self"/"super" segments the symbol table understands.
func parsePythonImport(text string) []importSpec {
	text = strings.TrimSpace(text)

	if rest, ok := strings.CutPrefix(text, "from "); ok {
		i := strings.Index(rest, " import ")
		if i < 0 {
			return nil
		}
		prefix := relativePythonPath(strings.TrimSpace(rest[:i]))
		var out []importSpec
		for _, part := range strings.Split(rest[i+len(" import "):], ",") {
			part = strings.TrimSpace(strings.Trim(part, "()"))
			if part == "" {
				continue
			}
			if part == "*" {
				out = append(out, importSpec{path: prefix, glob: true})
				continue
			}
			var alias string
			if j := strings.Index(part, " as "); j >= 0 {
				alias = strings.TrimSpace(part[j+4:])
				part = strings.TrimSpace(part[:j])
			}
			out = append(out, importSpec{
				path:  append(append([]string{}, prefix...), splitPath(part)...),
				alias: alias,
			})
		}
		return out
	}

	rest, ok := strings.CutPrefix(text, "import ")
	if !ok {
		return nil
	}
	var out []importSpec
	for _, part := range strings.Split(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		var alias string
		if j := strings.Index(part, " as "); j >= 0 {
			alias = strings.TrimSpace(part[j+4:])
			part = strings.TrimSpace(part[:j])
		}
		out = append(out, importSpec{path: splitPath(part), alias: alias})
	}
	return out
}

// relativePythonPath maps a dotted module prefix to path segments: one
// leading dot anchors at the importing module, each further dot climbs a
// level.
func relativePythonPath(module string) []string {
	dots := 0
	for dots < len(module) && module[dots] == '.' {
		dots++
	}
	var prefix []string
	if dots == 1 {
		prefix = []string{"self"}
	}
	for i := 2; i <= dots; i++ {
		prefix = append(prefix, "super")
	}
	return append(prefix, splitPath(module[dots:])...)
}
