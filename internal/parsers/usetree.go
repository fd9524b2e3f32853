package parsers

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// importSpec is one flattened import binding parsed out of an import or
// use declaration's text.
type importSpec struct {
	path  []string
	alias string
	glob  bool
}

// parseUseTree flattens a Rust-style use tree. Nested brace groups expand
// to one spec per leaf, "as" renames the binding, a trailing "*" marks a
// wildcard, and a "self" leaf inside a group refers to the group prefix.
func parseUseTree(text string) []importSpec {
	return expandUseTree(nil, strings.TrimSpace(text))
}

func expandUseTree(prefix []string, text string) []importSpec {
	if open := strings.Index(text, "{"); open >= 0 && strings.HasSuffix(text, "}") {
		head := strings.TrimSuffix(strings.TrimSpace(text[:open]), "::")
		base := append(append([]string{}, prefix...), splitPath(head)...)

		var out []importSpec
		for _, part := range splitTopLevel(text[open+1:len(text)-1], ',') {
			out = append(out, expandUseTree(base, strings.TrimSpace(part))...)
		}
		return out
	}

	var alias string
	if i := strings.Index(text, " as "); i >= 0 {
		alias = strings.TrimSpace(text[i+4:])
		text = strings.TrimSpace(text[:i])
	}

	segs := splitPath(text)
	glob := false
	if len(segs) > 0 && segs[len(segs)-1] == "*" {
		glob = true
		segs = segs[:len(segs)-1]
	}

	path := append(append([]string{}, prefix...), segs...)
	if len(path) > 0 && path[len(path)-1] == "self" && len(prefix) > 0 {
		path = path[:len(path)-1]
	}
	if len(path) == 0 {
		return nil
	}
	return []importSpec{{path: path, alias: alias, glob: glob}}
}

// splitTopLevel splits on sep outside any brace nesting.
func splitTopLevel(text string, sep byte) []string {
	var out []string
	depth, start := 0, 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
		case sep:
			if depth == 0 {
				out = append(out, text[start:i])
				start = i + 1
			}
		}
	}
	return append(out, text[start:])
}

// splitPath splits a path on "::", ".", or "\" separators.
func splitPath(text string) []string {
	var segs []string
	for _, seg := range strings.FieldsFunc(text, func(r rune) bool {
		return r == ':' || r == '.' || r == '\\'
	}) {
		seg = strings.TrimSpace(seg)
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	return segs
}

// importNodes renders flattened specs as synthetic KindImport nodes, all
// carrying the declaration's span. Multiple specs come back wrapped so the
// caller can splice them as siblings.
func importNodes(n *sitter.Node, visibility string, specs []importSpec) []parsetree.Node {
	span := spanOf(n)
	var out []parsetree.Node
	for _, spec := range specs {
		var children []parsetree.Node
		if visibility != "" {
			children = append(children, parsetree.New(parsetree.KindVisibility, span, visibility))
		}

		segs := spec.path
		if spec.glob {
			segs = append(append([]string{}, segs...), "*")
		}
		idents := make([]parsetree.Node, len(segs))
		for i, seg := range segs {
			idents[i] = parsetree.New(parsetree.KindIdent, span, seg)
		}
		children = append(children, parsetree.New(parsetree.KindPathExpr, span, "", idents...))

		if spec.alias != "" {
			children = append(children, parsetree.New(parsetree.KindName, span, spec.alias))
		}
		out = append(out, parsetree.New(parsetree.KindImport, span, "", children...))
	}
	return out
}
