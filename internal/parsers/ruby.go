package parsers

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
	ruby "github.com/tree-sitter/tree-sitter-ruby/bindings/go"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// NewRubyParser creates the Ruby adapter. Requires are dynamic and are
// not lowered as imports; constant references still resolve by path.
func NewRubyParser() Parser {
	return &treeSitterParser{
		lang:       "ruby",
		language:   sitter.NewLanguage(ruby.Language()),
		nameFields: []string{"name", "left"},
		kinds: map[string]parsetree.NodeKind{
			"module":           parsetree.KindModule,
			"class":            parsetree.KindStruct,
			"method":           parsetree.KindFunction,
			"singleton_method": parsetree.KindFunction,
			"assignment":       parsetree.KindVariable,
			"do_block":         parsetree.KindClosure,
			"block":            parsetree.KindClosure,
			"while":            parsetree.KindLoop,
			"until":            parsetree.KindLoop,
			"for":              parsetree.KindLoop,
			"call":             parsetree.KindFieldAccess,
			"identifier":       parsetree.KindIdent,
			"constant":         parsetree.KindIdent,
			"scope_resolution": parsetree.KindPathExpr,
		},
		rewrite: rewriteRuby,
	}
}

func rewriteRuby(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool) {
	switch n.Kind() {
	case "method_parameters", "block_parameters":
		return rewritePythonParams(p, n, src), true

	case "scope_resolution":
		return []parsetree.Node{flattenPath(n, src)}, true

	case "call":
		// A bare call has no receiver; lower it as a plain call so the
		// method name resolves as an identifier.
		if n.ChildByFieldName("receiver") == nil {
			return p.lowerMapped(n, src, parsetree.KindCall), true
		}
		return nil, false
	}
	return nil, false
}
