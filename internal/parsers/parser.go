// Package parsers adapts tree-sitter grammars to the language-agnostic
// parse tree the semantic index consumes. Each language contributes a kind
// table mapping grammar node types to parse-tree kinds, plus a rewrite
// hook for the forms generic lowering cannot express (import trees,
// receiver parameters). Everything downstream of this package never sees a
// tree-sitter type.
package parsers

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// Parser turns one source file into a parse tree.
type Parser interface {
	// Language returns the language tag ("rust", "python", ...).
	Language() string

	// Parse lowers the file's concrete syntax tree. A nil tree is an
	// error; partial trees from files with syntax errors are returned
	// as-is and degrade to extraction warnings downstream.
	Parse(ctx context.Context, filePath string, source []byte) (parsetree.Node, error)
}

// Registry routes files to parsers by extension.
type Registry struct {
	byExt map[string]Parser
}

// NewRegistry creates a registry with every supported language registered.
func NewRegistry() *Registry {
	r := &Registry{byExt: make(map[string]Parser)}

	r.register(NewRustParser(), ".rs")
	r.register(NewPythonParser(), ".py")
	r.register(NewTypeScriptParser(), ".ts", ".tsx", ".js", ".jsx")
	r.register(NewJavaParser(), ".java")
	r.register(NewCParser(), ".c", ".h")
	r.register(NewRubyParser(), ".rb")
	r.register(NewPhpParser(), ".php")

	return r
}

func (r *Registry) register(p Parser, exts ...string) {
	for _, ext := range exts {
		r.byExt[ext] = p
	}
}

// ForFile returns the parser responsible for a file, or nil when the
// extension is not supported.
func (r *Registry) ForFile(path string) Parser {
	return r.byExt[strings.ToLower(filepath.Ext(path))]
}

// Extensions returns the supported file extensions, sorted.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}

// rewriteFunc intercepts one grammar node before generic lowering. It
// returns the replacement nodes and true, or false to fall through.
type rewriteFunc func(p *treeSitterParser, n *sitter.Node, src []byte) ([]parsetree.Node, bool)

// treeSitterParser is the shared lowering core behind every language.
type treeSitterParser struct {
	lang     string
	language *sitter.Language

	// kinds maps grammar node types to parse-tree kinds. Unmapped node
	// types dissolve: their children splice into the parent.
	kinds map[string]parsetree.NodeKind

	// nameFields lists the grammar fields that carry a declaration's name,
	// tried in order.
	nameFields []string

	rewrite rewriteFunc
}

func (p *treeSitterParser) Language() string { return p.lang }

func (p *treeSitterParser) Parse(ctx context.Context, filePath string, source []byte) (parsetree.Node, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, fmt.Errorf("parsers: %s parse failed for %s", p.lang, filePath)
	}
	defer tree.Close()

	root := tree.RootNode()
	return parsetree.New(parsetree.KindSourceFile, spanOf(root), "", p.lowerChildren(root, source)...), nil
}

// lower maps one grammar node into zero or more parse-tree nodes.
func (p *treeSitterParser) lower(n *sitter.Node, src []byte) []parsetree.Node {
	if p.rewrite != nil {
		if nodes, ok := p.rewrite(p, n, src); ok {
			return nodes
		}
	}

	kind, mapped := p.kinds[n.Kind()]
	if !mapped {
		return p.lowerChildren(n, src)
	}
	return p.lowerMapped(n, src, kind)
}

// lowerMapped is the generic lowering for a node with a known kind.
// Rewrite hooks call it to post-process the standard shape.
func (p *treeSitterParser) lowerMapped(n *sitter.Node, src []byte, kind parsetree.NodeKind) []parsetree.Node {
	switch kind {
	case parsetree.KindIdent, parsetree.KindName, parsetree.KindVisibility:
		return []parsetree.Node{parsetree.New(kind, spanOf(n), nodeText(n, src))}
	case parsetree.KindTypeRef:
		return []parsetree.Node{p.lowerTypeRef(n, src)}
	}

	var children []parsetree.Node
	nameNode := p.declaredName(n)
	if kind.IsDefinition() && nameNode != nil {
		children = append(children, parsetree.New(parsetree.KindName, spanOf(nameNode), nodeText(nameNode, src)))
	}
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		if nameNode != nil && sameNode(child, nameNode) {
			continue
		}
		children = append(children, p.lower(child, src)...)
	}
	return []parsetree.Node{parsetree.New(kind, spanOf(n), "", children...)}
}

// withVisibility rebuilds lowered definition nodes with a synthetic
// visibility marker prepended.
func withVisibility(nodes []parsetree.Node, marker string) []parsetree.Node {
	out := make([]parsetree.Node, len(nodes))
	for i, n := range nodes {
		if !n.Kind().IsDefinition() {
			out[i] = n
			continue
		}
		children := append(
			[]parsetree.Node{parsetree.New(parsetree.KindVisibility, n.Span(), marker)},
			n.Children()...,
		)
		out[i] = parsetree.New(n.Kind(), n.Span(), n.Text(), children...)
	}
	return out
}

func (p *treeSitterParser) lowerChildren(n *sitter.Node, src []byte) []parsetree.Node {
	var out []parsetree.Node
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		out = append(out, p.lower(n.Child(i), src)...)
	}
	return out
}

// lowerTypeRef keeps a type reference's raw text for segment parsing and
// lowers nested generic arguments as child type refs.
func (p *treeSitterParser) lowerTypeRef(n *sitter.Node, src []byte) parsetree.Node {
	var args []parsetree.Node
	p.collectTypeArgs(n, src, &args)
	return parsetree.New(parsetree.KindTypeRef, spanOf(n), nodeText(n, src), args...)
}

func (p *treeSitterParser) collectTypeArgs(n *sitter.Node, src []byte, out *[]parsetree.Node) {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		child := n.Child(i)
		if p.kinds[child.Kind()] == parsetree.KindTypeRef {
			*out = append(*out, p.lowerTypeRef(child, src))
			continue
		}
		p.collectTypeArgs(child, src, out)
	}
}

func (p *treeSitterParser) declaredName(n *sitter.Node) *sitter.Node {
	for _, field := range p.nameFields {
		if name := n.ChildByFieldName(field); name != nil {
			return name
		}
	}
	return nil
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

func nodeText(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

func spanOf(n *sitter.Node) parsetree.Span {
	start, end := n.StartPosition(), n.EndPosition()
	return parsetree.Span{
		StartByte: uint32(n.StartByte()),
		EndByte:   uint32(n.EndByte()),
		StartLine: uint32(start.Row) + 1,
		StartCol:  uint32(start.Column) + 1,
		EndLine:   uint32(end.Row) + 1,
		EndCol:    uint32(end.Column) + 1,
	}
}

// findChildKind returns the first direct child with the given grammar type.
func findChildKind(n *sitter.Node, kind string) *sitter.Node {
	for i := uint(0); i < uint(n.ChildCount()); i++ {
		if child := n.Child(i); child.Kind() == kind {
			return child
		}
	}
	return nil
}
