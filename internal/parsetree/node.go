// Package parsetree defines the read-only syntax tree the semantic index
// consumes. Language parsers (tree-sitter adapters or anything else) lower
// their concrete trees into this shape; everything downstream of the parser
// boundary is language-agnostic.
package parsetree

import "fmt"

// Span locates a node in its source file by byte offset and line/column.
// Lines and columns are 1-indexed; byte offsets are 0-indexed.
type Span struct {
	StartByte uint32 `json:"start_byte"`
	EndByte   uint32 `json:"end_byte"`
	StartLine uint32 `json:"start_line"`
	StartCol  uint32 `json:"start_col"`
	EndLine   uint32 `json:"end_line"`
	EndCol    uint32 `json:"end_col"`
}

// Contains reports whether the byte offset falls inside the span.
func (s Span) Contains(offset uint32) bool {
	return offset >= s.StartByte && offset < s.EndByte
}

// String implements fmt.Stringer.
func (s Span) String() string {
	return fmt.Sprintf("%d:%d-%d:%d", s.StartLine, s.StartCol, s.EndLine, s.EndCol)
}

// Node is the read-only handle over one parsed construct. Implementations
// must be immutable once handed to the index.
type Node interface {
	// Kind returns the language-agnostic construct tag.
	Kind() NodeKind

	// Children returns the ordered child nodes. Callers must not mutate
	// the returned slice.
	Children() []Node

	// Span returns the source location of the node.
	Span() Span

	// Text returns the raw source text of the node. For structural children
	// (names, visibility markers) this is the only payload.
	Text() string
}

// node is the canonical immutable Node implementation.
type node struct {
	kind     NodeKind
	span     Span
	text     string
	children []Node
}

// New constructs an immutable parse-tree node.
func New(kind NodeKind, span Span, text string, children ...Node) Node {
	return &node{kind: kind, span: span, text: text, children: children}
}

func (n *node) Kind() NodeKind   { return n.kind }
func (n *node) Children() []Node { return n.children }
func (n *node) Span() Span       { return n.span }
func (n *node) Text() string     { return n.text }

// FindChild returns the first direct child of the given kind, or nil.
func FindChild(n Node, kind NodeKind) Node {
	for _, c := range n.Children() {
		if c.Kind() == kind {
			return c
		}
	}
	return nil
}

// FindChildren returns all direct children of the given kind.
func FindChildren(n Node, kind NodeKind) []Node {
	var out []Node
	for _, c := range n.Children() {
		if c.Kind() == kind {
			out = append(out, c)
		}
	}
	return out
}

// DeclaredName returns the text of the node's name child, or "" when the
// declaration is anonymous.
func DeclaredName(n Node) string {
	if name := FindChild(n, KindName); name != nil {
		return name.Text()
	}
	return ""
}

// VisibilityText returns the raw visibility marker of a declaration, or ""
// when none is present (private-to-scope by default).
func VisibilityText(n Node) string {
	if vis := FindChild(n, KindVisibility); vis != nil {
		return vis.Text()
	}
	return ""
}

// PathSegments flattens a path expression into its identifier segments.
// A nil or non-path node yields nil.
func PathSegments(n Node) []string {
	if n == nil {
		return nil
	}
	switch n.Kind() {
	case KindIdent:
		return []string{n.Text()}
	case KindPathExpr:
		var segs []string
		for _, c := range n.Children() {
			if c.Kind() == KindIdent {
				segs = append(segs, c.Text())
			}
		}
		return segs
	default:
		return nil
	}
}

// Walk visits nodes depth-first, pre-order. The visitor returns false to
// prune the subtree below the current node.
func Walk(n Node, visit func(Node) bool) {
	if n == nil {
		return
	}
	if !visit(n) {
		return
	}
	for _, c := range n.Children() {
		Walk(c, visit)
	}
}
