package semantic

import (
	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// buildScopes runs the scope-tree stage: one depth-first pre-order pass
// that opens a scope for every scope-introducing construct, binds each
// definition in the scope that lexically contains its declaration, and
// attaches every reference to the deepest scope containing its span.
//
// Bindings preserve the positional-vs-hoisted distinction: variables and
// parameters are visible from their declaration offset onward, named
// functions, types, modules, constants, and macros are visible throughout
// their scope regardless of position.
func buildScopes(index *FileIndex, tree parsetree.Node) {
	b := &scopeBuilder{index: index, defsBySpan: make(map[uint64]SymbolID, len(index.Definitions))}
	for i := range index.Definitions {
		b.defsBySpan[spanKey(index.Definitions[i].Span)] = index.Definitions[i].ID
	}

	root := ScopeNode{ID: 0, Kind: ScopeModule, Parent: NoScope, Span: tree.Span()}
	index.Scopes = append(index.Scopes, root)

	b.current = 0
	for _, child := range tree.Children() {
		b.walk(child)
	}

	for i := range index.References {
		index.References[i].Scope = index.ScopeAt(index.References[i].Span.StartByte)
	}
}

type scopeBuilder struct {
	index      *FileIndex
	defsBySpan map[uint64]SymbolID
	current    ScopeID
}

func spanKey(s parsetree.Span) uint64 {
	return uint64(s.StartByte)<<32 | uint64(s.EndByte)
}

func (b *scopeBuilder) walk(n parsetree.Node) {
	kind := n.Kind()

	// Bind the definition in the scope that contains the declaration,
	// before any scope the declaration itself introduces is pushed.
	var def *SymbolDefinition
	if kind.IsDefinition() {
		if id, ok := b.defsBySpan[spanKey(n.Span())]; ok {
			def = &b.index.Definitions[id]
			def.Scope = b.current
			scope := &b.index.Scopes[b.current]
			scope.Bindings = append(scope.Bindings, Binding{
				Name:    def.Name,
				Symbol:  def.ID,
				Offset:  def.Span.StartByte,
				Hoisted: kind.Hoisted(),
			})
		}
	}

	if !kind.IntroducesScope() {
		for _, child := range n.Children() {
			b.walk(child)
		}
		return
	}

	pushed := b.push(scopeKindFor(kind), n.Span())
	if def != nil {
		def.Body = pushed
	}

	for _, child := range n.Children() {
		// The immediate block body of a function, closure, loop, or module
		// shares the scope just pushed; nested blocks open their own.
		if child.Kind() == parsetree.KindBlock && mergesBody(kind) {
			for _, stmt := range child.Children() {
				b.walk(stmt)
			}
			continue
		}
		b.walk(child)
	}

	b.current = b.index.Scopes[pushed].Parent
}

func (b *scopeBuilder) push(kind ScopeKind, span parsetree.Span) ScopeID {
	id := ScopeID(len(b.index.Scopes))
	b.index.Scopes = append(b.index.Scopes, ScopeNode{
		ID:     id,
		Kind:   kind,
		Parent: b.current,
		Span:   span,
	})
	parent := &b.index.Scopes[b.current]
	parent.Children = append(parent.Children, id)
	b.current = id
	return id
}

func scopeKindFor(kind parsetree.NodeKind) ScopeKind {
	switch kind {
	case parsetree.KindModule:
		return ScopeModule
	case parsetree.KindFunction:
		return ScopeFunction
	case parsetree.KindClosure:
		return ScopeClosure
	case parsetree.KindLoop:
		return ScopeLoop
	case parsetree.KindStruct, parsetree.KindEnum, parsetree.KindInterface, parsetree.KindImpl:
		return ScopeTypeBody
	default:
		return ScopeBlock
	}
}

func mergesBody(kind parsetree.NodeKind) bool {
	switch kind {
	case parsetree.KindFunction, parsetree.KindClosure, parsetree.KindLoop, parsetree.KindModule:
		return true
	default:
		return false
	}
}

// LookupLocal resolves a name against the scope chain, starting at the
// given scope and walking outward to the file root. Sequential bindings
// match only when declared at or before the reference offset; hoisted
// bindings match regardless of position. Within one scope the latest
// matching binding wins, which is what makes later same-name bindings
// shadow earlier ones from their declaration point forward.
func (f *FileIndex) LookupLocal(scope ScopeID, name string, offset uint32) (SymbolID, bool) {
	for s := scope; s != NoScope; s = f.Scopes[s].Parent {
		bindings := f.Scopes[s].Bindings
		for i := len(bindings) - 1; i >= 0; i-- {
			b := bindings[i]
			if b.Name != name {
				continue
			}
			if b.Hoisted || b.Offset <= offset {
				return b.Symbol, true
			}
		}
	}
	return NoSymbol, false
}
