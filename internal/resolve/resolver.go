// Package resolve links recorded use-sites to definitions. Resolution runs
// per file against an immutable symbol table snapshot: local scope chains
// take absolute precedence, then imports and aliases of the enclosing
// module, then the global namespace filtered by visibility. Every
// reference ends in a terminal state; an unresolvable name is a recorded
// outcome, not an error.
package resolve

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mvp-joe/ariadne/internal/semantic"
	"github.com/mvp-joe/ariadne/internal/symtab"
)

// Resolver resolves references against one merged table snapshot. It is
// safe to resolve distinct files concurrently: the table is read-only and
// each call mutates only its own file's resolution slots.
type Resolver struct {
	table *symtab.Table
}

// New creates a new Resolver over a merged snapshot.
func New(table *symtab.Table) *Resolver {
	return &Resolver{table: table}
}

// ResolveAll resolves every reference in every file of the snapshot.
func (r *Resolver) ResolveAll() {
	for _, file := range r.table.Files() {
		r.ResolveFile(file)
	}
}

// ResolveFile resolves every reference recorded by one file.
func (r *Resolver) ResolveFile(file *semantic.FileIndex) {
	fr := &fileResolver{
		table:       r.table,
		file:        file,
		moduleNames: bodyModules(file),
	}

	counts := make(map[semantic.ResolutionState]int)
	for i := range file.References {
		ref := &file.References[i]
		fr.resolve(ref)
		counts[ref.Resolution.State]++
	}

	log.Debug().
		Str("file", file.Path).
		Int("resolved", counts[semantic.StateResolved]).
		Int("polymorphic", counts[semantic.StateResolvedPolymorphic]).
		Int("ambiguous", counts[semantic.StateAmbiguous]).
		Int("unresolvable", counts[semantic.StateUnresolvable]).
		Msg("references resolved")
}

type fileResolver struct {
	table       *symtab.Table
	file        *semantic.FileIndex
	moduleNames map[semantic.ScopeID]string // module body scope -> module name
}

// bodyModules maps each module definition's body scope to its name, so a
// reference's enclosing module path can be recovered from its scope chain.
func bodyModules(file *semantic.FileIndex) map[semantic.ScopeID]string {
	m := make(map[semantic.ScopeID]string)
	for i := range file.Definitions {
		d := &file.Definitions[i]
		if d.Kind == semantic.KindModule && d.Body != semantic.NoScope {
			m[d.Body] = d.Name
		}
	}
	return m
}

// moduleOf returns the module path enclosing a scope: the file's root
// module extended by every named module body on the scope chain.
func (fr *fileResolver) moduleOf(scope semantic.ScopeID) []string {
	var chain []semantic.ScopeID
	for s := scope; s != semantic.NoScope; s = fr.file.Scopes[s].Parent {
		chain = append(chain, s)
	}

	module := append([]string{}, fr.file.Module...)
	for i := len(chain) - 1; i >= 0; i-- {
		if name, ok := fr.moduleNames[chain[i]]; ok {
			module = append(module, name)
		}
	}
	return module
}

func (fr *fileResolver) resolve(ref *semantic.Reference) {
	switch ref.Shape {
	case semantic.ShapeIdent:
		fr.resolveIdent(ref)
	case semantic.ShapePath:
		fr.resolvePath(ref)
	case semantic.ShapeType:
		fr.resolveType(ref)
	case semantic.ShapeField:
		fr.resolveField(ref)
	default:
		ref.Resolution = semantic.Resolution{State: semantic.StateUnresolvable}
	}
}

// resolveIdent handles a bare identifier. The scope chain wins outright:
// a local binding shadows any global of the same name, so the global
// namespace is consulted only when no binding matches.
func (fr *fileResolver) resolveIdent(ref *semantic.Reference) {
	name := ref.Segments[0]

	if sym, ok := fr.file.LookupLocal(ref.Scope, name, ref.Span.StartByte); ok {
		if gid, ok := fr.table.GlobalID(fr.file.Path, sym); ok {
			ref.Resolution = semantic.Resolution{
				State:   semantic.StateResolved,
				Targets: []semantic.GlobalID{gid},
			}
			return
		}
	}

	fr.finish(ref, fr.table.LookupVisible(ref.Segments, fr.moduleOf(ref.Scope)))
}

// resolvePath handles a multi-segment path. A head segment bound in the
// local scope chain to a namespace-like definition anchors the rest of the
// path; otherwise the whole path goes through the table's import-aware
// lookup.
func (fr *fileResolver) resolvePath(ref *semantic.Reference) {
	head, rest := ref.Segments[0], ref.Segments[1:]

	if sym, ok := fr.file.LookupLocal(ref.Scope, head, ref.Span.StartByte); ok {
		if d := fr.file.Definition(sym); d != nil && anchorsNamespace(d.Kind) {
			full := append(append([]string{}, d.Path...), rest...)
			if ids := fr.table.LookupExact(full); len(ids) > 0 {
				fr.finish(ref, ids)
				return
			}
		}
	}

	fr.finish(ref, fr.table.LookupVisible(ref.Segments, fr.moduleOf(ref.Scope)))
}

// anchorsNamespace reports whether a definition kind can own path-addressed
// members.
func anchorsNamespace(kind semantic.SymbolKind) bool {
	switch kind {
	case semantic.KindModule, semantic.KindStruct, semantic.KindEnum,
		semantic.KindInterface, semantic.KindTypeAlias:
		return true
	default:
		return false
	}
}

// resolveType handles a type annotation use-site. Candidates that are not
// type-like are filtered out when at least one type-like candidate exists,
// so a function and a struct sharing a name do not force an ambiguity on a
// type position.
func (fr *fileResolver) resolveType(ref *semantic.Reference) {
	if len(ref.Segments) == 1 {
		if sym, ok := fr.file.LookupLocal(ref.Scope, ref.Segments[0], ref.Span.StartByte); ok {
			if d := fr.file.Definition(sym); d != nil && typeLike(d.Kind) {
				if gid, ok := fr.table.GlobalID(fr.file.Path, sym); ok {
					ref.Resolution = semantic.Resolution{
						State:   semantic.StateResolved,
						Targets: []semantic.GlobalID{gid},
					}
					return
				}
			}
		}
	}

	candidates := fr.table.LookupVisible(ref.Segments, fr.moduleOf(ref.Scope))
	var typed []semantic.GlobalID
	for _, id := range candidates {
		if typeLike(fr.table.DefinitionOf(id).Kind) {
			typed = append(typed, id)
		}
	}
	if len(typed) > 0 {
		candidates = typed
	}
	fr.finish(ref, candidates)
}

func typeLike(kind semantic.SymbolKind) bool {
	switch kind {
	case semantic.KindStruct, semantic.KindEnum, semantic.KindInterface, semantic.KindTypeAlias:
		return true
	default:
		return false
	}
}

// finish assigns the terminal state for a candidate set: no candidate is
// unresolvable, one resolves, several are ambiguous and reported in
// deterministic (file path, span start) order.
func (fr *fileResolver) finish(ref *semantic.Reference, ids []semantic.GlobalID) {
	switch len(ids) {
	case 0:
		ref.Resolution = semantic.Resolution{State: semantic.StateUnresolvable}
	case 1:
		ref.Resolution = semantic.Resolution{State: semantic.StateResolved, Targets: ids}
	default:
		sortTargets(fr.table, ids)
		ref.Resolution = semantic.Resolution{State: semantic.StateAmbiguous, Targets: ids}
	}
}

// sortTargets orders candidates by owning file path, then span start.
func sortTargets(t *symtab.Table, ids []semantic.GlobalID) {
	sort.SliceStable(ids, func(i, j int) bool {
		fi, fj := t.FileOf(ids[i]), t.FileOf(ids[j])
		if fi.Path != fj.Path {
			return fi.Path < fj.Path
		}
		return t.DefinitionOf(ids[i]).Span.StartByte < t.DefinitionOf(ids[j]).Span.StartByte
	})
}
