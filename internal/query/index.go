// Package query is the read-only facade over a built index snapshot:
// definition lookup at a file position, reference listings, interface
// implementations, and fuzzy symbol search.
package query

import (
	"errors"
	"fmt"
	"sort"

	"github.com/mvp-joe/ariadne/internal/parsetree"
	"github.com/mvp-joe/ariadne/internal/semantic"
	"github.com/mvp-joe/ariadne/internal/symtab"
)

var (
	// ErrUnknownFile reports a path absent from the snapshot.
	ErrUnknownFile = errors.New("query: file not in snapshot")

	// ErrNoSymbol reports a position with nothing to resolve under it.
	ErrNoSymbol = errors.New("query: no symbol at position")
)

// Location is a file position in the snapshot.
type Location struct {
	File string
	Span parsetree.Span
}

// Symbol is the externally visible description of one definition.
type Symbol struct {
	ID       semantic.GlobalID
	Name     string
	Kind     semantic.SymbolKind
	Path     string // dot-joined qualified path
	Location Location
}

// Definition is the outcome of a definition lookup: the resolution state
// of the reference under the cursor and its target symbols.
type Definition struct {
	State   semantic.ResolutionState
	Symbols []Symbol
}

// Index answers queries against one immutable snapshot.
type Index struct {
	table *symtab.Table
}

// NewIndex wraps a merged, resolved snapshot.
func NewIndex(table *symtab.Table) *Index {
	return &Index{table: table}
}

// Table exposes the underlying snapshot.
func (q *Index) Table() *symtab.Table { return q.table }

// DefinitionAt resolves the symbol under a byte offset. A reference takes
// priority; failing that, a definition whose span covers the offset
// answers for itself.
func (q *Index) DefinitionAt(path string, offset uint32) (*Definition, error) {
	file := q.table.FileByPath(path)
	if file == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFile, path)
	}

	if ref := innermostReference(file, offset); ref != nil {
		def := &Definition{State: ref.Resolution.State}
		for _, target := range ref.Resolution.Targets {
			if sym, ok := q.Symbol(target); ok {
				def.Symbols = append(def.Symbols, sym)
			}
		}
		return def, nil
	}

	if def := innermostDefinition(file, offset); def != nil {
		if gid, ok := q.table.GlobalID(file.Path, def.ID); ok {
			if sym, ok := q.Symbol(gid); ok {
				return &Definition{
					State:   semantic.StateResolved,
					Symbols: []Symbol{sym},
				}, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s:%d", ErrNoSymbol, path, offset)
}

// ReferencesOf lists every use-site resolving to the symbol, including
// polymorphic and ambiguous candidates, ordered by (file, span).
func (q *Index) ReferencesOf(id semantic.GlobalID) []Location {
	var out []Location
	for _, file := range q.table.Files() {
		for i := range file.References {
			ref := &file.References[i]
			for _, target := range ref.Resolution.Targets {
				if target == id {
					out = append(out, Location{File: file.Path, Span: ref.Span})
					break
				}
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		return out[i].Span.StartByte < out[j].Span.StartByte
	})
	return out
}

// ImplementationsOf lists the impl blocks implementing an interface,
// including implementations reached through supertrait edges.
func (q *Index) ImplementationsOf(id semantic.GlobalID) []Symbol {
	var out []Symbol
	for _, impl := range q.table.ImplementationsOf(id) {
		if sym, ok := q.Symbol(impl); ok {
			out = append(out, sym)
		}
	}
	return out
}

// Symbol materializes the description of one global symbol.
func (q *Index) Symbol(id semantic.GlobalID) (Symbol, bool) {
	def := q.table.DefinitionOf(id)
	file := q.table.FileOf(id)
	if def == nil || file == nil {
		return Symbol{}, false
	}
	return Symbol{
		ID:   id,
		Name: def.Name,
		Kind: def.Kind,
		Path: def.QualifiedPath(),
		Location: Location{
			File: file.Path,
			Span: def.Span,
		},
	}, true
}

// innermostReference picks the smallest reference span containing the
// offset; references never partially overlap, so smallest means innermost.
func innermostReference(file *semantic.FileIndex, offset uint32) *semantic.Reference {
	var best *semantic.Reference
	for i := range file.References {
		ref := &file.References[i]
		if !ref.Span.Contains(offset) {
			continue
		}
		if best == nil || ref.Span.EndByte-ref.Span.StartByte < best.Span.EndByte-best.Span.StartByte {
			best = ref
		}
	}
	return best
}

func innermostDefinition(file *semantic.FileIndex, offset uint32) *semantic.SymbolDefinition {
	var best *semantic.SymbolDefinition
	for i := range file.Definitions {
		def := &file.Definitions[i]
		if !def.Span.Contains(offset) {
			continue
		}
		if best == nil || def.Span.EndByte-def.Span.StartByte < best.Span.EndByte-best.Span.StartByte {
			best = def
		}
	}
	return best
}
