// Package symtab builds the project-wide symbol table: the merge of every
// file's extraction output into one path-keyed index, plus the resolved
// import/alias graph and the lazily-expanded wildcard import sets. A merged
// table is an immutable snapshot; re-indexing a file produces a new merge,
// never an in-place patch.
package symtab

import (
	"errors"
	"sort"
	"strings"

	"github.com/dghubble/trie"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mvp-joe/ariadne/internal/semantic"
)

// PathSeparator joins qualified path segments in table keys.
const PathSeparator = "."

// GlobalSymbol maps a snapshot-wide id back to its owning file and the
// file-local definition record.
type GlobalSymbol struct {
	ID    semantic.GlobalID
	File  semantic.FileID
	Local semantic.SymbolID
}

// Table is the merged, immutable project index.
type Table struct {
	SnapshotID uuid.UUID

	files   []*semantic.FileIndex
	fileIDs map[string]semantic.FileID

	globals  []GlobalSymbol
	globalOf map[string]map[semantic.SymbolID]semantic.GlobalID // file path -> local -> global

	// byPath maps dot-joined qualified paths to ordered candidate sets:
	// overloads and multiple trait implementations of one path are legal.
	byPath map[string][]semantic.GlobalID

	// paths indexes qualified paths by prefix for namespace walks.
	paths *trie.PathTrie

	aliases   *aliasMap
	wildcards *wildcardIndex

	implsByInterface map[semantic.GlobalID][]semantic.GlobalID
	implsByTarget    map[string][]semantic.GlobalID             // concrete target name -> impls
	blanketImpls     []semantic.GlobalID                        // impls targeting a type parameter
	extends          map[semantic.GlobalID][]semantic.GlobalID // interface -> supers
}

// Merge builds a Table from per-file indexes. It is a pure function of its
// inputs: files are sorted by path before id assignment, so the result is
// independent of input order. Nil entries (failed extractions) are skipped
// rather than treated as fatal.
func Merge(files []*semantic.FileIndex) *Table {
	kept := make([]*semantic.FileIndex, 0, len(files))
	for _, f := range files {
		if f == nil {
			continue
		}
		kept = append(kept, f)
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i].Path < kept[j].Path })

	t := &Table{
		SnapshotID:       uuid.New(),
		files:            kept,
		fileIDs:          make(map[string]semantic.FileID, len(kept)),
		globalOf:         make(map[string]map[semantic.SymbolID]semantic.GlobalID, len(kept)),
		byPath:           make(map[string][]semantic.GlobalID),
		paths:            trie.NewPathTrieWithConfig(&trie.PathTrieConfig{Segmenter: pathSegmenter}),
		implsByInterface: make(map[semantic.GlobalID][]semantic.GlobalID),
		implsByTarget:    make(map[string][]semantic.GlobalID),
		extends:          make(map[semantic.GlobalID][]semantic.GlobalID),
	}

	for fi, file := range kept {
		fileID := semantic.FileID(fi)
		t.fileIDs[file.Path] = fileID
		locals := make(map[semantic.SymbolID]semantic.GlobalID, len(file.Definitions))
		t.globalOf[file.Path] = locals

		for di := range file.Definitions {
			def := &file.Definitions[di]
			gid := semantic.GlobalID(len(t.globals))
			t.globals = append(t.globals, GlobalSymbol{ID: gid, File: fileID, Local: def.ID})
			locals[def.ID] = gid

			key := def.QualifiedPath()
			t.byPath[key] = append(t.byPath[key], gid)
			if existing, ok := t.paths.Get(key).([]semantic.GlobalID); ok {
				t.paths.Put(key, append(existing, gid))
			} else {
				t.paths.Put(key, []semantic.GlobalID{gid})
			}
		}
	}

	t.aliases = buildAliases(t)
	t.wildcards = buildWildcards(t)
	t.linkInterfaces()

	log.Debug().
		Str("snapshot", t.SnapshotID.String()).
		Int("files", len(t.files)).
		Int("symbols", len(t.globals)).
		Msg("symbol table merged")
	return t
}

// pathSegmenter splits trie keys on PathSeparator. The trie calls it once
// more with the -1 returned after the final segment, so start must be
// range-checked on both ends.
func pathSegmenter(path string, start int) (segment string, next int) {
	if start < 0 || start >= len(path) {
		return "", -1
	}
	end := strings.Index(path[start:], PathSeparator)
	if end < 0 {
		return path[start:], -1
	}
	return path[start : start+end+1], start + end + 1
}

// linkInterfaces builds the implementation index and the "satisfies" DAG
// between interfaces, resolving impl targets and supertraits by qualified
// name and generic arity.
func (t *Table) linkInterfaces() {
	for _, g := range t.globals {
		def := t.DefinitionOf(g.ID)
		file := t.files[g.File]

		switch def.Kind {
		case semantic.KindImpl:
			if def.Target != nil {
				if isBlanketTarget(def) {
					t.blanketImpls = append(t.blanketImpls, g.ID)
				} else {
					t.implsByTarget[def.Target.Name()] = append(t.implsByTarget[def.Target.Name()], g.ID)
				}
			}
			if def.Interface == nil {
				continue
			}
			for _, ifaceID := range t.resolveTypeName(*def.Interface, file.Module) {
				iface := t.DefinitionOf(ifaceID)
				if iface.Kind != semantic.KindInterface {
					continue
				}
				t.implsByInterface[ifaceID] = append(t.implsByInterface[ifaceID], g.ID)
			}
		case semantic.KindInterface:
			for _, super := range def.Extends {
				for _, superID := range t.resolveTypeName(super, file.Module) {
					if t.DefinitionOf(superID).Kind == semantic.KindInterface {
						t.extends[g.ID] = append(t.extends[g.ID], superID)
					}
				}
			}
		}
	}
}

// resolveTypeName finds definitions matching a type expression by name
// within the given module, its imports, or the global namespace, matching
// generic arity. This is the merge-time variant used for interface linking;
// full call-site resolution lives in the resolve package.
func (t *Table) resolveTypeName(expr semantic.TypeExpr, module []string) []semantic.GlobalID {
	if len(expr.Segments) == 0 {
		return nil
	}

	candidates := t.LookupVisible(expr.Segments, module)
	var out []semantic.GlobalID
	for _, gid := range candidates {
		def := t.DefinitionOf(gid)
		if typeArityMatches(def, expr) {
			out = append(out, gid)
		}
	}
	return out
}

// typeArityMatches accepts a definition when the reference supplies no
// generic arguments (bare name) or exactly as many as the type declares.
func typeArityMatches(def *semantic.SymbolDefinition, expr semantic.TypeExpr) bool {
	if len(expr.Args) == 0 {
		return true
	}
	return len(expr.Args) == len(def.TypeParams)
}

// Files returns the merged file indexes in path order.
func (t *Table) Files() []*semantic.FileIndex { return t.files }

// File returns the file index with the given id, or nil.
func (t *Table) File(id semantic.FileID) *semantic.FileIndex {
	if id < 0 || int(id) >= len(t.files) {
		return nil
	}
	return t.files[id]
}

// FileByPath returns the file index for a workspace path, or nil.
func (t *Table) FileByPath(path string) *semantic.FileIndex {
	id, ok := t.fileIDs[path]
	if !ok {
		return nil
	}
	return t.files[id]
}

// Symbols returns the flat global symbol records.
func (t *Table) Symbols() []GlobalSymbol { return t.globals }

// DefinitionOf returns the definition record behind a global id, or nil.
func (t *Table) DefinitionOf(id semantic.GlobalID) *semantic.SymbolDefinition {
	if id < 0 || int(id) >= len(t.globals) {
		return nil
	}
	g := t.globals[id]
	return t.files[g.File].Definition(g.Local)
}

// FileOf returns the file owning a global id, or nil.
func (t *Table) FileOf(id semantic.GlobalID) *semantic.FileIndex {
	if id < 0 || int(id) >= len(t.globals) {
		return nil
	}
	return t.files[t.globals[id].File]
}

// GlobalID translates a (file, local symbol) pair into its snapshot id.
func (t *Table) GlobalID(filePath string, local semantic.SymbolID) (semantic.GlobalID, bool) {
	locals, ok := t.globalOf[filePath]
	if !ok {
		return semantic.NoGlobal, false
	}
	gid, ok := locals[local]
	return gid, ok
}

// LookupExact returns the candidate set registered under a qualified path,
// with no visibility filtering.
func (t *Table) LookupExact(path []string) []semantic.GlobalID {
	return t.byPath[strings.Join(path, PathSeparator)]
}

// LookupVisible resolves a qualified path for a requesting module: exact
// definitions first, then alias and wildcard-import expansion at every
// segment boundary, all filtered by visibility. A re-export grants access
// from the importing module's vantage, so a public re-export exposes a
// symbol whose direct path is blocked by a restricted module. The returned
// set preserves registration order; more than one survivor means the name
// is ambiguous at the call shape level and is reported as such by the
// resolver.
func (t *Table) LookupVisible(path []string, requester []string) []semantic.GlobalID {
	if len(path) == 0 {
		return nil
	}

	seen := make(map[semantic.GlobalID]struct{})
	var out []semantic.GlobalID
	add := func(ids []semantic.GlobalID, vantage []string) {
		for _, id := range ids {
			if _, dup := seen[id]; dup {
				continue
			}
			if t.visibleThrough(id, vantage) {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}

	// Absolute path, then relative to the requesting module.
	add(t.LookupExact(path), requester)
	if len(requester) > 0 {
		add(t.LookupExact(append(append([]string{}, requester...), path...)), requester)
	}

	// Any segment may be a name imported into the module the preceding
	// segments denote: an alias or glob in the requesting module for the
	// head, a re-export for segments reached from outside that module.
	for i := 0; i < len(path); i++ {
		name, rest := path[i], path[i+1:]
		for _, module := range t.importingModules(path[:i], requester) {
			inside := withinModule(requester, module)
			vantage := requester
			if !inside {
				vantage = module
			}

			for _, target := range t.aliases.resolve(module, name, inside) {
				full := append(append([]string{}, target...), rest...)
				add(t.LookupExact(full), vantage)
			}
			add(t.wildcards.expand(t, module, name, rest, !inside), vantage)
		}
	}

	return out
}

// importingModules lists the modules a path prefix may denote for the
// requester: the requester's own module for the empty prefix, otherwise
// the prefix taken as absolute plus the prefix relative to the requester.
func (t *Table) importingModules(prefix []string, requester []string) [][]string {
	if len(prefix) == 0 {
		return [][]string{requester}
	}
	abs := append([]string{}, prefix...)
	rel := append(append([]string{}, requester...), prefix...)
	if strings.Join(abs, PathSeparator) == strings.Join(rel, PathSeparator) {
		return [][]string{abs}
	}
	return [][]string{abs, rel}
}

// hasPath reports whether any definition lives at the path or beneath it.
func (t *Table) hasPath(path []string) bool {
	if len(t.byPath[strings.Join(path, PathSeparator)]) > 0 {
		return true
	}
	found := false
	t.WalkPrefix(path, func(string, []semantic.GlobalID) bool {
		found = true
		return false
	})
	return found
}

// visibleThrough checks the definition's own visibility plus the
// visibility of every module segment its path traverses, both judged from
// the given vantage module: a public symbol inside a restricted module is
// unreachable by its direct path.
func (t *Table) visibleThrough(id semantic.GlobalID, requester []string) bool {
	def := t.DefinitionOf(id)
	if !Visible(def, requester) {
		return false
	}

	// Walk the definition's own qualified path and check each enclosing
	// module definition the requester would traverse.
	for i := 1; i < len(def.Path); i++ {
		prefix := strings.Join(def.Path[:i], PathSeparator)
		for _, midID := range t.byPath[prefix] {
			mid := t.DefinitionOf(midID)
			if mid.Kind != semantic.KindModule {
				continue
			}
			if !Visible(mid, requester) {
				return false
			}
		}
	}
	return true
}

// ImplementationsOf returns the implementation blocks registered against an
// interface, including implementations of interfaces that declare it as a
// supertrait (their targets satisfy this interface too).
func (t *Table) ImplementationsOf(iface semantic.GlobalID) []semantic.GlobalID {
	seen := make(map[semantic.GlobalID]struct{})
	var out []semantic.GlobalID

	var collect func(id semantic.GlobalID)
	collect = func(id semantic.GlobalID) {
		for _, impl := range t.implsByInterface[id] {
			if _, dup := seen[impl]; !dup {
				seen[impl] = struct{}{}
				out = append(out, impl)
			}
		}
		// Interfaces extending this one: their implementors satisfy it.
		for sub, supers := range t.extends {
			for _, super := range supers {
				if super == id {
					collect(sub)
				}
			}
		}
	}
	collect(iface)
	// The extends map walk above is unordered; pin the result order.
	sort.SliceStable(out, func(i, j int) bool {
		fi, fj := t.FileOf(out[i]), t.FileOf(out[j])
		if fi.Path != fj.Path {
			return fi.Path < fj.Path
		}
		return t.DefinitionOf(out[i]).Span.StartByte < t.DefinitionOf(out[j]).Span.StartByte
	})
	return out
}

// Satisfies reports whether the named type has an implementation of the
// interface, directly or through the supertrait DAG.
func (t *Table) Satisfies(typeName string, iface semantic.GlobalID) bool {
	for _, implID := range t.ImplementationsOf(iface) {
		impl := t.DefinitionOf(implID)
		if impl.Target != nil && impl.Target.Name() == typeName {
			return true
		}
	}
	return false
}

// Extends returns the direct supertraits of an interface.
func (t *Table) Extends(iface semantic.GlobalID) []semantic.GlobalID {
	return t.extends[iface]
}

// isBlanketTarget reports whether an impl block is written against one of
// its own type parameters rather than a concrete type.
func isBlanketTarget(def *semantic.SymbolDefinition) bool {
	name := def.Target.Name()
	for _, p := range def.TypeParams {
		if p.Name == name {
			return true
		}
	}
	return false
}

// ImplsFor returns the impl blocks written against the named concrete
// type, inherent and trait impls alike.
func (t *Table) ImplsFor(typeName string) []semantic.GlobalID {
	return t.implsByTarget[typeName]
}

// BlanketImpls returns the impl blocks written against a type parameter.
func (t *Table) BlanketImpls() []semantic.GlobalID {
	return t.blanketImpls
}

// errStopWalk terminates a trie walk early; it never escapes WalkPrefix.
var errStopWalk = errors.New("symtab: stop walk")

// WalkPrefix visits every (qualified path, candidate set) under a path
// prefix, in trie order. The visitor returns false to stop.
func (t *Table) WalkPrefix(prefix []string, visit func(path string, ids []semantic.GlobalID) bool) {
	key := strings.Join(prefix, PathSeparator)
	_ = t.paths.Walk(func(p string, value any) error {
		if p != key && !strings.HasPrefix(p, key+PathSeparator) {
			return nil
		}
		ids, ok := value.([]semantic.GlobalID)
		if !ok {
			return nil
		}
		if !visit(p, ids) {
			return errStopWalk
		}
		return nil
	})
}

// ImportEdges returns the annotated copies of every file's import edges,
// with merge-time status (cyclic, unresolved) filled in.
func (t *Table) ImportEdges() []semantic.ImportEdge {
	return t.aliases.edges
}
