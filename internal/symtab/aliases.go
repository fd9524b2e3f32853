package symtab

import (
	"strings"

	"github.com/dominikbraun/graph"
	"github.com/rs/zerolog/log"

	"github.com/mvp-joe/ariadne/internal/semantic"
)

// aliasEntry is one resolved import binding: module-local name -> target
// path. Re-exports additionally publish the name under the importing
// module's own path.
type aliasEntry struct {
	module   []string
	name     string
	target   []string // normalized absolute path
	reexport bool
	status   semantic.ImportStatus
}

func (e *aliasEntry) key() string {
	return aliasKey(e.module, e.name)
}

func aliasKey(module []string, name string) string {
	return strings.Join(module, PathSeparator) + "\x00" + name
}

// aliasMap is the transitive alias graph of the snapshot. Chains are
// followed lazily with revisit detection; cycles are detected eagerly at
// build time so every edge in a cycle carries CyclicImport status.
type aliasMap struct {
	entries map[string][]*aliasEntry
	edges   []semantic.ImportEdge // annotated copies, all files, glob included
}

// buildAliases collects every non-glob import edge, normalizes relative
// targets against the importing module, and marks cyclic chains using the
// strongly connected components of the alias graph.
func buildAliases(t *Table) *aliasMap {
	am := &aliasMap{entries: make(map[string][]*aliasEntry)}

	for _, file := range t.files {
		for _, edge := range file.Imports {
			annotated := edge
			if !edge.Glob {
				entry := &aliasEntry{
					module:   edge.Module,
					name:     edge.LocalName(),
					target:   normalizeImportPath(edge.Module, edge.Path),
					reexport: edge.ReExport,
				}
				am.entries[entry.key()] = append(am.entries[entry.key()], entry)
			}
			am.edges = append(am.edges, annotated)
		}
	}

	am.markCycles()

	// Terminal targets that name nothing in the snapshot are dangling.
	for _, entries := range am.entries {
		for _, entry := range entries {
			if entry.status != semantic.ImportOK || am.nextHopKey(entry) != "" {
				continue
			}
			if !t.hasPath(entry.target) {
				entry.status = semantic.ImportUnresolved
			}
		}
	}

	// Reflect merge-time status back onto the annotated edge copies.
	for i := range am.edges {
		e := &am.edges[i]
		if e.Glob {
			if !t.hasPath(normalizeImportPath(e.Module, e.Path)) {
				e.Status = semantic.ImportUnresolved
			}
			continue
		}
		for _, entry := range am.entries[aliasKey(e.Module, e.LocalName())] {
			if entry.status != semantic.ImportOK {
				e.Status = entry.status
			}
		}
	}
	return am
}

// markCycles builds a directed graph over alias keys and marks every entry
// belonging to a non-trivial strongly connected component (or a self-loop)
// as a cyclic import.
func (am *aliasMap) markCycles() {
	g := graph.New(graph.StringHash, graph.Directed())

	for key := range am.entries {
		_ = g.AddVertex(key)
	}
	selfLoops := make(map[string]bool)
	for key, entries := range am.entries {
		for _, entry := range entries {
			next := am.nextHopKey(entry)
			if next == "" {
				continue
			}
			if next == key {
				selfLoops[key] = true
				continue
			}
			_ = g.AddEdge(key, next)
		}
	}

	components, err := graph.StronglyConnectedComponents(g)
	if err != nil {
		log.Warn().Err(err).Msg("alias cycle detection failed")
		return
	}

	cyclic := make(map[string]bool)
	for _, component := range components {
		if len(component) > 1 {
			for _, key := range component {
				cyclic[key] = true
			}
		}
	}
	for key := range selfLoops {
		cyclic[key] = true
	}

	for key := range cyclic {
		for _, entry := range am.entries[key] {
			entry.status = semantic.ImportCyclic
		}
		log.Debug().Str("alias", strings.ReplaceAll(key, "\x00", PathSeparator)).
			Msg("cyclic import chain")
	}
}

// nextHopKey returns the alias key the entry's target chains to, or ""
// when the target is not itself an alias.
func (am *aliasMap) nextHopKey(entry *aliasEntry) string {
	if len(entry.target) == 0 {
		return ""
	}
	module, name := entry.target[:len(entry.target)-1], entry.target[len(entry.target)-1]
	key := aliasKey(module, name)
	if _, ok := am.entries[key]; ok {
		return key
	}
	return ""
}

// lookup returns the entries binding name inside the given module.
func (am *aliasMap) lookup(module []string, name string) []*aliasEntry {
	return am.entries[aliasKey(module, name)]
}

// resolve follows the alias chains for (module, name) to their terminal
// paths. Revisited (module, name) pairs abort the chain: a cyclic chain
// contributes no targets. When includePrivate is false only re-exported
// entries count, which is the view a requester outside the module gets.
// Multiple surviving targets are legal; the caller reports ambiguity.
func (am *aliasMap) resolve(module []string, name string, includePrivate bool) [][]string {
	var out [][]string
	for _, entry := range am.lookup(module, name) {
		if entry.status == semantic.ImportCyclic {
			continue
		}
		if !includePrivate && !entry.reexport {
			continue
		}
		if target, ok := am.chase(entry, make(map[string]bool)); ok {
			out = append(out, target)
		}
	}
	return out
}

// chase walks one chain with a visited set. The set is the termination
// guarantee the cycle marker cannot give us for chains that merge into a
// cycle without belonging to it.
func (am *aliasMap) chase(entry *aliasEntry, visited map[string]bool) ([]string, bool) {
	key := entry.key()
	if visited[key] {
		return nil, false
	}
	visited[key] = true

	next := am.nextHopKey(entry)
	if next == "" {
		return entry.target, true
	}
	for _, nextEntry := range am.entries[next] {
		if nextEntry.status == semantic.ImportCyclic {
			continue
		}
		if target, ok := am.chase(nextEntry, visited); ok {
			return target, true
		}
	}
	// The chain dead-ends in cyclic or missing entries; the raw target may
	// still name a real definition.
	return entry.target, true
}

// normalizeImportPath turns a possibly-relative import path into an
// absolute qualified path. "crate" roots at the workspace, "self" at the
// importing module, "super" at its parent; a head segment naming a child
// of the importing module resolves relative to it, anything else is taken
// as already absolute.
func normalizeImportPath(module []string, path []string) []string {
	if len(path) == 0 {
		return nil
	}
	switch path[0] {
	case "crate":
		return append([]string{}, path[1:]...)
	case "self":
		return append(append([]string{}, module...), path[1:]...)
	case "super":
		root := append([]string{}, module...)
		for len(path) > 0 && path[0] == "super" {
			if len(root) > 0 {
				root = root[:len(root)-1]
			}
			path = path[1:]
		}
		return append(root, path...)
	default:
		return append([]string{}, path...)
	}
}
