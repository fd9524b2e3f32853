package symtab

import (
	"strings"

	"github.com/maypok86/otter"
	"github.com/rs/zerolog/log"

	"github.com/mvp-joe/ariadne/internal/semantic"
)

// wildcardCacheSize bounds the memo of expanded (module, name) pairs.
const wildcardCacheSize = 4096

// globEdge is one wildcard import declared by a module, with its source
// path already normalized to an absolute qualified path.
type globEdge struct {
	module   []string
	source   []string
	reexport bool
}

// wildcardIndex holds the glob imports of every module. Expansion is lazy:
// a wildcard contributes candidates only when a lookup asks for a concrete
// name in the importing module, and the result is memoized per
// (module, name, visibility class).
type wildcardIndex struct {
	globs map[string][]globEdge // module key -> declared globs
	cache otter.Cache[string, []semantic.GlobalID]
}

func buildWildcards(t *Table) *wildcardIndex {
	w := &wildcardIndex{globs: make(map[string][]globEdge)}

	for _, file := range t.files {
		for _, edge := range file.Imports {
			if !edge.Glob {
				continue
			}
			key := strings.Join(edge.Module, PathSeparator)
			w.globs[key] = append(w.globs[key], globEdge{
				module:   edge.Module,
				source:   normalizeImportPath(edge.Module, edge.Path),
				reexport: edge.ReExport,
			})
		}
	}

	cache, err := otter.MustBuilder[string, []semantic.GlobalID](wildcardCacheSize).Build()
	if err != nil {
		// Only reachable with a broken builder configuration.
		log.Warn().Err(err).Msg("wildcard cache disabled")
	}
	w.cache = cache
	return w
}

// expand resolves name through the wildcard imports of module. When
// reexportOnly is set (the requester sits outside the module) only
// re-exported globs are consulted. rest extends the matched definition's
// path for multi-segment references through a glob-imported name.
func (w *wildcardIndex) expand(t *Table, module []string, name string, rest []string, reexportOnly bool) []semantic.GlobalID {
	base := w.baseCandidates(t, module, name, reexportOnly)
	if len(rest) == 0 {
		return base
	}

	var out []semantic.GlobalID
	for _, gid := range base {
		def := t.DefinitionOf(gid)
		full := append(append([]string{}, def.Path...), rest...)
		out = append(out, t.LookupExact(full)...)
	}
	return out
}

// baseCandidates returns the definitions a glob import would bring into
// the module under the given name, consulting the memo first.
func (w *wildcardIndex) baseCandidates(t *Table, module []string, name string, reexportOnly bool) []semantic.GlobalID {
	edges := w.globs[strings.Join(module, PathSeparator)]
	if len(edges) == 0 {
		return nil
	}

	key := strings.Join(module, PathSeparator) + "\x00" + name
	if reexportOnly {
		key += "\x00pub"
	}
	if cached, ok := w.cache.Get(key); ok {
		return cached
	}

	var out []semantic.GlobalID
	for _, edge := range edges {
		if reexportOnly && !edge.reexport {
			continue
		}
		target := append(append([]string{}, edge.source...), name)
		out = append(out, t.LookupExact(target)...)

		// The source module may itself re-export the name.
		for _, aliased := range t.aliases.resolve(edge.source, name, false) {
			out = append(out, t.LookupExact(aliased)...)
		}
	}

	w.cache.Set(key, out)
	return out
}
