package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ariadne/internal/semantic"
)

// fileBuilder assembles a FileIndex by hand, the way the extractor would
// emit it, so table behavior can be tested without parse trees.
type fileBuilder struct {
	index *semantic.FileIndex
}

func newFile(path string, module ...string) *fileBuilder {
	return &fileBuilder{index: &semantic.FileIndex{
		Path:   path,
		Module: module,
		Scopes: []semantic.ScopeNode{{ID: 0, Kind: semantic.ScopeModule, Parent: semantic.NoScope}},
		// Preallocated so pointers returned by def stay valid across appends.
		Definitions: make([]semantic.SymbolDefinition, 0, 32),
	}}
}

func (b *fileBuilder) def(kind semantic.SymbolKind, vis semantic.Visibility, module []string, path ...string) *semantic.SymbolDefinition {
	id := semantic.SymbolID(len(b.index.Definitions))
	b.index.Definitions = append(b.index.Definitions, semantic.SymbolDefinition{
		ID:         id,
		Kind:       kind,
		Name:       path[len(path)-1],
		Path:       path,
		Module:     module,
		Scope:      0,
		Body:       semantic.NoScope,
		Visibility: vis,
	})
	return &b.index.Definitions[id]
}

func (b *fileBuilder) imp(edge semantic.ImportEdge) *fileBuilder {
	if edge.Module == nil {
		edge.Module = b.index.Module
	}
	b.index.Imports = append(b.index.Imports, edge)
	return b
}

func (b *fileBuilder) build() *semantic.FileIndex { return b.index }

func TestMergeOrderIndependent(t *testing.T) {
	t.Parallel()

	a := newFile("src/a.rs", "a")
	a.def(semantic.KindFunction, semantic.Public(), []string{"a"}, "a", "run")
	b := newFile("src/b.rs", "b")
	b.def(semantic.KindStruct, semantic.Public(), []string{"b"}, "b", "Config")

	forward := Merge([]*semantic.FileIndex{a.build(), b.build()})
	reversed := Merge([]*semantic.FileIndex{b.build(), a.build()})

	require.Len(t, forward.Symbols(), 2)
	require.Len(t, reversed.Symbols(), 2)
	for _, path := range [][]string{{"a", "run"}, {"b", "Config"}} {
		assert.Equal(t, forward.LookupExact(path), reversed.LookupExact(path))
	}
}

func TestPathSegmenter(t *testing.T) {
	t.Parallel()

	seg, next := pathSegmenter("a.b", 0)
	assert.Equal(t, "a.", seg)
	assert.Equal(t, 2, next)

	seg, next = pathSegmenter("a.b", 2)
	assert.Equal(t, "b", seg)
	assert.Equal(t, -1, next)

	// The trie calls the segmenter one more time with the -1 it was
	// handed back; that call must not slice the key.
	seg, next = pathSegmenter("a.b", -1)
	assert.Equal(t, "", seg)
	assert.Equal(t, -1, next)

	seg, next = pathSegmenter("", 0)
	assert.Equal(t, "", seg)
	assert.Equal(t, -1, next)
}

func TestMergeSkipsNilFiles(t *testing.T) {
	t.Parallel()

	a := newFile("src/a.rs", "a")
	a.def(semantic.KindFunction, semantic.Public(), []string{"a"}, "a", "run")

	table := Merge([]*semantic.FileIndex{nil, a.build(), nil})
	require.Len(t, table.Files(), 1)
	assert.Len(t, table.LookupExact([]string{"a", "run"}), 1)
}

func TestVisibilityLevels(t *testing.T) {
	t.Parallel()

	f := newFile("src/util.rs", "util")
	f.def(semantic.KindFunction, semantic.Public(), []string{"util"}, "util", "open")
	f.def(semantic.KindFunction, semantic.Private(), []string{"util"}, "util", "secret")
	f.def(semantic.KindFunction, semantic.RestrictedTo([]string{"crate"}), []string{"util"}, "util", "shared")

	table := Merge([]*semantic.FileIndex{f.build()})

	outside := []string{"app"}
	inside := []string{"util"}
	nested := []string{"util", "fs"}

	assert.Len(t, table.LookupVisible([]string{"util", "open"}, outside), 1)
	assert.Empty(t, table.LookupVisible([]string{"util", "secret"}, outside))
	assert.Len(t, table.LookupVisible([]string{"util", "secret"}, inside), 1)
	assert.Len(t, table.LookupVisible([]string{"util", "secret"}, nested), 1)

	// pub(crate) admits every module in the workspace.
	assert.Len(t, table.LookupVisible([]string{"util", "shared"}, outside), 1)
}

func TestRestrictedModuleBlocksDirectPath(t *testing.T) {
	t.Parallel()

	// mod m { pub(in m) mod inner { pub fn helper() } pub use inner::helper; }
	f := newFile("src/m.rs", "m")
	f.def(semantic.KindModule, semantic.RestrictedTo([]string{"m"}), []string{"m"}, "m", "inner")
	f.def(semantic.KindFunction, semantic.Public(), []string{"m", "inner"}, "m", "inner", "helper")
	f.imp(semantic.ImportEdge{
		Module:   []string{"m"},
		Path:     []string{"self", "inner", "helper"},
		ReExport: true,
	})

	table := Merge([]*semantic.FileIndex{f.build()})
	outside := []string{"app"}

	// The direct path crosses the restricted module and is denied.
	assert.Empty(t, table.LookupVisible([]string{"m", "inner", "helper"}, outside))

	// The re-export grants access from the importing module's vantage.
	got := table.LookupVisible([]string{"m", "helper"}, outside)
	require.Len(t, got, 1)
	assert.Equal(t, "helper", table.DefinitionOf(got[0]).Name)

	// Inside m both spellings work.
	assert.Len(t, table.LookupVisible([]string{"m", "inner", "helper"}, []string{"m"}), 1)
}

func TestPrivateImportNotVisibleOutside(t *testing.T) {
	t.Parallel()

	lib := newFile("src/lib_mod.rs", "lib_mod")
	lib.def(semantic.KindFunction, semantic.Public(), []string{"lib_mod"}, "lib_mod", "parse")

	user := newFile("src/user.rs", "user")
	user.imp(semantic.ImportEdge{Path: []string{"lib_mod", "parse"}})

	table := Merge([]*semantic.FileIndex{lib.build(), user.build()})

	// Inside user the plain import binds the name.
	assert.Len(t, table.LookupVisible([]string{"parse"}, []string{"user"}), 1)
	// Outside, user.parse is not a re-export and stays invisible.
	assert.Empty(t, table.LookupVisible([]string{"user", "parse"}, []string{"app"}))
}

func TestAliasChainAndCycle(t *testing.T) {
	t.Parallel()

	core := newFile("src/core_mod.rs", "core_mod")
	core.def(semantic.KindStruct, semantic.Public(), []string{"core_mod"}, "core_mod", "Engine")

	// mid re-exports Engine under a new name, top re-exports mid's alias.
	mid := newFile("src/mid.rs", "mid")
	mid.imp(semantic.ImportEdge{
		Path:     []string{"core_mod", "Engine"},
		Alias:    "Motor",
		ReExport: true,
	})
	top := newFile("src/top.rs", "top")
	top.imp(semantic.ImportEdge{
		Path:     []string{"mid", "Motor"},
		ReExport: true,
	})

	// Two modules re-exporting each other's alias form a cycle.
	ping := newFile("src/ping.rs", "ping")
	ping.imp(semantic.ImportEdge{Path: []string{"pong", "Val"}, ReExport: true})
	pong := newFile("src/pong.rs", "pong")
	pong.imp(semantic.ImportEdge{Path: []string{"ping", "Val"}, ReExport: true})

	table := Merge([]*semantic.FileIndex{
		core.build(), mid.build(), top.build(), ping.build(), pong.build(),
	})

	got := table.LookupVisible([]string{"top", "Motor"}, []string{"app"})
	require.Len(t, got, 1)
	assert.Equal(t, "Engine", table.DefinitionOf(got[0]).Name)

	// The cyclic chain terminates and resolves to nothing.
	assert.Empty(t, table.LookupVisible([]string{"ping", "Val"}, []string{"app"}))

	cyclic := 0
	for _, edge := range table.ImportEdges() {
		if edge.Status == semantic.ImportCyclic {
			cyclic++
		}
	}
	assert.Equal(t, 2, cyclic)
}

func TestDanglingImportMarkedUnresolved(t *testing.T) {
	t.Parallel()

	f := newFile("src/user.rs", "user")
	f.imp(semantic.ImportEdge{Path: []string{"missing", "thing"}})

	table := Merge([]*semantic.FileIndex{f.build()})
	edges := table.ImportEdges()
	require.Len(t, edges, 1)
	assert.Equal(t, semantic.ImportUnresolved, edges[0].Status)
}

func TestWildcardExpansionAndAmbiguity(t *testing.T) {
	t.Parallel()

	util := newFile("src/util.rs", "util")
	util.def(semantic.KindFunction, semantic.Public(), []string{"util"}, "util", "flush")
	util.def(semantic.KindFunction, semantic.Private(), []string{"util"}, "util", "hidden")

	other := newFile("src/other.rs", "other")
	other.def(semantic.KindFunction, semantic.Public(), []string{"other"}, "other", "flush")

	// app glob-imports util and explicitly imports other::flush.
	app := newFile("src/app.rs", "app")
	// The extractor strips the trailing "*" from a glob edge's Path.
	app.imp(semantic.ImportEdge{Path: []string{"util"}, Glob: true})
	app.imp(semantic.ImportEdge{Path: []string{"other", "flush"}})

	table := Merge([]*semantic.FileIndex{util.build(), other.build(), app.build()})

	// Both the glob and the explicit import supply flush; the resolver
	// turns a two-element candidate set into an ambiguity.
	got := table.LookupVisible([]string{"flush"}, []string{"app"})
	assert.Len(t, got, 2)

	// Glob imports never leak private symbols.
	assert.Empty(t, table.LookupVisible([]string{"hidden"}, []string{"app"}))

	// Expansion is cached; a second lookup returns the same set.
	again := table.LookupVisible([]string{"flush"}, []string{"app"})
	assert.Equal(t, got, again)
}

func TestInterfaceLinking(t *testing.T) {
	t.Parallel()

	f := newFile("src/handlers.rs", "handlers")
	f.def(semantic.KindInterface, semantic.Public(), []string{"handlers"}, "handlers", "Handler")

	implA := f.def(semantic.KindImpl, semantic.Private(), []string{"handlers"}, "handlers", "impl#0")
	implA.Interface = &semantic.TypeExpr{Segments: []string{"Handler"}}
	implA.Target = &semantic.TypeExpr{Segments: []string{"FileHandler"}}

	implB := f.def(semantic.KindImpl, semantic.Private(), []string{"handlers"}, "handlers", "impl#1")
	implB.Interface = &semantic.TypeExpr{Segments: []string{"Handler"}}
	implB.Target = &semantic.TypeExpr{Segments: []string{"NetHandler"}}

	// Sub extends Handler; its implementors satisfy Handler too.
	sub := f.def(semantic.KindInterface, semantic.Public(), []string{"handlers"}, "handlers", "Seekable")
	sub.Extends = []semantic.TypeExpr{{Segments: []string{"Handler"}}}

	implC := f.def(semantic.KindImpl, semantic.Private(), []string{"handlers"}, "handlers", "impl#2")
	implC.Interface = &semantic.TypeExpr{Segments: []string{"Seekable"}}
	implC.Target = &semantic.TypeExpr{Segments: []string{"DiskHandler"}}

	table := Merge([]*semantic.FileIndex{f.build()})

	ifaceIDs := table.LookupExact([]string{"handlers", "Handler"})
	require.Len(t, ifaceIDs, 1)

	impls := table.ImplementationsOf(ifaceIDs[0])
	require.Len(t, impls, 3)

	targets := make([]string, 0, len(impls))
	for _, id := range impls {
		targets = append(targets, table.DefinitionOf(id).Target.Name())
	}
	assert.ElementsMatch(t, []string{"FileHandler", "NetHandler", "DiskHandler"}, targets)

	assert.True(t, table.Satisfies("DiskHandler", ifaceIDs[0]))
	assert.False(t, table.Satisfies("Unrelated", ifaceIDs[0]))
}

func TestImplementationsOfOrderDeterministic(t *testing.T) {
	t.Parallel()

	// Base has two extending interfaces so the supertrait walk visits
	// more than one map entry; implementations live in separate files and
	// must come back in (file path, span) order on every call.
	iface := newFile("src/iface.rs", "iface")
	iface.def(semantic.KindInterface, semantic.Public(), []string{"iface"}, "iface", "Base")
	mid := iface.def(semantic.KindInterface, semantic.Public(), []string{"iface"}, "iface", "Mid")
	mid.Extends = []semantic.TypeExpr{{Segments: []string{"Base"}}}
	deep := iface.def(semantic.KindInterface, semantic.Public(), []string{"iface"}, "iface", "Deep")
	deep.Extends = []semantic.TypeExpr{{Segments: []string{"Base"}}}

	a := newFile("src/a.rs", "a")
	implA := a.def(semantic.KindImpl, semantic.Private(), []string{"a"}, "a", "impl#0")
	implA.Interface = &semantic.TypeExpr{Segments: []string{"iface", "Deep"}}
	implA.Target = &semantic.TypeExpr{Segments: []string{"Alpha"}}

	x := newFile("src/x.rs", "x")
	implX := x.def(semantic.KindImpl, semantic.Private(), []string{"x"}, "x", "impl#0")
	implX.Interface = &semantic.TypeExpr{Segments: []string{"iface", "Mid"}}
	implX.Target = &semantic.TypeExpr{Segments: []string{"Xray"}}

	z := newFile("src/z.rs", "z")
	implZ := z.def(semantic.KindImpl, semantic.Private(), []string{"z"}, "z", "impl#0")
	implZ.Interface = &semantic.TypeExpr{Segments: []string{"iface", "Base"}}
	implZ.Target = &semantic.TypeExpr{Segments: []string{"Zulu"}}

	table := Merge([]*semantic.FileIndex{iface.build(), a.build(), x.build(), z.build()})

	baseIDs := table.LookupExact([]string{"iface", "Base"})
	require.Len(t, baseIDs, 1)

	first := table.ImplementationsOf(baseIDs[0])
	require.Len(t, first, 3)

	targets := make([]string, 0, len(first))
	for _, id := range first {
		targets = append(targets, table.DefinitionOf(id).Target.Name())
	}
	assert.Equal(t, []string{"Alpha", "Xray", "Zulu"}, targets)

	for i := 0; i < 10; i++ {
		assert.Equal(t, first, table.ImplementationsOf(baseIDs[0]))
	}
}

func TestWalkPrefix(t *testing.T) {
	t.Parallel()

	f := newFile("src/m.rs", "m")
	f.def(semantic.KindFunction, semantic.Public(), []string{"m"}, "m", "one")
	f.def(semantic.KindFunction, semantic.Public(), []string{"m"}, "m", "two")
	f.def(semantic.KindFunction, semantic.Public(), []string{"n"}, "n", "three")

	table := Merge([]*semantic.FileIndex{f.build()})

	var paths []string
	table.WalkPrefix([]string{"m"}, func(path string, _ []semantic.GlobalID) bool {
		paths = append(paths, path)
		return true
	})
	assert.ElementsMatch(t, []string{"m.one", "m.two"}, paths)
}
