package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ariadne/internal/parsetree"
	"github.com/mvp-joe/ariadne/internal/semantic"
	"github.com/mvp-joe/ariadne/internal/symtab"
)

func node(kind parsetree.NodeKind, start, end uint32, text string, children ...parsetree.Node) parsetree.Node {
	return parsetree.New(kind, parsetree.Span{StartByte: start, EndByte: end}, text, children...)
}

func name(start uint32, text string) parsetree.Node {
	return node(parsetree.KindName, start, start+uint32(len(text)), text)
}

func vis(start uint32, text string) parsetree.Node {
	return node(parsetree.KindVisibility, start, start+uint32(len(text)), text)
}

func pathExpr(start uint32, segs ...string) parsetree.Node {
	var idents []parsetree.Node
	pos := start
	for _, s := range segs {
		idents = append(idents, node(parsetree.KindIdent, pos, pos+uint32(len(s)), s))
		pos += uint32(len(s)) + 2
	}
	return node(parsetree.KindPathExpr, start, pos, "", idents...)
}

func mustIndex(t *testing.T, path string, tree parsetree.Node) *semantic.FileIndex {
	t.Helper()
	index, err := semantic.IndexFile(path, tree)
	require.NoError(t, err)
	return index
}

func resolveAll(t *testing.T, files ...*semantic.FileIndex) *symtab.Table {
	t.Helper()
	table := symtab.Merge(files)
	New(table).ResolveAll()
	return table
}

// refNamed returns the first reference whose final segment matches.
func refNamed(file *semantic.FileIndex, last string) *semantic.Reference {
	for i := range file.References {
		segs := file.References[i].Segments
		if segs[len(segs)-1] == last {
			return &file.References[i]
		}
	}
	return nil
}

func targetName(t *testing.T, table *symtab.Table, res semantic.Resolution) string {
	t.Helper()
	require.Len(t, res.Targets, 1)
	return table.DefinitionOf(res.Targets[0]).Name
}

func TestLocalBindingShadowsGlobal(t *testing.T) {
	t.Parallel()

	// fn helper() {}  fn run() { let helper = ...; helper(); }
	tree := node(parsetree.KindSourceFile, 0, 200, "",
		node(parsetree.KindFunction, 0, 40, "",
			name(3, "helper"),
			node(parsetree.KindBlock, 12, 40, ""),
		),
		node(parsetree.KindFunction, 50, 190, "",
			name(53, "run"),
			node(parsetree.KindBlock, 60, 190, "",
				node(parsetree.KindVariable, 70, 90, "", name(74, "helper")),
				node(parsetree.KindCall, 100, 110, "",
					node(parsetree.KindIdent, 100, 106, "helper"),
				),
			),
		),
	)

	file := mustIndex(t, "src/m.rs", tree)
	table := resolveAll(t, file)

	ref := refNamed(file, "helper")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolved, ref.Resolution.State)

	def := table.DefinitionOf(ref.Resolution.Targets[0])
	assert.Equal(t, semantic.KindVariable, def.Kind, "the local binding wins over the module-level function")
}

func TestLocalDeclaredBetweenCallSitesSplitsResolution(t *testing.T) {
	t.Parallel()

	// import util::f; fn run() { f(); let f = ...; f(); }
	// The earlier call sees the import, the later call the local.
	util := mustIndex(t, "src/util.rs", node(parsetree.KindSourceFile, 0, 60, "",
		node(parsetree.KindFunction, 0, 50, "",
			vis(0, "pub"),
			name(7, "f"),
			node(parsetree.KindBlock, 12, 50, ""),
		),
	))

	app := mustIndex(t, "src/app.rs", node(parsetree.KindSourceFile, 0, 300, "",
		node(parsetree.KindImport, 0, 20, "", pathExpr(4, "util", "f")),
		node(parsetree.KindFunction, 30, 290, "",
			name(33, "run"),
			node(parsetree.KindBlock, 40, 290, "",
				node(parsetree.KindCall, 50, 60, "",
					node(parsetree.KindIdent, 50, 51, "f"),
				),
				node(parsetree.KindVariable, 70, 90, "", name(74, "f")),
				node(parsetree.KindCall, 100, 110, "",
					node(parsetree.KindIdent, 100, 101, "f"),
				),
			),
		),
	))

	table := resolveAll(t, util, app)

	var before, after *semantic.Reference
	for i := range app.References {
		ref := &app.References[i]
		switch ref.Span.StartByte {
		case 50:
			before = ref
		case 100:
			after = ref
		}
	}
	require.NotNil(t, before)
	require.NotNil(t, after)

	require.Equal(t, semantic.StateResolved, before.Resolution.State)
	assert.Equal(t, []string{"util", "f"}, table.DefinitionOf(before.Resolution.Targets[0]).Path,
		"call before the binding resolves to the import")

	require.Equal(t, semantic.StateResolved, after.Resolution.State)
	assert.Equal(t, semantic.KindVariable, table.DefinitionOf(after.Resolution.Targets[0]).Kind,
		"call after the binding resolves to the local")
}

func TestCrossFileResolutionThroughImport(t *testing.T) {
	t.Parallel()

	lib := mustIndex(t, "src/netlib.rs", node(parsetree.KindSourceFile, 0, 60, "",
		node(parsetree.KindFunction, 0, 50, "",
			vis(0, "pub"),
			name(7, "connect"),
			node(parsetree.KindBlock, 18, 50, ""),
		),
	))

	app := mustIndex(t, "src/app.rs", node(parsetree.KindSourceFile, 0, 120, "",
		node(parsetree.KindImport, 0, 30, "", pathExpr(4, "netlib", "connect")),
		node(parsetree.KindFunction, 40, 110, "",
			name(43, "main"),
			node(parsetree.KindBlock, 50, 110, "",
				node(parsetree.KindCall, 60, 75, "",
					node(parsetree.KindIdent, 60, 67, "connect"),
				),
			),
		),
	))

	table := resolveAll(t, lib, app)

	ref := refNamed(app, "connect")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolved, ref.Resolution.State)
	assert.Equal(t, "connect", targetName(t, table, ref.Resolution))
}

func TestUnknownNameIsUnresolvable(t *testing.T) {
	t.Parallel()

	file := mustIndex(t, "src/m.rs", node(parsetree.KindSourceFile, 0, 60, "",
		node(parsetree.KindFunction, 0, 50, "",
			name(3, "run"),
			node(parsetree.KindBlock, 10, 50, "",
				node(parsetree.KindIdent, 20, 27, "missing"),
			),
		),
	))
	resolveAll(t, file)

	ref := refNamed(file, "missing")
	require.NotNil(t, ref)
	assert.Equal(t, semantic.StateUnresolvable, ref.Resolution.State)
	assert.Empty(t, ref.Resolution.Targets)
}

func TestAmbiguousCandidatesAreOrdered(t *testing.T) {
	t.Parallel()

	a := mustIndex(t, "src/alpha.rs", node(parsetree.KindSourceFile, 0, 60, "",
		node(parsetree.KindFunction, 10, 50, "",
			vis(10, "pub"),
			name(17, "flush"),
			node(parsetree.KindBlock, 25, 50, ""),
		),
	))
	b := mustIndex(t, "src/beta.rs", node(parsetree.KindSourceFile, 0, 60, "",
		node(parsetree.KindFunction, 10, 50, "",
			vis(10, "pub"),
			name(17, "flush"),
			node(parsetree.KindBlock, 25, 50, ""),
		),
	))

	app := mustIndex(t, "src/app.rs", node(parsetree.KindSourceFile, 0, 150, "",
		node(parsetree.KindImport, 0, 30, "", pathExpr(4, "alpha", "*")),
		node(parsetree.KindImport, 31, 60, "", pathExpr(35, "beta", "*")),
		node(parsetree.KindFunction, 70, 140, "",
			name(73, "main"),
			node(parsetree.KindBlock, 80, 140, "",
				node(parsetree.KindCall, 90, 100, "",
					node(parsetree.KindIdent, 90, 95, "flush"),
				),
			),
		),
	))

	table := resolveAll(t, a, b, app)

	ref := refNamed(app, "flush")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateAmbiguous, ref.Resolution.State)
	require.Len(t, ref.Resolution.Targets, 2)

	// Deterministic candidate order: by owning file path.
	assert.Equal(t, "src/alpha.rs", table.FileOf(ref.Resolution.Targets[0]).Path)
	assert.Equal(t, "src/beta.rs", table.FileOf(ref.Resolution.Targets[1]).Path)
}

func TestEveryReferenceReachesTerminalState(t *testing.T) {
	t.Parallel()

	file := mustIndex(t, "src/m.rs", node(parsetree.KindSourceFile, 0, 200, "",
		node(parsetree.KindFunction, 0, 190, "",
			name(3, "run"),
			node(parsetree.KindBlock, 10, 190, "",
				node(parsetree.KindIdent, 20, 27, "unknown"),
				node(parsetree.KindVariable, 30, 50, "", name(34, "x")),
				node(parsetree.KindIdent, 60, 61, "x"),
				node(parsetree.KindFieldAccess, 70, 90, "",
					node(parsetree.KindIdent, 70, 71, "y"),
					node(parsetree.KindIdent, 85, 90, "field"),
				),
			),
		),
	))
	resolveAll(t, file)

	for _, ref := range file.References {
		assert.NotEqual(t, semantic.StateUnresolved, ref.Resolution.State,
			"reference %v must reach a terminal state", ref.Segments)
	}
}
