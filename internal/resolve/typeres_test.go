package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvp-joe/ariadne/internal/parsetree"
	"github.com/mvp-joe/ariadne/internal/semantic"
)

func implBlock(start, end uint32, iface, target string, methods ...parsetree.Node) parsetree.Node {
	children := []parsetree.Node{}
	pos := start + 5
	if iface != "" {
		children = append(children, node(parsetree.KindTypeRef, pos, pos+uint32(len(iface)), iface))
		pos += uint32(len(iface)) + 5
	}
	children = append(children, node(parsetree.KindTypeRef, pos, pos+uint32(len(target)), target))
	children = append(children, methods...)
	return node(parsetree.KindImpl, start, end, "", children...)
}

func method(start, end uint32, methodName string) parsetree.Node {
	return node(parsetree.KindFunction, start, end, "",
		name(start+3, methodName),
		node(parsetree.KindParameter, start+10, start+14, "", name(start+10, "self")),
		node(parsetree.KindBlock, start+16, end, ""),
	)
}

func TestPolymorphicDispatchOnDynReceiver(t *testing.T) {
	t.Parallel()

	handlers := mustIndex(t, "src/handlers.rs", node(parsetree.KindSourceFile, 0, 700, "",
		node(parsetree.KindInterface, 0, 60, "",
			vis(0, "pub"),
			name(10, "Handler"),
			method(20, 55, "handle"),
		),
		node(parsetree.KindStruct, 70, 90, "", vis(70, "pub"), name(80, "FileHandler")),
		node(parsetree.KindStruct, 95, 115, "", vis(95, "pub"), name(105, "NetHandler")),
		node(parsetree.KindStruct, 120, 140, "", vis(120, "pub"), name(130, "NullHandler")),
		implBlock(150, 250, "Handler", "FileHandler", method(200, 245, "handle")),
		implBlock(260, 360, "Handler", "NetHandler", method(310, 355, "handle")),
		implBlock(370, 470, "Handler", "NullHandler", method(420, 465, "handle")),
	))

	app := mustIndex(t, "src/app.rs", node(parsetree.KindSourceFile, 0, 200, "",
		node(parsetree.KindImport, 0, 30, "", pathExpr(4, "handlers", "Handler")),
		node(parsetree.KindFunction, 40, 190, "",
			name(43, "dispatch"),
			node(parsetree.KindParameter, 55, 75, "",
				name(55, "h"),
				node(parsetree.KindTypeRef, 58, 75, "&dyn Handler"),
			),
			node(parsetree.KindBlock, 80, 190, "",
				node(parsetree.KindCall, 90, 110, "",
					node(parsetree.KindFieldAccess, 90, 105, "",
						node(parsetree.KindIdent, 90, 91, "h"),
						node(parsetree.KindIdent, 92, 98, "handle"),
					),
				),
			),
		),
	))

	table := resolveAll(t, handlers, app)

	ref := refNamed(app, "handle")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolvedPolymorphic, ref.Resolution.State)
	require.Len(t, ref.Resolution.Targets, 3, "one candidate per implementation")

	for _, id := range ref.Resolution.Targets {
		def := table.DefinitionOf(id)
		assert.Equal(t, "handle", def.Name)
		assert.Equal(t, semantic.KindFunction, def.Kind)
	}
}

func TestPolymorphicDispatchIncludesDefaultMethodImpl(t *testing.T) {
	t.Parallel()

	// NullHandler's impl omits handle and inherits the trait's default
	// body; the dyn call must still count it, one target per
	// implementation.
	handlers := mustIndex(t, "src/handlers.rs", node(parsetree.KindSourceFile, 0, 700, "",
		node(parsetree.KindInterface, 0, 60, "",
			vis(0, "pub"),
			name(10, "Handler"),
			method(20, 55, "handle"),
		),
		node(parsetree.KindStruct, 70, 90, "", vis(70, "pub"), name(80, "FileHandler")),
		node(parsetree.KindStruct, 95, 115, "", vis(95, "pub"), name(105, "NetHandler")),
		node(parsetree.KindStruct, 120, 140, "", vis(120, "pub"), name(130, "NullHandler")),
		implBlock(150, 250, "Handler", "FileHandler", method(200, 245, "handle")),
		implBlock(260, 360, "Handler", "NetHandler", method(310, 355, "handle")),
		implBlock(370, 470, "Handler", "NullHandler"),
	))

	app := mustIndex(t, "src/app.rs", node(parsetree.KindSourceFile, 0, 200, "",
		node(parsetree.KindImport, 0, 30, "", pathExpr(4, "handlers", "Handler")),
		node(parsetree.KindFunction, 40, 190, "",
			name(43, "dispatch"),
			node(parsetree.KindParameter, 55, 75, "",
				name(55, "h"),
				node(parsetree.KindTypeRef, 58, 75, "&dyn Handler"),
			),
			node(parsetree.KindBlock, 80, 190, "",
				node(parsetree.KindCall, 90, 110, "",
					node(parsetree.KindFieldAccess, 90, 105, "",
						node(parsetree.KindIdent, 90, 91, "h"),
						node(parsetree.KindIdent, 92, 98, "handle"),
					),
				),
			),
		),
	))

	table := resolveAll(t, handlers, app)

	ref := refNamed(app, "handle")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolvedPolymorphic, ref.Resolution.State)
	require.Len(t, ref.Resolution.Targets, 3, "one candidate per implementation")

	paths := make([][]string, 0, len(ref.Resolution.Targets))
	for _, id := range ref.Resolution.Targets {
		paths = append(paths, table.DefinitionOf(id).Path)
	}
	assert.Contains(t, paths, []string{"handlers", "Handler", "handle"},
		"the omitting impl contributes the trait's default")
}

func TestInherentMethodWinsOverTraitMethod(t *testing.T) {
	t.Parallel()

	shapes := mustIndex(t, "src/shapes.rs", node(parsetree.KindSourceFile, 0, 600, "",
		node(parsetree.KindInterface, 0, 30, "", vis(0, "pub"), name(10, "Render")),
		node(parsetree.KindStruct, 40, 60, "", vis(40, "pub"), name(50, "Widget")),
		implBlock(70, 170, "", "Widget", method(120, 165, "draw")),
		implBlock(180, 280, "Render", "Widget", method(230, 275, "draw")),
		node(parsetree.KindFunction, 300, 580, "",
			name(303, "paint"),
			node(parsetree.KindParameter, 310, 330, "",
				name(310, "w"),
				node(parsetree.KindTypeRef, 313, 330, "Widget"),
			),
			node(parsetree.KindBlock, 340, 580, "",
				node(parsetree.KindCall, 350, 370, "",
					node(parsetree.KindFieldAccess, 350, 365, "",
						node(parsetree.KindIdent, 350, 351, "w"),
						node(parsetree.KindIdent, 352, 356, "draw"),
					),
				),
			),
		),
	))

	table := resolveAll(t, shapes)

	ref := refNamed(shapes, "draw")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolved, ref.Resolution.State)

	// The winner comes from the inherent block, not the trait impl.
	winner := table.DefinitionOf(ref.Resolution.Targets[0])
	assert.Equal(t, "draw", winner.Name)
	assert.Less(t, winner.Span.StartByte, uint32(180), "inherent impl method declared before the trait impl")
}

func TestInherentTieIsAmbiguous(t *testing.T) {
	t.Parallel()

	m := mustIndex(t, "src/m.rs", node(parsetree.KindSourceFile, 0, 600, "",
		node(parsetree.KindStruct, 0, 20, "", vis(0, "pub"), name(10, "Buf")),
		implBlock(30, 130, "", "Buf", method(80, 125, "reset")),
		implBlock(140, 240, "", "Buf", method(190, 235, "reset")),
		node(parsetree.KindFunction, 300, 580, "",
			name(303, "use_buf"),
			node(parsetree.KindParameter, 312, 330, "",
				name(312, "b"),
				node(parsetree.KindTypeRef, 315, 330, "Buf"),
			),
			node(parsetree.KindBlock, 340, 580, "",
				node(parsetree.KindCall, 350, 370, "",
					node(parsetree.KindFieldAccess, 350, 365, "",
						node(parsetree.KindIdent, 350, 351, "b"),
						node(parsetree.KindIdent, 352, 357, "reset"),
					),
				),
			),
		),
	))

	resolveAll(t, m)

	ref := refNamed(m, "reset")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateAmbiguous, ref.Resolution.State)
	require.Len(t, ref.Resolution.Targets, 2)
}

func TestBlanketImplAppliesWhenBoundSatisfied(t *testing.T) {
	t.Parallel()

	// trait Greet; trait Describe; impl<T: Greet> Describe for T { fn
	// describe(self) } -- Thing implements Greet, so thing.describe()
	// dispatches through the blanket impl.
	blanket := implBlock(200, 320, "Describe", "T", method(270, 315, "describe"))
	blanketWithParams := node(parsetree.KindImpl, 200, 320, "",
		append([]parsetree.Node{
			node(parsetree.KindTypeParams, 204, 216, "",
				node(parsetree.KindParameter, 205, 215, "",
					name(205, "T"),
					node(parsetree.KindTypeRef, 208, 213, "Greet"),
				),
			),
		}, blanket.Children()...)...,
	)

	m := mustIndex(t, "src/m.rs", node(parsetree.KindSourceFile, 0, 700, "",
		node(parsetree.KindInterface, 0, 30, "", vis(0, "pub"), name(10, "Greet")),
		node(parsetree.KindInterface, 40, 70, "", vis(40, "pub"), name(50, "Describe")),
		node(parsetree.KindStruct, 80, 100, "", vis(80, "pub"), name(90, "Thing")),
		implBlock(110, 190, "Greet", "Thing", method(160, 185, "greet")),
		blanketWithParams,
		node(parsetree.KindFunction, 400, 680, "",
			name(403, "show"),
			node(parsetree.KindParameter, 412, 430, "",
				name(412, "t"),
				node(parsetree.KindTypeRef, 415, 430, "Thing"),
			),
			node(parsetree.KindBlock, 440, 680, "",
				node(parsetree.KindCall, 450, 470, "",
					node(parsetree.KindFieldAccess, 450, 468, "",
						node(parsetree.KindIdent, 450, 451, "t"),
						node(parsetree.KindIdent, 452, 460, "describe"),
					),
				),
			),
		),
	))

	table := resolveAll(t, m)

	ref := refNamed(m, "describe")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolved, ref.Resolution.State)
	assert.Equal(t, "describe", targetName(t, table, ref.Resolution))
}

func TestBlanketImplSkippedWhenBoundUnsatisfied(t *testing.T) {
	t.Parallel()

	blanket := implBlock(200, 320, "Describe", "T", method(270, 315, "describe"))
	blanketWithParams := node(parsetree.KindImpl, 200, 320, "",
		append([]parsetree.Node{
			node(parsetree.KindTypeParams, 204, 216, "",
				node(parsetree.KindParameter, 205, 215, "",
					name(205, "T"),
					node(parsetree.KindTypeRef, 208, 213, "Greet"),
				),
			),
		}, blanket.Children()...)...,
	)

	// Plain never implements Greet, so describe() has no candidate.
	m := mustIndex(t, "src/m.rs", node(parsetree.KindSourceFile, 0, 700, "",
		node(parsetree.KindInterface, 0, 30, "", vis(0, "pub"), name(10, "Greet")),
		node(parsetree.KindInterface, 40, 70, "", vis(40, "pub"), name(50, "Describe")),
		node(parsetree.KindStruct, 80, 100, "", vis(80, "pub"), name(90, "Plain")),
		blanketWithParams,
		node(parsetree.KindFunction, 400, 680, "",
			name(403, "show"),
			node(parsetree.KindParameter, 412, 430, "",
				name(412, "p"),
				node(parsetree.KindTypeRef, 415, 430, "Plain"),
			),
			node(parsetree.KindBlock, 440, 680, "",
				node(parsetree.KindCall, 450, 470, "",
					node(parsetree.KindFieldAccess, 450, 468, "",
						node(parsetree.KindIdent, 450, 451, "p"),
						node(parsetree.KindIdent, 452, 460, "describe"),
					),
				),
			),
		),
	))

	resolveAll(t, m)

	ref := refNamed(m, "describe")
	require.NotNil(t, ref)
	assert.Equal(t, semantic.StateUnresolvable, ref.Resolution.State)
}

func TestPathAddressedMethod(t *testing.T) {
	t.Parallel()

	m := mustIndex(t, "src/shapes.rs", node(parsetree.KindSourceFile, 0, 600, "",
		node(parsetree.KindStruct, 0, 20, "", vis(0, "pub"), name(10, "Widget")),
		implBlock(30, 130, "", "Widget", method(80, 125, "draw")),
		node(parsetree.KindFunction, 300, 580, "",
			name(303, "paint"),
			node(parsetree.KindBlock, 310, 580, "",
				node(parsetree.KindCall, 320, 350, "",
					pathExpr(320, "Widget", "draw"),
				),
			),
		),
	))

	table := resolveAll(t, m)

	ref := refNamed(m, "draw")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolved, ref.Resolution.State)
	assert.Equal(t, "draw", targetName(t, table, ref.Resolution))
}

func TestInterfaceDefaultMethodFallback(t *testing.T) {
	t.Parallel()

	// The trait declares describe with a default body; the impl omits it.
	m := mustIndex(t, "src/m.rs", node(parsetree.KindSourceFile, 0, 700, "",
		node(parsetree.KindInterface, 0, 100, "",
			vis(0, "pub"),
			name(10, "Describe"),
			method(30, 95, "describe"),
		),
		node(parsetree.KindStruct, 110, 130, "", vis(110, "pub"), name(120, "Thing")),
		implBlock(140, 200, "Describe", "Thing"),
		node(parsetree.KindFunction, 400, 680, "",
			name(403, "show"),
			node(parsetree.KindParameter, 412, 430, "",
				name(412, "t"),
				node(parsetree.KindTypeRef, 415, 430, "Thing"),
			),
			node(parsetree.KindBlock, 440, 680, "",
				node(parsetree.KindCall, 450, 470, "",
					node(parsetree.KindFieldAccess, 450, 468, "",
						node(parsetree.KindIdent, 450, 451, "t"),
						node(parsetree.KindIdent, 452, 460, "describe"),
					),
				),
			),
		),
	))

	table := resolveAll(t, m)

	ref := refNamed(m, "describe")
	require.NotNil(t, ref)
	require.Equal(t, semantic.StateResolved, ref.Resolution.State)

	def := table.DefinitionOf(ref.Resolution.Targets[0])
	assert.Equal(t, []string{"m", "Describe", "describe"}, def.Path,
		"falls back to the interface's own declaration")
}
