package semantic

import (
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// ErrNilTree is returned when a caller hands the index a nil parse tree.
// This is a boundary programming error, not a data error, and fails loudly.
var ErrNilTree = errors.New("semantic: nil parse tree")

// IndexFile runs the per-file pipeline: definition extraction followed by
// scope-tree building. Re-indexing the same content yields identical output.
func IndexFile(filePath string, tree parsetree.Node) (*FileIndex, error) {
	if tree == nil {
		return nil, fmt.Errorf("%w: %s", ErrNilTree, filePath)
	}

	ex := &extractor{
		index: &FileIndex{
			Path:   filePath,
			Module: ModulePathForFile(filePath),
		},
	}
	ex.pathStack = append(ex.pathStack, ex.index.Module...)
	ex.moduleStack = append(ex.moduleStack, ex.index.Module...)
	ex.extract(tree)

	buildScopes(ex.index, tree)
	return ex.index, nil
}

// ModulePathForFile derives the module path of a file root from its
// workspace-relative path. Entry-point style basenames (main, lib, mod,
// index, __init__) collapse into the enclosing directory's module.
func ModulePathForFile(filePath string) []string {
	clean := path.Clean(strings.ReplaceAll(filePath, "\\", "/"))
	ext := path.Ext(clean)
	clean = strings.TrimSuffix(clean, ext)

	var segs []string
	for _, part := range strings.Split(clean, "/") {
		if part == "" || part == "." || part == "src" {
			continue
		}
		segs = append(segs, part)
	}
	if len(segs) > 0 {
		switch segs[len(segs)-1] {
		case "main", "lib", "mod", "index", "__init__":
			segs = segs[:len(segs)-1]
		}
	}
	if len(segs) == 0 {
		return nil
	}
	return segs
}

// extractor walks one parse tree and records definitions, raw references,
// import edges, and soft warnings. It never fails hard: unrecognized
// constructs become warnings and extraction continues.
type extractor struct {
	index       *FileIndex
	pathStack   []string // qualified path segments, including type names
	moduleStack []string // module segments only
	localSeq    int      // disambiguating ordinal for function-local items
	localDepth  int      // >0 while inside a function/block/closure body
	implTarget  *TypeExpr // receiver type while inside an impl body
}

func (e *extractor) extract(n parsetree.Node) {
	for _, child := range n.Children() {
		e.extractNode(child)
	}
}

func (e *extractor) extractNode(n parsetree.Node) {
	switch n.Kind() {
	case parsetree.KindModule:
		e.extractModule(n)
	case parsetree.KindFunction:
		e.extractFunction(n)
	case parsetree.KindStruct, parsetree.KindEnum:
		e.extractType(n)
	case parsetree.KindInterface:
		e.extractInterface(n)
	case parsetree.KindImpl:
		e.extractImpl(n)
	case parsetree.KindTypeAlias:
		e.extractTypeAlias(n)
	case parsetree.KindConst:
		e.extractValue(n, KindConstant)
	case parsetree.KindVariable:
		e.extractValue(n, KindVariable)
	case parsetree.KindParameter:
		e.extractParameter(n)
	case parsetree.KindMacro:
		e.emitDefinition(n, KindMacro, nil)
	case parsetree.KindImport:
		e.extractImport(n)
	case parsetree.KindCall:
		e.extractCall(n)
	case parsetree.KindPathExpr:
		e.emitReference(n, ShapePath, parsetree.PathSegments(n), "", nil)
	case parsetree.KindIdent:
		e.emitReference(n, ShapeIdent, []string{n.Text()}, "", nil)
	case parsetree.KindFieldAccess:
		e.extractFieldAccess(n)
	case parsetree.KindTypeRef:
		e.emitTypeReference(n)
	case parsetree.KindMacroCall:
		e.extractMacroCall(n)
	case parsetree.KindBlock, parsetree.KindClosure, parsetree.KindLoop:
		e.withLocalDepth(func() { e.extract(n) })
	case parsetree.KindName, parsetree.KindVisibility, parsetree.KindTypeParams:
		// Structural children are consumed by their owning declaration.
	case parsetree.KindUnknown:
		e.warnf(n, "skipped unrecognized construct")
		e.extract(n)
	default:
		e.extract(n)
	}
}

func (e *extractor) extractModule(n parsetree.Node) {
	name := parsetree.DeclaredName(n)
	if name == "" {
		e.warnf(n, "skipped module without a name")
		return
	}
	e.emitDefinition(n, KindModule, nil)

	e.pathStack = append(e.pathStack, name)
	e.moduleStack = append(e.moduleStack, name)
	e.extract(n)
	e.moduleStack = e.moduleStack[:len(e.moduleStack)-1]
	e.pathStack = e.pathStack[:len(e.pathStack)-1]
}

func (e *extractor) extractFunction(n parsetree.Node) {
	name := parsetree.DeclaredName(n)
	if name == "" {
		e.warnf(n, "skipped function without a name")
		return
	}

	sig := &TypeSignature{TypeParams: e.typeParams(n)}
	for _, p := range parsetree.FindChildren(n, parsetree.KindParameter) {
		if tr := parsetree.FindChild(p, parsetree.KindTypeRef); tr != nil {
			sig.Params = append(sig.Params, typeExprFromNode(tr))
		} else {
			sig.Params = append(sig.Params, TypeExpr{})
		}
	}
	if ret := parsetree.FindChild(n, parsetree.KindTypeRef); ret != nil {
		r := typeExprFromNode(ret)
		sig.Return = &r
	}

	def := e.emitDefinition(n, KindFunction, nil)
	def.Signature = sig

	// Parameter and return type annotations are use-sites too.
	for _, p := range parsetree.FindChildren(n, parsetree.KindParameter) {
		if tr := parsetree.FindChild(p, parsetree.KindTypeRef); tr != nil {
			e.emitTypeReference(tr)
		}
	}
	if ret := parsetree.FindChild(n, parsetree.KindTypeRef); ret != nil {
		e.emitTypeReference(ret)
	}

	e.pathStack = append(e.pathStack, name)
	e.withLocalDepth(func() {
		for _, p := range parsetree.FindChildren(n, parsetree.KindParameter) {
			e.extractParameter(p)
		}
		if body := parsetree.FindChild(n, parsetree.KindBlock); body != nil {
			e.extract(body)
		}
	})
	e.pathStack = e.pathStack[:len(e.pathStack)-1]
}

func (e *extractor) extractType(n parsetree.Node) {
	name := parsetree.DeclaredName(n)
	if name == "" {
		e.warnf(n, "skipped type without a name")
		return
	}
	kind := KindStruct
	if n.Kind() == parsetree.KindEnum {
		kind = KindEnum
	}
	def := e.emitDefinition(n, kind, nil)
	def.TypeParams = e.typeParams(n)

	e.pathStack = append(e.pathStack, name)
	e.extract(n)
	e.pathStack = e.pathStack[:len(e.pathStack)-1]
}

func (e *extractor) extractInterface(n parsetree.Node) {
	name := parsetree.DeclaredName(n)
	if name == "" {
		e.warnf(n, "skipped interface without a name")
		return
	}
	def := e.emitDefinition(n, KindInterface, nil)
	def.TypeParams = e.typeParams(n)
	for _, super := range parsetree.FindChildren(n, parsetree.KindTypeRef) {
		def.Extends = append(def.Extends, typeExprFromNode(super))
		e.emitTypeReference(super)
	}

	e.pathStack = append(e.pathStack, name)
	e.extract(n)
	e.pathStack = e.pathStack[:len(e.pathStack)-1]
}

// extractImpl records an implementation block. Type-ref convention: two
// refs mean "impl Interface for Target", one means an inherent block.
func (e *extractor) extractImpl(n parsetree.Node) {
	refs := parsetree.FindChildren(n, parsetree.KindTypeRef)
	if len(refs) == 0 {
		e.warnf(n, "skipped impl block without a target type")
		return
	}

	var iface *TypeExpr
	target := typeExprFromNode(refs[len(refs)-1])
	if len(refs) >= 2 {
		i := typeExprFromNode(refs[0])
		iface = &i
	}

	ordinal := 0
	for _, d := range e.index.Definitions {
		if d.Kind == KindImpl {
			ordinal++
		}
	}
	name := fmt.Sprintf("impl#%d", ordinal)

	def := e.emitNamedDefinition(n, KindImpl, name)
	def.Interface = iface
	def.Target = &target
	def.TypeParams = e.typeParams(n)

	for _, tr := range refs {
		e.emitTypeReference(tr)
	}

	prevTarget := e.implTarget
	e.implTarget = &target
	e.pathStack = append(e.pathStack, target.Name())
	e.extract(n)
	e.pathStack = e.pathStack[:len(e.pathStack)-1]
	e.implTarget = prevTarget
}

func (e *extractor) extractTypeAlias(n parsetree.Node) {
	def := e.emitDefinition(n, KindTypeAlias, nil)
	if def == nil {
		return
	}
	if tr := parsetree.FindChild(n, parsetree.KindTypeRef); tr != nil {
		t := typeExprFromNode(tr)
		def.DeclaredType = &t
		e.emitTypeReference(tr)
	}
}

func (e *extractor) extractValue(n parsetree.Node, kind SymbolKind) {
	def := e.emitDefinition(n, kind, nil)
	if def == nil {
		return
	}
	if tr := parsetree.FindChild(n, parsetree.KindTypeRef); tr != nil {
		t := typeExprFromNode(tr)
		def.DeclaredType = &t
		e.emitTypeReference(tr)
	}
	// Initializer expressions contain use-sites.
	for _, c := range n.Children() {
		switch c.Kind() {
		case parsetree.KindName, parsetree.KindVisibility, parsetree.KindTypeRef:
		default:
			e.extractNode(c)
		}
	}
}

func (e *extractor) extractParameter(n parsetree.Node) {
	def := e.emitDefinition(n, KindVariable, nil)
	if def == nil {
		return
	}
	if tr := parsetree.FindChild(n, parsetree.KindTypeRef); tr != nil {
		t := typeExprFromNode(tr)
		def.DeclaredType = &t
	} else if e.implTarget != nil && (def.Name == "self" || def.Name == "this") {
		// An unannotated self/this receiver is typed by the enclosing impl.
		t := *e.implTarget
		def.DeclaredType = &t
	}
}

func (e *extractor) extractImport(n parsetree.Node) {
	segs := parsetree.PathSegments(parsetree.FindChild(n, parsetree.KindPathExpr))
	if len(segs) == 0 {
		e.warnf(n, "skipped import without a path")
		return
	}

	glob := false
	if segs[len(segs)-1] == "*" {
		glob = true
		segs = segs[:len(segs)-1]
	}

	alias := parsetree.DeclaredName(n)
	reexport := parsetree.VisibilityText(n) != ""

	module := make([]string, len(e.moduleStack))
	copy(module, e.moduleStack)

	e.index.Imports = append(e.index.Imports, ImportEdge{
		Module:   module,
		Path:     segs,
		Alias:    alias,
		Glob:     glob,
		ReExport: reexport,
		Span:     n.Span(),
	})
}

func (e *extractor) extractCall(n parsetree.Node) {
	children := n.Children()
	if len(children) == 0 {
		return
	}

	callee := children[0]
	switch callee.Kind() {
	case parsetree.KindIdent:
		e.emitReference(callee, ShapeIdent, []string{callee.Text()}, "", nil)
	case parsetree.KindPathExpr:
		e.emitReference(callee, ShapePath, parsetree.PathSegments(callee), "", nil)
	case parsetree.KindFieldAccess:
		e.extractFieldAccess(callee)
	default:
		e.extractNode(callee)
	}

	for _, arg := range children[1:] {
		e.extractNode(arg)
	}
}

func (e *extractor) extractFieldAccess(n parsetree.Node) {
	children := n.Children()
	if len(children) < 2 {
		e.warnf(n, "skipped malformed field access")
		return
	}

	receiver := children[0]
	member := children[len(children)-1]
	if member.Kind() != parsetree.KindIdent {
		e.warnf(n, "skipped field access without a member name")
		return
	}

	var recvName string
	if receiver.Kind() == parsetree.KindIdent {
		recvName = receiver.Text()
	} else {
		// Chained receivers are use-sites in their own right.
		e.extractNode(receiver)
	}

	var hint *TypeExpr
	if tr := parsetree.FindChild(n, parsetree.KindTypeRef); tr != nil {
		t := typeExprFromNode(tr)
		hint = &t
	}

	e.emitReference(member, ShapeField, []string{member.Text()}, recvName, hint)
}

// extractMacroCall records the invocation as a reference and flags it: if
// the macro was never expanded upstream, names it introduces are not in the
// tree and resolution quality degrades for this file only.
func (e *extractor) extractMacroCall(n parsetree.Node) {
	segs := parsetree.PathSegments(parsetree.FindChild(n, parsetree.KindPathExpr))
	if len(segs) == 0 {
		if name := parsetree.DeclaredName(n); name != "" {
			segs = []string{name}
		}
	}
	if len(segs) == 0 {
		e.warnf(n, "skipped macro invocation without a name")
		return
	}
	e.warnf(n, "macro invocation %q may be unexpanded", strings.Join(segs, "."))
	shape := ShapeIdent
	if len(segs) > 1 {
		shape = ShapePath
	}
	e.emitReference(n, shape, segs, "", nil)

	for _, c := range n.Children() {
		switch c.Kind() {
		case parsetree.KindName, parsetree.KindPathExpr:
		default:
			e.extractNode(c)
		}
	}
}

func (e *extractor) emitDefinition(n parsetree.Node, kind SymbolKind, _ []string) *SymbolDefinition {
	name := parsetree.DeclaredName(n)
	if name == "" {
		e.warnf(n, "skipped %s without a name", kind)
		return nil
	}
	return e.emitNamedDefinition(n, kind, name)
}

func (e *extractor) emitNamedDefinition(n parsetree.Node, kind SymbolKind, name string) *SymbolDefinition {
	id := SymbolID(len(e.index.Definitions))

	qualified := make([]string, len(e.pathStack), len(e.pathStack)+1)
	copy(qualified, e.pathStack)
	if e.localDepth > 0 {
		// Function-local items carry a declaration-order suffix so two
		// same-named locals in different blocks never collide.
		qualified = append(qualified, fmt.Sprintf("%s#%d", name, e.localSeq))
		e.localSeq++
	} else {
		qualified = append(qualified, name)
	}

	module := make([]string, len(e.moduleStack))
	copy(module, e.moduleStack)

	e.index.Definitions = append(e.index.Definitions, SymbolDefinition{
		ID:         id,
		Kind:       kind,
		Name:       name,
		Path:       qualified,
		Module:     module,
		Scope:      NoScope, // assigned by the scope builder
		Body:       NoScope,
		Visibility: parseVisibility(parsetree.VisibilityText(n)),
		Span:       n.Span(),
	})
	return &e.index.Definitions[id]
}

func (e *extractor) emitReference(n parsetree.Node, shape RefShape, segs []string, receiver string, hint *TypeExpr) {
	if len(segs) == 0 {
		return
	}
	e.index.References = append(e.index.References, Reference{
		ID:           RefID(len(e.index.References)),
		Shape:        shape,
		Segments:     segs,
		Scope:        NoScope, // assigned by the scope builder
		Span:         n.Span(),
		Receiver:     receiver,
		ReceiverType: hint,
	})
}

// emitTypeReference records a type annotation use-site, including nested
// generic arguments.
func (e *extractor) emitTypeReference(n parsetree.Node) {
	segs := typeRefSegments(n)
	if len(segs) > 0 && !isTypeParamName(segs) {
		shape := ShapeType
		e.index.References = append(e.index.References, Reference{
			ID:       RefID(len(e.index.References)),
			Shape:    shape,
			Segments: segs,
			Scope:    NoScope,
			Span:     n.Span(),
		})
	}
	for _, arg := range parsetree.FindChildren(n, parsetree.KindTypeRef) {
		e.emitTypeReference(arg)
	}
}

// isTypeParamName filters single uppercase-letter segments, the
// conventional shape of generic parameters, out of the reference stream.
func isTypeParamName(segs []string) bool {
	return len(segs) == 1 && len(segs[0]) == 1 && segs[0][0] >= 'A' && segs[0][0] <= 'Z'
}

func (e *extractor) typeParams(n parsetree.Node) []TypeParam {
	tp := parsetree.FindChild(n, parsetree.KindTypeParams)
	if tp == nil {
		return nil
	}
	var params []TypeParam
	for _, p := range tp.Children() {
		if p.Kind() != parsetree.KindParameter {
			continue
		}
		param := TypeParam{Name: parsetree.DeclaredName(p)}
		for _, bound := range parsetree.FindChildren(p, parsetree.KindTypeRef) {
			param.Bounds = append(param.Bounds, typeExprFromNode(bound))
			e.emitTypeReference(bound)
		}
		params = append(params, param)
	}
	return params
}

func (e *extractor) withLocalDepth(fn func()) {
	e.localDepth++
	fn()
	e.localDepth--
}

func (e *extractor) warnf(n parsetree.Node, format string, args ...any) {
	e.index.Warnings = append(e.index.Warnings, Warning{
		Message: fmt.Sprintf(format, args...),
		Span:    n.Span(),
	})
}

// typeExprFromNode lowers a type-ref node into the structural TypeExpr used
// for matching. A "dyn " text prefix marks an interface-typed handle.
func typeExprFromNode(n parsetree.Node) TypeExpr {
	expr := TypeExpr{
		Segments: typeRefSegments(n),
		Dyn:      isDynText(n.Text()),
	}
	for _, arg := range parsetree.FindChildren(n, parsetree.KindTypeRef) {
		expr.Args = append(expr.Args, typeExprFromNode(arg))
	}
	return expr
}

func typeRefSegments(n parsetree.Node) []string {
	var segs []string
	for _, c := range n.Children() {
		if c.Kind() == parsetree.KindIdent {
			segs = append(segs, c.Text())
		}
	}
	if len(segs) == 0 && n.Text() != "" {
		trimmed := strings.TrimPrefix(strings.TrimLeft(n.Text(), "&* "), "dyn ")
		trimmed = strings.TrimSpace(trimmed)
		if i := strings.IndexAny(trimmed, "<(["); i >= 0 {
			trimmed = trimmed[:i]
		}
		for _, seg := range strings.FieldsFunc(trimmed, func(r rune) bool {
			return r == ':' || r == '.'
		}) {
			if seg != "" {
				segs = append(segs, seg)
			}
		}
	}
	return segs
}

func isDynText(text string) bool {
	trimmed := strings.TrimLeft(text, "&* ")
	return strings.HasPrefix(trimmed, "dyn ")
}

// parseVisibility interprets a raw visibility marker. "pub" is public,
// "pub(crate)" and "pub(in a.b)" restrict to a module path, anything else
// (including "") is private to the enclosing scope.
func parseVisibility(text string) Visibility {
	text = strings.TrimSpace(text)
	switch {
	case text == "":
		return Private()
	case text == "pub" || text == "public" || text == "export":
		return Public()
	}
	inner := text
	if strings.HasPrefix(text, "pub(") && strings.HasSuffix(text, ")") {
		inner = strings.TrimSuffix(strings.TrimPrefix(text, "pub("), ")")
	}
	inner = strings.TrimSpace(strings.TrimPrefix(inner, "in "))
	if inner == "" || inner == "self" {
		return Private()
	}
	var segs []string
	for _, seg := range strings.FieldsFunc(inner, func(r rune) bool {
		return r == ':' || r == '.'
	}) {
		if seg != "" {
			segs = append(segs, seg)
		}
	}
	if len(segs) == 0 {
		return Private()
	}
	return RestrictedTo(segs)
}
