// Package semantic holds the per-file stages of the index: the definition
// extractor and the scope-tree builder, plus the data model shared with the
// project-wide symbol table and the resolvers. Everything here is produced
// once per file snapshot and treated as immutable downstream.
package semantic

import (
	"strings"

	"github.com/mvp-joe/ariadne/internal/parsetree"
)

// Ids are arena indexes, stable within one file snapshot. GlobalID is
// assigned by the symbol table merge and is stable within one published
// snapshot.
type (
	FileID   int32
	SymbolID int32
	ScopeID  int32
	RefID    int32
	GlobalID int32
)

// Sentinel ids for "no parent" / "not resolved".
const (
	NoScope  ScopeID  = -1
	NoSymbol SymbolID = -1
	NoGlobal GlobalID = -1
)

// SymbolKind classifies a definition.
type SymbolKind uint8

const (
	KindFunction SymbolKind = iota
	KindStruct
	KindEnum
	KindInterface
	KindImpl
	KindModule
	KindVariable
	KindConstant
	KindTypeAlias
	KindMacro
)

var symbolKindNames = [...]string{
	"function", "struct", "enum", "interface", "impl",
	"module", "variable", "constant", "type_alias", "macro",
}

// String implements fmt.Stringer.
func (k SymbolKind) String() string {
	if int(k) < len(symbolKindNames) {
		return symbolKindNames[k]
	}
	return "unknown"
}

// VisLevel is the coarse visibility class of a definition.
type VisLevel uint8

const (
	VisPrivate VisLevel = iota // private to the enclosing scope/module
	VisRestricted              // visible to a module path and its descendants
	VisPublic
)

// Visibility describes who may resolve a definition. A restricted
// visibility names the module path that (with its descendants) is allowed
// to see the symbol.
type Visibility struct {
	Level VisLevel
	Path  []string // set only for VisRestricted
}

// Public is the unrestricted visibility.
func Public() Visibility { return Visibility{Level: VisPublic} }

// Private is the default scope-local visibility.
func Private() Visibility { return Visibility{Level: VisPrivate} }

// RestrictedTo makes a visibility resolvable only from the given module
// path or its descendants.
func RestrictedTo(path []string) Visibility {
	return Visibility{Level: VisRestricted, Path: path}
}

// TypeExpr is the structural description of a type reference. It is used
// for matching only and never evaluated.
type TypeExpr struct {
	Segments []string   // qualified name segments
	Args     []TypeExpr // generic arguments
	Dyn      bool       // interface-typed handle ("dyn X", protocol-typed)
}

// Name returns the final segment of the type path, or "".
func (t TypeExpr) Name() string {
	if len(t.Segments) == 0 {
		return ""
	}
	return t.Segments[len(t.Segments)-1]
}

// Arity returns the number of generic arguments.
func (t TypeExpr) Arity() int { return len(t.Args) }

// TypeParam is one declared generic parameter with its bound constraints.
type TypeParam struct {
	Name   string
	Bounds []TypeExpr
}

// TypeSignature is the structural signature of a callable definition.
type TypeSignature struct {
	Params     []TypeExpr
	Return     *TypeExpr
	TypeParams []TypeParam
}

// SymbolDefinition is one extracted definition record.
type SymbolDefinition struct {
	ID         SymbolID
	Kind       SymbolKind
	Name       string
	Path       []string // qualified path segments
	Module     []string // enclosing module path (no type/function segments)
	Scope      ScopeID  // lexically enclosing scope
	Body       ScopeID  // scope the definition introduced, NoScope if none
	Visibility Visibility
	Span       parsetree.Span

	// Signature is set for callable kinds; DeclaredType for typed value
	// kinds (variables, constants, parameters) carrying an annotation.
	Signature    *TypeSignature
	DeclaredType *TypeExpr

	// Impl-block payload: the interface being implemented (nil for inherent
	// blocks) and the receiver type the block is written against.
	Interface *TypeExpr
	Target    *TypeExpr

	// Supertraits of an interface definition ("satisfies" DAG edges).
	Extends []TypeExpr

	// TypeParams are the generic parameters declared by a type or impl
	// block, used for arity matching and blanket-impl bound checks.
	TypeParams []TypeParam
}

// QualifiedPath renders the dot-separated qualified path.
func (d *SymbolDefinition) QualifiedPath() string {
	return strings.Join(d.Path, ".")
}

// RefShape is the syntactic shape of a use-site.
type RefShape uint8

const (
	ShapeIdent RefShape = iota // bare identifier or identifier call
	ShapePath                  // multi-segment path expression
	ShapeType                  // type annotation / type reference
	ShapeField                 // field or method access through a receiver
)

var refShapeNames = [...]string{"ident", "path", "type", "field"}

// String implements fmt.Stringer.
func (s RefShape) String() string {
	if int(s) < len(refShapeNames) {
		return refShapeNames[s]
	}
	return "unknown"
}

// ResolutionState is the state machine for one reference. Every state other
// than StateUnresolved is terminal for the file snapshot.
type ResolutionState uint8

const (
	StateUnresolved ResolutionState = iota
	StateResolved
	StateResolvedPolymorphic
	StateAmbiguous
	StateUnresolvable
)

var resolutionStateNames = [...]string{
	"unresolved", "resolved", "resolved_polymorphic", "ambiguous", "unresolvable",
}

// String implements fmt.Stringer.
func (s ResolutionState) String() string {
	if int(s) < len(resolutionStateNames) {
		return resolutionStateNames[s]
	}
	return "unknown"
}

// Resolution is the mutable slot the resolver fills in. Targets is ordered:
// a single element for StateResolved, the full candidate set for
// StateAmbiguous and StateResolvedPolymorphic.
type Resolution struct {
	State   ResolutionState
	Targets []GlobalID
}

// Reference is one recorded use-site.
type Reference struct {
	ID       RefID
	Shape    RefShape
	Segments []string // identifier or path segments; member name for ShapeField
	Scope    ScopeID
	Span     parsetree.Span

	// Receiver carries the receiver identifier of a field/method access;
	// ReceiverType is an explicit parser-supplied type hint when available.
	Receiver     string
	ReceiverType *TypeExpr

	Resolution Resolution
}

// ImportStatus is the merge-time state of one import edge.
type ImportStatus uint8

const (
	ImportOK ImportStatus = iota
	ImportCyclic
	ImportUnresolved
)

// ImportEdge is one import, alias, or re-export declared by a file.
type ImportEdge struct {
	Module   []string // importing module path
	Path     []string // imported path segments
	Alias    string   // optional local alias; "" means last path segment
	Glob     bool     // wildcard import
	ReExport bool     // re-exported under the importing module's path
	Span     parsetree.Span
	Status   ImportStatus
}

// LocalName returns the name the import binds in the importing module.
func (e *ImportEdge) LocalName() string {
	if e.Alias != "" {
		return e.Alias
	}
	if len(e.Path) == 0 {
		return ""
	}
	return e.Path[len(e.Path)-1]
}

// Warning is a soft, non-fatal extraction diagnostic.
type Warning struct {
	Message string
	Span    parsetree.Span
}

// ScopeKind classifies a scope node.
type ScopeKind uint8

const (
	ScopeModule ScopeKind = iota
	ScopeFunction
	ScopeBlock
	ScopeClosure
	ScopeTypeBody
	ScopeLoop
)

var scopeKindNames = [...]string{
	"module", "function", "block", "closure", "type_body", "loop",
}

// String implements fmt.Stringer.
func (k ScopeKind) String() string {
	if int(k) < len(scopeKindNames) {
		return scopeKindNames[k]
	}
	return "unknown"
}

// Binding records one name introduced in a scope, in declaration order.
// Hoisted bindings are visible throughout the scope; sequential bindings
// only from Offset onward.
type Binding struct {
	Name    string
	Symbol  SymbolID
	Offset  uint32 // declaration start byte
	Hoisted bool
}

// ScopeNode is one node of a file's scope tree. Parent is an arena index,
// never a pointer: the tree is a flat owned arena inside the FileIndex.
type ScopeNode struct {
	ID       ScopeID
	Kind     ScopeKind
	Parent   ScopeID
	Children []ScopeID
	Bindings []Binding
	Span     parsetree.Span
}

// FileIndex is the complete per-file output of extraction and scope
// building. It owns its scopes, definitions, and references; the symbol
// table only holds non-owning indexes into it.
type FileIndex struct {
	Path        string
	Module      []string // module path of the file root
	Scopes      []ScopeNode
	Definitions []SymbolDefinition
	References  []Reference
	Imports     []ImportEdge
	Warnings    []Warning
}

// RootScope returns the file's root scope id.
func (f *FileIndex) RootScope() ScopeID { return 0 }

// Definition returns the definition with the given id, or nil.
func (f *FileIndex) Definition(id SymbolID) *SymbolDefinition {
	if id < 0 || int(id) >= len(f.Definitions) {
		return nil
	}
	return &f.Definitions[id]
}

// Scope returns the scope with the given id, or nil.
func (f *FileIndex) Scope(id ScopeID) *ScopeNode {
	if id < 0 || int(id) >= len(f.Scopes) {
		return nil
	}
	return &f.Scopes[id]
}

// ScopeAt returns the deepest scope whose span contains the byte offset.
// The root scope is the fallback for offsets outside every child.
func (f *FileIndex) ScopeAt(offset uint32) ScopeID {
	if len(f.Scopes) == 0 {
		return NoScope
	}
	current := f.RootScope()
	for {
		descended := false
		for _, child := range f.Scopes[current].Children {
			if f.Scopes[child].Span.Contains(offset) {
				current = child
				descended = true
				break
			}
		}
		if !descended {
			return current
		}
	}
}
