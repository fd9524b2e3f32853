package parsetree

// NodeKind identifies the language-agnostic construct a node represents.
// Parsers lower concrete grammars into this fixed universe; the index never
// sees language-specific node types.
type NodeKind uint8

const (
	KindUnknown NodeKind = iota

	// File and scope-introducing constructs.
	KindSourceFile
	KindModule
	KindFunction
	KindBlock
	KindClosure
	KindLoop

	// Type-level declarations. KindImpl is an implementation block; its
	// type-ref children identify the interface (if any) and the target type.
	KindStruct
	KindEnum
	KindInterface
	KindImpl
	KindTypeAlias

	// Value-level declarations.
	KindConst
	KindVariable
	KindParameter
	KindMacro

	// Imports. A glob import ends in a "*" path segment; a re-export carries
	// a visibility child.
	KindImport

	// Use-sites.
	KindCall
	KindPathExpr
	KindTypeRef
	KindFieldAccess
	KindIdent
	KindMacroCall

	// Structural children attached to declarations.
	KindName
	KindVisibility
	KindTypeParams
)

var kindNames = map[NodeKind]string{
	KindUnknown:     "unknown",
	KindSourceFile:  "source_file",
	KindModule:      "module",
	KindFunction:    "function",
	KindBlock:       "block",
	KindClosure:     "closure",
	KindLoop:        "loop",
	KindStruct:      "struct",
	KindEnum:        "enum",
	KindInterface:   "interface",
	KindImpl:        "impl",
	KindTypeAlias:   "type_alias",
	KindConst:       "const",
	KindVariable:    "variable",
	KindParameter:   "parameter",
	KindMacro:       "macro",
	KindImport:      "import",
	KindCall:        "call",
	KindPathExpr:    "path_expr",
	KindTypeRef:     "type_ref",
	KindFieldAccess: "field_access",
	KindIdent:       "ident",
	KindMacroCall:   "macro_call",
	KindName:        "name",
	KindVisibility:  "visibility",
	KindTypeParams:  "type_params",
}

// String implements fmt.Stringer.
func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// IntroducesScope reports whether entering this construct opens a new
// lexical scope.
func (k NodeKind) IntroducesScope() bool {
	switch k {
	case KindModule, KindFunction, KindBlock, KindClosure, KindLoop,
		KindStruct, KindEnum, KindInterface, KindImpl:
		return true
	default:
		return false
	}
}

// IsDefinition reports whether this construct declares a named symbol.
func (k NodeKind) IsDefinition() bool {
	switch k {
	case KindModule, KindFunction, KindStruct, KindEnum, KindInterface,
		KindImpl, KindTypeAlias, KindConst, KindVariable, KindParameter,
		KindMacro:
		return true
	default:
		return false
	}
}

// Hoisted reports whether a declaration of this kind is visible throughout
// its enclosing scope regardless of declaration order. Variables and
// parameters are sequential: visible only from their declaration point on.
func (k NodeKind) Hoisted() bool {
	switch k {
	case KindModule, KindFunction, KindStruct, KindEnum, KindInterface,
		KindImpl, KindTypeAlias, KindConst, KindMacro:
		return true
	default:
		return false
	}
}
