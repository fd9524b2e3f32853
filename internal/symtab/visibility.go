package symtab

import (
	"github.com/mvp-joe/ariadne/internal/semantic"
)

// Visible reports whether a definition may be named from the requesting
// module. Public symbols always may; private symbols only from their own
// module or a descendant of it; restricted symbols from the module path
// the restriction names, resolved against the definition's own module for
// the relative "crate", "super", and "self" forms.
func Visible(def *semantic.SymbolDefinition, requester []string) bool {
	switch def.Visibility.Level {
	case semantic.VisPublic:
		return true
	case semantic.VisPrivate:
		return withinModule(requester, def.Module)
	case semantic.VisRestricted:
		return withinModule(requester, restrictionRoot(def))
	default:
		return false
	}
}

// restrictionRoot resolves the module path a restricted visibility grants
// access to. "crate" opens the whole workspace, "self" the definition's own
// module, and each leading "super" climbs one module level; any remaining
// segments extend the resolved root.
func restrictionRoot(def *semantic.SymbolDefinition) []string {
	tokens := def.Visibility.Path
	if len(tokens) == 0 {
		return def.Module
	}

	var root []string
	rest := tokens
	switch tokens[0] {
	case "crate":
		root, rest = nil, tokens[1:]
	case "self":
		root, rest = append([]string{}, def.Module...), tokens[1:]
	case "super":
		root = append([]string{}, def.Module...)
		for len(rest) > 0 && rest[0] == "super" {
			if len(root) > 0 {
				root = root[:len(root)-1]
			}
			rest = rest[1:]
		}
	default:
		root = nil
	}
	return append(root, rest...)
}

// withinModule reports whether the requester module equals the root module
// or is nested anywhere inside it. An empty root is the workspace root and
// admits everything.
func withinModule(requester, root []string) bool {
	if len(root) > len(requester) {
		return false
	}
	for i, seg := range root {
		if requester[i] != seg {
			return false
		}
	}
	return true
}
