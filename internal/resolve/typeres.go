package resolve

import (
	"github.com/mvp-joe/ariadne/internal/semantic"
)

// resolveField handles a field or method access through a receiver. The
// receiver's type comes from a parser-supplied hint or from the declared
// type of the receiver binding; without either the access is unresolvable,
// never guessed.
func (fr *fileResolver) resolveField(ref *semantic.Reference) {
	recvType := ref.ReceiverType
	if recvType == nil && ref.Receiver != "" {
		if sym, ok := fr.file.LookupLocal(ref.Scope, ref.Receiver, ref.Span.StartByte); ok {
			if d := fr.file.Definition(sym); d != nil {
				recvType = d.DeclaredType
			}
		}
	}
	if recvType == nil || recvType.Name() == "" {
		ref.Resolution = semantic.Resolution{State: semantic.StateUnresolvable}
		return
	}

	member := ref.Segments[len(ref.Segments)-1]
	module := fr.moduleOf(ref.Scope)

	if recvType.Dyn {
		fr.resolveDynamicMethod(ref, recvType, member, module)
		return
	}
	fr.resolveConcreteMethod(ref, recvType, member, module)
}

// resolveDynamicMethod handles an interface-typed receiver. The concrete
// type behind the handle is unknowable statically, so the method resolves
// polymorphically to the matching method of every implementation,
// including implementations registered through the supertrait graph.
func (fr *fileResolver) resolveDynamicMethod(ref *semantic.Reference, recvType *semantic.TypeExpr, member string, module []string) {
	ifaces := fr.lookupInterfaces(recvType, module)
	if len(ifaces) == 0 {
		ref.Resolution = semantic.Resolution{State: semantic.StateUnresolvable}
		return
	}

	var targets []semantic.GlobalID
	seen := make(map[semantic.GlobalID]struct{})
	add := func(ids []semantic.GlobalID) {
		for _, id := range ids {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				targets = append(targets, id)
			}
		}
	}

	for _, ifaceID := range ifaces {
		// methodsFromImpls covers impls that omit the method and inherit
		// the interface's default, so every implementation contributes a
		// target.
		add(fr.methodsFromImpls(fr.table.ImplementationsOf(ifaceID), member))
	}
	if len(targets) == 0 {
		// No impl supplies the method; fall back to the interface's own
		// declaration (a default or required method).
		for _, ifaceID := range ifaces {
			add(fr.membersOfBody(ifaceID, member, callableOnly))
		}
		fr.finish(ref, targets)
		return
	}

	sortTargets(fr.table, targets)
	ref.Resolution = semantic.Resolution{
		State:   semantic.StateResolvedPolymorphic,
		Targets: targets,
	}
}

// resolveConcreteMethod dispatches a member on a concretely-typed receiver
// through three tiers: inherent impls of the type, then trait impls
// written against the type, then blanket impls whose bounds the type
// satisfies. The first tier with a candidate decides; a tie inside one
// tier is a genuine ambiguity.
func (fr *fileResolver) resolveConcreteMethod(ref *semantic.Reference, recvType *semantic.TypeExpr, member string, module []string) {
	typeName := recvType.Name()

	var inherent, trait []semantic.GlobalID
	for _, implID := range fr.table.ImplsFor(typeName) {
		impl := fr.table.DefinitionOf(implID)
		if impl.Interface == nil {
			inherent = append(inherent, implID)
		} else if fr.interfaceInScope(impl, module) {
			trait = append(trait, implID)
		}
	}

	if targets := fr.methodsFromImpls(inherent, member); len(targets) > 0 {
		fr.finish(ref, targets)
		return
	}

	// Fields and associated items declared in the type body itself.
	if targets := fr.fieldsOfType(recvType, member, module); len(targets) > 0 {
		fr.finish(ref, targets)
		return
	}

	if targets := fr.methodsFromImpls(trait, member); len(targets) > 0 {
		fr.finish(ref, targets)
		return
	}

	var blanket []semantic.GlobalID
	for _, implID := range fr.table.BlanketImpls() {
		if fr.blanketApplies(implID, typeName) {
			blanket = append(blanket, implID)
		}
	}
	fr.finish(ref, fr.methodsFromImpls(blanket, member))
}

// methodsFromImpls collects the member's definitions across a set of impl
// blocks. A trait impl that omits the member inherits the interface's own
// declaration, which covers default methods.
func (fr *fileResolver) methodsFromImpls(impls []semantic.GlobalID, member string) []semantic.GlobalID {
	var out []semantic.GlobalID
	seen := make(map[semantic.GlobalID]struct{})
	for _, implID := range impls {
		methods := fr.membersOfBody(implID, member, callableOnly)
		if len(methods) == 0 {
			if impl := fr.table.DefinitionOf(implID); impl.Interface != nil {
				file := fr.table.FileOf(implID)
				for _, ifaceID := range fr.lookupInterfaces(impl.Interface, file.Module) {
					methods = append(methods, fr.membersOfBody(ifaceID, member, callableOnly)...)
				}
			}
		}
		for _, id := range methods {
			if _, dup := seen[id]; !dup {
				seen[id] = struct{}{}
				out = append(out, id)
			}
		}
	}
	return out
}

// fieldsOfType finds the member among definitions declared directly in the
// receiver type's body (struct fields, enum variants, associated consts).
func (fr *fileResolver) fieldsOfType(recvType *semantic.TypeExpr, member string, module []string) []semantic.GlobalID {
	var out []semantic.GlobalID
	for _, typeID := range fr.table.LookupVisible(recvType.Segments, module) {
		def := fr.table.DefinitionOf(typeID)
		if !typeLike(def.Kind) {
			continue
		}
		out = append(out, fr.membersOfBody(typeID, member, anyMember)...)
	}
	return out
}

// blanketApplies checks a blanket impl against a concrete type: every bound
// on the type parameter the impl is written against must be an interface
// the type has an implementation of.
func (fr *fileResolver) blanketApplies(implID semantic.GlobalID, typeName string) bool {
	impl := fr.table.DefinitionOf(implID)
	file := fr.table.FileOf(implID)

	for _, param := range impl.TypeParams {
		if param.Name != impl.Target.Name() {
			continue
		}
		if len(param.Bounds) == 0 {
			return false
		}
		for _, bound := range param.Bounds {
			satisfied := false
			for _, ifaceID := range fr.lookupInterfaces(&bound, file.Module) {
				if fr.table.Satisfies(typeName, ifaceID) {
					satisfied = true
					break
				}
			}
			if !satisfied {
				return false
			}
		}
		return true
	}
	return false
}

// interfaceInScope reports whether a trait impl's interface resolves from
// the reference's module: a trait method is only a dispatch candidate when
// the trait itself is nameable at the call site.
func (fr *fileResolver) interfaceInScope(impl *semantic.SymbolDefinition, module []string) bool {
	if impl.Interface == nil {
		return false
	}
	return len(fr.lookupInterfaces(impl.Interface, module)) > 0
}

// lookupInterfaces resolves a type expression to interface definitions
// visible from the given module.
func (fr *fileResolver) lookupInterfaces(expr *semantic.TypeExpr, module []string) []semantic.GlobalID {
	var out []semantic.GlobalID
	for _, id := range fr.table.LookupVisible(expr.Segments, module) {
		if fr.table.DefinitionOf(id).Kind == semantic.KindInterface {
			out = append(out, id)
		}
	}
	return out
}

type memberFilter uint8

const (
	anyMember memberFilter = iota
	callableOnly
)

// membersOfBody finds definitions named member whose lexical scope is the
// owner definition's body scope. Owner and members always share a file;
// scope ids are file-local.
func (fr *fileResolver) membersOfBody(ownerID semantic.GlobalID, member string, filter memberFilter) []semantic.GlobalID {
	owner := fr.table.DefinitionOf(ownerID)
	if owner == nil || owner.Body == semantic.NoScope {
		return nil
	}
	file := fr.table.FileOf(ownerID)

	var out []semantic.GlobalID
	for i := range file.Definitions {
		d := &file.Definitions[i]
		if d.Name != member || d.Scope != owner.Body {
			continue
		}
		if filter == callableOnly && d.Kind != semantic.KindFunction {
			continue
		}
		if gid, ok := fr.table.GlobalID(file.Path, d.ID); ok {
			out = append(out, gid)
		}
	}
	return out
}
