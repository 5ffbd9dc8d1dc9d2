// Copyright 2022 Intel Corporation. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package callgraph

import (
	"strconv"
	"strings"

	"github.com/intel/isa-compat/pkg/interp"
	"github.com/intel/isa-compat/pkg/resolver"
)

// Class is the origin class of a called name.
type Class int

const (
	// Builtin names are provided by the runtime.
	Builtin Class = iota
	// SelfDefined names are defined by the program itself.
	SelfDefined
	// External names are provided by an imported module.
	External
)

// String returns the name of the class.
func (c Class) String() string {
	switch c {
	case Builtin:
		return "builtin"
	case SelfDefined:
		return "self-defined"
	case External:
		return "external"
	}
	return "Class(" + strconv.Itoa(int(c)) + ")"
}

// Ref is what a name refers to once classified.
type Ref struct {
	// Class is the class of the name.
	Class Class
	// Name is the qualified definition name of a self-defined name, the
	// name of a builtin, or the member path within an external module.
	Name string
	// Alias is the key of an external module in the call graph.
	Alias string
	// Origin is the canonical name of an external module.
	Origin string
	// Via is the local name an external member was imported as.
	Via string
	// Unresolved and Native describe the module of an external name.
	Unresolved bool
	Native     bool
}

// extend returns the ref of an attribute path under this one.
func (r Ref) extend(rest string) Ref {
	r.Name = cleanPath(joinPath(r.Name, rest))
	return r
}

// Binding is the value bound to a name.
type Binding struct {
	// Ref is what the bound value refers to, the constructor for objects.
	Ref Ref
	// Object tells if the value is the result of calling Ref.
	Object bool
}

// Scope holds the bindings of a unit.
type Scope struct {
	parent   *Scope
	bindings map[string]Binding
}

// NewScope creates a scope nested in parent, which may be nil.
func NewScope(parent *Scope) *Scope {
	return &Scope{
		parent:   parent,
		bindings: make(map[string]Binding),
	}
}

// Bind binds a name, replacing any previous binding.
func (s *Scope) Bind(name string, b Binding) {
	s.bindings[name] = b
}

// Lookup returns the binding of a name.
func (s *Scope) Lookup(name string) (Binding, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		if b, ok := scope.bindings[name]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// lookupPath finds the binding of the longest bound prefix of a dotted
// path, returning the binding and the unbound rest of the path.
func (s *Scope) lookupPath(path string) (Binding, string, bool) {
	for scope := s; scope != nil; scope = scope.parent {
		prefix := path
		for {
			if b, ok := scope.bindings[prefix]; ok {
				return b, strings.TrimPrefix(strings.TrimPrefix(path, prefix), "."), true
			}
			idx := strings.LastIndex(prefix, ".")
			if idx < 0 {
				break
			}
			prefix = prefix[:idx]
		}
	}
	return Binding{}, "", false
}

// Len returns the number of names bound in the scope itself.
func (s *Scope) Len() int {
	return len(s.bindings)
}

// Resolver resolves imports to canonical module names.
type Resolver interface {
	Resolve(requested, anchor string, level int) resolver.Resolution
}

// Classifier classifies calls into self-defined, builtin and external ones.
type Classifier struct {
	module   *Scope
	defs     Set
	classes  Set
	resolver Resolver
	anchor   string
}

// NewClassifier creates a classifier. The module scope and the sets of
// definition and class names must not change while the classifier is in
// use.
func NewClassifier(module *Scope, defs, classes Set, r Resolver, anchor string) *Classifier {
	return &Classifier{
		module:   module,
		defs:     defs,
		classes:  classes,
		resolver: r,
		anchor:   anchor,
	}
}

// Classify classifies a called path in the given unit and scope. The
// classes are tried in order: a method of an object constructed by a
// self-defined callable, a self-defined name, an external name, then a
// builtin.
func (c *Classifier) Classify(unit string, scope *Scope, path string) Ref {
	if idx := strings.Index(path, "()"); idx > 0 {
		ctor := c.Classify(unit, scope, path[:idx])
		return ctor.extend(strings.TrimPrefix(path[idx+2:], "."))
	}

	b, rest, bound := scope.lookupPath(path)
	if bound && b.Object && b.Ref.Class == SelfDefined {
		return b.Ref.extend(rest)
	}
	if name, ok := c.definition(unit, path); ok {
		return Ref{Class: SelfDefined, Name: name}
	}
	if bound {
		return b.Ref.extend(rest)
	}

	return Ref{Class: Builtin, Name: cleanPath(path)}
}

// definition looks up a path among the definitions visible from unit.
func (c *Classifier) definition(unit, path string) (string, bool) {
	root, rest := splitRoot(path)

	scopes := enclosing(unit)
	if root == "self" || root == "cls" {
		// methods refer to their class through their first argument
		if len(scopes) > 1 && c.defs.Has(scopes[1]) && rest != "" {
			if name := joinPath(scopes[1], rest); c.defs.Has(name) {
				return name, true
			}
		}
		return "", false
	}

	scopes = c.visible(scopes)
	for _, scope := range scopes {
		if name := joinPath(scope, path); c.defs.Has(name) {
			return name, true
		}
	}
	for _, scope := range scopes {
		if name := joinPath(scope, root); c.defs.Has(name) {
			return joinPath(name, rest), true
		}
	}
	return "", false
}

// visible drops the class bodies enclosing a unit from its scopes. Names
// bound in a class body are not visible to the units nested in it.
func (c *Classifier) visible(scopes []string) []string {
	kept := scopes[:1]
	for _, scope := range scopes[1:] {
		if !c.classes.Has(scope) {
			kept = append(kept, scope)
		}
	}
	return kept
}

// Bind records the binding of an event in the scope.
func (c *Classifier) Bind(unit string, scope *Scope, e interp.Event) {
	v := e.Value
	switch v.Kind {
	case interp.Function:
		scope.Bind(e.Name, Binding{Ref: Ref{Class: SelfDefined, Name: v.Ref}})
	case interp.Module:
		scope.Bind(e.Name, Binding{Ref: c.importModule(e.Name, v)})
	case interp.Member:
		scope.Bind(e.Name, Binding{Ref: c.importMember(e.Name, v)})
	case interp.CallResult:
		scope.Bind(e.Name, Binding{Ref: c.Classify(unit, scope, v.Ref), Object: true})
	case interp.Name:
		scope.Bind(e.Name, Binding{Ref: c.Classify(unit, scope, v.Ref)})
	case interp.Literal, interp.Composite:
		scope.Bind(e.Name, Binding{Ref: Ref{Class: Builtin, Name: v.Ref}, Object: true})
	default:
		scope.Bind(e.Name, Binding{Ref: Ref{Class: Builtin, Name: e.Name}})
	}
}

// importModule returns the ref of a module bound to alias.
func (c *Classifier) importModule(alias string, v interp.Value) Ref {
	requested := v.Ref
	// a plain dotted import binds its top-level package
	if root, _ := splitRoot(requested); v.Level == 0 && root == alias {
		requested = root
	}
	res := c.resolver.Resolve(requested, c.anchor, v.Level)
	return moduleRef(alias, res)
}

// importMember returns the ref of a module member bound to alias.
func (c *Classifier) importMember(alias string, v interp.Value) Ref {
	if sub := c.resolver.Resolve(joinPath(v.Ref, v.Member), c.anchor, v.Level); sub.Resolved {
		return moduleRef(alias, sub)
	}
	res := c.resolver.Resolve(v.Ref, c.anchor, v.Level)
	ref := moduleRef(res.Origin, res)
	ref.Name = v.Member
	ref.Via = alias
	return ref
}

// StarImport returns the ref of a module all names are imported from.
func (c *Classifier) StarImport(e interp.Event) Ref {
	res := c.resolver.Resolve(e.Name, c.anchor, e.Level)
	return moduleRef(res.Origin, res)
}

func moduleRef(alias string, res resolver.Resolution) Ref {
	return Ref{
		Class:      External,
		Alias:      alias,
		Origin:     res.Origin,
		Unresolved: !res.Resolved,
		Native:     res.Module.Native,
	}
}

// enclosing returns the qualified names of a unit and its enclosing
// units, innermost first, ending with the empty module scope.
func enclosing(unit string) []string {
	var scopes []string
	if unit != "" && !strings.HasPrefix(unit, "<module>") {
		for name := unit; ; {
			scopes = append(scopes, name)
			idx := strings.LastIndex(name, ".")
			if idx < 0 {
				break
			}
			name = name[:idx]
		}
	}
	return append(scopes, "")
}

func splitRoot(path string) (string, string) {
	if idx := strings.Index(path, "."); idx >= 0 {
		return path[:idx], path[idx+1:]
	}
	return path, ""
}

func root(path string) string {
	r, _ := splitRoot(path)
	return r
}

func joinPath(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	}
	return prefix + "." + name
}

// cleanPath drops call markers from a path.
func cleanPath(path string) string {
	return strings.ReplaceAll(path, "()", "")
}
