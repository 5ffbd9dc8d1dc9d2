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
	"encoding/json"
	"fmt"

	"github.com/xlab/treeprint"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CallOperator is recorded for calls of a module object itself.
const CallOperator = "__call__"

// Set is a set of names.
type Set map[string]struct{}

// NewSet creates a set of the given names.
func NewSet(names ...string) Set {
	s := make(Set, len(names))
	for _, name := range names {
		s[name] = struct{}{}
	}
	return s
}

// Add adds a name to the set, returning true if it was not present.
func (s Set) Add(name string) bool {
	if _, ok := s[name]; ok {
		return false
	}
	s[name] = struct{}{}
	return true
}

// Has tells if the set contains name.
func (s Set) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Sorted returns the members of the set in sorted order.
func (s Set) Sorted() []string {
	names := maps.Keys(s)
	slices.Sort(names)
	return names
}

// MarshalJSON marshals the set as a sorted list.
func (s Set) MarshalJSON() ([]byte, error) {
	names := s.Sorted()
	if names == nil {
		names = []string{}
	}
	return json.Marshal(names)
}

// UnmarshalJSON unmarshals the set from a list.
func (s *Set) UnmarshalJSON(raw []byte) error {
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return callgraphError("failed to unmarshal name set: %v", err)
	}
	*s = NewSet(names...)
	return nil
}

func (s Set) merge(o Set) {
	for name := range o {
		s[name] = struct{}{}
	}
}

// Module is the usage of an external module.
type Module struct {
	// Origin is the canonical name of the module.
	Origin string `json:"origin"`
	// Called are the members of the module called.
	Called Set `json:"called"`
	// FuncAliases maps local names of imported members to member names.
	FuncAliases map[string]string `json:"funcAliases,omitempty"`
	// Unresolved tells if the module was not found in the registry.
	Unresolved bool `json:"unresolved,omitempty"`
	// Native tells if the module is a compiled extension.
	Native bool `json:"native,omitempty"`
	// Star tells if all names of the module were imported.
	Star bool `json:"star,omitempty"`
}

func newModule(origin string) *Module {
	return &Module{
		Origin:      origin,
		Called:      NewSet(),
		FuncAliases: make(map[string]string),
	}
}

func (m *Module) clone() *Module {
	c := newModule(m.Origin)
	c.merge(m)
	return c
}

func (m *Module) merge(o *Module) {
	if o.Origin < m.Origin {
		m.Origin = o.Origin
	}
	m.Called.merge(o.Called)
	for alias, name := range o.FuncAliases {
		if prev, ok := m.FuncAliases[alias]; !ok || name < prev {
			m.FuncAliases[alias] = name
		}
	}
	m.Unresolved = m.Unresolved || o.Unresolved
	m.Native = m.Native || o.Native
	m.Star = m.Star || o.Star
}

// Graph is a classified call graph.
type Graph struct {
	// SelfDefined are the called callables defined by the program.
	SelfDefined Set `json:"selfDefined"`
	// Builtin are the called runtime builtins.
	Builtin Set `json:"builtin"`
	// External are the used external modules by alias.
	External map[string]*Module `json:"external"`
	// Partial are the units or names whose contribution is incomplete.
	Partial Set `json:"partial,omitempty"`
}

// New creates an empty call graph.
func New() *Graph {
	return &Graph{
		SelfDefined: NewSet(),
		Builtin:     NewSet(),
		External:    make(map[string]*Module),
		Partial:     NewSet(),
	}
}

// Add records a classified call.
func (g *Graph) Add(ref Ref) {
	switch ref.Class {
	case SelfDefined:
		g.SelfDefined.Add(ref.Name)
	case Builtin:
		g.Builtin.Add(ref.Name)
	case External:
		m := g.module(ref.Alias, ref.Origin)
		name := ref.Name
		if name == "" {
			name = CallOperator
		}
		m.Called.Add(name)
		if ref.Via != "" {
			m.FuncAliases[ref.Via] = root(ref.Name)
		}
		m.Unresolved = m.Unresolved || ref.Unresolved
		m.Native = m.Native || ref.Native
	}
}

// AddStar records a star import of a module.
func (g *Graph) AddStar(ref Ref) {
	m := g.module(ref.Alias, ref.Origin)
	m.Star = true
	m.Unresolved = m.Unresolved || ref.Unresolved
	m.Native = m.Native || ref.Native
}

func (g *Graph) module(alias, origin string) *Module {
	m, ok := g.External[alias]
	if !ok {
		m = newModule(origin)
		g.External[alias] = m
	}
	return m
}

// Merge merges another graph into this one.
func (g *Graph) Merge(o *Graph) *Graph {
	if o == nil {
		return g
	}
	g.SelfDefined.merge(o.SelfDefined)
	g.Builtin.merge(o.Builtin)
	g.Partial.merge(o.Partial)
	for alias, om := range o.External {
		if m, ok := g.External[alias]; ok {
			m.merge(om)
		} else {
			g.External[alias] = om.clone()
		}
	}
	return g
}

// Clone returns a deep copy of the graph.
func (g *Graph) Clone() *Graph {
	return New().Merge(g)
}

// Size returns the number of entries in the graph.
func (g *Graph) Size() int {
	n := len(g.SelfDefined) + len(g.Builtin)
	for _, m := range g.External {
		n += 1 + len(m.Called) + len(m.FuncAliases)
	}
	return n
}

// IsPartial tells if any contribution to the graph is incomplete.
func (g *Graph) IsPartial() bool {
	return len(g.Partial) > 0
}

// Tree renders the graph as a tree.
func (g *Graph) Tree(name string) string {
	tree := treeprint.New()
	tree.SetValue(name)

	self := tree.AddBranch(fmt.Sprintf("self-defined (%d)", len(g.SelfDefined)))
	for _, n := range g.SelfDefined.Sorted() {
		self.AddNode(n)
	}

	builtin := tree.AddBranch(fmt.Sprintf("builtin (%d)", len(g.Builtin)))
	for _, n := range g.Builtin.Sorted() {
		builtin.AddNode(n)
	}

	external := tree.AddBranch(fmt.Sprintf("external (%d)", len(g.External)))
	aliases := maps.Keys(g.External)
	slices.Sort(aliases)
	for _, alias := range aliases {
		m := g.External[alias]
		label := alias
		if alias != m.Origin {
			label += " = " + m.Origin
		}
		var flags []string
		if m.Unresolved {
			flags = append(flags, "unresolved")
		}
		if m.Native {
			flags = append(flags, "native")
		}
		if m.Star {
			flags = append(flags, "*")
		}
		if len(flags) > 0 {
			label += fmt.Sprintf(" %v", flags)
		}
		branch := external.AddMetaBranch(len(m.Called), label)
		for _, n := range m.Called.Sorted() {
			branch.AddNode(n)
		}
	}

	if len(g.Partial) > 0 {
		partial := tree.AddBranch("partial")
		for _, n := range g.Partial.Sorted() {
			partial.AddNode(n)
		}
	}

	return tree.String()
}
