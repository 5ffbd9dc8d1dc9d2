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
	"fmt"

	"github.com/pkg/errors"

	"github.com/intel/isa-compat/pkg/interp"
	logger "github.com/intel/isa-compat/pkg/log"
)

// ErrIterationCap is returned when expansion does not reach a fixed point
// within the allowed number of rounds.
var ErrIterationCap = errors.New("iteration cap exceeded")

// DefaultIterationCap is the default number of expansion rounds.
const DefaultIterationCap = 100

var log = logger.NewLogger("callgraph")

// Build classifies the calls of a trace into a call graph. Bindings are
// recorded in scope as they occur, so a call sees the bindings made before
// it in the same unit and the frozen bindings of the enclosing scopes.
func (c *Classifier) Build(trace *interp.Trace, scope *Scope) *Graph {
	g := New()
	for _, e := range trace.Events {
		switch e.Kind {
		case interp.BindingEvent, interp.DefinitionEvent:
			c.Bind(trace.Unit, scope, e)
		case interp.ImportEvent:
			if e.Member == interp.StarImport {
				g.AddStar(c.StarImport(e))
			}
		case interp.CallEvent:
			ref := c.Classify(trace.Unit, scope, e.Name)
			log.Debug("%s: %s => %s %s", trace.Unit, e.Name, ref.Class, ref.Name)
			g.Add(ref)
		}
	}
	if trace.Partial {
		g.Partial.Add(trace.Unit)
	}
	return g
}

// ModuleScope builds the frozen module scope from the trace of the module
// body, returning the scope and the call graph of the module body.
func (c *Classifier) ModuleScope(trace *interp.Trace) (*Scope, *Graph) {
	scope := NewScope(nil)
	g := c.Build(trace, scope)
	c.module = scope
	return scope, g
}

// UnitScope returns a fresh scope for a unit nested in the module scope.
func (c *Classifier) UnitScope() *Scope {
	return NewScope(c.module)
}

// Classes returns the names of the classes defined in the given traces.
func Classes(traces ...*interp.Trace) Set {
	classes := NewSet()
	for _, trace := range traces {
		if trace == nil {
			continue
		}
		for _, e := range trace.Events {
			if e.Kind == interp.DefinitionEvent && e.Value.Class {
				classes.Add(e.Value.Ref)
			}
		}
	}
	return classes
}

// DefinitionMap maps qualified definition names to their local call graphs.
type DefinitionMap map[string]*Graph

// Names returns the set of defined names.
func (d DefinitionMap) Names() Set {
	names := make(Set, len(d))
	for name := range d {
		names.Add(name)
	}
	return names
}

// Expand merges the graphs of the self-defined callables of g, and those of
// their constructors, breadth-first until no new self-defined names appear.
// If that takes more than limit rounds, the graph expanded so far is marked
// partial and returned with ErrIterationCap.
func Expand(g *Graph, defs DefinitionMap, limit int) (*Graph, error) {
	if limit <= 0 {
		limit = DefaultIterationCap
	}

	result := g.Clone()
	visited := NewSet()
	frontier := result.SelfDefined.Sorted()

	for round := 0; len(frontier) > 0; round++ {
		if round >= limit {
			for _, name := range frontier {
				result.Partial.Add(name)
			}
			return result, errors.Wrapf(ErrIterationCap, "%d rounds, %d names pending", limit, len(frontier))
		}

		var next []string
		for _, name := range frontier {
			if !visited.Add(name) {
				continue
			}
			for _, key := range []string{name, name + ".__init__"} {
				sub, ok := defs[key]
				if !ok {
					continue
				}
				for _, n := range sub.SelfDefined.Sorted() {
					if !visited.Has(n) && !result.SelfDefined.Has(n) {
						next = append(next, n)
					}
				}
				result.Merge(sub)
			}
		}
		frontier = next
	}

	return result, nil
}

// callgraphError returns a formatted package-specific error.
func callgraphError(format string, args ...interface{}) error {
	return fmt.Errorf("callgraph: "+format, args...)
}
