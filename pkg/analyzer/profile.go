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

package analyzer

import (
	"github.com/hashicorp/go-multierror"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/intel/isa-compat/pkg/callgraph"
	"github.com/intel/isa-compat/pkg/symbols"
)

// Counts are the number of called callables per class.
type Counts struct {
	SelfDefined int `json:"selfDefined"`
	Builtin     int `json:"builtin"`
	External    int `json:"external"`
}

// NativeSymbol is a called member of a compiled extension module.
type NativeSymbol struct {
	Module   string           `json:"module"`
	Member   string           `json:"member"`
	Symbol   string           `json:"symbol,omitempty"`
	Address  *symbols.Address `json:"address,omitempty"`
	Resolved bool             `json:"resolved"`
}

// Profile is the usage profile of a program.
type Profile struct {
	// Program is the name of the analyzed program.
	Program string `json:"program"`
	// Graph is the expanded call graph of the program.
	Graph *callgraph.Graph `json:"graph"`
	// Counts are the number of called callables per class.
	Counts Counts `json:"counts"`
	// Units is the number of callables analyzed.
	Units int `json:"units"`
	// Skipped is the number of callables dropped as malformed.
	Skipped int `json:"skipped"`
	// Partial are the callables whose contribution is incomplete.
	Partial []string `json:"partial,omitempty"`
	// Unresolved are the external modules not found in the registry.
	Unresolved []string `json:"unresolved,omitempty"`
	// UnresolvedRatio is the share of external modules that are unresolved.
	UnresolvedRatio float64 `json:"unresolvedRatio"`
	// Native are the called members of compiled extension modules.
	Native []NativeSymbol `json:"native,omitempty"`
	// Messages are the warnings of the analysis.
	Messages []string `json:"warnings,omitempty"`
	// Warnings are the accumulated non-fatal errors of the analysis.
	Warnings error `json:"-"`
}

func newProfile(program string, g *callgraph.Graph, syms symbols.Resolver) *Profile {
	p := &Profile{
		Program: program,
		Graph:   g,
		Counts: Counts{
			SelfDefined: len(g.SelfDefined),
			Builtin:     len(g.Builtin),
		},
		Partial: g.Partial.Sorted(),
	}

	aliases := maps.Keys(g.External)
	slices.Sort(aliases)
	for _, alias := range aliases {
		m := g.External[alias]
		p.Counts.External += len(m.Called)
		if m.Unresolved {
			p.Unresolved = append(p.Unresolved, m.Origin)
		}
		if !m.Native {
			continue
		}
		for _, member := range m.Called.Sorted() {
			ns := NativeSymbol{Module: m.Origin, Member: member}
			if symbol, addr, ok := symbols.Resolve(syms, m.Origin, member); ok {
				ns.Symbol, ns.Address, ns.Resolved = symbol, &addr, true
			} else {
				log.Debug("%s: no symbol for %s.%s", program, m.Origin, member)
			}
			p.Native = append(p.Native, ns)
		}
	}
	if len(g.External) > 0 {
		p.UnresolvedRatio = float64(len(p.Unresolved)) / float64(len(g.External))
	}

	return p
}

func (p *Profile) setWarnings(err error) {
	p.Warnings = err
	merr, ok := err.(*multierror.Error)
	if !ok {
		if err != nil {
			p.Messages = []string{err.Error()}
		}
		return
	}
	for _, e := range merr.Errors {
		p.Messages = append(p.Messages, e.Error())
	}
	slices.Sort(p.Messages)
}

// Tree renders the call graph of the profile as a tree.
func (p *Profile) Tree() string {
	return p.Graph.Tree(p.Program)
}
