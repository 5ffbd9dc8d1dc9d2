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

package lattice

import (
	"sort"

	"github.com/xlab/treeprint"
)

// GroupExport is the serialized form of a group.
type GroupExport struct {
	ID       string   `json:"id"`
	Features []string `json:"features"`
	Members  []string `json:"members"`
}

// Export is the serialized form of a lattice: sorted groups with sorted
// membership and the reduced edges as sorted group ID pairs.
type Export struct {
	Schema []string      `json:"schema"`
	Groups []GroupExport `json:"groups"`
	Edges  [][2]string   `json:"edges"`
}

// Export returns the serializable form of the lattice.
func (l *Lattice) Export() *Export {
	e := &Export{
		Schema: l.schema.Names(),
		Groups: make([]GroupExport, 0, len(l.groups)),
		Edges:  [][2]string{},
	}
	for _, g := range l.groups {
		members := append([]string(nil), g.Members...)
		sort.Strings(members)
		names := g.Vector.Features()
		if names == nil {
			names = []string{}
		}
		e.Groups = append(e.Groups, GroupExport{
			ID:       g.ID,
			Features: names,
			Members:  members,
		})
	}

	for u := range l.reduced {
		for v, ok := range l.reduced[u] {
			if ok {
				e.Edges = append(e.Edges, [2]string{l.groups[u].ID, l.groups[v].ID})
			}
		}
	}

	return e
}

// Tree renders the reduced lattice as a tree rooted at its minimal groups.
// Groups reachable along several paths are repeated under each parent.
func (l *Lattice) Tree() string {
	tree := treeprint.New()
	tree.SetValue("lattice")

	hasParent := make([]bool, len(l.groups))
	for u := range l.reduced {
		for v, ok := range l.reduced[u] {
			if ok {
				hasParent[v] = true
			}
		}
	}

	var add func(branch treeprint.Tree, u int)
	add = func(branch treeprint.Tree, u int) {
		g := l.groups[u]
		node := branch.AddMetaBranch(g.ID, g.Vector.Key())
		for _, m := range g.Members {
			node.AddNode(m)
		}
		for v, ok := range l.reduced[u] {
			if ok {
				add(node, v)
			}
		}
	}
	for u := range l.groups {
		if !hasParent[u] {
			add(tree, u)
		}
	}

	return tree.String()
}
