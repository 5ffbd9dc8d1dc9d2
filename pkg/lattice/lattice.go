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
	"fmt"
	"sort"
	"strconv"

	"github.com/intel/isa-compat/pkg/features"
	logger "github.com/intel/isa-compat/pkg/log"
	"github.com/intel/isa-compat/pkg/metrics"
)

var log = logger.NewLogger("lattice")

// Group is an equivalence class of machines with bit-identical feature vectors.
type Group struct {
	ID      string
	Vector  features.Vector
	Members []string
}

// Edge is a directed edge between two groups.
type Edge struct {
	From string
	To   string
}

// Lattice is the compatibility graph over the groups of a machine set.
// An edge G1 -> G2 exists iff the features of G1 are a subset of those
// of G2. A Lattice is never modified once built.
type Lattice struct {
	schema  *features.Schema
	groups  []*Group
	index   map[string]int
	member  map[string]int
	subset  [][]bool
	reduced [][]bool
}

// Build builds the lattice for the machines of the given set. Group IDs
// follow the order of first appearance among the machines sorted by ID.
func Build(set *features.Set) *Lattice {
	machines := set.Machines()
	sort.SliceStable(machines, func(i, j int) bool {
		return machines[i].ID < machines[j].ID
	})

	l := &Lattice{
		schema: set.Schema,
		index:  map[string]int{},
		member: map[string]int{},
	}

	byKey := map[string]int{}
	for _, m := range machines {
		key := m.Vector.Key()
		idx, ok := byKey[key]
		if !ok {
			idx = len(l.groups)
			byKey[key] = idx
			id := "g" + strconv.Itoa(idx)
			l.groups = append(l.groups, &Group{ID: id, Vector: m.Vector})
			l.index[id] = idx
		}
		l.groups[idx].Members = append(l.groups[idx].Members, m.ID)
		l.member[m.ID] = idx
	}

	n := len(l.groups)
	l.subset = make([][]bool, n)
	for i := range l.groups {
		l.subset[i] = make([]bool, n)
		for j := range l.groups {
			if i != j && l.groups[i].Vector.SubsetOf(l.groups[j].Vector) {
				l.subset[i][j] = true
			}
		}
	}
	l.reduced = reduce(l.subset)

	metrics.SetLatticeGroups(n)
	log.Debug("built lattice of %d groups over %d machines", n, len(machines))

	return l
}

// FromRecords vectorizes the given records, then builds their lattice.
// Whether records may name different features is configurable.
func FromRecords(records []features.Record) (*Lattice, error) {
	set, err := Vectorize(records)
	if err != nil {
		return nil, err
	}
	return Build(set), nil
}

// Vectorize vectorizes records with the configured leniency.
func Vectorize(records []features.Record) (*features.Set, error) {
	return features.Vectorize(records, opt.Lenient)
}

// reduce returns the transitive reduction of a strict partial order.
func reduce(rel [][]bool) [][]bool {
	n := len(rel)
	red := make([][]bool, n)
	for u := range rel {
		red[u] = append([]bool(nil), rel[u]...)
	}
	for u := 0; u < n; u++ {
		for v := 0; v < n; v++ {
			if !rel[u][v] {
				continue
			}
			for w := 0; w < n; w++ {
				if rel[u][w] && rel[w][v] {
					red[u][v] = false
					break
				}
			}
		}
	}
	return red
}

// reach returns the nodes reachable from u by a path of length >= 1.
func reach(adj [][]bool, u int) []int {
	seen := make([]bool, len(adj))
	queue := []int{u}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for v, ok := range adj[cur] {
			if ok && !seen[v] {
				seen[v] = true
				queue = append(queue, v)
			}
		}
	}
	var nodes []int
	for v, ok := range seen {
		if ok {
			nodes = append(nodes, v)
		}
	}
	return nodes
}

// Schema returns the feature schema of the lattice.
func (l *Lattice) Schema() *features.Schema {
	return l.schema
}

// Groups returns the groups of the lattice in ID order.
func (l *Lattice) Groups() []*Group {
	return append([]*Group(nil), l.groups...)
}

// Group looks up a group by ID.
func (l *Lattice) Group(id string) (*Group, bool) {
	idx, ok := l.index[id]
	if !ok {
		return nil, false
	}
	return l.groups[idx], true
}

// GroupOf returns the group of the given machine.
func (l *Lattice) GroupOf(machine string) (*Group, bool) {
	idx, ok := l.member[machine]
	if !ok {
		return nil, false
	}
	return l.groups[idx], true
}

// Edges returns the full subset relation.
func (l *Lattice) Edges() []Edge {
	return l.edges(l.subset)
}

// ReducedEdges returns the transitive reduction of the subset relation.
func (l *Lattice) ReducedEdges() []Edge {
	return l.edges(l.reduced)
}

// Closure recomputes the subset relation as the transitive closure of the
// reduced graph.
func (l *Lattice) Closure() []Edge {
	var edges []Edge
	for u := range l.groups {
		for _, v := range reach(l.reduced, u) {
			edges = append(edges, Edge{From: l.groups[u].ID, To: l.groups[v].ID})
		}
	}
	return edges
}

func (l *Lattice) edges(adj [][]bool) []Edge {
	var edges []Edge
	for u := range adj {
		for v, ok := range adj[u] {
			if ok {
				edges = append(edges, Edge{From: l.groups[u].ID, To: l.groups[v].ID})
			}
		}
	}
	return edges
}

// TransferableFrom returns the IDs of all groups the given group can migrate to.
func (l *Lattice) TransferableFrom(id string) ([]string, error) {
	idx, ok := l.index[id]
	if !ok {
		return nil, latticeError("unknown group %s", id)
	}
	var ids []string
	for _, v := range reach(l.subset, idx) {
		ids = append(ids, l.groups[v].ID)
	}
	return ids, nil
}

// CanMigrate checks if workloads on machine src can migrate to machine dst.
func (l *Lattice) CanMigrate(src, dst string) (bool, error) {
	s, ok := l.member[src]
	if !ok {
		return false, latticeError("unknown machine %s", src)
	}
	d, ok := l.member[dst]
	if !ok {
		return false, latticeError("unknown machine %s", dst)
	}
	return s == d || l.subset[s][d], nil
}

func latticeError(format string, args ...interface{}) error {
	return fmt.Errorf("lattice: "+format, args...)
}
