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
	"encoding/json"
	"fmt"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"sigs.k8s.io/yaml"

	"github.com/intel/isa-compat/pkg/config"
	"github.com/intel/isa-compat/pkg/features"
)

var schema = []string{"sse4_2", "avx", "avx2", "avx512f", "amx_tile"}

func machine(id, bits string) features.Record {
	r := features.Record{ID: id}
	for i, b := range bits {
		r.Features = append(r.Features, features.Feature{Name: schema[i], Value: int(b - '0')})
	}
	return r
}

func build(t *testing.T, records ...features.Record) *Lattice {
	set, err := features.Vectorize(records, false)
	require.NoError(t, err)
	return Build(set)
}

func TestScenario(t *testing.T) {
	l := build(t, machine("C", "100"), machine("A", "101"), machine("B", "111"))

	for machine, group := range map[string]string{"A": "g0", "B": "g1", "C": "g2"} {
		g, ok := l.GroupOf(machine)
		require.True(t, ok)
		require.Equal(t, group, g.ID)
	}

	require.Equal(t, []Edge{{"g0", "g1"}, {"g2", "g0"}, {"g2", "g1"}}, l.Edges())
	require.Equal(t, []Edge{{"g0", "g1"}, {"g2", "g0"}}, l.ReducedEdges())

	ids, err := l.TransferableFrom("g2")
	require.NoError(t, err)
	require.Equal(t, []string{"g0", "g1"}, ids)

	ids, err = l.TransferableFrom("g1")
	require.NoError(t, err)
	require.Empty(t, ids)

	_, err = l.TransferableFrom("g9")
	require.Error(t, err)

	tcases := []struct {
		src, dst string
		ok       bool
	}{
		{"C", "B", true},
		{"C", "A", true},
		{"A", "B", true},
		{"B", "A", false},
		{"A", "C", false},
		{"A", "A", true},
	}
	for _, tc := range tcases {
		ok, err := l.CanMigrate(tc.src, tc.dst)
		require.NoError(t, err)
		require.Equal(t, tc.ok, ok, "%s -> %s", tc.src, tc.dst)
	}

	_, err = l.CanMigrate("A", "Z")
	require.Error(t, err)
}

func randomRecords(rng *rand.Rand, n int) []features.Record {
	records := make([]features.Record, 0, n)
	for i := 0; i < n; i++ {
		bits := make([]byte, len(schema))
		for j := range bits {
			bits[j] = byte('0' + rng.Intn(2))
		}
		records = append(records, machine(fmt.Sprintf("m%02d", i), string(bits)))
	}
	return records
}

func TestClosureRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(20221018))
	for round := 0; round < 50; round++ {
		l := build(t, randomRecords(rng, 2+rng.Intn(40))...)

		require.ElementsMatch(t, l.Edges(), l.Closure(), "round %d", round)

		reduced := map[Edge]bool{}
		for _, e := range l.ReducedEdges() {
			reduced[e] = true
		}
		for _, e := range l.Edges() {
			if !reduced[e] {
				continue
			}
			for _, g := range l.Groups() {
				require.False(t, reduced[Edge{e.From, g.ID}] && reduced[Edge{g.ID, e.To}],
					"redundant edge %v via %s", e, g.ID)
			}
		}
	}
}

func TestGrouping(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	records := randomRecords(rng, 60)
	l := build(t, records...)

	bits := map[string]string{}
	for _, r := range records {
		key := ""
		for _, f := range r.Features {
			key += fmt.Sprint(f.Value)
		}
		bits[r.ID] = key
	}

	for _, a := range records {
		ga, ok := l.GroupOf(a.ID)
		require.True(t, ok)
		require.Equal(t, bits[a.ID], ga.Vector.Key())
		for _, b := range records {
			gb, _ := l.GroupOf(b.ID)
			require.Equal(t, bits[a.ID] == bits[b.ID], ga.ID == gb.ID, "%s vs %s", a.ID, b.ID)
		}
	}

	total := 0
	for i, g := range l.Groups() {
		require.Equal(t, fmt.Sprintf("g%d", i), g.ID)
		total += len(g.Members)
	}
	require.Equal(t, len(records), total)
}

func TestExportStability(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	records := randomRecords(rng, 25)
	l := build(t, records...)

	first, err := json.Marshal(l.Export())
	require.NoError(t, err)

	var decoded Export
	require.NoError(t, json.Unmarshal(first, &decoded))
	second, err := json.Marshal(&decoded)
	require.NoError(t, err)
	require.Equal(t, string(first), string(second))

	shuffled := append([]features.Record(nil), records...)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	third, err := yaml.Marshal(build(t, shuffled...).Export())
	require.NoError(t, err)
	fourth, err := yaml.Marshal(l.Export())
	require.NoError(t, err)
	require.Equal(t, string(fourth), string(third))
}

func TestFromRecordsLeniency(t *testing.T) {
	records := []features.Record{
		machine("A", "11"),
		machine("B", "111"),
	}
	defer config.Reset()

	_, err := FromRecords(records)
	require.True(t, errors.Is(err, features.ErrSchemaMismatch))

	require.NoError(t, config.ParseYAMLData([]byte("lattice:\n  lenient: true\n"), "test"))
	l, err := FromRecords(records)
	require.NoError(t, err)
	ok, err := l.CanMigrate("A", "B")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestTree(t *testing.T) {
	l := build(t, machine("C", "100"), machine("A", "101"), machine("B", "111"), machine("D", "010"))
	tree := l.Tree()
	require.Contains(t, tree, "lattice")
	require.Contains(t, tree, "[100]  g2")
	require.Contains(t, tree, "[010]  g3")
	require.Contains(t, tree, "A")
}
