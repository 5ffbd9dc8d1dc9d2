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

package features

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/intel/isa-compat/pkg/testutils"
)

func record(id string, bits map[string]int) Record {
	r := Record{ID: id}
	for _, name := range []string{"sse4_2", "avx", "avx2", "avx512f"} {
		if v, ok := bits[name]; ok {
			r.Features = append(r.Features, Feature{Name: name, Value: v})
		}
	}
	return r
}

func TestVectorOperations(t *testing.T) {
	schema, err := NewSchema("sse4_2", "avx", "avx2")
	require.NoError(t, err)

	a, err := NewVector(schema, "sse4_2", "avx2")
	require.NoError(t, err)
	b, err := NewVector(schema, "sse4_2", "avx", "avx2")
	require.NoError(t, err)

	require.Equal(t, "101", a.Key())
	require.Equal(t, "111", b.Key())
	require.True(t, a.SubsetOf(b))
	require.False(t, b.SubsetOf(a))
	require.True(t, a.SubsetOf(a))
	require.False(t, a.Equal(b))
	require.Equal(t, []string{"sse4_2", "avx2"}, a.Features())
	require.Equal(t, 2, a.Count())
	require.True(t, a.Has("avx2"))
	require.False(t, a.Has("avx"))
	require.False(t, a.Has("sve"))

	_, err = NewVector(schema, "sve")
	require.True(t, errors.Is(err, ErrSchemaMismatch))

	_, err = NewSchema("avx", "avx")
	require.Error(t, err)
}

func TestVectorize(t *testing.T) {
	records := []Record{
		record("m1", map[string]int{"sse4_2": 1, "avx": 1, "avx2": 0}),
		record("m2", map[string]int{"sse4_2": 1, "avx": 1, "avx2": 1}),
		{ID: "w1", Machine: "m1", Workload: "train", Features: []Feature{
			{Name: "avx2", Value: 0}, {Name: "sse4_2", Value: 1}, {Name: "avx", Value: 0},
		}},
	}

	set, err := Vectorize(records, false)
	require.NoError(t, err)
	require.Equal(t, []string{"sse4_2", "avx", "avx2"}, set.Schema.Names())
	require.Len(t, set.Machines(), 2)

	m2, ok := set.Machine("m2")
	require.True(t, ok)
	require.Equal(t, "111", m2.Vector.Key())

	w, ok := set.Workload("m1", "train")
	require.True(t, ok)
	require.Equal(t, "100", w.Vector.Key())
	_, ok = set.Workload("m2", "train")
	require.False(t, ok)
	_, ok = set.Machine("w1")
	require.False(t, ok)
}

func TestVectorizeSchemaMismatch(t *testing.T) {
	records := []Record{
		record("m1", map[string]int{"sse4_2": 1, "avx": 1}),
		record("m2", map[string]int{"sse4_2": 1, "avx": 1, "avx512f": 1}),
	}

	_, err := Vectorize(records, false)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrSchemaMismatch))

	set, err := Vectorize(records, true)
	require.NoError(t, err)
	require.Equal(t, []string{"sse4_2", "avx", "avx512f"}, set.Schema.Names())
	m1, _ := set.Machine("m1")
	m2, _ := set.Machine("m2")
	require.Equal(t, "110", m1.Vector.Key())
	require.True(t, m1.Vector.SubsetOf(m2.Vector))
}

func TestVectorizeInvalidRecords(t *testing.T) {
	tcases := map[string][]Record{
		"invalid value": {
			{ID: "m1", Features: []Feature{{Name: "avx", Value: 2}}},
		},
		"duplicate feature": {
			{ID: "m1", Features: []Feature{{Name: "avx", Value: 1}, {Name: "avx", Value: 0}}},
		},
		"duplicate machine": {
			{ID: "m1", Features: []Feature{{Name: "avx", Value: 1}}},
			{ID: "m1", Features: []Feature{{Name: "avx", Value: 0}}},
		},
	}
	for name, records := range tcases {
		t.Run(name, func(t *testing.T) {
			_, err := Vectorize(records, true)
			require.Error(t, err)
			require.False(t, errors.Is(err, ErrSchemaMismatch))
		})
	}
}

func TestProject(t *testing.T) {
	set, err := Vectorize([]Record{
		record("host", map[string]int{"sse4_2": 1, "avx": 1, "avx512f": 1}),
	}, false)
	require.NoError(t, err)

	schema, err := NewSchema("avx512f", "avx2", "sse4_2")
	require.NoError(t, err)
	host, ok := set.Project(schema).Machine("host")
	require.True(t, ok)
	require.Equal(t, "101", host.Vector.Key())
}

func TestLoadRecords(t *testing.T) {
	path := testutils.WriteFile(t, "features.yaml", `
- id: m1
  features:
  - {name: avx, value: 1}
  - {name: avx2, value: 0}
- id: w1
  machine: m1
  workload: train
  features:
  - {name: avx, value: 1}
  - {name: avx2, value: 0}
`)
	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.True(t, records[0].IsMachine())
	require.False(t, records[1].IsMachine())
	require.Equal(t, "m1", records[1].MachineID())

	path = testutils.WriteFile(t, "anonymous.yaml", "- features: []\n")
	_, err = LoadRecords(path)
	require.Error(t, err)
}

func TestProbeHost(t *testing.T) {
	defer func(path string) { cpuinfoPath = path }(cpuinfoPath)

	t.Run("x86 flags", func(t *testing.T) {
		cpuinfoPath = testutils.WriteFile(t, "cpuinfo", `processor	: 0
model name	: Test CPU
flags		: fpu sse2 avx2 avx avx2

processor	: 1
flags		: fpu sse2
`)
		flags, err := ProbeHost()
		require.NoError(t, err)
		require.Equal(t, []string{"avx", "avx2", "fpu", "sse2"}, flags)
	})

	t.Run("arm features", func(t *testing.T) {
		cpuinfoPath = testutils.WriteFile(t, "cpuinfo", `processor	: 0
Features	: fp asimd aes crc32
`)
		r, err := HostRecord("host")
		require.NoError(t, err)
		require.Equal(t, "host", r.ID)
		require.Equal(t, []Feature{
			{Name: "aes", Value: 1}, {Name: "asimd", Value: 1},
			{Name: "crc32", Value: 1}, {Name: "fp", Value: 1},
		}, r.Features)
	})
}
