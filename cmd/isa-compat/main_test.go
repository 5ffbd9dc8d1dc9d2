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

package main

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/isa-compat/pkg/analyzer"
	"github.com/intel/isa-compat/pkg/config"
	"github.com/intel/isa-compat/pkg/evaluate"
	"github.com/intel/isa-compat/pkg/features"
	"github.com/intel/isa-compat/pkg/lattice"
	"github.com/intel/isa-compat/pkg/testutils"
)

const fleet = `
- id: a
  features: [{name: sse, value: 1}, {name: avx, value: 0}, {name: avx512, value: 0}]
- id: b
  features: [{name: sse, value: 1}, {name: avx, value: 1}, {name: avx512, value: 1}]
- id: c
  features: [{name: sse, value: 1}, {name: avx, value: 1}, {name: avx512, value: 0}]
`

func run(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestLatticeCommand(t *testing.T) {
	path := testutils.WriteFile(t, "fleet.yaml", fleet)

	out, err := run(t, "lattice", "-o", "json", path)
	require.NoError(t, err)

	export := &lattice.Export{}
	require.NoError(t, json.Unmarshal([]byte(out), export))
	require.Equal(t, []string{"sse", "avx", "avx512"}, export.Schema)
	require.Len(t, export.Groups, 3)
	require.Equal(t, [][2]string{{"g0", "g2"}, {"g2", "g1"}}, export.Edges)

	out, err = run(t, "lattice", "-o", "json", "--from", "a", path)
	require.NoError(t, err)
	require.Contains(t, out, `"machines": [`)
	require.Contains(t, out, `"b"`)
	require.Contains(t, out, `"c"`)

	_, err = run(t, "lattice", "--from", "x", path)
	require.Error(t, err)

	out, err = run(t, "lattice", "--tree", path)
	require.NoError(t, err)
	require.Contains(t, out, "g1")
}

func TestEvaluateCommand(t *testing.T) {
	features := testutils.WriteFile(t, "fleet.yaml", fleet)
	outcomes := testutils.WriteFile(t, "outcomes.yaml", `
- {source: a, destination: b, workload: train, success: true}
- {source: b, destination: a, workload: train, success: false}
- {source: c, destination: a, workload: train, success: false}
`)
	groups := testutils.WriteFile(t, "groups.yaml", "- [a]\n- [b, c]\n")

	out, err := run(t, "evaluate", "-o", "json", "--outcomes", outcomes, features)
	require.NoError(t, err)
	report := &evaluate.Report{}
	require.NoError(t, json.Unmarshal([]byte(out), report))
	require.Equal(t, []string{"a", "b", "c"}, report.Instances)
	require.Equal(t, 1, report.Aggregate.TP)
	require.Equal(t, 2, report.Aggregate.TN)
	require.Equal(t, 3, report.Aggregate.Unknown)

	out, err = run(t, "evaluate", "-o", "json", "--outcomes", outcomes,
		"--groups", groups, "--workers", "2", features)
	require.NoError(t, err)
	result := &evaluate.Result{}
	require.NoError(t, json.Unmarshal([]byte(out), result))
	require.True(t, result.Complete)
	require.False(t, result.Degraded)
	require.Equal(t, 2, result.Candidates)
	require.Equal(t, []string{"a", "b"}, result.Instances)

	_, err = run(t, "evaluate", features)
	require.Error(t, err)
}

func TestAnalyzeCommand(t *testing.T) {
	program := filepath.Join("..", "..", "pkg", "analyzer", "testdata", "app.dis")

	out, err := run(t, "analyze", "-o", "json", program)
	require.NoError(t, err)
	profile := &analyzer.Profile{}
	require.NoError(t, json.Unmarshal([]byte(out), profile))
	require.Equal(t, 3, profile.Counts.SelfDefined)

	out, err = run(t, "analyze", "--tree", program)
	require.NoError(t, err)
	require.True(t, strings.Contains(out, "np = numpy"))

	missing := filepath.Join(t.TempDir(), "missing.dis")
	out, err = run(t, "analyze", "--tree", missing, program)
	require.Error(t, err)
	require.Contains(t, err.Error(), "missing.dis")
	require.Contains(t, out, "np = numpy")
}

func TestPlaceHost(t *testing.T) {
	records, err := features.ParseRecords([]byte(fleet))
	require.NoError(t, err)
	set, err := lattice.Vectorize(records)
	require.NoError(t, err)
	l := lattice.Build(set)

	host := func(values ...int) features.Record {
		r := features.Record{ID: "host"}
		for i, name := range []string{"sse", "avx", "avx512", "amx"} {
			if i < len(values) {
				r.Features = append(r.Features, features.Feature{Name: name, Value: values[i]})
			}
		}
		return r
	}

	result, err := place(l, host(1, 0, 0))
	require.NoError(t, err)
	require.Equal(t, "g0", result.Group)
	require.ElementsMatch(t, []string{"g1", "g2"}, result.Transferable)
	require.Empty(t, result.Unknown)

	result, err = place(l, host(1, 0, 0, 0))
	require.NoError(t, err)
	require.Equal(t, "g0", result.Group)

	result, err = place(l, host(1, 0, 0, 1))
	require.NoError(t, err)
	require.Empty(t, result.Group)
	require.Empty(t, result.Transferable)
	require.Equal(t, []string{"amx"}, result.Unknown)
}

func TestOutputFormat(t *testing.T) {
	path := testutils.WriteFile(t, "fleet.yaml", fleet)

	out, err := run(t, "lattice", path)
	require.NoError(t, err)
	require.Contains(t, out, "schema:\n- sse\n")

	_, err = run(t, "lattice", "-o", "xml", path)
	require.Error(t, err)
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	require.Contains(t, out, "version information")
}

func TestConfigCommand(t *testing.T) {
	path := testutils.WriteFile(t, "config.yaml", "lattice:\n  lenient: true\n")
	defer config.Reset()

	out, err := run(t, "--config", path, "config", "-o", "json", "lattice")
	require.NoError(t, err)
	require.JSONEq(t, `{"lattice": {"lenient": true}}`, out)

	out, err = run(t, "config", "--describe", "evaluator")
	require.NoError(t, err)
	require.Contains(t, out, "module evaluator")
}
