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
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/intel/isa-compat/pkg/callgraph"
	"github.com/intel/isa-compat/pkg/config"
	"github.com/intel/isa-compat/pkg/disasm"
	"github.com/intel/isa-compat/pkg/interp"
	"github.com/intel/isa-compat/pkg/resolver"
	"github.com/intel/isa-compat/pkg/symbols"
	"github.com/intel/isa-compat/pkg/testutils"
)

const appPath = "testdata/app.dis"

func registry(modules ...string) resolver.Registry {
	var infos []resolver.ModuleInfo
	for _, name := range modules {
		infos = append(infos, resolver.ModuleInfo{Name: name, Native: name == "numpy"})
	}
	return resolver.NewStaticRegistry(infos...)
}

func readApp(t *testing.T) string {
	raw, err := os.ReadFile(appPath)
	require.NoError(t, err)
	return string(raw)
}

func analyze(t *testing.T, a *Analyzer, name, text string) *Profile {
	prog, err := disasm.Parse(strings.NewReader(text), name, disasm.DefaultOptions())
	require.NoError(t, err)
	p, err := a.Analyze(context.Background(), prog)
	require.NoError(t, err)
	return p
}

func TestAnalyzeProgram(t *testing.T) {
	a := New(registry("numpy", "os"), symbols.Table{"numpy.zeros": 0x1000})

	profiles, err := a.AnalyzeFiles(context.Background(), appPath)
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	p := profiles[0]

	require.NoError(t, p.Warnings)
	require.Equal(t, appPath, p.Program)
	require.Equal(t, 4, p.Units)
	require.Equal(t, 0, p.Skipped)
	require.Empty(t, p.Partial)

	expected := callgraph.New()
	expected.SelfDefined = callgraph.NewSet("main", "Model", "Model.fit")
	expected.Builtin = callgraph.NewSet("__build_class__", "print", "self.normalize")
	expected.External = map[string]*callgraph.Module{
		"np": {
			Origin:      "numpy",
			Called:      callgraph.NewSet("zeros"),
			FuncAliases: map[string]string{},
			Native:      true,
		},
		"os": {
			Origin:      "os",
			Called:      callgraph.NewSet("path.join"),
			FuncAliases: map[string]string{"p": "path"},
		},
	}
	testutils.VerifyDiff(t, "call graph", expected, p.Graph)

	require.Equal(t, Counts{SelfDefined: 3, Builtin: 3, External: 2}, p.Counts)
	require.Empty(t, p.Unresolved)
	require.Equal(t, 0.0, p.UnresolvedRatio)

	addr := symbols.Address(0x1000)
	require.Equal(t, []NativeSymbol{
		{Module: "numpy", Member: "zeros", Symbol: "numpy.zeros", Address: &addr, Resolved: true},
	}, p.Native)

	raw, err := json.Marshal(p)
	require.NoError(t, err)
	again, err := json.Marshal(analyze(t, a, appPath, readApp(t)))
	require.NoError(t, err)
	require.Equal(t, string(raw), string(again))

	require.Contains(t, p.Tree(), "np = numpy")
	require.Greater(t, a.ResolverStats().Resolved, int64(0))
}

func TestUnresolvedImports(t *testing.T) {
	p := analyze(t, New(registry("numpy"), nil), "app", readApp(t))

	require.Equal(t, []string{"os"}, p.Unresolved)
	require.Equal(t, 0.5, p.UnresolvedRatio)
	testutils.VerifyError(t, p.Warnings, 1, []error{resolver.ErrUnresolvedImport}, "os")
	require.Len(t, p.Messages, 1)
	require.True(t, p.Graph.External["os"].Unresolved)
	require.Equal(t, []NativeSymbol{{Module: "numpy", Member: "zeros"}}, p.Native)
}

func TestMalformedUnitIsSkipped(t *testing.T) {
	text := strings.Replace(readApp(t), "CALL_METHOD              2", "CALL_METHOD              two", 1)
	p := analyze(t, New(registry("numpy", "os"), nil), "app", text)

	require.Equal(t, 3, p.Units)
	require.Equal(t, 1, p.Skipped)
	testutils.VerifyError(t, p.Warnings, 1, []error{disasm.ErrMalformedStream}, "main")
	require.Len(t, p.Messages, 1)
	require.True(t, p.Graph.SelfDefined.Has("main"))
	require.False(t, p.Graph.SelfDefined.Has("Model.fit"))
}

func TestUnderflowMarksUnitPartial(t *testing.T) {
	p := analyze(t, New(registry(), nil), "x", `
  1           0 LOAD_CONST               0 (<code object f at 0x7f0000000010, file "x.py", line 1>)
              2 LOAD_CONST               1 ('f')
              4 MAKE_FUNCTION            0
              6 STORE_NAME               0 (f)
              8 LOAD_NAME                0 (f)
             10 CALL_FUNCTION            0
             12 RETURN_VALUE

Disassembly of <code object f at 0x7f0000000010, file "x.py", line 1>:
  2           0 LOAD_GLOBAL              0 (g)
              2 CALL_FUNCTION            0
              4 POP_TOP
              6 STORE_FAST               0 (x)
              8 LOAD_GLOBAL              1 (h)
             10 CALL_FUNCTION            0
             12 RETURN_VALUE
`)

	require.Equal(t, []string{"f"}, p.Partial)
	testutils.VerifyError(t, p.Warnings, 1, []error{interp.ErrStackUnderflow})
	require.True(t, p.Graph.Builtin.Has("g"))
	require.False(t, p.Graph.Builtin.Has("h"))
	require.True(t, p.Graph.SelfDefined.Has("f"))
}

func TestIterationCap(t *testing.T) {
	defer config.Reset()
	require.NoError(t, config.ParseYAMLData([]byte("analyzer:\n  iterationCap: 1\n"), "test"))

	p := analyze(t, New(registry("numpy", "os"), nil), "app", readApp(t))

	testutils.VerifyError(t, p.Warnings, 1, []error{callgraph.ErrIterationCap})
	require.Equal(t, []string{"Model", "Model.fit"}, p.Partial)
	require.True(t, p.Graph.SelfDefined.Has("Model.fit"))
	require.False(t, p.Graph.Builtin.Has("self.normalize"))
}

func TestInvalidConfiguration(t *testing.T) {
	defer config.Reset()
	err := config.ParseYAMLData([]byte("analyzer:\n  workers: 0\n"), "test")
	require.Error(t, err)
	require.True(t, opt.Workers > 0)
}

func TestNewFromConfig(t *testing.T) {
	modules := testutils.WriteFile(t, "modules.yaml", "- name: numpy\n  native: true\n- name: os\n")
	table := testutils.WriteFile(t, "symbols.yaml", "zeros: 0x2000\n")

	defer config.Reset()
	require.NoError(t, config.ParseYAMLData([]byte(
		"analyzer:\n  moduleRegistry: "+modules+"\n  symbolTable: "+table+"\n  anchor: pkg\n"), "test"))

	a, err := NewFromConfig()
	require.NoError(t, err)
	p := analyze(t, a, "app", readApp(t))
	require.Empty(t, p.Unresolved)
	require.Len(t, p.Native, 1)
	require.Equal(t, "zeros", p.Native[0].Symbol)
	require.Equal(t, symbols.Address(0x2000), *p.Native[0].Address)

	require.NoError(t, config.ParseYAMLData([]byte("analyzer:\n  symbolTable: /nonexistent\n"), "test"))
	_, err = NewFromConfig()
	require.Error(t, err)
	require.False(t, errors.Is(err, callgraph.ErrIterationCap))
}

const clientProgram = `
  1           0 LOAD_CONST               0 (0)
              2 LOAD_CONST               1 (None)
              4 IMPORT_NAME              0 (json)
              6 STORE_NAME               0 (json)

  3           8 LOAD_BUILD_CLASS
             10 LOAD_CONST               2 (<code object Client at 0x7f0000000100, file "client.py", line 3>)
             12 LOAD_CONST               3 ('Client')
             14 MAKE_FUNCTION            0
             16 LOAD_CONST               3 ('Client')
             18 CALL_FUNCTION            2
             20 STORE_NAME               1 (Client)

 11          22 LOAD_NAME                1 (Client)
             24 CALL_FUNCTION            0
             26 LOAD_METHOD              2 (send)
             28 CALL_METHOD              0
             30 POP_TOP
             32 LOAD_CONST               1 (None)
             34 RETURN_VALUE

Disassembly of <code object Client at 0x7f0000000100, file "client.py", line 3>:
  3           0 LOAD_NAME                0 (__name__)
              2 STORE_NAME               1 (__module__)
              4 LOAD_CONST               0 ('Client')
              6 STORE_NAME               2 (__qualname__)

  4           8 LOAD_CONST               1 (<code object json at 0x7f0000000200, file "client.py", line 4>)
             10 LOAD_CONST               2 ('Client.json')
             12 MAKE_FUNCTION            0
             14 STORE_NAME               3 (json)

  7          16 LOAD_CONST               3 (<code object send at 0x7f0000000300, file "client.py", line 7>)
             18 LOAD_CONST               4 ('Client.send')
             20 MAKE_FUNCTION            0
             22 STORE_NAME               4 (send)
             24 LOAD_CONST               5 (None)
             26 RETURN_VALUE

Disassembly of <code object json at 0x7f0000000200, file "client.py", line 4>:
  5           0 LOAD_CONST               0 (None)
              2 RETURN_VALUE

Disassembly of <code object send at 0x7f0000000300, file "client.py", line 7>:
  8           0 LOAD_GLOBAL              0 (json)
              2 LOAD_METHOD              1 (dumps)
              4 BUILD_MAP                0
              6 CALL_METHOD              1
              8 RETURN_VALUE
`

func TestMethodsDoNotSeeClassBody(t *testing.T) {
	p := analyze(t, New(registry("json"), nil), "client", clientProgram)

	require.NoError(t, p.Warnings)
	require.Equal(t, callgraph.NewSet("Client", "Client.send"), p.Graph.SelfDefined)
	require.Contains(t, p.Graph.External, "json")
	require.Equal(t, callgraph.NewSet("dumps"), p.Graph.External["json"].Called)
	require.Equal(t, 1, p.Counts.External)
}

func TestMissingModuleBody(t *testing.T) {
	text := strings.Replace(readApp(t), "CALL_FUNCTION            2", "CALL_FUNCTION            two", 1)
	p := analyze(t, New(registry("numpy", "os"), nil), "app", text)

	require.Equal(t, 3, p.Units)
	require.Equal(t, 1, p.Skipped)
	testutils.VerifyError(t, p.Warnings, 2, []error{disasm.ErrMalformedStream}, "no module body")
	require.Equal(t, []string{disasm.ModuleUnit}, p.Partial)
	for _, name := range []string{"main", "Model", "Model.fit"} {
		require.True(t, p.Graph.SelfDefined.Has(name), name)
	}
	require.True(t, p.Graph.Builtin.Has("print"))
}

func TestAnalyzeFilesCollectsFailures(t *testing.T) {
	text := strings.Replace(readApp(t), "CALL_FUNCTION            2", "CALL_FUNCTION            two", 1)
	broken := testutils.WriteFile(t, "broken.dis", text)
	missing := filepath.Join(t.TempDir(), "missing.dis")

	a := New(registry("numpy", "os"), nil)
	profiles, err := a.AnalyzeFiles(context.Background(), missing, appPath, broken)
	testutils.VerifyError(t, err, 1, nil, "missing.dis")
	require.Len(t, profiles, 2)
	require.Equal(t, appPath, profiles[0].Program)
	require.Empty(t, profiles[0].Partial)
	require.Equal(t, broken, profiles[1].Program)
	require.Equal(t, []string{disasm.ModuleUnit}, profiles[1].Partial)
}
