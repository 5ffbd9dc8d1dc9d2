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

package symbols

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/intel/isa-compat/pkg/testutils"
)

func TestLoadTable(t *testing.T) {
	path := testutils.WriteFile(t, "symbols.yaml", `
numpy.zeros: 0x7f001000
PyArray_Dot: 4096
`)
	table, err := LoadTable(path)
	require.NoError(t, err)
	require.Equal(t, Table{"numpy.zeros": 0x7f001000, "PyArray_Dot": 4096}, table)

	path = testutils.WriteFile(t, "broken.yaml", "numpy.zeros: nowhere\n")
	_, err = LoadTable(path)
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	table := Table{"numpy.zeros": 0x10, "dot": 0x20}

	tcases := []struct {
		name     string
		module   string
		member   string
		symbol   string
		addr     Address
		resolved bool
	}{
		{name: "qualified", module: "numpy", member: "zeros", symbol: "numpy.zeros", addr: 0x10, resolved: true},
		{name: "bare member", module: "numpy", member: "dot", symbol: "dot", addr: 0x20, resolved: true},
		{name: "miss", module: "numpy", member: "ones"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			symbol, addr, ok := Resolve(table, tc.module, tc.member)
			require.Equal(t, tc.resolved, ok)
			require.Equal(t, tc.symbol, symbol)
			require.Equal(t, tc.addr, addr)
		})
	}

	_, _, ok := Resolve(nil, "numpy", "zeros")
	require.False(t, ok)

	calls := 0
	fn := ResolverFunc(func(string) (Address, bool) { calls++; return 0, false })
	_, _, ok = Resolve(fn, "numpy", "zeros")
	require.False(t, ok)
	require.Equal(t, 2, calls)
}

func TestAddressJSON(t *testing.T) {
	raw, err := json.Marshal(Address(255))
	require.NoError(t, err)
	require.Equal(t, `"0xff"`, string(raw))

	var a Address
	require.NoError(t, json.Unmarshal(raw, &a))
	require.Equal(t, Address(255), a)
}
