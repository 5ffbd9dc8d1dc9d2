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

package resolver

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"
)

func TestCandidates(t *testing.T) {
	tcases := []struct {
		name      string
		requested string
		anchor    string
		level     int
		expected  []string
	}{
		{
			name:      "no anchor",
			requested: "numpy",
			expected:  []string{"numpy"},
		},
		{
			name:      "deep anchor",
			requested: "util",
			anchor:    "app.core.models.layers.dense",
			expected: []string{
				"app.core.models.layers.dense.util",
				"app.core.models.layers.util",
				"app.core.models.util",
				"app.core.util",
				"util",
			},
		},
		{
			name:      "shallow anchor",
			requested: "util",
			anchor:    "app.core",
			expected:  []string{"app.core.util", "app.util", "util"},
		},
		{
			name:      "relative to package",
			requested: "util",
			anchor:    "app.core",
			level:     1,
			expected:  []string{"app.core.util"},
		},
		{
			name:      "relative to parent package",
			requested: "util",
			anchor:    "app.core",
			level:     2,
			expected:  []string{"app.util"},
		},
		{
			name:     "relative package itself",
			anchor:   "app.core",
			level:    2,
			expected: []string{"app"},
		},
		{
			name:      "beyond top-level package",
			requested: "util",
			anchor:    "app",
			level:     2,
		},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expected, Candidates(tc.requested, tc.anchor, tc.level))
		})
	}
}

func TestResolveTriesCandidatesInOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := NewMockRegistry(ctrl)
	gomock.InOrder(
		registry.EXPECT().Lookup("app.core.models.util").Return(ModuleInfo{}, false),
		registry.EXPECT().Lookup("app.core.util").Return(ModuleInfo{}, false),
		registry.EXPECT().Lookup("app.util").Return(ModuleInfo{Name: "app.util", Path: "/src/app/util.py"}, true),
	)

	r := New(registry)
	res := r.Resolve("util", "app.core.models", 0)
	require.True(t, res.Resolved)
	require.Equal(t, "app.util", res.Origin)
	require.Equal(t, "/src/app/util.py", res.Module.Path)
	require.NoError(t, res.Err())

	// cached, no further lookups
	again := r.Resolve("util", "app.core.models", 0)
	require.Equal(t, res, again)
	require.Equal(t, Stats{Resolved: 2}, r.Stats())
}

func TestUnresolvedImport(t *testing.T) {
	ctrl := gomock.NewController(t)
	registry := NewMockRegistry(ctrl)
	registry.EXPECT().Lookup(gomock.Any()).Return(ModuleInfo{}, false).Times(3)

	r := New(registry)
	res := r.Resolve("win32api", "app.core", 0)
	require.False(t, res.Resolved)
	require.Equal(t, "win32api", res.Origin)
	require.ErrorIs(t, res.Err(), ErrUnresolvedImport)
	require.Equal(t, Stats{Unresolved: 1}, r.Stats())
}

func TestStaticRegistry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "modules.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- name: numpy.linalg
- name: numpy.core._multiarray_umath
  native: true
`), 0644))

	registry, err := LoadStaticRegistry(path)
	require.NoError(t, err)

	for _, name := range []string{"numpy", "numpy.linalg", "numpy.core", "numpy.core._multiarray_umath"} {
		_, ok := registry.Lookup(name)
		require.True(t, ok, name)
	}
	m, _ := registry.Lookup("numpy.core._multiarray_umath")
	require.True(t, m.Native)
	_, ok := registry.Lookup("scipy")
	require.False(t, ok)

	require.NoError(t, os.WriteFile(path, []byte("- path: /nowhere\n"), 0644))
	_, err = LoadStaticRegistry(path)
	require.Error(t, err)
}

func TestPathRegistry(t *testing.T) {
	dir := t.TempDir()
	files := []string{
		"app/__init__.py",
		"app/util.py",
		"app/fast.cpython-310-x86_64-linux-gnu.so",
		"app/win.pyd",
	}
	for _, f := range files {
		path := filepath.Join(dir, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, nil, 0644))
	}

	tcases := []struct {
		name   string
		found  bool
		native bool
	}{
		{name: "app", found: true},
		{name: "app.util", found: true},
		{name: "app.fast", found: true, native: true},
		{name: "app.win", found: true, native: true},
		{name: "app.missing"},
		{name: "other"},
	}
	registry := Chain{NewStaticRegistry(ModuleInfo{Name: "os"}), NewPathRegistry(filepath.Join(dir, "none"), dir)}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			m, ok := registry.Lookup(tc.name)
			require.Equal(t, tc.found, ok)
			require.Equal(t, tc.native, m.Native)
		})
	}

	_, ok := registry.Lookup("os")
	require.True(t, ok)
}
