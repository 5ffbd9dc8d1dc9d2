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
	"strings"

	"sigs.k8s.io/yaml"
)

// ModuleInfo describes a module known to a registry.
type ModuleInfo struct {
	// Name is the fully qualified module name.
	Name string `json:"name"`
	// Path is the file or directory implementing the module, if known.
	Path string `json:"path,omitempty"`
	// Native tells if the module is a compiled extension.
	Native bool `json:"native,omitempty"`
}

//go:generate mockgen -write_package_comment=false -package=$GOPACKAGE -destination=mock_registry_test.go github.com/intel/isa-compat/pkg/resolver Registry

// Registry looks up modules by fully qualified name.
type Registry interface {
	Lookup(name string) (ModuleInfo, bool)
}

// StaticRegistry is a fixed set of modules.
type StaticRegistry map[string]ModuleInfo

// NewStaticRegistry creates a registry of the given modules and their
// parent packages.
func NewStaticRegistry(modules ...ModuleInfo) StaticRegistry {
	r := make(StaticRegistry)
	for _, m := range modules {
		r.Add(m)
	}
	return r
}

// LoadStaticRegistry reads a YAML or JSON list of modules.
func LoadStaticRegistry(path string) (StaticRegistry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, resolverError("failed to read module registry: %v", err)
	}
	var modules []ModuleInfo
	if err := yaml.Unmarshal(data, &modules); err != nil {
		return nil, resolverError("failed to parse module registry %s: %v", path, err)
	}
	for i, m := range modules {
		if m.Name == "" {
			return nil, resolverError("%s: module #%d has no name", path, i)
		}
	}
	return NewStaticRegistry(modules...), nil
}

// Add adds a module and any of its parent packages not known yet.
func (r StaticRegistry) Add(m ModuleInfo) {
	r[m.Name] = m
	for name := parentName(m.Name); name != ""; name = parentName(name) {
		if _, ok := r[name]; ok {
			break
		}
		r[name] = ModuleInfo{Name: name}
	}
}

// Lookup implements Registry.
func (r StaticRegistry) Lookup(name string) (ModuleInfo, bool) {
	m, ok := r[name]
	return m, ok
}

// PathRegistry looks modules up in a set of search directories.
type PathRegistry struct {
	dirs []string
}

// NewPathRegistry creates a registry searching the given directories.
func NewPathRegistry(dirs ...string) *PathRegistry {
	return &PathRegistry{dirs: dirs}
}

// nativeSuffixes are the file suffixes of compiled extension modules.
var nativeSuffixes = []string{".so", ".pyd"}

// Lookup implements Registry.
func (r *PathRegistry) Lookup(name string) (ModuleInfo, bool) {
	if name == "" {
		return ModuleInfo{}, false
	}
	rel := filepath.Join(strings.Split(name, ".")...)
	for _, dir := range r.dirs {
		base := filepath.Join(dir, rel)
		if isFile(filepath.Join(base, "__init__.py")) || isDir(base) {
			return ModuleInfo{Name: name, Path: base}, true
		}
		if isFile(base + ".py") {
			return ModuleInfo{Name: name, Path: base + ".py"}, true
		}
		for _, suffix := range nativeSuffixes {
			if isFile(base + suffix) {
				return ModuleInfo{Name: name, Path: base + suffix, Native: true}, true
			}
			// tagged extensions, for instance foo.cpython-310-x86_64-linux-gnu.so
			if matches, _ := filepath.Glob(base + ".*" + suffix); len(matches) > 0 {
				return ModuleInfo{Name: name, Path: matches[0], Native: true}, true
			}
		}
	}
	return ModuleInfo{}, false
}

// Chain looks modules up in a sequence of registries, first hit wins.
type Chain []Registry

// Lookup implements Registry.
func (c Chain) Lookup(name string) (ModuleInfo, bool) {
	for _, r := range c {
		if m, ok := r.Lookup(name); ok {
			return m, true
		}
	}
	return ModuleInfo{}, false
}

func parentName(name string) string {
	if idx := strings.LastIndex(name, "."); idx > 0 {
		return name[:idx]
	}
	return ""
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
