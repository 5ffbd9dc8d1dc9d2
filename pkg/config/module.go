// Copyright 2019-2022 Intel Corporation. All Rights Reserved.
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

package config

import (
	"reflect"
	"strings"

	"sigs.k8s.io/yaml"
)

// GetDefaultFn is the type of functions returning a pointer to default module data.
type GetDefaultFn func() interface{}

// Module is a named collection of configuration data, stored in a struct owned
// by the registering package.
type Module struct {
	name        string
	description string
	help        string
	parent      *Config
	ptr         interface{}
	getDefault  GetDefaultFn
	notify      []NotifyFn
}

// Register registers a configuration module in the default configuration.
//
// ptr points to the struct holding the runtime configuration of the module,
// getDefault returns a pointer to a freshly allocated struct of the same type
// filled in with the defaults. The struct is updated in place whenever the
// configuration changes.
func Register(name, description string, ptr interface{}, getDefault GetDefaultFn, opts ...Option) *Module {
	parent := GetConfig(DefaultRuntimeConfig)
	for _, opt := range opts {
		if p, ok := opt.(*parentOption); ok {
			parent = GetConfig(p.name)
		}
	}

	if _, ok := parent.modules[name]; ok {
		panic(configError("%s: module %s already registered", parent.name, name))
	}

	if err := checkPointers(ptr, getDefault()); err != nil {
		panic(configError("%s: can't register module %s: %v", parent.name, name, err))
	}

	m := &Module{
		name:       name,
		parent:     parent,
		ptr:        ptr,
		getDefault: getDefault,
	}
	m.setDescription(description)

	for _, opt := range opts {
		if err := opt.apply(m); err != nil {
			log.Error("%v", err)
		}
	}

	parent.modules[name] = m

	return m
}

// Name returns the name of the module.
func (m *Module) Name() string {
	return m.name
}

// WatchUpdates adds a notifier function to the module.
func (m *Module) WatchUpdates(fn NotifyFn) {
	m.notify = append(m.notify, fn)
}

// notifyAll notifies configuration changes through all registered module notifiers.
func (m *Module) notifyAll(event Event, source Source) error {
	for _, fn := range m.notify {
		if err := fn(event, source); err != nil {
			return err
		}
	}
	return nil
}

// apply resets the module to its defaults then overlays it with the given data.
func (m *Module) apply(data Data) error {
	obj := m.getDefault()

	if len(data) != 0 {
		raw, err := yaml.Marshal(data)
		if err != nil {
			return configError("module %s: failed to marshal data: %v", m.name, err)
		}
		if err := yaml.UnmarshalStrict(raw, obj); err != nil {
			return configError("module %s: invalid configuration: %v", m.name, err)
		}
	}

	if v, ok := obj.(validator); ok {
		if err := v.Validate(); err != nil {
			return configError("module %s: %v", m.name, err)
		}
	}

	reflect.ValueOf(m.ptr).Elem().Set(reflect.ValueOf(obj).Elem())

	return nil
}

// validator is implemented by module data that can check its own consistency.
type validator interface {
	Validate() error
}

// setDescription splits the description into a one-liner and help text.
func (m *Module) setDescription(description string) {
	description = strings.Trim(description, "\n")

	if description == "" {
		m.description = "module " + m.name + " has no description."
		return
	}

	lines := strings.Split(description, "\n")
	m.description = lines[0]
	m.help = strings.Trim(strings.Join(lines[1:], "\n"), "\n")
}

// checkPointers verifies that runtime and default data are pointers to the same type.
func checkPointers(ptr, def interface{}) error {
	pv, dv := reflect.ValueOf(ptr), reflect.ValueOf(def)
	if pv.Kind() != reflect.Ptr || pv.IsNil() {
		return configError("configuration data must be a non-nil pointer, got %T", ptr)
	}
	if pv.Type() != dv.Type() {
		return configError("default data type %T does not match %T", def, ptr)
	}
	return nil
}
