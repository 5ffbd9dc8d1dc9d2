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
	"fmt"
	"strings"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// Data is configuration data, keyed by module name at the top level.
type Data map[string]interface{}

// DataFromObject converts obj to configuration data by a YAML round trip.
func DataFromObject(obj interface{}) (Data, error) {
	raw, err := yaml.Marshal(obj)
	if err != nil {
		return nil, configError("can't convert %T to data: %v", obj, err)
	}
	data := Data{}
	if err := yaml.Unmarshal(raw, &data); err != nil {
		return nil, configError("can't convert %T to data: %v", obj, err)
	}
	return data, nil
}

// pick returns the data of a module. Both a nested 'module: {key: value}'
// and a flat 'module.key: value' form are accepted. Picked keys are removed
// from d if remove is set.
func (d Data) pick(module string, remove bool) (Data, error) {
	picked := Data{}

	if obj, ok := d[module]; ok {
		nested, err := DataFromObject(obj)
		if err != nil {
			return nil, err
		}
		picked = nested
		if remove {
			delete(d, module)
		}
	}

	prefix := module + "."
	for key, value := range d {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		subkey := strings.TrimPrefix(key, prefix)
		if _, ok := picked[subkey]; ok {
			return nil, configError("key %q conflicts with %s.%s", key, module, subkey)
		}
		picked[subkey] = value
		if remove {
			delete(d, key)
		}
	}

	if len(picked) == 0 {
		return nil, nil
	}
	return picked, nil
}

// keys returns the sorted top-level keys of the data.
func (d Data) keys() string {
	keys := maps.Keys(d)
	slices.Sort(keys)
	return strings.Join(keys, ",")
}

// String returns the data as YAML.
func (d Data) String() string {
	raw, err := yaml.Marshal(d)
	if err != nil {
		return fmt.Sprintf("<invalid configuration data: %v>", err)
	}
	return string(raw)
}
