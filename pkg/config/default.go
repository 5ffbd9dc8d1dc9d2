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
)

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return GetConfig(DefaultRuntimeConfig)
}

// ParseYAMLFile parses the given YAML file into the default configuration.
func ParseYAMLFile(path string) error {
	return DefaultConfig().ParseYAMLFile(path)
}

// ParseYAMLData parses the given YAML data into the default configuration.
func ParseYAMLData(raw []byte, source Source) error {
	return DefaultConfig().ParseYAMLData(raw, source)
}

// Reset resets the default configuration.
func Reset() error {
	return DefaultConfig().Reset()
}

// Dump returns the current default configuration as data.
func Dump() (Data, error) {
	snapshot, err := DefaultConfig().Backup()
	if err != nil {
		return nil, err
	}
	data := make(Data)
	for name, values := range snapshot {
		data[name] = values
	}
	return data, nil
}

func configError(format string, args ...interface{}) error {
	return fmt.Errorf("config: "+format, args...)
}
