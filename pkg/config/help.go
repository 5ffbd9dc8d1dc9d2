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
	"io"
	"reflect"
	"strings"
)

// Describe writes help about the given modules of the default configuration,
// or about all modules if no names are given.
func Describe(w io.Writer, names ...string) {
	c := DefaultConfig()
	modules := []*Module{}

	for _, name := range c.Modules() {
		if len(names) == 0 {
			modules = append(modules, c.modules[name])
			continue
		}
		for _, n := range names {
			if n == name {
				modules = append(modules, c.modules[name])
			}
		}
	}

	if len(modules) == 0 {
		fmt.Fprintf(w, "No matching modules found.\n")
		return
	}

	for _, m := range modules {
		m.showHelp(w)
		fmt.Fprintf(w, "\n")
	}
}

func (m *Module) showHelp(w io.Writer) {
	fmt.Fprintf(w, "- module %s: %s\n", m.name, m.description)
	if m.help != "" {
		fmt.Fprintf(w, "\n")
		for _, line := range strings.Split(m.help, "\n") {
			fmt.Fprintf(w, "    %s\n", line)
		}
		return
	}

	cfg := reflect.ValueOf(m.ptr).Elem()
	fmt.Fprintf(w, "    configuration data type: %s.\n", cfg.Type().String())
	for i := 0; i < cfg.NumField(); i++ {
		f := cfg.Type().Field(i)
		if f.PkgPath != "" {
			continue
		}
		fmt.Fprintf(w, "    %s: %v\n", f.Name, cfg.Field(i).Interface())
	}
}
