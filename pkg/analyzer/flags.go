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
	"runtime"

	"github.com/intel/isa-compat/pkg/callgraph"
	"github.com/intel/isa-compat/pkg/config"
	"github.com/intel/isa-compat/pkg/disasm"
)

// options captures our configurable parameters.
type options struct {
	// Workers is the number of units or programs analyzed in parallel.
	Workers int `json:"workers"`
	// IterationCap bounds the rounds of call graph expansion.
	IterationCap int `json:"iterationCap"`
	// Anchor is the package programs are analyzed in, for relative imports.
	Anchor string `json:"anchor,omitempty"`
	// RegionEnter are the mnemonics starting compiler-injected cleanup regions.
	RegionEnter []string `json:"regionEnter"`
	// RegionExit are the mnemonics ending cleanup regions.
	RegionExit []string `json:"regionExit"`
	// ModulePath are the directories imports are looked up in.
	ModulePath []string `json:"modulePath,omitempty"`
	// ModuleRegistry is a file listing known modules.
	ModuleRegistry string `json:"moduleRegistry,omitempty"`
	// SymbolTable is a file mapping native symbol names to addresses.
	SymbolTable string `json:"symbolTable,omitempty"`
}

// Our runtime configuration.
var opt = defaultOptions().(*options)

// Validate checks the analyzer configuration.
func (o *options) Validate() error {
	if o.Workers < 1 {
		return analyzerError("invalid number of workers %d", o.Workers)
	}
	if o.IterationCap < 1 {
		return analyzerError("invalid iteration cap %d", o.IterationCap)
	}
	return nil
}

func (o *options) disasmOptions() disasm.Options {
	return disasm.Options{
		RegionEnter: o.RegionEnter,
		RegionExit:  o.RegionExit,
	}
}

// defaultOptions returns a new options instance, all initialized to defaults.
func defaultOptions() interface{} {
	d := disasm.DefaultOptions()
	return &options{
		Workers:      runtime.NumCPU(),
		IterationCap: callgraph.DefaultIterationCap,
		RegionEnter:  d.RegionEnter,
		RegionExit:   d.RegionExit,
	}
}

// Register us for configuration handling.
func init() {
	config.Register("analyzer", "Call graph analysis of disassembled programs.",
		opt, defaultOptions)
}
