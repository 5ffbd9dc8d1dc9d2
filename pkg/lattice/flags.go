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

package lattice

import (
	"github.com/intel/isa-compat/pkg/config"
)

// options captures our configurable parameters.
type options struct {
	// Lenient projects records onto the union of their features instead
	// of failing on records that name different features.
	Lenient bool `json:"lenient"`
}

// Our runtime configuration.
var opt = defaultOptions().(*options)

// defaultOptions returns a new options instance, all initialized to defaults.
func defaultOptions() interface{} {
	return &options{}
}

// Register us for configuration handling.
func init() {
	config.Register("lattice", "Compatibility lattice construction.", opt, defaultOptions)
}
