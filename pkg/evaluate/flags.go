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

package evaluate

import (
	"runtime"
	"time"

	"github.com/intel/isa-compat/pkg/config"
)

const (
	// maxCandidates bounds the size of a representative search.
	maxCandidates = 1 << 30
	// defaultProgressInterval is the default interval of progress messages.
	defaultProgressInterval = 5 * time.Second
)

// options captures our configurable parameters.
type options struct {
	// Workers is the default number of parallel search workers.
	Workers int `json:"workers"`
	// ProgressInterval is the minimum interval between progress messages.
	ProgressInterval config.Duration `json:"progressInterval"`
}

// Our runtime configuration.
var opt = defaultOptions().(*options)

// Validate checks the evaluator configuration.
func (o *options) Validate() error {
	if o.Workers < 1 {
		return evaluateError("invalid number of workers %d", o.Workers)
	}
	if o.ProgressInterval <= 0 {
		return evaluateError("invalid progress interval %s", o.ProgressInterval)
	}
	return nil
}

// defaultOptions returns a new options instance, all initialized to defaults.
func defaultOptions() interface{} {
	return &options{
		Workers:          runtime.NumCPU(),
		ProgressInterval: config.Duration(defaultProgressInterval),
	}
}

// Register us for configuration handling.
func init() {
	config.Register("evaluator", "Predictor evaluation and representative search.",
		opt, defaultOptions)
}
