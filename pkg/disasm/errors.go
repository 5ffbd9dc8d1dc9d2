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

package disasm

import (
	"fmt"
	"time"

	"github.com/pkg/errors"

	logger "github.com/intel/isa-compat/pkg/log"
)

// ErrMalformedStream is returned for instruction streams that cannot be parsed.
var ErrMalformedStream = errors.New("malformed instruction stream")

var log = logger.NewLogger("disasm")

// unknownLog reports each unknown mnemonic at most once a minute.
var unknownLog = logger.RateLimit(log, logger.Interval(time.Minute))

// disasmError returns a formatted package-specific error.
func disasmError(format string, args ...interface{}) error {
	return fmt.Errorf("disasm: "+format, args...)
}

// malformed wraps err as a malformed stream error for the given unit.
func malformed(unit string, line int, err error) error {
	return errors.Wrapf(ErrMalformedStream, "%s, line %d: %v", unit, line, err)
}
