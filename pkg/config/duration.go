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
	"encoding/json"
	"time"
)

// Duration is a time.Duration in configuration data. It is written as a
// duration string, like "1m30s", and read from either a duration string or
// a number of seconds.
type Duration time.Duration

// MarshalJSON marshals the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON unmarshals a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(raw []byte) error {
	var seconds float64
	if err := json.Unmarshal(raw, &seconds); err == nil {
		*d = Duration(seconds * float64(time.Second))
		return nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return configError("invalid duration %s", string(raw))
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return configError("invalid duration %q: %v", value, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) String() string {
	return d.Std().String()
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
