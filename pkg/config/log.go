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
	"os"
)

// Logger is the logging interface of the configuration. pkg/log registers
// itself as a configuration module, so it injects its logger with SetLogger
// instead of being imported here.
type Logger interface {
	Debug(format string, args ...interface{})
	Info(format string, args ...interface{})
	Warn(format string, args ...interface{})
	Error(format string, args ...interface{})
}

var log Logger = stderrLogger{}

// SetLogger sets the logger of the configuration.
func SetLogger(logger Logger) {
	if logger != nil {
		log = logger
	}
}

// stderrLogger is used until pkg/log sets a logger. It drops debug messages.
type stderrLogger struct{}

func (stderrLogger) Debug(string, ...interface{}) {}

func (stderrLogger) Info(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "I: [config] "+format+"\n", args...)
}

func (stderrLogger) Warn(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "W: [config] "+format+"\n", args...)
}

func (stderrLogger) Error(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "E: [config] "+format+"\n", args...)
}
