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

package log

import (
	"fmt"
	"os"
	"strings"
	"sync"
)

// Level describes the severity of log messages.
type Level int

const (
	// LevelDebug is the severity for debug messages.
	LevelDebug Level = iota
	// LevelInfo is the severity for informational messages.
	LevelInfo
	// LevelWarn is the severity for warnings.
	LevelWarn
	// LevelError is the severity for errors.
	LevelError
	// LevelPanic is the severity for panic messages.
	LevelPanic
	// LevelFatal is the severity for fatal errors.
	LevelFatal
)

// Logger is the interface for producing log messages for/from a particular source.
type Logger interface {
	// Debug formats and emits a debug message.
	Debug(format string, args ...interface{})
	// Info formats and emits an informational message.
	Info(format string, args ...interface{})
	// Warn formats and emits a warning message.
	Warn(format string, args ...interface{})
	// Error formats and emits an error message.
	Error(format string, args ...interface{})
	// Panic formats and emits an error message then panics with the same.
	Panic(format string, args ...interface{})
	// Fatal formats and emits an error message and os.Exit()'s with status 1.
	Fatal(format string, args ...interface{})

	// DebugBlock formats and emits a multiline debug message.
	DebugBlock(prefix string, format string, args ...interface{})
	// InfoBlock formats and emits a multiline information message.
	InfoBlock(prefix string, format string, args ...interface{})
	// WarnBlock formats and emits a multiline warning message.
	WarnBlock(prefix string, format string, args ...interface{})
	// ErrorBlock formats and emits a multiline error message.
	ErrorBlock(prefix string, format string, args ...interface{})

	// EnableDebug enables debug messages for this Logger.
	EnableDebug(bool) bool
	// DebugEnabled checks if debug messages are enabled for this Logger.
	DebugEnabled() bool

	// Source returns the source name of this Logger.
	Source() string
}

// logging is the runtime state shared by all loggers.
type logging struct {
	sync.RWMutex
	level    Level                // lowest unsuppressed severity
	backends map[string]BackendFn // registered backends
	active   Backend              // active backend
	loggers  map[string]*logger   // known loggers by source
	enabled  srcmap               // per-source logging overrides
	debug    srcmap               // per-source debugging overrides
	align    int                  // longest source name seen
}

// log is our logging state.
var log = &logging{
	level:    DefaultLevel,
	backends: make(map[string]BackendFn),
	loggers:  make(map[string]*logger),
	enabled:  make(srcmap),
	debug:    make(srcmap),
}

// logger implements Logger for a single source.
type logger struct {
	source  string
	logging bool
	debug   bool
}

// NewLogger creates a logger for the given source, or returns the existing one.
func NewLogger(source string) Logger {
	return log.get(source)
}

// Get is an alias for NewLogger.
func Get(source string) Logger {
	return log.get(source)
}

// SetLevel sets the lowest severity level of messages to pass through.
func SetLevel(level Level) {
	log.Lock()
	defer log.Unlock()
	log.level = level
}

// SetBackend activates the named backend.
func SetBackend(name string) error {
	log.Lock()
	defer log.Unlock()
	return log.setBackend(name)
}

// Flush waits for all pending messages to get emitted.
func Flush() {
	log.RLock()
	active := log.active
	log.RUnlock()
	if active != nil {
		active.Sync()
	}
}

// get returns the logger for source, creating it if necessary.
func (l *logging) get(source string) *logger {
	source = strings.Trim(source, "[] ")

	l.Lock()
	defer l.Unlock()

	if lg, ok := l.loggers[source]; ok {
		return lg
	}

	lg := &logger{source: source}
	lg.logging = l.enabled.state(source, true)
	lg.debug = l.debug.state(source, false)
	l.loggers[source] = lg

	if len(source) > l.align {
		l.align = len(source)
		if l.active != nil {
			l.active.SetSourceAlignment(l.align)
		}
	}

	return lg
}

// setBackend activates the named backend, with the lock held.
func (l *logging) setBackend(name string) error {
	if l.active != nil && l.active.Name() == name {
		return nil
	}
	fn, ok := l.backends[name]
	if !ok {
		return loggerError("unknown logger backend %q", name)
	}
	if l.active != nil {
		l.active.Stop()
	}
	l.active = fn()
	l.active.SetSourceAlignment(l.align)
	return nil
}

// update reconfigures all loggers from the given source maps, with the lock held.
func (l *logging) update(enabled, debug srcmap) {
	if enabled != nil {
		l.enabled = enabled.clone()
	}
	if debug != nil {
		l.debug = debug.clone()
	}
	for source, lg := range l.loggers {
		lg.logging = l.enabled.state(source, true)
		lg.debug = l.debug.state(source, false)
	}
}

// EnableDebug enables/disables debug logging for this logger.
func (lg *logger) EnableDebug(state bool) bool {
	log.Lock()
	defer log.Unlock()
	old := lg.debug
	lg.debug = state
	return old
}

// DebugEnabled checks debug logging is enabled for this logger.
func (lg *logger) DebugEnabled() bool {
	log.RLock()
	defer log.RUnlock()
	return lg.debug
}

// Source returns the source for the given logger.
func (lg *logger) Source() string {
	return lg.source
}

// Debug logs a debug message.
func (lg *logger) Debug(format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelDebug); emit {
		active.Log(LevelDebug, lg.source, format, args...)
	}
}

// Info logs an informational message.
func (lg *logger) Info(format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelInfo); emit {
		active.Log(LevelInfo, lg.source, format, args...)
	}
}

// Warn logs a warning message.
func (lg *logger) Warn(format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelWarn); emit {
		active.Log(LevelWarn, lg.source, format, args...)
	}
}

// Error logs an error message.
func (lg *logger) Error(format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelError); emit {
		active.Log(LevelError, lg.source, format, args...)
	}
}

// Fatal logs a fatal error message and os.Exit(1)'s.
func (lg *logger) Fatal(format string, args ...interface{}) {
	active, _ := lg.passthrough(LevelFatal)
	active.Log(LevelFatal, lg.source, format, args...)
	active.Sync()
	os.Exit(1)
}

// Panic logs a panic message and panic()'s.
func (lg *logger) Panic(format string, args ...interface{}) {
	active, _ := lg.passthrough(LevelPanic)
	active.Log(LevelPanic, lg.source, format, args...)
	active.Sync()
	panic(fmt.Sprintf(lg.source+": "+format, args...))
}

// DebugBlock logs a multi-line debug message.
func (lg *logger) DebugBlock(prefix string, format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelDebug); emit {
		active.Block(LevelDebug, lg.source, prefix, format, args...)
	}
}

// InfoBlock logs a multi-line informational message.
func (lg *logger) InfoBlock(prefix string, format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelInfo); emit {
		active.Block(LevelInfo, lg.source, prefix, format, args...)
	}
}

// WarnBlock logs a multi-line warning message.
func (lg *logger) WarnBlock(prefix string, format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelWarn); emit {
		active.Block(LevelWarn, lg.source, prefix, format, args...)
	}
}

// ErrorBlock logs a multi-line error message.
func (lg *logger) ErrorBlock(prefix string, format string, args ...interface{}) {
	if active, emit := lg.passthrough(LevelError); emit {
		active.Block(LevelError, lg.source, prefix, format, args...)
	}
}

// passthrough returns the active backend and whether a message of level is emitted.
func (lg *logger) passthrough(level Level) (Backend, bool) {
	log.RLock()
	defer log.RUnlock()

	switch {
	case level == LevelDebug:
		return log.active, lg.debug
	case level >= LevelPanic:
		return log.active, true
	case level < log.level:
		return log.active, false
	case level == LevelInfo:
		return log.active, lg.logging
	default:
		return log.active, true
	}
}

// loggerError returns a package-specific formatted error.
func loggerError(format string, args ...interface{}) error {
	return fmt.Errorf("logger: "+format, args...)
}
