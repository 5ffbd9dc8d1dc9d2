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
	"encoding/json"
	"flag"
	"sort"
	"strings"

	pkgcfg "github.com/intel/isa-compat/pkg/config"
)

const (
	// DefaultLevel is the default lowest severity passed through.
	DefaultLevel = LevelInfo
	// configModule is our name in the configuration, and our flag prefix.
	configModule = "logger"
)

// options are the logging settings.
type options struct {
	// Level is the lowest severity passed through.
	Level Level `json:"level"`
	// Enable turns logging on or off per source.
	Enable srcmap `json:"enable,omitempty"`
	// Debug turns debugging on or off per source.
	Debug srcmap `json:"debug,omitempty"`
	// Logger is the name of the backend.
	Logger backendName `json:"logger"`
}

// srcmap maps sources, or '*' for all of them, to on/off states.
type srcmap map[string]bool

// backendName is the name of a registered Backend.
type backendName string

// levelNames are the names of the severity levels, in order.
var levelNames = []string{
	LevelDebug: "debug",
	LevelInfo:  "info",
	LevelWarn:  "warning",
	LevelError: "error",
	LevelPanic: "panic",
	LevelFatal: "fatal",
}

// the active logging settings
var opt = defaultOptions().(*options)

// Set sets the level by name. Setting the active level takes effect at once.
func (l *Level) Set(value string) error {
	for level, name := range levelNames {
		if strings.EqualFold(name, value) {
			*l = Level(level)
			if l == &opt.Level {
				SetLevel(*l)
			}
			return nil
		}
	}
	return loggerError("invalid logging level %q", value)
}

// String returns the name of the level.
func (l Level) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return levelNames[LevelInfo]
	}
	return levelNames[l]
}

// MarshalJSON marshals the level by name.
func (l Level) MarshalJSON() ([]byte, error) {
	return json.Marshal(l.String())
}

// UnmarshalJSON unmarshals the level from its name.
func (l *Level) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err != nil {
		return loggerError("invalid logging level %s", string(raw))
	}
	return l.Set(name)
}

// Set activates the named backend.
func (n *backendName) Set(value string) error {
	if err := SetBackend(value); err != nil {
		return err
	}
	*n = backendName(value)
	return nil
}

func (n backendName) String() string {
	return string(n)
}

// Set updates the map from a comma-separated list of sources. A source or
// a run of sources can be prefixed with 'on:' or 'off:'; unprefixed sources
// take the last state given, or on. 'all' is an alias for '*'.
func (m *srcmap) Set(value string) error {
	if *m == nil {
		*m = make(srcmap)
	}

	enabled := true
	for _, entry := range strings.Split(value, ",") {
		src := entry
		if i := strings.IndexByte(entry, ':'); i >= 0 {
			state, err := ParseEnabled(entry[:i])
			if err != nil {
				return loggerError("invalid source map entry %q: %v", entry, err)
			}
			enabled, src = state, entry[i+1:]
			if strings.Contains(src, ":") {
				return loggerError("invalid source map entry %q", entry)
			}
		}
		switch src {
		case "":
			continue
		case "all":
			src = "*"
		}
		(*m)[src] = enabled
	}

	log.Lock()
	defer log.Unlock()
	switch m {
	case &opt.Enable:
		log.update(*m, nil)
	case &opt.Debug:
		log.update(nil, *m)
	}
	return nil
}

// String returns the map in the format accepted by Set.
func (m *srcmap) String() string {
	byState := map[bool][]string{}
	for src, state := range *m {
		byState[state] = append(byState[state], src)
	}

	var parts []string
	for _, state := range []bool{true, false} {
		sources := byState[state]
		if len(sources) == 0 {
			continue
		}
		sort.Strings(sources)
		prefix := "off:"
		if state {
			prefix = "on:"
		}
		parts = append(parts, prefix+strings.Join(sources, ","))
	}
	if len(parts) == 0 {
		return "on:"
	}
	return strings.Join(parts, ",")
}

// MarshalJSON marshals the map as a string.
func (m srcmap) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

// UnmarshalJSON accepts either the string format of Set or a map of
// states to lists of sources.
func (m *srcmap) UnmarshalJSON(raw []byte) error {
	*m = make(srcmap)

	var value string
	if err := json.Unmarshal(raw, &value); err == nil {
		return m.Set(value)
	}

	states := map[string][]string{}
	if err := json.Unmarshal(raw, &states); err != nil {
		return loggerError("invalid source map %s: %v", string(raw), err)
	}
	for state, sources := range states {
		enabled, err := ParseEnabled(state)
		if err != nil {
			return loggerError("invalid source map %s: %v", string(raw), err)
		}
		for _, src := range sources {
			if src == "all" {
				src = "*"
			}
			(*m)[src] = enabled
		}
	}
	return nil
}

// state returns the state of source, falling back to '*', then to def.
func (m srcmap) state(source string, def bool) bool {
	if state, ok := m[source]; ok {
		return state
	}
	if state, ok := m["*"]; ok {
		return state
	}
	return def
}

func (m srcmap) clone() srcmap {
	c := make(srcmap, len(m))
	for src, state := range m {
		c[src] = state
	}
	return c
}

// ParseEnabled parses an on/off style boolean.
func ParseEnabled(value string) (bool, error) {
	switch strings.ToLower(value) {
	case "on", "enable", "enabled", "true", "1", "yes":
		return true, nil
	case "off", "disable", "disabled", "false", "0", "no":
		return false, nil
	}
	return false, loggerError("invalid on/off state %q", value)
}

// configNotify activates updated logging settings.
func configNotify(event pkgcfg.Event, src pkgcfg.Source) error {
	log.Lock()
	log.level = opt.Level
	err := log.setBackend(opt.Logger.String())
	log.update(opt.Enable, opt.Debug)
	log.Unlock()

	deflog.Debug("logging %v from %v: level %v, sources %s, debug %s",
		event, src, opt.Level, opt.Enable.String(), opt.Debug.String())

	return err
}

func defaultOptions() interface{} {
	return &options{
		Level:  DefaultLevel,
		Enable: make(srcmap),
		Debug:  make(srcmap),
		Logger: FmtBackendName,
	}
}

// RegisterFlags registers the logging flags in the given FlagSet.
func RegisterFlags(fs *flag.FlagSet) {
	fs.Var(&opt.Logger, configModule,
		"logging backend, fmt or klog")
	fs.Var(&opt.Level, configModule+"-level",
		"lowest severity to pass through: debug, info, warning or error")
	fs.Var(&opt.Enable, configModule+"-sources",
		"comma-separated sources to log, all by default; prefix with 'off:' to disable")
	fs.Var(&opt.Debug, configModule+"-debug",
		"comma-separated sources to debug, '*' or 'all' for every source; prefix with 'off:' to disable")
}

func init() {
	pkgcfg.SetLogger(log.get("config"))
	pkgcfg.Register(configModule, configHelp, opt, defaultOptions,
		pkgcfg.WithNotify(configNotify))
}
