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

package interp

import (
	"fmt"
	"strconv"
)

// EventKind is the kind of a trace event.
type EventKind int

const (
	// LoadEvent records a name being loaded.
	LoadEvent EventKind = iota
	// CallEvent records a call.
	CallEvent
	// BindingEvent records a value being stored into a name or attribute.
	BindingEvent
	// DefinitionEvent records a function or class being bound to a name.
	DefinitionEvent
	// ImportEvent records a module, member or star import.
	ImportEvent
	// BranchEvent records a conditional or unconditional jump.
	BranchEvent
)

var eventKindNames = map[EventKind]string{
	LoadEvent:       "load",
	CallEvent:       "call",
	BindingEvent:    "binding",
	DefinitionEvent: "definition",
	ImportEvent:     "import",
	BranchEvent:     "branch",
}

// String returns the name of the kind.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "EventKind(" + strconv.Itoa(int(k)) + ")"
}

// StarImport is the member name of star imports.
const StarImport = "*"

// Event is a single entry of the trace produced by interpretation.
type Event struct {
	// Kind is the kind of the event.
	Kind EventKind
	// Offset and Line locate the instruction producing the event.
	Offset int
	Line   int
	// Name is the loaded name, the callee path of a call, the bound name
	// of a binding or definition, or the module of an import.
	Name string
	// Value is the callee of a call or the bound value of a binding.
	Value Value
	// Member is the imported member of an import, StarImport for star imports.
	Member string
	// Level is the relative import level of an import.
	Level int
	// Attribute tells if a binding stores into an attribute.
	Attribute bool
	// Target is the target offset of a branch.
	Target int
}

// String returns a compact rendering of the event.
func (e Event) String() string {
	switch e.Kind {
	case CallEvent:
		return fmt.Sprintf("@%d call %s", e.Offset, e.Name)
	case BindingEvent, DefinitionEvent:
		return fmt.Sprintf("@%d %s %s = %s", e.Offset, e.Kind, e.Name, e.Value)
	case ImportEvent:
		if e.Member != "" {
			return fmt.Sprintf("@%d import %s from %s (level %d)", e.Offset, e.Member, e.Name, e.Level)
		}
		return fmt.Sprintf("@%d import %s (level %d)", e.Offset, e.Name, e.Level)
	case BranchEvent:
		return fmt.Sprintf("@%d branch to %d", e.Offset, e.Target)
	}
	return fmt.Sprintf("@%d %s %s", e.Offset, e.Kind, e.Name)
}
