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
	"github.com/pkg/errors"

	"github.com/intel/isa-compat/pkg/disasm"
)

// Trace is the result of interpreting a single unit.
type Trace struct {
	// Unit is the qualified name of the interpreted unit.
	Unit string
	// Events are the events in instruction order.
	Events []Event
	// Partial tells if interpretation stopped early.
	Partial bool
}

// Calls returns the call events of the trace.
func (t *Trace) Calls() []Event {
	return t.filter(CallEvent)
}

// Bindings returns the binding and definition events of the trace.
func (t *Trace) Bindings() []Event {
	return t.filter(BindingEvent, DefinitionEvent)
}

// Imports returns the import events of the trace.
func (t *Trace) Imports() []Event {
	return t.filter(ImportEvent)
}

func (t *Trace) filter(kinds ...EventKind) []Event {
	var events []Event
	for _, e := range t.Events {
		for _, k := range kinds {
			if e.Kind == k {
				events = append(events, e)
				break
			}
		}
	}
	return events
}

// Interpret runs the instructions of a unit through the abstract interpreter
// in a single pass. On a fatal stack underflow the trace collected up to the
// failing instruction is returned, marked partial, together with the error.
func Interpret(u *disasm.Unit) (*Trace, error) {
	s := NewState(u.QualifiedName)
	for _, inst := range u.Instructions {
		if err := s.Step(inst); err != nil {
			log.Debug("%s: interpretation stopped: %v", u.QualifiedName, err)
			return &Trace{Unit: u.QualifiedName, Events: s.Events, Partial: true}, err
		}
	}

	if len(s.Pending) > 0 {
		log.Debug("%s: %d branch targets never reached", u.QualifiedName, len(s.Pending))
	}

	return &Trace{Unit: u.QualifiedName, Events: s.Events}, nil
}

// IsUnderflow tells if err is caused by a stack underflow.
func IsUnderflow(err error) bool {
	return errors.Is(err, ErrStackUnderflow)
}
