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
	"math/bits"
	"strconv"

	"github.com/pkg/errors"

	"github.com/intel/isa-compat/pkg/disasm"
	logger "github.com/intel/isa-compat/pkg/log"
)

// ErrStackUnderflow is returned when an instruction needs more operands
// than the stack holds and the underflow cannot be tolerated.
var ErrStackUnderflow = errors.New("stack underflow")

var log = logger.NewLogger("interp")

// Snapshot is a saved stack to restore when reaching a merge target.
type Snapshot struct {
	Target int
	// Stack is the saved stack, top last.
	Stack []Value
}

// State is the state of interpreting a single unit.
type State struct {
	// Scope is the qualified name of the unit being interpreted.
	Scope string
	stack []Value
	// Snapshots are the saved stacks of pending branches, most recent last.
	Snapshots []Snapshot
	// Pending are the branch targets not reached yet.
	Pending map[int]struct{}
	// Events is the trace produced so far.
	Events []Event
}

// NewState creates interpreter state for the named unit.
func NewState(scope string) *State {
	return &State{
		Scope:   scope,
		Pending: make(map[int]struct{}),
	}
}

// Depth returns the current stack depth.
func (s *State) Depth() int {
	return len(s.stack)
}

// Stack returns a copy of the operand stack, top at index 0.
func (s *State) Stack() []Value {
	view := make([]Value, len(s.stack))
	for i, v := range s.stack {
		view[len(s.stack)-1-i] = v
	}
	return view
}

// Step executes a single instruction, first merging pending branches
// targeting the offset of the instruction.
func (s *State) Step(inst disasm.Instruction) error {
	s.merge(inst.Offset)

	op := inst.Op
	switch op.Kind {
	case disasm.Load:
		s.load(inst)
	case disasm.LoadAttribute:
		s.loadAttribute(inst)
	case disasm.Store:
		return s.store(inst)
	case disasm.StoreAttribute:
		return s.storeAttribute(inst)
	case disasm.Call:
		return s.call(inst)
	case disasm.MakeCallable:
		return s.makeCallable(inst)
	case disasm.BuildComposite:
		s.buildComposite(inst)
	case disasm.Branch:
		s.branch(inst)
	case disasm.Return:
		s.popSome(1)
	case disasm.Raise:
		s.popSome(op.Argc)
	case disasm.Reraise:
		s.popSome(3)
	case disasm.ImportModule:
		s.importModule(inst)
	case disasm.ImportMember:
		s.importMember(inst)
	case disasm.ImportStar:
		s.importStar(inst)
	case disasm.StackDup:
		if v, ok := s.peek(); ok {
			s.push(v)
		}
	case disasm.StackPop:
		s.popSome(1)
	case disasm.BinaryOp:
		s.popSome(2)
		s.push(unknown)
	case disasm.ListExtend:
		s.popSome(1)
	case disasm.Opaque:
		s.popSome(op.Pops)
		for i := 0; i < op.Pushes; i++ {
			s.push(unknown)
		}
	default:
		return interpError("%s: unhandled opcode kind %s at offset %d", s.Scope, op.Kind, inst.Offset)
	}

	return nil
}

// merge restores the stack saved for a pending target at offset.
func (s *State) merge(offset int) {
	if _, ok := s.Pending[offset]; !ok {
		return
	}
	delete(s.Pending, offset)

	for i := len(s.Snapshots) - 1; i >= 0; i-- {
		if s.Snapshots[i].Target == offset {
			s.stack = s.Snapshots[i].Stack
			break
		}
	}

	// drop all other snapshots of the same target
	kept := s.Snapshots[:0]
	for _, snap := range s.Snapshots {
		if snap.Target != offset {
			kept = append(kept, snap)
		}
	}
	s.Snapshots = kept
}

// snapshot saves a copy of the stack for the given target.
func (s *State) snapshot(offset, target int, stack []Value) {
	if target <= offset {
		return
	}
	saved := make([]Value, len(stack))
	copy(saved, stack)
	s.Snapshots = append(s.Snapshots, Snapshot{Target: target, Stack: saved})
	s.Pending[target] = struct{}{}
}

func (s *State) push(v Value) {
	s.stack = append(s.stack, v)
}

func (s *State) peek() (Value, bool) {
	if len(s.stack) == 0 {
		return Value{}, false
	}
	return s.stack[len(s.stack)-1], true
}

// pop pops n values, failing without popping if the stack holds fewer.
// The returned values are in stack order, most recently pushed first.
func (s *State) pop(n int) ([]Value, error) {
	depth := len(s.stack)
	if n > depth {
		return nil, errors.Wrapf(ErrStackUnderflow, "need %d, have %d", n, depth)
	}
	popped := make([]Value, n)
	for i := range popped {
		popped[i] = s.stack[depth-1-i]
	}
	s.stack = s.stack[:depth-n]
	return popped, nil
}

// popSome pops up to n values, tolerating underflow.
func (s *State) popSome(n int) []Value {
	if n > len(s.stack) {
		n = len(s.stack)
	}
	popped, _ := s.pop(n)
	return popped
}

// popOne pops a single value, tolerating underflow.
func (s *State) popOne() Value {
	if popped := s.popSome(1); len(popped) == 1 {
		return popped[0]
	}
	return unknown
}

func (s *State) emit(inst disasm.Instruction, e Event) {
	e.Offset = inst.Offset
	e.Line = inst.Line
	s.Events = append(s.Events, e)
}

func (s *State) underflow(inst disasm.Instruction, err error) error {
	return errors.Wrapf(err, "%s: %s at offset %d", s.Scope, inst.Op.Mnemonic, inst.Offset)
}

func (s *State) load(inst disasm.Instruction) {
	op := inst.Op
	switch {
	case op.Code != nil:
		s.push(Value{Kind: Code, Text: "<code " + op.Code.Name + ">", Ref: op.Code.Name})
	case op.Const:
		s.push(literalValue(op.Name))
	default:
		s.push(NameValue(op.Name))
		s.emit(inst, Event{Kind: LoadEvent, Name: op.Name})
	}
}

func (s *State) loadAttribute(inst disasm.Instruction) {
	recv := s.popOne()
	path := recv.Path() + "." + inst.Op.Name
	s.push(Value{Kind: Name, Text: path, Ref: path})
}

func (s *State) store(inst disasm.Instruction) error {
	popped, err := s.pop(1)
	if err != nil {
		return s.underflow(inst, err)
	}
	v := popped[0]
	kind := BindingEvent
	if v.Kind == Function {
		kind = DefinitionEvent
	}
	s.emit(inst, Event{Kind: kind, Name: inst.Op.Name, Value: v})
	return nil
}

func (s *State) storeAttribute(inst disasm.Instruction) error {
	popped, err := s.pop(2)
	if err != nil {
		return s.underflow(inst, err)
	}
	recv, v := popped[0], popped[1]
	s.emit(inst, Event{
		Kind:      BindingEvent,
		Name:      recv.Path() + "." + inst.Op.Name,
		Value:     v,
		Attribute: true,
	})
	return nil
}

func (s *State) call(inst disasm.Instruction) error {
	op := inst.Op

	var (
		args []Value
		err  error
	)
	switch op.Call {
	case disasm.Positional:
		args, err = s.pop(op.Argc)
	case disasm.Keyword:
		if _, err = s.pop(1); err == nil {
			args, err = s.pop(op.Argc)
		}
	case disasm.Expanded:
		n := 1
		if op.Flags&0x01 != 0 {
			n = 2
		}
		args, err = s.pop(n)
	default:
		err = interpError("unknown call kind %d", op.Call)
	}
	if err != nil {
		return s.underflow(inst, err)
	}
	popped, err := s.pop(1)
	if err != nil {
		return s.underflow(inst, err)
	}
	callee := popped[0]
	reverse(args)

	s.emit(inst, Event{Kind: CallEvent, Name: callee.Path(), Value: callee})

	if callee.Kind == Name && callee.Ref == disasm.BuildClass && len(args) > 0 && args[0].Kind == Function {
		class := args[0]
		class.Class = true
		s.push(class)
		return nil
	}

	s.push(callValue(callee, args))
	return nil
}

func (s *State) makeCallable(inst disasm.Instruction) error {
	popped, err := s.pop(1)
	if err != nil {
		return s.underflow(inst, err)
	}

	var name string
	if top := popped[0]; top.Kind == Code {
		name = s.nested(top.Ref)
	} else {
		if _, err := s.pop(1); err != nil {
			return s.underflow(inst, err)
		}
		name = disasm.QualifiedName(top.Text)
	}

	if _, err := s.pop(bits.OnesCount(uint(inst.Op.Flags))); err != nil {
		return s.underflow(inst, err)
	}

	s.push(Value{Kind: Function, Text: name, Ref: name})
	return nil
}

// nested returns the qualified name of a callable defined in this scope.
func (s *State) nested(name string) string {
	if s.Scope == "" || s.Scope == disasm.ModuleUnit {
		return name
	}
	return s.Scope + "." + name
}

func (s *State) buildComposite(inst disasm.Instruction) {
	op := inst.Op
	switch op.Composite {
	case disasm.String:
		s.push(compositeValue("str", "f'", "'", reversed(s.popSome(op.Argc))))
	case disasm.List:
		s.push(compositeValue("list", "[", "]", reversed(s.popSome(op.Argc))))
	case disasm.Tuple:
		s.push(compositeValue("tuple", "(", ")", reversed(s.popSome(op.Argc))))
	case disasm.Map:
		s.popSome(1) // constant key tuple
		s.push(compositeValue("dict", "{", "}", reversed(s.popSome(op.Argc))))
	case disasm.KeyedMap:
		s.push(compositeValue("dict", "{", "}", reversed(s.popSome(2*op.Argc))))
	default:
		log.Warn("%s: unknown composite kind %d at offset %d", s.Scope, op.Composite, inst.Offset)
		s.push(unknown)
	}
}

func (s *State) branch(inst disasm.Instruction) {
	op := inst.Op
	switch op.Branch {
	case disasm.ConditionalPop:
		s.popSome(1)
		s.snapshot(inst.Offset, op.Target, s.stack)
	case disasm.ConditionalPeek:
		s.snapshot(inst.Offset, op.Target, s.stack)
		s.popSome(1)
	case disasm.Unconditional:
		s.snapshot(inst.Offset, op.Target, s.stack)
	case disasm.Iterate:
		if depth := len(s.stack); depth > 0 {
			s.snapshot(inst.Offset, op.Target, s.stack[:depth-1])
		}
		s.push(unknown)
	}
	s.emit(inst, Event{Kind: BranchEvent, Target: op.Target})
}

func (s *State) importModule(inst disasm.Instruction) {
	popped := s.popSome(2)
	level := 0
	if len(popped) == 2 && popped[1].Kind == Literal {
		if l, err := strconv.Atoi(popped[1].Text); err == nil {
			level = l
		}
	}
	name := inst.Op.Name
	s.push(Value{Kind: Module, Text: name, Ref: name, Level: level})
	s.emit(inst, Event{Kind: ImportEvent, Name: name, Level: level})
}

func (s *State) importMember(inst disasm.Instruction) {
	mod, ok := s.peek()
	if !ok {
		mod = unknown
	}
	member := inst.Op.Name
	s.push(Value{
		Kind:   Member,
		Text:   mod.Ref + "." + member,
		Ref:    mod.Ref,
		Member: member,
		Level:  mod.Level,
	})
	s.emit(inst, Event{Kind: ImportEvent, Name: mod.Ref, Member: member, Level: mod.Level})
}

func (s *State) importStar(inst disasm.Instruction) {
	mod := s.popOne()
	s.emit(inst, Event{Kind: ImportEvent, Name: mod.Ref, Member: StarImport, Level: mod.Level})
}

// reverse reverses values in place, turning stack order into push order.
func reverse(values []Value) {
	for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
		values[i], values[j] = values[j], values[i]
	}
}

func reversed(values []Value) []Value {
	reverse(values)
	return values
}

// interpError returns a formatted package-specific error.
func interpError(format string, args ...interface{}) error {
	return fmt.Errorf("interp: "+format, args...)
}
