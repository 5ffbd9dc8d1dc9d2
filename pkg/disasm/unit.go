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
	"strings"
)

const (
	// ModuleUnit is the name of the top-level script body.
	ModuleUnit = "<module>"
	// localsMarker separates enclosing and nested names in compiler qualified names.
	localsMarker = "<locals>."
)

// Instruction is a single decoded instruction of a unit.
type Instruction struct {
	// Offset is the offset of the instruction within its unit.
	Offset int
	// Op is the decoded opcode.
	Op Opcode
	// Line is the source line the instruction belongs to.
	Line int
	// Target tells if the instruction is a jump target.
	Target bool
}

// Block marks the first instruction of a source line.
type Block struct {
	Line   int
	Offset int
}

// Unit is the normalized instruction stream of a single callable.
type Unit struct {
	// Name is the plain name of the callable.
	Name string
	// QualifiedName is the name qualified by the enclosing callables.
	QualifiedName string
	// Address is the address of the code object, empty for the module body.
	Address string
	// File is the source file the callable was compiled from.
	File string
	// FirstLine is the first source line of the callable.
	FirstLine int
	// Enclosing is the unit defining this one, nil for top-level units.
	Enclosing *Unit
	// Instructions are the instructions of the unit in offset order.
	Instructions []Instruction
	// Blocks are the source-line block boundaries in offset order.
	Blocks []Block
	// Excluded is the number of instructions dropped in cleanup regions.
	Excluded int
}

// IsModule tells if the unit is the top-level script body.
func (u *Unit) IsModule() bool {
	return u.Name == ModuleUnit
}

// Stream returns the instructions of the unit keyed by offset.
func (u *Unit) Stream() map[int]Instruction {
	stream := make(map[int]Instruction, len(u.Instructions))
	for _, inst := range u.Instructions {
		stream[inst.Offset] = inst
	}
	return stream
}

// Program is the set of units parsed from one disassembly.
type Program struct {
	// Name identifies the program, usually the disassembled file.
	Name string
	// Units are the successfully parsed units in input order.
	Units []*Unit
	// Warnings collects the errors of skipped units.
	Warnings error
}

// Unit looks up a unit by qualified name.
func (p *Program) Unit(name string) *Unit {
	for _, u := range p.Units {
		if u.QualifiedName == name {
			return u
		}
	}
	return nil
}

// Module returns the top-level script body, if present.
func (p *Program) Module() *Unit {
	return p.Unit(ModuleUnit)
}

// QualifiedName turns a compiler qualified name into a dotted definition name.
func QualifiedName(name string) string {
	return strings.ReplaceAll(name, localsMarker, "")
}
