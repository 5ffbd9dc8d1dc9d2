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
	"strconv"
	"strings"
)

// ValueKind is the kind of a symbolic stack value.
type ValueKind int

const (
	// Name is a reference to a (dotted) name.
	Name ValueKind = iota
	// CallResult is the result of a call.
	CallResult
	// Composite is a composite literal.
	Composite
	// Function is a function or class object being defined.
	Function
	// Module is an imported module.
	Module
	// Member is a member imported from a module.
	Member
	// Literal is a constant.
	Literal
	// Code is a code object placeholder.
	Code
	// Unknown is a value the interpreter cannot describe.
	Unknown
)

var valueKindNames = map[ValueKind]string{
	Name:       "name",
	CallResult: "call",
	Composite:  "composite",
	Function:   "function",
	Module:     "module",
	Member:     "member",
	Literal:    "literal",
	Code:       "code",
	Unknown:    "unknown",
}

// String returns the name of the kind.
func (k ValueKind) String() string {
	if name, ok := valueKindNames[k]; ok {
		return name
	}
	return "ValueKind(" + strconv.Itoa(int(k)) + ")"
}

// Value is a symbolic stack slot.
type Value struct {
	// Kind is the kind of the value.
	Kind ValueKind
	// Text is the textual rendering of the value.
	Text string
	// Ref is the name the value refers to: the callee path of a call
	// result, the definition name of a function, the module of a module
	// or member, the type of a literal or composite.
	Ref string
	// Member is the imported member name of a Member.
	Member string
	// Level is the relative import level of a Module or Member.
	Level int
	// Class tells if a Function is the body of a class.
	Class bool
}

// unknown is the value pushed for slots the interpreter cannot describe.
var unknown = Value{Kind: Unknown, Text: "?", Ref: "?"}

// NameValue returns a name reference.
func NameValue(name string) Value {
	return Value{Kind: Name, Text: name, Ref: name}
}

// Path returns the dotted path a value contributes as an attribute receiver
// or callee.
func (v Value) Path() string {
	switch v.Kind {
	case Name, Function, Module:
		return v.Ref
	case CallResult:
		return v.Ref + "()"
	case Member:
		return v.Ref + "." + v.Member
	case Literal, Composite:
		return v.Ref
	}
	return "?"
}

// String returns the textual rendering of the value.
func (v Value) String() string {
	return v.Text
}

// literalValue returns the value of a constant.
func literalValue(text string) Value {
	return Value{Kind: Literal, Text: text, Ref: literalType(text)}
}

// literalType guesses the type of a constant from its rendering.
func literalType(text string) string {
	switch {
	case text == "None":
		return "None"
	case text == "True" || text == "False":
		return "bool"
	case strings.HasPrefix(text, "b'") || strings.HasPrefix(text, `b"`):
		return "bytes"
	case strings.HasPrefix(text, "("):
		return "tuple"
	case strings.HasPrefix(text, "frozenset("):
		return "frozenset"
	}
	if _, err := strconv.ParseInt(text, 0, 64); err == nil {
		return "int"
	}
	if _, err := strconv.ParseFloat(text, 64); err == nil {
		return "float"
	}
	return "str"
}

// callValue returns the result of calling callee with args.
func callValue(callee Value, args []Value) Value {
	path := callee.Path()
	return Value{
		Kind: CallResult,
		Text: path + "(" + join(args) + ")",
		Ref:  path,
	}
}

// compositeValue returns a composite literal of the given type.
func compositeValue(typ, open, close string, items []Value) Value {
	return Value{
		Kind: Composite,
		Text: open + join(items) + close,
		Ref:  typ,
	}
}

func join(values []Value) string {
	texts := make([]string, 0, len(values))
	for _, v := range values {
		texts = append(texts, v.Text)
	}
	return strings.Join(texts, ", ")
}
