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
	"strconv"
	"strings"
)

// OpcodeKind is the semantic category of an instruction.
type OpcodeKind int

const (
	// Load pushes a named value or a constant.
	Load OpcodeKind = iota
	// LoadAttribute replaces the top of the stack with one of its attributes.
	LoadAttribute
	// Store pops a value into a name.
	Store
	// StoreAttribute pops a receiver and a value into an attribute.
	StoreAttribute
	// Call pops a callee and its arguments and pushes the call result.
	Call
	// MakeCallable pops a code object, a qualified name and optional
	// extras and pushes a function object.
	MakeCallable
	// BuildComposite pops items and pushes a composite literal.
	BuildComposite
	// Branch transfers control to a target offset.
	Branch
	// Return pops the return value.
	Return
	// Raise pops the exception operands.
	Raise
	// Reraise re-raises the active exception.
	Reraise
	// ImportModule pops the level and fromlist and pushes a module.
	ImportModule
	// ImportMember pushes a member of the module on the top of the stack.
	ImportMember
	// ImportStar pops a module and imports all of its public names.
	ImportStar
	// StackDup duplicates the top of the stack.
	StackDup
	// StackPop discards the top of the stack.
	StackPop
	// BinaryOp pops two operands and pushes the result.
	BinaryOp
	// ListExtend pops an iterable, extending a list deeper in the stack.
	ListExtend
	// Opaque carries no naming information, only a fixed stack effect.
	Opaque
)

var kindNames = map[OpcodeKind]string{
	Load:           "Load",
	LoadAttribute:  "LoadAttribute",
	Store:          "Store",
	StoreAttribute: "StoreAttribute",
	Call:           "Call",
	MakeCallable:   "MakeCallable",
	BuildComposite: "BuildComposite",
	Branch:         "Branch",
	Return:         "Return",
	Raise:          "Raise",
	Reraise:        "Reraise",
	ImportModule:   "ImportModule",
	ImportMember:   "ImportMember",
	ImportStar:     "ImportStar",
	StackDup:       "StackDup",
	StackPop:       "StackPop",
	BinaryOp:       "BinaryOp",
	ListExtend:     "ListExtend",
	Opaque:         "Opaque",
}

// String returns the name of the kind.
func (k OpcodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "OpcodeKind(" + strconv.Itoa(int(k)) + ")"
}

// CallKind tells how the arguments of a Call are passed.
type CallKind int

const (
	// Positional calls pass argc positional arguments.
	Positional CallKind = iota
	// Keyword calls pass argc arguments followed by a tuple of keyword names.
	Keyword
	// Expanded calls pass an argument sequence and an optional keyword mapping.
	Expanded
)

// CompositeKind is the type of literal built by BuildComposite.
type CompositeKind int

const (
	// String concatenates argc string fragments.
	String CompositeKind = iota
	// List builds a list (or set) of argc items.
	List
	// Map builds a mapping of argc values keyed by a constant key tuple.
	Map
	// Tuple builds a tuple of argc items.
	Tuple
	// KeyedMap builds a mapping of argc key/value pairs.
	KeyedMap
)

// BranchKind tells how a Branch treats the stack.
type BranchKind int

const (
	// ConditionalPop pops the condition and jumps if it holds.
	ConditionalPop BranchKind = iota
	// ConditionalPeek jumps keeping the condition, pops it otherwise.
	ConditionalPeek
	// Unconditional always jumps.
	Unconditional
	// Iterate pushes the next item of the iterator on the top of the stack,
	// or pops the exhausted iterator and jumps.
	Iterate
)

// CodeRef identifies the code object loaded by a constant Load.
type CodeRef struct {
	Name    string
	Address string
}

// Opcode is a decoded instruction.
type Opcode struct {
	Kind      OpcodeKind
	Mnemonic  string
	Name      string        // name or literal of Load, Store, Import*
	Const     bool          // Load of a constant
	Code      *CodeRef      // Load of a code object
	Argc      int           // Call, BuildComposite, Raise, ListExtend argument count
	Flags     int           // MakeCallable flag mask, Expanded Call flags
	Call      CallKind      // Call
	Composite CompositeKind // BuildComposite
	Branch    BranchKind    // Branch
	Target    int           // Branch target offset
	Pops      int           // Opaque
	Pushes    int           // Opaque
}

// String returns a compact rendering of the opcode.
func (op Opcode) String() string {
	switch op.Kind {
	case Load, LoadAttribute, Store, StoreAttribute, ImportModule, ImportMember:
		return op.Kind.String() + "(" + op.Name + ")"
	case Call, BuildComposite, Raise, ListExtend:
		return op.Kind.String() + "(" + strconv.Itoa(op.Argc) + ")"
	case MakeCallable:
		return fmt.Sprintf("%s(%#x)", op.Kind, op.Flags)
	case Branch:
		return op.Kind.String() + "(" + strconv.Itoa(op.Target) + ")"
	case Opaque:
		return fmt.Sprintf("%s(%s, -%d+%d)", op.Kind, op.Mnemonic, op.Pops, op.Pushes)
	}
	return op.Kind.String()
}

// decodeFn decodes the argument and its rendering into an Opcode.
type decodeFn func(op *Opcode, arg int, hasArg bool, decoded string) error

// needArg wraps a decodeFn, failing if the instruction has no argument.
func needArg(fn decodeFn) decodeFn {
	return func(op *Opcode, arg int, hasArg bool, decoded string) error {
		if !hasArg {
			return disasmError("%s: missing argument", op.Mnemonic)
		}
		return fn(op, arg, hasArg, decoded)
	}
}

func named(kind OpcodeKind) decodeFn {
	return needArg(func(op *Opcode, arg int, _ bool, decoded string) error {
		op.Kind = kind
		op.Name = stripNull(unquote(decoded))
		if op.Name == "" {
			return disasmError("%s %d: missing name", op.Mnemonic, arg)
		}
		return nil
	})
}

func constant(op *Opcode, arg int, hasArg bool, decoded string) error {
	if !hasArg {
		return disasmError("%s: missing argument", op.Mnemonic)
	}
	op.Kind = Load
	op.Const = true
	op.Name = unquote(decoded)
	if strings.HasPrefix(decoded, "<code object ") {
		ref, err := parseCodeRef(decoded)
		if err != nil {
			return err
		}
		op.Code = ref
		op.Name = ref.Name
	}
	return nil
}

func fixedName(kind OpcodeKind, name string) decodeFn {
	return func(op *Opcode, _ int, _ bool, _ string) error {
		op.Kind = kind
		op.Name = name
		return nil
	}
}

func call(kind CallKind) decodeFn {
	return needArg(func(op *Opcode, arg int, _ bool, _ string) error {
		op.Kind = Call
		op.Call = kind
		if kind == Expanded {
			op.Flags = arg
		} else {
			op.Argc = arg
		}
		return nil
	})
}

func composite(kind CompositeKind) decodeFn {
	return needArg(func(op *Opcode, arg int, _ bool, _ string) error {
		op.Kind = BuildComposite
		op.Composite = kind
		op.Argc = arg
		return nil
	})
}

func branch(kind BranchKind) decodeFn {
	return needArg(func(op *Opcode, arg int, _ bool, decoded string) error {
		op.Kind = Branch
		op.Branch = kind
		op.Target = arg
		if strings.HasPrefix(decoded, "to ") {
			target, err := strconv.Atoi(strings.TrimSpace(strings.TrimPrefix(decoded, "to ")))
			if err != nil {
				return disasmError("%s: invalid jump target %q", op.Mnemonic, decoded)
			}
			op.Target = target
		}
		return nil
	})
}

func counted(kind OpcodeKind) decodeFn {
	return needArg(func(op *Opcode, arg int, _ bool, _ string) error {
		op.Kind = kind
		op.Argc = arg
		return nil
	})
}

func simple(kind OpcodeKind) decodeFn {
	return func(op *Opcode, _ int, _ bool, _ string) error {
		op.Kind = kind
		return nil
	}
}

func makeCallable(op *Opcode, arg int, hasArg bool, _ string) error {
	if !hasArg {
		return disasmError("%s: missing flags", op.Mnemonic)
	}
	op.Kind = MakeCallable
	op.Flags = arg
	return nil
}

// opaque decodes to a fixed stack effect.
func opaque(pops, pushes int) decodeFn {
	return func(op *Opcode, _ int, _ bool, _ string) error {
		op.Kind = Opaque
		op.Pops = pops
		op.Pushes = pushes
		return nil
	}
}

// opaqueArg decodes to a stack effect computed from the argument.
func opaqueArg(effect func(arg int) (int, int)) decodeFn {
	return needArg(func(op *Opcode, arg int, _ bool, _ string) error {
		op.Kind = Opaque
		op.Pops, op.Pushes = effect(arg)
		return nil
	})
}

// mnemonics maps disassembler mnemonics to their decoders.
var mnemonics = map[string]decodeFn{
	"LOAD_NAME":                    named(Load),
	"LOAD_GLOBAL":                  named(Load),
	"LOAD_FAST":                    named(Load),
	"LOAD_DEREF":                   named(Load),
	"LOAD_CLASSDEREF":              named(Load),
	"LOAD_CLOSURE":                 named(Load),
	"LOAD_CONST":                   constant,
	"LOAD_BUILD_CLASS":             fixedName(Load, BuildClass),
	"LOAD_ASSERTION_ERROR":         fixedName(Load, "AssertionError"),
	"LOAD_ATTR":                    named(LoadAttribute),
	"LOAD_METHOD":                  named(LoadAttribute),
	"STORE_NAME":                   named(Store),
	"STORE_GLOBAL":                 named(Store),
	"STORE_FAST":                   named(Store),
	"STORE_DEREF":                  named(Store),
	"STORE_ATTR":                   named(StoreAttribute),
	"CALL_FUNCTION":                call(Positional),
	"CALL_METHOD":                  call(Positional),
	"CALL":                         call(Positional),
	"CALL_FUNCTION_KW":             call(Keyword),
	"CALL_FUNCTION_EX":             call(Expanded),
	"MAKE_FUNCTION":                makeCallable,
	"BUILD_STRING":                 composite(String),
	"BUILD_LIST":                   composite(List),
	"BUILD_SET":                    composite(List),
	"BUILD_TUPLE":                  composite(Tuple),
	"BUILD_CONST_KEY_MAP":          composite(Map),
	"BUILD_MAP":                    composite(KeyedMap),
	"BUILD_SLICE":                  composite(Tuple),
	"POP_JUMP_IF_FALSE":            branch(ConditionalPop),
	"POP_JUMP_IF_TRUE":             branch(ConditionalPop),
	"POP_JUMP_FORWARD_IF_FALSE":    branch(ConditionalPop),
	"POP_JUMP_FORWARD_IF_TRUE":     branch(ConditionalPop),
	"POP_JUMP_FORWARD_IF_NONE":     branch(ConditionalPop),
	"POP_JUMP_FORWARD_IF_NOT_NONE": branch(ConditionalPop),
	"JUMP_IF_FALSE_OR_POP":         branch(ConditionalPeek),
	"JUMP_IF_TRUE_OR_POP":          branch(ConditionalPeek),
	"JUMP_FORWARD":                 branch(Unconditional),
	"JUMP_ABSOLUTE":                branch(Unconditional),
	"JUMP_BACKWARD":                branch(Unconditional),
	"FOR_ITER":                     branch(Iterate),
	"RETURN_VALUE":                 simple(Return),
	"RAISE_VARARGS":                counted(Raise),
	"RERAISE":                      simple(Reraise),
	"IMPORT_NAME":                  named(ImportModule),
	"IMPORT_FROM":                  named(ImportMember),
	"IMPORT_STAR":                  simple(ImportStar),
	"DUP_TOP":                      simple(StackDup),
	"POP_TOP":                      simple(StackPop),
	"LIST_EXTEND":                  counted(ListExtend),
	"SET_UPDATE":                   counted(ListExtend),
	"DICT_UPDATE":                  counted(ListExtend),
	"DICT_MERGE":                   counted(ListExtend),
	"LIST_APPEND":                  counted(ListExtend),
	"SET_ADD":                      counted(ListExtend),
	"COMPARE_OP":                   simple(BinaryOp),
	"IS_OP":                        simple(BinaryOp),
	"CONTAINS_OP":                  simple(BinaryOp),
	"BINARY_OP":                    simple(BinaryOp),
	"BINARY_SUBSCR":                simple(BinaryOp),

	"NOP":                   opaque(0, 0),
	"RESUME":                opaque(0, 0),
	"CACHE":                 opaque(0, 0),
	"PRECALL":               opaque(0, 0),
	"KW_NAMES":              opaque(0, 0),
	"PUSH_NULL":             opaque(0, 0),
	"EXTENDED_ARG":          opaque(0, 0),
	"ROT_TWO":               opaque(0, 0),
	"ROT_THREE":             opaque(0, 0),
	"ROT_FOUR":              opaque(0, 0),
	"ROT_N":                 opaque(0, 0),
	"SWAP":                  opaque(0, 0),
	"SETUP_FINALLY":         opaque(0, 0),
	"SETUP_ASYNC_WITH":      opaque(0, 0),
	"SETUP_ANNOTATIONS":     opaque(0, 0),
	"POP_BLOCK":             opaque(0, 0),
	"POP_EXCEPT":            opaque(0, 0),
	"SETUP_WITH":            opaque(1, 2),
	"BEFORE_WITH":           opaque(1, 2),
	"GET_ITER":              opaque(1, 1),
	"GET_YIELD_FROM_ITER":   opaque(1, 1),
	"GET_AWAITABLE":         opaque(1, 1),
	"UNARY_NOT":             opaque(1, 1),
	"UNARY_NEGATIVE":        opaque(1, 1),
	"UNARY_POSITIVE":        opaque(1, 1),
	"UNARY_INVERT":          opaque(1, 1),
	"FORMAT_VALUE":          opaqueArg(func(arg int) (int, int) { return 1 + (arg&0x04)>>2, 1 }),
	"YIELD_VALUE":           opaque(1, 1),
	"YIELD_FROM":            opaque(2, 1),
	"GEN_START":             opaque(1, 0),
	"DUP_TOP_TWO":           opaque(0, 2),
	"DELETE_NAME":           opaque(0, 0),
	"DELETE_FAST":           opaque(0, 0),
	"DELETE_GLOBAL":         opaque(0, 0),
	"DELETE_ATTR":           opaque(1, 0),
	"DELETE_SUBSCR":         opaque(2, 0),
	"STORE_SUBSCR":          opaque(3, 0),
	"UNPACK_SEQUENCE":       opaqueArg(func(arg int) (int, int) { return 1, arg }),
	"UNPACK_EX":             opaqueArg(func(arg int) (int, int) { return 1, (arg & 0xff) + (arg >> 8) + 1 }),
	"LIST_TO_TUPLE":         opaque(1, 1),
	"PRINT_EXPR":            opaque(1, 0),
	"JUMP_IF_NOT_EXC_MATCH": opaque(2, 0),
	"END_FINALLY":           opaque(0, 0),
	"BEGIN_FINALLY":         opaque(0, 0),
	"WITH_EXCEPT_START":     opaque(0, 1),
	"WITH_CLEANUP_START":    opaque(0, 1),
	"WITH_CLEANUP_FINISH":   opaque(1, 0),
	"MATCH_CLASS":           opaque(3, 1),
	"GET_LEN":               opaque(0, 1),
}

// BuildClass is the name loaded by the class-building instruction.
const BuildClass = "__build_class__"

// Decode decodes a mnemonic with its optional argument and decoded rendering.
// Unknown mnemonics decode to an Opaque instruction without stack effect.
func Decode(mnemonic string, arg int, hasArg bool, decoded string) (Opcode, error) {
	op := Opcode{Mnemonic: mnemonic}

	switch {
	case strings.HasPrefix(mnemonic, "BINARY_"), strings.HasPrefix(mnemonic, "INPLACE_"):
		if _, ok := mnemonics[mnemonic]; !ok {
			op.Kind = BinaryOp
			return op, nil
		}
	}

	fn, ok := mnemonics[mnemonic]
	if !ok {
		unknownLog.Warn("unknown mnemonic %s, treating as opaque", mnemonic)
		op.Kind = Opaque
		return op, nil
	}
	if err := fn(&op, arg, hasArg, decoded); err != nil {
		return Opcode{}, err
	}

	return op, nil
}

// unquote strips quotes of a rendered string literal.
func unquote(decoded string) string {
	if len(decoded) >= 2 {
		first, last := decoded[0], decoded[len(decoded)-1]
		if (first == '\'' || first == '"') && first == last {
			return decoded[1 : len(decoded)-1]
		}
	}
	return decoded
}

// stripNull strips the NULL markers newer disassemblers add to names.
func stripNull(name string) string {
	name = strings.TrimPrefix(name, "NULL + ")
	name = strings.TrimPrefix(name, "NULL|self + ")
	name = strings.TrimSuffix(name, " + NULL|self")
	return strings.TrimSuffix(name, " + NULL")
}

// parseCodeRef parses a '<code object NAME at ADDR, file "F", line N>' rendering.
func parseCodeRef(decoded string) (*CodeRef, error) {
	m := codeRefRe.FindStringSubmatch(decoded)
	if m == nil {
		return nil, disasmError("invalid code object reference %q", decoded)
	}
	return &CodeRef{Name: m[1], Address: m[2]}, nil
}
