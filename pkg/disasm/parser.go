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
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

var (
	headerRe  = regexp.MustCompile(`^Disassembly of <code object (\S+) at (0x[0-9a-fA-F]+), file "(.*)", line (\d+)>:\s*$`)
	codeRefRe = regexp.MustCompile(`^<code object (\S+) at (0x[0-9a-fA-F]+)(?:, file "(.*)", line (\d+))?>$`)
	instRe    = regexp.MustCompile(`^\s*(?:(\d+)\s+)?(>>\s*)?(\d+)\s+([A-Z_][A-Z0-9_]*)(?:\s+(\S+)(?:\s+\((.*)\))?)?\s*$`)
)

// Options control normalization.
type Options struct {
	// RegionEnter are the mnemonics starting a compiler-injected cleanup region.
	RegionEnter []string
	// RegionExit are the mnemonics ending a cleanup region, inclusive.
	RegionExit []string
}

// DefaultOptions returns the default normalization options.
func DefaultOptions() Options {
	return Options{
		RegionEnter: []string{"WITH_EXCEPT_START", "WITH_CLEANUP_START"},
		RegionExit:  []string{"POP_EXCEPT", "END_FINALLY"},
	}
}

// rawLine is an unparsed line of a unit.
type rawLine struct {
	number int
	text   string
}

// rawUnit collects the lines of a unit before parsing.
type rawUnit struct {
	name      string
	address   string
	file      string
	firstLine int
	lines     []rawLine
}

// ParseFile normalizes the disassembly in the given file.
func ParseFile(path string, opts Options) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, disasmError("failed to open %s: %v", path, err)
	}
	defer f.Close()

	return Parse(f, path, opts)
}

// Parse normalizes a disassembly into a Program. Units that fail to parse
// are skipped and their errors collected in Program.Warnings. The returned
// error is only set if reading the input fails.
func Parse(r io.Reader, name string, opts Options) (*Program, error) {
	raws, err := split(r)
	if err != nil {
		return nil, disasmError("failed to read %s: %v", name, err)
	}

	n := newNormalizer(opts)
	prog := &Program{Name: name}
	for _, raw := range raws {
		u, err := n.parseUnit(raw)
		if err != nil {
			log.Warn("%s: skipping unit %s: %v", name, raw.name, err)
			prog.Warnings = multierror.Append(prog.Warnings, err)
			continue
		}
		prog.Units = append(prog.Units, u)
	}

	link(prog.Units)

	return prog, nil
}

// split splits the input into per-unit line sets.
func split(r io.Reader) ([]*rawUnit, error) {
	var (
		units   []*rawUnit
		current *rawUnit
		number  int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		number++
		text := strings.TrimRight(scanner.Text(), "\r\n")
		if strings.TrimSpace(text) == "" {
			continue
		}
		if m := headerRe.FindStringSubmatch(text); m != nil {
			first, _ := strconv.Atoi(m[4])
			current = &rawUnit{name: m[1], address: m[2], file: m[3], firstLine: first}
			units = append(units, current)
			continue
		}
		if current == nil {
			current = &rawUnit{name: ModuleUnit}
			units = append(units, current)
		}
		current.lines = append(current.lines, rawLine{number: number, text: text})
	}

	return units, scanner.Err()
}

// normalizer parses units using a set of options.
type normalizer struct {
	enter map[string]struct{}
	exit  map[string]struct{}
}

func newNormalizer(opts Options) *normalizer {
	n := &normalizer{
		enter: make(map[string]struct{}),
		exit:  make(map[string]struct{}),
	}
	for _, m := range opts.RegionEnter {
		n.enter[m] = struct{}{}
	}
	for _, m := range opts.RegionExit {
		n.exit[m] = struct{}{}
	}
	return n
}

// parseUnit decodes the lines of a single unit.
func (n *normalizer) parseUnit(raw *rawUnit) (*Unit, error) {
	u := &Unit{
		Name:          raw.name,
		QualifiedName: raw.name,
		Address:       raw.address,
		File:          raw.file,
		FirstLine:     raw.firstLine,
	}

	line := raw.firstLine
	excluding := false
	lastOffset := -1
	for _, rl := range raw.lines {
		inst, newLine, err := parseInstruction(rl.text, line)
		if err != nil {
			return nil, malformed(raw.name, rl.number, err)
		}
		if inst.Offset <= lastOffset {
			return nil, malformed(raw.name, rl.number,
				disasmError("offset %d out of order", inst.Offset))
		}
		lastOffset = inst.Offset
		line = inst.Line

		mnemonic := inst.Op.Mnemonic
		if !excluding {
			if _, ok := n.enter[mnemonic]; ok {
				excluding = true
			}
		}
		if excluding {
			u.Excluded++
			if _, ok := n.exit[mnemonic]; ok {
				excluding = false
			}
			continue
		}

		if newLine || len(u.Blocks) == 0 {
			u.Blocks = append(u.Blocks, Block{Line: inst.Line, Offset: inst.Offset})
		}
		u.Instructions = append(u.Instructions, inst)
	}

	if u.Excluded > 0 {
		log.Debug("%s: excluded %d cleanup instructions", u.Name, u.Excluded)
	}

	return u, nil
}

// parseInstruction parses a single instruction line. It returns the
// instruction and whether the line starts a new source line.
func parseInstruction(text string, line int) (Instruction, bool, error) {
	m := instRe.FindStringSubmatch(text)
	if m == nil {
		return Instruction{}, false, disasmError("unparseable instruction %q", strings.TrimSpace(text))
	}

	newLine := false
	if m[1] != "" {
		l, err := strconv.Atoi(m[1])
		if err != nil {
			return Instruction{}, false, disasmError("invalid line number %q", m[1])
		}
		line, newLine = l, true
	}

	offset, err := strconv.Atoi(m[3])
	if err != nil {
		return Instruction{}, false, disasmError("invalid offset %q", m[3])
	}

	var (
		arg    int
		hasArg bool
	)
	if m[5] != "" {
		arg, err = strconv.Atoi(m[5])
		if err != nil {
			return Instruction{}, false, disasmError("invalid argument %q of %s", m[5], m[4])
		}
		hasArg = true
	}

	op, err := Decode(m[4], arg, hasArg, m[6])
	if err != nil {
		return Instruction{}, false, err
	}

	return Instruction{
		Offset: offset,
		Op:     op,
		Line:   line,
		Target: m[2] != "",
	}, newLine, nil
}

// link sets up the enclosing relations and qualified names of units.
func link(units []*Unit) {
	byAddr := make(map[string]*Unit, len(units))
	for _, u := range units {
		if u.Address != "" {
			byAddr[u.Address] = u
		}
	}

	for _, u := range units {
		for _, inst := range u.Instructions {
			if inst.Op.Code == nil {
				continue
			}
			child, ok := byAddr[inst.Op.Code.Address]
			if !ok || child == u || child.Enclosing != nil {
				continue
			}
			child.Enclosing = u
		}
	}

	for _, u := range units {
		u.QualifiedName = qualify(u, len(units))
	}
}

// qualify returns the qualified name of u, following at most depth enclosing units.
func qualify(u *Unit, depth int) string {
	names := []string{u.Name}
	for e := u.Enclosing; e != nil && !e.IsModule() && depth > 0; e = e.Enclosing {
		names = append([]string{e.Name}, names...)
		depth--
	}
	return strings.Join(names, ".")
}

// IsMalformed tells if err is caused by a malformed instruction stream.
func IsMalformed(err error) bool {
	return errors.Is(err, ErrMalformedStream)
}
