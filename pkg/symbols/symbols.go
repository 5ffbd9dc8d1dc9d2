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

package symbols

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sigs.k8s.io/yaml"
)

// Address is the address of a native symbol.
type Address uint64

// Resolver resolves native symbol names to addresses.
type Resolver interface {
	ResolveSymbol(name string) (Address, bool)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(name string) (Address, bool)

// ResolveSymbol calls f(name).
func (f ResolverFunc) ResolveSymbol(name string) (Address, bool) {
	return f(name)
}

// Table is a static symbol table.
type Table map[string]Address

// LoadTable loads a symbol table from a YAML or JSON map of names to addresses.
func LoadTable(path string) (Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, symbolsError("failed to read symbol table: %v", err)
	}
	t := Table{}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return nil, symbolsError("failed to parse symbol table %s: %v", path, err)
	}
	return t, nil
}

// ResolveSymbol looks up the address of the named symbol.
func (t Table) ResolveSymbol(name string) (Address, bool) {
	addr, ok := t[name]
	return addr, ok
}

// Resolve looks up the symbol for member of module, trying the qualified
// name first and the bare member name next.
func Resolve(r Resolver, module, member string) (string, Address, bool) {
	if r == nil {
		return "", 0, false
	}
	qualified := module + "." + member
	if addr, ok := r.ResolveSymbol(qualified); ok {
		return qualified, addr, true
	}
	if addr, ok := r.ResolveSymbol(member); ok {
		return member, addr, true
	}
	return "", 0, false
}

// String returns the address in hexadecimal.
func (a Address) String() string {
	return fmt.Sprintf("0x%x", uint64(a))
}

// MarshalJSON is the JSON marshaller for Address.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON is the JSON unmarshaller for Address, accepting numbers
// and strings in any base strconv understands.
func (a *Address) UnmarshalJSON(raw []byte) error {
	str := strings.Trim(string(raw), `"`)
	v, err := strconv.ParseUint(str, 0, 64)
	if err != nil {
		return symbolsError("invalid address %s: %v", string(raw), err)
	}
	*a = Address(v)
	return nil
}

func symbolsError(format string, args ...interface{}) error {
	return fmt.Errorf("symbols: "+format, args...)
}
