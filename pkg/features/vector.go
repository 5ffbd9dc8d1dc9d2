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

package features

import (
	"fmt"
	"strings"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"

	logger "github.com/intel/isa-compat/pkg/log"
)

// ErrSchemaMismatch is returned when feature records name different features.
var ErrSchemaMismatch = errors.New("feature schema mismatch")

var log = logger.NewLogger("features")

// Schema is an ordered set of feature names, mapping names to bit indices.
type Schema struct {
	names []string
	index map[string]uint
}

// NewSchema creates a schema with the given feature names.
func NewSchema(names ...string) (*Schema, error) {
	s := &Schema{index: make(map[string]uint, len(names))}
	for _, name := range names {
		if !s.add(name) {
			return nil, featuresError("duplicate feature %q", name)
		}
	}
	return s, nil
}

func (s *Schema) add(name string) bool {
	if _, ok := s.index[name]; ok {
		return false
	}
	s.index[name] = uint(len(s.names))
	s.names = append(s.names, name)
	return true
}

// Names returns the feature names in bit order.
func (s *Schema) Names() []string {
	return append([]string(nil), s.names...)
}

// Len returns the number of features in the schema.
func (s *Schema) Len() int {
	return len(s.names)
}

// Index returns the bit index of the named feature.
func (s *Schema) Index(name string) (uint, bool) {
	idx, ok := s.index[name]
	return idx, ok
}

// Equal checks if both schemas name the same features, in any order.
func (s *Schema) Equal(o *Schema) bool {
	if s.Len() != o.Len() {
		return false
	}
	for _, name := range s.names {
		if _, ok := o.index[name]; !ok {
			return false
		}
	}
	return true
}

// Vector is an immutable feature bit-vector over a schema.
type Vector struct {
	schema *Schema
	bits   *bitset.BitSet
}

// NewVector creates a vector with the named features set.
func NewVector(schema *Schema, set ...string) (Vector, error) {
	bits := bitset.New(uint(schema.Len()))
	for _, name := range set {
		idx, ok := schema.Index(name)
		if !ok {
			return Vector{}, errors.Wrapf(ErrSchemaMismatch, "unknown feature %q", name)
		}
		bits.Set(idx)
	}
	return Vector{schema: schema, bits: bits}, nil
}

// Schema returns the schema of the vector.
func (v Vector) Schema() *Schema {
	return v.schema
}

// Has checks if the named feature is set.
func (v Vector) Has(name string) bool {
	idx, ok := v.schema.Index(name)
	return ok && v.bits.Test(idx)
}

// SubsetOf checks if every feature of v is also set in o. Both vectors
// must share a schema.
func (v Vector) SubsetOf(o Vector) bool {
	return v.bits.DifferenceCardinality(o.bits) == 0
}

// Equal checks if both vectors have identical bits.
func (v Vector) Equal(o Vector) bool {
	return v.bits.Equal(o.bits)
}

// Count returns the number of features set.
func (v Vector) Count() int {
	return int(v.bits.Count())
}

// Features returns the names of the set features in schema order.
func (v Vector) Features() []string {
	var names []string
	for i, ok := v.bits.NextSet(0); ok; i, ok = v.bits.NextSet(i + 1) {
		names = append(names, v.schema.names[i])
	}
	return names
}

// Key returns the vector as a string of 0s and 1s in schema order.
func (v Vector) Key() string {
	var b strings.Builder
	b.Grow(v.schema.Len())
	for i := range v.schema.names {
		if v.bits.Test(uint(i)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// String returns a string representation of the vector.
func (v Vector) String() string {
	return v.Key()
}

// project maps the vector onto another schema, dropping features it lacks.
func (v Vector) project(s *Schema) Vector {
	bits := bitset.New(uint(s.Len()))
	for _, name := range v.Features() {
		if idx, ok := s.Index(name); ok {
			bits.Set(idx)
		}
	}
	return Vector{schema: s, bits: bits}
}

func featuresError(format string, args ...interface{}) error {
	return fmt.Errorf("features: "+format, args...)
}
