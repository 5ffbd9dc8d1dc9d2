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
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// Feature is a single named feature flag of a record.
type Feature struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Record is a raw feature observation of a machine, or of a workload on a machine.
type Record struct {
	ID       string    `json:"id"`
	Machine  string    `json:"machine,omitempty"`
	Workload string    `json:"workload,omitempty"`
	Features []Feature `json:"features"`
}

// IsMachine checks if the record describes a machine.
func (r Record) IsMachine() bool {
	return r.Workload == ""
}

// MachineID returns the ID of the machine the record was taken on.
func (r Record) MachineID() string {
	if r.Machine != "" {
		return r.Machine
	}
	return r.ID
}

// Observation is a vectorized record.
type Observation struct {
	ID       string
	Machine  string
	Workload string
	Vector   Vector
}

// Set is a collection of observations over a common schema.
type Set struct {
	Schema       *Schema
	Observations []Observation
	machines     map[string]int
	workloads    map[[2]string]int
}

// ParseRecords parses YAML or JSON feature records.
func ParseRecords(raw []byte) ([]Record, error) {
	var records []Record
	if err := yaml.Unmarshal(raw, &records); err != nil {
		return nil, featuresError("failed to parse feature records: %v", err)
	}
	for i, r := range records {
		if r.ID == "" {
			return nil, featuresError("feature record #%d has no id", i)
		}
	}
	return records, nil
}

// LoadRecords loads feature records from the given file.
func LoadRecords(path string) ([]Record, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, featuresError("failed to read feature records: %v", err)
	}
	records, err := ParseRecords(raw)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return records, nil
}

// Vectorize converts records to vectors over a common schema. Unless lenient,
// every record must name the same features. Lenient vectorization uses the
// union of all named features in order of first appearance, with features
// missing from a record reading as 0.
func Vectorize(records []Record, lenient bool) (*Set, error) {
	schemas := make([]*Schema, 0, len(records))
	union := &Schema{index: map[string]uint{}}

	for _, r := range records {
		s := &Schema{index: map[string]uint{}}
		for _, f := range r.Features {
			if f.Value != 0 && f.Value != 1 {
				return nil, featuresError("record %s: invalid value %d for feature %s",
					r.ID, f.Value, f.Name)
			}
			if !s.add(f.Name) {
				return nil, featuresError("record %s: duplicate feature %s", r.ID, f.Name)
			}
			union.add(f.Name)
		}
		schemas = append(schemas, s)
	}

	schema := union
	if len(schemas) > 0 && !lenient {
		schema = schemas[0]
		for i, s := range schemas[1:] {
			if !s.Equal(schema) {
				return nil, errors.Wrapf(ErrSchemaMismatch, "records %s and %s",
					records[0].ID, records[i+1].ID)
			}
		}
	} else if lenient {
		for i, s := range schemas {
			if s.Len() != union.Len() {
				log.Debug("record %s: %d missing features read as 0",
					records[i].ID, union.Len()-s.Len())
			}
		}
	}

	set := &Set{
		Schema:    schema,
		machines:  map[string]int{},
		workloads: map[[2]string]int{},
	}
	for _, r := range records {
		var on []string
		for _, f := range r.Features {
			if f.Value == 1 {
				on = append(on, f.Name)
			}
		}
		v, err := NewVector(schema, on...)
		if err != nil {
			return nil, err
		}
		if err := set.add(Observation{
			ID:       r.ID,
			Machine:  r.MachineID(),
			Workload: r.Workload,
			Vector:   v,
		}); err != nil {
			return nil, err
		}
	}

	return set, nil
}

// Project maps every vector of the set onto the given schema.
func (s *Set) Project(schema *Schema) *Set {
	p := &Set{
		Schema:    schema,
		machines:  map[string]int{},
		workloads: map[[2]string]int{},
	}
	for _, o := range s.Observations {
		o.Vector = o.Vector.project(schema)
		// keys were unique in s, so add cannot fail
		_ = p.add(o)
	}
	return p
}

func (s *Set) add(o Observation) error {
	if o.Workload == "" {
		if _, ok := s.machines[o.Machine]; ok {
			return featuresError("duplicate machine record %s", o.Machine)
		}
		s.machines[o.Machine] = len(s.Observations)
	} else {
		key := [2]string{o.Machine, o.Workload}
		if _, ok := s.workloads[key]; ok {
			return featuresError("duplicate record for workload %s on %s", o.Workload, o.Machine)
		}
		s.workloads[key] = len(s.Observations)
	}
	s.Observations = append(s.Observations, o)
	return nil
}

// Machines returns the machine observations in record order.
func (s *Set) Machines() []Observation {
	var machines []Observation
	for _, o := range s.Observations {
		if o.Workload == "" {
			machines = append(machines, o)
		}
	}
	return machines
}

// Machine looks up the observation of the given machine.
func (s *Set) Machine(id string) (Observation, bool) {
	idx, ok := s.machines[id]
	if !ok {
		return Observation{}, false
	}
	return s.Observations[idx], true
}

// Workload looks up the observation of workload on machine.
func (s *Set) Workload(machine, workload string) (Observation, bool) {
	idx, ok := s.workloads[[2]string{machine, workload}]
	if !ok {
		return Observation{}, false
	}
	return s.Observations[idx], true
}
