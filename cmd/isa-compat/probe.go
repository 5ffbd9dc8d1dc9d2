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

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/intel/isa-compat/pkg/features"
	"github.com/intel/isa-compat/pkg/lattice"
)

// probeResult describes the host and, given a lattice, where it fits in.
type probeResult struct {
	Record       features.Record `json:"record"`
	Group        string          `json:"group,omitempty"`
	Transferable []string        `json:"transferable,omitempty"`
	Unknown      []string        `json:"unknown,omitempty"`
}

func newProbeCommand() *cobra.Command {
	var (
		id    string
		fleet string
	)

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Record the CPU features of this host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id == "" {
				host, err := os.Hostname()
				if err != nil {
					return err
				}
				id = host
			}

			record, err := features.HostRecord(id)
			if err != nil {
				return err
			}
			if fleet == "" {
				return output(cmd.OutOrStdout()).Write(&probeResult{Record: record})
			}

			records, err := features.LoadRecords(fleet)
			if err != nil {
				return err
			}
			set, err := lattice.Vectorize(records)
			if err != nil {
				return err
			}
			result, err := place(lattice.Build(set), record)
			if err != nil {
				return err
			}

			return output(cmd.OutOrStdout()).Write(result)
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "record ID, defaults to the host name")
	cmd.Flags().StringVar(&fleet, "features", "", "machine records to place the host among")

	return cmd
}

// place locates a host record among the groups of a lattice. A host with
// features the fleet never names matches no group and fits in none.
func place(l *lattice.Lattice, record features.Record) (*probeResult, error) {
	result := &probeResult{Record: record}

	schema := l.Schema()
	for _, f := range record.Features {
		if _, ok := schema.Index(f.Name); !ok && f.Value != 0 {
			result.Unknown = append(result.Unknown, f.Name)
		}
	}
	if len(result.Unknown) > 0 {
		log.Warn("%s: features unknown to the fleet: %s", record.ID, strings.Join(result.Unknown, ", "))
		return result, nil
	}

	host, err := features.Vectorize([]features.Record{record}, true)
	if err != nil {
		return nil, err
	}
	vec := host.Project(schema).Observations[0].Vector
	for _, g := range l.Groups() {
		switch {
		case vec.Equal(g.Vector):
			result.Group = g.ID
		case vec.SubsetOf(g.Vector):
			result.Transferable = append(result.Transferable, g.ID)
		}
	}

	return result, nil
}
