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
	"fmt"

	"github.com/spf13/cobra"

	"github.com/intel/isa-compat/pkg/features"
	"github.com/intel/isa-compat/pkg/lattice"
)

func newLatticeCommand() *cobra.Command {
	var (
		tree bool
		from string
	)

	cmd := &cobra.Command{
		Use:   "lattice FEATURES",
		Short: "Build the compatibility lattice of machine feature records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := features.LoadRecords(args[0])
			if err != nil {
				return err
			}
			l, err := lattice.FromRecords(records)
			if err != nil {
				return err
			}

			switch {
			case from != "":
				g, ok := l.GroupOf(from)
				if !ok {
					return fmt.Errorf("unknown machine %s", from)
				}
				ids, err := l.TransferableFrom(g.ID)
				if err != nil {
					return err
				}
				var machines []string
				for _, id := range ids {
					dst, _ := l.Group(id)
					machines = append(machines, dst.Members...)
				}
				return output(cmd.OutOrStdout()).Write(map[string]interface{}{
					"machine":  from,
					"group":    g.ID,
					"groups":   ids,
					"machines": machines,
				})
			case tree:
				fmt.Fprint(cmd.OutOrStdout(), l.Tree())
				return nil
			}

			return output(cmd.OutOrStdout()).Write(l.Export())
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "print the lattice as a tree")
	cmd.Flags().StringVar(&from, "from", "", "list the machines the given machine can migrate to")

	return cmd
}
