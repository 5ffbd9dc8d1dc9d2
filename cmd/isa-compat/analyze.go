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

	"github.com/intel/isa-compat/pkg/analyzer"
)

func newAnalyzeCommand() *cobra.Command {
	var tree bool

	cmd := &cobra.Command{
		Use:   "analyze FILE...",
		Short: "Reconstruct the call graphs of disassembled programs",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := analyzer.NewFromConfig()
			if err != nil {
				return err
			}
			profiles, failed := a.AnalyzeFiles(cmd.Context(), args...)
			if len(profiles) == 0 && failed != nil {
				return failed
			}

			for _, p := range profiles {
				for _, msg := range p.Messages {
					log.Warn("%s: %s", p.Program, msg)
				}
			}

			if tree {
				for _, p := range profiles {
					fmt.Fprint(cmd.OutOrStdout(), p.Tree())
				}
				return failed
			}

			if len(profiles) == 1 {
				err = output(cmd.OutOrStdout()).Write(profiles[0])
			} else {
				err = output(cmd.OutOrStdout()).Write(profiles)
			}
			if err != nil {
				return err
			}
			return failed
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "print call graphs as trees")

	return cmd
}
