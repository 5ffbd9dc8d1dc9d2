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
	"github.com/spf13/cobra"

	"github.com/intel/isa-compat/pkg/config"
)

func newConfigCommand() *cobra.Command {
	var describe bool

	cmd := &cobra.Command{
		Use:   "config [MODULE...]",
		Short: "Show the effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if describe {
				config.Describe(cmd.OutOrStdout(), args...)
				return nil
			}

			data, err := config.Dump()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return output(cmd.OutOrStdout()).Write(data)
			}
			picked := config.Data{}
			for _, name := range args {
				if v, ok := data[name]; ok {
					picked[name] = v
				}
			}
			return output(cmd.OutOrStdout()).Write(picked)
		},
	}
	cmd.Flags().BoolVar(&describe, "describe", false, "describe the configuration modules")

	return cmd
}
