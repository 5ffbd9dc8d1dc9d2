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
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/intel/isa-compat/pkg/evaluate"
	"github.com/intel/isa-compat/pkg/features"
	"github.com/intel/isa-compat/pkg/lattice"
)

func newEvaluateCommand() *cobra.Command {
	var (
		outcomes string
		groups   string
		workers  int
		timeout  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "evaluate FEATURES",
		Short: "Evaluate lattice predictions against observed migration outcomes",
		Long: "Evaluate lattice predictions against observed migration outcomes.\n\n" +
			"With --groups, pick one representative machine per group so that\n" +
			"predictions among representatives are as precise as possible.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := features.LoadRecords(args[0])
			if err != nil {
				return err
			}
			set, err := lattice.Vectorize(records)
			if err != nil {
				return err
			}
			truth, err := evaluate.LoadTruth(outcomes)
			if err != nil {
				return err
			}
			predictor := evaluate.NewLatticePredictor(lattice.Build(set), set)

			if groups == "" {
				var machines []string
				for _, m := range set.Machines() {
					machines = append(machines, m.ID)
				}
				report, err := evaluate.Evaluate(predictor, machines, truth)
				if err != nil {
					return err
				}
				return output(cmd.OutOrStdout()).Write(report)
			}

			g, err := evaluate.LoadGroups(groups)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			result, err := evaluate.Search(ctx, g, predictor, truth, workers)
			switch {
			case errors.Is(err, evaluate.ErrNoPrecisionOneAssignment):
				log.Warn("%v", err)
			case err != nil:
				return err
			}
			return output(cmd.OutOrStdout()).Write(result)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&outcomes, "outcomes", "", "file of observed migration outcomes")
	flags.StringVar(&groups, "groups", "", "file of machine groups to pick representatives from")
	flags.IntVar(&workers, "workers", 0, "number of search workers, 0 for the configured default")
	flags.DurationVar(&timeout, "timeout", 0, "stop searching after the given time")
	_ = cmd.MarkFlagRequired("outcomes")

	return cmd
}
