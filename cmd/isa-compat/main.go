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
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"k8s.io/klog/v2"

	"github.com/intel/isa-compat/pkg/config"
	"github.com/intel/isa-compat/pkg/instrumentation"
	logger "github.com/intel/isa-compat/pkg/log"
	"github.com/intel/isa-compat/pkg/metrics"
)

var log = logger.Default()

// options are the global command line options.
type options struct {
	configFile  string
	output      string
	metricsDump string
}

var opt options

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "isa-compat",
		Short:         "ISA migration compatibility analysis",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opt.configFile != "" {
				if err := config.ParseYAMLFile(opt.configFile); err != nil {
					return err
				}
			}
			if _, err := newWriter(cmd.OutOrStdout(), opt.output); err != nil {
				return err
			}
			return instrumentation.Start()
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			instrumentation.Stop()
			return dumpMetrics(opt.metricsDump)
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true

	goflags := flag.NewFlagSet("isa-compat", flag.ContinueOnError)
	logger.RegisterFlags(goflags)
	klog.InitFlags(goflags)

	flags := root.PersistentFlags()
	flags.StringVar(&opt.configFile, "config", "", "file to read configuration from")
	flags.StringVarP(&opt.output, "output", "o", "yaml", "output format, json or yaml")
	flags.StringVar(&opt.metricsDump, "metrics-dump", "", "file to dump metrics to on exit, '-' for stderr")
	flags.AddGoFlagSet(goflags)

	root.AddCommand(
		newAnalyzeCommand(),
		newLatticeCommand(),
		newEvaluateCommand(),
		newProbeCommand(),
		newConfigCommand(),
		newVersionCommand(),
	)

	return root
}

// dumpMetrics writes all collected metrics to the given file.
func dumpMetrics(path string) error {
	switch path {
	case "":
		return nil
	case "-":
		return metrics.Dump(os.Stderr)
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return metrics.Dump(f)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := newRootCommand().ExecuteContext(ctx)
	stop()
	logger.Flush()
	klog.Flush()

	if err != nil {
		log.Error("%v", err)
		os.Exit(1)
	}
}
