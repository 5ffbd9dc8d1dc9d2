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

package analyzer

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/intel/isa-compat/pkg/callgraph"
	"github.com/intel/isa-compat/pkg/disasm"
	"github.com/intel/isa-compat/pkg/instrumentation"
	"github.com/intel/isa-compat/pkg/interp"
	logger "github.com/intel/isa-compat/pkg/log"
	"github.com/intel/isa-compat/pkg/metrics"
	"github.com/intel/isa-compat/pkg/resolver"
	"github.com/intel/isa-compat/pkg/symbols"
)

var log = logger.NewLogger("analyzer")

// Analyzer reconstructs the usage profiles of disassembled programs.
type Analyzer struct {
	resolver *resolver.Resolver
	symbols  symbols.Resolver
}

// New creates an analyzer resolving imports against the given registry
// and native symbols with the given resolver, which may be nil.
func New(registry resolver.Registry, syms symbols.Resolver) *Analyzer {
	return &Analyzer{
		resolver: resolver.New(registry),
		symbols:  syms,
	}
}

// NewFromConfig creates an analyzer with the module registry and symbol
// table of the runtime configuration.
func NewFromConfig() (*Analyzer, error) {
	var chain resolver.Chain
	if opt.ModuleRegistry != "" {
		reg, err := resolver.LoadStaticRegistry(opt.ModuleRegistry)
		if err != nil {
			return nil, err
		}
		chain = append(chain, reg)
	}
	if len(opt.ModulePath) > 0 {
		chain = append(chain, resolver.NewPathRegistry(opt.ModulePath...))
	}

	var syms symbols.Resolver
	if opt.SymbolTable != "" {
		table, err := symbols.LoadTable(opt.SymbolTable)
		if err != nil {
			return nil, err
		}
		syms = table
	}

	return New(chain, syms), nil
}

// ResolverStats returns the import resolution statistics of the analyzer.
func (a *Analyzer) ResolverStats() resolver.Stats {
	return a.resolver.Stats()
}

// AnalyzeFiles analyzes the given disassembly files in parallel. Profiles
// of the programs analyzed are returned in the order of the files. A file
// failing to parse or analyze does not stop the others, its error is
// collected into the returned error.
func (a *Analyzer) AnalyzeFiles(ctx context.Context, paths ...string) ([]*Profile, error) {
	var (
		lock     sync.Mutex
		failures error
		profiles = make([]*Profile, len(paths))
	)

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opt.Workers)
	for i, path := range paths {
		i, path := i, path
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			p, err := a.analyzeFile(ctx, path)
			if err != nil {
				if ctx.Err() != nil {
					return err
				}
				log.Error("%s: %v", path, err)
				lock.Lock()
				failures = multierror.Append(failures, errors.Wrap(err, path))
				lock.Unlock()
				return nil
			}
			profiles[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	analyzed := profiles[:0]
	for _, p := range profiles {
		if p != nil {
			analyzed = append(analyzed, p)
		}
	}
	return analyzed, failures
}

func (a *Analyzer) analyzeFile(ctx context.Context, path string) (*Profile, error) {
	prog, err := disasm.ParseFile(path, opt.disasmOptions())
	if err != nil {
		return nil, err
	}
	return a.Analyze(ctx, prog)
}

// Analyze builds the usage profile of a program. Failures of individual
// units do not fail the analysis, they are collected in Profile.Warnings.
func (a *Analyzer) Analyze(ctx context.Context, prog *disasm.Program) (*Profile, error) {
	ctx, span := instrumentation.StartSpan(ctx, "analyze", "program", prog.Name)

	p, err := a.analyze(ctx, prog)

	instrumentation.EndSpan(span, err)
	return p, err
}

func (a *Analyzer) analyze(ctx context.Context, prog *disasm.Program) (*Profile, error) {
	var (
		warnings = prog.Warnings
		skipped  = countErrors(prog.Warnings)
		partial  int
		defs     = callgraph.NewSet()
	)
	for _, u := range prog.Units {
		if !u.IsModule() {
			defs.Add(u.QualifiedName)
		}
	}
	metrics.CountCallables(metrics.CallableSkipped, skipped)

	traces, err := interpret(ctx, prog.Units)
	if err != nil {
		return nil, err
	}

	var (
		moduleTrace *interp.Trace
		all         = make([]*interp.Trace, 0, len(traces))
	)
	for i, u := range prog.Units {
		all = append(all, traces[i].trace)
		if u.IsModule() {
			moduleTrace = traces[i].trace
		}
		if err := traces[i].err; err != nil {
			warnings = multierror.Append(warnings, errors.Wrap(err, u.QualifiedName))
			partial++
		}
	}

	c := callgraph.NewClassifier(nil, defs, callgraph.Classes(all...), a.resolver, anchor(prog.Name))

	var graph *callgraph.Graph
	if moduleTrace != nil {
		_, graph = c.ModuleScope(moduleTrace)
	} else {
		graph = a.orphanModule(c, prog, defs)
		warnings = multierror.Append(warnings,
			errors.Wrapf(disasm.ErrMalformedStream, "%s: no module body", prog.Name))
	}

	defmap := make(callgraph.DefinitionMap, len(prog.Units))
	for i, u := range prog.Units {
		if !u.IsModule() {
			defmap[u.QualifiedName] = c.Build(traces[i].trace, c.UnitScope())
		}
	}

	expanded, err := callgraph.Expand(graph, defmap, opt.IterationCap)
	if err != nil {
		log.Warn("%s: %v", prog.Name, err)
		warnings = multierror.Append(warnings, err)
	}

	metrics.CountCallables(metrics.CallablePartial, partial)
	metrics.CountCallables(metrics.CallableAnalyzed, len(prog.Units)-partial)

	p := newProfile(prog.Name, expanded, a.symbols)
	p.Units = len(prog.Units)
	p.Skipped = skipped
	for _, origin := range p.Unresolved {
		unresolved := resolver.Resolution{Requested: origin, Origin: origin}
		warnings = multierror.Append(warnings, unresolved.Err())
	}
	p.setWarnings(warnings)

	metrics.CountUnresolvedImports(len(p.Unresolved))
	log.Info("%s: %d units, %d self-defined, %d builtin, %d external modules",
		prog.Name, p.Units, p.Counts.SelfDefined, p.Counts.Builtin, p.Counts.External)

	return p, nil
}

// orphanModule returns the root graph of a program whose module body was
// dropped. Its scope stays empty and every top-level definition is taken
// as called, so the usage of the remaining units is still reported.
func (a *Analyzer) orphanModule(c *callgraph.Classifier, prog *disasm.Program, defs callgraph.Set) *callgraph.Graph {
	log.Warn("%s: no module body, taking all top-level definitions as called", prog.Name)

	_, graph := c.ModuleScope(&interp.Trace{Unit: disasm.ModuleUnit})
	for _, name := range defs.Sorted() {
		if !strings.Contains(name, ".") {
			graph.SelfDefined.Add(name)
		}
	}
	graph.Partial.Add(disasm.ModuleUnit)
	return graph
}

type unitResult struct {
	trace *interp.Trace
	err   error
}

// interpret interprets units in parallel, returning their traces in order.
func interpret(ctx context.Context, units []*disasm.Unit) ([]unitResult, error) {
	results := make([]unitResult, len(units))

	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(opt.Workers)
	for i, u := range units {
		i, u := i, u
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			trace, err := interp.Interpret(u)
			results[i] = unitResult{trace: trace, err: err}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	return results, nil
}

// anchor returns the package relative imports of a program resolve against.
func anchor(program string) string {
	if opt.Anchor != "" {
		return opt.Anchor
	}
	return strings.TrimSuffix(filepath.Base(program), filepath.Ext(program))
}

func countErrors(err error) int {
	if merr, ok := err.(*multierror.Error); ok {
		return merr.Len()
	}
	if err != nil {
		return 1
	}
	return 0
}

func analyzerError(format string, args ...interface{}) error {
	return fmt.Errorf("analyzer: "+format, args...)
}
