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

package evaluate

import (
	"context"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/intel/isa-compat/pkg/instrumentation"
	"github.com/intel/isa-compat/pkg/metrics"
)

// Result is the outcome of a representative search.
type Result struct {
	*Report
	// Candidates is the number of possible assignments.
	Candidates int `json:"candidates"`
	// Evaluated is the number of assignments evaluated.
	Evaluated int `json:"evaluated"`
	// Complete is false if the search was cancelled before evaluating all candidates.
	Complete bool `json:"complete"`
	// Degraded is true if no evaluated assignment has precision 1.
	Degraded bool `json:"degraded"`
}

type candidate struct {
	tuple  []string
	report *Report
}

// better checks if c ranks above o: higher precision, then higher recall,
// then the lexicographically smaller tuple.
func (c *candidate) better(o *candidate) bool {
	if o == nil {
		return true
	}
	if p, q := c.report.Precision(), o.report.Precision(); p != q {
		return p > q
	}
	if r, s := c.report.Recall(), o.report.Recall(); r != s {
		return r > s
	}
	return lessTuple(c.tuple, o.tuple)
}

func lessTuple(a, b []string) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

// decode returns the idx'th tuple of the Cartesian product of groups, most
// significant digit first, so ascending indices yield lexicographically
// ascending tuples of sorted groups.
func decode(groups [][]string, idx int) []string {
	tuple := make([]string, len(groups))
	for i := len(groups) - 1; i >= 0; i-- {
		n := len(groups[i])
		tuple[i] = groups[i][idx%n]
		idx /= n
	}
	return tuple
}

// Search looks for the assignment of one representative per group with the
// highest recall at precision 1, evaluating candidates in parallel. Without
// such an assignment, the best recall among the most precise is returned
// together with ErrNoPrecisionOneAssignment. If ctx is cancelled, the best
// assignment found so far is returned as incomplete.
func Search(ctx context.Context, groups [][]string, p Predictor, truth *Truth, workers int) (*Result, error) {
	if len(groups) == 0 {
		return nil, evaluateError("no groups to pick representatives from")
	}
	if err := checkGroups(groups); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = opt.Workers
	}

	groups = sortedGroups(groups)
	total := 1
	for _, g := range groups {
		if total > maxCandidates/len(g) {
			return nil, evaluateError("too many candidates, more than %d", maxCandidates)
		}
		total *= len(g)
	}

	ctx, span := instrumentation.StartSpan(ctx, "search",
		"groups", strconv.Itoa(len(groups)), "candidates", strconv.Itoa(total))

	log.Info("searching %d candidate assignments with %d workers...", total, workers)

	var (
		indices   = make(chan int)
		results   = make(chan *candidate, workers)
		evaluated int64
		tracker   = newProgress(total, opt.ProgressInterval.Std())
	)

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(indices)
		for idx := 0; idx < total; idx++ {
			select {
			case indices <- idx:
			case <-egctx.Done():
				return nil
			}
		}
		return nil
	})
	for i := 0; i < workers; i++ {
		eg.Go(func() error {
			var best *candidate
			defer func() {
				if best != nil {
					results <- best
				}
			}()
			for idx := range indices {
				tuple := decode(groups, idx)
				report, err := Evaluate(p, tuple, truth)
				if err != nil {
					return err
				}
				c := &candidate{tuple: tuple, report: report}
				if c.better(best) {
					best = c
				}
				n := atomic.AddInt64(&evaluated, 1)
				metrics.CountSearchCandidates(1)
				tracker.update(n)
			}
			return nil
		})
	}

	var best *candidate
	reduced := make(chan struct{})
	go func() {
		defer close(reduced)
		for c := range results {
			if c.better(best) {
				best = c
			}
		}
	}()

	err := eg.Wait()
	close(results)
	<-reduced

	if err != nil {
		instrumentation.EndSpan(span, err)
		return nil, err
	}

	res := &Result{
		Candidates: total,
		Evaluated:  int(evaluated),
		Complete:   int(evaluated) == total,
	}
	if best == nil {
		instrumentation.EndSpan(span, ctx.Err())
		return res, nil
	}

	res.Report = best.report
	if best.report.Precision() < 1 {
		res.Degraded = true
		err = errors.Wrapf(ErrNoPrecisionOneAssignment,
			"best precision %.3f with recall %.3f", best.report.Precision(), best.report.Recall())
	}

	if !res.Complete {
		log.Warn("search cancelled after %d/%d candidates", res.Evaluated, total)
	}
	log.Info("best assignment %v: precision %.3f, recall %.3f",
		best.tuple, best.report.Precision(), best.report.Recall())

	instrumentation.EndSpan(span, err)
	return res, err
}
