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

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	namespace = "isacompat"

	// CallableAnalyzed labels callables interpreted completely.
	CallableAnalyzed = "analyzed"
	// CallablePartial labels callables whose interpretation stopped early.
	CallablePartial = "partial"
	// CallableSkipped labels callables dropped as malformed.
	CallableSkipped = "skipped"
)

var (
	callables = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "callables_total",
			Help:      "Number of callables processed, by result.",
		},
		[]string{"result"},
	)
	unresolvedImports = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unresolved_imports_total",
			Help:      "Number of imports not found in the module registry.",
		},
	)
	latticeGroups = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lattice_groups",
			Help:      "Number of feature groups in the last built compatibility lattice.",
		},
	)
	searchCandidates = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_candidates_total",
			Help:      "Number of representative assignments evaluated.",
		},
	)
)

// CountCallables counts n callables with the given result.
func CountCallables(result string, n int) {
	callables.WithLabelValues(result).Add(float64(n))
}

// CountUnresolvedImports counts n unresolved imports.
func CountUnresolvedImports(n int) {
	unresolvedImports.Add(float64(n))
}

// SetLatticeGroups records the number of groups of a lattice.
func SetLatticeGroups(n int) {
	latticeGroups.Set(float64(n))
}

// CountSearchCandidates counts n evaluated candidates.
func CountSearchCandidates(n int) {
	searchCandidates.Add(float64(n))
}

func init() {
	for name, c := range map[string]prometheus.Collector{
		"callables":          callables,
		"unresolved-imports": unresolvedImports,
		"lattice-groups":     latticeGroups,
		"search-candidates":  searchCandidates,
	} {
		c := c
		if err := RegisterCollector(name, func() (prometheus.Collector, error) { return c, nil }); err != nil {
			log.Error("%v", err)
		}
	}
}
