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
	"bytes"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func family(t *testing.T, name string) *dto.MetricFamily {
	families, err := Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func TestAnalysisCounters(t *testing.T) {
	before := 0.0
	if mf := family(t, "isacompat_unresolved_imports_total"); mf != nil {
		before = mf.GetMetric()[0].GetCounter().GetValue()
	}

	CountCallables(CallableAnalyzed, 3)
	CountCallables(CallablePartial, 1)
	CountUnresolvedImports(2)
	SetLatticeGroups(7)

	mf := family(t, "isacompat_unresolved_imports_total")
	require.NotNil(t, mf)
	require.Equal(t, before+2, mf.GetMetric()[0].GetCounter().GetValue())

	mf = family(t, "isacompat_lattice_groups")
	require.NotNil(t, mf)
	require.Equal(t, dto.MetricType_GAUGE, mf.GetType())
	require.Equal(t, 7.0, mf.GetMetric()[0].GetGauge().GetValue())

	mf = family(t, "isacompat_callables_total")
	require.NotNil(t, mf)
	results := map[string]float64{}
	for _, m := range mf.GetMetric() {
		results[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	require.GreaterOrEqual(t, results[CallableAnalyzed], 3.0)
	require.GreaterOrEqual(t, results[CallablePartial], 1.0)
}

func TestRegisterCollector(t *testing.T) {
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_registered_total", Help: "Test counter."})
	require.NoError(t, RegisterCollector("test-registered", func() (prometheus.Collector, error) {
		return counter, nil
	}))
	require.Error(t, RegisterCollector("test-registered", nil))

	counter.Inc()
	var buf bytes.Buffer
	require.NoError(t, Dump(&buf))
	require.Contains(t, buf.String(), "test_registered_total 1")
	require.Contains(t, buf.String(), "# TYPE isacompat_search_candidates_total counter")
}
