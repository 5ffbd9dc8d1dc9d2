// Copyright 2019-2022 Intel Corporation. All Rights Reserved.
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

package instrumentation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opencensus.io/trace"

	"github.com/intel/isa-compat/pkg/config"
)

func TestSamplingIdempotency(t *testing.T) {
	tcases := []Sampling{
		Disabled,
		Testing,
		Production,
		0.2, 0.25, 0.5, 0.75, 0.8,
	}
	for _, tc := range tcases {
		var chk Sampling
		require.NoError(t, chk.Parse(tc.String()), "parse %q", tc)
		require.Equal(t, tc, chk)
	}
}

func TestSamplingParseErrors(t *testing.T) {
	for _, value := range []string{"often", "-0.5", "1.5"} {
		var s Sampling
		require.Error(t, s.Parse(value), "parse %q", value)
	}
}

type spanRecorder struct {
	sync.Mutex
	spans []*trace.SpanData
}

func (r *spanRecorder) ExportSpan(s *trace.SpanData) {
	r.Lock()
	defer r.Unlock()
	r.spans = append(r.spans, s)
}

func TestSpansFollowConfiguredSampling(t *testing.T) {
	rec := &spanRecorder{}
	trace.RegisterExporter(rec)
	defer trace.UnregisterExporter(rec)

	defer config.Reset()
	require.NoError(t, config.ParseYAMLData([]byte("instrumentation:\n  sampling: testing\n"), "test"))
	require.NoError(t, Start())
	defer Stop()
	require.True(t, TracingEnabled())

	_, span := StartSpan(context.Background(), "analyze", "program", "app")
	EndSpan(span, errors.New("boom"))

	require.Len(t, rec.spans, 1)
	require.Equal(t, "analyze", rec.spans[0].Name)
	require.Equal(t, "app", rec.spans[0].Attributes["program"])
	require.Equal(t, "boom", rec.spans[0].Status.Message)

	require.NoError(t, config.ParseYAMLData([]byte("instrumentation:\n  sampling: disabled\n"), "test"))
	require.False(t, TracingEnabled())

	_, span = StartSpan(context.Background(), "search")
	EndSpan(span, nil)
	require.Len(t, rec.spans, 1)
}
