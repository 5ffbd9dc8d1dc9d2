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
	"contrib.go.opencensus.io/exporter/jaeger"
	"go.opencensus.io/trace"
)

// apply brings tracing in line with o, with the service lock held. The
// sampler is set even without a Jaeger endpoint, for in-process exporters.
func (s *service) apply(o options) error {
	trace.ApplyConfig(trace.Config{DefaultSampler: o.Sampling.Sampler()})

	sameEndpoints := o.JaegerAgent == s.applied.JaegerAgent &&
		o.JaegerCollector == s.applied.JaegerCollector
	if s.exporter != nil && sameEndpoints {
		s.applied = o
		return nil
	}

	s.closeExporter()
	s.applied = o

	if o.JaegerAgent == "" && o.JaegerCollector == "" {
		log.Debug("no Jaeger endpoint configured, spans are not exported")
		return nil
	}

	exp, err := jaeger.NewExporter(jaeger.Options{
		ServiceName:       ServiceName,
		AgentEndpoint:     o.JaegerAgent,
		CollectorEndpoint: o.JaegerCollector,
		Process:           jaeger.Process{ServiceName: ServiceName},
		OnError:           func(err error) { log.Error("jaeger: %v", err) },
	})
	if err != nil {
		return instrumentationError("failed to create Jaeger exporter: %v", err)
	}

	log.Info("exporting spans to Jaeger (agent %q, collector %q)", o.JaegerAgent, o.JaegerCollector)
	trace.RegisterExporter(exp)
	s.exporter = exp

	return nil
}

// closeExporter flushes and unregisters the Jaeger exporter, if any.
func (s *service) closeExporter() {
	if s.exporter == nil {
		return
	}
	s.exporter.Flush()
	trace.UnregisterExporter(s.exporter)
	s.exporter = nil
	s.applied = options{}
}
