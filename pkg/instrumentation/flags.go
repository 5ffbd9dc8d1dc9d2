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
	"encoding/json"
	"os"
	"strconv"
	"strings"

	"go.opencensus.io/trace"

	"github.com/intel/isa-compat/pkg/config"
)

// Sampling is the fraction of analysis and search runs to trace.
type Sampling float64

const (
	// Disabled turns tracing off.
	Disabled Sampling = 0.0
	// Production traces every tenth run.
	Production Sampling = 0.1
	// Testing traces every run.
	Testing Sampling = 1.0
)

// named sampling presets
var presets = []struct {
	name  string
	value Sampling
}{
	{"disabled", Disabled},
	{"production", Production},
	{"testing", Testing},
}

// options are our configurable tracing parameters.
type options struct {
	// Sampling is the fraction of runs to trace.
	Sampling Sampling `json:"sampling"`
	// JaegerCollector is the URL of a Jaeger HTTP Thrift collector.
	JaegerCollector string `json:"jaegerCollector,omitempty"`
	// JaegerAgent is the address of a Jaeger agent.
	JaegerAgent string `json:"jaegerAgent,omitempty"`
}

// Our tracing configuration.
var opt = defaultOptions().(*options)

// Parse sets the sampling from a preset name or a fraction in [0, 1].
func (s *Sampling) Parse(value string) error {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, p := range presets {
		if p.name == value {
			*s = p.value
			return nil
		}
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return instrumentationError("invalid sampling %q: %v", value, err)
	}
	if f < 0 || f > 1 {
		return instrumentationError("invalid sampling %q, not in [0, 1]", value)
	}
	*s = Sampling(f)
	return nil
}

// String returns the preset name or the fraction of the sampling.
func (s Sampling) String() string {
	for _, p := range presets {
		if p.value == s {
			return p.name
		}
	}
	return strconv.FormatFloat(float64(s), 'f', -1, 64)
}

// MarshalJSON is the JSON marshaller for Sampling.
func (s Sampling) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts both preset names and plain numbers.
func (s *Sampling) UnmarshalJSON(raw []byte) error {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return s.Parse(name)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return instrumentationError("invalid sampling %s", string(raw))
	}
	return s.Parse(strconv.FormatFloat(f, 'f', -1, 64))
}

// Sampler returns the opencensus sampler for the sampling.
func (s Sampling) Sampler() trace.Sampler {
	switch {
	case s <= Disabled:
		return trace.NeverSample()
	case s >= Testing:
		return trace.AlwaysSample()
	}
	return trace.ProbabilitySampler(float64(s))
}

// defaultOptions returns the defaults, taken from the environment if set.
func defaultOptions() interface{} {
	o := &options{
		JaegerCollector: os.Getenv("JAEGER_COLLECTOR"),
		JaegerAgent:     os.Getenv("JAEGER_AGENT"),
	}
	if env := os.Getenv("SAMPLING_FREQUENCY"); env != "" {
		if err := o.Sampling.Parse(env); err != nil {
			log.Error("ignoring SAMPLING_FREQUENCY: %v", err)
			o.Sampling = Disabled
		}
	}
	return o
}

// configNotify reconfigures tracing of a running service.
func configNotify(event config.Event, _ config.Source) error {
	log.Debug("tracing %v: sampling %s, agent %q, collector %q",
		event, opt.Sampling, opt.JaegerAgent, opt.JaegerCollector)

	if err := svc.reconfigure(); err != nil {
		log.Error("failed to reconfigure tracing: %v", err)
	}
	return nil
}

func init() {
	config.Register("instrumentation", "Tracing of analysis and search runs.",
		opt, defaultOptions, config.WithNotify(configNotify))
}
