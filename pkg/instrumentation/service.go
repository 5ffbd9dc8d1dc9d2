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
	"sync"

	"contrib.go.opencensus.io/exporter/jaeger"
)

// service tracks the tracing setup currently in effect.
type service struct {
	sync.Mutex
	running  bool
	applied  options
	exporter *jaeger.Exporter
}

func newService() *service {
	return &service{}
}

// Start sets up tracing according to the current configuration.
func (s *service) Start() error {
	s.Lock()
	defer s.Unlock()

	if err := s.apply(*opt); err != nil {
		return instrumentationError("failed to start tracing: %v", err)
	}
	s.running = true
	return nil
}

// Stop flushes pending spans and tears down the exporter.
func (s *service) Stop() {
	s.Lock()
	defer s.Unlock()

	s.closeExporter()
	s.running = false
}

// Restart stops then starts tracing.
func (s *service) Restart() error {
	s.Stop()
	return s.Start()
}

// reconfigure applies a configuration update if tracing is running.
func (s *service) reconfigure() error {
	s.Lock()
	defer s.Unlock()

	if !s.running {
		return nil
	}
	return s.apply(*opt)
}

// TracingEnabled checks if any runs are sampled.
func (s *service) TracingEnabled() bool {
	s.Lock()
	defer s.Unlock()
	return opt.Sampling > Disabled
}
