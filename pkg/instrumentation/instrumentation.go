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
	"fmt"

	"go.opencensus.io/trace"

	logger "github.com/intel/isa-compat/pkg/log"
)

const (
	// ServiceName is our service name in external tracing services.
	ServiceName = "isa-compat"
)

// Our logger instance.
var log = logger.NewLogger("instrumentation")

// Our instrumentation service instance.
var svc = newService()

// TracingEnabled returns true if the tracing sampler is not disabled.
func TracingEnabled() bool {
	return svc.TracingEnabled()
}

// Start starts our instrumentation services.
func Start() error {
	return svc.Start()
}

// Stop stops our instrumentation services.
func Stop() {
	svc.Stop()
}

// Restart restarts our instrumentation services.
func Restart() error {
	return svc.Restart()
}

// StartSpan starts a named span, annotated with the given string attributes
// given as key, value pairs.
func StartSpan(ctx context.Context, name string, kv ...string) (context.Context, *trace.Span) {
	ctx, span := trace.StartSpan(ctx, name)
	if span.IsRecordingEvents() {
		attrs := make([]trace.Attribute, 0, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			attrs = append(attrs, trace.StringAttribute(kv[i], kv[i+1]))
		}
		span.AddAttributes(attrs...)
	}
	return ctx, span
}

// EndSpan ends the span, recording err as its status if it is non-nil.
func EndSpan(span *trace.Span, err error) {
	if err != nil {
		span.SetStatus(trace.Status{Code: trace.StatusCodeUnknown, Message: err.Error()})
	}
	span.End()
}

// instrumentationError produces a formatted instrumentation-specific error.
func instrumentationError(format string, args ...interface{}) error {
	return fmt.Errorf("instrumentation: "+format, args...)
}
