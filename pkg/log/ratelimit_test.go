// Copyright 2020-2022 Intel Corporation. All Rights Reserved.
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

package log

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	goxrate "golang.org/x/time/rate"
)

func TestRateLimitWindow(t *testing.T) {
	rl := RateLimit(Default(), Rate{Window: 1, Limit: Every(time.Second)}).(*ratelimited)
	require.Equal(t, MinimumWindow, rl.rate.Window)

	msg := func(i int) string { return fmt.Sprintf("message #%d", i) }
	limiters := map[string]*goxrate.Limiter{}

	for i := 0; i < MinimumWindow; i++ {
		limiters[msg(i)] = rl.limiter(msg(i))
	}
	for i := 0; i < MinimumWindow; i++ {
		require.Same(t, limiters[msg(i)], rl.limiter(msg(i)), "window not full yet")
	}

	evicted := MinimumWindow / 4
	for i := MinimumWindow; i < MinimumWindow+evicted; i++ {
		limiters[msg(i)] = rl.limiter(msg(i))
	}
	require.Len(t, rl.limits, MinimumWindow)

	for i := evicted; i < MinimumWindow+evicted; i++ {
		require.Same(t, limiters[msg(i)], rl.limiter(msg(i)), "%s still in window", msg(i))
	}
	for i := 0; i < evicted; i++ {
		require.NotSame(t, limiters[msg(i)], rl.limiter(msg(i)), "%s shifted out", msg(i))
	}
}

func TestRateLimitSuppression(t *testing.T) {
	tl := setup(t)
	rl := RateLimit(NewLogger("limited"), Interval(time.Hour))

	rl.Warn("unknown mnemonic %s", "FOO")
	rl.Warn("unknown mnemonic %s", "FOO")
	rl.Warn("unknown mnemonic %s", "BAR")
	rl.Debug("unknown mnemonic %s", "BAZ")

	require.Len(t, tl.reset(), 2)
}
