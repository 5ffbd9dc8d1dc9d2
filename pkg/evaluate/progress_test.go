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

package evaluate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProgressThroughput(t *testing.T) {
	p := newProgress(1000, time.Hour)
	start := p.last

	require.Equal(t, 0.0, p.sample(0, start.Add(time.Second)))
	require.Equal(t, 100.0, p.sample(100, start.Add(time.Second)))

	speed := p.sample(300, start.Add(2*time.Second))
	require.Greater(t, speed, 100.0)
	require.Less(t, speed, 200.0)

	// no time passed, no new sample
	require.Equal(t, speed, p.sample(400, start.Add(2*time.Second)))

	// reporting is throttled by the interval
	p.update(500)
	require.Equal(t, int64(300), p.lastN)
}
