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
	"sync"
	"time"

	"github.com/VividCortex/ewma"
	"golang.org/x/time/rate"
)

// progress tracks the throughput of a search and reports it periodically.
type progress struct {
	sync.Mutex
	total   int
	limiter *rate.Limiter
	speed   ewma.MovingAverage // candidates per second
	last    time.Time
	lastN   int64
}

func newProgress(total int, interval time.Duration) *progress {
	p := &progress{
		total:   total,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		speed:   ewma.NewMovingAverage(),
		last:    time.Now(),
	}
	p.limiter.Allow()
	return p
}

// update takes the number of candidates evaluated so far and logs
// the progress if the reporting interval has passed.
func (p *progress) update(n int64) {
	if !p.limiter.Allow() {
		return
	}

	speed := p.sample(n, time.Now())
	if speed <= 0 {
		log.Info("evaluated %d/%d candidates", n, p.total)
		return
	}

	eta := time.Duration(float64(int64(p.total)-n) / speed * float64(time.Second))
	log.Info("evaluated %d/%d candidates, %.0f/s, %v remaining",
		n, p.total, speed, eta.Round(time.Second))
}

// sample adds the throughput since the previous sample to the moving
// average and returns the new average.
func (p *progress) sample(n int64, now time.Time) float64 {
	p.Lock()
	defer p.Unlock()

	if elapsed := now.Sub(p.last).Seconds(); elapsed > 0 && n > p.lastN {
		p.speed.Add(float64(n-p.lastN) / elapsed)
		p.last, p.lastN = now, n
	}
	return p.speed.Value()
}
