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
	"sync"
	"time"

	goxrate "golang.org/x/time/rate"
)

const (
	// DefaultWindow is the default number of distinct messages tracked.
	DefaultWindow = 256
	// MinimumWindow is the smallest number of distinct messages tracked.
	MinimumWindow = 32
)

// Rate is the maximum rate of emitting any single message.
type Rate struct {
	// Limit is the sustained rate.
	Limit goxrate.Limit
	// Burst is the number of messages let through at once.
	Burst int
	// Window is the number of distinct messages to track.
	Window int
}

// Every returns the limit of one message per interval.
func Every(interval time.Duration) goxrate.Limit {
	return goxrate.Every(interval)
}

// Interval returns a Rate of one message per interval.
func Interval(interval time.Duration) Rate {
	return Rate{Limit: Every(interval), Burst: 1}
}

// ratelimited drops messages emitted too often. Messages are told apart by
// their formatted text; the oldest one is forgotten when the window is full.
type ratelimited struct {
	Logger
	sync.Mutex
	rate   Rate
	limits map[string]*goxrate.Limiter
	order  []string // circular, next points at the oldest message
	next   int
}

// RateLimit returns a version of log that rate limits each distinct
// debug, info, warning and error message.
func RateLimit(log Logger, rate Rate) Logger {
	if rate.Window == 0 {
		rate.Window = DefaultWindow
	}
	if rate.Window < MinimumWindow {
		rate.Window = MinimumWindow
	}
	if rate.Burst < 1 {
		rate.Burst = 1
	}
	return &ratelimited{
		Logger: log,
		rate:   rate,
		limits: make(map[string]*goxrate.Limiter, rate.Window),
		order:  make([]string, 0, rate.Window),
	}
}

func (rl *ratelimited) Debug(format string, args ...interface{}) {
	rl.emit(rl.Logger.Debug, format, args...)
}

func (rl *ratelimited) Info(format string, args ...interface{}) {
	rl.emit(rl.Logger.Info, format, args...)
}

func (rl *ratelimited) Warn(format string, args ...interface{}) {
	rl.emit(rl.Logger.Warn, format, args...)
}

func (rl *ratelimited) Error(format string, args ...interface{}) {
	rl.emit(rl.Logger.Error, format, args...)
}

func (rl *ratelimited) emit(fn func(string, ...interface{}), format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if rl.limiter(msg).Allow() {
		fn("<rate-limited> %s", msg)
	}
}

// limiter returns the limiter of msg, replacing the oldest one if needed.
func (rl *ratelimited) limiter(msg string) *goxrate.Limiter {
	rl.Lock()
	defer rl.Unlock()

	if lim, ok := rl.limits[msg]; ok {
		return lim
	}

	if len(rl.order) < rl.rate.Window {
		rl.order = append(rl.order, msg)
	} else {
		delete(rl.limits, rl.order[rl.next])
		rl.order[rl.next] = msg
		rl.next = (rl.next + 1) % rl.rate.Window
	}

	lim := goxrate.NewLimiter(rl.rate.Limit, rl.rate.Burst)
	rl.limits[msg] = lim
	return lim
}
