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

package log

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

// a test Backend that records messages for verification
type testlogger struct {
	sync.Mutex
	recorded []string
}

var testlog = &testlogger{}

const testLoggerName = "testlogger"

func (l *testlogger) Name() string {
	return testLoggerName
}

func (l *testlogger) Log(level Level, source, format string, args ...interface{}) {
	l.record(level, fmt.Sprintf("["+source+"] "+format, args...))
}

func (l *testlogger) Block(level Level, source, prefix, format string, args ...interface{}) {
	for _, line := range strings.Split(fmt.Sprintf(format, args...), "\n") {
		l.record(level, "["+source+"] "+prefix+line)
	}
}

func (l *testlogger) Sync()                  {}
func (l *testlogger) Stop()                  {}
func (l *testlogger) SetSourceAlignment(int) {}

func (l *testlogger) record(level Level, msg string) {
	l.Lock()
	defer l.Unlock()
	l.recorded = append(l.recorded, level.String()+" "+msg)
}

func (l *testlogger) reset() []string {
	l.Lock()
	defer l.Unlock()
	recorded := l.recorded
	l.recorded = nil
	return recorded
}

func setup(t *testing.T) *testlogger {
	require.Nil(t, SetBackend(testLoggerName))
	SetLevel(LevelInfo)
	log.Lock()
	log.update(make(srcmap), make(srcmap))
	log.Unlock()
	testlog.reset()
	return testlog
}

func TestSeverityFiltering(t *testing.T) {
	tl := setup(t)
	l := NewLogger("severity")

	l.Debug("debug message")
	l.Info("info message")
	l.Warn("warning message")
	l.Error("error message")
	require.Equal(t, []string{
		"info [severity] info message",
		"warning [severity] warning message",
		"error [severity] error message",
	}, tl.reset())

	SetLevel(LevelWarn)
	l.Info("info message")
	l.Warn("warning message")
	require.Equal(t, []string{"warning [severity] warning message"}, tl.reset())

	old := l.EnableDebug(true)
	require.False(t, old)
	require.True(t, l.DebugEnabled())
	l.Debug("debug message")
	require.Equal(t, []string{"debug [severity] debug message"}, tl.reset())
	l.EnableDebug(false)
}

func TestSourceMaps(t *testing.T) {
	tl := setup(t)
	a := NewLogger("source-a")
	b := NewLogger("source-b")

	require.Nil(t, opt.Enable.Set("off:source-a"))
	a.Info("suppressed")
	b.Info("passed")
	require.Equal(t, []string{"info [source-b] passed"}, tl.reset())

	require.Nil(t, opt.Debug.Set("on:*,off:source-b"))
	a.Debug("debug a")
	b.Debug("debug b")
	require.Equal(t, []string{"debug [source-a] debug a"}, tl.reset())

	require.NotNil(t, opt.Debug.Set("maybe:source-a"))
}

func TestBlocks(t *testing.T) {
	tl := setup(t)
	l := NewLogger("block")

	l.InfoBlock("  ", "line 1\nline 2")
	require.Equal(t, []string{
		"info [block]   line 1",
		"info [block]   line 2",
	}, tl.reset())
}

func TestSrcmapJSON(t *testing.T) {
	var m srcmap
	require.Nil(t, m.UnmarshalJSON([]byte(`"on:a,b,off:c"`)))
	require.Equal(t, srcmap{"a": true, "b": true, "c": false}, m)
	require.Equal(t, "on:a,b,off:c", m.String())

	var r srcmap
	require.Nil(t, r.UnmarshalJSON([]byte(`{"on": ["all"], "off": ["x"]}`)))
	require.Equal(t, srcmap{"*": true, "x": false}, r)
}

func TestFmtBackendAlignment(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &fmtBackend{out: buf}
	f.SetSourceAlignment(6)
	f.Log(LevelWarn, "abc", "hello %d", 1)
	require.Equal(t, "W: [  abc ] hello 1\n", buf.String())
}

func TestConcurrentLogging(t *testing.T) {
	tl := setup(t)
	wg := sync.WaitGroup{}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			l := NewLogger(fmt.Sprintf("worker-%d", id))
			for j := 0; j < 16; j++ {
				l.Info("message %d", j)
			}
		}(i)
	}
	wg.Wait()
	require.Len(t, tl.reset(), 8*16)
}

func init() {
	RegisterBackend(testLoggerName, func() Backend { return testlog })
}
