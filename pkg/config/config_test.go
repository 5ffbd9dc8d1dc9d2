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

package config

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type testOptions struct {
	Workers  int
	Name     string
	Interval Duration
}

func (o *testOptions) Validate() error {
	if o.Workers < 0 {
		return fmt.Errorf("invalid negative worker count %d", o.Workers)
	}
	return nil
}

func defaultTestOptions() interface{} {
	return &testOptions{
		Workers:  4,
		Name:     "default",
		Interval: Duration(time.Second),
	}
}

func newTestConfig(t *testing.T, name string) (*Config, *testOptions, *[]Event) {
	opt := defaultTestOptions().(*testOptions)
	events := &[]Event{}
	notify := func(event Event, _ Source) error {
		*events = append(*events, event)
		if opt.Name == "reject" {
			return fmt.Errorf("rejected name %q", opt.Name)
		}
		return nil
	}
	Register("test", "test module\nwith some help", opt, defaultTestOptions,
		WithConfig(name), WithNotify(notify))
	return GetConfig(name), opt, events
}

func TestParseYAMLData(t *testing.T) {
	c, opt, events := newTestConfig(t, t.Name())

	err := c.ParseYAMLData([]byte(`
test:
  Workers: 8
  Interval: 5s
`), External)
	require.Nil(t, err)
	require.Equal(t, 8, opt.Workers)
	require.Equal(t, "default", opt.Name)
	require.Equal(t, 5*time.Second, opt.Interval.Std())
	require.Equal(t, []Event{UpdateEvent}, *events)

	err = c.ParseYAMLData([]byte(`test.Name: dotted`), External)
	require.Nil(t, err)
	require.Equal(t, "dotted", opt.Name)
	require.Equal(t, 4, opt.Workers, "unset values should revert to defaults")

	err = c.ParseYAMLData([]byte("test:\n  Interval: 1.5\n"), External)
	require.Nil(t, err)
	require.Equal(t, 1500*time.Millisecond, opt.Interval.Std())
}

func TestRejectedConfigurationIsReverted(t *testing.T) {
	c, opt, events := newTestConfig(t, t.Name())

	require.Nil(t, c.ParseYAMLData([]byte("test:\n  Workers: 2\n"), External))

	err := c.ParseYAMLData([]byte("test:\n  Workers: 3\n  Name: reject\n"), External)
	require.NotNil(t, err)
	require.Equal(t, 2, opt.Workers)
	require.Equal(t, "default", opt.Name)
	require.Equal(t, []Event{UpdateEvent, UpdateEvent, RevertEvent}, *events)
}

func TestInvalidConfiguration(t *testing.T) {
	c, opt, _ := newTestConfig(t, t.Name())

	tcases := []struct {
		name string
		data string
	}{
		{name: "unknown module", data: "nosuchmodule:\n  Foo: 1\n"},
		{name: "unknown key", data: "test:\n  Foo: 1\n"},
		{name: "validation failure", data: "test:\n  Workers: -1\n"},
		{name: "bad duration", data: "test:\n  Interval: forever\n"},
		{name: "conflicting keys", data: "test:\n  Name: a\ntest.Name: b\n"},
	}
	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			require.NotNil(t, c.ParseYAMLData([]byte(tc.data), External))
			require.Equal(t, 4, opt.Workers)
		})
	}
}

func TestConflictingRegistration(t *testing.T) {
	newTestConfig(t, t.Name())
	require.Panics(t, func() { newTestConfig(t, t.Name()) })
}

func TestHelp(t *testing.T) {
	buf := &bytes.Buffer{}
	GetConfig(DefaultRuntimeConfig)
	Describe(buf, "no-such-module")
	require.Contains(t, buf.String(), "No matching modules")
}
