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

// Option is the generic interface for any option applicable to a Module or Config.
type Option interface {
	apply(interface{}) error
}

// funcOption is a generic functional option.
type funcOption struct {
	f func(interface{}) error
}

// apply applies a functional option to an object.
func (fo *funcOption) apply(o interface{}) error {
	return fo.f(o)
}

// parentOption selects the configuration a module is registered in.
type parentOption struct {
	name string
}

func (*parentOption) apply(interface{}) error {
	return nil
}

// WithNotify injects an update notification callback into a configuration or module.
func WithNotify(fn NotifyFn) Option {
	return &funcOption{f: func(o interface{}) error {
		switch obj := o.(type) {
		case *Config:
			obj.notify = append(obj.notify, fn)
		case *Module:
			obj.notify = append(obj.notify, fn)
		default:
			return configError("WithNotify is not valid option for object of type %T", o)
		}
		return nil
	}}
}

// WithConfig specifies which configuration collection a module should be inserted into.
func WithConfig(name string) Option {
	return &parentOption{name: name}
}
