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

var configHelp = `
Logging and debugging messages.

To control logging and debug messages include a corresponding configuration
fragment in your configuration file. You can control the lowest severity of
messages to pass through, which log sources are enabled, which log sources
are producing debug messages, and which backend emits them. For instance to
pass only warnings and errors, and turn on debugging for the analyzer and the
interpreter use the fragment below:

  logger:
    level: warning
    debug: analyzer,interp

You can prefix a source or a list of source names with 'off' or 'on' to toggle
them on or off. For instance, to turn on debugging for all except the lattice
and the resolver:

  logger:
    debug: on:*,off:lattice,resolver

The same settings can be controlled using the --logger-sources, --logger-debug
and --logger-level command line options. Use --logger klog to pass messages to
klog instead of the built-in fmt backend.
`
