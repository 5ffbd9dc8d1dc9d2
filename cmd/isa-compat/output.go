// Copyright 2022 Intel Corporation. All Rights Reserved.
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

package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"
)

// writer writes command results in the selected format.
type writer struct {
	w      io.Writer
	format string
}

func newWriter(w io.Writer, format string) (*writer, error) {
	switch format {
	case "json", "yaml":
		return &writer{w: w, format: format}, nil
	}
	return nil, fmt.Errorf("invalid output format %q, expected json or yaml", format)
}

// Write writes obj to the output.
func (w *writer) Write(obj interface{}) error {
	var (
		raw []byte
		err error
	)
	if w.format == "json" {
		raw, err = json.MarshalIndent(obj, "", "  ")
		raw = append(raw, '\n')
	} else {
		raw, err = yaml.Marshal(obj)
	}
	if err != nil {
		return errors.Wrap(err, "failed to marshal output")
	}
	_, err = w.w.Write(raw)
	return err
}

// output returns the writer of a command.
func output(w io.Writer) *writer {
	out, _ := newWriter(w, opt.output)
	return out
}
