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

package evaluate

import (
	"encoding/json"
	"fmt"

	"github.com/pkg/errors"

	logger "github.com/intel/isa-compat/pkg/log"
)

// ErrNoPrecisionOneAssignment is returned when no representative assignment
// predicts migrations without false positives.
var ErrNoPrecisionOneAssignment = errors.New("no assignment with precision 1")

var log = logger.NewLogger("evaluate")

// Predictor predicts whether workload can migrate from instance src to dst.
type Predictor interface {
	Predict(src, dst, workload string) (bool, error)
}

// Matrix is a confusion matrix of migration predictions. Unknown counts
// predictions without a known outcome.
type Matrix struct {
	TP      int `json:"tp"`
	FP      int `json:"fp"`
	TN      int `json:"tn"`
	FN      int `json:"fn"`
	Unknown int `json:"unknown"`
}

// Add accounts for a prediction against an actual outcome.
func (m *Matrix) Add(predicted, actual bool) {
	switch {
	case predicted && actual:
		m.TP++
	case predicted && !actual:
		m.FP++
	case !predicted && actual:
		m.FN++
	default:
		m.TN++
	}
}

// Merge adds the counts of o to m.
func (m *Matrix) Merge(o *Matrix) {
	m.TP += o.TP
	m.FP += o.FP
	m.TN += o.TN
	m.FN += o.FN
	m.Unknown += o.Unknown
}

// Precision returns TP/(TP+FP), or 1 if nothing was predicted positive.
func (m *Matrix) Precision() float64 {
	if m.TP+m.FP == 0 {
		return 1
	}
	return float64(m.TP) / float64(m.TP+m.FP)
}

// Recall returns TP/(TP+FN), or 0 if nothing was actually positive.
func (m *Matrix) Recall() float64 {
	if m.TP+m.FN == 0 {
		return 0
	}
	return float64(m.TP) / float64(m.TP+m.FN)
}

// MarshalJSON is the JSON marshaller for Matrix, including precision and recall.
func (m *Matrix) MarshalJSON() ([]byte, error) {
	type counts Matrix
	return json.Marshal(struct {
		*counts
		Precision float64 `json:"precision"`
		Recall    float64 `json:"recall"`
	}{(*counts)(m), m.Precision(), m.Recall()})
}

// Report is the evaluation of a predictor over a set of instances.
type Report struct {
	Instances []string           `json:"instances"`
	Workloads map[string]*Matrix `json:"workloads"`
	Aggregate *Matrix            `json:"aggregate"`
}

// Precision returns the aggregate precision.
func (r *Report) Precision() float64 {
	return r.Aggregate.Precision()
}

// Recall returns the aggregate recall.
func (r *Report) Recall() float64 {
	return r.Aggregate.Recall()
}

// Evaluate compares the predictions of p for every ordered pair of distinct
// instances and every workload of the ground truth against its outcomes.
func Evaluate(p Predictor, instances []string, truth *Truth) (*Report, error) {
	r := &Report{
		Instances: append([]string(nil), instances...),
		Workloads: map[string]*Matrix{},
		Aggregate: &Matrix{},
	}

	for _, workload := range truth.Workloads() {
		m := &Matrix{}
		for _, src := range instances {
			for _, dst := range instances {
				if src == dst {
					continue
				}
				actual, known := truth.Lookup(src, dst, workload)
				if !known {
					m.Unknown++
					continue
				}
				predicted, err := p.Predict(src, dst, workload)
				if err != nil {
					return nil, errors.Wrapf(err, "predicting %s on %s -> %s", workload, src, dst)
				}
				m.Add(predicted, actual)
			}
		}
		r.Workloads[workload] = m
		r.Aggregate.Merge(m)
	}

	return r, nil
}

func evaluateError(format string, args ...interface{}) error {
	return fmt.Errorf("evaluate: "+format, args...)
}
