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
	"github.com/intel/isa-compat/pkg/features"
	"github.com/intel/isa-compat/pkg/lattice"
)

// LatticePredictor predicts migrations from a compatibility lattice. When
// the features a workload used on the source are known, the migration is
// predicted to succeed iff the destination has all of them. Otherwise the
// source machine's group must reach the destination's.
type LatticePredictor struct {
	lattice *lattice.Lattice
	set     *features.Set
}

// NewLatticePredictor creates a predictor for the given lattice and the
// observations it was built from.
func NewLatticePredictor(l *lattice.Lattice, set *features.Set) *LatticePredictor {
	return &LatticePredictor{lattice: l, set: set}
}

// Predict predicts whether workload can migrate from src to dst.
func (p *LatticePredictor) Predict(src, dst, workload string) (bool, error) {
	if w, ok := p.set.Workload(src, workload); ok {
		m, ok := p.set.Machine(dst)
		if !ok {
			return false, evaluateError("unknown machine %s", dst)
		}
		return w.Vector.SubsetOf(m.Vector), nil
	}
	return p.lattice.CanMigrate(src, dst)
}
