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
	"os"
	"sort"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"sigs.k8s.io/yaml"
)

// Outcome is an observed migration outcome.
type Outcome struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	Workload    string `json:"workload"`
	Success     bool   `json:"success"`
}

type outcomeKey struct {
	src, dst, workload string
}

// Truth indexes ground truth migration outcomes.
type Truth struct {
	outcomes  map[outcomeKey]bool
	workloads []string
}

// NewTruth indexes the given outcomes. Conflicting outcomes for the same
// migration are an error.
func NewTruth(outcomes []Outcome) (*Truth, error) {
	t := &Truth{outcomes: make(map[outcomeKey]bool, len(outcomes))}
	workloads := map[string]struct{}{}
	for _, o := range outcomes {
		key := outcomeKey{o.Source, o.Destination, o.Workload}
		if prev, ok := t.outcomes[key]; ok && prev != o.Success {
			return nil, evaluateError("conflicting outcomes for %s on %s -> %s",
				o.Workload, o.Source, o.Destination)
		}
		t.outcomes[key] = o.Success
		workloads[o.Workload] = struct{}{}
	}
	t.workloads = maps.Keys(workloads)
	slices.Sort(t.workloads)
	return t, nil
}

// Lookup returns the outcome of migrating workload from src to dst and
// whether it is known.
func (t *Truth) Lookup(src, dst, workload string) (bool, bool) {
	success, ok := t.outcomes[outcomeKey{src, dst, workload}]
	return success, ok
}

// Workloads returns the sorted workloads with known outcomes.
func (t *Truth) Workloads() []string {
	return t.workloads
}

// Len returns the number of known outcomes.
func (t *Truth) Len() int {
	return len(t.outcomes)
}

// LoadTruth loads ground truth outcomes from a YAML or JSON file.
func LoadTruth(path string) (*Truth, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, evaluateError("failed to read outcomes: %v", err)
	}
	var outcomes []Outcome
	if err := yaml.Unmarshal(raw, &outcomes); err != nil {
		return nil, evaluateError("failed to parse outcomes %s: %v", path, err)
	}
	return NewTruth(outcomes)
}

// LoadGroups loads representative groups, a list of instance ID lists,
// from a YAML or JSON file.
func LoadGroups(path string) ([][]string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, evaluateError("failed to read groups: %v", err)
	}
	var groups [][]string
	if err := yaml.Unmarshal(raw, &groups); err != nil {
		return nil, evaluateError("failed to parse groups %s: %v", path, err)
	}
	if err := checkGroups(groups); err != nil {
		return nil, err
	}
	return groups, nil
}

// checkGroups verifies groups are non-empty and disjoint.
func checkGroups(groups [][]string) error {
	seen := map[string]int{}
	for i, g := range groups {
		if len(g) == 0 {
			return evaluateError("group #%d is empty", i)
		}
		for _, id := range g {
			if j, ok := seen[id]; ok {
				return evaluateError("instance %s is in groups #%d and #%d", id, j, i)
			}
			seen[id] = i
		}
	}
	return nil
}

// sortedGroups returns a copy of groups with sorted members.
func sortedGroups(groups [][]string) [][]string {
	sorted := make([][]string, len(groups))
	for i, g := range groups {
		sorted[i] = append([]string(nil), g...)
		sort.Strings(sorted[i])
	}
	return sorted
}
