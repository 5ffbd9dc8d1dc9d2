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

package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
)

// VerifyDiff checks that two values are structurally equal, or else it fails the test.
func VerifyDiff(t *testing.T, valueName string, expected, seen interface{}, opts ...cmp.Option) bool {
	t.Helper()
	if diff := cmp.Diff(expected, seen, opts...); diff != "" {
		t.Errorf("unexpected %s (-expected +seen):\n%s", valueName, diff)
		return false
	}
	return true
}

// VerifyError checks a (multi)error has the expected number of errors, each
// wrapping one of the given sentinels, and contains the given substrings, or
// else it fails the test.
func VerifyError(t *testing.T, err error, expectedCount int, sentinels []error, expectedSubstrings ...string) bool {
	t.Helper()
	if expectedCount == 0 {
		if err != nil {
			t.Errorf("expected 0 errors, but got %v", err)
			return false
		}
		return true
	}

	if err == nil {
		t.Errorf("error expected, got nil")
		return false
	}
	merr, ok := err.(*multierror.Error)
	if !ok {
		t.Errorf("expected %d errors, but got %#v instead of multierror", expectedCount, err)
		return false
	}
	if len(merr.Errors) != expectedCount {
		t.Errorf("expected %d errors, but got %d: %v", expectedCount, len(merr.Errors), merr)
		return false
	}

	if len(sentinels) > 0 {
		for _, e := range merr.Errors {
			if !isAny(e, sentinels) {
				t.Errorf("unexpected error %v, expected one of %v", e, sentinels)
				return false
			}
		}
	}

	for _, substring := range expectedSubstrings {
		if !strings.Contains(err.Error(), substring) {
			t.Errorf("expected error with substring %#v, got \"%v\"", substring, err)
			return false
		}
	}
	return true
}

func isAny(err error, sentinels []error) bool {
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}

// WriteFile writes content to name in a per-test temporary directory and
// returns the full path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
