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

package resolver

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"

	logger "github.com/intel/isa-compat/pkg/log"
)

// ErrUnresolvedImport marks imports no candidate of which is known to the registry.
var ErrUnresolvedImport = errors.New("unresolved import")

// maxAncestors is the number of anchor ancestors tried for absolute imports.
const maxAncestors = 3

var log = logger.NewLogger("resolver")

// Resolution is the outcome of resolving a single import.
type Resolution struct {
	// Requested is the module name as written in the import.
	Requested string `json:"requested"`
	// Level is the relative import level.
	Level int `json:"level,omitempty"`
	// Origin is the canonical module name, Requested if unresolved.
	Origin string `json:"origin"`
	// Resolved tells if Origin was found in the registry.
	Resolved bool `json:"resolved"`
	// Module is the registry entry of a resolved import.
	Module ModuleInfo `json:"module"`
}

// Err returns an ErrUnresolvedImport error for unresolved imports, nil otherwise.
func (r Resolution) Err() error {
	if r.Resolved {
		return nil
	}
	return errors.Wrapf(ErrUnresolvedImport, "%s", r.describe())
}

func (r Resolution) describe() string {
	if r.Level > 0 {
		return strings.Repeat(".", r.Level) + r.Requested
	}
	return r.Requested
}

// Stats are the resolution counters of a Resolver.
type Stats struct {
	Resolved   int64
	Unresolved int64
}

// Resolver resolves imports against a module registry.
type Resolver struct {
	registry   Registry
	cache      sync.Map
	resolved   int64
	unresolved int64
}

// New creates a resolver using the given registry.
func New(registry Registry) *Resolver {
	return &Resolver{registry: registry}
}

// Candidates returns the module names tried for an import, in order.
// For absolute imports these are the requested name relative to the
// anchor and up to three of its ancestors, then the requested name alone.
// For relative imports the only candidate is the requested name relative
// to the anchor package stripped of level-1 components.
func Candidates(requested, anchor string, level int) []string {
	var parts []string
	if anchor != "" {
		parts = strings.Split(anchor, ".")
	}

	if level > 0 {
		keep := len(parts) - (level - 1)
		if keep <= 0 {
			return nil
		}
		return []string{joinName(strings.Join(parts[:keep], "."), requested)}
	}

	var (
		candidates []string
		seen       = map[string]struct{}{}
	)
	add := func(name string) {
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			candidates = append(candidates, name)
		}
	}
	for i := 0; i <= maxAncestors && len(parts)-i > 0; i++ {
		add(joinName(strings.Join(parts[:len(parts)-i], "."), requested))
	}
	add(requested)

	return candidates
}

// Resolve resolves an import made from the anchor module.
func (r *Resolver) Resolve(requested, anchor string, level int) Resolution {
	key := requested + "|" + anchor + "|" + strconv.Itoa(level)
	if cached, ok := r.cache.Load(key); ok {
		return r.count(cached.(Resolution))
	}

	res := Resolution{Requested: requested, Level: level, Origin: requested}
	for _, name := range Candidates(requested, anchor, level) {
		if info, ok := r.registry.Lookup(name); ok {
			res.Origin = name
			res.Resolved = true
			res.Module = info
			break
		}
	}
	if !res.Resolved {
		log.Debug("unresolved import %s (anchor %q)", res.describe(), anchor)
	}

	r.cache.Store(key, res)
	return r.count(res)
}

func (r *Resolver) count(res Resolution) Resolution {
	if res.Resolved {
		atomic.AddInt64(&r.resolved, 1)
	} else {
		atomic.AddInt64(&r.unresolved, 1)
	}
	return res
}

// Stats returns the resolution counters.
func (r *Resolver) Stats() Stats {
	return Stats{
		Resolved:   atomic.LoadInt64(&r.resolved),
		Unresolved: atomic.LoadInt64(&r.unresolved),
	}
}

func joinName(prefix, name string) string {
	switch {
	case prefix == "":
		return name
	case name == "":
		return prefix
	}
	return prefix + "." + name
}

// resolverError returns a formatted package-specific error.
func resolverError(format string, args ...interface{}) error {
	return fmt.Errorf("resolver: "+format, args...)
}
