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

package features

import (
	"os"
	"runtime"
	"sort"
	"strings"

	"golang.org/x/sys/cpu"
)

// PickEntryFn picks a given input line apart into an entry of key and value.
type PickEntryFn func(string) (string, string, error)

// cpuinfoPath is the file the host probe reads CPU flags from.
var cpuinfoPath = "/proc/cpuinfo"

// pickCPUInfoEntry picks apart a 'key : value' line of /proc/cpuinfo.
func pickCPUInfoEntry(line string) (string, string, error) {
	kv := strings.SplitN(line, ":", 2)
	if len(kv) != 2 {
		return "", "", nil
	}
	return strings.TrimSpace(kv[0]), strings.TrimSpace(kv[1]), nil
}

// parseFileEntries parses a file for the given entries. Only the first
// occurrence of each entry is parsed.
func parseFileEntries(path string, values map[string]interface{}, pickFn PickEntryFn) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return featuresError("%s: failed to read file: %v", path, err)
	}

	left := len(values)
	seen := make(map[string]struct{}, len(values))
	for _, line := range strings.Split(string(data), "\n") {
		key, value, err := pickFn(line)
		if err != nil {
			return err
		}

		ptr, ok := values[key]
		if !ok {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		switch ptr := ptr.(type) {
		case *string:
			*ptr = value
		case *[]string:
			*ptr = strings.Fields(value)
		default:
			return featuresError("%s: don't know how to parse key '%s' of type %T", path, key, ptr)
		}

		left--
		if left == 0 {
			break
		}
	}

	return nil
}

// ProbeHost returns the sorted CPU feature flags of the host, read from
// /proc/cpuinfo if possible and from CPUID-derived runtime data otherwise.
func ProbeHost() ([]string, error) {
	var flags, features []string
	err := parseFileEntries(cpuinfoPath, map[string]interface{}{
		"flags":    &flags,
		"Features": &features,
	}, pickCPUInfoEntry)

	switch {
	case err != nil:
		log.Warn("failed to probe CPU flags, falling back to runtime detection: %v", err)
	case len(flags) > 0:
		return uniqueSorted(flags), nil
	case len(features) > 0:
		return uniqueSorted(features), nil
	default:
		log.Warn("no CPU flags in %s, falling back to runtime detection", cpuinfoPath)
	}

	flags = runtimeFlags()
	if len(flags) == 0 {
		return nil, featuresError("failed to detect CPU features on %s", runtime.GOARCH)
	}
	return flags, nil
}

// HostRecord returns a machine record of the probed host features.
func HostRecord(id string) (Record, error) {
	flags, err := ProbeHost()
	if err != nil {
		return Record{}, err
	}
	r := Record{ID: id}
	for _, f := range flags {
		r.Features = append(r.Features, Feature{Name: f, Value: 1})
	}
	return r, nil
}

// runtimeFlags returns the CPU features detected by golang.org/x/sys/cpu,
// named as in /proc/cpuinfo.
func runtimeFlags() []string {
	var detected map[string]bool
	switch runtime.GOARCH {
	case "amd64", "386":
		detected = map[string]bool{
			"adx":         cpu.X86.HasADX,
			"aes":         cpu.X86.HasAES,
			"avx":         cpu.X86.HasAVX,
			"avx2":        cpu.X86.HasAVX2,
			"avx512bw":    cpu.X86.HasAVX512BW,
			"avx512cd":    cpu.X86.HasAVX512CD,
			"avx512dq":    cpu.X86.HasAVX512DQ,
			"avx512er":    cpu.X86.HasAVX512ER,
			"avx512f":     cpu.X86.HasAVX512F,
			"avx512ifma":  cpu.X86.HasAVX512IFMA,
			"avx512pf":    cpu.X86.HasAVX512PF,
			"avx512vl":    cpu.X86.HasAVX512VL,
			"avx512_vbmi": cpu.X86.HasAVX512VBMI,
			"avx512_vnni": cpu.X86.HasAVX512VNNI,
			"avx512_bf16": cpu.X86.HasAVX512BF16,
			"bmi1":        cpu.X86.HasBMI1,
			"bmi2":        cpu.X86.HasBMI2,
			"erms":        cpu.X86.HasERMS,
			"fma":         cpu.X86.HasFMA,
			"osxsave":     cpu.X86.HasOSXSAVE,
			"pclmulqdq":   cpu.X86.HasPCLMULQDQ,
			"popcnt":      cpu.X86.HasPOPCNT,
			"rdrand":      cpu.X86.HasRDRAND,
			"rdseed":      cpu.X86.HasRDSEED,
			"sse2":        cpu.X86.HasSSE2,
			"sse3":        cpu.X86.HasSSE3,
			"ssse3":       cpu.X86.HasSSSE3,
			"sse4_1":      cpu.X86.HasSSE41,
			"sse4_2":      cpu.X86.HasSSE42,
		}
	case "arm64":
		detected = map[string]bool{
			"fp":      cpu.ARM64.HasFP,
			"asimd":   cpu.ARM64.HasASIMD,
			"aes":     cpu.ARM64.HasAES,
			"pmull":   cpu.ARM64.HasPMULL,
			"sha1":    cpu.ARM64.HasSHA1,
			"sha2":    cpu.ARM64.HasSHA2,
			"crc32":   cpu.ARM64.HasCRC32,
			"atomics": cpu.ARM64.HasATOMICS,
			"sve":     cpu.ARM64.HasSVE,
		}
	}

	var flags []string
	for name, ok := range detected {
		if ok {
			flags = append(flags, name)
		}
	}
	sort.Strings(flags)
	return flags
}

func uniqueSorted(flags []string) []string {
	set := make(map[string]struct{}, len(flags))
	for _, f := range flags {
		set[f] = struct{}{}
	}
	unique := make([]string, 0, len(set))
	for f := range set {
		unique = append(unique, f)
	}
	sort.Strings(unique)
	return unique
}
