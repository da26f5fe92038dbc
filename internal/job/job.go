// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package job defines the Job Specification: one matrix job owning exactly
// one target descriptor plus the environment its phases run with.
package job

import (
	"fmt"
	"maps"
	"slices"

	"github.com/specialistvlad/buildgridgo/internal/target"
)

// Environment variable names every job exports to its phases.
const (
	EnvCrateName    = "CRATE_NAME"
	EnvTarget       = "TARGET"
	EnvDisableTests = "DISABLE_TESTS"
)

// Reserved reports whether name is one of the variables the job itself owns.
func Reserved(name string) bool {
	return name == EnvCrateName || name == EnvTarget || name == EnvDisableTests
}

// Spec is a single matrix job. It is created fresh per pipeline invocation.
type Spec struct {
	ID        string
	Index     int
	CrateName string
	Target    target.Descriptor

	env map[string]string
}

// New builds the job for the index-th declared target. Reserved names in
// extra are ignored; the expander rejects them before getting here.
func New(index int, crateName string, d target.Descriptor, extra map[string]string) *Spec {
	env := make(map[string]string, len(extra)+3)
	for k, v := range extra {
		if !Reserved(k) {
			env[k] = v
		}
	}
	env[EnvCrateName] = crateName
	env[EnvTarget] = d.Triple()
	if d.TestsDisabled() {
		env[EnvDisableTests] = "1"
	}

	return &Spec{
		ID:        fmt.Sprintf("%d-%s-%s", index, d.Triple(), d.Channel()),
		Index:     index,
		CrateName: crateName,
		Target:    d,
		env:       env,
	}
}

// TestsEnabled is derived from the environment: tests run unless
// DISABLE_TESTS is present.
func (s *Spec) TestsEnabled() bool {
	_, disabled := s.env[EnvDisableTests]
	return !disabled
}

// Env returns a copy of the job environment.
func (s *Spec) Env() map[string]string {
	return maps.Clone(s.env)
}

// Environ renders the environment as sorted KEY=value pairs, with overlay
// entries added on top of the job's own variables.
func (s *Spec) Environ(overlay map[string]string) []string {
	merged := maps.Clone(s.env)
	for k, v := range overlay {
		if !Reserved(k) {
			merged[k] = v
		}
	}
	keys := slices.Sorted(maps.Keys(merged))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, k+"="+merged[k])
	}
	return out
}
