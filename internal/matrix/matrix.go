// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package matrix expands the declared target list into independent job
// specifications. The expansion is an explicit enumeration: one job per
// enabled entry, never a generated cross-product.
package matrix

import (
	"errors"
	"fmt"
	"maps"

	"github.com/specialistvlad/buildgridgo/internal/config"
	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/target"
)

// Defaults are the global settings every entry inherits.
type Defaults struct {
	CrateName string
	// Channel is used for entries that do not name one; empty means stable.
	Channel target.Channel
	// Env is merged under each entry's own env.
	Env map[string]string
}

// DefaultsFromPipeline extracts the expansion defaults from a pipeline.
func DefaultsFromPipeline(p *config.Pipeline) (Defaults, error) {
	ch, err := target.ParseChannel(p.DefaultChannel)
	if err != nil {
		return Defaults{}, &target.ValidationError{Entry: -1, Field: "default_channel", Reason: err.Error()}
	}
	return Defaults{CrateName: p.CrateName, Channel: ch, Env: p.Env}, nil
}

// Expand turns the declared entries into job specifications. Disabled
// entries are skipped without validation. Any invalid enabled entry fails
// the whole expansion and no job is returned; all problems are reported.
func Expand(entries []*config.TargetEntry, defaults Defaults) ([]*job.Spec, error) {
	if defaults.CrateName == "" {
		return nil, &target.ValidationError{Entry: -1, Field: "crate", Reason: "must not be empty"}
	}
	if defaults.Channel == "" {
		defaults.Channel = target.Stable
	}

	var (
		jobs []*job.Spec
		errs []error
	)
	for i, entry := range entries {
		if entry == nil || !entry.Enabled {
			continue
		}
		d, env, err := describe(i, entry, defaults)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		jobs = append(jobs, job.New(i, defaults.CrateName, d, env))
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return jobs, nil
}

// FromPipeline is Expand over a loaded pipeline.
func FromPipeline(p *config.Pipeline) ([]*job.Spec, error) {
	defaults, err := DefaultsFromPipeline(p)
	if err != nil {
		return nil, err
	}
	return Expand(p.Targets, defaults)
}

func describe(i int, entry *config.TargetEntry, defaults Defaults) (target.Descriptor, map[string]string, error) {
	fail := func(field, reason string) error {
		return &target.ValidationError{Entry: i, Triple: entry.Triple, Field: field, Reason: reason}
	}

	host, err := target.ParseHostOS(entry.HostOS)
	if err != nil {
		return target.Descriptor{}, nil, fail("os", err.Error())
	}
	ch, err := target.ParseChannel(entry.Channel)
	if err != nil {
		return target.Descriptor{}, nil, fail("channel", err.Error())
	}
	if ch == "" {
		ch = defaults.Channel
	}

	env := maps.Clone(defaults.Env)
	if env == nil {
		env = make(map[string]string, len(entry.Env))
	}
	for k, v := range entry.Env {
		if job.Reserved(k) {
			return target.Descriptor{}, nil, fail("env", fmt.Sprintf("must not set reserved variable %s", k))
		}
		env[k] = v
	}

	d, err := target.New(entry.Triple, host, ch, entry.DisableTests)
	if err != nil {
		var vErr *target.ValidationError
		if errors.As(err, &vErr) {
			vErr.Entry = i
		}
		return target.Descriptor{}, nil, err
	}
	return d, env, nil
}
