// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package yamlcfg provides a YAML implementation of the config.Loader
// interface for travis-flavoured pipeline files.
package yamlcfg

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/specialistvlad/buildgridgo/internal/config"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"gopkg.in/yaml.v3"
)

type document struct {
	Crate          string            `yaml:"crate"`
	DefaultChannel string            `yaml:"default_channel"`
	ReleaseChannel string            `yaml:"release_channel"`
	Trunk          string            `yaml:"trunk"`
	ArtifactDir    string            `yaml:"artifact_dir"`
	Env            map[string]string `yaml:"env"`
	Scripts        *scripts          `yaml:"scripts"`
	Targets        []target          `yaml:"targets"`
	Cache          *config.Cache     `yaml:"cache"`
	Deploy         *config.Deploy    `yaml:"deploy"`
	Notify         *config.Notify    `yaml:"notify"`
}

type scripts struct {
	Install      string  `yaml:"install"`
	Script       string  `yaml:"script"`
	BeforeDeploy string  `yaml:"before_deploy"`
	Shell        *string `yaml:"shell"`
}

type target struct {
	Target       string            `yaml:"target"`
	OS           string            `yaml:"os"`
	Channel      string            `yaml:"channel"`
	DisableTests bool              `yaml:"disable_tests"`
	Enabled      *bool             `yaml:"enabled"`
	Env          map[string]string `yaml:"env"`
}

// Loader reads a single YAML pipeline file.
type Loader struct{}

// NewLoader creates a new YAML pipeline loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load implements config.Loader. Unknown keys are rejected so a typo never
// silently drops a target.
func (l *Loader) Load(ctx context.Context, path string) (*config.Pipeline, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "path", path)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error accessing path %s: %w", path, err)
	}

	var doc document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML file %s: %w", path, err)
	}

	p := &config.Pipeline{
		Source:         path,
		CrateName:      doc.Crate,
		DefaultChannel: doc.DefaultChannel,
		ReleaseChannel: doc.ReleaseChannel,
		TrunkBranch:    doc.Trunk,
		ArtifactDir:    doc.ArtifactDir,
		Env:            doc.Env,
		Scripts:        config.Scripts{Shell: config.DefaultShell},
		Cache:          doc.Cache,
		Deploy:         doc.Deploy,
		Notify:         doc.Notify,
	}
	if s := doc.Scripts; s != nil {
		p.Scripts.Install = s.Install
		p.Scripts.Script = s.Script
		p.Scripts.BeforeDeploy = s.BeforeDeploy
		if s.Shell != nil {
			p.Scripts.Shell = *s.Shell
		}
	}
	for _, t := range doc.Targets {
		enabled := true
		if t.Enabled != nil {
			enabled = *t.Enabled
		}
		p.Targets = append(p.Targets, &config.TargetEntry{
			Triple:       t.Target,
			HostOS:       t.OS,
			Channel:      t.Channel,
			DisableTests: t.DisableTests,
			Enabled:      enabled,
			Env:          t.Env,
		})
	}

	p.ApplyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid pipeline %s: %w", path, err)
	}

	logger.Debug("YAML loading complete.", "crate", p.CrateName, "targets", len(p.Targets))
	return p, nil
}
