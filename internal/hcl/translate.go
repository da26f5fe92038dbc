// This file translates decoded HCL schema structs into the format-agnostic
// pipeline model, merging settings from multiple files.

package hcl

import (
	"fmt"
	"maps"

	"github.com/specialistvlad/buildgridgo/internal/config"
)

type merger struct {
	pipeline *config.Pipeline
	// owner records which file set each single-valued setting.
	owner map[string]string
}

func newMerger(source string) *merger {
	return &merger{
		pipeline: &config.Pipeline{
			Source:  source,
			Scripts: config.Scripts{Shell: config.DefaultShell},
		},
		owner: make(map[string]string),
	}
}

// claim fails if setting was already declared by another file.
func (m *merger) claim(setting, file string) error {
	if prev, ok := m.owner[setting]; ok {
		return fmt.Errorf("%s: %q is already set in %s", file, setting, prev)
	}
	m.owner[setting] = file
	return nil
}

func (m *merger) setString(dst *string, val, setting, file string) error {
	if val == "" {
		return nil
	}
	if err := m.claim(setting, file); err != nil {
		return err
	}
	*dst = val
	return nil
}

func (m *merger) add(file string, root *fileRoot) error {
	p := m.pipeline

	scalars := []struct {
		dst     *string
		val     string
		setting string
	}{
		{&p.CrateName, root.Crate, "crate"},
		{&p.DefaultChannel, root.DefaultChannel, "default_channel"},
		{&p.ReleaseChannel, root.ReleaseChannel, "release_channel"},
		{&p.TrunkBranch, root.Trunk, "trunk"},
		{&p.ArtifactDir, root.ArtifactDir, "artifact_dir"},
	}
	for _, s := range scalars {
		if err := m.setString(s.dst, s.val, s.setting, file); err != nil {
			return err
		}
	}

	if len(root.Env) > 0 {
		if p.Env == nil {
			p.Env = make(map[string]string)
		}
		maps.Copy(p.Env, root.Env)
	}

	if root.Scripts != nil {
		if err := m.claim("scripts", file); err != nil {
			return err
		}
		p.Scripts = translateScripts(root.Scripts, p.Scripts.Shell)
	}
	if root.Cache != nil {
		if err := m.claim("cache", file); err != nil {
			return err
		}
		p.Cache = translateCache(root.Cache)
	}
	if root.Deploy != nil {
		if err := m.claim("deploy", file); err != nil {
			return err
		}
		p.Deploy = translateDeploy(root.Deploy)
	}
	if root.Notify != nil {
		if err := m.claim("notify", file); err != nil {
			return err
		}
		p.Notify = &config.Notify{
			URL:                root.Notify.URL,
			Namespace:          root.Notify.Namespace,
			Event:              root.Notify.Event,
			InsecureSkipVerify: root.Notify.InsecureSkipVerify,
		}
	}

	for _, t := range root.Targets {
		p.Targets = append(p.Targets, translateTarget(t))
	}
	return nil
}

// translateScripts keeps shell unless the block sets one; `shell = ""`
// invokes the scripts directly.
func translateScripts(s *scriptsBlock, shell string) config.Scripts {
	out := config.Scripts{
		Install:      s.Install,
		Script:       s.Script,
		BeforeDeploy: s.BeforeDeploy,
		Shell:        shell,
	}
	if s.Shell != nil {
		out.Shell = *s.Shell
	}
	return out
}

// translateTarget keeps entries opt-in: `enabled` defaults to true and an
// explicit false switches the entry off without removing it.
func translateTarget(t *targetBlock) *config.TargetEntry {
	enabled := true
	if t.Enabled != nil {
		enabled = *t.Enabled
	}
	return &config.TargetEntry{
		Triple:       t.Triple,
		HostOS:       t.OS,
		Channel:      t.Channel,
		DisableTests: t.DisableTests,
		Enabled:      enabled,
		Env:          t.Env,
	}
}

func translateCache(c *cacheBlock) *config.Cache {
	return &config.Cache{
		Store:        c.Store,
		Dir:          c.Dir,
		EnvVar:       c.EnvVar,
		Endpoint:     c.Endpoint,
		Bucket:       c.Bucket,
		Prefix:       c.Prefix,
		Region:       c.Region,
		AccessKeyEnv: c.AccessKeyEnv,
		SecretKeyEnv: c.SecretKeyEnv,
		UseSSL:       c.UseSSL,
	}
}

func translateDeploy(d *deployBlock) *config.Deploy {
	return &config.Deploy{
		Provider:   d.Provider,
		Repository: d.Repository,
		APIURL:     d.APIURL,
		TokenEnv:   d.TokenEnv,
		Endpoint:   d.Endpoint,
		Bucket:     d.Bucket,
		Prefix:     d.Prefix,
		Region:     d.Region,
		UseSSL:     d.UseSSL,
	}
}
