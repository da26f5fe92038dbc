// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package config

import (
	"errors"
	"fmt"
)

// Default values applied by Pipeline.ApplyDefaults.
const (
	DefaultChannel      = "stable"
	DefaultTrunk        = "master"
	DefaultArtifactDir  = "."
	DefaultShell        = "bash"
	DefaultInstall      = "ci/install.sh"
	DefaultScript       = "ci/script.sh"
	DefaultBeforeDeploy = "ci/before_deploy.sh"
	DefaultCacheEnv     = "CACHE_DIR"
	DefaultTokenEnv     = "GITHUB_TOKEN"
	DefaultNotifyEvent  = "job"
)

// Pipeline is the unified, format-agnostic representation of one pipeline
// file.
type Pipeline struct {
	// Source is the path the pipeline was loaded from.
	Source string

	CrateName      string
	DefaultChannel string
	// ReleaseChannel is the only channel whose builds publish.
	ReleaseChannel string
	TrunkBranch    string
	ArtifactDir    string
	Env            map[string]string

	Scripts Scripts
	Targets []*TargetEntry

	Cache  *Cache
	Deploy *Deploy
	Notify *Notify
}

// Scripts names the three external lifecycle scripts.
type Scripts struct {
	Install      string
	Script       string
	BeforeDeploy string
	// Shell runs each script as `<shell> <path>`. Empty invokes the path directly.
	Shell string
}

// TargetEntry is one declared matrix entry. Disabled entries are kept in the
// model so tooling can list them, but they never produce jobs.
type TargetEntry struct {
	Triple       string
	HostOS       string
	Channel      string
	DisableTests bool
	Enabled      bool
	Env          map[string]string
}

// Cache configures the toolchain-keyed cache store.
type Cache struct {
	// Store is "local" or "s3".
	Store string `yaml:"store"`
	// Dir is the local store directory.
	Dir string `yaml:"dir"`
	// EnvVar is the variable the scope directory is exported as.
	EnvVar string `yaml:"env_var"`

	Endpoint     string `yaml:"endpoint"`
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix"`
	Region       string `yaml:"region"`
	AccessKeyEnv string `yaml:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env"`
	UseSSL       bool   `yaml:"use_ssl"`
}

// Deploy configures the publish provider.
type Deploy struct {
	// Provider is "github" or "s3".
	Provider string `yaml:"provider"`
	// Repository is "owner/name" for the github provider.
	Repository string `yaml:"repository"`
	// APIURL overrides https://api.github.com.
	APIURL string `yaml:"api_url"`
	// TokenEnv names the variable holding the opaque credential.
	TokenEnv string `yaml:"token_env"`

	Endpoint string `yaml:"endpoint"`
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
	Region   string `yaml:"region"`
	UseSSL   bool   `yaml:"use_ssl"`
}

// Notify configures the job event stream.
type Notify struct {
	URL                string `yaml:"url"`
	Namespace          string `yaml:"namespace"`
	Event              string `yaml:"event"`
	InsecureSkipVerify bool   `yaml:"insecure_skip_verify"`
}

// ApplyDefaults fills every unset optional field.
func (p *Pipeline) ApplyDefaults() {
	if p.DefaultChannel == "" {
		p.DefaultChannel = DefaultChannel
	}
	if p.ReleaseChannel == "" {
		p.ReleaseChannel = DefaultChannel
	}
	if p.TrunkBranch == "" {
		p.TrunkBranch = DefaultTrunk
	}
	if p.ArtifactDir == "" {
		p.ArtifactDir = DefaultArtifactDir
	}
	if p.Scripts.Install == "" {
		p.Scripts.Install = DefaultInstall
	}
	if p.Scripts.Script == "" {
		p.Scripts.Script = DefaultScript
	}
	if p.Scripts.BeforeDeploy == "" {
		p.Scripts.BeforeDeploy = DefaultBeforeDeploy
	}
	if p.Cache != nil {
		if p.Cache.Store == "" {
			p.Cache.Store = "local"
		}
		if p.Cache.EnvVar == "" {
			p.Cache.EnvVar = DefaultCacheEnv
		}
	}
	if p.Deploy != nil {
		if p.Deploy.Provider == "" {
			p.Deploy.Provider = "github"
		}
		if p.Deploy.TokenEnv == "" {
			p.Deploy.TokenEnv = DefaultTokenEnv
		}
	}
	if p.Notify != nil && p.Notify.Event == "" {
		p.Notify.Event = DefaultNotifyEvent
	}
}

// Validate checks the pipeline-level settings. Target entries are validated
// by the matrix expander.
func (p *Pipeline) Validate() error {
	var errs []error
	if p.CrateName == "" {
		errs = append(errs, errors.New("crate name is required"))
	}
	if p.ReleaseChannel != DefaultChannel {
		errs = append(errs, fmt.Errorf("release_channel: only %q builds publish, got %q", DefaultChannel, p.ReleaseChannel))
	}
	if p.Cache != nil {
		switch p.Cache.Store {
		case "local":
			if p.Cache.Dir == "" {
				errs = append(errs, errors.New("cache: dir is required for the local store"))
			}
		case "s3":
			if p.Cache.Endpoint == "" || p.Cache.Bucket == "" {
				errs = append(errs, errors.New("cache: endpoint and bucket are required for the s3 store"))
			}
		default:
			errs = append(errs, fmt.Errorf("cache: unknown store %q", p.Cache.Store))
		}
	}
	if p.Deploy != nil {
		switch p.Deploy.Provider {
		case "github":
			if p.Deploy.Repository == "" {
				errs = append(errs, errors.New("deploy: repository is required for the github provider"))
			}
		case "s3":
			if p.Deploy.Endpoint == "" || p.Deploy.Bucket == "" {
				errs = append(errs, errors.New("deploy: endpoint and bucket are required for the s3 provider"))
			}
		default:
			errs = append(errs, fmt.Errorf("deploy: unknown provider %q", p.Deploy.Provider))
		}
	}
	if p.Notify != nil && p.Notify.URL == "" {
		errs = append(errs, errors.New("notify: url is required"))
	}
	return errors.Join(errs...)
}
