package hcl

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
}

func TestLoad_FullPipeline(t *testing.T) {
	// --- Arrange ---
	src := `
		crate        = env("CRATE_NAME", "fallback")
		artifact_dir = "deploy"

		scripts {
			install       = "ci/install.sh"
			script        = "ci/script.sh"
			before_deploy = "ci/before_deploy.sh"
		}

		target "x86_64-unknown-linux-gnu" {}

		target "x86_64-unknown-linux-gnu" {
			channel = "nightly"
		}

		target "x86_64-apple-darwin" {
			os = "osx"
		}

		target "i686-unknown-linux-gnu" {
			disable_tests = true
			enabled       = false
			env = {
				RUSTFLAGS = "-Ctarget-feature=+crt-static"
			}
		}

		cache {
			dir = "/var/cache/buildgrid"
		}

		deploy {
			repository = "xobs/exclave"
			token_env  = "GH_TOKEN"
		}
	`
	path := writeFile(t, t.TempDir(), "pipeline.hcl", src)
	loader := NewLoader(lookupFrom(map[string]string{"CRATE_NAME": "exclave"}))

	// --- Act ---
	p, err := loader.Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "exclave", p.CrateName)
	assert.Equal(t, "deploy", p.ArtifactDir)
	assert.Equal(t, "stable", p.DefaultChannel)
	assert.Equal(t, "master", p.TrunkBranch)
	assert.Equal(t, "bash", p.Scripts.Shell)
	assert.Equal(t, "ci/before_deploy.sh", p.Scripts.BeforeDeploy)

	require.Len(t, p.Targets, 4)
	assert.Equal(t, &config.TargetEntry{Triple: "x86_64-unknown-linux-gnu", Enabled: true}, p.Targets[0])
	assert.Equal(t, "nightly", p.Targets[1].Channel)
	assert.Equal(t, "osx", p.Targets[2].HostOS)
	assert.False(t, p.Targets[3].Enabled)
	assert.True(t, p.Targets[3].DisableTests)
	assert.Equal(t, "-Ctarget-feature=+crt-static", p.Targets[3].Env["RUSTFLAGS"])

	require.NotNil(t, p.Cache)
	assert.Equal(t, "local", p.Cache.Store)
	assert.Equal(t, config.DefaultCacheEnv, p.Cache.EnvVar)
	require.NotNil(t, p.Deploy)
	assert.Equal(t, "github", p.Deploy.Provider)
	assert.Equal(t, "GH_TOKEN", p.Deploy.TokenEnv)
	assert.Nil(t, p.Notify)
}

func TestLoad_EnvFunctionDefault(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pipeline.hcl", `crate = env("CRATE_NAME", "exclave")`)

	p, err := NewLoader(lookupFrom(nil)).Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "exclave", p.CrateName)
	assert.Empty(t, p.Targets)
}

func TestLoad_EmptyShellInvokesDirectly(t *testing.T) {
	path := writeFile(t, t.TempDir(), "pipeline.hcl", `
		crate = "exclave"
		scripts {
			shell = ""
		}
	`)

	p, err := NewLoader(lookupFrom(nil)).Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "", p.Scripts.Shell)
	assert.Equal(t, config.DefaultInstall, p.Scripts.Install)
}

func TestLoad_DirectoryMergesTargets(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "00-main.hcl", `crate = "exclave"
		target "x86_64-unknown-linux-gnu" {}`)
	writeFile(t, dir, "10-extra.hcl", `target "aarch64-unknown-linux-gnu" {}`)

	p, err := NewLoader(lookupFrom(nil)).Load(context.Background(), dir)

	require.NoError(t, err)
	require.Len(t, p.Targets, 2)
	assert.Equal(t, "x86_64-unknown-linux-gnu", p.Targets[0].Triple)
	assert.Equal(t, "aarch64-unknown-linux-gnu", p.Targets[1].Triple)
}

func TestLoad_DirectoryRejectsConflicts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.hcl", `crate = "exclave"`)
	writeFile(t, dir, "b.hcl", `crate = "other"`)

	_, err := NewLoader(lookupFrom(nil)).Load(context.Background(), dir)

	assert.ErrorContains(t, err, `"crate" is already set`)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("syntax error", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.hcl", `target "x" {`)
		_, err := NewLoader(lookupFrom(nil)).Load(context.Background(), path)
		assert.ErrorContains(t, err, "failed to parse HCL file")
	})

	t.Run("unknown attribute", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.hcl", `crate = "x"
			colour = "blue"`)
		_, err := NewLoader(lookupFrom(nil)).Load(context.Background(), path)
		assert.ErrorContains(t, err, "failed to decode HCL file")
	})

	t.Run("missing crate", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "bad.hcl", `target "x86_64-unknown-linux-gnu" {}`)
		_, err := NewLoader(lookupFrom(nil)).Load(context.Background(), path)
		assert.ErrorContains(t, err, "crate name is required")
	})

	t.Run("missing path", func(t *testing.T) {
		_, err := NewLoader(lookupFrom(nil)).Load(context.Background(), filepath.Join(t.TempDir(), "nope.hcl"))
		assert.ErrorContains(t, err, "error accessing path")
	})
}
