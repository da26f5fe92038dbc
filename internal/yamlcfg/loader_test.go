package yamlcfg

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const travisStyle = `
crate: exclave
artifact_dir: deploy
scripts:
  install: ci/install.sh
  script: ci/script.sh
  before_deploy: ci/before_deploy.sh
targets:
  # Linux
  # - target: aarch64-unknown-linux-gnu
  - target: x86_64-unknown-linux-gnu
  - target: x86_64-unknown-linux-gnu
    channel: nightly
  # OSX
  - target: x86_64-apple-darwin
    os: osx
  - target: i686-unknown-linux-gnu
    disable_tests: true
    enabled: false
deploy:
  provider: github
  repository: xobs/exclave
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), ".buildgrid.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_TravisStyle(t *testing.T) {
	// --- Arrange ---
	path := writeFile(t, travisStyle)

	// --- Act ---
	p, err := NewLoader().Load(context.Background(), path)

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, "exclave", p.CrateName)
	assert.Equal(t, "bash", p.Scripts.Shell)
	require.Len(t, p.Targets, 4, "commented-out entries must not appear")
	assert.Equal(t, "x86_64-unknown-linux-gnu", p.Targets[0].Triple)
	assert.True(t, p.Targets[0].Enabled)
	assert.Equal(t, "nightly", p.Targets[1].Channel)
	assert.Equal(t, "osx", p.Targets[2].HostOS)
	assert.False(t, p.Targets[3].Enabled)
	assert.Equal(t, "GITHUB_TOKEN", p.Deploy.TokenEnv)
}

func TestLoad_RejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "crate: exclave\ntargetz:\n  - target: x86_64-unknown-linux-gnu\n")

	_, err := NewLoader().Load(context.Background(), path)

	assert.ErrorContains(t, err, "failed to decode YAML file")
}

func TestLoad_RequiresCrate(t *testing.T) {
	path := writeFile(t, "targets:\n  - target: x86_64-unknown-linux-gnu\n")

	_, err := NewLoader().Load(context.Background(), path)

	assert.ErrorContains(t, err, "crate name is required")
}
