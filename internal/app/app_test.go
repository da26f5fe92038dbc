package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/jobstore"
	"github.com/specialistvlad/buildgridgo/internal/publish"
	"github.com/specialistvlad/buildgridgo/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeInvoker fails the script phase of every job whose TARGET is in fail.
// On tag builds its before_deploy packages the job's archive into
// ARTIFACT_DIR.
type fakeInvoker struct {
	fail []string

	mu    sync.Mutex
	calls []runner.Command
}

func (f *fakeInvoker) Invoke(_ context.Context, cmd runner.Command) (int, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	f.mu.Unlock()

	env := map[string]string{}
	for _, kv := range cmd.Env {
		k, v, _ := strings.Cut(kv, "=")
		env[k] = v
	}
	switch cmd.Phase {
	case runner.Script:
		if slices.Contains(f.fail, env["TARGET"]) {
			return 101, nil
		}
	case runner.BeforeDeploy:
		if env["TRAVIS_TAG"] != "" {
			name := fmt.Sprintf("%s-%s-%s.tar.gz", env["CRATE_NAME"], env["TRAVIS_TAG"], env["TARGET"])
			if err := os.WriteFile(filepath.Join(env["ARTIFACT_DIR"], name), []byte(env["TRAVIS_RUST_VERSION"]), 0o644); err != nil {
				return 1, nil
			}
		}
	}
	return 0, nil
}

type fakePublisher struct {
	err error

	mu   sync.Mutex
	reqs []publish.Request
}

func (f *fakePublisher) Publish(_ context.Context, req publish.Request) (*publish.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return nil, f.err
	}
	return &publish.Result{Location: "fake", Uploaded: req.Files}, nil
}

func writePipeline(t *testing.T, artifactDir string) string {
	t.Helper()
	src := fmt.Sprintf(`
		crate        = "exclave"
		artifact_dir = %q

		target "x86_64-unknown-linux-gnu" {}

		target "x86_64-unknown-linux-gnu" {
			channel = "nightly"
		}

		target "arm-unknown-linux-gnueabi" {
			disable_tests = true
		}

		target "i686-unknown-linux-gnu" {
			enabled = false
		}
	`, artifactDir)
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(src), 0o600))
	return path
}

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("bin"), 0o600))
	}
}

func TestNewConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := NewConfig(Config{})
		require.NoError(t, err)
		assert.Equal(t, DefaultPipelinePath, cfg.PipelinePath)
		assert.Equal(t, "text", cfg.LogFormat)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("collects every problem", func(t *testing.T) {
		_, err := NewConfig(Config{LogFormat: "xml", LogLevel: "loud", WorkerCount: -1, HealthcheckPort: 70000})
		require.Error(t, err)
		assert.ErrorContains(t, err, "log-format")
		assert.ErrorContains(t, err, "log-level")
		assert.ErrorContains(t, err, "workers")
		assert.ErrorContains(t, err, "healthcheck-port")
	})
}

func TestRun_BranchNotAdmitted(t *testing.T) {
	// --- Arrange ---
	inv := &fakeInvoker{}
	cfg := &Config{PipelinePath: writePipeline(t, t.TempDir()), Ref: "feature/x"}
	a, logs := SetupAppTest(t, cfg, nil, WithInvoker(inv))

	// --- Act ---
	summary, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Empty(t, summary.Results)
	assert.Empty(t, inv.calls, "no job may start for a rejected ref")
	assert.Contains(t, logs.String(), "Ref is not admitted")
}

func TestRun_TrunkBuildsWithoutPublishing(t *testing.T) {
	// --- Arrange ---
	inv := &fakeInvoker{fail: []string{"arm-unknown-linux-gnueabi"}}
	pub := &fakePublisher{}
	cfg := &Config{PipelinePath: writePipeline(t, t.TempDir()), Ref: "master", WorkerCount: 2}
	a, _ := SetupAppTest(t, cfg, nil, WithInvoker(inv), WithPublisher(pub))

	// --- Act ---
	summary, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	require.Len(t, summary.Results, 3, "the disabled entry produces no job")
	assert.Equal(t, 1, summary.Failed())
	assert.Equal(t, jobstore.StatusSucceeded, summary.Results[0].Status)
	assert.Equal(t, jobstore.StatusSucceeded, summary.Results[1].Status)
	assert.Equal(t, jobstore.StatusFailed, summary.Results[2].Status)
	assert.Equal(t, "script", summary.Results[2].FailedPhase)
	assert.Equal(t, 101, summary.Results[2].ExitCode)
	assert.Empty(t, pub.reqs, "untagged builds never publish")

	status, err := a.Store().GetStatus(context.Background(), summary.Results[0].JobID)
	require.NoError(t, err)
	assert.Equal(t, jobstore.StatusSucceeded, status)
}

func TestRun_TaggedReleasePublishesStableOnly(t *testing.T) {
	// --- Arrange ---
	artifacts := t.TempDir()
	inv := &fakeInvoker{}
	pub := &fakePublisher{}
	cfg := &Config{PipelinePath: writePipeline(t, artifacts), Tag: "v1.2.0"}
	a, _ := SetupAppTest(t, cfg, nil, WithInvoker(inv), WithPublisher(pub))

	// --- Act ---
	summary, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Zero(t, summary.Failed())
	assert.Zero(t, summary.PublishFailures())
	require.Len(t, pub.reqs, 2, "the nightly job must not publish")

	var patterns []string
	for _, r := range pub.reqs {
		assert.Equal(t, "v1.2.0", r.Tag)
		require.Len(t, r.Files, 1)
		assert.True(t, strings.HasPrefix(r.Files[0], artifacts), "artifacts come from the job's directory under artifact_dir")
		content, err := os.ReadFile(r.Files[0])
		require.NoError(t, err)
		assert.Equal(t, "stable", string(content))
		patterns = append(patterns, filepath.Base(r.Pattern))
	}
	assert.ElementsMatch(t, []string{
		"exclave-v1.2.0-x86_64-unknown-linux-gnu.*",
		"exclave-v1.2.0-arm-unknown-linux-gnueabi.*",
	}, patterns)
	assert.Equal(t, jobstore.PublishSkipped, summary.Results[1].Publish)
}

func TestRun_PublishFailureKeepsBuildStatus(t *testing.T) {
	// --- Arrange ---
	pub := &fakePublisher{err: errors.New("upload refused")}
	cfg := &Config{PipelinePath: writePipeline(t, t.TempDir()), Tag: "v1.2.0"}
	a, _ := SetupAppTest(t, cfg, nil, WithInvoker(&fakeInvoker{}), WithPublisher(pub))

	// --- Act ---
	summary, err := a.Run(context.Background())

	// --- Assert ---
	require.NoError(t, err)
	assert.Zero(t, summary.Failed())
	assert.Equal(t, 2, summary.PublishFailures())
}

func TestRun_InvalidPipeline(t *testing.T) {
	// --- Arrange ---
	path := filepath.Join(t.TempDir(), "pipeline.hcl")
	require.NoError(t, os.WriteFile(path, []byte(`
		crate = "exclave"
		target "x86_64-unknown-linux-gnu" {}
		target "x86_64-apple-darwin" {
			os = "windows"
		}
	`), 0o600))
	inv := &fakeInvoker{}
	a, _ := SetupAppTest(t, &Config{PipelinePath: path, Ref: "master"}, nil, WithInvoker(inv))

	// --- Act ---
	_, err := a.Run(context.Background())

	// --- Assert ---
	var vErr *ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Empty(t, inv.calls, "validation fails before any job starts")
}

func TestRun_RecordsHistory(t *testing.T) {
	// --- Arrange ---
	dsn := "sqlite://" + filepath.Join(t.TempDir(), "history.db")
	cfg := &Config{PipelinePath: writePipeline(t, t.TempDir()), Ref: "master", HistoryDSN: dsn}
	a, _ := SetupAppTest(t, cfg, nil, WithInvoker(&fakeInvoker{}))

	// --- Act ---
	summary, err := a.Run(context.Background())
	require.NoError(t, err)

	out := &SafeBuffer{}
	reader, _ := SetupAppTest(t, &Config{HistoryDSN: dsn}, nil)
	reader.outW = out
	histErr := reader.History(context.Background(), 10, "")

	// --- Assert ---
	require.NoError(t, histErr)
	assert.Contains(t, out.String(), summary.RunID)
	assert.Contains(t, out.String(), "exclave")
}

func TestHistory_RequiresDSN(t *testing.T) {
	a, _ := SetupAppTest(t, &Config{}, nil)

	err := a.History(context.Background(), 10, "")

	var vErr *ValidationError
	assert.ErrorAs(t, err, &vErr)
}

func TestPlan(t *testing.T) {
	t.Run("admitted ref lists jobs", func(t *testing.T) {
		out := &SafeBuffer{}
		cfg := &Config{PipelinePath: writePipeline(t, "."), Tag: "v0.3.0"}
		a, _ := SetupAppTest(t, cfg, nil)
		a.outW = out

		require.NoError(t, a.Plan(context.Background()))

		assert.Contains(t, out.String(), "3 jobs")
		assert.Contains(t, out.String(), "exclave-v0.3.0-x86_64-unknown-linux-gnu.*")
		assert.Contains(t, out.String(), "build only")
	})

	t.Run("rejected ref lists nothing", func(t *testing.T) {
		out := &SafeBuffer{}
		a, _ := SetupAppTest(t, &Config{PipelinePath: writePipeline(t, "."), Ref: "develop"}, nil)
		a.outW = out

		require.NoError(t, a.Plan(context.Background()))

		assert.Contains(t, out.String(), `Ref "develop" is not admitted`)
	})
}

func TestEvaluateGate(t *testing.T) {
	newEnv := func() map[string]string {
		return map[string]string{
			"CRATE_NAME":          "exclave",
			"TARGET":              "x86_64-unknown-linux-gnu",
			"TRAVIS_TAG":          "v1.0.0",
			"TRAVIS_RUST_VERSION": "stable",
			"TRAVIS_OS_NAME":      "linux",
		}
	}

	t.Run("publishes a stable tagged success", func(t *testing.T) {
		// --- Arrange ---
		artifacts := t.TempDir()
		touch(t, artifacts, "exclave-v1.0.0-x86_64-unknown-linux-gnu.zip")
		pub := &fakePublisher{}
		a, _ := SetupAppTest(t, &Config{PipelinePath: writePipeline(t, artifacts)}, newEnv(), WithPublisher(pub))

		// --- Act ---
		out, err := a.EvaluateGate(context.Background(), true)

		// --- Assert ---
		require.NoError(t, err)
		assert.True(t, out.Published)
		require.Len(t, pub.reqs, 1)
		assert.Equal(t, "v1.0.0", pub.reqs[0].Tag)
	})

	t.Run("reads artifacts from ARTIFACT_DIR", func(t *testing.T) {
		jobDir := t.TempDir()
		touch(t, jobDir, "exclave-v1.0.0-x86_64-unknown-linux-gnu.zip")
		env := newEnv()
		env["ARTIFACT_DIR"] = jobDir
		pub := &fakePublisher{}
		a, _ := SetupAppTest(t, &Config{PipelinePath: writePipeline(t, t.TempDir())}, env, WithPublisher(pub))

		out, err := a.EvaluateGate(context.Background(), true)

		require.NoError(t, err)
		assert.True(t, out.Published)
		require.Len(t, pub.reqs, 1)
		assert.Equal(t, []string{filepath.Join(jobDir, "exclave-v1.0.0-x86_64-unknown-linux-gnu.zip")}, pub.reqs[0].Files)
	})

	t.Run("nightly never publishes", func(t *testing.T) {
		env := newEnv()
		env["TRAVIS_RUST_VERSION"] = "nightly"
		pub := &fakePublisher{}
		a, _ := SetupAppTest(t, &Config{PipelinePath: t.TempDir()}, env, WithPublisher(pub))

		out, err := a.EvaluateGate(context.Background(), true)

		require.NoError(t, err)
		assert.False(t, out.Published)
		assert.Empty(t, pub.reqs)
	})

	t.Run("missing target is a validation error", func(t *testing.T) {
		env := newEnv()
		delete(env, "TARGET")
		a, _ := SetupAppTest(t, &Config{PipelinePath: t.TempDir()}, env)

		_, err := a.EvaluateGate(context.Background(), true)

		var vErr *ValidationError
		assert.ErrorAs(t, err, &vErr)
	})
}

func TestHealthHandlers(t *testing.T) {
	// --- Arrange ---
	a, _ := SetupAppTest(t, &Config{}, nil)
	ctx := context.Background()
	require.NoError(t, a.Store().SetStatus(ctx, "0-x86_64-unknown-linux-gnu-stable", jobstore.StatusRunning))
	srv := httptest.NewServer(a.healthMux())
	defer srv.Close()

	// --- Act ---
	health, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer health.Body.Close()
	status, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer status.Body.Close()

	// --- Assert ---
	assert.Equal(t, http.StatusOK, health.StatusCode)
	assert.Equal(t, http.StatusOK, status.StatusCode)
	assert.Equal(t, "application/json", status.Header.Get("Content-Type"))

	var body struct {
		Jobs []jobstore.Entry `json:"jobs"`
	}
	require.NoError(t, json.NewDecoder(status.Body).Decode(&body))
	require.Len(t, body.Jobs, 1)
	assert.Equal(t, jobstore.StatusRunning, body.Jobs[0].Status)
}
