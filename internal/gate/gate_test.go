package gate

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/publish"
	"github.com/specialistvlad/buildgridgo/internal/target"
	"github.com/specialistvlad/buildgridgo/internal/trigger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	calls    []publish.Request
	err      error
	noResult bool
}

func (r *recordingPublisher) Publish(_ context.Context, req publish.Request) (*publish.Result, error) {
	r.calls = append(r.calls, req)
	if r.err != nil || r.noResult {
		return nil, r.err
	}
	return &publish.Result{Uploaded: req.Files}, nil
}

func newJob(t *testing.T, triple string, ch target.Channel) *job.Spec {
	t.Helper()
	d, err := target.New(triple, target.Linux, ch, false)
	require.NoError(t, err)
	return job.New(0, "exclave", d, nil)
}

func artifactDir(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("x"), 0o644))
	}
	return dir
}

func TestDecision_Publish(t *testing.T) {
	testCases := []struct {
		name string
		d    Decision
		want bool
	}{
		{"all hold", Decision{true, true, true}, true},
		{"failed job", Decision{false, true, true}, false},
		{"untagged", Decision{true, false, true}, false},
		{"other channel", Decision{true, true, false}, false},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.d.Publish())
		})
	}
}

func TestArtifactPattern(t *testing.T) {
	assert.Equal(t, "exclave-v1.2.3-x86_64-unknown-linux-gnu.*",
		ArtifactPattern("exclave", "v1.2.3", "x86_64-unknown-linux-gnu"))
}

func TestApply_PublishesStableTaggedSuccess(t *testing.T) {
	// --- Arrange ---
	dir := artifactDir(t, "exclave-v1.2.3-x86_64-unknown-linux-gnu.tar.gz", "exclave-v1.2.3-i686-unknown-linux-gnu.tar.gz")
	pub := &recordingPublisher{}
	g := New(pub, "secret")
	spec := newJob(t, "x86_64-unknown-linux-gnu", target.Stable)

	// --- Act ---
	out, err := g.Apply(context.Background(), spec, true, trigger.New("v1.2.3", "v1.2.3", ""), dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, out.Published)
	require.Len(t, pub.calls, 1)
	call := pub.calls[0]
	assert.Equal(t, "secret", call.Credential)
	assert.Equal(t, "v1.2.3", call.Tag)
	assert.Equal(t, filepath.Join(dir, "exclave-v1.2.3-x86_64-unknown-linux-gnu.*"), call.Pattern)
	assert.Equal(t, []string{filepath.Join(dir, "exclave-v1.2.3-x86_64-unknown-linux-gnu.tar.gz")}, call.Files)
	assert.False(t, call.Prerelease)
}

func TestApply_ClosedGateMakesNoCall(t *testing.T) {
	testCases := []struct {
		name      string
		channel   target.Channel
		succeeded bool
		tag       string
	}{
		{"nightly", target.Nightly, true, "v1.2.3"},
		{"failed", target.Stable, false, "v1.2.3"},
		{"untagged", target.Stable, true, ""},
		{"non-release tag", target.Stable, true, "nightly-2024"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			pub := &recordingPublisher{}
			g := New(pub, "secret")

			out, err := g.Apply(context.Background(), newJob(t, "x86_64-unknown-linux-gnu", tc.channel), tc.succeeded, trigger.New("master", tc.tag, ""), t.TempDir())

			require.NoError(t, err)
			assert.False(t, out.Published)
			assert.Empty(t, out.Pattern)
			assert.Empty(t, pub.calls)
		})
	}
}

func TestApply_PublishFailureIsPublishError(t *testing.T) {
	// --- Arrange ---
	dir := artifactDir(t, "exclave-v2.0.0-rc.1-x86_64-unknown-linux-gnu.zip")
	pub := &recordingPublisher{err: errors.New("401 bad credentials")}
	g := New(pub, "secret")
	spec := newJob(t, "x86_64-unknown-linux-gnu", target.Stable)

	// --- Act ---
	out, err := g.Apply(context.Background(), spec, true, trigger.New("", "v2.0.0-rc.1", ""), dir)

	// --- Assert ---
	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.Equal(t, spec.ID, pubErr.JobID)
	assert.Equal(t, "v2.0.0-rc.1", pubErr.Tag)
	assert.False(t, out.Published)
	require.Len(t, pub.calls, 1)
	assert.True(t, pub.calls[0].Prerelease)
}

func TestApply_NoArtifactsOrPublisher(t *testing.T) {
	spec := newJob(t, "x86_64-unknown-linux-gnu", target.Stable)
	trig := trigger.New("v1.0.0", "v1.0.0", "")

	_, err := New(&recordingPublisher{}, "").Apply(context.Background(), spec, true, trig, t.TempDir())
	assert.ErrorIs(t, err, publish.ErrNoArtifacts)

	_, err = New(nil, "").Apply(context.Background(), spec, true, trig, t.TempDir())
	var pubErr *PublishError
	assert.ErrorAs(t, err, &pubErr)
}

func TestApply_ArtifactDirWithGlobCharacters(t *testing.T) {
	// --- Arrange ---
	dir := filepath.Join(t.TempDir(), "builds [x]", "job*?")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	file := filepath.Join(dir, "exclave-v1.2.3-x86_64-unknown-linux-gnu.tar.gz")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	pub := &recordingPublisher{}

	// --- Act ---
	out, err := New(pub, "secret").Apply(context.Background(), newJob(t, "x86_64-unknown-linux-gnu", target.Stable),
		true, trigger.New("v1.2.3", "v1.2.3", ""), dir)

	// --- Assert ---
	require.NoError(t, err)
	assert.True(t, out.Published)
	require.Len(t, pub.calls, 1)
	assert.Equal(t, []string{file}, pub.calls[0].Files)
}

func TestApply_PublisherWithoutResult(t *testing.T) {
	dir := artifactDir(t, "exclave-v1.2.3-x86_64-unknown-linux-gnu.zip")
	pub := &recordingPublisher{noResult: true}

	out, err := New(pub, "").Apply(context.Background(), newJob(t, "x86_64-unknown-linux-gnu", target.Stable),
		true, trigger.New("v1.2.3", "v1.2.3", ""), dir)

	var pubErr *PublishError
	require.ErrorAs(t, err, &pubErr)
	assert.False(t, out.Published)
	assert.Nil(t, out.Result)
}
