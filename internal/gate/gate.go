// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package gate decides, per job, whether the job's artifacts are published
// and performs the single publish call when they are.
package gate

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/publish"
	"github.com/specialistvlad/buildgridgo/internal/target"
	"github.com/specialistvlad/buildgridgo/internal/trigger"
)

// ReleaseChannel is the only channel whose jobs publish. Restricting uploads
// to one channel keeps matrices that build a triple on several toolchains
// from uploading the same artifact twice.
const ReleaseChannel = target.Stable

// Decision holds the three inputs of the publish predicate.
type Decision struct {
	Succeeded      bool
	TaggedRelease  bool
	ChannelMatches bool
}

// Publish is true iff the job succeeded, the ref is a release tag and the
// job ran on the release channel.
func (d Decision) Publish() bool {
	return d.Succeeded && d.TaggedRelease && d.ChannelMatches
}

// Evaluate builds the decision for spec under trig.
func Evaluate(spec *job.Spec, succeeded bool, trig trigger.Context, release target.Channel) Decision {
	return Decision{
		Succeeded:      succeeded,
		TaggedRelease:  trig.IsTaggedRelease(),
		ChannelMatches: spec.Target.Channel() == release,
	}
}

// ArtifactPattern is the glob every artifact of a job matches:
// "<crate>-<tag>-<triple>.*".
func ArtifactPattern(crateName, tag, triple string) string {
	return fmt.Sprintf("%s-%s-%s.*", crateName, tag, triple)
}

// Outcome is what the gate did for a job.
type Outcome struct {
	Decision  Decision
	Published bool
	Pattern   string
	Result    *publish.Result
}

// PublishError is a deploy-stage failure. It never changes the job's build
// status.
type PublishError struct {
	JobID string
	Tag   string
	Err   error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish of job %s for %s failed: %v", e.JobID, e.Tag, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }

// Gate applies the publish predicate and calls a publisher.
type Gate struct {
	publisher  publish.Publisher
	credential string
	release    target.Channel
}

// New creates a gate. A nil publisher is allowed for pipelines without a
// deploy section; a job that would publish then reports a PublishError.
func New(p publish.Publisher, credential string) *Gate {
	return &Gate{publisher: p, credential: credential, release: ReleaseChannel}
}

// Apply evaluates the gate for one finished job and publishes the job's
// artifacts found in artifactDir when the predicate holds. The returned
// error is always a *PublishError. Published implies a non-nil Result.
func (g *Gate) Apply(ctx context.Context, spec *job.Spec, succeeded bool, trig trigger.Context, artifactDir string) (Outcome, error) {
	logger := ctxlog.FromContext(ctx)
	out := Outcome{Decision: Evaluate(spec, succeeded, trig, g.release)}
	if !out.Decision.Publish() {
		logger.Debug("Release gate closed.", "succeeded", succeeded, "tagged", out.Decision.TaggedRelease, "channel", spec.Target.Channel())
		return out, nil
	}

	if artifactDir == "" {
		artifactDir = "."
	}
	out.Pattern = filepath.Join(escapeGlob(artifactDir), ArtifactPattern(spec.CrateName, trig.Tag, spec.Target.Triple()))
	fail := func(err error) (Outcome, error) {
		logger.Error("❌ Publish failed.", "pattern", out.Pattern, "error", err)
		return out, &PublishError{JobID: spec.ID, Tag: trig.Tag, Err: err}
	}

	if g.publisher == nil {
		return fail(errors.New("no deploy provider is configured"))
	}
	files, err := publish.Expand(out.Pattern)
	if err != nil {
		return fail(err)
	}

	logger.Info("🚀 Publishing artifacts.", "tag", trig.Tag, "files", len(files))
	res, err := g.publisher.Publish(ctx, publish.Request{
		Credential: g.credential,
		Tag:        trig.Tag,
		Pattern:    out.Pattern,
		Files:      files,
		Prerelease: trig.Prerelease(),
	})
	out.Result = res
	switch {
	case err != nil:
		return fail(err)
	case res == nil:
		return fail(errors.New("publisher reported no result"))
	}
	out.Published = true
	return out, nil
}

// escapeGlob makes every character of dir match literally. Bracket classes
// work on every platform, unlike backslash escapes.
func escapeGlob(dir string) string {
	var b strings.Builder
	for _, r := range dir {
		switch {
		case r == '*' || r == '?' || r == '[':
			b.WriteByte('[')
			b.WriteRune(r)
			b.WriteByte(']')
		case r == '\\' && filepath.Separator != '\\':
			b.WriteString(`\\`)
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
