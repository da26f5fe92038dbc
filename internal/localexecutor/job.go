package localexecutor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/cache"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/jobstore"
	"github.com/specialistvlad/buildgridgo/internal/notify"
	"github.com/specialistvlad/buildgridgo/internal/runner"
	"github.com/specialistvlad/buildgridgo/internal/trigger"
)

// Compatibility variables exported to every phase besides the job env.
const (
	EnvTag         = trigger.EnvTag
	EnvBranch      = trigger.EnvBranch
	EnvRustVersion = "TRAVIS_RUST_VERSION"
	EnvOSName      = "TRAVIS_OS_NAME"
	// EnvArtifactDir is the directory before_deploy packages the job's
	// artifacts into. The gate publishes from nowhere else.
	EnvArtifactDir = "ARTIFACT_DIR"
)

// artifactDir is <root>/<job ID>, absolute so phases see the same path
// whatever their working directory.
func (e *Executor) artifactDir(spec *job.Spec) (string, error) {
	return filepath.Abs(filepath.Join(e.opts.ArtifactDir, spec.ID))
}

// runJob drives one job from running to its final result. It never
// returns an error: every failure is part of the result.
func (e *Executor) runJob(ctx context.Context, spec *job.Spec) *jobstore.Result {
	jobCtx, logger := ctxlog.With(ctx, "job", spec.ID)
	d := spec.Target
	res := &jobstore.Result{
		JobID:   spec.ID,
		Triple:  d.Triple(),
		Channel: string(d.Channel()),
		HostOS:  string(d.HostOS()),
		Publish: jobstore.PublishSkipped,
	}

	e.opts.Store.SetStatus(ctx, spec.ID, jobstore.StatusRunning)
	e.emit(ctx, res, jobstore.StatusRunning)
	start := time.Now()

	artifacts, buildErr := e.artifactDir(spec)
	if buildErr == nil {
		buildErr = e.build(ctx, jobCtx, spec, artifacts)
	}
	res.Duration = time.Since(start)
	if buildErr != nil {
		res.Status = jobstore.StatusFailed
		res.ExitCode = runner.ExitCodeNotRun
		if pErr, ok := runner.AsPhaseError(buildErr); ok {
			res.FailedPhase = string(pErr.Phase)
			res.ExitCode = pErr.ExitCode
		}
		e.opts.Store.SetError(ctx, spec.ID, buildErr)
		logger.Error("❌ Job failed.", "error", buildErr)
	} else {
		res.Status = jobstore.StatusSucceeded
		logger.Info("✅ Job succeeded", "duration", res.Duration)
	}

	outcome, pubErr := e.opts.Gate.Apply(jobCtx, spec, buildErr == nil, e.opts.Trigger, artifacts)
	switch {
	case pubErr != nil:
		res.Publish = jobstore.PublishFailed
		res.PublishError = pubErr.Error()
	case outcome.Published:
		res.Publish = jobstore.PublishPublished
	}
	if outcome.Result != nil {
		res.Uploaded = outcome.Result.Uploaded
	}

	e.opts.Store.SetResult(ctx, res)
	e.opts.Store.SetStatus(ctx, spec.ID, res.Status)
	e.emit(ctx, res, res.Status)
	return res
}

// build runs the phases inside the job's cache scope. The scope is
// released on every exit path, including phase failure and cancellation.
// The artifact directory starts empty so leftovers of an earlier run are
// never published.
func (e *Executor) build(ctx, jobCtx context.Context, spec *job.Spec, artifacts string) error {
	if err := os.RemoveAll(artifacts); err != nil {
		return fmt.Errorf("reset artifact dir: %w", err)
	}
	if err := os.MkdirAll(artifacts, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	d := spec.Target
	overlay := map[string]string{
		EnvTag:         e.opts.Trigger.Tag,
		EnvBranch:      e.opts.Trigger.Ref,
		EnvRustVersion: string(d.Channel()),
		EnvOSName:      d.HostOS().TravisName(),
		EnvArtifactDir: artifacts,
	}

	if e.opts.Cache != nil {
		scope, err := e.opts.Cache.Acquire(jobCtx, cache.Key(d.Channel(), d.HostOS()))
		if err != nil {
			return err
		}
		defer func() {
			if err := scope.Release(context.WithoutCancel(jobCtx)); err != nil {
				ctxlog.FromContext(jobCtx).Warn("Cache persist failed.", "error", err)
			}
		}()
		if e.opts.CacheEnv != "" {
			overlay[e.opts.CacheEnv] = scope.Dir
		}
	}

	_, err := e.opts.Runner.Run(ctx, spec, overlay)
	return err
}

func (e *Executor) emit(ctx context.Context, res *jobstore.Result, status jobstore.Status) {
	ev := notify.Event{
		RunID:   e.opts.RunID,
		JobID:   res.JobID,
		Triple:  res.Triple,
		Channel: res.Channel,
		Status:  string(status),
		Time:    time.Now(),
	}
	if status == jobstore.StatusFailed {
		ev.Phase = res.FailedPhase
		ev.ExitCode = res.ExitCode
	}
	if status != jobstore.StatusRunning {
		ev.Publish = string(res.Publish)
	}
	e.opts.Notifier.Notify(ctx, ev)
}
