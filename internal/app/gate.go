package app

import (
	"context"
	"errors"

	"github.com/specialistvlad/buildgridgo/internal/config"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/fsutil"
	"github.com/specialistvlad/buildgridgo/internal/gate"
	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/localexecutor"
	"github.com/specialistvlad/buildgridgo/internal/target"
)

// Variables the gate command reads the current CI job from.
const (
	envRustVersion = "TRAVIS_RUST_VERSION"
	envOSName      = "TRAVIS_OS_NAME"
)

// EvaluateGate applies the release gate to the CI job described by the
// environment. The pipeline, when present, supplies the deploy settings.
// Artifacts are read from ARTIFACT_DIR, or the pipeline's artifact
// directory when it is unset.
func (a *App) EvaluateGate(ctx context.Context, succeeded bool) (gate.Outcome, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	p, err := a.gatePipeline(ctx)
	if err != nil {
		return gate.Outcome{}, err
	}
	spec, err := a.jobFromEnv(p)
	if err != nil {
		return gate.Outcome{}, invalid(err)
	}
	pub, err := a.publisherFor(p.Deploy)
	if err != nil {
		return gate.Outcome{}, invalid(err)
	}

	trig := a.trigger(p)
	a.logger.Info("Evaluating release gate.", "job", spec.ID, "tag", trig.Tag, "succeeded", succeeded)
	dir := a.getenv(localexecutor.EnvArtifactDir)
	if dir == "" {
		dir = p.ArtifactDir
	}
	return gate.New(pub, a.credential(p.Deploy)).Apply(ctx, spec, succeeded, trig, dir)
}

// gatePipeline loads the configured pipeline, or falls back to defaults
// when the path holds no pipeline file.
func (a *App) gatePipeline(ctx context.Context) (*config.Pipeline, error) {
	files, err := fsutil.ResolvePaths(a.config.PipelinePath, PipelineExtensions...)
	if err != nil || len(files) == 0 {
		a.logger.Debug("No pipeline file, using defaults.", "path", a.config.PipelinePath)
		p := &config.Pipeline{}
		p.ApplyDefaults()
		return p, nil
	}
	return a.loadPipeline(ctx, a.config.PipelinePath)
}

func (a *App) jobFromEnv(p *config.Pipeline) (*job.Spec, error) {
	crate := a.getenv(job.EnvCrateName)
	if crate == "" {
		crate = p.CrateName
	}
	if crate == "" {
		return nil, errors.New("CRATE_NAME is not set")
	}

	channelName := a.getenv(envRustVersion)
	if channelName == "" {
		channelName = p.DefaultChannel
	}
	ch, err := target.ParseChannel(channelName)
	if err != nil {
		return nil, err
	}
	host, err := target.ParseHostOS(a.getenv(envOSName))
	if err != nil {
		return nil, err
	}
	_, testsDisabled := a.lookupEnv(job.EnvDisableTests)

	d, err := target.New(a.getenv(job.EnvTarget), host, ch, testsDisabled)
	if err != nil {
		return nil, err
	}
	return job.New(0, crate, d, nil), nil
}
