package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/executor"
	"github.com/specialistvlad/buildgridgo/internal/gate"
	"github.com/specialistvlad/buildgridgo/internal/history"
	"github.com/specialistvlad/buildgridgo/internal/localexecutor"
	"github.com/specialistvlad/buildgridgo/internal/report"
	"github.com/specialistvlad/buildgridgo/internal/runner"
)

// Run executes the full pipeline for the current ref. A ref that is not
// admitted starts no jobs and is not an error. Job and publish failures are
// reported in the summary; the error is reserved for validation problems,
// setup failures and cancellation.
func (a *App) Run(ctx context.Context) (*executor.Summary, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")
	runID := uuid.NewString()

	p, jobs, err := a.expand(ctx, a.config.PipelinePath)
	if err != nil {
		return nil, err
	}
	trig := a.trigger(p)
	if !trig.Admitted() {
		a.logger.Info("⏭️ Ref is not admitted, no jobs started.", "ref", trig.Ref, "trunk", trig.Trunk)
		return &executor.Summary{RunID: runID}, nil
	}
	if len(jobs) == 0 {
		a.logger.Warn("No enabled targets, execution not required.")
		return &executor.Summary{RunID: runID}, nil
	}

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	mgr, err := a.cacheManager(ctx, p.Cache)
	if err != nil {
		return nil, fmt.Errorf("failed to configure cache: %w", err)
	}
	pub, err := a.publisherFor(p.Deploy)
	if err != nil {
		return nil, invalid(fmt.Errorf("failed to configure deploy: %w", err))
	}
	notifier := a.notifierFor(ctx, p.Notify)
	defer notifier.Close()

	opts := localexecutor.Options{
		RunID:   runID,
		Workers: a.config.WorkerCount,
		Trigger: trig,
		Runner: runner.New(runner.Scripts{
			Install:      p.Scripts.Install,
			Script:       p.Scripts.Script,
			BeforeDeploy: p.Scripts.BeforeDeploy,
			Shell:        p.Scripts.Shell,
		}, a.invoker),
		Gate:        gate.New(pub, a.credential(p.Deploy)),
		Store:       a.store,
		ArtifactDir: p.ArtifactDir,
		Cache:       mgr,
		Notifier:    notifier,
	}
	if p.Cache != nil {
		opts.CacheEnv = p.Cache.EnvVar
	}
	ex, err := localexecutor.New(opts)
	if err != nil {
		return nil, err
	}

	a.logger.Info("🚀 Starting pipeline", "crate", p.CrateName, "ref", trig.Ref, "tag", trig.Tag, "jobs", len(jobs))
	started := time.Now()
	summary, err := ex.Execute(ctx, jobs)
	finished := time.Now()

	if rErr := report.Jobs(a.outW, "Run "+runID, summary.Results); rErr != nil {
		a.logger.Warn("Failed to write report.", "error", rErr)
	}
	a.recordHistory(ctx, history.Run{
		ID:              runID,
		Crate:           p.CrateName,
		Ref:             trig.Ref,
		Tag:             trig.Tag,
		StartedAt:       started,
		FinishedAt:      finished,
		Jobs:            len(summary.Results),
		Failed:          summary.Failed(),
		PublishFailures: summary.PublishFailures(),
	}, summary)

	a.logger.Info("🏁 Pipeline finished.", "failed", summary.Failed(), "publish_failures", summary.PublishFailures())
	return summary, err
}

// Plan prints the jobs the current ref would run.
func (a *App) Plan(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	p, jobs, err := a.expand(ctx, a.config.PipelinePath)
	if err != nil {
		return err
	}
	trig := a.trigger(p)
	if !trig.Admitted() {
		_, err := fmt.Fprintf(a.outW, "Ref %q is not admitted (release tags and %q only); no jobs would run.\n", trig.Ref, trig.Trunk)
		return err
	}
	return report.Plan(a.outW, trig, jobs)
}

// recordHistory is best effort: a history failure never fails the run.
func (a *App) recordHistory(ctx context.Context, run history.Run, summary *executor.Summary) {
	if a.config.HistoryDSN == "" {
		return
	}
	store, err := history.Open(ctx, a.config.HistoryDSN)
	if err != nil {
		a.logger.Warn("Run history unavailable.", "error", err)
		return
	}
	defer store.Close()
	if err := store.RecordRun(context.WithoutCancel(ctx), run, summary.Results); err != nil {
		a.logger.Warn("Failed to record run history.", "error", err)
		return
	}
	a.logger.Debug("Run recorded.", "run_id", run.ID)
}
