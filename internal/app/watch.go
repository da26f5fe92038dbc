package app

import (
	"context"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/watch"
)

// Watch revalidates the pipeline on every change until ctx is cancelled.
func (a *App) Watch(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)

	w, err := watch.New(a.config.PipelinePath, PipelineExtensions, a.validatePipeline, watch.DefaultDebounce)
	if err != nil {
		return invalid(err)
	}
	if n, err := a.validatePipeline(ctx, a.config.PipelinePath); err != nil {
		a.logger.Error("❌ Pipeline invalid.", "error", err)
	} else {
		a.logger.Info("✅ Pipeline valid.", "jobs", n)
	}

	return w.Run(ctx, func(ev watch.Event) {
		logger := a.logger.With("file", ev.File, "change", string(ev.Change))
		switch {
		case !ev.Validated:
			logger.Warn("Pipeline file removed.")
		case ev.Err != nil:
			logger.Error("❌ Pipeline invalid.", "error", ev.Err)
		default:
			logger.Info("✅ Pipeline valid.", "jobs", ev.Jobs)
		}
	})
}

func (a *App) validatePipeline(ctx context.Context, path string) (int, error) {
	_, jobs, err := a.expand(ctx, path)
	return len(jobs), err
}
