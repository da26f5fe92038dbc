package app

import (
	"context"
	"errors"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/history"
	"github.com/specialistvlad/buildgridgo/internal/report"
)

// History prints the most recent recorded runs, and the jobs of runID when
// it is not empty.
func (a *App) History(ctx context.Context, limit int, runID string) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	if a.config.HistoryDSN == "" {
		return invalid(errors.New("--history-dsn is required"))
	}

	store, err := history.Open(ctx, a.config.HistoryDSN)
	if err != nil {
		return err
	}
	defer store.Close()

	if runID != "" {
		jobs, err := store.Jobs(ctx, runID)
		if err != nil {
			return err
		}
		return report.Jobs(a.outW, "Run "+runID, jobs)
	}

	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	return report.Runs(a.outW, runs)
}
