// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package localexecutor provides a concrete, in-process implementation of the
// executor.Executor interface. Jobs run concurrently on a bounded number of
// workers; each job gets its own cache scope and its own gate decision.
package localexecutor

import (
	"context"
	"fmt"
	"runtime"

	"github.com/specialistvlad/buildgridgo/internal/cache"
	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/executor"
	"github.com/specialistvlad/buildgridgo/internal/gate"
	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/jobstore"
	"github.com/specialistvlad/buildgridgo/internal/notify"
	"github.com/specialistvlad/buildgridgo/internal/runner"
	"github.com/specialistvlad/buildgridgo/internal/trigger"
	"golang.org/x/sync/errgroup"
)

// JobRunner runs the phases of one job.
type JobRunner interface {
	Run(ctx context.Context, spec *job.Spec, overlay map[string]string) (*runner.Result, error)
}

// ReleaseGate decides and performs the publish step of one job.
type ReleaseGate interface {
	Apply(ctx context.Context, spec *job.Spec, succeeded bool, trig trigger.Context, artifactDir string) (gate.Outcome, error)
}

// Options wires an Executor. Runner, Gate and Store are required.
type Options struct {
	RunID   string
	Workers int
	Trigger trigger.Context
	Runner  JobRunner
	Gate    ReleaseGate
	Store   jobstore.Store
	// ArtifactDir is the root of the per-job artifact directories.
	ArtifactDir string
	// Cache is optional; without it jobs run with no cache directory.
	Cache *cache.Manager
	// CacheEnv names the variable that carries the cache directory.
	CacheEnv string
	Notifier notify.Notifier
}

// Executor implements the executor.Executor interface for local execution.
type Executor struct {
	opts Options
}

// New creates a new local executor.
func New(opts Options) (executor.Executor, error) {
	if opts.Runner == nil || opts.Gate == nil || opts.Store == nil {
		return nil, fmt.Errorf("localexecutor: runner, gate and store are required")
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	if opts.ArtifactDir == "" {
		opts.ArtifactDir = "."
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &Executor{opts: opts}, nil
}

// Execute runs all jobs and waits for them. The error is non-nil only when
// ctx was cancelled; job failures are reported in the summary.
func (e *Executor) Execute(ctx context.Context, jobs []*job.Spec) (*executor.Summary, error) {
	ctx, logger := ctxlog.With(ctx, "run_id", e.opts.RunID)
	logger.Info("▶️ Starting run", "jobs", len(jobs), "workers", e.opts.Workers, "ref", e.opts.Trigger.Ref)

	for _, spec := range jobs {
		e.opts.Store.SetStatus(ctx, spec.ID, jobstore.StatusPending)
	}

	results := make([]*jobstore.Result, len(jobs))
	g := errgroup.Group{}
	g.SetLimit(e.opts.Workers)
	for i, spec := range jobs {
		g.Go(func() error {
			results[i] = e.runJob(ctx, spec)
			return nil
		})
	}
	g.Wait()

	summary := &executor.Summary{RunID: e.opts.RunID, Results: results}
	logger.Info("✅ Finished run", "jobs", len(jobs), "failed", summary.Failed(), "publish_failures", summary.PublishFailures())
	return summary, ctx.Err()
}
