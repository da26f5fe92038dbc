// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package runner

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/job"
)

// Scripts maps each phase to the script it invokes.
type Scripts struct {
	Install      string
	Script       string
	BeforeDeploy string
	// Shell, when set, runs every script as `<shell> <path>`.
	Shell string
	// Dir is the working directory of every phase.
	Dir string
}

func (s Scripts) path(p Phase) string {
	switch p {
	case Install:
		return s.Install
	case Script:
		return s.Script
	default:
		return s.BeforeDeploy
	}
}

// Result describes a job whose phases all ran.
type Result struct {
	JobID     string
	Completed []Phase
	Duration  time.Duration
}

// Runner executes the phases of one job at a time. It holds no per-job
// state and is safe for concurrent use.
type Runner struct {
	scripts Scripts
	invoker Invoker
}

// New creates a Runner. A nil invoker runs real processes.
func New(scripts Scripts, invoker Invoker) *Runner {
	if invoker == nil {
		invoker = ProcessInvoker{}
	}
	return &Runner{scripts: scripts, invoker: invoker}
}

// Run executes install, script and before_deploy for spec, with overlay
// added to the job environment. The first non-zero phase aborts the job and
// is returned as a *PhaseError; later phases are never started. The
// returned Result lists the phases that completed, also on failure.
func (r *Runner) Run(ctx context.Context, spec *job.Spec, overlay map[string]string) (*Result, error) {
	ctx, logger := ctxlog.With(ctx, "job", spec.ID)
	start := time.Now()
	res := &Result{JobID: spec.ID}
	env := append(inheritedEnv(), spec.Environ(overlay)...)

	for _, phase := range Phases {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, &PhaseError{Phase: phase, ExitCode: ExitCodeNotRun, Err: err}
		}

		phaseLogger := logger.With("phase", string(phase))
		phaseLogger.Info("▶️ Starting phase", "tests", spec.TestsEnabled())

		stdout := newLineLogger(phaseLogger, "stdout")
		stderr := newLineLogger(phaseLogger, "stderr")
		cmd := r.command(phase, env, stdout, stderr)

		phaseStart := time.Now()
		code, err := r.invoker.Invoke(ctx, cmd)
		stdout.Flush()
		stderr.Flush()

		if err != nil || code != 0 {
			if err == nil {
				err = fmt.Errorf("%s exited with status %d", cmd.Name, code)
			}
			phaseLogger.Error("❌ Phase failed, aborting job.", "exit_code", code, "error", err)
			res.Duration = time.Since(start)
			return res, &PhaseError{Phase: phase, ExitCode: code, Err: err}
		}

		phaseLogger.Info("✅ Finished phase", "duration", time.Since(phaseStart))
		res.Completed = append(res.Completed, phase)
	}

	res.Duration = time.Since(start)
	return res, nil
}

// inheritedEnv is the process environment minus the variables a job owns,
// so a DISABLE_TESTS set on the host never leaks into a job that runs tests.
func inheritedEnv() []string {
	var out []string
	for _, kv := range os.Environ() {
		name, _, _ := strings.Cut(kv, "=")
		if job.Reserved(name) {
			continue
		}
		out = append(out, kv)
	}
	return out
}

func (r *Runner) command(phase Phase, env []string, stdout, stderr *lineLogger) Command {
	cmd := Command{
		Phase:  phase,
		Env:    env,
		Dir:    r.scripts.Dir,
		Stdout: stdout,
		Stderr: stderr,
	}
	path := r.scripts.path(phase)
	if r.scripts.Shell != "" {
		cmd.Name = r.scripts.Shell
		cmd.Args = []string{path}
	} else {
		cmd.Name = path
	}
	return cmd
}
