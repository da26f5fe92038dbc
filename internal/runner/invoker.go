package runner

import (
	"context"
	"errors"
	"io"
	"os/exec"
)

// Command is one external process invocation.
type Command struct {
	Phase  Phase
	Name   string
	Args   []string
	Env    []string
	Dir    string
	Stdout io.Writer
	Stderr io.Writer
}

// Invoker starts a phase process and waits for it. It returns the process
// exit code; err is non-nil only when the process could not run or did not
// exit normally.
type Invoker interface {
	Invoke(ctx context.Context, cmd Command) (exitCode int, err error)
}

// ProcessInvoker runs commands with os/exec.
type ProcessInvoker struct{}

// Invoke implements Invoker. The process environment is exactly cmd.Env.
func (ProcessInvoker) Invoke(ctx context.Context, cmd Command) (int, error) {
	c := exec.CommandContext(ctx, cmd.Name, cmd.Args...)
	c.Env = cmd.Env
	c.Dir = cmd.Dir
	c.Stdout = cmd.Stdout
	c.Stderr = cmd.Stderr

	err := c.Run()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && exitErr.ExitCode() > 0 {
		return exitErr.ExitCode(), nil
	}
	return ExitCodeNotRun, err
}
