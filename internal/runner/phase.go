package runner

import (
	"errors"
	"fmt"
)

// Phase names one lifecycle step of a job.
type Phase string

const (
	Install      Phase = "install"
	Script       Phase = "script"
	BeforeDeploy Phase = "before_deploy"
)

// Phases is the fixed execution order.
var Phases = []Phase{Install, Script, BeforeDeploy}

// ExitCodeNotRun is reported when a phase process could not be started at all.
const ExitCodeNotRun = 127

// PhaseError is the terminal status of a failed job: the first phase that
// exited non-zero and its exit code.
type PhaseError struct {
	Phase    Phase
	ExitCode int
	Err      error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s failed with exit code %d: %v", e.Phase, e.ExitCode, e.Err)
}

func (e *PhaseError) Unwrap() error { return e.Err }

// AsPhaseError extracts a PhaseError from err's chain.
func AsPhaseError(err error) (*PhaseError, bool) {
	var pErr *PhaseError
	ok := errors.As(err, &pErr)
	return pErr, ok
}
