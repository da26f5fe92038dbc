// Package jobstore defines the interface for the mutable execution state of
// the jobs of one pipeline invocation.
//
// The executor writes a job's status as it moves through
// Pending → Running → Succeeded | Failed, and stores its final Result and
// build error. The healthcheck server and the report read it concurrently.
package jobstore

import (
	"context"
	"time"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// PublishState is what the release gate did for a job.
type PublishState string

const (
	PublishSkipped   PublishState = "skipped"
	PublishPublished PublishState = "published"
	PublishFailed    PublishState = "failed"
)

// Result is the final record of one job.
type Result struct {
	JobID        string        `json:"job_id"`
	Triple       string        `json:"triple"`
	Channel      string        `json:"channel"`
	HostOS       string        `json:"host_os"`
	Status       Status        `json:"status"`
	FailedPhase  string        `json:"failed_phase,omitempty"`
	ExitCode     int           `json:"exit_code"`
	Duration     time.Duration `json:"duration"`
	Publish      PublishState  `json:"publish"`
	Uploaded     []string      `json:"uploaded,omitempty"`
	PublishError string        `json:"publish_error,omitempty"`
}

// Entry is one job's state as returned by Snapshot.
type Entry struct {
	JobID  string  `json:"job_id"`
	Status Status  `json:"status"`
	Result *Result `json:"result,omitempty"`
	Error  string  `json:"error,omitempty"`
}

// Store tracks job state. Implementations must be safe for concurrent use.
type Store interface {
	// SetStatus records a lifecycle transition.
	SetStatus(ctx context.Context, jobID string, status Status) error
	// GetStatus returns StatusPending for jobs never set.
	GetStatus(ctx context.Context, jobID string) (Status, error)
	// SetResult records the final result of a job.
	SetResult(ctx context.Context, res *Result) error
	// GetResult returns nil for jobs without a result.
	GetResult(ctx context.Context, jobID string) (*Result, error)
	// SetError records the build error of a failed job.
	SetError(ctx context.Context, jobID string, jobErr error) error
	// GetError returns nil for jobs without an error.
	GetError(ctx context.Context, jobID string) (error, error)
	// Snapshot returns every known job sorted by ID.
	Snapshot(ctx context.Context) ([]Entry, error)
}
