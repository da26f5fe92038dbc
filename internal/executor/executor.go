// Package executor defines the interface for the job execution engine.
package executor

import (
	"context"

	"github.com/specialistvlad/buildgridgo/internal/job"
	"github.com/specialistvlad/buildgridgo/internal/jobstore"
)

// Executor runs every job of one pipeline invocation. Jobs are independent:
// one job's failure never stops another.
type Executor interface {
	Execute(ctx context.Context, jobs []*job.Spec) (*Summary, error)
}

// Summary is the outcome of one Execute call. Results are in job order.
type Summary struct {
	RunID   string
	Results []*jobstore.Result
}

// Failed counts jobs whose build failed.
func (s *Summary) Failed() int {
	n := 0
	for _, r := range s.Results {
		if r.Status == jobstore.StatusFailed {
			n++
		}
	}
	return n
}

// PublishFailures counts jobs whose build succeeded but whose publish failed.
func (s *Summary) PublishFailures() int {
	n := 0
	for _, r := range s.Results {
		if r.Publish == jobstore.PublishFailed {
			n++
		}
	}
	return n
}
