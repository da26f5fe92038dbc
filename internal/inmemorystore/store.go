package inmemorystore

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/jobstore"
)

// Store is an in-memory implementation of jobstore.Store.
//
// The store maintains three independent sync.Maps keyed by job ID:
//   - states: jobstore.Status
//   - results: *jobstore.Result
//   - errors: error
type Store struct {
	states  sync.Map
	results sync.Map
	errors  sync.Map
}

// New creates a new, empty in-memory job store.
func New() jobstore.Store {
	return &Store{}
}

// SetStatus updates the status of a job.
func (s *Store) SetStatus(ctx context.Context, jobID string, status jobstore.Status) error {
	s.states.Store(jobID, status)
	return nil
}

// GetStatus retrieves the status of a job.
// If a status has not been set, it returns StatusPending.
func (s *Store) GetStatus(ctx context.Context, jobID string) (jobstore.Status, error) {
	status, ok := s.states.Load(jobID)
	if !ok {
		return jobstore.StatusPending, nil
	}
	return status.(jobstore.Status), nil
}

// SetResult records the final result of a job.
func (s *Store) SetResult(ctx context.Context, res *jobstore.Result) error {
	s.results.Store(res.JobID, res)
	return nil
}

// GetResult retrieves the recorded result of a finished job.
func (s *Store) GetResult(ctx context.Context, jobID string) (*jobstore.Result, error) {
	res, ok := s.results.Load(jobID)
	if !ok {
		return nil, nil
	}
	return res.(*jobstore.Result), nil
}

// SetError records the failure error of a job.
func (s *Store) SetError(ctx context.Context, jobID string, jobErr error) error {
	s.errors.Store(jobID, jobErr)
	return nil
}

// GetError retrieves the recorded error of a failed job.
func (s *Store) GetError(ctx context.Context, jobID string) (error, error) {
	err, ok := s.errors.Load(jobID)
	if !ok {
		return nil, nil
	}
	return err.(error), nil
}

// Snapshot returns every job that has a status, sorted by job ID.
func (s *Store) Snapshot(ctx context.Context) ([]jobstore.Entry, error) {
	var out []jobstore.Entry
	s.states.Range(func(k, v any) bool {
		id := k.(string)
		e := jobstore.Entry{JobID: id, Status: v.(jobstore.Status)}
		if res, ok := s.results.Load(id); ok {
			e.Result = res.(*jobstore.Result)
		}
		if err, ok := s.errors.Load(id); ok {
			e.Error = err.(error).Error()
		}
		out = append(out, e)
		return true
	})
	slices.SortFunc(out, func(a, b jobstore.Entry) int { return strings.Compare(a.JobID, b.JobID) })
	return out, nil
}
