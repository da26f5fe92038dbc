package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/buildgridgo/internal/jobstore"
)

// Run is one recorded pipeline invocation.
type Run struct {
	ID              string
	Crate           string
	Ref             string
	Tag             string
	StartedAt       time.Time
	FinishedAt      time.Time
	Jobs            int
	Failed          int
	PublishFailures int
}

// RecordRun stores a run and its job results in one transaction.
func (s *Store) RecordRun(ctx context.Context, run Run, results []*jobstore.Result) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, s.rebind(`INSERT INTO runs
		(id, crate, ref, tag, started_at, finished_at, jobs, failed, publish_failures)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		run.ID, run.Crate, run.Ref, run.Tag,
		run.StartedAt.UnixMilli(), run.FinishedAt.UnixMilli(),
		run.Jobs, run.Failed, run.PublishFailures)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	insertJob := s.rebind(`INSERT INTO jobs
		(run_id, job_id, triple, channel, host_os, status, failed_phase, exit_code, duration_ms, publish, uploaded, publish_error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, r := range results {
		_, err = tx.ExecContext(ctx, insertJob,
			run.ID, r.JobID, r.Triple, r.Channel, r.HostOS, string(r.Status),
			r.FailedPhase, r.ExitCode, r.Duration.Milliseconds(), string(r.Publish),
			strings.Join(r.Uploaded, "\n"), r.PublishError)
		if err != nil {
			return fmt.Errorf("insert job %s: %w", r.JobID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A limit <= 0 means no limit.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, crate, ref, tag, started_at, finished_at, jobs, failed, publish_failures
		FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r                 Run
			started, finished int64
		)
		if err := rows.Scan(&r.ID, &r.Crate, &r.Ref, &r.Tag, &started, &finished, &r.Jobs, &r.Failed, &r.PublishFailures); err != nil {
			return nil, err
		}
		r.StartedAt = time.UnixMilli(started).UTC()
		r.FinishedAt = time.UnixMilli(finished).UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

// Jobs returns the job results of one run in job ID order.
func (s *Store) Jobs(ctx context.Context, runID string) ([]*jobstore.Result, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT
		job_id, triple, channel, host_os, status, failed_phase, exit_code, duration_ms, publish, uploaded, publish_error
		FROM jobs WHERE run_id = ? ORDER BY job_id`), runID)
	if err != nil {
		return nil, fmt.Errorf("list jobs of %s: %w", runID, err)
	}
	defer rows.Close()

	var out []*jobstore.Result
	for rows.Next() {
		r, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanJob(rows *sql.Rows) (*jobstore.Result, error) {
	var (
		r               jobstore.Result
		status, publish string
		uploaded        string
		durationMillis  int64
	)
	err := rows.Scan(&r.JobID, &r.Triple, &r.Channel, &r.HostOS, &status, &r.FailedPhase,
		&r.ExitCode, &durationMillis, &publish, &uploaded, &r.PublishError)
	if err != nil {
		return nil, err
	}
	r.Status = jobstore.Status(status)
	r.Publish = jobstore.PublishState(publish)
	r.Duration = time.Duration(durationMillis) * time.Millisecond
	if uploaded != "" {
		r.Uploaded = strings.Split(uploaded, "\n")
	}
	return &r, nil
}
