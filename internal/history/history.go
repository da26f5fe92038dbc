// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package history records pipeline runs and their job outcomes in SQLite or
// PostgreSQL through database/sql.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

const pingTimeout = 5 * time.Second

type dialect int

const (
	sqlite dialect = iota
	postgres
)

// Store is a run history database.
type Store struct {
	db      *sql.DB
	dialect dialect
}

// Open connects to dsn and creates the schema. DSNs starting with
// postgres:// or postgresql:// use pgx; "sqlite://<path>" or a bare path
// uses the pure-Go SQLite driver.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}

	var (
		db  *sql.DB
		d   dialect
		err error
	)
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		d = postgres
		db, err = sql.Open("pgx", dsn)
	default:
		path := strings.TrimPrefix(dsn, "sqlite://")
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}
		d = sqlite
		db, err = sql.Open("sqlite", path)
		if err == nil {
			// SQLite allows one writer; serialize through a single connection.
			db.SetMaxOpenConns(1)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	s := &Store{db: db, dialect: d}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		crate TEXT NOT NULL,
		ref TEXT NOT NULL,
		tag TEXT NOT NULL,
		started_at BIGINT NOT NULL,
		finished_at BIGINT NOT NULL,
		jobs INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		publish_failures INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS jobs (
		run_id TEXT NOT NULL REFERENCES runs(id),
		job_id TEXT NOT NULL,
		triple TEXT NOT NULL,
		channel TEXT NOT NULL,
		host_os TEXT NOT NULL,
		status TEXT NOT NULL,
		failed_phase TEXT NOT NULL,
		exit_code INTEGER NOT NULL,
		duration_ms BIGINT NOT NULL,
		publish TEXT NOT NULL,
		uploaded TEXT NOT NULL,
		publish_error TEXT NOT NULL,
		PRIMARY KEY (run_id, job_id)
	)`,
	`CREATE INDEX IF NOT EXISTS runs_started_at ON runs (started_at)`,
}

// Migrate creates the tables when missing.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.dialect != postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
