// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/target"
)

// Key is the cache identity of a toolchain on a host. Jobs building
// different triples with the same toolchain share it.
func Key(ch target.Channel, host target.HostOS) string {
	return fmt.Sprintf("toolchain-%s-%s", ch, host)
}

// Manager hands out per-job scopes backed by one Store.
type Manager struct {
	store Store
	root  string
}

// NewManager creates a manager whose scopes live below root. An empty root
// uses the system temp directory.
func NewManager(store Store, root string) *Manager {
	return &Manager{store: store, root: root}
}

// Scope is one job's private view of the cache.
type Scope struct {
	Key string
	Dir string

	m    *Manager
	once sync.Once
	err  error
}

// Acquire restores the blob for key into a new directory. A missing or
// unreadable blob is not an error: the job starts with an empty cache.
func (m *Manager) Acquire(ctx context.Context, key string) (*Scope, error) {
	logger := ctxlog.FromContext(ctx).With("cache_key", key)

	if m.root != "" {
		if err := os.MkdirAll(m.root, 0o755); err != nil {
			return nil, fmt.Errorf("create cache root: %w", err)
		}
	}
	dir, err := os.MkdirTemp(m.root, key+"-")
	if err != nil {
		return nil, fmt.Errorf("create cache scope: %w", err)
	}
	scope := &Scope{Key: key, Dir: dir, m: m}

	blob, err := m.store.Get(ctx, key)
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info("📦 Cache miss, starting empty.")
		return scope, nil
	case err != nil:
		logger.Warn("Cache restore failed, starting empty.", "error", err)
		return scope, nil
	}
	defer blob.Close()

	if err := extractArchive(blob, dir); err != nil {
		logger.Warn("Cache archive unreadable, starting empty.", "error", err)
		if err := resetDir(dir); err != nil {
			return nil, err
		}
		return scope, nil
	}
	logger.Info("📦 Cache restored.", "dir", dir)
	return scope, nil
}

// Release normalizes permissions, persists the scope and removes its
// directory. It is idempotent; later calls return the first result.
func (s *Scope) Release(ctx context.Context) error {
	s.once.Do(func() {
		s.err = s.release(ctx)
	})
	return s.err
}

func (s *Scope) release(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx).With("cache_key", s.Key)
	defer os.RemoveAll(s.Dir)

	if err := NormalizePermissions(s.Dir); err != nil {
		return fmt.Errorf("normalize cache permissions: %w", err)
	}

	tmp, err := os.CreateTemp("", "buildgrid-cache-*"+blobExt)
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	defer tmp.Close()

	if err := writeArchive(s.Dir, tmp); err != nil {
		return err
	}
	info, err := tmp.Stat()
	if err != nil {
		return err
	}
	if _, err := tmp.Seek(0, 0); err != nil {
		return err
	}
	if err := s.m.store.Put(ctx, s.Key, tmp, info.Size()); err != nil {
		return fmt.Errorf("persist cache %s: %w", s.Key, err)
	}

	logger.Info("📦 Cache persisted.", "bytes", info.Size())
	return nil
}

func resetDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	for _, e := range entries {
		if err := os.RemoveAll(filepath.Join(dir, e.Name())); err != nil {
			return err
		}
	}
	return nil
}
