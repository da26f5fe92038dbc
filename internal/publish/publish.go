// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package publish uploads release artifacts. Providers only ever add assets
// to a release; nothing already published is deleted or replaced.
package publish

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"slices"
)

// ErrNoArtifacts is returned when the artifact pattern matches no file.
var ErrNoArtifacts = errors.New("no artifacts match the pattern")

// ErrAssetExists is returned for a file the release already holds.
var ErrAssetExists = errors.New("asset already published")

// Request is a single publish call for one job.
type Request struct {
	// Credential is an opaque secret handed through to the provider.
	Credential string
	// Tag names the release the files are attached to.
	Tag string
	// Pattern is the glob the files were expanded from.
	Pattern string
	// Files are the matched artifact paths, uploaded one by one.
	Files []string
	// Prerelease marks the release as a prerelease where supported.
	Prerelease bool
}

// Result describes what a provider uploaded.
type Result struct {
	Location string
	Uploaded []string
}

// Publisher uploads the files of a request.
type Publisher interface {
	Publish(ctx context.Context, req Request) (*Result, error)
}

// Expand resolves pattern to the sorted list of matching regular files.
func Expand(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid artifact pattern %q: %w", pattern, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w %q", ErrNoArtifacts, pattern)
	}
	slices.Sort(matches)
	return matches, nil
}

func (r Request) validate() error {
	if r.Tag == "" {
		return errors.New("publish request has no tag")
	}
	if len(r.Files) == 0 {
		return fmt.Errorf("%w %q", ErrNoArtifacts, r.Pattern)
	}
	return nil
}

func contentType(file string) string {
	if ct := mime.TypeByExtension(filepath.Ext(file)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
