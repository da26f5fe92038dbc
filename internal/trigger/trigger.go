// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package trigger models the ref a pipeline invocation was started for: the
// branch admission filter and the tagged-release predicate.
package trigger

import (
	"regexp"

	"golang.org/x/mod/semver"
)

// DefaultTrunk is the trunk branch name used when the pipeline names none.
const DefaultTrunk = "master"

// Environment variables the trigger is read from.
const (
	EnvBranch = "TRAVIS_BRANCH"
	EnvTag    = "TRAVIS_TAG"
)

var releaseTag = regexp.MustCompile(`^v\d+\.\d+\.\d+.*$`)

// IsReleaseTag reports whether ref looks like a semantic-version tag.
func IsReleaseTag(ref string) bool {
	return releaseTag.MatchString(ref)
}

// Context is the release trigger context of one pipeline invocation.
type Context struct {
	// Ref is the branch or tag being built.
	Ref string
	// Tag is the tag of the current ref, empty for branch builds.
	Tag string
	// Trunk is the branch name admitted besides release tags.
	Trunk string
}

// New builds a Context. A tag build whose ref is unknown is treated as a
// build of the tag itself.
func New(ref, tag, trunk string) Context {
	if ref == "" {
		ref = tag
	}
	if trunk == "" {
		trunk = DefaultTrunk
	}
	return Context{Ref: ref, Tag: tag, Trunk: trunk}
}

// FromEnv reads TRAVIS_BRANCH and TRAVIS_TAG through lookup.
func FromEnv(lookup func(string) (string, bool), trunk string) Context {
	ref, _ := lookup(EnvBranch)
	tag, _ := lookup(EnvTag)
	return New(ref, tag, trunk)
}

// IsTaggedRelease is true only if the tag matches the release tag pattern.
func (c Context) IsTaggedRelease() bool {
	return IsReleaseTag(c.Tag)
}

// Admitted implements the branch allow-list: only release tags and the
// trunk branch may start jobs.
func (c Context) Admitted() bool {
	return IsReleaseTag(c.Ref) || (c.Ref != "" && c.Ref == c.Trunk)
}

// Prerelease reports whether the tag carries a semver prerelease part such
// as "-rc.1".
func (c Context) Prerelease() bool {
	return semver.IsValid(c.Tag) && semver.Prerelease(c.Tag) != ""
}
