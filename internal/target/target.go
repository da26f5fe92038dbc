// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package target

import (
	"fmt"
	"strings"
)

// HostOS selects the machine a job executes on.
type HostOS string

const (
	Linux HostOS = "linux"
	MacOS HostOS = "macos"
)

// TravisName is the spelling CI scripts expect in TRAVIS_OS_NAME.
func (h HostOS) TravisName() string {
	if h == MacOS {
		return "osx"
	}
	return string(h)
}

// ParseHostOS accepts the canonical names plus the "osx" and "darwin"
// aliases. An empty string means linux.
func ParseHostOS(s string) (HostOS, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "linux":
		return Linux, nil
	case "macos", "osx", "darwin":
		return MacOS, nil
	default:
		return "", fmt.Errorf("unknown host os %q: must be 'linux' or 'macos'", s)
	}
}

// Channel is the toolchain stability track a job builds with.
type Channel string

const (
	Stable  Channel = "stable"
	Nightly Channel = "nightly"
)

// ParseChannel returns the empty Channel for an empty string so callers can
// apply their own default.
func ParseChannel(s string) (Channel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "stable":
		return Stable, nil
	case "nightly":
		return Nightly, nil
	default:
		return "", fmt.Errorf("unknown toolchain channel %q: must be 'stable' or 'nightly'", s)
	}
}

// Descriptor identifies one build environment. The zero value is not valid;
// build one with New.
type Descriptor struct {
	triple        string
	hostOS        HostOS
	channel       Channel
	testsDisabled bool
}

// New validates the fields and returns a Descriptor. An empty host means
// linux and an empty channel means stable.
func New(triple string, host HostOS, channel Channel, testsDisabled bool) (Descriptor, error) {
	triple = strings.TrimSpace(triple)
	if triple == "" {
		return Descriptor{}, &ValidationError{Entry: -1, Field: "triple", Reason: "must not be empty"}
	}
	if host == "" {
		host = Linux
	}
	if host != Linux && host != MacOS {
		return Descriptor{}, &ValidationError{Entry: -1, Triple: triple, Field: "os", Reason: fmt.Sprintf("unknown host os %q", host)}
	}
	if channel == "" {
		channel = Stable
	}
	if channel != Stable && channel != Nightly {
		return Descriptor{}, &ValidationError{Entry: -1, Triple: triple, Field: "channel", Reason: fmt.Sprintf("unknown toolchain channel %q", channel)}
	}
	return Descriptor{
		triple:        triple,
		hostOS:        host,
		channel:       channel,
		testsDisabled: testsDisabled,
	}, nil
}

func (d Descriptor) Triple() string      { return d.triple }
func (d Descriptor) HostOS() HostOS      { return d.hostOS }
func (d Descriptor) Channel() Channel    { return d.channel }
func (d Descriptor) TestsDisabled() bool { return d.testsDisabled }
func (d Descriptor) String() string      { return d.triple + "@" + string(d.channel) }

// ValidationError reports a malformed or incomplete descriptor. It is always
// fatal to the whole matrix expansion.
type ValidationError struct {
	// Entry is the position of the offending entry in the declared list, or
	// -1 when unknown.
	Entry  int
	Triple string
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	var b strings.Builder
	b.WriteString("invalid target")
	if e.Entry >= 0 {
		fmt.Fprintf(&b, " #%d", e.Entry)
	}
	if e.Triple != "" {
		fmt.Fprintf(&b, " %q", e.Triple)
	}
	fmt.Fprintf(&b, ": %s %s", e.Field, e.Reason)
	return b.String()
}
