package target

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AppliesDefaults(t *testing.T) {
	d, err := New("x86_64-unknown-linux-musl", "", "", false)
	require.NoError(t, err)

	assert.Equal(t, "x86_64-unknown-linux-musl", d.Triple())
	assert.Equal(t, Linux, d.HostOS())
	assert.Equal(t, Stable, d.Channel())
	assert.False(t, d.TestsDisabled())
}

func TestNew_RejectsEmptyTriple(t *testing.T) {
	_, err := New("   ", Linux, Stable, false)
	require.Error(t, err)

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "triple", vErr.Field)
	assert.Equal(t, -1, vErr.Entry)
}

func TestNew_RejectsUnknownValues(t *testing.T) {
	_, err := New("x86_64-apple-darwin", HostOS("windows"), Stable, false)
	assert.ErrorContains(t, err, "unknown host os")

	_, err = New("x86_64-apple-darwin", MacOS, Channel("beta"), false)
	assert.ErrorContains(t, err, "unknown toolchain channel")
}

func TestParseHostOS(t *testing.T) {
	cases := map[string]HostOS{"": Linux, "linux": Linux, "osx": MacOS, "macOS": MacOS, "darwin": MacOS}
	for in, want := range cases {
		got, err := ParseHostOS(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseHostOS("freebsd")
	assert.Error(t, err)
}

func TestParseChannel(t *testing.T) {
	ch, err := ParseChannel("")
	require.NoError(t, err)
	assert.Equal(t, Channel(""), ch)

	ch, err = ParseChannel("Nightly")
	require.NoError(t, err)
	assert.Equal(t, Nightly, ch)

	_, err = ParseChannel("beta")
	assert.Error(t, err)
}

func TestHostOS_TravisName(t *testing.T) {
	assert.Equal(t, "osx", MacOS.TravisName())
	assert.Equal(t, "linux", Linux.TravisName())
}
