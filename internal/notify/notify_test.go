package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventPayload(t *testing.T) {
	// --- Arrange ---
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev := Event{RunID: "r", JobID: "0-x-stable", Triple: "x", Channel: "stable", Status: "failed", Phase: "script", ExitCode: 101, Time: at}

	// --- Act ---
	p := ev.payload()

	// --- Assert ---
	assert.Equal(t, "failed", p["status"])
	assert.Equal(t, "script", p["phase"])
	assert.Equal(t, 101, p["exit_code"])
	assert.Equal(t, "2025-03-01T12:00:00Z", p["time"])
	assert.NotContains(t, p, "publish")
}

func TestEventPayload_OmitsPhaseForRunningJobs(t *testing.T) {
	p := Event{JobID: "0-x-stable", Status: "running"}.payload()

	assert.NotContains(t, p, "phase")
	assert.NotContains(t, p, "exit_code")
}

func TestNop(t *testing.T) {
	var n Notifier = Nop{}
	n.Notify(context.Background(), Event{JobID: "j"})
	assert.NoError(t, n.Close())
}

func TestDial_RejectsRelativeURL(t *testing.T) {
	_, err := Dial(context.Background(), Options{URL: "localhost/ws", Event: "job"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must be absolute")
}
