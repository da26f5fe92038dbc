// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package notify emits job lifecycle events. Delivery is best effort: a
// notifier never fails a job or a run.
package notify

import (
	"context"
	"time"
)

// Event is one job lifecycle transition.
type Event struct {
	RunID    string    `json:"run_id"`
	JobID    string    `json:"job_id"`
	Triple   string    `json:"triple"`
	Channel  string    `json:"channel"`
	Status   string    `json:"status"`
	Phase    string    `json:"phase,omitempty"`
	ExitCode int       `json:"exit_code,omitempty"`
	Publish  string    `json:"publish,omitempty"`
	Time     time.Time `json:"time"`
}

// payload is the wire form handed to the socket.io encoder.
func (e Event) payload() map[string]any {
	m := map[string]any{
		"run_id":  e.RunID,
		"job_id":  e.JobID,
		"triple":  e.Triple,
		"channel": e.Channel,
		"status":  e.Status,
		"time":    e.Time.UTC().Format(time.RFC3339Nano),
	}
	if e.Phase != "" {
		m["phase"] = e.Phase
		m["exit_code"] = e.ExitCode
	}
	if e.Publish != "" {
		m["publish"] = e.Publish
	}
	return m
}

// Notifier delivers events.
type Notifier interface {
	Notify(ctx context.Context, ev Event)
	Close() error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Notify(context.Context, Event) {}
func (Nop) Close() error                  { return nil }
