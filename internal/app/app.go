// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"

	"github.com/specialistvlad/buildgridgo/internal/ctxlog"
	"github.com/specialistvlad/buildgridgo/internal/inmemorystore"
	"github.com/specialistvlad/buildgridgo/internal/jobstore"
	"github.com/specialistvlad/buildgridgo/internal/notify"
	"github.com/specialistvlad/buildgridgo/internal/publish"
	"github.com/specialistvlad/buildgridgo/internal/runner"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	ctx    context.Context
	config *Config

	lookupEnv func(string) (string, bool)
	invoker   runner.Invoker
	publisher publish.Publisher
	notifier  notify.Notifier
	store     jobstore.Store

	httpServer *http.Server
}

// Option customizes an App. Options exist mainly for tests.
type Option func(*App)

// WithLookupEnv replaces the process environment.
func WithLookupEnv(lookup func(string) (string, bool)) Option {
	return func(a *App) { a.lookupEnv = lookup }
}

// WithInvoker replaces the process invoker of the job runner.
func WithInvoker(inv runner.Invoker) Option {
	return func(a *App) { a.invoker = inv }
}

// WithPublisher replaces the publisher built from the deploy settings.
func WithPublisher(p publish.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithNotifier replaces the notifier built from the notify settings.
func WithNotifier(n notify.Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger and job store.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		outW:      outW,
		logger:    logger,
		ctx:       ctxlog.WithLogger(context.Background(), logger),
		config:    cfg,
		lookupEnv: os.LookupEnv,
		store:     inmemorystore.New(),
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.")
	return a
}

// Store returns the job store of the current run. This is primarily for testing.
func (a *App) Store() jobstore.Store {
	return a.store
}
