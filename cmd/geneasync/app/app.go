// Package app provides the application context and dependency management
// for the geneasync CLI. It centralizes configuration, logging and the
// lifecycle of the client.
package app

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/geneasync"
	"github.com/agentstation/geneasync/pkg/constants"
	"github.com/agentstation/geneasync/pkg/errors"
)

// App represents the geneasync application with all its dependencies.
type App struct {
	// Version information
	version string
	commit  string
	date    string
	builtBy string

	// Configuration
	config *Config

	// Logger
	logger *zerolog.Logger

	// Pause after force mode is announced, so the operator can abort
	forceDelay time.Duration

	// Command output
	stdout io.Writer
	stderr io.Writer

	// Client instance (lazy-initialized, singleton)
	mu         sync.Mutex
	client     geneasync.Client
	clientOpts []geneasync.Option
}

// New creates a new App instance with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version:    version,
		commit:     commit,
		date:       date,
		builtBy:    builtBy,
		forceDelay: constants.ForceWarningDelay,
		stdout:     os.Stdout,
		stderr:     os.Stderr,
	}

	config, err := LoadConfig("")
	if err != nil {
		return nil, errors.WrapResource("load", "config", "", err)
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}

	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// Client returns the client, opening it from the configuration on first use.
func (a *App) Client(ctx context.Context, opts ...geneasync.Option) (geneasync.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	all := append(a.buildClientOptions(), a.clientOpts...)
	all = append(all, opts...)
	c, err := geneasync.New(ctx, all...)
	if err != nil {
		return nil, errors.WrapResource("create", "client", a.config.Database, err)
	}

	a.client = c
	return c, nil
}

// Shutdown closes the client. A snapshot database is written at this point.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client == nil {
		return nil
	}
	err := a.client.Close()
	a.client = nil
	return err
}

// buildClientOptions constructs client options from the app configuration.
func (a *App) buildClientOptions() []geneasync.Option {
	opts := []geneasync.Option{
		geneasync.WithDelay(a.config.MinDelay, a.config.MaxDelay),
	}
	if a.config.Database != "" {
		opts = append(opts, geneasync.WithDatabase(a.config.Database))
	}
	if a.config.Replay != "" {
		opts = append(opts, geneasync.WithReplay(a.config.Replay))
	}
	if a.config.BaseURL != "" {
		opts = append(opts, geneasync.WithBaseURL(a.config.BaseURL))
	}
	if a.config.SessionCookie != "" {
		opts = append(opts, geneasync.WithSessionCookie(a.config.SessionCookie))
	}
	if a.config.UserAgent != "" {
		opts = append(opts, geneasync.WithUserAgent(a.config.UserAgent))
	}
	return opts
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithClientOptions adds options to every client the app opens (useful for testing).
func WithClientOptions(opts ...geneasync.Option) Option {
	return func(a *App) error {
		a.clientOpts = append(a.clientOpts, opts...)
		return nil
	}
}

// WithOutput redirects command output (useful for testing).
func WithOutput(stdout, stderr io.Writer) Option {
	return func(a *App) error {
		a.stdout, a.stderr = stdout, stderr
		return nil
	}
}

// WithForceDelay sets the pause after force mode is announced.
func WithForceDelay(d time.Duration) Option {
	return func(a *App) error {
		a.forceDelay = d
		return nil
	}
}
