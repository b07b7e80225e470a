package internal

import "github.com/fleetingnotes/fleeting-sync/internal/remote"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config *Config
	client remote.Client
}

func newApplication(opts ...Option) *application {
	a := &application{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithRemoteClient overrides the HTTP note-store client, mainly for tests.
func WithRemoteClient(c remote.Client) Option {
	return func(a *application) {
		a.client = c
	}
}
