package internal

import (
	"io"

	"github.com/starford/bilimsoz/internal/probe"
	"github.com/starford/bilimsoz/internal/sheets"
)

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config    *Config
	version   string
	logOutput io.Writer
	source    sheets.Source
	probe     probe.Probe
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server and logs.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithLogOutput redirects the JSON log. The MCP stdio transport owns
// stdout, so it logs to stderr.
func WithLogOutput(w io.Writer) Option {
	return func(a *application) {
		a.logOutput = w
	}
}

// WithSource replaces the configured remote source.
func WithSource(src sheets.Source) Option {
	return func(a *application) {
		a.source = src
	}
}

// WithProbe replaces the configured connectivity probe.
func WithProbe(p probe.Probe) Option {
	return func(a *application) {
		a.probe = p
	}
}
