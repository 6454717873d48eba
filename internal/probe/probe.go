// Package probe answers whether the remote source is reachable right now.
package probe

import (
	"context"
	"log/slog"
	"net"
	"sync/atomic"
	"time"
)

// DefaultTarget is dialed when no targets are configured.
const DefaultTarget = "sheets.googleapis.com:443"

// DefaultTimeout bounds a single IsOnline call.
const DefaultTimeout = 2 * time.Second

// Probe reports connectivity. Implementations never block longer than a
// short timeout and never fail: any internal error means offline.
type Probe interface {
	IsOnline() bool
}

// DialFunc matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// DialProbe considers the host online when a TCP connection to any of its
// targets succeeds within the timeout.
type DialProbe struct {
	targets []string
	timeout time.Duration
	dial    DialFunc
	logger  *slog.Logger
}

// Option configures a DialProbe.
type Option func(*DialProbe)

// WithDialFunc replaces the dialer, for tests.
func WithDialFunc(fn DialFunc) Option {
	return func(p *DialProbe) { p.dial = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *DialProbe) { p.logger = l }
}

// NewDialProbe creates a probe over targets ("host:port").
func NewDialProbe(targets []string, timeout time.Duration, opts ...Option) *DialProbe {
	if len(targets) == 0 {
		targets = []string{DefaultTarget}
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	d := &net.Dialer{}
	p := &DialProbe{
		targets: targets,
		timeout: timeout,
		dial:    d.DialContext,
		logger:  slog.Default(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// IsOnline dials every target concurrently and returns true on the first
// successful connection.
func (p *DialProbe) IsOnline() (online bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("probe: panic", slog.Any("panic", r))
			online = false
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	results := make(chan bool, len(p.targets))
	for _, target := range p.targets {
		go func(target string) {
			defer func() {
				if r := recover(); r != nil {
					results <- false
				}
			}()
			conn, err := p.dial(ctx, "tcp", target)
			if err != nil {
				p.logger.Debug("probe: dial failed", slog.String("target", target), slog.String("error", err.Error()))
				results <- false
				return
			}
			conn.Close()
			results <- true
		}(target)
	}

	for range p.targets {
		select {
		case ok := <-results:
			if ok {
				return true
			}
		case <-ctx.Done():
			return false
		}
	}
	return false
}

// Static is a probe with a fixed answer that can be flipped at runtime.
type Static struct {
	online atomic.Bool
}

// NewStatic returns a Static probe reporting online.
func NewStatic(online bool) *Static {
	s := &Static{}
	s.online.Store(online)
	return s
}

// IsOnline implements Probe.
func (s *Static) IsOnline() bool {
	return s.online.Load()
}

// Set changes the reported state.
func (s *Static) Set(online bool) {
	s.online.Store(online)
}

var (
	_ Probe = (*DialProbe)(nil)
	_ Probe = (*Static)(nil)
)
