package nntp

import (
	"crypto/tls"
	"log/slog"
	"time"
)

// Option is a functional option for configuring the client.
type Option func(*Options)

// Options holds all client configuration.
type Options struct {
	// TLSConfig is the TLS configuration used by DialTLS.
	TLSConfig *tls.Config

	// Logger receives wire-level protocol logging at debug level.
	Logger *slog.Logger

	// Timeout bounds each command round-trip, including the dot-block
	// body of multi-line responses.
	Timeout time.Duration

	// User and Pass are sent via AUTHINFO right after the greeting when
	// User is non-empty.
	User string
	Pass string
}

// DefaultOptions returns Options with sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		Logger:  slog.Default(),
		Timeout: 30 * time.Second,
	}
}

// WithTLSConfig sets the TLS configuration.
func WithTLSConfig(config *tls.Config) Option {
	return func(o *Options) {
		o.TLSConfig = config
	}
}

// WithLogger sets the structured logger for wire traces.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithTimeout sets the per-command timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.Timeout = d
	}
}

// WithAuth sets credentials presented during the connection handshake.
func WithAuth(user, pass string) Option {
	return func(o *Options) {
		o.User = user
		o.Pass = pass
	}
}
