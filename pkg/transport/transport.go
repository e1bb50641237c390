// Package transport opens byte channels to remote services and exposes them
// through a buffered stream.
//
// TCP and TLS implement Transport. Conn wraps any Transport with the line,
// byte and block primitives the protocol engines are written against.
package transport

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/inetclient/inet/pkg/bufstream"
)

// Transport is an endpoint that can be opened against a host and service and
// read or written through its stream.
type Transport interface {
	// IsOpen reports whether the stream is bound to a live channel.
	IsOpen() bool

	// Open closes any existing channel, then connects to host:service.
	// Service is a well-known name such as "http" or a decimal port.
	Open(ctx context.Context, host, service string) error

	// Close flushes pending output best effort, unbinds the stream and
	// closes the channel. Closing a closed transport is a no-op.
	Close() error

	// Protocol names the active protocol, or "Not connected".
	Protocol() string

	// Stream returns the buffered stream. It stays the same value across
	// opens and is unbound while the transport is closed.
	Stream() *bufstream.Stream
}

// NotConnected is the protocol name of a closed transport.
const NotConnected = "Not connected"

type config struct {
	dialer     *net.Dialer
	resolver   *net.Resolver
	logger     *slog.Logger
	streamOpts []bufstream.Option
	alpn       []string
	handshake  time.Duration
}

func newConfig(opts []Option) config {
	cfg := config{
		dialer:   &net.Dialer{},
		resolver: net.DefaultResolver,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a transport.
type Option func(*config)

// WithDialer sets the dialer used for every candidate address.
func WithDialer(d *net.Dialer) Option {
	return func(c *config) {
		if d != nil {
			c.dialer = d
		}
	}
}

// WithResolver sets the resolver for host names and service names.
func WithResolver(r *net.Resolver) Option {
	return func(c *config) {
		if r != nil {
			c.resolver = r
		}
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithStreamOptions configures the transport's buffered stream.
func WithStreamOptions(opts ...bufstream.Option) Option {
	return func(c *config) {
		c.streamOpts = append(c.streamOpts, opts...)
	}
}

// WithALPN sets the application protocols offered by a TLS transport.
func WithALPN(protos ...string) Option {
	return func(c *config) {
		c.alpn = append([]string(nil), protos...)
	}
}

// WithHandshakeTimeout bounds the TLS handshake when the context passed to
// Open carries no earlier deadline. Zero leaves it unbounded.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *config) {
		c.handshake = d
	}
}
