package transport

import (
	"context"
	"net"
	"strconv"

	"github.com/inetclient/inet/pkg/breakerpool"
	"github.com/inetclient/inet/pkg/bufstream"
)

// TCP is a plain TCP transport.
type TCP struct {
	cfg    config
	stream *bufstream.Stream
	conn   net.Conn
	open   bool
}

var _ Transport = (*TCP)(nil)

// NewTCP creates a closed TCP transport.
func NewTCP(opts ...Option) *TCP {
	cfg := newConfig(opts)
	return &TCP{
		cfg:    cfg,
		stream: bufstream.New(cfg.streamOpts...),
	}
}

// IsOpen reports whether the transport holds a live connection.
func (t *TCP) IsOpen() bool {
	return t.open
}

// Open resolves host and service and connects to the first candidate address
// that accepts.
func (t *TCP) Open(ctx context.Context, host, service string) error {
	_ = t.Close()

	conn, err := t.dial(ctx, host, service)
	if err != nil {
		return err
	}
	t.attach(conn)
	return nil
}

// dial resolves host:service and walks the candidate addresses in resolver
// order. Each candidate gets one attempt.
func (t *TCP) dial(ctx context.Context, host, service string) (net.Conn, error) {
	log := t.cfg.logger.With("host", host, "service", service)

	addrs, err := t.resolve(ctx, host, service)
	if err != nil {
		log.Debug("resolve failed", "error", err)
		return nil, &Error{Kind: KindOpen, Op: "open", Err: err}
	}

	pool := breakerpool.Ordered[net.Conn](addrs)
	conn, err := pool.Execute(ctx, func(ctx context.Context, addr string) (net.Conn, error) {
		log.Debug("dialing", "addr", addr)
		c, err := t.cfg.dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			log.Debug("dial failed", "addr", addr, "error", err)
		}
		return c, err
	})
	if err != nil {
		return nil, &Error{Kind: KindOpen, Op: "open", Err: err}
	}

	if tc, ok := conn.(*net.TCPConn); ok {
		if err := tc.SetNoDelay(true); err != nil {
			conn.Close()
			return nil, &Error{Kind: KindOpen, Op: "open", Err: err}
		}
	}
	log.Debug("connected", "remote", conn.RemoteAddr().String())
	return conn, nil
}

// resolve returns host:port candidates in resolver order.
func (t *TCP) resolve(ctx context.Context, host, service string) ([]string, error) {
	port, err := t.cfg.resolver.LookupPort(ctx, "tcp", service)
	if err != nil {
		return nil, err
	}

	ips, err := t.cfg.resolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}

	p := strconv.Itoa(port)
	addrs := make([]string, 0, len(ips))
	for _, ip := range ips {
		addrs = append(addrs, net.JoinHostPort(ip.String(), p))
	}
	return addrs, nil
}

// attach binds the stream to conn and only then flags the transport open.
func (t *TCP) attach(conn net.Conn) {
	t.conn = conn
	t.stream.Bind(conn)
	t.open = true
}

// Close flushes, unbinds and closes the connection.
func (t *TCP) Close() error {
	if t.conn == nil {
		return nil
	}
	_ = t.stream.Flush()
	t.stream.Unbind()
	err := t.conn.Close()
	t.conn = nil
	t.open = false
	return err
}

// Protocol returns "TCP" while open.
func (t *TCP) Protocol() string {
	if !t.open {
		return NotConnected
	}
	return "TCP"
}

// Stream returns the buffered stream.
func (t *TCP) Stream() *bufstream.Stream {
	return t.stream
}

// RemoteAddr returns the peer address, or nil while closed.
func (t *TCP) RemoteAddr() net.Addr {
	if t.conn == nil {
		return nil
	}
	return t.conn.RemoteAddr()
}
