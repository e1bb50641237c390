// Package http1 is a minimal HTTP/1.1 client engine running over a
// transport.Conn.
//
// A Client sends requests with Send and reads responses with Retrieve, one
// Retrieve per Send, in the order the requests were sent. Response bodies are
// fully buffered in memory.
package http1

import (
	"context"
	"crypto/tls"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/inetclient/inet/pkg/transport"
)

const (
	// DefaultTimeout is the idle timeout armed by Connect.
	DefaultTimeout = 5 * time.Second

	// DefaultHeaderLimit caps the status line and headers of a response.
	DefaultHeaderLimit = 8 * 1024

	// DefaultBodyLimit caps a response body.
	DefaultBodyLimit = 50 * 1024 * 1024
)

type config struct {
	tlsConfig     *tls.Config
	timeout       time.Duration
	headerLimit   int64
	bodyLimit     int64
	service       string
	logger        *slog.Logger
	transportOpts []transport.Option
}

// Option configures a Client.
type Option func(*config)

// WithTLSConfig sets the shared TLS configuration for encrypted connections.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *config) {
		c.tlsConfig = cfg
	}
}

// WithTimeout overrides DefaultTimeout. Zero disables the timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHeaderLimit overrides DefaultHeaderLimit.
func WithHeaderLimit(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.headerLimit = n
		}
	}
}

// WithBodyLimit overrides DefaultBodyLimit.
func WithBodyLimit(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.bodyLimit = n
		}
	}
}

// WithService overrides the "http"/"https" service used by Connect, for
// servers on non-standard ports.
func WithService(service string) Option {
	return func(c *config) {
		c.service = service
	}
}

// WithLogger sets the logger for the client and its transport.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithTransportOptions passes options to the underlying transport.
func WithTransportOptions(opts ...transport.Option) Option {
	return func(c *config) {
		c.transportOpts = append(c.transportOpts, opts...)
	}
}

// Client is a single-connection HTTP client. It is not safe for concurrent
// use.
type Client struct {
	cfg       config
	host      string
	encrypted bool
	conn      *transport.Conn
	pending   []Method
}

// New creates a disconnected client for host.
func New(host string, encrypted bool, opts ...Option) *Client {
	cfg := config{
		timeout:     DefaultTimeout,
		headerLimit: DefaultHeaderLimit,
		bodyLimit:   DefaultBodyLimit,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	c := &Client{cfg: cfg, host: host}
	c.setEncryption(encrypted)
	return c
}

func (c *Client) setEncryption(encrypted bool) {
	opts := append([]transport.Option{
		transport.WithLogger(c.cfg.logger),
		transport.WithHandshakeTimeout(c.cfg.timeout),
	}, c.cfg.transportOpts...)
	c.encrypted = encrypted
	if encrypted {
		c.conn = transport.NewConn(transport.NewTLS(c.cfg.tlsConfig, opts...))
	} else {
		c.conn = transport.NewConn(transport.NewTCP(opts...))
	}
}

func usageErr(op, msg string) error {
	return &transport.Error{Kind: transport.KindUsage, Op: op, Err: errors.New(msg)}
}

// Host returns the target host.
func (c *Client) Host() string {
	return c.host
}

// SetHost changes the target host. The client must be disconnected.
func (c *Client) SetHost(host string) error {
	if c.IsConnected() {
		return usageErr("set host", "client is connected")
	}
	c.host = host
	return nil
}

// SetEncryption switches between TCP and TLS. The client must be
// disconnected.
func (c *Client) SetEncryption(encrypted bool) error {
	if c.IsConnected() {
		return usageErr("set encryption", "client is connected")
	}
	if encrypted != c.encrypted {
		c.setEncryption(encrypted)
	}
	return nil
}

// Encrypted reports whether the client connects over TLS.
func (c *Client) Encrypted() bool {
	return c.encrypted
}

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	return c.conn.IsOpen()
}

// Protocol returns the transport protocol name.
func (c *Client) Protocol() string {
	return c.conn.Protocol()
}

// Pending returns the number of requests awaiting Retrieve.
func (c *Client) Pending() int {
	return len(c.pending)
}

// Connect opens the connection and arms the idle timeout.
func (c *Client) Connect(ctx context.Context) error {
	if c.IsConnected() {
		return usageErr("connect", "client is already connected")
	}

	service := c.cfg.service
	if service == "" {
		service = "http"
		if c.encrypted {
			service = "https"
		}
	}

	if err := c.conn.Open(ctx, c.host, service); err != nil {
		return err
	}
	if c.cfg.timeout > 0 {
		c.conn.EnableTimeout(c.cfg.timeout)
	} else {
		c.conn.DisableTimeout()
	}
	c.cfg.logger.Debug("connected", "host", c.host, "service", service, "protocol", c.conn.Protocol())
	return nil
}

// Disconnect drops every pending request and closes the connection.
func (c *Client) Disconnect() error {
	c.pending = nil
	if !c.IsConnected() {
		return nil
	}
	c.cfg.logger.Debug("disconnecting", "host", c.host)
	return c.conn.Close()
}

// Send writes msg and records it as pending.
func (c *Client) Send(msg *Message) error {
	if !c.IsConnected() {
		return usageErr("send", "client is not connected")
	}
	c.conn.ResetTimeout()

	if _, err := msg.WriteTo(c.conn); err != nil {
		return transport.Classify("send", err)
	}
	if err := c.conn.Flush(); err != nil {
		return err
	}

	c.pending = append(c.pending, msg.Method)
	c.cfg.logger.Debug("sent request", "method", msg.Method, "resource", msg.Resource, "body", len(msg.Body()))
	return nil
}

// Request sends a default message for the current host with the given
// resource and optional body.
func (c *Client) Request(m Method, resource string, body []byte) error {
	msg := NewMessage(m, c.host)
	msg.Resource = resource
	if body != nil {
		msg.SetBody(body)
	}
	return c.Send(msg)
}

// Retrieve reads the response to the oldest pending request. A 100 Continue
// interim response is returned without a body and leaves the request
// pending. A response with "Connection: close" disconnects the client.
func (c *Client) Retrieve() (*Response, error) {
	if len(c.pending) == 0 {
		return nil, usageErr("retrieve", "no request pending")
	}
	if !c.IsConnected() {
		return nil, usageErr("retrieve", "client is not connected")
	}
	method := c.pending[0]
	c.conn.ResetTimeout()

	c.conn.EnableReadLimit(c.cfg.headerLimit)
	line, err := c.conn.ReadLine()
	if err != nil {
		return nil, lineErr("read status line", err)
	}

	resp := &Response{Header: Header{}}
	if err := parseStatusLine(line, resp); err != nil {
		return nil, err
	}
	if err := readHeaders(c.conn, resp.Header); err != nil {
		return nil, err
	}

	c.conn.EnableReadLimit(c.cfg.bodyLimit)

	if resp.Status == StatusContinue {
		c.cfg.logger.Debug("interim response", "status", resp.Status)
		return resp, nil
	}

	if err := c.readBody(method, resp); err != nil {
		return nil, err
	}

	c.pending = c.pending[1:]
	c.cfg.logger.Debug("received response",
		"method", method,
		"status", resp.Status,
		"body", len(resp.Body))

	if resp.Header.Contains("Connection", "close") {
		if err := c.Disconnect(); err != nil {
			c.cfg.logger.Debug("close after response failed", "error", err)
		}
	}
	return resp, nil
}

func (c *Client) readBody(method Method, resp *Response) error {
	if method == HEAD {
		return nil
	}

	if resp.Header.Has("Content-Length") {
		v := strings.TrimSpace(resp.Header.Get("Content-Length"))
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			return transport.Errorf(transport.KindDecode, "read body", "invalid Content-Length %q", v)
		}
		if n > c.cfg.bodyLimit {
			return transport.Errorf(transport.KindQuota, "read body", "Content-Length %d exceeds limit %d", n, c.cfg.bodyLimit)
		}
		if n > 0 {
			resp.Body = make([]byte, n)
			if err := c.conn.ReadFull(resp.Body); err != nil {
				resp.Body = nil
				return err
			}
		}
		return nil
	}

	if resp.Version == HTTP11 && resp.Header.Contains("Transfer-Encoding", "chunked") {
		body, err := ReadChunked(c.conn, resp.Header, c.cfg.bodyLimit)
		if err != nil {
			return err
		}
		resp.Body = body
	}
	return nil
}

// parseStatusLine decodes "HTTP/x.y SSS reason" by fixed offsets.
func parseStatusLine(line string, resp *Response) error {
	if len(line) < 12 || !strings.HasPrefix(line, "HTTP/") {
		return transport.Errorf(transport.KindDecode, "read status line", "malformed status line %q", line)
	}

	switch {
	case line[5] == '0' && line[7] == '9':
		resp.Version = HTTP09
	case line[5] == '1' && line[7] == '0':
		resp.Version = HTTP10
	case line[5] == '1' && line[7] == '1':
		resp.Version = HTTP11
	case line[5] == '2' && line[7] == '0':
		resp.Version = HTTP20
	default:
		return transport.Errorf(transport.KindDecode, "read status line", "unknown version %q", line[:8])
	}

	code, err := strconv.Atoi(line[9:12])
	if err != nil || code < 100 {
		return transport.Errorf(transport.KindDecode, "read status line", "invalid status %q", line[9:12])
	}
	resp.Status = Status(code)

	if len(line) > 13 {
		resp.Reason = line[13:]
	}
	return nil
}
