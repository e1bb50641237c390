// Package websocket is a minimal WebSocket client engine running over a
// transport.Conn.
//
// Dial performs the HTTP upgrade and Send, Retrieve and Ping exchange frames
// afterwards. Every client frame is masked. Pings from the server are
// answered inside Retrieve and never reach the caller.
package websocket

import (
	"context"
	"crypto/rand"
	"crypto/sha1"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/gobwas/pool/pbytes"
	"github.com/gobwas/ws"

	"github.com/inetclient/inet/pkg/transport"
)

const (
	// DefaultTimeout is the idle timeout armed when the connection opens.
	DefaultTimeout = 5 * time.Second

	// DefaultMaxMessage caps the size of a reassembled message.
	DefaultMaxMessage = 50 * 1024 * 1024

	// HandshakeKey is the Sec-WebSocket-Key sent unless WithAcceptCheck is
	// set.
	HandshakeKey = "dGhlIHNhbXBsZSBub25jZQ=="

	acceptGUID = "258EAFA5-E914-47DA-95CA-C5AB0DC85B11"

	// maskChunk bounds the scratch buffer used to mask outgoing payloads.
	maskChunk = 16 * 1024
)

// State is the lifecycle stage of a Client.
type State int

const (
	StateIdle State = iota
	StateConnected
	StateUpgraded
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnected:
		return "connected"
	case StateUpgraded:
		return "upgraded"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type config struct {
	tlsConfig     *tls.Config
	timeout       time.Duration
	service       string
	maxMessage    int64
	acceptCheck   bool
	randomMask    bool
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

// WithService overrides the "http"/"https" service used to connect.
func WithService(service string) Option {
	return func(c *config) {
		c.service = service
	}
}

// WithMaxMessage overrides DefaultMaxMessage.
func WithMaxMessage(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxMessage = n
		}
	}
}

// WithAcceptCheck sends a random Sec-WebSocket-Key and verifies the server's
// Sec-WebSocket-Accept.
func WithAcceptCheck() Option {
	return func(c *config) {
		c.acceptCheck = true
	}
}

// WithRandomMask draws a fresh mask key for every frame instead of
// DefaultMask.
func WithRandomMask() Option {
	return func(c *config) {
		c.randomMask = true
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

// Client is a single-connection WebSocket client. It is not safe for
// concurrent use.
type Client struct {
	cfg       config
	host      string
	encrypted bool
	conn      *transport.Conn
	state     State
}

// New creates an idle client for host.
func New(host string, encrypted bool, opts ...Option) *Client {
	cfg := config{
		timeout:    DefaultTimeout,
		maxMessage: DefaultMaxMessage,
		logger:     slog.New(slog.DiscardHandler),
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

// IsConnected reports whether the connection is open.
func (c *Client) IsConnected() bool {
	return c.conn.IsOpen()
}

// State returns the lifecycle stage.
func (c *Client) State() State {
	return c.state
}

// Protocol returns the transport protocol name.
func (c *Client) Protocol() string {
	return c.conn.Protocol()
}

// Connect opens the transport without an upgrade handshake, to resume frame
// I/O with a server that already considers the socket upgraded.
func (c *Client) Connect(ctx context.Context) error {
	if err := c.open(ctx); err != nil {
		return err
	}
	c.state = StateConnected
	return nil
}

func (c *Client) open(ctx context.Context) error {
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
		c.state = StateClosed
		return err
	}
	if c.cfg.timeout > 0 {
		c.conn.EnableTimeout(c.cfg.timeout)
	} else {
		c.conn.DisableTimeout()
	}
	c.conn.DisableReadLimit()
	c.cfg.logger.Debug("connected", "host", c.host, "service", service, "protocol", c.conn.Protocol())
	return nil
}

// Dial opens the transport and upgrades resource to a WebSocket. Any
// failure after the transport opened closes it and is a handshake error.
func (c *Client) Dial(ctx context.Context, resource string) error {
	if err := c.open(ctx); err != nil {
		return err
	}
	if err := c.upgrade(resource); err != nil {
		c.shutdown()
		c.cfg.logger.Debug("upgrade failed", "resource", resource, "error", err)
		return &transport.Error{Kind: transport.KindHandshake, Op: "upgrade", Err: err}
	}
	c.state = StateUpgraded
	c.cfg.logger.Debug("upgraded", "resource", resource)
	return nil
}

func (c *Client) upgrade(resource string) error {
	key := HandshakeKey
	if c.cfg.acceptCheck {
		var nonce [16]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return err
		}
		key = base64.StdEncoding.EncodeToString(nonce[:])
	}

	req := "GET " + resource + " HTTP/1.1\r\n" +
		"Host: " + c.host + "\r\n" +
		"Upgrade: websocket\r\n" +
		"Connection: Upgrade\r\n" +
		"Sec-WebSocket-Key: " + key + "\r\n" +
		"Sec-WebSocket-Version: 13\r\n" +
		"\r\n"
	if _, err := c.conn.WriteString(req); err != nil {
		return err
	}
	if err := c.conn.Flush(); err != nil {
		return err
	}

	line, err := c.conn.ReadLine()
	if err != nil {
		return err
	}
	if len(line) < 12 || line[9:12] != "101" {
		return fmt.Errorf("unexpected status line %q", line)
	}

	var accept string
	for {
		line, err := c.conn.ReadLine()
		if err != nil {
			return err
		}
		if line == "" {
			break
		}
		name, value, _ := strings.Cut(line, ":")
		if strings.EqualFold(name, "Sec-WebSocket-Accept") {
			accept = strings.TrimSpace(value)
		}
	}

	if c.cfg.acceptCheck && accept != AcceptKey(key) {
		return fmt.Errorf("invalid Sec-WebSocket-Accept %q", accept)
	}
	return nil
}

// AcceptKey returns the Sec-WebSocket-Accept value a server derives from key.
func AcceptKey(key string) string {
	sum := sha1.Sum([]byte(key + acceptGUID))
	return base64.StdEncoding.EncodeToString(sum[:])
}

func (c *Client) ready(op string) error {
	if (c.state != StateConnected && c.state != StateUpgraded) || !c.IsConnected() {
		return usageErr(op, "client is not connected")
	}
	return nil
}

// shutdown closes the transport without a close frame.
func (c *Client) shutdown() {
	if err := c.conn.Close(); err != nil {
		c.cfg.logger.Debug("close failed", "error", err)
	}
	c.state = StateClosed
}

// fail closes the transport and classifies err.
func (c *Client) fail(op string, err error) error {
	c.shutdown()
	return transport.Classify(op, err)
}

func (c *Client) mask() [4]byte {
	if c.cfg.randomMask {
		return ws.NewMask()
	}
	return DefaultMask
}

// writeFrame sends a single final masked frame and flushes.
func (c *Client) writeFrame(op OpCode, payload []byte) error {
	mask := c.mask()
	h := Header{Fin: true, OpCode: op, Masked: true, Mask: mask, Length: int64(len(payload))}
	if err := WriteHeader(c.conn, h); err != nil {
		return err
	}

	buf := pbytes.GetLen(min(len(payload), maskChunk))
	defer pbytes.Put(buf)
	for off := 0; off < len(payload); {
		n := copy(buf, payload[off:])
		Cipher(buf[:n], mask, off)
		if _, err := c.conn.Write(buf[:n]); err != nil {
			return err
		}
		off += n
	}
	return c.conn.Flush()
}

// Send writes data as a single text or binary frame.
func (c *Client) Send(data []byte, text bool) error {
	if err := c.ready("send"); err != nil {
		return err
	}
	op := OpBinary
	if text {
		op = OpText
	}
	if err := c.writeFrame(op, data); err != nil {
		return c.fail("send", err)
	}
	return nil
}

// Ping sends a ping. Payloads beyond 125 bytes are truncated.
func (c *Client) Ping(data []byte) error {
	if err := c.ready("ping"); err != nil {
		return err
	}
	if len(data) > MaxControlPayload {
		data = data[:MaxControlPayload]
	}
	if err := c.writeFrame(OpPing, data); err != nil {
		return c.fail("ping", err)
	}
	return nil
}

// Retrieve reads the next message and appends its payload to buf.
// Fragmented messages are reassembled. A Close message is delivered and the
// transport is closed afterwards. Any error closes the transport.
func (c *Client) Retrieve(buf []byte) ([]byte, FrameType, error) {
	if err := c.ready("retrieve"); err != nil {
		return buf, 0, err
	}
	c.conn.ResetTimeout()

	var (
		typ     FrameType
		started bool
		base    = len(buf)
	)
	for {
		h, err := ReadHeader(c.conn)
		if err != nil {
			return buf, 0, c.fail("read frame", err)
		}

		if h.OpCode == OpPing {
			// The pong is masked even for an unmasked ping: client frames
			// always carry a mask.
			if err := c.pong(h); err != nil {
				return buf, 0, c.fail("pong", err)
			}
			continue
		}

		if h.OpCode == OpContinuation {
			if !started {
				return buf, 0, c.fail("read frame", transport.Errorf(transport.KindDecode, "read frame", "continuation frame without a message"))
			}
		} else {
			t, ok := frameType(h.OpCode)
			if !ok {
				return buf, 0, c.fail("read frame", transport.Errorf(transport.KindDecode, "read frame", "unknown opcode 0x%x", byte(h.OpCode)))
			}
			if started && h.OpCode.IsData() {
				return buf, 0, c.fail("read frame", transport.Errorf(transport.KindDecode, "read frame", "new message inside a fragmented message"))
			}
			if started && t == Pong {
				// Unsolicited or late pong between fragments.
				if err := c.conn.Discard(h.Length); err != nil {
					return buf, 0, c.fail("read frame", err)
				}
				continue
			}
			if started && t == Close {
				buf = buf[:base]
			}
			typ = t
		}

		if h.Length > c.cfg.maxMessage-int64(len(buf)-base) {
			return buf, 0, c.fail("read frame", transport.Errorf(transport.KindQuota, "read frame", "message exceeds %d bytes", c.cfg.maxMessage))
		}

		start := len(buf)
		buf = slices.Grow(buf, int(h.Length))[:start+int(h.Length)]
		if err := c.conn.ReadFull(buf[start:]); err != nil {
			return buf[:start], 0, c.fail("read frame", err)
		}
		if h.Masked {
			Cipher(buf[start:], h.Mask, 0)
		}

		if h.Fin || typ == Close {
			break
		}
		started = true
	}

	if typ == Close {
		c.cfg.logger.Debug("close frame received")
		c.shutdown()
	}
	return buf, typ, nil
}

// pong reads a ping payload and echoes it back masked.
func (c *Client) pong(h Header) error {
	if h.Length > MaxControlPayload {
		return transport.Errorf(transport.KindDecode, "read frame", "ping payload of %d bytes", h.Length)
	}
	payload := pbytes.GetLen(int(h.Length))
	defer pbytes.Put(payload)

	if err := c.conn.ReadFull(payload); err != nil {
		return err
	}
	if h.Masked {
		Cipher(payload, h.Mask, 0)
	}
	c.cfg.logger.Debug("answering ping", "size", len(payload))
	return c.writeFrame(OpPong, payload)
}

// Disconnect sends an empty close frame, ignoring any reply, and closes the
// transport.
func (c *Client) Disconnect() error {
	if !c.IsConnected() {
		c.state = StateClosed
		return nil
	}
	if err := c.writeFrame(OpClose, nil); err != nil {
		c.cfg.logger.Debug("close frame failed", "error", err)
	}
	c.state = StateClosed
	return c.conn.Close()
}
