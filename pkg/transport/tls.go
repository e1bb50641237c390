package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"

	"github.com/inetclient/inet/pkg/bufstream"
	"github.com/inetclient/inet/pkg/tlsconfig"
)

// TLS is a TLS transport layered over a TCP transport.
type TLS struct {
	tcp    *TCP
	config *tls.Config
	conn   *tls.Conn
}

var _ Transport = (*TLS)(nil)

// NewTLS creates a closed TLS transport. cfg is shared and never mutated; a
// nil cfg uses the defaults of tlsconfig.New.
func NewTLS(cfg *tls.Config, opts ...Option) *TLS {
	if cfg == nil {
		cfg, _ = tlsconfig.New(tlsconfig.Config{})
	}
	return &TLS{
		tcp:    NewTCP(opts...),
		config: cfg,
	}
}

// IsOpen reports whether the handshake completed and the stream is bound.
func (t *TLS) IsOpen() bool {
	return t.tcp.IsOpen()
}

// Open connects and handshakes offering the ALPN protocols set with WithALPN.
func (t *TLS) Open(ctx context.Context, host, service string) error {
	return t.OpenALPN(ctx, host, service, t.tcp.cfg.alpn)
}

// OpenALPN connects and handshakes offering protos. The stream is bound only
// after the handshake succeeded.
func (t *TLS) OpenALPN(ctx context.Context, host, service string, protos []string) error {
	_ = t.Close()

	raw, err := t.tcp.dial(ctx, host, service)
	if err != nil {
		return err
	}

	cfg := t.config.Clone()
	if cfg.ServerName == "" {
		cfg.ServerName = host
	}
	if len(protos) > 0 {
		cfg.NextProtos = protos
	}

	if d := t.tcp.cfg.handshake; d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	conn := tls.Client(raw, cfg)
	if err := conn.HandshakeContext(ctx); err != nil {
		raw.Close()
		t.tcp.cfg.logger.Debug("handshake failed", "host", host, "error", err)
		return &Error{Kind: handshakeKind(err), Op: "handshake", Err: err}
	}

	t.conn = conn
	t.tcp.attach(conn)

	state := conn.ConnectionState()
	t.tcp.cfg.logger.Debug("handshake complete",
		"host", host,
		"version", tlsconfig.VersionName(state.Version),
		"alpn", state.NegotiatedProtocol)
	return nil
}

// handshakeKind separates certificate verification failures from other
// negotiation failures.
func handshakeKind(err error) Kind {
	var (
		verify   *tls.CertificateVerificationError
		unknown  x509.UnknownAuthorityError
		hostname x509.HostnameError
		invalid  x509.CertificateInvalidError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.As(err, &verify),
		errors.As(err, &unknown),
		errors.As(err, &hostname),
		errors.As(err, &invalid):
		return KindCertificate
	}
	return KindHandshake
}

// Close sends close_notify and closes the connection.
func (t *TLS) Close() error {
	t.conn = nil
	return t.tcp.Close()
}

// Protocol returns "TLS 1.2", "TLS 1.3" or "TLS" while open.
func (t *TLS) Protocol() string {
	if !t.IsOpen() || t.conn == nil {
		return NotConnected
	}
	return tlsconfig.VersionName(t.conn.ConnectionState().Version)
}

// NegotiatedProtocol returns the ALPN protocol agreed with the server.
func (t *TLS) NegotiatedProtocol() string {
	if t.conn == nil {
		return ""
	}
	return t.conn.ConnectionState().NegotiatedProtocol
}

// Stream returns the buffered stream.
func (t *TLS) Stream() *bufstream.Stream {
	return t.tcp.Stream()
}
