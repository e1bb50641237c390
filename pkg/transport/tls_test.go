package transport

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/inetclient/inet/pkg/tlsconfig"
)

// newTLSServer starts an HTTPS server. alpn overrides the advertised
// application protocols when non-nil.
func newTLSServer(t *testing.T, alpn []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Connection", "close")
		w.Write([]byte("secure"))
	}))
	if alpn != nil {
		srv.TLS = &tls.Config{NextProtos: alpn}
	}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

// trusting returns a client config that trusts srv's certificate.
func trusting(t *testing.T, srv *httptest.Server) *tls.Config {
	t.Helper()
	cfg, err := tlsconfig.New(tlsconfig.Config{})
	require.NoError(t, err)
	pool := x509.NewCertPool()
	pool.AddCert(srv.Certificate())
	cfg.RootCAs = pool
	return cfg
}

func splitAddr(t *testing.T, srv *httptest.Server) (string, string) {
	t.Helper()
	host, port, err := net.SplitHostPort(srv.Listener.Addr().String())
	require.NoError(t, err)
	return host, port
}

func TestTLS_OpenRequest(t *testing.T) {
	srv := newTLSServer(t, nil)
	host, port := splitAddr(t, srv)

	tr := NewTLS(trusting(t, srv), WithLogger(testLogger(t)))
	require.Equal(t, NotConnected, tr.Protocol())

	require.NoError(t, tr.Open(context.Background(), host, port))
	require.True(t, tr.IsOpen())
	require.Equal(t, "TLS 1.3", tr.Protocol())

	c := NewConn(tr)
	_, err := c.WriteString("GET / HTTP/1.1\r\nHost: " + host + "\r\nConnection: close\r\n\r\n")
	require.NoError(t, err)
	require.NoError(t, c.Flush())

	line, err := c.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "HTTP/1.1 200 OK", line)

	require.NoError(t, tr.Close())
	require.False(t, tr.IsOpen())
	require.Equal(t, NotConnected, tr.Protocol())
}

func TestTLS_MaxVersion12(t *testing.T) {
	srv := newTLSServer(t, nil)
	host, port := splitAddr(t, srv)

	cfg := trusting(t, srv)
	cfg.MaxVersion = tls.VersionTLS12

	tr := NewTLS(cfg)
	require.NoError(t, tr.Open(context.Background(), host, port))
	defer tr.Close()
	require.Equal(t, "TLS 1.2", tr.Protocol())
}

func TestTLS_ALPN(t *testing.T) {
	srv := newTLSServer(t, []string{"h2", "http/1.1"})
	host, port := splitAddr(t, srv)

	tr := NewTLS(trusting(t, srv), WithALPN("h2", "http/1.1"))
	require.NoError(t, tr.Open(context.Background(), host, port))
	require.Equal(t, "h2", tr.NegotiatedProtocol())

	require.NoError(t, tr.OpenALPN(context.Background(), host, port, []string{"http/1.1"}))
	require.Equal(t, "http/1.1", tr.NegotiatedProtocol())
	require.NoError(t, tr.Close())
	require.Empty(t, tr.NegotiatedProtocol())
}

func TestTLS_UntrustedCertificate(t *testing.T) {
	srv := newTLSServer(t, nil)
	host, port := splitAddr(t, srv)

	tr := NewTLS(nil, WithLogger(testLogger(t)))
	err := tr.Open(context.Background(), host, port)
	require.ErrorIs(t, err, ErrCertificate)
	require.Equal(t, KindCertificate, KindOf(err))
	require.False(t, tr.IsOpen())
	require.False(t, tr.Stream().Bound())
}

func TestTLS_HostnameMismatch(t *testing.T) {
	srv := newTLSServer(t, nil)
	_, port := splitAddr(t, srv)

	cfg := trusting(t, srv)
	cfg.ServerName = "wrong.invalid"

	tr := NewTLS(cfg)
	err := tr.Open(context.Background(), "127.0.0.1", port)
	require.ErrorIs(t, err, ErrCertificate)
}

func TestTLS_Insecure(t *testing.T) {
	srv := newTLSServer(t, nil)
	host, port := splitAddr(t, srv)

	cfg, err := tlsconfig.New(tlsconfig.Config{Insecure: true})
	require.NoError(t, err)

	tr := NewTLS(cfg)
	require.NoError(t, tr.Open(context.Background(), host, port))
	require.NoError(t, tr.Close())
}

func TestTLS_HandshakeWithPlainServer(t *testing.T) {
	host, port := setupTCPServer(t, func(c net.Conn) {
		c.Write([]byte("HTTP/1.0 400 Bad Request\r\n\r\n"))
	})

	tr := NewTLS(nil)
	err := tr.Open(context.Background(), host, port)
	require.ErrorIs(t, err, ErrHandshake)
	require.False(t, tr.IsOpen())
}

func TestTLS_HandshakeTimeout(t *testing.T) {
	done := make(chan struct{})
	host, port := setupTCPServer(t, func(c net.Conn) {
		<-done
	})
	defer close(done)

	tr := NewTLS(nil, WithHandshakeTimeout(100*time.Millisecond), WithLogger(testLogger(t)))
	start := time.Now()
	err := tr.Open(context.Background(), host, port)
	require.ErrorIs(t, err, ErrTimeout)
	require.Less(t, time.Since(start), 2*time.Second)
	require.False(t, tr.IsOpen())
}

func TestTLS_OpenRefused(t *testing.T) {
	tr := NewTLS(nil)
	err := tr.Open(context.Background(), "127.0.0.1", closedPort(t))
	require.ErrorIs(t, err, ErrOpen)
}

func TestTLS_SharedConfigNotMutated(t *testing.T) {
	srv := newTLSServer(t, nil)
	host, port := splitAddr(t, srv)

	cfg := trusting(t, srv)
	tr := NewTLS(cfg, WithALPN("http/1.1"))
	require.NoError(t, tr.Open(context.Background(), host, port))
	defer tr.Close()

	require.Empty(t, cfg.ServerName)
	require.Empty(t, cfg.NextProtos)
}
