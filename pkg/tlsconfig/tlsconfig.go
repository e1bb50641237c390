// Package tlsconfig builds the shared client TLS configuration.
//
// The returned *tls.Config is the process-wide cryptographic context: build it
// once at start-up and hand the same value to every TLS transport. It must not
// be mutated afterwards.
package tlsconfig

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// Config holds TLS client options.
type Config struct {
	// Insecure disables certificate verification.
	// NOT RECOMMENDED FOR PRODUCTION USE.
	Insecure bool

	// CAFile is a PEM file of trusted CA certificates. If empty, the system
	// roots are used.
	CAFile string

	// ALPN lists the application protocols offered during the handshake.
	ALPN []string
}

// CipherSuites are the TLS 1.2 suites offered to servers: ECDHE key exchange
// with AES-GCM only. TLS 1.3 suites are not configurable in crypto/tls and are
// always enabled.
var CipherSuites = []uint16{
	tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
	tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
	tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
}

// New creates a client *tls.Config with a minimum of TLS 1.2.
func New(cfg Config) (*tls.Config, error) {
	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		CipherSuites: CipherSuites,
	}

	if cfg.Insecure {
		tlsCfg.InsecureSkipVerify = true
	}

	if len(cfg.ALPN) > 0 {
		tlsCfg.NextProtos = append([]string(nil), cfg.ALPN...)
	}

	if cfg.CAFile != "" {
		pool, err := LoadCertPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

// LoadCertPool reads a PEM bundle into a fresh certificate pool.
func LoadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate file %q: %w", path, err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("failed to parse CA certificate file %q: no valid certificates found", path)
	}
	return pool, nil
}

// VersionName returns the protocol name for a negotiated TLS version.
func VersionName(version uint16) string {
	switch version {
	case tls.VersionTLS12:
		return "TLS 1.2"
	case tls.VersionTLS13:
		return "TLS 1.3"
	default:
		return "TLS"
	}
}
