package sheets

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"
)

// TLSOptions configures the HTTP client used to reach the sink.
// All file paths are optional.
type TLSOptions struct {
	// Timeout bounds a whole request. Zero means no timeout.
	Timeout time.Duration
	// CAFile adds a PEM bundle to the trusted roots.
	CAFile string
	// CertFile and KeyFile enable a client certificate (mutual TLS).
	CertFile string
	KeyFile  string
}

// NewHTTPClient builds an *http.Client from opts.
func NewHTTPClient(opts TLSOptions) (*http.Client, error) {
	if opts.CAFile == "" && opts.CertFile == "" && opts.KeyFile == "" {
		return &http.Client{Timeout: opts.Timeout}, nil
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}

	if opts.CAFile != "" {
		caCert, err := os.ReadFile(opts.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA cert: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(caCert) {
			return nil, errors.New("failed to parse CA cert")
		}
		tlsConfig.RootCAs = pool
	}

	if opts.CertFile != "" || opts.KeyFile != "" {
		cert, err := tls.LoadX509KeyPair(opts.CertFile, opts.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return &http.Client{Transport: transport, Timeout: opts.Timeout}, nil
}
