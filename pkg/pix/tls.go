package pix

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
	"time"
)

// TLSConfig points at the PSP-issued client certificate pair and an optional
// extra trust root for PSPs whose chain is not in the system pool.
type TLSConfig struct {
	CertPath string
	KeyPath  string
	CAPath   string
	Timeout  time.Duration
}

// NewMTLSClient builds the HTTP client used for both the token exchange and
// charge calls. Server verification always stays on.
func NewMTLSClient(cfg TLSConfig) (*http.Client, error) {
	if cfg.CertPath == "" || cfg.KeyPath == "" {
		return nil, ErrMissingCertificate
	}
	cert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("load client certificate: %w", err)
	}
	tlsCfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	if cfg.CAPath != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(cfg.CAPath)
		if err != nil {
			return nil, fmt.Errorf("read ca bundle: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("ca bundle %s: no certificates found", cfg.CAPath)
		}
		tlsCfg.RootCAs = pool
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsCfg
	return &http.Client{Timeout: timeout, Transport: transport}, nil
}
