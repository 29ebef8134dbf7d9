package client

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"github.com/recallcontext/recall-cli/config"
)

// LoadClientTLSConfig creates a tls.Config for https backends.
// Returns nil when no certificates are configured and verification is on, in
// which case the system roots apply.
func LoadClientTLSConfig(cfg *config.TLSConfig, insecure bool) (*tls.Config, error) {
	// Resolve paths (expands ~ and sets defaults from CertDir).
	cfg.ResolvePaths()

	skipVerify := cfg.SkipVerify || insecure
	if cfg.CACert == "" && cfg.ClientCert == "" && !skipVerify {
		return nil, nil
	}

	tlsConfig := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: skipVerify,
	}

	// Client certificate for deployments behind an mTLS proxy.
	if cfg.ClientCert != "" || cfg.ClientKey != "" {
		cert, err := tls.LoadX509KeyPair(cfg.ClientCert, cfg.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("load client cert: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	}

	if cfg.CACert != "" && !skipVerify {
		caCert, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA cert: %w", err)
		}

		caPool := x509.NewCertPool()
		if !caPool.AppendCertsFromPEM(caCert) {
			return nil, fmt.Errorf("parse CA cert: invalid PEM")
		}

		tlsConfig.RootCAs = caPool
	}

	return tlsConfig, nil
}

// CheckCertsExist verifies that every configured certificate file is present.
func CheckCertsExist(cfg *config.TLSConfig) error {
	cfg.ResolvePaths()

	files := []struct {
		name string
		path string
	}{
		{"CA certificate", cfg.CACert},
		{"Client certificate", cfg.ClientCert},
		{"Client key", cfg.ClientKey},
	}

	for _, f := range files {
		if f.path == "" {
			continue
		}
		if _, err := os.Stat(f.path); os.IsNotExist(err) {
			return fmt.Errorf("%s not found: %s", f.name, f.path)
		}
	}

	return nil
}
