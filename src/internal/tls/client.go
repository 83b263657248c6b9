// FILE: evsink/src/internal/tls/client.go
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"evsink/src/internal/config"

	"github.com/lixenwraith/log"
)

// NewClientConfig builds the TLS configuration outbound sinks dial with.
// It returns nil, nil when cfg is absent or disabled.
func NewClientConfig(cfg *config.TLSClientConfig, component string, logger *log.Logger) (*tls.Config, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil
	}

	minVersion, err := parseTLSVersion(cfg.MinVersion)
	if err != nil {
		return nil, err
	}

	tlsConfig := &tls.Config{
		MinVersion:         minVersion,
		ServerName:         cfg.ServerName,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}

	// Client certificate for mTLS
	switch {
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client cert/key: %w", err)
		}
		tlsConfig.Certificates = []tls.Certificate{cert}
	case cfg.CertFile != "" || cfg.KeyFile != "":
		return nil, fmt.Errorf("both cert_file and key_file must be provided for mTLS")
	}

	// Private CA for verifying the collector or brokers
	if cfg.CAFile != "" {
		pem, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", cfg.CAFile)
		}
		tlsConfig.RootCAs = pool
	}

	logger.Info("msg", "Client TLS configured",
		"component", component,
		"min_version", tlsVersionString(minVersion),
		"has_client_cert", len(tlsConfig.Certificates) > 0,
		"has_ca", cfg.CAFile != "",
		"insecure_skip_verify", cfg.InsecureSkipVerify)
	return tlsConfig, nil
}

// Describe summarizes a client TLS configuration for stats output
func Describe(c *tls.Config) map[string]any {
	if c == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"enabled":              true,
		"min_version":          tlsVersionString(c.MinVersion),
		"has_client_cert":      len(c.Certificates) > 0,
		"has_ca":               c.RootCAs != nil,
		"insecure_skip_verify": c.InsecureSkipVerify,
	}
}
