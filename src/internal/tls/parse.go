// FILE: evsink/src/internal/tls/parse.go
package tls

import (
	"crypto/tls"
	"fmt"
	"strings"
)

// parseTLSVersion accepts "TLS1.2"/"TLS12" style names; empty selects TLS 1.2.
// Older protocol versions are refused.
func parseTLSVersion(version string) (uint16, error) {
	switch strings.ToUpper(version) {
	case "", "TLS1.2", "TLS12":
		return tls.VersionTLS12, nil
	case "TLS1.3", "TLS13":
		return tls.VersionTLS13, nil
	default:
		return 0, fmt.Errorf("unsupported TLS version '%s' (use TLS1.2 or TLS1.3)", version)
	}
}

func tlsVersionString(version uint16) string {
	switch version {
	case tls.VersionTLS12:
		return "TLS1.2"
	case tls.VersionTLS13:
		return "TLS1.3"
	default:
		return fmt.Sprintf("0x%04x", version)
	}
}

// ValidVersion reports whether version is accepted by NewClientConfig
func ValidVersion(version string) bool {
	_, err := parseTLSVersion(version)
	return err == nil
}
