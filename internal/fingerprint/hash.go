package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes. The version suffix allows the algorithm to change
// without colliding with earlier fingerprints.
const (
	DomainRun = "sweep/run/v1"
)

// hashWithDomain returns hex(SHA256(domain + 0x00 + data)).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Run fingerprints a fully-resolved run configuration. Two configurations
// with the same keys and values have the same fingerprint regardless of key
// order.
func Run(config map[string]any) (string, error) {
	canonical, err := MarshalCanonical(config)
	if err != nil {
		return "", fmt.Errorf("fingerprint run: %w", err)
	}
	return hashWithDomain(DomainRun, canonical), nil
}

// MustRun is like Run but panics on error.
// Use only in tests or when the configuration is known to be valid.
func MustRun(config map[string]any) string {
	fp, err := Run(config)
	if err != nil {
		panic(err)
	}
	return fp
}
