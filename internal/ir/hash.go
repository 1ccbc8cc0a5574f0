package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for digests. The version suffix leaves room for changing
// the canonical encoding without colliding with old digests.
const (
	DomainTrace   = "fakesonicpi/trace/v1"
	DomainSignals = "fakesonicpi/signals/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest returns the hex SHA-256 of v's canonical JSON under domain.
// Two runs of the same script produce the same digest.
func Digest(domain string, v any) (string, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("digest %s: %w", domain, err)
	}
	return hashWithDomain(domain, data), nil
}
