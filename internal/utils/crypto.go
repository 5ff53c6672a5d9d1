// internal/utils/crypto.go
package utils

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"strings"
)

const (
	LicenseKeySegments      = 3
	LicenseKeySegmentLength = 5

	licenseKeyCharset = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// GenerateLicenseKey produces a key of the form XXXXX-XXXXX-XXXXX: uppercase
// base-36 characters drawn from a CSPRNG. Uniqueness against the registry is
// the caller's responsibility.
func GenerateLicenseKey() (string, error) {
	segments := make([]string, 0, LicenseKeySegments)

	for i := 0; i < LicenseKeySegments; i++ {
		randomBytes := make([]byte, LicenseKeySegmentLength)
		if _, err := rand.Read(randomBytes); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}

		var segment strings.Builder
		for _, b := range randomBytes {
			segment.WriteByte(licenseKeyCharset[int(b)%len(licenseKeyCharset)])
		}
		segments = append(segments, segment.String())
	}

	return strings.Join(segments, "-"), nil
}

// SecureCompare reports whether two secrets are equal in constant time.
func SecureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
