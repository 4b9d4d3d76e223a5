package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// NoFingerprint is the sentinel for absent content. It is never the hash of
// the empty string, so "no content yet" stays distinguishable from content.
const NoFingerprint = ""

// Fingerprint returns the hex SHA-256 digest of content, or NoFingerprint
// when content is empty.
func Fingerprint(content string) string {
	if content == "" {
		return NoFingerprint
	}
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// FingerprintParts fingerprints composite content. Parts are NUL separated so
// ("ab", "c") and ("a", "bc") differ.
func FingerprintParts(parts ...string) string {
	empty := true
	for _, p := range parts {
		if p != "" {
			empty = false
			break
		}
	}
	if empty {
		return NoFingerprint
	}
	return Fingerprint(strings.Join(parts, "\x00"))
}
