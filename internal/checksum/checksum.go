// Package checksum computes content digests for stored objects and the HTTP
// entity tags derived from them.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// SumReader digests everything r yields.
func SumReader(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ETag quotes sum as a strong entity tag.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// Matches reports whether an If-None-Match header value names sum. Weak
// tags and "*" match too.
func Matches(ifNoneMatch, sum string) bool {
	if ifNoneMatch == "" || sum == "" {
		return false
	}
	for _, tag := range strings.Split(ifNoneMatch, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "*" {
			return true
		}
		if strings.TrimPrefix(tag, "W/") == ETag(sum) {
			return true
		}
	}
	return false
}
