package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const (
	// HMACEnvKey is the env var name for the guest-token HMAC secret.
	// #nosec G101 -- not a credential; it's an environment variable name.
	HMACEnvKey = "LETTERBOX_TOKEN_HMAC_KEY"
)

// HashSHA256Hex returns a SHA-256 hex digest of s.
func HashSHA256Hex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// HashHMACSHA256Hex returns an HMAC-SHA256 hex digest of s using key.
func HashHMACSHA256Hex(s string, key []byte) string {
	m := hmac.New(sha256.New, key)
	_, _ = m.Write([]byte(s))
	return hex.EncodeToString(m.Sum(nil))
}

// ParseHMACKey returns the trimmed key bytes, enforcing a minimum byte length.
// A blank key -> ErrHMACKeyMissing. A key shorter than minBytes -> ErrHMACKeyTooShort.
func ParseHMACKey(raw string, minBytes int) ([]byte, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrHMACKeyMissing
	}
	b := []byte(raw)
	if minBytes > 0 && len(b) < minBytes {
		return nil, ErrHMACKeyTooShort
	}
	return b, nil
}

// DigestHex hashes s with HMAC-SHA256 under key, or with plain SHA-256 when key is empty.
func DigestHex(s string, key []byte) string {
	if len(key) == 0 {
		return HashSHA256Hex(s)
	}
	return HashHMACSHA256Hex(s, key)
}
