package app

import (
	"errors"

	"letterbox/cmd/security/token"
)

// minHMACKeyBytes is the shortest accepted LETTERBOX_TOKEN_HMAC_KEY.
const minHMACKeyBytes = 32

// ValidateSecurityConfig enforces the startup security policy and returns the
// guest-token HMAC key (nil selects SHA-256 digests).
// A configured key shorter than 32 bytes always refuses to start. With
// RequireTokenHMAC set, a missing key refuses to start too.
func ValidateSecurityConfig(cfg Config) ([]byte, error) {
	key, err := token.ParseHMACKey(cfg.TokenHMACKey, minHMACKeyBytes)
	switch {
	case err == nil:
		return key, nil
	case errors.Is(err, token.ErrHMACKeyMissing):
		if cfg.RequireTokenHMAC {
			return nil, errors.New("security policy: LETTERBOX_REQUIRE_TOKEN_HMAC=true but LETTERBOX_TOKEN_HMAC_KEY is missing")
		}
		return nil, nil
	case errors.Is(err, token.ErrHMACKeyTooShort):
		return nil, errors.New("security policy: LETTERBOX_TOKEN_HMAC_KEY is too short (min 32 bytes)")
	default:
		return nil, err
	}
}
