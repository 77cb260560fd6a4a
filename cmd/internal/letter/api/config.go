package letterapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls letter API limits.
type Config struct {
	// MaxBodyBytes caps request bodies; content is serialized rich text and can be large.
	MaxBodyBytes int64

	// TrustProxy makes ClientIP honor X-Forwarded-For / X-Real-IP.
	TrustProxy bool

	// GuestCreateMax guest letters per client IP within GuestCreateWindow. 0 disables the throttle.
	GuestCreateMax    int
	GuestCreateWindow time.Duration
}

// DefaultConfig returns the defaults used when no env overrides are set.
func DefaultConfig() Config {
	return Config{
		MaxBodyBytes:      2 << 20, // 2 MiB
		GuestCreateMax:    30,
		GuestCreateWindow: 10 * time.Minute,
	}
}

// LoadConfigFromEnv reads:
//   - LETTERBOX_LETTERS_MAX_BODY_BYTES
//   - LETTERBOX_LETTERS_TRUST_PROXY
//   - LETTERBOX_LETTERS_GUEST_CREATE_MAX (0 disables)
//   - LETTERBOX_LETTERS_GUEST_CREATE_WINDOW
//
// Malformed values keep the default.
func LoadConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v := env("LETTERBOX_LETTERS_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.MaxBodyBytes = n
		}
	}
	if v := env("LETTERBOX_LETTERS_TRUST_PROXY"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.TrustProxy = b
		}
	}
	if v := env("LETTERBOX_LETTERS_GUEST_CREATE_MAX"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.GuestCreateMax = n
		}
	}
	if v := env("LETTERBOX_LETTERS_GUEST_CREATE_WINDOW"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.GuestCreateWindow = d
		}
	}
	return cfg
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }
