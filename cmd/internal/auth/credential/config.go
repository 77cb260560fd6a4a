package credential

import (
	"os"
	"strings"
	"time"
)

// Config defines runtime configuration for access tokens.
type Config struct {
	// Issuer is the value set in the "iss" claim and required on verification.
	Issuer string

	// TokenTTL defines the lifetime of issued tokens.
	TokenTTL time.Duration

	// ClockSkew defines the allowed time skew during token validation.
	ClockSkew time.Duration

	// Secret is the HS256 signing key.
	Secret []byte
}

// DefaultConfig returns defaults without a secret; callers must supply one.
func DefaultConfig() Config {
	return Config{
		Issuer:    "letterbox",
		TokenTTL:  7 * 24 * time.Hour,
		ClockSkew: 30 * time.Second,
	}
}

// LoadConfigFromEnv loads token configuration from environment variables.
//
// Required:
//   - LETTERBOX_JWT_SECRET
//
// Optional (durations must be valid Go duration strings):
//   - LETTERBOX_JWT_ISSUER
//   - LETTERBOX_JWT_TTL
//   - LETTERBOX_JWT_CLOCK_SKEW
//
// Returns ErrConfig if configuration is invalid.
func LoadConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v := strings.TrimSpace(os.Getenv("LETTERBOX_JWT_ISSUER")); v != "" {
		cfg.Issuer = v
	}

	if v := os.Getenv("LETTERBOX_JWT_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, ErrConfig
		}
		cfg.TokenTTL = d
	}

	if v := os.Getenv("LETTERBOX_JWT_CLOCK_SKEW"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, ErrConfig
		}
		cfg.ClockSkew = d
	}

	secret := strings.TrimSpace(os.Getenv("LETTERBOX_JWT_SECRET"))
	if secret == "" {
		return Config{}, ErrConfig
	}
	cfg.Secret = []byte(secret)

	return cfg, nil
}
