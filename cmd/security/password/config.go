package password

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BcryptParams controls bcrypt hashing cost.
type BcryptParams struct {
	Cost int
}

// Policy controls password validation and anti-DoS boundaries.
type Policy struct {
	MinLength int
	MaxLength int

	// RequireMixedClasses demands at least one upper-case letter, one lower-case letter and one digit.
	RequireMixedClasses bool

	// If true, enable an extra, minimal weak-pattern rejection.
	RejectVeryWeak bool
}

// Config is the single configuration surface for this package.
type Config struct {
	Params BcryptParams
	Policy Policy
}

// DefaultConfig returns the registration baseline: bcrypt cost 10, 8..100 runes, mixed classes.
func DefaultConfig() Config {
	return Config{
		Params: BcryptParams{
			Cost: bcrypt.DefaultCost,
		},
		Policy: Policy{
			MinLength:           8,
			MaxLength:           100,
			RequireMixedClasses: true,
			RejectVeryWeak:      false,
		},
	}
}

// FromEnv loads config from environment variables.
//
// Env surface:
// - LETTERBOX_PASSWORD_MIN_LEN
// - LETTERBOX_PASSWORD_MAX_LEN
// - LETTERBOX_PASSWORD_REQUIRE_MIXED (true/false)
// - LETTERBOX_PASSWORD_REJECT_VERY_WEAK (true/false)
// - LETTERBOX_BCRYPT_COST
func FromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv("LETTERBOX_PASSWORD_MIN_LEN"); ok {
		n, err := atoiInRange(v, 1, 1024)
		if err != nil {
			return Config{}, fmt.Errorf("LETTERBOX_PASSWORD_MIN_LEN: %w", err)
		}
		cfg.Policy.MinLength = n
	}

	if v, ok := os.LookupEnv("LETTERBOX_PASSWORD_MAX_LEN"); ok {
		n, err := atoiInRange(v, 1, 4096)
		if err != nil {
			return Config{}, fmt.Errorf("LETTERBOX_PASSWORD_MAX_LEN: %w", err)
		}
		cfg.Policy.MaxLength = n
	}

	if v, ok := os.LookupEnv("LETTERBOX_PASSWORD_REQUIRE_MIXED"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("LETTERBOX_PASSWORD_REQUIRE_MIXED: %w", err)
		}
		cfg.Policy.RequireMixedClasses = b
	}

	if v, ok := os.LookupEnv("LETTERBOX_PASSWORD_REJECT_VERY_WEAK"); ok {
		b, err := parseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("LETTERBOX_PASSWORD_REJECT_VERY_WEAK: %w", err)
		}
		cfg.Policy.RejectVeryWeak = b
	}

	if v, ok := os.LookupEnv("LETTERBOX_BCRYPT_COST"); ok {
		n, err := atoiInRange(v, bcrypt.MinCost, bcrypt.MaxCost)
		if err != nil {
			return Config{}, fmt.Errorf("LETTERBOX_BCRYPT_COST: %w", err)
		}
		cfg.Params.Cost = n
	}

	// Final sanity.
	if cfg.Policy.MinLength > cfg.Policy.MaxLength {
		return Config{}, fmt.Errorf(
			"password policy invalid: min_len(%d) > max_len(%d)",
			cfg.Policy.MinLength,
			cfg.Policy.MaxLength,
		)
	}

	return cfg, nil
}

func atoiInRange(s string, minVal, maxVal int) (int, error) {
	s = strings.TrimSpace(s)
	i64, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("not an integer")
	}

	i := int(i64)
	if i < minVal || i > maxVal {
		return 0, fmt.Errorf("out of range [%d..%d]", minVal, maxVal)
	}
	return i, nil
}

func parseBool(s string) (bool, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean")
	}
}
