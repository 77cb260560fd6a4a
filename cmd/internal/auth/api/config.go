package authapi

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config controls auth API behavior and security defaults.
type Config struct {
	TrustProxy   bool
	MaxBodyBytes int64

	// LoginIPMax failed logins per IP inside LoginIPWindow trigger a 429.
	LoginIPMax    int
	LoginIPWindow time.Duration
}

// DefaultConfig returns the defaults used when no env overrides are set.
func DefaultConfig() Config {
	return Config{
		TrustProxy:    false,
		MaxBodyBytes:  1 << 20, // 1 MiB
		LoginIPMax:    20,
		LoginIPWindow: 5 * time.Minute,
	}
}

// LoadConfigFromEnv loads auth config from environment variables with safe defaults.
func LoadConfigFromEnv() Config {
	def := DefaultConfig()
	cfg := Config{
		TrustProxy:    envBool("LETTERBOX_AUTH_TRUST_PROXY", def.TrustProxy),
		MaxBodyBytes:  envInt64("LETTERBOX_AUTH_MAX_BODY_BYTES", def.MaxBodyBytes),
		LoginIPMax:    envInt("LETTERBOX_AUTH_LOGIN_IP_MAX", def.LoginIPMax),
		LoginIPWindow: envDuration("LETTERBOX_AUTH_LOGIN_IP_WINDOW", def.LoginIPWindow),
	}

	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	if cfg.LoginIPWindow <= 0 {
		cfg.LoginIPWindow = def.LoginIPWindow
	}
	return cfg
}

func envBool(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

// envInt accepts 0 so the IP throttle can be disabled explicitly.
func envInt(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return def
	}
	return n
}

func envInt64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
