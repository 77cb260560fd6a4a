package app

import (
	"fmt"
	"os"
	"strings"
	"time"

	"letterbox/cmd/security/token"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names the optional TOML file applied before env overrides.
const ConfigFileEnv = "LETTERBOX_CONFIG_FILE"

// Config contains the server runtime configuration.
// Precedence: defaults, then the TOML file, then environment variables.
type Config struct {
	HTTPAddr string `toml:"http_addr"`

	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"` // "json" or "pretty"
	LogColor  bool   `toml:"log_color"`

	ReadHeaderTimeout time.Duration `toml:"read_header_timeout"`
	ReadTimeout       time.Duration `toml:"read_timeout"`
	WriteTimeout      time.Duration `toml:"write_timeout"`
	IdleTimeout       time.Duration `toml:"idle_timeout"`
	ShutdownTimeout   time.Duration `toml:"shutdown_timeout"`
	MaxHeaderBytes    int           `toml:"max_header_bytes"`

	// Empty DatabaseURL selects the in-memory stores.
	DatabaseURL string `toml:"database_url"`
	DBMaxConns  int32  `toml:"db_max_conns"`
	DBMinConns  int32  `toml:"db_min_conns"`
	DBMigrate   bool   `toml:"db_migrate"`

	// If true, /readyz returns 503 unless a database is configured and reachable.
	ReadinessRequireDB bool `toml:"readiness_require_db"`

	// If true, TokenHMACKey must be set and guest tokens are HMAC digests.
	RequireTokenHMAC bool `toml:"require_token_hmac"`
	// Guest-token HMAC secret (LETTERBOX_TOKEN_HMAC_KEY, env only). When set it must be >= 32 bytes.
	TokenHMACKey string `toml:"-"`

	CORSAllowedOrigins   []string `toml:"cors_allowed_origins"`
	CORSAllowCredentials bool     `toml:"cors_allow_credentials"`
	CORSMaxAgeSeconds    int      `toml:"cors_max_age_seconds"`

	MetricsEnabled bool `toml:"metrics_enabled"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		HTTPAddr: "0.0.0.0:8080",

		LogLevel:  "info",
		LogFormat: "json",

		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
		ShutdownTimeout:   10 * time.Second,
		MaxHeaderBytes:    1 << 20,

		DBMaxConns: 10,

		CORSMaxAgeSeconds: 600,

		MetricsEnabled: true,
	}
}

// LoadConfig builds Config from defaults, the optional TOML file and the environment.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()

	if path := strings.TrimSpace(os.Getenv(ConfigFileEnv)); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

// applyEnv overrides cfg with any LETTERBOX_* variables that are set.
func applyEnv(cfg *Config) {
	cfg.HTTPAddr = EnvString("LETTERBOX_HTTP_ADDR", cfg.HTTPAddr)

	cfg.LogLevel = EnvString("LETTERBOX_LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = strings.ToLower(EnvString("LETTERBOX_LOG_FORMAT", cfg.LogFormat))
	cfg.LogColor = EnvBool("LETTERBOX_LOG_COLOR", cfg.LogColor)

	cfg.ReadHeaderTimeout = EnvDuration("LETTERBOX_HTTP_READ_HEADER_TIMEOUT", cfg.ReadHeaderTimeout)
	cfg.ReadTimeout = EnvDuration("LETTERBOX_HTTP_READ_TIMEOUT", cfg.ReadTimeout)
	cfg.WriteTimeout = EnvDuration("LETTERBOX_HTTP_WRITE_TIMEOUT", cfg.WriteTimeout)
	cfg.IdleTimeout = EnvDuration("LETTERBOX_HTTP_IDLE_TIMEOUT", cfg.IdleTimeout)
	cfg.ShutdownTimeout = EnvDuration("LETTERBOX_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	cfg.MaxHeaderBytes = EnvInt("LETTERBOX_HTTP_MAX_HEADER_BYTES", cfg.MaxHeaderBytes)

	cfg.DatabaseURL = EnvString("LETTERBOX_DATABASE_URL", cfg.DatabaseURL)
	cfg.DBMaxConns = EnvInt32("LETTERBOX_DB_MAX_CONNS", cfg.DBMaxConns)
	cfg.DBMinConns = EnvInt32("LETTERBOX_DB_MIN_CONNS", cfg.DBMinConns)
	cfg.DBMigrate = EnvBool("LETTERBOX_DB_MIGRATE", cfg.DBMigrate)

	cfg.ReadinessRequireDB = EnvBool("LETTERBOX_READINESS_REQUIRE_DB", cfg.ReadinessRequireDB)
	cfg.RequireTokenHMAC = EnvBool("LETTERBOX_REQUIRE_TOKEN_HMAC", cfg.RequireTokenHMAC)
	cfg.TokenHMACKey = EnvString(token.HMACEnvKey, cfg.TokenHMACKey)

	cfg.CORSAllowedOrigins = EnvList("LETTERBOX_CORS_ALLOWED_ORIGINS", cfg.CORSAllowedOrigins)
	cfg.CORSAllowCredentials = EnvBool("LETTERBOX_CORS_ALLOW_CREDENTIALS", cfg.CORSAllowCredentials)
	cfg.CORSMaxAgeSeconds = EnvInt("LETTERBOX_CORS_MAX_AGE_SECONDS", cfg.CORSMaxAgeSeconds)

	cfg.MetricsEnabled = EnvBool("LETTERBOX_METRICS_ENABLED", cfg.MetricsEnabled)
}
