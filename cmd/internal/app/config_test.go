package app

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("LETTERBOX_HTTP_ADDR", "")
	t.Setenv("LETTERBOX_DATABASE_URL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.HTTPAddr != "0.0.0.0:8080" {
		t.Fatalf("HTTPAddr=%q", cfg.HTTPAddr)
	}
	if cfg.DatabaseURL != "" || cfg.DBMigrate {
		t.Fatalf("expected in-memory defaults, got %+v", cfg)
	}
	if !cfg.MetricsEnabled {
		t.Fatalf("metrics should default on")
	}
}

func TestLoadConfig_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "letterbox.toml")
	body := `
http_addr = "127.0.0.1:9000"
log_format = "pretty"
read_timeout = "30s"
db_max_conns = 4
cors_allowed_origins = ["https://app.example.com"]
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(ConfigFileEnv, path)
	t.Setenv("LETTERBOX_HTTP_ADDR", "127.0.0.1:9100")
	t.Setenv("LETTERBOX_CORS_ALLOWED_ORIGINS", "")
	t.Setenv("LETTERBOX_TOKEN_HMAC_KEY", " guest-hmac-key ")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}
	if cfg.HTTPAddr != "127.0.0.1:9100" {
		t.Fatalf("env should win over file, got %q", cfg.HTTPAddr)
	}
	if cfg.LogFormat != "pretty" {
		t.Fatalf("LogFormat=%q", cfg.LogFormat)
	}
	if cfg.ReadTimeout != 30*time.Second {
		t.Fatalf("ReadTimeout=%v", cfg.ReadTimeout)
	}
	if cfg.DBMaxConns != 4 {
		t.Fatalf("DBMaxConns=%d", cfg.DBMaxConns)
	}
	if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"https://app.example.com"}) {
		t.Fatalf("CORSAllowedOrigins=%v", cfg.CORSAllowedOrigins)
	}
	if cfg.TokenHMACKey != "guest-hmac-key" {
		t.Fatalf("TokenHMACKey=%q", cfg.TokenHMACKey)
	}
	// Untouched keys keep their defaults.
	if cfg.WriteTimeout != 15*time.Second {
		t.Fatalf("WriteTimeout=%v", cfg.WriteTimeout)
	}
}

func TestLoadConfig_BadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("http_addr = "), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigFileEnv, path)

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestEnvList(t *testing.T) {
	t.Setenv("LETTERBOX_TEST_LIST", " a, ,b ,")
	got := EnvList("LETTERBOX_TEST_LIST", nil)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("EnvList=%v", got)
	}

	t.Setenv("LETTERBOX_TEST_LIST", " , ")
	if got := EnvList("LETTERBOX_TEST_LIST", []string{"x"}); !reflect.DeepEqual(got, []string{"x"}) {
		t.Fatalf("EnvList fallback=%v", got)
	}
}
