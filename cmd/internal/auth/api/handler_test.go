package authapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"letterbox/cmd/identity"
	"letterbox/cmd/internal/auth/credential"
	"letterbox/cmd/security/password"

	"golang.org/x/crypto/bcrypt"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type testServer struct {
	ts    *httptest.Server
	users *identity.MemoryStore
}

func newTestServer(t *testing.T, cfg Config) testServer {
	t.Helper()

	tokens, err := credential.NewHS256Manager(credential.Config{
		Issuer:   "letterbox-test",
		TokenTTL: time.Hour,
		Secret:   []byte("test-secret-test-secret-test-secret"),
	})
	if err != nil {
		t.Fatalf("NewHS256Manager: %v", err)
	}

	pw := password.DefaultConfig()
	pw.Params.Cost = bcrypt.MinCost

	users := identity.NewMemoryStore()
	h, err := NewHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), cfg, Deps{
		Users:    users,
		Audit:    users,
		Tokens:   tokens,
		Password: pw,
	})
	if err != nil {
		t.Fatalf("NewHandler: %v", err)
	}

	mux := http.NewServeMux()
	h.Register(mux)
	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return testServer{ts: ts, users: users}
}

func (s testServer) do(t *testing.T, method, path, token string, body any) (int, envelope, http.Header) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			rdr = strings.NewReader(raw)
		} else {
			b, err := json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rdr = bytes.NewReader(b)
		}
	}
	req, err := http.NewRequest(method, s.ts.URL+path, rdr)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.ts.Client().Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("decode %s %s: %v (body=%q)", method, path, err, raw)
	}
	return resp.StatusCode, env, resp.Header
}

func decodeAuth(t *testing.T, env envelope) authResponse {
	t.Helper()
	var out authResponse
	if err := json.Unmarshal(env.Data, &out); err != nil {
		t.Fatalf("decode auth data: %v", err)
	}
	return out
}

func TestRegister_ThenDuplicate(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	status, env, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":    "a@b.com",
		"password": "Abcdefg1",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status=%d env=%+v", status, env)
	}
	if env.Message != MsgRegistered {
		t.Fatalf("message=%q", env.Message)
	}
	if strings.Contains(strings.ToLower(string(env.Data)), "password") {
		t.Fatalf("response leaks password material: %s", env.Data)
	}
	auth := decodeAuth(t, env)
	if auth.Token == "" || auth.User.Email != "a@b.com" || auth.User.ID == "" {
		t.Fatalf("unexpected auth payload: %+v", auth)
	}

	status, env, _ = s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email":    "A@B.com",
		"password": "Abcdefg1",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate status=%d", status)
	}
	if env.Message != MsgEmailTaken {
		t.Fatalf("duplicate message=%q", env.Message)
	}

	events := s.users.AuditEvents()
	if len(events) != 1 || events[0].Action != identity.AuditRegister {
		t.Fatalf("unexpected audit events: %+v", events)
	}
}

func TestRegister_Validation(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	tests := []struct {
		name  string
		body  any
		field string
		msg   string
	}{
		{"bad email", map[string]any{"email": "nope", "password": "Abcdefg1"}, "email", "Invalid email format"},
		{"short password", map[string]any{"email": "a@b.com", "password": "Ab1"}, "password", "Password must be at least 8 characters"},
		{"long password", map[string]any{"email": "a@b.com", "password": "Ab1" + strings.Repeat("x", 100)}, "password", "Password is too long"},
		{"classes", map[string]any{"email": "a@b.com", "password": "abcdefgh"}, "password", "Password must contain at least one uppercase letter, one lowercase letter, and one number"},
		{"short name", map[string]any{"email": "a@b.com", "password": "Abcdefg1", "name": "x"}, "name", "Name must be at least 2 characters"},
		{"long name", map[string]any{"email": "a@b.com", "password": "Abcdefg1", "name": strings.Repeat("n", 101)}, "name", "Name is too long"},
		{"unknown field", map[string]any{"email": "a@b.com", "password": "Abcdefg1", "role": "admin"}, "body", ""},
		{"malformed", `{"email":`, "body", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env, _ := s.do(t, http.MethodPost, "/auth/register", "", tc.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status=%d env=%+v", status, env)
			}
			if len(env.Errors) == 0 || env.Errors[0].Field != tc.field {
				t.Fatalf("errors=%+v want field %q", env.Errors, tc.field)
			}
			if tc.msg != "" && env.Errors[0].Message != tc.msg {
				t.Fatalf("message=%q want %q", env.Errors[0].Message, tc.msg)
			}
		})
	}
}

func TestLogin_SuccessAndFailures(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	status, _, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@b.com", "password": "Abcdefg1", "name": "Alice",
	})
	if status != http.StatusCreated {
		t.Fatalf("register status=%d", status)
	}

	status, env, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "A@b.com", "password": "Abcdefg1",
	})
	if status != http.StatusOK || env.Message != MsgLoggedIn {
		t.Fatalf("login status=%d message=%q", status, env.Message)
	}
	auth := decodeAuth(t, env)
	if auth.User.Name == nil || *auth.User.Name != "Alice" {
		t.Fatalf("unexpected user: %+v", auth.User)
	}

	// Unknown email and wrong password are indistinguishable.
	statusA, envA, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "nobody@b.com", "password": "Abcdefg1",
	})
	statusB, envB, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "a@b.com", "password": "Wrong-Pass1",
	})
	if statusA != http.StatusUnauthorized || statusB != http.StatusUnauthorized {
		t.Fatalf("expected 401s, got %d/%d", statusA, statusB)
	}
	if envA.Message != MsgBadCredentials || envB.Message != MsgBadCredentials {
		t.Fatalf("messages differ: %q / %q", envA.Message, envB.Message)
	}

	status, env, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "a@b.com", "password": ""})
	if status != http.StatusBadRequest || len(env.Errors) != 1 || env.Errors[0].Message != "Password is required" {
		t.Fatalf("empty password: status=%d errors=%+v", status, env.Errors)
	}
}

func TestLogin_IPThrottle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LoginIPMax = 2
	cfg.LoginIPWindow = time.Minute
	s := newTestServer(t, cfg)

	for i := 0; i < 2; i++ {
		status, _, _ := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
			"email": "x@b.com", "password": "Abcdefg1",
		})
		if status != http.StatusUnauthorized {
			t.Fatalf("attempt %d: status=%d", i, status)
		}
	}

	status, env, hdr := s.do(t, http.MethodPost, "/auth/login", "", map[string]any{
		"email": "x@b.com", "password": "Abcdefg1",
	})
	if status != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", status)
	}
	if env.Message != MsgTooManyAttempts {
		t.Fatalf("message=%q", env.Message)
	}
	if hdr.Get("Retry-After") == "" {
		t.Fatalf("expected Retry-After header")
	}

	var limited int
	for _, ev := range s.users.AuditEvents() {
		if ev.Action == identity.AuditLoginRateLimited {
			limited++
		}
	}
	if limited != 1 {
		t.Fatalf("expected one rate-limited audit event, got %d", limited)
	}
}

func TestProfileAndChangePassword(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	_, env, _ := s.do(t, http.MethodPost, "/auth/register", "", map[string]any{
		"email": "a@b.com", "password": "Abcdefg1",
	})
	token := decodeAuth(t, env).Token

	status, _, _ := s.do(t, http.MethodGet, "/auth/profile", "", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("profile without token: %d", status)
	}
	status, _, _ = s.do(t, http.MethodGet, "/auth/profile", "garbage", nil)
	if status != http.StatusUnauthorized {
		t.Fatalf("profile with bad token: %d", status)
	}

	status, env, _ = s.do(t, http.MethodGet, "/auth/profile", token, nil)
	if status != http.StatusOK || env.Message != MsgProfile {
		t.Fatalf("profile: status=%d message=%q", status, env.Message)
	}
	var u userResponse
	if err := json.Unmarshal(env.Data, &u); err != nil || u.Email != "a@b.com" {
		t.Fatalf("profile user=%+v err=%v", u, err)
	}

	status, env, _ = s.do(t, http.MethodPatch, "/auth/password", token, map[string]any{
		"oldPassword": "", "newPassword": "short",
	})
	if status != http.StatusBadRequest || len(env.Errors) != 2 {
		t.Fatalf("validation: status=%d errors=%+v", status, env.Errors)
	}
	if env.Errors[0].Message != "Current password is required" || env.Errors[1].Field != "newPassword" {
		t.Fatalf("unexpected errors: %+v", env.Errors)
	}

	status, env, _ = s.do(t, http.MethodPatch, "/auth/password", token, map[string]any{
		"oldPassword": "Wrong-Pass1", "newPassword": "Newpass123",
	})
	if status != http.StatusUnauthorized || env.Message != MsgBadCurrentPass {
		t.Fatalf("wrong current: status=%d message=%q", status, env.Message)
	}

	status, env, _ = s.do(t, http.MethodPatch, "/auth/password", token, map[string]any{
		"oldPassword": "Abcdefg1", "newPassword": "Newpass123",
	})
	if status != http.StatusOK || env.Message != MsgPasswordUpdated {
		t.Fatalf("change: status=%d message=%q", status, env.Message)
	}

	status, _, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "a@b.com", "password": "Abcdefg1"})
	if status != http.StatusUnauthorized {
		t.Fatalf("old password still works: %d", status)
	}
	status, _, _ = s.do(t, http.MethodPost, "/auth/login", "", map[string]any{"email": "a@b.com", "password": "Newpass123"})
	if status != http.StatusOK {
		t.Fatalf("new password rejected: %d", status)
	}
}
