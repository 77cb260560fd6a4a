package letterapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"letterbox/cmd/identity"
	"letterbox/cmd/internal/auth/credential"
	"letterbox/cmd/internal/httpx"
	"letterbox/cmd/internal/letter"
	"letterbox/cmd/security/token"

	"github.com/stretchr/testify/require"
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

type apiFixture struct {
	ts     *httptest.Server
	users  *identity.MemoryStore
	tokens credential.TokenManager
}

func newAPI(t *testing.T) apiFixture {
	t.Helper()
	return newAPIWith(t, DefaultConfig())
}

func newAPIWith(t *testing.T, cfg Config) apiFixture {
	t.Helper()

	tokens, err := credential.NewHS256Manager(credential.Config{
		Issuer:   "letterbox-test",
		TokenTTL: time.Hour,
		Secret:   []byte("letters-test-secret-letters-test-secret"),
	})
	require.NoError(t, err)

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := identity.NewMemoryStore()
	svc, err := letter.NewService(letter.NewMemoryStore(users), log)
	require.NoError(t, err)

	h, err := NewHandler(log, cfg, svc, httpx.NewAuthenticator(tokens, nil))
	require.NoError(t, err)

	mux := http.NewServeMux()
	h.Register(mux)
	mux.HandleFunc("/", httpx.NotFound)

	ts := httptest.NewServer(mux)
	t.Cleanup(ts.Close)
	return apiFixture{ts: ts, users: users, tokens: tokens}
}

// login creates a user directly in the store and returns a bearer token.
func (f apiFixture) login(t *testing.T, email, name string) (string, string) {
	t.Helper()
	u, err := f.users.CreateUser(context.Background(), identity.CreateUserInput{
		Email: email, Name: &name, PasswordHash: "unused",
	})
	require.NoError(t, err)
	tok, _, err := f.tokens.Issue(u.ID, u.Email, time.Now())
	require.NoError(t, err)
	return u.ID, tok
}

func (f apiFixture) do(t *testing.T, method, path, bearer string, body any) (int, envelope) {
	t.Helper()
	status, env, _ := f.doFull(t, method, path, bearer, body)
	return status, env
}

func (f apiFixture) doFull(t *testing.T, method, path, bearer string, body any) (int, envelope, http.Header) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		if raw, ok := body.(string); ok {
			rdr = strings.NewReader(raw)
		} else {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			rdr = bytes.NewReader(b)
		}
	}
	req, err := http.NewRequest(method, f.ts.URL+path, rdr)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := f.ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	require.Equal(t, resp.StatusCode, env.Status)
	return resp.StatusCode, env, resp.Header
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestCreateAndReadBySlug(t *testing.T) {
	f := newAPI(t)
	ownerID, owner := f.login(t, "a@b.com", "Alice")
	_, other := f.login(t, "c@d.com", "Carol")

	status, env := f.do(t, http.MethodPost, "/letters", owner, map[string]any{
		"title": "Hello World", "content": `{"ops":[]}`,
	})
	require.Equal(t, http.StatusCreated, status)
	require.Equal(t, MsgCreated, env.Message)
	created := decodeData[letterResponse](t, env)
	require.True(t, created.IsPublic)
	require.True(t, strings.HasPrefix(created.Slug, "hello-world-"))
	require.NotNil(t, created.Author)
	require.Equal(t, ownerID, created.Author.ID)
	require.NotContains(t, string(env.Data), "guestToken")
	require.NotContains(t, string(env.Data), "authorId")

	// Anonymous and third-party views count; owner views do not.
	_, env = f.do(t, http.MethodGet, "/letters/"+created.Slug, "", nil)
	require.Equal(t, int64(1), decodeData[letterResponse](t, env).ReadCount)
	_, env = f.do(t, http.MethodGet, "/letters/"+created.Slug, other, nil)
	require.Equal(t, int64(2), decodeData[letterResponse](t, env).ReadCount)
	_, env = f.do(t, http.MethodGet, "/letters/"+created.Slug, owner, nil)
	require.Equal(t, int64(2), decodeData[letterResponse](t, env).ReadCount)

	// An invalid bearer on the optional route falls back to anonymous.
	status, env = f.do(t, http.MethodGet, "/letters/"+created.Slug, "garbage", nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, int64(3), decodeData[letterResponse](t, env).ReadCount)

	status, env = f.do(t, http.MethodGet, "/letters/does-not-exist", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, letter.MsgNotFound, env.Message)
}

func TestPrivateLetterIsForbiddenToOthers(t *testing.T) {
	f := newAPI(t)
	_, owner := f.login(t, "a@b.com", "Alice")
	_, other := f.login(t, "c@d.com", "Carol")

	_, env := f.do(t, http.MethodPost, "/letters", owner, map[string]any{
		"content": "{}", "isPublic": false,
	})
	l := decodeData[letterResponse](t, env)
	require.Equal(t, letter.PlaceholderTitle, l.Title)

	for _, bearer := range []string{"", other} {
		status, env := f.do(t, http.MethodGet, "/letters/"+l.Slug, bearer, nil)
		require.Equal(t, http.StatusForbidden, status)
		require.Equal(t, letter.MsgForbidden, env.Message)
	}

	status, _ := f.do(t, http.MethodGet, "/letters/"+l.Slug, owner, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = f.do(t, http.MethodGet, "/letters/my/"+l.ID, owner, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/letters/my/"+l.ID, other, nil)
	require.Equal(t, http.StatusForbidden, status)
	status, env = f.do(t, http.MethodGet, "/letters/my/not-a-uuid", owner, nil)
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Invalid letter ID", env.Errors[0].Message)
}

func TestGuestLetterFlow(t *testing.T) {
	f := newAPI(t)

	status, env := f.do(t, http.MethodPost, "/letters/guest", "", map[string]any{"content": "{}"})
	require.Equal(t, http.StatusCreated, status)
	created := decodeData[guestLetterResponse](t, env)
	require.True(t, token.IsGuestTokenFormat(created.GuestToken))
	require.Len(t, created.GuestToken, 64)
	require.Nil(t, created.Author)

	wrong := strings.Repeat("0", 64)
	path := "/letters/guest/" + created.ID

	status, env = f.do(t, http.MethodPatch, path, "", map[string]any{"guestToken": wrong, "title": "New"})
	require.Equal(t, http.StatusForbidden, status)
	require.Equal(t, letter.MsgInvalidGuestToken, env.Message)

	status, env = f.do(t, http.MethodPatch, path, "", map[string]any{"guestToken": "short", "title": "New"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "guestToken", env.Errors[0].Field)

	status, env = f.do(t, http.MethodPatch, path, "", map[string]any{"guestToken": created.GuestToken})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, letter.MsgEmptyPatch, env.Errors[0].Message)

	status, env = f.do(t, http.MethodPatch, path, "", map[string]any{"guestToken": created.GuestToken, "title": "New"})
	require.Equal(t, http.StatusOK, status)
	updated := decodeData[letterResponse](t, env)
	require.Equal(t, "New", updated.Title)
	require.True(t, strings.HasPrefix(updated.Slug, "new-"))
	require.NotContains(t, string(env.Data), "guestToken")

	// The bearer routes never accept guest letters.
	_, user := f.login(t, "a@b.com", "Alice")
	status, _ = f.do(t, http.MethodDelete, "/letters/"+created.ID, user, nil)
	require.Equal(t, http.StatusForbidden, status)

	status, _ = f.do(t, http.MethodDelete, path, "", map[string]any{"guestToken": wrong})
	require.Equal(t, http.StatusForbidden, status)
	status, env = f.do(t, http.MethodDelete, path, "", map[string]any{"guestToken": created.GuestToken})
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, MsgDeleted, env.Message)

	status, _ = f.do(t, http.MethodDelete, path, "", map[string]any{"guestToken": created.GuestToken})
	require.Equal(t, http.StatusNotFound, status)
}

func TestGuestCreateThrottle(t *testing.T) {
	cfg := DefaultConfig()
	cfg.GuestCreateMax = 2
	cfg.GuestCreateWindow = time.Minute
	f := newAPIWith(t, cfg)

	for range 2 {
		status, _ := f.do(t, http.MethodPost, "/letters/guest", "", map[string]any{"content": "{}"})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env, hdr := f.doFull(t, http.MethodPost, "/letters/guest", "", map[string]any{"content": "{}"})
	require.Equal(t, http.StatusTooManyRequests, status)
	require.Equal(t, msgGuestThrottled, env.Message)
	require.NotEmpty(t, hdr.Get("Retry-After"))

	// Authenticated creation is not throttled.
	_, owner := f.login(t, "a@b.com", "Alice")
	status, _ = f.do(t, http.MethodPost, "/letters", owner, map[string]any{"content": "{}"})
	require.Equal(t, http.StatusCreated, status)
}

func TestUpdateAndDelete_User(t *testing.T) {
	f := newAPI(t)
	_, owner := f.login(t, "a@b.com", "Alice")
	_, other := f.login(t, "c@d.com", "Carol")

	_, env := f.do(t, http.MethodPost, "/letters", owner, map[string]any{"title": "Draft", "content": "[]"})
	l := decodeData[letterResponse](t, env)

	status, _ := f.do(t, http.MethodPatch, "/letters/"+l.ID, "", map[string]any{"isPublic": false})
	require.Equal(t, http.StatusUnauthorized, status)

	status, _ = f.do(t, http.MethodPatch, "/letters/"+l.ID, other, map[string]any{"isPublic": false})
	require.Equal(t, http.StatusForbidden, status)

	status, env = f.do(t, http.MethodPatch, "/letters/"+l.ID, owner, map[string]any{})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, letter.MsgEmptyPatch, env.Errors[0].Message)

	status, env = f.do(t, http.MethodPatch, "/letters/"+l.ID, owner, map[string]any{"content": "plain text"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "Content must be valid JSON", env.Errors[0].Message)

	status, env = f.do(t, http.MethodPatch, "/letters/"+l.ID, owner, map[string]any{"isPublic": "yes"})
	require.Equal(t, http.StatusBadRequest, status)
	require.Equal(t, "isPublic", env.Errors[0].Field)

	status, env = f.do(t, http.MethodPatch, "/letters/"+l.ID, owner, map[string]any{"isPublic": false, "content": `{"x":1}`})
	require.Equal(t, http.StatusOK, status)
	updated := decodeData[letterResponse](t, env)
	require.False(t, updated.IsPublic)
	require.Equal(t, l.Slug, updated.Slug)

	status, _ = f.do(t, http.MethodDelete, "/letters/"+l.ID, other, nil)
	require.Equal(t, http.StatusForbidden, status)
	status, _ = f.do(t, http.MethodDelete, "/letters/"+l.ID, owner, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = f.do(t, http.MethodGet, "/letters/my/"+l.ID, owner, nil)
	require.Equal(t, http.StatusNotFound, status)
}

func TestCreateValidation(t *testing.T) {
	f := newAPI(t)
	_, owner := f.login(t, "a@b.com", "Alice")

	tests := []struct {
		name  string
		body  any
		field string
		msg   string
	}{
		{"missing content", map[string]any{"title": "x"}, "content", "Content is required"},
		{"empty content", map[string]any{"content": ""}, "content", "Content is required"},
		{"non json content", map[string]any{"content": "hello"}, "content", "Content must be valid JSON"},
		{"scalar content", map[string]any{"content": "42"}, "content", "Content must be valid JSON"},
		{"long title", map[string]any{"content": "{}", "title": strings.Repeat("t", 256)}, "title", "Title is too long"},
		{"unknown field", map[string]any{"content": "{}", "slug": "mine"}, "body", ""},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, env := f.do(t, http.MethodPost, "/letters", owner, tc.body)
			require.Equal(t, http.StatusBadRequest, status)
			require.NotEmpty(t, env.Errors)
			require.Equal(t, tc.field, env.Errors[0].Field)
			if tc.msg != "" {
				require.Equal(t, tc.msg, env.Errors[0].Message)
			}
		})
	}

	status, _ := f.do(t, http.MethodPost, "/letters", "", map[string]any{"content": "{}"})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestListPagination(t *testing.T) {
	f := newAPI(t)
	_, owner := f.login(t, "a@b.com", "Alice")
	_, other := f.login(t, "c@d.com", "Carol")

	for i := range 12 {
		status, _ := f.do(t, http.MethodPost, "/letters", owner, map[string]any{
			"title": fmt.Sprintf("Letter %d", i), "content": "{}",
		})
		require.Equal(t, http.StatusCreated, status)
	}
	f.do(t, http.MethodPost, "/letters", other, map[string]any{"content": "{}"})

	status, env := f.do(t, http.MethodGet, "/letters?page=2&limit=5", owner, nil)
	require.Equal(t, http.StatusOK, status)
	require.Equal(t, MsgListed, env.Message)
	page := decodeData[pageResponse](t, env)
	require.Len(t, page.Items, 5)
	require.Equal(t, 12, page.Total)
	require.Equal(t, 2, page.Page)
	require.Equal(t, 5, page.Limit)
	require.True(t, page.HasMore)

	_, env = f.do(t, http.MethodGet, "/letters?page=abc&limit=-4", owner, nil)
	page = decodeData[pageResponse](t, env)
	require.Equal(t, 1, page.Page)
	require.Equal(t, 20, page.Limit)
	require.Len(t, page.Items, 12)
	require.False(t, page.HasMore)

	_, env = f.do(t, http.MethodGet, "/letters", other, nil)
	require.Equal(t, 1, decodeData[pageResponse](t, env).Total)

	status, _ = f.do(t, http.MethodGet, "/letters", "", nil)
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestUnknownRoute(t *testing.T) {
	f := newAPI(t)
	status, env := f.do(t, http.MethodGet, "/nope/deeper/path", "", nil)
	require.Equal(t, http.StatusNotFound, status)
	require.Equal(t, httpx.MsgRouteNotFound, env.Message)
}

func TestQueryInt(t *testing.T) {
	require.Equal(t, 0, queryInt(""))
	require.Equal(t, 0, queryInt("abc"))
	require.Equal(t, 0, queryInt("-2"))
	require.Equal(t, 0, queryInt("0"))
	require.Equal(t, 7, queryInt(" 7 "))
}
