package httpx

import (
	"context"
	"net/http"
	"strings"
	"time"

	"letterbox/cmd/internal/apperr"
	"letterbox/cmd/internal/auth/credential"
)

const (
	MsgAuthRequired = "Authentication required"
	MsgInvalidToken = "Invalid or expired token"
)

type claimsKey struct{}

// WithClaims stores verified claims on ctx.
func WithClaims(ctx context.Context, c credential.Claims) context.Context {
	return context.WithValue(ctx, claimsKey{}, c)
}

// ClaimsFrom returns the verified claims stored on ctx, if any.
func ClaimsFrom(ctx context.Context) (credential.Claims, bool) {
	c, ok := ctx.Value(claimsKey{}).(credential.Claims)
	return c, ok && c.UserID != ""
}

// BearerToken extracts the token from an "Authorization: Bearer <token>" header.
func BearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if raw == "" {
		return ""
	}
	parts := strings.SplitN(raw, " ", 2)
	if len(parts) != 2 {
		return ""
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Authenticator verifies bearer tokens.
type Authenticator struct {
	tokens credential.TokenManager
	now    func() time.Time
}

// NewAuthenticator wraps tokens. now may be nil.
func NewAuthenticator(tokens credential.TokenManager, now func() time.Time) *Authenticator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Authenticator{tokens: tokens, now: now}
}

// Identify verifies the request's bearer token. A missing header returns
// (zero, false, nil); a present but invalid token returns an Unauthenticated error.
func (a *Authenticator) Identify(r *http.Request) (credential.Claims, bool, error) {
	const op = "httpx.Identify"

	tok := BearerToken(r)
	if tok == "" {
		return credential.Claims{}, false, nil
	}
	if a == nil || a.tokens == nil {
		return credential.Claims{}, false, apperr.Unauthenticated(op, MsgInvalidToken)
	}
	c, err := a.tokens.Verify(tok, a.now())
	if err != nil {
		return credential.Claims{}, false, apperr.Unauthenticated(op, MsgInvalidToken)
	}
	return c, true, nil
}

// Require rejects requests without a valid bearer token.
func (a *Authenticator) Require(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, ok, err := a.Identify(r)
		if err != nil {
			WriteError(w, r, nil, err)
			return
		}
		if !ok {
			WriteError(w, r, nil, apperr.Unauthenticated("httpx.Require", MsgAuthRequired))
			return
		}
		next(w, r.WithContext(WithClaims(r.Context(), c)))
	}
}

// Optional attaches claims when a valid token is present. Requests with a
// missing or invalid token continue anonymously.
func (a *Authenticator) Optional(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if c, ok, err := a.Identify(r); err == nil && ok {
			r = r.WithContext(WithClaims(r.Context(), c))
		}
		next(w, r)
	}
}
