package authapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"letterbox/cmd/identity"
	"letterbox/cmd/internal/apperr"
	"letterbox/cmd/internal/auth/credential"
	"letterbox/cmd/internal/httpx"
	"letterbox/cmd/security/password"
)

// Client-facing messages.
const (
	MsgRegistered      = "User registered successfully"
	MsgLoggedIn        = "Login successful"
	MsgProfile         = "Profile retrieved successfully"
	MsgPasswordUpdated = "Password updated successfully"
	MsgEmailTaken      = "Email already registered"
	MsgBadCredentials  = "Invalid email or password"
	MsgBadCurrentPass  = "Invalid current password"
	MsgUserNotFound    = "User not found"
	MsgTooManyAttempts = "Too many login attempts, please retry later"
)

// Deps are the services the auth API runs on.
type Deps struct {
	Users    identity.Store
	Audit    identity.AuditStore
	Tokens   credential.TokenManager
	Auth     *httpx.Authenticator
	Password password.Config
}

// Handler wires HTTP auth endpoints to identity and credential services.
type Handler struct {
	log *slog.Logger
	cfg Config

	users  identity.Store
	audit  identity.AuditStore
	tokens credential.TokenManager
	auth   *httpx.Authenticator
	pw     password.Config

	now       func() time.Time
	dummyHash string
}

// HandlerOption configures optional auth handler dependencies.
type HandlerOption func(*Handler)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if h == nil || now == nil {
			return
		}
		h.now = now
	}
}

// NewHandler constructs an auth Handler.
func NewHandler(log *slog.Logger, cfg Config, deps Deps, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if deps.Users == nil {
		return nil, errors.New("auth: nil user store")
	}
	if deps.Tokens == nil {
		return nil, errors.New("auth: nil token manager")
	}

	h := &Handler{
		log:    log,
		cfg:    cfg,
		users:  deps.Users,
		audit:  deps.Audit,
		tokens: deps.Tokens,
		auth:   deps.Auth,
		pw:     deps.Password,
		now:    func() time.Time { return time.Now().UTC() },
	}
	if h.auth == nil {
		h.auth = httpx.NewAuthenticator(deps.Tokens, nil)
	}
	if h.pw.Params.Cost == 0 {
		h.pw = password.DefaultConfig()
	}

	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(h)
	}

	// Dummy hash for timing-resistant login checks.
	if hash, err := h.pw.DummyHash(); err == nil {
		h.dummyHash = hash
	}

	return h, nil
}

// Register wires auth routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /auth/register", h.handleRegister)
	mux.HandleFunc("POST /auth/login", h.handleLogin)
	mux.HandleFunc("GET /auth/profile", h.auth.Require(h.handleProfile))
	mux.HandleFunc("PATCH /auth/password", h.auth.Require(h.handleChangePassword))
}

// ---- handlers ----

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "auth.register"

	var req registerRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	email, emailErr := emailField(req.Email)
	if fields := collect(emailErr, passwordField("password", req.Password, h.pw), nameField(req.Name)); len(fields) > 0 {
		h.fail(w, r, apperr.Validation(op, fields...))
		return
	}

	ctx := r.Context()
	now := h.now()

	hash, err := identity.HashPassword(req.Password, h.pw)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	u, err := h.users.CreateUser(ctx, identity.CreateUserInput{
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		Now:          now,
	})
	if err != nil {
		if identity.IsConflict(err) {
			h.fail(w, r, &apperr.Error{
				Op:     op,
				Kind:   apperr.ErrValidation,
				Msg:    MsgEmailTaken,
				Fields: []apperr.FieldError{apperr.Field("email", MsgEmailTaken)},
			})
			return
		}
		h.fail(w, r, err)
		return
	}

	tok, exp, err := h.tokens.Issue(u.ID, u.Email, now)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.auditRegister(ctx, u.ID, httpx.ClientIP(r, h.cfg.TrustProxy), strings.TrimSpace(r.UserAgent()))

	httpx.WriteSuccess(w, http.StatusCreated, MsgRegistered, authResponse{
		Token:     tok,
		ExpiresAt: exp,
		User:      toUserResponse(u),
	})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	const op = "auth.login"

	var req loginRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	email, emailErr := emailField(req.Email)
	var pwErr *apperr.FieldError
	if req.Password == "" {
		fe := apperr.Field("password", "Password is required")
		pwErr = &fe
	}
	if fields := collect(emailErr, pwErr); len(fields) > 0 {
		h.fail(w, r, apperr.Validation(op, fields...))
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := httpx.ClientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	// IP-based throttling before the user lookup.
	if blocked, retryAfter, err := h.checkLoginIPThrottle(ctx, ip, now); err != nil {
		h.log.Error("auth.login.throttle_ip.fail", "err", err)
	} else if blocked {
		h.auditLoginRateLimited(ctx, ip, ua, email, retryAfter)
		h.fail(w, r, &apperr.Error{Op: op, Kind: apperr.ErrRateLimited, Msg: MsgTooManyAttempts, RetryAfter: retryAfter})
		return
	}

	acct, err := h.users.GetUserAuthByEmail(ctx, email)
	if err != nil {
		if !identity.IsNotFound(err) {
			h.fail(w, r, err)
			return
		}
		// Timing resistance: perform a dummy verify when user is missing.
		if h.dummyHash != "" {
			_, _ = identity.VerifyPassword(req.Password, h.dummyHash, h.pw)
		}
		h.auditLoginFailed(ctx, nil, ip, ua, email, "not_found")
		h.fail(w, r, apperr.Unauthenticated(op, MsgBadCredentials))
		return
	}

	ok, err := identity.VerifyPassword(req.Password, acct.PasswordHash, h.pw)
	if err != nil || !ok {
		if err != nil {
			h.log.Warn("auth.login.verify.fail", "err", err, "user_id", acct.User.ID)
		}
		h.auditLoginFailed(ctx, &acct.User.ID, ip, ua, email, "bad_password")
		h.fail(w, r, apperr.Unauthenticated(op, MsgBadCredentials))
		return
	}

	tok, exp, err := h.tokens.Issue(acct.User.ID, acct.User.Email, now)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.auditLoginSuccess(ctx, acct.User.ID, ip, ua, email)
	h.maybeRehash(ctx, acct, req.Password, now)

	httpx.WriteSuccess(w, http.StatusOK, MsgLoggedIn, authResponse{
		Token:     tok,
		ExpiresAt: exp,
		User:      toUserResponse(acct.User),
	})
}

func (h *Handler) handleProfile(w http.ResponseWriter, r *http.Request) {
	const op = "auth.profile"

	claims, ok := httpx.ClaimsFrom(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthenticated(op, httpx.MsgAuthRequired))
		return
	}

	u, err := h.users.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			h.fail(w, r, apperr.NotFound(op, MsgUserNotFound))
			return
		}
		h.fail(w, r, err)
		return
	}

	httpx.WriteSuccess(w, http.StatusOK, MsgProfile, toUserResponse(u))
}

func (h *Handler) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	const op = "auth.password"

	claims, ok := httpx.ClaimsFrom(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthenticated(op, httpx.MsgAuthRequired))
		return
	}

	var req changePasswordRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	var oldErr *apperr.FieldError
	if req.OldPassword == "" {
		fe := apperr.Field("oldPassword", "Current password is required")
		oldErr = &fe
	}
	if fields := collect(oldErr, passwordField("newPassword", req.NewPassword, h.pw)); len(fields) > 0 {
		h.fail(w, r, apperr.Validation(op, fields...))
		return
	}

	ctx := r.Context()
	now := h.now()
	ip := httpx.ClientIP(r, h.cfg.TrustProxy)
	ua := strings.TrimSpace(r.UserAgent())

	acct, err := h.users.GetUserAuthByID(ctx, claims.UserID)
	if err != nil {
		if identity.IsNotFound(err) {
			h.fail(w, r, apperr.NotFound(op, MsgUserNotFound))
			return
		}
		h.fail(w, r, err)
		return
	}

	match, err := identity.VerifyPassword(req.OldPassword, acct.PasswordHash, h.pw)
	if err != nil || !match {
		h.auditPasswordChangeFailed(ctx, acct.User.ID, ip, ua)
		h.fail(w, r, apperr.Unauthenticated(op, MsgBadCurrentPass))
		return
	}

	hash, err := identity.HashPassword(req.NewPassword, h.pw)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.users.UpdatePasswordHash(ctx, acct.User.ID, hash, now); err != nil {
		if identity.IsNotFound(err) {
			h.fail(w, r, apperr.NotFound(op, MsgUserNotFound))
			return
		}
		h.fail(w, r, err)
		return
	}

	h.auditPasswordChanged(ctx, acct.User.ID, ip, ua)
	httpx.WriteSuccess(w, http.StatusOK, MsgPasswordUpdated, nil)
}

// ---- helpers ----

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.log, err)
}

// maybeRehash upgrades a hash made at a different bcrypt cost. Failures are logged only.
func (h *Handler) maybeRehash(ctx context.Context, acct identity.UserAuth, plain string, now time.Time) {
	if !h.pw.NeedsRehash(acct.PasswordHash) {
		return
	}
	hash, err := h.pw.Hash(plain)
	if err != nil {
		// Legacy passwords may predate the current policy.
		return
	}
	if err := h.users.UpdatePasswordHash(ctx, acct.User.ID, hash, now); err != nil {
		h.log.Warn("auth.login.rehash.fail", "err", err, "user_id", acct.User.ID)
	}
}
