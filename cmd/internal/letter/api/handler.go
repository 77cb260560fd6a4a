package letterapi

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"letterbox/cmd/identity/ids"
	"letterbox/cmd/internal/apperr"
	"letterbox/cmd/internal/httpx"
	"letterbox/cmd/internal/letter"
	"letterbox/cmd/security/token"
)

// Client-facing messages.
const (
	MsgCreated   = "Letter created successfully"
	MsgRetrieved = "Letter retrieved successfully"
	MsgUpdated   = "Letter updated successfully"
	MsgDeleted   = "Letter deleted successfully"
	MsgListed    = "Letters retrieved successfully"

	msgInvalidID          = "Invalid letter ID"
	msgInvalidGuestFormat = "Invalid guest token format"
	msgContentRequired    = "Content is required"
	msgGuestThrottled     = "Too many guest letters, please retry later"
)

// Handler wires the letter routes to a letter.Service.
type Handler struct {
	log  *slog.Logger
	cfg  Config
	svc  *letter.Service
	auth *httpx.Authenticator

	guestLimit *ipLimiter
	now        func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithClock overrides the handler clock used by the guest throttle.
func WithClock(now func() time.Time) HandlerOption {
	return func(h *Handler) {
		if now != nil {
			h.now = now
		}
	}
}

// NewHandler constructs a letter Handler.
func NewHandler(log *slog.Logger, cfg Config, svc *letter.Service, auth *httpx.Authenticator, opts ...HandlerOption) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("letterapi: nil service")
	}
	if auth == nil {
		return nil, errors.New("letterapi: nil authenticator")
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}

	h := &Handler{
		log:        log,
		cfg:        cfg,
		svc:        svc,
		auth:       auth,
		guestLimit: newIPLimiter(cfg.GuestCreateMax, cfg.GuestCreateWindow),
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h, nil
}

// Register wires letter routes onto the provided mux.
func (h *Handler) Register(mux *http.ServeMux) {
	if h == nil || mux == nil {
		return
	}
	mux.HandleFunc("POST /letters", h.auth.Require(h.handleCreate))
	mux.HandleFunc("GET /letters", h.auth.Require(h.handleList))
	mux.HandleFunc("GET /letters/my/{id}", h.auth.Require(h.handleGetOwn))
	mux.HandleFunc("PATCH /letters/{id}", h.auth.Require(h.handleUpdate))
	mux.HandleFunc("DELETE /letters/{id}", h.auth.Require(h.handleDelete))

	mux.HandleFunc("GET /letters/{slug}", h.auth.Optional(h.handleGetBySlug))
	mux.HandleFunc("POST /letters/guest", h.handleCreateGuest)
	mux.HandleFunc("PATCH /letters/guest/{id}", h.handleUpdateGuest)
	mux.HandleFunc("DELETE /letters/guest/{id}", h.handleDeleteGuest)
}

// ---- authenticated ----

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r, "letter.create")
	if !ok {
		return
	}
	in, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}

	l, err := h.svc.CreateForUser(r.Context(), userID, in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, MsgCreated, toLetterResponse(l))
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r, "letter.list")
	if !ok {
		return
	}

	q := r.URL.Query()
	req := letter.PageRequest{
		Page:  queryInt(q.Get("page")),
		Limit: queryInt(q.Get("limit")),
	}

	page, err := h.svc.ListByAuthor(r.Context(), userID, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, MsgListed, toPageResponse(page))
}

func (h *Handler) handleGetOwn(w http.ResponseWriter, r *http.Request) {
	const op = "letter.getOwn"

	userID, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}

	l, err := h.svc.GetOwnByID(r.Context(), id, userID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, MsgRetrieved, toLetterResponse(l))
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "letter.update"

	userID, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}

	var req updateRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	l, err := h.svc.Update(r.Context(), id, letter.User(userID), letter.Patch{
		Title:    req.Title,
		Content:  req.Content,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, MsgUpdated, toLetterResponse(l))
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	const op = "letter.delete"

	userID, ok := h.userID(w, r, op)
	if !ok {
		return
	}
	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id, letter.User(userID)); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, MsgDeleted, nil)
}

// ---- public / guest ----

func (h *Handler) handleGetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := strings.TrimSpace(r.PathValue("slug"))
	if slug == "" {
		h.fail(w, r, apperr.Validation("letter.getBySlug", apperr.Field("slug", "Letter slug is required")))
		return
	}

	p := letter.Anonymous()
	if c, ok := httpx.ClaimsFrom(r.Context()); ok {
		p = letter.User(c.UserID)
	}

	l, err := h.svc.GetBySlug(r.Context(), slug, p)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, MsgRetrieved, toLetterResponse(l))
}

func (h *Handler) handleCreateGuest(w http.ResponseWriter, r *http.Request) {
	if ip := httpx.ClientIP(r, h.cfg.TrustProxy); ip != nil {
		if ok, retry := h.guestLimit.Allow(ip.String(), h.now()); !ok {
			h.log.Warn("letter.guest.throttled", "ip", ip.String(), "retry_after", retry)
			h.fail(w, r, &apperr.Error{
				Op:         "letter.createGuest",
				Kind:       apperr.ErrRateLimited,
				Msg:        msgGuestThrottled,
				RetryAfter: retry,
			})
			return
		}
	}

	in, ok := h.decodeCreate(w, r)
	if !ok {
		return
	}

	l, err := h.svc.CreateForGuest(r.Context(), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusCreated, MsgCreated, guestLetterResponse{
		letterResponse: toLetterResponse(l),
		GuestToken:     l.Owner.GuestToken,
	})
}

func (h *Handler) handleUpdateGuest(w http.ResponseWriter, r *http.Request) {
	const op = "letter.updateGuest"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}

	var req guestUpdateRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !token.IsGuestTokenFormat(req.GuestToken) {
		h.fail(w, r, apperr.Validation(op, apperr.Field("guestToken", msgInvalidGuestFormat)))
		return
	}

	l, err := h.svc.Update(r.Context(), id, letter.Guest(req.GuestToken), letter.Patch{
		Title:    req.Title,
		Content:  req.Content,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, MsgUpdated, toLetterResponse(l))
}

func (h *Handler) handleDeleteGuest(w http.ResponseWriter, r *http.Request) {
	const op = "letter.deleteGuest"

	id, ok := h.pathID(w, r, op)
	if !ok {
		return
	}

	var req guestDeleteRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	if !token.IsGuestTokenFormat(req.GuestToken) {
		h.fail(w, r, apperr.Validation(op, apperr.Field("guestToken", msgInvalidGuestFormat)))
		return
	}

	if err := h.svc.Delete(r.Context(), id, letter.Guest(req.GuestToken)); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.WriteSuccess(w, http.StatusOK, MsgDeleted, nil)
}

// ---- helpers ----

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.WriteError(w, r, h.log, err)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	c, ok := httpx.ClaimsFrom(r.Context())
	if !ok {
		h.fail(w, r, apperr.Unauthenticated(op, httpx.MsgAuthRequired))
		return "", false
	}
	return c.UserID, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, op string) (string, bool) {
	id := strings.TrimSpace(r.PathValue("id"))
	if !ids.IsUUID(id) {
		h.fail(w, r, apperr.Validation(op, apperr.Field("id", msgInvalidID)))
		return "", false
	}
	return id, true
}

func (h *Handler) decodeCreate(w http.ResponseWriter, r *http.Request) (letter.CreateInput, bool) {
	var req createRequest
	if err := httpx.DecodeJSON(w, r, h.cfg.MaxBodyBytes, &req); err != nil {
		h.fail(w, r, err)
		return letter.CreateInput{}, false
	}
	if req.Content == nil || *req.Content == "" {
		h.fail(w, r, apperr.Validation("letter.create", apperr.Field("content", msgContentRequired)))
		return letter.CreateInput{}, false
	}
	return letter.CreateInput{Title: req.Title, Content: *req.Content, IsPublic: req.IsPublic}, true
}

// queryInt parses a positive integer; anything else is 0 and takes the default.
func queryInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 1 {
		return 0
	}
	return n
}
