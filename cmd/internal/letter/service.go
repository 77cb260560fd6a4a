package letter

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"letterbox/cmd/identity/ids"
	"letterbox/cmd/internal/apperr"
	"letterbox/cmd/security/token"
)

// Observer receives lifecycle events (metrics).
type Observer interface {
	LetterCreated(guest bool)
	LetterRead()
	LetterUpdated()
	LetterDeleted()
}

type nopObserver struct{}

func (nopObserver) LetterCreated(bool) {}
func (nopObserver) LetterRead()        {}
func (nopObserver) LetterUpdated()     {}
func (nopObserver) LetterDeleted()     {}

// Service runs the letter lifecycle against a Store.
type Service struct {
	store Store
	log   *slog.Logger
	obs   Observer

	now      func() time.Time
	suffix   SuffixFunc
	newID    func() (string, error)
	newGuest func(time.Time) (token.GuestPair, error)
}

// Option configures a Service.
type Option func(*Service)

// WithObserver sets a lifecycle observer.
func WithObserver(o Observer) Option {
	return func(s *Service) {
		if o != nil {
			s.obs = o
		}
	}
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSlugSuffix overrides the random slug suffix source.
func WithSlugSuffix(fn SuffixFunc) Option {
	return func(s *Service) {
		if fn != nil {
			s.suffix = fn
		}
	}
}

// WithGuestMinter sets how guest pairs are minted (token digest mode).
func WithGuestMinter(m token.Minter) Option {
	return func(s *Service) {
		s.newGuest = m.NewGuestPair
	}
}

// NewService builds a Service over store.
func NewService(store Store, log *slog.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("letter: nil store")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		store:    store,
		log:      log,
		obs:      nopObserver{},
		now:      func() time.Time { return time.Now().UTC() },
		suffix:   NanoidSuffix,
		newID:    ids.NewUUID,
		newGuest: token.NewGuestPair,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// CreateForUser creates a letter owned by userID.
func (s *Service) CreateForUser(ctx context.Context, userID string, in CreateInput) (Letter, error) {
	const op = "letter.CreateForUser"

	if strings.TrimSpace(userID) == "" {
		return Letter{}, apperr.Unauthenticated(op, "Authentication required")
	}
	l, err := s.create(ctx, op, UserOwner(userID), in)
	if err != nil {
		return Letter{}, err
	}
	s.obs.LetterCreated(false)
	return l, nil
}

// CreateForGuest mints a guest pair and creates a letter owned by it.
// The returned letter carries the guest token; it is never retrievable afterwards.
func (s *Service) CreateForGuest(ctx context.Context, in CreateInput) (Letter, error) {
	const op = "letter.CreateForGuest"

	pair, err := s.newGuest(s.now())
	if err != nil {
		return Letter{}, err
	}
	l, err := s.create(ctx, op, GuestOwner(pair), in)
	if err != nil {
		return Letter{}, err
	}
	s.obs.LetterCreated(true)
	return l, nil
}

func (s *Service) create(ctx context.Context, op string, owner Owner, in CreateInput) (Letter, error) {
	if !owner.Valid() {
		return Letter{}, apperr.New(op, apperr.ErrValidation, "invalid owner")
	}
	if !ValidContent(in.Content) {
		return Letter{}, apperr.Validation(op, apperr.Field("content", "Content must be valid JSON"))
	}

	title, slugSource := NormalizeTitle(in.Title)
	if !ValidTitle(title) {
		return Letter{}, apperr.Validation(op, apperr.Field("title", "Title is too long"))
	}

	isPublic := true
	if in.IsPublic != nil {
		isPublic = *in.IsPublic
	}

	id, err := s.newID()
	if err != nil {
		return Letter{}, err
	}
	now := s.now()

	l := Letter{
		ID:        id,
		Title:     title,
		Content:   in.Content,
		IsPublic:  isPublic,
		Owner:     owner,
		CreatedAt: now,
		UpdatedAt: now,
	}

	// One regeneration attempt on a slug collision.
	for attempt := 0; ; attempt++ {
		l.Slug, err = NewSlug(slugSource, s.suffix)
		if err != nil {
			return Letter{}, err
		}

		out, err := s.store.Insert(ctx, l)
		if err == nil {
			return out, nil
		}
		if !errors.Is(err, ErrSlugTaken) || attempt > 0 {
			return Letter{}, err
		}
		s.log.Warn("letter.slug.collision", "op", op, "slug", l.Slug)
	}
}

// GetBySlug reads a letter by slug as p, counting the read when the access rules say so.
func (s *Service) GetBySlug(ctx context.Context, slug string, p Principal) (Letter, error) {
	const op = "letter.GetBySlug"

	l, err := s.store.GetBySlug(ctx, slug)
	if err != nil {
		return Letter{}, err
	}

	count, err := Authorize(op, ActionRead, l, p)
	if err != nil {
		return Letter{}, err
	}
	if !count {
		return l, nil
	}

	n, err := s.store.IncrementReadCount(ctx, l.ID)
	if err != nil {
		return Letter{}, err
	}
	l.ReadCount = n
	s.obs.LetterRead()
	return l, nil
}

// GetOwnByID reads a letter by id for its authenticated author.
func (s *Service) GetOwnByID(ctx context.Context, id, userID string) (Letter, error) {
	const op = "letter.GetOwnByID"

	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Letter{}, err
	}
	if _, err := Authorize(op, ActionReadOwn, l, User(userID)); err != nil {
		return Letter{}, err
	}
	return l, nil
}

// Update applies patch to letter id after checking p may mutate it.
// The slug is regenerated only when the patch carries a title.
func (s *Service) Update(ctx context.Context, id string, p Principal, patch Patch) (Letter, error) {
	const op = "letter.Update"

	if patch.Empty() {
		return Letter{}, apperr.Validation(op, apperr.Field("body", MsgEmptyPatch))
	}
	if patch.Content != nil && !ValidContent(*patch.Content) {
		return Letter{}, apperr.Validation(op, apperr.Field("content", "Content must be valid JSON"))
	}
	var (
		title      string
		slugSource string
	)
	if patch.Title != nil {
		title, slugSource = NormalizeTitle(patch.Title)
		if !ValidTitle(title) {
			return Letter{}, apperr.Validation(op, apperr.Field("title", "Title is too long"))
		}
	}

	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return Letter{}, err
	}
	if _, err := Authorize(op, ActionMutate, l, p); err != nil {
		return Letter{}, err
	}

	ch := Change{
		Content:   patch.Content,
		IsPublic:  patch.IsPublic,
		UpdatedAt: s.now(),
	}
	if patch.Title != nil {
		ch.Title = &title
	}

	for attempt := 0; ; attempt++ {
		if ch.Title != nil {
			slug, err := NewSlug(slugSource, s.suffix)
			if err != nil {
				return Letter{}, err
			}
			ch.Slug = &slug
		}

		out, err := s.store.Update(ctx, id, ch)
		if err == nil {
			s.obs.LetterUpdated()
			return out, nil
		}
		if !errors.Is(err, ErrSlugTaken) || ch.Slug == nil || attempt > 0 {
			return Letter{}, err
		}
		s.log.Warn("letter.slug.collision", "op", op, "slug", *ch.Slug)
	}
}

// Delete removes letter id after checking p may mutate it.
func (s *Service) Delete(ctx context.Context, id string, p Principal) error {
	const op = "letter.Delete"

	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := Authorize(op, ActionMutate, l, p); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.obs.LetterDeleted()
	return nil
}

// ListByAuthor returns one page of userID's letters, newest first.
func (s *Service) ListByAuthor(ctx context.Context, userID string, req PageRequest) (Page, error) {
	const op = "letter.ListByAuthor"

	if strings.TrimSpace(userID) == "" {
		return Page{}, apperr.Unauthenticated(op, "Authentication required")
	}
	req = req.Normalize()

	items, total, err := s.store.ListByAuthor(ctx, userID, req.Offset(), req.Limit)
	if err != nil {
		return Page{}, err
	}
	if items == nil {
		items = []Letter{}
	}

	return Page{
		Items:   items,
		Total:   total,
		Page:    req.Page,
		Limit:   req.Limit,
		HasMore: req.Offset()+len(items) < total,
	}, nil
}
