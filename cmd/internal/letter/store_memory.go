package letter

import (
	"context"
	"sort"
	"sync"
)

// AuthorLookup resolves an author's display name for the in-memory store.
type AuthorLookup interface {
	AuthorName(ctx context.Context, userID string) (*string, error)
}

// MemoryStore is an in-process Store used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]Letter
	bySlug  map[string]string
	authors AuthorLookup
}

// NewMemoryStore returns an empty MemoryStore. authors may be nil.
func NewMemoryStore(authors AuthorLookup) *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]Letter),
		bySlug:  make(map[string]string),
		authors: authors,
	}
}

func (s *MemoryStore) Insert(ctx context.Context, l Letter) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}

	s.mu.Lock()
	if _, taken := s.bySlug[l.Slug]; taken {
		s.mu.Unlock()
		return Letter{}, ErrSlugTaken
	}
	l.ReadCount = 0
	l.Author = nil
	s.byID[l.ID] = l
	s.bySlug[l.Slug] = l.ID
	s.mu.Unlock()

	return s.withAuthor(ctx, l)
}

func (s *MemoryStore) GetByID(ctx context.Context, id string) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}

	s.mu.RLock()
	l, ok := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Letter{}, ErrNotFound
	}
	return s.withAuthor(ctx, l)
}

func (s *MemoryStore) GetBySlug(ctx context.Context, slug string) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}

	s.mu.RLock()
	id, ok := s.bySlug[slug]
	l := s.byID[id]
	s.mu.RUnlock()
	if !ok {
		return Letter{}, ErrNotFound
	}
	return s.withAuthor(ctx, l)
}

func (s *MemoryStore) IncrementReadCount(ctx context.Context, id string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byID[id]
	if !ok {
		return 0, ErrNotFound
	}
	l.ReadCount++
	s.byID[id] = l
	return l.ReadCount, nil
}

func (s *MemoryStore) Update(ctx context.Context, id string, ch Change) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}

	s.mu.Lock()
	l, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		return Letter{}, ErrNotFound
	}
	if ch.Slug != nil && *ch.Slug != l.Slug {
		if _, taken := s.bySlug[*ch.Slug]; taken {
			s.mu.Unlock()
			return Letter{}, ErrSlugTaken
		}
		delete(s.bySlug, l.Slug)
		l.Slug = *ch.Slug
		s.bySlug[l.Slug] = id
	}
	if ch.Title != nil {
		l.Title = *ch.Title
	}
	if ch.Content != nil {
		l.Content = *ch.Content
	}
	if ch.IsPublic != nil {
		l.IsPublic = *ch.IsPublic
	}
	l.UpdatedAt = ch.UpdatedAt
	s.byID[id] = l
	s.mu.Unlock()

	return s.withAuthor(ctx, l)
}

func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	delete(s.bySlug, l.Slug)
	return nil
}

func (s *MemoryStore) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]Letter, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	s.mu.RLock()
	var all []Letter
	for _, l := range s.byID {
		if l.Owner.AuthorID == authorID && authorID != "" {
			all = append(all, l)
		}
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if !all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].CreatedAt.After(all[j].CreatedAt)
		}
		return all[i].ID > all[j].ID
	})

	total := len(all)
	out := []Letter{}
	if offset >= total {
		return out, total, nil
	}
	end := min(offset+limit, total)
	for _, l := range all[offset:end] {
		l, err := s.withAuthor(ctx, l)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, l)
	}
	return out, total, nil
}

func (s *MemoryStore) withAuthor(ctx context.Context, l Letter) (Letter, error) {
	if l.Owner.AuthorID == "" {
		l.Author = nil
		return l, nil
	}
	l.Author = &Author{ID: l.Owner.AuthorID}
	if s.authors == nil {
		return l, nil
	}
	name, err := s.authors.AuthorName(ctx, l.Owner.AuthorID)
	if err != nil {
		return Letter{}, err
	}
	l.Author.Name = name
	return l, nil
}
