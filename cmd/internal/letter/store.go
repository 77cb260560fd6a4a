package letter

import "context"

// Store is the letter persistence boundary.
//
// Read methods populate Letter.Author for author-owned letters.
// Missing rows yield ErrNotFound; slug unique violations yield ErrSlugTaken.
type Store interface {
	Insert(ctx context.Context, l Letter) (Letter, error)
	GetByID(ctx context.Context, id string) (Letter, error)
	GetBySlug(ctx context.Context, slug string) (Letter, error)
	// IncrementReadCount atomically adds one and returns the new count.
	IncrementReadCount(ctx context.Context, id string) (int64, error)
	Update(ctx context.Context, id string, ch Change) (Letter, error)
	Delete(ctx context.Context, id string) error
	// ListByAuthor returns one page newest-created first, plus the author's total.
	ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]Letter, int, error)
}
