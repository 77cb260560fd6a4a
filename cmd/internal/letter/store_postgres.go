package letter

import (
	"context"
	"fmt"

	"letterbox/cmd/identity/ids"
	"letterbox/cmd/internal/dbx"

	"github.com/jackc/pgx/v5"
)

// PostgresStore implements Store over PostgreSQL.
// The pool is owned by the caller; this store never closes it.
type PostgresStore struct {
	pool   dbx.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the schema (default "letterbox").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		v, err := dbx.CheckSchema(schema)
		if err != nil {
			return fmt.Errorf("letter: %w", err)
		}
		s.schema = v
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool dbx.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{pool: pool, schema: dbx.DefaultSchema}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("letter: nil pool")
	}
	return st, nil
}

// letterColumns selects a letter aliased l joined with its author aliased u.
const letterColumns = `l.id::text, l.title, l.content, l.is_public, l.slug, l.read_count,
	       COALESCE(l.author_id::text, ''), COALESCE(l.guest_id, ''), COALESCE(l.guest_token, ''),
	       l.created_at, l.updated_at, COALESCE(u.name, '')`

func (s *PostgresStore) letters() string { return dbx.Ident(s.schema, "letters") }
func (s *PostgresStore) users() string   { return dbx.Ident(s.schema, "users") }

func (s *PostgresStore) Insert(ctx context.Context, l Letter) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}

	row := s.pool.QueryRow(ctx,
		`WITH l AS (
		     INSERT INTO `+s.letters()+` (
		       id, title, content, is_public, slug, read_count,
		       author_id, guest_id, guest_token, created_at, updated_at
		     ) VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8, $9, $9)
		     RETURNING *
		   )
		 SELECT `+letterColumns+`
		   FROM l
		   LEFT JOIN `+s.users()+` u ON u.id = l.author_id`,
		l.ID,
		l.Title,
		l.Content,
		l.IsPublic,
		l.Slug,
		nullIfEmpty(l.Owner.AuthorID),
		nullIfEmpty(l.Owner.GuestID),
		nullIfEmpty(l.Owner.GuestToken),
		l.CreatedAt,
	)
	out, err := scanLetter(row)
	if err != nil {
		return Letter{}, mapWriteErr(err)
	}
	return out, nil
}

func (s *PostgresStore) GetByID(ctx context.Context, id string) (Letter, error) {
	if !ids.IsUUID(id) {
		return Letter{}, ErrNotFound
	}
	return s.getOne(ctx, "l.id = $1", id)
}

func (s *PostgresStore) GetBySlug(ctx context.Context, slug string) (Letter, error) {
	if slug == "" {
		return Letter{}, ErrNotFound
	}
	return s.getOne(ctx, "l.slug = $1", slug)
}

func (s *PostgresStore) getOne(ctx context.Context, where string, arg any) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}

	row := s.pool.QueryRow(ctx,
		`SELECT `+letterColumns+`
		   FROM `+s.letters()+` l
		   LEFT JOIN `+s.users()+` u ON u.id = l.author_id
		  WHERE `+where,
		arg,
	)
	out, err := scanLetter(row)
	if err != nil {
		if dbx.IsNoRows(err) {
			return Letter{}, ErrNotFound
		}
		return Letter{}, err
	}
	return out, nil
}

func (s *PostgresStore) IncrementReadCount(ctx context.Context, id string) (int64, error) {
	if !ids.IsUUID(id) {
		return 0, ErrNotFound
	}

	var n int64
	err := s.pool.QueryRow(ctx,
		`UPDATE `+s.letters()+`
		    SET read_count = read_count + 1
		  WHERE id = $1
		  RETURNING read_count`,
		id,
	).Scan(&n)
	if err != nil {
		if dbx.IsNoRows(err) {
			return 0, ErrNotFound
		}
		return 0, err
	}
	return n, nil
}

// Update writes the non-nil fields of ch. Nil pointers bind as NULL and COALESCE keeps the column.
func (s *PostgresStore) Update(ctx context.Context, id string, ch Change) (Letter, error) {
	if err := ctx.Err(); err != nil {
		return Letter{}, err
	}
	if !ids.IsUUID(id) {
		return Letter{}, ErrNotFound
	}

	row := s.pool.QueryRow(ctx,
		`WITH l AS (
		     UPDATE `+s.letters()+`
		        SET title      = COALESCE($2, title),
		            slug       = COALESCE($3, slug),
		            content    = COALESCE($4, content),
		            is_public  = COALESCE($5, is_public),
		            updated_at = $6
		      WHERE id = $1
		      RETURNING *
		   )
		 SELECT `+letterColumns+`
		   FROM l
		   LEFT JOIN `+s.users()+` u ON u.id = l.author_id`,
		id, ch.Title, ch.Slug, ch.Content, ch.IsPublic, ch.UpdatedAt,
	)
	out, err := scanLetter(row)
	if err != nil {
		if dbx.IsNoRows(err) {
			return Letter{}, ErrNotFound
		}
		return Letter{}, mapWriteErr(err)
	}
	return out, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !ids.IsUUID(id) {
		return ErrNotFound
	}

	tag, err := s.pool.Exec(ctx, `DELETE FROM `+s.letters()+` WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListByAuthor(ctx context.Context, authorID string, offset, limit int) ([]Letter, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	if !ids.IsUUID(authorID) {
		return []Letter{}, 0, nil
	}

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM `+s.letters()+` WHERE author_id = $1`,
		authorID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 || offset >= total {
		return []Letter{}, total, nil
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+letterColumns+`
		   FROM `+s.letters()+` l
		   LEFT JOIN `+s.users()+` u ON u.id = l.author_id
		  WHERE l.author_id = $1
		  ORDER BY l.created_at DESC, l.id DESC
		  OFFSET $2 LIMIT $3`,
		authorID, offset, limit,
	)
	if err != nil {
		return nil, 0, err
	}
	items, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (Letter, error) {
		return scanLetter(r)
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanLetter(row pgx.Row) (Letter, error) {
	var (
		l          Letter
		authorName string
	)
	err := row.Scan(
		&l.ID,
		&l.Title,
		&l.Content,
		&l.IsPublic,
		&l.Slug,
		&l.ReadCount,
		&l.Owner.AuthorID,
		&l.Owner.GuestID,
		&l.Owner.GuestToken,
		&l.CreatedAt,
		&l.UpdatedAt,
		&authorName,
	)
	if err != nil {
		return Letter{}, err
	}
	if l.Owner.AuthorID != "" {
		l.Author = &Author{ID: l.Owner.AuthorID}
		if authorName != "" {
			l.Author.Name = &authorName
		}
	}
	return l, nil
}

func mapWriteErr(err error) error {
	if c, ok := dbx.UniqueViolation(err); ok && c == "uq_letters_slug" {
		return ErrSlugTaken
	}
	return err
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
