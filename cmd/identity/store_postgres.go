package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"time"

	"letterbox/cmd/identity/ids"
	"letterbox/cmd/internal/dbx"

	"github.com/jackc/pgx/v5"
)

// PostgresStore implements identity persistence over PostgreSQL.
//
// Design notes:
// - The pool is owned by the caller; this store never closes it.
// - Schema/table identifiers are safely quoted to avoid SQL injection via identifiers.
// - Errors are mapped to identity sentinel kinds where appropriate.
type PostgresStore struct {
	pool   dbx.Pool
	schema string
}

// PostgresOption configures the store.
type PostgresOption func(*PostgresStore) error

// WithSchema sets the Postgres schema used by the identity store (default "letterbox").
func WithSchema(schema string) PostgresOption {
	return func(s *PostgresStore) error {
		v, err := dbx.CheckSchema(schema)
		if err != nil {
			return fmt.Errorf("identity: %w", err)
		}
		s.schema = v
		return nil
	}
}

// NewPostgresStore constructs a PostgresStore.
func NewPostgresStore(pool dbx.Pool, opts ...PostgresOption) (*PostgresStore, error) {
	st := &PostgresStore{
		pool:   pool,
		schema: dbx.DefaultSchema,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(st); err != nil {
			return nil, err
		}
	}
	if st.pool == nil {
		return nil, fmt.Errorf("identity: nil pool")
	}
	return st, nil
}

// CreateUser inserts a new user. A duplicate email yields ConflictError{Field: "email"}.
func (s *PostgresStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
	const op = "identity.CreateUser"

	if err := ctx.Err(); err != nil {
		return User{}, err
	}

	email := NormalizeEmail(in.Email)
	if email == "" {
		return User{}, pgInvalid(op, "email is required")
	}
	if strings.TrimSpace(in.PasswordHash) == "" {
		return User{}, pgInvalid(op, "password hash is required")
	}

	now := in.Now
	if now.IsZero() {
		now = time.Now().UTC()
	}

	userID, err := ids.NewUUID()
	if err != nil {
		return User{}, err
	}
	name := NormalizeName(in.Name)

	users := dbx.Ident(s.schema, "users")
	_, err = s.pool.Exec(ctx,
		`INSERT INTO `+users+` (
		     id, email, password_hash, name, created_at, updated_at
		   ) VALUES ($1, $2, $3, $4, $5, $5)`,
		userID,
		email,
		in.PasswordHash,
		name,
		now,
	)
	if err != nil {
		if c, ok := dbx.UniqueViolation(err); ok {
			return User{}, ConflictError{Op: op, Field: classifyUserConstraint(c)}
		}
		return User{}, err
	}

	return User{
		ID:        userID,
		Email:     email,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// GetUserByID loads a user without credentials.
func (s *PostgresStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	ua, err := s.getUserAuth(ctx, "identity.GetUserByID", "id", userID)
	if err != nil {
		return User{}, err
	}
	return ua.User, nil
}

// GetUserAuthByID loads a user with its password hash.
func (s *PostgresStore) GetUserAuthByID(ctx context.Context, userID string) (UserAuth, error) {
	return s.getUserAuth(ctx, "identity.GetUserAuthByID", "id", userID)
}

// GetUserAuthByEmail loads a user with its password hash by normalized email.
func (s *PostgresStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	return s.getUserAuth(ctx, "identity.GetUserAuthByEmail", "email", NormalizeEmail(email))
}

func (s *PostgresStore) getUserAuth(ctx context.Context, op, column, value string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	if value == "" {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}
	if column == "id" && !ids.IsUUID(value) {
		return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
	}

	users := dbx.Ident(s.schema, "users")

	var (
		out  UserAuth
		name string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT id::text, email, COALESCE(name, ''), password_hash, created_at, updated_at
		   FROM `+users+`
		  WHERE `+column+` = $1`,
		value,
	).Scan(
		&out.User.ID,
		&out.User.Email,
		&name,
		&out.PasswordHash,
		&out.User.CreatedAt,
		&out.User.UpdatedAt,
	)
	if err != nil {
		if dbx.IsNoRows(err) {
			return UserAuth{}, NotFoundError{Op: op, Resource: "user"}
		}
		return UserAuth{}, err
	}
	if name != "" {
		out.User.Name = &name
	}
	return out, nil
}

// UpdatePasswordHash replaces the stored hash for userID.
func (s *PostgresStore) UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if !ids.IsUUID(userID) {
		return NotFoundError{Op: op, Resource: "user"}
	}
	if strings.TrimSpace(hash) == "" {
		return pgInvalid(op, "password hash is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	users := dbx.Ident(s.schema, "users")
	tag, err := s.pool.Exec(ctx,
		`UPDATE `+users+`
		    SET password_hash = $2, updated_at = $3
		  WHERE id = $1`,
		userID, hash, now,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return NotFoundError{Op: op, Resource: "user"}
	}
	return nil
}

// InsertAudit appends an audit event.
func (s *PostgresStore) InsertAudit(ctx context.Context, ev AuditEvent) error {
	action := strings.TrimSpace(ev.Action)
	if action == "" {
		return pgInvalid("identity.InsertAudit", "action is required")
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	var ipVal any
	if ev.IP != nil {
		ipVal = ev.IP.String()
	}

	var metaVal *string
	if len(ev.Meta) > 0 {
		if b, err := json.Marshal(ev.Meta); err == nil {
			m := string(b)
			metaVal = &m
		}
	}

	audit := dbx.Ident(s.schema, "audit_log")
	_, err := s.pool.Exec(ctx,
		`INSERT INTO `+audit+` (
		     user_id, action, created_at, ip, user_agent, meta
		   ) VALUES ($1, $2, $3, $4, $5, $6::jsonb)`,
		ev.UserID, action, at, ipVal, trimOrNil(ev.UserAgent), metaVal,
	)
	return err
}

// LoginFailuresByIP returns failed-login timestamps for ip since the cutoff, newest first.
func (s *PostgresStore) LoginFailuresByIP(ctx context.Context, ip net.IP, since time.Time) ([]time.Time, error) {
	if ip == nil {
		return nil, nil
	}

	audit := dbx.Ident(s.schema, "audit_log")
	rows, err := s.pool.Query(ctx,
		`SELECT created_at
		   FROM `+audit+`
		  WHERE action = $1
		    AND ip = $2
		    AND created_at >= $3
		  ORDER BY created_at DESC`,
		AuditLoginFailed, ip.String(), since,
	)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

func classifyUserConstraint(c string) string {
	switch {
	case c == "uq_users_email", strings.Contains(c, "email"):
		return "email"
	default:
		return "unique"
	}
}

func pgInvalid(op, msg string) error {
	return OpError{Op: op, Kind: ErrInvalidInput, Msg: msg}
}

func trimOrNil(s string) any {
	v := strings.TrimSpace(s)
	if v == "" {
		return nil
	}
	return v
}
