package identity

import (
	"context"
	"net"
	"time"
)

// User is Letterbox's account principal.
type User struct {
	ID    string
	Email string
	Name  *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// UserAuth pairs a user with its stored password hash.
// The hash never leaves the auth layer.
type UserAuth struct {
	User         User
	PasswordHash string
}

// CreateUserInput describes a registration. Email must already be normalized
// and PasswordHash already computed by the caller.
type CreateUserInput struct {
	Email        string
	Name         *string
	PasswordHash string
	Now          time.Time
}

// Store is the identity persistence boundary.
type Store interface {
	CreateUser(ctx context.Context, in CreateUserInput) (User, error)
	GetUserByID(ctx context.Context, userID string) (User, error)
	GetUserAuthByID(ctx context.Context, userID string) (UserAuth, error)
	GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error)
	UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error
}

// Audit actions written by the auth API.
const (
	AuditRegister          = "auth.register"
	AuditLoginSuccess      = "auth.login.success"
	AuditLoginFailed       = "auth.login.failed"
	AuditLoginRateLimited  = "auth.login.rate_limited"
	AuditPasswordChanged   = "auth.password.changed"
	AuditPasswordChangeBad = "auth.password.change_failed"
)

// AuditEvent is a single security-relevant event.
type AuditEvent struct {
	Action    string
	UserID    *string
	IP        net.IP
	UserAgent string
	Meta      map[string]any
	At        time.Time
}

// AuditStore records audit events and answers throttle queries.
type AuditStore interface {
	InsertAudit(ctx context.Context, ev AuditEvent) error
	// LoginFailuresByIP returns failure timestamps for ip at or after since, newest first.
	LoginFailuresByIP(ctx context.Context, ip net.IP, since time.Time) ([]time.Time, error)
}
