package identity

import (
	"context"
	"net"
	"sort"
	"strings"
	"sync"
	"time"

	"letterbox/cmd/identity/ids"
)

// MemoryStore is an in-process Store + AuditStore used when no database is configured.
type MemoryStore struct {
	mu      sync.RWMutex
	byID    map[string]UserAuth
	byEmail map[string]string
	audit   []AuditEvent
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:    make(map[string]UserAuth),
		byEmail: make(map[string]string),
	}
}

func (s *MemoryStore) CreateUser(ctx context.Context, in CreateUserInput) (User, error) {
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
	id, err := ids.NewUUID()
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:        id,
		Email:     email,
		Name:      NormalizeName(in.Name),
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[email]; exists {
		return User{}, ConflictError{Op: op, Field: "email"}
	}
	s.byID[id] = UserAuth{User: u, PasswordHash: in.PasswordHash}
	s.byEmail[email] = id
	return u, nil
}

func (s *MemoryStore) GetUserByID(ctx context.Context, userID string) (User, error) {
	ua, err := s.GetUserAuthByID(ctx, userID)
	if err != nil {
		return User{}, err
	}
	return ua.User, nil
}

func (s *MemoryStore) GetUserAuthByID(ctx context.Context, userID string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	ua, ok := s.byID[userID]
	if !ok {
		return UserAuth{}, NotFoundError{Op: "identity.GetUserAuthByID", Resource: "user"}
	}
	return ua, nil
}

func (s *MemoryStore) GetUserAuthByEmail(ctx context.Context, email string) (UserAuth, error) {
	if err := ctx.Err(); err != nil {
		return UserAuth{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[NormalizeEmail(email)]
	if !ok {
		return UserAuth{}, NotFoundError{Op: "identity.GetUserAuthByEmail", Resource: "user"}
	}
	return s.byID[id], nil
}

func (s *MemoryStore) UpdatePasswordHash(ctx context.Context, userID, hash string, now time.Time) error {
	const op = "identity.UpdatePasswordHash"

	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(hash) == "" {
		return pgInvalid(op, "password hash is required")
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ua, ok := s.byID[userID]
	if !ok {
		return NotFoundError{Op: op, Resource: "user"}
	}
	ua.PasswordHash = hash
	ua.User.UpdatedAt = now
	s.byID[userID] = ua
	return nil
}

// AuthorName returns the display name of userID, or nil when unset or unknown.
func (s *MemoryStore) AuthorName(_ context.Context, userID string) (*string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ua, ok := s.byID[userID]
	if !ok || ua.User.Name == nil {
		return nil, nil
	}
	n := *ua.User.Name
	return &n, nil
}

func (s *MemoryStore) InsertAudit(ctx context.Context, ev AuditEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(ev.Action) == "" {
		return pgInvalid("identity.InsertAudit", "action is required")
	}
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, ev)
	return nil
}

func (s *MemoryStore) LoginFailuresByIP(ctx context.Context, ip net.IP, since time.Time) ([]time.Time, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if ip == nil {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []time.Time
	for _, ev := range s.audit {
		if ev.Action != AuditLoginFailed || !ev.IP.Equal(ip) || ev.At.Before(since) {
			continue
		}
		out = append(out, ev.At)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].After(out[j]) })
	return out, nil
}

// AuditEvents returns a copy of recorded events, oldest first.
func (s *MemoryStore) AuditEvents() []AuditEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]AuditEvent(nil), s.audit...)
}
