package token

import (
	"crypto/subtle"
	"strconv"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// GuestIDLength is the length of a guest identity string.
	GuestIDLength = 32
	// GuestTokenLength is the length of a hex guest token.
	GuestTokenLength = 64
)

// GuestPair is an anonymous identity plus its secret ownership token.
// Token must be shown to the client exactly once and never logged.
type GuestPair struct {
	ID    string
	Token string
}

// Minter mints guest pairs. Its key is fixed at construction; a zero Minter
// derives tokens with plain SHA-256.
type Minter struct {
	key []byte
}

// NewMinter returns a Minter that derives tokens with HMAC-SHA256 under key.
// An empty key selects SHA-256.
func NewMinter(key []byte) Minter {
	return Minter{key: append([]byte(nil), key...)}
}

// HMAC reports whether tokens are keyed digests.
func (m Minter) HMAC() bool { return len(m.key) > 0 }

// NewGuestPair mints a SHA-256 guest pair. See Minter for keyed digests.
func NewGuestPair(now time.Time) (GuestPair, error) {
	return Minter{}.NewGuestPair(now)
}

// NewGuestPair mints a guest identity and derives its secret token from the id and now.
func (m Minter) NewGuestPair(now time.Time) (GuestPair, error) {
	if now.IsZero() {
		now = time.Now().UTC()
	}

	id, err := gonanoid.New(GuestIDLength)
	if err != nil {
		return GuestPair{}, err
	}

	return GuestPair{
		ID:    id,
		Token: DigestHex(id+":"+strconv.FormatInt(now.UnixMilli(), 10), m.key),
	}, nil
}

// EqualGuestToken compares a presented token with the stored one in constant time.
// Empty values never match.
func EqualGuestToken(presented, stored string) bool {
	if presented == "" || stored == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(presented), []byte(stored)) == 1
}

// IsGuestTokenFormat reports whether s has the shape of a guest token (64 hex chars).
func IsGuestTokenFormat(s string) bool {
	if len(s) != GuestTokenLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
