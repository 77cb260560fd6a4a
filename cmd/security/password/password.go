package password

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptMaxInput is bcrypt's hard input limit in bytes.
const bcryptMaxInput = 72

// Hash validates password against the policy and returns a bcrypt hash string.
// Format: $2a$<cost>$<salt+hash>
func (c Config) Hash(password string) (string, error) {
	if err := c.Validate(password); err != nil {
		return "", err
	}
	return c.hashRaw(password)
}

// hashRaw hashes without policy checks. Used for dummy hashes.
func (c Config) hashRaw(password string) (string, error) {
	cost := c.Params.Cost
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}

	h, err := bcrypt.GenerateFromPassword(bcryptInput(password), cost)
	if err != nil {
		return "", fmt.Errorf("bcrypt: %w", err)
	}
	return string(h), nil
}

// DummyHash returns a valid hash of a throwaway secret at the configured cost.
// Verifying against it costs the same as a real verification.
func (c Config) DummyHash() (string, error) {
	return c.hashRaw("dummy-password-for-timing-only")
}

// Verify checks whether password matches the given encoded hash.
// Returns (true, nil) for a match, (false, nil) for mismatch,
// and (false, ErrInvalidHash) for malformed/unsupported hashes.
func (c Config) Verify(encodedHash, password string) (bool, error) {
	if _, err := bcrypt.Cost([]byte(encodedHash)); err != nil {
		return false, ErrInvalidHash
	}

	err := bcrypt.CompareHashAndPassword([]byte(encodedHash), bcryptInput(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrInvalidHash
	}
}

// NeedsRehash reports whether the hash was produced with a different cost than configured.
func (c Config) NeedsRehash(encodedHash string) bool {
	cost, err := bcrypt.Cost([]byte(encodedHash))
	if err != nil {
		return true
	}
	return cost != c.Params.Cost
}

// bcryptInput pre-hashes inputs longer than 72 bytes; shorter inputs pass through unchanged.
func bcryptInput(password string) []byte {
	b := []byte(password)
	if len(b) <= bcryptMaxInput {
		return b
	}
	sum := sha256.Sum256(b)
	return []byte(base64.StdEncoding.EncodeToString(sum[:]))
}
