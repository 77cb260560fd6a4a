package ids

import "github.com/google/uuid"

// NewUUID returns a new time-ordered UUIDv7 string.
func NewUUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// IsUUID reports whether s is a canonical hyphenated UUID of any version.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
