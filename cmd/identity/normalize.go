package identity

import (
	"net/mail"
	"strings"
	"unicode/utf8"
)

const (
	// MaxEmailLength bounds stored email addresses.
	MaxEmailLength = 255
	// MinNameLength and MaxNameLength bound the optional display name (runes).
	MinNameLength = 2
	MaxNameLength = 100
)

// NormalizeEmail performs case-insensitive canonicalization.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// ValidEmail reports whether s is a single bare address (no display name) within length bounds.
func ValidEmail(s string) bool {
	if s == "" || len(s) > MaxEmailLength {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return false
	}
	if addr.Name != "" || addr.Address != s {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	return at > 0 && strings.Contains(s[at+1:], ".")
}

// NormalizeName trims the display name; blank names become nil.
func NormalizeName(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return nil
	}
	return &v
}

// ValidName reports whether a (normalized) display name is within bounds.
func ValidName(s string) bool {
	n := utf8.RuneCountInString(s)
	return n >= MinNameLength && n <= MaxNameLength
}
