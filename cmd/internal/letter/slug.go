package letter

import (
	"regexp"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	slugBaseMaxLength = 50
	slugSuffixLength  = 12
)

var slugNonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// SuffixFunc returns a random slug suffix.
type SuffixFunc func() (string, error)

// NanoidSuffix is the default SuffixFunc.
func NanoidSuffix() (string, error) {
	return gonanoid.New(slugSuffixLength)
}

// SlugBase lower-cases title, collapses non-alphanumeric runs into single hyphens,
// trims hyphens and truncates to 50 characters.
func SlugBase(title string) string {
	s := strings.ToLower(title)
	s = slugNonAlnum.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > slugBaseMaxLength {
		// s is ASCII here, byte slicing is safe.
		s = strings.TrimRight(s[:slugBaseMaxLength], "-")
	}
	return s
}

// NewSlug derives a slug from title plus a random suffix. An empty base yields the suffix alone.
func NewSlug(title string, suffix SuffixFunc) (string, error) {
	if suffix == nil {
		suffix = NanoidSuffix
	}
	sfx, err := suffix()
	if err != nil {
		return "", err
	}
	base := SlugBase(title)
	if base == "" {
		return sfx, nil
	}
	return base + "-" + sfx, nil
}
