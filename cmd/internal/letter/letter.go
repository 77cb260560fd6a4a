package letter

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"letterbox/cmd/security/token"
)

const (
	// PlaceholderTitle is stored when a letter is created or retitled without a title.
	PlaceholderTitle = "Untitled"
	// MaxTitleLength bounds titles (runes).
	MaxTitleLength = 255

	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

// Letter is a stored letter document.
type Letter struct {
	ID        string
	Title     string
	Content   string
	IsPublic  bool
	Slug      string
	ReadCount int64

	Owner  Owner
	Author *Author

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Owner is the ownership discriminant. Exactly one of AuthorID or the guest pair is set.
type Owner struct {
	AuthorID   string
	GuestID    string
	GuestToken string
}

// UserOwner returns an Owner for an authenticated author.
func UserOwner(userID string) Owner {
	return Owner{AuthorID: userID}
}

// GuestOwner returns an Owner for a freshly minted guest pair.
func GuestOwner(p token.GuestPair) Owner {
	return Owner{GuestID: p.ID, GuestToken: p.Token}
}

// IsGuest reports whether the letter is guest-owned.
func (o Owner) IsGuest() bool {
	return o.AuthorID == "" && o.GuestID != ""
}

// Valid reports whether exactly one ownership mode is set.
func (o Owner) Valid() bool {
	author := o.AuthorID != ""
	guest := o.GuestID != "" && o.GuestToken != ""
	partialGuest := (o.GuestID != "") != (o.GuestToken != "")
	return author != guest && !partialGuest
}

// Author is the public view of a letter's author.
type Author struct {
	ID   string
	Name *string
}

// CreateInput is the client-supplied part of a new letter.
type CreateInput struct {
	Title    *string
	Content  string
	IsPublic *bool
}

// Patch is a partial update. Nil fields are left unchanged.
type Patch struct {
	Title    *string
	Content  *string
	IsPublic *bool
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Title == nil && p.Content == nil && p.IsPublic == nil
}

// Change is what the service asks a Store to write.
type Change struct {
	Title     *string
	Slug      *string
	Content   *string
	IsPublic  *bool
	UpdatedAt time.Time
}

// PageRequest is a raw pagination request; zero values take defaults.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize applies defaults and bounds.
func (r PageRequest) Normalize() PageRequest {
	if r.Page < 1 {
		r.Page = DefaultPage
	}
	if r.Limit < 1 {
		r.Limit = DefaultLimit
	}
	if r.Limit > MaxLimit {
		r.Limit = MaxLimit
	}
	return r
}

// Offset returns the number of rows to skip.
func (r PageRequest) Offset() int {
	return (r.Page - 1) * r.Limit
}

// Page is one page of an author's letters, newest first.
type Page struct {
	Items   []Letter
	Total   int
	Page    int
	Limit   int
	HasMore bool
}

// NormalizeTitle trims a client title; blank or absent titles become PlaceholderTitle.
// The second result is the raw text the slug is derived from ("" when absent).
func NormalizeTitle(p *string) (title, slugSource string) {
	if p == nil {
		return PlaceholderTitle, ""
	}
	v := strings.TrimSpace(*p)
	if v == "" {
		return PlaceholderTitle, ""
	}
	return v, v
}

// ValidTitle reports whether a title fits the length bound.
func ValidTitle(s string) bool {
	return utf8.RuneCountInString(s) <= MaxTitleLength
}

// ValidContent reports whether s is a serialized JSON object or array.
func ValidContent(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" || (s[0] != '{' && s[0] != '[') {
		return false
	}
	return json.Valid([]byte(s))
}
