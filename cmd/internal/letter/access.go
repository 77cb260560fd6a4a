package letter

import (
	"letterbox/cmd/internal/apperr"
	"letterbox/cmd/security/token"
)

// Principal is whoever is attempting an access.
// UserID is set for authenticated callers; GuestToken is set when a guest proof is presented.
// Both empty means anonymous.
type Principal struct {
	UserID     string
	GuestToken string
}

// Anonymous returns the unauthenticated principal.
func Anonymous() Principal { return Principal{} }

// User returns an authenticated principal.
func User(userID string) Principal { return Principal{UserID: userID} }

// Guest returns a principal holding a guest token.
func Guest(guestToken string) Principal { return Principal{GuestToken: guestToken} }

// Authenticated reports whether the principal carries a user identity.
func (p Principal) Authenticated() bool { return p.UserID != "" }

// Action is the kind of access being attempted.
type Action int

const (
	// ActionRead is a read by slug; public letters are readable by anyone.
	ActionRead Action = iota
	// ActionReadOwn is a read by id through the owner-only route.
	ActionReadOwn
	// ActionMutate covers update and delete.
	ActionMutate
)

// Decision is the outcome of an access check.
type Decision int

const (
	Deny Decision = iota
	Allow
	// AllowAndCount allows a read and requires the read counter to be incremented.
	AllowAndCount
)

// Decide evaluates access for p performing a on l.
//
// Reads: public letters are allowed, counted unless p is the author.
// Private letters are allowed only for the authenticated author.
// Mutations: a guest token is checked against the stored token only; otherwise
// p must be the authenticated author.
func Decide(a Action, l Letter, p Principal) Decision {
	isAuthor := p.Authenticated() && l.Owner.AuthorID != "" && p.UserID == l.Owner.AuthorID

	switch a {
	case ActionRead:
		if l.IsPublic {
			if isAuthor {
				return Allow
			}
			return AllowAndCount
		}
		if isAuthor {
			return Allow
		}
		return Deny

	case ActionReadOwn:
		if isAuthor {
			return Allow
		}
		return Deny

	case ActionMutate:
		if p.GuestToken != "" {
			if l.Owner.IsGuest() && token.EqualGuestToken(p.GuestToken, l.Owner.GuestToken) {
				return Allow
			}
			return Deny
		}
		if isAuthor {
			return Allow
		}
		return Deny
	}

	return Deny
}

// Authorize wraps Decide and returns a typed Forbidden error on denial.
func Authorize(op string, a Action, l Letter, p Principal) (countRead bool, err error) {
	switch Decide(a, l, p) {
	case AllowAndCount:
		return true, nil
	case Allow:
		return false, nil
	}

	if a == ActionMutate && p.GuestToken != "" {
		return false, apperr.Forbidden(op, MsgInvalidGuestToken)
	}
	return false, apperr.Forbidden(op, MsgForbidden)
}
