package letter

import "letterbox/cmd/internal/apperr"

// Client-facing messages.
const (
	MsgNotFound          = "Letter not found"
	MsgForbidden         = "Unauthorized access to letter"
	MsgInvalidGuestToken = "Invalid guest token"
	MsgEmptyPatch        = "At least one field must be provided for update"
)

var (
	// ErrNotFound is returned by stores when no letter matches.
	ErrNotFound = &apperr.Error{Op: "letter.store", Kind: apperr.ErrNotFound, Msg: MsgNotFound}

	// ErrSlugTaken is returned by stores when the slug unique constraint fires.
	ErrSlugTaken = &apperr.Error{Op: "letter.store", Kind: apperr.ErrConflict, Msg: "slug already taken"}
)
