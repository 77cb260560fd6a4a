package identity

import "letterbox/cmd/internal/apperr"

// Sentinel error kinds. They alias the app-wide kinds so the HTTP boundary
// maps identity errors without a translation table.
var (
	ErrInvalidInput = apperr.ErrValidation
	ErrNotFound     = apperr.ErrNotFound
	ErrConflict     = apperr.ErrConflict
)
