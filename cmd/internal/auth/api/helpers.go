package authapi

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"letterbox/cmd/identity"
	"letterbox/cmd/internal/apperr"
	"letterbox/cmd/security/password"
)

func toUserResponse(u identity.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// emailField validates an email and returns its normalized form.
func emailField(raw string) (string, *apperr.FieldError) {
	email := identity.NormalizeEmail(raw)
	switch {
	case email == "":
		fe := apperr.Field("email", "Email is required")
		return "", &fe
	case len(email) > identity.MaxEmailLength:
		fe := apperr.Field("email", "Email is too long")
		return "", &fe
	case !identity.ValidEmail(email):
		fe := apperr.Field("email", "Invalid email format")
		return "", &fe
	}
	return email, nil
}

// nameField validates an optional display name.
func nameField(raw *string) *apperr.FieldError {
	if raw == nil {
		return nil
	}
	n := identity.NormalizeName(raw)
	if n != nil && utf8.RuneCountInString(*n) > identity.MaxNameLength {
		fe := apperr.Field("name", "Name is too long")
		return &fe
	}
	if n == nil || !identity.ValidName(*n) {
		fe := apperr.Field("name", fmt.Sprintf("Name must be at least %d characters", identity.MinNameLength))
		return &fe
	}
	return nil
}

// passwordField maps policy violations to client messages.
func passwordField(field, plain string, cfg password.Config) *apperr.FieldError {
	err := cfg.Validate(plain)
	if err == nil {
		return nil
	}

	var msg string
	switch {
	case errors.Is(err, password.ErrPasswordTooShort):
		msg = fmt.Sprintf("Password must be at least %d characters", cfg.Policy.MinLength)
	case errors.Is(err, password.ErrPasswordTooLong):
		msg = "Password is too long"
	case errors.Is(err, password.ErrMissingClasses):
		msg = "Password must contain at least one uppercase letter, one lowercase letter, and one number"
	default:
		msg = "Password is too weak"
	}
	fe := apperr.Field(field, msg)
	return &fe
}

func collect(fields ...*apperr.FieldError) []apperr.FieldError {
	var out []apperr.FieldError
	for _, f := range fields {
		if f != nil {
			out = append(out, *f)
		}
	}
	return out
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }
