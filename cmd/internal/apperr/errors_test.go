package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStatus(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "validation", err: Validation("op", Field("email", "Invalid email")), want: http.StatusBadRequest},
		{name: "unauthenticated", err: Unauthenticated("op", "nope"), want: http.StatusUnauthorized},
		{name: "forbidden", err: Forbidden("op", "nope"), want: http.StatusForbidden},
		{name: "not found", err: NotFound("op", "missing"), want: http.StatusNotFound},
		{name: "conflict", err: New("op", ErrConflict, "dup"), want: http.StatusConflict},
		{name: "rate limited", err: New("op", ErrRateLimited, "slow down"), want: http.StatusTooManyRequests},
		{name: "wrapped", err: fmt.Errorf("outer: %w", NotFound("op", "missing")), want: http.StatusNotFound},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := Status(tc.err); got != tc.want {
				t.Fatalf("Status()=%d want=%d", got, tc.want)
			}
		})
	}
}

func TestAs_PreservesFields(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("wrap: %w", Validation("letter.create", Field("content", "Content must be valid JSON")))

	ae, ok := As(err)
	if !ok {
		t.Fatalf("expected *Error")
	}
	if ae.Msg != "Validation failed" {
		t.Fatalf("unexpected msg: %q", ae.Msg)
	}
	if len(ae.Fields) != 1 || ae.Fields[0].Field != "content" {
		t.Fatalf("unexpected fields: %+v", ae.Fields)
	}
	if !IsValidation(err) {
		t.Fatalf("expected IsValidation")
	}
}

func TestError_Message(t *testing.T) {
	t.Parallel()

	if got := New("op", ErrNotFound, "").Error(); got != "op: not_found" {
		t.Fatalf("unexpected: %q", got)
	}
	if got := New("op", ErrNotFound, "Letter not found").Error(); got != "op: not_found: Letter not found" {
		t.Fatalf("unexpected: %q", got)
	}
}
