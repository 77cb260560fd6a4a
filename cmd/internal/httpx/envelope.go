// Package httpx holds the HTTP plumbing shared by Letterbox handlers:
// the response envelope, the single error-to-status translator, JSON decoding,
// bearer authentication and client IP extraction.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"letterbox/cmd/internal/apperr"
)

const (
	MsgInternal      = "Internal server error"
	MsgInvalidBody   = "Invalid request body"
	MsgRouteNotFound = "Route not found"
)

// Envelope is the uniform response body. Status repeats the HTTP status code.
type Envelope struct {
	Status  int                 `json:"status"`
	Message string              `json:"message"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// WriteJSON writes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes a success envelope.
func WriteSuccess(w http.ResponseWriter, status int, msg string, data any) {
	WriteJSON(w, status, Envelope{Status: status, Message: msg, Data: data})
}

// WriteError maps err to a status code and writes an error envelope.
// Typed errors expose their message and field errors; anything else is logged
// and reported as a generic internal error.
func WriteError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	status := apperr.Status(err)

	ae, ok := apperr.As(err)
	if !ok || status == http.StatusInternalServerError {
		if log == nil {
			log = slog.Default()
		}
		attrs := []any{"err", err}
		if r != nil {
			attrs = append(attrs, "method", r.Method, "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()))
		}
		log.Error("http.internal_error", attrs...)
		WriteJSON(w, http.StatusInternalServerError, Envelope{Status: http.StatusInternalServerError, Message: MsgInternal})
		return
	}

	if errors.Is(err, apperr.ErrRateLimited) && ae.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.FormatInt(int64(ae.RetryAfter.Seconds()), 10))
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="letterbox"`)
	}

	msg := ae.Msg
	if msg == "" {
		msg = http.StatusText(status)
	}
	WriteJSON(w, status, Envelope{Status: status, Message: msg, Errors: ae.Fields})
}

// NotFound answers unknown routes.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusNotFound, Envelope{Status: http.StatusNotFound, Message: MsgRouteNotFound})
}

// DecodeJSON decodes exactly one JSON value from the body into dst, rejecting
// unknown fields and bodies larger than maxBytes. Failures are validation errors.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	const op = "httpx.DecodeJSON"

	if r.Body == nil {
		return apperr.Validation(op, apperr.Field("body", "Request body is required"))
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		switch {
		case errors.As(err, &mbe):
			return apperr.Validation(op, apperr.Field("body", "Request body is too large"))
		case errors.Is(err, io.EOF):
			return apperr.Validation(op, apperr.Field("body", "Request body is required"))
		default:
			return &apperr.Error{Op: op, Kind: apperr.ErrValidation, Msg: MsgInvalidBody, Fields: decodeFields(err)}
		}
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return apperr.Validation(op, apperr.Field("body", "Unexpected data after JSON object"))
	}
	return nil
}

func decodeFields(err error) []apperr.FieldError {
	var ute *json.UnmarshalTypeError
	if errors.As(err, &ute) && ute.Field != "" {
		return []apperr.FieldError{apperr.Field(ute.Field, "Invalid type, expected "+ute.Type.String())}
	}
	return []apperr.FieldError{apperr.Field("body", "Malformed JSON")}
}
