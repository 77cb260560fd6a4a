// Package main provides a CI-friendly HTTP smoke test for a running Letterbox server.
//
// It validates:
//   - register + profile with the issued token
//   - private letter create, owner read without counting
//   - anonymous read of a public letter bumps the read count
//   - guest create, wrong-token rejection, token update and delete
//   - paginated listing
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

type envelope struct {
	Status  int             `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"errors"`
}

type letterView struct {
	ID         string `json:"id"`
	Slug       string `json:"slug"`
	Title      string `json:"title"`
	IsPublic   bool   `json:"isPublic"`
	ReadCount  int64  `json:"readCount"`
	GuestToken string `json:"guestToken"`
}

type smoke struct {
	base    string
	client  *http.Client
	timeout time.Duration
	verbose bool
}

func main() {
	var (
		baseURL  = flag.String("url", "http://127.0.0.1:8080", "Letterbox base URL")
		password = flag.String("password", "Smoke-test1", "Password for the throwaway account")
		timeout  = flag.Duration("timeout", 7*time.Second, "Per-request timeout")
		verbose  = flag.Bool("v", false, "Verbose output")
	)
	flag.Parse()

	if err := validateBaseURL(*baseURL); err != nil {
		fatalf("invalid -url: %v", err)
	}

	s := &smoke{
		base:    strings.TrimRight(*baseURL, "/"),
		client:  &http.Client{},
		timeout: *timeout,
		verbose: *verbose,
	}
	ctx := context.Background()

	suffix, err := gonanoid.Generate("abcdefghijklmnopqrstuvwxyz0123456789", 10)
	if err != nil {
		fatalf("nanoid: %v", err)
	}
	email := "smoke-" + suffix + "@example.com"

	// Register.
	env := s.mustCall(ctx, http.MethodPost, "/auth/register", "", map[string]any{
		"email": email, "password": *password, "name": "Smoke Test",
	}, http.StatusCreated)
	var auth struct {
		Token string `json:"token"`
	}
	mustDecode(env, &auth)
	if auth.Token == "" {
		fatalf("register: empty token")
	}
	s.logf("registered %s", email)

	s.mustCall(ctx, http.MethodGet, "/auth/profile", auth.Token, nil, http.StatusOK)

	// Private letter: owner can read, strangers cannot, owner reads never count.
	env = s.mustCall(ctx, http.MethodPost, "/letters", auth.Token, map[string]any{
		"title": "Smoke " + suffix, "content": `{"ops":[{"insert":"hi"}]}`, "isPublic": false,
	}, http.StatusCreated)
	var private letterView
	mustDecode(env, &private)

	s.mustCall(ctx, http.MethodGet, "/letters/"+private.Slug, "", nil, http.StatusForbidden)
	env = s.mustCall(ctx, http.MethodGet, "/letters/"+private.Slug, auth.Token, nil, http.StatusOK)
	var ownerView letterView
	mustDecode(env, &ownerView)
	if ownerView.ReadCount != 0 {
		fatalf("owner read counted: readCount=%d", ownerView.ReadCount)
	}

	// Publish and read anonymously.
	s.mustCall(ctx, http.MethodPatch, "/letters/"+private.ID, auth.Token, map[string]any{"isPublic": true}, http.StatusOK)
	env = s.mustCall(ctx, http.MethodGet, "/letters/"+private.Slug, "", nil, http.StatusOK)
	var anonView letterView
	mustDecode(env, &anonView)
	if anonView.ReadCount != 1 {
		fatalf("anonymous read: readCount=%d want 1", anonView.ReadCount)
	}
	s.logf("public read counted")

	// Guest flow.
	env = s.mustCall(ctx, http.MethodPost, "/letters/guest", "", map[string]any{"content": "{}"}, http.StatusCreated)
	var guest letterView
	mustDecode(env, &guest)
	if len(guest.GuestToken) != 64 {
		fatalf("guest token length=%d want 64", len(guest.GuestToken))
	}
	wrong := strings.Repeat("0", 64)
	s.mustCall(ctx, http.MethodPatch, "/letters/guest/"+guest.ID, "", map[string]any{
		"guestToken": wrong, "title": "Hijack",
	}, http.StatusForbidden)
	s.mustCall(ctx, http.MethodPatch, "/letters/guest/"+guest.ID, "", map[string]any{
		"guestToken": guest.GuestToken, "title": "Guest smoke",
	}, http.StatusOK)
	s.mustCall(ctx, http.MethodDelete, "/letters/guest/"+guest.ID, "", map[string]any{
		"guestToken": guest.GuestToken,
	}, http.StatusOK)
	s.logf("guest lifecycle ok")

	// Listing.
	env = s.mustCall(ctx, http.MethodGet, "/letters?page=1&limit=5", auth.Token, nil, http.StatusOK)
	var page struct {
		Items []letterView `json:"items"`
		Total int          `json:"total"`
	}
	mustDecode(env, &page)
	if page.Total != 1 || len(page.Items) != 1 {
		fatalf("list: total=%d items=%d want 1/1", page.Total, len(page.Items))
	}

	s.mustCall(ctx, http.MethodDelete, "/letters/"+private.ID, auth.Token, nil, http.StatusOK)

	fmt.Println("OK: letters smoke passed")
}

func (s *smoke) mustCall(parent context.Context, method, path, bearer string, body any, want int) envelope {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			fatalf("%s %s: marshal: %v", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.base+path, rdr)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&env); err != nil {
		fatalf("%s %s: decode envelope: %v", method, path, err)
	}
	if resp.StatusCode != want {
		fatalf("%s %s: status=%d want=%d message=%q errors=%v", method, path, resp.StatusCode, want, env.Message, env.Errors)
	}
	s.logf("%s %s -> %d %s", method, path, resp.StatusCode, env.Message)
	return env
}

func mustDecode(env envelope, dst any) {
	if err := json.Unmarshal(env.Data, dst); err != nil {
		fatalf("decode data (%s): %v", env.Message, err)
	}
}

func validateBaseURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if strings.TrimSpace(u.Host) == "" {
		return errors.New("missing host")
	}
	return nil
}

func (s *smoke) logf(format string, args ...any) {
	if s.verbose {
		fmt.Fprintf(os.Stderr, "smoke: "+format+"\n", args...)
	}
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "FAIL: "+format+"\n", args...)
	os.Exit(1)
}
