package token

import (
	"strings"
	"testing"
	"time"
)

func TestHashSHA256Hex_Stable(t *testing.T) {
	got := HashSHA256Hex("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("HashSHA256Hex()=%q want=%q", got, want)
	}
}

func TestParseHMACKey(t *testing.T) {
	if _, err := ParseHMACKey("  ", 32); err != ErrHMACKeyMissing {
		t.Fatalf("expected ErrHMACKeyMissing, got %v", err)
	}
	if _, err := ParseHMACKey("short", 32); err != ErrHMACKeyTooShort {
		t.Fatalf("expected ErrHMACKeyTooShort, got %v", err)
	}

	key, err := ParseHMACKey(" "+strings.Repeat("k", 32)+" ", 32)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(key) != 32 {
		t.Fatalf("key length=%d want=32", len(key))
	}
}

func TestDigestHex_ModeSwitch(t *testing.T) {
	if got := DigestHex("x", nil); got != HashSHA256Hex("x") {
		t.Fatalf("expected SHA-256 mode without key")
	}

	key := []byte(strings.Repeat("k", 32))
	if got := DigestHex("x", key); got != HashHMACSHA256Hex("x", key) {
		t.Fatalf("expected HMAC mode with key")
	}
}

func TestNewGuestPair(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	p, err := NewGuestPair(now)
	if err != nil {
		t.Fatalf("NewGuestPair error: %v", err)
	}
	if len(p.ID) != GuestIDLength {
		t.Fatalf("guest id length=%d want=%d", len(p.ID), GuestIDLength)
	}
	if !IsGuestTokenFormat(p.Token) {
		t.Fatalf("guest token has wrong shape: %q", p.Token)
	}
	if p.Token != HashSHA256Hex(p.ID+":1772366400000") {
		t.Fatalf("guest token is not derived from id and timestamp")
	}

	q, err := NewGuestPair(now)
	if err != nil {
		t.Fatalf("NewGuestPair error: %v", err)
	}
	if p.ID == q.ID || p.Token == q.Token {
		t.Fatalf("expected distinct pairs")
	}
}

func TestMinter_KeyFixedAtConstruction(t *testing.T) {
	key := []byte(strings.Repeat("k", 32))
	m := NewMinter(key)
	if !m.HMAC() {
		t.Fatalf("expected HMAC minter")
	}
	key[0] = 'x'

	// The environment is not consulted after construction.
	t.Setenv(HMACEnvKey, strings.Repeat("z", 32))

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	p, err := m.NewGuestPair(now)
	if err != nil {
		t.Fatalf("NewGuestPair error: %v", err)
	}
	want := HashHMACSHA256Hex(p.ID+":1772366400000", []byte(strings.Repeat("k", 32)))
	if p.Token != want {
		t.Fatalf("token not keyed with the construction-time key")
	}
	if (Minter{}).HMAC() {
		t.Fatalf("zero Minter must use SHA-256")
	}
}

func TestEqualGuestToken(t *testing.T) {
	tok := strings.Repeat("a", 64)

	if !EqualGuestToken(tok, tok) {
		t.Fatalf("expected equal")
	}
	if EqualGuestToken(tok, strings.Repeat("b", 64)) {
		t.Fatalf("expected mismatch")
	}
	if EqualGuestToken("", "") {
		t.Fatalf("empty tokens must never match")
	}
	if EqualGuestToken(tok, "") {
		t.Fatalf("missing stored token must never match")
	}
}

func TestIsGuestTokenFormat(t *testing.T) {
	cases := map[string]bool{
		strings.Repeat("a", 64):       true,
		strings.Repeat("F", 64):       true,
		strings.Repeat("a", 63):       false,
		strings.Repeat("a", 65):       false,
		strings.Repeat("g", 64):       false,
		"":                            false,
		strings.Repeat("0", 63) + "-": false,
	}
	for in, want := range cases {
		if got := IsGuestTokenFormat(in); got != want {
			t.Fatalf("IsGuestTokenFormat(%q)=%v want=%v", in, got, want)
		}
	}
}
