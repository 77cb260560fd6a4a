// Package token provides guest-ownership token primitives for Letterbox.
//
// It is the single source of truth for how guest identities and guest secret tokens are minted
// and compared.
//
// Design goals:
// - Guest ids are random 32-char URL-safe strings (nanoid alphabet).
// - Guest tokens are a stable 64-char hex digest of "<guestID>:<unix millis>".
// - Default mode: SHA-256. A Minter built with a key (LETTERBOX_TOKEN_HMAC_KEY, read once at
//   startup) uses HMAC-SHA256.
// - Comparison is exact and constant-time.
//
// Policy:
//   - A configured key shorter than 32 bytes is rejected at startup.
//   - If RequireTokenHMAC=true, a key is mandatory (no SHA fallback).
package token
