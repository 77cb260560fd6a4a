// Package password provides password hashing and verification utilities for Letterbox.
//
// It implements bcrypt hashing and includes:
// - A configurable bcrypt cost (via environment variables)
// - Password policy validation (length bounds and character classes)
// - Strict hash checks during verification
//
// Security notes:
// - Hash strings are treated as untrusted input during Verify.
// - Inputs longer than bcrypt's 72-byte limit are pre-hashed so no part of the password is ignored.
package password
