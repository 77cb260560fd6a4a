// Package credential issues and verifies Letterbox access tokens.
//
// Access tokens are HS256 JWTs carrying the user id and email. There is no
// server-side session state and no revocation list: validity is signature,
// issuer and expiry only. Logout is client-driven.
//
// A missing signing secret is a startup failure (ErrConfig), never a per-request error.
package credential
