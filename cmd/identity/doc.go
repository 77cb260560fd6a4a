// Package identity implements Letterbox's user accounts and the login audit log.
//
// It contains the user model, email normalization, password hashing glue,
// and Postgres + in-memory stores used by the HTTP layer.
package identity
