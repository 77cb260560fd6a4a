package identity

import "letterbox/cmd/security/password"

// HashPassword hashes a plain password after enforcing the configured policy.
func HashPassword(plain string, cfg password.Config) (string, error) {
	return cfg.Hash(plain)
}

// VerifyPassword checks plain against an encoded hash.
func VerifyPassword(plain, encoded string, cfg password.Config) (bool, error) {
	return cfg.Verify(encoded, plain)
}
