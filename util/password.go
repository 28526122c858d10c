package util

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"sync"
)

var (
	jwtMu         sync.RWMutex
	jwtSecretByte = []byte(os.Getenv("JWT_SECRET"))
)

// SetJWTSecret replaces the secret used for token signing and legacy
// password hashing.
func SetJWTSecret(secret string) {
	jwtMu.Lock()
	defer jwtMu.Unlock()
	jwtSecretByte = []byte(secret)
}

// GetJWTSecretByte returns a copy of the signing secret.
func GetJWTSecretByte() []byte {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	return append([]byte(nil), jwtSecretByte...)
}

// HashPassword derives the legacy HMAC-SHA256 digest of a password. New
// accounts are hashed with Argon2id; this remains for verifying and
// upgrading credentials stored before the migration.
func HashPassword(password string) string {
	h := hmac.New(sha256.New, GetJWTSecretByte())
	h.Write([]byte(password))
	return hex.EncodeToString(h.Sum(nil))
}
