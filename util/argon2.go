package util

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2Prefix marks password digests produced by the Argon2id scheme.
// Stored hashes without it are legacy HMAC-SHA256 digests.
const Argon2Prefix = "argon2id$"

const (
	argon2Time    = 3
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	argon2KeyLen  = 32
	saltByteLen   = 16
)

// GenerateSalt returns a new hex-encoded random salt for Argon2id hashing.
func GenerateSalt() (string, error) {
	salt := make([]byte, saltByteLen)
	if _, err := rand.Read(salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// HashPasswordArgon2 derives an Argon2id digest of the password using the
// provided salt. The returned string carries the argon2id$ prefix so it can
// be told apart from legacy digests at verification time.
func HashPasswordArgon2(password, salt string) (string, error) {
	if salt == "" {
		return "", fmt.Errorf("salt must not be empty")
	}
	key := argon2.IDKey([]byte(password), []byte(salt), argon2Time, argon2Memory, argon2Threads, argon2KeyLen)
	return Argon2Prefix + base64.RawStdEncoding.EncodeToString(key), nil
}

// VerifyPassword checks a plaintext password against a stored digest. Argon2id
// digests are recomputed with the stored salt; anything without the prefix is
// verified against the legacy HMAC-SHA256 scheme. Both paths compare in
// constant time.
func VerifyPassword(password, storedHash, salt string) (bool, error) {
	if strings.HasPrefix(storedHash, Argon2Prefix) {
		computed, err := HashPasswordArgon2(password, salt)
		if err != nil {
			return false, err
		}
		return subtle.ConstantTimeCompare([]byte(computed), []byte(storedHash)) == 1, nil
	}
	legacy := HashPassword(password)
	return subtle.ConstantTimeCompare([]byte(legacy), []byte(storedHash)) == 1, nil
}
