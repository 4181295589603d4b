package idgen

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

const idCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSecureID returns an identifier of the form "<prefix>_<random>"
// where the random part is length characters drawn from [a-z0-9] using
// crypto/rand.
func GenerateSecureID(prefix string, length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("id length must be positive, got %d", length)
	}

	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}

	for i, b := range buf {
		buf[i] = idCharset[int(b)%len(idCharset)]
	}

	return prefix + "_" + string(buf), nil
}

// ValidateIDFormat reports whether id has the given prefix followed by an
// underscore and a non-empty [a-z0-9] suffix.
func ValidateIDFormat(id, expectedPrefix string) bool {
	prefixLen := len(expectedPrefix) + 1
	if len(id) <= prefixLen {
		return false
	}
	if id[:prefixLen] != expectedPrefix+"_" {
		return false
	}
	for _, char := range id[prefixLen:] {
		if !((char >= 'a' && char <= 'z') || (char >= '0' && char <= '9')) {
			return false
		}
	}
	return true
}

// HashKey256 returns the hex encoded SHA-256 of key concatenated with secret.
func HashKey256(key string, secret []byte) string {
	h := sha256.New()
	h.Write([]byte(key))
	h.Write(secret)
	return hex.EncodeToString(h.Sum(nil))
}
