package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// NewResetSecret generates a password-reset secret. The plaintext goes to
// the user (out of band); only the hash is stored.
func NewResetSecret() (plaintext string, hash string, err error) {
	buf := make([]byte, 32)

	_, err = rand.Read(buf)

	if err != nil {
		return "", "", err
	}

	plaintext = hex.EncodeToString(buf)

	return plaintext, HashResetToken(plaintext), nil
}

// HashResetToken is deliberately deterministic (unlike bcrypt): a presented
// plaintext is re-hashed and matched against the stored value by equality.
func HashResetToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))

	return hex.EncodeToString(sum[:])
}
