// Package auth hashes and compares account passwords for both identity
// spaces (Player and Developer).
package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
)

// ErrEmptyPassword is returned by HashPassword for a blank password.
var ErrEmptyPassword = errors.New("password required")

// HashPassword returns the lowercase hex SHA-256 digest of plain, the exact
// hash shape the data model pins (spec: "passwordHash (SHA-256 hex)"). There
// is deliberately no per-user salt or work factor: the spec fixes the
// algorithm, not a general-purpose KDF.
func HashPassword(plain string) (string, error) {
	if plain == "" {
		return "", ErrEmptyPassword
	}
	sum := sha256.Sum256([]byte(plain))
	return hex.EncodeToString(sum[:]), nil
}

// ComparePasswordHash reports whether plain hashes to hash, in constant
// time with respect to the comparison (not the hashing itself).
func ComparePasswordHash(hash, plain string) bool {
	got, err := HashPassword(plain)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(hash)) == 1
}
