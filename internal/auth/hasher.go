// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the default bcrypt work factor.
const DefaultBcryptCost = 12

// DummyHash is a valid bcrypt digest that matches no issued password.
// Login verifies against it when the email is unknown so the work
// performed is the same in both branches.
const DummyHash = "$2b$12$VktGc1bsLO8th6pEgSOFROA4UkZ0otVZViRWwMAaTcqfJOtjE2aaK"

// PasswordHasher adapts variable-length passwords into stored
// credentials and verifies candidates against them.
type PasswordHasher interface {
	// Hash produces a salted digest of the password.
	Hash(password string) (string, error)

	// Verify checks the password against a stored digest.
	// Returns (true, nil) on match, (false, nil) on mismatch, or an
	// error when the digest itself is malformed.
	Verify(password, digest string) (bool, error)
}

// BcryptHasher implements PasswordHasher with bcrypt over a SHA-256
// pre-digest.
//
// Bcrypt ignores every input byte past the 72nd, so two passwords that
// agree on their first 72 bytes would otherwise collide. Hashing the
// SHA-256 of the password instead (base64, 44 bytes) keeps every input
// byte significant while staying under the limit.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher creates a BcryptHasher with the given work factor.
// The cost is validated once here; Hash never silently degrades it.
func NewBcryptHasher(cost int) (*BcryptHasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, oops.Code("HASHER_INVALID_COST").
			With("cost", cost).
			With("min", bcrypt.MinCost).
			With("max", bcrypt.MaxCost).
			Errorf("bcrypt cost out of range")
	}
	return &BcryptHasher{cost: cost}, nil
}

// Prehash reduces a password of any length to a fixed 44-byte value.
func Prehash(password string) []byte {
	sum := sha256.Sum256([]byte(password))
	out := make([]byte, base64.StdEncoding.EncodedLen(len(sum)))
	base64.StdEncoding.Encode(out, sum[:])
	return out
}

// Hash produces a salted bcrypt digest of the pre-hashed password.
// Bcrypt supplies a fresh random salt internally on every call.
func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(Prehash(password), h.cost)
	if err != nil {
		return "", oops.Code("HASHER_HASH_FAILED").Wrap(err)
	}
	return string(digest), nil
}

// Verify checks the password against a stored bcrypt digest.
//
// Bcrypt's own comparison extracts the salt and cost from the digest;
// it is not constant-time, but a matching digest cannot be predicted
// offline, so the timing variance reveals nothing useful.
func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), Prehash(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, oops.Code("HASHER_INVALID_DIGEST").Wrap(err)
}

// Compile-time interface check.
var _ PasswordHasher = (*BcryptHasher)(nil)
