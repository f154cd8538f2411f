// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"context"
	"strings"
	"time"
)

// User is an identity record. The ID is immutable; VerifiedAt moves
// exactly once, from nil to a timestamp, and never back.
type User struct {
	ID           int64
	Email        string
	Name         string
	PasswordHash string
	VerifiedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Verified reports whether the user's email has been verified.
func (u *User) Verified() bool { return u.VerifiedAt != nil }

// SerializedUser is the externally visible shape of a User. It never
// carries the password digest.
type SerializedUser struct {
	ID         int64      `json:"id"`
	Email      string     `json:"email"`
	Name       string     `json:"name"`
	VerifiedAt *time.Time `json:"verifiedAt"`
}

// Serialize returns the external representation of the user.
func (u *User) Serialize() SerializedUser {
	return SerializedUser{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		VerifiedAt: u.VerifiedAt,
	}
}

// NormalizeEmail canonicalizes an email for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// UserRepository manages user persistence.
type UserRepository interface {
	// Create stores a new user and fills in its generated fields.
	// The store must enforce email uniqueness atomically and return
	// ErrEmailTaken on a duplicate, even under concurrent inserts.
	Create(ctx context.Context, user *User) (*User, error)

	// GetByID retrieves a user by id. Returns ErrNotFound if absent.
	GetByID(ctx context.Context, id int64) (*User, error)

	// GetByEmail retrieves a user by normalized email.
	// Returns ErrNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// UpdatePassword replaces the stored password digest.
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error

	// MarkVerified sets VerifiedAt if and only if it is still unset.
	// Returns ErrAlreadyVerified when it was already set, keeping the
	// transition monotonic under concurrent verification attempts.
	MarkVerified(ctx context.Context, id int64, at time.Time) error
}
