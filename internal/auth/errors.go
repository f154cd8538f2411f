// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import "errors"

// Sentinel errors. Services wrap these with oops codes; callers match
// with errors.Is.
var (
	// ErrNotFound is returned when a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrEmailTaken is returned when registering with an email that is
	// already in use. Repositories map the store's uniqueness violation
	// to this error, so the duplicate-insert race is closed at the store.
	ErrEmailTaken = errors.New("email already taken")

	// ErrInvalidCredentials is returned on a failed login or step-up
	// confirmation. It never distinguishes unknown email from wrong
	// password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrInvalidToken is returned for an unknown, expired, or already
	// redeemed reset token, and for a bad verification-link signature.
	ErrInvalidToken = errors.New("invalid token")

	// ErrAlreadyVerified is returned when verifying an email that has
	// already been verified.
	ErrAlreadyVerified = errors.New("email already verified")

	// ErrNoSession is returned by operations that require an
	// authenticated session when none is present.
	ErrNoSession = errors.New("not logged in")

	// ErrAlreadyLoggedIn is returned by guest-only operations
	// (register, login) when the session is already authenticated.
	ErrAlreadyLoggedIn = errors.New("already logged in")

	// ErrSessionExpired is returned when a session exceeded its
	// absolute lifetime. The session is destroyed before this is
	// returned.
	ErrSessionExpired = errors.New("session expired")
)
