// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

// Package auth implements the credential and session lifecycle engine:
// password hashing, signed verification links, single-use reset tokens,
// and server-side sessions with absolute and step-up expiry.
//
// The package owns no state. Users and reset tokens live behind
// UserRepository and ResetTokenRepository; sessions live behind
// SessionStore. Implementations are in the postgres and memory
// subpackages.
package auth
