// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Reset token configuration.
const (
	// ResetTokenBytes is the entropy of a plaintext reset token.
	ResetTokenBytes = 32

	// ResetTokenLength is the encoded plaintext length:
	// 32 bytes in unpadded base64url.
	ResetTokenLength = 43

	// DefaultResetTokenLifetime is how long a reset token stays valid.
	DefaultResetTokenLifetime = 2 * time.Hour
)

// ResetToken is a persisted password-reset request. Only the keyed
// digest of the emailed token is stored; the plaintext exists solely
// in the email. One user may hold several outstanding tokens, each
// independently valid until redeemed or expired.
type ResetToken struct {
	ID        ulid.ULID
	UserID    int64
	Digest    []byte
	ExpiresAt time.Time
	CreatedAt time.Time
}

// NewResetToken creates a validated ResetToken record.
func NewResetToken(userID int64, digest []byte, expiresAt time.Time) (*ResetToken, error) {
	if userID == 0 {
		return nil, oops.Code("RESET_INVALID_USER").Errorf("user id cannot be zero")
	}
	if len(digest) == 0 {
		return nil, oops.Code("RESET_INVALID_DIGEST").Errorf("token digest cannot be empty")
	}
	if expiresAt.IsZero() {
		return nil, oops.Code("RESET_INVALID_EXPIRY").Errorf("expiry time cannot be zero")
	}
	return &ResetToken{
		ID:        ulid.Make(),
		UserID:    userID,
		Digest:    digest,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}, nil
}

// IsExpiredAt reports whether the token would be expired at t.
func (r *ResetToken) IsExpiredAt(t time.Time) bool {
	return t.After(r.ExpiresAt)
}

// GenerateResetToken creates a cryptographically random plaintext
// token. The caller emails it and persists only its digest.
func GenerateResetToken() (string, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("RESET_TOKEN_GENERATE_FAILED").Wrap(err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// DigestResetToken computes the keyed digest (HMAC-SHA256) of a
// plaintext token. Reset tokens are treated like passwords: a stolen
// table of digests mints no valid tokens without the key.
func DigestResetToken(plaintext string, key []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)
}

// ResetTokenRepository manages reset token persistence.
type ResetTokenRepository interface {
	// Create stores a new reset token record.
	Create(ctx context.Context, token *ResetToken) error

	// GetByUser retrieves every outstanding token for a user. Redeem
	// scans only this set, never the whole table.
	GetByUser(ctx context.Context, userID int64) ([]*ResetToken, error)

	// DeleteByUser removes all of a user's tokens and returns how many
	// were deleted. Redemption relies on the count: under concurrent
	// redeems of the same token, exactly one caller observes a
	// non-zero count.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteExpired removes all expired tokens and returns the count.
	DeleteExpired(ctx context.Context) (int64, error)
}
