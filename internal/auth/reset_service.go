// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/authgate/authgate/internal/observability"
	"github.com/authgate/authgate/pkg/errutil"
)

// PasswordResetService handles the reset-token recovery flow.
type PasswordResetService struct {
	users         UserRepository
	resets        ResetTokenRepository
	sessions      *SessionManager
	hasher        PasswordHasher
	keys          *Keys
	mailer        Mailer
	logger        *slog.Logger
	metrics       *observability.Metrics
	origin        string
	tokenLifetime time.Duration
}

// NewPasswordResetService creates a PasswordResetService. logger and
// metrics may be nil.
func NewPasswordResetService(users UserRepository, resets ResetTokenRepository, sessions *SessionManager, hasher PasswordHasher, keys *Keys, mailer Mailer, logger *slog.Logger, metrics *observability.Metrics, origin string, tokenLifetime time.Duration) (*PasswordResetService, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if resets == nil {
		return nil, oops.Errorf("reset token repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if keys == nil {
		return nil, oops.Errorf("signing keys are required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tokenLifetime <= 0 {
		tokenLifetime = DefaultResetTokenLifetime
	}
	return &PasswordResetService{
		users:         users,
		resets:        resets,
		sessions:      sessions,
		hasher:        hasher,
		keys:          keys,
		mailer:        mailer,
		logger:        logger,
		metrics:       metrics,
		origin:        origin,
		tokenLifetime: tokenLifetime,
	}, nil
}

// resetURL is the link emailed to the user; the plaintext token rides
// in the query, the server keeps only its digest.
func (s *PasswordResetService) resetURL(userID int64, plaintext string) string {
	return fmt.Sprintf("%s/password/reset?id=%d&token=%s", s.origin, userID, plaintext)
}

// Request issues a reset token for the account behind email and mails
// the tokenized URL.
//
// The caller receives the same nil result whether or not the email is
// registered — a uniform acknowledgement is the enumeration-resistant
// policy. Issuing a second token does not invalidate the first: each
// outstanding token stays valid until redeemed or expired, so a
// "resend" never breaks an earlier link.
func (s *PasswordResetService) Request(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.metrics.RecordOperation("reset_request", observability.OutcomeSuccess)
			return nil
		}
		s.metrics.RecordOperation("reset_request", observability.OutcomeError)
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	plaintext, err := GenerateResetToken()
	if err != nil {
		s.metrics.RecordOperation("reset_request", observability.OutcomeError)
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "generate token").
			Wrap(err)
	}

	token, err := NewResetToken(user.ID, DigestResetToken(plaintext, s.keys.URLKey()), time.Now().Add(s.tokenLifetime))
	if err != nil {
		s.metrics.RecordOperation("reset_request", observability.OutcomeError)
		return err
	}
	if err := s.resets.Create(ctx, token); err != nil {
		s.metrics.RecordOperation("reset_request", observability.OutcomeError)
		return oops.Code("RESET_REQUEST_FAILED").
			With("operation", "persist token").
			Wrap(err)
	}

	if err := s.mailer.Send(ctx, user.Email, resetRequestSubject, resetRequestBody(s.resetURL(user.ID, plaintext))); err != nil {
		s.metrics.RecordMailFailure("reset_request")
		errutil.LogError(s.logger, "reset mail dispatch failed", err)
	}

	s.metrics.RecordOperation("reset_request", observability.OutcomeSuccess)
	return nil
}

// Reset redeems a token, replaces the password digest, revokes all of
// the user's outstanding tokens, and destroys every session bound to
// the user — a successful reset leaves no session alive under the old
// credential.
//
// The digest of the presented token is compared against only the
// candidate user's stored tokens, each with a constant-time compare.
// The DeleteByUser affected-count makes redemption atomic: of two
// concurrent redeems, exactly one observes a non-zero count.
func (s *PasswordResetService) Reset(ctx context.Context, userID int64, plaintext, newPassword string) error {
	digest := DigestResetToken(plaintext, s.keys.URLKey())

	tokens, err := s.resets.GetByUser(ctx, userID)
	if err != nil {
		s.metrics.RecordOperation("reset_password", observability.OutcomeError)
		return oops.Code("RESET_FAILED").
			With("operation", "get tokens by user").
			Wrap(err)
	}

	now := time.Now()
	matched := false
	for _, token := range tokens {
		if SafeEqual(token.Digest, digest) && !token.IsExpiredAt(now) {
			matched = true
			// no break: scan the remaining tokens anyway
		}
	}
	if !matched {
		s.metrics.RecordOperation("reset_password", observability.OutcomeRejected)
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// A valid token pointing at a missing user row is an
			// invariant violation, not a caller mistake.
			s.metrics.RecordOperation("reset_password", observability.OutcomeError)
			return oops.Code("RESET_UNREACHABLE").
				With("user_id", userID).
				Errorf("reset token matched but user does not exist")
		}
		s.metrics.RecordOperation("reset_password", observability.OutcomeError)
		return oops.Code("RESET_FAILED").
			With("operation", "get user").
			Wrap(err)
	}

	// Consume the tokens before touching the password. The conditional
	// delete is the atomic redemption point: of two concurrent redeems
	// only one observes a non-zero count, and the loser never writes.
	deleted, err := s.resets.DeleteByUser(ctx, userID)
	if err != nil {
		s.metrics.RecordOperation("reset_password", observability.OutcomeError)
		return oops.Code("RESET_FAILED").
			With("operation", "invalidate tokens").
			Wrap(err)
	}
	if deleted == 0 {
		s.metrics.RecordOperation("reset_password", observability.OutcomeRejected)
		return oops.Code("RESET_TOKEN_INVALID").Wrap(ErrInvalidToken)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		s.metrics.RecordOperation("reset_password", observability.OutcomeError)
		return oops.Code("RESET_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}
	if err := s.users.UpdatePassword(ctx, userID, hash); err != nil {
		s.metrics.RecordOperation("reset_password", observability.OutcomeError)
		return oops.Code("RESET_FAILED").
			With("operation", "update password").
			Wrap(err)
	}

	revoked, err := s.sessions.RevokeAll(ctx, userID)
	if err != nil {
		s.metrics.RecordOperation("reset_password", observability.OutcomeError)
		return err
	}
	s.metrics.RecordSessionsRevoked(revoked)

	if err := s.mailer.Send(ctx, user.Email, resetNotifySubject, resetNotifyBody()); err != nil {
		s.metrics.RecordMailFailure("reset_notify")
		errutil.LogError(s.logger, "reset notification mail failed", err)
	}

	s.metrics.RecordOperation("reset_password", observability.OutcomeSuccess)
	return nil
}
