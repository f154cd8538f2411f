// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/authgate/authgate/internal/observability"
	"github.com/authgate/authgate/pkg/errutil"
)

// Service composes the hasher, signer, session manager, and
// repositories into the registration, login, and verification
// operations. It owns no state of its own.
type Service struct {
	users        UserRepository
	sessions     *SessionManager
	hasher       PasswordHasher
	signer       *LinkSigner
	mailer       Mailer
	logger       *slog.Logger
	metrics      *observability.Metrics
	linkLifetime time.Duration
}

// NewService creates a Service. logger and metrics may be nil.
func NewService(users UserRepository, sessions *SessionManager, hasher PasswordHasher, signer *LinkSigner, mailer Mailer, logger *slog.Logger, metrics *observability.Metrics, linkLifetime time.Duration) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if sessions == nil {
		return nil, oops.Errorf("session manager is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if signer == nil {
		return nil, oops.Errorf("link signer is required")
	}
	if mailer == nil {
		return nil, oops.Errorf("mailer is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if linkLifetime <= 0 {
		linkLifetime = DefaultLinkLifetime
	}
	return &Service{
		users:        users,
		sessions:     sessions,
		hasher:       hasher,
		signer:       signer,
		mailer:       mailer,
		logger:       logger,
		metrics:      metrics,
		linkLifetime: linkLifetime,
	}, nil
}

// Register creates a user, logs the fresh identity in on a regenerated
// session, and dispatches a signed verification link by email.
//
// The email uniqueness race is closed by the store: Create returns
// ErrEmailTaken from the unique constraint, not from a prior read.
// Mail dispatch is awaited so delivery errors are observed, but a
// failure only gets logged: the user is registered either way.
func (s *Service) Register(ctx context.Context, session *Session, name, email, password string) (*Session, *User, error) {
	if session != nil && session.Authenticated() {
		s.metrics.RecordOperation("register", observability.OutcomeRejected)
		return nil, nil, oops.Code("AUTH_ALREADY_LOGGED_IN").Wrap(ErrAlreadyLoggedIn)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		s.metrics.RecordOperation("register", observability.OutcomeError)
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user := &User{
		Email:        NormalizeEmail(email),
		Name:         name,
		PasswordHash: hash,
	}
	user, err = s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			s.metrics.RecordOperation("register", observability.OutcomeRejected)
			return nil, nil, oops.Code("AUTH_EMAIL_TAKEN").Wrap(err)
		}
		s.metrics.RecordOperation("register", observability.OutcomeError)
		return nil, nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "create user").
			Wrap(err)
	}

	fresh, err := s.sessions.Login(ctx, session, user.ID)
	if err != nil {
		s.metrics.RecordOperation("register", observability.OutcomeError)
		return nil, nil, err
	}

	link := s.signer.VerificationURL(user.ID, time.Now(), s.linkLifetime)
	if err := s.mailer.Send(ctx, user.Email, verificationSubject, verificationBody(link)); err != nil {
		s.metrics.RecordMailFailure("verification")
		errutil.LogError(s.logger, "verification mail dispatch failed", err)
	}

	s.metrics.RecordOperation("register", observability.OutcomeSuccess)
	return fresh, user, nil
}

// Login authenticates by email and password and binds the user to a
// regenerated session.
//
// When the email is unknown the password is still verified against
// DummyHash so both branches perform the same slow-hash work; the
// response never reveals which check failed. The email lookup itself
// is not timing-equalized — see the documented limitation in the
// design notes.
func (s *Service) Login(ctx context.Context, session *Session, email, password string) (*Session, *User, error) {
	if session != nil && session.Authenticated() {
		s.metrics.RecordOperation("login", observability.OutcomeRejected)
		return nil, nil, oops.Code("AUTH_ALREADY_LOGGED_IN").Wrap(ErrAlreadyLoggedIn)
	}

	user, lookupErr := s.users.GetByEmail(ctx, NormalizeEmail(email))

	targetHash := DummyHash
	userExists := false
	switch {
	case lookupErr == nil:
		targetHash = user.PasswordHash
		userExists = true
	case errors.Is(lookupErr, ErrNotFound):
		// keep the dummy target; verification still runs below
	default:
		s.metrics.RecordOperation("login", observability.OutcomeError)
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "get user by email").
			Wrap(lookupErr)
	}

	valid, err := s.hasher.Verify(password, targetHash)
	if err != nil {
		s.metrics.RecordOperation("login", observability.OutcomeError)
		return nil, nil, oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !userExists || !valid {
		s.metrics.RecordOperation("login", observability.OutcomeRejected)
		return nil, nil, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	fresh, err := s.sessions.Login(ctx, session, user.ID)
	if err != nil {
		s.metrics.RecordOperation("login", observability.OutcomeError)
		return nil, nil, err
	}

	s.metrics.RecordOperation("login", observability.OutcomeSuccess)
	return fresh, user, nil
}

// Logout destroys the authenticated session.
func (s *Service) Logout(ctx context.Context, session *Session) error {
	if err := s.sessions.Logout(ctx, session); err != nil {
		s.metrics.RecordOperation("logout", observability.OutcomeError)
		return err
	}
	s.metrics.RecordOperation("logout", observability.OutcomeSuccess)
	return nil
}

// VerifyEmail validates a signed verification link against the
// session's own bound user id and stamps VerifiedAt.
//
// The subject id comes from the session, never from the request, so a
// link minted for one account cannot verify another. The conditional
// update in MarkVerified keeps VerifiedAt monotonic.
func (s *Service) VerifyEmail(ctx context.Context, session *Session, expiredAt int64, signature string) (time.Time, error) {
	if session == nil || !session.Authenticated() {
		s.metrics.RecordOperation("verify_email", observability.OutcomeRejected)
		return time.Time{}, oops.Code("AUTH_NO_SESSION").Wrap(ErrNoSession)
	}

	now := time.Now()
	if !s.signer.Verify(session.UserID, expiredAt, signature, now) {
		s.metrics.RecordOperation("verify_email", observability.OutcomeRejected)
		return time.Time{}, oops.Code("AUTH_INVALID_SIGNATURE").Wrap(ErrInvalidToken)
	}

	if err := s.users.MarkVerified(ctx, session.UserID, now); err != nil {
		if errors.Is(err, ErrAlreadyVerified) {
			s.metrics.RecordOperation("verify_email", observability.OutcomeRejected)
			return time.Time{}, oops.Code("AUTH_ALREADY_VERIFIED").Wrap(err)
		}
		s.metrics.RecordOperation("verify_email", observability.OutcomeError)
		return time.Time{}, oops.Code("AUTH_VERIFY_FAILED").
			With("operation", "mark verified").
			Wrap(err)
	}

	s.metrics.RecordOperation("verify_email", observability.OutcomeSuccess)
	return now, nil
}

// ResendVerification re-issues the signed verification link for the
// session's user. Requiring an authenticated session precludes email
// enumeration through this operation.
func (s *Service) ResendVerification(ctx context.Context, session *Session) error {
	if session == nil || !session.Authenticated() {
		return oops.Code("AUTH_NO_SESSION").Wrap(ErrNoSession)
	}

	user, err := s.users.GetByID(ctx, session.UserID)
	if err != nil {
		return oops.Code("AUTH_RESEND_FAILED").
			With("operation", "get user").
			Wrap(err)
	}
	if user.Verified() {
		return oops.Code("AUTH_ALREADY_VERIFIED").Wrap(ErrAlreadyVerified)
	}

	link := s.signer.VerificationURL(user.ID, time.Now(), s.linkLifetime)
	if err := s.mailer.Send(ctx, user.Email, verificationSubject, verificationBody(link)); err != nil {
		s.metrics.RecordMailFailure("verification")
		return oops.Code("AUTH_RESEND_FAILED").
			With("operation", "send mail").
			Wrap(err)
	}
	return nil
}

// ConfirmPassword performs the step-up re-authentication for the
// session and returns the new confirmation timestamp.
func (s *Service) ConfirmPassword(ctx context.Context, session *Session, password string) (time.Time, error) {
	confirmedAt, err := s.sessions.Confirm(ctx, session, password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			s.metrics.RecordOperation("confirm_password", observability.OutcomeRejected)
		} else {
			s.metrics.RecordOperation("confirm_password", observability.OutcomeError)
		}
		return time.Time{}, err
	}
	s.metrics.RecordOperation("confirm_password", observability.OutcomeSuccess)
	return confirmedAt, nil
}
