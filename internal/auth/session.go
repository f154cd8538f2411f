// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/samber/oops"
)

// Session lifetime configuration.
const (
	// sessionIDBytes is the entropy of the random part of a session id.
	sessionIDBytes = 32

	// DefaultIdleTimeout is the rolling cookie/store expiry. It is
	// enforced by the session store's own TTL, not here; a session that
	// goes quiet for this long disappears on its own.
	DefaultIdleTimeout = 30 * time.Minute

	// DefaultAbsoluteTimeout caps a session's total lifetime. Rolling
	// expiry alone never terminates a continuously active session, so
	// this is enforced explicitly against CreatedAt.
	DefaultAbsoluteTimeout = 6 * time.Hour

	// DefaultConfirmationWindow is how long a step-up password
	// confirmation stays valid.
	DefaultConfirmationWindow = 2 * time.Hour
)

// Session is a fixed-shape server-side record. UserID zero means
// anonymous; once bound it changes only through an explicit
// regenerate-on-login. ConfirmedAt zero means step-up was never
// performed on this session.
type Session struct {
	ID          string
	UserID      int64
	CreatedAt   time.Time
	ConfirmedAt time.Time
}

// Authenticated reports whether the session is bound to a user.
func (s *Session) Authenticated() bool { return s.UserID != 0 }

// ExpiredAt reports whether the session exceeded the absolute timeout
// at time t.
func (s *Session) ExpiredAt(t time.Time, absoluteTimeout time.Duration) bool {
	return t.After(s.CreatedAt.Add(absoluteTimeout))
}

// ConfirmedWithin reports whether a step-up confirmation is still
// valid at time t.
func (s *Session) ConfirmedWithin(t time.Time, window time.Duration) bool {
	return !s.ConfirmedAt.IsZero() && t.Before(s.ConfirmedAt.Add(window))
}

// NewSessionID mints a session id of the form "{userID}-{random}".
// The user-id prefix makes every session addressable by owner, which
// is what lets a password reset revoke all of a user's sessions.
// Anonymous sessions use prefix "0-".
func NewSessionID(userID int64) (string, error) {
	buf := make([]byte, sessionIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", oops.Code("SESSION_ID_GENERATE_FAILED").Wrap(err)
	}
	return fmt.Sprintf("%d-%s", userID, base64.RawURLEncoding.EncodeToString(buf)), nil
}

// SessionStore manages session persistence. Implementations must make
// Put/Delete atomic per key; DeleteByUser must observe every session
// carrying the user's prefix.
type SessionStore interface {
	// Get retrieves a session by id. Returns ErrNotFound if absent.
	Get(ctx context.Context, id string) (*Session, error)

	// Put stores or replaces a session under its id.
	Put(ctx context.Context, session *Session) error

	// Delete removes a session by id. Deleting an absent session is
	// not an error.
	Delete(ctx context.Context, id string) error

	// DeleteByUser removes every session bound to the user and returns
	// the count.
	DeleteByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteCreatedBefore removes sessions created before the cutoff
	// and returns the count. Used to sweep absolutely-expired sessions.
	DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionManager drives session state transitions: anonymous →
// authenticated → confirmed → terminated.
type SessionManager struct {
	store              SessionStore
	users              UserRepository
	hasher             PasswordHasher
	absoluteTimeout    time.Duration
	confirmationWindow time.Duration
}

// NewSessionManager creates a SessionManager. Zero durations fall back
// to the defaults.
func NewSessionManager(store SessionStore, users UserRepository, hasher PasswordHasher, absoluteTimeout, confirmationWindow time.Duration) (*SessionManager, error) {
	if store == nil {
		return nil, oops.Errorf("session store is required")
	}
	if users == nil {
		return nil, oops.Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if absoluteTimeout <= 0 {
		absoluteTimeout = DefaultAbsoluteTimeout
	}
	if confirmationWindow <= 0 {
		confirmationWindow = DefaultConfirmationWindow
	}
	return &SessionManager{
		store:              store,
		users:              users,
		hasher:             hasher,
		absoluteTimeout:    absoluteTimeout,
		confirmationWindow: confirmationWindow,
	}, nil
}

// Login binds userID to a fresh session. The pre-login session id is
// never reused: the old record is destroyed and a new id minted, which
// is what defeats session fixation. ConfirmedAt starts unset.
//
// Any storage failure aborts the login; the caller must treat it as
// fatal. The old session is destroyed before the new one is written,
// so a failure can leave the caller logged out but never half-bound,
// and at no point are two ids simultaneously valid.
func (m *SessionManager) Login(ctx context.Context, old *Session, userID int64) (*Session, error) {
	if userID == 0 {
		return nil, oops.Code("SESSION_INVALID_USER").Errorf("user id cannot be zero")
	}

	if old != nil && old.ID != "" {
		if err := m.store.Delete(ctx, old.ID); err != nil {
			return nil, oops.Code("SESSION_REGENERATE_FAILED").
				With("operation", "delete old session").
				Wrap(err)
		}
	}

	id, err := NewSessionID(userID)
	if err != nil {
		return nil, err
	}
	session := &Session{ID: id, UserID: userID, CreatedAt: time.Now()}

	if err := m.store.Put(ctx, session); err != nil {
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}
	return session, nil
}

// Logout destroys the session record. The caller is responsible for
// clearing the client-held identifier.
func (m *SessionManager) Logout(ctx context.Context, session *Session) error {
	if session == nil || !session.Authenticated() {
		return oops.Code("AUTH_NO_SESSION").Wrap(ErrNoSession)
	}
	if err := m.store.Delete(ctx, session.ID); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// Confirm re-verifies the bound user's password and stamps
// ConfirmedAt, opening the step-up window for sensitive operations.
func (m *SessionManager) Confirm(ctx context.Context, session *Session, password string) (time.Time, error) {
	if session == nil || !session.Authenticated() {
		return time.Time{}, oops.Code("AUTH_NO_SESSION").Wrap(ErrNoSession)
	}

	user, err := m.users.GetByID(ctx, session.UserID)
	if err != nil {
		return time.Time{}, oops.Code("SESSION_CONFIRM_FAILED").
			With("operation", "get user").
			Wrap(err)
	}

	ok, err := m.hasher.Verify(password, user.PasswordHash)
	if err != nil {
		return time.Time{}, oops.Code("SESSION_CONFIRM_FAILED").
			With("operation", "verify password").
			Wrap(err)
	}
	if !ok {
		return time.Time{}, oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	session.ConfirmedAt = time.Now()
	if err := m.store.Put(ctx, session); err != nil {
		return time.Time{}, oops.Code("SESSION_CONFIRM_FAILED").
			With("operation", "persist session").
			Wrap(err)
	}
	return session.ConfirmedAt, nil
}

// IsConfirmed reports whether the session's step-up window is open.
func (m *SessionManager) IsConfirmed(session *Session, now time.Time) bool {
	return session != nil && session.ConfirmedWithin(now, m.confirmationWindow)
}

// CheckAbsoluteTimeout destroys the session and returns
// ErrSessionExpired when it has outlived the absolute window,
// regardless of recent activity.
func (m *SessionManager) CheckAbsoluteTimeout(ctx context.Context, session *Session) error {
	if session == nil {
		return nil
	}
	if !session.ExpiredAt(time.Now(), m.absoluteTimeout) {
		return nil
	}
	if err := m.store.Delete(ctx, session.ID); err != nil {
		return oops.Code("SESSION_DESTROY_FAILED").
			With("operation", "delete expired session").
			Wrap(err)
	}
	return oops.Code("SESSION_EXPIRED").Wrap(ErrSessionExpired)
}

// RevokeAll destroys every session bound to the user.
func (m *SessionManager) RevokeAll(ctx context.Context, userID int64) (int64, error) {
	n, err := m.store.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, oops.Code("SESSION_REVOKE_ALL_FAILED").
			With("user_id", userID).
			Wrap(err)
	}
	return n, nil
}
