// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/authgate/authgate/internal/auth"
)

// SessionStore implements auth.SessionStore using PostgreSQL.
type SessionStore struct {
	pool DB
}

// NewSessionStore creates a new SessionStore.
func NewSessionStore(pool DB) *SessionStore {
	return &SessionStore{pool: pool}
}

// Get retrieves a session by id.
func (s *SessionStore) Get(ctx context.Context, id string) (*auth.Session, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, created_at, confirmed_at
		FROM sessions
		WHERE id = $1
	`, id)

	session := &auth.Session{}
	var confirmedAt *time.Time
	err := row.Scan(&session.ID, &session.UserID, &session.CreatedAt, &confirmedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_SCAN_FAILED").
			With("operation", "scan session").
			Wrap(err)
	}
	if confirmedAt != nil {
		session.ConfirmedAt = *confirmedAt
	}
	return session, nil
}

// Put stores or replaces a session under its id.
func (s *SessionStore) Put(ctx context.Context, session *auth.Session) error {
	var confirmedAt *time.Time
	if !session.ConfirmedAt.IsZero() {
		confirmedAt = &session.ConfirmedAt
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sessions (id, user_id, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET user_id = EXCLUDED.user_id,
		    created_at = EXCLUDED.created_at,
		    confirmed_at = EXCLUDED.confirmed_at
	`, session.ID, session.UserID, session.CreatedAt, confirmedAt)
	if err != nil {
		return oops.Code("SESSION_PUT_FAILED").
			With("operation", "upsert session").
			With("user_id", session.UserID).
			Wrap(err)
	}
	return nil
}

// Delete removes a session by id. Absent ids are not an error.
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// DeleteByUser removes every session bound to the user.
func (s *SessionStore) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete sessions by user").
			With("user_id", userID).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteCreatedBefore removes sessions created before the cutoff.
func (s *SessionStore) DeleteCreatedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.pool.Exec(ctx, `DELETE FROM sessions WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_FAILED").
			With("operation", "delete stale sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
