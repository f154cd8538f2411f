// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/authgate/authgate/internal/auth"
)

// ResetTokenRepository implements auth.ResetTokenRepository using
// PostgreSQL.
type ResetTokenRepository struct {
	pool DB
}

// NewResetTokenRepository creates a new ResetTokenRepository.
func NewResetTokenRepository(pool DB) *ResetTokenRepository {
	return &ResetTokenRepository{pool: pool}
}

// Create stores a new reset token record.
func (r *ResetTokenRepository) Create(ctx context.Context, token *auth.ResetToken) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO reset_tokens (id, user_id, digest, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, token.ID.String(), token.UserID, token.Digest, token.ExpiresAt, token.CreatedAt)
	if err != nil {
		return oops.Code("RESET_CREATE_FAILED").
			With("operation", "insert reset token").
			With("user_id", token.UserID).
			Wrap(err)
	}
	return nil
}

// GetByUser retrieves every outstanding token for a user.
func (r *ResetTokenRepository) GetByUser(ctx context.Context, userID int64) ([]*auth.ResetToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, digest, expires_at, created_at
		FROM reset_tokens
		WHERE user_id = $1
	`, userID)
	if err != nil {
		return nil, oops.Code("RESET_QUERY_FAILED").
			With("operation", "query reset tokens").
			With("user_id", userID).
			Wrap(err)
	}
	defer rows.Close()

	var tokens []*auth.ResetToken
	for rows.Next() {
		token, err := scanResetToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("RESET_QUERY_FAILED").
			With("operation", "iterate reset tokens").
			Wrap(err)
	}
	return tokens, nil
}

// DeleteByUser removes all of a user's tokens. The returned count is
// the redemption arbiter: one statement, one winner.
func (r *ResetTokenRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM reset_tokens WHERE user_id = $1
	`, userID)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete reset tokens").
			With("user_id", userID).
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// DeleteExpired removes all tokens past their expiry.
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `
		DELETE FROM reset_tokens WHERE expires_at <= now()
	`)
	if err != nil {
		return 0, oops.Code("RESET_DELETE_FAILED").
			With("operation", "delete expired reset tokens").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

func scanResetToken(row pgx.Row) (*auth.ResetToken, error) {
	token := &auth.ResetToken{}
	var id string
	err := row.Scan(&id, &token.UserID, &token.Digest, &token.ExpiresAt, &token.CreatedAt)
	if err != nil {
		return nil, oops.Code("RESET_SCAN_FAILED").
			With("operation", "scan reset token").
			Wrap(err)
	}
	if err := token.ID.UnmarshalText([]byte(id)); err != nil {
		return nil, oops.Code("RESET_SCAN_FAILED").
			With("operation", "parse reset token id").
			With("id", id).
			Wrap(err)
	}
	return token, nil
}

// Compile-time interface check.
var _ auth.ResetTokenRepository = (*ResetTokenRepository)(nil)
