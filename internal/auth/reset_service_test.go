// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/authgate/authgate/internal/auth"
	"github.com/authgate/authgate/internal/auth/memory"
)

type resetFixture struct {
	service *auth.PasswordResetService
	manager *auth.SessionManager
	store   *memory.SessionStore
	users   *fakeUserRepo
	resets  *fakeResetRepo
	mailer  *recordingMailer
	hasher  *auth.BcryptHasher
	user    *auth.User
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()

	users := newFakeUserRepo()
	resets := newFakeResetRepo()
	mailer := &recordingMailer{}
	hasher := testHasher(t)
	store := memory.NewSessionStore()

	manager, err := auth.NewSessionManager(store, users, hasher, 0, 0)
	require.NoError(t, err)

	keys, err := auth.LoadKeys(encodedKey(32), encodedKey(32))
	require.NoError(t, err)

	service, err := auth.NewPasswordResetService(users, resets, manager, hasher, keys, mailer, nil, nil, testOrigin, 0)
	require.NoError(t, err)

	digest, err := hasher.Hash("old-password")
	require.NoError(t, err)
	user, err := users.Create(context.Background(), &auth.User{
		Email:        "alice@example.com",
		Name:         "Alice",
		PasswordHash: digest,
	})
	require.NoError(t, err)

	return &resetFixture{
		service: service,
		manager: manager,
		store:   store,
		users:   users,
		resets:  resets,
		mailer:  mailer,
		hasher:  hasher,
		user:    user,
	}
}

// requestToken runs Request and extracts the plaintext token from the
// emailed link.
func requestToken(t *testing.T, f *resetFixture) string {
	t.Helper()
	require.NoError(t, f.service.Request(context.Background(), f.user.Email))

	body := f.mailer.lastSent().Body
	marker := "token="
	idx := strings.LastIndex(body, marker)
	require.GreaterOrEqual(t, idx, 0, "mail body carries no token: %q", body)
	token := body[idx+len(marker):]
	if end := strings.IndexAny(token, " \n"); end >= 0 {
		token = token[:end]
	}
	return token
}

func TestPasswordResetService_Request(t *testing.T) {
	ctx := context.Background()

	t.Run("mails a tokenized link, stores only the digest", func(t *testing.T) {
		f := newResetFixture(t)
		plaintext := requestToken(t, f)

		assert.Len(t, plaintext, auth.ResetTokenLength)
		_, err := base64.RawURLEncoding.DecodeString(plaintext)
		assert.NoError(t, err)

		sent := f.mailer.lastSent()
		assert.Equal(t, "alice@example.com", sent.To)
		assert.Contains(t, sent.Body, testOrigin+"/password/reset?id=")

		tokens, err := f.resets.GetByUser(ctx, f.user.ID)
		require.NoError(t, err)
		require.Len(t, tokens, 1)
		assert.NotContains(t, string(tokens[0].Digest), plaintext)
		assert.Len(t, tokens[0].Digest, 32, "stored digest is HMAC-SHA256, never plaintext")
	})

	t.Run("unknown email acknowledges without sending", func(t *testing.T) {
		f := newResetFixture(t)

		err := f.service.Request(ctx, "nobody@example.com")
		require.NoError(t, err, "acknowledgement must not reveal whether the email exists")
		assert.Equal(t, 0, f.mailer.sentCount())

		tokens, err := f.resets.GetByUser(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Empty(t, tokens)
	})

	t.Run("second request leaves the first token valid", func(t *testing.T) {
		f := newResetFixture(t)
		first := requestToken(t, f)
		second := requestToken(t, f)
		assert.NotEqual(t, first, second)

		// Redeeming with the older token still works.
		require.NoError(t, f.service.Reset(ctx, f.user.ID, first, "new-password-1"))
	})
}

func TestPasswordResetService_Reset(t *testing.T) {
	ctx := context.Background()

	t.Run("replaces the credential", func(t *testing.T) {
		f := newResetFixture(t)
		plaintext := requestToken(t, f)

		require.NoError(t, f.service.Reset(ctx, f.user.ID, plaintext, "brand-new-password"))

		stored, err := f.users.GetByID(ctx, f.user.ID)
		require.NoError(t, err)
		ok, err := f.hasher.Verify("brand-new-password", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = f.hasher.Verify("old-password", stored.PasswordHash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("notifies the user after a successful reset", func(t *testing.T) {
		f := newResetFixture(t)
		plaintext := requestToken(t, f)
		require.NoError(t, f.service.Reset(ctx, f.user.ID, plaintext, "brand-new-password"))

		assert.Equal(t, 2, f.mailer.sentCount())
		assert.NotContains(t, f.mailer.lastSent().Body, plaintext)
	})

	t.Run("token is single-use", func(t *testing.T) {
		f := newResetFixture(t)
		plaintext := requestToken(t, f)

		require.NoError(t, f.service.Reset(ctx, f.user.ID, plaintext, "first-new-password"))

		err := f.service.Reset(ctx, f.user.ID, plaintext, "second-new-password")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)

		// The first reset's credential stands.
		stored, err := f.users.GetByID(ctx, f.user.ID)
		require.NoError(t, err)
		ok, err := f.hasher.Verify("first-new-password", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("success revokes every outstanding token", func(t *testing.T) {
		f := newResetFixture(t)
		first := requestToken(t, f)
		second := requestToken(t, f)

		require.NoError(t, f.service.Reset(ctx, f.user.ID, first, "new-password"))

		err := f.service.Reset(ctx, f.user.ID, second, "another-password")
		assert.ErrorIs(t, err, auth.ErrInvalidToken, "unredeemed siblings die with the redeemed token")
	})

	t.Run("success destroys all of the user's sessions", func(t *testing.T) {
		f := newResetFixture(t)
		session, err := f.manager.Login(ctx, nil, f.user.ID)
		require.NoError(t, err)
		other, err := f.manager.Login(ctx, nil, f.user.ID)
		require.NoError(t, err)

		plaintext := requestToken(t, f)
		require.NoError(t, f.service.Reset(ctx, f.user.ID, plaintext, "new-password"))

		_, err = f.store.Get(ctx, session.ID)
		assert.ErrorIs(t, err, auth.ErrNotFound)
		_, err = f.store.Get(ctx, other.ID)
		assert.ErrorIs(t, err, auth.ErrNotFound)
	})

	t.Run("wrong token is rejected without side effects", func(t *testing.T) {
		f := newResetFixture(t)
		requestToken(t, f)

		wrong, err := auth.GenerateResetToken()
		require.NoError(t, err)

		err = f.service.Reset(ctx, f.user.ID, wrong, "new-password")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)

		stored, err := f.users.GetByID(ctx, f.user.ID)
		require.NoError(t, err)
		ok, err := f.hasher.Verify("old-password", stored.PasswordHash)
		require.NoError(t, err)
		assert.True(t, ok, "a failed reset must not touch the credential")

		tokens, err := f.resets.GetByUser(ctx, f.user.ID)
		require.NoError(t, err)
		assert.Len(t, tokens, 1, "a failed reset must not consume tokens")
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		f := newResetFixture(t)
		plaintext := requestToken(t, f)

		// Age the stored token past its expiry.
		f.resets.mu.Lock()
		for _, token := range f.resets.tokens {
			token.ExpiresAt = time.Now().Add(-time.Minute)
		}
		f.resets.mu.Unlock()

		err := f.service.Reset(ctx, f.user.ID, plaintext, "new-password")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("token for one user does not redeem for another", func(t *testing.T) {
		f := newResetFixture(t)
		plaintext := requestToken(t, f)

		digest, err := f.hasher.Hash("bob-password")
		require.NoError(t, err)
		bob, err := f.users.Create(ctx, &auth.User{Email: "bob@example.com", Name: "Bob", PasswordHash: digest})
		require.NoError(t, err)

		err = f.service.Reset(ctx, bob.ID, plaintext, "new-password")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
