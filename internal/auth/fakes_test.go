// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

package auth_test

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authgate/authgate/internal/auth"
)

// fakeUserRepo is an in-memory UserRepository for tests.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*auth.User

	createErr         error
	getByEmailErr     error
	updatePasswordErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*auth.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return nil, r.createErr
	}
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return nil, oops.Code("USER_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken)
		}
	}
	r.nextID++
	user.ID = r.nextID
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	clone := *user
	r.users[user.ID] = &clone
	return user, nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int64) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	clone := *user
	return &clone, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.getByEmailErr != nil {
		return nil, r.getByEmailErr
	}
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
}

func (r *fakeUserRepo) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.updatePasswordErr != nil {
		return r.updatePasswordErr
	}
	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	user.PasswordHash = passwordHash
	user.UpdatedAt = time.Now()
	return nil
}

func (r *fakeUserRepo) MarkVerified(_ context.Context, id int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.users[id]
	if !ok {
		return oops.Code("USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if user.VerifiedAt != nil {
		return oops.Code("USER_ALREADY_VERIFIED").Wrap(auth.ErrAlreadyVerified)
	}
	user.VerifiedAt = &at
	return nil
}

var _ auth.UserRepository = (*fakeUserRepo)(nil)

// fakeResetRepo is an in-memory ResetTokenRepository for tests.
type fakeResetRepo struct {
	mu     sync.Mutex
	tokens []*auth.ResetToken

	createErr error
}

func newFakeResetRepo() *fakeResetRepo {
	return &fakeResetRepo{}
}

func (r *fakeResetRepo) Create(_ context.Context, token *auth.ResetToken) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.createErr != nil {
		return r.createErr
	}
	clone := *token
	r.tokens = append(r.tokens, &clone)
	return nil
}

func (r *fakeResetRepo) GetByUser(_ context.Context, userID int64) ([]*auth.ResetToken, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*auth.ResetToken
	for _, token := range r.tokens {
		if token.UserID == userID {
			clone := *token
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *fakeResetRepo) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var kept []*auth.ResetToken
	var count int64
	for _, token := range r.tokens {
		if token.UserID == userID {
			count++
			continue
		}
		kept = append(kept, token)
	}
	r.tokens = kept
	return count, nil
}

func (r *fakeResetRepo) DeleteExpired(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	var kept []*auth.ResetToken
	var count int64
	for _, token := range r.tokens {
		if token.IsExpiredAt(now) {
			count++
			continue
		}
		kept = append(kept, token)
	}
	r.tokens = kept
	return count, nil
}

var _ auth.ResetTokenRepository = (*fakeResetRepo)(nil)

// sentMail records one dispatched message.
type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingMailer captures sends; set failErr to simulate delivery
// failure.
type recordingMailer struct {
	mu      sync.Mutex
	sent    []sentMail
	failErr error
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failErr != nil {
		return m.failErr
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (m *recordingMailer) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

func (m *recordingMailer) lastSent() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sent[len(m.sent)-1]
}

var _ auth.Mailer = (*recordingMailer)(nil)
