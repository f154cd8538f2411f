// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authgate Contributors

// Package memory provides an in-memory SessionStore for development
// and tests.
package memory

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/authgate/authgate/internal/auth"
)

// SessionStore implements auth.SessionStore with a mutex-guarded map.
// Sessions do not survive a process restart.
type SessionStore struct {
	mu       sync.Mutex
	sessions map[string]auth.Session

	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
}

// NewSessionStore creates an empty in-memory session store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[string]auth.Session),
		stop:     make(chan struct{}),
	}
}

// StartJanitor sweeps absolutely-expired sessions every interval until
// Stop is called. maxAge should match the session manager's absolute
// timeout.
func (s *SessionStore) StartJanitor(interval, maxAge time.Duration) {
	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stop:
				return
			case now := <-ticker.C:
				_, _ = s.DeleteCreatedBefore(context.Background(), now.Add(-maxAge))
			}
		}
	}()
}

// Stop terminates the janitor goroutine, if one was started.
func (s *SessionStore) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.done != nil {
		<-s.done
	}
}

// Get retrieves a session by id.
func (s *SessionStore) Get(_ context.Context, id string) (*auth.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	return &session, nil
}

// Put stores or replaces a session under its id.
func (s *SessionStore) Put(_ context.Context, session *auth.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[session.ID] = *session
	return nil
}

// Delete removes a session by id. Absent ids are not an error.
func (s *SessionStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// DeleteByUser removes every session bound to the user. Session ids
// embed the user id as a prefix, so this is a prefix scan.
func (s *SessionStore) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	prefix := strconv.FormatInt(userID, 10) + "-"

	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id := range s.sessions {
		if strings.HasPrefix(id, prefix) {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// DeleteCreatedBefore removes sessions created before the cutoff.
func (s *SessionStore) DeleteCreatedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var count int64
	for id, session := range s.sessions {
		if session.CreatedAt.Before(cutoff) {
			delete(s.sessions, id)
			count++
		}
	}
	return count, nil
}

// Len reports the number of stored sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Compile-time interface check.
var _ auth.SessionStore = (*SessionStore)(nil)
