// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package session implements the in-process session store. Sessions live
// only as long as the process; there is no shared or persistent session
// storage.
package session

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// State is the lifecycle state of a session.
type State int

// Session lifecycle: Anonymous -> Authenticated -> Expired. Expired is
// terminal; expired sessions read as Anonymous and are lazily reclaimed.
const (
	StateAnonymous State = iota
	StateAuthenticated
	StateExpired
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticated:
		return "authenticated"
	case StateExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// ErrInvalidState is returned when a session transition is attempted on
// an expired session.
var ErrInvalidState = oops.Code("SESSION_INVALID_STATE").Errorf("session is expired")

// Session is a server-side session handle. All mutation goes through the
// per-session mutex so concurrent requests on one handle cannot lose an
// authenticated-flag update.
type Session struct {
	mu        sync.Mutex
	id        ulid.ULID
	tokenHash string
	state     State
	username  string
	createdAt time.Time
	expiresAt time.Time
	now       func() time.Time
}

// ID returns the session identifier.
func (s *Session) ID() ulid.ULID {
	return s.id
}

// TokenHash returns the SHA-256 hash of the session token.
func (s *Session) TokenHash() string {
	return s.tokenHash
}

// CreatedAt returns the creation time.
func (s *Session) CreatedAt() time.Time {
	return s.createdAt
}

// ExpiresAt returns the absolute expiry deadline.
func (s *Session) ExpiresAt() time.Time {
	return s.expiresAt
}

// MarkAuthenticated transitions the session to Authenticated and binds
// the authenticated username. Calling it on an already-authenticated
// session is a no-op; calling it on an expired session fails with
// ErrInvalidState.
func (s *Session) MarkAuthenticated(username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked() {
		s.state = StateExpired
		return oops.Code("SESSION_INVALID_STATE").
			With("session_id", s.id.String()).
			Wrap(ErrInvalidState)
	}
	if s.state == StateAuthenticated {
		return nil
	}
	s.state = StateAuthenticated
	s.username = username
	return nil
}

// Authenticated reports whether the session is Authenticated and not past
// its expiry deadline. Expired sessions read as anonymous.
func (s *Session) Authenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked() {
		s.state = StateExpired
		return false
	}
	return s.state == StateAuthenticated
}

// Username returns the authenticated username, or "" when the session is
// not authenticated.
func (s *Session) Username() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked() || s.state != StateAuthenticated {
		return ""
	}
	return s.username
}

// State returns the current state, accounting for expiry.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.expiredLocked() {
		s.state = StateExpired
	}
	return s.state
}

func (s *Session) expiredLocked() bool {
	if s.state == StateExpired {
		return true
	}
	return s.now().After(s.expiresAt)
}

func (s *Session) destroy() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = StateExpired
	s.username = ""
}
