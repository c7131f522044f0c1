// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package session

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Session token configuration.
const (
	// TokenBytes is the raw token length; 32 bytes = 64 hex chars.
	TokenBytes = 32

	// DefaultMaxAge is the absolute session lifetime.
	DefaultMaxAge = 10 * time.Minute
)

// Store issues and tracks sessions, keyed by the SHA-256 hash of their
// token. Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	maxAge   time.Duration
	now      func() time.Time
}

// NewStore creates a Store with the given absolute session lifetime. A
// non-positive maxAge falls back to DefaultMaxAge.
func NewStore(maxAge time.Duration) *Store {
	return NewStoreWithClock(maxAge, time.Now)
}

// NewStoreWithClock creates a Store with an injectable clock for
// deterministic expiry tests.
func NewStoreWithClock(maxAge time.Duration, now func() time.Time) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		sessions: make(map[string]*Session),
		maxAge:   maxAge,
		now:      now,
	}
}

// Create issues a new anonymous session with a fresh random token and an
// absolute expiry of now + maxAge. Returns the session and the plaintext
// token; only the token hash is retained server-side.
func (st *Store) Create() (*Session, string, error) {
	token, tokenHash, err := GenerateToken()
	if err != nil {
		return nil, "", err
	}

	now := st.now()
	sess := &Session{
		id:        ulid.Make(),
		tokenHash: tokenHash,
		state:     StateAnonymous,
		createdAt: now,
		expiresAt: now.Add(st.maxAge),
		now:       st.now,
	}

	st.mu.Lock()
	st.sessions[tokenHash] = sess
	st.mu.Unlock()

	return sess, token, nil
}

// Lookup resolves a plaintext token to its session. Expired sessions are
// reclaimed on the spot and reported as absent.
func (st *Store) Lookup(token string) (*Session, bool) {
	if token == "" {
		return nil, false
	}
	tokenHash := HashToken(token)

	st.mu.RLock()
	sess, ok := st.sessions[tokenHash]
	st.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if sess.State() == StateExpired {
		st.mu.Lock()
		delete(st.sessions, tokenHash)
		st.mu.Unlock()
		return nil, false
	}
	return sess, true
}

// Destroy expires a session immediately and removes it from the store.
func (st *Store) Destroy(sess *Session) {
	if sess == nil {
		return
	}
	sess.destroy()

	st.mu.Lock()
	delete(st.sessions, sess.tokenHash)
	st.mu.Unlock()
}

// Active returns the number of live (non-expired) sessions.
func (st *Store) Active() int {
	st.mu.RLock()
	defer st.mu.RUnlock()

	n := 0
	for _, sess := range st.sessions {
		if sess.State() != StateExpired {
			n++
		}
	}
	return n
}

// MaxAge returns the configured absolute session lifetime.
func (st *Store) MaxAge() time.Duration {
	return st.maxAge
}

// GenerateToken creates a secure random token and its hash.
// Returns (plaintext_token, sha256_hash, error). The plaintext goes to
// the client; only the hash is kept server-side.
func GenerateToken() (token, hash string, err error) {
	buf := make([]byte, TokenBytes)
	if _, err = rand.Read(buf); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("operation", "crypto/rand.Read").
			With("requested_bytes", TokenBytes).
			Wrap(err)
	}

	token = hex.EncodeToString(buf)
	hash = HashToken(token)

	return token, hash, nil
}

// HashToken computes the SHA-256 hash of a session token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// VerifyToken checks if the plaintext token matches the stored hash using
// a constant-time comparison.
func VerifyToken(token, hash string) bool {
	if token == "" || hash == "" {
		return false
	}
	computed := HashToken(token)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(hash)) == 1
}
