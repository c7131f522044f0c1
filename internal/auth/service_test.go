// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/session"
)

// fakeUserRepo is an in-memory UserRepository for service tests.
type fakeUserRepo struct {
	users map[string]*auth.User

	createErr error
	getErr    error
	listErr   error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[string]*auth.User)}
}

func (r *fakeUserRepo) Create(_ context.Context, user *auth.User) error {
	if r.createErr != nil {
		return r.createErr
	}
	if _, exists := r.users[user.Username]; exists {
		return auth.ErrUsernameTaken
	}
	r.users[user.Username] = user
	return nil
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	user, ok := r.users[username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) List(_ context.Context) ([]*auth.User, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	out := make([]*auth.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	return out, nil
}

func newTestService(t *testing.T, repo auth.UserRepository) *auth.Service {
	t.Helper()
	svc, err := auth.NewService(repo, newTestHasher(), nil)
	require.NoError(t, err)
	return svc
}

func newAuthenticatedSession(t *testing.T, store *session.Store, username string) *session.Session {
	t.Helper()
	sess, _, err := store.Create()
	require.NoError(t, err)
	require.NoError(t, sess.MarkAuthenticated(username))
	return sess
}

func TestNewService(t *testing.T) {
	t.Run("requires user repository", func(t *testing.T) {
		_, err := auth.NewService(nil, newTestHasher(), nil)
		assert.Error(t, err)
	})

	t.Run("requires password hasher", func(t *testing.T) {
		_, err := auth.NewService(newFakeUserRepo(), nil, nil)
		assert.Error(t, err)
	})
}

func TestRegister(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user with hashed password", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newTestService(t, repo)

		user, err := svc.Register(ctx, "alice", "secret123")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
		assert.NotEmpty(t, user.ID)
		assert.NotEqual(t, "secret123", user.PasswordHash)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
	})

	t.Run("rejects empty username", func(t *testing.T) {
		svc := newTestService(t, newFakeUserRepo())

		_, err := svc.Register(ctx, "", "secret123")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrValidation)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		svc := newTestService(t, newFakeUserRepo())

		_, err := svc.Register(ctx, "alice", "")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrValidation)
	})

	t.Run("duplicate username fails with ErrUsernameTaken", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "alice", "secret123")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "alice", "othersecret")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrUsernameTaken)
	})

	t.Run("usernames are case-sensitive", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "alice", "secret123")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "Alice", "secret123")
		assert.NoError(t, err)
	})

	t.Run("store failure reports ErrStoreUnavailable", func(t *testing.T) {
		repo := newFakeUserRepo()
		repo.createErr = errors.New("connection refused")
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "alice", "secret123")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
	})
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(time.Minute)

	setupUser := func(t *testing.T) (*auth.Service, *fakeUserRepo) {
		t.Helper()
		repo := newFakeUserRepo()
		svc := newTestService(t, repo)
		_, err := svc.Register(ctx, "alice", "secret123")
		require.NoError(t, err)
		return svc, repo
	}

	t.Run("valid credentials authenticate the session", func(t *testing.T) {
		svc, _ := setupUser(t)
		sess, _, err := store.Create()
		require.NoError(t, err)

		require.NoError(t, svc.Login(ctx, "alice", "secret123", sess))
		assert.True(t, sess.Authenticated())
		assert.Equal(t, "alice", sess.Username())
	})

	t.Run("wrong password fails with ErrInvalidCredentials", func(t *testing.T) {
		svc, _ := setupUser(t)
		sess, _, err := store.Create()
		require.NoError(t, err)

		err = svc.Login(ctx, "alice", "wrongpassword", sess)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		assert.False(t, sess.Authenticated())
	})

	t.Run("unknown user fails with ErrInvalidCredentials", func(t *testing.T) {
		svc, _ := setupUser(t)
		sess, _, err := store.Create()
		require.NoError(t, err)

		err = svc.Login(ctx, "mallory", "secret123", sess)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown user and wrong password are indistinguishable", func(t *testing.T) {
		svc, _ := setupUser(t)
		sess, _, err := store.Create()
		require.NoError(t, err)

		unknownErr := svc.Login(ctx, "mallory", "secret123", sess)
		wrongErr := svc.Login(ctx, "alice", "wrongpassword", sess)
		require.Error(t, unknownErr)
		require.Error(t, wrongErr)
		assert.True(t, errors.Is(unknownErr, auth.ErrInvalidCredentials))
		assert.True(t, errors.Is(wrongErr, auth.ErrInvalidCredentials))
	})

	t.Run("store failure reports ErrStoreUnavailable", func(t *testing.T) {
		svc, repo := setupUser(t)
		repo.getErr = errors.New("connection refused")
		sess, _, err := store.Create()
		require.NoError(t, err)

		err = svc.Login(ctx, "alice", "secret123", sess)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
		assert.NotErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("nil session is rejected", func(t *testing.T) {
		svc, _ := setupUser(t)
		assert.Error(t, svc.Login(ctx, "alice", "secret123", nil))
	})

	t.Run("expired session cannot be authenticated", func(t *testing.T) {
		svc, _ := setupUser(t)

		clock := time.Now()
		expiring := session.NewStoreWithClock(time.Minute, func() time.Time { return clock })
		sess, _, err := expiring.Create()
		require.NoError(t, err)
		clock = clock.Add(2 * time.Minute)

		err = svc.Login(ctx, "alice", "secret123", sess)
		require.Error(t, err)
		assert.ErrorIs(t, err, session.ErrInvalidState)
	})
}

func TestListUsers(t *testing.T) {
	ctx := context.Background()
	store := session.NewStore(time.Minute)

	t.Run("requires an authenticated session", func(t *testing.T) {
		svc := newTestService(t, newFakeUserRepo())

		_, err := svc.ListUsers(ctx, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)

		anon, _, err := store.Create()
		require.NoError(t, err)
		_, err = svc.ListUsers(ctx, anon)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	})

	t.Run("returns all users for an authenticated session", func(t *testing.T) {
		repo := newFakeUserRepo()
		svc := newTestService(t, repo)
		_, err := svc.Register(ctx, "alice", "secret123")
		require.NoError(t, err)
		_, err = svc.Register(ctx, "bob", "hunter22")
		require.NoError(t, err)

		sess := newAuthenticatedSession(t, store, "alice")
		users, err := svc.ListUsers(ctx, sess)
		require.NoError(t, err)
		assert.Len(t, users, 2)
	})

	t.Run("expired session reads as unauthenticated", func(t *testing.T) {
		svc := newTestService(t, newFakeUserRepo())

		clock := time.Now()
		expiring := session.NewStoreWithClock(time.Minute, func() time.Time { return clock })
		sess, _, err := expiring.Create()
		require.NoError(t, err)
		require.NoError(t, sess.MarkAuthenticated("alice"))
		clock = clock.Add(2 * time.Minute)

		_, err = svc.ListUsers(ctx, sess)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrNotAuthenticated)
	})

	t.Run("store failure reports ErrStoreUnavailable", func(t *testing.T) {
		repo := newFakeUserRepo()
		repo.listErr = errors.New("connection refused")
		svc := newTestService(t, repo)

		sess := newAuthenticatedSession(t, store, "alice")
		_, err := svc.ListUsers(ctx, sess)
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrStoreUnavailable)
	})
}
