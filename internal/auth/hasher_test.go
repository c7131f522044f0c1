// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/gatehouse/gatehouse/internal/auth"
)

// Tests use bcrypt.MinCost; the default cost is far too slow for a unit
// test loop.
func newTestHasher() *auth.BcryptHasher {
	return auth.NewBcryptHasher(bcrypt.MinCost, 2)
}

func TestNewBcryptHasher(t *testing.T) {
	t.Run("keeps in-range cost", func(t *testing.T) {
		h := auth.NewBcryptHasher(10, 4)
		assert.Equal(t, 10, h.Cost())
	})

	t.Run("cost below range falls back to default", func(t *testing.T) {
		h := auth.NewBcryptHasher(0, 4)
		assert.Equal(t, auth.DefaultBcryptCost, h.Cost())
	})

	t.Run("cost above range falls back to default", func(t *testing.T) {
		h := auth.NewBcryptHasher(99, 4)
		assert.Equal(t, auth.DefaultBcryptCost, h.Cost())
	})
}

func TestHashPassword(t *testing.T) {
	hasher := newTestHasher()
	ctx := context.Background()

	t.Run("produces valid bcrypt hash", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash(ctx, "samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash(ctx, "samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash(ctx, "")
		require.Error(t, err)
		assert.ErrorIs(t, err, auth.ErrEmptyPassword)
	})

	t.Run("cancelled context aborts while slot is held", func(t *testing.T) {
		// One slot, occupied by a deliberately slow hash. The second
		// call waits for the slot and must give up when its context is
		// already cancelled.
		blocked := auth.NewBcryptHasher(auth.DefaultBcryptCost, 1)

		started := make(chan struct{})
		done := make(chan struct{})
		go func() {
			defer close(done)
			close(started)
			_, _ = blocked.Hash(context.Background(), "slow-password")
		}()
		<-started
		time.Sleep(20 * time.Millisecond)

		cancelled, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := blocked.Hash(cancelled, "password")
		require.Error(t, err)
		assert.ErrorIs(t, err, context.Canceled)
		<-done
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := newTestHasher()
	ctx := context.Background()

	t.Run("correct password verifies", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify(ctx, "correctpassword", hash)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		hash, err := hasher.Hash(ctx, "correctpassword")
		require.NoError(t, err)

		ok, err := hasher.Verify(ctx, "wrongpassword", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("malformed hash is a mismatch, not an error", func(t *testing.T) {
		ok, err := hasher.Verify(ctx, "password", "not-a-valid-hash")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("empty hash is a mismatch", func(t *testing.T) {
		ok, err := hasher.Verify(ctx, "password", "")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("verifies hash produced at another cost", func(t *testing.T) {
		strong, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost+1)
		require.NoError(t, err)

		ok, err := hasher.Verify(ctx, "pw", string(strong))
		require.NoError(t, err)
		assert.True(t, ok)
	})
}
