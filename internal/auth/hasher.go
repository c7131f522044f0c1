// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package auth provides authentication primitives for Gatehouse.
package auth

import (
	"context"

	"github.com/samber/oops"
	"golang.org/x/crypto/bcrypt"
)

// Bcrypt work-factor defaults.
const (
	// DefaultBcryptCost is used when no cost is configured or the
	// configured value is outside bcrypt's supported range.
	DefaultBcryptCost = 12

	// DefaultHashConcurrency bounds how many bcrypt computations may run
	// at once so concurrent hashing cannot starve unrelated requests.
	DefaultHashConcurrency = 4
)

// ErrEmptyPassword is returned when attempting to hash an empty password.
var ErrEmptyPassword = oops.Code("AUTH_EMPTY_PASSWORD").Errorf("password cannot be empty")

// PasswordHasher provides password hashing and verification.
type PasswordHasher interface {
	// Hash produces a salted hash of the password.
	Hash(ctx context.Context, password string) (string, error)

	// Verify checks if the password matches the hash.
	// Returns (true, nil) on match and (false, nil) on mismatch or on a
	// malformed hash; a malformed hash is never an error.
	Verify(ctx context.Context, password, hash string) (bool, error)
}

// BcryptHasher implements PasswordHasher using bcrypt. Hash computations
// are gated through a semaphore so at most maxConcurrent run at a time.
type BcryptHasher struct {
	cost int
	sem  chan struct{}
}

// NewBcryptHasher creates a BcryptHasher. A cost outside bcrypt's
// supported range falls back to DefaultBcryptCost; a non-positive
// maxConcurrent falls back to DefaultHashConcurrency.
func NewBcryptHasher(cost, maxConcurrent int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultHashConcurrency
	}
	return &BcryptHasher{
		cost: cost,
		sem:  make(chan struct{}, maxConcurrent),
	}
}

// Cost returns the configured work factor.
func (h *BcryptHasher) Cost() int {
	return h.cost
}

// Hash produces a bcrypt hash of the password.
func (h *BcryptHasher) Hash(ctx context.Context, password string) (string, error) {
	if password == "" {
		return "", ErrEmptyPassword
	}
	if err := h.acquire(ctx); err != nil {
		return "", err
	}
	defer h.release()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", oops.Code("AUTH_HASH_FAILED").
			With("operation", "bcrypt.GenerateFromPassword").
			Wrap(err)
	}
	return string(hash), nil
}

// Verify checks if the password matches the hash. bcrypt performs the
// digest comparison in constant time. Mismatches and malformed hashes
// both report (false, nil).
func (h *BcryptHasher) Verify(ctx context.Context, password, hash string) (bool, error) {
	if err := h.acquire(ctx); err != nil {
		return false, err
	}
	defer h.release()

	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil, nil
}

func (h *BcryptHasher) acquire(ctx context.Context) error {
	select {
	case h.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return oops.Code("AUTH_HASH_CANCELED").
			With("operation", "acquire hash slot").
			Wrap(ctx.Err())
	}
}

func (h *BcryptHasher) release() {
	<-h.sem
}
