// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// User represents a registered account. PasswordHash is the opaque string
// produced by the hasher; the plaintext is never stored. Records are
// created by registration and never mutated or deleted afterwards.
type User struct {
	ID           ulid.ULID
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// NewUser creates a validated User instance.
func NewUser(username, passwordHash string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if passwordHash == "" {
		return nil, oops.Code("AUTH_INVALID_HASH").Errorf("password hash cannot be empty")
	}
	return &User{
		ID:           ulid.Make(),
		Username:     username,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

// ValidateUsername validates a username. Usernames are case-sensitive and
// compared verbatim; the only requirement is that they are non-empty.
func ValidateUsername(username string) error {
	if username == "" {
		return oops.Code("AUTH_INVALID_USERNAME").
			Wrapf(ErrValidation, "username cannot be empty")
	}
	return nil
}

// UserRepository manages user persistence. Implementations translate a
// uniqueness violation on Create into ErrUsernameTaken and a missing row
// on GetByUsername into ErrNotFound.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByUsername retrieves a user by username (case-sensitive).
	GetByUsername(ctx context.Context, username string) (*User, error)

	// List returns all users.
	List(ctx context.Context) ([]*User, error)
}
