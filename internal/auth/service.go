// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/gatehouse/gatehouse/internal/session"
)

// Service orchestrates registration, login, and the authorization-gated
// user listing by composing the hasher, the session store handles, and
// the external user store.
type Service struct {
	users  UserRepository
	hasher PasswordHasher
	logger *slog.Logger
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("user repository is required")
	}
	if hasher == nil {
		return nil, oops.Code("AUTH_SERVICE_INVALID").Errorf("password hasher is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		users:  users,
		hasher: hasher,
		logger: logger,
	}, nil
}

// dummyPasswordHash is used when a user doesn't exist to prevent timing
// attacks. Verification still runs so response time stays consistent.
// This is NOT a real credential.
//
//nolint:gosec // G101: intentionally fake hash for timing uniformity, not a credential.
const dummyPasswordHash = "$2a$12$R9h/cIPz0gi.URNNX3kh2OPST9/PgBkqquzi.Ss7KIUgO2t0jWMUW"

// Register creates a new user from a username and plaintext password.
// Empty input fails with ErrValidation; a duplicate username fails with
// ErrUsernameTaken no matter which layer detects it. The returned record
// carries the hash for persistence callers; transport layers must not
// expose it.
func (s *Service) Register(ctx context.Context, username, password string) (*User, error) {
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if password == "" {
		return nil, oops.Code("AUTH_INVALID_PASSWORD").
			Wrapf(ErrValidation, "password cannot be empty")
	}

	hash, err := s.hasher.Hash(ctx, password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	user, err := NewUser(username, hash)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return nil, oops.Code("AUTH_USERNAME_TAKEN").
				With("username", username).
				Wrap(err)
		}
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(errors.Join(ErrStoreUnavailable, err))
	}

	s.logger.Info("user registered", "username", username)
	return user, nil
}

// Login verifies the credentials and promotes the session to
// Authenticated. An unknown username and a wrong password produce the
// same ErrInvalidCredentials; the unknown-user path still runs a hash
// verification against a dummy hash so the two are indistinguishable by
// timing as well.
func (s *Service) Login(ctx context.Context, username, password string, sess *session.Session) error {
	if sess == nil {
		return oops.Code("AUTH_LOGIN_FAILED").Errorf("session handle is required")
	}

	user, lookupErr := s.users.GetByUsername(ctx, username)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by username").
				Wrap(errors.Join(ErrStoreUnavailable, lookupErr))
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	valid, verifyErr := s.hasher.Verify(ctx, password, targetHash)
	if verifyErr != nil {
		return oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
	}

	if err := sess.MarkAuthenticated(user.Username); err != nil {
		return oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "mark session authenticated").
			Wrap(err)
	}

	s.logger.Info("user logged in", "username", user.Username)
	return nil
}

// ListUsers returns all user records. It requires an authenticated
// session and fails with ErrNotAuthenticated otherwise. The full scan is
// delegated to the user store verbatim; no pagination or filtering.
func (s *Service) ListUsers(ctx context.Context, sess *session.Session) ([]*User, error) {
	if sess == nil || !sess.Authenticated() {
		return nil, oops.Code("AUTH_NOT_AUTHENTICATED").Wrap(ErrNotAuthenticated)
	}

	users, err := s.users.List(ctx)
	if err != nil {
		return nil, oops.Code("AUTH_LIST_USERS_FAILED").
			With("operation", "list users").
			Wrap(errors.Join(ErrStoreUnavailable, err))
	}
	return users, nil
}
