// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package auth

import "errors"

// Sentinel errors shared across layers. The transport layer maps these to
// HTTP statuses with errors.Is; oops codes at the wrap sites carry the
// structured context for logs.
var (
	// ErrNotFound is returned when a requested user does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when registration collides with an
	// existing username. The database uniqueness constraint is the
	// arbiter; the repository translates the violation into this error.
	ErrUsernameTaken = errors.New("username already taken")

	// ErrInvalidCredentials is returned for both an unknown username and
	// a wrong password so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("incorrect credentials")

	// ErrNotAuthenticated is returned when a protected operation is
	// attempted without an authenticated session.
	ErrNotAuthenticated = errors.New("session not authenticated")

	// ErrValidation is returned for malformed or missing input.
	ErrValidation = errors.New("invalid input")

	// ErrStoreUnavailable is returned when the user store fails for any
	// reason other than a not-found or uniqueness result. Failures are
	// surfaced, never retried.
	ErrStoreUnavailable = errors.New("user store unavailable")
)
