// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/session"
	"github.com/gatehouse/gatehouse/pkg/errutil"
)

type messageResponse struct {
	Message string `json:"message"`
}

func respondMessage(c *gin.Context, status int, msg string) {
	c.JSON(status, messageResponse{Message: msg})
}

// respondError maps domain errors to HTTP responses. Unknown-user and
// wrong-password failures share one response so the surface does not
// reveal which usernames exist.
func (r *Router) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		respondMessage(c, http.StatusBadRequest, "username and password are required")
	case errors.Is(err, auth.ErrUsernameTaken):
		respondMessage(c, http.StatusConflict, "username already taken")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondMessage(c, http.StatusUnauthorized, "Incorrect password")
	case errors.Is(err, auth.ErrNotAuthenticated):
		respondMessage(c, http.StatusUnauthorized, "User not authorized. Please register or log in.")
	case errors.Is(err, auth.ErrStoreUnavailable):
		errutil.LogError(r.logger, "user store unavailable", err)
		respondMessage(c, http.StatusBadGateway, "user store unavailable")
	case errors.Is(err, session.ErrInvalidState):
		errutil.LogError(r.logger, "session in invalid state", err)
		respondMessage(c, http.StatusInternalServerError, "internal server error")
	default:
		errutil.LogError(r.logger, "request failed", err)
		respondMessage(c, http.StatusInternalServerError, "internal server error")
	}
}
