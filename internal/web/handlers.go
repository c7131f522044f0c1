// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/auth"
)

type credentialsRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// userResponse is the public shape of a user. The password hash is
// deliberately absent.
type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u *auth.User) userResponse {
	return userResponse{
		ID:        u.ID.String(),
		Username:  u.Username,
		CreatedAt: u.CreatedAt,
	}
}

func (r *Router) handleRegister(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "username and password are required")
		return
	}

	user, err := r.auth.Register(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		r.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toUserResponse(user))
}

func (r *Router) handleLogin(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondMessage(c, http.StatusBadRequest, "username and password are required")
		return
	}

	sess := currentSession(c)
	if err := r.auth.Login(c.Request.Context(), req.Username, req.Password, sess); err != nil {
		if r.metrics != nil {
			r.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		r.respondError(c, err)
		return
	}

	if r.metrics != nil {
		r.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}

	// The cookie is guaranteed on the success path even when eager
	// cookies are disabled.
	if token, ok := c.Get(pendingTokenKey); ok {
		if t, ok := token.(string); ok {
			r.setSessionCookie(c, t)
		}
	}

	respondMessage(c, http.StatusOK, "Authenticated. Logging you in...")
}

func (r *Router) handleListUsers(c *gin.Context) {
	users, err := r.auth.ListUsers(c.Request.Context(), currentSession(c))
	if err != nil {
		r.respondError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleHealth(c *gin.Context) {
	if r.health != nil {
		if err := r.health(c.Request.Context()); err != nil {
			r.logger.Warn("health check failed", "error", err)
			respondMessage(c, http.StatusServiceUnavailable, "unhealthy")
			return
		}
	}
	respondMessage(c, http.StatusOK, "ok")
}
