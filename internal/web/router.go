// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package web exposes the HTTP surface: registration, login, and the
// authenticated user listing. Handlers translate domain errors into
// stable JSON responses and never leak password hashes.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatehouse/gatehouse/internal/auth"
	"github.com/gatehouse/gatehouse/internal/observability"
	"github.com/gatehouse/gatehouse/internal/session"
)

// sessionKey is the gin context key holding the resolved session.
const sessionKey = "gatehouse.session"

// Router wires the HTTP routes to the auth service and session store.
type Router struct {
	engine   *gin.Engine
	logger   *slog.Logger
	auth     *auth.Service
	sessions *session.Store
	metrics  *observability.Metrics
	cookies  CookieSettings
	health   func(ctx context.Context) error
}

// Option customizes a Router.
type Option func(*Router)

// WithMetrics attaches request and login counters.
func WithMetrics(m *observability.Metrics) Option {
	return func(r *Router) { r.metrics = m }
}

// WithHealthCheck sets the readiness probe used by GET /healthz. A nil
// check reports healthy unconditionally.
func WithHealthCheck(check func(ctx context.Context) error) Option {
	return func(r *Router) { r.health = check }
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(svc *auth.Service, sessions *session.Store, cookies CookieSettings, logger *slog.Logger, opts ...Option) *Router {
	if logger == nil {
		logger = slog.Default()
	}

	r := &Router{
		logger:   logger,
		auth:     svc,
		sessions: sessions,
		cookies:  cookies,
	}
	for _, opt := range opts {
		opt(r)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(r.requestLogger())
	engine.Use(r.withSession())

	engine.GET("/healthz", r.handleHealth)
	engine.GET("/users", r.handleListUsers)

	authGroup := engine.Group("/auth")
	authGroup.POST("/register", r.handleRegister)
	authGroup.POST("/login", r.handleLogin)

	r.engine = engine
	return r
}

// Handler returns the router as an http.Handler for the server.
func (r *Router) Handler() http.Handler {
	return r.engine
}

// requestLogger logs each request with route, status, and latency, and
// feeds the request counter when metrics are attached.
func (r *Router) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()

		if r.metrics != nil {
			r.metrics.RequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
		}

		r.logger.Info("http request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", time.Since(start),
		)
	}
}

// withSession resolves the session cookie into a live session, creating
// a fresh anonymous session when no valid cookie arrives. The cookie is
// only written eagerly when SendEmpty is set; otherwise it is deferred
// until login binds the session to a user.
func (r *Router) withSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sess := r.resolveSession(c); sess != nil {
			c.Set(sessionKey, sess)
		}
		c.Next()
	}
}

func (r *Router) resolveSession(c *gin.Context) *session.Session {
	if value, err := c.Cookie(CookieName); err == nil {
		if token, ok := decodeCookie(value, r.cookies.Secret); ok {
			if sess, ok := r.sessions.Lookup(token); ok {
				return sess
			}
		}
	}

	sess, token, err := r.sessions.Create()
	if err != nil {
		r.logger.Error("session create failed", "error", err)
		return nil
	}
	if r.cookies.SendEmpty {
		r.setSessionCookie(c, token)
	} else {
		// Defer the Set-Cookie until login; the handler reads the
		// pending token from the context.
		c.Set(pendingTokenKey, token)
	}
	return sess
}

// pendingTokenKey holds a freshly minted session token that has not yet
// been sent to the client.
const pendingTokenKey = "gatehouse.session.token"

func (r *Router) setSessionCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(
		CookieName,
		encodeCookie(token, r.cookies.Secret),
		int(r.cookies.MaxAge.Seconds()),
		"/",
		"",
		r.cookies.Secure,
		true, // http-only, never readable from script
	)
}

// currentSession returns the session resolved by the middleware, or nil
// when session creation failed.
func currentSession(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	sess, _ := v.(*session.Session)
	return sess
}
