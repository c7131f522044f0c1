// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package web

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"
	"time"
)

// CookieName is the session cookie name.
const CookieName = "session"

// CookieSettings configures the session cookie transport.
type CookieSettings struct {
	// Secret signs the cookie value. The server never trusts a token
	// whose signature does not verify.
	Secret string

	// MaxAge is the cookie lifetime, matching the session's absolute
	// expiry.
	MaxAge time.Duration

	// Secure requires an encrypted channel before the browser sends the
	// cookie.
	Secure bool

	// SendEmpty issues a cookie on first contact, before the session
	// holds any state.
	SendEmpty bool
}

// encodeCookie produces the signed cookie value: token.signature where
// the signature is an HMAC-SHA256 of the token under the secret.
func encodeCookie(token, secret string) string {
	return token + "." + signToken(token, secret)
}

// decodeCookie validates a signed cookie value and returns the embedded
// token. The signature comparison is constant-time.
func decodeCookie(value, secret string) (string, bool) {
	token, sig, found := strings.Cut(value, ".")
	if !found || token == "" || sig == "" {
		return "", false
	}
	expected := signToken(token, secret)
	if subtle.ConstantTimeCompare([]byte(sig), []byte(expected)) != 1 {
		return "", false
	}
	return token, true
}

func signToken(token, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(token))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
