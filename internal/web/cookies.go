// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"strings"
	"time"

	"github.com/holomush/admindesk/internal/auth"
)

// Cookie names.
const (
	SessionCookie  = "admindesk_session"
	RememberCookie = "admindesk_remember"
)

// rememberMaxAge is auth.RememberTokenExpiry in seconds.
const rememberMaxAge = int(auth.RememberTokenExpiry / time.Second)

// isSecure reports whether the client reached us over TLS, directly or
// through a trusted proxy.
func isSecure(r *http.Request, trustProxy bool) bool {
	if r.TLS != nil {
		return true
	}
	return trustProxy && strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

func sessionCookie(token string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func rememberCookie(value string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RememberCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   rememberMaxAge,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// expiredCookie tells the client to drop name.
func expiredCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
