// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"sitefoundry/internal/session"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the session data.
	SessionKey contextKey = "session"
)

// Login and second-factor pages the guards redirect to.
const (
	AdminLoginPath  = "/admin/login"
	AdminVerifyPath = "/admin/2fa/verify"
	PortalLoginPath = "/portal/login"
)

// LoadSession retrieves the session from Valkey and stores it in the
// request context. It does not enforce anything; the Require* guards do.
func LoadSession(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session lookup failed", "error", err, "path", r.URL.Path)
				next.ServeHTTP(w, r)
				return
			}

			if data != nil {
				r = r.WithContext(context.WithValue(r.Context(), SessionKey, data))
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin lets through only an operator session that has passed the
// second factor. Anonymous visitors go to the login page, half-logged-in
// operators to the TOTP prompt and portal clients get 403.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		switch {
		case sess == nil:
			deny(w, r, AdminLoginPath, http.StatusUnauthorized)
		case sess.IsClient():
			http.Error(w, "Forbidden", http.StatusForbidden)
		case !sess.IsAdmin():
			deny(w, r, AdminVerifyPath, http.StatusUnauthorized)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

// RequirePending2FA admits an operator who has passed the password step
// but not yet the TOTP step. Used on the enrolment and verify pages.
func RequirePending2FA(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		if sess == nil || sess.IsClient() {
			http.Redirect(w, r, AdminLoginPath, http.StatusSeeOther)
			return
		}
		if sess.TwoFADone {
			http.Redirect(w, r, "/admin", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireClient lets through only a portal session bound to a client.
func RequireClient(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		if sess == nil || !sess.IsClient() {
			deny(w, r, PortalLoginPath, http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// deny redirects page loads and answers API calls (fetch, websocket) with
// a bare status, since those cannot follow a redirect to a login form.
func deny(w http.ResponseWriter, r *http.Request, target string, status int) {
	if wantsJSON(r) {
		http.Error(w, http.StatusText(status), status)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	if r.Header.Get("Upgrade") != "" {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json")
}

// SessionFromCtx extracts the session data from the request context.
// Returns nil if no session is loaded (user is not authenticated).
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// WithSession returns ctx carrying data, as LoadSession would.
func WithSession(ctx context.Context, data *session.Data) context.Context {
	return context.WithValue(ctx, SessionKey, data)
}
