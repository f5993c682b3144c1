// Package auth handles user registration, password login and JWT sessions.
//
// The current credential is never held in process-wide state: handlers put
// the verified Session into the request context and downstream code reads it
// from there.
package auth

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// CookieName is the cookie carrying the session token for browser clients.
const CookieName = "finsight_session"

// Session is a verified credential.
type Session struct {
	UserID    string    `json:"userId"`
	Email     string    `json:"email"`
	Token     string    `json:"-"`
	TokenID   string    `json:"-"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type sessionKey struct{}

// WithSession returns ctx carrying s.
func WithSession(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFrom returns the session stored in ctx.
func SessionFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(Session)
	return s, ok
}

// OwnerFrom returns the user id of the session in ctx, or "" when the
// request is anonymous.
func OwnerFrom(ctx context.Context) string {
	if s, ok := SessionFrom(ctx); ok {
		return s.UserID
	}
	return ""
}

// TokenFromRequest reads a bearer token from the Authorization header,
// falling back to the session cookie.
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if scheme, token, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(CookieName); err == nil {
		return c.Value
	}
	return ""
}
