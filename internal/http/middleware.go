package http

import (
	"net/http"

	"finsight/internal/auth"
	"finsight/internal/log"
)

// withSession verifies the bearer token or session cookie, if any, and puts
// the session into the request context. Invalid tokens leave the request
// anonymous; the route decides whether that is acceptable.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := auth.TokenFromRequest(r)
		if raw == "" || s.auth == nil {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := s.auth.Authenticate(raw)
		if err != nil {
			log.FromContext(r.Context()).WithComponent(log.ComponentAuth).DebugContext(r.Context(), "Ignoring invalid session token",
				log.FieldError, err.Error())
			next.ServeHTTP(w, r)
			return
		}

		ctx := auth.WithSession(r.Context(), sess)
		ctx = log.NewContext(ctx, log.FromContext(ctx).With(log.FieldUserID, sess.UserID))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// apiAuth rejects anonymous API calls when authentication is required.
func (s *Server) apiAuth(next http.HandlerFunc) http.HandlerFunc {
	if !s.authRequired {
		return next
	}
	return s.requireSession(next)
}

// requireSession rejects anonymous API calls regardless of configuration.
func (s *Server) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.SessionFrom(r.Context()); !ok {
			w.Header().Set("WWW-Authenticate", `Bearer realm="finsight"`)
			writeJSONError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		next(w, r)
	}
}

// uiAuth sends anonymous browsers to the login page when authentication is
// required. HTMX requests get an HX-Redirect instead of a 303.
func (s *Server) uiAuth(next http.HandlerFunc) http.HandlerFunc {
	if !s.authRequired {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.SessionFrom(r.Context()); ok {
			next(w, r)
			return
		}
		if isHTMX(r) {
			NewHTMXResponse().Status(http.StatusUnauthorized).Redirect("/login").Write(w)
			return
		}
		http.Redirect(w, r, "/login", http.StatusSeeOther)
	}
}
