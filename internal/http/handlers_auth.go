package http

import (
	"errors"
	"net/http"
	"time"

	"finsight/internal/auth"
	"finsight/internal/log"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func authStatus(err error) int {
	switch {
	case errors.Is(err, auth.ErrInvalidEmail), errors.Is(err, auth.ErrWeakPassword):
		return http.StatusUnprocessableEntity
	case errors.Is(err, auth.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func authMessage(err error) string {
	if authStatus(err) == http.StatusInternalServerError {
		return "internal error"
	}
	return err.Error()
}

func (s *Server) authUnavailable(w http.ResponseWriter) bool {
	if s.auth != nil {
		return false
	}
	writeJSONError(w, http.StatusServiceUnavailable, "authentication is not configured")
	return true
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if s.authUnavailable(w) {
		return
	}
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	u, err := s.auth.Register(r.Context(), c.Email, c.Password)
	if err != nil {
		s.logAuthFailure(r, "Registration failed", err)
		writeJSONError(w, authStatus(err), authMessage(err))
		return
	}
	writeJSON(w, http.StatusCreated, userResponse{ID: u.ID, Email: u.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if s.authUnavailable(w) {
		return
	}
	var c credentials
	if err := decodeJSON(w, r, &c); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, err := s.auth.Login(r.Context(), c.Email, c.Password)
	if err != nil {
		s.logAuthFailure(r, "Login failed", err)
		writeJSONError(w, authStatus(err), authMessage(err))
		return
	}
	s.setSessionCookie(w, r, sess)
	writeJSON(w, http.StatusOK, loginResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFrom(r.Context())
	s.auth.Logout(r.Context(), sess)
	clearSessionCookie(w, r)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := auth.SessionFrom(r.Context())
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) logAuthFailure(r *http.Request, msg string, err error) {
	logger := log.FromContext(r.Context()).WithComponent(log.ComponentAuth)
	if authStatus(err) == http.StatusInternalServerError {
		logger.ErrorContext(r.Context(), msg, log.FieldError, err.Error())
		return
	}
	logger.WarnContext(r.Context(), msg,
		log.FieldError, err.Error(),
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		"error_type", log.ErrorTypeAuth)
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sess auth.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}
