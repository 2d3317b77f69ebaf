// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"errors"
	"net/http"

	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/internal/observability"
)

type loginRequest struct {
	Handle   string `json:"handle"`
	Password string `json:"password"`
	Remember bool   `json:"remember"`
}

type loginForm struct {
	Handle   string `json:"handle"`
	Remember bool   `json:"remember"`
}

type sessionView struct {
	AccountID int64    `json:"account_id"`
	Handle    string   `json:"handle"`
	Roles     []string `json:"roles"`
}

func viewSession(s *auth.Session) sessionView {
	return sessionView{AccountID: s.AccountID, Handle: s.Handle, Roles: s.Roles.Slice()}
}

// handleLoginForm pre-fills the login form from the remember-me cookie.
func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	handle, ok, err := s.auth.ResolveRememberToken(r.Context(), cookieValue(r, RememberCookie))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginForm{Handle: handle, Remember: ok})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if !s.loginLimit.allow(clientIP(r, s.opts.TrustProxy)) {
		s.metrics.RecordLogin(observability.LoginRateLimited)
		w.Header().Set("Retry-After", "1")
		writeMessage(w, http.StatusTooManyRequests, msgRateLimited)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	session, token, err := s.auth.Authenticate(r.Context(), req.Handle, req.Password)
	if err != nil {
		s.metrics.RecordLogin(loginOutcome(err))
		writeError(r.Context(), s.logger, w, err)
		return
	}
	s.metrics.RecordLogin(observability.LoginSuccess)

	secure := isSecure(r, s.opts.TrustProxy)
	http.SetCookie(w, sessionCookie(token, secure))
	if req.Remember {
		_, value, err := s.auth.IssueRememberToken(r.Context(), session)
		if err != nil {
			// The login itself succeeded.
			s.logger.WarnContext(r.Context(), "remember token not issued", "account_id", session.AccountID, "error", err)
		} else {
			http.SetCookie(w, rememberCookie(value, secure))
		}
	} else {
		http.SetCookie(w, expiredCookie(RememberCookie, secure))
	}

	writeJSON(w, http.StatusOK, viewSession(session))
}

func loginOutcome(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return observability.LoginInvalid
	case errors.Is(err, auth.ErrLockedOut):
		return observability.LoginLocked
	default:
		return observability.LoginError
	}
}

// handleLogout ends the session if there is one and always clears both
// cookies.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	secure := isSecure(r, s.opts.TrustProxy)
	if token := cookieValue(r, SessionCookie); token != "" {
		session, err := s.auth.Resume(r.Context(), token)
		if err == nil {
			if err := s.auth.Logout(r.Context(), session); err != nil {
				writeError(r.Context(), s.logger, w, err)
				return
			}
		}
	}
	http.SetCookie(w, expiredCookie(SessionCookie, secure))
	http.SetCookie(w, expiredCookie(RememberCookie, secure))
	w.WriteHeader(http.StatusNoContent)
}

type registerRequest struct {
	Handle          string `json:"handle"`
	Email           string `json:"email"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	AcceptTerms     bool   `json:"accept_terms"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}

	reg, err := s.registrar.Register(r.Context(), auth.RegistrationRequest(req))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	writeJSON(w, http.StatusCreated, viewAccount(reg.Account))
}

func (s *Server) handleWhoAmI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, viewSession(sessionFrom(r.Context())))
}

type passwordRequest struct {
	Current string `json:"current"`
	Next    string `json:"next"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req passwordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := s.auth.ChangePassword(r.Context(), sessionFrom(r.Context()), req.Current, req.Next); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
