// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/samber/oops"
	"golang.org/x/time/rate"

	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/internal/directory"
)

// LoginRecorder counts login attempts by outcome.
type LoginRecorder interface {
	RecordLogin(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) RecordLogin(string) {}

// Deps are the services the API fronts.
type Deps struct {
	Auth      *auth.Authenticator
	Registrar *auth.Registrar
	Directory *directory.Engine
	Metrics   LoginRecorder
	Logger    *slog.Logger
}

// Options tune the HTTP layer.
type Options struct {
	// TrustProxy honors X-Forwarded-For and X-Forwarded-Proto.
	TrustProxy bool
	// StoreTimeout bounds storage calls per request.
	StoreTimeout time.Duration
	// LoginRate and LoginBurst configure the per-IP login token bucket.
	LoginRate  rate.Limit
	LoginBurst int
}

// Server holds the handlers.
type Server struct {
	auth       *auth.Authenticator
	registrar  *auth.Registrar
	directory  *directory.Engine
	metrics    LoginRecorder
	logger     *slog.Logger
	opts       Options
	loginLimit *ipLimiter
}

// NewServer validates deps and fills option defaults.
func NewServer(deps Deps, opts Options) (*Server, error) {
	switch {
	case deps.Auth == nil:
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("authenticator is required")
	case deps.Registrar == nil:
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("registrar is required")
	case deps.Directory == nil:
		return nil, oops.Code("WEB_INVALID_DEPS").Errorf("directory engine is required")
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = 5 * time.Second
	}
	if opts.LoginRate <= 0 {
		opts.LoginRate = 1
	}
	if opts.LoginBurst <= 0 {
		opts.LoginBurst = 5
	}

	return &Server{
		auth:       deps.Auth,
		registrar:  deps.Registrar,
		directory:  deps.Directory,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		opts:       opts,
		loginLimit: newIPLimiter(opts.LoginRate, opts.LoginBurst),
	}, nil
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(tracing)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(storeTimeout(s.opts.StoreTimeout))

	r.Route("/auth", func(r chi.Router) {
		r.Get("/login", s.handleLoginForm)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Post("/register", s.handleRegister)

		r.Group(func(r chi.Router) {
			r.Use(s.requireSession)
			r.Get("/session", s.handleWhoAmI)
			r.Post("/password", s.handleChangePassword)
		})
	})

	r.Route("/accounts", func(r chi.Router) {
		r.Use(s.requireSession)
		r.Get("/", s.handleList)
		r.Post("/bulk-delete", s.handleBulkDelete)
		r.Get("/{id}", s.handleGet)
		r.Delete("/{id}", s.handleDelete)
		r.Post("/{id}/unlock", s.handleUnlock)
		r.Post("/{id}/active", s.handleSetActive)
	})

	return r
}
