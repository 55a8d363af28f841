// Package web provides the HTTP server for catalog import and export.
package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/catalogsync/internal/config"
	"github.com/JonMunkholm/catalogsync/internal/core"
	"github.com/JonMunkholm/catalogsync/internal/web/middleware"
)

// multipartOverhead is added to the file size limit to leave room for the
// multipart envelope and the other form fields.
const multipartOverhead = 1 << 20

// Server is the HTTP server of the catalog.
type Server struct {
	service *core.Service
	cfg     *config.Config
	router  *chi.Mux
	server  *http.Server

	keys     *middleware.KeyRing
	nonces   *middleware.NonceSource
	guard    *middleware.Guard
	limiters []*rateLimiter
}

// NewServer builds the router for service.
func NewServer(service *core.Service, cfg *config.Config) (*Server, error) {
	nonces, err := middleware.NewNonceSource(cfg.Security.SessionSecret)
	if err != nil {
		return nil, err
	}

	s := &Server{
		service: service,
		cfg:     cfg,
		router:  chi.NewRouter(),
		keys:    middleware.NewKeyRing(&cfg.Security),
		nonces:  nonces,
	}
	s.guard = &middleware.Guard{Keys: s.keys, Nonces: s.nonces, Fail: s.respondError}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.newRateLimiter(s.cfg.Rate.RequestsPerMinute, time.Minute).middleware)
	}
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", s.handleHealth)

	// Imports run under the service's own timeout and the import limiter.
	importGate := []func(http.Handler) http.Handler{s.limitBody}
	if s.cfg.Rate.Enabled {
		importGate = append([]func(http.Handler) http.Handler{
			s.newRateLimiter(s.cfg.Rate.ImportLimit, time.Minute).middleware,
		}, importGate...)
	}
	importGate = append(importGate, s.guard.Require(middleware.ActionImport))

	s.router.With(importGate...).Post("/import", s.handleImport)

	s.router.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

		r.Get("/", s.handleDashboard)
		r.With(s.guard.Require(middleware.ActionExport)).Post("/export", s.handleExport)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(s.keys, s.respondError))

		r.With(importGate...).Post("/preview", s.handlePreview)

		r.Group(func(r chi.Router) {
			r.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))

			r.Get("/template", s.handleTemplate)
			r.Get("/attributes", s.handleListAttributes)
			r.Get("/products", s.handleListProducts)
			r.Get("/reports", s.handleListReports)
			r.Get("/reports/{reportID}", s.handleGetReport)
			r.Get("/nonce/{action}", s.handleNonce)

			r.With(s.guard.Require(middleware.ActionAddTerm)).Post("/terms", s.handleAddTerm)
		})
	})
}

// limitBody caps request bodies at the upload limit plus multipart overhead.
func (s *Server) limitBody(next http.Handler) http.Handler {
	limit := s.service.MaxFileSize() + multipartOverhead
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
		next.ServeHTTP(w, r)
	})
}

// Start listens on the configured address until Shutdown.
func (s *Server) Start() error {
	slog.Info("starting server", "addr", s.server.Addr, "catalog", s.service.CatalogName())
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.limiters {
		rl.stop()
	}
	return s.server.Shutdown(ctx)
}

// Router returns the chi router, for tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders sets the hardening headers. The dashboard uses no scripts,
// so the CSP allows none.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			if enableCSP {
				h.Set("Content-Security-Policy", "default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; form-action 'self'; frame-ancestors 'none'")
			}
			next.ServeHTTP(w, r)
		})
	}
}
