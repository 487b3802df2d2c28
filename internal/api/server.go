// Package api exposes the HTTP surface: identity, settings, book
// generation and persistence, plus ops endpoints.
package api

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/org/bookforge/internal/audit"
	"github.com/org/bookforge/internal/engine"
	"github.com/org/bookforge/internal/generate"
	"github.com/org/bookforge/internal/identity"
	"github.com/org/bookforge/internal/provider"
	"github.com/org/bookforge/internal/storage"
	"github.com/org/bookforge/internal/vault"
	"github.com/org/bookforge/pkg/models"
)

// Config holds server configuration.
type Config struct {
	ListenAddr    string
	TLSCertFile   string
	TLSKeyFile    string
	DBUrl         string
	MigrationsDir string
	AdminEmail    string
}

// AuditLogger is the interface the server needs from an audit logger.
type AuditLogger interface {
	LogRequest(ctx context.Context, entry *models.AuditEntry)
	Query(ctx context.Context, filter storage.AuditFilter) ([]*models.AuditEntry, error)
	QueryGenerationLog(ctx context.Context, filter storage.GenerationFilter) ([]*models.GenerationRecord, error)
}

// Server is the API server.
type Server struct {
	store     storage.StorageBackend
	session   *identity.Session
	generator *generate.Service
	auditor   AuditLogger
	cfg       Config
	httpSrv   *http.Server
}

// settingsCredentials reads the credential pool from persistent
// settings, re-parsed on every engine run so edits apply immediately.
type settingsCredentials struct {
	store storage.StorageBackend
}

func (s settingsCredentials) Credentials(ctx context.Context) ([]string, error) {
	raw, err := s.store.GetSetting(ctx, models.SettingAPIKeys)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return engine.ParseCredentials(raw), nil
}

// ServerOption overrides a collaborator, mainly for tests.
type ServerOption func(*serverDeps)

type serverDeps struct {
	client       provider.Client
	pollinations *provider.Pollinations
	engineOpts   []engine.Option
}

// WithProviderClient swaps the managed-provider client.
func WithProviderClient(c provider.Client) ServerOption {
	return func(d *serverDeps) { d.client = c }
}

// WithPollinations swaps the public image backend.
func WithPollinations(p *provider.Pollinations) ServerOption {
	return func(d *serverDeps) { d.pollinations = p }
}

// WithEngineOptions appends extra engine options (e.g. a no-op sleeper).
func WithEngineOptions(opts ...engine.Option) ServerOption {
	return func(d *serverDeps) { d.engineOpts = append(d.engineOpts, opts...) }
}

// NewServer creates a fully wired Server.
func NewServer(store storage.StorageBackend, cfg Config, opts ...ServerOption) *Server {
	logger := log.Logger
	auditor := audit.NewLogger(store, logger)
	codec := vault.New()
	session := identity.NewSession(store, codec, cfg.AdminEmail, logger)

	deps := serverDeps{
		client:       provider.NewGemini(),
		pollinations: provider.NewPollinations(),
	}
	for _, opt := range opts {
		opt(&deps)
	}

	engineOpts := append([]engine.Option{
		engine.WithObserver(multiObserver{auditor, metricsObserver{}}),
	}, deps.engineOpts...)

	generator := generate.NewService(
		deps.client,
		deps.pollinations,
		settingsCredentials{store: store},
		logger,
		engineOpts...,
	)

	return &Server{
		store:     store,
		session:   session,
		generator: generator,
		auditor:   auditor,
		cfg:       cfg,
	}
}

// BuildRouter wires up all routes and returns a chi router.
func (s *Server) BuildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.Recoverer)
	r.Use(requestIDMiddleware)
	r.Use(metricsMiddleware)
	r.Use(newRateLimiter(100, 200).middleware)
	r.Use(auditMiddleware(s.auditor))

	// Prometheus metrics
	r.Handle("/metrics", MetricsHandler())

	// Sys
	r.Get("/v1/sys/health", s.HealthHandler)
	r.Get("/v1/sys/generation-log", s.GenerationLogHandler)
	r.Get("/v1/sys/audit-log", s.AuditLogHandler)

	// Identity wallet
	r.Post("/v1/identity/login", s.LoginHandler)
	r.Post("/v1/identity/logout", s.LogoutHandler)
	r.Get("/v1/identity/profile", s.ProfileHandler)
	r.Post("/v1/identity/export", s.ExportHandler)
	r.Post("/v1/identity/import", s.ImportHandler)
	r.Post("/v1/identity/favorites/{bookID}", s.ToggleFavoriteHandler)
	r.Post("/v1/identity/progress", s.ProgressHandler)

	// Settings
	r.Get("/v1/settings/{key}", s.SettingGetHandler)
	r.Put("/v1/settings/{key}", s.SettingPutHandler)

	// Generation
	r.Post("/v1/generate/plan", s.GeneratePlanHandler)
	r.Post("/v1/generate/metadata", s.GenerateMetadataHandler)
	r.Post("/v1/generate/cover-prompt", s.GenerateCoverPromptHandler)
	r.Post("/v1/generate/chapter", s.GenerateChapterHandler)
	r.Post("/v1/generate/chapter-image-prompt", s.GenerateChapterImagePromptHandler)
	r.Post("/v1/generate/chat", s.GenerateChatHandler)
	r.Post("/v1/generate/image", s.GenerateImageHandler)
	r.Post("/v1/generate/cover", s.GenerateCoverHandler)

	// Books
	r.Get("/v1/books", s.BookListHandler)
	r.Post("/v1/books", s.BookSaveHandler)
	r.Get("/v1/books/{id}", s.BookGetHandler)
	r.Delete("/v1/books/{id}", s.BookDeleteHandler)

	return r
}

// Start begins listening on the configured address.
func (s *Server) Start() error {
	handler := s.BuildRouter()

	s.httpSrv = &http.Server{
		Addr:         s.cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute, // generation calls are slow
		IdleTimeout:  60 * time.Second,
	}

	if s.cfg.TLSCertFile != "" && s.cfg.TLSKeyFile != "" {
		tlsCfg := &tls.Config{
			MinVersion: tls.VersionTLS12,
			CurvePreferences: []tls.CurveID{
				tls.CurveP256,
				tls.X25519,
			},
		}
		s.httpSrv.TLSConfig = tlsCfg
		log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTPS server")
		return s.httpSrv.ListenAndServeTLS(s.cfg.TLSCertFile, s.cfg.TLSKeyFile)
	}

	log.Info().Str("addr", s.cfg.ListenAddr).Msg("starting HTTP server")
	return s.httpSrv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}
