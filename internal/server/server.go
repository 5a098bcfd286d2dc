// Package server wires the application together: router, middleware,
// route table, and graceful shutdown. It is the composition root; every
// dependency chain is assembled in New.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/nrahman/jobtrack/internal/audit"
	"github.com/nrahman/jobtrack/internal/auth"
	"github.com/nrahman/jobtrack/internal/config"
	"github.com/nrahman/jobtrack/internal/fetch"
	"github.com/nrahman/jobtrack/internal/handler"
	"github.com/nrahman/jobtrack/internal/middleware"
	sqliteRepo "github.com/nrahman/jobtrack/internal/repository/sqlite"
	"github.com/nrahman/jobtrack/internal/scrape"
	"github.com/nrahman/jobtrack/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed during graceful shutdown so the WAL is flushed and the file
// lock released.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the full dependency chain: database, services, handlers,
// routes. Services receive repository interfaces, handlers receive
// services; nothing below the handler layer sees HTTP.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	passwords, err := auth.NewPasswordService(s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("creating password service: %w", err)
	}
	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	google := auth.NewGoogleClient(s.cfg.GoogleClientID, s.cfg.GoogleClientSecret, s.cfg.GoogleRedirectURL)
	images := fetch.NewImageFetcher()
	auditLog := audit.New(s.cfg.LogPath, s.logger)

	authSvc := service.NewAuthService(s.db, s.db, passwords, tokens, google, images, s.cfg, auditLog, s.logger)
	userSvc := service.NewUserService(s.db, auditLog, s.logger)
	jobSvc := service.NewJobService(s.db)
	dropdownSvc := service.NewDropdownService(s.db)

	authHandler := handler.NewAuthHandler(authSvc, google, s.logger)
	userHandler := handler.NewUserHandler(userSvc)
	jobHandler := handler.NewJobHandler(jobSvc)
	dropdownHandler := handler.NewDropdownHandler(dropdownSvc)
	logsHandler := handler.NewLogsHandler(auditLog)
	scrapeHandler := handler.NewScrapeHandler(scrape.NewScraper())

	requireAuth := auth.RequireAuth(tokens, s.db)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ok":true}`))
		})

		// Public: the sign-in surface.
		r.Post("/auth/register", authHandler.HandleRegister)
		r.Post("/auth/login", authHandler.HandleLogin)
		r.Post("/auth/federated-login", authHandler.HandleFederatedLogin)
		r.Get("/auth/google/login", authHandler.HandleGoogleLogin)
		r.Get("/auth/google/callback", authHandler.HandleGoogleCallback)

		// Signed-in users.
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Post("/auth/logout", authHandler.HandleLogout)
			r.Get("/auth/me", authHandler.HandleMe)
			r.Put("/auth/profile", authHandler.HandleUpdateProfile)

			r.Get("/jobs", jobHandler.HandleList)
			r.Post("/jobs", jobHandler.HandleCreate)
			r.Put("/jobs/{id}", jobHandler.HandleUpdate)
			r.Delete("/jobs/{id}", jobHandler.HandleDelete)

			r.Get("/dropdowns", dropdownHandler.HandleList)
			r.Post("/scrape", scrapeHandler.HandleScrape)

			// Admins only.
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAdmin)

				r.Post("/dropdowns", dropdownHandler.HandleAdd)
				r.Put("/dropdowns/reorder", dropdownHandler.HandleReorder)
				r.Put("/dropdowns/{id}", dropdownHandler.HandleRename)
				r.Delete("/dropdowns/{id}", dropdownHandler.HandleDelete)

				r.Get("/users", userHandler.HandleList)
				r.Put("/users/{id}/role", userHandler.HandleChangeRole)
				r.Delete("/users/{id}", userHandler.HandleDelete)

				r.Get("/logs", logsHandler.HandleList)
			})
		})
	})

	return nil
}

// Router exposes the configured router for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting, drain in-flight requests, close the
// database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.cfg.Port),
			slog.String("database", s.cfg.DBPath),
			slog.String("env", s.cfg.Env),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
