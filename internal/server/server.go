// Package server wires the router, middleware, and handlers into a running
// HTTP server. It is the composition root: every service is constructed
// here from the injected storage handle and configuration, so main stays
// minimal and tests can assemble a server over any store.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/gitmap/internal/auth"
	"github.com/sakif/gitmap/internal/config"
	"github.com/sakif/gitmap/internal/gitops"
	"github.com/sakif/gitmap/internal/gitserver"
	"github.com/sakif/gitmap/internal/handler"
	"github.com/sakif/gitmap/internal/middleware"
	"github.com/sakif/gitmap/internal/registry"
	"github.com/sakif/gitmap/internal/service"
	"github.com/sakif/gitmap/internal/store"
)

// shutdownTimeout bounds the graceful drain on shutdown.
const shutdownTimeout = 30 * time.Second

// Server holds the router and configuration. The storage handle is owned
// by the caller; the server only borrows it.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
}

// New assembles the full dependency chain over the given store:
// registry, auth services, git engine, handlers, routes.
func New(cfg config.Config, st store.Store, logger *slog.Logger) (*Server, error) {
	reg := registry.New(st, cfg.GitURLHost)

	tokens, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}
	passwords := auth.NewPasswordService()

	authSvc := service.NewAuthService(reg, reg, tokens, passwords, cfg.DemoMode, logger)
	repoSvc := service.NewRepoService(reg, reg, logger)

	runner := gitops.NewRunner(cfg.GitBinary)
	if !runner.Available() {
		logger.Warn("git binary not found; git operations will fail",
			slog.String("binary", cfg.GitBinary))
	}
	engine := gitops.NewEngine(reg, reg, runner, logger)

	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
		logger.Warn("home directory unavailable, using temp dir for git paths",
			slog.String("root", home))
	}
	local := gitops.NewLocal(runner, home, cfg.ScanMaxDepth, logger)

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
	}
	s.routes(
		handler.NewAuthHandler(authSvc),
		handler.NewRepoHandler(repoSvc),
		handler.NewFileHandler(repoSvc),
		handler.NewGitOpsHandler(engine),
		handler.NewGitHandler(local),
		gitserver.NewHandler(logger),
		authSvc,
	)
	return s, nil
}

func (s *Server) routes(
	authH *handler.AuthHandler,
	repoH *handler.RepoHandler,
	fileH *handler.FileHandler,
	gitOpsH *handler.GitOpsHandler,
	gitH *handler.GitHandler,
	gitSrv *gitserver.Handler,
	verifier auth.Verifier,
) {
	r := s.router
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(s.logger))
	r.Use(chimiddleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/signup", authH.HandleSignup)
		r.Post("/auth/login", authH.HandleLogin)
		r.Post("/auth/verify", authH.HandleVerify)

		// Filesystem git operations carry no repository ownership to check,
		// so they sit outside the bearer-auth group.
		r.Post("/git", gitH.HandleGit)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(verifier))

			r.Route("/repositories", func(r chi.Router) {
				r.Get("/", repoH.HandleList)
				r.Post("/", repoH.HandleCreate)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", repoH.HandleGet)
					r.Put("/", repoH.HandleUpdate)
					r.Delete("/", repoH.HandleDelete)

					r.Get("/files", fileH.HandleList)
					r.Post("/files", fileH.HandleCreate)
					r.Post("/files/upload", fileH.HandleUpload)
					r.Delete("/files/{fileID}", fileH.HandleDelete)
				})
			})

			r.Post("/git-operations", gitOpsH.HandleOperate)
		})

		r.HandleFunc("/git-server/*", func(w http.ResponseWriter, r *http.Request) {
			gitSrv.Serve(w, r, chi.URLParam(r, "*"))
		})
	})
}

// Handler exposes the router for httptest-based tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the HTTP server until ctx is canceled, then drains in-flight
// requests for up to shutdownTimeout before returning.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server listening", slog.Int("port", s.cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
