package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/jobboard/apiserver/config"
	"github.com/jobboard/apiserver/internal/auth"
	"github.com/jobboard/apiserver/internal/db"
	"github.com/jobboard/apiserver/internal/handlers"
	"github.com/jobboard/apiserver/internal/mq"
	"github.com/jobboard/apiserver/internal/notify"
	"github.com/jobboard/apiserver/internal/services"
	"github.com/jobboard/apiserver/internal/storage"
	"github.com/jobboard/apiserver/internal/store"
)

const defaultPort = 8080

// Server wraps the HTTP server, its router and the clients it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	queue      *mq.MQ
	revoker    auth.Revoker
	logger     *slog.Logger
}

// New connects every backing service named in cfg and builds the router.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	objects, err := storage.Open(ctx, cfg.Storage, logger)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open storage: %w", err)
	}

	queue, err := mq.Open(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("open message queue: %w", err)
	}

	revoker, err := auth.NewRevoker(ctx, cfg.Redis, logger)
	if err != nil {
		_ = queue.Close()
		_ = dbConn.Close()
		return nil, err
	}

	tokens := auth.NewTokenService(cfg.JWTSecret, logger)
	if !tokens.Enabled() {
		logger.Error("JWT_SECRET is not set; logins will fail and every session is rejected")
	}

	userRepo := store.NewUserRepository(dbConn)
	jobRepo := store.NewJobRepository(dbConn)
	applicationRepo := store.NewApplicationRepository(dbConn)
	savedJobRepo := store.NewSavedJobRepository(dbConn)

	userService := services.NewUserService(userRepo, tokens, logger)
	jobService := services.NewJobService(jobRepo, logger)
	applicationService := services.NewApplicationService(
		applicationRepo,
		jobRepo,
		objects,
		notify.NewPublisher(queue, logger),
		logger,
	)
	savedJobService := services.NewSavedJobService(savedJobRepo, logger)

	sessions := handlers.NewSessions(tokens, revoker, logger)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		auth.Guard(auth.DefaultGuardPolicy()),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api", func(r chi.Router) {
		handlers.AuthRouter(r, userService, sessions, cfg.IsProduction(), logger)
		handlers.JobRouter(r, jobService, sessions.Require, logger)
		handlers.SavedJobRouter(r, savedJobService, sessions.Require, logger)
		handlers.ApplicationRouter(r, applicationService, sessions.Require, logger)
	})
	router.Route("/uploads", func(r chi.Router) {
		handlers.UploadRouter(r, objects, logger)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = defaultPort
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.Info("server configured",
		"port", port,
		"env", cfg.AppEnv,
		"storage", objects.Bucket(),
		"events", queue.Enabled(),
	)

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		queue:      queue,
		revoker:    revoker,
		logger:     logger,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and then closes the backing clients.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.queue != nil {
		if closeErr := s.queue.Close(); closeErr != nil {
			s.logger.Warn("close message queue", "error", closeErr)
		}
	}
	if s.revoker != nil {
		if closeErr := s.revoker.Close(); closeErr != nil {
			s.logger.Warn("close revocation store", "error", closeErr)
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return err
}
