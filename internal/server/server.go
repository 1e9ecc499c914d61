// Package server wires the dependency graph and owns the HTTP lifecycle:
// router, middleware, routes, startup, and graceful shutdown.
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
	"github.com/go-chi/cors"

	"github.com/sakif/streamhub/internal/auth"
	"github.com/sakif/streamhub/internal/config"
	"github.com/sakif/streamhub/internal/handler"
	"github.com/sakif/streamhub/internal/middleware"
	sqliteRepo "github.com/sakif/streamhub/internal/repository/sqlite"
	"github.com/sakif/streamhub/internal/service"
	"github.com/sakif/streamhub/internal/storage"
)

// Server bundles the router with the resources it owns. The database
// connection is closed during graceful shutdown.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New assembles the whole dependency chain: database → repositories →
// services → handlers → routes. Handlers never touch the database; services
// never touch HTTP.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
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

	// Browser clients live on another origin and send the session cookies,
	// so the allow-list is explicit and credentials are enabled.
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	accessTokens, err := auth.NewTokenService(s.config.AccessTokenSecret, s.config.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("creating access token service: %w", err)
	}
	refreshTokens, err := auth.NewTokenService(s.config.RefreshTokenSecret, s.config.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("creating refresh token service: %w", err)
	}
	passwords := auth.NewPasswordService()

	assets, err := s.buildStorage()
	if err != nil {
		return fmt.Errorf("creating asset storage: %w", err)
	}

	users := s.db.Users()
	accountService := service.NewAccountService(users, passwords, s.logger)
	sessionService := service.NewSessionService(users, passwords, accessTokens, refreshTokens, s.logger)
	channelService := service.NewChannelService(users, s.db.Videos(), s.db.Subscriptions(), s.logger)

	accountHandler := handler.NewAccountHandler(accountService, assets, s.logger)
	sessionHandler := handler.NewSessionHandler(sessionService, s.logger)
	channelHandler := handler.NewChannelHandler(channelService, s.logger)

	requireAuth := auth.RequireAuth(accessTokens, users)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.Post("/register", accountHandler.HandleRegister)
			r.Post("/login", sessionHandler.HandleLogin)
			r.Post("/refresh-token", sessionHandler.HandleRefresh)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", sessionHandler.HandleLogout)
				r.Post("/change-password", accountHandler.HandleChangePassword)
				r.Get("/current-user", accountHandler.HandleCurrentUser)
				r.Patch("/update-account", accountHandler.HandleUpdateAccount)
				r.Patch("/avatar", accountHandler.HandleUpdateAvatar)
				r.Patch("/cover-image", accountHandler.HandleUpdateCover)
				r.Get("/c/{username}", channelHandler.HandleChannelProfile)
				r.Get("/history", channelHandler.HandleWatchHistory)
				r.Post("/history/{videoId}", channelHandler.HandleWatchHistoryAppend)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/subscriptions/{channelId}", channelHandler.HandleToggleSubscription)
		})
	})

	return nil
}

// buildStorage picks S3 when a bucket is configured, local disk otherwise.
// Local assets are served by this process under /media.
func (s *Server) buildStorage() (storage.ObjectStorage, error) {
	if s.config.UseS3() {
		return storage.NewS3Storage(context.Background(), storage.S3Config{
			Region:        s.config.S3Region,
			Endpoint:      s.config.S3Endpoint,
			Bucket:        s.config.S3Bucket,
			AccessKey:     s.config.S3AccessKey,
			SecretKey:     s.config.S3SecretKey,
			PublicBaseURL: s.config.S3PublicURL,
		})
	}

	local, err := storage.NewLocalStorage(s.config.MediaDir, s.config.PublicBaseURL)
	if err != nil {
		return nil, err
	}

	fileServer := http.FileServer(http.Dir(local.Dir()))
	s.router.Handle("/media/*", http.StripPrefix("/media/", fileServer))

	return local, nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then shuts down
// gracefully: stop accepting connections, drain in-flight requests, close
// the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
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
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
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
