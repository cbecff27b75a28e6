package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"familyhub/internal/config"
	"familyhub/internal/database"
	"familyhub/internal/handlers"
	"familyhub/internal/logging"
	"familyhub/internal/repository"
	"familyhub/internal/security"
	"familyhub/internal/service"
	"familyhub/migrations"
)

func main() {
	// .env is optional
	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stdout)

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}

func run(cfg *config.Config, logger zerolog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.JWTSecret == "" {
		secret, err := security.RandomHex(32)
		if err != nil {
			return err
		}
		cfg.JWTSecret = secret
		logger.Warn().Msg("JWT_SECRET not set, using a random secret; tokens will not survive a restart")
	}

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	logger.Info().Str("database", db.Dialect.Name()).Msg("database connection established")

	applied, err := db.RunMigrations(context.Background(), migrationsFS(cfg))
	if err != nil {
		return err
	}
	logger.Info().Strs("applied", applied).Msg("migrations completed")

	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	eventRepo := repository.NewEventRepository(db)

	registry := service.NewSessionRegistry(familyRepo, logger)
	eventService := service.NewEventService(eventRepo, familyRepo)

	emailService, err := service.NewEmailService(context.Background(), service.EmailConfig{
		AWSRegion:  cfg.AWSRegion,
		FromEmail:  cfg.SESFromEmail,
		FromName:   cfg.SESFromName,
		AppBaseURL: cfg.AppBaseURL,
		Debug:      cfg.EmailDebug,
	}, logger)
	if err != nil {
		return err
	}
	if !emailService.IsEnabled() {
		logger.Warn().Msg("SES_FROM_EMAIL not set, invite and signup emails are disabled")
	}

	authService := service.NewAuthService(userRepo, repository.NewSignupCodeRepository(db),
		security.NewTokenManager(cfg.JWTSecret, cfg.SessionDuration), emailService)

	// Rate limiter for login, registration and signup codes: 5 attempts per minute per IP
	authLimiter := security.NewRateLimiter(5, time.Minute)
	defer authLimiter.Stop()

	router := handlers.NewRouter(handlers.RouterDeps{
		Logger:      logging.Component(logger, "http"),
		Middleware:  handlers.NewMiddleware(authService, registry),
		RateLimited: handlers.RateLimit(authLimiter),
		Auth: handlers.NewAuthHandler(authService, registry,
			security.NewStateSigner(cfg.JWTSecret), handlers.NewOAuthProviders(cfg), cfg.OAuthRedirectBaseURL),
		Family: handlers.NewFamilyHandler(emailService),
		Events: handlers.NewEventHandler(eventService),
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("server shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// migrationsFS prefers MIGRATIONS_PATH on disk over the embedded schema
func migrationsFS(cfg *config.Config) fs.FS {
	if cfg.MigrationsPath != "" {
		return os.DirFS(cfg.MigrationsPath)
	}
	return migrations.FS
}
