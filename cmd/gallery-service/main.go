package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/app"
	"github.com/vasiliy-maslov/art-gallery/internal/config"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
	galleryHttp "github.com/vasiliy-maslov/art-gallery/internal/handler/http"
	"github.com/vasiliy-maslov/art-gallery/internal/media"
	"github.com/vasiliy-maslov/art-gallery/internal/session"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	app.SetupLogger(cfg)

	log.Info().Str("env", cfg.App.Env).Msg("Gallery service starting...")

	if err := db.ApplyMigrations(cfg.Postgres); err != nil {
		log.Fatal().Err(err).Msg("Failed to apply migrations")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize services")
	}
	defer services.Close()

	store, err := media.NewLocalStore(cfg.App.MediaDir, cfg.App.MediaBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize media store")
	}

	go session.NewJanitor(services.Sessions, cfg.Session.SweepInterval).Run(ctx)

	auth := galleryHttp.NewAuthenticator(services.Sessions)
	limiter := galleryHttp.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	secureCookie := cfg.Session.CookieSecure || cfg.IsProduction()

	router := galleryHttp.NewRouter(
		galleryHttp.RouterConfig{
			AllowedOrigins: cfg.App.AllowedOrigins,
			MediaDir:       store.Dir(),
			MediaPath:      cfg.App.MediaBaseURL,
		},
		galleryHttp.NewGuards(auth, limiter),
		galleryHttp.NewOrderHandler(services.Orders),
		galleryHttp.NewGalleryHandler(services.Artworks, store, cfg.App.MaxUploadBytes),
		galleryHttp.NewAuthHandler(services.Accounts, services.Sessions, galleryHttp.SessionTTLs{
			User:  cfg.Session.UserTTL,
			Admin: cfg.Session.AdminTTL,
		}, secureCookie),
		galleryHttp.NewMessageHandler(services.Messages),
	)

	srv := &http.Server{
		Addr:         ":" + cfg.App.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.App.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Shutdown failed")
	}
	log.Info().Msg("Gallery service stopped gracefully")
}
