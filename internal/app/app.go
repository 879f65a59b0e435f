// Package app wires the storage layer and domain services from configuration.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/art-gallery/internal/account"
	"github.com/vasiliy-maslov/art-gallery/internal/artwork"
	"github.com/vasiliy-maslov/art-gallery/internal/config"
	"github.com/vasiliy-maslov/art-gallery/internal/db"
	"github.com/vasiliy-maslov/art-gallery/internal/message"
	"github.com/vasiliy-maslov/art-gallery/internal/order"
	"github.com/vasiliy-maslov/art-gallery/internal/session"
)

// SetupLogger configures the global zerolog logger: console output in
// development, JSON otherwise.
func SetupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.App.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsProduction() {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	log.Logger = log.With().Str("service", cfg.App.Name).Logger()
}

type App struct {
	Postgres *db.Postgres
	Redis    *redis.Client

	Artworks artwork.Service
	Orders   order.Service
	Accounts account.Service
	Sessions session.Service
	Messages message.Service
}

func New(ctx context.Context, cfg *config.Config) (*App, error) {
	pg, err := db.New(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	a := &App{Postgres: pg}
	tx := db.NewTransactor(pg.Pool)

	var sessionRepo session.Repository
	switch cfg.Session.Store {
	case config.SessionStoreRedis:
		client, err := db.NewRedis(ctx, cfg.Redis)
		if err != nil {
			pg.Close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.Redis = client
		sessionRepo = session.NewRedisRepository(client)
	default:
		sessionRepo = session.NewPostgresRepository(pg.Pool)
	}

	artworkRepo := artwork.NewRepository(pg.Pool)
	a.Artworks = artwork.NewService(artworkRepo)
	a.Orders = order.NewService(order.NewRepository(pg.Pool), artworkRepo, tx,
		order.WithVerifyTotal(cfg.Order.VerifyTotal),
		order.WithRetry(cfg.Order.TxMaxRetries, cfg.Order.RetryBackoff),
	)
	a.Accounts = account.NewService(account.NewRepository(pg.Pool))
	a.Sessions = session.NewService(sessionRepo, tx)
	a.Messages = message.NewService(message.NewRepository(pg.Pool))

	log.Info().Str("session_store", cfg.Session.Store).Msg("Services initialized")
	return a, nil
}

func (a *App) Close() {
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close redis client")
		}
	}
	a.Postgres.Close()
}
