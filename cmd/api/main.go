// Command api runs the gatekeeper HTTP service.
//
// @title                       gatekeeper API
// @version                     1.0
// @description                 User management API with JWT sessions and role-based access control.
// @BasePath                    /api
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
package main

//go:generate swag init -g cmd/api/main.go -d ../../ -o ../../docs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sajadaliismail/gatekeeper/internal/api"
	"github.com/Sajadaliismail/gatekeeper/internal/api/handler"
	"github.com/Sajadaliismail/gatekeeper/internal/core/service"
	"github.com/Sajadaliismail/gatekeeper/internal/infrastructure/config"
	"github.com/Sajadaliismail/gatekeeper/internal/infrastructure/db/mongo"
	"github.com/Sajadaliismail/gatekeeper/internal/infrastructure/db/redis"
	"github.com/Sajadaliismail/gatekeeper/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		l := logger.Get()
		l.Fatal().Err(err).Msg("gatekeeper stopped")
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(ctx)
	if err != nil {
		// No config, no log level: report with defaults.
		logger.Init(logger.Options{Service: "gatekeeper"})
		return err
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.IsDevelopment(),
		Service: "gatekeeper",
	})

	mongoClient, db, err := mongo.Connect(ctx, mongo.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
		Timeout:  cfg.Mongo.Timeout,
	})
	if err != nil {
		return err
	}
	defer func() {
		dctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := mongoClient.Disconnect(dctx); err != nil {
			log.Warn().Err(err).Msg("mongo disconnect")
		}
	}()

	rdb, err := redis.Connect(ctx, redis.Config{
		Addr:     cfg.Redis.Addr,
		DB:       cfg.Redis.DB,
		Password: cfg.Redis.Password,
	})
	if err != nil {
		return err
	}
	defer rdb.Close()

	repo := mongo.NewUserRepository(db)
	if err := repo.EnsureIndexes(ctx); err != nil {
		return err
	}

	hasher, err := service.NewBcryptHasher(service.HasherConfig{Cost: cfg.Security.BcryptCost})
	if err != nil {
		return err
	}
	tokens, err := service.NewTokenService(service.TokenConfig{
		Secret: cfg.Security.JWTSecret,
		TTL:    cfg.Security.TokenTTL,
	})
	if err != nil {
		return err
	}

	cache := redis.NewIdentityCache(rdb, cfg.Redis.IdentityTTL)
	users := service.NewUserService(repo, hasher, tokens, cache, log.With().Str("component", "user_service").Logger())

	e := api.NewRouter(cfg, api.Services{
		Users:  users,
		Tokens: tokens,
		Checks: map[string]handler.DependencyCheck{
			"mongodb": func(ctx context.Context) error { return mongoClient.Ping(ctx, nil) },
			"redis":   func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
		},
	}, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("gatekeeper listening")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	log.Info().Msg("gatekeeper stopped cleanly")
	return nil
}
