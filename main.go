// Package main is the entry point for the gptuessr game server.
// It initializes all dependencies and starts the HTTP server.
package main

import (
	"context"
	"log"
	"os"

	"gptuessr/src/app/server"
	"gptuessr/src/core/ports"
	"gptuessr/src/infra/auth"
	"gptuessr/src/infra/cache"
	"gptuessr/src/infra/config"
	"gptuessr/src/infra/db"
	"gptuessr/src/infra/logger"
	"gptuessr/src/infra/repo"
)

func main() {
	if err := run(); err != nil {
		log.Printf("fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment variables
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Initialize logger
	log := logger.New(cfg.Log)
	log.Info("starting application",
		"port", cfg.Server.Port,
		"log_level", cfg.Log.Level,
		"storage", cfg.Game.Storage,
	)

	ctx := context.Background()
	deps := server.Dependencies{Checks: map[string]ports.ExternalService{}}

	// Initialize storage
	if cfg.Game.UseMemoryStorage() {
		log.Warn("using in-memory storage, state is lost on restart")
		deps.Store = repo.NewMemoryRepository()
	} else {
		pg, err := db.New(ctx, cfg.Database, log)
		if err != nil {
			return err
		}
		defer pg.Close()
		if cfg.Database.Migrate {
			if err := db.Migrate(cfg.Database, log); err != nil {
				return err
			}
		}
		deps.Store = repo.NewPostgresRepository(pg, log)
	}

	// Optional cross-instance code reservation
	if cfg.Redis.Addr != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			return err
		}
		defer rdb.Close()
		registry := cache.NewCodeRegistry(rdb, deps.Store, cfg.Redis.ReservationTTL, log)
		deps.Codes = registry
		deps.Checks["redis"] = registry
		log.Info("redis code reservation enabled", "addr", cfg.Redis.Addr)
	}

	// Token and webhook verification
	verifier, err := auth.NewJWTVerifier(cfg.Auth)
	if err != nil {
		return err
	}
	deps.Verifier = verifier

	if cfg.Auth.WebhookSecret != "" {
		decoder, err := auth.NewWebhookDecoder(cfg.Auth.WebhookSecret)
		if err != nil {
			return err
		}
		deps.Webhooks = decoder
	} else {
		log.Warn("APP_WEBHOOK_SECRET not set, identity webhook disabled")
	}

	// Create and run HTTP server
	srv := server.New(cfg, log, deps)

	// Run blocks until shutdown signal is received
	return srv.Run()
}
