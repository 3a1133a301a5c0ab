package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/cache"
	"github.com/oggyb/muzz-matchmaker/internal/config"
	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/logger"
	"github.com/oggyb/muzz-matchmaker/internal/presence"
	"github.com/oggyb/muzz-matchmaker/internal/server"
	"github.com/oggyb/muzz-matchmaker/internal/service/chat"
	"github.com/oggyb/muzz-matchmaker/internal/service/explore"
	"github.com/oggyb/muzz-matchmaker/internal/service/match"
	"github.com/oggyb/muzz-matchmaker/internal/service/profile"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("server stopped", "err", err)
		os.Exit(1)
	}
	log.Info("shutdown complete")
}

// run wires every dependency and serves until ctx is done or a component fails.
// The gRPC server and, when enabled, the presence relay share one errgroup:
// either failing stops the other.
func run(ctx context.Context, cfg *config.Config, log *slog.Logger) error {
	// Init DB
	database, err := db.NewDB(cfg, log)
	if err != nil {
		return fmt.Errorf("init db: %w", err)
	}
	if sqlDB, err := database.DB(); err == nil {
		defer sqlDB.Close()
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	defer redisCache.Close()
	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}

	appCtx := app.New(cfg, database, redisCache, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database, log); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	registrars := []server.Registrar{
		explore.NewRegistrar(appCtx),
		match.NewRegistrar(appCtx),
		chat.NewRegistrar(appCtx),
		profile.NewRegistrar(appCtx),
	}

	g, ctx := errgroup.WithContext(ctx)

	// cross-instance presence: events for users connected elsewhere go through Redis
	if cfg.Presence.Relay {
		relay := presence.NewRedisRelay(redisCache, cfg.Presence.Channel, log)
		appCtx.Presence.SetRelay(relay)

		g.Go(func() error {
			if err := relay.Start(ctx, appCtx.Presence); err != nil {
				return fmt.Errorf("presence relay: %w", err)
			}
			log.Info("presence relay enabled", "channel", cfg.Presence.Channel, "instance", appCtx.Presence.Instance())
			<-ctx.Done()
			return nil
		})
	}

	g.Go(func() error {
		return server.StartGRPCServer(ctx, cfg, log, registrars...)
	})

	return g.Wait()
}
