package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/oggyb/campus-connect/internal/app"
	"github.com/oggyb/campus-connect/internal/cache"
	"github.com/oggyb/campus-connect/internal/config"
	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/logger"
	"github.com/oggyb/campus-connect/internal/realtime"
	"github.com/oggyb/campus-connect/internal/server"
	"github.com/oggyb/campus-connect/internal/service/social"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L() // slog.Logger pointer

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(ctx); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}
	defer redisCache.Close()

	// Change feed between server instances
	bus, err := realtime.NewBus(cfg, redisCache.Client, log)
	if err != nil {
		log.Error("failed to init realtime bus", "driver", cfg.Realtime.Driver, "err", err)
		return
	}
	defer bus.Close()

	appCtx := app.New(cfg, database, redisCache, bus, log)
	socialReg := social.NewRegistrar(appCtx)

	if err := bus.StartForwarder(ctx, socialReg.Service().Router().Handle); err != nil {
		log.Error("failed to subscribe to change feed", "err", err)
		return
	}

	if cfg.App.ENV == "development" {
		if err := db.SeedTestData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	addr := cfg.GRPC.Host + ":" + cfg.GRPC.Port
	log.Info("starting gRPC server", "addr", addr, "realtime", cfg.Realtime.Driver)

	if err := server.StartGRPCServer(ctx, cfg, log, socialReg); err != nil {
		log.Error("failed to start gRPC server", "err", err)
		return
	}
	log.Info("gRPC server stopped")
}
