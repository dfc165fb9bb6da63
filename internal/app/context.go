package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/cache"
	"github.com/oggyb/campus-connect/internal/config"
	"github.com/oggyb/campus-connect/internal/realtime"
	"github.com/oggyb/campus-connect/internal/session"
)

// AppContext holds shared dependencies (DB, Redis, change feed, sessions, Logger).
type AppContext struct {
	Config     *config.Config
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	// Bus may be nil; rows are then stored without realtime announcements.
	Bus      realtime.Bus
	Sessions *session.Registry
	Logger   *slog.Logger
}

// New creates a new AppContext with an empty session registry.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, bus realtime.Bus, logger *slog.Logger) *AppContext {
	return &AppContext{
		Config:     cfg,
		DB:         db,
		RedisCache: rdb,
		Bus:        bus,
		Sessions:   session.NewRegistry(),
		Logger:     logger,
	}
}
