package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/muzz-matchmaker/internal/cache"
	"github.com/oggyb/muzz-matchmaker/internal/config"
	"github.com/oggyb/muzz-matchmaker/internal/presence"
	"github.com/oggyb/muzz-matchmaker/internal/repository"
)

// AppContext holds shared dependencies (DB, Store, Redis, presence, Logger, etc.)
type AppContext struct {
	DB         *gorm.DB
	Store      *repository.Store
	RedisCache *cache.RedisCache
	Presence   *presence.Fanout
	Logger     *slog.Logger
	Config     *config.Config
}

// New creates a new AppContext. The store and presence fan-out are derived
// from db and cfg.
func New(cfg *config.Config, db *gorm.DB, rdb *cache.RedisCache, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		Store:      repository.NewStore(db, cfg.Match.TxRetries),
		RedisCache: rdb,
		Presence:   presence.NewFanout(presence.NewRegistry(), logger),
		Logger:     logger,
		Config:     cfg,
	}
}
