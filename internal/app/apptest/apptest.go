// Package apptest wires a throwaway AppContext for service tests: in-memory
// SQLite, miniredis and a discarding logger.
package apptest

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/oggyb/muzz-matchmaker/internal/app"
	"github.com/oggyb/muzz-matchmaker/internal/auth"
	"github.com/oggyb/muzz-matchmaker/internal/cache"
	"github.com/oggyb/muzz-matchmaker/internal/config"
	"github.com/oggyb/muzz-matchmaker/internal/db"
	"github.com/oggyb/muzz-matchmaker/internal/logger"
)

// New spins up an isolated DB + Redis per test.
func New(t *testing.T) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()
	// one connection: every statement and transaction sees the same in-memory database
	return build(t, ":memory:", 1)
}

// NewFileBacked is New over a temporary SQLite file with conns open
// connections, so transactions really run side by side.
func NewFileBacked(t *testing.T, conns int) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "matchmaker.db")
	return build(t, path+"?_busy_timeout=5000", conns)
}

func build(t *testing.T, dsn string, conns int) (*app.AppContext, *miniredis.Miniredis) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(conns)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(gdb))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Match.TxRetries = 3
	cfg.Match.CandidateBatch = 500

	redisCache := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = redisCache.Close() })

	return app.New(cfg, gdb, redisCache, logger.Discard()), mr
}

// User describes a row for SeedUsers.
type User struct {
	ID          uint64
	Interests   []string
	Personality db.Personality
}

// SeedUsers inserts users with deterministic names and emails.
func SeedUsers(t *testing.T, gdb *gorm.DB, users ...User) {
	t.Helper()
	for _, u := range users {
		row := db.User{
			ID:           u.ID,
			Name:         fmt.Sprintf("user%d", u.ID),
			Email:        fmt.Sprintf("u%d@test.com", u.ID),
			PasswordHash: "x",
			Age:          30,
			Interests:    datatypes.NewJSONSlice(u.Interests),
			Personality:  datatypes.NewJSONType(u.Personality),
			Photos:       datatypes.NewJSONSlice([]string{fmt.Sprintf("https://photos.test/%d.jpg", u.ID)}),
		}
		require.NoError(t, gdb.Create(&row).Error)
	}
}

// As returns a context authenticated as userID.
func As(userID uint64) context.Context {
	return auth.WithPrincipal(context.Background(), strconv.FormatUint(userID, 10))
}
