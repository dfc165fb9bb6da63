package social_test

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/campus-connect/internal/app"
	"github.com/oggyb/campus-connect/internal/cache"
	"github.com/oggyb/campus-connect/internal/config"
	"github.com/oggyb/campus-connect/internal/db"
	"github.com/oggyb/campus-connect/internal/logger"
	"github.com/oggyb/campus-connect/internal/realtime"
	"github.com/oggyb/campus-connect/internal/service/social"
)

// Seeded cohort, see db.SeedTestData:
//   - arjun <-> kavya matched, with a two-message conversation
//   - rohan super-liked kavya, meera liked arjun
//   - dev has an empty bio and is never discoverable
const (
	arjun = "11111111-1111-1111-1111-111111111111"
	kavya = "22222222-2222-2222-2222-222222222222"
	rohan = "33333333-3333-3333-3333-333333333333"
	meera = "44444444-4444-4444-4444-444444444444"
	dev   = "55555555-5555-5555-5555-555555555555"
)

type env struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *miniredis.Miniredis
	cache *cache.RedisCache
	// app is the context of the service built by setupService.
	app *app.AppContext
}

// setupEnv spins up an in-memory SQLite DB with the demo seed and a
// miniredis. Each test gets its own isolated DB + Redis.
func setupEnv(t *testing.T) *env {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	database, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := database.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.Migrate(database))
	require.NoError(t, db.SeedTestData(database))

	mr := miniredis.RunT(t)
	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	rc := cache.NewRedisCache(cfg)
	t.Cleanup(func() { rc.Close() })

	return &env{cfg: cfg, db: database, redis: mr, cache: rc}
}

func (e *env) newAppContext(bus realtime.Bus) *app.AppContext {
	return app.New(e.cfg, e.db, e.cache, bus, logger.Discard())
}

// newService wires a service the way cmd/server does. bus may be nil.
func (e *env) newService(bus realtime.Bus) (*social.Service, *app.AppContext) {
	appCtx := e.newAppContext(bus)
	return social.NewSocialService(appCtx), appCtx
}

// setupService is the common single-process fixture.
func setupService(t *testing.T) (*social.Service, *env) {
	t.Helper()
	e := setupEnv(t)
	svc, appCtx := e.newService(nil)
	e.app = appCtx
	return svc, e
}
