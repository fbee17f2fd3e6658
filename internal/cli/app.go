package cli

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/xelth-com/shoprecs/internal/cache"
	"github.com/xelth-com/shoprecs/internal/config"
	"github.com/xelth-com/shoprecs/internal/database"
	"github.com/xelth-com/shoprecs/internal/logger"
	"github.com/xelth-com/shoprecs/internal/recommend"
	"github.com/xelth-com/shoprecs/internal/redis"
	"github.com/xelth-com/shoprecs/internal/services/builder"
	"github.com/xelth-com/shoprecs/internal/store"
)

// app holds the wired collaborators shared by all commands
type app struct {
	cfg      *config.Config
	log      *logger.Logger
	settings recommend.SettingsProvider
	cache    recommend.Cache
	guard    builder.Guard

	catalog   *store.Catalog
	orders    *store.Orders
	assoc     *store.Associations
	overrides *store.Overrides
	builds    *store.Builds

	closers []func() error
}

func newApp(db *gorm.DB, settings recommend.SettingsProvider, c recommend.Cache, guard builder.Guard, log *logger.Logger) *app {
	return &app{
		log:       logger.OrNop(log),
		settings:  settings,
		cache:     c,
		guard:     guard,
		catalog:   store.NewCatalog(db),
		orders:    store.NewOrders(db),
		assoc:     store.NewAssociations(db),
		overrides: store.NewOverrides(db),
		builds:    store.NewBuilds(db),
	}
}

// openApp loads configuration and connects to the database and, when
// configured, Redis.
func openApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	settings, err := config.LoadSettings(cfg.SettingsFile)
	if err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg.Database, log)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, err
	}

	var (
		c     recommend.Cache = cache.NewMemory(0)
		guard builder.Guard
		rc    *redis.Client
	)
	if cfg.Redis.Addr != "" {
		rc, err = redis.NewClient(cfg.Redis, log)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		c = redis.NewCache(rc, "recs")
		guard = redis.NewLocker(rc, "recs:lock:")
	}

	a := newApp(db.DB, config.StaticSettings{Value: settings}, c, guard, log)
	a.cfg = cfg
	if rc != nil {
		a.closers = append(a.closers, rc.Close)
	}
	a.closers = append(a.closers, db.Close, func() error { log.Sync(); return nil })

	log.Debug("app ready", "engine", settings.ActiveEngine, "redis", cfg.Redis.Addr != "")
	return a, nil
}

func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

func (a *app) selector() *recommend.Selector {
	return recommend.NewSelector(recommend.Deps{
		Settings:     a.settings,
		Catalog:      a.catalog,
		Overrides:    a.overrides,
		Associations: a.assoc,
		Cache:        a.cache,
		Logger:       a.log,
	})
}

func (a *app) maintainer() *recommend.Maintainer {
	return recommend.NewMaintainer(a.assoc, a.cache, a.builds, a.log)
}

func (a *app) builder() *builder.Service {
	return builder.New(builder.Deps{
		Settings:   a.settings,
		Miner:      recommend.NewMiner(a.orders, a.assoc, a.cache, a.log),
		Maintainer: a.maintainer(),
		Builds:     a.builds,
		Guard:      a.guard,
		Logger:     a.log,
	})
}
