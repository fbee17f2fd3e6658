package builder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xelth-com/shoprecs/internal/cache"
	"github.com/xelth-com/shoprecs/internal/config"
	"github.com/xelth-com/shoprecs/internal/database"
	"github.com/xelth-com/shoprecs/internal/models"
	"github.com/xelth-com/shoprecs/internal/recommend"
	"github.com/xelth-com/shoprecs/internal/redis"
	"github.com/xelth-com/shoprecs/internal/store"
)

type fixture struct {
	db      *gorm.DB
	catalog *store.Catalog
	orders  *store.Orders
	assoc   *store.Associations
	builds  *store.Builds
	maint   *recommend.Maintainer
	cache   *cache.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	f := &fixture{
		db:      db,
		catalog: store.NewCatalog(db),
		orders:  store.NewOrders(db),
		assoc:   store.NewAssociations(db),
		builds:  store.NewBuilds(db),
		cache:   cache.NewMemory(0),
	}
	f.maint = recommend.NewMaintainer(f.assoc, f.cache, f.builds, nil)
	return f
}

func (f *fixture) seed(t *testing.T) {
	t.Helper()
	ctx := context.Background()
	for id := int64(1); id <= 4; id++ {
		status := models.ProductStatusPublish
		if id == 4 {
			status = models.ProductStatusDraft
		}
		require.NoError(t, f.catalog.UpsertProduct(ctx, &models.Product{
			ID: id, Name: "p", Status: status, StockStatus: models.StockStatusInStock, Purchasable: true,
		}))
	}
	recent := time.Now().UTC().AddDate(0, 0, -3)
	baskets := [][]int64{{1, 2}, {1, 2}, {1, 2, 3}, {2, 4}, {2, 4}}
	for i, b := range baskets {
		so := &models.SalesOrder{ID: int64(i + 1), Status: models.OrderStatusCompleted, DateCreated: recent}
		for _, p := range b {
			so.Lines = append(so.Lines, models.SalesOrderLine{ProductID: p})
		}
		require.NoError(t, f.orders.SaveOrder(ctx, so))
	}
}

func (f *fixture) service(orders recommend.OrderSource, guard Guard) *Service {
	miner := recommend.NewMiner(orders, f.assoc, f.cache, nil)
	return New(Deps{
		Settings:   config.StaticSettings{Value: recommend.DefaultSettings()},
		Miner:      miner,
		Maintainer: f.maint,
		Builds:     f.builds,
		Guard:      guard,
	})
}

func TestBuild_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	rep, err := f.service(f.orders, nil).Build(ctx, "test")
	require.NoError(t, err)

	assert.Equal(t, 5, rep.Rebuild.OrdersScanned)
	// (1,2) and (2,4) reach min support 2, both directions each
	assert.Equal(t, 4, rep.Rebuild.RecordsWritten)
	assert.Equal(t, int64(2), rep.Prune.Unpublished, "pairs with the draft product are pruned")
	assert.NotEmpty(t, rep.BuildID)
	assert.False(t, rep.Shared)

	recs, err := f.assoc.Query(ctx, 1, recommend.EngineAssociation, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, int64(2), recs[0].RecommendedProductID)

	st, err := f.maint.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Association)
	assert.False(t, st.LastBuild.IsZero())

	builds, err := f.builds.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, builds, 1)
	assert.Equal(t, models.BuildStatusSucceeded, builds[0].Status)
	assert.Equal(t, rep.Rebuild.Checksum, builds[0].Checksum)
	assert.Equal(t, int64(2), builds[0].Pruned)
}

type failingOrders struct{}

func (failingOrders) FetchOrders(context.Context, []string, time.Time) ([]recommend.Order, error) {
	return nil, errors.New("order history unavailable")
}

func TestBuild_FailureRecorded(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.service(f.orders, nil).Build(ctx, "first")
	require.NoError(t, err)
	before, err := f.assoc.CountByEngine(ctx)
	require.NoError(t, err)

	_, err = f.service(failingOrders{}, nil).Build(ctx, "second")
	require.Error(t, err)

	after, err := f.assoc.CountByEngine(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed build keeps the previous dataset")

	builds, err := f.builds.Recent(ctx, 5)
	require.NoError(t, err)
	require.Len(t, builds, 2)
	var failed int
	for _, b := range builds {
		if b.Status == models.BuildStatusFailed {
			failed++
			assert.Contains(t, b.Error, "order history unavailable")
			assert.NotNil(t, b.FinishedAt)
		}
	}
	assert.Equal(t, 1, failed)
}

type busyGuard struct{}

func (busyGuard) WithLock(context.Context, string, time.Duration, func() error) error {
	return redis.ErrLockNotAcquired
}

type recordingGuard struct {
	keys []string
}

func (g *recordingGuard) WithLock(_ context.Context, key string, _ time.Duration, fn func() error) error {
	g.keys = append(g.keys, key)
	return fn()
}

func TestBuild_Guard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	_, err := f.service(f.orders, busyGuard{}).Build(ctx, "cron")
	assert.ErrorIs(t, err, ErrRebuildInProgress)

	builds, err := f.builds.Recent(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, builds, "a skipped build is not recorded")

	g := &recordingGuard{}
	rep, err := f.service(f.orders, g).Build(ctx, "cron")
	require.NoError(t, err)
	assert.Equal(t, []string{lockKey}, g.keys)
	assert.Equal(t, 4, rep.Rebuild.RecordsWritten)
}

func TestBuild_Idempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)
	svc := f.service(f.orders, nil)

	first, err := svc.Build(ctx, "a")
	require.NoError(t, err)
	second, err := svc.Build(ctx, "b")
	require.NoError(t, err)

	assert.Equal(t, first.Rebuild.Checksum, second.Rebuild.Checksum)
	assert.NotEqual(t, first.BuildID, second.BuildID)
}

// blockingOrders holds FetchOrders until release is closed or ctx ends.
type blockingOrders struct {
	next    recommend.OrderSource
	started chan struct{}
	release chan struct{}
}

func newBlockingOrders(next recommend.OrderSource) *blockingOrders {
	return &blockingOrders{next: next, started: make(chan struct{}, 1), release: make(chan struct{})}
}

func (b *blockingOrders) FetchOrders(ctx context.Context, statuses []string, after time.Time) ([]recommend.Order, error) {
	select {
	case b.started <- struct{}{}:
	default:
	}
	select {
	case <-b.release:
		return b.next.FetchOrders(ctx, statuses, after)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type result struct {
	rep Report
	err error
}

func TestBuild_CancelledCallerDoesNotStopSharedRun(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	orders := newBlockingOrders(f.orders)
	svc := f.service(orders, nil)

	ctx1, cancel1 := context.WithCancel(context.Background())
	defer cancel1()
	first := make(chan result, 1)
	go func() {
		rep, err := svc.Build(ctx1, "first")
		first <- result{rep, err}
	}()
	<-orders.started

	second := make(chan result, 1)
	go func() {
		rep, err := svc.Build(context.Background(), "second")
		second <- result{rep, err}
	}()
	require.Eventually(t, func() bool {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		return svc.waiters == 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel1()
	r1 := <-first
	assert.ErrorIs(t, r1.err, context.Canceled)

	close(orders.release)
	r2 := <-second
	require.NoError(t, r2.err)
	assert.Equal(t, 4, r2.rep.Rebuild.RecordsWritten)
}

func TestBuild_LastCallerCancelStopsRun(t *testing.T) {
	f := newFixture(t)
	f.seed(t)
	orders := newBlockingOrders(f.orders)
	svc := f.service(orders, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan result, 1)
	go func() {
		rep, err := svc.Build(ctx, "cli")
		done <- result{rep, err}
	}()
	<-orders.started
	cancel()
	assert.ErrorIs(t, (<-done).err, context.Canceled)

	require.Eventually(t, func() bool {
		builds, err := f.builds.Recent(context.Background(), 1)
		return err == nil && len(builds) == 1 && builds[0].Status == models.BuildStatusFailed
	}, 2*time.Second, 10*time.Millisecond)
}

// statsReadingRecorder reads Stats right before the build is marked finished.
type statsReadingRecorder struct {
	*store.Builds
	maint *recommend.Maintainer
}

func (r statsReadingRecorder) Finish(ctx context.Context, build *models.RecommendationBuild, runErr error) error {
	if _, err := r.maint.Stats(ctx); err != nil {
		return err
	}
	return r.Builds.Finish(ctx, build, runErr)
}

func TestBuild_StatsSeeFinishedBuild(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.seed(t)

	svc := New(Deps{
		Settings:   config.StaticSettings{Value: recommend.DefaultSettings()},
		Miner:      recommend.NewMiner(f.orders, f.assoc, f.cache, nil),
		Maintainer: f.maint,
		Builds:     statsReadingRecorder{Builds: f.builds, maint: f.maint},
	})
	_, err := svc.Build(ctx, "test")
	require.NoError(t, err)

	st, err := f.maint.Stats(ctx)
	require.NoError(t, err)
	assert.False(t, st.LastBuild.IsZero(), "stats cached mid-build must not hide the finished build")
}
