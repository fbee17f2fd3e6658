package builder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xelth-com/shoprecs/internal/logger"
	"github.com/xelth-com/shoprecs/internal/models"
	"github.com/xelth-com/shoprecs/internal/recommend"
	"github.com/xelth-com/shoprecs/internal/redis"
)

// ErrRebuildInProgress is returned when another process holds the build lock
var ErrRebuildInProgress = errors.New("recommendation build already in progress")

const (
	lockKey = "recs:build"
	lockTTL = 30 * time.Minute
)

// Recorder keeps the build log
type Recorder interface {
	Start(ctx context.Context, trigger string) (*models.RecommendationBuild, error)
	Finish(ctx context.Context, build *models.RecommendationBuild, runErr error) error
}

// Guard serializes builds across processes. *redis.Locker implements it.
type Guard interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func() error) error
}

// Report describes one build
type Report struct {
	BuildID  string
	Rebuild  recommend.RebuildResult
	Prune    recommend.PruneResult
	Duration time.Duration
	Shared   bool // joined a build started by another caller in this process
}

// Service runs the "build recommendation data" job: mine associations,
// prune stale rows and record the run.
type Service struct {
	settings recommend.SettingsProvider
	miner    *recommend.Miner
	maint    *recommend.Maintainer
	builds   Recorder
	guard    Guard
	log      *logger.Logger

	group singleflight.Group

	// run context shared by every caller waiting on the current build
	mu        sync.Mutex
	runCtx    context.Context
	cancelRun context.CancelFunc
	waiters   int
}

// Deps holds the collaborators of a Service. Builds and Guard may be nil.
type Deps struct {
	Settings   recommend.SettingsProvider
	Miner      *recommend.Miner
	Maintainer *recommend.Maintainer
	Builds     Recorder
	Guard      Guard
	Logger     *logger.Logger
}

func New(d Deps) *Service {
	return &Service{
		settings: d.Settings,
		miner:    d.Miner,
		maint:    d.Maintainer,
		builds:   d.Builds,
		guard:    d.Guard,
		log:      logger.OrNop(d.Logger).With("component", "builder"),
	}
}

// Build runs the job. Concurrent callers in one process share a single run
// that keeps going while at least one of them is still waiting; a caller
// whose ctx ends gets ctx.Err(). A run held by another process yields
// ErrRebuildInProgress.
func (s *Service) Build(ctx context.Context, trigger string) (Report, error) {
	runCtx := s.join(ctx)
	defer s.leave()

	ch := s.group.DoChan(lockKey, func() (interface{}, error) {
		return s.guarded(runCtx, trigger)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return Report{}, res.Err
		}
		rep := res.Val.(Report)
		rep.Shared = res.Shared
		return rep, nil
	case <-ctx.Done():
		return Report{}, ctx.Err()
	}
}

func (s *Service) join(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.waiters == 0 {
		s.runCtx, s.cancelRun = context.WithCancel(context.WithoutCancel(ctx))
	}
	s.waiters++
	return s.runCtx
}

// leave cancels the shared run once nobody waits for it.
func (s *Service) leave() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waiters--
	if s.waiters == 0 {
		s.cancelRun()
		s.runCtx, s.cancelRun = nil, nil
	}
}

func (s *Service) guarded(ctx context.Context, trigger string) (Report, error) {
	if s.guard == nil {
		return s.run(ctx, trigger)
	}

	var rep Report
	err := s.guard.WithLock(ctx, lockKey, lockTTL, func() error {
		var runErr error
		rep, runErr = s.run(ctx, trigger)
		return runErr
	})
	if errors.Is(err, redis.ErrLockNotAcquired) {
		s.log.Warn("build skipped, lock held elsewhere", "trigger", trigger)
		return Report{}, ErrRebuildInProgress
	}
	return rep, err
}

func (s *Service) run(ctx context.Context, trigger string) (rep Report, err error) {
	started := time.Now()

	settings, err := s.settings.Settings(ctx)
	if err != nil {
		return Report{}, fmt.Errorf("load settings: %w", err)
	}

	var build *models.RecommendationBuild
	if s.builds != nil {
		build, err = s.builds.Start(ctx, trigger)
		if err != nil {
			return Report{}, fmt.Errorf("record build start: %w", err)
		}
		rep.BuildID = build.ID.String()
		defer func() {
			if build == nil {
				return
			}
			build.OrdersScanned = rep.Rebuild.OrdersScanned
			build.RecordsWritten = rep.Rebuild.RecordsWritten
			build.Checksum = rep.Rebuild.Checksum
			build.Pruned = rep.Prune.Unpublished + rep.Prune.StaleContent
			finishCtx := context.WithoutCancel(ctx)
			if finishErr := s.builds.Finish(finishCtx, build, err); finishErr != nil {
				s.log.Error("record build finish failed", "build_id", rep.BuildID, "error", finishErr)
			}
			s.maint.RefreshStats(finishCtx)
		}()
	}

	s.log.Info("build started", "trigger", trigger, "build_id", rep.BuildID)

	rep.Rebuild, err = s.miner.Rebuild(ctx, recommend.RebuildParamsFrom(settings.Association))
	if err != nil {
		s.log.Error("build failed", "stage", "rebuild", "error", err)
		return rep, err
	}

	rep.Prune, err = s.maint.PruneStale(ctx)
	if err != nil {
		s.log.Error("build failed", "stage", "prune", "error", err)
		return rep, fmt.Errorf("prune: %w", err)
	}

	rep.Duration = time.Since(started)
	s.log.Info("build finished",
		"build_id", rep.BuildID,
		"records", rep.Rebuild.RecordsWritten,
		"pruned", rep.Prune.Unpublished+rep.Prune.StaleContent,
		"duration", rep.Duration,
	)
	return rep, nil
}
