package recommend

import (
	"context"
	"fmt"
	"time"

	"github.com/xelth-com/shoprecs/internal/logger"
)

const (
	// ContentRetention is how long stored content-engine rows are kept.
	ContentRetention = 30 * 24 * time.Hour
	statsTTL         = 5 * time.Minute
	statsKey         = "recommendation_stats"
)

// PruneResult reports how many rows each cleanup pass removed.
type PruneResult struct {
	Unpublished  int64
	StaleContent int64
}

// Stats describes the stored recommendation dataset.
type Stats struct {
	Total       int64
	Content     int64
	Association int64
	LastBuild   time.Time
}

// BuildHistory reports when data was last built. Optional for Maintainer.
type BuildHistory interface {
	LastBuild(ctx context.Context) (time.Time, error)
}

// Maintainer prunes, clears and reports on the association store.
type Maintainer struct {
	store   AssociationStore
	cache   Cache
	history BuildHistory
	log     *logger.Logger
	now     func() time.Time
}

// NewMaintainer wires a maintainer. cache and history may be nil.
func NewMaintainer(store AssociationStore, cache Cache, history BuildHistory, log *logger.Logger) *Maintainer {
	return &Maintainer{
		store:   store,
		cache:   cache,
		history: history,
		log:     logger.OrNop(log),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// PruneStale drops records pointing at unpublished or deleted products and
// content-engine rows older than ContentRetention. Both passes are idempotent.
func (m *Maintainer) PruneStale(ctx context.Context) (PruneResult, error) {
	var res PruneResult

	n, err := m.store.DeleteUnpublished(ctx)
	if err != nil {
		return res, fmt.Errorf("prune unpublished: %w", err)
	}
	res.Unpublished = n
	m.invalidate(ctx)

	n, err = m.store.DeleteStale(ctx, EngineContent, m.now().Add(-ContentRetention))
	if err != nil {
		return res, fmt.Errorf("prune stale content: %w", err)
	}
	res.StaleContent = n
	m.invalidate(ctx)

	m.log.Info("recommendation data pruned", "unpublished", res.Unpublished, "stale_content", res.StaleContent)
	return res, nil
}

// Clear removes every stored recommendation regardless of engine.
func (m *Maintainer) Clear(ctx context.Context) error {
	if err := m.store.Truncate(ctx); err != nil {
		return fmt.Errorf("clear recommendations: %w", err)
	}
	m.invalidate(ctx)
	m.log.Warn("all recommendation data cleared")
	return nil
}

// Stats counts stored records per engine. The result is cached for five minutes.
func (m *Maintainer) Stats(ctx context.Context) (Stats, error) {
	if m.cache != nil {
		if packed, ok := m.cache.Get(ctx, CacheGroupStats, statsKey); ok && len(packed) == 4 {
			return unpackStats(packed), nil
		}
	}

	counts, err := m.store.CountByEngine(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count recommendations: %w", err)
	}

	var st Stats
	for engine, n := range counts {
		st.Total += n
		switch engine {
		case EngineContent:
			st.Content = n
		case EngineAssociation:
			st.Association = n
		}
	}

	if m.history != nil {
		last, err := m.history.LastBuild(ctx)
		if err != nil {
			return Stats{}, fmt.Errorf("last build: %w", err)
		}
		st.LastBuild = last
	}

	if m.cache != nil {
		m.cache.Set(ctx, CacheGroupStats, statsKey, packStats(st), statsTTL)
	}
	return st, nil
}

// RefreshStats drops the cached Stats snapshot so the next call recounts.
func (m *Maintainer) RefreshStats(ctx context.Context) {
	if m.cache != nil {
		m.cache.InvalidateGroup(ctx, CacheGroupStats)
	}
}

func (m *Maintainer) invalidate(ctx context.Context) {
	if m.cache == nil {
		return
	}
	m.cache.InvalidateGroup(ctx, CacheGroupAssociations)
	m.cache.InvalidateGroup(ctx, CacheGroupStats)
}

// Stats travel through the ID-list cache as [total, content, association, last build unix].
func packStats(st Stats) []int64 {
	var last int64
	if !st.LastBuild.IsZero() {
		last = st.LastBuild.Unix()
	}
	return []int64{st.Total, st.Content, st.Association, last}
}

func unpackStats(v []int64) Stats {
	st := Stats{Total: v[0], Content: v[1], Association: v[2]}
	if v[3] != 0 {
		st.LastBuild = time.Unix(v[3], 0).UTC()
	}
	return st
}
