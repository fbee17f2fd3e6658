package recommend

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xelth-com/shoprecs/internal/logger"
)

const lookupTTL = 5 * time.Minute

// AssociationLookup reads precomputed co-purchase recommendations.
type AssociationLookup struct {
	store AssociationStore
	cache Cache
	log   *logger.Logger
}

// NewAssociationLookup wires a lookup. cache may be nil.
func NewAssociationLookup(store AssociationStore, cache Cache, log *logger.Logger) *AssociationLookup {
	return &AssociationLookup{store: store, cache: cache, log: logger.OrNop(log)}
}

// Lookup returns up to floor(limit) recommended products for seed, best score first.
// A store failure (for example while a rebuild swaps data) yields an empty result.
func (l *AssociationLookup) Lookup(ctx context.Context, seed int64, limit float64) []int64 {
	n := int(math.Floor(limit))
	if n <= 0 {
		return nil
	}

	key := lookupKey(seed, n)
	if l.cache != nil {
		if ids, ok := l.cache.Get(ctx, CacheGroupAssociations, key); ok {
			return ids
		}
	}

	records, err := l.store.Query(ctx, seed, EngineAssociation, n)
	if err != nil {
		l.log.Warn("association lookup failed", "product_id", seed, "error", err)
		return nil
	}

	ids := make([]int64, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.RecommendedProductID)
	}

	if l.cache != nil {
		l.cache.Set(ctx, CacheGroupAssociations, key, ids, lookupTTL)
	}
	return ids
}

func lookupKey(seed int64, limit int) string {
	return fmt.Sprintf("assoc_recs_%d_%d", seed, limit)
}
